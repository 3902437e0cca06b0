package vouchers

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// CodeLength is the number of digits in a voucher code.
const CodeLength = 10

var (
	nineDigits = big.NewInt(1_000_000_000)
	nonZero    = big.NewInt(9)
)

// CodeGenerator returns a fresh candidate code.
type CodeGenerator func() (string, error)

// RandomCode returns a random 10-digit code that does not start with 0.
func RandomCode() (string, error) {
	lead, err := rand.Int(rand.Reader, nonZero)
	if err != nil {
		return "", fmt.Errorf("voucher code: %w", err)
	}
	rest, err := rand.Int(rand.Reader, nineDigits)
	if err != nil {
		return "", fmt.Errorf("voucher code: %w", err)
	}
	return fmt.Sprintf("%d%09d", lead.Int64()+1, rest.Int64()), nil
}

// ValidCode reports whether s has the shape of a voucher code.
func ValidCode(s string) bool {
	if len(s) != CodeLength || s[0] == '0' {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
