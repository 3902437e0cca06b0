package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	d, err := Parse("12.50")
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("12.5")))

	_, err = Parse("twelve")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestValidatePositive(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"0.01", false},
		{"100", false},
		{"0", true},
		{"-5", true},
		{"1.005", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			err := ValidatePositive(decimal.RequireFromString(tt.in))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAmount)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateNonZero(t *testing.T) {
	assert.NoError(t, ValidateNonZero(FromInt(-30)))
	assert.ErrorIs(t, ValidateNonZero(Zero), ErrInvalidAmount)
}

func TestFormatAndSum(t *testing.T) {
	assert.Equal(t, "150.00", Format(Sum(FromInt(100), FromInt(50))))
	assert.Equal(t, "0.00", Format(Sum()))
}
