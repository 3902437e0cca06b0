package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "walletctl", cmd.Use)

	for _, path := range [][]string{
		{"migrate"},
		{"accounts", "create-admin"},
		{"vouchers", "issue"},
		{"vouchers", "disable"},
		{"vouchers", "reset-throttle"},
		{"offers", "sweep"},
		{"balance"},
	} {
		found, _, err := cmd.Find(path)
		require.NoError(t, err, strings.Join(path, " "))
		assert.Equal(t, path[len(path)-1], found.Name())
	}
}

func TestRootCommand_GlobalFlags(t *testing.T) {
	cmd := NewRootCommand()
	flags := cmd.PersistentFlags()

	f := flags.Lookup("format")
	require.NotNil(t, f)
	assert.Equal(t, "text", f.DefValue)

	v := flags.Lookup("verbose")
	require.NotNil(t, v)
	assert.Equal(t, "v", v.Shorthand)

	c := flags.Lookup("config")
	require.NotNil(t, c)
	assert.Equal(t, "c", c.Shorthand)
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	_, err := run(t, "--format", "xml", "offers", "sweep")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

// Each case fails during argument checks, before any database work.
func TestCommands_RejectBadInput(t *testing.T) {
	admin := "6f1c2a4e-7d1b-4f8e-9a35-2c1d0b7e8f90"
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"balance needs id", []string{"balance"}, "accepts 1 arg"},
		{"balance bad id", []string{"balance", "not-a-uuid"}, "account id"},
		{"balance history range", []string{"balance", admin, "--history", "501"}, "--history"},
		{"issue needs amount", []string{"vouchers", "issue", "--admin", admin}, "amount"},
		{"issue bad admin", []string{"vouchers", "issue", "--amount", "10", "--admin", "x"}, "--admin"},
		{"issue bad amount", []string{"vouchers", "issue", "--amount", "ten", "--admin", admin}, "invalid amount"},
		{"issue bad denomination", []string{"vouchers", "issue", "--amount", "15", "--admin", admin}, "denomination"},
		{"disable needs code", []string{"vouchers", "disable", "--admin", admin}, "accepts 1 arg"},
		{"disable bad admin", []string{"vouchers", "disable", "ABC", "--admin", "nope"}, "--admin"},
		{"reset bad id", []string{"vouchers", "reset-throttle", "nope"}, "account id"},
		{"create-admin short password", []string{"accounts", "create-admin", "--email", "ops@example.com", "--password", "short"}, "at least 8"},
		{"migrate takes no args", []string{"migrate", "extra"}, "unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
