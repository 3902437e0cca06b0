package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "8080", c.Server.Port)
	assert.Equal(t, 168*time.Hour, c.Offers.TTL)
	assert.Equal(t, 15*time.Minute, c.Offers.SweepInterval)
	assert.Equal(t, 5, c.Vouchers.MaxCodeAttempts)
	assert.Equal(t, int64(10), c.Vouchers.RedeemLimit)
	assert.Equal(t, time.Hour, c.Vouchers.RedeemWindow)
	assert.Equal(t, 10, c.River.MaxWorkers)
	assert.Empty(t, c.Notify.WebhookURL)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9000"
offers:
  ttl: 48h
vouchers:
  redeem_limit: 3
`), 0o600))
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("OFFERS_TTL", "24h")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9000", c.Server.Port)
	assert.Equal(t, int64(3), c.Vouchers.RedeemLimit)
	assert.Equal(t, "from-env", c.JWT.Secret)
	assert.Equal(t, 24*time.Hour, c.Offers.TTL)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	c, err := Load("")
	require.NoError(t, err)

	c.Offers.TTL = 0
	assert.Error(t, c.Validate())
}
