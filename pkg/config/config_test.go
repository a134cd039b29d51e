package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
environment: test
synth:
  api_key: secret
  assets: [BTC, SPY]
render:
  frame_rate: 30
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "test", c.Environment)
	assert.Equal(t, []string{"BTC", "SPY"}, c.Synth.Assets)
	assert.Equal(t, 30, c.Render.FrameRate)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, 300*time.Second, c.Synth.CacheTTL)
	assert.Equal(t, 50, c.Synth.ConePoints)
	assert.Equal(t, "direct", c.Backend.Type)
	assert.Equal(t, 10.0, c.Render.PriceAxisWidth)
	assert.Equal(t, []string{"1h", "24h"}, c.Synth.Horizons["BTC"])
	assert.NotContains(t, c.Synth.Horizons, "SPY")
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"missing key":  "environment: test\n",
		"bad backend":  "synth: {api_key: k}\nbackend: {type: nats}\n",
		"bad horizon":  "synth: {api_key: k, horizons: {BTC: [7d]}}\n",
		"zero fps":     "synth: {api_key: k}\nrender: {frame_rate: -1}\n",
		"few points":   "synth: {api_key: k, cone_points: 1}\n",
		"invalid yaml": "synth: [\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, "synth: {api_key: from-file}\n")
	t.Setenv("SYNTH_API_KEY", "from-env")
	t.Setenv("ASSETS", "ETH,SOL")
	t.Setenv("PORT", "9090")
	t.Setenv("REDIS_ADDR", "redis:6379")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", c.Synth.APIKey)
	assert.Equal(t, []string{"ETH", "SOL"}, c.Synth.Assets)
	assert.Equal(t, 9090, c.Server.Port)
	assert.True(t, c.Cache.Redis.Enabled)
	assert.Equal(t, "redis:6379", c.Cache.Redis.Addr)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
