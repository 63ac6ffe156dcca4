package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	gopher "github.com/knowfox/gopher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	t.Run("empty file keeps defaults", func(t *testing.T) {
		cfg, err := Decode("")
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("overlay", func(t *testing.T) {
		cfg, err := Decode(`
[client]
protocol = "gopher+"
tls = "prefer"
charset = "iso-8859-1"
insecure_skip_verify = true
handshake_timeout = "750ms"

[proxy]
addr = "127.0.0.1:9090"
cors_origins = ["https://example.com", " "]
retry_max_elapsed = "0s"

[log]
level = "debug"
`)
		require.NoError(t, err)
		assert.Equal(t, gopher.GopherPlus, cfg.Client.Protocol)
		assert.Equal(t, gopher.PreferTLS, cfg.Client.TLS)
		assert.Equal(t, "iso-8859-1", cfg.Client.Charset)
		assert.True(t, cfg.Client.InsecureSkipVerify)
		assert.Equal(t, 750*time.Millisecond, cfg.Client.HandshakeTimeout)
		assert.Equal(t, gopher.DefaultConfig().DialTimeout, cfg.Client.DialTimeout)
		assert.Equal(t, "127.0.0.1:9090", cfg.Proxy.Addr)
		assert.Equal(t, []string{"https://example.com"}, cfg.Proxy.CORSOrigins)
		assert.Equal(t, time.Duration(0), cfg.Proxy.RetryMaxElapsed)
		assert.True(t, cfg.Proxy.Metrics)
		assert.Equal(t, "debug", cfg.Log.Level)
	})

	t.Run("invalid values", func(t *testing.T) {
		for _, data := range []string{
			"[client]\nprotocol = \"gopher2\"",
			"[client]\ntls = \"sometimes\"",
			"[client]\ndial_timeout = \"soon\"",
			"[proxy]\nretry_max_elapsed = \"-1s\"",
			"[client\n",
		} {
			_, err := Decode(data)
			assert.Error(t, err, data)
		}
	})
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gopher.toml")
	require.NoError(t, os.WriteFile(path, []byte("[client]\ntls = \"only\"\n"), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, gopher.OnlyTLS, cfg.Client.TLS)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
