package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSiteConfigsAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	site := `
id: streeteasy
name: StreetEasy
url: https://streeteasy.com/for-rent/nyc
min_price: 2000
max_price: 4500
workers: 3
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "streeteasy.yaml"), []byte(site), 0o644))

	cfg := &Config{Sites: make(map[string]*SiteConfig)}
	require.NoError(t, cfg.loadSiteConfigs(dir))

	sc, ok := cfg.Sites["streeteasy"]
	require.True(t, ok)
	assert.True(t, sc.Enabled)
	assert.Equal(t, 3, sc.Workers)
	assert.Equal(t, 5, sc.MaxDepth, "unset max_depth takes the default")
	assert.Equal(t, 3, sc.MaxRetries)
	assert.Equal(t, 2*time.Second, sc.BaseDelay())
	assert.Equal(t, 30*time.Second, sc.MaxDelay())
}

func TestLoadSiteConfigsMissingDirIsNotFatal(t *testing.T) {
	cfg := &Config{Sites: make(map[string]*SiteConfig)}
	assert.NoError(t, cfg.loadSiteConfigs(filepath.Join(t.TempDir(), "nope")))
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("RENTSCOUT_TEST_INT", "7")
	assert.Equal(t, 7, getEnvInt("RENTSCOUT_TEST_INT", 3))

	t.Setenv("RENTSCOUT_TEST_INT", "seven")
	assert.Equal(t, 3, getEnvInt("RENTSCOUT_TEST_INT", 3), "garbage falls back to the default")

	assert.Equal(t, 3, getEnvInt("RENTSCOUT_TEST_INT_UNSET", 3))
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{Browser: BrowserConfig{
			Mode:       "local",
			UserAgents: []string{"ua"},
		}}
	}

	t.Run("ok", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("empty user agent pool", func(t *testing.T) {
		cfg := base()
		cfg.Browser.UserAgents = nil
		assert.Error(t, cfg.Validate())
	})

	t.Run("proxy without credentials", func(t *testing.T) {
		cfg := base()
		cfg.Browser.Proxy.Server = "http://proxy:8080"
		assert.Error(t, cfg.Validate())

		cfg.Browser.Proxy.Username = "u"
		cfg.Browser.Proxy.Password = "p"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("remote mode needs endpoint", func(t *testing.T) {
		cfg := base()
		cfg.Browser.Mode = "remote"
		assert.Error(t, cfg.Validate())

		cfg.Browser.RemoteEndpoint = "ws://browsers.internal:9222"
		assert.NoError(t, cfg.Validate())
	})
}
