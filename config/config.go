package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"rentscout/identity"
)

type Config struct {
	LogLevel    string
	DatabaseURL string
	Blob        BlobConfig
	Browser     BrowserConfig
	Ollama      OllamaConfig
	Scheduler   SchedulerConfig
	Sites       map[string]*SiteConfig
}

type BlobConfig struct {
	Bucket          string
	Region          string
	Endpoint        string // optional: MinIO, DO Spaces, R2
	AccessKeyID     string
	SecretAccessKey string
}

type ProxyConfig struct {
	Server   string
	Username string
	Password string
}

// BrowserConfig selects the browsing backend and carries the identity pool.
// Mode "local" launches Chromium; "remote" attaches to a managed browser
// endpoint over CDP.
type BrowserConfig struct {
	Mode           string
	RemoteEndpoint string
	Headless       bool
	Proxy          ProxyConfig

	BlockedURLPatterns []string            `yaml:"blocked_url_patterns"`
	UserAgents         []string            `yaml:"user_agents"`
	Viewports          []identity.Viewport `yaml:"viewports"`
	Timezones          []string            `yaml:"timezones"`
	Locale             string              `yaml:"locale"`
}

type OllamaConfig struct {
	BaseURL string
	Model   string

	SummaryBatch    int
	SummaryInterval time.Duration
}

type SchedulerConfig struct {
	Cron     string
	Interval time.Duration
}

type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	Enabled  bool   `yaml:"enabled"`
	MinPrice int    `yaml:"min_price"`
	MaxPrice int    `yaml:"max_price"`
	AptType  string `yaml:"apt_type"`

	MaxDepth    int `yaml:"max_depth"`
	StartPage   int `yaml:"start_page"`
	MaxRetries  int `yaml:"max_retries"`
	BaseDelayMS int `yaml:"base_delay_ms"`
	MaxDelayMS  int `yaml:"max_delay_ms"`

	Workers     int `yaml:"workers"`
	MaxAttempts int `yaml:"max_attempts"`
}

func (s *SiteConfig) BaseDelay() time.Duration { return time.Duration(s.BaseDelayMS) * time.Millisecond }
func (s *SiteConfig) MaxDelay() time.Duration  { return time.Duration(s.MaxDelayMS) * time.Millisecond }

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Blob: BlobConfig{
			Bucket:          os.Getenv("BLOB_BUCKET"),
			Region:          getEnv("BLOB_REGION", "us-east-1"),
			Endpoint:        os.Getenv("BLOB_ENDPOINT"),
			AccessKeyID:     os.Getenv("BLOB_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("BLOB_SECRET_ACCESS_KEY"),
		},
		Browser: BrowserConfig{
			Mode:           getEnv("BROWSER_MODE", "local"),
			RemoteEndpoint: os.Getenv("BROWSER_API_ENDPOINT"),
			Headless:       getEnv("HEADLESS_BROWSER", "true") == "true",
			Proxy: ProxyConfig{
				Server:   os.Getenv("PROXY_SERVER"),
				Username: os.Getenv("PROXY_USERNAME"),
				Password: os.Getenv("PROXY_PASSWORD"),
			},
		},
		Ollama: OllamaConfig{
			BaseURL:         getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			Model:           getEnv("OLLAMA_MODEL", "llava"),
			SummaryBatch:    getEnvInt("SUMMARY_BATCH_SIZE", 10),
			SummaryInterval: 15 * time.Minute,
		},
		Scheduler: SchedulerConfig{
			Cron: os.Getenv("SCRAPE_CRON"),
		},
		Sites: make(map[string]*SiteConfig),
	}

	if interval := os.Getenv("SCRAPE_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			cfg.Scheduler.Interval = d
		}
	}
	if interval := os.Getenv("SUMMARY_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			cfg.Ollama.SummaryInterval = d
		}
	}

	if err := cfg.loadBrowserPools("config/browser.yaml"); err != nil {
		return nil, err
	}
	if err := cfg.loadSiteConfigs("config/sites"); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadBrowserPools(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var pools struct {
		BlockedURLPatterns []string            `yaml:"blocked_url_patterns"`
		UserAgents         []string            `yaml:"user_agents"`
		Viewports          []identity.Viewport `yaml:"viewports"`
		Timezones          []string            `yaml:"timezones"`
		Locale             string              `yaml:"locale"`
	}
	if err := yaml.Unmarshal(data, &pools); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	c.Browser.BlockedURLPatterns = pools.BlockedURLPatterns
	c.Browser.UserAgents = pools.UserAgents
	c.Browser.Viewports = pools.Viewports
	c.Browser.Timezones = pools.Timezones
	c.Browser.Locale = pools.Locale
	return nil
}

func (c *Config) loadSiteConfigs(configDir string) error {
	entries, err := os.ReadDir(configDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(configDir, entry.Name()))
		if err != nil {
			return err
		}

		site := &SiteConfig{
			Enabled:     true,
			MaxDepth:    5,
			StartPage:   1,
			MaxRetries:  3,
			BaseDelayMS: 2000,
			MaxDelayMS:  30000,
			Workers:     1,
			MaxAttempts: 3,
		}
		if err := yaml.Unmarshal(data, site); err != nil {
			return fmt.Errorf("parse %s: %w", entry.Name(), err)
		}

		c.Sites[site.ID] = site
	}

	return nil
}

// Validate enforces the configuration-fatal rules: these abort startup, they
// are never retried at runtime.
func (c *Config) Validate() error {
	if len(c.Browser.UserAgents) == 0 {
		return fmt.Errorf("config: user agent pool is empty")
	}
	if c.Browser.Proxy.Server != "" &&
		(c.Browser.Proxy.Username == "" || c.Browser.Proxy.Password == "") {
		return fmt.Errorf("config: proxy server %q configured without credentials", c.Browser.Proxy.Server)
	}
	if c.Browser.Mode == "remote" && c.Browser.RemoteEndpoint == "" {
		return fmt.Errorf("config: BROWSER_MODE=remote requires BROWSER_API_ENDPOINT")
	}
	return nil
}

func (c *Config) IdentityPool() identity.Pool {
	return identity.Pool{
		UserAgents: c.Browser.UserAgents,
		Viewports:  c.Browser.Viewports,
		Timezones:  c.Browser.Timezones,
		Locale:     c.Browser.Locale,
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
