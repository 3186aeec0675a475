package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is prepended to every environment override, e.g. SITEMAP_CRAWLER_BASE_URL.
const EnvPrefix = "SITEMAP_CRAWLER"

// Parser names accepted in the parser field
const (
	ParserScan = "scan"
	ParserXML  = "xml"
)

// Config holds all runtime configuration parameters
type Config struct {
	BaseURL              string  `json:"base_url" toml:"base_url" envconfig:"BASE_URL"`
	SitemapPath          string  `json:"sitemap_path" toml:"sitemap_path" envconfig:"SITEMAP_PATH"`
	MaxRedirects         int     `json:"max_redirects" toml:"max_redirects" envconfig:"MAX_REDIRECTS"`
	RequestTimeoutMs     int     `json:"request_timeout_ms" toml:"request_timeout_ms" envconfig:"REQUEST_TIMEOUT_MS"`
	ConcurrentRequests   int     `json:"concurrent_requests" toml:"concurrent_requests" envconfig:"CONCURRENT_REQUESTS"`
	BatchDelayMs         int     `json:"batch_delay_ms" toml:"batch_delay_ms" envconfig:"BATCH_DELAY_MS"`
	UserAgent            string  `json:"user_agent" toml:"user_agent" envconfig:"USER_AGENT"`
	RetryCount           int     `json:"retry_count" toml:"retry_count" envconfig:"RETRY_COUNT"`
	RetryDelayMs         int     `json:"retry_delay_ms" toml:"retry_delay_ms" envconfig:"RETRY_DELAY_MS"`
	MaxRequestsPerSecond float64 `json:"max_requests_per_second" toml:"max_requests_per_second" envconfig:"MAX_REQUESTS_PER_SECOND"`
	Parser               string  `json:"parser" toml:"parser" envconfig:"PARSER"`
	Dedupe               bool    `json:"dedupe" toml:"dedupe" envconfig:"DEDUPE"`
	LogLevel             string  `json:"log_level" toml:"log_level" envconfig:"LOG_LEVEL"`
}

// Default returns the configuration used when nothing is overridden
func Default() Config {
	return Config{
		BaseURL:            "http://localhost:81",
		SitemapPath:        "/sitemap.xml",
		MaxRedirects:       5,
		RequestTimeoutMs:   30000,
		ConcurrentRequests: 3,
		BatchDelayMs:       1000,
		UserAgent:          "Mozilla/5.0 AposCMSDeploymentCache/1.0",
		RetryCount:         3,
		RetryDelayMs:       2000,
		Parser:             ParserScan,
		LogLevel:           "info",
	}
}

// Load builds the configuration from defaults, an optional config file,
// an optional .env file, SITEMAP_CRAWLER_* environment variables and finally
// the positional arguments [baseUrl] [sitemapPath].
func Load(path string, args []string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// A missing .env is the normal case
	if err := godotenv.Load(); err != nil {
		if _, statErr := os.Stat(".env"); statErr == nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	if len(args) > 0 && args[0] != "" {
		cfg.BaseURL = args[0]
	}
	if len(args) > 1 && args[1] != "" {
		cfg.SitemapPath = args[1]
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// decodeFile overlays the values found in a JSON or TOML file onto cfg
func decodeFile(path string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return fmt.Errorf("failed to parse config TOML: %w", err)
		}
		return nil
	default:
		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open config file: %w", err)
		}
		defer file.Close()

		if err := json.NewDecoder(file).Decode(cfg); err != nil {
			return fmt.Errorf("failed to parse config JSON: %w", err)
		}
		return nil
	}
}

// Validate checks that required fields are present and values are sensible
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base_url must use http or https, got %q", c.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("base_url has no host: %q", c.BaseURL)
	}
	if c.ConcurrentRequests < 1 {
		return fmt.Errorf("concurrent_requests must be >= 1")
	}
	if c.RequestTimeoutMs < 1 {
		return fmt.Errorf("request_timeout_ms must be >= 1")
	}
	if c.MaxRedirects < 0 {
		return fmt.Errorf("max_redirects must be >= 0")
	}
	if c.RetryCount < 0 {
		return fmt.Errorf("retry_count must be >= 0")
	}
	if c.RetryDelayMs < 0 || c.BatchDelayMs < 0 {
		return fmt.Errorf("delays must be >= 0")
	}
	if c.MaxRequestsPerSecond < 0 {
		return fmt.Errorf("max_requests_per_second must be >= 0")
	}
	switch c.Parser {
	case ParserScan, ParserXML:
	default:
		return fmt.Errorf("unknown parser %q (want %q or %q)", c.Parser, ParserScan, ParserXML)
	}
	return nil
}

// FullSitemapURL joins the base URL and sitemap path with exactly one slash
func (c *Config) FullSitemapURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(c.SitemapPath, "/")
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

func (c *Config) BatchDelay() time.Duration {
	return time.Duration(c.BatchDelayMs) * time.Millisecond
}

func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}
