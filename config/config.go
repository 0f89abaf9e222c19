package config

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds the server configuration
type Config struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Threads         int           `json:"threads"`
	Verbose         bool          `json:"verbose"`
	DocRoot         string        `json:"docroot"`
	SleepDelay      time.Duration `json:"sleep_delay"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	AccessLogPath   string        `json:"access_log_path"`
	LogMaxSizeMB    int           `json:"log_max_size_mb"`
	EnableCaching   bool          `json:"enable_caching"`
	CacheMaxEntries int           `json:"cache_max_entries"`
	RateLimit       float64       `json:"rate_limit"`
	RateBurst       int           `json:"rate_burst"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Host:            "127.0.0.1",
		Port:            7878,
		Threads:         4,
		Verbose:         false,
		DocRoot:         ".",
		SleepDelay:      5 * time.Second,
		ReadTimeout:     30 * time.Second,
		AccessLogPath:   "",
		LogMaxSizeMB:    100,
		EnableCaching:   false,
		CacheMaxEntries: 16,
		RateLimit:       0,
		RateBurst:       1,
	}
}

// Address returns the host:port the server listens on
func (c *Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate checks if the configuration is valid. The thread count is left to
// the worker pool, which rejects a size below one.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host must not be empty")
	}

	// 0 asks the OS for a free port
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535")
	}

	if c.SleepDelay < 0 {
		return fmt.Errorf("sleep_delay must not be negative")
	}

	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read_timeout must be positive")
	}

	if c.AccessLogPath != "" && c.LogMaxSizeMB < 1 {
		return fmt.Errorf("log_max_size_mb must be at least 1")
	}

	if c.EnableCaching && c.CacheMaxEntries < 1 {
		return fmt.Errorf("cache_max_entries must be at least 1 when caching is enabled")
	}

	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative")
	}

	if c.RateLimit > 0 && c.RateBurst < 1 {
		return fmt.Errorf("rate_burst must be at least 1 when rate limiting is enabled")
	}

	return nil
}

// Load reads a configuration file, picking the JSON loader for .json files
// and the INI loader for anything else. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return LoadConfig(path)
	}
	return LoadConfigFromINI(path)
}

// jsonConfig mirrors Config with durations spelled as strings ("5s")
type jsonConfig struct {
	*Config
	SleepDelay  string `json:"sleep_delay"`
	ReadTimeout string `json:"read_timeout"`
}

// LoadConfig loads configuration from a JSON file
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return default config if file doesn't exist
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	raw := jsonConfig{Config: config}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if raw.SleepDelay != "" {
		if config.SleepDelay, err = time.ParseDuration(raw.SleepDelay); err != nil {
			return nil, fmt.Errorf("failed to parse sleep_delay: %w", err)
		}
	}
	if raw.ReadTimeout != "" {
		if config.ReadTimeout, err = time.ParseDuration(raw.ReadTimeout); err != nil {
			return nil, fmt.Errorf("failed to parse read_timeout: %w", err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// LoadConfigFromINI loads configuration from a simple INI-like format
// Format: key=value (one per line, # for comments)
func LoadConfigFromINI(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	for n, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if err := config.set(key, value); err != nil {
			return nil, fmt.Errorf("line %d: %w", n+1, err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// set assigns one INI key. Unknown keys are ignored.
func (c *Config) set(key, value string) error {
	var err error
	switch key {
	case "host":
		c.Host = value
	case "port":
		c.Port, err = strconv.Atoi(value)
	case "threads":
		c.Threads, err = strconv.Atoi(value)
	case "verbose":
		c.Verbose = strings.ToLower(value) == "true"
	case "docroot":
		c.DocRoot = value
	case "sleep_delay":
		c.SleepDelay, err = time.ParseDuration(value)
	case "read_timeout":
		c.ReadTimeout, err = time.ParseDuration(value)
	case "access_log_path":
		c.AccessLogPath = value
	case "log_max_size_mb":
		c.LogMaxSizeMB, err = strconv.Atoi(value)
	case "enable_caching":
		c.EnableCaching = strings.ToLower(value) == "true"
	case "cache_max_entries":
		c.CacheMaxEntries, err = strconv.Atoi(value)
	case "rate_limit":
		c.RateLimit, err = strconv.ParseFloat(value, 64)
	case "rate_burst":
		c.RateBurst, err = strconv.Atoi(value)
	}
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return nil
}
