package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/samber/lo"
)

// Config stores asset server runtime configuration.
type Config struct {
	LogLevel string

	Server ServerConfig

	Assets AssetsConfig

	Browser BrowserConfig

	Metrics MetricsConfig
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// AssetsConfig describes the document root and the directories provisioned in it.
type AssetsConfig struct {
	Root string
	Dirs []string
}

// BrowserConfig controls the post-startup browser launch.
type BrowserConfig struct {
	Enabled bool
	Delay   time.Duration
	Host    string
}

// MetricsConfig controls the optional metrics listener. An empty port disables it.
type MetricsConfig struct {
	Port string
}

// Default returns the configuration matching the server's fixed historical behavior.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Server: ServerConfig{
			Port:            "8000",
			ReadTimeout:     10 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Assets: AssetsConfig{
			Dirs: []string{"models", "js"},
		},
		Browser: BrowserConfig{
			Enabled: true,
			Delay:   time.Second,
			Host:    "localhost",
		},
	}
}

// Load builds configuration from defaults, then an optional TOML file named by
// ASSET_SERVER_CONFIG, then the environment. A .env file in the working
// directory is loaded into the environment first without overriding it.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path := getEnv("ASSET_SERVER_CONFIG", ""); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", cfg.LogLevel))
	cfg.Server.Port = getEnv("SERVER_PORT", cfg.Server.Port)
	cfg.Server.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)
	cfg.Assets.Root = getEnv("ASSET_ROOT", cfg.Assets.Root)
	if raw := getEnv("ASSET_DIRS", ""); raw != "" {
		cfg.Assets.Dirs = strings.Split(raw, ",")
	}
	cfg.Browser.Enabled = getEnvBool("OPEN_BROWSER", cfg.Browser.Enabled)
	cfg.Browser.Delay = getEnvDuration("BROWSER_DELAY", cfg.Browser.Delay)
	cfg.Metrics.Port = getEnv("METRICS_PORT", cfg.Metrics.Port)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// fileConfig mirrors Config in the TOML file. Durations are Go duration strings.
type fileConfig struct {
	LogLevel string `toml:"log_level"`
	Server   struct {
		Port            string `toml:"port"`
		ReadTimeout     string `toml:"read_timeout"`
		WriteTimeout    string `toml:"write_timeout"`
		IdleTimeout     string `toml:"idle_timeout"`
		ShutdownTimeout string `toml:"shutdown_timeout"`
	} `toml:"server"`
	Assets struct {
		Root string   `toml:"root"`
		Dirs []string `toml:"dirs"`
	} `toml:"assets"`
	Browser struct {
		Enabled *bool  `toml:"enabled"`
		Delay   string `toml:"delay"`
		Host    string `toml:"host"`
	} `toml:"browser"`
	Metrics struct {
		Port string `toml:"port"`
	} `toml:"metrics"`
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	var file fileConfig
	if err := toml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	c.LogLevel = pick(file.LogLevel, c.LogLevel)
	c.Server.Port = pick(file.Server.Port, c.Server.Port)
	c.Assets.Root = pick(file.Assets.Root, c.Assets.Root)
	c.Browser.Host = pick(file.Browser.Host, c.Browser.Host)
	c.Metrics.Port = pick(file.Metrics.Port, c.Metrics.Port)
	if len(file.Assets.Dirs) > 0 {
		c.Assets.Dirs = file.Assets.Dirs
	}
	if file.Browser.Enabled != nil {
		c.Browser.Enabled = *file.Browser.Enabled
	}

	durations := []struct {
		key    string
		raw    string
		target *time.Duration
	}{
		{"server.read_timeout", file.Server.ReadTimeout, &c.Server.ReadTimeout},
		{"server.write_timeout", file.Server.WriteTimeout, &c.Server.WriteTimeout},
		{"server.idle_timeout", file.Server.IdleTimeout, &c.Server.IdleTimeout},
		{"server.shutdown_timeout", file.Server.ShutdownTimeout, &c.Server.ShutdownTimeout},
		{"browser.delay", file.Browser.Delay, &c.Browser.Delay},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("invalid %s in %s: %w", d.key, path, err)
		}
		*d.target = parsed
	}

	return nil
}

func pick(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

// Validate normalizes asset directories and checks every field.
func (c *Config) Validate() error {
	if err := validatePort("SERVER_PORT", c.Server.Port); err != nil {
		return err
	}
	if c.Metrics.Port != "" {
		if err := validatePort("METRICS_PORT", c.Metrics.Port); err != nil {
			return err
		}
	}

	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	if c.Browser.Delay < 0 {
		return fmt.Errorf("BROWSER_DELAY must not be negative")
	}

	dirs := lo.Uniq(lo.Compact(lo.Map(c.Assets.Dirs, func(dir string, _ int) string {
		return strings.TrimSpace(dir)
	})))
	if len(dirs) == 0 {
		return fmt.Errorf("ASSET_DIRS must name at least one directory")
	}
	for _, dir := range dirs {
		if !filepath.IsLocal(dir) {
			return fmt.Errorf("ASSET_DIRS entry %q must be a relative path inside the asset root", dir)
		}
	}
	c.Assets.Dirs = dirs

	return nil
}

// Addr returns the listen address on all interfaces.
func (c *ServerConfig) Addr() string {
	return ":" + c.Port
}

// URL returns the address the browser is pointed at.
func (c *Config) URL() string {
	return fmt.Sprintf("http://%s:%s", c.Browser.Host, c.Server.Port)
}

func validatePort(key, value string) error {
	port, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	if port < 0 || port > 65535 {
		return fmt.Errorf("%s must be between 0 and 65535", key)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}
