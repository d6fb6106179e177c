package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	toml "github.com/pelletier/go-toml/v2"
)

type Config struct {
	Database DatabaseConfig `toml:"database"`
	Seed     SeedConfig     `toml:"seed"`
	UI       UIConfig       `toml:"ui"`
	Server   ServerConfig   `toml:"server"`
	Cache    CacheConfig    `toml:"cache"`
	Logging  LoggingConfig  `toml:"logging"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
	// InMemory keeps the board state for the current session only.
	InMemory bool `toml:"in_memory"`
}

// SeedConfig controls first-run seeding. An empty Path uses the embedded fixture.
type SeedConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type UIConfig struct {
	DarkMode      bool `toml:"dark_mode"`
	SidePanelOpen bool `toml:"side_panel_open"`
	ConfirmDelete bool `toml:"confirm_delete"`
}

type ServerConfig struct {
	HTTPBind    string `toml:"http_bind"`
	APIEndpoint string `toml:"api_endpoint"`
	MCPEndpoint string `toml:"mcp_endpoint"`
}

// CacheConfig configures the optional Redis read-through cache.
type CacheConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	DB         int    `toml:"db"`
	Channel    string `toml:"channel"`
	TTLSeconds int    `toml:"ttl_seconds"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// TTL returns the cache entry lifetime. Zero disables caching of state reads.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

func Default(dbPath string) Config {
	return Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Seed: SeedConfig{
			Enabled: true,
		},
		UI: UIConfig{
			DarkMode:      false,
			SidePanelOpen: true,
			ConfirmDelete: true,
		},
		Server: ServerConfig{
			HTTPBind:    "127.0.0.1:8080",
			APIEndpoint: "/api/v1",
			MCPEndpoint: "/mcp",
		},
		Cache: CacheConfig{
			Enabled:    false,
			Addr:       "127.0.0.1:6379",
			Channel:    "tavla:changes",
			TTLSeconds: 300,
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     ".tavla/log",
			},
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if !c.Database.InMemory && strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}

	if _, err := log.ParseLevel(strings.TrimSpace(c.Logging.Level)); err != nil {
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}

	if bind := strings.TrimSpace(c.Server.HTTPBind); bind != "" {
		if _, _, err := net.SplitHostPort(bind); err != nil {
			return fmt.Errorf("invalid server.http_bind %q: %w", bind, err)
		}
	}
	api := "/" + strings.Trim(strings.TrimSpace(c.Server.APIEndpoint), "/")
	mcp := "/" + strings.Trim(strings.TrimSpace(c.Server.MCPEndpoint), "/")
	if api != "/" && api == mcp {
		return fmt.Errorf("server.api_endpoint and server.mcp_endpoint must differ: %q", api)
	}

	if c.Cache.Enabled {
		if strings.TrimSpace(c.Cache.Addr) == "" {
			return errors.New("cache.addr is required when cache.enabled = true")
		}
		if strings.TrimSpace(c.Cache.Channel) == "" {
			return errors.New("cache.channel is required when cache.enabled = true")
		}
	}
	if c.Cache.DB < 0 {
		return fmt.Errorf("cache.db must be >= 0")
	}
	if c.Cache.TTLSeconds < 0 {
		return fmt.Errorf("cache.ttl_seconds must be >= 0")
	}

	return nil
}

// SeedPayload returns the configured seed file contents, or nil when Path is empty.
func (s SeedConfig) SeedPayload() ([]byte, error) {
	path := strings.TrimSpace(s.Path)
	if path == "" {
		return nil, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return content, nil
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
