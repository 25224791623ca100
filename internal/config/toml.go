// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Game   GameConfig   `toml:"game"`
	Server ServerConfig `toml:"server"`
	Log    LogConfig    `toml:"log"`
}

// GameConfig maps play-related settings.
type GameConfig struct {
	Cards      *int      `toml:"cards"`
	Seed       *int64    `toml:"seed"`
	APIURL     *string   `toml:"api-url"`
	APITimeout *Duration `toml:"api-timeout"`
	APIToken   *string   `toml:"api-token"`
	Submit     *bool     `toml:"submit"`
	Catalog    *string   `toml:"catalog"`
	User       *string   `toml:"user"`
}

// ServerConfig maps the results backend settings.
type ServerConfig struct {
	Listen      *string   `toml:"listen"`
	JWTSecret   *string   `toml:"jwt-secret"`
	TokenTTL    *Duration `toml:"token-ttl"`
	CORSOrigins []string  `toml:"cors-origins"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level *string `toml:"level"`
	File  *string `toml:"file"`
}

// Duration decodes TOML strings such as "5s" or "24h".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
