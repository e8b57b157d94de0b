package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/beholder/backend/internal/game"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// PluginFileName is the watcher configuration file inside the save path.
const PluginFileName = "Beholder.json"

// Config is the service configuration. It is read once at startup; the
// reloadable watcher rules live in Plugin.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Game   GameConfig   `yaml:"game"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Port      int    `yaml:"port" env:"BEHOLDER_PORT"`
	Host      string `yaml:"host" env:"BEHOLDER_HOST"`
	AuthToken string `yaml:"auth_token" env:"BEHOLDER_AUTH_TOKEN"`
}

// GameConfig mirrors the host settings the watcher depends on.
type GameConfig struct {
	MaxSlots      int    `yaml:"max_slots" env:"BEHOLDER_MAX_SLOTS"`
	ReservedSlots int    `yaml:"reserved_slots" env:"BEHOLDER_RESERVED_SLOTS"`
	SavePath      string `yaml:"save_path" env:"BEHOLDER_SAVE_PATH"`
	BroadcastRGB  []int  `yaml:"broadcast_rgb" env:"BEHOLDER_BROADCAST_RGB" envSeparator:","`
}

type LogConfig struct {
	// Archive compresses a day's detection log once the day is over.
	// Either empty (keep plain text) or "zstd".
	Archive string `yaml:"archive" env:"BEHOLDER_LOG_ARCHIVE"`
}

const ArchiveZstd = "zstd"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 7879,
			Host: "127.0.0.1",
		},
		Game: GameConfig{
			MaxSlots:      8,
			ReservedSlots: 20,
			SavePath:      "tshock",
			BroadcastRGB:  []int{127, 255, 212},
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies
// BEHOLDER_* environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return finish(cfg)
}

// LoadOrDefault is Load, except that a missing file yields the defaults
// (still subject to environment overrides).
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return finish(defaultConfig())
	}
	return cfg, err
}

func finish(cfg *Config) (*Config, error) {
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges that YAML and env decoding cannot express.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Game.MaxSlots <= 0 {
		return fmt.Errorf("game.max_slots must be positive, got %d", c.Game.MaxSlots)
	}
	if c.Game.ReservedSlots < 0 {
		return fmt.Errorf("game.reserved_slots must not be negative, got %d", c.Game.ReservedSlots)
	}
	if len(c.Game.BroadcastRGB) != 3 {
		return fmt.Errorf("game.broadcast_rgb needs 3 components, got %d", len(c.Game.BroadcastRGB))
	}
	for _, v := range c.Game.BroadcastRGB {
		if v < 0 || v > 255 {
			return fmt.Errorf("game.broadcast_rgb component %d out of range", v)
		}
	}
	if c.Log.Archive != "" && c.Log.Archive != ArchiveZstd {
		return fmt.Errorf("log.archive %q not supported (use %q or leave empty)", c.Log.Archive, ArchiveZstd)
	}
	return nil
}

// Slots is the total number of connection slots the host can hand out.
func (c *Config) Slots() int {
	return c.Game.MaxSlots + c.Game.ReservedSlots
}

// BroadcastColor is the host's highlight color for server messages.
func (c *Config) BroadcastColor() game.Color {
	rgb := c.Game.BroadcastRGB
	return game.Color{R: uint8(rgb[0]), G: uint8(rgb[1]), B: uint8(rgb[2])}
}

// PluginPath is where the watcher rules file lives.
func (c *Config) PluginPath() string {
	return filepath.Join(c.Game.SavePath, PluginFileName)
}
