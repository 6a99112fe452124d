// Package config loads the application configuration from YAML with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/samdwyer/dungeonadventure/internal/logger"
	"github.com/samdwyer/dungeonadventure/internal/rng"
	"github.com/samdwyer/dungeonadventure/internal/telemetry"
	"github.com/samdwyer/dungeonadventure/internal/world"
)

// Config is the top-level application configuration.
type Config struct {
	Dungeon   world.Config     `yaml:"dungeon"`
	Game      GameConfig       `yaml:"game"`
	Log       logger.Config    `yaml:"log"`
	Telemetry telemetry.Config `yaml:"telemetry"`
	Save      SaveConfig       `yaml:"save"`
}

// GameConfig holds gameplay settings.
type GameConfig struct {
	// Seed for dungeon generation. Numeric strings are used as-is, anything
	// else is hashed. Empty means a time-based seed.
	Seed string `yaml:"seed"`

	HeroName string `yaml:"hero_name"`
	HeroHP   int    `yaml:"hero_hp"`

	// Pit damage is rolled uniformly from [MinPitDamage, MaxPitDamage].
	MinPitDamage int `yaml:"min_pit_damage"`
	MaxPitDamage int `yaml:"max_pit_damage"`

	// MonsterChance is the probability that a filler room hosts a monster.
	MonsterChance float64 `yaml:"monster_chance"`

	// Language selects the message catalog.
	Language string `yaml:"language"`
}

// SaveConfig holds save store settings.
type SaveConfig struct {
	Path string `yaml:"path"` // SQLite database file
}

// DefaultConfig returns a Config with the standard dungeon and settings.
func DefaultConfig() *Config {
	return &Config{
		Dungeon: world.DefaultConfig(),
		Game: GameConfig{
			HeroName:      "Hero",
			HeroHP:        100,
			MinPitDamage:  1,
			MaxPitDamage:  20,
			MonsterChance: 0.2,
			Language:      "en",
		},
		Log: logger.DefaultConfig(),
		Telemetry: telemetry.Config{
			Enabled:  false,
			Endpoint: "https://api.honeycomb.io",
			Dataset:  "dungeonadventure",
		},
		Save: SaveConfig{
			Path: "data/saves.db",
		},
	}
}

// Load reads configuration from a YAML file. A missing file yields the
// defaults; a malformed one is an error. Environment overrides are applied
// last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if seed := os.Getenv("DUNGEON_SEED"); seed != "" {
		c.Game.Seed = seed
	}
	if level := os.Getenv("DUNGEON_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if path := os.Getenv("DUNGEON_SAVE_PATH"); path != "" {
		c.Save.Path = path
	}
	if enabled := os.Getenv("DUNGEON_TELEMETRY"); enabled != "" {
		if v, err := strconv.ParseBool(enabled); err == nil {
			c.Telemetry.Enabled = v
		}
	}
}

// Validate checks every section for values the game cannot run with.
func (c *Config) Validate() error {
	if err := c.Dungeon.Validate(); err != nil {
		return fmt.Errorf("dungeon: %w", err)
	}
	g := c.Game
	switch {
	case g.HeroHP <= 0:
		return fmt.Errorf("game: hero_hp must be positive, got %d", g.HeroHP)
	case g.MinPitDamage < 0 || g.MaxPitDamage < g.MinPitDamage:
		return fmt.Errorf("game: pit damage range [%d, %d] is invalid", g.MinPitDamage, g.MaxPitDamage)
	case g.MonsterChance < 0 || g.MonsterChance > 1:
		return fmt.Errorf("game: monster_chance must be within [0, 1], got %f", g.MonsterChance)
	case g.Language == "":
		return errors.New("game: language must be set")
	}
	if c.Save.Path == "" {
		return errors.New("save: path must be set")
	}
	return nil
}

// ResolveSeed turns the configured seed into a generator seed. It reports
// false when no seed is configured.
func (g GameConfig) ResolveSeed() (int64, bool) {
	return ParseSeed(g.Seed)
}

// ParseSeed parses a numeric seed or hashes any other non-empty string.
func ParseSeed(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	return rng.SeedFromString(s), true
}
