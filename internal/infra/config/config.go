// Package config provides configuration loading from YAML files.
package config

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Surface types.
const (
	SurfaceBrowser = "browser"
	SurfaceMPV     = "mpv"
)

// Config represents the application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Player  PlayerConfig  `yaml:"player"`
	Surface SurfaceConfig `yaml:"surface"`
	Catalog CatalogConfig `yaml:"catalog"`
	API     APIConfig     `yaml:"api"`
	MPRIS   MPRISConfig   `yaml:"mpris"`
	Artwork ArtworkConfig `yaml:"artwork"`
	TUI     TUIConfig     `yaml:"tui"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr  string      `yaml:"addr" default:":8080"`
	Hooks HooksConfig `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// PlayerConfig represents where audio and artwork assets live.
type PlayerConfig struct {
	MusicDir    string `yaml:"music_dir" default:"music"`
	AudioExt    string `yaml:"audio_ext" default:"mp3" validate:"required,excludes=/"`
	ImageDir    string `yaml:"image_dir"` // Base for relative track images; empty means working directory
	EventBuffer int    `yaml:"event_buffer" default:"16" validate:"gte=1,lte=1024"`
}

// SurfaceConfig selects the playback surface.
type SurfaceConfig struct {
	Type     string         `yaml:"type" default:"browser" validate:"oneof=browser mpv"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// CatalogConfig represents the track catalog source.
// Tracks wins over M3U; with neither, the built-in catalog is used.
type CatalogConfig struct {
	M3U          string        `yaml:"m3u"`
	FillFromTags bool          `yaml:"fill_from_tags"`
	Tracks       []TrackConfig `yaml:"tracks" validate:"dive"`
}

// TrackConfig represents a single catalog entry.
type TrackConfig struct {
	ID     string `yaml:"id" validate:"required"`
	Title  string `yaml:"title"`
	Artist string `yaml:"artist"`
	Image  string `yaml:"image"`
}

// APIConfig represents control API configuration.
type APIConfig struct {
	Token string `yaml:"token"` // Empty disables token auth
}

// MPRISConfig represents D-Bus media player integration.
type MPRISConfig struct {
	Enabled bool   `yaml:"enabled"`
	Name    string `yaml:"name" default:"tracklist" validate:"alphanum"`
}

// ArtworkConfig represents artwork scaling.
type ArtworkConfig struct {
	Width int `yaml:"width" default:"300" validate:"gte=16,lte=2048"`
}

// TUIConfig represents terminal UI styling.
type TUIConfig struct {
	Color string `yaml:"color" default:"2"` // lipgloss color for the progress bar and markers
}

// Default returns the configuration used when no file is given.
func Default() (*Config, error) {
	var cfg Config
	return finalize(&cfg)
}

// Load loads configuration from a YAML file. An empty path yields Default.
// Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	return finalize(&cfg)
}

func finalize(cfg *Config) (*Config, error) {
	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("TRACKLIST_API_TOKEN"); v != "" {
		c.API.Token = v
	}
	if v := os.Getenv("TRACKLIST_MUSIC_DIR"); v != "" {
		c.Player.MusicDir = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	seen := make(map[string]bool, len(c.Catalog.Tracks))
	for _, t := range c.Catalog.Tracks {
		if seen[t.ID] {
			return errors.Newf("catalog.tracks: duplicate id %q", t.ID)
		}
		seen[t.ID] = true
	}

	return nil
}
