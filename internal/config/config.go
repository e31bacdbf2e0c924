// Package config loads viewer settings from a JSON file with defaults
// merged in, then applies PANO_* environment overrides.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Settings holds the tunables for the tile provider and its sources.
type Settings struct {
	// Pyramid source URL or blob key templates with {z}/{x}/{y}
	// placeholders. Color is mandatory; depth and intensity are
	// optional per deployment.
	ColorURL     string `json:"colorURL" env:"PANO_COLOR_URL"`
	DepthURL     string `json:"depthURL,omitempty" env:"PANO_DEPTH_URL"`
	IntensityURL string `json:"intensityURL,omitempty" env:"PANO_INTENSITY_URL"`

	// Tile geometry.
	TileWidth  uint32 `json:"tileWidth" env:"PANO_TILE_WIDTH"`
	TileHeight uint32 `json:"tileHeight" env:"PANO_TILE_HEIGHT"`
	MinLevel   uint32 `json:"minLevel" env:"PANO_MIN_LEVEL"`
	MaxLevel   uint32 `json:"maxLevel" env:"PANO_MAX_LEVEL"`

	// Loading behavior.
	Concurrency   int  `json:"concurrency" env:"PANO_CONCURRENCY"`
	CacheCapacity int  `json:"cacheCapacity" env:"PANO_CACHE_CAPACITY"`
	DecodeLimit   int  `json:"decodeLimit" env:"PANO_DECODE_LIMIT"`
	PayloadCache  int  `json:"payloadCache" env:"PANO_PAYLOAD_CACHE"`
	ShowIntensity bool `json:"showIntensity" env:"PANO_SHOW_INTENSITY"`

	LogLevel string `json:"logLevel" env:"PANO_LOG_LEVEL"`
}

// DefaultSettings returns the defaults applied when the settings file
// is missing fields or absent entirely.
func DefaultSettings() *Settings {
	return &Settings{
		TileWidth:     256,
		TileHeight:    256,
		MinLevel:      0,
		MaxLevel:      12,
		Concurrency:   4,
		CacheCapacity: 128,
		DecodeLimit:   4,
		PayloadCache:  512,
		LogLevel:      "info",
	}
}

// SettingsPath returns the settings file location, creating its
// directory.
func SettingsPath() string {
	homeDir, _ := os.UserHomeDir()
	baseDir := filepath.Join(homeDir, ".panorama-viewer")
	os.MkdirAll(baseDir, 0755)
	return filepath.Join(baseDir, "settings.json")
}

// Load reads settings from path, merges defaults for missing fields
// and applies environment overrides. A missing file yields defaults
// plus overrides.
func Load(path string) (*Settings, error) {
	settings := DefaultSettings()

	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, settings); err != nil {
			return nil, fmt.Errorf("failed to parse settings: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	mergeDefaults(settings)

	if err := env.Parse(settings); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// mergeDefaults fills zero-valued fields that have non-zero defaults.
func mergeDefaults(s *Settings) {
	defaults := DefaultSettings()
	if s.TileWidth == 0 {
		s.TileWidth = defaults.TileWidth
	}
	if s.TileHeight == 0 {
		s.TileHeight = defaults.TileHeight
	}
	if s.MaxLevel == 0 {
		s.MaxLevel = defaults.MaxLevel
	}
	if s.Concurrency == 0 {
		s.Concurrency = defaults.Concurrency
	}
	if s.CacheCapacity == 0 {
		s.CacheCapacity = defaults.CacheCapacity
	}
	if s.DecodeLimit == 0 {
		s.DecodeLimit = defaults.DecodeLimit
	}
	if s.PayloadCache == 0 {
		s.PayloadCache = defaults.PayloadCache
	}
	if s.LogLevel == "" {
		s.LogLevel = defaults.LogLevel
	}
}

// Validate checks cross-field constraints.
func (s *Settings) Validate() error {
	if s.MinLevel > s.MaxLevel {
		return fmt.Errorf("minLevel %d exceeds maxLevel %d", s.MinLevel, s.MaxLevel)
	}
	if s.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", s.Concurrency)
	}
	if s.CacheCapacity < 1 {
		return fmt.Errorf("cacheCapacity must be at least 1, got %d", s.CacheCapacity)
	}
	return nil
}

// Save writes settings to path as indented JSON.
func Save(path string, settings *Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}
