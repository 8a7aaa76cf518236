// Package config handles tool configuration loading and management.
package config

import (
	"errors"
	"fmt"
)

// Config holds all settings.
type Config struct {
	Disc    DiscConfig    `yaml:"disc"`
	Maps    MapsConfig    `yaml:"maps"`
	Export  ExportConfig  `yaml:"export"`
	Logging LoggingConfig `yaml:"logging"`
}

// DiscConfig holds the disc image location.
type DiscConfig struct {
	Image string `yaml:"image"` // Path to the raw BIN image
}

// MapsConfig controls how map numbers resolve to GNS sectors.
type MapsConfig struct {
	Default   int        `yaml:"default"`   // Map used when none is given
	Directory string     `yaml:"directory"` // ISO directory holding MAPnnn.GNS
	Table     []MapEntry `yaml:"table"`     // Explicit table; skips the ISO scan when set
}

// MapEntry is one row of an explicit map table.
type MapEntry struct {
	Map    int    `yaml:"map"`
	Sector int    `yaml:"sector"`
	Name   string `yaml:"name,omitempty"`
}

// ExportConfig holds image export settings.
type ExportConfig struct {
	Dir          string `yaml:"dir"`
	Format       string `yaml:"format"`        // png, webp or tga
	PaletteScale int    `yaml:"palette_scale"` // Upscale factor for the 16×16 palette
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Disc: DiscConfig{
			Image: "fft.bin",
		},
		Maps: MapsConfig{
			Default:   49,
			Directory: "MAP",
		},
		Export: ExportConfig{
			Dir:          "out",
			Format:       "png",
			PaletteScale: 16,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Config validation errors.
var (
	ErrExportFormat = errors.New("unsupported export format")
	ErrPaletteScale = errors.New("palette scale must be positive")
	ErrMapEntry     = errors.New("invalid map table entry")
)

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.Export.Format {
	case "png", "webp", "tga":
	default:
		return fmt.Errorf("%w: %q", ErrExportFormat, c.Export.Format)
	}
	if c.Export.PaletteScale <= 0 {
		return fmt.Errorf("%w: %d", ErrPaletteScale, c.Export.PaletteScale)
	}
	for _, e := range c.Maps.Table {
		if e.Map <= 0 || e.Sector <= 0 {
			return fmt.Errorf("%w: map=%d sector=%d", ErrMapEntry, e.Map, e.Sector)
		}
	}
	return nil
}
