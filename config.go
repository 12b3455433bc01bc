package texsync

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that round-trips through yaml as a string
// ("16ms"), not raw nanoseconds. Plain integers are still accepted on load.
type Duration time.Duration

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("texsync: invalid duration %q: %w", s, ErrInvalidArgument)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("texsync: invalid duration %q: %w", value.Value, ErrInvalidArgument)
	}
	*d = Duration(n)
	return nil
}

// Config holds all editor-core settings.
type Config struct {
	Canvas  CanvasConfig  `yaml:"canvas"`
	Quality QualityConfig `yaml:"quality"`
	Logging LogConfig     `yaml:"logging"`
}

// CanvasConfig holds the raster and texture surface settings.
type CanvasConfig struct {
	// DisplaySize is the fixed display-resolution canvas edge in pixels.
	DisplaySize int `yaml:"display_size"`
	// TextureSize is the initial texture-resolution edge in pixels.
	TextureSize int `yaml:"texture_size"`
	// FrameInterval is the scheduler's batching window.
	FrameInterval Duration `yaml:"frame_interval"`
	// PredicateKeyword marks texture-receiving materials by name substring.
	PredicateKeyword string `yaml:"predicate_keyword"`
	// Filter selects the resampling kernel: "bilinear" or "nearest".
	Filter string `yaml:"filter"`
	// Background is the opaque canvas fill as "#RRGGBB".
	Background string `yaml:"background"`
}

// QualityConfig holds the adaptive texture quality settings.
type QualityConfig struct {
	Ladder     []int   `yaml:"ladder"`
	MinFPS     float64 `yaml:"min_fps"`
	RecoverFPS float64 `yaml:"recover_fps"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
	Console    bool   `yaml:"console"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Canvas: CanvasConfig{
			DisplaySize:      512,
			TextureSize:      1024,
			FrameInterval:    Duration(DefaultFrameInterval),
			PredicateKeyword: DefaultKeyword,
			Filter:           "bilinear",
			Background:       "#FFFFFF",
		},
		Quality: QualityConfig{
			Ladder:     append([]int(nil), DefaultQualityLadder...),
			MinFPS:     30,
			RecoverFPS: 55,
		},
		Logging: LogConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
			Console:    true,
		},
	}
}

// LoadConfig reads a YAML config file over the defaults: fields absent from
// the file keep their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("texsync: loading config from %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("texsync: parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes the config as YAML to the given path, creating parent
// directories as needed.
func (c Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects configurations the core cannot run with. Dimension checks
// follow the same rule as the runtime API: reject, never clamp.
func (c Config) Validate() error {
	if err := validDimensions(c.Canvas.DisplaySize, c.Canvas.DisplaySize); err != nil {
		return fmt.Errorf("texsync: display size: %w", err)
	}
	if err := validDimensions(c.Canvas.TextureSize, c.Canvas.TextureSize); err != nil {
		return fmt.Errorf("texsync: texture size: %w", err)
	}
	if c.Canvas.Filter != "" && c.Canvas.Filter != "bilinear" && c.Canvas.Filter != "nearest" {
		return fmt.Errorf("texsync: unknown filter %q: %w", c.Canvas.Filter, ErrInvalidArgument)
	}
	if c.Canvas.Background != "" {
		if _, err := parseHexColor(c.Canvas.Background); err != nil {
			return err
		}
	}
	for _, size := range c.Quality.Ladder {
		if err := validDimensions(size, size); err != nil {
			return fmt.Errorf("texsync: quality ladder: %w", err)
		}
	}
	return nil
}

// filter maps the config string to a Filter. Unknown values were already
// rejected by Validate; anything else defaults to bilinear.
func (c CanvasConfig) filter() Filter {
	if c.Filter == "nearest" {
		return FilterNearest
	}
	return FilterBilinear
}

// background returns the configured canvas fill. Bad values were already
// rejected by Validate; anything unparseable here falls back to white.
func (c CanvasConfig) background() color.RGBA {
	rgba, err := parseHexColor(c.Background)
	if err != nil {
		return color.RGBA{R: 255, G: 255, B: 255, A: 255}
	}
	return rgba
}

// parseHexColor reads an opaque "#RRGGBB" color.
func parseHexColor(s string) (color.RGBA, error) {
	if len(s) != 7 || s[0] != '#' {
		return color.RGBA{}, fmt.Errorf("texsync: background must be #RRGGBB, got %q: %w", s, ErrInvalidArgument)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(s[1:], "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.RGBA{}, fmt.Errorf("texsync: background must be #RRGGBB, got %q: %w", s, ErrInvalidArgument)
	}
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}
