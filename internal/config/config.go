package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment overrides, e.g. KILTER_LAYOUT_ID.
const EnvPrefix = "KILTER_"

// maxFileSize bounds the config file we are willing to parse.
const maxFileSize = 1 * 1024 * 1024 // 1MB

// ReportConfig holds the knobs of one report run. Keys are flat so that
// file keys, struct tags and environment names line up one to one.
type ReportConfig struct {
	// LayoutID selects the board layout (1 = Kilter Board Original).
	LayoutID int `koanf:"layout_id"`

	OutputDir string `koanf:"output_dir"`

	// BoardImage is an optional PNG of the board drawn under board heat maps.
	BoardImage string `koanf:"board_image"`

	// SmoothingSigma is the standard deviation, in grid cells, of the
	// Gaussian used for the smoothed hold heat maps.
	SmoothingSigma float64 `koanf:"smoothing_sigma"`

	// Stratified also aggregates hold usage per grade and angle bucket.
	Stratified bool `koanf:"stratified"`

	PNG        bool `koanf:"png"`
	HTML       bool `koanf:"html"`
	TextTables bool `koanf:"text_tables"`

	// ImageInches is the side length of square board images.
	ImageInches float64 `koanf:"image_inches"`

	// LeaderboardRows is the number of rows drawn in leaderboard images;
	// ConsoleTop is the number echoed to the log.
	LeaderboardRows int `koanf:"leaderboard_rows"`
	ConsoleTop      int `koanf:"console_top"`

	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`

	// MetricsFile, when set, receives run metrics in the node_exporter
	// textfile format.
	MetricsFile string `koanf:"metrics_file"`
}

// Default returns the configuration used when no file or environment
// override is given.
func Default() *ReportConfig {
	return &ReportConfig{
		LayoutID:        1,
		OutputDir:       "output",
		SmoothingSigma:  2,
		PNG:             true,
		HTML:            true,
		TextTables:      true,
		ImageInches:     20,
		LeaderboardRows: 20,
		ConsoleTop:      10,
		LogLevel:        "info",
		LogFormat:       "console",
	}
}

// Load layers defaults, an optional YAML or JSON file and KILTER_*
// environment variables (lowest to highest precedence), then validates the
// result.
func Load(path string) (*ReportConfig, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		cleanPath, err := checkConfigFile(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(file.Provider(cleanPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg := &ReportConfig{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// checkConfigFile validates the extension and size of a config file.
func checkConfigFile(path string) (string, error) {
	cleanPath := filepath.Clean(path)
	switch ext := filepath.Ext(cleanPath); ext {
	case ".yaml", ".yml", ".json":
	default:
		return "", fmt.Errorf("config file must have .yaml, .yml or .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return "", fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return "", fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}
	return cleanPath, nil
}

// Validate checks that the configuration values are usable.
func (c *ReportConfig) Validate() error {
	if c.LayoutID <= 0 {
		return fmt.Errorf("layout_id must be positive, got %d", c.LayoutID)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir must not be empty")
	}
	if c.SmoothingSigma < 0 {
		return fmt.Errorf("smoothing_sigma must be non-negative, got %f", c.SmoothingSigma)
	}
	if c.ImageInches <= 0 {
		return fmt.Errorf("image_inches must be positive, got %f", c.ImageInches)
	}
	if c.LeaderboardRows < 0 {
		return fmt.Errorf("leaderboard_rows must be non-negative, got %d", c.LeaderboardRows)
	}
	if c.ConsoleTop < 0 {
		return fmt.Errorf("console_top must be non-negative, got %d", c.ConsoleTop)
	}
	switch strings.ToLower(c.LogFormat) {
	case "console", "json":
	default:
		return fmt.Errorf("log_format must be console or json, got %q", c.LogFormat)
	}
	if !c.PNG && !c.HTML && !c.TextTables {
		return fmt.Errorf("at least one of png, html or text_tables must be enabled")
	}
	return nil
}
