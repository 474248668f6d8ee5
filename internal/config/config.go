package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/monikutee/video-frames-analysis/internal/metrics"
	"github.com/monikutee/video-frames-analysis/internal/rank"
)

type contextKey string

const configKey contextKey = "config"

// Preset names
const (
	PresetLaplacian = "laplacian"
	PresetBRISQUE   = "brisque"
)

// Config holds all application configuration
type Config struct {
	// Clustering and ranking
	Analysis AnalysisConfig `yaml:"analysis"`

	// Perceptual scorer tuning
	Perceptual PerceptualConfig `yaml:"perceptual"`

	// FFmpeg settings
	FFmpeg FFmpegConfig `yaml:"ffmpeg"`

	// Side outputs
	Plot   PlotConfig   `yaml:"plot"`
	Report ReportConfig `yaml:"report"`
}

// AnalysisConfig selects metrics, the cluster count and how the worst
// cluster is chosen.
type AnalysisConfig struct {
	ClusterCount     int      `yaml:"cluster_count"`
	Metrics          []string `yaml:"metrics"`
	RankingColumn    string   `yaml:"ranking_column"`
	RankingDirection string   `yaml:"ranking_direction"`
	Seed             uint64   `yaml:"seed"`
	MaxIterations    int      `yaml:"max_iterations"`
	Restarts         int      `yaml:"restarts"`
}

type PerceptualConfig struct {
	Scorer  string `yaml:"scorer"`
	MaxSide uint   `yaml:"max_side"`
	Window  int    `yaml:"window"`
}

type FFmpegConfig struct {
	BinaryPath string `yaml:"binary_path"`
	ProbePath  string `yaml:"probe_path"`
	Threads    int    `yaml:"threads"`
	Codec      string `yaml:"codec"`
	Tag        string `yaml:"tag"`
}

type PlotConfig struct {
	PNG  string `yaml:"png"`
	HTML string `yaml:"html"`
}

type ReportConfig struct {
	JSON        string `yaml:"json"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// Load reads configuration from file or returns defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if path == "" {
		path = findConfigFile()
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate reports the first inconsistency in the settings.
func (c *Config) Validate() error {
	if err := c.Analysis.Validate(); err != nil {
		return err
	}
	if c.Perceptual.Scorer != "" && !slices.Contains(metrics.ScorerKinds(), c.Perceptual.Scorer) {
		return fmt.Errorf("unknown perceptual scorer %q (available: %s)",
			c.Perceptual.Scorer, strings.Join(metrics.ScorerKinds(), ", "))
	}
	return nil
}

// Validate checks the analysis settings against the known metrics.
func (a AnalysisConfig) Validate() error {
	if a.ClusterCount < 1 {
		return fmt.Errorf("cluster_count must be at least 1, got %d", a.ClusterCount)
	}
	if len(a.Metrics) == 0 {
		return fmt.Errorf("at least one metric is required")
	}

	seen := make(map[string]bool, len(a.Metrics))
	for _, m := range a.Metrics {
		id := strings.ToLower(strings.TrimSpace(m))
		if !slices.Contains(metrics.Names(), id) {
			return fmt.Errorf("unknown metric %q (available: %s)", m, strings.Join(metrics.Names(), ", "))
		}
		if seen[id] {
			return fmt.Errorf("metric %q listed twice", m)
		}
		seen[id] = true
	}

	if !seen[strings.ToLower(strings.TrimSpace(a.RankingColumn))] {
		return fmt.Errorf("ranking_column %q is not one of the configured metrics", a.RankingColumn)
	}
	if _, err := rank.ParseDirection(a.RankingDirection); err != nil {
		return err
	}
	if a.MaxIterations < 0 || a.Restarts < 0 {
		return fmt.Errorf("max_iterations and restarts must not be negative")
	}
	return nil
}

// Preset returns one of the two built-in analysis variants.
func Preset(name string) (AnalysisConfig, error) {
	a := defaultAnalysis()
	switch strings.ToLower(name) {
	case PresetLaplacian:
	case PresetBRISQUE:
		a.Metrics = []string{metrics.Sharpness, metrics.Brightness, metrics.Perceptual}
		a.RankingColumn = metrics.Perceptual
		a.RankingDirection = string(rank.HigherIsWorse)
	default:
		return AnalysisConfig{}, fmt.Errorf("unknown preset %q (available: %s, %s)", name, PresetLaplacian, PresetBRISQUE)
	}
	return a, nil
}

// ApplyPreset replaces the metric selection and ranking rule, keeping the
// clustering parameters already configured.
func (c *Config) ApplyPreset(name string) error {
	p, err := Preset(name)
	if err != nil {
		return err
	}
	c.Analysis.Metrics = p.Metrics
	c.Analysis.RankingColumn = p.RankingColumn
	c.Analysis.RankingDirection = p.RankingDirection
	return nil
}

// Default returns the laplacian preset with stock ffmpeg settings.
func Default() *Config {
	return &Config{
		Analysis: defaultAnalysis(),
		Perceptual: PerceptualConfig{
			Scorer:  metrics.ScorerNaturalness,
			MaxSide: 384,
			Window:  7,
		},
		FFmpeg: FFmpegConfig{
			BinaryPath: "ffmpeg",
			ProbePath:  "ffprobe",
			Threads:    0,
			Codec:      "mpeg4",
			Tag:        "mp4v",
		},
	}
}

func defaultAnalysis() AnalysisConfig {
	return AnalysisConfig{
		ClusterCount:     3,
		Metrics:          []string{metrics.Sharpness, metrics.Brightness},
		RankingColumn:    metrics.Sharpness,
		RankingDirection: string(rank.LowerIsWorse),
		Seed:             42,
		MaxIterations:    300,
		Restarts:         10,
	}
}

func findConfigFile() string {
	candidates := []string{
		"./framequality.yaml",
		"./framequality.yml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".framequality", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return Default()
}
