package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 3, cfg.Analysis.ClusterCount)
	assert.Equal(t, uint64(42), cfg.Analysis.Seed)
	assert.Equal(t, []string{"sharpness", "brightness"}, cfg.Analysis.Metrics)
	assert.Equal(t, "mp4v", cfg.FFmpeg.Tag)
}

func TestPresets(t *testing.T) {
	lap, err := Preset(PresetLaplacian)
	require.NoError(t, err)
	assert.Equal(t, []string{"sharpness", "brightness"}, lap.Metrics)
	assert.Equal(t, "sharpness", lap.RankingColumn)
	assert.Equal(t, "lower", lap.RankingDirection)

	brisque, err := Preset("BRISQUE")
	require.NoError(t, err)
	assert.Equal(t, []string{"sharpness", "brightness", "perceptual"}, brisque.Metrics)
	assert.Equal(t, "perceptual", brisque.RankingColumn)
	assert.Equal(t, "higher", brisque.RankingDirection)

	_, err = Preset("nope")
	assert.Error(t, err)
}

func TestApplyPresetKeepsClustering(t *testing.T) {
	cfg := Default()
	cfg.Analysis.ClusterCount = 5
	cfg.Analysis.Seed = 7

	require.NoError(t, cfg.ApplyPreset(PresetBRISQUE))
	assert.Equal(t, 5, cfg.Analysis.ClusterCount)
	assert.Equal(t, uint64(7), cfg.Analysis.Seed)
	assert.Equal(t, "perceptual", cfg.Analysis.RankingColumn)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AnalysisConfig)
	}{
		{"zero clusters", func(a *AnalysisConfig) { a.ClusterCount = 0 }},
		{"no metrics", func(a *AnalysisConfig) { a.Metrics = nil }},
		{"unknown metric", func(a *AnalysisConfig) { a.Metrics = []string{"sharpness", "contrast"} }},
		{"duplicate metric", func(a *AnalysisConfig) { a.Metrics = []string{"sharpness", "Sharpness"} }},
		{"ranking column missing", func(a *AnalysisConfig) { a.RankingColumn = "perceptual" }},
		{"bad direction", func(a *AnalysisConfig) { a.RankingDirection = "sideways" }},
		{"negative restarts", func(a *AnalysisConfig) { a.Restarts = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := defaultAnalysis()
			tt.mutate(&a)
			assert.Error(t, a.Validate())
		})
	}
}

func TestValidatePerceptualScorer(t *testing.T) {
	cfg := Default()
	cfg.Perceptual.Scorer = "composite"
	assert.NoError(t, cfg.Validate())

	cfg.Perceptual.Scorer = "clip"
	assert.Error(t, cfg.Validate())
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadOverridesAndKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "framequality.yaml")
	data := []byte(`
analysis:
  cluster_count: 4
  metrics: [sharpness, perceptual]
  ranking_column: perceptual
  ranking_direction: higher
ffmpeg:
  threads: 2
`)
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Analysis.ClusterCount)
	assert.Equal(t, []string{"sharpness", "perceptual"}, cfg.Analysis.Metrics)
	assert.Equal(t, 2, cfg.FFmpeg.Threads)
	// untouched keys keep their defaults
	assert.Equal(t, uint64(42), cfg.Analysis.Seed)
	assert.Equal(t, "mpeg4", cfg.FFmpeg.Codec)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("analysis:\n  ranking_direction: up\n"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	require.NoError(t, cfg.ApplyPreset(PresetBRISQUE))
	cfg.Report.JSON = "run.json"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestContextHelpers(t *testing.T) {
	assert.Equal(t, Default(), FromContext(context.Background()))

	cfg := Default()
	cfg.Analysis.ClusterCount = 9
	ctx := WithConfig(context.Background(), cfg)
	assert.Same(t, cfg, FromContext(ctx))
}
