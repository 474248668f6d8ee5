package pipeline

import (
	"context"
	"os/exec"
	"path/filepath"
	"slices"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monikutee/video-frames-analysis/internal/ffmpeg"
	"github.com/monikutee/video-frames-analysis/internal/frames"
)

func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not available, skipping test")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not available, skipping test")
	}
}

// writeClip encodes fs into an mp4 at the given rate
func writeClip(t *testing.T, e *ffmpeg.Executor, fs []*frames.Frame, fps float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	enc, err := e.NewEncoder(context.Background(), ffmpeg.EncodeOptions{
		Output: path,
		Width:  fs[0].Width,
		Height: fs[0].Height,
		FPS:    fps,
	})
	require.NoError(t, err)
	for _, f := range fs {
		require.NoError(t, enc.WriteFrame(f))
	}
	require.NoError(t, enc.Close())
	return path
}

// bordered reports whether the middle of the top and left edges is red
func bordered(f *frames.Frame) bool {
	red := func(x, y int) bool {
		r, g, b := f.RGB(x, y)
		return r > 150 && g < 100 && b < 100
	}
	return red(f.Width/2, 0) && red(0, f.Height/2)
}

func TestAnalyzeWithFFmpeg(t *testing.T) {
	skipIfNoFFmpeg(t)

	e, err := ffmpeg.New(zerolog.Nop(), ffmpeg.Options{})
	require.NoError(t, err)

	input := writeClip(t, e, tenFrames(), 30)
	output := filepath.Join(t.TempDir(), "flagged.mp4")

	p, err := New(zerolog.Nop(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	res, err := p.Analyze(context.Background(), input, output)
	require.NoError(t, err)
	assert.Equal(t, StageDone, res.Stage)
	require.Equal(t, 10, res.FrameCount)
	assert.InDelta(t, 30.0, res.FPS, 0.01)

	require.NotEmpty(t, res.Flagged)
	for _, i := range res.Flagged {
		assert.GreaterOrEqual(t, i, 5, "sharp frame %d flagged", i)
	}

	decoded, err := e.DecodeFrames(context.Background(), output, nil)
	require.NoError(t, err)
	require.Len(t, decoded.Frames, 10)
	assert.Equal(t, 64, decoded.Info.Width)
	assert.Equal(t, 48, decoded.Info.Height)

	for i, f := range decoded.Frames {
		want := slices.Contains(res.Flagged, i)
		assert.Equal(t, want, bordered(f), "frame %d border", i)
	}
}
