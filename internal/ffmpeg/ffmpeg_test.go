package ffmpeg

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/monikutee/video-frames-analysis/internal/frames"
)

// skipIfNoFFmpeg skips the test if ffmpeg is not available
func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH - install with: brew install ffmpeg")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH - install with: brew install ffmpeg")
	}
}

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	e, err := New(logger, Options{Threads: 2})
	if err != nil {
		t.Fatalf("failed to create executor: %v", err)
	}
	return e
}

// makeTestVideo renders a synthetic clip with ffmpeg's lavfi test source
func makeTestVideo(t *testing.T, e *Executor, n int, size string, fps string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "src.mp4")
	p, err := e.start(context.Background(), RunOptions{
		Args: []string{
			"-f", "lavfi",
			"-i", "testsrc=size=" + size + ":rate=" + fps,
			"-frames:v", strconv.Itoa(n),
			"-c:v", DefaultVideoCodec,
			"-pix_fmt", DefaultPixFmt,
			path,
		},
	})
	if err == nil {
		err = p.wait()
	}
	if err != nil {
		t.Fatalf("failed to render test video: %v", err)
	}
	return path
}

func TestExecutorCreation(t *testing.T) {
	skipIfNoFFmpeg(t)

	e := newTestExecutor(t)
	if e.ffmpegPath == "" {
		t.Error("ffmpeg path is empty")
	}
	if e.ffprobePath == "" {
		t.Error("ffprobe path is empty")
	}

	t.Logf("ffmpeg: %s", e.ffmpegPath)
	t.Logf("ffprobe: %s", e.ffprobePath)
}

func TestExecutorMissingBinary(t *testing.T) {
	_, err := New(zerolog.Nop(), Options{FFmpegPath: "/nonexistent/ffmpeg"})
	if err == nil {
		t.Fatal("expected error for missing ffmpeg binary")
	}
}

func TestProbeVideo(t *testing.T) {
	skipIfNoFFmpeg(t)

	e := newTestExecutor(t)
	path := makeTestVideo(t, e, 12, "320x240", "24")

	start := time.Now()
	info, err := e.ProbeVideo(context.Background(), path)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("ProbeVideo failed: %v", err)
	}

	if info.Width != 320 {
		t.Errorf("expected width 320, got %d", info.Width)
	}
	if info.Height != 240 {
		t.Errorf("expected height 240, got %d", info.Height)
	}
	if info.FPS < 23.9 || info.FPS > 24.1 {
		t.Errorf("expected 24 fps, got %.3f", info.FPS)
	}

	t.Logf("Video info: %dx%d, %.2f fps, duration: %v (probed in %v)",
		info.Width, info.Height, info.FPS, info.Duration, elapsed)
}

func TestProbeVideoInvalidFile(t *testing.T) {
	skipIfNoFFmpeg(t)

	e := newTestExecutor(t)

	_, err := e.ProbeVideo(context.Background(), "/nonexistent/video.mp4")
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("expected ErrSourceUnavailable, got %v", err)
	}

	garbage := filepath.Join(t.TempDir(), "garbage.mp4")
	if err := os.WriteFile(garbage, []byte("not a video"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err = e.ProbeVideo(context.Background(), garbage)
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("expected ErrSourceUnavailable for garbage input, got %v", err)
	}
	t.Logf("Error (expected): %v", err)
}

func TestDecodeFrames(t *testing.T) {
	skipIfNoFFmpeg(t)

	e := newTestExecutor(t)
	path := makeTestVideo(t, e, 10, "64x48", "10")

	var calls int
	decoded, err := e.DecodeFrames(context.Background(), path, func(done, total int) {
		calls++
		if done != calls {
			t.Errorf("progress out of order: got %d, want %d", done, calls)
		}
	})
	if err != nil {
		t.Fatalf("DecodeFrames failed: %v", err)
	}

	if len(decoded.Frames) != 10 {
		t.Fatalf("expected 10 frames, got %d", len(decoded.Frames))
	}
	if calls != 10 {
		t.Errorf("expected 10 progress calls, got %d", calls)
	}
	if decoded.FPS < 9.9 || decoded.FPS > 10.1 {
		t.Errorf("expected 10 fps, got %.3f", decoded.FPS)
	}
	for i, f := range decoded.Frames {
		if f.Index != i {
			t.Errorf("frame %d has index %d", i, f.Index)
		}
		if f.Width != 64 || f.Height != 48 {
			t.Errorf("frame %d is %dx%d", i, f.Width, f.Height)
		}
		if err := f.Validate(); err != nil {
			t.Errorf("frame %d invalid: %v", i, err)
		}
	}
}

func TestDecodeFramesMissingInput(t *testing.T) {
	skipIfNoFFmpeg(t)

	e := newTestExecutor(t)
	_, err := e.DecodeFrames(context.Background(), filepath.Join(t.TempDir(), "missing.mp4"), nil)
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestDecodeFramesTruncated(t *testing.T) {
	skipIfNoFFmpeg(t)

	e := newTestExecutor(t)
	src := makeTestVideo(t, e, 30, "64x48", "10")

	data, err := os.ReadFile(src)
	if err != nil {
		t.Fatal(err)
	}
	truncated := filepath.Join(t.TempDir(), "truncated.mp4")
	if err := os.WriteFile(truncated, data[:len(data)*2/3], 0644); err != nil {
		t.Fatal(err)
	}

	decoded, err := e.DecodeFrames(context.Background(), truncated, nil)
	if err != nil {
		// mp4 keeps its index at the end, so a cut file may not open at all
		if !errors.Is(err, ErrSourceUnavailable) {
			t.Fatalf("unexpected error: %v", err)
		}
		t.Logf("truncated file unreadable (expected for some muxers): %v", err)
		return
	}
	if len(decoded.Frames) > 30 {
		t.Errorf("expected at most 30 frames, got %d", len(decoded.Frames))
	}
	t.Logf("decoded %d frames from truncated file", len(decoded.Frames))
}

func TestEncoderRoundTrip(t *testing.T) {
	skipIfNoFFmpeg(t)

	e := newTestExecutor(t)
	out := filepath.Join(t.TempDir(), "out.mp4")

	enc, err := e.NewEncoder(context.Background(), EncodeOptions{
		Output: out,
		Width:  32,
		Height: 16,
		FPS:    12.5,
	})
	if err != nil {
		t.Fatalf("NewEncoder failed: %v", err)
	}

	for i := 0; i < 6; i++ {
		f := frames.New(i, 32, 16)
		f.Fill(uint8(i*40), 128, 255-uint8(i*40))
		if err := enc.WriteFrame(f); err != nil {
			t.Fatalf("WriteFrame %d failed: %v", i, err)
		}
	}

	if err := enc.WriteFrame(frames.New(6, 16, 16)); err == nil {
		t.Error("expected size mismatch error")
	}
	if enc.Written() != 6 {
		t.Errorf("expected 6 frames written, got %d", enc.Written())
	}

	if err := enc.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if enc.Encoded() != 6 {
		t.Errorf("expected ffmpeg to report 6 encoded frames, got %d", enc.Encoded())
	}

	decoded, err := e.DecodeFrames(context.Background(), out, nil)
	if err != nil {
		t.Fatalf("decode of encoded output failed: %v", err)
	}
	if len(decoded.Frames) != 6 {
		t.Errorf("expected 6 frames, got %d", len(decoded.Frames))
	}
	if decoded.Info.Width != 32 || decoded.Info.Height != 16 {
		t.Errorf("expected 32x16, got %dx%d", decoded.Info.Width, decoded.Info.Height)
	}
	if decoded.FPS < 12.4 || decoded.FPS > 12.6 {
		t.Errorf("expected 12.5 fps, got %.3f", decoded.FPS)
	}

	entries, err := os.ReadDir(filepath.Dir(out))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only the output file, found %d entries", len(entries))
	}
}

func TestEncoderAbortLeavesNothing(t *testing.T) {
	skipIfNoFFmpeg(t)

	e := newTestExecutor(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "out.mp4")

	enc, err := e.NewEncoder(context.Background(), EncodeOptions{Output: out, Width: 16, Height: 16, FPS: 10})
	if err != nil {
		t.Fatalf("NewEncoder failed: %v", err)
	}
	if err := enc.WriteFrame(frames.New(0, 16, 16)); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}
	enc.Abort()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty directory after abort, found %d entries", len(entries))
	}
}

func TestNewEncoderUnwritableDir(t *testing.T) {
	skipIfNoFFmpeg(t)

	e := newTestExecutor(t)
	_, err := e.NewEncoder(context.Background(), EncodeOptions{
		Output: filepath.Join(t.TempDir(), "missing", "dir", "out.mp4"),
		Width:  16,
		Height: 16,
		FPS:    10,
	})
	if !errors.Is(err, ErrSinkUnavailable) {
		t.Errorf("expected ErrSinkUnavailable, got %v", err)
	}
}

func TestNewEncoderInvalidOptions(t *testing.T) {
	e := &Executor{logger: zerolog.Nop()}

	tests := []struct {
		name string
		opts EncodeOptions
	}{
		{"no output", EncodeOptions{Width: 8, Height: 8, FPS: 10}},
		{"zero size", EncodeOptions{Output: "x.mp4", FPS: 10}},
		{"zero fps", EncodeOptions{Output: "x.mp4", Width: 8, Height: 8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.NewEncoder(context.Background(), tt.opts)
			if !errors.Is(err, ErrSinkUnavailable) {
				t.Errorf("expected ErrSinkUnavailable, got %v", err)
			}
		})
	}
}

func TestStreamOutput(t *testing.T) {
	e := &Executor{logger: zerolog.Nop()}

	input := strings.Join([]string{
		"frame=12",
		"fps=24.5",
		"bitrate=512.0kbits/s",
		"out_time=00:00:00.500000",
		"speed=1.5x",
		"total_size=4096",
		"out_time_us=500000",
		"stream_0_0_q=2.0",
		"dup_frames=1",
		"drop_frames=0",
		"progress=continue",
		"some log line",
		"frame=24",
		"drop_frames=3",
		"progress=end",
	}, "\n")

	var got []Progress
	var logs []string
	e.streamOutput(strings.NewReader(input),
		func(p *Progress) { got = append(got, *p) },
		func(line string) { logs = append(logs, line) })

	if len(got) != 2 {
		t.Fatalf("expected 2 progress blocks, got %d", len(got))
	}
	if got[0].Frame != 12 || got[0].FPS != 24.5 || got[0].Speed != "1.5x" {
		t.Errorf("unexpected first block: %+v", got[0])
	}
	if got[0].Time != "00:00:00.500000" {
		t.Errorf("unexpected out_time %q", got[0].Time)
	}
	if got[0].DupFrames != 1 {
		t.Errorf("expected 1 duplicated frame, got %d", got[0].DupFrames)
	}
	if got[1].Frame != 24 || got[1].DropFrames != 3 {
		t.Errorf("unexpected second block: %+v", got[1])
	}
	if len(logs) != 1 || logs[0] != "some log line" {
		t.Errorf("unexpected logs: %v", logs)
	}
}

func TestStreamOutputWithoutProgressHandler(t *testing.T) {
	e := &Executor{logger: zerolog.Nop()}

	var logs []string
	e.streamOutput(strings.NewReader("stream_0_0_q=2.0\n[mp4 @ 0x1] error"), nil,
		func(line string) { logs = append(logs, line) })

	if len(logs) != 2 {
		t.Errorf("expected every line logged without a progress handler, got %v", logs)
	}
}
