package ffmpeg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	// ErrSourceUnavailable means the input video could not be opened at all.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrSinkUnavailable means the output video could not be created or written.
	ErrSinkUnavailable = errors.New("sink unavailable")
)

// Executor handles all ffmpeg operations with progress streaming
type Executor struct {
	logger      zerolog.Logger
	ffmpegPath  string
	ffprobePath string
	threads     int
}

// Options locates the binaries. Empty paths are looked up in PATH.
type Options struct {
	FFmpegPath  string
	FFprobePath string
	Threads     int
}

// New creates a new ffmpeg executor
func New(logger zerolog.Logger, opts Options) (*Executor, error) {
	ffmpegPath, err := lookPath(opts.FFmpegPath, "ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	ffprobePath, err := lookPath(opts.FFprobePath, "ffprobe")
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found: %w", err)
	}

	return &Executor{
		logger:      logger.With().Str("component", "ffmpeg").Logger(),
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		threads:     opts.Threads,
	}, nil
}

func lookPath(configured, fallback string) (string, error) {
	if configured == "" {
		configured = fallback
	}
	return exec.LookPath(configured)
}

// process is a running ffmpeg whose stderr is being drained
type process struct {
	ctx    context.Context
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	wg     sync.WaitGroup
	logger zerolog.Logger
}

// start launches ffmpeg. Unless opts asks for raw pipes, stdout lines are
// forwarded to the log handler like stderr.
func (e *Executor) start(ctx context.Context, opts RunOptions) (*process, error) {
	if len(opts.Args) == 0 {
		return nil, fmt.Errorf("no arguments provided")
	}

	// Build args with threads BEFORE other arguments
	baseArgs := []string{"-y", "-hide_banner", "-nostats", "-loglevel", "error"}

	if e.threads > 0 {
		baseArgs = append(baseArgs, "-threads", fmt.Sprintf("%d", e.threads))
	}

	if opts.ProgressHandler != nil {
		baseArgs = append(baseArgs, "-progress", "pipe:2")
	}
	args := append(baseArgs, opts.Args...)

	e.logger.Debug().
		Str("cmd", "ffmpeg").
		Strs("args", args).
		Msg("executing ffmpeg")

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)
	p := &process{ctx: ctx, cmd: cmd, logger: e.logger}

	var err error
	if opts.PipeStdin {
		if p.stdin, err = cmd.StdinPipe(); err != nil {
			return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
		}
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	// Stream stderr (progress + logs)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		e.streamOutput(stderr, opts.ProgressHandler, opts.LogHandler)
	}()

	if opts.PipeStdout {
		p.stdout = stdout
		return p, nil
	}

	// Stream stdout
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			if opts.LogHandler != nil {
				opts.LogHandler(scanner.Text())
			}
		}
	}()

	return p, nil
}

// wait blocks until ffmpeg exits and its output has been drained.
// A raw stdout pipe must be fully read (or the process killed) first.
func (p *process) wait() error {
	p.wg.Wait()

	if err := p.cmd.Wait(); err != nil {
		if p.ctx.Err() == context.Canceled {
			return p.ctx.Err()
		}
		return fmt.Errorf("ffmpeg execution failed: %w", err)
	}

	p.logger.Debug().Msg("ffmpeg execution completed")
	return nil
}

// kill stops ffmpeg early, e.g. on cancellation or a failed write
func (p *process) kill() {
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
}

// streamOutput parses ffmpeg output and calls handlers
func (e *Executor) streamOutput(r io.Reader, progressHandler func(*Progress), logHandler func(string)) {
	scanner := bufio.NewScanner(r)
	progressData := &Progress{}

	for scanner.Scan() {
		line := scanner.Text()

		// Parse progress lines
		switch {
		case strings.HasPrefix(line, "frame="):
			fmt.Sscanf(line, "frame=%d", &progressData.Frame)
		case strings.HasPrefix(line, "fps="):
			fmt.Sscanf(line, "fps=%f", &progressData.FPS)
		case strings.HasPrefix(line, "bitrate="):
			progressData.Bitrate = value(line)
		case strings.HasPrefix(line, "out_time="):
			progressData.Time = value(line)
		case strings.HasPrefix(line, "speed="):
			progressData.Speed = value(line)
		case strings.HasPrefix(line, "dup_frames="):
			fmt.Sscanf(line, "dup_frames=%d", &progressData.DupFrames)
		case strings.HasPrefix(line, "drop_frames="):
			fmt.Sscanf(line, "drop_frames=%d", &progressData.DropFrames)
		case progressHandler != nil && isProgressKey(line):
			// remaining -progress keys carry nothing we report
		case strings.HasPrefix(line, "progress="):
			// End of progress block
			if progressHandler != nil && progressData.Frame > 0 {
				progressHandler(progressData)
			}
			progressData = &Progress{}
		default:
			if logHandler != nil {
				logHandler(line)
			}
		}
	}
}

func value(line string) string {
	parts := strings.SplitN(line, "=", 2)
	if len(parts) != 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

var progressKeys = []string{"total_size=", "out_time_us=", "out_time_ms=", "stream_"}

func isProgressKey(line string) bool {
	for _, k := range progressKeys {
		if strings.HasPrefix(line, k) {
			return true
		}
	}
	return false
}
