package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/monikutee/video-frames-analysis/internal/frames"
	"github.com/monikutee/video-frames-analysis/pkg/util"
)

// EncodeOptions configures an Encoder.
type EncodeOptions struct {
	Output string
	Width  int
	Height int
	FPS    float64
	Codec  string // defaults to DefaultVideoCodec
	Tag    string // defaults to DefaultCodecTag
	PixFmt string // defaults to DefaultPixFmt
}

// Encoder streams RGB24 frames into ffmpeg. Frames go to a hidden file next
// to Output which replaces Output only on a successful Close, so a failed run
// never leaves a partial video behind.
type Encoder struct {
	opts    EncodeOptions
	tmp     string
	proc    *process
	logger  zerolog.Logger
	written int
	tail    []string
	done    bool

	// last -progress block, only read once the process has exited
	progress Progress
}

// NewEncoder starts an encoder for frames of exactly Width x Height.
func (e *Executor) NewEncoder(ctx context.Context, opts EncodeOptions) (*Encoder, error) {
	if opts.Output == "" {
		return nil, fmt.Errorf("%w: output path is required", ErrSinkUnavailable)
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("%w: invalid frame size %dx%d", ErrSinkUnavailable, opts.Width, opts.Height)
	}
	if opts.FPS <= 0 {
		return nil, fmt.Errorf("%w: invalid frame rate %v", ErrSinkUnavailable, opts.FPS)
	}
	if opts.Codec == "" {
		opts.Codec = DefaultVideoCodec
	}
	if opts.Tag == "" {
		opts.Tag = DefaultCodecTag
	}
	if opts.PixFmt == "" {
		opts.PixFmt = DefaultPixFmt
	}

	dir, base := filepath.Split(opts.Output)
	if dir == "" {
		dir = "."
	}
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	// Doubles as the writability check for the destination directory
	tmpFile, err := util.TempFile(dir, "."+stem+"-", ext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSinkUnavailable, err)
	}
	tmp := tmpFile.Name()
	tmpFile.Close()

	enc := &Encoder{opts: opts, tmp: tmp, logger: e.logger}

	args := []string{
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-s", fmt.Sprintf("%dx%d", opts.Width, opts.Height),
		"-framerate", strconv.FormatFloat(opts.FPS, 'f', -1, 64),
		"-i", "-",
		"-an",
		"-c:v", opts.Codec,
		"-tag:v", opts.Tag,
		"-pix_fmt", opts.PixFmt,
		tmp,
	}

	proc, err := e.start(ctx, RunOptions{
		Args:      args,
		PipeStdin: true,
		ProgressHandler: func(p *Progress) {
			enc.progress = *p
		},
		LogHandler: func(line string) {
			if len(enc.tail) < 8 {
				enc.tail = append(enc.tail, line)
			}
		},
	})
	if err != nil {
		util.CleanupFiles(tmp)
		return nil, fmt.Errorf("%w: %v", ErrSinkUnavailable, err)
	}
	enc.proc = proc

	e.logger.Debug().
		Str("output", opts.Output).
		Str("codec", opts.Codec).
		Int("width", opts.Width).
		Int("height", opts.Height).
		Float64("fps", opts.FPS).
		Msg("encoder started")

	return enc, nil
}

// WriteFrame appends one frame. Frames whose size differs from the encoder's
// are rejected without touching the stream.
func (enc *Encoder) WriteFrame(f *frames.Frame) error {
	if enc.done {
		return errors.New("encoder is closed")
	}
	if err := f.Validate(); err != nil {
		return err
	}
	if !f.HasSize(enc.opts.Width, enc.opts.Height) {
		return fmt.Errorf("frame %d is %dx%d, encoder expects %dx%d",
			f.Index, f.Width, f.Height, enc.opts.Width, enc.opts.Height)
	}

	if _, err := enc.proc.stdin.Write(f.Pix); err != nil {
		enc.Abort()
		return fmt.Errorf("%w: write frame %d: %v%s", ErrSinkUnavailable, f.Index, err, enc.detail())
	}
	enc.written++
	return nil
}

// Written reports how many frames were accepted.
func (enc *Encoder) Written() int {
	return enc.written
}

// Encoded reports how many frames ffmpeg says it wrote. Only meaningful
// after Close.
func (enc *Encoder) Encoded() int {
	return enc.progress.Frame
}

// Close flushes the stream and moves the finished file into place.
func (enc *Encoder) Close() error {
	if enc.done {
		return nil
	}
	enc.done = true

	_ = enc.proc.stdin.Close()
	if err := enc.proc.wait(); err != nil {
		util.CleanupFiles(enc.tmp)
		return fmt.Errorf("%w: %v%s", ErrSinkUnavailable, err, enc.detail())
	}

	if err := os.Rename(enc.tmp, enc.opts.Output); err != nil {
		util.CleanupFiles(enc.tmp)
		return fmt.Errorf("%w: %v", ErrSinkUnavailable, err)
	}

	p := enc.progress
	ev := enc.logger.Debug()
	if p.Frame != enc.written || p.DupFrames > 0 || p.DropFrames > 0 {
		ev = enc.logger.Warn()
	}
	ev.Str("output", enc.opts.Output).
		Int("written", enc.written).
		Int("encoded", p.Frame).
		Int("dup", p.DupFrames).
		Int("drop", p.DropFrames).
		Str("speed", p.Speed).
		Msg("encoder finished")
	return nil
}

// Abort stops the encoder and discards everything written so far.
func (enc *Encoder) Abort() {
	if enc.done {
		return
	}
	enc.done = true

	_ = enc.proc.stdin.Close()
	enc.proc.kill()
	_ = enc.proc.wait()
	util.CleanupFiles(enc.tmp)
}

func (enc *Encoder) detail() string {
	if len(enc.tail) == 0 {
		return ""
	}
	return ": " + strings.Join(enc.tail, "; ")
}
