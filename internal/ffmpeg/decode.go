package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/monikutee/video-frames-analysis/internal/frames"
)

// Decoded is the full frame sequence of a video plus its frame rate.
type Decoded struct {
	Info   *VideoInfo
	Frames []*frames.Frame
	FPS    float64
}

// DecodeFrames reads every frame of the first video stream as RGB24 in
// presentation order. A stream that ends early is returned as far as it could
// be read; only an input that cannot be opened at all is an error.
func (e *Executor) DecodeFrames(ctx context.Context, input string, progress ProgressFunc) (*Decoded, error) {
	info, err := e.ProbeVideo(ctx, input)
	if err != nil {
		return nil, err
	}

	fps := info.FPS
	if fps <= 0 {
		e.logger.Warn().Str("input", input).Float64("fallback_fps", DefaultFPS).Msg("frame rate unknown")
		fps = DefaultFPS
	}

	var tail []string
	p, err := e.start(ctx, RunOptions{
		Args: []string{
			"-nostdin",
			"-noautorotate",
			"-i", input,
			"-map", "0:v:0",
			"-f", "rawvideo",
			"-pix_fmt", "rgb24",
			"-",
		},
		LogHandler: func(line string) {
			if len(tail) < 8 {
				tail = append(tail, line)
			}
		},
		PipeStdout: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	out := &Decoded{Info: info, FPS: fps}
	size := info.Width * info.Height * frames.BytesPerPixel

	for {
		if err := ctx.Err(); err != nil {
			p.kill()
			_ = p.wait()
			return nil, err
		}

		f := frames.New(len(out.Frames), info.Width, info.Height)
		if _, err := io.ReadFull(p.stdout, f.Pix); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				e.logger.Warn().Int("frame", f.Index).Msg("dropping partial trailing frame")
			} else if !errors.Is(err, io.EOF) {
				e.logger.Warn().Err(err).Int("frame", f.Index).Msg("frame read failed, stopping early")
				p.kill()
			}
			break
		}

		out.Frames = append(out.Frames, f)
		if progress != nil {
			progress(len(out.Frames), info.FrameCount)
		}
	}

	if err := p.wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// Truncated or damaged streams keep whatever decoded cleanly
		e.logger.Warn().
			Err(err).
			Strs("stderr", tail).
			Int("frames", len(out.Frames)).
			Msg("decoder exited early")
	}

	e.logger.Debug().
		Str("input", input).
		Int("frames", len(out.Frames)).
		Int("frame_bytes", size).
		Float64("fps", fps).
		Msg("decoded video")

	return out, nil
}
