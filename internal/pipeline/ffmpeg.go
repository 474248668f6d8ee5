package pipeline

import (
	"context"

	"github.com/monikutee/video-frames-analysis/internal/ffmpeg"
	"github.com/monikutee/video-frames-analysis/internal/frames"
)

// ffmpegSource decodes through the ffmpeg executor
type ffmpegSource struct {
	exec *ffmpeg.Executor
}

func (s ffmpegSource) Decode(ctx context.Context, input string, progress func(done, total int)) ([]*frames.Frame, float64, error) {
	decoded, err := s.exec.DecodeFrames(ctx, input, progress)
	if err != nil {
		return nil, 0, err
	}
	return decoded.Frames, decoded.FPS, nil
}

// ffmpegSinks opens ffmpeg encoders with the configured codec
type ffmpegSinks struct {
	exec  *ffmpeg.Executor
	codec string
	tag   string
}

func (s ffmpegSinks) Open(ctx context.Context, output string, width, height int, fps float64) (Sink, error) {
	enc, err := s.exec.NewEncoder(ctx, ffmpeg.EncodeOptions{
		Output: output,
		Width:  width,
		Height: height,
		FPS:    fps,
		Codec:  s.codec,
		Tag:    s.tag,
	})
	if err != nil {
		return nil, err
	}
	return enc, nil
}
