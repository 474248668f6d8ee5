package ffmpeg

import "time"

// VideoInfo contains metadata about a video file
type VideoInfo struct {
	FilePath   string
	Duration   time.Duration
	Width      int
	Height     int
	FPS        float64
	FrameCount int // 0 when the container does not say
	Bitrate    int64
	VideoCodec string
}

// Progress represents ffmpeg progress data
type Progress struct {
	Frame   int
	FPS     float64
	Bitrate string
	Time    string
	Speed   string

	DupFrames  int
	DropFrames int
}

// RunOptions configures ffmpeg execution
type RunOptions struct {
	Args            []string
	ProgressHandler func(*Progress)
	LogHandler      func(line string)

	// PipeStdin keeps stdin open for raw frame writes.
	PipeStdin bool
	// PipeStdout hands stdout to the caller instead of the log handler.
	PipeStdout bool
}

// Default encoding settings
const (
	DefaultVideoCodec = "mpeg4"
	DefaultCodecTag   = "mp4v"
	DefaultPixFmt     = "yuv420p"
	DefaultFPS        = 25.0
)

// ProgressFunc is called with the number of frames handled so far and the
// expected total, which is 0 when unknown.
type ProgressFunc func(done, total int)
