package annotate

import (
	"github.com/monikutee/video-frames-analysis/internal/frames"
)

// Border color for flagged frames (pure red in RGB24)
const (
	MarkR uint8 = 255
	MarkG uint8 = 0
	MarkB uint8 = 0
)

// Thickness returns the border width for a frame of the given height:
// height/200, but never less than 2 pixels.
func Thickness(height int) int {
	return max(2, height/200)
}

// Mark returns a copy of f, with a red border on all four edges when
// flagged. The input frame is never modified.
func Mark(f *frames.Frame, flagged bool) *frames.Frame {
	out := f.Clone()
	if !flagged {
		return out
	}

	t := Thickness(f.Height)
	for y := 0; y < f.Height; y++ {
		edgeRow := y < t || y >= f.Height-t
		for x := 0; x < f.Width; x++ {
			if edgeRow || x < t || x >= f.Width-t {
				out.SetRGB(x, y, MarkR, MarkG, MarkB)
			}
		}
	}
	return out
}
