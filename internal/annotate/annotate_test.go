package annotate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/monikutee/video-frames-analysis/internal/frames"
)

func gray(w, h int) *frames.Frame {
	f := frames.New(4, w, h)
	f.Fill(90, 90, 90)
	return f
}

func isRed(f *frames.Frame, x, y int) bool {
	r, g, b := f.RGB(x, y)
	return r == MarkR && g == MarkG && b == MarkB
}

func TestThickness(t *testing.T) {
	assert.Equal(t, 2, Thickness(1))
	assert.Equal(t, 2, Thickness(400))
	assert.Equal(t, 2, Thickness(599))
	assert.Equal(t, 3, Thickness(600))
	assert.Equal(t, 5, Thickness(1080))
	assert.Equal(t, 10, Thickness(2160))
}

func TestUnflaggedIsIdentical(t *testing.T) {
	f := gray(20, 10)
	f.SetRGB(3, 3, 1, 2, 3)

	out := Mark(f, false)
	assert.Equal(t, f.Pix, out.Pix)
	assert.Equal(t, f.Index, out.Index)
	assert.NotSame(t, f, out)
}

func TestFlaggedBorder400(t *testing.T) {
	f := gray(300, 400)
	out := Mark(f, true)

	// 2px on every edge
	for _, p := range [][2]int{{0, 0}, {1, 1}, {150, 0}, {150, 1}, {150, 398}, {150, 399}, {0, 200}, {1, 200}, {298, 200}, {299, 200}} {
		assert.True(t, isRed(out, p[0], p[1]), "expected red at %v", p)
	}
	for _, p := range [][2]int{{2, 2}, {150, 2}, {150, 397}, {2, 200}, {297, 200}, {150, 200}} {
		assert.False(t, isRed(out, p[0], p[1]), "expected untouched at %v", p)
	}
}

func TestFlaggedDoesNotMutateInput(t *testing.T) {
	f := gray(10, 10)
	before := f.Clone()

	_ = Mark(f, true)
	assert.Equal(t, before, f)
}

func TestFlaggedTinyFrameIsAllRed(t *testing.T) {
	out := Mark(gray(3, 3), true)
	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			assert.True(t, isRed(out, x, y))
		}
	}
}
