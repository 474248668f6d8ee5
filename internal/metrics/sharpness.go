package metrics

import (
	"context"

	"gonum.org/v1/gonum/stat"

	"github.com/monikutee/video-frames-analysis/internal/frames"
)

// SharpnessExtractor scores focus as the variance of the Laplacian
// response of the luminance plane. Higher is sharper; a flat frame is 0.
type SharpnessExtractor struct{}

func (SharpnessExtractor) Name() string { return Sharpness }

func (SharpnessExtractor) Extract(_ context.Context, f *frames.Frame) (float64, error) {
	return LaplacianVariance(f.Luma(), f.Width, f.Height), nil
}

// LaplacianVariance applies the 4-neighbour Laplacian kernel
//
//	0  1  0
//	1 -4  1
//	0  1  0
//
// with reflect-101 borders and returns the population variance of the result.
func LaplacianVariance(luma []uint8, width, height int) float64 {
	if width == 0 || height == 0 {
		return 0
	}

	resp := make([]float64, width*height)
	for y := 0; y < height; y++ {
		up := reflect101(y-1, height)
		down := reflect101(y+1, height)
		for x := 0; x < width; x++ {
			left := reflect101(x-1, width)
			right := reflect101(x+1, width)

			c := float64(luma[y*width+x])
			sum := float64(luma[up*width+x]) +
				float64(luma[down*width+x]) +
				float64(luma[y*width+left]) +
				float64(luma[y*width+right])
			resp[y*width+x] = sum - 4*c
		}
	}

	return stat.PopVariance(resp, nil)
}

// reflect101 mirrors an out-of-range index without repeating the edge
// pixel (gfedcb|abcdefgh|gfedcba).
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*(n-1) - i
		}
	}
	return i
}
