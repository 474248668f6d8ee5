// Package plot renders the per-frame quality scatter: frame index on x, a raw
// metric on y, one series per cluster with the flagged cluster in red.
package plot

import (
	"errors"
	"fmt"
	"image/color"
	"path/filepath"

	"github.com/monikutee/video-frames-analysis/pkg/util"
)

// Data is everything a scatter needs from a finished run.
type Data struct {
	Title  string
	Column string    // metric drawn on the y axis
	Values []float64 // raw metric value per frame
	Labels []int     // cluster id per frame
	K      int
	Worst  int
}

var flaggedColor = color.RGBA{R: 255, A: 255}

func (d Data) validate() error {
	if len(d.Values) == 0 {
		return errors.New("nothing to plot")
	}
	if len(d.Values) != len(d.Labels) {
		return fmt.Errorf("%d values but %d labels", len(d.Values), len(d.Labels))
	}
	if d.K < 1 {
		return fmt.Errorf("invalid cluster count %d", d.K)
	}
	for i, l := range d.Labels {
		if l < 0 || l >= d.K {
			return fmt.Errorf("frame %d has label %d outside [0,%d)", i, l, d.K)
		}
	}
	return nil
}

// groups splits frame indices by cluster id
func (d Data) groups() [][]int {
	out := make([][]int, d.K)
	for i, l := range d.Labels {
		out[l] = append(out[l], i)
	}
	return out
}

func (d Data) seriesName(id int) string {
	if id == d.Worst {
		return fmt.Sprintf("cluster %d (flagged)", id)
	}
	return fmt.Sprintf("cluster %d", id)
}

// flagged counts the frames in the worst cluster
func (d Data) flagged() int {
	n := 0
	for _, l := range d.Labels {
		if l == d.Worst {
			n++
		}
	}
	return n
}

func (d Data) subtitle() string {
	return fmt.Sprintf("frames=%d clusters=%d worst=%d flagged=%d", len(d.Values), d.K, d.Worst, d.flagged())
}

func (d Data) title() string {
	if d.Title != "" {
		return d.Title
	}
	return fmt.Sprintf("Frame %s by cluster", d.Column)
}

func ensureParent(path string) error {
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return util.EnsureDir(dir)
}
