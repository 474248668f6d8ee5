package plot

import (
	"fmt"

	gplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Scatter writes the scatter with gonum/plot. The format follows the file
// extension (png, svg, pdf, ...).
func Scatter(path string, d Data) error {
	if err := d.validate(); err != nil {
		return err
	}

	p := gplot.New()
	p.Title.Text = d.title()
	p.X.Label.Text = "Frame index"
	p.Y.Label.Text = d.Column
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	palette := 0
	for id, members := range d.groups() {
		if len(members) == 0 {
			continue
		}

		pts := make(plotter.XYs, 0, len(members))
		for _, i := range members {
			pts = append(pts, plotter.XY{X: float64(i), Y: d.Values[i]})
		}

		s, err := plotter.NewScatter(pts)
		if err != nil {
			return fmt.Errorf("cluster %d: %w", id, err)
		}
		s.GlyphStyle.Radius = vg.Points(2.5)
		s.GlyphStyle.Shape = draw.CircleGlyph{}
		if id == d.Worst {
			s.GlyphStyle.Color = flaggedColor
			s.GlyphStyle.Shape = draw.CrossGlyph{}
		} else {
			s.GlyphStyle.Color = plotutil.Color(palette)
			palette++
		}

		p.Add(s)
		p.Legend.Add(d.seriesName(id), s)
	}

	if err := ensureParent(path); err != nil {
		return err
	}
	if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}
