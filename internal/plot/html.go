package plot

import (
	"fmt"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

var htmlPalette = []string{"#5470c6", "#91cc75", "#fac858", "#73c0de", "#3ba272", "#9a60b4", "#ea7ccc"}

// ScatterHTML writes an interactive go-echarts version of the scatter.
func ScatterHTML(path string, d Data) error {
	if err := d.validate(); err != nil {
		return err
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: d.title(), Width: "1000px", Height: "560px"}),
		charts.WithTitleOpts(opts.Title{Title: d.title(), Subtitle: d.subtitle()}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "Frame index", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: d.Column, NameLocation: "middle", NameGap: 45}),
	)

	palette := 0
	for id, members := range d.groups() {
		if len(members) == 0 {
			continue
		}

		data := make([]opts.ScatterData, 0, len(members))
		for _, i := range members {
			data = append(data, opts.ScatterData{Value: []interface{}{i, d.Values[i]}})
		}

		c := "#ff0000"
		size := 9
		if id != d.Worst {
			c = htmlPalette[palette%len(htmlPalette)]
			size = 6
			palette++
		}

		scatter.AddSeries(d.seriesName(id), data,
			charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: size}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: c}),
		)
	}

	if err := ensureParent(path); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := scatter.Render(f); err != nil {
		f.Close()
		return fmt.Errorf("render chart: %w", err)
	}
	return f.Close()
}
