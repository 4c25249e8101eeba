package trackgen

import (
	"fmt"
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/forzalog/lap-engine-go/pkg/model"
)

// RenderPreview writes an HTML scatter plot of the driving line and the
// generated gates, for eyeballing gate placement before a session.
func RenderPreview(w io.Writer, line []PathPoint, file *model.GateFile) error {
	linePts := make([]opts.ScatterData, 0, len(line))
	maxAbs := 0.0
	for _, p := range line {
		maxAbs = math.Max(maxAbs, math.Max(math.Abs(p.X), math.Abs(p.Z)))
		linePts = append(linePts, opts.ScatterData{Value: []interface{}{p.X, p.Z}})
	}

	gatePts := make([]opts.ScatterData, 0, 2*len(file.Gates))
	centerPts := make([]opts.ScatterData, 0, len(file.Gates))
	for _, g := range file.Gates {
		for _, p := range []model.Point{g.P1, g.P2} {
			maxAbs = math.Max(maxAbs, math.Max(math.Abs(p.X), math.Abs(p.Z)))
			gatePts = append(gatePts, opts.ScatterData{Value: []interface{}{p.X, p.Z}})
		}
		centerPts = append(centerPts, opts.ScatterData{Value: []interface{}{g.Center.X, g.Center.Z}})
	}

	// square plot with a little padding keeps the track undistorted
	pad := maxAbs * 1.05
	if pad == 0 {
		pad = 1.0
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Track Gates", Width: "900px", Height: "900px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title: "Track Map with Gates",
			Subtitle: fmt.Sprintf("track=%s gates=%d spacing=%.0fm width=%.0fm",
				file.Name, len(file.Gates), file.Spacing, file.Width),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Z (m)", NameLocation: "middle", NameGap: 30}),
	)

	scatter.AddSeries("driving line", linePts,
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 3}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: "#9e9e9e"}))
	scatter.AddSeries("gate posts", gatePts,
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: "#35b779"}))
	scatter.AddSeries("gate centers", centerPts,
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 5}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: "#ff5252"}))

	return scatter.Render(w)
}
