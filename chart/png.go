package chart

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	q "github.com/invertedv/qdash"
	gc "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// PNG renders the series of one metric as a static image: medians as lines with dots, band edges
// as thin lines. The title carries the mean band width.
func PNG(w io.Writer, metric string, series []*Series, opts Options) error {
	opts = opts.normalize()

	var (
		all    []gc.Series
		widths []float64
	)
	line := pngColor(opts.Style.LineColor)
	edge := line
	if n := len(opts.Style.Palette); n > 0 {
		edge = pngColor(opts.Style.Palette[n/2])
	}

	for _, s := range series {
		if opts.ShowBands {
			for _, b := range [][]float64{s.Lower, s.Upper} {
				if ts, ok := timeSeries(s.Region, s.Dates, b, gc.Style{StrokeWidth: opts.Style.BandLine + 0.5, StrokeColor: edge}); ok {
					all = append(all, ts)
				}
			}

			for ind := range s.Dates {
				if d := s.Upper[ind] - s.Lower[ind]; !math.IsNaN(d) {
					widths = append(widths, d)
				}
			}
		}

		st := gc.Style{StrokeWidth: opts.Style.LineWidth, StrokeColor: line, DotWidth: opts.Style.DotSize, DotColor: line}
		if ts, ok := timeSeries(s.Region, s.Dates, s.Median, st); ok {
			all = append(all, ts)
		}
	}

	if len(all) == 0 {
		return fmt.Errorf("%w: nothing to draw for %s", q.ErrMissingData, metric)
	}

	title := metric
	if len(widths) > 0 {
		title = fmt.Sprintf("%s (mean band width %.4g)", metric, stat.Mean(widths, nil))
	}

	ch := gc.Chart{
		Title:      title,
		Width:      int(opts.Width),
		Height:     int(opts.Height),
		Background: gc.Style{Padding: gc.Box{Top: 30, Left: 16, Right: 12, Bottom: 48}},
		XAxis:      gc.XAxis{ValueFormatter: gc.TimeDateValueFormatter},
		YAxis:      gc.YAxis{Name: metric},
		Series:     all,
	}

	// go-chart refuses a flat y range
	if lo, hi := yRange(all); lo == hi {
		ch.YAxis.Range = &gc.ContinuousRange{Min: lo - 1, Max: hi + 1}
	}

	return ch.Render(gc.PNG, w)
}

// timeSeries drops NaN points. A lone point is doubled a day later so the x range is not empty.
func timeSeries(name string, dates []time.Time, y []float64, st gc.Style) (gc.TimeSeries, bool) {
	var (
		xs []time.Time
		ys []float64
	)
	for ind, yv := range y {
		if math.IsNaN(yv) || math.IsInf(yv, 0) {
			continue
		}

		xs, ys = append(xs, dates[ind]), append(ys, yv)
	}

	switch len(xs) {
	case 0:
		return gc.TimeSeries{}, false
	case 1:
		xs, ys = append(xs, xs[0].AddDate(0, 0, 1)), append(ys, ys[0])
	}

	return gc.TimeSeries{Name: name, XValues: xs, YValues: ys, Style: st}, true
}

func yRange(all []gc.Series) (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, s := range all {
		if ts, ok := s.(gc.TimeSeries); ok {
			lo, hi = math.Min(lo, floats.Min(ts.YValues)), math.Max(hi, floats.Max(ts.YValues))
		}
	}

	return lo, hi
}

var namedColors = map[string]string{
	"slategray": "708090",
	"white":     "ffffff",
	"black":     "000000",
	"gray":      "808080",
}

func pngColor(c string) drawing.Color {
	if strings.HasPrefix(c, "#") {
		return drawing.ColorFromHex(c[1:])
	}

	if hex, ok := namedColors[strings.ToLower(c)]; ok {
		return drawing.ColorFromHex(hex)
	}

	return drawing.ColorBlack
}
