package chart

import (
	"fmt"
	"math"

	grob "github.com/MetalBlueberry/go-plotly/graph_objects"
	q "github.com/invertedv/qdash"
	"go.uber.org/zap"
)

// TimeSeriesTabs builds one tab per metric. Each region gets a line+marker trace of its median
// and, with ShowBands, a filled band between its lower and upper series drawn beneath it.
func TimeSeriesTabs(median, lower, upper *q.Table, metrics []string, opts Options) (*q.TabSet, error) {
	opts = opts.normalize()

	regionCol := opts.RegionCol
	if regionCol == "" {
		names := median.ColumnNames()
		if len(names) == 0 {
			return nil, fmt.Errorf("%w: empty median table", q.ErrMalformedInput)
		}

		regionCol = names[0]
	}

	if !opts.ShowBands {
		lower, upper = nil, nil
	}

	ts := q.NewTabSet("timeseries")
	for _, metric := range metrics {
		var (
			series     []*Series
			misaligned int
			e          error
		)
		if series, misaligned, e = RegionSeries(median, lower, upper, regionCol, opts.DateCol, metric); e != nil {
			return nil, e
		}

		if misaligned > 0 {
			if opts.Strict {
				return nil, fmt.Errorf("%w: %s has %d keys not shared by median, lower and upper", q.ErrJoinMismatch, metric, misaligned)
			}

			opts.Logger.Warn("band keys misaligned", zap.String("metric", metric), zap.Int("keys", misaligned))
		}

		var p *q.Plot
		if p, e = timeSeriesPlot(series, opts); e != nil {
			return nil, e
		}

		if e = ts.Add(metric, p); e != nil {
			return nil, e
		}
	}

	return ts, nil
}

func timeSeriesPlot(series []*Series, opts Options) (*q.Plot, error) {
	lay := opts.Style.Layout(opts.Width, opts.Height)
	lay.Xaxis.Type = "date"
	lay.Hovermode = "closest"

	p, e := q.NewPlot(q.PlotLayout(lay))
	if e != nil {
		return nil, e
	}

	if opts.ShowBands {
		for _, s := range series {
			p.AddTraces(bandTraces(s, opts.Style)...)
		}
	}

	for _, s := range series {
		p.AddTraces(medianTrace(s, opts.Style))
	}

	return p, nil
}

func medianTrace(s *Series, st q.Style) *grob.Scatter {
	size, width := st.DotSize, st.LineWidth

	return &grob.Scatter{
		Type:       grob.TraceTypeScatter,
		Name:       s.Region,
		X:          dateStrings(s),
		Y:          nullable(s.Median),
		Mode:       "lines+markers",
		Text:       s.Region,
		Hoverinfo:  "text+x+y",
		Showlegend: grob.False,
		Line:       &grob.ScatterLine{Color: st.LineColor, Width: width},
		Marker:     &grob.ScatterMarker{Color: st.LineColor, Size: size},
	}
}

// bandTraces is the lower edge followed by the upper edge filled down to it.
func bandTraces(s *Series, st q.Style) []grob.Trace {
	width := st.BandLine
	x := dateStrings(s)

	lower := &grob.Scatter{
		Type:       grob.TraceTypeScatter,
		Name:       s.Region + " lower",
		X:          x,
		Y:          nullable(s.Lower),
		Mode:       grob.ScatterModeLines,
		Hoverinfo:  "skip",
		Showlegend: grob.False,
		Line:       &grob.ScatterLine{Color: st.LineColor, Width: width},
	}

	upper := &grob.Scatter{
		Type:       grob.TraceTypeScatter,
		Name:       s.Region + " upper",
		X:          x,
		Y:          nullable(s.Upper),
		Mode:       grob.ScatterModeLines,
		Fill:       "tonexty",
		Fillcolor:  st.Band(),
		Hoverinfo:  "skip",
		Showlegend: grob.False,
		Line:       &grob.ScatterLine{Color: st.LineColor, Width: width},
	}

	return []grob.Trace{lower, upper}
}

func dateStrings(s *Series) []string {
	x := make([]string, len(s.Dates))
	for ind, dt := range s.Dates {
		x[ind] = dt.Format(q.DateFormat)
	}

	return x
}

// nullable replaces NaN, which json cannot carry, with null so plotly leaves a gap.
func nullable(x []float64) []any {
	out := make([]any, len(x))
	for ind, xv := range x {
		if math.IsNaN(xv) || math.IsInf(xv, 0) {
			continue
		}

		out[ind] = xv
	}

	return out
}
