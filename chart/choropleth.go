package chart

import (
	"fmt"
	"time"

	grob "github.com/MetalBlueberry/go-plotly/graph_objects"
	q "github.com/invertedv/qdash"
	"github.com/invertedv/qdash/geo"
	"gonum.org/v1/gonum/floats"
)

// Join attaches quantile rows to the attribute table of a geometry layer. Every polygon row of
// geom survives; polygons without data get fill.
type Join struct {
	Name   string
	Fields []string
	Ratio  float64
	fn     func(geom, data *q.Table, fill float64) (*q.Table, error)
}

// CountryJoin matches the 3-letter country code of the layer with the CODE column.
func CountryJoin(codeCol string) Join {
	return Join{
		Name:   "countries",
		Fields: []string{geo.CountryName, geo.CountryCode},
		Ratio:  CountryRatio,
		fn: func(geom, data *q.Table, fill float64) (*q.Table, error) {
			return geom.Join(data, geo.CountryCode, codeCol, q.LeftJoin, fill)
		},
	}
}

// StateJoin translates the numeric regions of regionCol to state names through fips, then
// matches them with the state names of the layer.
func StateJoin(fips *q.Table, regionCol string) Join {
	return Join{
		Name:   "states",
		Fields: []string{geo.StateName, geo.StatePostal},
		Ratio:  StateRatio,
		fn: func(geom, data *q.Table, fill float64) (*q.Table, error) {
			named, e := data.Join(fips, regionCol, geo.FIPSCol, q.InnerJoin, fill)
			if e != nil {
				return nil, e
			}

			return geom.Join(named, geo.StateName, geo.FIPSState, q.LeftJoin, fill)
		},
	}
}

// ChoroplethTabs builds one map per metric from the rows of data at opts.Date (the latest date
// when zero). Polygons are colored on a linear scale over the palette spanning the plotted values.
func ChoroplethTabs(data *q.Table, layer *geo.Layer, join Join, metrics []string, opts Options) (*q.TabSet, error) {
	opts = opts.normalize()

	var (
		snap, geom, joined *q.Table
		e                  error
	)
	if snap, e = Snapshot(data, opts.DateCol, opts.Date); e != nil {
		return nil, e
	}

	if geom, e = layer.Table(join.Fields...); e != nil {
		return nil, e
	}

	if joined, e = join.fn(geom, snap, opts.Fill); e != nil {
		return nil, e
	}

	// a polygon matching several rows keeps the first
	if joined, e = joined.Distinct(geo.FeatureCol); e != nil {
		return nil, e
	}

	var ids, names *q.Col
	if ids, e = joined.Column(geo.FeatureCol); e != nil {
		return nil, e
	}

	if names, e = joined.Column(join.Fields[0]); e != nil {
		return nil, e
	}

	fc := layer.GeoJSON()
	ts := q.NewTabSet("maps")
	for _, metric := range metrics {
		if !joined.Has(metric) {
			return nil, fmt.Errorf("%w: no metric column %s", q.ErrMalformedInput, metric)
		}

		var (
			filled *q.Table
			mc     *q.Col
			z      []float64
		)
		if filled, e = joined.FillNaN(metric, opts.Fill); e != nil {
			return nil, e
		}

		if mc, e = filled.Column(metric); e != nil {
			return nil, e
		}

		if z, e = mc.AsFloat(); e != nil {
			return nil, fmt.Errorf("metric %s: %w", metric, e)
		}

		lay := opts.Style.MapLayout(opts.Height, join.Ratio)
		var p *q.Plot
		if p, e = q.NewPlot(q.PlotLayout(lay)); e != nil {
			return nil, e
		}

		p.AddTraces(choropleth(metric, ids.AsString(), names.AsString(), z, fc, opts))

		if e = ts.Add(metric, p); e != nil {
			return nil, e
		}
	}

	return ts, nil
}

func choropleth(metric string, ids, names []string, z []float64, fc any, opts Options) *grob.Choropleth {
	zmin, zmax := ZRange(z)
	thick, length, x := colorbarThickness, opts.Height-colorbarClearance, -0.02
	width := outlineWidth

	return &grob.Choropleth{
		Type:         grob.TraceTypeChoropleth,
		Name:         metric,
		Geojson:      fc,
		Featureidkey: "id",
		Locationmode: "geojson-id",
		Locations:    ids,
		Z:            z,
		Text:         names,
		Hoverinfo:    "text+z",
		Zauto:        grob.False,
		Zmin:         zmin,
		Zmax:         zmax,
		Colorscale:   Colorscale(opts.Style.Palette),
		Colorbar: &grob.ChoroplethColorbar{
			Thickness: thick,
			Len:       length,
			Lenmode:   "pixels",
			X:         x,
			Xanchor:   "right",
		},
		Marker: &grob.ChoroplethMarker{
			Line: &grob.ChoroplethMarkerLine{Color: outlineColor, Width: width},
		},
	}
}

// ZRange is the min and max of z; all-equal or empty input still gives a non-empty range.
func ZRange(z []float64) (zmin, zmax float64) {
	if len(z) == 0 {
		return 0, 1
	}

	zmin, zmax = floats.Min(z), floats.Max(z)
	if zmax <= zmin {
		zmax = zmin + 1
	}

	return zmin, zmax
}

// Colorscale spreads palette evenly over [0,1] in equal steps.
func Colorscale(palette []string) [][]any {
	n := len(palette)
	if n == 0 {
		return nil
	}

	var cs [][]any
	for ind, c := range palette {
		cs = append(cs, []any{float64(ind) / float64(n), c}, []any{float64(ind+1) / float64(n), c})
	}

	return cs
}

// Snapshot keeps the rows of t at date, or at the latest date when date is zero.
func Snapshot(t *q.Table, dateCol string, date time.Time) (*q.Table, error) {
	var (
		dc  *q.Col
		dts []time.Time
		e   error
	)
	if dc, e = t.Column(dateCol); e != nil {
		return nil, e
	}

	if dts, e = dc.AsDate(); e != nil {
		return nil, e
	}

	if date.IsZero() {
		for _, dt := range dts {
			if dt.After(date) {
				date = dt
			}
		}
	}

	keep := make([]bool, len(dts))
	for ind, dt := range dts {
		keep[ind] = dt.Equal(date)
	}

	return t.Where(keep)
}
