// Package chart builds the tabbed plotly figures of the dashboard: one tab per metric, either a
// time series with an uncertainty band or a choropleth map.
package chart

import (
	"time"

	q "github.com/invertedv/qdash"
	"go.uber.org/zap"
)

const (
	DefaultWidth     = 1200.0
	DefaultHeight    = 350.0
	DefaultMapHeight = 460.0

	// map width over height
	CountryRatio = 750.0 / 320.0
	StateRatio   = 650.0 / 380.0

	colorbarThickness = 15.0
	colorbarClearance = 50.0
	outlineColor      = "white"
	outlineWidth      = 1.0
	defaultMapFill    = 0.0
	defaultDateCol    = "date"
)

// Options control both builders. The zero value is usable; see DefaultOptions.
type Options struct {
	Width  float64
	Height float64

	// RegionCol is the region identifier column; empty means the first column of the median table.
	RegionCol string
	DateCol   string

	// ShowBands draws the lower/upper band under each median line.
	ShowBands bool

	// Strict turns misaligned median/lower/upper keys into ErrJoinMismatch.
	Strict bool

	// Date is the choropleth snapshot; zero means the latest date present.
	Date time.Time

	// Fill is the map value of polygons without data.
	Fill float64

	Style  q.Style
	Logger *zap.Logger
}

func DefaultOptions() Options {
	return Options{
		Width:     DefaultWidth,
		Height:    DefaultHeight,
		DateCol:   defaultDateCol,
		ShowBands: true,
		Fill:      defaultMapFill,
		Style:     q.DefaultStyle(),
		Logger:    zap.NewNop(),
	}
}

// normalize fills unset fields from the defaults.
func (o Options) normalize() Options {
	def := DefaultOptions()
	if o.Width <= 0 {
		o.Width = def.Width
	}

	if o.Height <= 0 {
		o.Height = def.Height
	}

	if o.DateCol == "" {
		o.DateCol = def.DateCol
	}

	if o.Style.LineColor == "" {
		o.Style = def.Style
	}

	if o.Logger == nil {
		o.Logger = def.Logger
	}

	return o
}
