package qdash

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	grob "github.com/MetalBlueberry/go-plotly/graph_objects"
	"github.com/MetalBlueberry/go-plotly/offline"
)

// Plot is one plotly figure.
type Plot struct {
	fig *grob.Fig
	lay *grob.Layout
}

type PlotOpt func(p *Plot) error

func NewPlot(opts ...PlotOpt) (*Plot, error) {
	lay := &grob.Layout{}
	p := &Plot{fig: &grob.Fig{Layout: lay}, lay: lay}
	for _, o := range opts {
		if e := o(p); e != nil {
			return nil, e
		}
	}

	return p, nil
}

// PlotLayout starts the plot from lay. It should be the first option.
func PlotLayout(lay *grob.Layout) PlotOpt {
	return func(p *Plot) error {
		if lay == nil {
			return fmt.Errorf("nil layout")
		}

		p.lay = lay
		p.fig.Layout = lay
		return nil
	}
}

// PlotStyle starts the plot from a layout of s at the current size. Like PlotLayout, it
// should come before the other options.
func PlotStyle(s Style) PlotOpt {
	return func(p *Plot) error {
		return PlotLayout(s.Layout(p.lay.Width, p.lay.Height))(p)
	}
}

func PlotWidth(w float64) PlotOpt {
	return func(p *Plot) error {
		if w < 0.0 {
			return fmt.Errorf("negative width")
		}

		p.lay.Width = w
		return nil
	}
}

func PlotHeight(h float64) PlotOpt {
	return func(p *Plot) error {
		if h < 0.0 {
			return fmt.Errorf("negative height")
		}

		p.lay.Height = h
		return nil
	}
}

func PlotTitle(title string) PlotOpt {
	return func(p *Plot) error {
		if p.lay.Title == nil {
			p.lay.Title = &grob.LayoutTitle{}
		}

		p.lay.Title.Text = title
		return nil
	}
}

func PlotLegend(show bool) PlotOpt {
	return func(p *Plot) error {
		if show {
			p.lay.Showlegend = grob.True
		} else {
			p.lay.Showlegend = grob.False
		}

		return nil
	}
}

func PlotXlabel(label string) PlotOpt {
	return func(p *Plot) error {
		if p.lay.Xaxis == nil {
			p.lay.Xaxis = &grob.LayoutXaxis{}
		}

		p.lay.Xaxis.Title = &grob.LayoutXaxisTitle{Text: label}
		return nil
	}
}

func PlotYlabel(label string) PlotOpt {
	return func(p *Plot) error {
		if p.lay.Yaxis == nil {
			p.lay.Yaxis = &grob.LayoutYaxis{}
		}

		p.lay.Yaxis.Title = &grob.LayoutYaxisTitle{Text: label}
		return nil
	}
}

// *********** Methods ***********

func (p *Plot) AddTraces(traces ...grob.Trace) {
	p.fig.AddTraces(traces...)
}

func (p *Plot) Traces() grob.Traces {
	return p.fig.Data
}

func (p *Plot) Layout() *grob.Layout {
	return p.lay
}

func (p *Plot) Fig() *grob.Fig {
	return p.fig
}

// JSON is the figure in the form plotly.js takes it.
func (p *Plot) JSON() ([]byte, error) {
	return json.Marshal(p.fig)
}

// Save writes the figure as a standalone html page.
func (p *Plot) Save(fileName string) error {
	if !strings.HasSuffix(fileName, ".html") {
		return fmt.Errorf("plot file %s must end in .html", fileName)
	}

	offline.ToHtml(p.fig, fileName)

	return nil
}

// *********** Style ***********

// Style holds the dashboard look. Methods build new layouts and never touch existing figures.
// Background colors the page behind the transparent figures.
type Style struct {
	Background string   `yaml:"background"`
	AxisColor  string   `yaml:"axisColor"`
	TickSize   float64  `yaml:"tickSize"`
	TitleSize  float64  `yaml:"titleSize"`
	LineColor  string   `yaml:"lineColor"`
	LineWidth  float64  `yaml:"lineWidth"`
	DotSize    float64  `yaml:"dotSize"`
	BandColor  string   `yaml:"bandColor"`
	BandAlpha  float64  `yaml:"bandAlpha"`
	BandLine   float64  `yaml:"bandLine"`
	Palette    []string `yaml:"palette"`
}

func DefaultStyle() Style {
	return Style{
		Background: "#efeded",
		AxisColor:  "slategray",
		TickSize:   11,
		TitleSize:  12,
		LineColor:  "slategray",
		LineWidth:  2,
		DotSize:    3,
		BandColor:  "#f0f2f6",
		BandAlpha:  0.7,
		BandLine:   0.5,
		Palette:    []string{"#e2e5e8", "#d4d8dd", "#c5ccd2", "#b7bfc7", "#a9b2bc", "#9aa6b1", "#8c99a6"},
	}
}

// Layout is a new layout of the given size: transparent backgrounds, no outline,
// slategray axes, tick labels and title. Sizes are in px (11px and 12px are the 8pt and 9pt
// of the printed charts).
func (s Style) Layout(width, height float64) *grob.Layout {
	const transparent = "rgba(0,0,0,0)"

	return &grob.Layout{
		Width:        width,
		Height:       height,
		PaperBgcolor: transparent,
		PlotBgcolor:  transparent,
		Showlegend:   grob.False,
		Margin:       &grob.LayoutMargin{L: 60, R: 20, T: 30, B: 40},
		Title:        &grob.LayoutTitle{Font: &grob.LayoutTitleFont{Color: s.AxisColor, Size: s.TitleSize}},
		Xaxis: &grob.LayoutXaxis{
			Showline:  grob.True,
			Showgrid:  grob.False,
			Linecolor: s.AxisColor,
			Tickcolor: s.AxisColor,
			Tickfont:  &grob.LayoutXaxisTickfont{Color: s.AxisColor, Size: s.TickSize},
		},
		Yaxis: &grob.LayoutYaxis{
			Showline:  grob.True,
			Linecolor: s.AxisColor,
			Tickcolor: s.AxisColor,
			Tickfont:  &grob.LayoutYaxisTickfont{Color: s.AxisColor, Size: s.TickSize},
		},
	}
}

// MapLayout is a new layout for a map of the given height; the width keeps ratio.
func (s Style) MapLayout(height, ratio float64) *grob.Layout {
	lay := s.Layout(MapWidth(height, ratio), height)
	lay.Xaxis, lay.Yaxis = nil, nil
	lay.Margin = &grob.LayoutMargin{L: 0, R: 0, T: 0, B: 0}
	lay.Geo = &grob.LayoutGeo{
		Fitbounds: "locations",
		Visible:   grob.False,
		Bgcolor:   "rgba(0,0,0,0)",
	}

	return lay
}

// Band is the band fill as an rgba color.
func (s Style) Band() string {
	return rgba(s.BandColor, s.BandAlpha)
}

// MapWidth keeps the map's aspect ratio.
func MapWidth(height, ratio float64) float64 {
	return math.Round(height * ratio)
}

// rgba turns #rrggbb and an alpha into rgba(); anything else is returned as is.
func rgba(hex string, alpha float64) string {
	var r, g, b int
	if len(hex) != 7 || hex[0] != '#' {
		return hex
	}

	if _, e := fmt.Sscanf(hex, "#%02x%02x%02x", &r, &g, &b); e != nil {
		return hex
	}

	return fmt.Sprintf("rgba(%d,%d,%d,%g)", r, g, b, alpha)
}
