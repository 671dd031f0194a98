package qdash

import (
	"encoding/json"
	"path/filepath"
	"testing"

	grob "github.com/MetalBlueberry/go-plotly/graph_objects"
	"github.com/stretchr/testify/assert"
)

func TestNewPlot(t *testing.T) {
	p, e := NewPlot(PlotTitle("Daily deaths"), PlotXlabel("date"), PlotYlabel("deaths"), PlotLegend(true),
		PlotWidth(800), PlotHeight(300))
	assert.Nil(t, e)
	assert.Equal(t, 800.0, p.Layout().Width)
	assert.Equal(t, "Daily deaths", p.Layout().Title.Text)

	_, e = NewPlot(PlotHeight(-1))
	assert.NotNil(t, e)

	p.AddTraces(&grob.Scatter{Type: grob.TraceTypeScatter, X: []float64{1, 2}, Y: []float64{3, 4}})
	assert.Equal(t, 1, len(p.Traces()))

	b, e := p.JSON()
	assert.Nil(t, e)

	var fig map[string]any
	assert.Nil(t, json.Unmarshal(b, &fig))
	assert.Contains(t, fig, "data")
	assert.Contains(t, fig, "layout")

	assert.NotNil(t, p.Save(filepath.Join(t.TempDir(), "plot.png")))
}

func TestStyle_Layout(t *testing.T) {
	s := DefaultStyle()
	a := s.Layout(1200, 350)
	b := s.Layout(1200, 900)

	// each call is a new layout
	assert.Equal(t, 350.0, a.Height)
	assert.Equal(t, 900.0, b.Height)
	assert.Equal(t, "slategray", a.Xaxis.Linecolor)

	m := s.MapLayout(460, 650.0/380.0)
	assert.Equal(t, 787.0, m.Width)
	assert.Equal(t, 460.0, m.Height)
	assert.NotNil(t, m.Geo)
}

func TestPlotStyle(t *testing.T) {
	p, e := NewPlot(PlotWidth(640), PlotStyle(DefaultStyle()), PlotTitle("Daily cases"))
	assert.Nil(t, e)
	assert.Equal(t, 640.0, p.Layout().Width)
	assert.Equal(t, "Daily cases", p.Layout().Title.Text)
	assert.Equal(t, 12.0, p.Layout().Title.Font.Size)
	assert.Equal(t, "slategray", p.Layout().Yaxis.Linecolor)
}

func TestStyle_Band(t *testing.T) {
	s := DefaultStyle()
	assert.Equal(t, "rgba(240,242,246,0.7)", s.Band())
	assert.Equal(t, 7, len(s.Palette))
	assert.Equal(t, 1078.0, MapWidth(460, 750.0/320.0))
}

func TestTabSet(t *testing.T) {
	ts := NewTabSet("timeseries")
	p, _ := NewPlot()
	assert.Nil(t, ts.Add("Daily deaths", p))
	assert.Nil(t, ts.Add("Daily cases", p))
	assert.NotNil(t, ts.Add("Daily deaths", p))
	assert.Equal(t, 2, ts.Len())
	assert.Equal(t, []string{"Daily deaths", "Daily cases"}, ts.Titles())
	assert.Nil(t, ts.Tab("absent"))
}
