package chart

import (
	"errors"
	"testing"
	"time"

	grob "github.com/MetalBlueberry/go-plotly/graph_objects"
	q "github.com/invertedv/qdash"
	"github.com/invertedv/qdash/geo"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
)

func square(x0, y0 float64) orb.Polygon {
	return orb.Polygon{{{x0, y0}, {x0 + 1, y0}, {x0 + 1, y0 + 1}, {x0, y0 + 1}, {x0, y0}}}
}

func statesLayer() *geo.Layer {
	return &geo.Layer{Name: "states", Features: []*geo.Feature{
		{ID: "f0", Props: map[string]string{geo.StateName: "California", geo.StatePostal: "CA"}, Geometry: square(-120, 35)},
		{ID: "f1", Props: map[string]string{geo.StateName: "New York", geo.StatePostal: "NY"}, Geometry: square(-78, 41)},
		{ID: "f2", Props: map[string]string{geo.StateName: "Texas", geo.StatePostal: "TX"}, Geometry: square(-100, 30)},
	}}
}

func fipsTable(t *testing.T) *q.Table {
	codes, _ := q.NewCol(geo.FIPSCol, []int{6, 36, 48}, q.DTint)
	names, _ := q.NewCol(geo.FIPSState, []string{"California", "New York", "Texas"}, q.DTstring)
	tbl, e := q.NewTable(codes, names)
	assert.Nil(t, e)

	return tbl
}

func choroplethOf(t *testing.T, ts *q.TabSet, title string) *grob.Choropleth {
	t.Helper()
	tab := ts.Tab(title)
	assert.NotNil(t, tab)
	assert.Equal(t, 1, len(tab.Plot.Traces()))

	c, ok := tab.Plot.Traces()[0].(*grob.Choropleth)
	assert.True(t, ok)

	return c
}

func TestChoroplethTabs_States(t *testing.T) {
	median, _, _ := bands(t)
	ts, e := ChoroplethTabs(median, statesLayer(), StateJoin(fipsTable(t), "adm1"), []string{deaths}, DefaultOptions())
	assert.Nil(t, e)

	c := choroplethOf(t, ts, deaths)

	// latest date: New York 30, California 3, Texas has no data
	assert.Equal(t, []string{"f0", "f1", "f2"}, c.Locations)
	assert.Equal(t, []float64{3, 30, 0}, c.Z)
	assert.Equal(t, []string{"California", "New York", "Texas"}, c.Text)
	assert.Equal(t, 0.0, c.Zmin)
	assert.Equal(t, 30.0, c.Zmax)

	lay := ts.Tab(deaths).Plot.Layout()
	assert.Equal(t, DefaultMapHeight, lay.Height)
	assert.Equal(t, q.MapWidth(DefaultMapHeight, StateRatio), lay.Width)

	opts := DefaultOptions()
	opts.Date = day("2020-03-01")
	ts, e = ChoroplethTabs(median, statesLayer(), StateJoin(fipsTable(t), "adm1"), []string{deaths}, opts)
	assert.Nil(t, e)
	assert.Equal(t, []float64{1, 10, 0}, choroplethOf(t, ts, deaths).Z)
}

func TestChoroplethTabs_NoMatches(t *testing.T) {
	unmatched := quantileTable(t, []int{99, 98}, []string{"2020-03-01", "2020-03-01"}, []float64{5, 7})
	ts, e := ChoroplethTabs(unmatched, statesLayer(), StateJoin(fipsTable(t), "adm1"), []string{deaths}, DefaultOptions())
	assert.Nil(t, e)

	c := choroplethOf(t, ts, deaths)
	assert.Equal(t, []float64{0, 0, 0}, c.Z)
	assert.Equal(t, 0.0, c.Zmin)
	assert.Equal(t, 1.0, c.Zmax)

	_, e = ChoroplethTabs(unmatched, statesLayer(), StateJoin(fipsTable(t), "adm1"), []string{"absent"}, DefaultOptions())
	assert.True(t, errors.Is(e, q.ErrMalformedInput))
}

func TestChoroplethTabs_Countries(t *testing.T) {
	layer := &geo.Layer{Name: "countries", Features: []*geo.Feature{
		{ID: "f0", Props: map[string]string{geo.CountryName: "United States of America", geo.CountryCode: "USA"}, Geometry: square(-100, 30)},
		{ID: "f1", Props: map[string]string{geo.CountryName: "Canada", geo.CountryCode: "CAN"}, Geometry: square(-100, 50)},
	}}

	median, _, _ := bands(t)
	code, _ := q.Constant("CODE", "USA", median.RowCount())
	tagged, e := median.WithColumn(code)
	assert.Nil(t, e)

	ts, e := ChoroplethTabs(tagged, layer, CountryJoin("CODE"), []string{deaths}, DefaultOptions())
	assert.Nil(t, e)

	// several rows match USA; the first one at the latest date is kept
	c := choroplethOf(t, ts, deaths)
	assert.Equal(t, []float64{3, 0}, c.Z)
	assert.Equal(t, q.MapWidth(DefaultMapHeight, CountryRatio), ts.Tab(deaths).Plot.Layout().Width)
}

func TestZRange(t *testing.T) {
	lo, hi := ZRange([]float64{3, -1, 7})
	assert.Equal(t, -1.0, lo)
	assert.Equal(t, 7.0, hi)

	lo, hi = ZRange([]float64{2, 2})
	assert.Equal(t, 2.0, lo)
	assert.Equal(t, 3.0, hi)

	lo, hi = ZRange(nil)
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 1.0, hi)
}

func TestColorscale(t *testing.T) {
	cs := Colorscale([]string{"#000000", "#ffffff"})
	assert.Equal(t, [][]any{{0.0, "#000000"}, {0.5, "#000000"}, {0.5, "#ffffff"}, {1.0, "#ffffff"}}, cs)
	assert.Nil(t, Colorscale(nil))
}

func TestSnapshot(t *testing.T) {
	median, _, _ := bands(t)
	latest, e := Snapshot(median, "date", time.Time{})
	assert.Nil(t, e)
	assert.Equal(t, 2, latest.RowCount())

	none, e := Snapshot(median, "date", day("2021-01-01"))
	assert.Nil(t, e)
	assert.Equal(t, 0, none.RowCount())

	_, e = Snapshot(median, "absent", time.Time{})
	assert.NotNil(t, e)
}
