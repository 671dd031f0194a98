package dashboard

import (
	"errors"
	"net/url"
	"testing"

	q "github.com/invertedv/qdash"
	"github.com/stretchr/testify/assert"
)

var labels = []string{"Daily reported cases", "Daily deaths", "Current hospitalizations", "Cumulative reported cases", "Daily tests"}

func TestDefaultSelection(t *testing.T) {
	sel := DefaultSelection(labels)
	assert.Equal(t, labels[:4], sel.Metrics)
	assert.Equal(t, DefaultLevel, sel.Level)
	assert.False(t, sel.ShowMap)
	assert.True(t, sel.ShowChart)
	assert.True(t, sel.ShowErrorBars)
	assert.Equal(t, DefaultLower, sel.Lower)
	assert.Equal(t, DefaultUpper, sel.Upper)

	assert.Equal(t, 1, len(DefaultSelection(labels[:1]).Metrics))
}

func TestParseSelection(t *testing.T) {
	sel, e := ParseSelection(url.Values{}, labels)
	assert.Nil(t, e)
	assert.Equal(t, DefaultSelection(labels), sel)

	v := url.Values{
		"dir":    {"run2"},
		"level":  {"0"},
		"metric": {"Daily deaths", "Daily tests", "Daily deaths"},
		"map":    {"on"},
		"lower":  {"0.25"},
		"upper":  {"0.95"},
		"date":   {"2020-04-01"},
	}
	sel, e = ParseSelection(v, labels)
	assert.Nil(t, e)
	assert.Equal(t, "run2", sel.Dir)
	assert.Equal(t, "0", sel.Level)
	assert.Equal(t, []string{"Daily deaths", "Daily tests"}, sel.Metrics)
	assert.True(t, sel.ShowMap)
	assert.True(t, sel.ShowChart)
	assert.Equal(t, 0.25, sel.Lower)
	assert.Equal(t, 0.95, sel.Upper)
	assert.Equal(t, "2020-04-01", sel.Date.Format(q.DateFormat))

	// a submitted form without a check box means it is off
	sel, e = ParseSelection(url.Values{"submit": {"1"}, "chart": {"on"}}, labels)
	assert.Nil(t, e)
	assert.False(t, sel.ShowMap)
	assert.True(t, sel.ShowChart)
	assert.False(t, sel.ShowErrorBars)
	assert.Empty(t, sel.Metrics)

	back, e := ParseSelection(sel.Query(), labels)
	assert.Nil(t, e)
	assert.Equal(t, sel, back)
}

func TestParseSelection_Errors(t *testing.T) {
	for _, v := range []url.Values{
		{"level": {"3"}},
		{"metric": {"Weekly deaths"}},
		{"lower": {"0.5"}},
		{"upper": {"high"}},
		{"map": {"maybe"}},
		{"date": {"04/01/2020"}},
	} {
		_, e := ParseSelection(v, labels)
		assert.True(t, errors.Is(e, q.ErrMalformedInput), v.Encode())
	}
}

func TestEffective(t *testing.T) {
	sel := DefaultSelection(labels)

	// chart alone is tall
	l := Effective(sel)
	assert.False(t, l.ShowMap)
	assert.Equal(t, chartHeightTall, l.ChartHeight)

	sel.ShowMap = true
	l = Effective(sel)
	assert.True(t, l.ShowMap)
	assert.Equal(t, mapHeight, l.MapHeight)
	assert.Equal(t, chartHeight, l.ChartHeight)

	sel.ShowChart = false
	l = Effective(sel)
	assert.Equal(t, mapHeightTall, l.MapHeight)

	// no map at level 2
	sel.Level, sel.ShowChart = "2", true
	l = Effective(sel)
	assert.False(t, l.ShowMap)
	assert.Equal(t, chartHeightTall, l.ChartHeight)
}
