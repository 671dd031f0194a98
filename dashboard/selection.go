package dashboard

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	q "github.com/invertedv/qdash"
)

const (
	DefaultLevel   = "1"
	DefaultLower   = 0.05
	DefaultUpper   = 0.75
	defaultMetrics = 4

	chartHeight     = 350.0
	chartHeightTall = 900.0
	mapHeight       = 460.0
	mapHeightTall   = 850.0
)

// LevelChoices, LowerChoices and UpperChoices are the options the sidebar offers, default first.
var (
	LevelChoices = []string{"1", "0", "2"}
	LowerChoices = []float64{0.05, 0.25}
	UpperChoices = []float64{0.75, 0.95}
)

// Selection is what the user picked in the sidebar.
type Selection struct {
	Dir           string    `json:"dir"`
	Level         string    `json:"level"`
	Metrics       []string  `json:"metrics"`
	ShowMap       bool      `json:"showMap"`
	ShowChart     bool      `json:"showChart"`
	ShowErrorBars bool      `json:"showErrorBars"`
	Lower         float64   `json:"lower"`
	Upper         float64   `json:"upper"`
	Date          time.Time `json:"date"`
}

// DefaultSelection is the page as first opened: the first four metrics, chart and error bars
// on, map off.
func DefaultSelection(labels []string) Selection {
	n := min(defaultMetrics, len(labels))

	return Selection{
		Level:         DefaultLevel,
		Metrics:       append([]string(nil), labels[:n]...),
		ShowMap:       false,
		ShowChart:     true,
		ShowErrorBars: true,
		Lower:         DefaultLower,
		Upper:         DefaultUpper,
	}
}

// ParseSelection reads a selection from query parameters: dir, level, metric (repeated), map,
// chart, bands, lower, upper, date. Absent parameters keep their defaults unless the form was
// submitted (parameter "submit"), in which case absent check boxes are off and an absent metric
// selects none.
func ParseSelection(v url.Values, labels []string) (Selection, error) {
	sel := DefaultSelection(labels)
	sel.Dir = strings.TrimSpace(v.Get("dir"))
	submitted := v.Has("submit")

	if lvl := v.Get("level"); lvl != "" {
		if !has(lvl, LevelChoices) {
			return sel, fmt.Errorf("%w: admin level %q not one of %v", q.ErrMalformedInput, lvl, LevelChoices)
		}

		sel.Level = lvl
	}

	if ms, ok := v["metric"]; ok || submitted {
		sel.Metrics = nil
		for _, m := range ms {
			if !has(m, labels) {
				return sel, fmt.Errorf("%w: unknown metric %q", q.ErrMalformedInput, m)
			}

			if !has(m, sel.Metrics) {
				sel.Metrics = append(sel.Metrics, m)
			}
		}
	}

	var e error
	for name, dest := range map[string]*bool{"map": &sel.ShowMap, "chart": &sel.ShowChart, "bands": &sel.ShowErrorBars} {
		if *dest, e = parseBool(v, name, *dest, submitted); e != nil {
			return sel, e
		}
	}

	if sel.Lower, e = parseChoice(v, "lower", sel.Lower, LowerChoices); e != nil {
		return sel, e
	}

	if sel.Upper, e = parseChoice(v, "upper", sel.Upper, UpperChoices); e != nil {
		return sel, e
	}

	if d := v.Get("date"); d != "" {
		if sel.Date, e = time.Parse(q.DateFormat, d); e != nil {
			return sel, fmt.Errorf("%w: date %q", q.ErrMalformedInput, d)
		}
	}

	return sel, nil
}

func parseBool(v url.Values, name string, def, submitted bool) (bool, error) {
	if !v.Has(name) {
		return def && !submitted, nil
	}

	s := strings.ToLower(v.Get(name))
	if s == "on" || s == "" {
		return true, nil
	}

	b, e := strconv.ParseBool(s)
	if e != nil {
		return false, fmt.Errorf("%w: %s=%q", q.ErrMalformedInput, name, s)
	}

	return b, nil
}

func parseChoice(v url.Values, name string, def float64, choices []float64) (float64, error) {
	s := v.Get(name)
	if s == "" {
		return def, nil
	}

	x, e := strconv.ParseFloat(s, 64)
	if e != nil {
		return 0, fmt.Errorf("%w: %s=%q", q.ErrMalformedInput, name, s)
	}

	for _, c := range choices {
		if q.Near(c, x) {
			return c, nil
		}
	}

	return 0, fmt.Errorf("%w: %s %v not one of %v", q.ErrMalformedInput, name, x, choices)
}

// Query is sel as query parameters ParseSelection reads back.
func (sel Selection) Query() url.Values {
	v := url.Values{}
	v.Set("submit", "1")
	v.Set("dir", sel.Dir)
	v.Set("level", sel.Level)
	for _, m := range sel.Metrics {
		v.Add("metric", m)
	}

	v.Set("map", strconv.FormatBool(sel.ShowMap))
	v.Set("chart", strconv.FormatBool(sel.ShowChart))
	v.Set("bands", strconv.FormatBool(sel.ShowErrorBars))
	v.Set("lower", strconv.FormatFloat(sel.Lower, 'f', -1, 64))
	v.Set("upper", strconv.FormatFloat(sel.Upper, 'f', -1, 64))
	if !sel.Date.IsZero() {
		v.Set("date", sel.Date.Format(q.DateFormat))
	}

	return v
}

// Layout is what the page actually shows for a selection.
type Layout struct {
	ShowMap     bool    `json:"showMap"`
	ShowChart   bool    `json:"showChart"`
	MapHeight   float64 `json:"mapHeight"`
	ChartHeight float64 `json:"chartHeight"`
}

// Effective applies the visibility rules: level 2 has no map, a map alone is tall and a chart
// without a map is tall.
func Effective(sel Selection) Layout {
	l := Layout{
		ShowMap:     sel.ShowMap && sel.Level != "2",
		ShowChart:   sel.ShowChart,
		MapHeight:   mapHeight,
		ChartHeight: chartHeight,
	}

	if l.ShowMap && !l.ShowChart {
		l.MapHeight = mapHeightTall
	}

	if !l.ShowMap {
		l.ChartHeight = chartHeightTall
	}

	return l
}

func has[C comparable](needle C, haystack []C) bool {
	for _, h := range haystack {
		if h == needle {
			return true
		}
	}

	return false
}
