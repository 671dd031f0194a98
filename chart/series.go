package chart

import (
	"fmt"
	"math"
	"time"

	q "github.com/invertedv/qdash"
)

// Series is the date-ordered median of one region with its band. Lower and Upper are NaN
// where the band table has no row for the (region, date).
type Series struct {
	Region string
	Dates  []time.Time
	Median []float64
	Lower  []float64
	Upper  []float64
}

// RegionSeries splits median by regionCol, regions in first-appearance order, and lines up
// lower and upper on (region, date). lower or upper may be nil. misaligned counts the keys
// present in one table and missing from another.
func RegionSeries(median, lower, upper *q.Table, regionCol, dateCol, metric string) (series []*Series, misaligned int, err error) {
	for _, c := range []string{regionCol, dateCol, metric} {
		if !median.Has(c) {
			return nil, 0, fmt.Errorf("%w: median table has no column %s", q.ErrMalformedInput, c)
		}
	}

	var lo, up map[string]float64
	if lower != nil {
		if lo, err = bandIndex(lower, regionCol, dateCol, metric); err != nil {
			return nil, 0, err
		}
	}

	if upper != nil {
		if up, err = bandIndex(upper, regionCol, dateCol, metric); err != nil {
			return nil, 0, err
		}
	}

	var (
		keys   []string
		groups map[string]*q.Table
	)
	if keys, groups, err = median.Split(regionCol); err != nil {
		return nil, 0, err
	}

	used := make(map[string]bool)
	for _, region := range keys {
		var s *Series
		if s, err = regionSeries(region, groups[region], dateCol, metric); err != nil {
			return nil, 0, err
		}

		s.Lower, s.Upper = make([]float64, len(s.Dates)), make([]float64, len(s.Dates))
		for ind, dt := range s.Dates {
			k := bandKey(region, dt.Format(q.DateFormat))
			used[k] = true
			s.Lower[ind], s.Upper[ind] = lookup(lo, k, lower != nil, &misaligned), lookup(up, k, upper != nil, &misaligned)
		}

		series = append(series, s)
	}

	for _, idx := range []map[string]float64{lo, up} {
		for k := range idx {
			if !used[k] {
				misaligned++
			}
		}
	}

	return series, misaligned, nil
}

func regionSeries(region string, t *q.Table, dateCol, metric string) (*Series, error) {
	var (
		sorted *q.Table
		e      error
	)
	if sorted, e = t.Sort(dateCol); e != nil {
		return nil, e
	}

	var dc, mc *q.Col
	if dc, e = sorted.Column(dateCol); e != nil {
		return nil, e
	}

	if mc, e = sorted.Column(metric); e != nil {
		return nil, e
	}

	s := &Series{Region: region}
	if s.Dates, e = dc.AsDate(); e != nil {
		return nil, e
	}

	if s.Median, e = mc.AsFloat(); e != nil {
		return nil, fmt.Errorf("metric %s: %w", metric, e)
	}

	return s, nil
}

// bandIndex maps (region, date) to the metric value of a band table.
func bandIndex(t *q.Table, regionCol, dateCol, metric string) (map[string]float64, error) {
	var (
		rc, dc, mc *q.Col
		x          []float64
		e          error
	)
	if rc, e = t.Column(regionCol); e != nil {
		return nil, e
	}

	if dc, e = t.Column(dateCol); e != nil {
		return nil, e
	}

	if mc, e = t.Column(metric); e != nil {
		return nil, e
	}

	if x, e = mc.AsFloat(); e != nil {
		return nil, fmt.Errorf("metric %s: %w", metric, e)
	}

	dates := make([]string, dc.Len())
	dts, ed := dc.AsDate()
	for ind := range dates {
		if ed != nil {
			dates[ind] = dc.ElementString(ind)
			continue
		}

		dates[ind] = dts[ind].Format(q.DateFormat)
	}

	idx := make(map[string]float64, len(x))
	for ind, xv := range x {
		idx[bandKey(rc.ElementString(ind), dates[ind])] = xv
	}

	return idx, nil
}

func bandKey(region, date string) string {
	return region + "\x00" + date
}

func lookup(idx map[string]float64, k string, present bool, misaligned *int) float64 {
	if !present {
		return math.NaN()
	}

	x, ok := idx[k]
	if !ok {
		*misaligned++
		return math.NaN()
	}

	return x
}
