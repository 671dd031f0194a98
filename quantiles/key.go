package quantiles

import (
	"fmt"
	"strconv"

	q "github.com/invertedv/qdash"
)

const (
	// QuantileCol is the quantile level column of a quantile table.
	QuantileCol = "quantile"

	// DateCol is the date column of a quantile table.
	DateCol = "date"

	// CodeCol is the constant country-code column attached on load.
	CodeCol = "CODE"

	// Median is the quantile drawn as the central line.
	Median = 0.5
)

// Levels are the supported admin levels: 0 country, 1 state/province, 2 finer subdivision.
var Levels = []string{"0", "1", "2"}

// Quantiles are the levels that may be requested.
var Quantiles = []float64{0.05, 0.25, Median, 0.75, 0.95}

// Key identifies one load: output run, admin level and quantile level.
type Key struct {
	Dir      string
	Level    string
	Quantile float64
}

func (k Key) String() string {
	return fmt.Sprintf("%s/adm%s@%s", k.Dir, k.Level, strconv.FormatFloat(k.Quantile, 'f', -1, 64))
}

// Validate checks the level and quantile are supported and the directory is a plain name.
func (k Key) Validate() error {
	if k.Dir == "" || k.Dir == "." || k.Dir == ".." || containsSep(k.Dir) {
		return fmt.Errorf("%w: bad output directory %q", q.ErrMalformedInput, k.Dir)
	}

	if !validLevel(k.Level) {
		return fmt.Errorf("%w: admin level %q not one of %v", q.ErrMalformedInput, k.Level, Levels)
	}

	for _, ql := range Quantiles {
		if q.Near(ql, k.Quantile) {
			return nil
		}
	}

	return fmt.Errorf("%w: quantile %v not one of %v", q.ErrMalformedInput, k.Quantile, Quantiles)
}

// RegionCol is the region identifier column for an admin level.
func RegionCol(level string) string {
	return "adm" + level
}

func validLevel(level string) bool {
	for _, l := range Levels {
		if l == level {
			return true
		}
	}

	return false
}

func containsSep(dir string) bool {
	for _, r := range dir {
		if r == '/' || r == '\\' {
			return true
		}
	}

	return false
}
