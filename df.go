package qdash

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// DataTypes are the types of data that the package supports
type DataTypes uint8

// values of DataTypes
const (
	DTunknown DataTypes = 0 + iota
	DTstring
	DTfloat
	DTint
	DTdate
)

// max value of DataTypes type
const MaxDT = DTdate

func (dt DataTypes) String() string {
	switch dt {
	case DTstring:
		return "DTstring"
	case DTfloat:
		return "DTfloat"
	case DTint:
		return "DTint"
	case DTdate:
		return "DTdate"
	default:
		return "DTunknown"
	}
}

// JoinType selects which unmatched rows survive Join.
type JoinType uint8

const (
	InnerJoin JoinType = 0 + iota
	LeftJoin
)

// Table is an ordered set of equal-length named columns. A Table is never modified after
// it is built: every operation returns a new Table that may share column data with its source.
type Table struct {
	cols []*Col
}

func NewTable(cols ...*Col) (*Table, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: no columns in NewTable", ErrMalformedInput)
	}

	var names []string
	for _, c := range cols {
		if c == nil {
			return nil, fmt.Errorf("%w: nil column in NewTable", ErrMalformedInput)
		}

		if has(c.Name(), names) {
			return nil, fmt.Errorf("%w: duplicate column name: %s", ErrMalformedInput, c.Name())
		}

		if c.Len() != cols[0].Len() {
			return nil, fmt.Errorf("%w: length mismatch: %s has %d rows, %s has %d",
				ErrMalformedInput, cols[0].Name(), cols[0].Len(), c.Name(), c.Len())
		}

		names = append(names, c.Name())
	}

	return &Table{cols: cols}, nil
}

// *********** Table - Info ***********

func (t *Table) RowCount() int {
	if len(t.cols) == 0 {
		return 0
	}

	return t.cols[0].Len()
}

func (t *Table) ColumnCount() int {
	return len(t.cols)
}

func (t *Table) ColumnNames() []string {
	names := make([]string, 0, len(t.cols))
	for _, c := range t.cols {
		names = append(names, c.Name())
	}

	return names
}

func (t *Table) Column(colName string) (*Col, error) {
	for _, c := range t.cols {
		if c.Name() == colName {
			return c, nil
		}
	}

	return nil, fmt.Errorf("%w: column %s not found", ErrMalformedInput, colName)
}

func (t *Table) Has(colName string) bool {
	return has(colName, t.ColumnNames())
}

func (t *Table) String() string {
	return fmt.Sprintf("table: %d rows, columns: %s", t.RowCount(), strings.Join(t.ColumnNames(), ","))
}

// *********** Table - Columns ***********

// WithColumn returns a new table with col appended.
func (t *Table) WithColumn(col *Col) (*Table, error) {
	cols := append(append([]*Col{}, t.cols...), col)

	return NewTable(cols...)
}

func (t *Table) Keep(colNames ...string) (*Table, error) {
	var cols []*Col
	for _, nm := range colNames {
		var (
			c *Col
			e error
		)
		if c, e = t.Column(nm); e != nil {
			return nil, e
		}

		cols = append(cols, c)
	}

	return NewTable(cols...)
}

func (t *Table) Drop(colNames ...string) (*Table, error) {
	var cols []*Col
	for _, c := range t.cols {
		if has(c.Name(), colNames) {
			continue
		}

		cols = append(cols, c)
	}

	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: no columns left", ErrMalformedInput)
	}

	return NewTable(cols...)
}

// Rename renames the headers found in mapping. Headers not in mapping are unchanged.
// Two columns ending up with the same name is an error.
func (t *Table) Rename(mapping map[string]string) (*Table, error) {
	cols := make([]*Col, 0, len(t.cols))
	for _, c := range t.cols {
		if to, ok := mapping[c.Name()]; ok && to != c.Name() {
			if e := validName(to); e != nil {
				return nil, e
			}

			cols = append(cols, c.renamed(to))
			continue
		}

		cols = append(cols, c)
	}

	return NewTable(cols...)
}

// *********** Table - Rows ***********

func (t *Table) take(rows []int) *Table {
	cols := make([]*Col, 0, len(t.cols))
	for _, c := range t.cols {
		cols = append(cols, &Col{Vector: c.Take(rows), name: c.Name()})
	}

	return &Table{cols: cols}
}

func (t *Table) Where(keep []bool) (*Table, error) {
	if len(keep) != t.RowCount() {
		return nil, fmt.Errorf("%w: Where needs %d indicators, got %d", ErrMalformedInput, t.RowCount(), len(keep))
	}

	var rows []int
	for ind, k := range keep {
		if k {
			rows = append(rows, ind)
		}
	}

	return t.take(rows), nil
}

// WhereFloat keeps the rows where pred is true for the value of colName.
func (t *Table) WhereFloat(colName string, pred func(x float64) bool) (*Table, error) {
	var (
		c *Col
		x []float64
		e error
	)
	if c, e = t.Column(colName); e != nil {
		return nil, e
	}

	if x, e = c.AsFloat(); e != nil {
		return nil, fmt.Errorf("column %s: %w", colName, e)
	}

	keep := make([]bool, len(x))
	for ind, xv := range x {
		keep[ind] = pred(xv)
	}

	return t.Where(keep)
}

// WhereString keeps the rows where pred is true for the canonical string of colName.
func (t *Table) WhereString(colName string, pred func(x string) bool) (*Table, error) {
	var (
		c *Col
		e error
	)
	if c, e = t.Column(colName); e != nil {
		return nil, e
	}

	keep := make([]bool, c.Len())
	for ind := 0; ind < c.Len(); ind++ {
		keep[ind] = pred(c.ElementString(ind))
	}

	return t.Where(keep)
}

// Sort is a stable ascending sort on keys, first key most significant.
func (t *Table) Sort(keys ...string) (*Table, error) {
	var by []*Col
	for _, k := range keys {
		var (
			c *Col
			e error
		)
		if c, e = t.Column(k); e != nil {
			return nil, e
		}

		by = append(by, c)
	}

	rows := seq(t.RowCount())
	sort.SliceStable(rows, func(i, j int) bool {
		ri, rj := rows[i], rows[j]
		for _, c := range by {
			if c.Less(ri, rj) {
				return true
			}

			if c.Less(rj, ri) {
				return false
			}
		}

		return false
	})

	return t.take(rows), nil
}

// Split groups the rows by colName. Keys come back in the order they first appear.
func (t *Table) Split(colName string) (keys []string, groups map[string]*Table, err error) {
	var c *Col
	if c, err = t.Column(colName); err != nil {
		return nil, nil, err
	}

	rows := make(map[string][]int)
	for ind := 0; ind < c.Len(); ind++ {
		k := c.ElementString(ind)
		if _, ok := rows[k]; !ok {
			keys = append(keys, k)
		}

		rows[k] = append(rows[k], ind)
	}

	groups = make(map[string]*Table, len(keys))
	for _, k := range keys {
		groups[k] = t.take(rows[k])
	}

	return keys, groups, nil
}

// Distinct keeps the first row of each distinct value of colName.
func (t *Table) Distinct(colName string) (*Table, error) {
	var (
		c *Col
		e error
	)
	if c, e = t.Column(colName); e != nil {
		return nil, e
	}

	seen := make(map[string]bool)
	var rows []int
	for ind := 0; ind < c.Len(); ind++ {
		k := c.ElementString(ind)
		if seen[k] {
			continue
		}

		seen[k] = true
		rows = append(rows, ind)
	}

	return t.take(rows), nil
}

// Unique is the distinct canonical strings of colName, in first-appearance order.
func (t *Table) Unique(colName string) ([]string, error) {
	keys, _, e := t.Split(colName)

	return keys, e
}

// Join matches rows of t and right on t.leftKey == right.rightKey, comparing canonical strings.
// With LeftJoin every row of t survives; right-hand values of unmatched rows are fill for
// numeric columns, "" for strings and the zero time for dates. The right key column is dropped
// and other right-hand names already in t get the suffix "_r".
func (t *Table) Join(right *Table, leftKey, rightKey string, how JoinType, fill float64) (*Table, error) {
	var (
		lk, rk *Col
		e      error
	)
	if lk, e = t.Column(leftKey); e != nil {
		return nil, e
	}

	if rk, e = right.Column(rightKey); e != nil {
		return nil, e
	}

	index := make(map[string][]int)
	for ind := 0; ind < rk.Len(); ind++ {
		k := rk.ElementString(ind)
		index[k] = append(index[k], ind)
	}

	var leftRows, rightRows []int
	for ind := 0; ind < lk.Len(); ind++ {
		matches, ok := index[lk.ElementString(ind)]
		if !ok {
			if how == LeftJoin {
				leftRows, rightRows = append(leftRows, ind), append(rightRows, -1)
			}

			continue
		}

		for _, m := range matches {
			leftRows, rightRows = append(leftRows, ind), append(rightRows, m)
		}
	}

	joined := t.take(leftRows)
	for _, c := range right.cols {
		if c.Name() == rightKey {
			continue
		}

		name := c.Name()
		if joined.Has(name) {
			name += "_r"
		}

		v := c.Take(rightRows)
		fillMissing(v, rightRows, fill)
		joined.cols = append(joined.cols, &Col{Vector: v, name: name})
	}

	return joined, nil
}

func fillMissing(v *Vector, rows []int, fill float64) {
	for ind, r := range rows {
		if r >= 0 {
			continue
		}

		switch v.VectorType() {
		case DTfloat:
			_ = v.SetFloat(fill, ind)
		case DTint:
			_ = v.SetInt(int(fill), ind)
		case DTstring:
			_ = v.SetString("", ind)
		case DTdate:
			_ = v.SetDate(time.Time{}, ind)
		}
	}
}

// FillNaN replaces NaN values of the float column colName with fill.
func (t *Table) FillNaN(colName string, fill float64) (*Table, error) {
	var (
		c *Col
		e error
	)
	if c, e = t.Column(colName); e != nil {
		return nil, e
	}

	if c.DataType() != DTfloat {
		return t, nil
	}

	v := c.Copy()
	x, _ := v.AsFloat()
	for ind, xv := range x {
		if math.IsNaN(xv) {
			x[ind] = fill
		}
	}

	cols := make([]*Col, 0, len(t.cols))
	for _, cx := range t.cols {
		if cx.Name() == colName {
			cx = &Col{Vector: v, name: colName}
		}

		cols = append(cols, cx)
	}

	return NewTable(cols...)
}
