package qdash

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"
)

// All code interacting with a database is here

const (
	ch = "clickhouse"
	pg = "postgres"
)

// Dialect adapts query construction and result loading to one database.
type Dialect struct {
	db      *sql.DB
	dialect string
}

func NewDialect(dialect string, db *sql.DB) (*Dialect, error) {
	dialect = strings.ToLower(dialect)
	if dialect != ch && dialect != pg {
		return nil, fmt.Errorf("no support for database %s", dialect)
	}

	if db == nil {
		return nil, fmt.Errorf("nil *sql.DB in NewDialect")
	}

	return &Dialect{db: db, dialect: dialect}, nil
}

// ***************** Methods *****************

func (d *Dialect) Close() error {
	return d.db.Close()
}

func (d *Dialect) DB() *sql.DB {
	return d.db
}

func (d *Dialect) DialectName() string {
	return d.dialect
}

// Placeholder is the bind parameter for the n-th (1-based) argument.
func (d *Dialect) Placeholder(n int) string {
	if d.dialect == pg {
		return fmt.Sprintf("$%d", n)
	}

	return "?"
}

// Load runs qry and returns the result as a Table. Column types come from the first
// non-null value of each column. NULL floats load as NaN.
func (d *Dialect) Load(ctx context.Context, qry string, args ...any) (*Table, error) {
	var (
		rows *sql.Rows
		e    error
	)
	if rows, e = d.db.QueryContext(ctx, qry, args...); e != nil {
		return nil, e
	}
	defer func() { _ = rows.Close() }()

	var names []string
	if names, e = rows.Columns(); e != nil {
		return nil, e
	}

	row2read := make([]any, len(names))
	for ind := range row2read {
		var x any
		row2read[ind] = &x
	}

	data := make([][]any, len(names))
	for rows.Next() {
		if e = rows.Scan(row2read...); e != nil {
			return nil, e
		}

		for ind := range row2read {
			data[ind] = append(data[ind], deref(*row2read[ind].(*any)))
		}
	}

	if e = rows.Err(); e != nil {
		return nil, e
	}

	if len(data) == 0 || len(data[0]) == 0 {
		return nil, fmt.Errorf("%w: query returned no rows", ErrMissingData)
	}

	cols := make([]*Col, 0, len(names))
	for ind, name := range names {
		dt := DTstring
		for _, z := range data[ind] {
			if z != nil {
				dt = dbType(z)
				break
			}
		}

		v := MakeVector(dt, len(data[ind]))
		for rx, z := range data[ind] {
			if e = assign(v, z, rx); e != nil {
				return nil, fmt.Errorf("column %s: %w", name, e)
			}
		}

		if dt == DTdate {
			utc(v)
		}

		cols = append(cols, &Col{Vector: v, name: name})
	}

	return NewTable(cols...)
}

// Distinct returns the distinct values of col in table, sorted.
func (d *Dialect) Distinct(ctx context.Context, table, col string) ([]string, error) {
	qry := fmt.Sprintf("SELECT DISTINCT %s FROM %s ORDER BY %s", col, table, col)

	var (
		rows *sql.Rows
		e    error
	)
	if rows, e = d.db.QueryContext(ctx, qry); e != nil {
		return nil, e
	}
	defer func() { _ = rows.Close() }()

	var vals []string
	for rows.Next() {
		var x any
		if e = rows.Scan(&x); e != nil {
			return nil, e
		}

		s, _ := toString(deref(x))
		vals = append(vals, s.(string))
	}

	return vals, rows.Err()
}

// deref strips the pointer drivers return for nullable columns.
func deref(x any) any {
	switch z := x.(type) {
	case *float64:
		if z == nil {
			return nil
		}
		return *z
	case *float32:
		if z == nil {
			return nil
		}
		return float64(*z)
	case *int64:
		if z == nil {
			return nil
		}
		return *z
	case *int32:
		if z == nil {
			return nil
		}
		return *z
	case *string:
		if z == nil {
			return nil
		}
		return *z
	case *time.Time:
		if z == nil {
			return nil
		}
		return *z
	case []byte:
		return string(z)
	}

	return x
}

func dbType(z any) DataTypes {
	switch z.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return DTint
	case float32, float64:
		return DTfloat
	case time.Time:
		return DTdate
	default:
		return DTstring
	}
}

// assign sets element indx of v to val
func assign(v *Vector, val any, indx int) error {
	if val == nil {
		switch v.VectorType() {
		case DTfloat:
			return v.SetFloat(math.NaN(), indx)
		default:
			return nil
		}
	}

	switch v.VectorType() {
	case DTfloat:
		if x, ok := toFloat(val); ok {
			return v.SetFloat(x.(float64), indx)
		}
	case DTint:
		if x, ok := toInt(val); ok {
			return v.SetInt(x.(int), indx)
		}
	case DTdate:
		if x, ok := toDate(val); ok {
			return v.SetDate(x.(time.Time), indx)
		}
	case DTstring:
		x, _ := toString(val)
		return v.SetString(x.(string), indx)
	}

	return fmt.Errorf("%w: cannot assign %v to %s", ErrMalformedInput, val, v.VectorType())
}

// utc changes the entries of date slices to be midnight UTC
func utc(v *Vector) {
	col, _ := v.AsDate()
	for rx := 0; rx < v.Len(); rx++ {
		col[rx] = time.Date(col[rx].Year(), col[rx].Month(), col[rx].Day(), 0, 0, 0, 0, time.UTC)
	}
}
