package qdash

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// All code interacting with files is here

const (
	Sep         = ','
	DateFormat  = "2006-01-02"
	FloatFormat = 'g'
	Header      = true
	Peek        = 1000
)

// Files reads and writes delimited text files as Tables.
type Files struct {
	fieldNames []string
	fieldTypes map[string]DataTypes

	sep    rune
	header bool
	strict bool
	peek   int

	file     *os.File
	fileName string
}

type FileOpt func(f *Files) error

func NewFiles(opts ...FileOpt) (*Files, error) {
	f := &Files{
		fieldTypes: make(map[string]DataTypes),
		sep:        Sep,
		header:     Header,
		strict:     true,
		peek:       Peek,
	}

	for _, opt := range opts {
		if e := opt(f); e != nil {
			return nil, e
		}
	}

	return f, nil
}

// *********** Setters ***********

func FileSep(sep rune) FileOpt {
	return func(f *Files) error {
		if sep == '\n' || sep == '"' {
			return fmt.Errorf("invalid separator %q", sep)
		}

		f.sep = sep
		return nil
	}
}

// FileHeader: the first row holds the field names. Without a header, FileFieldNames is required.
func FileHeader(header bool) FileOpt {
	return func(f *Files) error {
		f.header = header
		return nil
	}
}

// FileStrict: a value that does not convert to its column type is an error. If false, it is
// loaded as a missing value.
func FileStrict(strict bool) FileOpt {
	return func(f *Files) error {
		f.strict = strict
		return nil
	}
}

// FilePeek sets how many rows are examined to infer the column types.
func FilePeek(rows int) FileOpt {
	return func(f *Files) error {
		if rows <= 0 {
			return fmt.Errorf("peek must be positive, got %d", rows)
		}

		f.peek = rows
		return nil
	}
}

func FileFieldNames(names []string) FileOpt {
	return func(f *Files) error {
		f.fieldNames = names
		return nil
	}
}

// FileFieldType fixes the type of a field rather than inferring it.
func FileFieldType(name string, dt DataTypes) FileOpt {
	return func(f *Files) error {
		if dt == DTunknown || dt > MaxDT {
			return fmt.Errorf("invalid data type for field %s", name)
		}

		f.fieldTypes[name] = dt
		return nil
	}
}

// *********** Methods ***********

func (f *Files) Open(fileName string) error {
	var e error
	f.fileName = fileName
	if f.file, e = os.Open(fileName); e != nil {
		if errors.Is(e, os.ErrNotExist) {
			return fmt.Errorf("%w: %v", ErrMissingData, e)
		}

		return e
	}

	return nil
}

func (f *Files) FileName() string {
	return f.fileName
}

func (f *Files) Close() error {
	if f.file != nil {
		e := f.file.Close()
		f.file = nil
		return e
	}

	return fmt.Errorf("no open files")
}

// Load reads the open file into a Table and closes it.
func (f *Files) Load() (*Table, error) {
	if f.file == nil {
		return nil, fmt.Errorf("no open files")
	}

	defer func() { _ = f.Close() }()

	t, e := f.Read(f.file)
	if e != nil {
		return nil, fmt.Errorf("%s: %w", f.fileName, e)
	}

	return t, nil
}

// Read parses delimited text from r.
func (f *Files) Read(r io.Reader) (*Table, error) {
	rdr := csv.NewReader(r)
	rdr.Comma = f.sep
	rdr.ReuseRecord = false

	var (
		records [][]string
		e       error
	)
	if records, e = rdr.ReadAll(); e != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, e)
	}

	names := f.fieldNames
	if f.header {
		if len(records) == 0 {
			return nil, fmt.Errorf("%w: empty file", ErrMalformedInput)
		}

		if names == nil {
			names = records[0]
		}

		records = records[1:]
	}

	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no field names", ErrMalformedInput)
	}

	cols := make([]*Col, 0, len(names))
	for fld, name := range names {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		raw := make([]string, len(records))
		for row, rec := range records {
			if fld >= len(rec) {
				return nil, fmt.Errorf("%w: row %d has %d fields, want %d", ErrMalformedInput, row+1, len(rec), len(names))
			}

			raw[row] = rec[fld]
		}

		dt, fixed := f.fieldTypes[name]
		if !fixed {
			peek := raw
			if len(peek) > f.peek {
				peek = peek[:f.peek]
			}

			dt = bestType(peek)
		}

		var v *Vector
		if v, e = f.parse(raw, dt, !fixed); e != nil {
			return nil, fmt.Errorf("field %s: %w", name, e)
		}

		cols = append(cols, &Col{Vector: v, name: name})
	}

	return NewTable(cols...)
}

// parse converts raw to dt. If promote is set, an int column with a missing or non-integer
// cell past the peek window is parsed again as float.
func (f *Files) parse(raw []string, dt DataTypes, promote bool) (*Vector, error) {
	v := MakeVector(dt, len(raw))
	for ind, s := range raw {
		var (
			x  any
			ok bool
		)

		if dt == DTstring {
			_ = v.SetString(s, ind)
			continue
		}

		if strings.TrimSpace(s) == "" {
			ok = false
		} else {
			x, ok = toDataType(s, dt)
		}

		if !ok {
			if dt == DTint && promote {
				return f.parse(raw, DTfloat, false)
			}

			if f.strict && strings.TrimSpace(s) != "" {
				return nil, fmt.Errorf("%w: cannot convert %q to %s at row %d", ErrMalformedInput, s, dt, ind+1)
			}

			switch dt {
			case DTfloat:
				_ = v.SetFloat(math.NaN(), ind)
			case DTint:
				_ = v.SetInt(0, ind)
			}

			continue
		}

		switch dt {
		case DTfloat:
			_ = v.SetFloat(x.(float64), ind)
		case DTint:
			_ = v.SetInt(x.(int), ind)
		case DTdate:
			_ = v.SetDate(x.(time.Time), ind)
		}
	}

	return v, nil
}

// Save writes t to fileName with a header row.
func (f *Files) Save(fileName string, t *Table) error {
	var (
		fl *os.File
		e  error
	)
	if fl, e = os.Create(fileName); e != nil {
		return e
	}
	defer func() { _ = fl.Close() }()

	w := csv.NewWriter(fl)
	w.Comma = f.sep
	if f.header {
		if e = w.Write(t.ColumnNames()); e != nil {
			return e
		}
	}

	for row := 0; row < t.RowCount(); row++ {
		rec := make([]string, 0, t.ColumnCount())
		for _, c := range t.cols {
			rec = append(rec, formatElement(c.Vector, row))
		}

		if e = w.Write(rec); e != nil {
			return e
		}
	}

	w.Flush()

	return w.Error()
}

func formatElement(v *Vector, row int) string {
	if v.VectorType() == DTfloat {
		x := v.AsAny().([]float64)[row]
		if math.IsNaN(x) {
			return ""
		}

		return strconv.FormatFloat(x, FloatFormat, -1, 64)
	}

	return v.ElementString(row)
}

func toDataType(x any, dt DataTypes) (any, bool) {
	switch dt {
	case DTfloat:
		return toFloat(x)
	case DTint:
		return toInt(x)
	case DTdate:
		return toDate(x)
	case DTstring:
		return toString(x)
	}

	return nil, false
}
