package qdash

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Vector is a typed slice. The data is one of []float64, []int, []string or []time.Time.
type Vector struct {
	dt DataTypes

	data any
}

func NewVector(data any, dt DataTypes) (*Vector, error) {
	var (
		v  any
		ok bool
	)
	if v, ok = toSlc(data, dt); !ok {
		return nil, fmt.Errorf("%w: cannot make vector of type %s", ErrMalformedInput, dt)
	}

	return &Vector{dt: dt, data: v}, nil
}

func MakeVector(dt DataTypes, n int) *Vector {
	switch dt {
	case DTfloat:
		return &Vector{dt: dt, data: make([]float64, n)}
	case DTint:
		return &Vector{dt: dt, data: make([]int, n)}
	case DTstring:
		return &Vector{dt: dt, data: make([]string, n)}
	case DTdate:
		return &Vector{dt: dt, data: make([]time.Time, n)}
	default:
		panic(fmt.Errorf("cannot make Vector with data type %s", dt))
	}
}

func (v *Vector) VectorType() DataTypes {
	return v.dt
}

func (v *Vector) Len() int {
	switch v.dt {
	case DTfloat:
		return len(v.data.([]float64))
	case DTint:
		return len(v.data.([]int))
	case DTstring:
		return len(v.data.([]string))
	case DTdate:
		return len(v.data.([]time.Time))
	}

	return 0
}

// *********** Setters ***********

func (v *Vector) SetFloat(val float64, indx int) error {
	if v.VectorType() != DTfloat {
		return fmt.Errorf("vector isn't DTfloat")
	}

	if indx < 0 || indx >= v.Len() {
		return fmt.Errorf("index out of range")
	}

	v.data.([]float64)[indx] = val

	return nil
}

func (v *Vector) SetInt(val, indx int) error {
	if v.VectorType() != DTint {
		return fmt.Errorf("vector isn't DTint")
	}

	if indx < 0 || indx >= v.Len() {
		return fmt.Errorf("index out of range")
	}

	v.data.([]int)[indx] = val

	return nil
}

func (v *Vector) SetString(val string, indx int) error {
	if v.VectorType() != DTstring {
		return fmt.Errorf("vector isn't DTstring")
	}

	if indx < 0 || indx >= v.Len() {
		return fmt.Errorf("index out of range")
	}

	v.data.([]string)[indx] = val

	return nil
}

func (v *Vector) SetDate(val time.Time, indx int) error {
	if v.VectorType() != DTdate {
		return fmt.Errorf("vector isn't DTdate")
	}

	if indx < 0 || indx >= v.Len() {
		return fmt.Errorf("index out of range")
	}

	v.data.([]time.Time)[indx] = val

	return nil
}

// *********** Getters ***********

func (v *Vector) AsAny() any {
	return v.data
}

// AsFloat returns the data as []float64. Ints are converted, other types fail.
// The returned slice must not be modified when the vector is of type DTfloat.
func (v *Vector) AsFloat() ([]float64, error) {
	switch v.dt {
	case DTfloat:
		return v.data.([]float64), nil
	case DTint:
		xOut := make([]float64, v.Len())
		for ind, xx := range v.data.([]int) {
			xOut[ind] = float64(xx)
		}

		return xOut, nil
	}

	return nil, fmt.Errorf("%w: cannot convert %s to float", ErrMalformedInput, v.dt)
}

func (v *Vector) AsInt() ([]int, error) {
	switch v.dt {
	case DTint:
		return v.data.([]int), nil
	case DTfloat:
		xOut := make([]int, v.Len())
		for ind, xx := range v.data.([]float64) {
			xOut[ind] = int(xx)
		}

		return xOut, nil
	}

	return nil, fmt.Errorf("%w: cannot convert %s to int", ErrMalformedInput, v.dt)
}

// AsString returns the canonical string form of every element.
func (v *Vector) AsString() []string {
	if v.dt == DTstring {
		return v.data.([]string)
	}

	xOut := make([]string, v.Len())
	for ind := 0; ind < v.Len(); ind++ {
		xOut[ind] = v.ElementString(ind)
	}

	return xOut
}

func (v *Vector) AsDate() ([]time.Time, error) {
	if v.dt == DTdate {
		return v.data.([]time.Time), nil
	}

	if v.dt != DTstring {
		return nil, fmt.Errorf("%w: cannot convert %s to date", ErrMalformedInput, v.dt)
	}

	var (
		x  any
		ok bool
	)
	if x, ok = toSlc(v.data, DTdate); !ok {
		return nil, fmt.Errorf("%w: cannot convert strings to date", ErrMalformedInput)
	}

	return x.([]time.Time), nil
}

func (v *Vector) Element(indx int) any {
	switch v.dt {
	case DTfloat:
		return v.data.([]float64)[indx]
	case DTint:
		return v.data.([]int)[indx]
	case DTstring:
		return v.data.([]string)[indx]
	case DTdate:
		return v.data.([]time.Time)[indx]
	}

	return nil
}

// ElementString is the canonical string form of element indx. Join keys are compared on it,
// so an int 6 and a float 6.0 are the same key.
func (v *Vector) ElementString(indx int) string {
	switch v.dt {
	case DTfloat:
		f := v.data.([]float64)[indx]
		if math.IsNaN(f) {
			return ""
		}

		return strconv.FormatFloat(f, 'f', -1, 64)
	case DTint:
		return strconv.Itoa(v.data.([]int)[indx])
	case DTstring:
		return v.data.([]string)[indx]
	case DTdate:
		return v.data.([]time.Time)[indx].Format(DateFormat)
	}

	return ""
}

// *********** Row operations ***********

func (v *Vector) Less(i, j int) bool {
	switch v.dt {
	case DTfloat:
		return v.data.([]float64)[i] < v.data.([]float64)[j]
	case DTint:
		return v.data.([]int)[i] < v.data.([]int)[j]
	case DTstring:
		return v.data.([]string)[i] < v.data.([]string)[j]
	case DTdate:
		return v.data.([]time.Time)[i].Before(v.data.([]time.Time)[j])
	}

	return false
}

// Take returns a new vector made of the given rows, in order. A row of -1 yields the
// missing value of the type.
func (v *Vector) Take(rows []int) *Vector {
	out := MakeVector(v.dt, len(rows))
	for ind, r := range rows {
		switch v.dt {
		case DTfloat:
			x := math.NaN()
			if r >= 0 {
				x = v.data.([]float64)[r]
			}
			out.data.([]float64)[ind] = x
		case DTint:
			if r >= 0 {
				out.data.([]int)[ind] = v.data.([]int)[r]
			}
		case DTstring:
			if r >= 0 {
				out.data.([]string)[ind] = v.data.([]string)[r]
			}
		case DTdate:
			if r >= 0 {
				out.data.([]time.Time)[ind] = v.data.([]time.Time)[r]
			}
		}
	}

	return out
}

func (v *Vector) Where(keep []bool) *Vector {
	var rows []int
	for ind, k := range keep {
		if k {
			rows = append(rows, ind)
		}
	}

	return v.Take(rows)
}

func (v *Vector) Copy() *Vector {
	rows := make([]int, v.Len())
	for ind := range rows {
		rows[ind] = ind
	}

	return v.Take(rows)
}
