package qdash

import (
	"fmt"
	"strings"
)

// Col is a named Vector.
type Col struct {
	*Vector

	name string
}

// *********** Col - Create ***********

func NewCol(name string, data any, dt DataTypes) (*Col, error) {
	if e := validName(name); e != nil {
		return nil, e
	}

	if v, ok := data.(*Vector); ok {
		return &Col{Vector: v, name: name}, nil
	}

	var (
		v *Vector
		e error
	)
	if v, e = NewVector(data, dt); e != nil {
		return nil, e
	}

	return &Col{Vector: v, name: name}, nil
}

// Constant is a column of n copies of val.
func Constant(name string, val any, n int) (*Col, error) {
	dt := WhatAmI(val)
	if dt == DTunknown {
		return nil, fmt.Errorf("%w: unsupported constant %v", ErrMalformedInput, val)
	}

	v := MakeVector(dt, n)
	for ind := 0; ind < n; ind++ {
		switch dt {
		case DTfloat:
			_ = v.SetFloat(val.(float64), ind)
		case DTint:
			_ = v.SetInt(val.(int), ind)
		case DTstring:
			_ = v.SetString(val.(string), ind)
		case DTdate:
			_ = v.SetDate(toTime(val), ind)
		}
	}

	return &Col{Vector: v, name: name}, nil
}

// *********** Col - Methods ***********

func (c *Col) Name() string {
	return c.name
}

func (c *Col) DataType() DataTypes {
	return c.VectorType()
}

// renamed shares the data with c.
func (c *Col) renamed(name string) *Col {
	return &Col{Vector: c.Vector, name: name}
}

func (c *Col) String() string {
	const show = 5

	t := fmt.Sprintf("column: %s\ntype: %s\nrows: %d\n", c.Name(), c.DataType(), c.Len())
	var vals []string
	for ind := 0; ind < c.Len() && ind < show; ind++ {
		vals = append(vals, c.ElementString(ind))
	}

	return t + strings.Join(vals, ", ")
}

func validName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty column name", ErrMalformedInput)
	}

	return nil
}
