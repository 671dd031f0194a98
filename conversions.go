package qdash

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var dateFormats = []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339, "1/2/2006", "01/02/2006",
	"Jan 2, 2006", "January 2, 2006", "Jan 2 2006", "January 2 2006", "20060102"}

// *********** Conversions ***********

func toFloat(x any) (any, bool) {
	if f, ok := x.(float64); ok {
		return f, true
	}

	if s, ok := x.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" || strings.EqualFold(s, "nan") {
			return math.NaN(), true
		}

		if f, e := strconv.ParseFloat(s, 64); e == nil {
			return f, true
		}

		return nil, false
	}

	xv := reflect.ValueOf(x)
	if xv.CanFloat() {
		return xv.Float(), true
	}

	if xv.CanInt() {
		return float64(xv.Int()), true
	}

	if xv.CanUint() {
		return float64(xv.Uint()), true
	}

	return nil, false
}

func toInt(x any) (any, bool) {
	if i, ok := x.(int); ok {
		return i, true
	}

	if s, ok := x.(string); ok {
		if i, e := strconv.ParseInt(strings.TrimSpace(s), 10, 64); e == nil {
			return int(i), true
		}

		return nil, false
	}

	xv := reflect.ValueOf(x)
	if xv.CanInt() {
		return int(xv.Int()), true
	}

	if xv.CanUint() {
		return int(xv.Uint()), true
	}

	if xv.CanFloat() {
		return int(xv.Float()), true
	}

	return nil, false
}

func toString(x any) (any, bool) {
	if s, ok := x.(string); ok {
		return s, true
	}

	if f, ok := x.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}

	if i, ok := x.(int); ok {
		return strconv.Itoa(i), true
	}

	if d, ok := x.(time.Time); ok {
		return d.Format(DateFormat), true
	}

	return fmt.Sprintf("%v", x), true
}

func toDate(x any) (any, bool) {
	if d, ok := x.(time.Time); ok {
		return d, true
	}

	if d, ok := x.(string); ok {
		for _, fmtx := range dateFormats {
			if dt, e := time.Parse(fmtx, strings.ReplaceAll(strings.TrimSpace(d), "'", "")); e == nil {
				return dt, true
			}
		}
	}

	return nil, false
}

// toSlc converts xIn (a slice or a scalar) into a slice of the Go type behind target.
func toSlc(xIn any, target DataTypes) (any, bool) {
	typSlc := []reflect.Type{reflect.TypeOf([]float64{}), reflect.TypeOf([]int{}), reflect.TypeOf([]string{""}), reflect.TypeOf([]time.Time{})}
	toFns := []func(a any) (any, bool){toFloat, toInt, toString, toDate}

	var indx int
	switch target {
	case DTfloat:
		indx = 0
	case DTint:
		indx = 1
	case DTstring:
		indx = 2
	case DTdate:
		indx = 3
	default:
		return nil, false
	}

	if xIn == nil {
		return nil, false
	}

	outType := typSlc[indx]
	x := reflect.ValueOf(xIn)

	// nothing to do
	if x.Type() == outType {
		return xIn, true
	}

	toFn := toFns[indx]
	if x.Kind() == reflect.Slice {
		xOut := reflect.MakeSlice(outType, x.Len(), x.Len())
		for ind := 0; ind < x.Len(); ind++ {
			var (
				val any
				ok  bool
			)

			if val, ok = toFn(x.Index(ind).Interface()); !ok {
				return nil, false
			}

			xOut.Index(ind).Set(reflect.ValueOf(val))
		}

		return xOut.Interface(), true
	}

	// input is not a slice:
	if val, ok := toFn(xIn); ok {
		xOut := reflect.MakeSlice(outType, 1, 1)
		xOut.Index(0).Set(reflect.ValueOf(val))
		return xOut.Interface(), true
	}

	return nil, false
}

// bestType is the narrowest type every non-empty value in vals converts to.
// Ints with missing cells become floats so the gaps can hold NaN.
func bestType(vals []string) DataTypes {
	var isInt, isFloat, isDate = true, true, true
	missing, seen := false, false

	for _, v := range vals {
		if strings.TrimSpace(v) == "" {
			missing = true
			continue
		}

		seen = true
		if isInt {
			if _, ok := toInt(v); !ok {
				isInt = false
			}
		}

		if isFloat {
			if _, e := strconv.ParseFloat(strings.TrimSpace(v), 64); e != nil {
				isFloat = false
			}
		}

		if isDate {
			if _, ok := toDate(v); !ok {
				isDate = false
			}
		}
	}

	switch {
	case !seen:
		return DTstring
	case isInt && !missing:
		return DTint
	case isInt || isFloat:
		return DTfloat
	case isDate:
		return DTdate
	default:
		return DTstring
	}
}

// WhatAmI returns the DataTypes of a scalar or slice.
func WhatAmI(val any) DataTypes {
	switch val.(type) {
	case float64, []float64:
		return DTfloat
	case int, []int:
		return DTint
	case string, []string:
		return DTstring
	case time.Time, []time.Time:
		return DTdate
	default:
		return DTunknown
	}
}
