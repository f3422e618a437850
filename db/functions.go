package db

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/nickyhof/MemDB/core"
)

// function is a scalar built-in. max < 0 means any number of arguments from min.
type function struct {
	min, max int
	result   func(args []core.ColumnType) core.ColumnType
	call     func(args []core.Value) (core.Value, error)
}

func (fn function) accepts(n int) bool {
	return n >= fn.min && (fn.max < 0 || n <= fn.max)
}

func returns(t core.ColumnType) func([]core.ColumnType) core.ColumnType {
	return func([]core.ColumnType) core.ColumnType { return t }
}

// numeric lifts a float function to values; NULL in gives NULL out.
func numeric(f func(float64) float64) func([]core.Value) (core.Value, error) {
	return func(args []core.Value) (core.Value, error) {
		if args[0] == nil {
			return nil, nil
		}
		n, err := core.ToNumber(args[0])
		if err != nil {
			return nil, err
		}
		r := f(n)
		if math.IsNaN(r) {
			return nil, nil
		}
		return r, nil
	}
}

func textual(f func(string) core.Value) func([]core.Value) (core.Value, error) {
	return func(args []core.Value) (core.Value, error) {
		if args[0] == nil {
			return nil, nil
		}
		return f(core.ToText(args[0])), nil
	}
}

var functions = map[string]function{
	"SQRT": {min: 1, max: 1, result: returns(core.NumberType), call: numeric(math.Sqrt)},
	"ABS":  {min: 1, max: 1, result: returns(core.NumberType), call: numeric(math.Abs)},
	"ROUND": {min: 1, max: 2, result: returns(core.NumberType), call: func(args []core.Value) (core.Value, error) {
		if args[0] == nil {
			return nil, nil
		}
		n, err := core.ToNumber(args[0])
		if err != nil {
			return nil, err
		}
		places := 0.0
		if len(args) == 2 && args[1] != nil {
			if places, err = core.ToNumber(args[1]); err != nil {
				return nil, err
			}
		}
		scale := math.Pow(10, math.Trunc(places))
		return math.Round(n*scale) / scale, nil
	}},
	"UPPER": {min: 1, max: 1, result: returns(core.TextType), call: textual(func(s string) core.Value {
		return strings.ToUpper(s)
	})},
	"LOWER": {min: 1, max: 1, result: returns(core.TextType), call: textual(func(s string) core.Value {
		return strings.ToLower(s)
	})},
	"LENGTH": {min: 1, max: 1, result: returns(core.NumberType), call: textual(func(s string) core.Value {
		return float64(utf8.RuneCountInString(s))
	})},
	"CONCAT": {min: 1, max: -1, result: returns(core.TextType), call: func(args []core.Value) (core.Value, error) {
		var b strings.Builder
		for _, arg := range args {
			b.WriteString(core.ToText(arg))
		}
		return b.String(), nil
	}},
	"COALESCE": {min: 1, max: -1, result: func(types []core.ColumnType) core.ColumnType {
		for _, t := range types {
			if t != core.UnknownType {
				return t
			}
		}
		return core.UnknownType
	}, call: func(args []core.Value) (core.Value, error) {
		for _, arg := range args {
			if arg != nil {
				return arg, nil
			}
		}
		return nil, nil
	}},
}
