package op

import (
	"strings"

	"github.com/nickyhof/MemDB/core"
)

type AggregateKind string

const (
	Sum   AggregateKind = "SUM"
	Count AggregateKind = "COUNT"
	Avg   AggregateKind = "AVG"
	Min   AggregateKind = "MIN"
	Max   AggregateKind = "MAX"
	First AggregateKind = "FIRST"
	Last  AggregateKind = "LAST"
)

func ParseAggregate(name string) (AggregateKind, bool) {
	switch kind := AggregateKind(strings.ToUpper(name)); kind {
	case Sum, Count, Avg, Min, Max, First, Last:
		return kind, true
	}
	return "", false
}

// ResultType is the type of the finalised value given the type of the fed values.
func (k AggregateKind) ResultType(input core.ColumnType) core.ColumnType {
	switch k {
	case Sum, Count, Avg:
		return core.NumberType
	default:
		return input
	}
}

// Accumulator folds the values of one group into a single value.
// NULLs are ignored by every kind except FIRST and LAST.
type Accumulator interface {
	Add(v core.Value) error
	Result() core.Value
}

type accumulator struct {
	kind  AggregateKind
	count int
	sum   float64
	value core.Value
	seen  bool
}

// NewAccumulator returns an accumulator seeded with the group's first value.
func NewAccumulator(kind AggregateKind, seed core.Value) (Accumulator, error) {
	a := &accumulator{kind: kind}
	if err := a.Add(seed); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *accumulator) Add(v core.Value) error {
	switch a.kind {
	case First:
		if !a.seen {
			a.value = v
			a.seen = true
		}
		return nil
	case Last:
		a.value = v
		return nil
	}
	if v == nil {
		return nil
	}
	switch a.kind {
	case Count:
		a.count++
	case Sum, Avg:
		n, err := core.ToNumber(v)
		if err != nil {
			return err
		}
		a.sum += n
		a.count++
	case Min:
		if c, ok := core.Compare(v, a.value); a.value == nil || (ok && c < 0) {
			a.value = v
		}
	case Max:
		if c, ok := core.Compare(v, a.value); a.value == nil || (ok && c > 0) {
			a.value = v
		}
	}
	return nil
}

func (a *accumulator) Result() core.Value {
	switch a.kind {
	case Count:
		return float64(a.count)
	case Sum:
		if a.count == 0 {
			return nil
		}
		return a.sum
	case Avg:
		if a.count == 0 {
			return nil
		}
		return a.sum / float64(a.count)
	default:
		return a.value
	}
}
