// Package ranges generates numeric argument sequences for parameterized
// units from range-source annotations (from/to/step, open or closed).
package ranges

import (
	"errors"
	"fmt"

	hooks "github.com/goliatone/go-testhooks"
)

// Annotation kinds the provider recognizes.
const (
	AnnotationIntRange   = "IntRangeSource"
	AnnotationFloatRange = "FloatRangeSource"
)

var (
	// ErrZeroStep indicates a range whose step would never advance.
	ErrZeroStep = errors.New("ranges: step cannot be zero")
	// ErrEmptyRange indicates equal from and to, which would produce nothing.
	ErrEmptyRange = errors.New("ranges: equal from and to would produce an empty range")
	// ErrUnreachable indicates a step that moves away from to.
	ErrUnreachable = errors.New("ranges: to is unreachable from from")
	// ErrAmbiguousSource indicates zero or multiple range-source annotations
	// on one unit; exactly one is required.
	ErrAmbiguousSource = errors.New("ranges: expected exactly one range source annotation")
)

type number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~float32 | ~float64
}

// Sequence generates from, from+step, ... up to to. The range is half-open
// by default; closed includes to when the step lands on it exactly.
func Sequence[T number](from, to, step T, closed bool) ([]T, error) {
	if step == 0 {
		return nil, ErrZeroStep
	}
	if from == to {
		return nil, ErrEmptyRange
	}
	if (to > from) != (step > 0) {
		return nil, fmt.Errorf("%w: from=%v to=%v step=%v", ErrUnreachable, from, to, step)
	}

	var out []T
	for value := from; ; value += step {
		if step > 0 {
			if value > to || (!closed && value == to) {
				break
			}
		} else {
			if value < to || (!closed && value == to) {
				break
			}
		}
		out = append(out, value)
	}
	return out, nil
}

// Provide resolves the single range-source annotation on the unit's method
// scope and generates its argument values: int64 values for an int range,
// float64 values for a float range. Range sources are method-level only and
// must not be repeated.
func Provide(chain hooks.Chain) ([]any, error) {
	method := chain.Innermost()
	intBags := method.InstancesOf(AnnotationIntRange)
	floatBags := method.InstancesOf(AnnotationFloatRange)

	if total := len(intBags) + len(floatBags); total != 1 {
		return nil, fmt.Errorf("%w: found %d", ErrAmbiguousSource, total)
	}

	if len(intBags) == 1 {
		return provideInts(intBags[0])
	}
	return provideFloats(floatBags[0])
}

func provideInts(bag hooks.AttributeBag) ([]any, error) {
	from, to, step, closed, err := bounds(bag, AnnotationIntRange)
	if err != nil {
		return nil, err
	}
	values, err := Sequence(int64(from), int64(to), int64(step), closed)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(values))
	for i, value := range values {
		out[i] = value
	}
	return out, nil
}

func provideFloats(bag hooks.AttributeBag) ([]any, error) {
	from, to, step, closed, err := bounds(bag, AnnotationFloatRange)
	if err != nil {
		return nil, err
	}
	values, err := Sequence(from, to, step, closed)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(values))
	for i, value := range values {
		out[i] = value
	}
	return out, nil
}

func bounds(bag hooks.AttributeBag, kind string) (from, to, step float64, closed bool, err error) {
	from, ok := bag.Float("from")
	if !ok {
		return 0, 0, 0, false, fmt.Errorf("%w: %s requires %q", hooks.ErrConfiguration, kind, "from")
	}
	to, ok = bag.Float("to")
	if !ok {
		return 0, 0, 0, false, fmt.Errorf("%w: %s requires %q", hooks.ErrConfiguration, kind, "to")
	}
	step = 1
	if value, ok := bag.Float("step"); ok {
		step = value
	}
	return from, to, step, bag.Bool("closed"), nil
}
