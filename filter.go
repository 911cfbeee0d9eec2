package hooks

import (
	"fmt"
)

// Argument is one actual invocation argument, optionally carrying the
// declared parameter name so directives can target by name.
type Argument struct {
	Name  string
	Value any
}

// Decision is the outcome of FilterInvocation. Abort means the unit is
// skipped (aborted, not failed) with the recorded reason.
type Decision struct {
	Abort  bool
	Reason string
}

// Continue is the decision that lets the invocation run.
var Continue = Decision{}

// FilterInvocation evaluates the chain's filter directives against the
// invocation's actual arguments. The first matching directive wins and the
// remaining directives are not evaluated.
func (b *Binder) FilterInvocation(chain Chain, args []Argument) (Decision, error) {
	var directives []Directive
	for _, family := range b.cfg.filters {
		found, err := Locate(chain, family)
		if err != nil {
			return Continue, err
		}
		directives = append(directives, found...)
	}
	if len(directives) == 0 {
		return Continue, nil
	}
	if len(args) == 0 {
		return Continue, fmt.Errorf("%w: cannot filter a unit that declares no parameters", ErrConfiguration)
	}

	for _, directive := range directives {
		matched, reason, err := b.evaluateFilter(directive.Filter, args)
		if err != nil {
			return Continue, err
		}
		if matched {
			return Decision{Abort: true, Reason: reason}, nil
		}
	}
	return Continue, nil
}

func (b *Binder) evaluateFilter(payload *FilterPayload, args []Argument) (bool, string, error) {
	switch payload.Target {
	case SingleParameter:
		index, err := resolveTarget(payload, args)
		if err != nil {
			return false, "", err
		}
		matched, err := b.argumentMatches(payload, args, index)
		if err != nil {
			return false, "", err
		}
		if matched {
			return true, fmt.Sprintf("%s matched argument %d", payload.Annotation, index), nil
		}
		return false, "", nil

	case AnyParameter:
		for i := range args {
			matched, err := b.argumentMatches(payload, args, i)
			if err != nil {
				return false, "", err
			}
			if matched {
				return true, fmt.Sprintf("%s matched argument %d", payload.Annotation, i), nil
			}
		}
		return false, "", nil

	case AllParameters:
		for i := range args {
			matched, err := b.argumentMatches(payload, args, i)
			if err != nil {
				return false, "", err
			}
			if !matched {
				return false, "", nil
			}
		}
		return true, fmt.Sprintf("%s matched every argument", payload.Annotation), nil

	default:
		return false, "", fmt.Errorf("%w: %s has unknown target selector", ErrConfiguration, payload.Annotation)
	}
}

// resolveTarget picks the argument a single-target directive inspects:
// explicit index, declared name, or the first argument when neither is set.
func resolveTarget(payload *FilterPayload, args []Argument) (int, error) {
	if payload.HasIndex {
		if payload.Index >= len(args) {
			return 0, fmt.Errorf("%w: %s has invalid index %d for %d arguments",
				ErrConfiguration, payload.Annotation, payload.Index, len(args))
		}
		return payload.Index, nil
	}
	if payload.Name != "" {
		for i, arg := range args {
			if arg.Name == payload.Name {
				return i, nil
			}
		}
		return 0, fmt.Errorf("%w: %q", ErrResolution, payload.Name)
	}
	return 0, nil
}

func (b *Binder) argumentMatches(payload *FilterPayload, args []Argument, index int) (bool, error) {
	if payload.When != "" {
		return b.whenMatches(payload, args, index)
	}
	return payload.matchValue(fmt.Sprint(args[index].Value)), nil
}

func (b *Binder) whenMatches(payload *FilterPayload, args []Argument, index int) (bool, error) {
	values := make([]any, len(args))
	params := make(map[string]any, len(args))
	for i, arg := range args {
		values[i] = arg.Value
		if arg.Name != "" {
			params[arg.Name] = arg.Value
		}
	}
	result, err := b.resolveEvaluator().Evaluate(EvalContext{
		Args:   values,
		Params: params,
		Arg:    args[index].Value,
	}, payload.When)
	if err != nil {
		return false, err
	}
	matched, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s %q expression must evaluate to a boolean, got %T",
			ErrConfiguration, payload.Annotation, "when", result)
	}
	return matched, nil
}
