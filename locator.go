package hooks

import "fmt"

// Locate walks chain from the innermost scope outward collecting directives
// for family. A scope may carry zero, one, or many instances of the family's
// annotation kind; every instance found at a visited scope is translated.
//
// With StopAtFirst the walk ends at the first scope that yields at least one
// match and only that scope's directives are returned. With Accumulate every
// scope contributes, ordered innermost first. An empty result is a valid,
// common outcome, not an error.
func Locate(chain Chain, family Family) ([]Directive, error) {
	if family.Kind == "" {
		return nil, fmt.Errorf("%w: family kind must not be empty", ErrConfiguration)
	}
	if family.Translate == nil {
		return nil, fmt.Errorf("%w: family %q has no translator", ErrConfiguration, family.Kind)
	}

	var out []Directive
	for level, node := range chain.Ordered() {
		bags := node.InstancesOf(family.Kind)
		for _, bag := range bags {
			directives, err := family.Translate(bag, level)
			if err != nil {
				return nil, err
			}
			out = append(out, directives...)
		}
		if family.Policy == StopAtFirst && len(bags) > 0 {
			break
		}
	}
	return out, nil
}
