package hooks

import (
	"regexp"
	"strings"

	"github.com/goliatone/go-testhooks/pkg/report"
)

// Kind classifies a resolved directive.
type Kind string

const (
	// KindSetValue overrides an external key for the unit's duration.
	KindSetValue Kind = "set-value"
	// KindClearValue unsets an external key for the unit's duration.
	KindClearValue Kind = "clear-value"
	// KindFilter aborts the invocation when its predicate matches.
	KindFilter Kind = "filter"
	// KindReportEntry publishes a key/value pair to the report stream.
	KindReportEntry Kind = "report-entry"
)

// Policy controls whether outer scopes are still considered once an inner
// scope has matches.
type Policy int

const (
	// StopAtFirst ends the walk at the first scope that yields a match.
	StopAtFirst Policy = iota
	// Accumulate collects matches from every scope, innermost first.
	Accumulate
)

func (p Policy) String() string {
	switch p {
	case StopAtFirst:
		return "stop-at-first"
	case Accumulate:
		return "accumulate"
	default:
		return "unknown"
	}
}

// Directive is one resolved instruction derived from one annotation instance.
// Directives are created per resolution pass, tagged with the scope level
// they were found at (0 = method, increasing outward), and never mutated.
type Directive struct {
	Kind       Kind
	ScopeLevel int

	Env    *EnvPayload
	Filter *FilterPayload
	Entry  *report.Entry
}

// EnvPayload carries a state-mutation directive's target.
type EnvPayload struct {
	Key   string
	Value string
	Unset bool
}

// TargetSelector names which arguments a filter directive inspects.
type TargetSelector int

const (
	// SingleParameter inspects one argument, chosen by index or name.
	SingleParameter TargetSelector = iota
	// AnyParameter aborts when at least one argument matches.
	AnyParameter
	// AllParameters aborts only when every argument matches.
	AllParameters
)

func (t TargetSelector) String() string {
	switch t {
	case SingleParameter:
		return "single"
	case AnyParameter:
		return "any"
	case AllParameters:
		return "all"
	default:
		return "unknown"
	}
}

// FilterPayload carries a filter directive's target selector and content
// predicate. Exactly one of Contains, Matches or When is populated; the
// translator enforces that before the payload is ever evaluated.
type FilterPayload struct {
	Annotation string
	Target     TargetSelector
	Index      int
	HasIndex   bool
	Name       string
	Contains   []string
	Matches    []string
	When       string

	patterns []*regexp.Regexp
}

// matchValue reports whether value satisfies the contains/matches predicate.
func (p *FilterPayload) matchValue(value string) bool {
	for _, needle := range p.Contains {
		if needle != "" && strings.Contains(value, needle) {
			return true
		}
	}
	for _, pattern := range p.patterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}

// Translator converts one matched annotation instance into directives,
// validating kind-specific attributes. It runs once per matched bag,
// immediately after location and before any directive is acted on.
type Translator func(bag AttributeBag, level int) ([]Directive, error)

// Family binds an annotation kind to its resolution policy and translator.
// Each family declares its own StopAtFirst-vs-Accumulate default; callers
// that need different behavior register a family with the policy they want.
type Family struct {
	Kind      string
	Policy    Policy
	Translate Translator
}
