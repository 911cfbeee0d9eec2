package hooks

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"

	"github.com/goliatone/go-testhooks/pkg/report"
)

// Annotation kinds recognized by the built-in families.
const (
	AnnotationSetEnv   = "SetEnvironmentVariable"
	AnnotationClearEnv = "ClearEnvironmentVariable"
	AnnotationEnvFile  = "SetEnvironmentFile"

	AnnotationReportEntry = "ReportEntry"

	AnnotationDisableIfParameter     = "DisableIfParameter"
	AnnotationDisableIfAnyParameter  = "DisableIfAnyParameter"
	AnnotationDisableIfAllParameters = "DisableIfAllParameters"
)

// SetEnvFamily resolves SetEnvironmentVariable annotations. The family
// accumulates across enclosing scopes so class-level variables apply to
// every unit inside the class.
func SetEnvFamily() Family {
	return Family{
		Kind:   AnnotationSetEnv,
		Policy: Accumulate,
		Translate: func(bag AttributeBag, level int) ([]Directive, error) {
			key := bag.String("key")
			if key == "" {
				return nil, fmt.Errorf("%w: %s requires a non-empty %q", ErrConfiguration, AnnotationSetEnv, "key")
			}
			if !bag.Has("value") {
				return nil, fmt.Errorf("%w: %s requires %q", ErrConfiguration, AnnotationSetEnv, "value")
			}
			return []Directive{{
				Kind:       KindSetValue,
				ScopeLevel: level,
				Env:        &EnvPayload{Key: key, Value: bag.String("value")},
			}}, nil
		},
	}
}

// ClearEnvFamily resolves ClearEnvironmentVariable annotations.
func ClearEnvFamily() Family {
	return Family{
		Kind:   AnnotationClearEnv,
		Policy: Accumulate,
		Translate: func(bag AttributeBag, level int) ([]Directive, error) {
			key := bag.String("key")
			if key == "" {
				return nil, fmt.Errorf("%w: %s requires a non-empty %q", ErrConfiguration, AnnotationClearEnv, "key")
			}
			return []Directive{{
				Kind:       KindClearValue,
				ScopeLevel: level,
				Env:        &EnvPayload{Key: key, Unset: true},
			}}, nil
		},
	}
}

// EnvFileFamily resolves SetEnvironmentFile annotations: every pair in the
// referenced dotenv file becomes one set-value directive. Keys are applied
// in sorted order so resolution passes stay deterministic.
func EnvFileFamily(files afero.Fs) Family {
	return Family{
		Kind:   AnnotationEnvFile,
		Policy: Accumulate,
		Translate: func(bag AttributeBag, level int) ([]Directive, error) {
			path := bag.String("path")
			if path == "" {
				return nil, fmt.Errorf("%w: %s requires a non-empty %q", ErrConfiguration, AnnotationEnvFile, "path")
			}
			data, err := afero.ReadFile(files, path)
			if err != nil {
				return nil, fmt.Errorf("%w: %s could not read %q: %v", ErrConfiguration, AnnotationEnvFile, path, err)
			}
			pairs, err := godotenv.UnmarshalBytes(data)
			if err != nil {
				return nil, fmt.Errorf("%w: %s could not parse %q: %v", ErrConfiguration, AnnotationEnvFile, path, err)
			}
			keys := make([]string, 0, len(pairs))
			for key := range pairs {
				keys = append(keys, key)
			}
			sort.Strings(keys)
			out := make([]Directive, 0, len(keys))
			for _, key := range keys {
				out = append(out, Directive{
					Kind:       KindSetValue,
					ScopeLevel: level,
					Env:        &EnvPayload{Key: key, Value: pairs[key]},
				})
			}
			return out, nil
		},
	}
}

// ReportEntryFamily resolves ReportEntry annotations. Entries declared with
// only a value get the implicit key; blank keys or values are rejected.
func ReportEntryFamily() Family {
	return Family{
		Kind:   AnnotationReportEntry,
		Policy: StopAtFirst,
		Translate: func(bag AttributeBag, level int) ([]Directive, error) {
			entry := report.Entry{
				Key:   bag.String("key"),
				Value: bag.String("value"),
			}
			if !bag.Has("key") {
				entry.Key = report.ImplicitKey
			}
			if err := entry.Validate(); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
			}
			return []Directive{{
				Kind:       KindReportEntry,
				ScopeLevel: level,
				Entry:      &entry,
			}}, nil
		},
	}
}

// DisableIfParameterFamily resolves single-target filter annotations.
func DisableIfParameterFamily() Family {
	return filterFamily(AnnotationDisableIfParameter, SingleParameter)
}

// DisableIfAnyParameterFamily resolves filters that abort when at least one
// argument matches.
func DisableIfAnyParameterFamily() Family {
	return filterFamily(AnnotationDisableIfAnyParameter, AnyParameter)
}

// DisableIfAllParametersFamily resolves filters that abort only when every
// argument matches.
func DisableIfAllParametersFamily() Family {
	return filterFamily(AnnotationDisableIfAllParameters, AllParameters)
}

func filterFamily(kind string, target TargetSelector) Family {
	return Family{
		Kind:   kind,
		Policy: StopAtFirst,
		Translate: func(bag AttributeBag, level int) ([]Directive, error) {
			payload, err := translateFilter(kind, target, bag)
			if err != nil {
				return nil, err
			}
			return []Directive{{
				Kind:       KindFilter,
				ScopeLevel: level,
				Filter:     payload,
			}}, nil
		},
	}
}

func translateFilter(kind string, target TargetSelector, bag AttributeBag) (*FilterPayload, error) {
	payload := &FilterPayload{
		Annotation: kind,
		Target:     target,
		Contains:   bag.Strings("contains"),
		Matches:    bag.Strings("matches"),
		When:       bag.String("when"),
	}

	predicates := 0
	if len(payload.Contains) > 0 {
		predicates++
	}
	if len(payload.Matches) > 0 {
		predicates++
	}
	if payload.When != "" {
		predicates++
	}
	if predicates != 1 {
		return nil, fmt.Errorf("%w: %s requires that exactly one of %q, %q or %q is set",
			ErrConfiguration, kind, "contains", "matches", "when")
	}

	if target == SingleParameter {
		if index, ok := bag.Int("index"); ok {
			if index < 0 {
				return nil, fmt.Errorf("%w: %s has invalid index %d", ErrConfiguration, kind, index)
			}
			payload.Index = index
			payload.HasIndex = true
		}
		payload.Name = bag.String("name")
		if payload.HasIndex && payload.Name != "" {
			return nil, fmt.Errorf("%w: using both name and index targeting in a single %s is not permitted",
				ErrConfiguration, kind)
		}
	}

	// Patterns behave like full matches, the way the annotations document
	// them, so anchor each expression.
	for _, pattern := range payload.Matches {
		compiled, err := regexp.Compile("^(?:" + pattern + ")$")
		if err != nil {
			return nil, fmt.Errorf("%w: %s has invalid pattern %q: %v", ErrConfiguration, kind, pattern, err)
		}
		payload.patterns = append(payload.patterns, compiled)
	}
	return payload, nil
}
