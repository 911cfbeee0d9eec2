package hooks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/goliatone/go-testhooks/pkg/envstore"
	"github.com/goliatone/go-testhooks/pkg/report"
)

// Binder orchestrates one test unit's pre/post execution hooks. The host
// runtime calls BeforeUnit at setup, FilterInvocation before a parameterized
// invocation runs, and AfterUnit unconditionally at teardown.
type Binder struct {
	cfg binderConfig
}

type binderConfig struct {
	store       *envstore.Store
	files       afero.Fs
	evaluator   Evaluator
	cache       ProgramCache
	functions   *FunctionRegistry
	logger      Logger
	reportHooks report.Hooks
	mutations   []Family
	filters     []Family
	reports     Family
}

// BinderOption configures a Binder.
type BinderOption func(*binderConfig)

// WithStore replaces the state store (the default mutates the real process
// environment).
func WithStore(store *envstore.Store) BinderOption {
	return func(cfg *binderConfig) {
		cfg.store = store
	}
}

// WithFileSystem replaces the filesystem used by file-backed directive
// families.
func WithFileSystem(files afero.Fs) BinderOption {
	return func(cfg *binderConfig) {
		cfg.files = files
	}
}

// WithEvaluator configures the evaluator used for "when" filter expressions.
func WithEvaluator(e Evaluator) BinderOption {
	return func(cfg *binderConfig) {
		cfg.evaluator = e
	}
}

// WithProgramCache registers a compiled-expression cache used when the
// binder builds its default evaluator.
func WithProgramCache(cache ProgramCache) BinderOption {
	return func(cfg *binderConfig) {
		cfg.cache = cache
	}
}

// WithFunctionRegistry exposes custom functions to filter expressions.
func WithFunctionRegistry(registry *FunctionRegistry) BinderOption {
	return func(cfg *binderConfig) {
		if registry == nil {
			return
		}
		cfg.functions = registry.Clone()
	}
}

// WithLogger attaches a directive logger.
func WithLogger(logger Logger) BinderOption {
	return func(cfg *binderConfig) {
		if logger == nil {
			cfg.logger = noopLogger{}
			return
		}
		cfg.logger = logger
	}
}

// WithReportHook appends a report-entry sink.
func WithReportHook(hook report.Hook) BinderOption {
	return func(cfg *binderConfig) {
		if hook == nil {
			return
		}
		cfg.reportHooks = append(cfg.reportHooks, hook)
	}
}

// WithMutationFamily registers an additional state-mutation family.
func WithMutationFamily(family Family) BinderOption {
	return func(cfg *binderConfig) {
		cfg.mutations = append(cfg.mutations, family)
	}
}

// WithFilterFamily registers an additional filter family.
func WithFilterFamily(family Family) BinderOption {
	return func(cfg *binderConfig) {
		cfg.filters = append(cfg.filters, family)
	}
}

// NewBinder constructs a Binder with the built-in directive families.
func NewBinder(opts ...BinderOption) *Binder {
	cfg := binderConfig{
		logger: noopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.store == nil {
		cfg.store = envstore.New(envstore.ProcessEnv{})
	}
	if cfg.files == nil {
		cfg.files = afero.NewOsFs()
	}
	cfg.mutations = append([]Family{
		SetEnvFamily(),
		ClearEnvFamily(),
		EnvFileFamily(cfg.files),
	}, cfg.mutations...)
	cfg.filters = append([]Family{
		DisableIfParameterFamily(),
		DisableIfAnyParameterFamily(),
		DisableIfAllParametersFamily(),
	}, cfg.filters...)
	cfg.reports = ReportEntryFamily()
	return &Binder{cfg: cfg}
}

// Token identifies one unit's applied state. BeforeUnit hands it out and
// AfterUnit must receive it on every exit path, success or failure.
type Token struct {
	unit    string
	store   *envstore.Store
	applied int
}

// Unit returns the unit identifier the token belongs to.
func (t *Token) Unit() string {
	if t == nil {
		return ""
	}
	return t.unit
}

// Applied returns the number of state mutations the token tracks.
func (t *Token) Applied() int {
	if t == nil {
		return 0
	}
	return t.applied
}

// BeforeUnit resolves the chain's directives, publishes report entries, and
// applies state mutations outermost scope first and innermost last, so the
// innermost override is restored first and never leaks past its own
// teardown. Key conflicts across the resolved set fail before any mutation
// is applied.
func (b *Binder) BeforeUnit(chain Chain) (*Token, error) {
	entries, err := Locate(chain, b.cfg.reports)
	if err != nil {
		return nil, err
	}

	var mutations []Directive
	for _, family := range b.cfg.mutations {
		directives, err := Locate(chain, family)
		if err != nil {
			return nil, err
		}
		mutations = append(mutations, directives...)
	}

	seen := map[string]int{}
	for _, directive := range mutations {
		if directive.Env == nil {
			return nil, fmt.Errorf("%w: %s directive at scope level %d has no key/value payload",
				ErrConfiguration, directive.Kind, directive.ScopeLevel)
		}
		key := directive.Env.Key
		if prev, ok := seen[key]; ok {
			return nil, fmt.Errorf("%w: %q targeted at scope levels %d and %d",
				envstore.ErrKeyConflict, key, prev, directive.ScopeLevel)
		}
		seen[key] = directive.ScopeLevel
	}

	token := &Token{unit: uuid.NewString(), store: b.cfg.store}

	for _, directive := range entries {
		entry := *directive.Entry
		entry.Unit = token.unit
		if err := b.cfg.reportHooks.Publish(context.Background(), entry); err != nil {
			return nil, err
		}
	}

	for i := len(mutations) - 1; i >= 0; i-- {
		directive := mutations[i]
		var value *string
		if !directive.Env.Unset {
			v := directive.Env.Value
			value = &v
		}
		start := time.Now()
		_, err := b.cfg.store.Apply(token.unit, directive.Env.Key, value)
		b.cfg.logger.LogDirective(DirectiveEvent{
			Unit:       token.unit,
			Kind:       directive.Kind,
			Key:        directive.Env.Key,
			ScopeLevel: directive.ScopeLevel,
			Duration:   time.Since(start),
			Err:        err,
		})
		if err != nil {
			// Unwind whatever already applied; partial state is not a
			// supported outcome.
			return nil, errors.Join(err, b.cfg.store.RestoreAll(token.unit))
		}
		token.applied++
	}
	return token, nil
}

// AfterUnit restores every mutation the token tracks, in strict reverse
// order of application. The host runtime must call it unconditionally,
// regardless of the unit's outcome.
func (b *Binder) AfterUnit(token *Token) error {
	if token == nil {
		return fmt.Errorf("hooks: token is required")
	}
	return token.store.RestoreAll(token.unit)
}

func (b *Binder) resolveEvaluator() Evaluator {
	if b.cfg.evaluator != nil {
		return b.cfg.evaluator
	}
	var exprOpts []ExprEvaluatorOption
	if b.cfg.cache != nil {
		exprOpts = append(exprOpts, ExprWithProgramCache(b.cfg.cache))
	}
	if b.cfg.functions != nil {
		exprOpts = append(exprOpts, ExprWithFunctionRegistry(b.cfg.functions))
	}
	b.cfg.evaluator = NewExprEvaluator(exprOpts...)
	return b.cfg.evaluator
}
