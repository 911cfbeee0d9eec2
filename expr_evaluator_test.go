package hooks

import (
	"errors"
	"testing"
)

type countingCache struct {
	values map[string]any
	hits   int
	misses int
}

func newCountingCache() *countingCache {
	return &countingCache{values: map[string]any{}}
}

func (c *countingCache) Get(key string) (any, bool) {
	value, ok := c.values[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return value, ok
}

func (c *countingCache) Set(key string, value any) {
	c.values[key] = value
}

func TestExprEvaluatorBindsInvocationContext(t *testing.T) {
	evaluator := NewExprEvaluator()

	ctx := EvalContext{
		Unit:   "unit-1",
		Arg:    "hello",
		Args:   []any{"hello", 42},
		Params: map[string]any{"word": "hello", "count": 42},
	}

	cases := map[string]bool{
		`arg == "hello"`:      true,
		`len(args) == 2`:      true,
		`params.count > 40`:   true,
		`unit == "unit-1"`:    true,
		`params.word == "no"`: false,
	}
	for expression, want := range cases {
		result, err := evaluator.Evaluate(ctx, expression)
		if err != nil {
			t.Fatalf("%s: %v", expression, err)
		}
		if result != want {
			t.Fatalf("%s: expected %v, got %v", expression, want, result)
		}
	}
}

func TestExprEvaluatorRejectsEmptyExpression(t *testing.T) {
	evaluator := NewExprEvaluator()
	if _, err := evaluator.Evaluate(EvalContext{}, ""); err == nil {
		t.Fatal("expected error for empty expression")
	}
}

func TestExprEvaluatorUsesProgramCache(t *testing.T) {
	cache := newCountingCache()
	evaluator := NewExprEvaluator(ExprWithProgramCache(cache))

	ctx := EvalContext{Arg: "x"}
	for i := 0; i < 3; i++ {
		if _, err := evaluator.Evaluate(ctx, `arg == "x"`); err != nil {
			t.Fatalf("evaluation %d failed: %v", i, err)
		}
	}
	if cache.misses != 1 || cache.hits != 2 {
		t.Fatalf("expected 1 miss and 2 hits, got %d/%d", cache.misses, cache.hits)
	}
}

func TestExprEvaluatorCallsRegisteredFunctions(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("double", func(args ...any) (any, error) {
		n, ok := args[0].(int)
		if !ok {
			return nil, errors.New("double expects an int")
		}
		return n * 2, nil
	}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	evaluator := NewExprEvaluator(ExprWithFunctionRegistry(registry))
	result, err := evaluator.Evaluate(EvalContext{}, `double(21) == 42`)
	if err != nil {
		t.Fatalf("evaluation failed: %v", err)
	}
	if result != true {
		t.Fatalf("expected true, got %v", result)
	}
}

func TestExprCompiledRuleReevaluatesPerContext(t *testing.T) {
	evaluator := NewExprEvaluator(ExprWithProgramCache(newCountingCache()))

	rule, err := evaluator.Compile(`arg == "match"`)
	if err != nil {
		t.Fatalf("compile failed: %v", err)
	}

	result, err := rule.Evaluate(EvalContext{Arg: "match"})
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if result != true {
		t.Fatalf("expected true, got %v", result)
	}

	result, err = rule.Evaluate(EvalContext{Arg: "other"})
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if result != false {
		t.Fatalf("expected false, got %v", result)
	}
}
