package hooks

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"

	"github.com/goliatone/go-testhooks/pkg/envstore"
	"github.com/goliatone/go-testhooks/pkg/report"
)

func setEnv(key, value string) AttributeBag {
	return AttributeBag{"key": key, "value": value}
}

func clearEnv(key string) AttributeBag {
	return AttributeBag{"key": key}
}

func TestBeforeUnitAppliesAndAfterUnitRestores(t *testing.T) {
	kv := envstore.NewMemory()
	if err := kv.Set("FOO", "original"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	binder := NewBinder(WithStore(envstore.New(kv)))

	chain := NewChain(NewScopeNode("method", Annotations{
		AnnotationSetEnv:   {setEnv("FOO", "overridden"), setEnv("BAR", "fresh")},
		AnnotationClearEnv: {clearEnv("GONE")},
	}))

	if err := kv.Set("GONE", "present"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	token, err := binder.BeforeUnit(chain)
	if err != nil {
		t.Fatalf("BeforeUnit failed: %v", err)
	}
	if token.Applied() != 3 {
		t.Fatalf("expected 3 applied mutations, got %d", token.Applied())
	}

	want := map[string]string{"FOO": "overridden", "BAR": "fresh"}
	if diff := cmp.Diff(want, kv.Snapshot()); diff != "" {
		t.Fatalf("unexpected mid-unit state (-want +got):\n%s", diff)
	}

	if err := binder.AfterUnit(token); err != nil {
		t.Fatalf("AfterUnit failed: %v", err)
	}
	want = map[string]string{"FOO": "original", "GONE": "present"}
	if diff := cmp.Diff(want, kv.Snapshot()); diff != "" {
		t.Fatalf("state leaked past teardown (-want +got):\n%s", diff)
	}
}

func TestBeforeUnitAppliesOutermostScopeFirst(t *testing.T) {
	kv := envstore.NewMemory()

	var order []string
	binder := NewBinder(
		WithStore(envstore.New(kv)),
		WithLogger(LoggerFunc(func(event DirectiveEvent) {
			order = append(order, event.Key)
		})),
	)

	chain := NewChain(
		NewScopeNode("method", Annotations{AnnotationSetEnv: {setEnv("METHOD", "m")}}),
		NewScopeNode("class", Annotations{AnnotationSetEnv: {setEnv("CLASS", "c")}}),
		NewScopeNode("root", Annotations{AnnotationSetEnv: {setEnv("ROOT", "r")}}),
	)

	token, err := binder.BeforeUnit(chain)
	if err != nil {
		t.Fatalf("BeforeUnit failed: %v", err)
	}
	defer func() {
		if err := binder.AfterUnit(token); err != nil {
			t.Fatalf("AfterUnit failed: %v", err)
		}
	}()

	// Outermost applies first so the innermost mutation restores first.
	if diff := cmp.Diff([]string{"ROOT", "CLASS", "METHOD"}, order); diff != "" {
		t.Fatalf("unexpected apply order (-want +got):\n%s", diff)
	}
}

func TestBeforeUnitKeyConflictFailsBeforeAnyMutation(t *testing.T) {
	kv := envstore.NewMemory()
	if err := kv.Set("FOO", "original"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	binder := NewBinder(WithStore(envstore.New(kv)))

	chain := NewChain(
		NewScopeNode("method", Annotations{AnnotationSetEnv: {setEnv("FOO", "method")}}),
		NewScopeNode("class", Annotations{AnnotationSetEnv: {setEnv("FOO", "class")}}),
	)

	_, err := binder.BeforeUnit(chain)
	if !errors.Is(err, envstore.ErrKeyConflict) {
		t.Fatalf("expected ErrKeyConflict, got %v", err)
	}
	if value, _ := kv.Lookup("FOO"); value != "original" {
		t.Fatalf("conflict must fail before mutating, FOO=%q", value)
	}
}

func TestBeforeUnitConflictAcrossFamiliesIsDetected(t *testing.T) {
	kv := envstore.NewMemory()
	binder := NewBinder(WithStore(envstore.New(kv)))

	chain := NewChain(NewScopeNode("method", Annotations{
		AnnotationSetEnv:   {setEnv("FOO", "set")},
		AnnotationClearEnv: {clearEnv("FOO")},
	}))

	if _, err := binder.BeforeUnit(chain); !errors.Is(err, envstore.ErrKeyConflict) {
		t.Fatalf("expected ErrKeyConflict across families, got %v", err)
	}
	if len(kv.Snapshot()) != 0 {
		t.Fatalf("conflict must fail before mutating, state=%v", kv.Snapshot())
	}
}

func TestBeforeUnitPublishesReportEntries(t *testing.T) {
	capture := &report.CaptureHook{}
	binder := NewBinder(
		WithStore(envstore.New(envstore.NewMemory())),
		WithReportHook(capture),
	)

	chain := NewChain(NewScopeNode("method", Annotations{
		AnnotationReportEntry: {
			{"key": "user", "value": "ms1"},
			{"value": "implicit"},
		},
	}))

	token, err := binder.BeforeUnit(chain)
	if err != nil {
		t.Fatalf("BeforeUnit failed: %v", err)
	}
	if err := binder.AfterUnit(token); err != nil {
		t.Fatalf("AfterUnit failed: %v", err)
	}

	if len(capture.Entries) != 2 {
		t.Fatalf("expected 2 published entries, got %d", len(capture.Entries))
	}
	if capture.Entries[0].Key != "user" || capture.Entries[0].Value != "ms1" {
		t.Fatalf("unexpected first entry: %+v", capture.Entries[0])
	}
	if capture.Entries[1].Key != report.ImplicitKey || capture.Entries[1].Value != "implicit" {
		t.Fatalf("expected implicit key, got %+v", capture.Entries[1])
	}
	if capture.Entries[0].Unit != token.Unit() {
		t.Fatalf("expected entries stamped with the unit id, got %q", capture.Entries[0].Unit)
	}
}

func TestBeforeUnitRejectsBlankReportEntries(t *testing.T) {
	binder := NewBinder(WithStore(envstore.New(envstore.NewMemory())))

	chain := NewChain(NewScopeNode("method", Annotations{
		AnnotationReportEntry: {{"key": "user", "value": "   "}},
	}))

	if _, err := binder.BeforeUnit(chain); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected configuration error for blank value, got %v", err)
	}
}

func TestBeforeUnitLoadsEnvironmentFiles(t *testing.T) {
	files := afero.NewMemMapFs()
	if err := afero.WriteFile(files, "env/test.env", []byte("B_KEY=two\nA_KEY=one\n"), 0o644); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	kv := envstore.NewMemory()
	binder := NewBinder(
		WithStore(envstore.New(kv)),
		WithFileSystem(files),
	)

	chain := NewChain(NewScopeNode("method", Annotations{
		AnnotationEnvFile: {{"path": "env/test.env"}},
	}))

	token, err := binder.BeforeUnit(chain)
	if err != nil {
		t.Fatalf("BeforeUnit failed: %v", err)
	}

	want := map[string]string{"A_KEY": "one", "B_KEY": "two"}
	if diff := cmp.Diff(want, kv.Snapshot()); diff != "" {
		t.Fatalf("unexpected state from env file (-want +got):\n%s", diff)
	}

	if err := binder.AfterUnit(token); err != nil {
		t.Fatalf("AfterUnit failed: %v", err)
	}
	if len(kv.Snapshot()) != 0 {
		t.Fatalf("env file values leaked: %v", kv.Snapshot())
	}
}

func TestBeforeUnitMissingEnvFileIsAConfigurationError(t *testing.T) {
	binder := NewBinder(
		WithStore(envstore.New(envstore.NewMemory())),
		WithFileSystem(afero.NewMemMapFs()),
	)

	chain := NewChain(NewScopeNode("method", Annotations{
		AnnotationEnvFile: {{"path": "does/not/exist.env"}},
	}))

	if _, err := binder.BeforeUnit(chain); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestBeforeUnitCustomMutationFamily(t *testing.T) {
	kv := envstore.NewMemory()
	binder := NewBinder(
		WithStore(envstore.New(kv)),
		WithMutationFamily(Family{
			Kind:   "PinTimezone",
			Policy: StopAtFirst,
			Translate: func(bag AttributeBag, level int) ([]Directive, error) {
				return []Directive{{
					Kind:       KindSetValue,
					ScopeLevel: level,
					Env:        &EnvPayload{Key: "TZ", Value: bag.String("zone")},
				}}, nil
			},
		}),
	)

	chain := NewChain(NewScopeNode("method", Annotations{
		"PinTimezone": {{"zone": "UTC"}},
	}))

	token, err := binder.BeforeUnit(chain)
	if err != nil {
		t.Fatalf("BeforeUnit failed: %v", err)
	}
	if value, _ := kv.Lookup("TZ"); value != "UTC" {
		t.Fatalf("custom family not applied, TZ=%q", value)
	}
	if err := binder.AfterUnit(token); err != nil {
		t.Fatalf("AfterUnit failed: %v", err)
	}
}

func TestBeforeUnitRejectsMutationDirectivesWithoutPayload(t *testing.T) {
	kv := envstore.NewMemory()
	binder := NewBinder(
		WithStore(envstore.New(kv)),
		WithMutationFamily(Family{
			Kind:   "Broken",
			Policy: StopAtFirst,
			Translate: func(bag AttributeBag, level int) ([]Directive, error) {
				return []Directive{{Kind: KindSetValue, ScopeLevel: level}}, nil
			},
		}),
	)

	chain := NewChain(NewScopeNode("method", Annotations{
		"Broken": {{}},
	}))

	_, err := binder.BeforeUnit(chain)
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected configuration error for missing payload, got %v", err)
	}
	if len(kv.Snapshot()) != 0 {
		t.Fatalf("no mutation may be applied, state=%v", kv.Snapshot())
	}
}

func TestAfterUnitRequiresAToken(t *testing.T) {
	binder := NewBinder(WithStore(envstore.New(envstore.NewMemory())))
	if err := binder.AfterUnit(nil); err == nil {
		t.Fatal("expected error for nil token")
	}
}

func TestBeforeUnitLogsDirectiveEvents(t *testing.T) {
	var events []DirectiveEvent
	binder := NewBinder(
		WithStore(envstore.New(envstore.NewMemory())),
		WithLogger(LoggerFunc(func(event DirectiveEvent) {
			events = append(events, event)
		})),
	)

	chain := NewChain(NewScopeNode("method", Annotations{
		AnnotationSetEnv: {setEnv("LOGGED", "yes")},
	}))

	token, err := binder.BeforeUnit(chain)
	if err != nil {
		t.Fatalf("BeforeUnit failed: %v", err)
	}
	defer func() {
		if err := binder.AfterUnit(token); err != nil {
			t.Fatalf("AfterUnit failed: %v", err)
		}
	}()

	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	event := events[0]
	if event.Unit != token.Unit() || event.Kind != KindSetValue || event.Key != "LOGGED" || event.Err != nil {
		t.Fatalf("unexpected event: %+v", event)
	}
}
