package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ImplicitKey is used when an entry declares only a value.
const ImplicitKey = "value"

// ErrBlankEntry indicates an entry with a blank key or value. Entries are
// rejected before publication, never silently defaulted.
var ErrBlankEntry = errors.New("report: entries can't have blank key or value")

// Entry is one key/value pair destined for the host runtime's report stream.
type Entry struct {
	Key         string
	Value       string
	Unit        string
	PublishedAt time.Time
}

// Validate rejects entries whose key or value is blank.
func (e Entry) Validate() error {
	if strings.TrimSpace(e.Key) == "" || strings.TrimSpace(e.Value) == "" {
		return fmt.Errorf("%w: key=%q value=%q", ErrBlankEntry, e.Key, e.Value)
	}
	return nil
}

// Hook receives published report entries.
type Hook interface {
	Publish(ctx context.Context, entry Entry) error
}

// HookFunc allows plain functions to satisfy Hook.
type HookFunc func(ctx context.Context, entry Entry) error

// Publish dispatches to the underlying function.
func (fn HookFunc) Publish(ctx context.Context, entry Entry) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, entry)
}

// Hooks fans out entries to zero or more hooks.
type Hooks []Hook

// Enabled reports whether there are any hooks to publish to.
func (h Hooks) Enabled() bool {
	return len(h) > 0
}

// Publish validates the entry and forwards it to all hooks, returning a
// joined error if any fail.
func (h Hooks) Publish(ctx context.Context, entry Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	if len(h) == 0 {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if entry.PublishedAt.IsZero() {
		entry.PublishedAt = time.Now()
	}

	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Publish(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.Join(errs...)
}
