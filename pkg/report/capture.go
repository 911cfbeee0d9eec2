package report

import (
	"context"
	"sync"
)

// CaptureHook records entries for assertions in tests.
type CaptureHook struct {
	Entries []Entry
	Err     error
	mu      sync.Mutex
}

// Publish records the entry and returns any configured error.
func (h *CaptureHook) Publish(_ context.Context, entry Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Entries = append(h.Entries, entry)
	return h.Err
}
