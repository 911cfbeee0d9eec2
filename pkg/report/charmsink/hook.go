package charmsink

import (
	"context"

	"github.com/charmbracelet/log"

	hooks "github.com/goliatone/go-testhooks"
	"github.com/goliatone/go-testhooks/pkg/report"
)

// Hook publishes report entries through a charmbracelet logger.
type Hook struct {
	Logger *log.Logger
}

// Publish logs the entry. A nil logger drops entries silently so the hook
// can be wired unconditionally.
func (h Hook) Publish(_ context.Context, entry report.Entry) error {
	if h.Logger == nil {
		return nil
	}
	h.Logger.Info("report entry", "unit", entry.Unit, entry.Key, entry.Value)
	return nil
}

// DirectiveLogger adapts the logger to the binder's directive log.
func DirectiveLogger(logger *log.Logger) hooks.Logger {
	return hooks.LoggerFunc(func(event hooks.DirectiveEvent) {
		if logger == nil {
			return
		}
		if event.Err != nil {
			logger.Error("directive failed",
				"unit", event.Unit,
				"kind", string(event.Kind),
				"key", event.Key,
				"scope", event.ScopeLevel,
				"err", event.Err,
			)
			return
		}
		logger.Debug("directive applied",
			"unit", event.Unit,
			"kind", string(event.Kind),
			"key", event.Key,
			"scope", event.ScopeLevel,
			"duration", event.Duration,
		)
	})
}
