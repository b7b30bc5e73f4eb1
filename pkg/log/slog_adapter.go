package log

import (
	"context"
	"fmt"
	"log/slog"
)

// SlogAdapter writes trace events to an slog.Logger.
// Useful for development when you want to see node events in console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a new SlogAdapter that writes to the given slog.Logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event to the slog logger at Debug level.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("module", event.Module.String()),
		slog.String("direction", event.Direction.String()),
		slog.String("category", event.Category.String()),
	}

	if event.RunID != "" {
		attrs = append(attrs, slog.String("run_id", event.RunID))
	}

	switch {
	case event.Envelope != nil:
		attrs = append(attrs,
			slog.Uint64("bus_category", uint64(event.Envelope.BusCategory)),
			slog.String("event_mask", bitmaskString(event.Envelope.EventMask)),
			slog.Int("payload_size", event.Envelope.PayloadSize),
		)
		if event.Envelope.Matched != nil {
			attrs = append(attrs, slog.Int("matched", *event.Envelope.Matched))
		}
	case event.Send != nil:
		attrs = append(attrs,
			slog.Uint64("model", uint64(event.Send.ModelID)),
			slog.Uint64("opcode", uint64(event.Send.Opcode)),
			slog.Uint64("dest", uint64(event.Send.Dest)),
		)
		if event.Send.Retry {
			attrs = append(attrs, slog.Int("attempt", event.Send.Attempt))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.Uint64("element", uint64(event.StateChange.ElementID)),
			slog.String("field", event.StateChange.Field),
			slog.String("new", event.StateChange.NewValue),
		)
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_msg", event.Error.Message),
		)
		if event.Error.Context != "" {
			attrs = append(attrs, slog.String("error_context", event.Error.Context))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "meshx", attrs...)
}

// bitmaskString renders an event bitmask as 0x-prefixed hex.
func bitmaskString(mask uint32) string {
	return fmt.Sprintf("0x%08x", mask)
}

// Compile-time interface satisfaction check.
var _ Logger = (*SlogAdapter)(nil)
