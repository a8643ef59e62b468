// Package telemetry defines the operational event stream: audit-grade events
// forwarded to the observability backend alongside their durable storage.
package telemetry

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Event is one operational event (sign-in, provisioning outcome, compensation
// failure) forwarded to the telemetry backend.
type Event struct {
	TenantID  string
	UserID    string
	Action    string
	Resource  string
	Metadata  string
	CreatedAt time.Time
}

// EventEmitter sends events to the telemetry backend. Implementations must be
// best-effort and safe for concurrent use.
type EventEmitter interface {
	Emit(ctx context.Context, e *Event) error
}

// NoopEmitter discards events. Used when no OTLP endpoint is configured.
type NoopEmitter struct{}

func (NoopEmitter) Emit(context.Context, *Event) error { return nil }

// NewLogger returns the process-wide structured logger. Production gets JSON
// on stdout; anything else gets the human-readable text handler.
func NewLogger(env string) *slog.Logger {
	if env == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}
