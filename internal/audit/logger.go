package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"erp-control-plane/internal/audit/domain"
	auditrepo "erp-control-plane/internal/audit/repository"
	"erp-control-plane/internal/telemetry"
)

// SentinelTenantID is the tenant_id used for events that have no tenant
// (e.g. failed sign-ins, compensation failures before linking).
const SentinelTenantID = "_system"

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// AuditLogger writes a single audit event with explicit action/resource.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, tenantID, userID, action, resource, metadata string)
}

// Logger implements AuditLogger using the audit repository and an optional IP extractor.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
	emitter     telemetry.EventEmitter
	log         *slog.Logger
}

// NewLogger returns an AuditLogger that persists to repo and uses ipExtractor
// for client IP. ipExtractor may be nil; then IP is recorded as "unknown".
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor, log *slog.Logger) *Logger {
	if log == nil {
		log = slog.Default()
	}
	return &Logger{repo: repo, ipExtractor: ipExtractor, log: log}
}

// WithEmitter adds a telemetry emitter; every audit entry is also forwarded as
// an operational event. Returns the logger for chaining.
func (l *Logger) WithEmitter(e telemetry.EventEmitter) *Logger {
	l.emitter = e
	return l
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, tenantID, userID, action, resource, metadata string) {
	if l.repo == nil {
		return
	}
	ip := "unknown"
	if l.ipExtractor != nil {
		ip = l.ipExtractor(ctx)
	}
	if tenantID == "" {
		tenantID = SentinelTenantID
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		l.log.Error("audit: failed to log event", "action", action, "resource", resource, "error", err)
	}
	if l.emitter != nil {
		ev := &telemetry.Event{
			TenantID:  entry.TenantID,
			UserID:    entry.UserID,
			Action:    entry.Action,
			Resource:  entry.Resource,
			Metadata:  entry.Metadata,
			CreatedAt: entry.CreatedAt,
		}
		if err := l.emitter.Emit(ctx, ev); err != nil {
			l.log.Error("audit: failed to emit event", "action", action, "error", err)
		}
	}
}
