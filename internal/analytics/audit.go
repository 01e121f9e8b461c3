package analytics

import (
	"context"

	"go.uber.org/zap"
)

// AuditLog writes link lifecycle events to the structured log.
type AuditLog struct {
	logger *zap.Logger
}

// NewAuditLog creates an audit log writing to logger.
func NewAuditLog(logger *zap.Logger) *AuditLog {
	return &AuditLog{logger: logger.Named("audit")}
}

// HandleCreated logs a created link.
func (a *AuditLog) HandleCreated(_ context.Context, event *LinkCreatedEvent) error {
	a.logger.Info("link created",
		zap.String("link_id", event.LinkID),
		zap.String("owner_id", event.OwnerID),
		zap.String("long_url", event.LongURL),
		zap.Time("created_at", event.CreatedAt),
		zap.String("client_ip", event.ClientIP),
		zap.String("user_agent", event.UserAgent),
	)

	return nil
}
