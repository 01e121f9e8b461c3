package analytics

import (
	"context"
	"errors"

	"github.com/serroba/shortlinks/internal/errx"
	"github.com/serroba/shortlinks/internal/messaging"
	"go.uber.org/zap"
)

var ErrIncompleteEvent = errors.New("visit event without link or visitor id")

type visitRecorder interface {
	RecordVisit(ctx context.Context, id, visitorID string) error
}

// Recorder applies visit events to the link store.
type Recorder struct {
	links  visitRecorder
	logger *zap.Logger
}

// NewRecorder creates a recorder incrementing visit counts through links.
func NewRecorder(links visitRecorder, logger *zap.Logger) *Recorder {
	return &Recorder{links: links, logger: logger}
}

// HandleVisit increments the visitor's counter on the visited link. Visits to links deleted
// since the redirect are dropped.
func (r *Recorder) HandleVisit(ctx context.Context, event *LinkVisitedEvent) error {
	if event.LinkID == "" || event.VisitorID == "" {
		return messaging.Permanent(ErrIncompleteEvent)
	}

	if err := r.links.RecordVisit(ctx, event.LinkID, event.VisitorID); err != nil {
		if errx.Is(err, errx.NotFound) {
			return messaging.Permanent(err)
		}

		return err
	}

	r.logger.Debug("visit recorded",
		zap.String("link_id", event.LinkID),
		zap.String("visitor_id", event.VisitorID),
		zap.String("client_ip", event.ClientIP),
	)

	return nil
}
