package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/serroba/shortlinks/internal/analytics"
	"github.com/serroba/shortlinks/internal/links"
	"github.com/serroba/shortlinks/internal/messaging"
	"github.com/serroba/shortlinks/internal/session"
	"go.uber.org/zap"
)

// RedirectHandler follows public short links and reports each visit.
type RedirectHandler struct {
	links              *links.Service
	sessions           *session.Manager
	publishLinkVisited messaging.Publish[analytics.LinkVisitedEvent]
	newVisitorID       func() string
	now                func() time.Time
	logger             *zap.Logger
}

// NewRedirectHandler creates a new redirect handler.
func NewRedirectHandler(
	links *links.Service,
	sessions *session.Manager,
	publishLinkVisited messaging.Publish[analytics.LinkVisitedEvent],
	logger *zap.Logger,
) *RedirectHandler {
	return &RedirectHandler{
		links:              links,
		sessions:           sessions,
		publishLinkVisited: publishLinkVisited,
		newVisitorID:       uuid.NewString,
		now:                time.Now,
		logger:             logger,
	}
}

// Redirect sends the visitor to the link destination. Signed-in users are counted by user
// id, anonymous visitors by a visitor cookie minted on their first visit.
func (h *RedirectHandler) Redirect(ctx context.Context, req *RedirectRequest) (*RedirectResponse, error) {
	longURL, err := h.links.Resolve(ctx, req.ID)
	if err != nil {
		return nil, httpError(h.logger, "redirect", err)
	}

	resp := &RedirectResponse{
		Status:   http.StatusFound,
		Location: longURL,
	}

	visitorID := session.UserIDFromContext(ctx)
	if visitorID == "" {
		visitorID = req.VisitorID
	}

	if visitorID == "" {
		visitorID = h.newVisitorID()
		resp.SetCookie = append(resp.SetCookie, h.sessions.VisitorCookie(visitorID))
	}

	meta := RequestMetaFromContext(ctx)
	event := &analytics.LinkVisitedEvent{
		LinkID:    req.ID,
		VisitorID: visitorID,
		VisitedAt: h.now(),
		ClientIP:  meta.ClientIP,
		UserAgent: meta.UserAgent,
		Referrer:  meta.Referrer,
	}

	if err := h.publishLinkVisited(ctx, event); err != nil {
		h.logger.Error("failed to publish link visited event",
			zap.String("link_id", req.ID),
			zap.Error(err),
		)
	}

	return resp, nil
}
