package handlers

import (
	"context"
	"fmt"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlinks/internal/analytics"
	"github.com/serroba/shortlinks/internal/links"
	"github.com/serroba/shortlinks/internal/messaging"
	"github.com/serroba/shortlinks/internal/session"
	"go.uber.org/zap"
)

// LinkHandler handles the signed-in user's links.
type LinkHandler struct {
	links              *links.Service
	baseURL            string
	publishLinkCreated messaging.Publish[analytics.LinkCreatedEvent]
	logger             *zap.Logger
}

// NewLinkHandler creates a new link handler. Short URLs are built as baseURL/u/{id}.
func NewLinkHandler(
	links *links.Service,
	baseURL string,
	publishLinkCreated messaging.Publish[analytics.LinkCreatedEvent],
	logger *zap.Logger,
) *LinkHandler {
	return &LinkHandler{
		links:              links,
		baseURL:            baseURL,
		publishLinkCreated: publishLinkCreated,
		logger:             logger,
	}
}

func (h *LinkHandler) List(ctx context.Context, _ *struct{}) (*ListLinksResponse, error) {
	userID := session.UserIDFromContext(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("sign in required")
	}

	owned, err := h.links.LinksForUser(ctx, userID)
	if err != nil {
		return nil, httpError(h.logger, "list links", err)
	}

	resp := &ListLinksResponse{}
	resp.Body.Links = make([]LinkBody, 0, len(owned))

	for _, ul := range owned {
		resp.Body.Links = append(resp.Body.Links, h.linkBody(ul.Link, ul.Stats))
	}

	return resp, nil
}

func (h *LinkHandler) Create(ctx context.Context, req *LongURLRequest) (*CreateLinkResponse, error) {
	userID := session.UserIDFromContext(ctx)

	link, err := h.links.Create(ctx, userID, req.Body.LongURL)
	if err != nil {
		return nil, httpError(h.logger, "create link", err)
	}

	meta := RequestMetaFromContext(ctx)
	event := &analytics.LinkCreatedEvent{
		LinkID:    link.ID,
		OwnerID:   link.OwnerID,
		LongURL:   link.LongURL,
		CreatedAt: link.CreatedAt,
		ClientIP:  meta.ClientIP,
		UserAgent: meta.UserAgent,
	}

	if err := h.publishLinkCreated(ctx, event); err != nil {
		h.logger.Error("failed to publish link created event",
			zap.String("link_id", link.ID),
			zap.Error(err),
		)
	}

	body := h.linkBody(link, links.Aggregate(link))

	return &CreateLinkResponse{Location: body.ShortURL, Body: body}, nil
}

func (h *LinkHandler) Get(ctx context.Context, req *LinkIDRequest) (*LinkResponse, error) {
	ul, err := h.links.Get(ctx, req.ID, session.UserIDFromContext(ctx))
	if err != nil {
		return nil, httpError(h.logger, "get link", err)
	}

	return &LinkResponse{Body: h.linkBody(ul.Link, ul.Stats)}, nil
}

func (h *LinkHandler) Update(ctx context.Context, req *UpdateLinkRequest) (*LinkResponse, error) {
	link, err := h.links.Update(ctx, req.ID, session.UserIDFromContext(ctx), req.Body.LongURL)
	if err != nil {
		return nil, httpError(h.logger, "update link", err)
	}

	return &LinkResponse{Body: h.linkBody(link, links.Aggregate(link))}, nil
}

func (h *LinkHandler) Delete(ctx context.Context, req *LinkIDRequest) (*struct{}, error) {
	if err := h.links.Delete(ctx, req.ID, session.UserIDFromContext(ctx)); err != nil {
		return nil, httpError(h.logger, "delete link", err)
	}

	return nil, nil
}

// ShortURL returns the public URL of link id.
func (h *LinkHandler) ShortURL(id string) string {
	return fmt.Sprintf("%s/u/%s", h.baseURL, id)
}

func (h *LinkHandler) linkBody(link *links.Link, stats links.Stats) LinkBody {
	return LinkBody{
		ID:             link.ID,
		LongURL:        link.LongURL,
		ShortURL:       h.ShortURL(link.ID),
		CreatedAt:      link.CreatedAt,
		TotalVisits:    stats.Total,
		UniqueVisitors: stats.Unique,
	}
}
