package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlinks/internal/accounts"
	"github.com/serroba/shortlinks/internal/errx"
	"github.com/serroba/shortlinks/internal/session"
	"go.uber.org/zap"
)

// AuthHandler handles registration and sign in.
type AuthHandler struct {
	accounts *accounts.Service
	sessions *session.Manager
	logger   *zap.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(accounts *accounts.Service, sessions *session.Manager, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		sessions: sessions,
		logger:   logger,
	}
}

func (h *AuthHandler) Register(ctx context.Context, req *CredentialsRequest) (*SessionResponse, error) {
	user, err := h.accounts.Register(ctx, req.Body.Email, req.Body.Password)
	if err != nil {
		return nil, httpError(h.logger, "register", err)
	}

	h.logger.Info("user registered", zap.String("user_id", user.ID))

	return h.signIn(user)
}

func (h *AuthHandler) Login(ctx context.Context, req *CredentialsRequest) (*SessionResponse, error) {
	user, err := h.accounts.Authenticate(ctx, req.Body.Email, req.Body.Password)
	if err != nil {
		if errx.Is(err, errx.NotFound) {
			return nil, huma.Error403Forbidden(accounts.ErrInvalidCredentials.Error())
		}

		return nil, httpError(h.logger, "login", err)
	}

	return h.signIn(user)
}

func (h *AuthHandler) Logout(_ context.Context, _ *struct{}) (*LogoutResponse, error) {
	return &LogoutResponse{SetCookie: h.sessions.Clear()}, nil
}

func (h *AuthHandler) Me(ctx context.Context, _ *struct{}) (*MeResponse, error) {
	userID := session.UserIDFromContext(ctx)
	if userID == "" {
		return nil, huma.Error401Unauthorized("sign in required")
	}

	user, err := h.accounts.GetByID(ctx, userID)
	if err != nil {
		return nil, httpError(h.logger, "me", err)
	}

	return &MeResponse{Body: UserBody{ID: user.ID, Email: user.Email}}, nil
}

func (h *AuthHandler) signIn(user *accounts.User) (*SessionResponse, error) {
	cookie, err := h.sessions.Issue(user.ID)
	if err != nil {
		return nil, httpError(h.logger, "issue session", err)
	}

	return &SessionResponse{
		SetCookie: cookie,
		Body:      UserBody{ID: user.ID, Email: user.Email},
	}, nil
}
