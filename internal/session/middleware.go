package session

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlinks/internal/accounts"
	"go.uber.org/zap"
)

type userResolver interface {
	GetByID(ctx context.Context, id string) (*accounts.User, error)
}

// Middleware resolves the session cookie to a known user and stores its id in the request
// context. Missing, invalid or expired sessions, and sessions of users that no longer
// exist, leave the request anonymous.
func Middleware(
	manager *Manager,
	users userResolver,
	logger *zap.Logger,
) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		cookie, err := huma.ReadCookie(ctx, manager.CookieName())
		if err != nil || cookie.Value == "" {
			next(ctx)

			return
		}

		userID, err := manager.Parse(cookie.Value)
		if err != nil {
			logger.Debug("ignoring session cookie", zap.Error(err))
			next(ctx)

			return
		}

		if _, err := users.GetByID(ctx.Context(), userID); err != nil {
			logger.Debug("session user not found",
				zap.String("user_id", userID),
				zap.Error(err),
			)
			next(ctx)

			return
		}

		next(huma.WithContext(ctx, WithUserID(ctx.Context(), userID)))
	}
}
