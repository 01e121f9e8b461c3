package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/shortlinks/internal/ratelimit"
)

// RegisterRoutes registers the account, link and redirect routes. credentialLimits are
// attached to the register and login operations to slow down credential guessing.
func RegisterRoutes(
	api huma.API,
	auth *AuthHandler,
	linkHandler *LinkHandler,
	redirect *RedirectHandler,
	credentialLimits []ratelimit.Rule,
) {
	var credentialMeta map[string]any
	if len(credentialLimits) > 0 {
		credentialMeta = map[string]any{ratelimit.MetadataKey: credentialLimits}
	}

	huma.Register(api, huma.Operation{
		OperationID:   "register",
		Method:        http.MethodPost,
		Path:          "/register",
		Summary:       "Register",
		Description:   "Creates an account and signs it in.",
		Tags:          []string{"Accounts"},
		DefaultStatus: http.StatusCreated,
		Metadata:      credentialMeta,
	}, auth.Register)

	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/login",
		Summary:     "Sign in",
		Tags:        []string{"Accounts"},
		Metadata:    credentialMeta,
	}, auth.Login)

	huma.Register(api, huma.Operation{
		OperationID:   "logout",
		Method:        http.MethodPost,
		Path:          "/logout",
		Summary:       "Sign out",
		Tags:          []string{"Accounts"},
		DefaultStatus: http.StatusNoContent,
	}, auth.Logout)

	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Current user",
		Tags:        []string{"Accounts"},
	}, auth.Me)

	huma.Register(api, huma.Operation{
		OperationID: "list-links",
		Method:      http.MethodGet,
		Path:        "/urls",
		Summary:     "List my links",
		Description: "Lists the caller's links in creation order with total and unique visits.",
		Tags:        []string{"Links"},
	}, linkHandler.List)

	huma.Register(api, huma.Operation{
		OperationID:   "create-link",
		Method:        http.MethodPost,
		Path:          "/urls",
		Summary:       "Create short link",
		Tags:          []string{"Links"},
		DefaultStatus: http.StatusCreated,
	}, linkHandler.Create)

	huma.Register(api, huma.Operation{
		OperationID: "get-link",
		Method:      http.MethodGet,
		Path:        "/urls/{id}",
		Summary:     "Get link",
		Tags:        []string{"Links"},
	}, linkHandler.Get)

	huma.Register(api, huma.Operation{
		OperationID: "update-link",
		Method:      http.MethodPut,
		Path:        "/urls/{id}",
		Summary:     "Change link destination",
		Tags:        []string{"Links"},
	}, linkHandler.Update)

	huma.Register(api, huma.Operation{
		OperationID:   "delete-link",
		Method:        http.MethodDelete,
		Path:          "/urls/{id}",
		Summary:       "Delete link",
		Tags:          []string{"Links"},
		DefaultStatus: http.StatusNoContent,
	}, linkHandler.Delete)

	huma.Register(api, huma.Operation{
		OperationID: "follow-link",
		Method:      http.MethodGet,
		Path:        "/u/{id}",
		Summary:     "Follow short link",
		Description: "Redirects to the destination of the short link and counts the visit.",
		Tags:        []string{"Redirect"},
	}, redirect.Redirect)
}
