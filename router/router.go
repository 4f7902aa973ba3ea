package router

import (
	"net/http"

	_ "cocity-api/docs"
	"cocity-api/handler"
	"cocity-api/metrics"

	httpSwagger "github.com/swaggo/http-swagger/v2"
)

// NewRouter registers the auth and profile APIs plus health, metrics and
// swagger. Everything but register and login requires a bearer access token.
func NewRouter(authHandler *handler.AuthHandler, userHandler *handler.UserHandler, tokens handler.AccessTokenParser) http.Handler {
	mux := http.NewServeMux()
	requireAuth := handler.AuthMiddleware(tokens)

	route := func(pattern string, h http.Handler) {
		mux.Handle(pattern, metrics.Instrument(pattern, h))
	}

	route("GET /health", http.HandlerFunc(handler.HealthCheck))
	mux.Handle("GET /metrics", metrics.Handler())
	mux.Handle("GET /swagger/", httpSwagger.WrapHandler)

	route("POST /api/auth/register", handler.ErrorHandlingMiddleware(authHandler.Register))
	route("POST /api/auth/login", handler.ErrorHandlingMiddleware(authHandler.Login))
	route("POST /api/auth/refresh", requireAuth(handler.ErrorHandlingMiddleware(authHandler.Refresh)))
	route("POST /api/auth/logout", requireAuth(handler.ErrorHandlingMiddleware(authHandler.Logout)))
	route("POST /api/auth/changepwd", requireAuth(handler.ErrorHandlingMiddleware(authHandler.ChangePassword)))

	route("GET /api/user/profile", requireAuth(handler.ErrorHandlingMiddleware(userHandler.GetProfile)))
	route("GET /api/user/profile/{userId}", requireAuth(handler.ErrorHandlingMiddleware(userHandler.GetProfileByID)))
	route("PUT /api/user/profile", requireAuth(handler.ErrorHandlingMiddleware(userHandler.UpdateProfile)))

	return handler.RequestIDMiddleware(mux)
}
