package router

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-event-api/internal/account"
	"github.com/ovaphlow/pitchfork/service-event-api/internal/event"
	"github.com/ovaphlow/pitchfork/service-event-api/internal/upload"
)

// Deps are the handlers mounted by RegisterRoutes.
type Deps struct {
	Accounts *account.Handler
	Events   *event.Handler
	// Gate guards protected routes; normally auth.RequireAuth.
	Gate    func(http.Handler) http.Handler
	Uploads http.Handler
	Config  Config
}

// RegisterRoutes mounts HTTP handlers on a http.ServeMux and wraps it in the
// middleware chain: recover, request id, logging, CORS, security headers.
func RegisterRoutes(logger *zap.SugaredLogger, d Deps) http.Handler {
	mux := http.NewServeMux()
	protect := func(h http.HandlerFunc) http.Handler { return d.Gate(h) }

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Welcome to the Event Management API"))
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// accounts
	mux.HandleFunc("POST /api/users/signup", d.Accounts.Signup)
	mux.HandleFunc("POST /api/users/login", d.Accounts.Login)
	mux.Handle("GET /api/users/me", protect(d.Accounts.Me))

	// events
	mux.Handle("POST /api/events", protect(d.Events.Create))
	mux.HandleFunc("GET /api/events", d.Events.List)
	mux.HandleFunc("GET /api/events/{id}", d.Events.Get)
	mux.Handle("PUT /api/events/{id}", protect(d.Events.Update))
	mux.Handle("DELETE /api/events/{id}", protect(d.Events.Delete))

	if d.Uploads != nil {
		mux.Handle("GET "+upload.URLPrefix, d.Uploads)
	}

	var handler http.Handler = mux
	handler = SecurityHeadersMiddleware()(handler)
	handler = CORSMiddleware(d.Config.AllowedOrigins)(handler)
	handler = LoggingMiddleware(logger)(handler)
	handler = RequestIDMiddleware()(handler)
	handler = RecoverMiddleware(logger)(handler)
	return handler
}
