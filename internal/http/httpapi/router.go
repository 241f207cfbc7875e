package httpapi

import (
	stdhttp "net/http"

	"orchestrator/internal/http/handlers"
	"orchestrator/internal/infra"
	"orchestrator/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type RouterOptions struct {
	Logger             infra.Logger
	RateLimitPerMinute int
}

func NewRouter(app *handlers.App, opts RouterOptions) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		middleware.Logger(opts.Logger),
		chimw.Recoverer,
		middleware.RateLimit(opts.RateLimitPerMinute),
	)

	r.Get("/health", app.Health)

	r.Route("/jobs", func(r chi.Router) {
		r.Post("/", app.CreateJob)
		r.Get("/{id}", app.GetJob)
	})

	return r
}
