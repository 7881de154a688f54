package httpapi

import (
	"net/http"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"vidsound/internal/http/handlers"
	"vidsound/internal/infra"
	"vidsound/internal/middleware"
)

// Options carries the router's cross-cutting configuration.
type Options struct {
	Logger         infra.Logger
	AllowedOrigins []string
	OriginPattern  *regexp.Regexp
	// RateLimitPerMin bounds /api requests per client IP. Zero disables it.
	RateLimitPerMin int
	// StaticDir, when set, is served under /static for locally stored uploads.
	StaticDir string
	Gatherer  prometheus.Gatherer
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(
		chimw.RealIP,
		middleware.RequestID,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(middleware.CORSOptions{
			AllowedOrigins: opts.AllowedOrigins,
			Pattern:        opts.OriginPattern,
		}),
	)

	r.Get("/health", app.Health)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
		r.Post("/upload-video", app.UploadVideo)
		r.Post("/generate-audio", app.GenerateAudio)
		r.Get("/runs", app.ListRuns)
	})

	if opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", handlers.MetricsHandler(opts.Gatherer))
	}
	if opts.StaticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(opts.StaticDir))))
	}

	return r
}
