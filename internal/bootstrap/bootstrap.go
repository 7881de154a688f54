// Package bootstrap assembles the generation pipeline from configuration. The
// API server and the CLI share it so both run the same Supervisor.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"regexp"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"vidsound/internal/adapter/repo"
	"vidsound/internal/domain"
	"vidsound/internal/generation"
	"vidsound/internal/http/handlers"
	"vidsound/internal/http/httpapi"
	"vidsound/internal/infra"
	"vidsound/internal/providers/fal"
	"vidsound/internal/storage"
)

// Services is the wired pipeline. Supervisor is nil when no fal key is configured.
type Services struct {
	Config     *infra.Config
	Logger     infra.Logger
	Registry   *prometheus.Registry
	Supervisor *generation.Supervisor
	Store      storage.AssetStore
	Policy     storage.Policy
	// StaticDir is the directory served under /static for the filesystem store.
	StaticDir string
	Runs      domain.RunRepository

	pool *pgxpool.Pool
}

// New wires services from cfg. Close must be called to release the database pool.
func New(ctx context.Context, cfg *infra.Config, logger infra.Logger) (*Services, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc := &Services{
		Config:   cfg,
		Logger:   logger,
		Registry: reg,
		Policy: storage.Policy{
			AllowedTypes: cfg.UploadAllowedTypes,
			MaxBytes:     cfg.UploadMaxBytes,
		},
	}

	var client *fal.Client
	if cfg.UsesFal() {
		var err error
		client, err = fal.NewClient(fal.Options{
			APIKey:       cfg.FalKey,
			QueueBaseURL: cfg.FalQueueBaseURL,
			RestBaseURL:  cfg.FalRestBaseURL,
			PollInterval: cfg.FalPollInterval,
			Logger:       &logger,
		})
		if err != nil {
			return nil, fmt.Errorf("fal client: %w", err)
		}
		svc.Supervisor = generation.NewSupervisor(fal.NewGenerator(client, cfg.FalModel), generation.Options{
			MaxAttempts: cfg.SubmitMaxAttempts,
			RetryDelay:  cfg.SubmitRetryDelay,
			Logger:      &logger,
			Metrics:     generation.NewMetrics(reg),
		})
	} else {
		logger.Warn().Msg("FAL_KEY not set; audio generation is disabled")
	}

	switch cfg.StorageDriver {
	case "fal":
		svc.Store = client
	case "filesystem":
		fs, err := storage.NewFileStore(cfg.StoragePath, cfg.StorageBaseURL)
		if err != nil {
			return nil, err
		}
		svc.Store = fs
		svc.StaticDir = fs.BasePath()
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if pool != nil {
		runs := repo.NewRunRepository(infra.NewSQLRunner(pool, logger))
		if err := runs.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		svc.pool = pool
		svc.Runs = runs
	}

	logger.Info().
		Str("storage", cfg.StorageDriver).
		Bool("generation", svc.Supervisor != nil).
		Bool("run_history", svc.Runs != nil).
		Str("model", cfg.FalModel).
		Msg("bootstrap: services ready")
	return svc, nil
}

// Router builds the HTTP API on top of the services.
func (s *Services) Router() (http.Handler, error) {
	var pattern *regexp.Regexp
	if s.Config.CORSOriginPattern != "" {
		var err error
		pattern, err = regexp.Compile(s.Config.CORSOriginPattern)
		if err != nil {
			return nil, fmt.Errorf("compile CORS_ORIGIN_PATTERN: %w", err)
		}
	}

	app := &handlers.App{
		Store:    s.Store,
		Policy:   s.Policy,
		Deadline: s.Config.GenerationTimeout,
		Runs:     s.Runs,
		Logger:   s.Logger,
	}
	if s.Supervisor != nil {
		app.Generator = s.Supervisor
	}

	return httpapi.NewRouter(app, httpapi.Options{
		Logger:          s.Logger,
		AllowedOrigins:  s.Config.CORSAllowedOrigins,
		OriginPattern:   pattern,
		RateLimitPerMin: s.Config.RateLimitPerMin,
		StaticDir:       s.StaticDir,
		Gatherer:        s.Registry,
	}), nil
}

// Close releases the database pool, if any.
func (s *Services) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
