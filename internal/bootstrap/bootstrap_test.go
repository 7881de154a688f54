package bootstrap

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"vidsound/internal/infra"
	"vidsound/internal/providers/fal"
	"vidsound/internal/storage"
)

func testConfig(t *testing.T) *infra.Config {
	t.Helper()
	return &infra.Config{
		AppEnv:             "test",
		Port:               "3000",
		FalQueueBaseURL:    "https://queue.fal.run",
		FalRestBaseURL:     "https://rest.alpha.fal.ai",
		FalModel:           fal.DefaultEndpoint,
		FalPollInterval:    time.Second,
		GenerationTimeout:  time.Minute,
		SubmitMaxAttempts:  3,
		SubmitRetryDelay:   2 * time.Second,
		StorageDriver:      "filesystem",
		StoragePath:        t.TempDir(),
		StorageBaseURL:     "http://localhost:3000/static",
		UploadMaxBytes:     1 << 20,
		UploadAllowedTypes: []string{"video/mp4"},
		CORSOriginPattern:  `^https://[a-z0-9-]+\.wxp\.adobe-addons\.com$`,
	}
}

func TestNewWithoutFalKeyUsesFilesystem(t *testing.T) {
	svc, err := New(context.Background(), testConfig(t), zerolog.New(io.Discard))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer svc.Close()

	if svc.Supervisor != nil {
		t.Fatalf("expected generation to be disabled without a key")
	}
	if _, ok := svc.Store.(*storage.FileStore); !ok {
		t.Fatalf("store = %T, want *storage.FileStore", svc.Store)
	}
	if svc.StaticDir == "" || svc.Runs != nil {
		t.Fatalf("static dir = %q, runs = %v", svc.StaticDir, svc.Runs)
	}

	router, err := svc.Router()
	if err != nil {
		t.Fatalf("Router: %v", err)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rr.Code)
	}
}

func TestNewWithFalKeyUsesFalStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.FalKey = "key"
	cfg.StorageDriver = "fal"

	svc, err := New(context.Background(), cfg, zerolog.New(io.Discard))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer svc.Close()

	if svc.Supervisor == nil {
		t.Fatalf("expected a supervisor when a key is configured")
	}
	if _, ok := svc.Store.(*fal.Client); !ok {
		t.Fatalf("store = %T, want *fal.Client", svc.Store)
	}
	if svc.StaticDir != "" {
		t.Fatalf("static dir = %q, want empty", svc.StaticDir)
	}
}

func TestRouterRejectsBadOriginPattern(t *testing.T) {
	cfg := testConfig(t)
	cfg.CORSOriginPattern = "("
	svc, err := New(context.Background(), cfg, zerolog.New(io.Discard))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer svc.Close()
	if _, err := svc.Router(); err == nil {
		t.Fatalf("expected error for invalid pattern")
	}
}
