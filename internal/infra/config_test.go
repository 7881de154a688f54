package infra

import (
	"testing"
	"time"
)

func clearFalEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"FAL_KEY", "FAL_API_KEY", "STORAGE_DRIVER", "STORAGE_BASE_URL", "PORT"} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaultsToFilesystemWithoutKey(t *testing.T) {
	clearFalEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.StorageDriver != "filesystem" {
		t.Fatalf("StorageDriver = %q, want filesystem", cfg.StorageDriver)
	}
	if cfg.UsesFal() {
		t.Fatalf("UsesFal should be false without a key")
	}
	if cfg.FalModel != "fal-ai/thinksound" {
		t.Fatalf("FalModel = %q", cfg.FalModel)
	}
	if cfg.GenerationTimeout != 60*time.Second {
		t.Fatalf("GenerationTimeout = %s, want 60s", cfg.GenerationTimeout)
	}
	if cfg.SubmitMaxAttempts != 3 || cfg.SubmitRetryDelay != 2*time.Second {
		t.Fatalf("retry defaults = %d/%s", cfg.SubmitMaxAttempts, cfg.SubmitRetryDelay)
	}
	if cfg.StorageBaseURL != "http://localhost:3000/static" {
		t.Fatalf("StorageBaseURL = %q", cfg.StorageBaseURL)
	}
}

func TestLoadConfigLegacyKeyEnablesFal(t *testing.T) {
	clearFalEnv(t)
	t.Setenv("FAL_API_KEY", " secret ")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.FalKey != "secret" {
		t.Fatalf("FalKey = %q, want secret", cfg.FalKey)
	}
	if cfg.StorageDriver != "fal" {
		t.Fatalf("StorageDriver = %q, want fal", cfg.StorageDriver)
	}
}

func TestLoadConfigRejectsFalDriverWithoutKey(t *testing.T) {
	clearFalEnv(t)
	t.Setenv("STORAGE_DRIVER", "fal")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error for fal driver without key")
	}
}

func TestLoadConfigParsesLists(t *testing.T) {
	clearFalEnv(t)
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com ")
	t.Setenv("UPLOAD_ALLOWED_TYPES", "video/mp4")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	expected := []string{"https://a.example.com", "https://b.example.com"}
	if len(cfg.CORSAllowedOrigins) != len(expected) {
		t.Fatalf("CORSAllowedOrigins = %#v, want %#v", cfg.CORSAllowedOrigins, expected)
	}
	for i, origin := range expected {
		if cfg.CORSAllowedOrigins[i] != origin {
			t.Fatalf("CORSAllowedOrigins[%d] = %q, want %q", i, cfg.CORSAllowedOrigins[i], origin)
		}
	}
	if len(cfg.UploadAllowedTypes) != 1 || cfg.UploadAllowedTypes[0] != "video/mp4" {
		t.Fatalf("UploadAllowedTypes = %#v", cfg.UploadAllowedTypes)
	}
}

func TestLoadConfigRejectsNonPositiveAttempts(t *testing.T) {
	clearFalEnv(t)
	t.Setenv("SUBMIT_MAX_ATTEMPTS", "0")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error for zero attempts")
	}
}
