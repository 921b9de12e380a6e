package app

import (
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := LoadConfig()

	if cfg.HTTPAddr != "0.0.0.0:8080" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "json" {
		t.Fatalf("log config = %q/%q", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.DBSchema != "pawline" {
		t.Fatalf("DBSchema = %q", cfg.DBSchema)
	}
	if cfg.ReadHeaderTimeout != 5*time.Second {
		t.Fatalf("ReadHeaderTimeout = %v", cfg.ReadHeaderTimeout)
	}
	if cfg.S3Bucket != "pawline-chat" || !cfg.S3UseSSL {
		t.Fatalf("s3 config = %q ssl=%v", cfg.S3Bucket, cfg.S3UseSSL)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("PAWLINE_HTTP_ADDR", "127.0.0.1:9999")
	t.Setenv("PAWLINE_DB_SCHEMA", "chat_test")
	t.Setenv("PAWLINE_HTTP_READ_TIMEOUT", "42s")
	t.Setenv("PAWLINE_READINESS_REQUIRE_DB", "true")
	t.Setenv("PAWLINE_DB_MAX_CONNS", "25")

	cfg := LoadConfig()

	if cfg.HTTPAddr != "127.0.0.1:9999" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.DBSchema != "chat_test" {
		t.Fatalf("DBSchema = %q", cfg.DBSchema)
	}
	if cfg.ReadTimeout != 42*time.Second {
		t.Fatalf("ReadTimeout = %v", cfg.ReadTimeout)
	}
	if !cfg.ReadinessRequireDB {
		t.Fatalf("ReadinessRequireDB not set")
	}
	if cfg.DBMaxConns != 25 {
		t.Fatalf("DBMaxConns = %d", cfg.DBMaxConns)
	}
}

func TestEnvHelpers_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("PAWLINE_TEST_INT", "not-a-number")
	t.Setenv("PAWLINE_TEST_DUR", "soon")
	t.Setenv("PAWLINE_TEST_BOOL", "maybe")

	if got := EnvInt("PAWLINE_TEST_INT", 7); got != 7 {
		t.Fatalf("EnvInt = %d", got)
	}
	if got := EnvDuration("PAWLINE_TEST_DUR", time.Minute); got != time.Minute {
		t.Fatalf("EnvDuration = %v", got)
	}
	if got := EnvBool("PAWLINE_TEST_BOOL", true); got != true {
		t.Fatalf("EnvBool = %v", got)
	}
}
