package config

import (
	"net/netip"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "ENVIRONMENT", "TRUST_PROXY", "TRUSTED_PROXIES", "DATABASE_URL", "REDIS_ADDR", "REDIS_PASSWORD",
		"REDIS_DB", "JWT_SECRET", "JWT_EXPIRY_HOURS", "CSRF_SECRET", "WEBHOOK_SECRET",
		"ALLOWED_ORIGINS", "RATE_LIMIT_SWEEP_INTERVAL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "8080" || cfg.IsProduction() {
		t.Fatalf("unexpected defaults %+v", cfg.Server)
	}
	table, err := cfg.PolicyTable()
	if err != nil {
		t.Fatalf("policy table: %v", err)
	}
	if table.Resolve("/api/upload").Requests != 10 {
		t.Fatalf("expected built-in upload policy")
	}
}

func TestLoadFileAndEnvOverlay(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")
	raw := `{
		"server": {"port": "9000", "environment": "staging"},
		"rate_limits": [
			{"name": "upload", "prefix": "/api/upload", "requests": 10, "window_ms": 900000},
			{"name": "default", "requests": 50, "window_ms": 60000}
		]
	}`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("PORT", "9100")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("RATE_LIMIT_SWEEP_INTERVAL", "30s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9100" || cfg.Server.Environment != "staging" {
		t.Fatalf("unexpected server config %+v", cfg.Server)
	}
	if len(cfg.Security.AllowedOrigins) != 2 || cfg.Security.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.Security.AllowedOrigins)
	}
	if cfg.RateLimitSweepInterval != 30*time.Second {
		t.Fatalf("unexpected sweep interval %v", cfg.RateLimitSweepInterval)
	}

	table, err := cfg.PolicyTable()
	if err != nil {
		t.Fatalf("policy table: %v", err)
	}
	if p := table.Resolve("/api/upload"); p.Requests != 10 || p.Window != 15*time.Minute {
		t.Fatalf("unexpected upload policy %+v", p)
	}
	if p := table.Resolve("/api/me"); p.Name != "default" || p.Requests != 50 {
		t.Fatalf("unexpected fallback %+v", p)
	}
}

func TestLoadRejectsBadPolicies(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")
	raw := `{"rate_limits": [{"name": "x", "prefix": "/x", "requests": 0, "window_ms": 1000}]}`
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected invalid policy error")
	}
}

func TestProductionValidation(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "production")
	if _, err := Load(""); err == nil {
		t.Fatalf("production without secrets must fail")
	}

	t.Setenv("JWT_SECRET", "j")
	t.Setenv("CSRF_SECRET", "c")
	t.Setenv("WEBHOOK_SECRET", "w")
	t.Setenv("DATABASE_URL", "postgres://localhost/app")
	t.Setenv("ALLOWED_ORIGINS", "*")
	if _, err := Load(""); err == nil {
		t.Fatalf("production with wildcard origin must fail")
	}

	t.Setenv("ALLOWED_ORIGINS", "http://app.example.com")
	if _, err := Load(""); err == nil {
		t.Fatalf("production with plain HTTP origin must fail")
	}

	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("valid production config rejected: %v", err)
	}
	if !cfg.IsProduction() {
		t.Fatalf("expected production")
	}
}

func TestTrustedProxies(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if prefixes, _ := cfg.ProxyPrefixes(); prefixes != nil {
		t.Fatalf("forwarding headers must be ignored by default, got %v", prefixes)
	}

	t.Setenv("TRUST_PROXY", "true")
	if _, err := Load(""); err == nil {
		t.Fatalf("trusting every forwarder must be refused")
	}

	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.10")
	cfg, err = Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	prefixes, err := cfg.ProxyPrefixes()
	if err != nil || len(prefixes) != 2 {
		t.Fatalf("unexpected prefixes %v %v", prefixes, err)
	}
	if prefixes[1].Bits() != 32 || !prefixes[0].Contains(netip.MustParseAddr("10.1.2.3")) {
		t.Fatalf("unexpected prefixes %v", prefixes)
	}

	t.Setenv("TRUSTED_PROXIES", "not-an-ip")
	if _, err := Load(""); err == nil {
		t.Fatalf("malformed proxy entry must fail")
	}
}
