package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aman-churiwal/gatekeeper/internal/ratelimit"
)

type Config struct {
	Server     ServerConfig      `json:"server"`
	Database   DatabaseConfig    `json:"database"`
	Redis      RedisConfig       `json:"redis"`
	Auth       AuthConfig        `json:"auth"`
	Security   SecurityConfig    `json:"security"`
	RateLimits []RateLimitConfig `json:"rate_limits"`

	// Sweep interval for expired rate limit windows, 0 disables sweeping
	RateLimitSweepInterval time.Duration `json:"-"`
}

type ServerConfig struct {
	Port        string `json:"port"`
	Environment string `json:"environment"`
	TrustProxy  bool   `json:"trust_proxy"`

	// Addresses or CIDRs whose forwarding headers are believed when TrustProxy is set
	TrustedProxies []string `json:"trusted_proxies"`
}

type DatabaseConfig struct {
	URL string `json:"url"`
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type AuthConfig struct {
	JWTSecret      string `json:"-"`
	JWTExpiryHours int    `json:"jwt_expiry_hours"`
}

// Secrets are only read from the environment
type SecurityConfig struct {
	CSRFSecret     string   `json:"-"`
	WebhookSecret  string   `json:"-"`
	AllowedOrigins []string `json:"allowed_origins"`
}

// RateLimitConfig is one endpoint class. The entry named "default" is the fallback.
type RateLimitConfig struct {
	Name     string `json:"name"`
	Prefix   string `json:"prefix"`
	Requests int    `json:"requests"`
	WindowMs int64  `json:"window_ms"`
}

func defaults() *Config {
	return &Config{
		Server:                 ServerConfig{Port: "8080", Environment: "development"},
		Auth:                   AuthConfig{JWTExpiryHours: 24},
		RateLimitSweepInterval: 5 * time.Minute,
	}
}

// Load reads the optional JSON file at path and overlays the environment
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		file, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := json.Unmarshal(file, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Port = envString("PORT", cfg.Server.Port)
	cfg.Server.Environment = envString("ENVIRONMENT", cfg.Server.Environment)
	cfg.Server.TrustProxy = envBool("TRUST_PROXY", cfg.Server.TrustProxy)
	if raw := os.Getenv("TRUSTED_PROXIES"); raw != "" {
		cfg.Server.TrustedProxies = splitList(raw)
	}

	cfg.Database.URL = envString("DATABASE_URL", cfg.Database.URL)

	cfg.Redis.Addr = envString("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = envString("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = envInt("REDIS_DB", cfg.Redis.DB)

	cfg.Auth.JWTSecret = envString("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.JWTExpiryHours = envInt("JWT_EXPIRY_HOURS", cfg.Auth.JWTExpiryHours)

	cfg.Security.CSRFSecret = envString("CSRF_SECRET", cfg.Security.CSRFSecret)
	cfg.Security.WebhookSecret = envString("WEBHOOK_SECRET", cfg.Security.WebhookSecret)
	if raw := os.Getenv("ALLOWED_ORIGINS"); raw != "" {
		cfg.Security.AllowedOrigins = splitList(raw)
	}

	cfg.RateLimitSweepInterval = envDuration("RATE_LIMIT_SWEEP_INTERVAL", cfg.RateLimitSweepInterval)
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Server.Environment), "production")
}

// Validate refuses production configs with missing secrets or open CORS
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("server port is required")
	}
	if c.Auth.JWTExpiryHours <= 0 {
		return errors.New("JWT_EXPIRY_HOURS must be positive")
	}
	if _, err := c.PolicyTable(); err != nil {
		return err
	}
	if _, err := c.ProxyPrefixes(); err != nil {
		return err
	}

	if !c.IsProduction() {
		return nil
	}

	required := []struct{ name, value string }{
		{"JWT_SECRET", c.Auth.JWTSecret},
		{"CSRF_SECRET", c.Security.CSRFSecret},
		{"WEBHOOK_SECRET", c.Security.WebhookSecret},
		{"DATABASE_URL", c.Database.URL},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("production requires %s", r.name)
		}
	}

	if len(c.Security.AllowedOrigins) == 0 {
		return errors.New("production requires explicit ALLOWED_ORIGINS")
	}
	for _, o := range c.Security.AllowedOrigins {
		if o == "*" {
			return errors.New("production forbids a wildcard CORS origin")
		}
		if !strings.HasPrefix(strings.ToLower(o), "https://") {
			return fmt.Errorf("production requires HTTPS CORS origins, got %q", o)
		}
	}
	return nil
}

// PolicyTable builds the rate limit table, falling back to the built-in one
// when no policies are configured
func (c *Config) PolicyTable() (*ratelimit.PolicyTable, error) {
	if len(c.RateLimits) == 0 {
		return ratelimit.NewPolicyTable(ratelimit.DefaultPolicies(), ratelimit.DefaultFallback())
	}

	fallback := ratelimit.DefaultFallback()
	policies := make([]ratelimit.EndpointPolicy, 0, len(c.RateLimits))
	for _, rl := range c.RateLimits {
		p := ratelimit.EndpointPolicy{
			Name:     rl.Name,
			Prefix:   rl.Prefix,
			Requests: rl.Requests,
			Window:   time.Duration(rl.WindowMs) * time.Millisecond,
		}
		if rl.Name == ratelimit.DefaultPolicyName {
			fallback = p
			continue
		}
		policies = append(policies, p)
	}

	table, err := ratelimit.NewPolicyTable(policies, fallback)
	if err != nil {
		return nil, fmt.Errorf("invalid rate_limits: %w", err)
	}
	return table, nil
}

// ProxyPrefixes returns the trusted proxy ranges, or nil when forwarding
// headers are not trusted at all
func (c *Config) ProxyPrefixes() ([]netip.Prefix, error) {
	if !c.Server.TrustProxy {
		return nil, nil
	}
	if len(c.Server.TrustedProxies) == 0 {
		return nil, errors.New("TRUST_PROXY requires TRUSTED_PROXIES")
	}

	prefixes := make([]netip.Prefix, 0, len(c.Server.TrustedProxies))
	for _, raw := range c.Server.TrustedProxies {
		if prefix, err := netip.ParsePrefix(raw); err == nil {
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q", raw)
		}
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

func envString(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func envInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
