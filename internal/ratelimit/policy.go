package ratelimit

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const DefaultPolicyName = "default"

// EndpointPolicy limits requests under a path prefix
type EndpointPolicy struct {
	Name     string
	Prefix   string
	Requests int
	Window   time.Duration
}

func (p EndpointPolicy) WindowMs() int64 {
	return p.Window.Milliseconds()
}

// Matches reports whether path falls under the policy prefix on a segment boundary
func (p EndpointPolicy) Matches(path string) bool {
	if p.Prefix == "" {
		return false
	}
	if !strings.HasPrefix(path, p.Prefix) {
		return false
	}
	if len(path) == len(p.Prefix) || strings.HasSuffix(p.Prefix, "/") {
		return true
	}
	return path[len(p.Prefix)] == '/'
}

func (p EndpointPolicy) validate() error {
	if p.Requests <= 0 {
		return fmt.Errorf("policy %q: requests must be positive", p.Name)
	}
	if p.Window <= 0 {
		return fmt.Errorf("policy %q: window must be positive", p.Name)
	}
	return nil
}

// PolicyTable is an ordered, immutable list of policies. The first matching
// prefix wins and the fallback matches everything else.
type PolicyTable struct {
	policies []EndpointPolicy
	fallback EndpointPolicy
}

func NewPolicyTable(policies []EndpointPolicy, fallback EndpointPolicy) (*PolicyTable, error) {
	fallback.Name = DefaultPolicyName
	fallback.Prefix = ""
	if err := fallback.validate(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(policies))
	table := make([]EndpointPolicy, 0, len(policies))
	for _, p := range policies {
		if p.Prefix == "" {
			return nil, fmt.Errorf("policy %q: prefix is required", p.Name)
		}
		if p.Name == "" {
			p.Name = p.Prefix
		}
		if p.Name == DefaultPolicyName {
			return nil, errors.New("policy name \"default\" is reserved for the fallback")
		}
		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("policy %q declared twice", p.Name)
		}
		if err := p.validate(); err != nil {
			return nil, err
		}
		seen[p.Name] = struct{}{}
		table = append(table, p)
	}

	return &PolicyTable{policies: table, fallback: fallback}, nil
}

// Resolve never returns an unlimited policy: unknown paths get the fallback
func (t *PolicyTable) Resolve(path string) EndpointPolicy {
	for _, p := range t.policies {
		if p.Matches(path) {
			return p
		}
	}
	return t.fallback
}

func (t *PolicyTable) Policies() []EndpointPolicy {
	out := make([]EndpointPolicy, 0, len(t.policies)+1)
	out = append(out, t.policies...)
	return append(out, t.fallback)
}

// DefaultPolicies is the built-in table, most specific first
func DefaultPolicies() []EndpointPolicy {
	return []EndpointPolicy{
		{Name: "auth", Prefix: "/api/auth", Requests: 5, Window: 15 * time.Minute},
		{Name: "upload", Prefix: "/api/upload", Requests: 10, Window: 15 * time.Minute},
		{Name: "ai", Prefix: "/api/ai", Requests: 20, Window: time.Hour},
		{Name: "webhooks", Prefix: "/api/webhooks", Requests: 100, Window: time.Minute},
		{Name: "api", Prefix: "/api", Requests: 100, Window: 15 * time.Minute},
	}
}

func DefaultFallback() EndpointPolicy {
	return EndpointPolicy{Name: DefaultPolicyName, Requests: 100, Window: 15 * time.Minute}
}
