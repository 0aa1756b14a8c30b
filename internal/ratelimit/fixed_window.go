package ratelimit

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

const shardCount = 64

type window struct {
	count   int
	resetAt time.Time
}

type shard struct {
	mu      sync.Mutex
	windows map[string]*window
}

// FixedWindowLimiter counts requests per (client key, policy) in fixed windows
// held in independently locked shards.
type FixedWindowLimiter struct {
	policies *PolicyTable
	shards   [shardCount]*shard
}

func NewFixedWindow(policies *PolicyTable) *FixedWindowLimiter {
	f := &FixedWindowLimiter{policies: policies}
	for i := range f.shards {
		f.shards[i] = &shard{windows: make(map[string]*window)}
	}
	return f
}

func windowKey(clientKey string, policy EndpointPolicy) string {
	return clientKey + "\x00" + policy.Name
}

func (f *FixedWindowLimiter) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return f.shards[h.Sum32()%shardCount]
}

func (f *FixedWindowLimiter) Policy(path string) EndpointPolicy {
	return f.policies.Resolve(path)
}

// Admit reports whether the request is within its policy limit
func (f *FixedWindowLimiter) Admit(clientKey, path string, now time.Time) bool {
	return f.Decide(clientKey, path, now).Allowed
}

func (f *FixedWindowLimiter) Decide(clientKey, path string, now time.Time) Decision {
	policy := f.policies.Resolve(path)
	key := windowKey(clientKey, policy)
	s := f.shardFor(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok || !now.Before(w.resetAt) {
		// Replace, never merge, an expired window
		w = &window{count: 0, resetAt: now.Add(policy.Window)}
		s.windows[key] = w
	}

	if w.count >= policy.Requests {
		return Decision{
			Allowed:   false,
			Policy:    policy,
			Count:     w.count,
			Remaining: 0,
			ResetAt:   w.resetAt,
		}
	}

	w.count++
	return Decision{
		Allowed:   true,
		Policy:    policy,
		Count:     w.count,
		Remaining: policy.Requests - w.count,
		ResetAt:   w.resetAt,
	}
}

// Sweep drops windows that have expired at now and returns how many were removed
func (f *FixedWindowLimiter) Sweep(now time.Time) int {
	removed := 0
	for _, s := range f.shards {
		s.mu.Lock()
		for k, w := range s.windows {
			if !now.Before(w.resetAt) {
				delete(s.windows, k)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// Len returns the number of tracked windows
func (f *FixedWindowLimiter) Len() int {
	n := 0
	for _, s := range f.shards {
		s.mu.Lock()
		n += len(s.windows)
		s.mu.Unlock()
	}
	return n
}

// StartSweeper sweeps every interval until ctx is done
func (f *FixedWindowLimiter) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				f.Sweep(now)
			}
		}
	}()
}
