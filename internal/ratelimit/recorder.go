package ratelimit

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/aman-churiwal/gatekeeper/internal/circuitbreaker"
	"github.com/aman-churiwal/gatekeeper/internal/storage"
)

// MemoryRecorder keeps rejection counts in process
type MemoryRecorder struct {
	mu     sync.Mutex
	counts map[string]int64
}

func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{counts: make(map[string]int64)}
}

func (m *MemoryRecorder) Record(policy string) {
	m.mu.Lock()
	m.counts[policy]++
	m.mu.Unlock()
}

func (m *MemoryRecorder) Snapshot(ctx context.Context) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]int64, len(m.counts))
	for k, v := range m.counts {
		out[k] = v
	}
	return out, nil
}

const RejectionsKey = "gatekeeper:rejections"

// RedisRecorder queues rejections on a buffered channel and a background
// worker folds them into a Redis hash. Flushes go through a circuit breaker.
type RedisRecorder struct {
	redis      *storage.RedisClient
	breaker    *circuitbreaker.CircuitBreaker
	events     chan string
	flushEvery time.Duration

	mu      sync.Mutex
	dropped int64

	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

func NewRedisRecorder(redis *storage.RedisClient, bufferSize int, flushEvery time.Duration) *RedisRecorder {
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	if flushEvery <= 0 {
		flushEvery = 5 * time.Second
	}

	r := &RedisRecorder{
		redis: redis,
		breaker: circuitbreaker.New(circuitbreaker.Config{
			MaxFailures:     3,
			Timeout:         30 * time.Second,
			HalfOpenSuccess: 1,
		}),
		events:     make(chan string, bufferSize),
		flushEvery: flushEvery,
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}

	go r.run()

	return r
}

func (r *RedisRecorder) Record(policy string) {
	select {
	case r.events <- policy:
	default:
		// Buffer full, drop rather than block the request
		r.mu.Lock()
		r.dropped++
		r.mu.Unlock()
	}
}

// Dropped returns how many events were discarded because the buffer was full
func (r *RedisRecorder) Dropped() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// BreakerState reports whether flushes to Redis are currently attempted
func (r *RedisRecorder) BreakerState() string {
	return r.breaker.State().String()
}

func (r *RedisRecorder) run() {
	defer close(r.stopped)

	batch := make(map[string]int64)
	ticker := time.NewTicker(r.flushEvery)
	defer ticker.Stop()

	for {
		select {
		case policy := <-r.events:
			batch[policy]++
		case <-ticker.C:
			batch = r.flush(batch)
		case <-r.done:
			// Drain what is already queued before the final flush
			for {
				select {
				case policy := <-r.events:
					batch[policy]++
				default:
					r.flush(batch)
					return
				}
			}
		}
	}
}

// flush returns the counts that still need writing
func (r *RedisRecorder) flush(batch map[string]int64) map[string]int64 {
	if len(batch) == 0 {
		return batch
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := r.breaker.Call(func() error {
		pipe := r.redis.Pipeline()
		for policy, n := range batch {
			pipe.HIncrBy(ctx, RejectionsKey, policy, n)
		}
		_, err := pipe.Exec(ctx)
		return err
	})
	if err != nil {
		log.Printf("Failed to flush rate limit rejections: %v", err)
		return batch
	}

	return make(map[string]int64)
}

func (r *RedisRecorder) Snapshot(ctx context.Context) (map[string]int64, error) {
	raw, err := r.redis.HGetAll(ctx, RejectionsKey)
	if err != nil {
		return nil, fmt.Errorf("read rejection counters: %w", err)
	}

	out := make(map[string]int64, len(raw))
	for policy, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		out[policy] = n
	}
	return out, nil
}

// Stop flushes pending events and stops the worker. Safe to call more than once.
func (r *RedisRecorder) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
	})
	<-r.stopped
}
