package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of one admission check
type Decision struct {
	Allowed   bool
	Policy    EndpointPolicy
	Count     int
	Remaining int
	ResetAt   time.Time
}

type Limiter interface {
	// Decide admits or rejects one request. Rejections do not consume capacity.
	Decide(clientKey, path string, now time.Time) Decision

	// Policy returns the policy governing path
	Policy(path string) EndpointPolicy
}

// Recorder counts rejections per policy for observability. Record must not block.
type Recorder interface {
	Record(policy string)

	Snapshot(ctx context.Context) (map[string]int64, error)
}
