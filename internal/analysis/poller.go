package analysis

import (
	"context"
	"time"

	"github.com/gongintel/gongintel/internal/store"
)

// Poll outcomes. PollExhausted is deliberately distinct from PollFailed: the
// job may still be running server-side, so the caller should say "taking
// longer than expected", not "failed".
type PollOutcome string

const (
	PollCompleted PollOutcome = "completed"
	PollFailed    PollOutcome = "failed"
	PollExhausted PollOutcome = "exhausted"
)

// StatusFunc is one cheap status read, typically Service.Status or an HTTP
// GET against the status endpoint.
type StatusFunc func(ctx context.Context) (StatusResponse, error)

// Poller implements the client-side polling contract: fixed cadence, bounded
// iterations. Defaults match the orchestrator's outer deadline (2s × 90 ≈ 3m).
type Poller struct {
	Interval time.Duration
	MaxPolls int
}

func NewPoller() Poller {
	return Poller{Interval: 2 * time.Second, MaxPolls: 90}
}

// Poll queries status until a terminal outcome or exhaustion. The returned
// message is the job's error for PollFailed, empty otherwise. Read errors on
// individual polls are tolerated; the next tick retries.
func (p Poller) Poll(ctx context.Context, fn StatusFunc) (PollOutcome, string, error) {
	for i := 0; i < p.MaxPolls; i++ {
		resp, err := fn(ctx)
		if err == nil {
			switch resp.Status {
			case store.StatusCompleted:
				return PollCompleted, "", nil
			case store.StatusFailed:
				return PollFailed, resp.Error, nil
			}
		}

		timer := time.NewTimer(p.Interval)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return PollExhausted, "", ctx.Err()
		}
	}
	return PollExhausted, "", nil
}
