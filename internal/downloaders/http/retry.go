package chunkhttp

import (
	"context"
	"time"

	"github.com/tanq16/chunkr/internal/utils"
)

type ChunkStatus int

const (
	StatusPending ChunkStatus = iota
	StatusAttempting
	StatusSucceeded
	StatusExhausted
)

func (s ChunkStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusAttempting:
		return "attempting"
	case StatusSucceeded:
		return "succeeded"
	case StatusExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// ChunkState is owned by the goroutine fetching its chunk and is never
// shared. Transitions: Pending -> Attempting(n) -> Succeeded | Exhausted.
type ChunkState struct {
	Index     int
	Persisted int64
	Attempt   int
	Status    ChunkStatus
	Err       error
}

func (s *ChunkState) begin() {
	s.Attempt++
	s.Status = StatusAttempting
}

func (s *ChunkState) succeed() {
	s.Status = StatusSucceeded
	s.Err = nil
}

// fail records a failed attempt and reports whether the retry budget
// allows another one.
func (s *ChunkState) fail(err error, retries int) bool {
	s.Err = err
	if s.Attempt > retries {
		s.Status = StatusExhausted
		return false
	}
	return true
}

func (s *ChunkState) abort(err error) {
	s.Err = err
	s.Status = StatusExhausted
}

// Backoff grows as Base * 2^failures and never exceeds Max.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

var DefaultBackoff = Backoff{Base: utils.DefaultBackoffBase, Max: utils.DefaultBackoffMax}

func (b Backoff) Delay(failures int) time.Duration {
	if failures < 0 {
		failures = 0
	}
	if b.Base <= 0 {
		return 0
	}
	delay := b.Base
	for range failures {
		if delay >= b.Max/2 {
			return b.Max
		}
		delay *= 2
	}
	return min(delay, b.Max)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retry drives state through attempts of fn until it succeeds or the
// budget of retries is spent. Only the terminal error escapes.
func (d *Downloader) retry(ctx context.Context, state *ChunkState, retries int, fn func() error) error {
	for {
		state.begin()
		err := fn()
		if err == nil {
			state.succeed()
			return nil
		}
		transient := &ChunkError{Index: state.Index, Kind: TransientIO, Attempts: state.Attempt, Err: err}
		if !state.fail(transient, retries) {
			return &ChunkError{Index: state.Index, Kind: Exhausted, Attempts: state.Attempt, Err: err}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			state.abort(ctxErr)
			return &ChunkError{Index: state.Index, Kind: Exhausted, Attempts: state.Attempt, Err: ctxErr}
		}
		delay := d.backoff.Delay(state.Attempt)
		d.logger.Warn().Str("op", "http/retry").Int("chunk", state.Index).Err(err).
			Msgf("Attempt %d/%d failed, retrying in %s", state.Attempt, retries+1, delay)
		if err := sleepCtx(ctx, delay); err != nil {
			state.abort(err)
			return &ChunkError{Index: state.Index, Kind: Exhausted, Attempts: state.Attempt, Err: err}
		}
	}
}
