package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	vclog "github.com/gxo-labs/visacheck/pkg/visacheck/v1/log"
)

// Operation is a single attempt of a retried action.
type Operation func(ctx context.Context) error

// Config describes how an operation is retried.
type Config struct {
	Attempts      int
	Delay         time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	Jitter        float64
	// Label prefixes log lines, e.g. "nationality=US".
	Label string
}

// Helper runs operations with bounded retries, exponential backoff and jitter.
type Helper struct {
	log   vclog.Logger
	mu    sync.Mutex
	rand  *rand.Rand
	sleep func(ctx context.Context, d time.Duration) error
}

// NewHelper creates a Helper. Panics if log is nil.
func NewHelper(log vclog.Logger) *Helper {
	if log == nil {
		panic("retry.NewHelper requires a non-nil logger")
	}
	return &Helper{
		log:   log,
		rand:  rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep: sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func normalize(cfg Config) Config {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}
	if cfg.BackoffFactor < 1.0 {
		cfg.BackoffFactor = 1.0
	}
	cfg.Jitter = math.Max(0, math.Min(1, cfg.Jitter))
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	if cfg.MaxDelay < 0 {
		cfg.MaxDelay = 0
	}
	return cfg
}

// Do runs op until it succeeds, the attempts are exhausted or ctx is done.
// The last operation error is returned unwrapped so callers can inspect it.
func (h *Helper) Do(ctx context.Context, cfg Config, op Operation) error {
	cfg = normalize(cfg)
	prefix := ""
	if cfg.Label != "" {
		prefix = cfg.Label + " "
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				return err
			}
			return fmt.Errorf("retry cancelled after %d attempts: %w", attempt-1, lastErr)
		}

		lastErr = op(ctx)
		if lastErr == nil {
			if attempt > 1 {
				h.log.Infof("%sOperation succeeded on attempt %d/%d", prefix, attempt, cfg.Attempts)
			}
			return nil
		}
		if attempt == cfg.Attempts {
			break
		}

		wait := h.backoff(cfg, attempt)
		h.log.Warnf("%sOperation failed on attempt %d/%d (retrying in %v): %v",
			prefix, attempt, cfg.Attempts, wait.Truncate(time.Millisecond), lastErr)
		if err := h.sleep(ctx, wait); err != nil {
			return fmt.Errorf("retry delay cancelled after attempt %d: %w", attempt, lastErr)
		}
	}
	if cfg.Attempts > 1 {
		h.log.Warnf("%sOperation failed definitively after %d attempts: %v", prefix, cfg.Attempts, lastErr)
	}
	return lastErr
}

func (h *Helper) backoff(cfg Config, attempt int) time.Duration {
	base := float64(cfg.Delay) * math.Pow(cfg.BackoffFactor, float64(attempt-1))
	if base > float64(math.MaxInt64) {
		base = float64(math.MaxInt64)
	}
	wait := time.Duration(base)
	if cfg.Jitter > 0 {
		h.mu.Lock()
		factor := cfg.Jitter * (h.rand.Float64()*2.0 - 1.0)
		h.mu.Unlock()
		wait += time.Duration(float64(wait) * factor)
		if wait < 0 {
			wait = 0
		}
	}
	if cfg.MaxDelay > 0 && wait > cfg.MaxDelay {
		wait = cfg.MaxDelay
	}
	return wait
}
