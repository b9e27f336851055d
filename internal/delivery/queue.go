// Package delivery submits kill payloads to the collector. Every submission
// runs on its own goroutine with bounded retry and exponential backoff, so
// the ingest path never waits on the network.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/sctracker/killfeed/internal/api"
	"github.com/sctracker/killfeed/internal/cache"
	"github.com/sctracker/killfeed/pkg/core"
)

var (
	// ErrExhausted is reported when every attempt failed with a retryable error.
	ErrExhausted = errors.New("delivery attempts exhausted")
	// ErrStopped is reported when the queue stopped before a final answer.
	ErrStopped = errors.New("delivery queue stopped")
)

// Submitter posts one payload to the collector.
type Submitter interface {
	SubmitKill(ctx context.Context, p core.Payload) (api.Response, error)
}

// Config bounds retries and local deduplication.
type Config struct {
	MaxAttempts int
	BackoffBase time.Duration
	DedupeTTL   time.Duration
	DedupeSize  int
}

// DefaultConfig returns the stock retry policy.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 5,
		BackoffBase: time.Second,
		DedupeTTL:   10 * time.Minute,
		DedupeSize:  4096,
	}
}

// maxBackoff caps a single retry wait.
const maxBackoff = time.Hour

// Backoff returns the wait after the given failed attempt, counting from 1.
// It doubles per attempt and never exceeds maxBackoff.
func (c Config) Backoff(attempt int) time.Duration {
	d := c.BackoffBase
	for i := 1; i < attempt && d < maxBackoff; i++ {
		d *= 2
	}
	return min(d, maxBackoff)
}

// Result is the final state of one submission.
type Result struct {
	Payload    core.Payload
	Outcome    api.Outcome
	Attempts   int
	StatusCode int
	Message    string
	// Backoffs lists every wait taken between attempts.
	Backoffs []time.Duration
	// Local is set when the duplicate was caught without a network call.
	Local bool
	Err   error
}

// Success reports whether the collector has, or knowingly skipped, the record.
func (r Result) Success() bool {
	return r.Err == nil && r.Outcome.Success()
}

// Label names the result for logs and metrics.
func (r Result) Label() string {
	switch {
	case errors.Is(r.Err, ErrExhausted):
		return "exhausted"
	case errors.Is(r.Err, ErrStopped):
		return "stopped"
	default:
		return string(r.Outcome)
	}
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Option configures a Queue.
type Option func(*Queue)

// WithSleeper replaces the backoff wait.
func WithSleeper(s Sleeper) Option {
	return func(q *Queue) {
		q.sleep = s
	}
}

// WithResultHandler registers a callback for every finished submission.
// It runs on the submission's goroutine.
func WithResultHandler(fn func(Result)) Option {
	return func(q *Queue) {
		q.onResult = fn
	}
}

// WithDedupe replaces the dedupe set built from Config.
func WithDedupe(s *cache.KeySet) Option {
	return func(q *Queue) {
		q.dedupe = s
	}
}

// Queue delivers payloads concurrently.
type Queue struct {
	cfg      Config
	client   Submitter
	logger   *slog.Logger
	sleep    Sleeper
	onResult func(Result)
	dedupe   *cache.KeySet

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	inFlight atomic.Int64

	// OTEL metrics
	attempts metric.Int64Counter
	results  metric.Int64Counter
}

// New creates a Queue. A zero DedupeTTL disables local deduplication.
func New(cfg Config, client Submitter, logger *slog.Logger, opts ...Option) (*Queue, error) {
	def := DefaultConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = def.BackoffBase
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		cfg:    cfg,
		client: client,
		logger: logger,
		sleep:  sleepContext,
		ctx:    ctx,
		cancel: cancel,
	}
	if cfg.DedupeTTL > 0 {
		q.dedupe = cache.NewKeySet(cfg.DedupeSize, cfg.DedupeTTL)
	}
	for _, opt := range opts {
		opt(q)
	}

	m := meter()

	var err error

	q.attempts, err = m.Int64Counter(
		"delivery.attempts",
		metric.WithDescription("Collector submission attempts"),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("creating attempts counter: %w", err)
	}

	q.results, err = m.Int64Counter(
		"delivery.results",
		metric.WithDescription("Finished submissions by outcome"),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("creating results counter: %w", err)
	}

	return q, nil
}

// Submit delivers p in the background. It never blocks on the network.
func (q *Queue) Submit(p core.Payload) {
	if q.ctx.Err() != nil {
		q.finish(Result{Payload: p, Err: ErrStopped})
		return
	}
	q.wg.Add(1)
	q.inFlight.Add(1)
	go func() {
		defer q.wg.Done()
		defer q.inFlight.Add(-1)
		q.Deliver(p)
	}()
}

// InFlight returns the number of submissions not yet finished.
func (q *Queue) InFlight() int64 {
	return q.inFlight.Load()
}

// Deliver submits p and retries retryable failures. It blocks until a final
// answer, exhaustion or Stop.
func (q *Queue) Deliver(p core.Payload) Result {
	res := Result{Payload: p}
	key := p.DedupeKey()

	if q.dedupe != nil && !q.dedupe.Claim(key) {
		res.Outcome = api.OutcomeDuplicate
		res.Local = true
		q.finish(res)
		return res
	}

	// In-flight requests finish even after Stop.
	reqCtx := context.WithoutCancel(q.ctx)

	// The first attempt always runs, so a kill accepted before Stop is posted
	// at least once. Stop only cuts the backoff waits short.
	for attempt := 1; ; attempt++ {
		res.Attempts = attempt
		q.attempts.Add(context.Background(), 1)

		resp, err := q.client.SubmitKill(reqCtx, p)
		res.Outcome = resp.Outcome
		res.StatusCode = resp.StatusCode
		res.Message = resp.Message

		if resp.Outcome.Final() {
			res.Err = err
			break
		}

		if attempt >= q.cfg.MaxAttempts {
			res.Err = fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempt, err)
			break
		}

		backoff := q.cfg.Backoff(attempt)
		res.Backoffs = append(res.Backoffs, backoff)
		q.logger.Warn("kill delivery failed, retrying",
			"attempt", attempt,
			"backoff", backoff,
			"attacker", p.AttackerName,
			"victim", p.VictimName,
			"error", err)

		if err := q.sleep(q.ctx, backoff); err != nil {
			res.Err = ErrStopped
			break
		}
	}

	if !res.Success() && q.dedupe != nil {
		q.dedupe.Release(key)
	}
	q.finish(res)
	return res
}

// Stop ends retries at their next backoff and waits up to timeout for
// in-flight submissions. Submissions that have not been attempted yet still
// get their first attempt. It reports whether all of them finished.
func (q *Queue) Stop(timeout time.Duration) bool {
	q.cancel()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		q.logger.Warn("deliveries still in flight at shutdown", "count", q.InFlight())
		return false
	}
}

func (q *Queue) finish(res Result) {
	q.results.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("outcome", res.Label())))

	attrs := []any{
		"outcome", res.Label(),
		"attempts", res.Attempts,
		"attacker", res.Payload.AttackerName,
		"victim", res.Payload.VictimName,
		"timestamp", res.Payload.Timestamp,
	}
	switch {
	case res.Success() && res.Outcome == api.OutcomeDuplicate:
		q.logger.Info("kill already recorded", append(attrs, "local", res.Local)...)
	case res.Success():
		q.logger.Info("kill delivered", append(attrs, "status", res.StatusCode)...)
	default:
		q.logger.Error("kill delivery failed", append(attrs, "status", res.StatusCode, "error", res.Err)...)
	}

	if q.onResult != nil {
		q.onResult(res)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
