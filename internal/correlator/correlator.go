// Package correlator pairs vehicle destruction notices with the actor deaths
// they cause. Unattributed or pending vehicle events wait in a buffer until
// an actor death claims them or their destroy-level timeout runs out.
package correlator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/sctracker/killfeed/internal/grammar"
	"github.com/sctracker/killfeed/pkg/core"
)

// Config holds the correlation timeouts and thresholds.
type Config struct {
	SoftDeathTimeout time.Duration // destroy level 1
	HardDeathTimeout time.Duration // destroy level 2
	BaseTimeout      time.Duration // any other level
	SweepInterval    time.Duration
	MatchThreshold   float64 // a candidate must score strictly above this
	EventBuffer      int
}

// DefaultConfig returns the stock timeouts.
func DefaultConfig() Config {
	return Config{
		SoftDeathTimeout: 500 * time.Millisecond,
		HardDeathTimeout: time.Second,
		BaseTimeout:      time.Second,
		SweepInterval:    100 * time.Millisecond,
		MatchThreshold:   0.3,
		EventBuffer:      1024,
	}
}

// Timeout returns how long a vehicle event at the given destroy level may wait.
func (c Config) Timeout(level int) time.Duration {
	switch level {
	case core.DestroyLevelSoft:
		return c.SoftDeathTimeout
	case core.DestroyLevelHard:
		return c.HardDeathTimeout
	default:
		return c.BaseTimeout
	}
}

// Option configures a Correlator.
type Option func(*Correlator)

// WithClock replaces time.Now as the correlator's clock.
func WithClock(now func() time.Time) Option {
	return func(c *Correlator) {
		c.now = now
	}
}

type pendingEntry struct {
	vehicle core.VehicleDestruction
	timeout time.Duration
}

// Correlator buffers vehicle destructions and emits display and kill events
// on its Events channel.
type Correlator struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	pending []pendingEntry

	events chan core.Event

	stopOnce sync.Once
	stopChan chan struct{}
	wg       sync.WaitGroup
	started  bool

	// OTEL metrics
	pendingGauge metric.Int64ObservableGauge
	matched      metric.Int64Counter
	expired      metric.Int64Counter
	dropped      metric.Int64Counter
}

// New creates a Correlator. Metrics use the global OTel meter.
func New(cfg Config, logger *slog.Logger, opts ...Option) (*Correlator, error) {
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = DefaultConfig().EventBuffer
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultConfig().SweepInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Correlator{
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		events:   make(chan core.Event, cfg.EventBuffer),
		stopChan: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	m := meter()

	var err error

	c.pendingGauge, err = m.Int64ObservableGauge(
		"correlator.pending",
		metric.WithDescription("Vehicle events waiting for an actor death"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pending gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(c.pendingGauge, int64(c.Pending()))
			return nil
		},
		c.pendingGauge,
	)
	if err != nil {
		return nil, fmt.Errorf("registering pending callback: %w", err)
	}

	c.matched, err = m.Int64Counter(
		"correlator.matched",
		metric.WithDescription("Actor deaths correlated with a vehicle event"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating matched counter: %w", err)
	}

	c.expired, err = m.Int64Counter(
		"correlator.expired",
		metric.WithDescription("Vehicle events removed by the sweep"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating expired counter: %w", err)
	}

	c.dropped, err = m.Int64Counter(
		"correlator.events.dropped",
		metric.WithDescription("Events dropped because the output channel was full"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	return c, nil
}

// Events is the channel every emitted event is pushed onto.
func (c *Correlator) Events() <-chan core.Event {
	return c.events
}

// Pending returns the number of buffered vehicle events.
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// HandleVehicle processes one vehicle destruction. A zero ObservedAt is
// stamped from the correlator's clock.
func (c *Correlator) HandleVehicle(v core.VehicleDestruction) {
	if v.ObservedAt.IsZero() {
		v.ObservedAt = c.now()
	}

	if grammar.IsEjection(v.DamageCause) {
		c.emit(core.EjectionEvent{
			Vehicle:      v,
			Pilot:        v.DriverName,
			VehicleLabel: grammar.FormatZone(v.VehicleName),
			ZoneLabel:    grammar.FormatZone(v.Zone),
		})
		return
	}

	timeout := c.cfg.Timeout(v.DestroyLevel)
	unknown := grammar.IsUnknownIdentity(v.DestroyerName, v.DestroyerID)

	if unknown {
		// Wait at least the base timeout so an actor death can still claim it.
		timeout = max(timeout, c.cfg.BaseTimeout)
	} else if timeout <= 0 {
		c.emit(displayEvent(v, false))
		return
	}

	c.mu.Lock()
	c.pending = append(c.pending, pendingEntry{vehicle: v, timeout: timeout})
	n := len(c.pending)
	c.mu.Unlock()

	c.logger.Debug("vehicle event buffered",
		"vehicle", v.VehicleName,
		"level", v.DestroyLevel,
		"destroyer", v.DestroyerName,
		"timeout", timeout,
		"pending", n)
}

// HandleActorDeath tries to pair an actor death tagged "vehicledestruction"
// with a buffered vehicle event. On a match the entry leaves the buffer and a
// CorrelatedKillEvent is emitted and returned.
func (c *Correlator) HandleActorDeath(d core.ActorDeath) (core.CorrelatedKillEvent, bool) {
	if grammar.IsVehicleEntity(d.VictimName) || grammar.IsNPC(d.VictimName) {
		c.logger.Debug("actor death ignored for correlation", "victim", d.VictimName)
		return core.CorrelatedKillEvent{}, false
	}
	if d.ObservedAt.IsZero() {
		d.ObservedAt = c.now()
	}

	c.mu.Lock()
	best, bestScore := -1, 0.0
	for i, p := range c.pending {
		s := Score(p.vehicle, d)
		if s > c.cfg.MatchThreshold && s > bestScore {
			best, bestScore = i, s
		}
	}
	var v core.VehicleDestruction
	if best >= 0 {
		v = c.pending[best].vehicle
		c.pending = append(c.pending[:best], c.pending[best+1:]...)
	}
	c.mu.Unlock()

	if best < 0 {
		c.logger.Debug("no vehicle event correlated",
			"victim", d.VictimName,
			"attacker", d.AttackerName,
			"zone", d.Zone)
		return core.CorrelatedKillEvent{}, false
	}

	ev := correlate(v, d, bestScore)
	c.matched.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("kill_context", string(ev.Context))))
	c.logger.Debug("vehicle kill correlated",
		"attacker", ev.AttackerName,
		"victim", ev.VictimName,
		"vehicle", v.VehicleName,
		"score", bestScore)
	c.emit(ev)
	return ev, true
}

// Sweep expires buffered vehicle events against the correlator's clock.
func (c *Correlator) Sweep() int {
	return c.SweepAt(c.now())
}

// SweepAt removes every buffered event whose age at now has reached its
// timeout. Expired events are emitted as display-only destructions unless the
// vehicle is AI crewed. It returns the number of entries removed.
func (c *Correlator) SweepAt(now time.Time) int {
	c.mu.Lock()
	var expired []core.VehicleDestruction
	kept := c.pending[:0]
	for _, p := range c.pending {
		if now.Sub(p.vehicle.ObservedAt) >= p.timeout {
			expired = append(expired, p.vehicle)
			continue
		}
		kept = append(kept, p)
	}
	for i := len(kept); i < len(c.pending); i++ {
		c.pending[i] = pendingEntry{}
	}
	c.pending = kept
	c.mu.Unlock()

	if len(expired) == 0 {
		return 0
	}
	c.expired.Add(context.Background(), int64(len(expired)))

	for _, v := range expired {
		if grammar.IsAIVehicle(v.VehicleName) {
			c.logger.Debug("expired AI vehicle event dropped", "vehicle", v.VehicleName)
			continue
		}
		c.emit(displayEvent(v, true))
	}
	return len(expired)
}

// Start runs the background sweep until Stop is called.
func (c *Correlator) Start() {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	ticker := time.NewTicker(c.cfg.SweepInterval)
	c.wg.Add(1)
	go c.sweepLoop(ticker)
}

// Stop signals the sweep loop and waits up to timeout for it to exit.
// A non-positive timeout waits indefinitely. It reports whether the loop exited.
func (c *Correlator) Stop(timeout time.Duration) bool {
	c.stopOnce.Do(func() { close(c.stopChan) })

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	if timeout <= 0 {
		<-done
		return true
	}
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		c.logger.Warn("correlator sweep did not stop in time", "timeout", timeout)
		return false
	}
}

func (c *Correlator) sweepLoop(ticker *time.Ticker) {
	defer c.wg.Done()
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.Sweep()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Correlator) emit(e core.Event) {
	select {
	case c.events <- e:
	default:
		c.dropped.Add(context.Background(), 1,
			metric.WithAttributes(attribute.String("kind", string(e.Kind()))))
		c.logger.Error("event channel full, dropping event", "kind", e.Kind())
	}
}

func displayEvent(v core.VehicleDestruction, expired bool) core.VehicleDestroyedEvent {
	return core.VehicleDestroyedEvent{
		Vehicle:      v,
		VehicleLabel: grammar.FormatZone(v.VehicleName),
		ZoneLabel:    grammar.FormatZone(v.Zone),
		Expired:      expired,
	}
}

func correlate(v core.VehicleDestruction, d core.ActorDeath, score float64) core.CorrelatedKillEvent {
	attacker, attackerID := d.AttackerName, d.AttackerID
	if grammar.IsUnknownIdentity(attacker, attackerID) {
		attacker, attackerID = v.DestroyerName, v.DestroyerID
	}
	return core.CorrelatedKillEvent{
		Vehicle:      v,
		Death:        d,
		Context:      core.KillContextForLevel(v.DestroyLevel),
		Score:        score,
		AttackerName: attacker,
		AttackerID:   attackerID,
		VictimName:   d.VictimName,
		VictimID:     d.VictimID,
		VehicleLabel: grammar.FormatZone(v.VehicleName),
	}
}
