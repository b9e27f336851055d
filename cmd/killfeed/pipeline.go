package main

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/sctracker/killfeed/internal/api"
	"github.com/sctracker/killfeed/internal/config"
	"github.com/sctracker/killfeed/internal/correlator"
	"github.com/sctracker/killfeed/internal/delivery"
	"github.com/sctracker/killfeed/internal/dispatcher"
	"github.com/sctracker/killfeed/internal/ingest"
	"github.com/sctracker/killfeed/internal/logging"
	"github.com/sctracker/killfeed/internal/monitor"
	"github.com/sctracker/killfeed/internal/session"
	"github.com/sctracker/killfeed/internal/tailer"
	"github.com/sctracker/killfeed/internal/worker"
	"github.com/sctracker/killfeed/pkg/core"
)

const shutdownTimeout = 10 * time.Second

type pipelineOptions struct {
	// logTime drives correlation windows from log timestamps.
	logTime bool
	// deliver submits the player's kills to the collector.
	deliver bool
	// bufferSize of zero handles every event on the dispatching goroutine.
	bufferSize int
	sinks      sinks
	output     func(core.JournalEntry)
}

// pipeline is everything between the tailer and the sinks.
type pipeline struct {
	session    *session.State
	correlator *correlator.Correlator
	dispatcher *dispatcher.Dispatcher
	worker     *worker.Manager
	processor  *ingest.Processor
	deliveries *delivery.Queue
	sinks      sinks

	stopChan chan struct{}
	done     chan struct{}
}

func newPipeline(state *session.State, opts pipelineOptions) (*pipeline, error) {
	p := &pipeline{
		session:  state,
		sinks:    opts.sinks,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}

	var err error
	p.correlator, err = correlator.New(correlatorConfig(), Logger.With("component", "correlator"))
	if err != nil {
		return nil, fmt.Errorf("failed to create correlator: %w", err)
	}

	p.dispatcher, err = dispatcher.New(logging.NewDispatcherLogger(ZLogger))
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}

	deps := worker.Dependencies{
		Session:       state,
		Journal:       opts.sinks.journal,
		Logger:        Logger.With("component", "worker"),
		ClientVersion: clientVersion(),
		Output:        opts.output,
	}
	// nil pointers must not end up in the interface fields
	if opts.sinks.feed != nil {
		deps.Feed = opts.sinks.feed
	}
	if opts.sinks.stats != nil {
		deps.Stats = opts.sinks.stats
	}

	if opts.deliver {
		p.deliveries, err = delivery.New(deliveryConfig(), newAPIClient(), Logger.With("component", "delivery"),
			delivery.WithResultHandler(func(r delivery.Result) { p.worker.HandleResult(r) }))
		if err != nil {
			return nil, fmt.Errorf("failed to create delivery queue: %w", err)
		}
		deps.Delivery = p.deliveries
	}

	p.worker = worker.NewManager(deps)
	p.worker.RegisterHandlers(p.dispatcher, opts.bufferSize)

	p.processor = ingest.New(ingest.Dependencies{
		Session:    state,
		Correlator: p.correlator,
		Sink:       p.dispatch,
		Logger:     Logger.With("component", "ingest"),
		LogTime:    opts.logTime,
	})
	return p, nil
}

func (p *pipeline) dispatch(e core.Event) {
	if err := p.dispatcher.Dispatch(e); err != nil {
		Logger.Error("Failed to dispatch event", "kind", e.Kind(), "error", err)
	}
}

// start runs the correlator sweep and forwards its events to the dispatcher.
func (p *pipeline) start() {
	p.correlator.Start()
	go func() {
		defer close(p.done)
		for {
			select {
			case e := <-p.correlator.Events():
				p.dispatch(e)
			case <-p.stopChan:
				p.drainCorrelator()
				return
			}
		}
	}()
}

// drainCorrelator dispatches every event already emitted by the correlator.
func (p *pipeline) drainCorrelator() int {
	n := 0
	for {
		select {
		case e := <-p.correlator.Events():
			p.dispatch(e)
			n++
		default:
			return n
		}
	}
}

// expirePending turns every vehicle event still waiting for a death into a
// display event.
func (p *pipeline) expirePending() int {
	return p.correlator.SweepAt(time.Now().Add(24 * time.Hour))
}

// shutdown stops the stages front to back so nothing emitted is lost:
// correlator, forwarder, dispatcher buffers, then in-flight deliveries.
func (p *pipeline) shutdown() {
	p.correlator.Stop(shutdownTimeout)
	if n := p.expirePending(); n > 0 {
		Logger.Debug("Expired pending vehicle events at shutdown", "count", n)
	}
	close(p.stopChan)
	<-p.done
	p.dispatcher.Close()
	if p.deliveries != nil {
		p.deliveries.Stop(shutdownTimeout)
	}
}

// monitorDeps lists every stage the status monitor reports on.
func (p *pipeline) monitorDeps(t *tailer.Tailer) monitor.Dependencies {
	deps := monitor.Dependencies{
		Logger:     Logger.With("component", "monitor"),
		Interval:   config.GetDuration("monitor.interval"),
		StatusPath: config.GetString("monitor.statusPath"),
		Tailer:     t,
		Ingest:     p.processor,
		Correlator: p.correlator,
		Dispatcher: p.dispatcher,
	}
	if p.deliveries != nil {
		deps.Deliveries = p.deliveries
	}
	if src, ok := p.sinks.journal.(monitor.PendingSource); ok {
		deps.Journal = src
	}
	if p.sinks.feed != nil {
		deps.Feed = p.sinks.feed
	}
	if p.sinks.stats != nil {
		deps.Stats = p.sinks.stats
	}
	return deps
}

func correlatorConfig() correlator.Config {
	return correlator.Config{
		SoftDeathTimeout: config.GetDuration("correlator.softDeathTimeout"),
		HardDeathTimeout: config.GetDuration("correlator.hardDeathTimeout"),
		BaseTimeout:      config.GetDuration("correlator.baseTimeout"),
		SweepInterval:    config.GetDuration("correlator.sweepInterval"),
		MatchThreshold:   config.GetFloat64("correlator.matchThreshold"),
		EventBuffer:      config.GetInt("correlator.eventBuffer"),
	}
}

func deliveryConfig() delivery.Config {
	return delivery.Config{
		MaxAttempts: config.GetInt("delivery.maxAttempts"),
		BackoffBase: config.GetDuration("delivery.backoffBase"),
		DedupeTTL:   config.GetDuration("delivery.dedupeTTL"),
		DedupeSize:  config.GetInt("delivery.dedupeSize"),
	}
}

func tailerConfig() tailer.Config {
	return tailer.Config{
		PollInterval:   config.GetDuration("tailer.pollInterval"),
		ReopenInterval: config.GetDuration("tailer.reopenInterval"),
	}
}

func newAPIClient() *api.Client {
	return api.New(
		viper.GetString("api.serverUrl"),
		viper.GetString("api.apiKey"),
		api.WithKillsPath(viper.GetString("api.killsPath")),
		api.WithTimeout(viper.GetDuration("api.timeout")),
	)
}

// clientVersion is the game client version reported with each kill.
func clientVersion() string {
	if v := viper.GetString("game.clientVersion"); v != "" {
		return v
	}
	return Version
}
