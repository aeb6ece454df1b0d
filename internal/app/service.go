// Package service wires the OSC transport, the event normalizer, the
// tempo decision engine, and the applier into the running sync loop.
package service

import (
	"context"
	"sync"

	"github.com/cadencelab/tempolink/internal/adapters/osc"
	"github.com/cadencelab/tempolink/internal/adapters/renderer"
	"github.com/cadencelab/tempolink/internal/adapters/transport"
	"github.com/cadencelab/tempolink/internal/domain/event"
	"github.com/cadencelab/tempolink/internal/domain/tempo"
	"github.com/cadencelab/tempolink/internal/domain/timetag"
	"github.com/cadencelab/tempolink/pkg/logger"
	"github.com/cadencelab/tempolink/pkg/metrics"
)

// DirtPlayAddress is the OSC address this service consumes tempo
// information from.
const DirtPlayAddress = "/dirt/play"

// Service runs the tempo synchronization loop. All tempo decisions and
// model mutations happen inline on the transport's reactor goroutine;
// the mutex exists for Start/Stop and cross-goroutine snapshots, not
// for the hot path.
type Service struct {
	mu sync.Mutex

	transport *transport.Transport
	setter    renderer.TempoSetter
	applier   *renderer.Applier
	settings  tempo.Settings
	debug     bool

	// model is the last accepted tempo state; nil until the first
	// successful apply. Written only from the reactor goroutine.
	model *tempo.Model

	started    bool
	listenerID string
	catchAllID string

	// Decision counters, for Snapshot.
	evaluated uint64
	applied   uint64
	failed    uint64

	logger logger.Logger
}

// Snapshot is a point-in-time view of the sync loop for diagnostics.
type Snapshot struct {
	Model     *tempo.Model
	Evaluated uint64
	Applied   uint64
	Failed    uint64
	State     transport.State
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithTransport sets the OSC transport.
func WithTransport(t *transport.Transport) Option {
	return func(s *Service) {
		if t != nil {
			s.transport = t
		}
	}
}

// WithSetter sets the rendering engine's tempo entry point.
func WithSetter(setter renderer.TempoSetter) Option {
	return func(s *Service) {
		if setter != nil {
			s.setter = setter
		}
	}
}

// WithSettings sets the decision engine configuration snapshot.
func WithSettings(cfg tempo.Settings) Option {
	return func(s *Service) {
		s.settings = cfg
	}
}

// WithDebug toggles verbose per-event logging.
func WithDebug(debug bool) Option {
	return func(s *Service) {
		s.debug = debug
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service with defaults: local transport, accept-all
// setter, phase sync on at the default tolerance.
func New(opts ...Option) *Service {
	s := &Service{
		setter: renderer.NopSetter{},
		settings: tempo.Settings{
			PhaseSync:      true,
			PhaseTolerance: tempo.DefaultPhaseTolerance,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("sync")
	}
	if s.transport == nil {
		s.transport = transport.New(transport.WithLogger(s.logger.Named("transport")))
	}
	s.applier = renderer.NewApplier(s.setter, renderer.WithLogger(s.logger.Named("applier")))
	return s
}

// Start registers listeners and binds the transport.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.listenerID = s.transport.Listen(DirtPlayAddress, s.handleDirtPlay)
	s.catchAllID = s.transport.ListenAll(s.handleOther)

	if err := s.transport.Start(ctx); err != nil {
		s.transport.Unlisten(s.listenerID)
		s.transport.Unlisten(s.catchAllID)
		return err
	}

	s.started = true
	s.logger.Info(ctx, "tempo sync started",
		logger.Bool("phaseSync", s.settings.PhaseSync),
		logger.Float64("phaseTolerance", s.settings.PhaseTolerance),
		logger.Float64("leadCycles", s.settings.LeadCycles),
	)
	return nil
}

// Stop shuts the transport down. When it returns, no further setter
// call can occur. Idempotent.
//
// The transport drain must happen outside the service mutex: an
// in-flight dispatch takes that mutex too.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	s.transport.Stop()
	if closer, ok := s.setter.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	s.logger.Info(context.Background(), "tempo sync stopped")
}

// Snapshot returns the current model and counters.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Evaluated: s.evaluated,
		Applied:   s.applied,
		Failed:    s.failed,
		State:     s.transport.CurrentState(),
	}
	if s.model != nil {
		m := *s.model
		snap.Model = &m
	}
	return snap
}

// handleDirtPlay processes one /dirt/play delivery: normalize, decide,
// and push a corrected tempo if warranted. Errors are contained per
// event.
func (s *Service) handleDirtPlay(ctx context.Context, d transport.Delivery) {
	metrics.RecordDirtEvent()

	ev, err := event.FromArgs(d.Message.Arguments)
	if err != nil {
		metrics.RecordEventDecodeError()
		s.logger.Error(ctx, "dropping undecodable tempo event",
			logger.Uint64("seq", d.Seq),
			logger.Error(err),
		)
		return
	}

	sample := tempo.Sample{
		CPS:      ev.CPS,
		Cycle:    ev.Cycle,
		HasCycle: ev.HasCycle,
		TimeSec:  s.sampleTime(d, ev),
	}

	s.mu.Lock()
	prev := s.model
	cfg := s.settings
	s.evaluated++
	s.mu.Unlock()

	decision := tempo.Evaluate(prev, sample, cfg)
	metrics.RecordTempoEvaluation()
	metrics.UpdatePhaseDrift(decision.PhaseDrift)

	if s.debug {
		s.logger.Debug(ctx, "evaluated tempo sample",
			logger.Uint64("seq", d.Seq),
			logger.Float64("cps", sample.CPS),
			logger.Bool("hasCycle", sample.HasCycle),
			logger.Float64("drift", decision.PhaseDrift),
			logger.Bool("shouldUpdate", decision.ShouldUpdate),
		)
	}

	if !decision.ShouldUpdate {
		return
	}

	effCycle := sample.Cycle
	if sample.HasCycle {
		effCycle = tempo.LeadCompensate(sample.Cycle, cfg.LeadCycles)
	}

	candidates := tempo.BuildCandidates(sample.CPS, effCycle, sample.HasCycle, sample.TimeSec)
	accepted, err := s.applier.Apply(ctx, candidates)
	if err != nil {
		s.mu.Lock()
		s.failed++
		s.mu.Unlock()
		s.logger.Error(ctx, "tempo update failed; model unchanged",
			logger.Uint64("seq", d.Seq),
			logger.Float64("cps", sample.CPS),
			logger.Error(err),
		)
		return
	}

	next := tempo.Next(prev, sample, effCycle)
	s.mu.Lock()
	s.model = &next
	s.applied++
	s.mu.Unlock()

	metrics.UpdateCurrentCPS(next.Frequency)
	s.logger.Info(ctx, "tempo updated",
		logger.String("candidate", accepted.Kind.String()),
		logger.Float64("cps", next.Frequency),
		logger.Float64("drift", decision.PhaseDrift),
	)
}

// sampleTime resolves when a sample was true: an explicit timetag
// argument wins, then the bundle timetag carried by the delivery, which
// already falls back to local receive time.
func (s *Service) sampleTime(d transport.Delivery, ev event.DirtPlay) float64 {
	if raw, ok := ev.Params["timetag"]; ok {
		if tt, isTag := raw.(osc.Timetag); isTag {
			return tt.Posix()
		}
		if sec, decoded := timetag.Decode(raw); decoded {
			return sec
		}
	}
	return d.TimeSec
}

// handleOther passes unrecognized addresses through for generic
// logging; they play no role in tempo decisions.
func (s *Service) handleOther(ctx context.Context, d transport.Delivery) {
	if s.debug {
		s.logger.Debug(ctx, "unhandled OSC message",
			logger.Uint64("seq", d.Seq),
			logger.String("message", d.Message.String()),
		)
	}
}
