package acquisition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/mrzor/gazeshm/internal/attributes"
	"github.com/mrzor/gazeshm/internal/device"
	"github.com/mrzor/gazeshm/internal/frame"
	"github.com/mrzor/gazeshm/internal/publish"
	"github.com/mrzor/gazeshm/internal/shm"
)

// ErrPublishingAborted wraps a poll or publish failure that ended the
// publishing cycle.
var ErrPublishingAborted = errors.New("publishing aborted")

// Sink receives published snapshots. *publish.Publisher is the
// production Sink.
type Sink interface {
	Publish(s *frame.Snapshot) error
	Close() error
}

// OpenSinkFunc creates the named sink.
type OpenSinkFunc func(name string) (Sink, error)

// RegionOpener opens a shared memory publisher with the given options.
func RegionOpener(opts ...shm.Option) OpenSinkFunc {
	return func(name string) (Sink, error) {
		p, err := publish.Open(name, opts...)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

// Config holds the loop settings.
type Config struct {
	// ProviderName labels logs and spans.
	ProviderName string
	RegionName   string
	// StatsInterval is the progress log period. Zero disables it.
	StatsInterval time.Duration
	// MinCalibrationQuality triggers one calibration request when either
	// eye is below it. QualityInvalid disables the check.
	MinCalibrationQuality device.EyeCalibrationQuality
}

// Loop drives one producer run. A Loop is single-use.
type Loop struct {
	cfg          Config
	provider     device.Provider
	open         OpenSinkFunc
	logger       *slog.Logger
	tracer       trace.Tracer
	now          func() time.Time
	onTransition func(from, to State)
	evaluator    *attributes.Evaluator
	environ      map[string]string

	mu      sync.Mutex
	state   State
	counter counters
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loop) {
		l.logger = logger
	}
}

// WithTracer sets the tracer used for lifecycle spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(l *Loop) {
		l.tracer = tracer
	}
}

// WithClock replaces time.Now for progress reporting.
func WithClock(now func() time.Time) Option {
	return func(l *Loop) {
		l.now = now
	}
}

// WithTransitionHook registers fn to be called on every state change,
// from the goroutine running Run.
func WithTransitionHook(fn func(from, to State)) Option {
	return func(l *Loop) {
		l.onTransition = fn
	}
}

// WithAttributes evaluates custom span attributes for the run span.
func WithAttributes(evaluator *attributes.Evaluator, environ map[string]string) Option {
	return func(l *Loop) {
		l.evaluator = evaluator
		l.environ = environ
	}
}

// New returns a Loop reading from provider and publishing through open.
// A nil open publishes into a shared memory region in the default place.
func New(cfg Config, provider device.Provider, open OpenSinkFunc, opts ...Option) *Loop {
	if open == nil {
		open = RegionOpener()
	}
	l := &Loop{
		cfg:      cfg,
		provider: provider,
		open:     open,
		logger:   slog.New(slog.DiscardHandler),
		tracer:   noop.NewTracerProvider().Tracer(""),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// State returns the current state.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Stats returns the publishing counters.
func (l *Loop) Stats() Stats {
	return l.counter.snapshot()
}

func (l *Loop) transition(to State) {
	l.mu.Lock()
	from := l.state
	l.state = to
	l.mu.Unlock()

	l.logger.Debug("state transition", "from", from.String(), "to", to.String())
	if l.onTransition != nil {
		l.onTransition(from, to)
	}
}

// Run executes the lifecycle until ctx is canceled or a fatal error
// occurs. Permission denial is not an error.
func (l *Loop) Run(ctx context.Context) (outcome Outcome, err error) {
	ctx, span := l.tracer.Start(ctx, "gazeshm.run", trace.WithAttributes(
		attribute.String("gazeshm.provider", l.cfg.ProviderName),
		attribute.String("gazeshm.region", l.cfg.RegionName),
		attribute.Int("gazeshm.frame_size", frame.Size),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			l.transition(StateFailed)
		}
		span.SetAttributes(attribute.String("gazeshm.outcome", outcome.String()))
		span.End()
	}()

	session, err := l.openSession(ctx)
	if err != nil {
		return OutcomeFailed, err
	}
	defer session.Close() //nolint:errcheck // Idempotent; explicit close below on the normal path
	l.transition(StateSessionActive)

	allowed, err := session.GazeAllowed()
	if err != nil {
		return OutcomeFailed, err
	}
	if !allowed {
		l.logger.Warn("gaze tracking is not allowed, enable it in Varjo Base")
		if err := session.Close(); err != nil {
			l.logger.Warn("closing session", "error", err)
		}
		l.transition(StateGazePermissionDenied)
		return OutcomePermissionDenied, nil
	}

	quality, err := l.initGaze(ctx, session)
	if err != nil {
		return OutcomeFailed, err
	}
	l.transition(StateGazeReady)

	sink, err := l.openRegion(ctx)
	if err != nil {
		return OutcomeFailed, err
	}
	defer sink.Close() //nolint:errcheck // Idempotent; explicit close below on the normal path

	l.annotate(span, quality)
	l.transition(StatePublishing)
	l.logger.Info("publishing gaze data", "region", l.cfg.RegionName, "frame_size", frame.Size)

	if err := l.publishLoop(ctx, session, sink); err != nil {
		return OutcomeFailed, err
	}

	if err := sink.Close(); err != nil {
		l.logger.Warn("closing region", "error", err)
	}
	if err := session.Close(); err != nil {
		l.logger.Warn("closing session", "error", err)
	}
	l.transition(StateStopped)

	stats := l.Stats()
	l.logger.Info("stopped",
		"published", stats.Published,
		"polls", stats.Polls,
		"last_frame", stats.LastFrame,
	)
	return OutcomeStopped, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (l *Loop) openSession(ctx context.Context) (*device.Session, error) {
	_, span := l.tracer.Start(ctx, "session.init")
	session, err := device.Open(l.provider, device.WithLogger(l.logger.With("component", "session")))
	endSpan(span, err)
	return session, err
}

// initGaze activates gaze, syncs properties and runs the optional
// calibration check.
func (l *Loop) initGaze(ctx context.Context, session *device.Session) (device.CalibrationQuality, error) {
	_, span := l.tracer.Start(ctx, "gaze.init")
	quality, err := l.doInitGaze(session)
	if err == nil {
		span.SetAttributes(
			attribute.String("gazeshm.calibration.left", quality.Left.String()),
			attribute.String("gazeshm.calibration.right", quality.Right.String()),
		)
	}
	endSpan(span, err)
	return quality, err
}

func (l *Loop) doInitGaze(session *device.Session) (device.CalibrationQuality, error) {
	if err := session.InitGaze(); err != nil {
		return device.CalibrationQuality{}, err
	}
	if err := session.SyncProperties(); err != nil {
		return device.CalibrationQuality{}, err
	}
	quality, err := session.CalibrationQuality()
	if err != nil {
		return device.CalibrationQuality{}, err
	}

	minimum := l.cfg.MinCalibrationQuality
	if minimum > device.QualityInvalid && quality.Below(minimum) {
		l.logger.Warn("calibration quality below minimum, requesting calibration",
			"left", quality.Left.String(),
			"right", quality.Right.String(),
			"minimum", minimum.String(),
		)
		if err := session.RequestCalibration(); err != nil {
			return quality, err
		}
	}
	return quality, nil
}

func (l *Loop) openRegion(ctx context.Context) (Sink, error) {
	_, span := l.tracer.Start(ctx, "region.open", trace.WithAttributes(
		attribute.String("gazeshm.region", l.cfg.RegionName),
	))
	sink, err := l.open(l.cfg.RegionName)
	if err != nil && !errors.Is(err, shm.ErrRegionCreateFailed) {
		err = fmt.Errorf("%w: %s: %w", shm.ErrRegionCreateFailed, l.cfg.RegionName, err)
	}
	endSpan(span, err)
	return sink, err
}

func (l *Loop) annotate(span trace.Span, quality device.CalibrationQuality) {
	if l.evaluator == nil {
		return
	}
	span.SetAttributes(l.evaluator.Evaluate(&attributes.Session{
		Environ:     l.environ,
		Provider:    l.cfg.ProviderName,
		Region:      l.cfg.RegionName,
		FrameSize:   frame.Size,
		Calibration: quality,
	})...)
}

// publishLoop polls and publishes until ctx is done. It never blocks:
// the context is checked once per cycle and an empty poll yields the
// processor instead of sleeping.
func (l *Loop) publishLoop(ctx context.Context, session *device.Session, sink Sink) error {
	_, span := l.tracer.Start(ctx, "publish")
	var loopErr error
	defer func() {
		stats := l.Stats()
		span.SetAttributes(
			attribute.Int64("gazeshm.polls", int64(stats.Polls)),         //nolint:gosec // Counter fits
			attribute.Int64("gazeshm.published", int64(stats.Published)), //nolint:gosec // Counter fits
			attribute.Int64("gazeshm.no_data", int64(stats.NoData)),       //nolint:gosec // Counter fits
			attribute.Int64("gazeshm.last_frame", stats.LastFrame),
		)
		endSpan(span, loopErr)
	}()

	var snap frame.Snapshot
	interval := l.cfg.StatsInterval
	nextReport := l.now().Add(interval)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		l.counter.polls.Add(1)
		err := session.Poll(&snap)
		switch {
		case errors.Is(err, device.ErrNoData):
			l.counter.noData.Add(1)
			runtime.Gosched()
		case err != nil:
			loopErr = fmt.Errorf("%w: polling gaze data: %w", ErrPublishingAborted, err)
			return loopErr
		default:
			if err := sink.Publish(&snap); err != nil {
				loopErr = fmt.Errorf("%w: publishing frame %d: %w", ErrPublishingAborted, snap.FrameNumber(), err)
				return loopErr
			}
			l.counter.published.Add(1)
			l.counter.lastFrame.Store(snap.Gaze.FrameNumber)
			l.counter.lastCaptureTime.Store(snap.Gaze.CaptureTime)
		}

		if interval > 0 {
			if now := l.now(); !now.Before(nextReport) {
				stats := l.Stats()
				l.logger.Info("publishing progress",
					"published", stats.Published,
					"no_data", stats.NoData,
					"last_frame", stats.LastFrame,
					"last_capture_time", stats.LastCaptureTime,
				)
				nextReport = now.Add(interval)
			}
		}
	}
}
