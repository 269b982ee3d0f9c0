// Package pipeline runs one full reservation attempt as a single sequential
// function: authenticate, fetch the catalog, select a bus, reserve it. Each
// step depends on the previous one and the first failure aborts the run.
// Progress lines are delivered in order through a caller-supplied sink.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/marchkov/internal/metrics"
	"github.com/example/marchkov/internal/portal"
	"github.com/example/marchkov/internal/shuttle"
)

// ErrNoBusAvailable is returned when no resource serves the requested
// direction at all. Distinct from the temporary-code fallback, which still
// yields a payload.
var ErrNoBusAvailable = errors.New("没有找到可约的班车")

// Options configure one attempt. The zero value is usable with defaults.
type Options struct {
	// Direction of travel. Empty means "decide by the critical time".
	Direction shuttle.Direction

	Timing        shuttle.TimingConfig
	TempResources map[shuttle.Direction]shuttle.TempResource

	// Cached rider identity; placeholder portal values never overwrite it.
	Cached portal.Profile

	Progress portal.Progress
	Metrics  *metrics.Collector
	Logger   *zap.Logger

	// Now is the clock used for date and window math. Defaults to time.Now.
	Now func() time.Time
}

// Result of a successful attempt.
type Result struct {
	AttemptID string
	Direction shuttle.Direction
	Selection shuttle.SelectionResult
	QR        portal.QRPayload
	Summary   portal.ReservationSummary
	Profile   portal.Profile
	Messages  []string
}

// Run executes one attempt on a brand-new Session so concurrent attempts can
// never share cookies or tokens. Cancelling ctx abandons the in-flight
// request and skips all remaining steps; a reservation already launched on
// the portal is not rolled back.
func Run(ctx context.Context, client *portal.Client, username, password string, opts Options) (*Result, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	attemptID := uuid.NewString()
	log = log.With(zap.String("attempt_id", attemptID))
	start := opts.Now()

	res := &Result{AttemptID: attemptID}
	sink := func(msg string) {
		res.Messages = append(res.Messages, msg)
		opts.Progress.Emit(msg)
	}

	err := run(ctx, client, username, password, opts, res, sink, log)
	opts.Metrics.ObserveAttempt(start, err)
	if err != nil {
		return nil, err
	}
	return res, nil
}

func run(ctx context.Context, client *portal.Client, username, password string, opts Options, res *Result, sink portal.Progress, log *zap.Logger) error {
	now := opts.Now()

	dir := opts.Direction
	if dir == "" {
		dir = opts.Timing.DefaultDirection(now)
	}
	res.Direction = dir

	session := client.NewSession()
	if err := session.Authenticate(ctx, username, password, sink); err != nil {
		opts.Metrics.FailStage("auth")
		log.Warn("authentication failed", zap.Error(err))
		return err
	}

	resources, err := session.FetchTodayResources(ctx, now, sink)
	if err != nil {
		opts.Metrics.FailStage("catalog")
		log.Warn("catalog fetch failed", zap.Error(err))
		return err
	}

	sel := shuttle.SelectBus(resources, dir, now, shuttle.SelectConfig{
		Timing:        opts.Timing,
		TempResources: opts.TempResources,
	})
	if sel.NoBus() {
		opts.Metrics.FailStage("select")
		sink.Emit("没有找到可约的班车")
		return ErrNoBusAvailable
	}
	res.Selection = sel
	log.Info("bus selected",
		zap.Int("resource_id", sel.ResourceID),
		zap.String("start_time", sel.StartTime),
		zap.Bool("is_temp", sel.IsTemp))

	outcome, err := session.Reserve(ctx, sel, now, opts.Cached, sink)
	if err != nil {
		opts.Metrics.FailStage("reserve")
		log.Warn("reservation failed", zap.Error(err))
		return err
	}

	if outcome.QR.IsTemp {
		opts.Metrics.TempCodeObtained()
	} else {
		opts.Metrics.QRCodeObtained()
	}
	res.QR = outcome.QR
	res.Summary = outcome.Summary
	res.Profile = outcome.Profile
	return nil
}
