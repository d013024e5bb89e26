// Package lifecycle drives a device handler through classification, inspection,
// the firmware action, the reboot and the verification of a single DUT.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	sw "github.com/filanov/stateswitch"
	"github.com/metal-toolbox/dutfw/internal/metrics"
	"github.com/metal-toolbox/dutfw/internal/model"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	pkgName = "internal/lifecycle"

	TransitionClassify sw.TransitionType = "classify"
	TransitionInspect  sw.TransitionType = "inspect"
	TransitionApply    sw.TransitionType = "applyAction"
	TransitionReboot   sw.TransitionType = "reboot"
	TransitionVerify   sw.TransitionType = "verify"
	TransitionFail     sw.TransitionType = "fail"
)

var (
	ErrInvalidTransitionHandler = errors.New("expected a valid HandlerContext{} type")
	ErrInvalidRun               = errors.New("expected a model.Run{} type")
	ErrTransition               = errors.New("error in lifecycle transition")
	ErrNoHandler                = errors.New("no device handler bound")
)

// Binder classifies the DUT and returns the device bound to its handler.
type Binder interface {
	Bind(ctx context.Context) (*model.Device, model.Handler, error)
}

// closer is implemented by handlers holding a session to release once the run completes.
type closer interface {
	Close(ctx context.Context) error
}

// HandlerContext holds the working attributes of a run,
// it is passed to the transition handlers.
type HandlerContext struct {
	Ctx     context.Context
	Binder  Binder
	Handler model.Handler
	Logger  *logrus.Entry

	// Err is set when a transition fails
	Err error
}

// Orchestrator is the lifecycle state machine.
type Orchestrator struct {
	sm          sw.StateMachine
	transitions []sw.TransitionType
	binder      Binder
	logger      *logrus.Entry
}

// New returns an Orchestrator classifying DUTs with the binder.
func New(binder Binder, logger *logrus.Entry) *Orchestrator {
	o := &Orchestrator{
		sm:     sw.NewStateMachine(),
		binder: binder,
		logger: logger,
		// transitions are executed in this order
		transitions: []sw.TransitionType{
			TransitionClassify,
			TransitionInspect,
			TransitionApply,
			TransitionReboot,
			TransitionVerify,
		},
	}

	for _, rule := range o.transitionRules() {
		o.sm.AddTransition(rule)
	}

	for _, doc := range stateDocs {
		o.sm.DescribeState(sw.State(doc.Name), doc)
	}

	for _, doc := range transitionDocs {
		o.sm.DescribeTransitionType(sw.TransitionType(doc.Name), doc)
	}

	return o
}

func (o *Orchestrator) transitionRules() []sw.TransitionRule {
	return []sw.TransitionRule{
		{
			TransitionType:   TransitionClassify,
			SourceStates:     sw.States{model.StateInit},
			DestinationState: model.StateClassified,
			Transition:       o.classify,
			PostTransition:   o.transitionDone,
		},
		{
			TransitionType:   TransitionInspect,
			SourceStates:     sw.States{model.StateClassified},
			DestinationState: model.StateInspected,
			Transition:       o.inspect,
			PostTransition:   o.transitionDone,
		},
		{
			TransitionType:   TransitionApply,
			SourceStates:     sw.States{model.StateInspected},
			DestinationState: model.StateActionApplied,
			Condition:        o.actionRequested,
			Transition:       o.applyAction,
			PostTransition:   o.transitionDone,
		},
		{
			TransitionType:   TransitionReboot,
			SourceStates:     sw.States{model.StateActionApplied},
			DestinationState: model.StateRebootPending,
			Condition:        o.rebootRequired,
			Transition:       o.reboot,
			PostTransition:   o.transitionDone,
		},
		{
			TransitionType:   TransitionVerify,
			SourceStates:     sw.States{model.StateRebootPending},
			DestinationState: model.StateVerified,
			Transition:       o.verify,
			PostTransition:   o.transitionDone,
		},
		{
			TransitionType: TransitionFail,
			SourceStates: sw.States{
				model.StateInit,
				model.StateClassified,
				model.StateInspected,
				model.StateActionApplied,
				model.StateRebootPending,
			},
			DestinationState: model.StateFailed,
			Transition:       o.fail,
		},
	}
}

// DescribeAsJSON returns a JSON output describing the lifecycle statemachine.
func (o *Orchestrator) DescribeAsJSON() ([]byte, error) {
	return o.sm.AsJSON()
}

// terminal returns true when the run ends in its current state.
func terminal(run *model.Run) bool {
	switch run.CurrentState {
	case model.StateInspected:
		return !run.Action.Mutates()
	case model.StateActionApplied:
		return run.Result != model.ActionAppliedRebootRequired
	case model.StateVerified, model.StateFailed:
		return true
	}

	return false
}

// Run drives the run through the lifecycle, the returned error is the error the run failed with.
func (o *Orchestrator) Run(ctx context.Context, run *model.Run) (err error) {
	ctx, span := otel.Tracer(pkgName).Start(
		ctx,
		"lifecycle.Run",
		trace.WithAttributes(
			attribute.String("runID", run.ID.String()),
			attribute.String("action", string(run.Action)),
			attribute.Bool("dryrun", run.DryRun),
		),
	)
	defer span.End()

	hctx := &HandlerContext{
		Ctx:    ctx,
		Binder: o.binder,
		Logger: o.logger.WithFields(logrus.Fields{"runID": run.ID.String(), "action": run.Action}),
	}

	startTS := time.Now()

	defer func() {
		if err != nil {
			hctx.Err = err
			run.Err = err

			// errors from the fail transition are ignored
			// so as to not overwrite the original error
			if errFail := o.sm.Run(TransitionFail, run, hctx); errFail != nil {
				_ = run.SetState(model.StateFailed)
			}

			span.SetStatus(codes.Error, err.Error())
		}

		if c, ok := hctx.Handler.(closer); ok {
			if errClose := c.Close(context.Background()); errClose != nil {
				hctx.Logger.WithError(errClose).Debug("handler session close error")
			}
		}

		run.CompletedAt = time.Now()
		o.registerRunMetrics(startTS, run)

		span.SetAttributes(attribute.String("state", string(run.CurrentState)))

		hctx.Logger.WithFields(logrus.Fields{
			"state":   run.CurrentState,
			"result":  run.Result.String(),
			"elapsed": run.CompletedAt.Sub(startTS).String(),
		}).Info("run completed")
	}()

	for _, transitionType := range o.transitions {
		if terminal(run) {
			break
		}

		err = o.runTransition(ctx, transitionType, run, hctx)
		if err != nil {
			// update error to include some useful context
			if errors.Is(err, sw.NoConditionPassedToRunTransaction) {
				err = errors.Wrap(
					ErrTransition,
					fmt.Sprintf("no transition rule found for transition type '%s' and state '%s'", transitionType, run.CurrentState),
				)
			}

			return err
		}
	}

	return nil
}

func (o *Orchestrator) runTransition(ctx context.Context, transitionType sw.TransitionType, run *model.Run, hctx *HandlerContext) error {
	ctx, span := otel.Tracer(pkgName).Start(ctx, "lifecycle."+string(transitionType))
	defer span.End()

	hctx.Ctx = ctx
	startTS := time.Now()
	from := run.CurrentState

	err := o.sm.Run(transitionType, run, hctx)

	state := "succeeded"
	if err != nil {
		state = "failed"

		span.SetStatus(codes.Error, err.Error())
	}

	labels := prometheus.Labels{"transition": string(transitionType), "state": state}
	metrics.TransitionCounter.With(labels).Inc()
	metrics.TransitionRuntimeSummary.With(labels).Observe(time.Since(startTS).Seconds())

	le := hctx.Logger.WithFields(logrus.Fields{
		"transition": transitionType,
		"from":       from,
		"to":         run.CurrentState,
		"elapsed":    time.Since(startTS).String(),
	})

	if err != nil {
		le.WithError(err).Error("lifecycle transition failed")
		return err
	}

	le.Info("lifecycle transition")

	return nil
}

func (o *Orchestrator) registerRunMetrics(startTS time.Time, run *model.Run) {
	family := "unknown"
	if run.Device != nil {
		family = string(run.Device.Family)
	}

	labels := prometheus.Labels{
		"action": string(run.Action),
		"family": family,
		"state":  string(run.CurrentState),
	}

	metrics.RunCounter.With(labels).Inc()
	metrics.RunRuntimeSummary.With(labels).Observe(time.Since(startTS).Seconds())
}
