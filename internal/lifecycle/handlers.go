package lifecycle

import (
	"fmt"

	sw "github.com/filanov/stateswitch"
	"github.com/metal-toolbox/dutfw/internal/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	stateDocs = []sw.StateDoc{
		{Name: string(model.StateInit), Description: "The run was created, the DUT is not yet classified."},
		{Name: string(model.StateClassified), Description: "The DUT platform data was read and a device handler bound."},
		{Name: string(model.StateInspected), Description: "The current firmware inventory of the DUT was recorded."},
		{Name: string(model.StateActionApplied), Description: "The upgrade or downgrade was applied."},
		{Name: string(model.StateRebootPending), Description: "The DUT accepted a reboot request."},
		{Name: string(model.StateVerified), Description: "The DUT came back and reported changed firmware."},
		{Name: string(model.StateFailed), Description: "The run failed, the error is recorded on the run."},
	}

	transitionDocs = []sw.TransitionTypeDoc{
		{Name: string(TransitionClassify), Description: "Read the DUT chassis vendor and type, resolve and construct the device handler."},
		{Name: string(TransitionInspect), Description: "Query and record the DUT firmware inventory."},
		{Name: string(TransitionApply), Description: "Install the newest or previous firmware, runs only for upgrade and downgrade."},
		{Name: string(TransitionReboot), Description: "Request a DUT restart, runs only when the applied firmware requires one."},
		{Name: string(TransitionVerify), Description: "Wait for the DUT and compare its firmware inventory with the recorded one."},
		{Name: string(TransitionFail), Description: "Record the error the run failed with."},
	}
)

func transitionArgs(swv sw.StateSwitch, args sw.TransitionArgs) (*model.Run, *HandlerContext, error) {
	run, ok := swv.(*model.Run)
	if !ok {
		return nil, nil, errors.Wrap(ErrInvalidRun, fmt.Sprintf("got %T", swv))
	}

	hctx, ok := args.(*HandlerContext)
	if !ok {
		return nil, nil, errors.Wrap(ErrInvalidTransitionHandler, fmt.Sprintf("got %T", args))
	}

	return run, hctx, nil
}

func handlerArgs(swv sw.StateSwitch, args sw.TransitionArgs) (*model.Run, *HandlerContext, error) {
	run, hctx, err := transitionArgs(swv, args)
	if err != nil {
		return nil, nil, err
	}

	if hctx.Handler == nil {
		return nil, nil, ErrNoHandler
	}

	return run, hctx, nil
}

func (o *Orchestrator) classify(swv sw.StateSwitch, args sw.TransitionArgs) error {
	run, hctx, err := transitionArgs(swv, args)
	if err != nil {
		return err
	}

	if hctx.Binder == nil {
		return ErrNoHandler
	}

	device, handler, err := hctx.Binder.Bind(hctx.Ctx)
	if err != nil {
		return err
	}

	run.Device = device
	hctx.Handler = handler
	hctx.Logger = hctx.Logger.WithFields(logrus.Fields{
		"dut":     device.DUT.Address,
		"handler": device.Handler,
	})

	run.Status.Append(fmt.Sprintf("classified %s %s as %s", device.Vendor, device.ChassisName, device.Handler))

	return nil
}

func (o *Orchestrator) inspect(swv sw.StateSwitch, args sw.TransitionArgs) error {
	run, hctx, err := handlerArgs(swv, args)
	if err != nil {
		return err
	}

	components, err := hctx.Handler.FirmwareInfo(hctx.Ctx)
	if err != nil {
		return errors.Wrap(err, "inspect firmware inventory")
	}

	run.Status.Append(fmt.Sprintf("inventory recorded, %d components", len(components)))

	return nil
}

func (o *Orchestrator) actionRequested(swv sw.StateSwitch, _ sw.TransitionArgs) (bool, error) {
	run, ok := swv.(*model.Run)
	if !ok {
		return false, errors.Wrap(ErrInvalidRun, fmt.Sprintf("got %T", swv))
	}

	return run.Action.Mutates(), nil
}

func (o *Orchestrator) applyAction(swv sw.StateSwitch, args sw.TransitionArgs) error {
	run, hctx, err := handlerArgs(swv, args)
	if err != nil {
		return err
	}

	var result model.LifecycleResult

	switch run.Action {
	case model.ActionUpgrade:
		result, err = hctx.Handler.Upgrade(hctx.Ctx)
	case model.ActionDowngrade:
		result, err = hctx.Handler.Downgrade(hctx.Ctx)
	default:
		return errors.Wrap(ErrTransition, "action does not apply firmware: "+string(run.Action))
	}

	if err != nil {
		return err
	}

	run.Result = result
	run.Status.Append("firmware " + string(run.Action) + ": " + result.String())

	return nil
}

func (o *Orchestrator) rebootRequired(swv sw.StateSwitch, _ sw.TransitionArgs) (bool, error) {
	run, ok := swv.(*model.Run)
	if !ok {
		return false, errors.Wrap(ErrInvalidRun, fmt.Sprintf("got %T", swv))
	}

	return run.Result == model.ActionAppliedRebootRequired, nil
}

func (o *Orchestrator) reboot(swv sw.StateSwitch, args sw.TransitionArgs) error {
	run, hctx, err := handlerArgs(swv, args)
	if err != nil {
		return err
	}

	if err := hctx.Handler.Reboot(hctx.Ctx); err != nil {
		return err
	}

	run.RebootAccepted = true
	run.Status.Append("reboot requested")

	return nil
}

func (o *Orchestrator) verify(swv sw.StateSwitch, args sw.TransitionArgs) error {
	run, hctx, err := handlerArgs(swv, args)
	if err != nil {
		return err
	}

	if err := hctx.Handler.CheckResults(hctx.Ctx); err != nil {
		return err
	}

	run.Status.Append("firmware " + string(run.Action) + " verified")

	return nil
}

func (o *Orchestrator) fail(swv sw.StateSwitch, args sw.TransitionArgs) error {
	run, hctx, err := transitionArgs(swv, args)
	if err != nil {
		return err
	}

	if hctx.Err != nil {
		run.Err = hctx.Err
		run.Status.Append(hctx.Err.Error())
	}

	return nil
}

func (o *Orchestrator) transitionDone(swv sw.StateSwitch, args sw.TransitionArgs) error {
	run, hctx, err := transitionArgs(swv, args)
	if err != nil {
		return err
	}

	hctx.Logger.WithField("state", run.CurrentState).Debug("transition complete")

	return nil
}
