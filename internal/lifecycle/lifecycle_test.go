package lifecycle

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	sw "github.com/filanov/stateswitch"
	"github.com/metal-toolbox/dutfw/internal/classify"
	"github.com/metal-toolbox/dutfw/internal/fixtures"
	"github.com/metal-toolbox/dutfw/internal/model"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var errBind = errors.New("bind failed")

type fakeBinder struct {
	handler model.Handler
	err     error
	calls   int
}

func (b *fakeBinder) Bind(context.Context) (*model.Device, model.Handler, error) {
	b.calls++

	if b.err != nil {
		return nil, nil, b.err
	}

	device := &model.Device{
		DUT:      model.Credentials{Address: "10.0.0.1", Username: "ubuntu", Password: "insecure"},
		Vendor:   "LENOVO",
		Handler:  "lenovo-client",
		Family:   model.FamilyInband,
		Category: model.CategoryClient,
	}

	return device, b.handler, nil
}

// closingHandler records the Close call made once the run completes.
type closingHandler struct {
	*fixtures.MockHandler
	closed bool
}

func (c *closingHandler) Close(context.Context) error {
	c.closed = true
	return nil
}

func newTestOrchestrator(binder Binder) *Orchestrator {
	logger, _ := logrustest.NewNullLogger()
	return New(binder, logrus.NewEntry(logger))
}

func TestRunDetect(t *testing.T) {
	ctrl := gomock.NewController(t)
	handler := fixtures.NewMockHandler(ctrl)

	// the mutating methods are not expected, gomock fails the test when called
	handler.EXPECT().FirmwareInfo(gomock.Any()).Return(model.Components{}, nil).Times(1)

	binder := &fakeBinder{handler: handler}
	run := model.NewRun(model.ActionDetect)

	err := newTestOrchestrator(binder).Run(context.Background(), run)
	require.NoError(t, err)

	assert.Equal(t, 1, binder.calls)
	assert.Equal(t, model.StateInspected, run.CurrentState)
	assert.Equal(t, model.NoActionNeeded, run.Result)
	assert.False(t, run.RebootAccepted)
	assert.False(t, run.NotPerformed())
	assert.NotNil(t, run.Device)
	assert.False(t, run.CompletedAt.IsZero())
}

func TestRunActions(t *testing.T) {
	errUpgrade := errors.New("fwupdmgr update failed")

	tests := []struct {
		name          string
		action        model.Action
		result        model.LifecycleResult
		actionErr     error
		rebootErr     error
		checkErr      error
		wantState     sw.State
		wantReboot    bool
		wantCheck     bool
		wantErr       error
		notPerformed  bool
		wantPerformed bool
	}{
		{
			name:         "upgrade nothing to do",
			action:       model.ActionUpgrade,
			result:       model.NoActionNeeded,
			wantState:    model.StateActionApplied,
			notPerformed: true,
		},
		{
			name:         "upgrade applied without reboot",
			action:       model.ActionUpgrade,
			result:       model.ActionAppliedNoReboot,
			wantState:    model.StateActionApplied,
			notPerformed: true,
		},
		{
			name:          "upgrade verified",
			action:        model.ActionUpgrade,
			result:        model.ActionAppliedRebootRequired,
			wantState:     model.StateVerified,
			wantReboot:    true,
			wantCheck:     true,
			wantPerformed: true,
		},
		{
			name:          "downgrade verified",
			action:        model.ActionDowngrade,
			result:        model.ActionAppliedRebootRequired,
			wantState:     model.StateVerified,
			wantReboot:    true,
			wantCheck:     true,
			wantPerformed: true,
		},
		{
			name:       "verification failed",
			action:     model.ActionUpgrade,
			result:     model.ActionAppliedRebootRequired,
			checkErr:   model.ErrVerificationFailed,
			wantState:  model.StateFailed,
			wantReboot: true,
			wantCheck:  true,
			wantErr:    model.ErrVerificationFailed,
		},
		{
			name:       "reboot refused",
			action:     model.ActionDowngrade,
			result:     model.ActionAppliedRebootRequired,
			rebootErr:  model.ErrRemoteCommandFailed,
			wantState:  model.StateFailed,
			wantReboot: true,
			wantErr:    model.ErrRemoteCommandFailed,
		},
		{
			name:      "upgrade failed",
			action:    model.ActionUpgrade,
			actionErr: errUpgrade,
			wantState: model.StateFailed,
			wantErr:   errUpgrade,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			handler := fixtures.NewMockHandler(ctrl)

			prev := handler.EXPECT().FirmwareInfo(gomock.Any()).Return(model.Components{}, nil).Times(1)

			if tc.action == model.ActionUpgrade {
				prev = handler.EXPECT().Upgrade(gomock.Any()).Return(tc.result, tc.actionErr).Times(1).After(prev)
			} else {
				prev = handler.EXPECT().Downgrade(gomock.Any()).Return(tc.result, tc.actionErr).Times(1).After(prev)
			}

			if tc.wantReboot {
				prev = handler.EXPECT().Reboot(gomock.Any()).Return(tc.rebootErr).Times(1).After(prev)
			}

			if tc.wantCheck {
				handler.EXPECT().CheckResults(gomock.Any()).Return(tc.checkErr).Times(1).After(prev)
			}

			run := model.NewRun(tc.action)

			err := newTestOrchestrator(&fakeBinder{handler: handler}).Run(context.Background(), run)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				assert.ErrorIs(t, run.Err, tc.wantErr)
				assert.Contains(t, run.Status.Last(), tc.wantErr.Error())
			} else {
				require.NoError(t, err)
				assert.Nil(t, run.Err)
			}

			assert.Equal(t, tc.wantState, run.CurrentState)
			assert.Equal(t, tc.notPerformed, run.NotPerformed())
			assert.Equal(t, tc.wantPerformed, run.Performed())

			if tc.actionErr == nil {
				assert.Equal(t, tc.result, run.Result)
			}

			if tc.wantReboot && tc.rebootErr == nil {
				assert.True(t, run.RebootAccepted)
			}
		})
	}
}

func TestRunInspectFailed(t *testing.T) {
	ctrl := gomock.NewController(t)
	handler := fixtures.NewMockHandler(ctrl)

	handler.EXPECT().FirmwareInfo(gomock.Any()).Return(nil, model.ErrRemoteCommandFailed).Times(1)

	run := model.NewRun(model.ActionUpgrade)

	err := newTestOrchestrator(&fakeBinder{handler: handler}).Run(context.Background(), run)
	require.ErrorIs(t, err, model.ErrRemoteCommandFailed)
	assert.Contains(t, err.Error(), "inspect firmware inventory")
	assert.Equal(t, model.StateFailed, run.CurrentState)
}

func TestRunBindFailed(t *testing.T) {
	run := model.NewRun(model.ActionUpgrade)

	err := newTestOrchestrator(&fakeBinder{err: errBind}).Run(context.Background(), run)
	require.ErrorIs(t, err, errBind)
	assert.Equal(t, model.StateFailed, run.CurrentState)
	assert.Nil(t, run.Device)
}

func TestRunClosesHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	handler := &closingHandler{MockHandler: fixtures.NewMockHandler(ctrl)}

	handler.EXPECT().FirmwareInfo(gomock.Any()).Return(model.Components{}, nil).Times(1)

	run := model.NewRun(model.ActionDetect)

	err := newTestOrchestrator(&fakeBinder{handler: handler}).Run(context.Background(), run)
	require.NoError(t, err)
	assert.True(t, handler.closed)
}

func TestRunUnsupportedDevice(t *testing.T) {
	ctrl := gomock.NewController(t)
	exec := fixtures.NewMockRemoteExecutor(ctrl)

	exec.EXPECT().Host().Return("10.0.0.2").AnyTimes()
	exec.EXPECT().Run(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, cmd string) (*model.CommandResult, error) {
			if strings.Contains(cmd, "chassis_vendor") {
				return &model.CommandResult{Stdout: "Dell Inc.\n"}, nil
			}

			// Laptop
			return &model.CommandResult{Stdout: "9\n"}, nil
		},
	).Times(2)

	logger, _ := logrustest.NewNullLogger()
	entry := logrus.NewEntry(logger)

	classifier := classify.NewClassifier(
		classify.DefaultRegistry(),
		classify.Defaults{Username: "ubuntu", Password: "insecure"},
		entry,
	)

	binding := &classify.Binding{
		Classifier: classifier,
		Exec:       exec,
		Target:     classifier.Target("10.0.0.2", "", model.Credentials{}),
	}

	run := model.NewRun(model.ActionUpgrade)

	err := New(binding, entry).Run(context.Background(), run)
	require.ErrorIs(t, err, model.ErrUnsupportedDevice)
	assert.Contains(t, err.Error(), "Dell Inc. Laptop")
	assert.Equal(t, model.StateFailed, run.CurrentState)
}

func TestDescribeAsJSON(t *testing.T) {
	b, err := newTestOrchestrator(nil).DescribeAsJSON()
	require.NoError(t, err)

	smj := &sw.StateMachineJSON{}
	require.NoError(t, json.Unmarshal(b, smj))
	assert.Len(t, smj.TransitionRules, 6)

	for _, want := range []sw.TransitionType{
		TransitionClassify,
		TransitionInspect,
		TransitionApply,
		TransitionReboot,
		TransitionVerify,
		TransitionFail,
	} {
		assert.Contains(t, string(b), `"`+string(want)+`"`)
	}
}
