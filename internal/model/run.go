package model

import (
	"encoding/json"
	"time"

	sw "github.com/filanov/stateswitch"
	"github.com/google/uuid"
)

// run states
//
// states the lifecycle state machine transitions through
const (
	StateInit          sw.State = "init"
	StateClassified    sw.State = "classified"
	StateInspected     sw.State = "inspected"
	StateActionApplied sw.State = "actionApplied"
	StateRebootPending sw.State = "rebootPending"
	StateVerified      sw.State = "verified"
	StateFailed        sw.State = "failed"
)

// Run is the record of a single lifecycle run against a DUT.
//
// nolint:govet // fieldalignment - struct is better readable in its current form.
type Run struct {
	// Run unique identifier
	ID uuid.UUID `json:"id"`

	Action       Action   `json:"action"`
	CurrentState sw.State `json:"state"`

	// Status holds informational data on the state
	Status StatusRecord `json:"status"`

	// Result is the outcome of the upgrade or downgrade.
	Result LifecycleResult `json:"result"`

	// RebootAccepted is set once the DUT accepted a reboot request.
	RebootAccepted bool `json:"reboot_accepted"`

	// DryRun is set when firmware is planned but not installed.
	DryRun bool `json:"dry_run"`

	// Device is the DUT, set once classified.
	Device *Device `json:"-"`

	// Err is the error the run failed with.
	Err error `json:"-"`

	CreatedAt   time.Time `json:"created_at,omitempty"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// NewRun returns a Run in the init state.
func NewRun(action Action) *Run {
	return &Run{
		ID:           uuid.New(),
		Action:       action,
		CurrentState: StateInit,
		Status:       NewStatusRecord("initialized run"),
		CreatedAt:    time.Now(),
	}
}

// State implements the stateswitch.StateSwitch interface
func (r *Run) State() sw.State {
	return r.CurrentState
}

// SetState implements the stateswitch.StateSwitch interface
func (r *Run) SetState(state sw.State) error {
	r.CurrentState = state
	return nil
}

// Performed returns true when the run changed firmware on the DUT and verified it.
func (r *Run) Performed() bool {
	return r.CurrentState == StateVerified
}

// NotPerformed returns true when an upgrade or downgrade ended without a reboot and verification.
func (r *Run) NotPerformed() bool {
	return r.Action.Mutates() && r.CurrentState == StateActionApplied
}

func NewStatusRecord(s string) StatusRecord {
	sr := StatusRecord{}
	if s == "" {
		return sr
	}

	sr.Append(s)

	return sr
}

type StatusRecord struct {
	StatusMsgs []StatusMsg `json:"records"`
}

type StatusMsg struct {
	Timestamp time.Time `json:"ts,omitempty"`
	Msg       string    `json:"msg,omitempty"`
}

// Append adds the message, repeated messages are dropped and only the last 8 are kept.
func (sr *StatusRecord) Append(s string) {
	if s == "" {
		return
	}

	for _, r := range sr.StatusMsgs {
		if r.Msg == s {
			return
		}
	}

	if len(sr.StatusMsgs) > 7 {
		sr.StatusMsgs = sr.StatusMsgs[1:]
	}

	sr.StatusMsgs = append(sr.StatusMsgs, StatusMsg{Timestamp: time.Now(), Msg: s})
}

func (sr *StatusRecord) Last() string {
	if len(sr.StatusMsgs) == 0 {
		return ""
	}

	return sr.StatusMsgs[len(sr.StatusMsgs)-1].Msg
}

func (sr *StatusRecord) MustMarshal() json.RawMessage {
	b, err := json.Marshal(sr)
	if err != nil {
		panic(err)
	}

	return b
}
