// Package workflow implements the generic confirm/execute/report dialog
// flow shared by destructive catalog actions and profile saves:
// Idle -> Confirming -> Executing -> Reporting -> Idle.
package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// State is the current phase of a workflow instance.
type State int

const (
	StateIdle State = iota
	StateConfirming
	StateExecuting
	StateReporting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConfirming:
		return "confirming"
	case StateExecuting:
		return "executing"
	case StateReporting:
		return "reporting"
	default:
		return "unknown"
	}
}

var (
	// ErrBusy is returned by Begin while a previous flow is still active.
	// The triggering control stays disabled until the instance is Idle again.
	ErrBusy = errors.New("workflow already active")

	// ErrInvalidTransition is returned when a call does not apply to the
	// current state, e.g. Confirm without a prior Begin.
	ErrInvalidTransition = errors.New("invalid workflow transition")
)

// Action is the mutation executed on confirm. It runs at most once per
// confirmed Begin.
type Action func(ctx context.Context) error

// Result is the payload carried into the Reporting state.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// DefaultSuccessDismiss is how long a successful report stays visible
// before the workflow self-dismisses and fires the continuation.
const DefaultSuccessDismiss = 2 * time.Second

// Workflow is one reusable confirm/execute/report instance. A screen owns
// exactly one; all methods are safe for concurrent use.
type Workflow struct {
	mu             sync.Mutex
	state          State
	action         Action
	successMessage string
	onDone         func()
	result         Result
	dismissAfter   time.Duration
	timer          *time.Timer
}

// New creates an idle workflow. successDismiss <= 0 selects the default.
func New(successDismiss time.Duration) *Workflow {
	if successDismiss <= 0 {
		successDismiss = DefaultSuccessDismiss
	}
	return &Workflow{dismissAfter: successDismiss}
}

// Begin arms the workflow with an action and moves Idle -> Confirming.
// successMessage becomes the report payload when the action succeeds;
// onDone is the continuation fired after a successful flow is dismissed.
// Begin fails with ErrBusy while a previous flow is still confirming,
// executing or reporting.
func (w *Workflow) Begin(action Action, successMessage string, onDone func()) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateIdle {
		return ErrBusy
	}
	if action == nil {
		return errors.Wrap(ErrInvalidTransition, "nil action")
	}
	w.state = StateConfirming
	w.action = action
	w.successMessage = successMessage
	w.onDone = onDone
	w.result = Result{}
	return nil
}

// Cancel aborts a confirming workflow with no side effect.
func (w *Workflow) Cancel() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != StateConfirming {
		return ErrInvalidTransition
	}
	w.reset()
	return nil
}

// Confirm runs the armed action and moves into Reporting with the outcome.
// On success the report self-dismisses after the configured delay and the
// continuation runs; on failure it stays until Dismiss.
func (w *Workflow) Confirm(ctx context.Context) (Result, error) {
	w.mu.Lock()
	if w.state != StateConfirming {
		w.mu.Unlock()
		return Result{}, ErrInvalidTransition
	}
	action := w.action
	w.state = StateExecuting
	w.mu.Unlock()

	err := action(ctx)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.state = StateReporting
	if err != nil {
		w.result = Result{Success: false, Message: err.Error()}
		return w.result, nil
	}
	w.result = Result{Success: true, Message: w.successMessage}
	w.timer = time.AfterFunc(w.dismissAfter, w.autoDismiss)
	return w.result, nil
}

// Dismiss acknowledges the report and returns the workflow to Idle. For a
// successful flow the continuation fires here as well, so a user who
// dismisses early still gets the follow-up navigation.
func (w *Workflow) Dismiss() error {
	w.mu.Lock()
	if w.state != StateReporting {
		w.mu.Unlock()
		return ErrInvalidTransition
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	onDone := w.onDone
	success := w.result.Success
	w.reset()
	w.mu.Unlock()

	if success && onDone != nil {
		onDone()
	}
	return nil
}

// State returns the current phase.
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Report returns the result payload and whether the workflow is reporting.
func (w *Workflow) Report() (Result, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.result, w.state == StateReporting
}

func (w *Workflow) autoDismiss() {
	w.mu.Lock()
	if w.state != StateReporting || !w.result.Success {
		w.mu.Unlock()
		return
	}
	onDone := w.onDone
	w.reset()
	w.mu.Unlock()

	if onDone != nil {
		onDone()
	}
}

// reset must be called with the lock held.
func (w *Workflow) reset() {
	w.state = StateIdle
	w.action = nil
	w.onDone = nil
	w.timer = nil
}
