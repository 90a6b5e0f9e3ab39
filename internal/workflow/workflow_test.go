package workflow

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopAction(context.Context) error { return nil }

func TestBeginCancel(t *testing.T) {
	w := New(0)
	assert.Equal(t, StateIdle, w.State())

	var ran int32
	action := func(context.Context) error {
		atomic.AddInt32(&ran, 1)
		return nil
	}

	require.NoError(t, w.Begin(action, "done", nil))
	assert.Equal(t, StateConfirming, w.State())

	// a second initiation is refused while the first is pending
	assert.ErrorIs(t, w.Begin(noopAction, "", nil), ErrBusy)

	require.NoError(t, w.Cancel())
	assert.Equal(t, StateIdle, w.State())
	assert.Zero(t, atomic.LoadInt32(&ran))

	// canceled flows can be re-initiated
	require.NoError(t, w.Begin(action, "done", nil))
}

func TestIllegalTransitions(t *testing.T) {
	w := New(0)
	assert.ErrorIs(t, w.Cancel(), ErrInvalidTransition)
	_, err := w.Confirm(context.Background())
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorIs(t, w.Dismiss(), ErrInvalidTransition)
	assert.ErrorIs(t, w.Begin(nil, "", nil), ErrInvalidTransition)
}

func TestConfirmSuccess(t *testing.T) {
	w := New(20 * time.Millisecond)
	done := make(chan struct{})

	require.NoError(t, w.Begin(noopAction, "Producto eliminado", func() { close(done) }))
	res, err := w.Confirm(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "Producto eliminado", res.Message)

	report, ok := w.Report()
	assert.True(t, ok)
	assert.Equal(t, res, report)

	// the report self-dismisses and the continuation fires
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("continuation never fired")
	}
	assert.Eventually(t, func() bool { return w.State() == StateIdle },
		time.Second, 5*time.Millisecond)
}

func TestConfirmFailureSticks(t *testing.T) {
	w := New(10 * time.Millisecond)
	fired := make(chan struct{}, 1)

	action := func(context.Context) error { return errors.New("write failed") }
	require.NoError(t, w.Begin(action, "never shown", func() { fired <- struct{}{} }))

	res, err := w.Confirm(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "write failed", res.Message)

	// failed reports outlive the success dismiss delay
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, StateReporting, w.State())

	require.NoError(t, w.Dismiss())
	assert.Equal(t, StateIdle, w.State())
	// no continuation on failure
	select {
	case <-fired:
		t.Fatal("continuation fired for a failed flow")
	default:
	}

	// the user can re-initiate after acknowledging the failure
	require.NoError(t, w.Begin(noopAction, "", nil))
}

func TestEarlyDismissFiresContinuationOnce(t *testing.T) {
	w := New(time.Hour)
	var fires int32

	require.NoError(t, w.Begin(noopAction, "ok", func() { atomic.AddInt32(&fires, 1) }))
	_, err := w.Confirm(context.Background())
	require.NoError(t, err)

	require.NoError(t, w.Dismiss())
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fires))
	assert.Equal(t, StateIdle, w.State())
}

func TestActionRunsOncePerConfirm(t *testing.T) {
	w := New(time.Hour)
	var runs int32
	action := func(context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}

	require.NoError(t, w.Begin(action, "ok", nil))
	_, err := w.Confirm(context.Background())
	require.NoError(t, err)

	// confirming again without a fresh Begin is illegal and runs nothing
	_, err = w.Confirm(context.Background())
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, int32(1), atomic.LoadInt32(&runs))
}
