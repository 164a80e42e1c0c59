package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}
}

func TestWithRetry_TriggersReconnectWhenDisconnected(t *testing.T) {
	fc := &fakeConn{}
	cf := &countingFactory{conns: []Conn{fc}}
	m := New(cf.factory, testConfig(), nil)

	require.False(t, m.IsConnected())

	var calls int
	err := WithRetry(context.Background(), m, testRetryPolicy(), func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, int32(1), cf.calls.Load(), "the pre-check must have dialed")
	assert.True(t, m.IsConnected())
}

func TestWithRetry_ProceedsEvenIfReconnectFails(t *testing.T) {
	cf := &countingFactory{errs: []error{
		errors.New("down"), errors.New("down"), errors.New("down"),
	}}
	m := New(cf.factory, testConfig(), nil)

	// The operation still runs once per attempt; reconnection failing is
	// not itself a reason to skip it.
	opErr := errors.New("order rejected: insufficient margin")
	var calls int
	err := WithRetry(context.Background(), m, testRetryPolicy(), func(ctx context.Context) error {
		calls++
		return opErr
	})

	assert.ErrorIs(t, err, opErr)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_RetriesConnectionErrors(t *testing.T) {
	fc := &fakeConn{}
	cf := &countingFactory{conns: []Conn{fc}}
	m := New(cf.factory, testConfig(), nil)
	require.NoError(t, m.Start(context.Background()))
	defer m.Stop(context.Background())

	var calls int
	err := WithRetry(context.Background(), m, testRetryPolicy(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &ConnectError{Err: errors.New("socket reset")}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_PropagatesOtherErrorsImmediately(t *testing.T) {
	fc := &fakeConn{}
	cf := &countingFactory{conns: []Conn{fc}}
	m := New(cf.factory, testConfig(), nil)
	require.NoError(t, m.Start(context.Background()))
	defer m.Stop(context.Background())

	opErr := errors.New("duplicate order id")
	var calls int
	err := WithRetry(context.Background(), m, testRetryPolicy(), func(ctx context.Context) error {
		calls++
		return opErr
	})

	assert.ErrorIs(t, err, opErr)
	assert.Equal(t, 1, calls, "non-connection failures must not be retried")
}

func TestWithRetry_Exhaustion(t *testing.T) {
	fc := &fakeConn{}
	cf := &countingFactory{conns: []Conn{fc}}
	m := New(cf.factory, testConfig(), nil)
	require.NoError(t, m.Start(context.Background()))
	defer m.Stop(context.Background())

	var calls int
	err := WithRetry(context.Background(), m, testRetryPolicy(), func(ctx context.Context) error {
		calls++
		return ErrConnectionLost
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnectionLost)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
	assert.Equal(t, 3, calls)
}

func TestWithRetry_CancelledDuringBackoff(t *testing.T) {
	fc := &fakeConn{}
	cf := &countingFactory{conns: []Conn{fc}}
	m := New(cf.factory, testConfig(), nil)
	require.NoError(t, m.Start(context.Background()))
	defer m.Stop(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}
	var calls int
	err := WithRetry(ctx, m, policy, func(ctx context.Context) error {
		calls++
		return ErrConnectionLost
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, calls, "the backoff sleep must be cancellable")
}
