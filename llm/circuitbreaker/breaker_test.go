package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Adhikkesh/Erflog/types"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

var errUpstream = errors.New("upstream down")

func fail(context.Context) error    { return errUpstream }
func succeed(context.Context) error { return nil }

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := New("deepgram", Config{Threshold: 3, ResetTimeout: time.Minute}, zaptest.NewLogger(t))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.ErrorIs(t, b.Call(ctx, fail), errUpstream)
		assert.Equal(t, StateClosed, b.State())
	}
	require.ErrorIs(t, b.Call(ctx, fail), errUpstream)
	assert.Equal(t, StateOpen, b.State())

	called := false
	err := b.Call(ctx, func(context.Context) error { called = true; return nil })
	require.Error(t, err)
	assert.False(t, called)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, types.ErrServiceUnavailable, types.GetErrorCode(err))
}

func TestBreaker_SuccessResetsFailures(t *testing.T) {
	b := New("llm", Config{Threshold: 2}, nil)
	ctx := context.Background()

	_ = b.Call(ctx, fail)
	assert.Equal(t, 1, b.Failures())
	require.NoError(t, b.Call(ctx, succeed))
	assert.Equal(t, 0, b.Failures())
	_ = b.Call(ctx, fail)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	var mu sync.Mutex
	var transitions []string
	b := New("tts", Config{
		Threshold:    1,
		ResetTimeout: 10 * time.Second,
		OnStateChange: func(_ string, from, to State) {
			mu.Lock()
			transitions = append(transitions, from.String()+"->"+to.String())
			mu.Unlock()
		},
	}, nil, WithClock(clock.Now))
	ctx := context.Background()

	_ = b.Call(ctx, fail)
	require.Equal(t, StateOpen, b.State())

	clock.Advance(5 * time.Second)
	assert.ErrorIs(t, b.Call(ctx, succeed), ErrCircuitOpen)

	clock.Advance(6 * time.Second)
	require.NoError(t, b.Call(ctx, succeed))
	assert.Equal(t, StateClosed, b.State())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"closed->open", "open->half_open", "half_open->closed"}, transitions)
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	b := New("stt", Config{Threshold: 1, ResetTimeout: time.Second}, nil, WithClock(clock.Now))
	ctx := context.Background()

	_ = b.Call(ctx, fail)
	clock.Advance(2 * time.Second)
	require.ErrorIs(t, b.Call(ctx, fail), errUpstream)
	assert.Equal(t, StateOpen, b.State())
	assert.ErrorIs(t, b.Call(ctx, succeed), ErrCircuitOpen)
}

func TestBreaker_HalfOpenLimitsProbes(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	b := New("stt", Config{Threshold: 1, ResetTimeout: time.Second, HalfOpenMaxCalls: 1}, nil, WithClock(clock.Now))
	ctx := context.Background()

	_ = b.Call(ctx, fail)
	clock.Advance(2 * time.Second)

	probing := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- b.Call(ctx, func(context.Context) error {
			close(probing)
			<-release
			return nil
		})
	}()
	<-probing

	assert.ErrorIs(t, b.Call(ctx, succeed), ErrTooManyCallsInHalfOpen)
	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_ClientErrorsDoNotTrip(t *testing.T) {
	b := New("llm", Config{Threshold: 1}, nil)
	ctx := context.Background()

	for _, code := range []types.ErrorCode{types.ErrInvalidRequest, types.ErrUnauthorized, types.ErrForbidden} {
		err := b.Call(ctx, func(context.Context) error { return types.NewError(code, "client") })
		require.Error(t, err)
	}
	require.ErrorIs(t, b.Call(ctx, func(context.Context) error { return context.Canceled }), context.Canceled)
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 0, b.Failures())
}

func TestExecute_ReturnsValue(t *testing.T) {
	b := New("llm", DefaultConfig(), nil)
	got, err := Execute(context.Background(), b, func(context.Context) (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestBreaker_Reset(t *testing.T) {
	b := New("llm", Config{Threshold: 1}, nil)
	_ = b.Call(context.Background(), fail)
	require.Equal(t, StateOpen, b.State())
	b.Reset()
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 0, b.Failures())
	assert.Equal(t, "llm", b.Name())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half_open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}
