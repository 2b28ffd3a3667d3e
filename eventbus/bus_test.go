package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestEmit_RequiresContext(t *testing.T) {
	bus := New()
	called := false
	bus.Register("wallet.connected", func(context.Context, Event) (any, error) {
		called = true
		return nil, nil
	})

	_, err := bus.Emit(context.Background(), "wallet.connected", nil)
	assert.ErrorIs(t, err, ErrNoContext)
	assert.False(t, called)
	assert.Empty(t, bus.History())

	bus.SetContext(&SessionContext{UserID: "u1"})
	_, err = bus.Emit(context.Background(), "wallet.connected", nil)
	require.NoError(t, err)
	assert.True(t, called)

	bus.SetContext(nil)
	assert.Nil(t, bus.Context())
	_, err = bus.Emit(context.Background(), "wallet.connected", nil)
	assert.ErrorIs(t, err, ErrNoContext)
}

func TestContext_IsCopied(t *testing.T) {
	bus := New()
	sc := &SessionContext{UserID: "u1", Address: "0xabc"}
	bus.SetContext(sc)
	sc.UserID = "mutated"

	got := bus.Context()
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.UserID)

	got.Address = "changed"
	assert.Equal(t, "0xabc", bus.Context().Address)
}

func TestEmit_ResultsInRegistrationOrder(t *testing.T) {
	bus := New()
	bus.SetContext(&SessionContext{UserID: "u1"})

	for i := 0; i < 5; i++ {
		delay := time.Duration(5-i) * time.Millisecond
		bus.Register("achievement.check", func(ctx context.Context, e Event) (any, error) {
			time.Sleep(delay)
			return fmt.Sprintf("h%d:%v", i, e.Data), nil
		})
	}

	results, err := bus.Emit(context.Background(), "achievement.check", "x")
	require.NoError(t, err)

	want := []any{"h0:x", "h1:x", "h2:x", "h3:x", "h4:x"}
	if diff := cmp.Diff(want, results); diff != "" {
		t.Fatalf("results mismatch (-want +got):\n%s", diff)
	}
}

func TestEmit_SingleHandlerAndNone(t *testing.T) {
	bus := New()
	bus.SetContext(&SessionContext{UserID: "u1"})

	results, err := bus.Emit(context.Background(), "nobody.listens", 1)
	require.NoError(t, err)
	assert.Empty(t, results)

	bus.Register("one", func(context.Context, Event) (any, error) { return 42, nil })
	results, err = bus.Emit(context.Background(), "one", nil)
	require.NoError(t, err)
	assert.Equal(t, []any{42}, results)
}

func TestEmit_HandlersRunConcurrently(t *testing.T) {
	bus := New()
	bus.SetContext(&SessionContext{UserID: "u1"})

	var barrier sync.WaitGroup
	barrier.Add(3)
	for i := 0; i < 3; i++ {
		bus.Register("sync", func(ctx context.Context, _ Event) (any, error) {
			barrier.Done()
			done := make(chan struct{})
			go func() { barrier.Wait(); close(done) }()
			select {
			case <-done:
				return true, nil
			case <-time.After(2 * time.Second):
				return nil, errors.New("handlers were serialized")
			}
		})
	}

	_, err := bus.Emit(context.Background(), "sync", nil)
	assert.NoError(t, err)
}

func TestEmit_HandlerError(t *testing.T) {
	bus := New()
	bus.SetContext(&SessionContext{UserID: "u1"})
	boom := errors.New("boom")

	bus.Register("e", func(context.Context, Event) (any, error) { return "ok", nil })
	bus.Register("e", func(context.Context, Event) (any, error) { return nil, boom })

	results, err := bus.Emit(context.Background(), "e", nil)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, results, 2)
}

func TestEmit_HandlerSeesSessionContext(t *testing.T) {
	bus := New()
	bus.SetContext(&SessionContext{UserID: "u1", Address: "0xabc", ChainID: 56})

	var seen Event
	bus.Register("wallet.linked", func(_ context.Context, e Event) (any, error) {
		seen = e
		return nil, nil
	})

	_, err := bus.Emit(context.Background(), "wallet.linked", map[string]int{"walletCount": 1})
	require.NoError(t, err)
	assert.Equal(t, SessionContext{UserID: "u1", Address: "0xabc", ChainID: 56}, seen.Session)
	assert.Equal(t, "wallet.linked", seen.Type)
}

func TestRegister_Unsubscribe(t *testing.T) {
	bus := New()
	bus.SetContext(&SessionContext{UserID: "u1"})

	remove := bus.Register("e", func(context.Context, Event) (any, error) { return 1, nil })
	bus.Register("e", func(context.Context, Event) (any, error) { return 2, nil })
	assert.Equal(t, 2, bus.HandlerCount("e"))

	remove()
	remove()
	assert.Equal(t, 1, bus.HandlerCount("e"))

	results, err := bus.Emit(context.Background(), "e", nil)
	require.NoError(t, err)
	assert.Equal(t, []any{2}, results)
}

func TestHistory_IsBounded(t *testing.T) {
	bus := New(WithHistoryCapacity(3))
	bus.SetContext(&SessionContext{UserID: "u1"})

	for i := 0; i < 5; i++ {
		_, err := bus.Emit(context.Background(), "tick", i)
		require.NoError(t, err)
	}

	history := bus.History()
	require.Len(t, history, 3)
	var got []any
	for _, e := range history {
		got = append(got, e.Data)
	}
	assert.Equal(t, []any{2, 3, 4}, got)
}

func TestHistory_DefaultCapacity(t *testing.T) {
	bus := New()
	bus.SetContext(&SessionContext{UserID: "u1"})

	for i := 0; i < DefaultHistoryCapacity+10; i++ {
		_, err := bus.Emit(context.Background(), "tick", i)
		require.NoError(t, err)
	}

	history := bus.History()
	require.Len(t, history, DefaultHistoryCapacity)
	assert.Equal(t, 10, history[0].Data)
}

func TestBuses_AreIsolated(t *testing.T) {
	a, b := New(), New()
	a.SetContext(&SessionContext{UserID: "u1"})

	_, err := b.Emit(context.Background(), "e", nil)
	assert.ErrorIs(t, err, ErrNoContext)
}
