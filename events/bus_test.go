package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus, err := NewBus(nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan BorrowEvent, 2)
	require.NoError(t, bus.Subscribe(ctx, "test", func(_ context.Context, ev BorrowEvent) error {
		got <- ev
		return nil
	}))

	require.NoError(t, bus.Publish(ctx, BorrowEvent{
		BorrowID: "b1", Action: "APPROVED", Status: "ACTIVE", BorrowerID: "u1", ItemID: "i1",
	}))

	select {
	case ev := <-got:
		assert.Equal(t, "b1", ev.BorrowID)
		assert.Equal(t, "APPROVED", ev.Action)
		assert.False(t, ev.At.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBus_HandlerErrorDoesNotBlock(t *testing.T) {
	bus, err := NewBus(nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seen := make(chan string, 4)
	require.NoError(t, bus.Subscribe(ctx, "flaky", func(_ context.Context, ev BorrowEvent) error {
		seen <- ev.BorrowID
		return errors.New("nope")
	}))

	require.NoError(t, bus.Publish(ctx, BorrowEvent{BorrowID: "first"}))
	require.NoError(t, bus.Publish(ctx, BorrowEvent{BorrowID: "second"}))

	var ids []string
	for len(ids) < 2 {
		select {
		case id := <-seen:
			ids = append(ids, id)
		case <-time.After(2 * time.Second):
			t.Fatalf("only got %v", ids)
		}
	}
	assert.ElementsMatch(t, []string{"first", "second"}, ids)
}
