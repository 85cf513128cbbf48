package event_test

import (
	"context"
	"testing"

	"github.com/craftmarket/backend/internal/domain/shared"
	"github.com/craftmarket/backend/internal/infrastructure/event"
	"github.com/craftmarket/backend/tests/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type testEvent struct {
	shared.BaseDomainEvent
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, "test", uuid.New()),
	}
}

func TestInMemoryEventBus_PublishDelivers(t *testing.T) {
	bus := event.NewInMemoryEventBus(zaptest.NewLogger(t))
	ctx := context.Background()
	require.NoError(t, bus.Start(ctx))

	handler := testutil.NewMockEventHandler("user.registered")
	bus.Subscribe(handler)

	require.NoError(t, bus.Publish(ctx, newTestEvent("user.registered")))
	require.NoError(t, bus.Publish(ctx, newTestEvent("user.locked")))

	assert.Equal(t, 1, handler.HandledCount())
	require.NoError(t, bus.Stop(ctx))
}

func TestInMemoryEventBus_ExplicitEventTypes(t *testing.T) {
	bus := event.NewInMemoryEventBus(zaptest.NewLogger(t))
	ctx := context.Background()

	handler := testutil.NewMockEventHandler()
	bus.Subscribe(handler, "message.sent", "dialogue.opened")

	require.NoError(t, bus.Publish(ctx, newTestEvent("message.sent")))
	require.NoError(t, bus.Publish(ctx, newTestEvent("dialogue.opened")))

	assert.Equal(t, 2, handler.HandledCount())
}

func TestInMemoryEventBus_HandlerErrorDoesNotStopOthers(t *testing.T) {
	bus := event.NewInMemoryEventBus(zaptest.NewLogger(t))
	ctx := context.Background()

	failing := testutil.NewMockEventHandler("message.sent")
	failing.SetError(assert.AnError)
	healthy := testutil.NewMockEventHandler("message.sent")

	bus.Subscribe(failing)
	bus.Subscribe(healthy)

	require.NoError(t, bus.Publish(ctx, newTestEvent("message.sent")))
	assert.Equal(t, 1, healthy.HandledCount())
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := event.NewInMemoryEventBus(zaptest.NewLogger(t))
	ctx := context.Background()

	handler := testutil.NewMockEventHandler("message.sent")
	bus.Subscribe(handler)
	bus.Unsubscribe(handler)

	require.NoError(t, bus.Publish(ctx, newTestEvent("message.sent")))
	assert.Zero(t, handler.HandledCount())
}

func TestHandlerRegistry(t *testing.T) {
	registry := event.NewHandlerRegistry()

	a := testutil.NewMockEventHandler()
	b := testutil.NewMockEventHandler()
	registry.Register(a, "message.sent")
	registry.Register(b, "message.sent", "dialogue.opened")

	assert.Len(t, registry.HandlersFor("message.sent"), 2)
	assert.Len(t, registry.HandlersFor("dialogue.opened"), 1)
	assert.Nil(t, registry.HandlersFor("unknown"))
	assert.Equal(t, 2, registry.EventTypeCount())

	registry.Unregister(b)
	assert.Len(t, registry.HandlersFor("message.sent"), 1)
	assert.Equal(t, 1, registry.EventTypeCount())
}
