package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishWrapsEnvelope(t *testing.T) {
	bus := NewBus()

	sub := bus.Subscribe()
	defer sub.Unsubscribe()

	bus.Publish(TypeSlotAdvanced, &SlotAdvanced{CurrentSlot: 42})

	event := <-sub.Channel()
	require.NotNil(t, event)
	assert.Equal(t, TypeSlotAdvanced, event.Type)
	assert.NotZero(t, event.Timestamp)

	data, ok := event.Data.(*SlotAdvanced)
	require.True(t, ok)
	assert.Equal(t, uint64(42), data.CurrentSlot)
}

func TestBus_PublishNeverBlocks(t *testing.T) {
	bus := NewBus()

	sub := bus.SubscribeWithCapacity(2)
	defer sub.Unsubscribe()

	// Publish far beyond the backlog; the publisher must not block.
	for i := uint64(0); i < 100; i++ {
		bus.Publish(TypeSlotAdvanced, &SlotAdvanced{CurrentSlot: i})
	}

	// The newest events survive.
	event := <-sub.Channel()
	assert.Equal(t, uint64(98), event.Data.(*SlotAdvanced).CurrentSlot)
	event = <-sub.Channel()
	assert.Equal(t, uint64(99), event.Data.(*SlotAdvanced).CurrentSlot)
}

func TestBus_MultipleSubscribers(t *testing.T) {
	bus := NewBus()

	a := bus.Subscribe()
	b := bus.Subscribe()

	defer a.Unsubscribe()
	defer b.Unsubscribe()

	assert.Equal(t, 2, bus.SubscriberCount())

	bus.Publish(TypeMarketplaceStats, &MarketplaceStats{CurrentSlot: 7})

	assert.Equal(t, TypeMarketplaceStats, (<-a.Channel()).Type)
	assert.Equal(t, TypeMarketplaceStats, (<-b.Channel()).Type)
}
