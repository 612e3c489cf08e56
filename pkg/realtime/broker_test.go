package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerFiltersByCollection(t *testing.T) {
	b := NewBroker(4, nil)
	occ, cancelOcc := b.Subscribe(CollectionOccupancy)
	defer cancelOcc()
	all, cancelAll := b.Subscribe()
	defer cancelAll()

	b.Publish(Event{Collection: CollectionChat, Op: OpInsert})
	b.Publish(Event{Collection: CollectionOccupancy, Op: OpUpdate})

	select {
	case evt := <-occ:
		assert.Equal(t, CollectionOccupancy, evt.Collection)
		assert.False(t, evt.At.IsZero())
	case <-time.After(time.Second):
		t.Fatal("occupancy event not delivered")
	}
	assert.Len(t, occ, 0)
	assert.Len(t, all, 2)
}

func TestBrokerPublishNeverBlocks(t *testing.T) {
	b := NewBroker(1, nil)
	ch, cancel := b.Subscribe()
	defer cancel()

	for i := 0; i < 10; i++ {
		b.Publish(Event{Collection: CollectionChat, Op: OpInsert})
	}
	assert.Len(t, ch, 1)
}

func TestBrokerCancelAndClose(t *testing.T) {
	b := NewBroker(1, nil)
	ch, cancel := b.Subscribe()
	require.Equal(t, 1, b.Subscribers())

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, b.Subscribers())

	other, _ := b.Subscribe()
	b.Close()
	_, open = <-other
	assert.False(t, open)

	late, _ := b.Subscribe()
	_, open = <-late
	assert.False(t, open)
	b.Publish(Event{Collection: CollectionChat})
}
