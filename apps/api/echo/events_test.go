package echoapi

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/msusndrotcunit-boop/MSU-SND-RGMS-sub000/core"
)

func TestBroadcaster(t *testing.T) {
	b := NewBroadcaster()

	// emitting with no subscribers must not block
	b.Emit(core.Event{Type: core.EventGradeUpdated})

	ch1 := b.subscribe()
	ch2 := b.subscribe()

	evt := core.Event{Type: core.EventLedgerEntryAdded, CadetID: "cadet-1"}
	b.Emit(evt)
	assert.Equal(t, evt, <-ch1)
	assert.Equal(t, evt, <-ch2)

	b.unsubscribe(ch2)
	b.Emit(evt)
	assert.Equal(t, evt, <-ch1)
	if _, ok := <-ch2; ok {
		t.Error("unsubscribed channel should be closed and drained")
	}

	// a full subscriber buffer drops events instead of blocking
	for i := 0; i < 32; i++ {
		b.Emit(evt)
	}
	b.unsubscribe(ch1)
}
