package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishFanOut(t *testing.T) {
	h := NewHub()
	a := h.Subscribe()
	b := h.Subscribe()
	defer h.Unsubscribe(a)
	defer h.Unsubscribe(b)

	h.Emit(TypePostCreated, map[string]any{"id": "p1"})

	for _, ch := range []chan string{a, b} {
		msg := <-ch
		var evt Event
		require.NoError(t, json.Unmarshal([]byte(msg), &evt))
		assert.Equal(t, TypePostCreated, evt.Type)
		assert.Equal(t, 1, evt.Version)
		assert.JSONEq(t, `{"id":"p1"}`, string(evt.Data))
	}
}

func TestHub_DropsWhenSubscriberIsSlow(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	defer h.Unsubscribe(ch)

	for i := 0; i < 100; i++ {
		h.Publish(`{"type":"ping"}`)
	}
	assert.Len(t, ch, cap(ch))
}

func TestHub_UnsubscribeTwiceIsSafe(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	h.Unsubscribe(ch)
	h.Unsubscribe(ch)
	assert.Equal(t, 0, h.Subscribers())

	var nilHub *Hub
	nilHub.Publish("x")
}
