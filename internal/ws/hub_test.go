package ws

import (
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishQueuesEncodedEvent(t *testing.T) {
	log, _ := test.NewNullLogger()
	hub := NewHub(log)

	hub.Publish(Event{Type: TypeStockUpdate, Action: "stock_in_recorded", Data: map[string]int{"stock": 5}})

	msg := <-hub.Broadcast
	var got map[string]any
	require.NoError(t, json.Unmarshal(msg, &got))
	assert.Equal(t, TypeStockUpdate, got["type"])
	assert.Equal(t, "stock_in_recorded", got["action"])
}

func TestHub_PublishDropsWhenQueueFull(t *testing.T) {
	log, hook := test.NewNullLogger()
	hub := NewHub(log)

	for i := 0; i < cap(hub.Broadcast)+1; i++ {
		hub.Publish(Event{Type: TypeSaleUpdate, Action: "sale_created"})
	}

	assert.Len(t, hub.Broadcast, cap(hub.Broadcast))
	require.NotNil(t, hook.LastEntry())
	assert.Contains(t, hook.LastEntry().Message, "dropping event")
}
