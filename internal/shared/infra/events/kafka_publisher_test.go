package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sharedEvents "github.com/davicafu/postlab/internal/shared/events"
)

func TestToMessage_IntegrationEvent(t *testing.T) {
	evt := sharedEvents.IntegrationEvent{
		ID:        "e1",
		Type:      "post.created",
		Key:       "42",
		Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Data:      json.RawMessage(`{"id":42}`),
	}

	msg, err := toMessage(evt)
	require.NoError(t, err)
	assert.Equal(t, []byte("42"), msg.Key)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, eventTypeHeader, msg.Headers[0].Key)
	assert.Equal(t, "post.created", string(msg.Headers[0].Value))

	var decoded sharedEvents.IntegrationEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, evt.ID, decoded.ID)
	assert.JSONEq(t, `{"id":42}`, string(decoded.Data))
}

func TestToMessage_PlainValue(t *testing.T) {
	msg, err := toMessage(map[string]int{"n": 1})
	require.NoError(t, err)
	assert.Nil(t, msg.Key)
	assert.Empty(t, msg.Headers)

	_, err = toMessage(make(chan int))
	assert.Error(t, err)
}
