package server

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessageRoundTrip(t *testing.T) {
	t.Parallel()

	msg, err := NewMessage(MessageTypeAction, ActionData{Action: "raise", Amount: 60})
	require.NoError(t, err)

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded Message
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, MessageTypeAction, decoded.Type)

	var action ActionData
	require.NoError(t, json.Unmarshal(decoded.Data, &action))
	assert.Equal(t, "raise", action.Action)
	assert.Equal(t, 60, action.Amount)
}

func TestNewMessageError(t *testing.T) {
	t.Parallel()

	msg, err := NewMessage(MessageTypeError, ErrorData{Code: "action_rejected", Message: "minimum raise is 70"})
	require.NoError(t, err)

	var payload ErrorData
	require.NoError(t, json.Unmarshal(msg.Data, &payload))
	assert.Equal(t, "action_rejected", payload.Code)
}
