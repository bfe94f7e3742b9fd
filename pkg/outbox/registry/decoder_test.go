package registry

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lucasbravon/swapstay-backend/pkg/enums"
	"github.com/lucasbravon/swapstay-backend/pkg/outbox/payloads"
)

func TestDecoderRegistryDecode(t *testing.T) {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventCompletionStatusChanged, 1, func(payload json.RawMessage) (interface{}, error) {
		var evt payloads.CompletionStatusChangedEvent
		if err := json.Unmarshal(payload, &evt); err != nil {
			return nil, err
		}
		return &evt, nil
	})

	decoded, err := reg.Decode(enums.EventCompletionStatusChanged, 1, json.RawMessage(`{"status":"completed"}`))
	require.NoError(t, err)

	evt, ok := decoded.(*payloads.CompletionStatusChangedEvent)
	require.True(t, ok)
	require.Equal(t, enums.CompletionAuditCompleted, evt.Status)

	_, err = reg.Decode(enums.EventCompletionStatusChanged, 2, json.RawMessage(`{}`))
	require.Error(t, err)
}
