package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/molfrag/pkg/errors"
)

type resultPayload struct {
	RequestID string   `json:"request_id"`
	Fragments []string `json:"fragments"`
}

func TestEventEnvelope_RoundTrip(t *testing.T) {
	env, err := NewEventEnvelope(EventFragmentResult, "molfrag-worker", resultPayload{RequestID: "r1", Fragments: []string{"C[NH3+]", "CCC=O"}})
	require.NoError(t, err)
	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, "v1", env.SchemaVersion)

	msg, err := env.ToMessage("fragment.results", "r1")
	require.NoError(t, err)
	assert.Equal(t, "fragment.results", msg.Topic)
	assert.Equal(t, []byte("r1"), msg.Key)
	assert.Equal(t, EventFragmentResult, msg.Headers["event_type"])
	assert.Equal(t, "molfrag-worker", msg.Headers["source_service"])

	decoded, err := MessageToEventEnvelope(&Message{Value: msg.Value})
	require.NoError(t, err)
	assert.Equal(t, env.EventID, decoded.EventID)

	var payload resultPayload
	require.NoError(t, decoded.DecodePayload(&payload))
	assert.Equal(t, "r1", payload.RequestID)
	assert.Equal(t, []string{"C[NH3+]", "CCC=O"}, payload.Fragments)
}

func TestEventEnvelope_Errors(t *testing.T) {
	_, err := NewEventEnvelope(EventFragmentResult, "x", make(chan int))
	assert.True(t, errors.IsCode(err, errors.ErrCodeSerialization))

	_, err = MessageToEventEnvelope(&Message{})
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))

	_, err = MessageToEventEnvelope(&Message{Value: []byte("{")})
	assert.True(t, errors.IsCode(err, errors.ErrCodeSerialization))

	var out resultPayload
	assert.True(t, errors.IsCode((&EventEnvelope{}).DecodePayload(&out), errors.ErrCodeValidation))
}
