package bragerconnect

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeCall(t *testing.T) {
	data, err := encodeCall(7, "s_login", []any{"user", "pass", nil, nil, "bc_web"}, MessageFunctionExec)
	assert.NoError(t, err)

	var frame map[string]any
	assert.NoError(t, json.Unmarshal(data, &frame))
	assert.Equal(t, true, frame["wrkfnc"])
	assert.Equal(t, float64(MessageFunctionExec), frame["type"])
	assert.Equal(t, "s_login", frame["name"])
	assert.Equal(t, float64(7), frame["nr"])
	assert.Equal(t, []any{"user", "pass", nil, nil, "bc_web"}, frame["args"])
}

func TestEncodeCallWithoutArgs(t *testing.T) {
	data, err := encodeCall(0, "s_getActiveDevid", nil, MessageFunctionExec)
	assert.NoError(t, err)

	// The service wants an empty args array, not a missing key.
	var frame map[string]any
	assert.NoError(t, json.Unmarshal(data, &frame))
	assert.Equal(t, []any{}, frame["args"])
}

func TestDecodeEnvelopeResponse(t *testing.T) {
	env, err := decodeEnvelope([]byte(`{"wrkfnc":true,"type":12,"nr":3,"resp":1}`))
	assert.NoError(t, err)
	assert.Equal(t, MessageFunctionResp, env.Type)
	if assert.NotNil(t, env.ID) {
		assert.Equal(t, int64(3), *env.ID)
	}
	assert.True(t, replyEquals(env.Resp, "1"))
}

func TestDecodeEnvelopeRejectsForeignFrames(t *testing.T) {
	_, err := decodeEnvelope([]byte(`{"type":12,"nr":3}`))
	assert.Error(t, err)

	_, err = decodeEnvelope([]byte(`not json`))
	assert.Error(t, err)
}

func TestEmptyReply(t *testing.T) {
	assert.True(t, emptyReply(nil))
	assert.True(t, emptyReply(json.RawMessage(``)))
	assert.True(t, emptyReply(json.RawMessage(`null`)))
	assert.False(t, emptyReply(json.RawMessage(`0`)))
	assert.False(t, emptyReply(json.RawMessage(`""`)))
}

func TestReplyEquals(t *testing.T) {
	assert.True(t, replyEquals(json.RawMessage(`1`), "1"))
	assert.True(t, replyEquals(json.RawMessage(` 1 `), "1"))
	assert.False(t, replyEquals(json.RawMessage(`0`), "1"))
	assert.False(t, replyEquals(nil, "1"))
}
