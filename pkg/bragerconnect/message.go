package bragerconnect

import (
	"bytes"
	"encoding/json"
	"errors"
)

// MessageType discriminates wrkfnc envelopes on the wire.
type MessageType int

const (
	MessageProcedureExec MessageType = 1
	MessageFunctionExec  MessageType = 2
	MessageReadySignal   MessageType = 10
	MessageFunctionResp  MessageType = 12
	MessageException     MessageType = 20
	MessagePortMessage   MessageType = 21
)

// envelope is the flat wrkfnc JSON message. Outbound calls carry name/args,
// inbound responses carry resp. A missing "nr" marks a server-initiated
// request rather than a response.
type envelope struct {
	WrkFnc bool            `json:"wrkfnc"`
	Type   MessageType     `json:"type"`
	Name   string          `json:"name,omitempty"`
	ID     *int64          `json:"nr,omitempty"`
	Args   []any           `json:"args,omitempty"`
	Resp   json.RawMessage `json:"resp,omitempty"`
}

func encodeCall(id int64, name string, args []any, msgType MessageType) ([]byte, error) {
	if args == nil {
		args = []any{}
	}
	return json.Marshal(map[string]any{
		"wrkfnc": true,
		"type":   msgType,
		"name":   name,
		"nr":     id,
		"args":   args,
	})
}

func decodeEnvelope(data []byte) (*envelope, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	if !env.WrkFnc {
		return nil, errors.New("message is not a wrkfnc envelope")
	}
	return &env, nil
}

// emptyReply reports whether a response carries no payload. The service
// signals success of some calls (s_setUserVariable) this way.
func emptyReply(resp json.RawMessage) bool {
	trimmed := bytes.TrimSpace(resp)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func replyEquals(resp json.RawMessage, literal string) bool {
	return bytes.Equal(bytes.TrimSpace(resp), []byte(literal))
}
