package s3i

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// NewMessageID generates a unique S3I message identifier, "s3i:{uuid}".
func NewMessageID() string {
	return "s3i:" + uuid.NewString()
}

// Envelope wraps a raw broker payload and peeks at the common S3I
// message fields without committing to a full schema. Message
// interpretation is the caller's business; the Envelope only exposes
// what routing and storage need.
type Envelope struct {
	raw json.RawMessage
}

// NewEnvelope wraps a raw payload as received from the broker.
func NewEnvelope(raw json.RawMessage) Envelope {
	return Envelope{raw: raw}
}

// Identifier returns the message's "identifier" field, or "".
func (e Envelope) Identifier() string {
	return gjson.GetBytes(e.raw, "identifier").Str
}

// Sender returns the message's "sender" field, or "".
func (e Envelope) Sender() string {
	return gjson.GetBytes(e.raw, "sender").Str
}

// MessageType returns the message's "messageType" field, or "".
func (e Envelope) MessageType() string {
	return gjson.GetBytes(e.raw, "messageType").Str
}

// ReplyToEndpoint returns the endpoint a response should be sent to, or "".
func (e Envelope) ReplyToEndpoint() string {
	return gjson.GetBytes(e.raw, "replyToEndpoint").Str
}

// Empty reports whether the payload carries no message: a missing body,
// an empty JSON object or an empty array. The broker answers with an
// empty object when a queue has nothing to deliver.
func (e Envelope) Empty() bool {
	if len(e.raw) == 0 {
		return true
	}

	res := gjson.ParseBytes(e.raw)
	if res.IsObject() && len(res.Map()) == 0 {
		return true
	}

	if res.IsArray() && len(res.Array()) == 0 {
		return true
	}

	return false
}

// Raw returns the underlying payload bytes.
func (e Envelope) Raw() json.RawMessage { return e.raw }
