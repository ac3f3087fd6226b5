package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
	// Frames carries the raw JPEG frames of a current-protocol chat message.
	Frames [][]byte `json:"frames,omitempty"`
}

const (
	// Current protocol, client to hub.
	InboundTypeJoin        = "join"
	InboundTypeFingerprint = "fingerprint"
	InboundTypeChat        = "chat"

	// Legacy protocol, client to hub.
	InboundTypeLegacyMessage = "message"

	// Current protocol, hub to client.
	OutboundTypeUserID = "userid"
	OutboundTypeChat   = "chat"
	OutboundTypeAck    = "ack"
	OutboundTypeError  = "error"

	// Legacy protocol, hub to client.
	OutboundTypeLegacyMessage = "message"
	OutboundTypeLegacyAck     = "messageack"
)

// ChatData is the message part of a current-protocol chat submission.
type ChatData struct {
	Text   string          `json:"text"`
	Format string          `json:"format"`
	Ack    json.RawMessage `json:"ack"`
}

// LegacyMessageData is a legacy client submission. Media holds data URIs.
// Key may be a string or a number.
type LegacyMessageData struct {
	Key         json.RawMessage `json:"key"`
	Fingerprint string          `json:"fingerprint"`
	Message     string          `json:"message"`
	Media       []string        `json:"media"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string  `json:"type"`
	Data  any     `json:"data,omitempty"`
	Error *string `json:"error,omitempty"`
}

// ChatPacket is a message delivered to current-protocol subscribers.
type ChatPacket struct {
	Key       string `json:"key"`
	Text      string `json:"text"`
	Sent      int64  `json:"sent"`
	UserID    string `json:"userId"`
	From      string `json:"from"`
	Video     []byte `json:"video"`
	VideoType string `json:"videoType"`
	VideoMime string `json:"videoMime"`
}

// LegacyPacket is a message delivered to legacy subscribers.
type LegacyPacket struct {
	Key         string `json:"key"`
	Message     string `json:"message"`
	Created     int64  `json:"created"`
	Fingerprint string `json:"fingerprint"`
	Media       []byte `json:"media"`
}

// Ack answers a current-protocol chat submission.
type Ack struct {
	Key string `json:"key"`
	Err string `json:"err,omitempty"`
}

// LegacyAck answers a legacy submission; the error travels in Outbound.Error.
type LegacyAck struct {
	Key    string `json:"key"`
	UserID string `json:"userId,omitempty"`
}
