package core

import "github.com/vovakirdan/framecast-server/internal/chat"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventUserID delivers the identity bound to the connection.
	EventUserID EventKind = iota
	// EventChat delivers a history entry for one channel.
	EventChat
	// EventAck answers a current-protocol submission.
	EventAck
	// EventLegacyAck answers a legacy submission.
	EventLegacyAck
	// EventError notifies the client about a protocol error.
	EventError
	// EventClose asks the transport to drop the connection.
	EventClose
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind    EventKind
	Channel string
	Entry   chat.Entry
	UserID  string
	Ack     *Ack
	Error   string
}

// Ack is the outcome of a submission. Err is empty on success.
type Ack struct {
	Key    string
	UserID string
	Err    string
}
