package chat

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Origin tags every message produced by this hub.
const Origin = "framecast"

// Message is an accepted chat message. It is never mutated after creation.
type Message struct {
	Key    string
	Text   string
	SentAt time.Time
	Author string
}

// Media maps an encoding name to the artifact produced for it.
type Media map[string][]byte

// Entry is one accepted message together with its transcoded artifacts.
type Entry struct {
	Message Message
	Media   Media
}

// NewMessage builds a message authored by identity with sanitized, linkified text.
func NewMessage(author, text string, sentAt time.Time) Message {
	return Message{
		Key:    ulid.Make().String(),
		Text:   TransformText(text),
		SentAt: sentAt,
		Author: author,
	}
}

// Artifact returns the media for encoding, if the transcoder produced one.
func (e Entry) Artifact(encoding string) ([]byte, bool) {
	data, ok := e.Media[encoding]
	return data, ok
}
