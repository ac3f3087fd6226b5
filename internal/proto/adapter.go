package proto

import "github.com/vovakirdan/framecast-server/internal/chat"

// EncodeForSubscriber shapes entry for a subscriber of the encoding channel.
// Legacy subscribers get the legacy field names and event type. It reports
// false for unknown encodings or when entry has no artifact for encoding.
func EncodeForSubscriber(entry chat.Entry, encoding string) (Outbound, bool) {
	mime, ok := chat.MimeType(encoding)
	if !ok {
		return Outbound{}, false
	}
	media, ok := entry.Artifact(encoding)
	if !ok {
		return Outbound{}, false
	}

	msg := entry.Message
	if chat.IsLegacy(encoding) {
		return Outbound{
			Type: OutboundTypeLegacyMessage,
			Data: LegacyPacket{
				Key:         msg.Key,
				Message:     msg.Text,
				Created:     msg.SentAt.UnixMilli(),
				Fingerprint: msg.Author,
				Media:       media,
			},
		}, true
	}

	return Outbound{
		Type: OutboundTypeChat,
		Data: ChatPacket{
			Key:       msg.Key,
			Text:      msg.Text,
			Sent:      msg.SentAt.UnixMilli(),
			UserID:    msg.Author,
			From:      chat.Origin,
			Video:     media,
			VideoType: encoding,
			VideoMime: mime,
		},
	}, true
}

// ErrorString returns a pointer for Outbound.Error.
func ErrorString(msg string) *string {
	return &msg
}
