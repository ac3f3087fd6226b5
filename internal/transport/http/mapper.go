package http

import (
	"encoding/json"
	"strings"

	"github.com/vovakirdan/framecast-server/internal/core"
	"github.com/vovakirdan/framecast-server/internal/proto"
)

const errInvalidMessage = "invalid message"

// inboundToCommand maps a decoded envelope to a hub command. A non-empty
// string is a protocol error to report back to the client.
func inboundToCommand(inbound proto.Inbound) (*core.Command, string) {
	switch inbound.Type {
	case proto.InboundTypeJoin:
		var channel string
		if err := json.Unmarshal(inbound.Data, &channel); err != nil {
			return nil, errInvalidMessage
		}
		return &core.Command{Kind: core.CommandJoin, Channel: channel}, ""
	case proto.InboundTypeFingerprint:
		var fingerprint string
		if err := json.Unmarshal(inbound.Data, &fingerprint); err != nil {
			return nil, errInvalidMessage
		}
		return &core.Command{Kind: core.CommandFingerprint, Fingerprint: fingerprint}, ""
	case proto.InboundTypeChat:
		var msg proto.ChatData
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			return nil, errInvalidMessage
		}
		return &core.Command{
			Kind:   core.CommandChat,
			AckKey: ackKey(msg.Ack),
			Text:   msg.Text,
			Format: msg.Format,
			Frames: inbound.Frames,
		}, ""
	case proto.InboundTypeLegacyMessage:
		var msg proto.LegacyMessageData
		if err := json.Unmarshal(inbound.Data, &msg); err != nil {
			return nil, errInvalidMessage
		}
		return &core.Command{
			Kind:        core.CommandLegacyMessage,
			AckKey:      ackKey(msg.Key),
			Fingerprint: msg.Fingerprint,
			Text:        msg.Message,
			Media:       msg.Media,
		}, ""
	default:
		return nil, errInvalidMessage
	}
}

// ackKey accepts both string and numeric acknowledgement keys.
func ackKey(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	key := strings.TrimSpace(string(raw))
	if key == "null" {
		return ""
	}
	return key
}

// outboundFromEvent shapes a hub event for the wire. It reports false for
// events that produce no frame.
func outboundFromEvent(event *core.Event) (proto.Outbound, bool) {
	switch event.Kind {
	case core.EventUserID:
		return proto.Outbound{Type: proto.OutboundTypeUserID, Data: event.UserID}, true
	case core.EventChat:
		return proto.EncodeForSubscriber(event.Entry, event.Channel)
	case core.EventAck:
		if event.Ack == nil {
			return proto.Outbound{}, false
		}
		return proto.Outbound{
			Type: proto.OutboundTypeAck,
			Data: proto.Ack{Key: event.Ack.Key, Err: event.Ack.Err},
		}, true
	case core.EventLegacyAck:
		if event.Ack == nil {
			return proto.Outbound{}, false
		}
		out := proto.Outbound{
			Type: proto.OutboundTypeLegacyAck,
			Data: proto.LegacyAck{Key: event.Ack.Key, UserID: event.Ack.UserID},
		}
		if event.Ack.Err != "" {
			out.Error = proto.ErrorString(event.Ack.Err)
		}
		return out, true
	case core.EventError:
		return proto.Outbound{Type: proto.OutboundTypeError, Error: proto.ErrorString(event.Error)}, true
	default:
		return proto.Outbound{}, false
	}
}
