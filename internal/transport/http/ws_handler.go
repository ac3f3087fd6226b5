package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	stdhttp "net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/framecast-server/internal/core"
	"github.com/vovakirdan/framecast-server/internal/proto"
)

// Hub is the part of core.Hub the transport drives.
type Hub interface {
	Admit(ctx context.Context, addr string) error
	NewClient(id, addr string) *core.Client
	RegisterClient(c *core.Client)
	UnregisterClient(c *core.Client)
}

var errClosedByServer = errors.New("connection closed by server")

// WSHandler upgrades HTTP connections and bridges them to core.Client.
type WSHandler struct {
	hub             Hub
	maxMessageBytes int64
	log             *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(hub Hub, maxMessageBytes int64, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{hub: hub, maxMessageBytes: maxMessageBytes, log: logger}
}

// RealIP returns the first X-Forwarded-For entry, or the remote host.
func RealIP(r *stdhttp.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	addr := RealIP(r)
	if err := h.hub.Admit(r.Context(), addr); err != nil {
		stdhttp.Error(w, err.Error(), stdhttp.StatusTooManyRequests)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Str("addr", addr).Msg("ws accept error")
		return
	}
	defer conn.CloseNow()
	if h.maxMessageBytes > 0 {
		conn.SetReadLimit(h.maxMessageBytes)
	}

	client := h.hub.NewClient(uuid.NewString(), addr)
	h.hub.RegisterClient(client)
	defer h.hub.UnregisterClient(client)
	h.log.Debug().Str("client_id", client.ID).Str("addr", addr).Msg("ws connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	switch {
	case errors.Is(err, errClosedByServer):
		status = websocket.StatusPolicyViolation
		reason = "invalid fingerprint"
	case err == nil, errors.Is(err, context.Canceled), errors.Is(err, io.EOF):
	default:
		if s := websocket.CloseStatus(err); s != websocket.StatusNormalClosure && s != websocket.StatusGoingAway {
			status = websocket.StatusInternalError
			reason = "internal error"
			h.log.Warn().Err(err).Str("client_id", client.ID).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		_, payload, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		var (
			inbound  proto.Inbound
			cmd      *core.Command
			protoErr = errInvalidMessage
		)
		if err := json.Unmarshal(payload, &inbound); err == nil {
			cmd, protoErr = inboundToCommand(inbound)
		}
		if protoErr != "" {
			h.log.Debug().Str("client_id", client.ID).Str("type", inbound.Type).Msg("rejected inbound message")
			if err := wsjson.Write(ctx, conn, proto.Outbound{
				Type:  proto.OutboundTypeError,
				Error: proto.ErrorString(protoErr),
			}); err != nil {
				return err
			}
			continue
		}

		select {
		case client.Commands <- cmd:
		case <-client.Done():
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client) error {
	for {
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			if event.Kind == core.EventClose {
				return errClosedByServer
			}
			out, ok := outboundFromEvent(event)
			if !ok {
				continue
			}
			if err := wsjson.Write(ctx, conn, out); err != nil {
				h.log.Error().Err(err).Str("client_id", client.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
