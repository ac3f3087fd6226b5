package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/framecast-server/internal/chat"
	"github.com/vovakirdan/framecast-server/internal/proto"
)

type outboundFrame struct {
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
	Error *string         `json:"error"`
}

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	fingerprint := flag.String("fingerprint", "smoke-test", "fingerprint to bind with")
	channel := flag.String("channel", chat.EncodingJPG, "channel to join")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 30*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")
	conn.SetReadLimit(32 << 20)

	send := func(typ string, data any, frames [][]byte) error {
		payload, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", typ, err)
		}
		if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload, Frames: frames}); err != nil {
			return fmt.Errorf("send %s: %w", typ, err)
		}
		return nil
	}

	frames, err := testFrames(chat.FrameCount)
	if err != nil {
		return err
	}

	if err := send(proto.InboundTypeFingerprint, *fingerprint, nil); err != nil {
		return err
	}
	if err := send(proto.InboundTypeJoin, *channel, nil); err != nil {
		return err
	}
	if err := send(proto.InboundTypeChat, proto.ChatData{
		Text:   *text,
		Format: chat.FrameFormat,
		Ack:    json.RawMessage(`"smoke-1"`),
	}, frames); err != nil {
		return err
	}

	for {
		var out outboundFrame
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			return fmt.Errorf("read: %w", err)
		}

		fmt.Printf("Received outbound: type=%s\n", out.Type)
		if out.Error != nil {
			fmt.Printf("Error: %s\n", *out.Error)
		}

		switch out.Type {
		case proto.OutboundTypeUserID:
			fmt.Printf("UserID: %s\n", string(out.Data))
		case proto.OutboundTypeAck:
			var ack proto.Ack
			if err := json.Unmarshal(out.Data, &ack); err != nil {
				return fmt.Errorf("unmarshal ack: %w", err)
			}
			if ack.Err != "" {
				return fmt.Errorf("message rejected: %s", ack.Err)
			}
			fmt.Printf("Ack: key=%s\n", ack.Key)
		case proto.OutboundTypeChat:
			var pkt proto.ChatPacket
			if err := json.Unmarshal(out.Data, &pkt); err != nil {
				return fmt.Errorf("unmarshal chat: %w", err)
			}
			fmt.Printf("Chat: key=%s user=%s text=%q %s bytes=%d\n",
				pkt.Key, pkt.UserID, pkt.Text, pkt.VideoMime, len(pkt.Video))
			return nil
		case proto.OutboundTypeLegacyMessage:
			var pkt proto.LegacyPacket
			if err := json.Unmarshal(out.Data, &pkt); err != nil {
				return fmt.Errorf("unmarshal message: %w", err)
			}
			fmt.Printf("Message: key=%s fingerprint=%s bytes=%d\n", pkt.Key, pkt.Fingerprint, len(pkt.Media))
			return nil
		case proto.OutboundTypeError:
			return fmt.Errorf("server error")
		}
	}
}

// testFrames renders n solid JPEG frames with shifting colors.
func testFrames(n int) ([][]byte, error) {
	frames := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		img := image.NewRGBA(image.Rect(0, 0, 200, 150))
		fill := color.RGBA{R: uint8(i * 25), G: 80, B: uint8(255 - i*25), A: 255}
		draw.Draw(img, img.Bounds(), &image.Uniform{C: fill}, image.Point{}, draw.Src)

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
			return nil, fmt.Errorf("encode frame %d: %w", i, err)
		}
		frames = append(frames, buf.Bytes())
	}
	return frames, nil
}
