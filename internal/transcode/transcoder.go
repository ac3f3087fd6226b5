// Package transcode turns a sequence of still frames into the media artifacts
// delivered to each channel.
package transcode

import (
	"context"
	"errors"

	"github.com/vovakirdan/framecast-server/internal/chat"
)

// ErrTranscode wraps every conversion failure.
var ErrTranscode = errors.New("transcode failed")

// Transcoder converts frames of sourceFormat into one artifact per supported encoding.
type Transcoder interface {
	Convert(ctx context.Context, frames [][]byte, sourceFormat string) (chat.Media, error)
}

// Func adapts a function to Transcoder.
type Func func(ctx context.Context, frames [][]byte, sourceFormat string) (chat.Media, error)

// Convert calls f.
func (f Func) Convert(ctx context.Context, frames [][]byte, sourceFormat string) (chat.Media, error) {
	return f(ctx, frames, sourceFormat)
}
