package transcode

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/vovakirdan/framecast-server/internal/chat"
)

const (
	filmstripQuality = 85
	frameRate        = "10"

	// MaxFrameWidth and MaxFrameHeight bound a single input frame.
	MaxFrameWidth  = 1920
	MaxFrameHeight = 1920
)

// FFmpeg produces a vertical JPEG filmstrip for the jpg channel and an H.264
// MP4 for the mp4 channel using the ffmpeg binary.
type FFmpeg struct {
	Path string
}

// NewFFmpeg returns a transcoder running the ffmpeg binary at path.
func NewFFmpeg(path string) *FFmpeg {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpeg{Path: path}
}

// Convert builds both artifacts. Any failure is wrapped in ErrTranscode.
func (f *FFmpeg) Convert(ctx context.Context, frames [][]byte, sourceFormat string) (chat.Media, error) {
	if sourceFormat != chat.FrameFormat {
		return nil, fmt.Errorf("%w: unsupported source format %q", ErrTranscode, sourceFormat)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: no frames", ErrTranscode)
	}

	strip, err := Filmstrip(frames)
	if err != nil {
		return nil, err
	}

	video, err := f.encodeMP4(ctx, frames)
	if err != nil {
		return nil, err
	}

	return chat.Media{
		chat.EncodingJPG: strip,
		chat.EncodingMP4: video,
	}, nil
}

func (f *FFmpeg) encodeMP4(ctx context.Context, frames [][]byte) ([]byte, error) {
	dir, err := os.MkdirTemp("", "framecast-*")
	if err != nil {
		return nil, fmt.Errorf("%w: temp dir: %v", ErrTranscode, err)
	}
	defer os.RemoveAll(dir)

	for i, frame := range frames {
		name := filepath.Join(dir, fmt.Sprintf("frame%02d.jpg", i))
		if err := os.WriteFile(name, frame, 0o600); err != nil {
			return nil, fmt.Errorf("%w: write frame: %v", ErrTranscode, err)
		}
	}

	out := filepath.Join(dir, "out.mp4")
	cmd := exec.CommandContext(ctx, f.Path,
		"-y", "-loglevel", "error",
		"-framerate", frameRate,
		"-i", filepath.Join(dir, "frame%02d.jpg"),
		"-vf", "scale=trunc(iw/2)*2:trunc(ih/2)*2",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		out,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: ffmpeg: %v: %s", ErrTranscode, err, bytes.TrimSpace(stderr.Bytes()))
	}

	video, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("%w: read output: %v", ErrTranscode, err)
	}
	return video, nil
}

// Filmstrip stacks JPEG frames vertically into one JPEG. All frames take the
// size of the first one. Frames over MaxFrameWidth x MaxFrameHeight are
// rejected from their header, before any pixels are decoded.
func Filmstrip(frames [][]byte) ([]byte, error) {
	for i, frame := range frames {
		cfg, err := jpeg.DecodeConfig(bytes.NewReader(frame))
		if err != nil {
			return nil, fmt.Errorf("%w: decode frame %d: %v", ErrTranscode, i, err)
		}
		if cfg.Width < 1 || cfg.Height < 1 || cfg.Width > MaxFrameWidth || cfg.Height > MaxFrameHeight {
			return nil, fmt.Errorf("%w: frame %d is %dx%d, max %dx%d",
				ErrTranscode, i, cfg.Width, cfg.Height, MaxFrameWidth, MaxFrameHeight)
		}
	}

	decoded := make([]image.Image, 0, len(frames))
	for i, frame := range frames {
		img, err := jpeg.Decode(bytes.NewReader(frame))
		if err != nil {
			return nil, fmt.Errorf("%w: decode frame %d: %v", ErrTranscode, i, err)
		}
		decoded = append(decoded, img)
	}

	bounds := decoded[0].Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	strip := image.NewRGBA(image.Rect(0, 0, w, h*len(decoded)))
	for i, img := range decoded {
		dst := image.Rect(0, i*h, w, (i+1)*h)
		draw.Draw(strip, dst, img, img.Bounds().Min, draw.Src)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, strip, &jpeg.Options{Quality: filmstripQuality}); err != nil {
		return nil, fmt.Errorf("%w: encode filmstrip: %v", ErrTranscode, err)
	}
	return buf.Bytes(), nil
}

var _ Transcoder = (*FFmpeg)(nil)
