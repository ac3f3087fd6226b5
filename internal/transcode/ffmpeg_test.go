package transcode

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/framecast-server/internal/chat"
)

func testFrame(t *testing.T, w, h int, shade uint8) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = shade
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestFilmstripStacksFrames(t *testing.T) {
	frames := make([][]byte, chat.FrameCount)
	for i := range frames {
		frames[i] = testFrame(t, 16, 12, uint8(i*20))
	}

	strip, err := Filmstrip(frames)
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(strip))
	require.NoError(t, err)
	assert.Equal(t, 16, img.Bounds().Dx())
	assert.Equal(t, 12*chat.FrameCount, img.Bounds().Dy())

	// Last frame is the brightest; sample its center.
	bottom := color.GrayModel.Convert(img.At(8, 12*9+6)).(color.Gray)
	top := color.GrayModel.Convert(img.At(8, 6)).(color.Gray)
	assert.Greater(t, bottom.Y, top.Y)
}

func TestFilmstripRejectsGarbage(t *testing.T) {
	_, err := Filmstrip([][]byte{[]byte("not a jpeg")})
	assert.ErrorIs(t, err, ErrTranscode)
}

// withDeclaredSize rewrites the SOF0 header of a baseline JPEG.
func withDeclaredSize(t *testing.T, frame []byte, w, h uint16) []byte {
	t.Helper()
	out := append([]byte(nil), frame...)
	sof := bytes.Index(out, []byte{0xff, 0xc0})
	require.Positive(t, sof, "no SOF0 marker")
	// marker(2) length(2) precision(1) height(2) width(2)
	out[sof+5], out[sof+6] = byte(h>>8), byte(h)
	out[sof+7], out[sof+8] = byte(w>>8), byte(w)
	return out
}

func TestFilmstripRejectsOversizedFrames(t *testing.T) {
	small := testFrame(t, 8, 8, 10)

	huge := withDeclaredSize(t, small, 0xffff, 0xffff)
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(huge))
	require.NoError(t, err)
	require.Equal(t, 0xffff, cfg.Width)

	frames := [][]byte{small, huge}
	_, err = Filmstrip(frames)
	assert.ErrorIs(t, err, ErrTranscode)
	assert.Contains(t, err.Error(), "frame 1 is 65535x65535")

	_, err = Filmstrip([][]byte{testFrame(t, MaxFrameWidth+1, 2, 10)})
	assert.ErrorIs(t, err, ErrTranscode)

	_, err = Filmstrip([][]byte{testFrame(t, MaxFrameWidth, 4, 10)})
	assert.NoError(t, err)
}

func TestFFmpegRejectsWrongFormat(t *testing.T) {
	_, err := NewFFmpeg("").Convert(context.Background(), [][]byte{{1}}, "image/png")
	assert.ErrorIs(t, err, ErrTranscode)
}

func TestFFmpegMissingBinary(t *testing.T) {
	f := NewFFmpeg("/nonexistent/ffmpeg-binary")
	frames := [][]byte{testFrame(t, 8, 8, 10), testFrame(t, 8, 8, 200)}

	_, err := f.Convert(context.Background(), frames, chat.FrameFormat)
	assert.ErrorIs(t, err, ErrTranscode)
}

func TestFuncAdapter(t *testing.T) {
	var called bool
	tr := Func(func(_ context.Context, frames [][]byte, format string) (chat.Media, error) {
		called = true
		return chat.Media{chat.EncodingJPG: frames[0]}, nil
	})

	media, err := tr.Convert(context.Background(), [][]byte{[]byte("x")}, chat.FrameFormat)
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, []byte("x"), media[chat.EncodingJPG])
}
