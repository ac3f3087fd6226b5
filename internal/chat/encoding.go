package chat

// Encoding names double as channel names.
const (
	EncodingJPG = "jpg"
	EncodingMP4 = "mp4"

	// LegacyEncoding is delivered in the legacy packet shape.
	LegacyEncoding = EncodingMP4

	// FrameFormat is the only frame MIME type accepted from clients.
	FrameFormat = "image/jpeg"

	// FrameCount is the number of frames every submission must carry.
	FrameCount = 10
)

var mimeTypes = map[string]string{
	EncodingJPG: "image/jpeg",
	EncodingMP4: "video/mp4",
}

// MimeType returns the declared MIME type for an encoding.
func MimeType(encoding string) (string, bool) {
	mime, ok := mimeTypes[encoding]
	return mime, ok
}

// Supported reports whether encoding is a channel clients may join.
func Supported(encoding string) bool {
	_, ok := mimeTypes[encoding]
	return ok
}

// IsLegacy reports whether subscribers of encoding speak the legacy protocol.
func IsLegacy(encoding string) bool {
	return encoding == LegacyEncoding
}

// Encodings lists every supported encoding in a stable order.
func Encodings() []string {
	return []string{EncodingJPG, EncodingMP4}
}
