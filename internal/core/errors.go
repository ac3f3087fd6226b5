package core

import "errors"

var (
	// ErrAdmissionRejected refuses a connection over the connection rate limit.
	ErrAdmissionRejected = errors.New("exceeded connection limit")

	ErrNoFingerprint      = errors.New("no fingerprint set")
	ErrInvalidMessage     = errors.New("invalid message")
	ErrRateLimited        = errors.New("exceeded message limit")
	ErrInvalidFrames      = errors.New("invalid frames")
	ErrInvalidFrameFormat = errors.New("invalid frame format")
	ErrConversion         = errors.New("unable to convert frames")
)

// Legacy clients expect their own wording.
var legacyMessages = map[error]string{
	ErrRateLimited:        "Exceeded message limit",
	ErrInvalidFrames:      "Invalid message: invalid media",
	ErrInvalidFrameFormat: "Invalid message: media must be of type image/jpeg",
	ErrConversion:         "Unable to convert frames",
}

const legacyInvalidFingerprint = "Invalid fingerprint"

func ackMessage(err error, legacy bool) string {
	if legacy {
		if msg, ok := legacyMessages[err]; ok {
			return msg
		}
	}
	return err.Error()
}

// rejectReason labels rejection metrics.
func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrInvalidFrames), errors.Is(err, ErrInvalidFrameFormat):
		return "invalid"
	case errors.Is(err, ErrConversion):
		return "transcode"
	default:
		return "other"
	}
}
