package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandFingerprint binds the connection to the identity of a fingerprint.
	CommandFingerprint CommandKind = iota
	// CommandJoin subscribes the client to an encoding channel.
	CommandJoin
	// CommandChat submits a message with raw frames (current protocol).
	CommandChat
	// CommandLegacyMessage submits a message with data-URI frames (legacy protocol).
	CommandLegacyMessage
)

// Command represents an action requested by a client.
type Command struct {
	Kind        CommandKind
	Channel     string
	Fingerprint string

	// Submission fields.
	AckKey string
	Text   string
	Format string
	Frames [][]byte
	Media  []string
}
