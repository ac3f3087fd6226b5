package core

const (
	commandBuffer = 16
	eventBuffer   = 128
)

// Client is a connection as seen by the core layer.
type Client struct {
	ID   string
	Addr string

	Commands chan *Command
	Events   chan *Event
	Rooms    map[string]struct{}

	// done is closed by the hub when the client is unregistered.
	done chan struct{}
}

// NewClient constructs a client with initialized channels.
func NewClient(id, addr string) *Client {
	return newClient(id, addr, eventBuffer)
}

func newClient(id, addr string, events int) *Client {
	return &Client{
		ID:       id,
		Addr:     addr,
		Commands: make(chan *Command, commandBuffer),
		Events:   make(chan *Event, events),
		Rooms:    make(map[string]struct{}),
		done:     make(chan struct{}),
	}
}

// Done is closed once the hub has dropped the client.
func (c *Client) Done() <-chan struct{} {
	return c.done
}
