// Package archive stores accepted media outside the in-memory history.
// Archival is best effort: callers never wait on it and failures are only logged.
package archive

import (
	"context"
	"errors"
	"time"

	"github.com/vovakirdan/framecast-server/internal/chat"
)

// ErrNotFound is returned when an archived item does not exist.
var ErrNotFound = errors.New("archived item not found")

// Metadata describes the item being archived.
type Metadata struct {
	Name string
}

// Archived is one stored item as listed by the read surface.
type Archived struct {
	Name      string
	URL       string
	Size      int
	CreatedAt time.Time
}

// Archiver persists media artifacts.
type Archiver interface {
	// Archive stores media under meta.Name.
	Archive(ctx context.Context, meta Metadata, media chat.Media) error

	// List returns archived items, newest first.
	List(ctx context.Context) ([]Archived, error)

	// Get returns the stored bytes of an archived item.
	Get(ctx context.Context, name string) ([]byte, error)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Archive(context.Context, Metadata, chat.Media) error { return nil }

func (Nop) List(context.Context) ([]Archived, error) { return nil, nil }

func (Nop) Get(context.Context, string) ([]byte, error) { return nil, ErrNotFound }
