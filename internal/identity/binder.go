// Package identity derives pseudonymous identities from client fingerprints
// and tracks which connection is bound to which identity.
package identity

import (
	"encoding/hex"
	"errors"
	"sync"
	"unicode/utf8"

	"golang.org/x/crypto/blake2b"
)

// Generation selects the fingerprint rules of a wire protocol.
type Generation int

const (
	// Current is the protocol spoken by up-to-date clients.
	Current Generation = iota
	// Legacy is the frozen protocol of older clients.
	Legacy
)

const (
	maxCurrentFingerprint = 100
	maxLegacyFingerprint  = 32

	identitySize = 16
)

var (
	// ErrAlreadyBound is returned when a connection binds a second time.
	ErrAlreadyBound = errors.New("fingerprint already set")
	// ErrInvalidFingerprint is returned for empty or oversized fingerprints.
	ErrInvalidFingerprint = errors.New("invalid fingerprint")
)

// Identity is the hex form of a keyed digest of a fingerprint.
type Identity string

// Binder binds connections to identities. A connection may bind exactly once;
// the same fingerprint always yields the same identity.
type Binder struct {
	key []byte

	mu    sync.RWMutex
	bound map[string]Identity
}

// NewBinder creates a binder whose identities are keyed by secret.
func NewBinder(secret string) *Binder {
	key := blake2b.Sum256([]byte(secret))
	return &Binder{
		key:   key[:],
		bound: make(map[string]Identity),
	}
}

// ValidateFingerprint checks fingerprint length rules for gen.
func ValidateFingerprint(fingerprint string, gen Generation) error {
	limit := maxCurrentFingerprint
	if gen == Legacy {
		limit = maxLegacyFingerprint
	}
	n := utf8.RuneCountInString(fingerprint)
	if n == 0 || n > limit {
		return ErrInvalidFingerprint
	}
	return nil
}

// Derive returns the identity for fingerprint.
func (b *Binder) Derive(fingerprint string) Identity {
	h, err := blake2b.New(identitySize, b.key)
	if err != nil {
		// key is always 32 bytes, which blake2b accepts.
		panic(err)
	}
	h.Write([]byte(fingerprint))
	return Identity(hex.EncodeToString(h.Sum(nil)))
}

// Bind validates fingerprint and binds its identity to connID.
// A second call for the same connID fails with ErrAlreadyBound and leaves the
// original binding intact.
func (b *Binder) Bind(connID, fingerprint string, gen Generation) (Identity, error) {
	if err := ValidateFingerprint(fingerprint, gen); err != nil {
		return "", err
	}

	id := b.Derive(fingerprint)

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.bound[connID]; ok {
		return "", ErrAlreadyBound
	}
	b.bound[connID] = id
	return id, nil
}

// BindIfAbsent binds fingerprint to connID unless connID is already bound.
// It returns the identity in effect and whether a new binding was made.
// Callers validate the fingerprint beforehand.
func (b *Binder) BindIfAbsent(connID, fingerprint string) (Identity, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if id, ok := b.bound[connID]; ok {
		return id, false
	}
	id := b.Derive(fingerprint)
	b.bound[connID] = id
	return id, true
}

// Lookup returns the identity bound to connID.
func (b *Binder) Lookup(connID string) (Identity, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	id, ok := b.bound[connID]
	return id, ok
}

// Release forgets connID. The identity itself stays derivable from its fingerprint.
func (b *Binder) Release(connID string) {
	b.mu.Lock()
	delete(b.bound, connID)
	b.mu.Unlock()
}
