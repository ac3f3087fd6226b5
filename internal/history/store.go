// Package history keeps a bounded window of recently accepted messages.
//
// Entries expire by age, and the permitted age depends on how full the store
// is: with n entries held out of a limit L, the oldest entry may be at most
// Expiry * GainFactor^(L-n) old. A nearly empty store therefore keeps history
// for a long time while a busy one turns over quickly. Independently of age,
// the store never holds more than L entries.
package history

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/vovakirdan/framecast-server/internal/chat"
)

// Config controls capacity and decay.
type Config struct {
	Limit      int           `mapstructure:"limit" yaml:"limit"`
	Expiry     time.Duration `mapstructure:"expiry" yaml:"expiry"`
	GainFactor float64       `mapstructure:"gain_factor" yaml:"gain_factor"`
}

var (
	ErrInvalidLimit      = errors.New("history limit must be at least 1")
	ErrInvalidExpiry     = errors.New("history expiry must be positive")
	ErrInvalidGainFactor = errors.New("history gain factor must be at least 1")
)

// Validate checks the config for values the decay table cannot handle.
func (c Config) Validate() error {
	switch {
	case c.Limit < 1:
		return ErrInvalidLimit
	case c.Expiry <= 0:
		return ErrInvalidExpiry
	case c.GainFactor < 1:
		return ErrInvalidGainFactor
	}
	return nil
}

// Store is an insertion-ordered, bounded history. It is safe for concurrent use.
type Store struct {
	cfg Config
	// expiry[n] is the permitted age of the oldest entry while n entries are held.
	expiry []time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries []chat.Entry
}

// New builds a store and precomputes its expiry table.
func New(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Store{
		cfg:     cfg,
		expiry:  expiryTable(cfg),
		now:     time.Now,
		entries: make([]chat.Entry, 0, cfg.Limit+1),
	}, nil
}

func expiryTable(cfg Config) []time.Duration {
	table := make([]time.Duration, cfg.Limit+1)
	for n := 1; n <= cfg.Limit; n++ {
		age := float64(cfg.Expiry) * math.Pow(cfg.GainFactor, float64(cfg.Limit-n))
		if age >= math.MaxInt64 {
			table[n] = time.Duration(math.MaxInt64)
			continue
		}
		table[n] = time.Duration(age)
	}
	return table
}

// ExpiryAt returns the permitted age of the oldest entry when n entries are held.
func (s *Store) ExpiryAt(n int) time.Duration {
	if n < 0 || n >= len(s.expiry) {
		return 0
	}
	return s.expiry[n]
}

// Append prunes expired entries, adds entry and enforces the capacity limit.
// It returns how many entries were evicted.
func (s *Store) Append(entry chat.Entry) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := s.prune(s.now())
	s.entries = append(s.entries, entry)
	if len(s.entries) > s.cfg.Limit {
		s.dropOldest()
		evicted++
	}
	return evicted
}

// Snapshot prunes expired entries and returns, oldest first, the entries that
// carry an artifact for encoding.
func (s *Store) Snapshot(encoding string) []chat.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prune(s.now())

	out := make([]chat.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if _, ok := e.Artifact(encoding); ok {
			out = append(out, e)
		}
	}
	return out
}

// Limit returns the capacity of the store.
func (s *Store) Limit() int {
	return s.cfg.Limit
}

// Len returns the number of entries currently held, without pruning.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// prune evicts from the front while the oldest entry is older than the expiry
// for the current length. Must be called with mu held.
func (s *Store) prune(now time.Time) int {
	evicted := 0
	for len(s.entries) > 0 && now.Sub(s.entries[0].Message.SentAt) > s.expiry[len(s.entries)] {
		s.dropOldest()
		evicted++
	}
	return evicted
}

func (s *Store) dropOldest() {
	s.entries[0] = chat.Entry{}
	s.entries = s.entries[1:]
}
