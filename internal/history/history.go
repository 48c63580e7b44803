// Package history keeps the most recent finalized transcripts, newest first.
package history

import (
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Capacity is the maximum number of items kept.
const Capacity = 50

// Item is one finalized transcript.
type Item struct {
	Text      string
	CreatedAt time.Time
}

// Journal persists items across restarts. Journal failures never fail the
// in-memory store; they are logged.
type Journal interface {
	Append(item Item) error
	Clear() error
	// Recent returns up to n items, newest first.
	Recent(n int) ([]Item, error)
}

// Store is a bounded, newest-first list of transcripts. It is safe for
// concurrent use; List returns a copy.
type Store struct {
	mu      sync.RWMutex
	items   []Item
	journal Journal
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithJournal mirrors every change into j.
func WithJournal(j Journal) Option {
	return func(s *Store) { s.journal = j }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		items: make([]Item, 0, Capacity),
		now:   time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Load replaces the store's contents with the journal's newest items.
func (s *Store) Load() error {
	if s.journal == nil {
		return nil
	}
	items, err := s.journal.Recent(Capacity)
	if err != nil {
		return err
	}
	if len(items) > Capacity {
		items = items[:Capacity]
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items[:0], items...)
	return nil
}

// Add inserts text at the front, evicting the oldest item when full. Blank
// text is ignored. Add reports whether an item was inserted.
func (s *Store) Add(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	item := Item{Text: text, CreatedAt: s.now()}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == Capacity {
		s.items = s.items[:Capacity-1]
	}
	s.items = append(s.items, Item{})
	copy(s.items[1:], s.items)
	s.items[0] = item

	// The journal is written under the lock so its order matches memory.
	if s.journal != nil {
		if err := s.journal.Append(item); err != nil {
			slog.Warn("history: journal append failed", "error", err)
		}
	}
	return true
}

// List returns a snapshot of the items, newest first.
func (s *Store) List() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of items.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Clear removes every item.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = s.items[:0]
	if s.journal != nil {
		if err := s.journal.Clear(); err != nil {
			slog.Warn("history: journal clear failed", "error", err)
		}
	}
}
