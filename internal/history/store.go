// Package history persists the conversation log shown in the chat UI.
package history

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Roles recorded in the log.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ErrStoreClosed is returned by operations on a closed store.
var ErrStoreClosed = errors.New("history: store closed")

// Entry is a single conversation turn.
type Entry struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// Time returns the entry timestamp as time.Time.
func (e Entry) Time() time.Time {
	return time.Unix(e.Timestamp, 0)
}

// Store is the JSON-file-backed conversation log. The whole document is
// loaded on open and rewritten on every append, matching the flat file
// the chat UI watches.
type Store struct {
	mu      sync.RWMutex
	path    string
	entries []Entry
	ids     map[string]struct{}

	subscribers []chan Entry
	closed      bool
}

// Open loads the history document at path, creating an empty store when
// the file does not exist yet.
func Open(path string) (*Store, error) {
	s := &Store{
		path: path,
		ids:  make(map[string]struct{}),
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &s.entries); err != nil {
			return nil, fmt.Errorf("history: parse %s: %w", path, err)
		}
		for _, e := range s.entries {
			s.ids[e.ID] = struct{}{}
		}
	case os.IsNotExist(err):
		// fresh log
	default:
		return nil, fmt.Errorf("history: read %s: %w", path, err)
	}

	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Append records a new turn and rewrites the document.
func (s *Store) Append(role, content string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Entry{}, ErrStoreClosed
	}

	e := Entry{
		ID:        ulid.MustNew(ulid.Now(), rand.Reader).String(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().Unix(),
	}

	s.entries = append(s.entries, e)
	s.ids[e.ID] = struct{}{}

	if err := s.saveLocked(); err != nil {
		return Entry{}, err
	}

	for _, ch := range s.subscribers {
		select {
		case ch <- e:
		default: // slow subscriber, drop
		}
	}

	return e, nil
}

// All returns a copy of every entry in append order.
func (s *Store) All() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Tail returns the last n entries (all of them when n <= 0 or larger
// than the log).
func (s *Store) Tail(n int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || n > len(s.entries) {
		n = len(s.entries)
	}
	out := make([]Entry, n)
	copy(out, s.entries[len(s.entries)-n:])
	return out
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Clear empties the log and rewrites the document.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	s.entries = nil
	s.ids = make(map[string]struct{})
	return s.saveLocked()
}

// Reload re-reads the document from disk, picking up entries written by
// another process.
func (s *Store) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.entries = nil
		s.ids = make(map[string]struct{})
		return nil
	}
	if err != nil {
		return fmt.Errorf("history: read %s: %w", s.path, err)
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("history: parse %s: %w", s.path, err)
	}

	s.entries = entries
	s.ids = make(map[string]struct{}, len(entries))
	for _, e := range entries {
		s.ids[e.ID] = struct{}{}
	}
	return nil
}

// Subscribe returns a channel receiving every appended entry.
func (s *Store) Subscribe() <-chan Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Entry, 16)
	s.subscribers = append(s.subscribers, ch)
	return ch
}

// Close stops the store; further writes fail with ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	for _, ch := range s.subscribers {
		close(ch)
	}
	s.subscribers = nil
	return nil
}

// saveLocked rewrites the whole document atomically. Callers hold mu.
func (s *Store) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("history: mkdir: %w", err)
	}

	entries := s.entries
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("history: marshal: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("history: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("history: rename: %w", err)
	}
	return nil
}
