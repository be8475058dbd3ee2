package knowledge

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrNotFound is returned when a record id is absent from the store.
var ErrNotFound = errors.New("knowledge: not found")

// document is the on-disk shape: one flat JSON file keyed by id.
type document struct {
	Videos    map[string]Video    `json:"videos"`
	Playlists map[string]Playlist `json:"playlists"`
}

// Store is the JSON-file-backed metadata store. The document is loaded
// wholesale on open and rewritten wholesale on every mutation.
type Store struct {
	mu   sync.RWMutex
	path string
	doc  document
}

// Open loads the knowledge document at path, starting empty when the
// file does not exist.
func Open(path string) (*Store, error) {
	s := &Store{
		path: path,
		doc: document{
			Videos:    make(map[string]Video),
			Playlists: make(map[string]Playlist),
		},
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &s.doc); err != nil {
			return nil, fmt.Errorf("knowledge: parse %s: %w", path, err)
		}
		if s.doc.Videos == nil {
			s.doc.Videos = make(map[string]Video)
		}
		if s.doc.Playlists == nil {
			s.doc.Playlists = make(map[string]Playlist)
		}
	case os.IsNotExist(err):
		// fresh store
	default:
		return nil, fmt.Errorf("knowledge: read %s: %w", path, err)
	}

	return s, nil
}

// PutVideo inserts or replaces a video record and saves.
func (s *Store) PutVideo(v Video) error {
	if v.ID == "" {
		return errors.New("knowledge: video id is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Videos[v.ID] = v
	return s.saveLocked()
}

// PutPlaylist inserts or replaces a playlist record and saves.
func (s *Store) PutPlaylist(p Playlist) error {
	if p.ID == "" {
		return errors.New("knowledge: playlist id is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Playlists[p.ID] = p
	return s.saveLocked()
}

// Video looks up one video by id.
func (s *Store) Video(id string) (Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.doc.Videos[id]
	if !ok {
		return Video{}, fmt.Errorf("%w: video %s", ErrNotFound, id)
	}
	return v, nil
}

// Playlist looks up one playlist by id.
func (s *Store) Playlist(id string) (Playlist, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.doc.Playlists[id]
	if !ok {
		return Playlist{}, fmt.Errorf("%w: playlist %s", ErrNotFound, id)
	}
	return p, nil
}

// Videos returns all video records sorted by collection time, newest first.
func (s *Store) Videos() []Video {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Video, 0, len(s.doc.Videos))
	for _, v := range s.doc.Videos {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CollectedAt.After(out[j].CollectedAt)
	})
	return out
}

// Playlists returns all playlist records sorted by collection time,
// newest first.
func (s *Store) Playlists() []Playlist {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Playlist, 0, len(s.doc.Playlists))
	for _, p := range s.doc.Playlists {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CollectedAt.After(out[j].CollectedAt)
	})
	return out
}

// Search returns videos whose title, description or channel contains the
// query, case-insensitively.
func (s *Store) Search(query string) []Video {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	var out []Video
	for _, v := range s.Videos() {
		hay := strings.ToLower(v.Title + "\n" + v.Description + "\n" + v.ChannelTitle)
		if strings.Contains(hay, q) {
			out = append(out, v)
		}
	}
	return out
}

// SetAnalysis attaches an LLM summary to an existing video.
func (s *Store) SetAnalysis(videoID, summary, model string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.doc.Videos[videoID]
	if !ok {
		return fmt.Errorf("%w: video %s", ErrNotFound, videoID)
	}

	v.Analysis = &Analysis{
		Summary:    summary,
		Model:      model,
		AnalyzedAt: time.Now(),
	}
	s.doc.Videos[videoID] = v
	return s.saveLocked()
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Counts returns the number of stored videos and playlists.
func (s *Store) Counts() (videos, playlists int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.doc.Videos), len(s.doc.Playlists)
}

// saveLocked rewrites the whole document atomically. Callers hold mu.
func (s *Store) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("knowledge: mkdir: %w", err)
	}

	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("knowledge: marshal: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("knowledge: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("knowledge: rename: %w", err)
	}
	return nil
}
