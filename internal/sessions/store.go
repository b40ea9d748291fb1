package sessions

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const sessionFileName = "session.json"

// ErrNameAmbiguous is returned when a session identifier matches more than
// one session id suffix.
var ErrNameAmbiguous = errors.New("NameAmbiguous")

// ErrNotFound is returned when no session matches an identifier.
var ErrNotFound = errors.New("NotFound")

// Store persists sessions as one directory per session id under the chats
// root. All writes are serialized through the store's mutex.
type Store struct {
	root string
	mu   sync.Mutex
}

// Header is the cheap listing view of a session.
type Header struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	CreatedAt      time.Time `json:"createdAt"`
	LastModifiedAt time.Time `json:"lastModifiedAt"`
	InitialPrompt  string    `json:"initialPrompt"`
}

func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create chats root: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the chats root directory.
func (s *Store) Root() string { return s.root }

// Dir returns a session's directory.
func (s *Store) Dir(id string) string {
	return filepath.Join(s.root, id)
}

// Save writes the session atomically: serialize to memory, write
// session.json.new, rename over session.json. JSON is pretty-printed so the
// on-disk log stays human-readable.
func (s *Store) Save(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize session: %w", err)
	}

	dir := s.Dir(sess.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}

	target := filepath.Join(dir, sessionFileName)
	staging := target + ".new"
	if err := os.WriteFile(staging, data, 0o644); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(staging, target); err != nil {
		os.Remove(staging)
		return fmt.Errorf("rename session file: %w", err)
	}
	return nil
}

// Load reads a session by id. Malformed JSON is quarantined as
// session.json.corrupted and a fresh session with a new id is returned, so
// loading never crashes the program.
func (s *Store) Load(id string) (*Session, error) {
	path := filepath.Join(s.Dir(id), sessionFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: session %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("read session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		slog.Warn("session file corrupted, quarantining", "id", id, "error", err)
		if renameErr := os.Rename(path, path+".corrupted"); renameErr != nil {
			slog.Warn("failed to quarantine corrupted session", "id", id, "error", renameErr)
		}
		return New(), nil
	}
	if sess.History == nil {
		sess.History = []Message{}
	}
	return &sess, nil
}

// List enumerates session headers sorted by last-modified descending.
// limit <= 0 returns all.
func (s *Store) List(limit int) ([]Header, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read chats root: %w", err)
	}

	var headers []Header
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.root, e.Name(), sessionFileName))
		if err != nil {
			continue
		}
		var h Header
		if err := json.Unmarshal(data, &h); err != nil {
			continue
		}
		headers = append(headers, h)
	}

	sort.Slice(headers, func(i, j int) bool {
		return headers[i].LastModifiedAt.After(headers[j].LastModifiedAt)
	})
	if limit > 0 && len(headers) > limit {
		headers = headers[:limit]
	}
	return headers, nil
}

// Find resolves an identifier to a session: exact UUID, UUID suffix
// (length >= 8), or case-insensitive name. Name collisions resolve to the
// most recently modified; ambiguous suffixes are an error.
func (s *Store) Find(identifier string) (*Session, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, fmt.Errorf("%w: empty identifier", ErrNotFound)
	}

	headers, err := s.List(0)
	if err != nil {
		return nil, err
	}

	if _, parseErr := uuid.Parse(identifier); parseErr == nil {
		for _, h := range headers {
			if strings.EqualFold(h.ID, identifier) {
				return s.Load(h.ID)
			}
		}
	}

	if len(identifier) >= 8 {
		var suffixMatches []Header
		lower := strings.ToLower(identifier)
		for _, h := range headers {
			if strings.HasSuffix(strings.ToLower(h.ID), lower) {
				suffixMatches = append(suffixMatches, h)
			}
		}
		switch len(suffixMatches) {
		case 1:
			return s.Load(suffixMatches[0].ID)
		default:
			if len(suffixMatches) > 1 {
				return nil, fmt.Errorf("%w: %d sessions match suffix %q", ErrNameAmbiguous, len(suffixMatches), identifier)
			}
		}
	}

	// Name match: headers are already sorted most-recent first, so the
	// first hit wins collisions.
	for _, h := range headers {
		if strings.EqualFold(h.Name, identifier) {
			return s.Load(h.ID)
		}
	}

	return nil, fmt.Errorf("%w: no session matches %q", ErrNotFound, identifier)
}

// Clear truncates a session's history and attachments on disk while keeping
// its identity (id, name, createdAt).
func (s *Store) Clear(sess *Session) error {
	sess.History = []Message{}
	sess.InitialPrompt = ""
	sess.UsageMetrics.Reset()
	sess.Touch()
	if err := s.Save(sess); err != nil {
		return err
	}
	// Attachment bytes are unreachable once the history is gone.
	os.RemoveAll(filepath.Join(s.Dir(sess.ID), attachmentsDirName))
	return nil
}

// Rename sets a session's display name and persists it.
func (s *Store) Rename(sess *Session, name string) error {
	sess.Name = name
	sess.Touch()
	return s.Save(sess)
}
