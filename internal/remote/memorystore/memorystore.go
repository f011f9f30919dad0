// Package memorystore provides a map-backed RemoteStore with the same
// failure semantics as the hosted adapter. Tests and offline sessions use it
// in place of the GitHub-backed store; an optional echo window replays the
// propagation delay of a real hosted API.
package memorystore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/halim714/markpress/internal/remote"
	"github.com/halim714/markpress/pkg/interfaces"
)

type entry struct {
	content []byte
	token   string
	// reads still reporting missing before the entry becomes visible
	echoRemaining int
}

// Store is an in-memory RemoteStore. Safe for concurrent use.
type Store struct {
	mu sync.Mutex

	files map[string]*entry
	rev   uint64

	// echoReads is applied to every newly created path: that many Reads
	// return NOT_FOUND before the content appears.
	echoReads int

	// failures maps a path to an error injected on the next access.
	failures map[string]error
}

// Option customises a Store.
type Option func(*Store)

// WithEchoReads makes every freshly created path invisible for n reads,
// mimicking read-after-write lag on the hosted API.
func WithEchoReads(n int) Option {
	return func(s *Store) {
		s.echoReads = n
	}
}

// New builds an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		files:    map[string]*entry{},
		failures: map[string]error{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ interfaces.RemoteStore = (*Store)(nil)

// FailNext injects err on the next operation touching path. Used by tests to
// exercise transient and per-entry failure handling.
func (s *Store) FailNext(path string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = err
}

// Seed inserts content without commit bookkeeping or echo delay, returning
// the assigned version token.
func (s *Store) Seed(filePath string, content []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalize(filePath)
	token := s.nextToken(content)
	s.files[key] = &entry{content: append([]byte(nil), content...), token: token}
	return token
}

func (s *Store) Read(ctx context.Context, filePath string) (*interfaces.RemoteFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalize(filePath)
	if err := s.takeFailure(key); err != nil {
		return nil, err
	}

	file, ok := s.files[key]
	if !ok {
		return nil, &remote.NotFoundError{Path: filePath}
	}
	if file.echoRemaining > 0 {
		file.echoRemaining--
		return nil, &remote.NotFoundError{Path: filePath}
	}

	return &interfaces.RemoteFile{
		Path:         filePath,
		Content:      append([]byte(nil), file.content...),
		VersionToken: file.token,
	}, nil
}

func (s *Store) Write(ctx context.Context, filePath string, content []byte, expectedToken, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalize(filePath)
	if err := s.takeFailure(key); err != nil {
		return "", err
	}

	existing, ok := s.files[key]
	switch {
	case !ok && expectedToken != "":
		return "", &remote.ConflictError{Path: filePath, Expected: expectedToken}
	case ok && expectedToken == "":
		// create against an existing path
		return "", &remote.ConflictError{Path: filePath, Actual: existing.token}
	case ok && existing.token != expectedToken:
		return "", &remote.ConflictError{Path: filePath, Expected: expectedToken, Actual: existing.token}
	}

	token := s.nextToken(content)
	next := &entry{content: append([]byte(nil), content...), token: token}
	if !ok {
		next.echoRemaining = s.echoReads
	}
	s.files[key] = next
	return token, nil
}

func (s *Store) Delete(ctx context.Context, filePath, token, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalize(filePath)
	if err := s.takeFailure(key); err != nil {
		return err
	}

	existing, ok := s.files[key]
	if !ok {
		// already gone, idempotent
		return nil
	}
	if token != "" && existing.token != token {
		return &remote.ConflictError{Path: filePath, Expected: token, Actual: existing.token}
	}
	delete(s.files, key)
	return nil
}

func (s *Store) ListWithContent(ctx context.Context, dir string) ([]interfaces.RemoteEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := normalize(dir)
	if prefix != "" {
		prefix += "/"
	}

	var names []string
	for key := range s.files {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := strings.TrimPrefix(key, prefix)
		if strings.Contains(rest, "/") {
			continue
		}
		names = append(names, rest)
	}
	sort.Strings(names)

	entries := make([]interfaces.RemoteEntry, 0, len(names))
	for _, name := range names {
		key := prefix + name
		item := interfaces.RemoteEntry{Name: name}
		if err := s.takeFailure(key); err != nil {
			item.Err = err
			entries = append(entries, item)
			continue
		}
		file := s.files[key]
		item.VersionToken = file.token
		item.Content = append([]byte(nil), file.content...)
		entries = append(entries, item)
	}
	return entries, nil
}

// Tokens returns the current path to version token mapping. Test helper.
func (s *Store) Tokens() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(s.files))
	for key, file := range s.files {
		out[key] = file.token
	}
	return out
}

func (s *Store) takeFailure(key string) error {
	if err, ok := s.failures[key]; ok {
		delete(s.failures, key)
		return err
	}
	return nil
}

func (s *Store) nextToken(content []byte) string {
	s.rev++
	sum := sha256.Sum256(append(content, []byte(fmt.Sprintf(":%d", s.rev))...))
	return hex.EncodeToString(sum[:8])
}

func normalize(p string) string {
	cleaned := path.Clean("/" + strings.TrimSpace(p))
	return strings.Trim(cleaned, "/")
}
