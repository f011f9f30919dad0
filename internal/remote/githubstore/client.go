// Package githubstore adapts a GitHub-hosted repository into the RemoteStore
// contract. Files are addressed through the contents API; the blob SHA acts
// as the opaque version token, and every write or delete produces exactly one
// commit so the repository history doubles as an audit trail.
package githubstore

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/halim714/markpress/internal/logging"
	"github.com/halim714/markpress/internal/remote"
	"github.com/halim714/markpress/pkg/interfaces"
)

// TokenProvider supplies the API token for each request, allowing hosts to
// refresh credentials without rebuilding the store.
type TokenProvider func(ctx context.Context) (string, error)

// Options configures a Store instance.
type Options struct {
	BaseURL       string
	Owner         string
	Repo          string
	Branch        string
	TokenProvider TokenProvider
	HTTPClient    *http.Client
	UserAgent     string
	Retry         remote.RetryPolicy
	Logger        interfaces.Logger
}

// Store is the contents-API backed RemoteStore.
type Store struct {
	baseURL       string
	owner         string
	repo          string
	branch        string
	tokenProvider TokenProvider
	httpClient    *http.Client
	userAgent     string
	retry         remote.RetryPolicy
	logger        interfaces.Logger
}

// New validates the options and builds a Store with relayed defaults.
func New(opts Options) (*Store, error) {
	owner := strings.TrimSpace(opts.Owner)
	repo := strings.TrimSpace(opts.Repo)
	if owner == "" || repo == "" {
		return nil, fmt.Errorf("githubstore: owner and repo are required: %w", remote.ErrValidation)
	}
	if opts.TokenProvider == nil {
		return nil, fmt.Errorf("githubstore: token provider is required: %w", remote.ErrValidation)
	}

	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	retry := opts.Retry
	if retry.MaxAttempts <= 0 {
		retry = remote.DefaultRetryPolicy()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NoOp()
	}

	return &Store{
		baseURL:       baseURL,
		owner:         owner,
		repo:          repo,
		branch:        strings.TrimSpace(opts.Branch),
		tokenProvider: opts.TokenProvider,
		httpClient:    httpClient,
		userAgent:     strings.TrimSpace(opts.UserAgent),
		retry:         retry,
		logger:        logger,
	}, nil
}

var _ interfaces.RemoteStore = (*Store)(nil)

type contentsResponse struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	Type     string `json:"type"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

type writeRequest struct {
	Message string `json:"message"`
	Content string `json:"content,omitempty"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

type writeResponse struct {
	Content *struct {
		SHA string `json:"sha"`
	} `json:"content"`
}

// Read fetches path and returns its content with the current version token.
// Transient failures are retried under the bounded policy; a missing path
// fails immediately with NOT_FOUND. Callers that just wrote the path should
// use remote.ReadAfterWrite, which also absorbs propagation-delay 404s.
func (s *Store) Read(ctx context.Context, path string) (*interfaces.RemoteFile, error) {
	var file *interfaces.RemoteFile
	err := s.withRetry(ctx, path, func() error {
		body, status, err := s.do(ctx, http.MethodGet, s.contentsURL(path, true), nil)
		if err != nil {
			return err
		}
		if err := s.classify(status, path, body); err != nil {
			return err
		}

		var decoded contentsResponse
		if err := json.Unmarshal(body, &decoded); err != nil {
			return fmt.Errorf("githubstore: decode read response for %s: %w", path, err)
		}
		content, err := decodeContent(decoded)
		if err != nil {
			return fmt.Errorf("githubstore: decode content for %s: %w", path, err)
		}

		file = &interfaces.RemoteFile{
			Path:         path,
			Content:      content,
			VersionToken: decoded.SHA,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return file, nil
}

// Write stores content at path. expectedToken must match the stored revision
// (empty string means create); a mismatch or an unexpected existing file is
// surfaced as CONFLICT and never retried.
func (s *Store) Write(ctx context.Context, path string, content []byte, expectedToken, message string) (string, error) {
	payload := writeRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(content),
		SHA:     expectedToken,
		Branch:  s.branch,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	body, status, err := s.do(ctx, http.MethodPut, s.contentsURL(path, false), encoded)
	if err != nil {
		return "", err
	}
	if status == http.StatusConflict || status == http.StatusUnprocessableEntity {
		// The API reports both stale SHAs and missing SHAs for existing
		// paths through these statuses.
		return "", &remote.ConflictError{Path: path, Expected: expectedToken}
	}
	if err := s.classify(status, path, body); err != nil {
		return "", err
	}

	var decoded writeResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("githubstore: decode write response for %s: %w", path, err)
	}
	if decoded.Content == nil || decoded.Content.SHA == "" {
		return "", fmt.Errorf("githubstore: write response for %s missing version token", path)
	}

	s.logger.Debug("remote.write", "path", path, "token", decoded.Content.SHA)
	return decoded.Content.SHA, nil
}

// Delete removes path at the given revision. A missing path is success so
// repeated deletes stay idempotent.
func (s *Store) Delete(ctx context.Context, path, token, message string) error {
	payload := writeRequest{
		Message: message,
		SHA:     token,
		Branch:  s.branch,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	body, status, err := s.do(ctx, http.MethodDelete, s.contentsURL(path, false), encoded)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		s.logger.Debug("remote.delete.already_gone", "path", path)
		return nil
	}
	if status == http.StatusConflict || status == http.StatusUnprocessableEntity {
		return &remote.ConflictError{Path: path, Expected: token}
	}
	return s.classify(status, path, body)
}

// ListWithContent lists dir and fetches each file individually. Individual
// decode failures are reported per entry so one corrupt file cannot hide the
// rest of the directory; an absent directory yields an empty set.
func (s *Store) ListWithContent(ctx context.Context, dir string) ([]interfaces.RemoteEntry, error) {
	body, status, err := s.do(ctx, http.MethodGet, s.contentsURL(dir, true), nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return []interfaces.RemoteEntry{}, nil
	}
	if err := s.classify(status, dir, body); err != nil {
		return nil, err
	}

	var listing []contentsResponse
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("githubstore: decode listing for %s: %w", dir, err)
	}

	entries := make([]interfaces.RemoteEntry, 0, len(listing))
	for _, item := range listing {
		if item.Type != "file" {
			continue
		}
		entry := interfaces.RemoteEntry{Name: item.Name, VersionToken: item.SHA}

		file, err := s.Read(ctx, joinPath(dir, item.Name))
		if err != nil {
			entry.Err = err
		} else {
			entry.Content = file.Content
			entry.VersionToken = file.VersionToken
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// withRetry applies bounded exponential backoff to transient read failures.
// Conflicts and validation failures pass through on the first attempt.
func (s *Store) withRetry(ctx context.Context, path string, op func() error) error {
	var lastErr error
	for attempt := 0; attempt < s.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.retry.Delay(attempt - 1)):
			}
			s.logger.Debug("remote.retry", "path", path, "attempt", attempt)
		}

		lastErr = op()
		if lastErr == nil || !remote.IsTransient(lastErr) {
			return lastErr
		}
	}
	return &remote.TransientError{Path: path, Attempts: s.retry.MaxAttempts, Cause: lastErr}
}

func (s *Store) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, int, error) {
	token, err := s.tokenProvider(ctx)
	if err != nil {
		return nil, 0, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, 0, fmt.Errorf("githubstore: empty api token: %w", remote.ErrValidation)
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github+json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, 0, &remote.TransientError{Path: endpoint, Attempts: 1, Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, &remote.TransientError{Path: endpoint, Attempts: 1, Cause: err}
	}
	return body, resp.StatusCode, nil
}

// classify maps an HTTP status onto the shared failure taxonomy.
func (s *Store) classify(status int, path string, body []byte) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusNotFound:
		return &remote.NotFoundError{Path: path}
	case status == http.StatusTooManyRequests || status >= 500:
		return &remote.TransientError{Path: path, Attempts: 1, Cause: fmt.Errorf("status %d", status)}
	case status == http.StatusBadRequest:
		return fmt.Errorf("githubstore: %s rejected: %s: %w", path, truncate(body), remote.ErrValidation)
	default:
		s.logger.Error("remote.unexpected_status", "path", path, "status", status, "body", truncate(body))
		return fmt.Errorf("githubstore: unexpected status %d for %s", status, path)
	}
}

func (s *Store) contentsURL(path string, withRef bool) string {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/contents/%s", s.baseURL, s.owner, s.repo, escapePath(path))
	if withRef && s.branch != "" {
		endpoint += "?ref=" + url.QueryEscape(s.branch)
	}
	return endpoint
}

func decodeContent(resp contentsResponse) ([]byte, error) {
	if resp.Encoding != "" && resp.Encoding != "base64" {
		return nil, fmt.Errorf("unsupported encoding %q", resp.Encoding)
	}
	compact := strings.ReplaceAll(resp.Content, "\n", "")
	return base64.StdEncoding.DecodeString(compact)
}

func escapePath(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}

func joinPath(dir, name string) string {
	dir = strings.Trim(dir, "/")
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

func truncate(body []byte) string {
	const max = 200
	text := strings.TrimSpace(string(body))
	if len(text) > max {
		return text[:max] + "..."
	}
	return text
}
