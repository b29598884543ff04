// Package session runs the interactive demo: file selection, schema entry,
// submission to the parsing backend and result review.
package session

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pdf2json/landing/internal/logger"
	"github.com/pdf2json/landing/internal/models"
	"github.com/pdf2json/landing/internal/parseclient"
	"github.com/pdf2json/landing/internal/pdfinfo"
	"github.com/pdf2json/landing/internal/storage"
)

// DefaultMaxSessions limits concurrent demo sessions when Options leaves it unset.
const DefaultMaxSessions = 100

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrTooManySessions  = errors.New("too many active sessions")
	ErrNoFile           = errors.New("no file selected")
	ErrParsing          = errors.New("a request is already in progress")
	ErrNotSelectable    = errors.New("files can only be selected in the upload step")
	ErrNoResult         = errors.New("no result available")
	ErrFileStoreFailure = errors.New("failed to store file")
)

// Options tune a Manager.
type Options struct {
	MaxSessions int
	// RequestTimeout bounds every backend call so that parsing always resolves.
	RequestTimeout time.Duration
	// DiscardStaleResults drops responses that arrive after a Reset or a newer
	// Submit. When false a late response overwrites the session.
	DiscardStaleResults bool
}

// Manager owns all demo sessions. Transitions are serialized by mu.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*demoSession
	store    storage.Store
	parser   parseclient.Parser
	opts     Options
	inflight sync.WaitGroup
}

// NewManager creates a session manager.
func NewManager(store storage.Store, parser parseclient.Parser, opts Options) *Manager {
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	return &Manager{
		sessions: make(map[string]*demoSession),
		store:    store,
		parser:   parser,
		opts:     opts,
	}
}

// Create starts a new session in the upload step.
func (m *Manager) Create() (models.DemoSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.sessions) >= m.opts.MaxSessions && !m.evictOldestLocked() {
		return models.DemoSession{}, ErrTooManySessions
	}

	s := newDemoSession(uuid.New().String())
	m.sessions[s.id] = s

	logger.Debug("demo session created", "session", shortID(s.id))
	return s.snapshot(), nil
}

// evictOldestLocked removes the least recently used idle session.
func (m *Manager) evictOldestLocked() bool {
	var oldest *demoSession
	for _, s := range m.sessions {
		if s.state == models.DemoStateParsing {
			continue
		}
		if oldest == nil || s.lastAccessed.Before(oldest.lastAccessed) {
			oldest = s
		}
	}
	if oldest == nil {
		return false
	}
	m.removeLocked(oldest)
	logger.Info("evicted demo session to stay under limit", "session", shortID(oldest.id))
	return true
}

func (m *Manager) removeLocked(s *demoSession) {
	m.deleteBlob(s.file)
	s.closeSubscribers()
	delete(m.sessions, s.id)
}

// Get returns a snapshot of a session.
func (m *Manager) Get(id string) (models.DemoSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return models.DemoSession{}, ErrSessionNotFound
	}
	return s.snapshot(), nil
}

// Touch marks a session as in use so cleanup keeps it.
func (m *Manager) Touch(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return false
	}
	s.lastAccessed = time.Now()
	return true
}

// Delete removes a session and its stored file.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	m.removeLocked(s)
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// SelectFile stores a chosen file in the session, replacing any previous one
// and clearing the result. Files that are not PDFs are ignored: accepted is
// false and the session is left untouched.
func (m *Manager) SelectFile(id, name, mimeType string, r io.Reader) (accepted bool, snap models.DemoSession, err error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if !ok {
		m.mu.Unlock()
		return false, models.DemoSession{}, ErrSessionNotFound
	}
	if s.state != models.DemoStateUpload {
		m.mu.Unlock()
		return false, models.DemoSession{}, ErrNotSelectable
	}
	if !models.AcceptsPDF(name, mimeType) {
		snap = s.snapshot()
		m.mu.Unlock()
		logger.Debug("ignored non-PDF selection", "session", shortID(id), "name", name, "mimeType", mimeType)
		return false, snap, nil
	}
	m.mu.Unlock()

	// Disk work happens outside the lock.
	info, err := m.store.Save(name, mimeType, r)
	if err != nil {
		return false, models.DemoSession{}, fmt.Errorf("%w: %w", ErrFileStoreFailure, err)
	}
	if path, err := m.store.GetFilePath(info.ID); err == nil {
		if pages, err := pdfinfo.PageCount(path); err == nil {
			info.Pages = pages
		} else {
			logger.Debug("page count unavailable", "file", name, "error", err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok = m.sessions[id]
	if !ok {
		m.deleteBlob(info)
		return false, models.DemoSession{}, ErrSessionNotFound
	}
	if s.state != models.DemoStateUpload {
		m.deleteBlob(info)
		return false, models.DemoSession{}, ErrNotSelectable
	}

	m.deleteBlob(s.file)
	s.file = info
	s.result = nil
	s.changed()

	logger.Info("file selected", "session", shortID(id), "name", info.Name, "sizeBytes", info.Size, "pages", info.Pages)
	return true, s.snapshot(), nil
}

// SetSchema stores the schema text verbatim. It is allowed in every state.
func (m *Manager) SetSchema(id, schema string) (models.DemoSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return models.DemoSession{}, ErrSessionNotFound
	}
	s.schema = schema
	s.changed()
	return s.snapshot(), nil
}

// Submit sends the held file to the backend. The session is in the parsing
// step when Submit returns and moves to review exactly once, when the
// request resolves.
func (m *Manager) Submit(id string) (models.DemoSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return models.DemoSession{}, ErrSessionNotFound
	}
	if s.state == models.DemoStateParsing {
		return models.DemoSession{}, ErrParsing
	}
	if s.file == nil {
		return models.DemoSession{}, ErrNoFile
	}

	// Opened under the lock so a concurrent Reset cannot remove the blob
	// before the request reads it.
	body, openErr := m.store.Open(s.file.ID)

	s.generation++
	s.state = models.DemoStateParsing
	s.result = nil
	s.changed()

	sub := submission{
		sessionID:  id,
		generation: s.generation,
		file:       *s.file,
		schema:     s.schema,
		body:       body,
		openErr:    openErr,
	}

	m.inflight.Add(1)
	go m.run(sub)

	logger.Info("submitted file to backend", "session", shortID(id), "name", s.file.Name, "generation", s.generation)
	return s.snapshot(), nil
}

// Reset clears the file and the result and returns to the upload step.
// An in-flight request keeps running; its response is then stale.
func (m *Manager) Reset(id string) (models.DemoSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return models.DemoSession{}, ErrSessionNotFound
	}

	m.deleteBlob(s.file)
	s.generation++
	s.file = nil
	s.result = nil
	s.state = models.DemoStateUpload
	s.changed()

	return s.snapshot(), nil
}

// Result returns the result of a session in review.
func (m *Manager) Result(id string) (*models.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.state != models.DemoStateReview || s.result == nil {
		return nil, ErrNoResult
	}
	return s.result, nil
}

// Subscribe streams a snapshot after every transition, starting with the
// current one. Only the latest undelivered snapshot is kept. The channel is
// closed when cancel is called or the session is removed.
func (m *Manager) Subscribe(id string) (<-chan models.DemoSession, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, nil, ErrSessionNotFound
	}

	ch := make(chan models.DemoSession, 1)
	ch <- s.snapshot()
	subID := s.nextSubID
	s.nextSubID++
	s.subscribers[subID] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if c, ok := s.subscribers[subID]; ok {
				close(c)
				delete(s.subscribers, subID)
			}
		})
	}
	return ch, cancel, nil
}

// CleanupOldSessions removes idle sessions not accessed within maxAge.
// Sessions waiting on the backend are kept.
func (m *Manager) CleanupOldSessions(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	var stale []*demoSession
	for _, s := range m.sessions {
		if s.state == models.DemoStateParsing {
			continue
		}
		if s.lastAccessed.Before(cutoff) {
			stale = append(stale, s)
		}
	}

	sort.Slice(stale, func(i, j int) bool {
		return stale[i].lastAccessed.Before(stale[j].lastAccessed)
	})
	for _, s := range stale {
		m.removeLocked(s)
		logger.Info("cleaned up aged demo session", "session", shortID(s.id),
			"idle", time.Since(s.lastAccessed).Round(time.Second))
	}
	return len(stale)
}

// Wait blocks until every in-flight backend request has resolved.
func (m *Manager) Wait() {
	m.inflight.Wait()
}

func (m *Manager) deleteBlob(f *models.FileInfo) {
	if f == nil {
		return
	}
	if err := m.store.Delete(f.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		logger.Warn("failed to delete stored file", "file", f.ID, "error", err)
	}
}
