package session

import (
	"time"

	"github.com/pdf2json/landing/internal/models"
	"github.com/pdf2json/landing/internal/normalize"
)

// shortID safely truncates an ID for logging (handles short IDs gracefully)
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// demoSession is the mutable state of one demo. All fields are guarded by
// Manager.mu.
type demoSession struct {
	id     string
	state  models.DemoState
	file   *models.FileInfo
	schema string
	result *models.Result

	// generation changes on every Submit and Reset; a response is current
	// only while it still matches.
	generation uint64

	createdAt    time.Time
	updatedAt    time.Time
	lastAccessed time.Time

	subscribers map[int]chan models.DemoSession
	nextSubID   int
}

func newDemoSession(id string) *demoSession {
	now := time.Now()
	return &demoSession{
		id:           id,
		state:        models.DemoStateUpload,
		createdAt:    now,
		updatedAt:    now,
		lastAccessed: now,
		subscribers:  make(map[int]chan models.DemoSession),
	}
}

func (s *demoSession) snapshot() models.DemoSession {
	status := normalize.SchemaStatus(s.schema)
	snap := models.DemoSession{
		ID:     s.id,
		State:  s.state,
		Step:   s.state.Step(),
		Schema: s.schema,
		SchemaInfo: models.SchemaInfo{
			Status: string(status),
			Valid:  status.OK(),
			Label:  status.Label(),
		},
		Result:    s.result,
		CreatedAt: s.createdAt,
		UpdatedAt: s.updatedAt,
	}
	if s.file != nil {
		f := *s.file
		snap.File = &models.SelectedFile{FileInfo: &f, SizeLabel: f.SizeLabel()}
	}
	return snap
}

// changed stamps the session and pushes a snapshot to every subscriber.
func (s *demoSession) changed() {
	now := time.Now()
	s.updatedAt = now
	s.lastAccessed = now
	s.publish()
}

// publish delivers the current snapshot, replacing any snapshot a slow
// subscriber has not read yet.
func (s *demoSession) publish() {
	if len(s.subscribers) == 0 {
		return
	}
	snap := s.snapshot()
	for _, ch := range s.subscribers {
		select {
		case ch <- snap:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func (s *demoSession) closeSubscribers() {
	for id, ch := range s.subscribers {
		close(ch)
		delete(s.subscribers, id)
	}
}
