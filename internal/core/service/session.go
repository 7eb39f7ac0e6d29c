package service

import (
	"context"
	"fmt"
	"pixelperfect/internal/core/domain"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog/log"
)

// Result is a produced image as published to a session.
type Result struct {
	Locator      string            `json:"locator"`
	ArtifactID   string            `json:"-"`
	MediaType    domain.MediaType  `json:"media_type"`
	Dimensions   domain.Dimensions `json:"dimensions"`
	Source       domain.Source     `json:"source"`
	Scale        string            `json:"scale"`
	DownloadName string            `json:"download_name"`
	Data         []byte            `json:"-"`
}

// SessionState is the UI-visible state of a session.
type SessionState struct {
	ID         string             `json:"session_id"`
	FileName   string             `json:"file_name,omitempty"`
	MediaType  domain.MediaType   `json:"media_type,omitempty"`
	FileSize   int                `json:"file_size,omitempty"`
	Original   *domain.Dimensions `json:"original,omitempty"`
	Processing bool               `json:"processing"`
	Scale      string             `json:"scale,omitempty"`
	Result     *Result            `json:"result,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// Ticket identifies an upscale request. Its result is only applied while the session is still on the same
// generation.
type Ticket struct {
	SessionID  string
	Generation uint64
}

type session struct {
	id         string
	generation uint64
	image      *domain.ImageAsset
	original   domain.Dimensions
	processing bool
	scale      domain.ScaleFactor
	result     *Result
	errMsg     string
	touched    time.Time
}

type SessionManager struct {
	sessions map[string]*session
	ttl      time.Duration
	mutex    *sync.Mutex
	release  func(artifactID string)
	now      func() time.Time
}

// NewSessionManager creates a session manager. release is called with the artifact id of every result that is
// replaced, reset, discarded as stale or expired.
func NewSessionManager(ttl time.Duration, release func(artifactID string)) *SessionManager {
	if release == nil {
		release = func(string) {}
	}

	return &SessionManager{
		sessions: make(map[string]*session),
		ttl:      ttl,
		mutex:    &sync.Mutex{},
		release:  release,
		now:      time.Now,
	}
}

func (m *SessionManager) Create() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", fmt.Errorf("generating session id: %w", err)
	}

	m.Open(id.String())

	return id.String(), nil
}

// Open returns the state of the session with the given id, creating it when it does not exist.
func (m *SessionManager) Open(id string) SessionState {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		s = &session{id: id}
		m.sessions[id] = s
		log.Debug().Str("sessionId", id).Msg("session created")
	}
	s.touched = m.now()

	return s.state()
}

func (m *SessionManager) Get(id string) (SessionState, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return SessionState{}, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	s.touched = m.now()

	return s.state(), nil
}

// SelectImage replaces the selected image. A session with a request in flight keeps its image and returns
// domain.ErrBusy.
func (m *SessionManager) SelectImage(id string, image domain.ImageAsset, original domain.Dimensions) (SessionState,
	error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return SessionState{}, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}

	if s.processing {
		return SessionState{}, domain.ErrBusy
	}

	m.clear(s)
	s.image = &image
	s.original = original

	return s.state(), nil
}

// Reset clears the selected image and any result. Any in-flight request becomes stale.
func (m *SessionManager) Reset(id string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}

	m.clear(s)
	log.Debug().Str("sessionId", id).Uint64("generation", s.generation).Msg("session reset")

	return nil
}

// Begin marks the session as processing and returns a ticket for the request along with the selected image.
func (m *SessionManager) Begin(id string, scale domain.ScaleFactor) (Ticket, domain.ImageAsset, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return Ticket{}, domain.ImageAsset{}, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}

	if s.image == nil {
		return Ticket{}, domain.ImageAsset{}, fmt.Errorf("%w: %w", domain.ErrValidation, domain.ErrNoImage)
	}

	if s.processing {
		return Ticket{}, domain.ImageAsset{}, domain.ErrBusy
	}

	s.processing = true
	s.scale = scale
	s.errMsg = ""
	s.touched = m.now()

	return Ticket{SessionID: id, Generation: s.generation}, *s.image, nil
}

// Complete publishes result to the session the ticket was issued for. A ticket from an earlier generation gets
// domain.ErrStaleResult and the session is left untouched.
func (m *SessionManager) Complete(ticket Ticket, result Result) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	s, err := m.current(ticket)
	if err != nil {
		return err
	}

	if s.result != nil && s.result.ArtifactID != "" && s.result.ArtifactID != result.ArtifactID {
		m.release(s.result.ArtifactID)
	}

	result.Data = nil
	s.result = &result
	s.processing = false
	s.errMsg = ""
	s.touched = m.now()

	return nil
}

// Fail records a user-facing error for the ticket's request.
func (m *SessionManager) Fail(ticket Ticket, message string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	s, err := m.current(ticket)
	if err != nil {
		return err
	}

	s.processing = false
	s.errMsg = message
	s.touched = m.now()

	return nil
}

// ExpireIdle removes sessions untouched for longer than the ttl until ctx is done.
func (m *SessionManager) ExpireIdle(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := m.sweep(); n > 0 {
				log.Debug().Int("sessions", n).Msg("expired idle sessions")
			}
		case <-ctx.Done():
			log.Debug().Msg("stopping session expiry")
			return
		}
	}
}

func (m *SessionManager) sweep() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	deadline := m.now().Add(-m.ttl)
	expired := 0
	for id, s := range m.sessions {
		if s.processing || s.touched.After(deadline) {
			continue
		}

		m.clear(s)
		delete(m.sessions, id)
		expired++
	}

	return expired
}

func (m *SessionManager) current(ticket Ticket) (*session, error) {
	s, ok := m.sessions[ticket.SessionID]
	if !ok || s.generation != ticket.Generation {
		return nil, domain.ErrStaleResult
	}

	return s, nil
}

func (m *SessionManager) clear(s *session) {
	if s.result != nil && s.result.ArtifactID != "" {
		m.release(s.result.ArtifactID)
	}

	s.generation++
	s.image = nil
	s.original = domain.Dimensions{}
	s.processing = false
	s.scale = 0
	s.result = nil
	s.errMsg = ""
	s.touched = m.now()
}

func (s *session) state() SessionState {
	st := SessionState{
		ID:         s.id,
		Processing: s.processing,
		Error:      s.errMsg,
	}

	if s.image != nil {
		st.FileName = s.image.Name
		st.MediaType = s.image.MediaType
		st.FileSize = s.image.Size()
		original := s.original
		st.Original = &original
	}

	if s.scale.Valid() {
		st.Scale = s.scale.String()
	}

	if s.result != nil {
		result := *s.result
		st.Result = &result
	}

	return st
}
