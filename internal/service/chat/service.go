package chat

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/jeff-companion/backend/internal/model/chat"
	"github.com/zhouzirui/jeff-companion/backend/internal/model/persona"
	"github.com/zhouzirui/jeff-companion/backend/internal/service/ai"
)

// ServiceConfig carries the settings every session manager is created with.
type ServiceConfig struct {
	APIKey            string
	Model             string
	Timeout           time.Duration
	RollbackOnFailure bool
}

type entry struct {
	session chat.Session
	manager *Manager
}

// Service keeps the live sessions of the process, each owning one Manager.
type Service struct {
	cfg       ServiceConfig
	personas  persona.Store
	factory   ai.Factory
	publisher message.Publisher

	mu       sync.RWMutex
	sessions map[string]entry
}

// NewService bootstraps the in-memory session registry. publisher may be nil,
// in which case no session events are published.
func NewService(cfg ServiceConfig, personas persona.Store, factory ai.Factory, publisher message.Publisher) *Service {
	return &Service{
		cfg:       cfg,
		personas:  personas,
		factory:   factory,
		publisher: publisher,
		sessions:  make(map[string]entry),
	}
}

// CreateSession provisions an anonymous session bound to a persona. It fails
// with a configuration error when no credential is configured.
func (s *Service) CreateSession(_ context.Context, personaID string) (chat.Session, error) {
	personaID = strings.TrimSpace(personaID)
	if personaID == "" {
		return chat.Session{}, ErrPersonaRequired
	}

	p, ok := s.personas.FindByID(personaID)
	if !ok {
		return chat.Session{}, ErrPersonaNotFound
	}

	session := chat.Session{
		ID:        uuid.NewString(),
		PersonaID: p.ID,
		CreatedAt: time.Now().UTC(),
	}

	manager, err := NewManager(ManagerConfig{
		APIKey:            s.cfg.APIKey,
		Model:             s.cfg.Model,
		Timeout:           s.cfg.Timeout,
		RollbackOnFailure: s.cfg.RollbackOnFailure,
		Persona:           &p,
		Factory:           s.factory,
	}, WithPublisher(s.publisher, session.ID))
	if err != nil {
		return chat.Session{}, err
	}

	s.mu.Lock()
	s.sessions[session.ID] = entry{session: session, manager: manager}
	s.mu.Unlock()

	log.Info().Str("session_id", session.ID).Str("persona_id", p.ID).Msg("session created")
	return session, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return e.session, nil
}

// Manager returns the conversation manager of a session.
func (s *Service) Manager(_ context.Context, sessionID string) (*Manager, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e.manager, nil
}

// DeleteSession forgets a session and its history.
func (s *Service) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	e, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	e.manager.ClearHistory()
	log.Info().Str("session_id", sessionID).Msg("session deleted")
	return nil
}

// ListSessions returns every live session, oldest first.
func (s *Service) ListSessions(_ context.Context) []chat.Session {
	s.mu.RLock()
	sessions := make([]chat.Session, 0, len(s.sessions))
	for _, e := range s.sessions {
		sessions = append(sessions, e.session)
	}
	s.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	return sessions
}

// Greeting returns the opening line of the session's persona.
func (s *Service) Greeting(sessionID string) string {
	s.mu.RLock()
	e, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return ""
	}
	if p := e.manager.Persona(); p != nil {
		return p.Greeting
	}
	return ""
}

// Rekey replaces the credential of every live session and of sessions
// created afterwards.
func (s *Service) Rekey(apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return configurationError("rekey", ErrMissingCredential)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.sessions {
		if err := e.manager.Rekey(apiKey); err != nil {
			return err
		}
	}
	s.cfg.APIKey = apiKey
	return nil
}
