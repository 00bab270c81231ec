// Package session holds the authenticated identity of one portal session and
// keeps it in sync with persistent storage.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-portal/internal/auth"
	"github.com/spec-kit/ticket-portal/internal/domain"
	"github.com/spec-kit/ticket-portal/internal/events"
	"github.com/spec-kit/ticket-portal/internal/repository"
)

// StorageKey is the fixed key the identity record is stored under.
const StorageKey = "ticket-portal.identity"

// ErrPersist marks failures writing the identity record. When Establish
// returns it, the store is unchanged.
var ErrPersist = errors.New("identity storage failed")

// Key scopes StorageKey to one session id. An empty id yields the bare key.
func Key(sessionID string) string {
	if sessionID == "" {
		return StorageKey
	}
	return StorageKey + ":" + sessionID
}

// Store holds the current identity. Transitions persist first and publish an
// identity event afterwards, so subscribers always observe a committed state.
type Store struct {
	mu        sync.RWMutex
	current   *domain.Identity
	sessionID string
	repo      repository.IdentityRepository
	sealer    *Sealer
	tokens    *auth.TokenInspector
	events    events.Dispatcher
	logger    *zap.Logger
}

// Dependencies bundles what a Store needs.
type Dependencies struct {
	SessionID  string
	Repository repository.IdentityRepository
	Sealer     *Sealer
	Tokens     *auth.TokenInspector
	Events     events.Dispatcher
	Logger     *zap.Logger
}

// NewStore builds an empty store. Call Restore once at startup.
func NewStore(deps Dependencies) *Store {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tokens := deps.Tokens
	if tokens == nil {
		tokens = auth.NewTokenInspector(0)
	}
	dispatcher := deps.Events
	if dispatcher == nil {
		dispatcher = events.NewInMemoryDispatcher()
	}
	repo := deps.Repository
	if repo == nil {
		repo = repository.NewMemoryIdentityRepository()
	}
	return &Store{
		sessionID: deps.SessionID,
		repo:      repo,
		sealer:    deps.Sealer,
		tokens:    tokens,
		events:    dispatcher,
		logger:    logger.With(zap.String("session_id", deps.SessionID)),
	}
}

// SessionID returns the scope of this store.
func (s *Store) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

func (s *Store) key() string {
	return Key(s.SessionID())
}

// Rekey moves the store, and any persisted record, to sessionID. The record
// is written under the new key before the old one is deleted.
func (s *Store) Rekey(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	oldKey, newKey := Key(s.sessionID), Key(sessionID)
	if oldKey == newKey {
		return nil
	}
	payload, err := s.repo.Load(ctx, oldKey)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		return fmt.Errorf("load identity: %w", err)
	default:
		if err := s.repo.Save(ctx, newKey, payload); err != nil {
			return fmt.Errorf("%w: %w", ErrPersist, err)
		}
		if err := s.repo.Delete(ctx, oldKey); err != nil {
			s.logger.Warn("failed to delete identity under the previous session id", zap.Error(err))
		}
	}
	s.logger.Info("session id rotated", zap.String("new_session_id", sessionID))
	s.sessionID = sessionID
	return nil
}

// Events exposes the dispatcher identity events are published on.
func (s *Store) Events() events.Dispatcher {
	return s.events
}

// Current returns a copy of the current identity, or nil when signed out.
func (s *Store) Current() *domain.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	cp := *s.current
	return &cp
}

// Establish makes identity current and persists it, replacing any prior
// identity. If persisting fails nothing changes.
func (s *Store) Establish(ctx context.Context, identity *domain.Identity) error {
	if !identity.Valid() {
		return errors.New("refusing to store an incomplete identity")
	}
	payload, err := s.encode(identity)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	if err := s.repo.Save(ctx, s.key(), payload); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}

	cp := *identity
	s.mu.Lock()
	s.current = &cp
	s.mu.Unlock()

	s.logger.Info("identity established", zap.String("user_id", string(cp.ID)), zap.String("role", cp.Role.String()))
	return s.publish(ctx, events.EventLoggedIn, &cp)
}

// Clear drops the identity from memory and storage. The in-memory identity
// is cleared even when storage fails.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	prev := s.current
	s.current = nil
	s.mu.Unlock()
	return s.cleared(ctx, events.EventLoggedOut, prev)
}

// ExpireToken is a forced logout after the server rejected token. It only
// signs out when token still belongs to the current identity, and reports
// whether it did.
func (s *Store) ExpireToken(ctx context.Context, token string) (bool, error) {
	s.mu.Lock()
	prev := s.current
	if prev == nil || prev.AccessToken != token {
		s.mu.Unlock()
		return false, nil
	}
	s.current = nil
	s.mu.Unlock()
	return true, s.cleared(ctx, events.EventSessionExpired, prev)
}

func (s *Store) cleared(ctx context.Context, reason events.EventType, prev *domain.Identity) error {
	storeErr := s.repo.Delete(ctx, s.key())
	if storeErr != nil {
		s.logger.Warn("failed to clear persisted identity", zap.Error(storeErr))
		storeErr = fmt.Errorf("clear identity: %w", storeErr)
	}
	if prev == nil {
		return storeErr
	}
	s.logger.Info("identity cleared", zap.String("reason", string(reason)))
	return errors.Join(storeErr, s.publish(ctx, reason, prev))
}

// Restore reads the persisted identity without contacting the server.
// Malformed, unsealable or visibly expired records are deleted and leave
// the store signed out. It reports whether an identity was restored.
func (s *Store) Restore(ctx context.Context) (bool, error) {
	payload, err := s.repo.Load(ctx, s.key())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load identity: %w", err)
	}

	identity, err := s.decode(payload)
	if err == nil {
		err = s.tokens.Check(identity.AccessToken)
	}
	if err != nil {
		s.logger.Info("discarding persisted identity", zap.Error(err))
		if delErr := s.repo.Delete(ctx, s.key()); delErr != nil {
			return false, fmt.Errorf("clear identity: %w", delErr)
		}
		return false, nil
	}

	s.mu.Lock()
	s.current = identity
	s.mu.Unlock()

	cp := *identity
	return true, s.publish(ctx, events.EventSessionRestored, &cp)
}

func (s *Store) publish(ctx context.Context, eventType events.EventType, identity *domain.Identity) error {
	return s.events.Publish(ctx, events.Event{
		Type:      eventType,
		SessionID: s.SessionID(),
		Identity:  identity,
		Timestamp: time.Now(),
	})
}

func (s *Store) encode(identity *domain.Identity) ([]byte, error) {
	plain, err := json.Marshal(identity)
	if err != nil {
		return nil, fmt.Errorf("encode identity: %w", err)
	}
	return s.sealer.Seal(plain)
}

func (s *Store) decode(payload []byte) (*domain.Identity, error) {
	plain, err := s.sealer.Open(payload)
	if err != nil {
		return nil, err
	}
	var identity domain.Identity
	if err := json.Unmarshal(plain, &identity); err != nil {
		return nil, fmt.Errorf("decode identity: %w", err)
	}
	if !identity.Valid() {
		return nil, errors.New("persisted identity is incomplete")
	}
	return &identity, nil
}
