package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/phonginreallife/rentdesk/db"
	"github.com/phonginreallife/rentdesk/store"
	"go.uber.org/zap"
)

const DefaultSessionNamespace = "rentdesk"

// SwitchResult describes the outcome of an organization switch. An unknown
// organization is reported through Warning and leaves the session untouched.
type SwitchResult struct {
	Session        *db.SessionPayload
	Switched       bool
	ReloadRequired bool
	Warning        string
}

// SessionStore persists the single session payload in a KV slot
type SessionStore struct {
	kv     store.KV
	key    string
	logger *zap.Logger
	mu     sync.Mutex
}

func NewSessionStore(kv store.KV, namespace string, logger *zap.Logger) *SessionStore {
	if namespace == "" {
		namespace = DefaultSessionNamespace
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionStore{
		kv:     kv,
		key:    namespace + ":session",
		logger: logger,
	}
}

// Key returns the slot key the payload is stored under
func (s *SessionStore) Key() string { return s.key }

func (s *SessionStore) Save(ctx context.Context, payload *db.SessionPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx, payload)
}

func (s *SessionStore) saveLocked(ctx context.Context, payload *db.SessionPayload) error {
	if payload == nil {
		return fmt.Errorf("session payload is nil")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, string(data), 0); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Load returns the stored payload, or nil when the slot is empty. Corrupted or
// incomplete payloads are cleared and reported as absent.
func (s *SessionStore) Load(ctx context.Context) (*db.SessionPayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(ctx)
}

func (s *SessionStore) loadLocked(ctx context.Context) (*db.SessionPayload, error) {
	raw, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, store.ErrMiss) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var payload db.SessionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		s.discard(ctx, "session data is not valid JSON", err)
		return nil, nil
	}
	if err := payload.Validate(); err != nil {
		s.discard(ctx, "session data is incomplete", err)
		return nil, nil
	}
	return &payload, nil
}

func (s *SessionStore) discard(ctx context.Context, msg string, cause error) {
	s.logger.Warn("DATA INTEGRITY - "+msg+", clearing",
		zap.String("key", s.key),
		zap.Error(cause),
	)
	if err := s.clearLocked(ctx); err != nil {
		s.logger.Error("failed to clear corrupted session", zap.Error(err))
	}
}

// Clear removes the payload. Clearing an empty slot is not an error.
func (s *SessionStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked(ctx)
}

func (s *SessionStore) clearLocked(ctx context.Context) error {
	if err := s.kv.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// SwitchOrganization makes orgID the active organization when it is one of
// the user's memberships. orgCode overrides the code from the membership list.
// The read and the write happen under one lock, so a concurrent Clear is never
// undone.
func (s *SessionStore) SwitchOrganization(ctx context.Context, orgID, orgCode string) (SwitchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.loadLocked(ctx)
	if err != nil {
		return SwitchResult{}, err
	}
	if current == nil {
		return SwitchResult{Warning: "no active session"}, nil
	}

	org, ok := current.User.FindOrganization(orgID)
	if !ok {
		s.logger.Warn("organization switch ignored",
			zap.String("org_id", orgID),
			zap.String("user_id", current.User.ID),
		)
		return SwitchResult{
			Session: current,
			Warning: fmt.Sprintf("organization %s is not one of your organizations", orgID),
		}, nil
	}

	next := *current
	next.ActiveOrganizationID = org.ID
	next.ActiveOrganizationCode = org.Code
	if orgCode != "" {
		next.ActiveOrganizationCode = orgCode
	}
	if err := s.saveLocked(ctx, &next); err != nil {
		return SwitchResult{}, err
	}

	s.logger.Info("organization switched",
		zap.String("org_id", next.ActiveOrganizationID),
		zap.String("user_id", next.User.ID),
	)
	return SwitchResult{Session: &next, Switched: true, ReloadRequired: true}, nil
}

// Token and OrganizationID satisfy the client's credential source.
func (s *SessionStore) Token(ctx context.Context) string {
	p, err := s.Load(ctx)
	if err != nil || p == nil {
		return ""
	}
	return p.Token
}

func (s *SessionStore) OrganizationID(ctx context.Context) string {
	p, err := s.Load(ctx)
	if err != nil || p == nil {
		return ""
	}
	return p.ActiveOrganizationID
}
