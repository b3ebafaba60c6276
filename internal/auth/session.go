package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	DefaultSessionTTL       = 4 * time.Hour
	DefaultSessionIdleTTL   = 30 * time.Minute
	DefaultSweepInterval    = time.Minute
	DefaultRefreshThreshold = 5 * time.Minute
)

var (
	// ErrSessionInvalid covers every reason a credential is refused:
	// bad signature, expiry, revocation or a binding mismatch.
	ErrSessionInvalid  = errors.New("session invalid")
	ErrSessionNotFound = errors.New("session not found")
)

// Session binds one user's connection to one table.
type Session struct {
	ID           uuid.UUID `json:"sessionId"`
	Credential   string    `json:"credential"`
	UserID       uuid.UUID `json:"userId"`
	TableID      uuid.UUID `json:"tableId"`
	ConnectionID string    `json:"connectionId"`
	IssuedAt     time.Time `json:"issuedAt"`
	ExpiresAt    time.Time `json:"expiresAt"`
	LastSeen     time.Time `json:"lastSeen"`
}

// SessionClaims are the signed contents of a table-session credential.
type SessionClaims struct {
	SessionID    uuid.UUID `json:"session_id"`
	UserID       uuid.UUID `json:"user_id"`
	TableID      uuid.UUID `json:"table_id"`
	ConnectionID string    `json:"connection_id"`
	jwt.RegisteredClaims
}

// SessionStore persists sessions keyed by credential.
type SessionStore interface {
	Save(ctx context.Context, s *Session) error
	// Get returns ErrSessionNotFound for unknown credentials.
	Get(ctx context.Context, credential string) (*Session, error)
	Delete(ctx context.Context, credential string) error
	List(ctx context.Context) ([]*Session, error)
}

type SessionConfig struct {
	IdleTTL          time.Duration
	SweepInterval    time.Duration
	RefreshThreshold time.Duration
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.IdleTTL <= 0 {
		c.IdleTTL = DefaultSessionIdleTTL
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = DefaultSweepInterval
	}
	if c.RefreshThreshold <= 0 {
		c.RefreshThreshold = DefaultRefreshThreshold
	}
	return c
}

// SessionManager issues and validates table-session credentials. Its
// background sweep only ever touches the session store.
type SessionManager struct {
	jwt   *JWTManager
	store SessionStore
	cfg   SessionConfig
	now   func() time.Time

	startOnce sync.Once
	closeOnce sync.Once
	stop      chan struct{}
	done      chan struct{}
}

func NewSessionManager(jwtManager *JWTManager, store SessionStore, cfg SessionConfig) *SessionManager {
	return &SessionManager{
		jwt:   jwtManager,
		store: store,
		cfg:   cfg.withDefaults(),
		now:   jwtManager.now,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Issue creates a session for the user at the table over the given
// connection.
func (m *SessionManager) Issue(ctx context.Context, userID, tableID uuid.UUID, connectionID string) (*Session, error) {
	if userID == uuid.Nil || tableID == uuid.Nil {
		return nil, fmt.Errorf("%w: user and table are required", ErrSessionInvalid)
	}
	return m.issue(ctx, uuid.New(), userID, tableID, connectionID)
}

func (m *SessionManager) issue(ctx context.Context, sessionID, userID, tableID uuid.UUID, connectionID string) (*Session, error) {
	claims := SessionClaims{
		SessionID:        sessionID,
		UserID:           userID,
		TableID:          tableID,
		ConnectionID:     connectionID,
		RegisteredClaims: m.jwt.registered(userID.String()),
	}
	credential, err := m.jwt.Sign(claims)
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:           sessionID,
		Credential:   credential,
		UserID:       userID,
		TableID:      tableID,
		ConnectionID: connectionID,
		IssuedAt:     claims.IssuedAt.Time,
		ExpiresAt:    claims.ExpiresAt.Time,
		LastSeen:     claims.IssuedAt.Time,
	}
	if err := m.store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return s, nil
}

// Validate checks the credential's signature, expiry and presence in the
// store, and records activity on the session.
func (m *SessionManager) Validate(ctx context.Context, credential string) (*SessionClaims, error) {
	claims, s, err := m.lookup(ctx, credential)
	if err != nil {
		return nil, err
	}
	s.LastSeen = m.now()
	if err := m.store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to touch session: %w", err)
	}
	return claims, nil
}

func (m *SessionManager) lookup(ctx context.Context, credential string) (*SessionClaims, *Session, error) {
	if credential == "" {
		return nil, nil, fmt.Errorf("%w: missing credential", ErrSessionInvalid)
	}
	claims := &SessionClaims{}
	if err := m.jwt.Parse(credential, claims); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrSessionInvalid, err)
	}

	s, err := m.store.Get(ctx, credential)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, nil, fmt.Errorf("%w: session revoked or expired", ErrSessionInvalid)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load session: %w", err)
	}
	if s.ID != claims.SessionID || s.UserID != claims.UserID || s.TableID != claims.TableID {
		return nil, nil, fmt.Errorf("%w: credential does not match its session", ErrSessionInvalid)
	}
	if m.now().Sub(s.LastSeen) > m.cfg.IdleTTL {
		_ = m.store.Delete(ctx, credential)
		return nil, nil, fmt.Errorf("%w: session idle too long", ErrSessionInvalid)
	}
	return claims, s, nil
}

// Rebind moves a valid session to a new connection. The credential must
// belong to the given table and user.
func (m *SessionManager) Rebind(ctx context.Context, credential string, tableID, userID uuid.UUID, connectionID string) (*Session, error) {
	claims, s, err := m.lookup(ctx, credential)
	if err != nil {
		return nil, err
	}
	if claims.TableID != tableID || claims.UserID != userID {
		return nil, fmt.Errorf("%w: credential belongs to another table or user", ErrSessionInvalid)
	}
	s.ConnectionID = connectionID
	s.LastSeen = m.now()
	if err := m.store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to rebind session: %w", err)
	}
	slog.Info("Session rebound", "session_id", s.ID, "user_id", userID, "table_id", tableID)
	return s, nil
}

// Refresh replaces the credential with a new one for the same session. The
// old credential stops working.
func (m *SessionManager) Refresh(ctx context.Context, credential string) (*Session, error) {
	_, s, err := m.lookup(ctx, credential)
	if err != nil {
		return nil, err
	}
	fresh, err := m.issue(ctx, s.ID, s.UserID, s.TableID, s.ConnectionID)
	if err != nil {
		return nil, err
	}
	if err := m.store.Delete(ctx, credential); err != nil {
		return nil, fmt.Errorf("failed to drop refreshed credential: %w", err)
	}
	return fresh, nil
}

// NeedsRefresh reports whether the credential expires within the refresh
// threshold.
func (m *SessionManager) NeedsRefresh(claims *SessionClaims) bool {
	if claims == nil || claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Time.Sub(m.now()) < m.cfg.RefreshThreshold
}

func (m *SessionManager) Revoke(ctx context.Context, credential string) error {
	return m.store.Delete(ctx, credential)
}

// RevokeTable drops every session bound to the table.
func (m *SessionManager) RevokeTable(ctx context.Context, tableID uuid.UUID) (int, error) {
	return m.deleteWhere(ctx, func(s *Session) bool { return s.TableID == tableID })
}

// RevokeUser drops the user's sessions at the table.
func (m *SessionManager) RevokeUser(ctx context.Context, tableID, userID uuid.UUID) (int, error) {
	return m.deleteWhere(ctx, func(s *Session) bool { return s.TableID == tableID && s.UserID == userID })
}

// SessionsForConnection returns the sessions bound to a connection.
func (m *SessionManager) SessionsForConnection(ctx context.Context, connectionID string) ([]*Session, error) {
	all, err := m.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	var bound []*Session
	for _, s := range all {
		if s.ConnectionID == connectionID {
			bound = append(bound, s)
		}
	}
	return bound, nil
}

// Sweep deletes sessions that are expired or idle past the idle TTL.
func (m *SessionManager) Sweep(ctx context.Context) (int, error) {
	now := m.now()
	return m.deleteWhere(ctx, func(s *Session) bool {
		return !now.Before(s.ExpiresAt) || now.Sub(s.LastSeen) > m.cfg.IdleTTL
	})
}

func (m *SessionManager) deleteWhere(ctx context.Context, match func(*Session) bool) (int, error) {
	all, err := m.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions: %w", err)
	}
	deleted := 0
	for _, s := range all {
		if !match(s) {
			continue
		}
		if err := m.store.Delete(ctx, s.Credential); err != nil {
			return deleted, fmt.Errorf("failed to delete session: %w", err)
		}
		deleted++
	}
	return deleted, nil
}

// Start launches the sweep loop. Calls after the first are no-ops.
func (m *SessionManager) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		go m.sweepLoop(ctx)
	})
}

func (m *SessionManager) sweepLoop(ctx context.Context) {
	defer close(m.done)
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stop:
			return
		case <-ticker.C:
			n, err := m.Sweep(ctx)
			if err != nil {
				slog.Warn("Session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("Swept idle sessions", "count", n)
			}
		}
	}
}

// Close stops the sweep loop and waits for it to exit.
func (m *SessionManager) Close() {
	m.closeOnce.Do(func() {
		close(m.stop)
		started := true
		m.startOnce.Do(func() { started = false })
		if started {
			<-m.done
		}
	})
}
