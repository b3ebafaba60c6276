package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps sessions in a local sqlite file so a single-node
// server can restart without dropping seated players' credentials.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("empty sqlite database path")
	}
	if dbPath != ":memory:" {
		parent := filepath.Dir(dbPath)
		if parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, pragma := range []string{
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA journal_mode = WAL;`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureSessionSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func ensureSessionSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`
CREATE TABLE IF NOT EXISTS table_sessions (
    credential TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    table_id TEXT NOT NULL,
    connection_id TEXT NOT NULL DEFAULT '',
    issued_at_ms INTEGER NOT NULL,
    expires_at_ms INTEGER NOT NULL,
    last_seen_at_ms INTEGER NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_table_sessions_table ON table_sessions(table_id)`,
		`CREATE INDEX IF NOT EXISTS idx_table_sessions_connection ON table_sessions(connection_id)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create session schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, session *Session) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO table_sessions (
    credential, session_id, user_id, table_id, connection_id,
    issued_at_ms, expires_at_ms, last_seen_at_ms
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(credential) DO UPDATE SET
    connection_id = excluded.connection_id,
    last_seen_at_ms = excluded.last_seen_at_ms
`,
		session.Credential,
		session.ID.String(),
		session.UserID.String(),
		session.TableID.String(),
		session.ConnectionID,
		session.IssuedAt.UTC().UnixMilli(),
		session.ExpiresAt.UTC().UnixMilli(),
		session.LastSeen.UTC().UnixMilli(),
	)
	return err
}

const sessionColumns = `credential, session_id, user_id, table_id, connection_id, issued_at_ms, expires_at_ms, last_seen_at_ms`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var (
		session                           Session
		sessionID, userID, tableID        string
		issuedAtMs, expiresAtMs, lastSeen int64
	)
	if err := row.Scan(&session.Credential, &sessionID, &userID, &tableID, &session.ConnectionID, &issuedAtMs, &expiresAtMs, &lastSeen); err != nil {
		return nil, err
	}
	var err error
	if session.ID, err = uuid.Parse(sessionID); err != nil {
		return nil, fmt.Errorf("bad session id: %w", err)
	}
	if session.UserID, err = uuid.Parse(userID); err != nil {
		return nil, fmt.Errorf("bad user id: %w", err)
	}
	if session.TableID, err = uuid.Parse(tableID); err != nil {
		return nil, fmt.Errorf("bad table id: %w", err)
	}
	session.IssuedAt = time.UnixMilli(issuedAtMs).UTC()
	session.ExpiresAt = time.UnixMilli(expiresAtMs).UTC()
	session.LastSeen = time.UnixMilli(lastSeen).UTC()
	return &session, nil
}

func (s *SQLiteStore) Get(ctx context.Context, credential string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM table_sessions WHERE credential = ?`, credential)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	return session, err
}

func (s *SQLiteStore) Delete(ctx context.Context, credential string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM table_sessions WHERE credential = ?`, credential)
	return err
}

func (s *SQLiteStore) List(ctx context.Context) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM table_sessions`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}
