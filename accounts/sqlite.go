package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MrEthical07/soundwave"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps accounts in a local SQLite file. It backs single-node
// deployments and the development server.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and migrates it.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("accounts: open db: %w", err)
	}

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("accounts: %s: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("accounts: migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS users (
		id              TEXT    PRIMARY KEY CHECK(length(id) > 0),
		is_active       INTEGER NOT NULL DEFAULT 1 CHECK(is_active IN (0, 1)),
		current_profile TEXT    NOT NULL DEFAULT 'USER' CHECK(current_profile IN ('USER', 'ARTIST')),
		role            TEXT    NOT NULL DEFAULT 'USER',
		updated_at      TEXT    NOT NULL DEFAULT (datetime('now'))
	);`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *SQLiteStore) FindUser(ctx context.Context, userID string) (soundwave.User, error) {
	var (
		u      soundwave.User
		active int
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, is_active, current_profile, role FROM users WHERE id = ?", userID,
	).Scan(&u.ID, &active, &u.CurrentProfile, &u.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return soundwave.User{}, soundwave.ErrUserNotFound
		}
		return soundwave.User{}, fmt.Errorf("accounts: find user: %w", err)
	}
	u.IsActive = active == 1
	return u, nil
}

// Upsert inserts or replaces an account row.
func (s *SQLiteStore) Upsert(ctx context.Context, u soundwave.User) error {
	if u.ID == "" {
		return soundwave.ErrInvalidInput
	}
	if u.CurrentProfile == "" {
		u.CurrentProfile = "USER"
	}
	if u.Role == "" {
		u.Role = "USER"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, is_active, current_profile, role) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			is_active = excluded.is_active,
			current_profile = excluded.current_profile,
			role = excluded.role,
			updated_at = datetime('now')`,
		u.ID, boolToInt(u.IsActive), u.CurrentProfile, u.Role,
	)
	if err != nil {
		return fmt.Errorf("accounts: upsert user: %w", err)
	}
	return nil
}

// SetActive flips the account flag. Unknown users yield ErrUserNotFound.
func (s *SQLiteStore) SetActive(ctx context.Context, userID string, active bool) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET is_active = ?, updated_at = datetime('now') WHERE id = ?",
		boolToInt(active), userID,
	)
	if err != nil {
		return fmt.Errorf("accounts: set active: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("accounts: set active: %w", err)
	}
	if n == 0 {
		return soundwave.ErrUserNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
