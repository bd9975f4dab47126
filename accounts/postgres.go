package accounts

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/MrEthical07/soundwave"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore reads accounts from the platform's users table.
//
// The pool is owned by the caller; the store never closes it. Table and
// column names are validated identifiers and quoted when the query is built.
type PostgresStore struct {
	pool  *pgxpool.Pool
	query string
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*pgTable) error

type pgTable struct {
	schema, table                         string
	idCol, activeCol, profileCol, roleCol string
	idType                                string
}

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

var pgIDTypes = map[string]struct{}{
	"text": {}, "varchar": {}, "uuid": {}, "bigint": {}, "integer": {}, "int8": {}, "int4": {},
}

// WithTable overrides the default "public"."users" table.
func WithTable(schema, table string) PostgresOption {
	return func(t *pgTable) error {
		schema, table = strings.TrimSpace(schema), strings.TrimSpace(table)
		if !pgIdentRe.MatchString(schema) || !pgIdentRe.MatchString(table) {
			return fmt.Errorf("accounts: invalid table identifier %q.%q", schema, table)
		}
		t.schema, t.table = schema, table
		return nil
	}
}

// WithColumns overrides the id, is_active, current_profile and role columns.
func WithColumns(id, active, profile, role string) PostgresOption {
	return func(t *pgTable) error {
		for _, c := range []string{id, active, profile, role} {
			if !pgIdentRe.MatchString(c) {
				return fmt.Errorf("accounts: invalid column identifier %q", c)
			}
		}
		t.idCol, t.activeCol, t.profileCol, t.roleCol = id, active, profile, role
		return nil
	}
}

func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	if pool == nil {
		return nil, errors.New("accounts: nil pool")
	}
	t := pgTable{
		schema:     "public",
		table:      "users",
		idCol:      "id",
		activeCol:  "is_active",
		profileCol: "current_profile",
		roleCol:    "role",
		idType:     "text",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&t); err != nil {
			return nil, err
		}
	}
	return &PostgresStore{pool: pool, query: t.selectQuery()}, nil
}

// WithIDType sets the SQL type of the id column (default text). The user ID
// parameter is cast to it so the lookup stays on the primary-key index.
func WithIDType(typ string) PostgresOption {
	return func(t *pgTable) error {
		typ = strings.ToLower(strings.TrimSpace(typ))
		if _, ok := pgIDTypes[typ]; !ok {
			return fmt.Errorf("accounts: unsupported id type %q", typ)
		}
		t.idType = typ
		return nil
	}
}

func (t pgTable) selectQuery() string {
	q := pgx.Identifier.Sanitize
	return fmt.Sprintf(
		"SELECT %s::text, %s, COALESCE(%s, ''), COALESCE(%s, '') FROM %s WHERE %s = $1::%s",
		q(pgx.Identifier{t.idCol}),
		q(pgx.Identifier{t.activeCol}),
		q(pgx.Identifier{t.profileCol}),
		q(pgx.Identifier{t.roleCol}),
		q(pgx.Identifier{t.schema, t.table}),
		q(pgx.Identifier{t.idCol}),
		t.idType,
	)
}

func (s *PostgresStore) FindUser(ctx context.Context, userID string) (soundwave.User, error) {
	var u soundwave.User
	err := s.pool.QueryRow(ctx, s.query, userID).Scan(&u.ID, &u.IsActive, &u.CurrentProfile, &u.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return soundwave.User{}, soundwave.ErrUserNotFound
		}
		return soundwave.User{}, fmt.Errorf("accounts: find user: %w", err)
	}
	return u, nil
}
