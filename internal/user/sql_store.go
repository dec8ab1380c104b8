package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"authgate/pkg/db"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const pqUniqueViolation = "23505"

type SQLStore struct {
	db db.SQLExecutor
}

func NewSQLStore(executor db.SQLExecutor) *SQLStore {
	return &SQLStore{db: executor}
}

func (s *SQLStore) FindByExternalID(ctx context.Context, externalID string) (*User, error) {
	query := s.db.Rebind(`
		SELECT id, email, name, google_id, role, color, picture
		FROM users
		WHERE google_id = ?
	`)

	var (
		u    User
		name sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, externalID).Scan(
		&u.ID,
		&u.Email,
		&name,
		&u.ExternalID,
		&u.Role,
		&u.Color,
		&u.Picture,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user by google id: %w", err)
	}

	if name.Valid {
		u.Name = &name.String
	}
	return &u, nil
}

func (s *SQLStore) Create(ctx context.Context, u *User) error {
	query := s.db.Rebind(`
		INSERT INTO users (id, email, name, google_id, role, color, picture)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)

	var name sql.NullString
	if u.Name != nil {
		name = sql.NullString{String: *u.Name, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		u.ID,
		u.Email,
		name,
		u.ExternalID,
		u.Role,
		u.Color,
		u.Picture,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateExternalID, u.ExternalID)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqUniqueViolation
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT &&
			strings.Contains(sqliteErr.Error(), "UNIQUE constraint failed")
	}
	return false
}
