package adapter

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/roomshare/roomshare-api/internal/account/app"
	"github.com/roomshare/roomshare-api/internal/domain"
)

// Compile-time check: SQLiteUserStore satisfies app.UserStore.
var _ app.UserStore = (*SQLiteUserStore)(nil)

const usersSchema = `
CREATE TABLE IF NOT EXISTS users (
	user_id       TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL UNIQUE,
	phone         TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL,
	created_at    INTEGER NOT NULL,
	updated_at    INTEGER NOT NULL
);`

const userColumns = `user_id, name, email, phone, password_hash, role, created_at, updated_at`

// SQLiteUserStore is the default Credential Store.
type SQLiteUserStore struct {
	db      *sql.DB
	timeout time.Duration
}

// OpenSQLiteUserStore opens (or creates) the database at path and ensures the
// users table exists.
func OpenSQLiteUserStore(ctx context.Context, path string) (*SQLiteUserStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	// A single connection keeps ":memory:" databases shared and serializes
	// writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, usersSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init users schema: %w", err)
	}
	return &SQLiteUserStore{db: db, timeout: domain.StoreTimeout}, nil
}

// Close releases the database handle.
func (s *SQLiteUserStore) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *SQLiteUserStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Create inserts a new user. Returns domain.ErrAlreadyExists when the email
// or id is taken.
func (s *SQLiteUserStore) Create(ctx context.Context, user app.UserRecord) error {
	ctx, span := s.start(ctx, "sqlite.users.create", "INSERT")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.UserID, user.Name, user.Email, user.Phone, user.PasswordHash,
		string(user.Role), user.CreatedAt.Unix(), user.UpdatedAt.Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user store: create: %w", domain.ErrAlreadyExists)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("user store: create: %w", err)
	}
	return nil
}

// GetByID retrieves a user by id. Returns domain.ErrNotFound when missing.
func (s *SQLiteUserStore) GetByID(ctx context.Context, userID string) (*app.UserRecord, error) {
	ctx, span := s.start(ctx, "sqlite.users.get_by_id", "SELECT")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = ?`, userID)
	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("user store: get by id: %w", err)
	}
	return user, nil
}

// FindByEmail retrieves a user by normalized email. Returns domain.ErrNotFound
// when missing.
func (s *SQLiteUserStore) FindByEmail(ctx context.Context, email string) (*app.UserRecord, error) {
	ctx, span := s.start(ctx, "sqlite.users.find_by_email", "SELECT")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("user store: find by email: %w", err)
	}
	return user, nil
}

// Update overwrites the mutable fields of an existing user.
func (s *SQLiteUserStore) Update(ctx context.Context, user app.UserRecord) error {
	ctx, span := s.start(ctx, "sqlite.users.update", "UPDATE")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET name = ?, email = ?, phone = ?, password_hash = ?, role = ?, updated_at = ?
		 WHERE user_id = ?`,
		user.Name, user.Email, user.Phone, user.PasswordHash, string(user.Role),
		user.UpdatedAt.Unix(), user.UserID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user store: update: %w", domain.ErrAlreadyExists)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("user store: update: %w", err)
	}
	return requireOneRow(res, "update")
}

// Delete removes a user. Returns domain.ErrNotFound when missing.
func (s *SQLiteUserStore) Delete(ctx context.Context, userID string) error {
	ctx, span := s.start(ctx, "sqlite.users.delete", "DELETE")
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE user_id = ?`, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("user store: delete: %w", err)
	}
	return requireOneRow(res, "delete")
}

func (s *SQLiteUserStore) start(ctx context.Context, name, op string) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, name)
	span.SetAttributes(
		attribute.String("db.system", "sqlite"),
		attribute.String("db.operation", op),
	)
	return ctx, span
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*app.UserRecord, error) {
	var (
		u                app.UserRecord
		role             string
		created, updated int64
	)
	err := row.Scan(&u.UserID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash, &role, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	u.CreatedAt = time.Unix(created, 0).UTC()
	u.UpdatedAt = time.Unix(updated, 0).UTC()
	return &u, nil
}

func requireOneRow(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("user store: %s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("user store: %s: %w", op, domain.ErrNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	code := se.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
