package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"estekhdam/internal/identity/models"
	"estekhdam/internal/platform/postgres"
	id "estekhdam/pkg/domain"
	"estekhdam/pkg/platform/sentinel"
	"estekhdam/pkg/platform/tx"
)

// PostgresStore persists users and roles in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const userColumns = `u.id, u.full_name, u.mobile, COALESCE(u.email, ''), COALESCE(u.username, ''),
	COALESCE(u.national_id, ''), u.password_hash, u.role_id, r.name, u.is_active, u.created_at`

func (s *PostgresStore) EnsureRole(ctx context.Context, name id.Role) (models.Role, error) {
	var role models.Role
	// The no-op update makes RETURNING yield the existing row on conflict.
	err := tx.Exec(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO roles (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name`, string(name)).Scan(&role.ID, &role.Name)
	if err != nil {
		return models.Role{}, fmt.Errorf("ensure role: %w", err)
	}
	return role, nil
}

func (s *PostgresStore) Create(ctx context.Context, user *models.User) error {
	err := tx.Exec(ctx, s.db).QueryRowContext(ctx, `
		INSERT INTO users (full_name, mobile, email, username, national_id, password_hash, role_id, is_active)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8)
		RETURNING id, created_at`,
		user.FullName, user.Mobile, user.Email, user.Username, user.NationalID,
		user.PasswordHash, user.RoleID, user.IsActive,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, user *models.User) error {
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx, `
		UPDATE users SET full_name = $2, mobile = $3, email = NULLIF($4, ''), username = NULLIF($5, ''),
			national_id = NULLIF($6, ''), password_hash = $7, role_id = $8, is_active = $9
		WHERE id = $1`,
		user.ID, user.FullName, user.Mobile, user.Email, user.Username, user.NationalID,
		user.PasswordHash, user.RoleID, user.IsActive,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("update user: %w", err)
	}
	return expectOne(res)
}

func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	return s.findOne(ctx, "u.id = $1", int64(userID))
}

func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findOne(ctx, "u.username = $1", username)
}

func (s *PostgresStore) FindByNationalID(ctx context.Context, nationalID string) (*models.User, error) {
	return s.findOne(ctx, "u.national_id = $1", nationalID)
}

func (s *PostgresStore) FindByMobile(ctx context.Context, mobile string) (*models.User, error) {
	return s.findOne(ctx, "u.mobile = $1", mobile)
}

func (s *PostgresStore) findOne(ctx context.Context, where string, arg any) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u JOIN roles r ON r.id = u.role_id
		WHERE ` + where + ` ORDER BY u.id LIMIT 1`
	user, err := scanUser(tx.Exec(ctx, s.db).QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var role string
	if err := row.Scan(&u.ID, &u.FullName, &u.Mobile, &u.Email, &u.Username, &u.NationalID,
		&u.PasswordHash, &u.RoleID, &role, &u.IsActive, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Role = id.Role(role)
	return &u, nil
}

func (s *PostgresStore) SetUsername(ctx context.Context, userID id.UserID, username string) error {
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx, `UPDATE users SET username = $2 WHERE id = $1`, int64(userID), username)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("set username: %w", err)
	}
	return expectOne(res)
}

func (s *PostgresStore) UpdatePassword(ctx context.Context, userID id.UserID, hash string) error {
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, int64(userID), hash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return expectOne(res)
}

// ListLegacyCredentials narrows candidates in SQL by prefix, then applies isHashed.
func (s *PostgresStore) ListLegacyCredentials(ctx context.Context, isHashed func(string) bool) ([]models.User, error) {
	rows, err := tx.Exec(ctx, s.db).QueryContext(ctx, `SELECT `+userColumns+`
		FROM users u JOIN roles r ON r.id = u.role_id
		WHERE u.password_hash NOT LIKE '$2%' OR length(u.password_hash) <> 60
		ORDER BY u.id`)
	if err != nil {
		return nil, fmt.Errorf("list legacy credentials: %w", err)
	}
	defer rows.Close()

	var out []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		if !isHashed(u.PasswordHash) {
			out = append(out, *u)
		}
	}
	return out, rows.Err()
}

// LockMobile takes a transaction-scoped advisory lock keyed by the mobile
// number. It must run inside tx.Runner; outside a transaction it is released
// immediately and serializes nothing.
func (s *PostgresStore) LockMobile(ctx context.Context, mobile string) error {
	if _, ok := tx.From(ctx); !ok {
		return fmt.Errorf("lock mobile: %w", sentinel.ErrInvalidState)
	}
	_, err := tx.Exec(ctx, s.db).ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "mobile:"+strings.TrimSpace(mobile))
	if err != nil {
		return fmt.Errorf("lock mobile: %w", err)
	}
	return nil
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
