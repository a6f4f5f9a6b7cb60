package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"estekhdam/pkg/platform/sentinel"
	"estekhdam/pkg/platform/tx"
)

// PostgresStore persists settings rows as JSONB.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, key string) (json.RawMessage, error) {
	var raw []byte
	err := tx.Exec(ctx, s.db).QueryRowContext(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get setting: %w", err)
	}
	return json.RawMessage(raw), nil
}

func (s *PostgresStore) InsertIfAbsent(ctx context.Context, key string, value json.RawMessage) (bool, error) {
	res, err := tx.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO NOTHING`, key, []byte(value))
	if err != nil {
		return false, fmt.Errorf("insert setting: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}
