package messages

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/pinmail/internal/common"
	"github.com/dmitrijs2005/pinmail/internal/dbx"
	"github.com/dmitrijs2005/pinmail/internal/server/models"
)

const sqliteSelect = `SELECT m.id, m.hash, m.from_id, m.to_id, f.username, t.username, m.subject, m.body,
		m.encrypted, m.viewed, m.remove_on_read, m.deleted, m.created_at
	FROM messages m
	JOIN users f ON f.id = m.from_id
	JOIN users t ON t.id = m.to_id`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func scanSQLite(s rowScanner) (*models.Message, error) {
	m := &models.Message{}
	var created int64
	if err := s.Scan(
		&m.ID, &m.Hash, &m.FromID, &m.ToID, &m.FromName, &m.ToName, &m.Subject, &m.Body,
		&m.Encrypted, &m.Viewed, &m.RemoveOnRead, &m.Deleted, &created); err != nil {
		return nil, err
	}
	m.CreatedAt = time.Unix(0, created).UTC()
	return m, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, ownerID, hash string) (*models.Message, error) {
	m, err := scanSQLite(r.db.QueryRowContext(ctx,
		sqliteSelect+` WHERE m.hash = ? AND m.to_id = ? AND m.deleted = 0`, hash, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

func (r *SQLiteRepository) Inbox(ctx context.Context, ownerID string) ([]*models.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		sqliteSelect+` WHERE m.to_id = ? AND m.deleted = 0 ORDER BY m.created_at DESC, m.id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Message
	for rows.Next() {
		m, err := scanSQLite(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) SetViewed(ctx context.Context, id string) (bool, error) {
	n, err := dbx.ExecAffected(ctx, r.db,
		`UPDATE messages SET viewed = 1 WHERE id = ? AND viewed = 0 AND deleted = 0`, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, ownerID, id string) error {
	n, err := dbx.ExecAffected(ctx, r.db,
		`UPDATE messages SET deleted = 1, body = '' WHERE id = ? AND to_id = ? AND deleted = 0`, id, ownerID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context, ownerID string) (int64, error) {
	n, err := dbx.ExecAffected(ctx, r.db,
		`UPDATE messages SET deleted = 1, body = '' WHERE to_id = ? AND deleted = 0`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Send(ctx context.Context, msg *models.Message) (*models.Message, error) {
	if err := prepareNew(msg); err != nil {
		return nil, err
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO messages (id, hash, from_id, to_id, subject, body, encrypted, remove_on_read, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.Hash, msg.FromID, msg.ToID, msg.Subject, msg.Body, msg.Encrypted, msg.RemoveOnRead,
		msg.CreatedAt.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return msg, nil
}
