package messages

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/pinmail/internal/common"
	"github.com/dmitrijs2005/pinmail/internal/dbx"
	"github.com/dmitrijs2005/pinmail/internal/server/models"
	"github.com/dmitrijs2005/pinmail/internal/shared"
	"github.com/google/uuid"
)

const pgSelect = `SELECT m.id, m.hash, m.from_id, m.to_id, f.username, t.username, m.subject, m.body,
		m.encrypted, m.viewed, m.remove_on_read, m.deleted, m.created_at
	FROM messages m
	JOIN users f ON f.id = m.from_id
	JOIN users t ON t.id = m.to_id`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanPostgres(s rowScanner) (*models.Message, error) {
	m := &models.Message{}
	err := s.Scan(
		&m.ID, &m.Hash, &m.FromID, &m.ToID, &m.FromName, &m.ToName, &m.Subject, &m.Body,
		&m.Encrypted, &m.Viewed, &m.RemoveOnRead, &m.Deleted, &m.CreatedAt)
	return m, err
}

func (r *PostgresRepository) Get(ctx context.Context, ownerID, hash string) (*models.Message, error) {
	query := pgSelect + `
	WHERE m.hash = $1 AND m.to_id = $2 AND m.deleted = FALSE`

	m, err := scanPostgres(r.db.QueryRowContext(ctx, query, hash, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

func (r *PostgresRepository) Inbox(ctx context.Context, ownerID string) ([]*models.Message, error) {
	query := pgSelect + `
	WHERE m.to_id = $1 AND m.deleted = FALSE
	ORDER BY m.created_at DESC, m.id`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Message
	for rows.Next() {
		m, err := scanPostgres(rows)
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

func (r *PostgresRepository) SetViewed(ctx context.Context, id string) (bool, error) {
	n, err := dbx.ExecAffected(ctx, r.db,
		`UPDATE messages SET viewed = TRUE WHERE id = $1 AND viewed = FALSE AND deleted = FALSE`, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, ownerID, id string) error {
	n, err := dbx.ExecAffected(ctx, r.db,
		`UPDATE messages SET deleted = TRUE, body = '' WHERE id = $1 AND to_id = $2 AND deleted = FALSE`, id, ownerID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteAll(ctx context.Context, ownerID string) (int64, error) {
	n, err := dbx.ExecAffected(ctx, r.db,
		`UPDATE messages SET deleted = TRUE, body = '' WHERE to_id = $1 AND deleted = FALSE`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Send(ctx context.Context, msg *models.Message) (*models.Message, error) {
	if err := prepareNew(msg); err != nil {
		return nil, err
	}

	query :=
		`INSERT INTO messages (id, hash, from_id, to_id, subject, body, encrypted, remove_on_read)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		msg.ID, msg.Hash, msg.FromID, msg.ToID, msg.Subject, msg.Body, msg.Encrypted, msg.RemoveOnRead).
		Scan(&msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return msg, nil
}

// prepareNew assigns the id and the public hash of a new message.
func prepareNew(msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Hash == "" {
		h, err := shared.MakeRandHexString(16)
		if err != nil {
			return fmt.Errorf("message hash: %w", err)
		}
		msg.Hash = h
	}
	msg.Viewed, msg.Deleted = false, false
	return nil
}
