package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/pinmail/internal/common"
	"github.com/dmitrijs2005/pinmail/internal/dbx"
	"github.com/dmitrijs2005/pinmail/internal/server/models"
	"github.com/google/uuid"
)

// SQLiteRepository stores created_at as unix nanoseconds.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, salt, public_key, private_key, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID, user.UserName, user.Salt, user.PublicKey, user.PrivateKey, user.CreatedAt.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, `SELECT id, username, salt, public_key, private_key, created_at FROM users WHERE id = ?`, id)
}

func (r *SQLiteRepository) GetByName(ctx context.Context, userName string) (*models.User, error) {
	return r.getOne(ctx, `SELECT id, username, salt, public_key, private_key, created_at FROM users WHERE username = ?`, userName)
}

func (r *SQLiteRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}
	var created int64
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&user.ID, &user.UserName, &user.Salt, &user.PublicKey, &user.PrivateKey, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	user.CreatedAt = time.Unix(0, created).UTC()
	return user, nil
}

func (r *SQLiteRepository) GetMessageKeys(ctx context.Context, userID string) (*models.MessageKeys, error) {
	keys := &models.MessageKeys{}
	err := r.db.QueryRowContext(ctx, `SELECT salt, public_key, private_key FROM users WHERE id = ?`, userID).
		Scan(&keys.Salt, &keys.PublicKey, &keys.PrivateKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return keys, nil
}

func (r *SQLiteRepository) UpdateKeys(ctx context.Context, userID string, keys *models.MessageKeys) error {
	n, err := dbx.ExecAffected(ctx, r.db,
		`UPDATE users SET salt = ?, public_key = ?, private_key = ? WHERE id = ?`,
		keys.Salt, keys.PublicKey, keys.PrivateKey, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
