package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/pinmail/internal/common"
	"github.com/dmitrijs2005/pinmail/internal/dbx"
	"github.com/dmitrijs2005/pinmail/internal/server/models"
	"github.com/google/uuid"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO users (id, username, salt, public_key, private_key)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.UserName, user.Salt, user.PublicKey, user.PrivateKey).Scan(&user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query :=
		`SELECT id, username, salt, public_key, private_key, created_at FROM users
		 WHERE id = $1`

	return r.getOne(ctx, query, id)
}

func (r *PostgresRepository) GetByName(ctx context.Context, userName string) (*models.User, error) {
	query :=
		`SELECT id, username, salt, public_key, private_key, created_at FROM users
		 WHERE username = $1`

	return r.getOne(ctx, query, userName)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&user.ID, &user.UserName, &user.Salt, &user.PublicKey, &user.PrivateKey, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) GetMessageKeys(ctx context.Context, userID string) (*models.MessageKeys, error) {
	query :=
		`SELECT salt, public_key, private_key FROM users
		 WHERE id = $1`

	keys := &models.MessageKeys{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&keys.Salt, &keys.PublicKey, &keys.PrivateKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return keys, nil
}

func (r *PostgresRepository) UpdateKeys(ctx context.Context, userID string, keys *models.MessageKeys) error {
	query :=
		`UPDATE users SET salt = $1, public_key = $2, private_key = $3
		 WHERE id = $4`

	n, err := dbx.ExecAffected(ctx, r.db, query, keys.Salt, keys.PublicKey, keys.PrivateKey, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
