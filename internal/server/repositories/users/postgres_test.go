package users

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/pinmail/internal/common"
	"github.com/dmitrijs2005/pinmail/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresRepository(db), mock, db
}

const (
	insertQ = `(?s)^INSERT\s+INTO\s+users\s*\(id,\s*username,\s*salt,\s*public_key,\s*private_key\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5\)\s*RETURNING\s+created_at$`
	byIDQ   = `(?s)^SELECT\s+id,\s*username,\s*salt,\s*public_key,\s*private_key,\s*created_at\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1$`
	byNameQ = `(?s)^SELECT\s+id,\s*username,\s*salt,\s*public_key,\s*private_key,\s*created_at\s+FROM\s+users\s+WHERE\s+username\s*=\s*\$1$`
	keysQ   = `(?s)^SELECT\s+salt,\s*public_key,\s*private_key\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1$`
	updateQ = `(?s)^UPDATE\s+users\s+SET\s+salt\s*=\s*\$1,\s*public_key\s*=\s*\$2,\s*private_key\s*=\s*\$3\s+WHERE\s+id\s*=\s*\$4$`
)

var userCols = []string{"id", "username", "salt", "public_key", "private_key", "created_at"}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(insertQ).
		WithArgs("u-1", "alice", []byte("salt"), []byte("pub"), []byte("priv")).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(now))

	u := &models.User{ID: "u-1", UserName: "alice", Salt: []byte("salt"), PublicKey: []byte("pub"), PrivateKey: []byte("priv")}
	got, err := repo.Create(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)
	assert.Equal(t, now, got.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_GeneratesID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQ).
		WithArgs(sqlmock.AnyArg(), "bob", []byte("s"), []byte("p"), []byte("k")).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	got, err := repo.Create(context.Background(), &models.User{UserName: "bob", Salt: []byte("s"), PublicKey: []byte("p"), PrivateKey: []byte("k")})
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQ).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{ID: "x", UserName: "alice"})
	require.Error(t, err)
	assert.Regexp(t, `db error: .*db down`, err.Error())
}

func TestGetByName_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(byNameQ).WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow("u-1", "alice", []byte("s"), []byte("p"), []byte("k"), time.Now()))

	got, err := repo.GetByName(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.ID)
	assert.Equal(t, []byte("p"), got.PublicKey)
}

func TestGetByID_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(byIDQ).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGetMessageKeys(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(keysQ).WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"salt", "public_key", "private_key"}).AddRow([]byte("s"), []byte("p"), []byte("k")))
	mock.ExpectQuery(keysQ).WithArgs("ghost").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(keysQ).WithArgs("u-2").WillReturnError(errors.New("conn reset"))

	keys, err := repo.GetMessageKeys(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, &models.MessageKeys{Salt: []byte("s"), PublicKey: []byte("p"), PrivateKey: []byte("k")}, keys)

	_, err = repo.GetMessageKeys(context.Background(), "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = repo.GetMessageKeys(context.Background(), "u-2")
	assert.Regexp(t, `db error: .*conn reset`, err.Error())
}

func TestUpdateKeys(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	keys := &models.MessageKeys{Salt: []byte("s2"), PublicKey: []byte("p2"), PrivateKey: []byte("k2")}
	mock.ExpectExec(updateQ).WithArgs([]byte("s2"), []byte("p2"), []byte("k2"), "u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(updateQ).WithArgs([]byte("s2"), []byte("p2"), []byte("k2"), "ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpdateKeys(context.Background(), "u-1", keys))
	assert.ErrorIs(t, repo.UpdateKeys(context.Background(), "ghost", keys), common.ErrorNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
