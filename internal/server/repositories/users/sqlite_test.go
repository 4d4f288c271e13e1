package users

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dmitrijs2005/pinmail/internal/common"
	"github.com/dmitrijs2005/pinmail/internal/server/migrations"
	"github.com/dmitrijs2005/pinmail/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func newSQLiteRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, migrations.Up(context.Background(), db, "sqlite"))
	return NewSQLiteRepository(db)
}

func TestSQLite_CreateAndGet(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	u, err := repo.Create(ctx, &models.User{UserName: "alice", Salt: []byte("salt"), PublicKey: []byte("pub"), PrivateKey: []byte("sealed")})
	require.NoError(t, err)
	require.NotEmpty(t, u.ID)

	byName, err := repo.GetByName(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)
	assert.Equal(t, []byte("sealed"), byName.PrivateKey)
	assert.WithinDuration(t, u.CreatedAt, byName.CreatedAt, 0)

	byID, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.UserName)

	_, err = repo.GetByName(ctx, "nobody")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSQLite_DuplicateName(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, &models.User{UserName: "alice", Salt: []byte("s"), PublicKey: []byte("p"), PrivateKey: []byte("k")})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &models.User{UserName: "alice", Salt: []byte("s"), PublicKey: []byte("p"), PrivateKey: []byte("k")})
	assert.Error(t, err)
}

func TestSQLite_Keys(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	u, err := repo.Create(ctx, &models.User{UserName: "carol", Salt: []byte("s1"), PublicKey: []byte("p1"), PrivateKey: []byte("k1")})
	require.NoError(t, err)

	keys, err := repo.GetMessageKeys(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("s1"), keys.Salt)

	require.NoError(t, repo.UpdateKeys(ctx, u.ID, &models.MessageKeys{Salt: []byte("s2"), PublicKey: []byte("p2"), PrivateKey: []byte("k2")}))
	keys, err = repo.GetMessageKeys(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("s2"), keys.Salt)
	assert.Equal(t, []byte("k2"), keys.PrivateKey)

	assert.ErrorIs(t, repo.UpdateKeys(ctx, "ghost", keys), common.ErrorNotFound)
	_, err = repo.GetMessageKeys(ctx, "ghost")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
