package sqlite

import (
	"context"
	"database/sql"
	"testing"

	"git.platform.alem.school/amibragim/buildflow/internal/shared/storetest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenInMemory("test-" + uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(context.Background(), db))
	return db
}

func TestRepositoryContract(t *testing.T) {
	db := newTestDB(t)
	storetest.Run(t, storetest.Store{
		UoW:      NewUnitOfWork(db),
		Products: NewProductsRepo(),
		Orders:   NewOrdersRepo(),
	})
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, Migrate(context.Background(), db))
}

func TestReposRequireTx(t *testing.T) {
	_, err := NewProductsRepo().Count(context.Background())
	require.ErrorIs(t, err, ErrNoTx)
}

func TestOpenFile(t *testing.T) {
	db, err := Open(t.TempDir() + "/dev.db")
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, Migrate(context.Background(), db))
}
