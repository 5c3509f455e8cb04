package database_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fekuna/omnipos-catalog-sync/internal/database"
	"github.com/fekuna/omnipos-catalog-sync/internal/database/dbtest"
	"github.com/fekuna/omnipos-catalog-sync/internal/logger"
	"github.com/fekuna/omnipos-catalog-sync/internal/model"
)

type variantRow struct {
	ID     int64  `db:"id"`
	SKU    string `db:"sku"`
	Name   string `db:"name"`
	Stock  int64  `db:"stock"`
	Status int    `db:"status"`
}

var variantCols = []string{"id", "sku", "name", "stock", "status"}

func newStore(t *testing.T) *database.Store {
	s := database.NewStore(dbtest.New(t))
	s.Now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return s
}

func TestStore_UpsertInsertsThenUpdates(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	insert := database.Fields{"product_id": 1, "sku": "A", "name": "first", "stock": 3, "status": 0}
	update := database.Fields{"name": "second", "stock": 5}
	where := database.Eq("sku", "A")

	var row variantRow
	inserted, found, err := s.Upsert(ctx, &row, "product_variants", variantCols, insert, update, where)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.True(t, found)
	assert.NotZero(t, row.ID)
	assert.Equal(t, "first", row.Name)

	var again variantRow
	inserted, found, err = s.Upsert(ctx, &again, "product_variants", variantCols, insert, update, where)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.True(t, found)
	assert.Equal(t, row.ID, again.ID)
	assert.Equal(t, "second", again.Name)
	assert.Equal(t, int64(5), again.Stock)

	var count int
	require.NoError(t, s.DB.Get(&count, "SELECT count(*) FROM product_variants"))
	assert.Equal(t, 1, count)
}

func TestStore_UpsertUnchangedDoesNotWrite(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	insert := database.Fields{"product_id": 1, "sku": "A", "name": "same", "stock": 3, "remote_key_id": nil}
	update := database.Fields{"name": "same", "stock": 3}
	where := database.Eq("sku", "A")

	var row variantRow
	_, _, err := s.Upsert(ctx, &row, "product_variants", variantCols, insert, update, where)
	require.NoError(t, err)

	later := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	s.Now = func() time.Time { return later }
	_, _, err = s.Upsert(ctx, &row, "product_variants", variantCols, insert, update, where)
	require.NoError(t, err)

	var stamp time.Time
	require.NoError(t, s.DB.Get(&stamp, "SELECT updated_at FROM product_variants WHERE sku = 'A'"))
	assert.True(t, stamp.Before(later))

	n, err := s.Update(ctx, "product_variants", where.And(database.Differs(database.Fields{"remote_key_id": "v-1"})), database.Fields{"remote_key_id": "v-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "NULL differs from a value")
}

func TestStore_QuotesAreBoundNotSpliced(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	sku := `it's "quoted"`
	require.NoError(t, s.Insert(ctx, "product_variants", database.Fields{"product_id": 1, "sku": sku, "name": "o'neil"}))

	var row variantRow
	found, err := s.GetOne(ctx, &row, "product_variants", variantCols, database.Eq("sku", sku))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "o'neil", row.Name)
}

func TestStore_UpdateNotInAndAffectedRows(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	for _, sku := range []string{"A", "B", "C"} {
		require.NoError(t, s.Insert(ctx, "product_variants", database.Fields{"product_id": 9, "sku": sku, "status": 1}))
	}

	n, err := s.Update(ctx, "product_variants",
		database.Eq("product_id", 9).And(database.NotIn("sku", []string{"A"})),
		database.Fields{"status": 0},
	)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	var rows []variantRow
	require.NoError(t, s.GetAll(ctx, &rows, "product_variants", variantCols, database.Eq("status", 1), database.QueryOptions{OrderBy: "sku"}))
	require.Len(t, rows, 1)
	assert.Equal(t, "A", rows[0].SKU)
}

func TestStore_GetOneMissing(t *testing.T) {
	s := newStore(t)

	var row variantRow
	found, err := s.GetOne(context.Background(), &row, "product_variants", variantCols, database.Eq("sku", "nope"))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestStore_PingClosed(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Ping(context.Background()))

	require.NoError(t, s.DB.Close())
	err := s.Ping(context.Background())
	assert.True(t, errors.Is(err, model.ErrConnection))
}

func TestMigrate_BestEffortAndRepeatable(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)

	first := database.Migrate(ctx, db, logger.NewNop())
	assert.Positive(t, first)

	// users gained the column; orders does not exist and was skipped.
	_, err := db.Exec("INSERT INTO users (email, remote_key_id) VALUES ('a@b.c', '77')")
	require.NoError(t, err)

	assert.NotPanics(t, func() { database.Migrate(ctx, db, logger.NewNop()) })
}

func TestDSN(t *testing.T) {
	dsn, err := database.DSN(&database.Config{Driver: "mysql", Host: "db", Port: "3306", User: "u", Password: "p", DBName: "shop"})
	require.NoError(t, err)
	assert.Contains(t, dsn, "tcp(db:3306)/shop")
	assert.Contains(t, dsn, "parseTime=true")

	_, err = database.DSN(&database.Config{Driver: "oracle"})
	assert.Error(t, err)
}
