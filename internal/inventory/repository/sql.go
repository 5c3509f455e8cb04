package repository

import (
	"context"

	"github.com/fekuna/omnipos-catalog-sync/internal/database"
	"github.com/fekuna/omnipos-catalog-sync/internal/inventory"
	"github.com/fekuna/omnipos-catalog-sync/internal/inventory/dto"
	"github.com/fekuna/omnipos-catalog-sync/internal/model"
)

const productsTable = "products"

var candidateColumns = []string{"id", "remote_key_id", "name", "qty", "updated_at"}

type SQLRepository struct {
	store *database.Store
}

var _ inventory.Repository = (*SQLRepository)(nil)

func NewSQLRepository(store *database.Store) *SQLRepository {
	return &SQLRepository{store: store}
}

func (r *SQLRepository) ListCandidates(ctx context.Context, f dto.CandidateFilters) ([]model.StockCandidate, error) {
	where := database.Present("remote_key_id")
	if f.InStockOnly {
		where = where.And(database.Raw("qty > ?", 0))
	}

	opts := database.QueryOptions{OrderBy: "id", Limit: f.Limit}
	if f.RecentFirst {
		opts.OrderBy = "updated_at DESC, id DESC"
	}

	var rows []model.StockCandidate
	if err := r.store.GetAll(ctx, &rows, productsTable, candidateColumns, where, opts); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *SQLRepository) SetQuantity(ctx context.Context, productID, qty int64) error {
	_, err := r.store.Update(ctx, productsTable, database.Eq("id", productID), database.Fields{"qty": qty})
	return err
}

func (r *SQLRepository) GetQuantity(ctx context.Context, productID int64) (int64, bool, error) {
	var row struct {
		Qty int64 `db:"qty"`
	}
	found, err := r.store.GetOne(ctx, &row, productsTable, []string{"qty"}, database.Eq("id", productID))
	return row.Qty, found, err
}
