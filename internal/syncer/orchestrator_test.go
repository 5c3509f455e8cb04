package syncer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fekuna/omnipos-catalog-sync/internal/catalog/catalogtest"
	"github.com/fekuna/omnipos-catalog-sync/internal/checkpoint"
	"github.com/fekuna/omnipos-catalog-sync/internal/database"
	"github.com/fekuna/omnipos-catalog-sync/internal/database/dbtest"
	"github.com/fekuna/omnipos-catalog-sync/internal/image"
	"github.com/fekuna/omnipos-catalog-sync/internal/inventory/dto"
	"github.com/fekuna/omnipos-catalog-sync/internal/inventory/publisher"
	inventoryrepo "github.com/fekuna/omnipos-catalog-sync/internal/inventory/repository"
	inventoryuc "github.com/fekuna/omnipos-catalog-sync/internal/inventory/usecase"
	"github.com/fekuna/omnipos-catalog-sync/internal/logger"
	"github.com/fekuna/omnipos-catalog-sync/internal/metrics"
	"github.com/fekuna/omnipos-catalog-sync/internal/model"
	"github.com/fekuna/omnipos-catalog-sync/internal/product"
	productdto "github.com/fekuna/omnipos-catalog-sync/internal/product/dto"
	productrepo "github.com/fekuna/omnipos-catalog-sync/internal/product/repository"
	productuc "github.com/fekuna/omnipos-catalog-sync/internal/product/usecase"
)

func strPtr(s string) *string { return &s }

var cycleStart = time.Date(2026, 3, 1, 8, 11, 0, 0, time.UTC)

type fixture struct {
	db          *sqlx.DB
	remote      *catalogtest.Fake
	checkpoints *checkpoint.FileStore
	metrics     *metrics.Metrics
	orch        *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	db := dbtest.New(t)
	store := database.NewStore(db)
	store.Now = func() time.Time { return cycleStart }

	f := &fixture{
		db:          db,
		remote:      catalogtest.New(),
		checkpoints: checkpoint.NewFileStore(filepath.Join(t.TempDir(), "checkpoint.txt")),
		metrics:     metrics.New(),
	}

	products := productrepo.NewSQLRepository(store)
	f.orch = New(Deps{
		Store:       store,
		Reader:      f.remote,
		Products:    productuc.NewReconciler(products, productuc.Defaults{CategoryID: 12, SubCategoryID: 10}, logger.NewNop()),
		Drift:       inventoryuc.NewDriftUseCase(inventoryrepo.NewSQLRepository(store), f.remote, products, publisher.Noop{}, logger.NewNop()),
		Checkpoints: f.checkpoints,
		Metrics:     f.metrics,
		Logger:      logger.NewNop(),
	}, Options{
		PageSize:     100,
		ReadAttempts: 3,
		Enhanced:     dto.DriftOptions{Pass: "enhanced", BatchSize: 10, Attempts: 3, Filters: dto.CandidateFilters{InStockOnly: true, RecentFirst: true, Limit: 50}},
		Quick:        dto.DriftOptions{Pass: "quick", BatchSize: 20, Attempts: 3},
	})
	f.orch.now = func() time.Time { return cycleStart }
	f.orch.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return f
}

func (f *fixture) addShirt() {
	f.remote.AddProduct(model.RemoteProduct{
		ID:           501,
		Name:         "Linen Shirt",
		SKU:          strPtr("LS"),
		ListPrice:    200,
		Quantity:     7,
		LastModified: cycleStart.Add(-time.Hour),
	},
		model.RemoteVariant{ID: 9001, SKU: strPtr("LS-S"), Quantity: 3, ListPrice: 200},
		model.RemoteVariant{ID: 9002, SKU: strPtr("LS-M"), Quantity: 4, ListPrice: 200},
	)
}

func (f *fixture) count(t *testing.T, table string) int {
	var n int
	require.NoError(t, f.db.Get(&n, "SELECT COUNT(*) FROM "+table))
	return n
}

func TestRunCycle_SyncsAndWritesCheckpoint(t *testing.T) {
	f := newFixture(t)
	f.addShirt()

	report := f.orch.RunCycle(context.Background())

	require.NoError(t, report.Err)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, []State{StateFullSync, StateEnhancedDrift, StateQuickDrift, StateCheckpoint, StateSleep}, report.States)
	assert.Equal(t, 1, report.Full.Products)
	assert.Equal(t, 2, report.Full.Variants)
	assert.Equal(t, 1, f.count(t, "products"))
	assert.Equal(t, 2, f.count(t, "product_variants"))

	saved, err := f.checkpoints.Load()
	require.NoError(t, err)
	assert.Equal(t, cycleStart, saved)
	assert.Equal(t, cycleStart, report.Checkpoint)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ProductsReconciled.WithLabelValues("inserted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Cycles.WithLabelValues("ok")))
}

func TestRunCycle_NextCycleStartsFromCheckpoint(t *testing.T) {
	f := newFixture(t)
	f.addShirt()

	f.orch.RunCycle(context.Background())
	report := f.orch.RunCycle(context.Background())

	require.NoError(t, report.Err)
	assert.Equal(t, cycleStart, report.Full.Since)
	assert.Zero(t, report.Full.Products)
	assert.Equal(t, 1, f.remote.Calls(catalogtest.OpVariants))
}

func TestRunCycle_ReadFailureKeepsCheckpoint(t *testing.T) {
	f := newFixture(t)
	f.addShirt()
	f.remote.FailOp(catalogtest.OpProducts, 5, fmt.Errorf("status 503: %w", model.ErrTransientRead))

	report := f.orch.RunCycle(context.Background())

	require.NoError(t, report.Err)
	assert.Equal(t, 3, f.remote.Calls(catalogtest.OpProducts))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.RemoteRetries.WithLabelValues("full")))
	assert.True(t, report.Checkpoint.IsZero())
	assert.Contains(t, report.States, StateQuickDrift)

	saved, err := f.checkpoints.Load()
	require.NoError(t, err)
	assert.True(t, saved.IsZero())
}

func TestRunCycle_TransientReadRecovers(t *testing.T) {
	f := newFixture(t)
	f.addShirt()
	f.remote.FailOp(catalogtest.OpVariants, 1, model.ErrTransientRead)

	report := f.orch.RunCycle(context.Background())

	require.NoError(t, report.Err)
	assert.Equal(t, 2, report.Full.Variants)
	assert.Equal(t, cycleStart, report.Checkpoint)
}

type failingProducts struct {
	product.UseCase
	calls int
}

func (p *failingProducts) ReconcileProduct(ctx context.Context, rp model.RemoteProduct, variants []model.RemoteVariant, values []model.RemoteAttributeValue) (*productdto.ProductResult, error) {
	p.calls++
	return &productdto.ProductResult{RemoteID: rp.ID}, fmt.Errorf("upsert product %d: duplicate slug", rp.ID)
}

func TestRunCycle_ProductFailureStillAdvancesCheckpoint(t *testing.T) {
	f := newFixture(t)
	f.addShirt()
	products := &failingProducts{}
	f.orch.Products = products

	report := f.orch.RunCycle(context.Background())

	require.NoError(t, report.Err)
	assert.Equal(t, 1, products.calls)
	assert.Equal(t, 1, report.Full.Failed)
	assert.Equal(t, cycleStart, report.Checkpoint)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ProductsReconciled.WithLabelValues("failed")))

	saved, err := f.checkpoints.Load()
	require.NoError(t, err)
	assert.Equal(t, cycleStart, saved)
}

type downStore struct{}

func (downStore) Ping(ctx context.Context) error {
	return fmt.Errorf("dial tcp: %w", model.ErrConnection)
}

func TestRunCycle_ConnectionLossAborts(t *testing.T) {
	f := newFixture(t)
	f.addShirt()
	var changes []bool
	f.orch.Store = downStore{}
	f.orch.Health = NewHealth(func(ok bool) { changes = append(changes, ok) })

	report := f.orch.RunCycle(context.Background())

	assert.ErrorIs(t, report.Err, model.ErrConnection)
	assert.Empty(t, report.States)
	assert.False(t, f.orch.Health.Healthy())
	assert.Equal(t, []bool{false}, changes)
	assert.Zero(t, f.remote.Calls(catalogtest.OpProducts))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Cycles.WithLabelValues("aborted")))
}

func TestRunCycle_RecoveredStoreRestoresHealth(t *testing.T) {
	f := newFixture(t)
	store := f.orch.Store
	f.orch.Store = downStore{}
	f.orch.RunCycle(context.Background())
	require.False(t, f.orch.Health.Healthy())

	f.orch.Store = store
	report := f.orch.RunCycle(context.Background())

	require.NoError(t, report.Err)
	assert.True(t, f.orch.Health.Healthy())
}

type stubLocker struct {
	held     bool
	acquired int
	released int
}

func (l *stubLocker) AcquireLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if l.held {
		return false, nil
	}
	l.acquired++
	return true, nil
}

func (l *stubLocker) ReleaseLock(ctx context.Context, key, value string) (bool, error) {
	l.released++
	return true, nil
}

func TestRunCycle_LockHeldSkips(t *testing.T) {
	f := newFixture(t)
	f.addShirt()
	f.orch.Locker = &stubLocker{held: true}

	report := f.orch.RunCycle(context.Background())

	assert.True(t, report.Skipped)
	assert.Empty(t, report.States)
	assert.Zero(t, f.count(t, "products"))
}

func TestRunCycle_LockReleased(t *testing.T) {
	f := newFixture(t)
	locker := &stubLocker{}
	f.orch.Locker = locker

	report := f.orch.RunCycle(context.Background())

	require.NoError(t, report.Err)
	assert.Equal(t, 1, locker.acquired)
	assert.Equal(t, 1, locker.released)
}

type stubImages struct {
	calls int
	err   error
}

func (s *stubImages) Check(ctx context.Context, limit int) (*image.Result, error) {
	s.calls++
	return &image.Result{Checked: limit, Updated: 1}, s.err
}

func TestRunCycle_ImageCheckOnSchedule(t *testing.T) {
	f := newFixture(t)
	images := &stubImages{err: errors.New("remote down")}
	f.orch.Images = images
	f.orch.opts.ImageEvery = 5
	f.orch.opts.ImageLimit = 20

	f.orch.now = func() time.Time { return cycleStart } // minute 11
	report := f.orch.RunCycle(context.Background())
	assert.NotContains(t, report.States, StateImageCheck)
	assert.Zero(t, images.calls)

	f.orch.now = func() time.Time { return cycleStart.Add(4 * time.Minute) }
	report = f.orch.RunCycle(context.Background())
	require.NoError(t, report.Err)
	assert.Contains(t, report.States, StateImageCheck)
	assert.Equal(t, 1, images.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ImagesUpdated))
	assert.Contains(t, report.States, StateCheckpoint)
}

type countingScheduler struct{ waits int }

func (s *countingScheduler) Wait(ctx context.Context) error {
	s.waits++
	return ctx.Err()
}

func TestRun_StopsAfterMaxCycles(t *testing.T) {
	f := newFixture(t)
	sched := &countingScheduler{}

	require.NoError(t, f.orch.Run(context.Background(), sched, 3))

	assert.Equal(t, 2, sched.waits)
	assert.Equal(t, 3.0, testutil.ToFloat64(f.metrics.Cycles.WithLabelValues("ok")))
}

func TestRun_StopsOnCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.orch.Run(ctx, IntervalScheduler{Interval: time.Hour}, 0)

	assert.ErrorIs(t, err, context.Canceled)
}
