// Package syncer drives the repeating sync cycle.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-catalog-sync/internal/catalog"
	"github.com/fekuna/omnipos-catalog-sync/internal/checkpoint"
	"github.com/fekuna/omnipos-catalog-sync/internal/image"
	"github.com/fekuna/omnipos-catalog-sync/internal/inventory"
	"github.com/fekuna/omnipos-catalog-sync/internal/inventory/dto"
	"github.com/fekuna/omnipos-catalog-sync/internal/logger"
	"github.com/fekuna/omnipos-catalog-sync/internal/metrics"
	"github.com/fekuna/omnipos-catalog-sync/internal/model"
	"github.com/fekuna/omnipos-catalog-sync/internal/product"
	productdto "github.com/fekuna/omnipos-catalog-sync/internal/product/dto"
	"github.com/fekuna/omnipos-catalog-sync/internal/retry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type State string

const (
	StateFullSync      State = "FULL_SYNC"
	StateEnhancedDrift State = "ENHANCED_DRIFT_CHECK"
	StateQuickDrift    State = "QUICK_DRIFT_CHECK"
	StateImageCheck    State = "IMAGE_CHECK"
	StateCheckpoint    State = "CHECKPOINT_WRITE"
	StateSleep         State = "SLEEP"
)

const LockKey = "lock:catalogsync:cycle"

type Pinger interface {
	Ping(ctx context.Context) error
}

type Locker interface {
	AcquireLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, value string) (bool, error)
}

type ImageChecker interface {
	Check(ctx context.Context, limit int) (*image.Result, error)
}

type Options struct {
	PageSize     int
	ReadAttempts int
	ReadDelay    time.Duration
	Enhanced     dto.DriftOptions
	Quick        dto.DriftOptions
	ImageEvery   int // minutes; 0 disables the image check
	ImageLimit   int
	LockTTL      time.Duration
}

// Deps are the collaborators of an Orchestrator. Locker and Images may be nil.
type Deps struct {
	Store       Pinger
	Reader      catalog.Reader
	Products    product.UseCase
	Drift       inventory.UseCase
	Images      ImageChecker
	Checkpoints checkpoint.Store
	Locker      Locker
	Metrics     *metrics.Metrics
	Health      *Health
	Logger      logger.ZapLogger
}

type Orchestrator struct {
	Deps
	opts Options

	now   func() time.Time
	sleep retry.SleepFunc
}

func New(deps Deps, opts Options) *Orchestrator {
	if deps.Health == nil {
		deps.Health = NewHealth(nil)
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	return &Orchestrator{Deps: deps, opts: opts, now: time.Now, sleep: retry.Sleep}
}

type FullSyncReport struct {
	Since    time.Time
	Products int
	Variants int
	Values   int
	Failed   int
}

type CycleReport struct {
	RunID      string
	Skipped    bool
	States     []State
	Full       *FullSyncReport
	Enhanced   *dto.DriftResult
	Quick      *dto.DriftResult
	Images     *image.Result
	Checkpoint time.Time
	// Err is set when the cycle was aborted.
	Err error
}

// Run executes cycles until ctx is done or maxCycles cycles have run. A
// maxCycles of 0 means no limit.
func (o *Orchestrator) Run(ctx context.Context, sched Scheduler, maxCycles int) error {
	for n := 1; maxCycles == 0 || n <= maxCycles; n++ {
		o.RunCycle(ctx)
		if err := ctx.Err(); err != nil {
			return err
		}
		if n == maxCycles {
			break
		}
		if err := sched.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// RunCycle runs FULL_SYNC, both drift passes, the image check when due, and
// writes the checkpoint. Only a lost store connection or cancellation aborts
// it early.
func (o *Orchestrator) RunCycle(ctx context.Context) *CycleReport {
	start := o.now()
	report := &CycleReport{RunID: uuid.NewString()}
	log := o.Logger.With(zap.String("run_id", report.RunID))

	if o.Locker != nil {
		token := uuid.NewString()
		ok, err := o.Locker.AcquireLock(ctx, LockKey, token, o.opts.LockTTL)
		if err != nil || !ok {
			log.Info("another cycle holds the lock, skipping", zap.Error(err))
			report.Skipped = true
			o.Metrics.ObserveCycle("skipped", o.now().Sub(start))
			return report
		}
		defer func() {
			// ctx may already be cancelled; the release must still go out.
			rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if _, err := o.Locker.ReleaseLock(rctx, LockKey, token); err != nil {
				log.Warn("lock release failed", zap.Error(err))
			}
		}()
	}

	if err := o.Store.Ping(ctx); err != nil {
		return o.abort(log, report, start, err)
	}

	enter := func(s State) {
		report.States = append(report.States, s)
		log.Debug("state", zap.String("state", string(s)))
	}

	enter(StateFullSync)
	full, err := o.FullSync(ctx, log)
	report.Full = full
	if err != nil {
		if err = o.classify(ctx, err); isFatal(err) {
			return o.abort(log, report, start, err)
		}
		log.Error("full sync failed, checkpoint kept", zap.Error(err))
	}
	fullOK := err == nil

	enter(StateEnhancedDrift)
	report.Enhanced, err = o.drift(ctx, log, o.opts.Enhanced)
	if isFatal(err) {
		return o.abort(log, report, start, err)
	}

	enter(StateQuickDrift)
	report.Quick, err = o.drift(ctx, log, o.opts.Quick)
	if isFatal(err) {
		return o.abort(log, report, start, err)
	}

	if o.imageCheckDue(start) {
		enter(StateImageCheck)
		res, err := o.Images.Check(ctx, o.opts.ImageLimit)
		report.Images = res
		if res != nil {
			o.Metrics.ImagesUpdated.Add(float64(res.Updated))
		}
		if err != nil {
			if err = o.classify(ctx, err); isFatal(err) {
				return o.abort(log, report, start, err)
			}
			log.Error("image check failed", zap.Error(err))
		}
	}

	enter(StateCheckpoint)
	if fullOK {
		if err := o.Checkpoints.Save(start); err != nil {
			log.Error("checkpoint write failed", zap.Error(err))
		} else {
			report.Checkpoint = start
			o.Metrics.SetCheckpoint(start)
		}
	}

	o.Health.set(true)
	o.Metrics.ObserveCycle("ok", o.now().Sub(start))
	log.Info("cycle done", zap.Duration("took", o.now().Sub(start)))
	enter(StateSleep)
	return report
}

// FullSync reconciles every remote product modified since the checkpoint.
// Product failures are logged and counted; read failures are returned.
func (o *Orchestrator) FullSync(ctx context.Context, log logger.ZapLogger) (*FullSyncReport, error) {
	since, err := o.Checkpoints.Load()
	if err != nil {
		log.Warn("checkpoint unreadable, syncing everything", zap.Error(err))
		since = time.Time{}
	}
	report := &FullSyncReport{Since: since}

	products, err := readWithRetry(ctx, o, "full", func() ([]model.RemoteProduct, error) {
		return o.Reader.ProductsModifiedSince(ctx, since, o.opts.PageSize)
	})
	if err != nil {
		return report, err
	}
	report.Products = len(products)
	if len(products) == 0 {
		log.Info("no modified products", zap.Time("since", since))
		return report, nil
	}

	ids := make([]int64, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	variants, err := readWithRetry(ctx, o, "full", func() ([]model.RemoteVariant, error) {
		return o.Reader.VariantsByProducts(ctx, ids)
	})
	if err != nil {
		return report, err
	}
	report.Variants = len(variants)

	values, err := readWithRetry(ctx, o, "full", func() ([]model.RemoteAttributeValue, error) {
		return o.Reader.AttributeValues(ctx, attributeValueIDs(variants))
	})
	if err != nil {
		return report, err
	}
	report.Values = len(values)

	variantsBy := map[int64][]model.RemoteVariant{}
	for _, v := range variants {
		variantsBy[v.ProductID] = append(variantsBy[v.ProductID], v)
	}
	valuesBy := map[int64][]model.RemoteAttributeValue{}
	for _, v := range values {
		valuesBy[v.ProductID] = append(valuesBy[v.ProductID], v)
	}

	for _, rp := range products {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		res, err := o.Products.ReconcileProduct(ctx, rp, variantsBy[rp.ID], valuesBy[rp.ID])
		o.observeProduct(res, err)
		if err != nil {
			report.Failed++
			log.Error("product reconcile failed", zap.Int64("remote_id", rp.ID), zap.Error(err))
			if errors.Is(err, model.ErrConnection) {
				return report, err
			}
		}
	}

	log.Info("full sync done",
		zap.Time("since", since),
		zap.Int("products", report.Products),
		zap.Int("variants", report.Variants),
		zap.Int("failed", report.Failed),
	)
	if report.Failed > 0 {
		// A product failure may be the connection going away mid pass.
		if err := o.Store.Ping(ctx); err != nil {
			return report, err
		}
	}
	return report, nil
}

func (o *Orchestrator) drift(ctx context.Context, log logger.ZapLogger, opts dto.DriftOptions) (*dto.DriftResult, error) {
	res, err := o.Drift.DetectAndApplyDrift(ctx, opts)
	if res != nil {
		o.Metrics.DriftUpdates.WithLabelValues(opts.Pass).Add(float64(res.Updated))
		o.Metrics.DriftErrors.WithLabelValues(opts.Pass).Add(float64(res.Errors))
		o.Metrics.RemoteRetries.WithLabelValues(opts.Pass).Add(float64(res.Retries))
	}
	if err == nil && res != nil && res.Errors > 0 {
		err = o.Store.Ping(ctx)
	}
	if err != nil {
		err = o.classify(ctx, err)
		if !isFatal(err) {
			log.Error("drift pass failed", zap.String("pass", opts.Pass), zap.Error(err))
		}
	}
	return res, err
}

func (o *Orchestrator) observeProduct(res *productdto.ProductResult, err error) {
	outcome := "updated"
	switch {
	case err != nil:
		outcome = "failed"
	case res == nil:
		return
	case res.Aborted:
		outcome = "aborted"
	case res.Inserted:
		outcome = "inserted"
	}
	o.Metrics.ProductsReconciled.WithLabelValues(outcome).Inc()
	if res == nil {
		return
	}
	o.Metrics.VariantsWritten.WithLabelValues("inserted").Add(float64(res.VariantsInserted))
	o.Metrics.VariantsWritten.WithLabelValues("updated").Add(float64(res.VariantsUpdated))
	o.Metrics.VariantsWritten.WithLabelValues("skipped").Add(float64(res.VariantsSkipped))
	o.Metrics.VariantsWritten.WithLabelValues("failed").Add(float64(res.VariantsFailed))
	o.Metrics.VariantsDeactivated.Add(float64(res.VariantsDeactivated))
}

func (o *Orchestrator) imageCheckDue(now time.Time) bool {
	return o.Images != nil && o.opts.ImageEvery > 0 && now.Minute()%o.opts.ImageEvery == 0
}

// classify turns err into a connection error when the store no longer
// answers.
func (o *Orchestrator) classify(ctx context.Context, err error) error {
	if err == nil || isFatal(err) {
		return err
	}
	if perr := o.Store.Ping(ctx); perr != nil {
		return fmt.Errorf("%w (after: %v)", perr, err)
	}
	return err
}

func (o *Orchestrator) abort(log logger.ZapLogger, report *CycleReport, start time.Time, err error) *CycleReport {
	report.Err = err
	if errors.Is(err, model.ErrConnection) {
		o.Health.set(false)
	}
	log.Error("cycle aborted", zap.Error(err))
	o.Metrics.ObserveCycle("aborted", o.now().Sub(start))
	return report
}

func isFatal(err error) bool {
	return errors.Is(err, model.ErrConnection) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func readWithRetry[T any](ctx context.Context, o *Orchestrator, pass string, fn func() (T, error)) (T, error) {
	out, retries, err := retry.Do(ctx, retry.Policy{
		Attempts: o.opts.ReadAttempts,
		Delay:    o.opts.ReadDelay,
		Sleep:    o.sleep,
		OnRetry: func(attempt int, err error) {
			o.Logger.Warn("remote read failed, retrying", zap.String("pass", pass), zap.Int("attempt", attempt), zap.Error(err))
		},
	}, fn)
	o.Metrics.RemoteRetries.WithLabelValues(pass).Add(float64(retries))
	return out, err
}

func attributeValueIDs(variants []model.RemoteVariant) []int64 {
	seen := map[int64]bool{}
	var ids []int64
	for _, v := range variants {
		for _, id := range v.AttributeValueIDs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}
