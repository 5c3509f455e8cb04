package usecase

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/fekuna/omnipos-catalog-sync/internal/catalog"
	"github.com/fekuna/omnipos-catalog-sync/internal/inventory"
	"github.com/fekuna/omnipos-catalog-sync/internal/inventory/dto"
	"github.com/fekuna/omnipos-catalog-sync/internal/logger"
	"github.com/fekuna/omnipos-catalog-sync/internal/model"
	"github.com/fekuna/omnipos-catalog-sync/internal/product"
	"github.com/fekuna/omnipos-catalog-sync/internal/retry"
	"go.uber.org/zap"
)

// VariantStockWriter updates a local variant's stock by its remote identity.
type VariantStockWriter interface {
	UpdateVariantStock(ctx context.Context, key product.MatchKey, stock int64) (string, error)
}

type driftUseCase struct {
	repo      inventory.Repository
	reader    catalog.Reader
	variants  VariantStockWriter
	publisher inventory.Publisher
	logger    logger.ZapLogger

	now   func() time.Time
	sleep retry.SleepFunc
}

func NewDriftUseCase(repo inventory.Repository, reader catalog.Reader, variants VariantStockWriter, publisher inventory.Publisher, log logger.ZapLogger) inventory.UseCase {
	return &driftUseCase{
		repo:      repo,
		reader:    reader,
		variants:  variants,
		publisher: publisher,
		logger:    log,
		now:       time.Now,
		sleep:     retry.Sleep,
	}
}

func (uc *driftUseCase) DetectAndApplyDrift(ctx context.Context, opts dto.DriftOptions) (*dto.DriftResult, error) {
	res := &dto.DriftResult{Pass: opts.Pass}
	log := uc.logger.With(zap.String("pass", opts.Pass))

	candidates, err := uc.repo.ListCandidates(ctx, opts.Filters)
	if err != nil {
		return res, err
	}
	res.Checked = len(candidates)

	size := opts.BatchSize
	if size <= 0 {
		size = len(candidates)
	}

	for start := 0; start < len(candidates); start += size {
		end := min(start+size, len(candidates))
		batch := candidates[start:end]

		byRemoteID := make(map[int64]model.StockCandidate, len(batch))
		ids := make([]int64, 0, len(batch))
		for _, c := range batch {
			id, err := strconv.ParseInt(c.RemoteKeyID, 10, 64)
			if err != nil {
				log.Debug("candidate has unusable remote key", zap.Int64("product_id", c.ID), zap.String("remote_key_id", c.RemoteKeyID))
				continue
			}
			byRemoteID[id] = c
			ids = append(ids, id)
		}
		if len(ids) == 0 {
			continue
		}

		quantities, err := uc.readQuantities(ctx, ids, opts, res)
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			res.BatchesFailed++
			res.Errors += len(batch)
			log.Error("drift batch failed, skipping",
				zap.Int("batch_start", start),
				zap.Int("batch_size", len(batch)),
				zap.Error(err),
			)
			continue
		}

		for _, rq := range quantities {
			c, ok := byRemoteID[rq.ID]
			if !ok {
				continue
			}
			after := model.Units(rq.Quantity)
			if after == c.Qty {
				continue
			}
			if err := uc.apply(ctx, c, after); err != nil {
				res.Errors++
				if errors.Is(err, model.ErrWriteVerification) {
					res.VerifyFailed++
				}
				log.Error("quantity update failed",
					zap.Int64("product_id", c.ID),
					zap.Int64("remote_id", rq.ID),
					zap.String("table", "products"),
					zap.Int64("attempted", after),
					zap.Error(err),
				)
				continue
			}
			res.Updated++
			log.Info("quantity updated", zap.Int64("product_id", c.ID), zap.Int64("remote_id", rq.ID), zap.Int64("before", c.Qty), zap.Int64("after", after))

			event := dto.StockChangedEvent{RemoteID: rq.ID, ProductID: c.ID, Before: c.Qty, After: after, At: uc.now().UTC()}
			if err := uc.publisher.PublishStockChanged(ctx, event); err != nil {
				log.Warn("stock event not published", zap.Int64("remote_id", rq.ID), zap.Error(err))
			}

			uc.cascadeVariants(ctx, log, rq.ID, c.ID, res)
		}
	}

	log.Info("drift pass done",
		zap.Int("checked", res.Checked),
		zap.Int("updated", res.Updated),
		zap.Int("errors", res.Errors),
		zap.Int("batches_failed", res.BatchesFailed),
	)
	return res, nil
}

// readQuantities retries transient failures up to opts.Attempts times with a
// fixed delay between attempts.
func (uc *driftUseCase) readQuantities(ctx context.Context, ids []int64, opts dto.DriftOptions, res *dto.DriftResult) ([]model.RemoteQuantity, error) {
	quantities, retries, err := retry.Do(ctx, retry.Policy{
		Attempts: opts.Attempts,
		Delay:    opts.Delay,
		Sleep:    uc.sleep,
		OnRetry: func(attempt int, err error) {
			uc.logger.Warn("remote read failed, retrying", zap.String("pass", opts.Pass), zap.Int("attempt", attempt), zap.Error(err))
		},
	}, func() ([]model.RemoteQuantity, error) {
		return uc.reader.ProductQuantities(ctx, ids)
	})
	res.Retries += retries
	if err != nil {
		return nil, err
	}
	return quantities, nil
}

// apply writes qty and reads it back. A read-back that does not show qty is a
// *model.WriteVerificationError.
func (uc *driftUseCase) apply(ctx context.Context, c model.StockCandidate, qty int64) error {
	if err := uc.repo.SetQuantity(ctx, c.ID, qty); err != nil {
		return err
	}
	actual, found, err := uc.repo.GetQuantity(ctx, c.ID)
	if err != nil {
		return err
	}
	if !found || actual != qty {
		return &model.WriteVerificationError{Table: "products", ID: c.ID, Attempted: qty, Actual: actual, Found: found}
	}
	return nil
}

// cascadeVariants copies remote variant stock onto the variants of local
// product productID.
func (uc *driftUseCase) cascadeVariants(ctx context.Context, log logger.ZapLogger, remoteID, productID int64, res *dto.DriftResult) {
	variants, err := uc.reader.VariantsForProduct(ctx, remoteID)
	if err != nil {
		res.VariantErrors++
		log.Error("variant read failed", zap.Int64("remote_id", remoteID), zap.Error(err))
		return
	}

	for _, rv := range variants {
		if !rv.Sellable() {
			continue
		}
		key := product.MatchKey{RemoteKeyID: strconv.FormatInt(rv.ID, 10), SKU: rv.SKU, ProductID: productID}
		rule, err := uc.variants.UpdateVariantStock(ctx, key, model.Units(rv.Quantity))
		if err != nil {
			res.VariantErrors++
			log.Error("variant stock update failed", zap.Int64("remote_id", rv.ID), zap.String("sku", *rv.SKU), zap.Error(err))
			continue
		}
		if rule != "" {
			res.VariantsUpdated++
			log.Debug("variant stock updated", zap.Int64("remote_id", rv.ID), zap.String("sku", *rv.SKU), zap.String("matched_by", rule))
		}
	}
}
