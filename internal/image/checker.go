// Package image keeps product thumbnails in line with the remote catalog.
package image

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/fekuna/omnipos-catalog-sync/internal/catalog"
	"github.com/fekuna/omnipos-catalog-sync/internal/logger"
	"github.com/fekuna/omnipos-catalog-sync/internal/model"
	"github.com/fekuna/omnipos-catalog-sync/internal/storage"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

type Repository interface {
	ListImageCandidates(ctx context.Context, limit int) ([]model.ImageCandidate, error)
	UpdateThumbImage(ctx context.Context, productID int64, path string) error
}

type Result struct {
	Checked int
	Updated int
	Errors  int
}

type Checker struct {
	repo   Repository
	reader catalog.Reader
	disk   storage.Disk
	prefix string
	logger logger.ZapLogger
}

func NewChecker(repo Repository, reader catalog.Reader, disk storage.Disk, prefix string, log logger.ZapLogger) *Checker {
	return &Checker{repo: repo, reader: reader, disk: disk, prefix: prefix, logger: log}
}

// Path names an image by remote id and content hash, so a changed image gets
// a new path and an unchanged one keeps its old path.
func Path(prefix string, remoteID int64, img []byte) (p, contentType string, err error) {
	mt := mimetype.Detect(img)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", "", fmt.Errorf("remote image of %d is %s", remoteID, mt.String())
	}
	sum := sha256.Sum256(img)
	name := fmt.Sprintf("%d-%s%s", remoteID, hex.EncodeToString(sum[:])[:12], mt.Extension())
	return path.Join(prefix, name), mt.String(), nil
}

// Check compares the most recently updated synced products' thumbnails with
// their remote images and stores the ones that changed.
func (c *Checker) Check(ctx context.Context, limit int) (*Result, error) {
	res := &Result{}

	candidates, err := c.repo.ListImageCandidates(ctx, limit)
	if err != nil {
		return res, err
	}
	res.Checked = len(candidates)

	byRemoteID := make(map[int64]model.ImageCandidate, len(candidates))
	ids := make([]int64, 0, len(candidates))
	for _, cand := range candidates {
		id, err := strconv.ParseInt(cand.RemoteKeyID, 10, 64)
		if err != nil {
			continue
		}
		byRemoteID[id] = cand
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return res, nil
	}

	images, err := c.reader.ProductImages(ctx, ids)
	if err != nil {
		return res, fmt.Errorf("read images: %w", err)
	}

	for _, id := range ids {
		img, ok := images[id]
		if !ok {
			continue
		}
		cand := byRemoteID[id]
		updated, err := c.store(ctx, cand, id, img)
		if err != nil {
			res.Errors++
			c.logger.Warn("image update failed", zap.Int64("product_id", cand.ID), zap.Int64("remote_id", id), zap.Error(err))
			continue
		}
		if updated {
			res.Updated++
		}
	}
	return res, nil
}

func (c *Checker) store(ctx context.Context, cand model.ImageCandidate, remoteID int64, img []byte) (bool, error) {
	p, contentType, err := Path(c.prefix, remoteID, img)
	if err != nil {
		return false, err
	}
	if cand.ThumbImage == p {
		return false, nil
	}

	exists, err := c.disk.Exists(ctx, p)
	if err != nil {
		return false, err
	}
	if !exists {
		if err := c.disk.Put(ctx, p, img, contentType); err != nil {
			return false, err
		}
	}
	if err := c.repo.UpdateThumbImage(ctx, cand.ID, p); err != nil {
		return false, err
	}
	c.logger.Info("thumbnail updated", zap.Int64("product_id", cand.ID), zap.Int64("remote_id", remoteID), zap.String("path", p))
	return true, nil
}
