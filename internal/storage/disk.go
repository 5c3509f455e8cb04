// Package storage writes product images to the configured backend.
package storage

import (
	"context"
	"fmt"
)

// Disk stores objects under slash separated paths.
type Disk interface {
	Put(ctx context.Context, path string, content []byte, contentType string) error
	Exists(ctx context.Context, path string) (bool, error)
}

type Config struct {
	Driver     string // local or s3
	LocalRoot  string
	S3Bucket   string
	S3Region   string
	S3Key      string
	S3Secret   string
	S3Endpoint string
}

func New(ctx context.Context, cfg *Config) (Disk, error) {
	switch cfg.Driver {
	case "", "local":
		return NewLocalDisk(cfg.LocalRoot), nil
	case "s3":
		return NewS3Disk(ctx, cfg)
	default:
		return nil, fmt.Errorf("storage: unknown driver %q", cfg.Driver)
	}
}
