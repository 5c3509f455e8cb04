package model

import "time"

// StockCandidate is a previously synced product considered by a drift pass.
type StockCandidate struct {
	ID          int64     `db:"id"`
	RemoteKeyID string    `db:"remote_key_id"`
	Name        string    `db:"name"`
	Qty         int64     `db:"qty"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// ImageCandidate is a synced product considered by the image check.
type ImageCandidate struct {
	ID          int64  `db:"id"`
	RemoteKeyID string `db:"remote_key_id"`
	ThumbImage  string `db:"thumb_image"`
}
