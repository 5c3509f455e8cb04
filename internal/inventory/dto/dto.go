package dto

import "time"

// CandidateFilters selects previously synced products for a drift pass.
type CandidateFilters struct {
	InStockOnly bool
	RecentFirst bool
	Limit       int
}

type DriftOptions struct {
	Pass      string
	Filters   CandidateFilters
	BatchSize int
	Attempts  int
	Delay     time.Duration
}

type DriftResult struct {
	Pass          string
	Checked       int
	Updated       int
	Errors        int
	BatchesFailed int
	Retries       int
	// VerifyFailed counts writes the read-back did not confirm. They are
	// included in Errors.
	VerifyFailed    int
	VariantsUpdated int
	VariantErrors   int
}

// StockChangedEvent is published after a verified quantity update.
type StockChangedEvent struct {
	RemoteID  int64     `json:"remote_id"`
	ProductID int64     `json:"product_id"`
	Before    int64     `json:"before"`
	After     int64     `json:"after"`
	At        time.Time `json:"at"`
}
