package stats

import (
	"context"
	"time"

	"microloan-bazaar/internal/fhe"
)

// Marketplace is the single global counters row. Counts only grow; the
// cipher columns accumulate confidential volume totals nobody can read
// without a grant.
type Marketplace struct {
	ID uint32 `gorm:"primaryKey;column:id" json:"-"`

	TotalLoans uint64 `json:"total_loans"`
	Issued     uint64 `json:"issued"`
	Completed  uint64 `json:"completed"`
	Defaulted  uint64 `json:"defaulted"`
	Rejected   uint64 `json:"rejected"`

	VolumeProcessedCipher   fhe.Handle `gorm:"size:64;column:volume_processed_cipher" json:"-"`
	InterestCollectedCipher fhe.Handle `gorm:"size:64;column:interest_collected_cipher" json:"-"`

	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Marketplace) TableName() string { return "marketplace_stats" }

type Repository interface {
	Get(ctx context.Context) (*Marketplace, error)
	Save(ctx context.Context, m *Marketplace) error
}
