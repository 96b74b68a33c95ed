package models

import (
	"context"
	"time"

	"github.com/pborman/uuid"
)

// OrderRepository contains the methods needed to interact with reference
// orders and their lines.
type OrderRepository interface {
	// GetReferenceOrder returns the order with the given id, or nil when no
	// such order exists.
	GetReferenceOrder(ctx context.Context, orderID uuid.UUID) (*ReferenceOrder, error)

	// FindPatientCandidates returns orders whose stored patient name contains
	// every token (case-insensitive substring conjunction) with a date of
	// service inside [windowStart, windowEnd] inclusive, grouped by order and
	// capped at limit rows.
	FindPatientCandidates(ctx context.Context, nameTokens []string, windowStart, windowEnd time.Time, limit int) ([]*PatientCandidate, error)
}

// RateRepository contains the methods needed to interact with the provider
// rate store.
type RateRepository interface {
	// GetProviderRate returns the exact (code, modifier) rate for the
	// provider, or nil when no line-item override exists.
	GetProviderRate(ctx context.Context, taxID, code, modifier string) (*RateEntry, error)

	// GetCategoryRate returns the provider's category-level rate, or nil.
	GetCategoryRate(ctx context.Context, taxID, category, modifier string) (*RateEntry, error)

	// UpsertProviderRate writes a line-item rate override.
	UpsertProviderRate(ctx context.Context, taxID, code, modifier string, rateCents int64) error

	// ApplyCategoryRate rewrites the rate for every code currently mapped to
	// the category for the provider, returning the number of codes repriced.
	// Implementations must make this atomic.
	ApplyCategoryRate(ctx context.Context, taxID, category, modifier string, rateCents int64) (int64, error)
}

// Repository aggregates every repository the validation service needs.
type Repository interface {
	OrderRepository
	RateRepository
}
