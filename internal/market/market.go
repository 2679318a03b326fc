// Package market finds arbitrage opportunities between active marketplace
// listings and recent sold prices. Prices are integer cents throughout;
// floats appear only in ratios (fees, margins, similarity).
package market

import "context"

// Listing is one marketplace listing, active or sold.
type Listing struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	PriceCents    int64  `json:"price_cents"`
	ShippingCents int64  `json:"shipping_cents"`
	Condition     string `json:"condition,omitempty"`
	URL           string `json:"url,omitempty"`
}

// TotalCents is the buyer's all-in cost for the listing.
func (l *Listing) TotalCents() int64 {
	return l.PriceCents + l.ShippingCents
}

// Source provides marketplace search. Implementations are expected to do
// their own rate limiting.
type Source interface {
	// SearchActive returns live listings matching the query.
	SearchActive(ctx context.Context, query string, limit int) ([]Listing, error)
	// SearchSold returns recently sold listings matching the query.
	SearchSold(ctx context.Context, query string, limit int) ([]Listing, error)
}
