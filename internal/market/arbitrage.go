package market

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Evaluation defaults.
const (
	DefaultMinComparables = 3
	DefaultMinMargin      = 0.20
	evalWorkers           = 4
)

// Opportunity is a candidate purchase with its projected resale numbers.
type Opportunity struct {
	Listing     Listing `json:"listing"`
	Comparables int     `json:"comparables"`
	MedianCents int64   `json:"median_cents"`
	NetCents    int64   `json:"net_cents"`
	ProfitCents int64   `json:"profit_cents"`
	Margin      float64 `json:"margin"`
}

// Evaluator prices candidates against sold comparables.
type Evaluator struct {
	FeeRate        float64 // marketplace fee fraction of sale price
	ShippingCents  int64   // estimated outbound shipping when reselling
	MinMargin      float64 // minimum profit/cost to report
	MinComparables int     // minimum matched sales required
	Similarity     float64 // title match threshold
}

// NewEvaluator fills zero fields with defaults.
func NewEvaluator(feeRate float64, shippingCents int64, minMargin, similarity float64, minComparables int) *Evaluator {
	if similarity <= 0 || similarity > 1 {
		similarity = DefaultSimilarity
	}
	if minComparables <= 0 {
		minComparables = DefaultMinComparables
	}
	if minMargin <= 0 {
		minMargin = DefaultMinMargin
	}
	return &Evaluator{
		FeeRate:        feeRate,
		ShippingCents:  shippingCents,
		MinMargin:      minMargin,
		MinComparables: minComparables,
		Similarity:     similarity,
	}
}

// Comparables returns the sold listings whose titles match the candidate.
func (e *Evaluator) Comparables(title string, sold []Listing) []Listing {
	var matched []Listing
	for _, s := range sold {
		if Similarity(title, s.Title) >= e.Similarity {
			matched = append(matched, s)
		}
	}
	return matched
}

// Evaluate prices one candidate against the sold pool. The second return is
// false when there are too few comparables or the margin is below the
// configured minimum.
func (e *Evaluator) Evaluate(candidate Listing, sold []Listing) (*Opportunity, bool) {
	comps := e.Comparables(candidate.Title, sold)
	if len(comps) < e.MinComparables {
		return nil, false
	}

	median := medianPrice(comps)
	cost := candidate.TotalCents()
	if cost <= 0 {
		return nil, false
	}

	net := int64(float64(median)*(1-e.FeeRate)) - e.ShippingCents
	profit := net - cost
	margin := float64(profit) / float64(cost)
	if margin < e.MinMargin {
		return nil, false
	}

	return &Opportunity{
		Listing:     candidate,
		Comparables: len(comps),
		MedianCents: median,
		NetCents:    net,
		ProfitCents: profit,
		Margin:      margin,
	}, true
}

// medianPrice returns the median sale price in cents. Even-sized pools
// average the middle pair.
func medianPrice(listings []Listing) int64 {
	prices := make([]int64, len(listings))
	for i, l := range listings {
		prices[i] = l.PriceCents
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i] < prices[j] })

	mid := len(prices) / 2
	if len(prices)%2 == 1 {
		return prices[mid]
	}
	return (prices[mid-1] + prices[mid]) / 2
}

// Scanner runs queries against a source and evaluates the results.
type Scanner struct {
	Source      Source
	Evaluator   *Evaluator
	SearchLimit int
}

// Scan evaluates every query concurrently and returns opportunities ranked
// by margin, best first. Per-query failures fail the whole scan; partial
// market views make for bad buying decisions.
func (s *Scanner) Scan(ctx context.Context, queries []string) ([]Opportunity, error) {
	limit := s.SearchLimit
	if limit <= 0 {
		limit = 50
	}

	var mu sync.Mutex
	var opportunities []Opportunity

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(evalWorkers)
	for _, query := range queries {
		g.Go(func() error {
			sold, err := s.Source.SearchSold(gctx, query, limit)
			if err != nil {
				return err
			}
			active, err := s.Source.SearchActive(gctx, query, limit)
			if err != nil {
				return err
			}

			for _, candidate := range active {
				if opp, ok := s.Evaluator.Evaluate(candidate, sold); ok {
					mu.Lock()
					opportunities = append(opportunities, *opp)
					mu.Unlock()
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(opportunities, func(i, j int) bool {
		if opportunities[i].Margin != opportunities[j].Margin {
			return opportunities[i].Margin > opportunities[j].Margin
		}
		return opportunities[i].Listing.ID < opportunities[j].Listing.ID
	})
	return opportunities, nil
}
