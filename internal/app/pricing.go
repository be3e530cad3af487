package app

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/mvelabs/boardroom/internal/domain"
)

// MarketConditions are the observed inputs to a price quote. They are
// supplied by the caller so quotes stay deterministic.
type MarketConditions struct {
	// OccupancyRate is the booked share of comparable boards, 0..1.
	OccupancyRate float64
	// RecentBookings counts this board's bookings in the lookback window.
	RecentBookings int
	// Month the campaign would run in.
	Month time.Month
	// LocationScore rates the site 0..1 (footfall, visibility).
	LocationScore float64
	// ImpressionsPerDay against the market average for the format.
	ImpressionsPerDay    float64
	AvgImpressionsPerDay float64
	// CompetitorAvgPrice for comparable boards; 0 when unknown.
	CompetitorAvgPrice float64
	// DaysUntilStart of the campaign.
	DaysUntilStart int
	// PriceVolatility of the local market, 0..1.
	PriceVolatility float64
}

// Seasonal demand by month, already within the seasonal bounds.
var seasonalFactors = map[time.Month]float64{
	time.January:   0.9,
	time.February:  0.9,
	time.March:     1.0,
	time.April:     1.0,
	time.May:       1.1,
	time.June:      1.15,
	time.July:      1.15,
	time.August:    1.15,
	time.September: 1.1,
	time.October:   1.2,
	time.November:  1.3,
	time.December:  1.3,
}

// PricingService computes advisory price quotes from six bounded
// multipliers. A quote never mutates the billboard; applying one is a
// separate, bounded action.
type PricingService struct {
	dispatcher *Dispatcher
	store      domain.ProjectionStore
	notifier   domain.Notifier
	clock      domain.Clock
}

func NewPricingService(dispatcher *Dispatcher, store domain.ProjectionStore, notifier domain.Notifier, clock domain.Clock) *PricingService {
	return &PricingService{dispatcher: dispatcher, store: store, notifier: notifier, clock: clock}
}

// Quote blends the six multipliers into a recommended price, clamped to
// [0.7×, 2.5×] of the base price. When confidence reaches the recommend
// floor, a recommendation notification is raised.
func (s *PricingService) Quote(ctx context.Context, billboardID string, m MarketConditions) (domain.PriceQuote, error) {
	billboard, err := s.store.GetBillboard(ctx, billboardID)
	if err != nil {
		return domain.PriceQuote{}, err
	}

	mult := computeMultipliers(billboard, m)
	base := billboard.BasePrice

	raw := base * mult.Demand * mult.Seasonal * mult.Location * mult.Performance * mult.Competition * mult.Urgency
	price := clamp(raw, base*domain.MinDynamicPriceFactor, base*domain.MaxDynamicPriceFactor)
	price = math.Round(price*100) / 100

	quote := domain.PriceQuote{
		BillboardID:    billboardID,
		BasePrice:      base,
		DynamicPrice:   price,
		PriceChangePct: math.Round((price/base-1)*1000) / 10,
		Multipliers:    mult,
		Confidence:     confidence(m, mult),
	}
	quote.Recommended = quote.Confidence >= domain.RecommendConfidence

	if quote.Recommended {
		err := s.notifier.Notify(ctx, domain.Notification{
			TenantID: billboard.TenantID,
			Type:     "pricing.recommendation",
			Title:    "Price recommendation",
			Message:  "A dynamic price recommendation is available",
			Priority: "normal",
			Data: map[string]any{
				"billboard":     billboardID,
				"dynamic_price": quote.DynamicPrice,
				"confidence":    quote.Confidence,
			},
		})
		if err != nil {
			slog.ErrorContext(ctx, "sending pricing recommendation", "billboard_id", billboardID, "error", err)
		}
	}

	return quote, nil
}

// ApplyRecommendation sets the billboard's current price to the quoted
// value. The reducer rejects changes outside [0.5×, 2.5×] of the current
// price.
func (s *PricingService) ApplyRecommendation(ctx context.Context, billboardID string, price float64) (domain.BillboardState, error) {
	env := domain.NewEnvelope(
		domain.BillboardPriceApplied{Price: price},
		map[domain.EntityKind]string{domain.KindBillboard: billboardID},
		s.clock.Now(),
	)
	if err := s.dispatcher.Dispatch(ctx, env); err != nil {
		return domain.BillboardState{}, err
	}
	return s.store.GetBillboard(ctx, billboardID)
}

func computeMultipliers(billboard domain.BillboardState, m MarketConditions) domain.Multipliers {
	demand := clamp(0.8+m.OccupancyRate*0.8, 0.8, 1.6)

	seasonal, ok := seasonalFactors[m.Month]
	if !ok {
		seasonal = 1.0
	}

	location := clamp(0.9+m.LocationScore*0.5, 0.9, 1.4)

	performance := 1.0
	if m.AvgImpressionsPerDay > 0 {
		performance = clamp(0.85+0.2*(m.ImpressionsPerDay/m.AvgImpressionsPerDay), 0.85, 1.25)
	}

	competition := 1.0
	if m.CompetitorAvgPrice > 0 && billboard.BasePrice > 0 {
		competition = clamp(m.CompetitorAvgPrice/billboard.BasePrice, 0.9, 1.15)
	}

	urgency := 1.0
	if m.DaysUntilStart < 30 {
		days := float64(m.DaysUntilStart)
		if days < 0 {
			days = 0
		}
		urgency = clamp(1.0+(30-days)/30*0.5, 1.0, 1.5)
	}

	return domain.Multipliers{
		Demand:      round2(demand),
		Seasonal:    round2(seasonal),
		Location:    round2(location),
		Performance: round2(performance),
		Competition: round2(competition),
		Urgency:     round2(urgency),
	}
}

// confidence weighs booking-history volume, market volatility and the
// spread of the multipliers: a tight spread means the factors agree.
func confidence(m MarketConditions, mult domain.Multipliers) float64 {
	volume := math.Min(float64(m.RecentBookings)/20, 1)

	stability := 1 - clamp(m.PriceVolatility, 0, 1)

	values := []float64{mult.Demand, mult.Seasonal, mult.Location, mult.Performance, mult.Competition, mult.Urgency}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	agreement := 1 - math.Min(variance/0.25, 1)

	c := 0.4*volume + 0.3*stability + 0.3*agreement
	return math.Round(c*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
