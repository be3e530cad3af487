package domain

// Dynamic price bounds relative to the base price, and the bounds a
// recommendation must respect relative to the current price before it may
// be applied.
const (
	MinDynamicPriceFactor = 0.7
	MaxDynamicPriceFactor = 2.5
	MinPriceChangeFactor  = 0.5
	MaxPriceChangeFactor  = 2.5
)

// RecommendConfidence is the confidence floor above which a quote is
// flagged as a recommendation.
const RecommendConfidence = 0.7

// Multipliers are the six independent pricing factors. Each is bounded to
// its documented range by the pricing service.
type Multipliers struct {
	Demand      float64 `json:"demand"`      // [0.8, 1.6]
	Seasonal    float64 `json:"seasonal"`    // [0.9, 1.3]
	Location    float64 `json:"location"`    // [0.9, 1.4]
	Performance float64 `json:"performance"` // [0.85, 1.25]
	Competition float64 `json:"competition"` // [0.9, 1.15]
	Urgency     float64 `json:"urgency"`     // [1.0, 1.5]
}

// PriceQuote is the advisory output of the pricing heuristic. It never
// mutates the billboard price; applying it is a separate explicit action.
type PriceQuote struct {
	BillboardID    string      `json:"billboard_id"`
	BasePrice      float64     `json:"base_price"`
	DynamicPrice   float64     `json:"dynamic_price"`
	PriceChangePct float64     `json:"price_change_percentage"`
	Multipliers    Multipliers `json:"multipliers"`
	Confidence     float64     `json:"confidence"`
	Recommended    bool        `json:"recommended"`
}
