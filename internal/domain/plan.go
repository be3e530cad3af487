package domain

// Feature is a plan-gated capability with an optional numeric limit.
type Feature string

const (
	FeatureBillboards       Feature = "billboards"
	FeatureCampaigns        Feature = "campaigns"
	FeatureTeamMembers      Feature = "team_members"
	FeatureBookingsPerMonth Feature = "bookings_per_month"
	FeatureStorageMB        Feature = "storage_mb"
	FeatureAPICalls         Feature = "api_calls"
	FeatureCustomDomains    Feature = "custom_domains"
)

// Unlimited marks a feature with no usage cap.
const Unlimited = -1

// Plan is a billing plan: an interval, a price, and the feature limits it
// grants. A feature absent from Limits is not available on the plan.
type Plan struct {
	ID       string
	Name     string
	Interval BillingInterval
	Price    float64
	Limits   map[Feature]int
}

// HasFeature reports whether the plan includes the feature at all.
func (p Plan) HasFeature(f Feature) bool {
	_, ok := p.Limits[f]
	return ok
}

// Limit returns the feature's cap, or Unlimited. The second return is
// false when the plan lacks the feature.
func (p Plan) Limit(f Feature) (int, bool) {
	limit, ok := p.Limits[f]
	return limit, ok
}

// Plans is the built-in plan catalog, keyed by plan id.
var Plans = map[string]Plan{
	TrialPlanID: {
		ID:       TrialPlanID,
		Name:     "Trial",
		Interval: IntervalMonthly,
		Price:    0,
		Limits: map[Feature]int{
			FeatureBillboards:       2,
			FeatureCampaigns:        1,
			FeatureTeamMembers:      2,
			FeatureBookingsPerMonth: 5,
			FeatureStorageMB:        100,
			FeatureAPICalls:         1000,
		},
	},
	"starter": {
		ID:       "starter",
		Name:     "Starter",
		Interval: IntervalMonthly,
		Price:    49,
		Limits: map[Feature]int{
			FeatureBillboards:       10,
			FeatureCampaigns:        5,
			FeatureTeamMembers:      5,
			FeatureBookingsPerMonth: 50,
			FeatureStorageMB:        1024,
			FeatureAPICalls:         25000,
		},
	},
	"growth": {
		ID:       "growth",
		Name:     "Growth",
		Interval: IntervalMonthly,
		Price:    149,
		Limits: map[Feature]int{
			FeatureBillboards:       50,
			FeatureCampaigns:        25,
			FeatureTeamMembers:      20,
			FeatureBookingsPerMonth: 500,
			FeatureStorageMB:        10240,
			FeatureAPICalls:         250000,
			FeatureCustomDomains:    1,
		},
	},
	"enterprise": {
		ID:       "enterprise",
		Name:     "Enterprise",
		Interval: IntervalYearly,
		Price:    2400,
		Limits: map[Feature]int{
			FeatureBillboards:       Unlimited,
			FeatureCampaigns:        Unlimited,
			FeatureTeamMembers:      Unlimited,
			FeatureBookingsPerMonth: Unlimited,
			FeatureStorageMB:        Unlimited,
			FeatureAPICalls:         Unlimited,
			FeatureCustomDomains:    Unlimited,
		},
	},
}

// PlanByID looks up a plan in the catalog.
func PlanByID(id string) (Plan, error) {
	plan, ok := Plans[id]
	if !ok {
		return Plan{}, ErrPlanNotFound
	}
	return plan, nil
}
