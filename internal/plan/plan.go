package plan

import "os"

// Plan is static subscription plan configuration. Plans are not persisted;
// the price ID is the only link to Stripe.
type Plan struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
	Limitations []string `json:"limitations,omitempty"`
	PriceID     string   `json:"priceId"`
	PriceCents  int64    `json:"priceCents"`
	Currency    string   `json:"currency"`
	Interval    string   `json:"interval"`
	TrialDays   int64    `json:"trialDays,omitempty"`
}

const (
	FreeID = "free"
	ProID  = "pro"

	defaultProPriceID = "price_pro_monthly"
)

// Free returns the free plan. Built on demand so the Pro price ID picks up
// env config loaded after package init.
func Free() Plan {
	return Plan{
		ID:          FreeID,
		Name:        "Free",
		Description: "Limited access after trial",
		Features: []string{
			"View previously fetched jobs",
			"Export saved jobs to CSV",
			"Basic search and filters",
		},
		Limitations: []string{
			"Cannot create new queries",
			"Cannot resume paused queries",
			"No new job fetching",
			"No email notifications",
		},
		Currency: "usd",
		Interval: "month",
	}
}

func Pro() Plan {
	return Plan{
		ID:          ProID,
		Name:        "Pro",
		Description: "Full access to all features",
		Features: []string{
			"Unlimited active search queries",
			"Unlimited jobs per month",
			"Real-time job fetching",
			"Email notifications",
			"Resume and pause queries",
			"Export to CSV & Excel",
			"Advanced filters",
			"Priority support",
		},
		PriceID:    proPriceID(),
		PriceCents: 1000,
		Currency:   "usd",
		Interval:   "month",
		TrialDays:  3,
	}
}

func proPriceID() string {
	if id := os.Getenv("STRIPE_PRO_PRICE_ID"); id != "" {
		return id
	}
	return defaultProPriceID
}

func All() []Plan {
	return []Plan{Free(), Pro()}
}

func ByID(id string) (Plan, bool) {
	for _, p := range All() {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}

func ByPriceID(priceID string) (Plan, bool) {
	if priceID == "" {
		return Plan{}, false
	}
	for _, p := range All() {
		if p.PriceID == priceID {
			return p, true
		}
	}
	return Plan{}, false
}
