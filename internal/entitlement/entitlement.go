package entitlement

import (
	"time"

	"jobRadarAPI/internal/plan"
	"jobRadarAPI/internal/types/profile"
	"jobRadarAPI/internal/types/subscription"
)

// Unlimited is the sentinel for "no numeric limit".
const Unlimited = -1

// shortPeriodTrialWindow is how short a billing period has to be before an
// "active" subscription is assumed to still be in its trial. Stripe sometimes
// reports trial periods as plain "active", so this heuristic catches those.
// A genuine billing cycle of 7 days or less gets misclassified; see DESIGN.md.
const shortPeriodTrialWindow = 7 * 24 * time.Hour

// View is the derived, never-persisted summary of what a user may do.
// It is recomputed from the profile on every read, so it cannot drift from
// its source fields.
type View struct {
	IsActive         bool       `json:"isActive"`
	IsTrial          bool       `json:"isTrial"`
	IsPrivileged     bool       `json:"isPrivileged"`
	PlanID           string     `json:"planId"`
	PlanName         string     `json:"planName"`
	Status           string     `json:"status"`
	CurrentPeriodEnd *time.Time `json:"currentPeriodEnd,omitempty"`
	CancelAt         *time.Time `json:"cancelAt,omitempty"`
	CanCreateQueries bool       `json:"canCreateQueries"`
	CanResumeQueries bool       `json:"canResumeQueries"`
	CanFetchNewJobs  bool       `json:"canFetchNewJobs"`
	MaxQueries       int        `json:"maxQueries"`
	MaxJobsPerMonth  int        `json:"maxJobsPerMonth"`
	Features         []string   `json:"features"`
	Limitations      []string   `json:"limitations,omitempty"`
}

// Resolve computes the entitlement view for a profile. It never errors and
// performs no I/O: a nil profile (unreadable, unauthenticated) resolves to
// the free view so callers are never blocked by missing data.
func Resolve(p *profile.Profile) View {
	if p == nil {
		return FreeView()
	}

	// Privileged and admin accounts bypass billing entirely. This check runs
	// first: stale or missing billing fields must not restrict these users.
	if p.AccountType.IsPrivileged() {
		return privilegedView()
	}

	status := subscription.Status("")
	if p.Status != nil {
		status = subscription.Status(*p.Status)
	}

	activeLike := p.StripeSubscriptionID != nil && *p.StripeSubscriptionID != "" && status.ActiveLike()
	isTrial := status == subscription.StatusTrialing ||
		(status == subscription.StatusActive && isShortPeriod(p.CurrentPeriodStart, p.CurrentPeriodEnd))

	var pl plan.Plan
	switch {
	case activeLike || isTrial:
		priceID := ""
		if p.StripePriceID != nil {
			priceID = *p.StripePriceID
		}
		matched, ok := plan.ByPriceID(priceID)
		if !ok {
			matched = plan.Pro()
		}
		pl = matched
	case p.SubscriptionTier == plan.ProID:
		pl = plan.Pro()
	default:
		pl = plan.Free()
	}

	isActive := activeLike
	allowed := isActive || isTrial

	v := View{
		IsActive:         isActive,
		IsTrial:          isTrial,
		PlanID:           pl.ID,
		PlanName:         pl.Name,
		Status:           string(status),
		CurrentPeriodEnd: p.CurrentPeriodEnd,
		CancelAt:         p.CancelAt,
		CanCreateQueries: allowed,
		CanResumeQueries: allowed,
		CanFetchNewJobs:  allowed,
		MaxQueries:       maxQueries(pl.ID),
		MaxJobsPerMonth:  maxJobsPerMonth(pl.ID),
		Features:         pl.Features,
		Limitations:      pl.Limitations,
	}
	if v.Status == "" {
		v.Status = v.PlanID
	}
	return v
}

// FreeView is the zero-entitlement default used when no profile can be read.
func FreeView() View {
	free := plan.Free()
	return View{
		PlanID:          free.ID,
		PlanName:        free.Name,
		Status:          free.ID,
		MaxQueries:      0,
		MaxJobsPerMonth: 0,
		Features:        free.Features,
		Limitations:     free.Limitations,
	}
}

func privilegedView() View {
	return View{
		IsActive:         true,
		IsPrivileged:     true,
		PlanID:           "privileged",
		PlanName:         "Privileged Access",
		Status:           "privileged",
		CanCreateQueries: true,
		CanResumeQueries: true,
		CanFetchNewJobs:  true,
		MaxQueries:       Unlimited,
		MaxJobsPerMonth:  Unlimited,
		Features: []string{
			"Unlimited active search queries",
			"Unlimited jobs per month",
			"Real-time job fetching",
			"Email notifications",
			"Resume and pause queries",
			"Export to all formats",
			"Advanced filters",
			"Admin controls",
			"Priority support",
		},
	}
}

func isShortPeriod(start, end *time.Time) bool {
	if start == nil || end == nil {
		return false
	}
	return end.Sub(*start) <= shortPeriodTrialWindow && end.After(*start)
}

func maxQueries(planID string) int {
	if planID == plan.ProID {
		return Unlimited
	}
	return 0
}

func maxJobsPerMonth(planID string) int {
	if planID == plan.ProID {
		return Unlimited
	}
	return 0
}
