package profile

import "time"

type AccountType string

const (
	AccountUser       AccountType = "user"
	AccountPrivileged AccountType = "privileged"
	AccountAdmin      AccountType = "admin"
)

func (a AccountType) Valid() bool {
	switch a {
	case AccountUser, AccountPrivileged, AccountAdmin:
		return true
	}
	return false
}

// IsPrivileged reports whether this account type bypasses billing entirely.
func (a AccountType) IsPrivileged() bool {
	return a == AccountPrivileged || a == AccountAdmin
}

type Profile struct {
	ID                   string      `json:"id" db:"id"`
	ClerkID              string      `json:"clerkId" db:"clerk_id"`
	Email                string      `json:"email" db:"email"`
	FullName             string      `json:"fullName" db:"full_name"`
	Company              string      `json:"company" db:"company"`
	AccountType          AccountType `json:"accountType" db:"account_type"`
	SubscriptionTier     string      `json:"subscriptionTier" db:"subscription_tier"`
	IsSuspended          bool        `json:"isSuspended" db:"is_suspended"`
	StripeCustomerID     *string     `json:"stripeCustomerId,omitempty" db:"stripe_customer_id"`
	StripeSubscriptionID *string     `json:"stripeSubscriptionId,omitempty" db:"stripe_subscription_id"`
	StripePriceID        *string     `json:"stripePriceId,omitempty" db:"stripe_price_id"`
	Status               *string     `json:"status,omitempty" db:"status"`
	CurrentPeriodStart   *time.Time  `json:"currentPeriodStart,omitempty" db:"current_period_start"`
	CurrentPeriodEnd     *time.Time  `json:"currentPeriodEnd,omitempty" db:"current_period_end"`
	CancelAt             *time.Time  `json:"cancelAt,omitempty" db:"cancel_at"`
	CanceledAt           *time.Time  `json:"canceledAt,omitempty" db:"canceled_at"`
	LastLoginAt          *time.Time  `json:"lastLoginAt,omitempty" db:"last_login_at"`
	CreatedAt            time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt            time.Time   `json:"updatedAt" db:"updated_at"`
}

type CreateProfileRequest struct {
	ClerkID  string `json:"clerkId"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

type UpdateProfileRequest struct {
	FullName *string `json:"fullName,omitempty"`
	Company  *string `json:"company,omitempty"`
}

// AdminUpdateRequest carries the fields an admin is allowed to edit.
// Tier and query limits are deliberately absent: the handler rejects
// requests that try to set them, since Stripe owns those fields.
type AdminUpdateRequest struct {
	AccountType      *string `json:"accountType,omitempty"`
	FullName         *string `json:"fullName,omitempty"`
	SubscriptionTier *string `json:"subscriptionTier,omitempty"`
	MaxActiveQueries *int    `json:"maxActiveQueries,omitempty"`
}

type AdminUserList struct {
	Users      []*Profile `json:"users"`
	Stats      AdminStats `json:"stats"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
	Total      int        `json:"total"`
	TotalPages int        `json:"totalPages"`
}

type AdminStats struct {
	TotalUsers      int `json:"totalUsers"`
	AdminUsers      int `json:"adminUsers"`
	PrivilegedUsers int `json:"privilegedUsers"`
	SuspendedUsers  int `json:"suspendedUsers"`
}
