package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"jobRadarAPI/internal/types/profile"
	"jobRadarAPI/internal/types/subscription"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProfileService struct {
	db *pgxpool.Pool
}

func NewProfileService(db *pgxpool.Pool) *ProfileService {
	return &ProfileService{db: db}
}

const profileColumns = `
	id, clerk_id, email, full_name, company, account_type, subscription_tier,
	is_suspended, stripe_customer_id, stripe_subscription_id, stripe_price_id,
	status, current_period_start, current_period_end, cancel_at, canceled_at,
	last_login_at, created_at, updated_at
`

func scanProfile(row pgx.Row) (*profile.Profile, error) {
	p := &profile.Profile{}
	err := row.Scan(
		&p.ID, &p.ClerkID, &p.Email, &p.FullName, &p.Company, &p.AccountType,
		&p.SubscriptionTier, &p.IsSuspended, &p.StripeCustomerID,
		&p.StripeSubscriptionID, &p.StripePriceID, &p.Status,
		&p.CurrentPeriodStart, &p.CurrentPeriodEnd, &p.CancelAt, &p.CanceledAt,
		&p.LastLoginAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProfileService) CreateProfile(ctx context.Context, req *profile.CreateProfileRequest) (*profile.Profile, error) {
	query := `
		INSERT INTO user_profiles (clerk_id, email, full_name, account_type, subscription_tier)
		VALUES ($1, $2, $3, 'user', 'free')
		ON CONFLICT (clerk_id) DO UPDATE SET email = EXCLUDED.email, updated_at = NOW()
		RETURNING ` + profileColumns

	p, err := scanProfile(s.db.QueryRow(ctx, query, req.ClerkID, req.Email, req.FullName))
	if err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	// Every profile gets a preferences row up front so the settings page and
	// the dispatcher never have to special-case a missing row.
	prefsQuery := `
		INSERT INTO notification_preferences (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := s.db.Exec(ctx, prefsQuery, p.ID); err != nil {
		log.Printf("Failed to create default notification preferences for %s: %v", p.ID, err)
	}

	return p, nil
}

func (s *ProfileService) GetProfileByClerkID(ctx context.Context, clerkID string) (*profile.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM user_profiles WHERE clerk_id = $1`
	p, err := scanProfile(s.db.QueryRow(ctx, query, clerkID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("profile not found")
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

func (s *ProfileService) GetProfileByID(ctx context.Context, userID string) (*profile.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM user_profiles WHERE id = $1`
	p, err := scanProfile(s.db.QueryRow(ctx, query, userID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("profile not found")
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// GetProfileByCustomerID is the fallback lookup used by the billing webhook
// when a subscription event arrives without user metadata.
func (s *ProfileService) GetProfileByCustomerID(ctx context.Context, customerID string) (*profile.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM user_profiles WHERE stripe_customer_id = $1`
	p, err := scanProfile(s.db.QueryRow(ctx, query, customerID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("no profile for customer %s", customerID)
		}
		return nil, fmt.Errorf("failed to get profile by customer: %w", err)
	}
	return p, nil
}

func (s *ProfileService) UpdateProfile(ctx context.Context, clerkID string, req *profile.UpdateProfileRequest) (*profile.Profile, error) {
	updates := []string{}
	args := []interface{}{clerkID}
	argCount := 2

	if req.FullName != nil {
		updates = append(updates, fmt.Sprintf("full_name = $%d", argCount))
		args = append(args, *req.FullName)
		argCount++
	}
	if req.Company != nil {
		updates = append(updates, fmt.Sprintf("company = $%d", argCount))
		args = append(args, *req.Company)
		argCount++
	}

	if len(updates) == 0 {
		return s.GetProfileByClerkID(ctx, clerkID)
	}

	query := fmt.Sprintf(`
		UPDATE user_profiles
		SET %s, updated_at = NOW()
		WHERE clerk_id = $1
		RETURNING `+profileColumns, strings.Join(updates, ", "))

	p, err := scanProfile(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("profile not found")
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return p, nil
}

func (s *ProfileService) TouchLastLogin(ctx context.Context, clerkID string) {
	_, err := s.db.Exec(ctx, `UPDATE user_profiles SET last_login_at = NOW() WHERE clerk_id = $1`, clerkID)
	if err != nil {
		log.Printf("Failed to touch last_login_at for %s: %v", clerkID, err)
	}
}

// SetStripeCustomerID persists a newly created Stripe customer id.
func (s *ProfileService) SetStripeCustomerID(ctx context.Context, userID, customerID string) error {
	_, err := s.db.Exec(ctx,
		`UPDATE user_profiles SET stripe_customer_id = $2, updated_at = NOW() WHERE id = $1`,
		userID, customerID)
	if err != nil {
		return fmt.Errorf("failed to set stripe customer id: %w", err)
	}
	return nil
}

// ApplySubscription writes the full billing field set reported by the
// processor. Replays of the same event are harmless: every field is
// overwritten with the reported values, so the row converges on the latest
// payload no matter how often it is applied.
func (s *ProfileService) ApplySubscription(ctx context.Context, upd *subscription.BillingUpdate) error {
	if upd.StripeSubscriptionID != "" && upd.StripeCustomerID == "" {
		return fmt.Errorf("subscription %s has no customer id", upd.StripeSubscriptionID)
	}

	query := `
		UPDATE user_profiles
		SET stripe_customer_id = $2,
			stripe_subscription_id = $3,
			stripe_price_id = $4,
			status = $5,
			current_period_start = $6,
			current_period_end = $7,
			cancel_at = $8,
			canceled_at = $9,
			subscription_tier = $10,
			updated_at = NOW()
		WHERE id = $1
	`

	tag, err := s.db.Exec(ctx, query,
		upd.UserID,
		upd.StripeCustomerID,
		upd.StripeSubscriptionID,
		upd.StripePriceID,
		string(upd.Status),
		upd.CurrentPeriodStart,
		upd.CurrentPeriodEnd,
		upd.CancelAt,
		upd.CanceledAt,
		upd.Tier(),
	)
	if err != nil {
		return fmt.Errorf("failed to apply subscription update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("no profile for user %s", upd.UserID)
	}
	return nil
}

// ClearSubscription handles subscription deletion: ids are cleared but the
// final period end stays on the row for audit.
func (s *ProfileService) ClearSubscription(ctx context.Context, userID string, finalPeriodEnd *time.Time) error {
	query := `
		UPDATE user_profiles
		SET stripe_subscription_id = NULL,
			stripe_price_id = NULL,
			status = 'canceled',
			subscription_tier = 'free',
			current_period_end = COALESCE($2, current_period_end),
			updated_at = NOW()
		WHERE id = $1
	`
	if _, err := s.db.Exec(ctx, query, userID, finalPeriodEnd); err != nil {
		return fmt.Errorf("failed to clear subscription: %w", err)
	}
	return nil
}

// DowngradeToFree is the invoice.payment_failed path.
func (s *ProfileService) DowngradeToFree(ctx context.Context, userID string) error {
	query := `
		UPDATE user_profiles
		SET status = 'free',
			stripe_price_id = NULL,
			subscription_tier = 'free',
			updated_at = NOW()
		WHERE id = $1
	`
	if _, err := s.db.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to downgrade user %s: %w", userID, err)
	}
	return nil
}

func (s *ProfileService) DeleteProfileByClerkID(ctx context.Context, clerkID string) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var userID string
	if err := tx.QueryRow(ctx, `SELECT id FROM user_profiles WHERE clerk_id = $1`, clerkID).Scan(&userID); err != nil {
		if err == pgx.ErrNoRows {
			return fmt.Errorf("profile not found")
		}
		return fmt.Errorf("failed to look up profile: %w", err)
	}

	if err := deleteUserRows(ctx, tx, userID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func deleteUserRows(ctx context.Context, tx pgx.Tx, userID string) error {
	for _, q := range []string{
		`DELETE FROM notification_logs WHERE user_id = $1`,
		`DELETE FROM notification_preferences WHERE user_id = $1`,
		`DELETE FROM jobs WHERE user_id = $1`,
		`DELETE FROM queries WHERE user_id = $1`,
		`DELETE FROM user_profiles WHERE id = $1`,
	} {
		if _, err := tx.Exec(ctx, q, userID); err != nil {
			return fmt.Errorf("failed to cascade delete user %s: %w", userID, err)
		}
	}
	return nil
}
