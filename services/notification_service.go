package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"jobRadarAPI/internal/types/notification"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type NotificationService struct {
	db         *pgxpool.Pool
	dispatcher *NotificationDispatcher
}

func NewNotificationService(db *pgxpool.Pool) *NotificationService {
	service := &NotificationService{db: db}
	service.dispatcher = NewNotificationDispatcher(service)
	return service
}

// Dispatcher exposes the dispatcher so main.go can inject providers and stop
// it on shutdown.
func (s *NotificationService) Dispatcher() *NotificationDispatcher {
	return s.dispatcher
}

const preferencesColumns = `
	id, user_id, email_notifications, mobile_push_notifications,
	webhook_notifications, webhook_url, webhook_secret, notification_frequency,
	email_digest, expo_push_token, quiet_hours_enabled, quiet_hours_start,
	quiet_hours_end, quiet_hours_timezone, data_sharing_consent,
	marketing_consent, created_at, updated_at
`

func scanPreferences(row pgx.Row) (*notification.Preferences, error) {
	p := &notification.Preferences{}
	err := row.Scan(
		&p.ID, &p.UserID, &p.EmailNotifications, &p.MobilePushNotifications,
		&p.WebhookNotifications, &p.WebhookURL, &p.WebhookSecret,
		&p.NotificationFrequency, &p.EmailDigest, &p.ExpoPushToken,
		&p.QuietHoursEnabled, &p.QuietHoursStart, &p.QuietHoursEnd,
		&p.QuietHoursTimezone, &p.DataSharingConsent, &p.MarketingConsent,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetPreferences returns the user's preferences, inserting the default row
// when none exists yet.
func (s *NotificationService) GetPreferences(ctx context.Context, userID string) (*notification.Preferences, error) {
	p, err := scanPreferences(s.db.QueryRow(ctx,
		`SELECT `+preferencesColumns+` FROM notification_preferences WHERE user_id = $1`, userID))
	if err == nil {
		return p, nil
	}
	if err != pgx.ErrNoRows {
		return nil, fmt.Errorf("failed to get preferences: %w", err)
	}

	p, err = scanPreferences(s.db.QueryRow(ctx, `
		INSERT INTO notification_preferences (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = NOW()
		RETURNING `+preferencesColumns, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to create default preferences: %w", err)
	}
	return p, nil
}

func (s *NotificationService) UpdatePreferences(ctx context.Context, userID string, req *notification.UpdatePreferencesRequest) (*notification.Preferences, error) {
	// Make sure the row exists before building the update.
	if _, err := s.GetPreferences(ctx, userID); err != nil {
		return nil, err
	}

	updates := []string{}
	args := []interface{}{userID}
	argCount := 2

	add := func(col string, val interface{}) {
		updates = append(updates, fmt.Sprintf("%s = $%d", col, argCount))
		args = append(args, val)
		argCount++
	}

	if req.EmailNotifications != nil {
		add("email_notifications", *req.EmailNotifications)
	}
	if req.MobilePushNotifications != nil {
		add("mobile_push_notifications", *req.MobilePushNotifications)
	}
	if req.WebhookNotifications != nil {
		add("webhook_notifications", *req.WebhookNotifications)
	}
	if req.WebhookURL != nil {
		add("webhook_url", *req.WebhookURL)
	}
	if req.NotificationFrequency != nil {
		switch *req.NotificationFrequency {
		case notification.FrequencyImmediate, notification.FrequencyHourly, notification.FrequencyDaily:
		default:
			return nil, fmt.Errorf("invalid notification frequency %q", *req.NotificationFrequency)
		}
		add("notification_frequency", *req.NotificationFrequency)
	}
	if req.EmailDigest != nil {
		add("email_digest", *req.EmailDigest)
	}
	if req.QuietHoursEnabled != nil {
		add("quiet_hours_enabled", *req.QuietHoursEnabled)
	}
	if req.QuietHoursStart != nil {
		if err := validateClock(*req.QuietHoursStart); err != nil {
			return nil, err
		}
		add("quiet_hours_start", *req.QuietHoursStart)
	}
	if req.QuietHoursEnd != nil {
		if err := validateClock(*req.QuietHoursEnd); err != nil {
			return nil, err
		}
		add("quiet_hours_end", *req.QuietHoursEnd)
	}
	if req.QuietHoursTimezone != nil {
		if _, err := time.LoadLocation(*req.QuietHoursTimezone); err != nil {
			return nil, fmt.Errorf("invalid timezone %q", *req.QuietHoursTimezone)
		}
		add("quiet_hours_timezone", *req.QuietHoursTimezone)
	}
	if req.DataSharingConsent != nil {
		add("data_sharing_consent", *req.DataSharingConsent)
	}
	if req.MarketingConsent != nil {
		add("marketing_consent", *req.MarketingConsent)
	}

	if len(updates) == 0 {
		return s.GetPreferences(ctx, userID)
	}

	query := fmt.Sprintf(`
		UPDATE notification_preferences
		SET %s, updated_at = NOW()
		WHERE user_id = $1
		RETURNING `+preferencesColumns, strings.Join(updates, ", "))

	p, err := scanPreferences(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("failed to update preferences: %w", err)
	}
	return p, nil
}

func validateClock(v string) error {
	if _, err := time.Parse("15:04", v); err != nil {
		return fmt.Errorf("invalid quiet hours time %q, want HH:MM", v)
	}
	return nil
}

// RegisterDevice stores the Expo push token used by the push channel.
func (s *NotificationService) RegisterDevice(ctx context.Context, userID string, req *notification.RegisterDeviceRequest) error {
	if req.ExpoPushToken == "" {
		return fmt.Errorf("expoPushToken is required")
	}
	if _, err := s.GetPreferences(ctx, userID); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx, `
		UPDATE notification_preferences
		SET expo_push_token = $2, updated_at = NOW()
		WHERE user_id = $1
	`, userID, req.ExpoPushToken)
	if err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}

const logColumns = `
	id, user_id, notification_type, trigger_event, job_count, query_ids,
	status, recipient, error_message, metadata, sent_at, created_at
`

func scanLog(row pgx.Row) (*notification.Log, error) {
	l := &notification.Log{}
	var metadata []byte
	err := row.Scan(
		&l.ID, &l.UserID, &l.Channel, &l.TriggerEvent, &l.JobCount,
		&l.QueryIDs, &l.Status, &l.Recipient, &l.ErrorMessage, &metadata,
		&l.SentAt, &l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &l.Metadata); err != nil {
			log.Printf("Failed to decode metadata for log %s: %v", l.ID, err)
		}
	}
	return l, nil
}

// AppendLog records one delivery attempt. The log is append-only: terminal
// status transitions go through markLog*, history is never rewritten.
func (s *NotificationService) AppendLog(ctx context.Context, userID string, req *notification.SendRequest, status notification.Status) (*notification.Log, error) {
	metadata, err := json.Marshal(req.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}

	var recipient *string
	if req.Recipient != "" {
		recipient = &req.Recipient
	}

	l, err := scanLog(s.db.QueryRow(ctx, `
		INSERT INTO notification_logs (
			id, user_id, notification_type, trigger_event, job_count,
			query_ids, status, recipient, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+logColumns,
		uuid.New(), userID, req.Channel, req.TriggerEvent, req.JobCount,
		req.QueryIDs, status, recipient, metadata))
	if err != nil {
		return nil, fmt.Errorf("failed to append notification log: %w", err)
	}
	return l, nil
}

func (s *NotificationService) ListLogs(ctx context.Context, userID string, limit int) ([]*notification.Log, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}

	rows, err := s.db.Query(ctx, `
		SELECT `+logColumns+`
		FROM notification_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notification logs: %w", err)
	}
	defer rows.Close()

	var logs []*notification.Log
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification log: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notification logs: %w", err)
	}
	return logs, nil
}

// GetStatusSummary combines preference toggles with recent delivery history.
func (s *NotificationService) GetStatusSummary(ctx context.Context, userID string) (*notification.StatusSummary, error) {
	prefs, err := s.GetPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary := &notification.StatusSummary{
		EmailEnabled:   prefs.EmailNotifications,
		PushEnabled:    prefs.MobilePushNotifications,
		WebhookEnabled: prefs.WebhookNotifications,
	}

	err = s.db.QueryRow(ctx, `
		SELECT
			MAX(sent_at) FILTER (WHERE notification_type = 'email' AND status = 'sent'),
			MAX(sent_at) FILTER (WHERE notification_type = 'mobile_push' AND status = 'sent'),
			MAX(sent_at) FILTER (WHERE notification_type = 'webhook' AND status = 'sent'),
			COUNT(*) FILTER (WHERE status = 'sent'),
			COUNT(*) FILTER (WHERE status = 'failed')
		FROM notification_logs
		WHERE user_id = $1
	`, userID).Scan(
		&summary.LastEmailSent, &summary.LastPushSent, &summary.LastWebhookSent,
		&summary.TotalNotificationsSent, &summary.FailedNotifications,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate notification status: %w", err)
	}
	return summary, nil
}

// Send validates the request, appends a pending log row and hands the attempt
// to the dispatcher. The log row is returned immediately; delivery is
// asynchronous.
func (s *NotificationService) Send(ctx context.Context, userID string, req *notification.SendRequest) (*notification.Log, error) {
	switch req.Channel {
	case notification.ChannelEmail, notification.ChannelMobilePush,
		notification.ChannelWebPush, notification.ChannelWebhook:
	default:
		return nil, fmt.Errorf("invalid notification channel %q", req.Channel)
	}
	switch req.TriggerEvent {
	case notification.TriggerNewJobs, notification.TriggerQueryComplete,
		notification.TriggerSystemAlert, notification.TriggerDigest:
	default:
		return nil, fmt.Errorf("invalid trigger event %q", req.TriggerEvent)
	}

	prefs, err := s.GetPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}

	l, err := s.AppendLog(ctx, userID, req, notification.StatusPending)
	if err != nil {
		return nil, err
	}

	s.dispatcher.Dispatch(&DispatchJob{Log: l, Request: req, Preferences: prefs})
	return l, nil
}

// NotifyTrialEnding sends a trial reminder. system_alert triggers bypass
// quiet hours, so the reminder goes out even inside a suppression window.
func (s *NotificationService) NotifyTrialEnding(ctx context.Context, userID string, trialEnd *time.Time) error {
	var email string
	err := s.db.QueryRow(ctx, `SELECT email FROM user_profiles WHERE id = $1`, userID).Scan(&email)
	if err != nil {
		return fmt.Errorf("failed to look up user %s: %w", userID, err)
	}

	body := "Your free trial is ending soon. Add a payment method to keep your searches running."
	if trialEnd != nil {
		body = fmt.Sprintf("Your free trial ends on %s. Add a payment method to keep your searches running.", trialEnd.Format("January 2, 2006"))
	}

	_, err = s.Send(ctx, userID, &notification.SendRequest{
		Channel:      notification.ChannelEmail,
		TriggerEvent: notification.TriggerSystemAlert,
		Title:        "Your trial is ending soon",
		Body:         body,
		Recipient:    email,
	})
	return err
}

func (s *NotificationService) markLogSent(ctx context.Context, logID uuid.UUID) {
	_, err := s.db.Exec(ctx, `
		UPDATE notification_logs SET status = 'sent', sent_at = NOW() WHERE id = $1
	`, logID)
	if err != nil {
		log.Printf("Failed to mark notification %s as sent: %v", logID, err)
	}
}

func (s *NotificationService) markLogFailed(ctx context.Context, logID uuid.UUID, cause error) {
	_, err := s.db.Exec(ctx, `
		UPDATE notification_logs SET status = 'failed', error_message = $2 WHERE id = $1
	`, logID, cause.Error())
	if err != nil {
		log.Printf("Failed to mark notification %s as failed: %v", logID, err)
	}
}

func (s *NotificationService) markLogSkipped(ctx context.Context, logID uuid.UUID, reason string) {
	_, err := s.db.Exec(ctx, `
		UPDATE notification_logs SET status = 'skipped', error_message = $2 WHERE id = $1
	`, logID, reason)
	if err != nil {
		log.Printf("Failed to mark notification %s as skipped: %v", logID, err)
	}
}
