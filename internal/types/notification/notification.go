package notification

import (
	"time"

	"github.com/google/uuid"
)

type Channel string

const (
	ChannelEmail      Channel = "email"
	ChannelMobilePush Channel = "mobile_push"
	ChannelWebPush    Channel = "web_push"
	ChannelWebhook    Channel = "webhook"
)

type TriggerEvent string

const (
	TriggerNewJobs       TriggerEvent = "new_jobs"
	TriggerQueryComplete TriggerEvent = "query_complete"
	TriggerSystemAlert   TriggerEvent = "system_alert"
	TriggerDigest        TriggerEvent = "digest"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

type Frequency string

const (
	FrequencyImmediate Frequency = "immediate"
	FrequencyHourly    Frequency = "hourly"
	FrequencyDaily     Frequency = "daily"
)

// Preferences holds the per-user delivery channel toggles and quiet-hours
// window. One row per user, created with defaults on first read.
type Preferences struct {
	ID                      int64     `json:"id" db:"id"`
	UserID                  string    `json:"userId" db:"user_id"`
	EmailNotifications      bool      `json:"emailNotifications" db:"email_notifications"`
	MobilePushNotifications bool      `json:"mobilePushNotifications" db:"mobile_push_notifications"`
	WebhookNotifications    bool      `json:"webhookNotifications" db:"webhook_notifications"`
	WebhookURL              *string   `json:"webhookUrl,omitempty" db:"webhook_url"`
	WebhookSecret           *string   `json:"-" db:"webhook_secret"`
	NotificationFrequency   Frequency `json:"notificationFrequency" db:"notification_frequency"`
	EmailDigest             bool      `json:"emailDigest" db:"email_digest"`
	ExpoPushToken           *string   `json:"expoPushToken,omitempty" db:"expo_push_token"`
	QuietHoursEnabled       bool      `json:"quietHoursEnabled" db:"quiet_hours_enabled"`
	QuietHoursStart         string    `json:"quietHoursStart" db:"quiet_hours_start"`
	QuietHoursEnd           string    `json:"quietHoursEnd" db:"quiet_hours_end"`
	QuietHoursTimezone      string    `json:"quietHoursTimezone" db:"quiet_hours_timezone"`
	DataSharingConsent      bool      `json:"dataSharingConsent" db:"data_sharing_consent"`
	MarketingConsent        bool      `json:"marketingConsent" db:"marketing_consent"`
	CreatedAt               time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt               time.Time `json:"updatedAt" db:"updated_at"`
}

type UpdatePreferencesRequest struct {
	EmailNotifications      *bool      `json:"emailNotifications,omitempty"`
	MobilePushNotifications *bool      `json:"mobilePushNotifications,omitempty"`
	WebhookNotifications    *bool      `json:"webhookNotifications,omitempty"`
	WebhookURL              *string    `json:"webhookUrl,omitempty"`
	NotificationFrequency   *Frequency `json:"notificationFrequency,omitempty"`
	EmailDigest             *bool      `json:"emailDigest,omitempty"`
	QuietHoursEnabled       *bool      `json:"quietHoursEnabled,omitempty"`
	QuietHoursStart         *string    `json:"quietHoursStart,omitempty"`
	QuietHoursEnd           *string    `json:"quietHoursEnd,omitempty"`
	QuietHoursTimezone      *string    `json:"quietHoursTimezone,omitempty"`
	DataSharingConsent      *bool      `json:"dataSharingConsent,omitempty"`
	MarketingConsent        *bool      `json:"marketingConsent,omitempty"`
}

// Log is one row of the append-only notification attempt log.
type Log struct {
	ID           uuid.UUID      `json:"id" db:"id"`
	UserID       string         `json:"userId" db:"user_id"`
	Channel      Channel        `json:"notificationType" db:"notification_type"`
	TriggerEvent TriggerEvent   `json:"triggerEvent" db:"trigger_event"`
	JobCount     int            `json:"jobCount" db:"job_count"`
	QueryIDs     []int64        `json:"queryIds" db:"query_ids"`
	Status       Status         `json:"status" db:"status"`
	Recipient    *string        `json:"recipient,omitempty" db:"recipient"`
	ErrorMessage *string        `json:"errorMessage,omitempty" db:"error_message"`
	Metadata     map[string]any `json:"metadata,omitempty" db:"metadata"`
	SentAt       *time.Time     `json:"sentAt,omitempty" db:"sent_at"`
	CreatedAt    time.Time      `json:"createdAt" db:"created_at"`
}

type SendRequest struct {
	Channel      Channel        `json:"notificationType"`
	TriggerEvent TriggerEvent   `json:"triggerEvent"`
	Title        string         `json:"title"`
	Body         string         `json:"body"`
	JobCount     int            `json:"jobCount,omitempty"`
	QueryIDs     []int64        `json:"queryIds,omitempty"`
	Recipient    string         `json:"recipient,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

type RegisterDeviceRequest struct {
	ExpoPushToken string `json:"expoPushToken"`
	Platform      string `json:"platform"`
}

// StatusSummary aggregates the preference toggles with recent log history.
type StatusSummary struct {
	EmailEnabled           bool       `json:"emailEnabled"`
	PushEnabled            bool       `json:"pushEnabled"`
	WebhookEnabled         bool       `json:"webhookEnabled"`
	LastEmailSent          *time.Time `json:"lastEmailSent,omitempty"`
	LastPushSent           *time.Time `json:"lastPushSent,omitempty"`
	LastWebhookSent        *time.Time `json:"lastWebhookSent,omitempty"`
	TotalNotificationsSent int        `json:"totalNotificationsSent"`
	FailedNotifications    int        `json:"failedNotifications"`
}
