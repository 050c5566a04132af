package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"jobRadarAPI/internal/types/notification"
)

type PushNotificationProvider interface {
	SendPush(ctx context.Context, tokens []string, title, body string, data map[string]any) error
}

type EmailProvider interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

type WebhookProvider interface {
	SendWebhook(ctx context.Context, url, secret string, payload []byte) error
}

// NotificationDispatcher delivers queued notifications through the channel
// requested on each attempt. Providers are injected from main.go so tests can
// swap in mocks.
type NotificationDispatcher struct {
	service         *NotificationService
	pushProvider    PushNotificationProvider
	emailProvider   EmailProvider
	webhookProvider WebhookProvider
	workers         int
	jobQueue        chan *DispatchJob
	stopChan        chan struct{}
	wg              sync.WaitGroup
}

type DispatchJob struct {
	Log         *notification.Log
	Request     *notification.SendRequest
	Preferences *notification.Preferences
}

func NewNotificationDispatcher(service *NotificationService) *NotificationDispatcher {
	dispatcher := &NotificationDispatcher{
		service:  service,
		workers:  5, // 5 workers is plenty for now
		jobQueue: make(chan *DispatchJob, 100),
		stopChan: make(chan struct{}),
	}

	dispatcher.startWorkers()
	return dispatcher
}

func (d *NotificationDispatcher) SetPushProvider(provider PushNotificationProvider) {
	d.pushProvider = provider
}

func (d *NotificationDispatcher) SetEmailProvider(provider EmailProvider) {
	d.emailProvider = provider
}

func (d *NotificationDispatcher) SetWebhookProvider(provider WebhookProvider) {
	d.webhookProvider = provider
}

func (d *NotificationDispatcher) startWorkers() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
}

func (d *NotificationDispatcher) worker(id int) {
	defer d.wg.Done()
	for {
		select {
		case job := <-d.jobQueue:
			d.processJob(job)
		case <-d.stopChan:
			return
		}
	}
}

// Dispatch queues a delivery attempt. Drops the attempt (marking it failed)
// if the queue stays full for 5 seconds.
func (d *NotificationDispatcher) Dispatch(job *DispatchJob) {
	select {
	case d.jobQueue <- job:
	case <-time.After(5 * time.Second):
		log.Printf("Failed to queue notification %s: queue full", job.Log.ID)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		d.service.markLogFailed(ctx, job.Log.ID, fmt.Errorf("dispatch queue full"))
	}
}

func (d *NotificationDispatcher) processJob(job *DispatchJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	prefs := job.Preferences
	req := job.Request

	// System alerts bypass quiet hours, everything else waits.
	if req.TriggerEvent != notification.TriggerSystemAlert && InQuietHours(prefs, time.Now()) {
		d.service.markLogSkipped(ctx, job.Log.ID, "quiet hours")
		return
	}

	var err error
	switch req.Channel {
	case notification.ChannelMobilePush, notification.ChannelWebPush:
		err = d.sendPush(ctx, req, prefs)
	case notification.ChannelEmail:
		err = d.sendEmail(ctx, req, prefs)
	case notification.ChannelWebhook:
		err = d.sendWebhook(ctx, job, prefs)
	default:
		err = fmt.Errorf("unsupported channel %q", req.Channel)
	}

	if err != nil {
		if _, ok := err.(*channelDisabledError); ok {
			d.service.markLogSkipped(ctx, job.Log.ID, err.Error())
			return
		}
		log.Printf("Delivery failed for user %s on %s: %v", job.Log.UserID, req.Channel, err)
		d.service.markLogFailed(ctx, job.Log.ID, err)
		return
	}

	d.service.markLogSent(ctx, job.Log.ID)
}

type channelDisabledError struct{ reason string }

func (e *channelDisabledError) Error() string { return e.reason }

func (d *NotificationDispatcher) sendPush(ctx context.Context, req *notification.SendRequest, prefs *notification.Preferences) error {
	if !prefs.MobilePushNotifications {
		return &channelDisabledError{"push notifications disabled"}
	}
	if prefs.ExpoPushToken == nil || *prefs.ExpoPushToken == "" {
		return &channelDisabledError{"no registered device"}
	}
	if d.pushProvider == nil {
		return fmt.Errorf("push provider not configured")
	}
	return d.pushProvider.SendPush(ctx, []string{*prefs.ExpoPushToken}, req.Title, req.Body, req.Metadata)
}

func (d *NotificationDispatcher) sendEmail(ctx context.Context, req *notification.SendRequest, prefs *notification.Preferences) error {
	if !prefs.EmailNotifications {
		return &channelDisabledError{"email notifications disabled"}
	}
	if req.Recipient == "" {
		return fmt.Errorf("no recipient address")
	}
	if d.emailProvider == nil {
		return fmt.Errorf("email provider not configured")
	}
	return d.emailProvider.SendEmail(ctx, req.Recipient, req.Title, req.Body)
}

func (d *NotificationDispatcher) sendWebhook(ctx context.Context, job *DispatchJob, prefs *notification.Preferences) error {
	if !prefs.WebhookNotifications {
		return &channelDisabledError{"webhook notifications disabled"}
	}
	if prefs.WebhookURL == nil || *prefs.WebhookURL == "" {
		return &channelDisabledError{"no webhook url configured"}
	}
	if d.webhookProvider == nil {
		return fmt.Errorf("webhook provider not configured")
	}

	payload, err := json.Marshal(map[string]any{
		"id":           job.Log.ID,
		"triggerEvent": job.Request.TriggerEvent,
		"title":        job.Request.Title,
		"body":         job.Request.Body,
		"jobCount":     job.Request.JobCount,
		"queryIds":     job.Request.QueryIDs,
		"metadata":     job.Request.Metadata,
		"sentAt":       time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	secret := ""
	if prefs.WebhookSecret != nil {
		secret = *prefs.WebhookSecret
	}
	return d.webhookProvider.SendWebhook(ctx, *prefs.WebhookURL, secret, payload)
}

// InQuietHours reports whether now falls inside the user's quiet hours
// window, evaluated in the user's timezone. Windows may wrap midnight
// (22:00-08:00). Malformed settings disable the window rather than blocking
// delivery forever.
func InQuietHours(prefs *notification.Preferences, now time.Time) bool {
	if !prefs.QuietHoursEnabled {
		return false
	}

	loc, err := time.LoadLocation(prefs.QuietHoursTimezone)
	if err != nil {
		log.Printf("Invalid quiet hours timezone %q: %v", prefs.QuietHoursTimezone, err)
		return false
	}

	start, err := time.Parse("15:04", prefs.QuietHoursStart)
	if err != nil {
		return false
	}
	end, err := time.Parse("15:04", prefs.QuietHoursEnd)
	if err != nil {
		return false
	}

	local := now.In(loc)
	minutes := local.Hour()*60 + local.Minute()
	startMin := start.Hour()*60 + start.Minute()
	endMin := end.Hour()*60 + end.Minute()

	if startMin == endMin {
		return false
	}
	if startMin < endMin {
		return minutes >= startMin && minutes < endMin
	}
	// Wraps midnight.
	return minutes >= startMin || minutes < endMin
}

// Stop drains the worker pool gracefully.
func (d *NotificationDispatcher) Stop() {
	log.Println("Stopping notification dispatcher...")
	close(d.stopChan)
	d.wg.Wait()
	log.Println("Notification dispatcher stopped")
}
