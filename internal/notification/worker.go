package notification

import (
	"context"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	log "github.com/sirupsen/logrus"

	"ward-status-backend/internal/beds"
	"ward-status-backend/internal/metrics"
	"ward-status-backend/internal/model"
	"ward-status-backend/internal/store"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool sends "bed available" pushes to the subscribers of the bed's area.
type WorkerPool struct {
	size    int
	jobs    chan int64
	store   store.Store
	webpush *webpush.Options
	sender  NotificationSender
	metrics *metrics.Metrics
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, s store.Store, webpushOptions *webpush.Options, m *metrics.Metrics) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan int64, size*16),
		store:   s,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		metrics: m,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Debugf("Worker %d started", id)
	for {
		select {
		case bedID := <-wp.jobs:
			log.WithFields(log.Fields{"worker": id, "bed_id": bedID}).Debug("processing bed available job")
			wp.sendNotificationsForBed(ctx, bedID)
		case <-ctx.Done():
			log.Debugf("Worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues a bed that just became available. It never blocks the caller;
// when the queue is full the job is dropped.
func (wp *WorkerPool) Dispatch(bedID int64) {
	select {
	case wp.jobs <- bedID:
	default:
		log.WithField("bed_id", bedID).Warn("notification queue full, dropping job")
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan int64 {
	return wp.jobs
}

func (wp *WorkerPool) sendNotificationsForBed(ctx context.Context, bedID int64) {
	bed, err := wp.store.GetBed(ctx, bedID)
	if err != nil {
		log.WithError(err).WithField("bed_id", bedID).Error("failed to load bed for notification")
		return
	}
	// The bed may have been taken again before the job ran.
	if !beds.IsBedAvailable(*bed) {
		return
	}

	subscriptions, err := wp.store.SubscriptionsForArea(ctx, bed.Area)
	if err != nil {
		log.WithError(err).WithField("area", bed.Area).Error("failed to fetch subscriptions")
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	log.WithFields(log.Fields{"bed_id": bedID, "subscriptions": len(subscriptions)}).Info("sending bed available notifications")
	message := fmt.Sprintf("Cama %s disponible", beds.FormatBedLabel(*bed))
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, []byte(message))
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.metrics.RecordPush("error")
		log.WithError(err).WithField("endpoint", sub.Endpoint).Warn("failed to send notification")
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		wp.metrics.RecordPush("expired")
		log.WithField("endpoint", sub.Endpoint).Info("subscription expired, deleting")
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			log.WithError(err).WithField("endpoint", sub.Endpoint).Error("failed to delete expired subscription")
		}
		return
	}
	wp.metrics.RecordPush("sent")
}
