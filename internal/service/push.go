package service

import (
	"context"
	"log"

	"ridedispatch/internal/domain"
)

// PushSender delivers one push notification to a device token.
type PushSender interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) error
}

// LogPushSender writes notifications to the log instead of a push provider.
// Used when no provider credentials are configured.
type LogPushSender struct{}

// Send logs the notification.
func (LogPushSender) Send(_ context.Context, token, title, body string, _ map[string]string) error {
	log.Printf("[push] to=%s title=%q body=%q", token, title, body)
	return nil
}

// PushService sends ride lifecycle notifications to the parties' devices.
// Delivery is best-effort; failures are logged and never surface to the
// request that triggered them.
type PushService struct {
	sender PushSender
}

// NewPushService creates a new PushService.
func NewPushService(sender PushSender) *PushService {
	return &PushService{sender: sender}
}

// NotifyRideParties pushes the same lifecycle notification to the rider and
// the driver, when each has a registered device token.
func (s *PushService) NotifyRideParties(ctx context.Context, ride *domain.Ride, title, body string) {
	if s == nil || s.sender == nil || ride == nil {
		return
	}

	data := map[string]string{
		"ride_id": ride.ID,
		"status":  string(ride.Status),
	}

	if ride.Rider != nil && ride.Rider.FCMToken != "" {
		if err := s.sender.Send(ctx, ride.Rider.FCMToken, title, body, data); err != nil {
			log.Printf("[push] rider notification failed: ride=%s: %v", ride.ID, err)
		}
	}
	if ride.Driver != nil && ride.Driver.FCMToken != "" {
		if err := s.sender.Send(ctx, ride.Driver.FCMToken, title, body, data); err != nil {
			log.Printf("[push] driver notification failed: ride=%s: %v", ride.ID, err)
		}
	}
}
