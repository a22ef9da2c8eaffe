package service

import (
	"context"
	"log"
	"time"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/events"
	"ridedispatch/internal/geo"
	"ridedispatch/internal/redis"
	"ridedispatch/internal/repository"
)

// dispatchRadiusKm is how far from the pickup point drivers are offered a
// new ride before falling back to a broadcast.
const dispatchRadiusKm = 2.0

const (
	dispatchQueueSize  = 128
	dispatchJobTimeout = 30 * time.Second
)

// Geocoder is the slice of the geo client dispatch needs.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (geo.Coordinate, error)
}

// RealtimeEmitter sends an event to one live connection handle. Returns
// false when the handle is gone or its buffer is full.
type RealtimeEmitter interface {
	EmitTo(connID, event string, data interface{}) bool
}

// EventPublisher publishes a ride event to the message broker, best-effort.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload interface{})
}

// DispatchService turns a newly created ride into a real-time broadcast to
// candidate drivers. Delivery is fire-and-forget: no acknowledgment, no
// retry queue, no guarantee a driver receives the offer exactly once or at
// all. A failed notification never rolls back or fails ride creation.
type DispatchService struct {
	geo       Geocoder
	discovery *DiscoveryService
	locations redis.LocationStoreInterface
	rideRepo  repository.RideRepository
	emitter   RealtimeEmitter
	events    EventPublisher

	jobs chan dispatchJob
	done chan struct{}
}

type dispatchJob struct {
	RideID string
	Pickup string
}

// NewDispatchService creates a new DispatchService. Call Start to launch
// its worker.
func NewDispatchService(
	geocoder Geocoder,
	discovery *DiscoveryService,
	locations redis.LocationStoreInterface,
	rideRepo repository.RideRepository,
	emitter RealtimeEmitter,
	publisher EventPublisher,
) *DispatchService {
	return &DispatchService{
		geo:       geocoder,
		discovery: discovery,
		locations: locations,
		rideRepo:  rideRepo,
		emitter:   emitter,
		events:    publisher,
		jobs:      make(chan dispatchJob, dispatchQueueSize),
		done:      make(chan struct{}),
	}
}

// Start launches the single worker goroutine consuming dispatch jobs.
func (s *DispatchService) Start() {
	go func() {
		for {
			select {
			case <-s.done:
				return
			case job := <-s.jobs:
				ctx, cancel := context.WithTimeout(context.Background(), dispatchJobTimeout)
				s.notify(ctx, job)
				cancel()
			}
		}
	}()
}

// Stop shuts down the worker. Queued jobs are dropped.
func (s *DispatchService) Stop() {
	close(s.done)
}

// NotifyRideCreated enqueues a dispatch job without blocking. When the
// queue is full the notification is dropped and logged; ride creation is
// unaffected.
func (s *DispatchService) NotifyRideCreated(rideID, pickup string) {
	select {
	case s.jobs <- dispatchJob{RideID: rideID, Pickup: pickup}:
	default:
		log.Printf("[dispatch] queue full, dropping notification for ride %s", rideID)
	}
}

// notify resolves the pickup point, finds nearby drivers, and emits a
// new-ride event to their live connections. When no nearby driver has a
// connection it broadcasts to every connected driver: reaching someone
// beats precise targeting. Any failure falls through to an independent
// broadcast-only attempt before the notification is dropped.
func (s *DispatchService) notify(ctx context.Context, job dispatchJob) {
	if err := s.notifyNearby(ctx, job); err != nil {
		if err := s.broadcastAll(ctx, job.RideID); err != nil {
			log.Printf("[dispatch] ride %s notification skipped: %v", job.RideID, err)
		} else {
			log.Printf("[dispatch] ride %s delivered via broadcast fallback", job.RideID)
		}
	}
}

func (s *DispatchService) notifyNearby(ctx context.Context, job dispatchJob) error {
	pickup, err := s.geo.Geocode(ctx, job.Pickup)
	if err != nil {
		return err
	}

	nearby, err := s.discovery.FindWithinRadius(ctx, pickup, dispatchRadiusKm)
	if err != nil {
		return err
	}

	handles := connectionHandles(nearby)
	if len(handles) == 0 {
		handles, err = s.locations.ConnectedHandles(ctx)
		if err != nil {
			return err
		}
	}

	return s.emitNewRide(ctx, job.RideID, handles)
}

// broadcastAll is the second, independent fallback path: every connected
// driver, regardless of distance.
func (s *DispatchService) broadcastAll(ctx context.Context, rideID string) error {
	handles, err := s.locations.ConnectedHandles(ctx)
	if err != nil {
		return err
	}
	return s.emitNewRide(ctx, rideID, handles)
}

func (s *DispatchService) emitNewRide(ctx context.Context, rideID string, handles []string) error {
	ride, err := s.rideRepo.GetWithParties(ctx, rideID)
	if err != nil {
		return err
	}

	payload := NewRideEvent(ride)
	for _, handle := range handles {
		s.emitter.EmitTo(handle, "new-ride", payload)
	}

	if s.events != nil {
		s.events.Publish(ctx, events.RideCreated, payload)
	}

	return nil
}

// connectionHandles collects the distinct, non-empty live-connection
// handles of the given drivers.
func connectionHandles(drivers []domain.DriverLocation) []string {
	seen := make(map[string]struct{}, len(drivers))
	var handles []string
	for _, d := range drivers {
		if d.ConnID == "" {
			continue
		}
		if _, ok := seen[d.ConnID]; ok {
			continue
		}
		seen[d.ConnID] = struct{}{}
		handles = append(handles, d.ConnID)
	}
	return handles
}
