package tests

import (
	"context"
	"sync"
	"sync/atomic"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/geo"
	"ridedispatch/internal/repository"
	"ridedispatch/internal/service"
)

// ──────────────────────────────────────────────
// MOCK RIDE REPOSITORY
// ──────────────────────────────────────────────

// MockRideRepository is an in-memory implementation of RideRepository with
// the same compare-and-set completion semantics as the SQL implementation.
type MockRideRepository struct {
	mu    sync.Mutex
	rides map[string]*domain.Ride

	// Parties to hydrate in GetWithParties, keyed by id.
	users   map[string]*domain.User
	drivers map[string]*domain.Driver

	// Counters for verification
	CreateCallCount   int32
	CompleteCallCount int32

	// Error injection
	CreateError error
}

// NewMockRideRepository creates a new mock ride repository.
func NewMockRideRepository() *MockRideRepository {
	return &MockRideRepository{
		rides:   make(map[string]*domain.Ride),
		users:   make(map[string]*domain.User),
		drivers: make(map[string]*domain.Driver),
	}
}

// AddRide adds a ride to the mock repository.
func (m *MockRideRepository) AddRide(ride *domain.Ride) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rides[ride.ID] = ride
}

// AddUser registers a rider for hydration.
func (m *MockRideRepository) AddUser(user *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
}

// AddDriver registers a driver for hydration.
func (m *MockRideRepository) AddDriver(driver *domain.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[driver.ID] = driver
}

func (m *MockRideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *ride
	m.rides[ride.ID] = &stored
	return nil
}

func (m *MockRideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.copyOf(id)
}

func (m *MockRideRepository) GetByIDForRider(ctx context.Context, id, riderID string) (*domain.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, err := m.copyOf(id)
	if err != nil || ride.RiderID != riderID {
		return nil, repository.ErrNotFound
	}
	return ride, nil
}

func (m *MockRideRepository) GetByIDForDriver(ctx context.Context, id, driverID string) (*domain.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, err := m.copyOf(id)
	if err != nil || ride.DriverID != driverID {
		return nil, repository.ErrNotFound
	}
	return ride, nil
}

func (m *MockRideRepository) GetWithParties(ctx context.Context, id string) (*domain.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, err := m.copyOf(id)
	if err != nil {
		return nil, err
	}
	if user, ok := m.users[ride.RiderID]; ok {
		u := *user
		ride.Rider = &u
	}
	if driver, ok := m.drivers[ride.DriverID]; ok {
		d := *driver
		ride.Driver = &d
	}
	return ride, nil
}

func (m *MockRideRepository) GetAll(ctx context.Context) ([]*domain.Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*domain.Ride, 0, len(m.rides))
	for id := range m.rides {
		ride, _ := m.copyOf(id)
		result = append(result, ride)
	}
	return result, nil
}

func (m *MockRideRepository) Confirm(ctx context.Context, id, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[id]
	if !ok {
		return repository.ErrNotFound
	}
	// Last-write-wins, like the SQL implementation.
	ride.DriverID = driverID
	ride.Status = domain.RideStatusAccepted
	return nil
}

func (m *MockRideRepository) UpdateStatus(ctx context.Context, id string, status domain.RideStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[id]
	if !ok {
		return repository.ErrNotFound
	}
	ride.Status = status
	return nil
}

func (m *MockRideRepository) CompleteIfOngoing(ctx context.Context, id, driverID string) (*domain.Ride, error) {
	atomic.AddInt32(&m.CompleteCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[id]
	if !ok || ride.DriverID != driverID || ride.Status != domain.RideStatusOngoing {
		return nil, repository.ErrNotFound
	}
	ride.Status = domain.RideStatusCompleted
	return m.copyOf(id)
}

func (m *MockRideRepository) SetPaymentOrder(ctx context.Context, id, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[id]
	if !ok {
		return repository.ErrNotFound
	}
	ride.OrderID = orderID
	return nil
}

func (m *MockRideRepository) SetPaymentVerified(ctx context.Context, id, orderID, paymentID, signature string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ride, ok := m.rides[id]
	if !ok {
		return repository.ErrNotFound
	}
	ride.OrderID = orderID
	ride.PaymentID = paymentID
	ride.PaymentSignature = signature
	return nil
}

// GetRide returns the stored ride for test assertions.
func (m *MockRideRepository) GetRide(id string) *domain.Ride {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rides[id]
}

// copyOf must be called with the lock held.
func (m *MockRideRepository) copyOf(id string) (*domain.Ride, error) {
	ride, ok := m.rides[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *ride
	return &copied, nil
}

// ──────────────────────────────────────────────
// MOCK DRIVER REPOSITORY
// ──────────────────────────────────────────────

// MockDriverRepository is an in-memory implementation of DriverRepository.
type MockDriverRepository struct {
	mu      sync.RWMutex
	drivers map[string]*domain.Driver

	// Counters for verification
	IncrementStatsCallCount int32

	// Error injection
	IncrementStatsError error
}

// NewMockDriverRepository creates a new mock driver repository.
func NewMockDriverRepository() *MockDriverRepository {
	return &MockDriverRepository{
		drivers: make(map[string]*domain.Driver),
	}
}

// AddDriver adds a driver to the mock repository.
func (m *MockDriverRepository) AddDriver(driver *domain.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[driver.ID] = driver
}

func (m *MockDriverRepository) Create(ctx context.Context, driver *domain.Driver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[driver.ID] = driver
	return nil
}

func (m *MockDriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	driver, ok := m.drivers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *driver
	return &copied, nil
}

func (m *MockDriverRepository) GetAll(ctx context.Context) ([]*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Driver, 0, len(m.drivers))
	for _, d := range m.drivers {
		copied := *d
		result = append(result, &copied)
	}
	return result, nil
}

func (m *MockDriverRepository) IncrementStats(ctx context.Context, id string, fare int64) error {
	atomic.AddInt32(&m.IncrementStatsCallCount, 1)
	if m.IncrementStatsError != nil {
		return m.IncrementStatsError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	driver.CompletedTrips++
	driver.Earnings += fare
	return nil
}

func (m *MockDriverRepository) UpdateFCMToken(ctx context.Context, id, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	driver.FCMToken = token
	return nil
}

// GetDriver returns the stored driver for test assertions.
func (m *MockDriverRepository) GetDriver(id string) *domain.Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.drivers[id]
}

// ──────────────────────────────────────────────
// MOCK LOCATION STORE
// ──────────────────────────────────────────────

// MockLocationStore is an in-memory implementation of the driver location
// store.
type MockLocationStore struct {
	mu        sync.RWMutex
	locations map[string]domain.DriverLocation

	// Error injection
	AllError error
}

// NewMockLocationStore creates a new mock location store.
func NewMockLocationStore() *MockLocationStore {
	return &MockLocationStore{
		locations: make(map[string]domain.DriverLocation),
	}
}

// SetLocation seeds a full location record.
func (m *MockLocationStore) SetLocation(loc domain.DriverLocation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[loc.DriverID] = loc
}

func (m *MockLocationStore) UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	loc := m.locations[driverID]
	loc.DriverID = driverID
	loc.Lat = lat
	loc.Lng = lng
	m.locations[driverID] = loc
	return nil
}

func (m *MockLocationStore) SetConnection(ctx context.Context, driverID, connID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	loc := m.locations[driverID]
	loc.DriverID = driverID
	loc.ConnID = connID
	m.locations[driverID] = loc
	return nil
}

func (m *MockLocationStore) ClearConnection(ctx context.Context, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	loc, ok := m.locations[driverID]
	if ok {
		loc.ConnID = ""
		m.locations[driverID] = loc
	}
	return nil
}

func (m *MockLocationStore) All(ctx context.Context) ([]domain.DriverLocation, error) {
	if m.AllError != nil {
		return nil, m.AllError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]domain.DriverLocation, 0, len(m.locations))
	for _, loc := range m.locations {
		result = append(result, loc)
	}
	return result, nil
}

func (m *MockLocationStore) ConnectedHandles(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]struct{})
	var handles []string
	for _, loc := range m.locations {
		if loc.ConnID == "" {
			continue
		}
		if _, ok := seen[loc.ConnID]; ok {
			continue
		}
		seen[loc.ConnID] = struct{}{}
		handles = append(handles, loc.ConnID)
	}
	return handles, nil
}

func (m *MockLocationStore) Remove(ctx context.Context, driverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locations, driverID)
	return nil
}

// ──────────────────────────────────────────────
// STUB GEO RESOLVER
// ──────────────────────────────────────────────

// StubGeoResolver returns fixed estimates and coordinates.
type StubGeoResolver struct {
	Estimate geo.DistanceDuration
	Coord    geo.Coordinate

	EstimateError error
	GeocodeError  error
}

func (s *StubGeoResolver) DistanceAndDuration(ctx context.Context, origin, destination string) (geo.DistanceDuration, error) {
	if s.EstimateError != nil {
		return geo.DistanceDuration{}, s.EstimateError
	}
	return s.Estimate, nil
}

func (s *StubGeoResolver) Geocode(ctx context.Context, address string) (geo.Coordinate, error) {
	if s.GeocodeError != nil {
		return geo.Coordinate{}, s.GeocodeError
	}
	return s.Coord, nil
}

// ──────────────────────────────────────────────
// RECORDING EMITTER AND PUBLISHER
// ──────────────────────────────────────────────

// emittedEvent is one captured EmitTo call.
type emittedEvent struct {
	ConnID string
	Event  string
}

// RecordingEmitter captures every emitted event.
type RecordingEmitter struct {
	mu     sync.Mutex
	events []emittedEvent
}

func (r *RecordingEmitter) EmitTo(connID, event string, data interface{}) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, emittedEvent{ConnID: connID, Event: event})
	return true
}

// Emitted returns the captured (connID, event) pairs.
func (r *RecordingEmitter) Emitted() []emittedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]emittedEvent, len(r.events))
	copy(out, r.events)
	return out
}

// EmittedTo returns the connection handles that received the given event.
func (r *RecordingEmitter) EmittedTo(event string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var handles []string
	for _, e := range r.events {
		if e.Event == event {
			handles = append(handles, e.ConnID)
		}
	}
	return handles
}

// RecordingPublisher captures published routing keys.
type RecordingPublisher struct {
	mu   sync.Mutex
	keys []string
}

func (r *RecordingPublisher) Publish(ctx context.Context, routingKey string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, routingKey)
}

// Published returns the captured routing keys.
func (r *RecordingPublisher) Published() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// ──────────────────────────────────────────────
// STUB PAYMENT GATEWAY
// ──────────────────────────────────────────────

// StubGateway returns canned orders and records requested amounts.
type StubGateway struct {
	mu       sync.Mutex
	OrderID  string
	Requests []service.GatewayOrderRequest

	CreateOrderError error
}

func (s *StubGateway) CreateOrder(ctx context.Context, req service.GatewayOrderRequest) (*service.GatewayOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateOrderError != nil {
		return nil, s.CreateOrderError
	}
	s.Requests = append(s.Requests, req)
	id := s.OrderID
	if id == "" {
		id = "order_test_1"
	}
	return &service.GatewayOrder{
		ID:       id,
		Amount:   req.AmountMinorUnits,
		Currency: req.Currency,
		Receipt:  req.Receipt,
	}, nil
}
