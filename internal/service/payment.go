package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/repository"
)

// GatewayOrderRequest is the order the payment gateway is asked to open.
type GatewayOrderRequest struct {
	AmountMinorUnits int64             `json:"amount"`
	Currency         string            `json:"currency"`
	Receipt          string            `json:"receipt"`
	Notes            map[string]string `json:"notes,omitempty"`
}

// GatewayOrder is the gateway's view of an opened order.
type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// PaymentGateway opens payment orders with the external provider.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, req GatewayOrderRequest) (*GatewayOrder, error)
}

// CheckoutInfo is everything the client checkout widget needs.
type CheckoutInfo struct {
	KeyID    string        `json:"key_id"`
	Order    *GatewayOrder `json:"order"`
	RideID   string        `json:"ride_id"`
	Fare     int64         `json:"fare"`
	Currency string        `json:"currency"`
}

// PaymentService opens gateway orders for completed rides and verifies the
// signatures the gateway returns after checkout.
type PaymentService struct {
	rideRepo repository.RideRepository
	gateway  PaymentGateway
	keyID    string
	secret   string
	currency string
}

// NewPaymentService creates a new PaymentService. keyID and secret are the
// gateway API credentials; the secret also keys signature verification.
func NewPaymentService(rideRepo repository.RideRepository, gateway PaymentGateway, keyID, secret, currency string) *PaymentService {
	if currency == "" {
		currency = "INR"
	}
	return &PaymentService{
		rideRepo: rideRepo,
		gateway:  gateway,
		keyID:    keyID,
		secret:   secret,
		currency: currency,
	}
}

// CreateOrder opens a gateway order for the ride's fare, converted to minor
// currency units. A ride with an order already recorded is rejected; the
// recorded order id is the idempotency anchor for the whole payment flow.
func (s *PaymentService) CreateOrder(ctx context.Context, rideID, riderID string) (*CheckoutInfo, error) {
	if rideID == "" || riderID == "" {
		return nil, ErrMissingFields
	}

	ride, err := s.rideRepo.GetByIDForRider(ctx, rideID, riderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRideNotFound
		}
		return nil, err
	}

	if ride.OrderID != "" {
		return nil, ErrAlreadyPaid
	}

	amount := ride.Fare * 100
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	order, err := s.gateway.CreateOrder(ctx, GatewayOrderRequest{
		AmountMinorUnits: amount,
		Currency:         s.currency,
		Receipt:          receiptFor(ride.ID),
		Notes:            map[string]string{"ride_id": ride.ID},
	})
	if err != nil {
		return nil, err
	}

	if err := s.rideRepo.SetPaymentOrder(ctx, ride.ID, order.ID); err != nil {
		return nil, err
	}

	return &CheckoutInfo{
		KeyID:    s.keyID,
		Order:    order,
		RideID:   ride.ID,
		Fare:     ride.Fare,
		Currency: s.currency,
	}, nil
}

// VerifyPayment checks the gateway's checkout signature and records the
// payment on the ride. The ride must belong to the verifying rider. The
// signature is HMAC-SHA256 over "<order_id>|<payment_id>" keyed with the
// gateway secret, hex encoded. A mismatch is a permanent rejection.
// Re-verifying the same payment is a harmless overwrite of identical values.
func (s *PaymentService) VerifyPayment(ctx context.Context, rideID, riderID, orderID, paymentID, signature string) (*domain.Ride, error) {
	if rideID == "" || riderID == "" || orderID == "" || paymentID == "" || signature == "" {
		return nil, ErrMissingFields
	}

	ride, err := s.rideRepo.GetByIDForRider(ctx, rideID, riderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRideNotFound
		}
		return nil, err
	}

	if ride.OrderID == "" || ride.OrderID != orderID {
		return nil, ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(s.secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, ErrInvalidSignature
	}

	if err := s.rideRepo.SetPaymentVerified(ctx, rideID, orderID, paymentID, signature); err != nil {
		return nil, err
	}

	verified, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	return verified, nil
}

// receiptFor derives a short gateway receipt label from a ride id.
func receiptFor(rideID string) string {
	tail := rideID
	if len(tail) > 8 {
		tail = tail[len(tail)-8:]
	}
	return "ride_" + tail
}

// HTTPGateway talks to the payment provider's REST orders API with basic
// auth over the API key pair.
type HTTPGateway struct {
	baseURL string
	keyID   string
	secret  string
	client  *http.Client
}

// NewHTTPGateway creates a gateway client for the given API base URL and
// key pair.
func NewHTTPGateway(baseURL, keyID, secret string) *HTTPGateway {
	return &HTTPGateway{
		baseURL: baseURL,
		keyID:   keyID,
		secret:  secret,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// CreateOrder opens an order with the provider.
func (g *HTTPGateway) CreateOrder(ctx context.Context, req GatewayOrderRequest) (*GatewayOrder, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.SetBasicAuth(g.keyID, g.secret)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("payment gateway returned status %d", resp.StatusCode)
	}

	var order GatewayOrder
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, err
	}
	if order.ID == "" {
		return nil, fmt.Errorf("payment gateway returned an order without an id")
	}
	return &order, nil
}
