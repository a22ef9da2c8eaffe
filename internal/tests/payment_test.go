package tests

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/service"
)

const gatewaySecret = "test-secret"

func newPaymentFixture(ride *domain.Ride) (*service.PaymentService, *MockRideRepository, *StubGateway) {
	rideRepo := NewMockRideRepository()
	if ride != nil {
		rideRepo.AddRide(ride)
	}
	gateway := &StubGateway{OrderID: "order_abc"}
	svc := service.NewPaymentService(rideRepo, gateway, "key-id", gatewaySecret, "INR")
	return svc, rideRepo, gateway
}

func signPayment(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(gatewaySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func completedRide() *domain.Ride {
	return &domain.Ride{
		ID:        "ride-12345678",
		RiderID:   "rider-1",
		DriverID:  "driver-1",
		Fare:      104,
		Status:    domain.RideStatusCompleted,
		CreatedAt: time.Now(),
	}
}

func TestCreateOrderConvertsToMinorUnits(t *testing.T) {
	svc, rideRepo, gateway := newPaymentFixture(completedRide())

	checkout, err := svc.CreateOrder(context.Background(), "ride-12345678", "rider-1")
	if err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}

	if len(gateway.Requests) != 1 {
		t.Fatalf("expected 1 gateway request, got %d", len(gateway.Requests))
	}
	req := gateway.Requests[0]
	if req.AmountMinorUnits != 10400 {
		t.Errorf("expected amount 10400 paise, got %d", req.AmountMinorUnits)
	}
	if req.Receipt != "ride_12345678" {
		t.Errorf("unexpected receipt %q", req.Receipt)
	}

	if checkout.KeyID != "key-id" || checkout.Order.ID != "order_abc" {
		t.Errorf("unexpected checkout info %+v", checkout)
	}
	if stored := rideRepo.GetRide("ride-12345678"); stored.OrderID != "order_abc" {
		t.Errorf("order id not recorded on ride, got %q", stored.OrderID)
	}
}

func TestCreateOrderRejectsRepeat(t *testing.T) {
	svc, _, _ := newPaymentFixture(completedRide())

	if _, err := svc.CreateOrder(context.Background(), "ride-12345678", "rider-1"); err != nil {
		t.Fatalf("first CreateOrder: %v", err)
	}
	if _, err := svc.CreateOrder(context.Background(), "ride-12345678", "rider-1"); !errors.Is(err, service.ErrAlreadyPaid) {
		t.Errorf("expected ErrAlreadyPaid, got %v", err)
	}
}

func TestCreateOrderRejectsForeignRider(t *testing.T) {
	svc, _, _ := newPaymentFixture(completedRide())

	if _, err := svc.CreateOrder(context.Background(), "ride-12345678", "rider-2"); !errors.Is(err, service.ErrRideNotFound) {
		t.Errorf("expected ErrRideNotFound, got %v", err)
	}
}

func TestCreateOrderRejectsZeroFare(t *testing.T) {
	ride := completedRide()
	ride.Fare = 0
	svc, _, _ := newPaymentFixture(ride)

	if _, err := svc.CreateOrder(context.Background(), ride.ID, "rider-1"); !errors.Is(err, service.ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestVerifyPayment(t *testing.T) {
	svc, rideRepo, _ := newPaymentFixture(completedRide())

	if _, err := svc.CreateOrder(context.Background(), "ride-12345678", "rider-1"); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	signature := signPayment("order_abc", "pay_1")
	ride, err := svc.VerifyPayment(context.Background(), "ride-12345678", "rider-1", "order_abc", "pay_1", signature)
	if err != nil {
		t.Fatalf("VerifyPayment returned error: %v", err)
	}
	if ride.PaymentID != "pay_1" || ride.PaymentSignature != signature {
		t.Errorf("payment not recorded: %+v", ride)
	}

	stored := rideRepo.GetRide("ride-12345678")
	if stored.PaymentID != "pay_1" {
		t.Errorf("payment id not persisted, got %q", stored.PaymentID)
	}
}

func TestVerifyPaymentTamperedSignature(t *testing.T) {
	svc, rideRepo, _ := newPaymentFixture(completedRide())

	if _, err := svc.CreateOrder(context.Background(), "ride-12345678", "rider-1"); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	_, err := svc.VerifyPayment(context.Background(), "ride-12345678", "rider-1", "order_abc", "pay_1", "deadbeef")
	if !errors.Is(err, service.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
	if stored := rideRepo.GetRide("ride-12345678"); stored.PaymentID != "" {
		t.Error("tampered payment must not be recorded")
	}
}

func TestVerifyPaymentWrongOrder(t *testing.T) {
	svc, _, _ := newPaymentFixture(completedRide())

	if _, err := svc.CreateOrder(context.Background(), "ride-12345678", "rider-1"); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	signature := signPayment("order_other", "pay_1")
	if _, err := svc.VerifyPayment(context.Background(), "ride-12345678", "rider-1", "order_other", "pay_1", signature); !errors.Is(err, service.ErrInvalidSignature) {
		t.Errorf("expected ErrInvalidSignature for a foreign order id, got %v", err)
	}
}

func TestVerifyPaymentRejectsForeignRider(t *testing.T) {
	svc, rideRepo, _ := newPaymentFixture(completedRide())

	if _, err := svc.CreateOrder(context.Background(), "ride-12345678", "rider-1"); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	// A valid signature must not let another rider record the payment.
	signature := signPayment("order_abc", "pay_1")
	if _, err := svc.VerifyPayment(context.Background(), "ride-12345678", "rider-2", "order_abc", "pay_1", signature); !errors.Is(err, service.ErrRideNotFound) {
		t.Errorf("expected ErrRideNotFound for a foreign rider, got %v", err)
	}
	if stored := rideRepo.GetRide("ride-12345678"); stored.PaymentID != "" {
		t.Error("foreign rider's verification must not be recorded")
	}
}

func TestVerifyPaymentRepeatIsIdempotent(t *testing.T) {
	svc, _, _ := newPaymentFixture(completedRide())

	if _, err := svc.CreateOrder(context.Background(), "ride-12345678", "rider-1"); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}

	signature := signPayment("order_abc", "pay_1")
	for i := 0; i < 2; i++ {
		ride, err := svc.VerifyPayment(context.Background(), "ride-12345678", "rider-1", "order_abc", "pay_1", signature)
		if err != nil {
			t.Fatalf("VerifyPayment call %d: %v", i+1, err)
		}
		if ride.PaymentID != "pay_1" {
			t.Errorf("call %d: unexpected payment id %q", i+1, ride.PaymentID)
		}
	}
}
