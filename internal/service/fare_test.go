package service

import (
	"errors"
	"testing"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/geo"
)

func TestQuoteFare(t *testing.T) {
	est := geo.DistanceDuration{DistanceMeters: 5000, DurationSeconds: 720}

	cases := []struct {
		class domain.VehicleClass
		want  int64
	}{
		{domain.VehicleClassEconomy, 78},  // 20 + 5*8 + 12*1.5
		{domain.VehicleClassCompact, 104}, // 30 + 5*10 + 12*2
		{domain.VehicleClassPremium, 161}, // 50 + 5*15 + 12*3
	}

	for _, tc := range cases {
		t.Run(string(tc.class), func(t *testing.T) {
			fare, err := QuoteFare(est, tc.class)
			if err != nil {
				t.Fatalf("QuoteFare returned error: %v", err)
			}
			if fare != tc.want {
				t.Errorf("expected %d, got %d", tc.want, fare)
			}
		})
	}
}

func TestQuoteFareRounds(t *testing.T) {
	// 1.3 km and 90 s on ECONOMY: 20 + 10.4 + 2.25 = 32.65 -> 33.
	est := geo.DistanceDuration{DistanceMeters: 1300, DurationSeconds: 90}

	fare, err := QuoteFare(est, domain.VehicleClassEconomy)
	if err != nil {
		t.Fatalf("QuoteFare returned error: %v", err)
	}
	if fare != 33 {
		t.Errorf("expected 33, got %d", fare)
	}
}

func TestQuoteFareUnknownClass(t *testing.T) {
	if _, err := QuoteFare(geo.DistanceDuration{}, domain.VehicleClass("LIMO")); !errors.Is(err, ErrInvalidVehicleClass) {
		t.Errorf("expected ErrInvalidVehicleClass, got %v", err)
	}
}

func TestQuoteAllFares(t *testing.T) {
	quotes := QuoteAllFares(geo.DistanceDuration{DistanceMeters: 5000, DurationSeconds: 720})

	if len(quotes) != 3 {
		t.Fatalf("expected 3 quotes, got %d", len(quotes))
	}
	if quotes[domain.VehicleClassCompact] != 104 {
		t.Errorf("expected COMPACT 104, got %d", quotes[domain.VehicleClassCompact])
	}
}

func TestParseVehicleClass(t *testing.T) {
	if _, err := ParseVehicleClass("ECONOMY"); err != nil {
		t.Errorf("ECONOMY should parse, got %v", err)
	}
	if _, err := ParseVehicleClass("economy"); !errors.Is(err, ErrInvalidVehicleClass) {
		t.Errorf("lowercase class must be rejected, got %v", err)
	}
}

func TestGenerateOTP(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		otp, err := generateOTP(6)
		if err != nil {
			t.Fatalf("generateOTP returned error: %v", err)
		}
		if len(otp) != 6 {
			t.Fatalf("expected 6 digits, got %q", otp)
		}
		if otp[0] == '0' {
			t.Fatalf("leading zero would drop a digit: %q", otp)
		}
		seen[otp] = true
	}
	if len(seen) < 2 {
		t.Error("codes do not look random")
	}
}
