package service

import (
	"math"

	"ridedispatch/internal/domain"
	"ridedispatch/internal/geo"
)

// fareRate is the tariff for one vehicle class, in currency units.
type fareRate struct {
	Base      float64
	PerKm     float64
	PerMinute float64
}

var fareRates = map[domain.VehicleClass]fareRate{
	domain.VehicleClassEconomy: {Base: 20, PerKm: 8, PerMinute: 1.5},
	domain.VehicleClassCompact: {Base: 30, PerKm: 10, PerMinute: 2},
	domain.VehicleClassPremium: {Base: 50, PerKm: 15, PerMinute: 3},
}

// QuoteFare maps a distance/duration estimate and vehicle class to an
// integer fare. Pure function; the result is persisted once at ride
// creation and never recomputed.
func QuoteFare(est geo.DistanceDuration, class domain.VehicleClass) (int64, error) {
	rate, ok := fareRates[class]
	if !ok {
		return 0, ErrInvalidVehicleClass
	}

	km := est.DistanceMeters / 1000
	minutes := est.DurationSeconds / 60

	return int64(math.Round(rate.Base + km*rate.PerKm + minutes*rate.PerMinute)), nil
}

// QuoteAllFares quotes every vehicle class for the same estimate, for the
// pre-booking fare screen.
func QuoteAllFares(est geo.DistanceDuration) map[domain.VehicleClass]int64 {
	quotes := make(map[domain.VehicleClass]int64, len(fareRates))
	for class := range fareRates {
		fare, _ := QuoteFare(est, class)
		quotes[class] = fare
	}
	return quotes
}

// ParseVehicleClass validates a request-supplied vehicle class string.
func ParseVehicleClass(raw string) (domain.VehicleClass, error) {
	switch domain.VehicleClass(raw) {
	case domain.VehicleClassEconomy, domain.VehicleClassCompact, domain.VehicleClassPremium:
		return domain.VehicleClass(raw), nil
	default:
		return "", ErrInvalidVehicleClass
	}
}
