package service

import "errors"

var (
	// ErrMissingFields is returned when a required request field is empty.
	ErrMissingFields = errors.New("all fields are required")

	// ErrInvalidVehicleClass is returned for an unknown vehicle class.
	ErrInvalidVehicleClass = errors.New("invalid vehicle class")

	// ErrRideNotFound is returned when no ride is reachable by the caller.
	ErrRideNotFound = errors.New("ride not found")

	// ErrInvalidTransition is returned on a state-machine violation.
	ErrInvalidTransition = errors.New("invalid ride state transition")

	// ErrInvalidOTP is returned when the supplied code does not match the
	// one generated at creation.
	ErrInvalidOTP = errors.New("invalid otp")

	// ErrFareUnavailable is returned when the fare cannot be computed
	// because geocoding failed. No ride is persisted in that case.
	ErrFareUnavailable = errors.New("fare unavailable")

	// ErrCompletionFailed is returned when the completion compare-and-set
	// lost the race and the ride is still not completed on re-read.
	ErrCompletionFailed = errors.New("unable to complete ride")

	// ErrAlreadyPaid is returned when a payment order already exists.
	ErrAlreadyPaid = errors.New("ride payment already processed")

	// ErrInvalidAmount is returned when the payable amount is not a
	// positive integer number of minor units.
	ErrInvalidAmount = errors.New("invalid fare amount")

	// ErrInvalidSignature is returned on a payment signature mismatch.
	// It is a permanent rejection, never retried.
	ErrInvalidSignature = errors.New("invalid payment signature")
)
