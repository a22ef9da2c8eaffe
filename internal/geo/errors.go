package geo

import "errors"

var (
	// ErrInvalidInput is returned for empty addresses or non-finite coordinates.
	ErrInvalidInput = errors.New("invalid geo input")

	// ErrNoResults is returned when the geocoding provider matches nothing.
	// It is a permanent failure and is never retried.
	ErrNoResults = errors.New("no geocoding results")

	// ErrGeocodeUnavailable is returned after the retry budget is exhausted.
	ErrGeocodeUnavailable = errors.New("geocoding unavailable")

	// ErrReverseGeocodeUnavailable is returned when reverse geocoding fails
	// for a reason other than rate limiting.
	ErrReverseGeocodeUnavailable = errors.New("reverse geocoding unavailable")

	// ErrSuggestUnavailable is returned for non-transient autocomplete failures.
	ErrSuggestUnavailable = errors.New("suggestions unavailable")

	// ErrRouteUnavailable is returned when no provider yields usable geometry.
	ErrRouteUnavailable = errors.New("route unavailable")
)
