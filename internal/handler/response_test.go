package handler

import (
	"errors"
	"net/http"
	"testing"

	"ridedispatch/internal/geo"
	"ridedispatch/internal/repository"
	"ridedispatch/internal/service"
)

func TestMapErrorToHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{service.ErrMissingFields, http.StatusBadRequest},
		{service.ErrInvalidVehicleClass, http.StatusBadRequest},
		{service.ErrInvalidOTP, http.StatusBadRequest},
		{service.ErrInvalidSignature, http.StatusBadRequest},
		{geo.ErrInvalidInput, http.StatusBadRequest},
		{service.ErrRideNotFound, http.StatusNotFound},
		{repository.ErrNotFound, http.StatusNotFound},
		{geo.ErrNoResults, http.StatusNotFound},
		{service.ErrInvalidTransition, http.StatusConflict},
		{service.ErrAlreadyPaid, http.StatusConflict},
		{service.ErrCompletionFailed, http.StatusConflict},
		{service.ErrFareUnavailable, http.StatusServiceUnavailable},
		{geo.ErrGeocodeUnavailable, http.StatusServiceUnavailable},
		{geo.ErrRouteUnavailable, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		if got := mapErrorToHTTPStatus(tc.err); got != tc.want {
			t.Errorf("%v: expected %d, got %d", tc.err, tc.want, got)
		}
	}
}
