package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"rep-lookup/internal/geo"
	"rep-lookup/internal/logger"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L().Debug("write_json_error", "err", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// statusFor maps the fatal error taxonomy onto HTTP.
func statusFor(err error) int {
	switch {
	case errors.Is(err, geo.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, geo.ErrAddressNotFound):
		return http.StatusNotFound
	case errors.Is(err, geo.ErrDistrictUnresolvable), errors.Is(err, geo.ErrStateUnmapped):
		return http.StatusUnprocessableEntity
	case errors.Is(err, geo.ErrGeocodeUnavailable), errors.Is(err, geo.ErrMalformedResponse):
		return http.StatusBadGateway
	case errors.Is(err, geo.ErrGeocodeTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorBody{Error: geo.UserMessage(err)})
}
