package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/fakhrymubarak/weather-lookup/internal/config"
	"github.com/fakhrymubarak/weather-lookup/internal/model"
	"github.com/fakhrymubarak/weather-lookup/internal/repository"
	"github.com/fakhrymubarak/weather-lookup/internal/viewstate"
	"go.uber.org/zap"
)

const errMethodNotAllowed = "Method not allowed"

func writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		config.GetLogger().Errorw("could not encode json", "error", err)
	}
}

func writeError(w http.ResponseWriter, statusCode int, errMsg string) {
	writeJSONResponse(w, statusCode, model.ErrorResponse(errMsg))
}

// allowMethods writes a 405 and returns false unless r uses one of methods.
func allowMethods(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
	return false
}

// statusFor maps a lookup error to the HTTP status that reports it.
func statusFor(err error) int {
	var verr *viewstate.ValidationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, repository.ErrEmptyLocation),
		errors.Is(err, repository.ErrEmptyCityName),
		errors.Is(err, model.ErrInvalidCoordinates):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrLocationNotFound):
		return http.StatusNotFound
	case errors.Is(err, viewstate.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, repository.ErrNetwork),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	case errors.Is(err, repository.ErrAPIKeyMissing),
		errors.Is(err, repository.ErrExternalAPI),
		errors.Is(err, repository.ErrMalformedResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// messageFor is the text shown to the user for err.
func messageFor(err error) string {
	var verr *viewstate.ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	if errors.Is(err, viewstate.ErrSuperseded) {
		return viewstate.ErrSuperseded.Error()
	}
	if errors.Is(err, model.ErrInvalidCoordinates) {
		return viewstate.MsgInvalidCoordinates
	}
	if errors.Is(err, repository.ErrEmptyLocation) || errors.Is(err, repository.ErrEmptyCityName) {
		return viewstate.MsgEmptyInput
	}
	var rerr *viewstate.RequestError
	if errors.As(err, &rerr) {
		return rerr.Message
	}
	return viewstate.NewRequestError(err).Message
}

func writeLookupError(w http.ResponseWriter, logger *zap.SugaredLogger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Warnw("Lookup failed", "status", status, "error", err)
	}
	writeError(w, status, messageFor(err))
}

func queryParam(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}
