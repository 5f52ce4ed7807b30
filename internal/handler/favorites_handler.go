package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/fakhrymubarak/weather-lookup/internal/config"
	"github.com/fakhrymubarak/weather-lookup/internal/model"
	"github.com/fakhrymubarak/weather-lookup/internal/repository"
	"github.com/fakhrymubarak/weather-lookup/internal/service"
	"go.uber.org/zap"
)

const errFavoritesUnavailable = "Unable to access favorites"

// FavoritesStore is the part of *repository.Favorites the handlers use.
type FavoritesStore interface {
	List() []string
	Add(ctx context.Context, name string) error
	Remove(ctx context.Context, name string) error
}

// FavoritesLoader reads the favorites entry. It is called once per request.
type FavoritesLoader func(ctx context.Context) (FavoritesStore, error)

// LoadFavoritesFromRedis loads the favorites from the configured Redis key.
func LoadFavoritesFromRedis(ctx context.Context) (FavoritesStore, error) {
	return repository.LoadFavorites(ctx)
}

type FavoritesHandler struct {
	Load           FavoritesLoader
	WeatherService service.WeatherServiceInterface
	logger         *zap.SugaredLogger
}

func NewFavoritesHandler(load FavoritesLoader, svc service.WeatherServiceInterface) *FavoritesHandler {
	if load == nil {
		load = LoadFavoritesFromRedis
	}
	return &FavoritesHandler{Load: load, WeatherService: svc, logger: config.GetLogger()}
}

type favoriteRequest struct {
	City string `json:"city"`
}

// HandleFavorites serves GET, POST and DELETE /favorites. Each responds with the resulting list.
func (h *FavoritesHandler) HandleFavorites(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet, http.MethodPost, http.MethodDelete) {
		return
	}

	favs, err := h.Load(r.Context())
	if err != nil {
		h.logger.Errorw("Error loading favorites", "error", err)
		writeError(w, http.StatusInternalServerError, errFavoritesUnavailable)
		return
	}

	switch r.Method {
	case http.MethodPost:
		var req favoriteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := favs.Add(r.Context(), req.City); err != nil {
			h.writeStoreError(w, err)
			return
		}
	case http.MethodDelete:
		city := queryParam(r, "city")
		if city == "" {
			writeError(w, http.StatusBadRequest, "Missing 'city' query parameter")
			return
		}
		if err := favs.Remove(r.Context(), city); err != nil {
			h.writeStoreError(w, err)
			return
		}
	}

	writeJSONResponse(w, http.StatusOK, model.SuccessResponse(favs.List()))
}

// HandleDashboard serves GET /dashboard: a greeting and the weather in the first favorites.
func (h *FavoritesHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}

	favs, err := h.Load(r.Context())
	if err != nil {
		h.logger.Errorw("Error loading favorites", "error", err)
		writeError(w, http.StatusInternalServerError, errFavoritesUnavailable)
		return
	}

	dash, err := h.WeatherService.GetDashboard(r.Context(), favs.List())
	if err != nil {
		writeLookupError(w, h.logger, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, model.SuccessResponse(dash))
}

func (h *FavoritesHandler) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, repository.ErrEmptyCityName) {
		writeError(w, http.StatusBadRequest, messageFor(err))
		return
	}
	h.logger.Errorw("Error saving favorites", "error", err)
	writeError(w, http.StatusInternalServerError, errFavoritesUnavailable)
}
