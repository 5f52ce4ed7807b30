package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/fakhrymubarak/weather-lookup/internal/config"
	"github.com/fakhrymubarak/weather-lookup/internal/model"
	"github.com/fakhrymubarak/weather-lookup/internal/service"
	"github.com/fakhrymubarak/weather-lookup/internal/viewstate"
	"go.uber.org/zap"
)

// Page names.
const (
	PageWeather    = "weather"
	PageHourly     = "hourly"
	PageDaily      = "daily"
	PageConditions = "conditions"
	PageMap        = "map"
	PageCoords     = "coords"
)

// NewPages builds one view-state controller per lookup page.
func NewPages(svc service.WeatherServiceInterface, logger *zap.SugaredLogger) *viewstate.Registry {
	withLog := viewstate.WithLogger(logger)
	return viewstate.NewRegistry(
		viewstate.New(PageWeather, svc.GetWeather, withLog),
		viewstate.New(PageHourly, svc.GetHourlyForecast, withLog),
		viewstate.New(PageDaily, svc.GetDailyForecast, withLog),
		viewstate.New(PageConditions, svc.GetConditions, withLog),
		viewstate.New(PageMap, svc.SearchLocation, withLog),
		viewstate.New(PageCoords, func(ctx context.Context, q string) (*model.WeatherSnapshot, error) {
			coords, err := model.ParseCoordinates(q)
			if err != nil {
				return nil, err
			}
			return svc.GetWeatherByCoords(ctx, coords)
		}, withLog, viewstate.WithParser(func(in string) (string, error) {
			coords, err := model.ParseCoordinates(in)
			if err != nil {
				return "", err
			}
			return coords.String(), nil
		})),
	)
}

type PagesHandler struct {
	Pages  *viewstate.Registry
	logger *zap.SugaredLogger
}

func NewPagesHandler(pages *viewstate.Registry) *PagesHandler {
	return &PagesHandler{Pages: pages, logger: config.GetLogger()}
}

type submitRequest struct {
	Query string `json:"query"`
}

// HandlePage serves /pages/{page}: GET reads the view state, POST submits a query and DELETE
// resets the page.
func (h *PagesHandler) HandlePage(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet, http.MethodPost, http.MethodDelete) {
		return
	}

	page, ok := h.Pages.Get(r.PathValue("page"))
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown page")
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSONResponse(w, http.StatusOK, model.SuccessResponse(page.Current()))
	case http.MethodDelete:
		writeJSONResponse(w, http.StatusOK, model.SuccessResponse(page.ResetView()))
	case http.MethodPost:
		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		// The page outlives the request, so the lookup is not cut short when the client leaves.
		view, err := page.SubmitView(context.WithoutCancel(r.Context()), req.Query)
		if err != nil {
			status := statusFor(err)
			if status >= http.StatusInternalServerError {
				h.logger.Warnw("Page lookup failed", "page", page.Name(), "status", status, "error", err)
			}
			resp := model.ErrorResponse(messageFor(err))
			resp.Data = view
			writeJSONResponse(w, status, resp)
			return
		}
		writeJSONResponse(w, http.StatusOK, model.SuccessResponse(view))
	}
}

// HandlePageList serves GET /pages with the names of the available pages.
func (h *PagesHandler) HandlePageList(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	writeJSONResponse(w, http.StatusOK, model.SuccessResponse(h.Pages.Names()))
}
