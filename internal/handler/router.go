package handler

import (
	"context"
	"net/http"

	"github.com/fakhrymubarak/weather-lookup/internal/config"
	"github.com/fakhrymubarak/weather-lookup/internal/model"
	"github.com/fakhrymubarak/weather-lookup/internal/service"
	"github.com/fakhrymubarak/weather-lookup/internal/viewstate"
)

// RouterOptions wires the handlers. Nil fields are built from config.
type RouterOptions struct {
	Service   service.WeatherServiceInterface
	Favorites FavoritesLoader
	Pages     *viewstate.Registry
	// Ping checks the backing store for /healthz. Nil reports healthy.
	Ping func(ctx context.Context) error
}

// NewRouter registers every endpoint of the weather lookup API.
func NewRouter(opts RouterOptions) *http.ServeMux {
	weather := NewWeatherHandler(opts.Service)
	svc := weather.WeatherService
	pages := opts.Pages
	if pages == nil {
		pages = NewPages(svc, config.GetLogger())
	}
	favorites := NewFavoritesHandler(opts.Favorites, svc)
	pagesHandler := NewPagesHandler(pages)

	mux := http.NewServeMux()
	mux.HandleFunc("/weather", weather.HandleWeather)
	mux.HandleFunc("/weather/coords", weather.HandleWeatherByCoords)
	mux.HandleFunc("/forecast/hourly", weather.HandleHourlyForecast)
	mux.HandleFunc("/forecast/daily", weather.HandleDailyForecast)
	mux.HandleFunc("/air", weather.HandleAirQuality)
	mux.HandleFunc("/conditions", weather.HandleConditions)
	mux.HandleFunc("/geocode", weather.HandleGeocode)
	mux.HandleFunc("/favorites", favorites.HandleFavorites)
	mux.HandleFunc("/dashboard", favorites.HandleDashboard)
	mux.HandleFunc("/pages", pagesHandler.HandlePageList)
	mux.HandleFunc("/pages/{page}", pagesHandler.HandlePage)
	mux.HandleFunc("/healthz", healthHandler(opts.Ping))
	return mux
}

func healthHandler(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethods(w, r, http.MethodGet) {
			return
		}
		if ping != nil {
			if err := ping(r.Context()); err != nil {
				config.GetLogger().Warnw("Health check failed", "error", err)
				writeError(w, http.StatusServiceUnavailable, "Redis unavailable")
				return
			}
		}
		writeJSONResponse(w, http.StatusOK, model.SuccessResponse(map[string]string{"status": "ok"}))
	}
}
