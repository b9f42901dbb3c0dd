package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-dashboard/internal/observability"
	"github.com/kjstillabower/weather-dashboard/internal/traffic"
)

// RouterConfig wires the handlers and middleware into one router.
type RouterConfig struct {
	Handler        *Handler
	Hub            *Hub
	InFlight       *InFlightTracker
	Limiter        *rate.Limiter // nil disables rate limiting
	Tracker        *traffic.Tracker
	RequestTimeout time.Duration
	Logger         *zap.Logger
}

// NewRouter builds the dashboard router. Fetching routes get the rate limiter and the request
// timeout; read-only routes and /ws do not.
func NewRouter(cfg RouterConfig) *mux.Router {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := cfg.Handler

	router := mux.NewRouter()
	if cfg.InFlight != nil {
		router.Use(cfg.InFlight.Middleware)
	}
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(MetricsMiddleware)

	router.HandleFunc("/", h.GetDashboard).Methods(http.MethodGet)
	router.HandleFunc("/cities", h.GetCities).Methods(http.MethodGet)
	router.HandleFunc("/unit", h.PutUnit).Methods(http.MethodPut)
	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)
	if cfg.Hub != nil {
		router.HandleFunc("/ws", cfg.Hub.ServeWS).Methods(http.MethodGet)
	}

	fetching := router.NewRoute().Subrouter()
	fetching.Use(RateLimitMiddleware(cfg.Limiter, cfg.Tracker))
	if cfg.RequestTimeout > 0 {
		fetching.Use(TimeoutMiddleware(cfg.RequestTimeout))
	}
	fetching.HandleFunc("/cities", h.PostCity).Methods(http.MethodPost)
	fetching.HandleFunc("/cities/{name}", h.DeleteCity).Methods(http.MethodDelete)
	fetching.HandleFunc("/weather-details/{cityName}", h.GetWeatherDetails).Methods(http.MethodGet)

	return router
}
