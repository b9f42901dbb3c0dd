package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-dashboard/internal/cities"
	"github.com/kjstillabower/weather-dashboard/internal/client"
	"github.com/kjstillabower/weather-dashboard/internal/dashboard"
	"github.com/kjstillabower/weather-dashboard/internal/detail"
	"github.com/kjstillabower/weather-dashboard/internal/lifecycle"
	"github.com/kjstillabower/weather-dashboard/internal/observability"
	"github.com/kjstillabower/weather-dashboard/internal/traffic"
	"github.com/kjstillabower/weather-dashboard/internal/units"
	"github.com/kjstillabower/weather-dashboard/internal/validation"
)

// HealthConfig holds the inputs for GET /health.
type HealthConfig struct {
	// APIKeyConfigured is false when no weather API key was found; health is then degraded.
	APIKeyConfigured bool
	Tracker          *traffic.Tracker
	DegradedErrorPct int
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	dash             *dashboard.Dashboard
	details          *detail.Service
	healthConfig     *HealthConfig
	logger           *zap.Logger
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler. healthConfig may be nil.
func NewHandler(dash *dashboard.Dashboard, details *detail.Service, healthConfig *HealthConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		dash:         dash,
		details:      details,
		healthConfig: healthConfig,
		logger:       logger,
	}
}

// GetDashboard handles GET /. It renders the last applied batch and never fetches.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.dash.View())
}

// GetCities handles GET /cities.
func (h *Handler) GetCities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"cities": h.dash.Cities()})
}

type addCityRequest struct {
	Name string `json:"name"`
}

// PostCity handles POST /cities. The new city is prepended and the dashboard refetched.
func (h *Handler) PostCity(w http.ResponseWriter, r *http.Request) {
	var body addCityRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "request body must be JSON with a name field")
		return
	}
	_, err := h.dash.AddCity(r.Context(), body.Name)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, h.dash.View())
	case validation.IsValidationError(err):
		writeError(w, r, http.StatusBadRequest, "INVALID_CITY", err.Error())
	case errors.Is(err, cities.ErrDuplicate):
		writeError(w, r, http.StatusConflict, "DUPLICATE_CITY", err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "unable to add city")
		observability.LoggerFromContext(r.Context(), h.logger).Error("add city", zap.Error(err))
	}
}

// DeleteCity handles DELETE /cities/{name}. Removing an untracked city succeeds without a refetch.
func (h *Handler) DeleteCity(w http.ResponseWriter, r *http.Request) {
	h.dash.RemoveCity(r.Context(), mux.Vars(r)["name"])
	writeJSON(w, http.StatusOK, h.dash.View())
}

type setUnitRequest struct {
	Unit string `json:"unit"`
}

// PutUnit handles PUT /unit. Fetched data is re-rendered; nothing is refetched.
func (h *Handler) PutUnit(w http.ResponseWriter, r *http.Request) {
	var body setUnitRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "request body must be JSON with a unit field")
		return
	}
	u, err := units.ParseUnit(body.Unit)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_UNIT", "unit must be C or F")
		return
	}
	h.dash.SetUnit(u)
	writeJSON(w, http.StatusOK, h.dash.View())
}

// GetWeatherDetails handles GET /weather-details/{cityName}. The body is always the detail
// view; the status reflects whether current conditions could be fetched.
func (h *Handler) GetWeatherDetails(w http.ResponseWriter, r *http.Request) {
	city := strings.TrimSpace(mux.Vars(r)["cityName"])
	if city == "" {
		writeError(w, r, http.StatusBadRequest, "INVALID_CITY", "city is required")
		return
	}

	d := h.details.Load(r.Context(), city)
	view := d.Render(h.dash.Unit())
	status := http.StatusOK
	if !d.OK() {
		status = http.StatusBadGateway
		if client.KindOf(d.CurrentErr) == client.KindNotFound {
			status = http.StatusNotFound
		}
	}
	writeJSON(w, status, view)
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	checks := map[string]string{"weatherApi": "healthy"}
	if result.status == "degraded" {
		checks["weatherApi"] = "unhealthy"
	}
	body := map[string]interface{}{
		"status":        result.status,
		"service":       "weather-dashboard",
		"version":       "dev",
		"checks":        checks,
		"trackedCities": len(h.dash.Cities()),
		"timestamp":     time.Now().UTC().Format(time.RFC3339),
	}
	if h.healthConfig != nil && h.healthConfig.Tracker != nil {
		body["rateLimitDenials"] = h.healthConfig.Tracker.DenialCount()
	}
	writeJSON(w, result.statusCode, body)
}

// computeHealthStatus evaluates, in order: shutting-down > starting > API key missing >
// fetch error rate > healthy.
func (h *Handler) computeHealthStatus() healthResult {
	if lifecycle.IsDraining() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if lifecycle.Current() == lifecycle.Starting {
		return healthResult{"starting", http.StatusServiceUnavailable, "initial_batch"}
	}
	if h.healthConfig == nil {
		return healthResult{"healthy", http.StatusOK, ""}
	}
	if !h.healthConfig.APIKeyConfigured {
		return healthResult{"degraded", http.StatusServiceUnavailable, "api_key_missing"}
	}
	if h.healthConfig.Tracker != nil && h.healthConfig.DegradedErrorPct > 0 &&
		h.healthConfig.Tracker.Degraded(float64(h.healthConfig.DegradedErrorPct)) {
		return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// writeJSON writes v as JSON with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the standard error body with code, message and requestId.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": observability.CorrelationID(r.Context()),
		},
	})
}
