package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kjstillabower/weather-dashboard/internal/models"
	"github.com/kjstillabower/weather-dashboard/internal/observability"
)

// WeatherClient fetches current conditions and the 5-day forecast for a city.
// Every error it returns is a *FetchError.
type WeatherClient interface {
	FetchCurrent(ctx context.Context, city string) (models.WeatherRecord, error)
	FetchForecast(ctx context.Context, city string) (models.ForecastRecord, error)
}

const (
	endpointCurrent  = "current"
	endpointForecast = "forecast"
)

// OpenWeatherClient talks to the OpenWeatherMap 2.5 API in imperial units.
type OpenWeatherClient struct {
	apiKey      string
	currentURL  *url.URL
	forecastURL *url.URL
	timeout     time.Duration
	client      *http.Client
}

// NewOpenWeatherClient builds a client for baseURL (e.g. https://api.openweathermap.org/data/2.5).
// An empty apiKey is accepted; every fetch then fails with KindAuth without a network call.
func NewOpenWeatherClient(apiKey, baseURL string, timeout time.Duration) (*OpenWeatherClient, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid API URL: %q", baseURL)
	}
	return &OpenWeatherClient{
		apiKey:      apiKey,
		currentURL:  base.JoinPath("weather"),
		forecastURL: base.JoinPath("forecast"),
		timeout:     timeout,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// HasAPIKey reports whether an API key was configured.
func (c *OpenWeatherClient) HasAPIKey() bool {
	return c.apiKey != ""
}

type condition struct {
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type currentResponse struct {
	Name string `json:"name"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		TempMin   float64 `json:"temp_min"`
		TempMax   float64 `json:"temp_max"`
		Pressure  int     `json:"pressure"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Weather []condition `json:"weather"`
	Wind    struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

type forecastResponse struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp float64 `json:"temp"`
		} `json:"main"`
		Weather []condition `json:"weather"`
	} `json:"list"`
	City struct {
		Name string `json:"name"`
	} `json:"city"`
}

// FetchCurrent returns current conditions for city.
func (c *OpenWeatherClient) FetchCurrent(ctx context.Context, city string) (models.WeatherRecord, error) {
	var resp currentResponse
	if err := c.get(ctx, endpointCurrent, c.currentURL, city, &resp); err != nil {
		return models.WeatherRecord{}, err
	}
	return mapCurrent(resp, city), nil
}

// FetchForecast returns the 3-hourly forecast list for city.
func (c *OpenWeatherClient) FetchForecast(ctx context.Context, city string) (models.ForecastRecord, error) {
	var resp forecastResponse
	if err := c.get(ctx, endpointForecast, c.forecastURL, city, &resp); err != nil {
		return models.ForecastRecord{}, err
	}
	return mapForecast(resp, city), nil
}

// get performs one GET and decodes the body into out. No retries.
func (c *OpenWeatherClient) get(ctx context.Context, endpoint string, endpointURL *url.URL, city string, out interface{}) error {
	if c.apiKey == "" {
		err := newFetchError(city, KindAuth, errors.New("weather API key not configured"))
		observability.RecordFetchError(endpoint, string(CategorizeError(err)))
		return err
	}

	start := time.Now()
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.buildRequest(reqCtx, endpointURL, city)
	if err != nil {
		observability.WeatherAPICallsTotal.WithLabelValues(endpoint, "error").Inc()
		return newFetchError(city, KindNetwork, fmt.Errorf("build request: %w", err))
	}
	if corrID := observability.CorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		observability.WeatherAPICallsTotal.WithLabelValues(endpoint, "error").Inc()
		observability.WeatherAPIDuration.WithLabelValues(endpoint, "error").Observe(time.Since(start).Seconds())
		kind := KindNetwork
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || isTimeout(err) {
			kind = KindTimeout
		}
		fe := newFetchError(city, kind, fmt.Errorf("http request failed: %w", err))
		observability.RecordFetchError(endpoint, string(CategorizeError(fe)))
		return fe
	}
	defer resp.Body.Close()

	status := statusLabel(resp.StatusCode)
	observability.WeatherAPICallsTotal.WithLabelValues(endpoint, status).Inc()
	observability.WeatherAPIDuration.WithLabelValues(endpoint, status).Observe(time.Since(start).Seconds())

	if err := classifyStatus(city, resp.StatusCode); err != nil {
		observability.RecordFetchError(endpoint, string(CategorizeError(err)))
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fe := newFetchError(city, KindNetwork, fmt.Errorf("read response body: %w", err))
		observability.RecordFetchError(endpoint, string(CategorizeError(fe)))
		return fe
	}
	if err := json.Unmarshal(body, out); err != nil {
		fe := newFetchError(city, KindParsing, fmt.Errorf("parse response: %w", err))
		observability.RecordFetchError(endpoint, string(CategorizeError(fe)))
		return fe
	}
	return nil
}

func (c *OpenWeatherClient) buildRequest(ctx context.Context, endpointURL *url.URL, city string) (*http.Request, error) {
	u := *endpointURL
	params := url.Values{}
	params.Set("q", city)
	params.Set("units", "imperial")
	params.Set("appid", c.apiKey)
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// classifyStatus maps provider HTTP status codes to FetchError kinds.
func classifyStatus(city string, code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return newFetchError(city, KindAuth, fmt.Errorf("invalid API key: HTTP %d", code))
	case code == http.StatusNotFound:
		return newFetchError(city, KindNotFound, fmt.Errorf("city not found: HTTP %d", code))
	case code == http.StatusTooManyRequests:
		return newFetchError(city, KindRateLimited, fmt.Errorf("rate limited: HTTP %d", code))
	default:
		return newFetchError(city, KindUpstream, fmt.Errorf("upstream failure: HTTP %d", code))
	}
}

func mapCurrent(r currentResponse, city string) models.WeatherRecord {
	var cond condition
	if len(r.Weather) > 0 {
		cond = r.Weather[0]
	}
	name := r.Name
	if name == "" {
		name = city
	}
	return models.WeatherRecord{
		CityName:     name,
		Description:  cond.Description,
		IconID:       cond.Icon,
		TempF:        r.Main.Temp,
		FeelsLikeF:   r.Main.FeelsLike,
		TempMinF:     r.Main.TempMin,
		TempMaxF:     r.Main.TempMax,
		HumidityPct:  r.Main.Humidity,
		PressureHPa:  r.Main.Pressure,
		WindSpeedMph: r.Wind.Speed,
		FetchedAt:    time.Now(),
	}
}

func mapForecast(r forecastResponse, city string) models.ForecastRecord {
	name := r.City.Name
	if name == "" {
		name = city
	}
	out := models.ForecastRecord{
		CityName: name,
		List:     make([]models.ForecastEntry, 0, len(r.List)),
	}
	for _, item := range r.List {
		var cond condition
		if len(item.Weather) > 0 {
			cond = item.Weather[0]
		}
		out.List = append(out.List, models.ForecastEntry{
			Timestamp:   time.Unix(item.Dt, 0).UTC(),
			Description: cond.Description,
			IconID:      cond.Icon,
			TempF:       item.Main.Temp,
		})
	}
	return out
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == http.StatusTooManyRequests {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}
