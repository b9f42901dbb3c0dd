package detail

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-dashboard/internal/client"
	"github.com/kjstillabower/weather-dashboard/internal/models"
	"github.com/kjstillabower/weather-dashboard/internal/observability"
	"github.com/kjstillabower/weather-dashboard/internal/units"
)

// samplesPerDay is the forecast stride: 8 slots of 3 hours.
const samplesPerDay = 8

const (
	msgCurrentFailed  = "Failed to fetch weather data."
	msgForecastFailed = "Failed to fetch forecast data."
)

// DailySamples picks one representative entry per day by fixed stride:
// list[0], list[8], list[16], ... for every index inside the list.
// Entries are not aligned to calendar days.
func DailySamples(f models.ForecastRecord) []models.ForecastEntry {
	out := make([]models.ForecastEntry, 0, (len(f.List)+samplesPerDay-1)/samplesPerDay)
	for i := 0; i < len(f.List); i += samplesPerDay {
		out = append(out, f.List[i])
	}
	return out
}

// Detail is one city's current conditions and forecast, in Fahrenheit, as fetched.
type Detail struct {
	City        string
	Current     *models.WeatherRecord
	Forecast    *models.ForecastRecord
	CurrentErr  error
	ForecastErr error
}

// CurrentView is the rendered current conditions.
type CurrentView struct {
	CityName     string   `json:"cityName"`
	Description  string   `json:"description"`
	IconURL      string   `json:"iconUrl"`
	Category     Category `json:"category"`
	Temp         string   `json:"temp"`
	FeelsLike    string   `json:"feelsLike"`
	TempMin      string   `json:"tempMin"`
	TempMax      string   `json:"tempMax"`
	HumidityPct  int      `json:"humidityPct"`
	PressureHPa  int      `json:"pressureHPa"`
	WindSpeedMph float64  `json:"windSpeedMph"`
}

// DaySample is one rendered daily forecast sample.
type DaySample struct {
	Timestamp   time.Time `json:"timestamp"`
	Date        string    `json:"date"`
	Description string    `json:"description"`
	IconURL     string    `json:"iconUrl"`
	Category    Category  `json:"category"`
	Temp        string    `json:"temp"`
}

// View is the detail page model. Error is the user-visible failure message, if any.
type View struct {
	City     string       `json:"city"`
	Unit     units.Unit   `json:"unit"`
	Current  *CurrentView `json:"current,omitempty"`
	Forecast []DaySample  `json:"forecast"`
	Error    string       `json:"error,omitempty"`
}

// Render converts the fetched Fahrenheit data for display in u.
func (d Detail) Render(u units.Unit) View {
	v := View{City: d.City, Unit: u, Forecast: []DaySample{}}
	if d.Current != nil {
		c := d.Current
		v.Current = &CurrentView{
			CityName:     c.CityName,
			Description:  c.Description,
			IconURL:      models.IconURL(c.IconID),
			Category:     Classify(c.Description),
			Temp:         units.Format(c.TempF, u),
			FeelsLike:    units.Format(c.FeelsLikeF, u),
			TempMin:      units.Format(c.TempMinF, u),
			TempMax:      units.Format(c.TempMaxF, u),
			HumidityPct:  c.HumidityPct,
			PressureHPa:  c.PressureHPa,
			WindSpeedMph: c.WindSpeedMph,
		}
	}
	if d.Forecast != nil {
		for _, e := range DailySamples(*d.Forecast) {
			v.Forecast = append(v.Forecast, DaySample{
				Timestamp:   e.Timestamp,
				Date:        e.Timestamp.Format("2006-01-02"),
				Description: e.Description,
				IconURL:     models.IconURL(e.IconID),
				Category:    Classify(e.Description),
				Temp:        units.Format(e.TempF, u),
			})
		}
	}
	switch {
	case d.CurrentErr != nil:
		v.Error = msgCurrentFailed
	case d.ForecastErr != nil:
		v.Error = msgForecastFailed
	}
	return v
}

// OK reports whether current conditions are available.
func (d Detail) OK() bool { return d.Current != nil }

// Service loads detail data for one city.
type Service struct {
	client client.WeatherClient
	logger *zap.Logger
}

// NewService returns a Service backed by c.
func NewService(c client.WeatherClient, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{client: c, logger: logger}
}

// Load fetches current conditions and forecast for city concurrently. Both are always
// fetched; failures are captured on the Detail rather than returned.
func (s *Service) Load(ctx context.Context, city string) Detail {
	logger := observability.LoggerFromContext(ctx, s.logger)
	d := Detail{City: city}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		rec, err := s.client.FetchCurrent(ctx, city)
		if err != nil {
			d.CurrentErr = err
			return
		}
		d.Current = &rec
	}()
	go func() {
		defer wg.Done()
		rec, err := s.client.FetchForecast(ctx, city)
		if err != nil {
			d.ForecastErr = err
			return
		}
		d.Forecast = &rec
	}()
	wg.Wait()

	switch {
	case d.CurrentErr != nil:
		observability.DetailLoadsTotal.WithLabelValues("failed").Inc()
		logger.Debug("detail current fetch failed", zap.String("city", city), zap.Error(d.CurrentErr))
	case d.ForecastErr != nil:
		observability.DetailLoadsTotal.WithLabelValues("partial").Inc()
		logger.Debug("detail forecast fetch failed", zap.String("city", city), zap.Error(d.ForecastErr))
	default:
		observability.DetailLoadsTotal.WithLabelValues("ok").Inc()
	}
	return d
}
