package models

import (
	"fmt"
	"time"
)

// iconURLTemplate builds provider icon URLs from the icon id returned with each condition.
const iconURLTemplate = "https://openweathermap.org/img/wn/%s.png"

// WeatherRecord is the current conditions for one city. Temperatures are Fahrenheit;
// display units are derived on demand and never stored here.
type WeatherRecord struct {
	CityName     string    `json:"cityName"`
	Description  string    `json:"description"`
	IconID       string    `json:"iconId"`
	TempF        float64   `json:"tempF"`
	FeelsLikeF   float64   `json:"feelsLikeF"`
	TempMinF     float64   `json:"tempMinF"`
	TempMaxF     float64   `json:"tempMaxF"`
	HumidityPct  int       `json:"humidityPct"`
	PressureHPa  int       `json:"pressureHPa"`
	WindSpeedMph float64   `json:"windSpeedMph"`
	FetchedAt    time.Time `json:"fetchedAt"`
}

// ForecastEntry is one 3-hour forecast slot.
type ForecastEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
	IconID      string    `json:"iconId"`
	TempF       float64   `json:"tempF"`
}

// ForecastRecord is the ordered 5-day / 3-hour forecast for one city (40 entries when complete).
type ForecastRecord struct {
	CityName string          `json:"cityName"`
	List     []ForecastEntry `json:"list"`
}

// IconURL returns the provider icon URL for iconID, or "" when iconID is empty.
func IconURL(iconID string) string {
	if iconID == "" {
		return ""
	}
	return fmt.Sprintf(iconURLTemplate, iconID)
}
