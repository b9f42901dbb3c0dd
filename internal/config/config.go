package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/kjstillabower/weather-dashboard/internal/units"
)

// DefaultCities is the tracked list used when neither the config file nor the
// environment names one.
var DefaultCities = []string{"Cologne", "Chennai", "Delhi", "New York", "Tokyo"}

const defaultWeatherAPIURL = "https://api.openweathermap.org/data/2.5"

// Config holds service configuration loaded from YAML, .env and the environment.
type Config struct {
	ServerPort string `validate:"required,numeric"`

	// WeatherAPIKey may be empty. The client then fails every fetch with an auth error.
	WeatherAPIKey     string
	WeatherAPIURL     string        `validate:"required,url"`
	WeatherAPITimeout time.Duration `validate:"gt=0"`

	RequestTimeout time.Duration `validate:"gt=0"`
	RateLimitRPS   int           `validate:"gt=0"`
	RateLimitBurst int           `validate:"gt=0"`

	ShutdownTimeout time.Duration `validate:"gt=0"`
	InFlightTimeout time.Duration `validate:"gt=0"`

	Cities        []string   `validate:"dive,required"`
	Unit          units.Unit `validate:"oneof=C F"`
	CityMaxLength int        `validate:"gte=1,lte=1000"`

	DegradedWindow   time.Duration `validate:"gt=0"`
	DegradedErrorPct int           `validate:"gte=1,lte=100"`
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	WeatherAPI struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"weather_api"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Reliability struct {
		RateLimitRPS   int `yaml:"rate_limit_rps"`
		RateLimitBurst int `yaml:"rate_limit_burst"`
	} `yaml:"reliability"`

	Shutdown struct {
		Timeout         string `yaml:"timeout"`
		InFlightTimeout string `yaml:"in_flight_timeout"`
	} `yaml:"shutdown"`

	Dashboard struct {
		Cities        []string `yaml:"cities"`
		Unit          string   `yaml:"unit"`
		CityMaxLength int      `yaml:"city_max_length"`
	} `yaml:"dashboard"`

	Health struct {
		DegradedWindow   string `yaml:"degraded_window"`
		DegradedErrorPct int    `yaml:"degraded_error_pct"`
	} `yaml:"health"`
}

type secretsFile struct {
	WeatherAPIKey string `yaml:"weather_api_key"`
}

// envOverrides are applied after the YAML file. Unset variables leave the file value.
type envOverrides struct {
	WeatherAPIKey string   `envconfig:"WEATHER_API_KEY"`
	Port          string   `envconfig:"PORT"`
	WeatherAPIURL string   `envconfig:"WEATHER_API_URL"`
	Cities        []string `envconfig:"DASHBOARD_CITIES"`
	Unit          string   `envconfig:"DASHBOARD_UNIT"`
}

var validate = validator.New()

// Load reads configuration from config/{ENV_NAME}.yaml (default dev), an optional .env file,
// environment overrides and config/secrets.yaml. Call from project root.
func Load() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}

	if err := godotenv.Load(filepath.Join(cwd, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	var ov envOverrides
	if err := envconfig.Process("", &ov); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg := fromFile(fc)
	if err := applyOverrides(cfg, ov); err != nil {
		return nil, err
	}

	if cfg.WeatherAPIKey == "" {
		key, err := loadAPIKeyFromSecrets(filepath.Join(cwd, "config", "secrets.yaml"))
		if err != nil {
			return nil, err
		}
		cfg.WeatherAPIKey = key
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromFile(fc fileConfig) *Config {
	cfg := &Config{
		ServerPort:        strings.TrimSpace(fc.Server.Port),
		WeatherAPIURL:     strings.TrimSpace(fc.WeatherAPI.URL),
		WeatherAPITimeout: parseDurationOrZero(fc.WeatherAPI.Timeout, 2*time.Second),
		RequestTimeout:    parseDuration(fc.Request.Timeout, 5*time.Second),
		RateLimitRPS:      fc.Reliability.RateLimitRPS,
		RateLimitBurst:    fc.Reliability.RateLimitBurst,
		ShutdownTimeout:   parseDuration(fc.Shutdown.Timeout, 30*time.Second),
		InFlightTimeout:   parseDuration(fc.Shutdown.InFlightTimeout, 10*time.Second),
		Cities:            fc.Dashboard.Cities,
		Unit:              units.Fahrenheit,
		CityMaxLength:     fc.Dashboard.CityMaxLength,
		DegradedWindow:    parseDuration(fc.Health.DegradedWindow, time.Minute),
		DegradedErrorPct:  fc.Health.DegradedErrorPct,
	}
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	if cfg.WeatherAPIURL == "" {
		cfg.WeatherAPIURL = defaultWeatherAPIURL
	}
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 20
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 40
	}
	if fc.Dashboard.Cities == nil {
		cfg.Cities = append([]string(nil), DefaultCities...)
	}
	if u := strings.TrimSpace(fc.Dashboard.Unit); u != "" {
		// An unparseable unit is kept verbatim so validation reports it.
		cfg.Unit = parseUnitOrRaw(u)
	}
	if cfg.CityMaxLength <= 0 {
		cfg.CityMaxLength = 100
	}
	if cfg.DegradedErrorPct <= 0 {
		cfg.DegradedErrorPct = 50
	}
	return cfg
}

func applyOverrides(cfg *Config, ov envOverrides) error {
	if ov.WeatherAPIKey != "" {
		cfg.WeatherAPIKey = ov.WeatherAPIKey
	}
	if ov.Port != "" {
		cfg.ServerPort = ov.Port
	}
	if ov.WeatherAPIURL != "" {
		cfg.WeatherAPIURL = ov.WeatherAPIURL
	}
	if len(ov.Cities) > 0 {
		cfg.Cities = make([]string, 0, len(ov.Cities))
		for _, c := range ov.Cities {
			if c = strings.TrimSpace(c); c != "" {
				cfg.Cities = append(cfg.Cities, c)
			}
		}
	}
	if ov.Unit != "" {
		u, err := units.ParseUnit(ov.Unit)
		if err != nil {
			return fmt.Errorf("DASHBOARD_UNIT: %w", err)
		}
		cfg.Unit = u
	}
	return nil
}

// loadAPIKeyFromSecrets returns the key from the secrets file, or "" if the file is absent.
func loadAPIKeyFromSecrets(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read secrets file: %w", err)
	}
	var sec secretsFile
	if err := yaml.Unmarshal(data, &sec); err != nil {
		return "", fmt.Errorf("parse secrets file: %w", err)
	}
	return strings.TrimSpace(sec.WeatherAPIKey), nil
}

func parseUnitOrRaw(s string) units.Unit {
	u, err := units.ParseUnit(s)
	if err != nil {
		return units.Unit(s)
	}
	return u
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Zero and negative durations are returned as-is so validation can reject them.
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate checks struct tags and raises RequestTimeout above WeatherAPITimeout so a
// single fetch can always finish inside its request.
func (c *Config) validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.RequestTimeout <= c.WeatherAPITimeout {
		c.RequestTimeout = c.WeatherAPITimeout + time.Second
	}
	return nil
}
