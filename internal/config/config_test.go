package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/kjstillabower/weather-dashboard/internal/units"
)

// clearEnv unsets every variable Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"ENV_NAME", "WEATHER_API_KEY", "PORT", "WEATHER_API_URL", "DASHBOARD_CITIES", "DASHBOARD_UNIT"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

// inTempProject writes config/dev.yaml into a temp dir and chdirs there for the test.
func inTempProject(t *testing.T, yamlContent string) string {
	t.Helper()
	clearEnv(t)
	origWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	dir := t.TempDir()
	writeEnvFile(t, dir, yamlContent)
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(origWd) })
	return dir
}

func TestLoad_MissingAPIKeyIsNotAnError(t *testing.T) {
	inTempProject(t, minimalEnvYAML)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v, want nil without an API key", err)
	}
	if cfg.WeatherAPIKey != "" {
		t.Errorf("WeatherAPIKey = %q, want empty", cfg.WeatherAPIKey)
	}
}

func TestLoad_APIKeyFromSecretsFile(t *testing.T) {
	dir := inTempProject(t, minimalEnvYAML)
	writeSecretsFile(t, dir, "weather_api_key: key-from-secrets-file\n")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.WeatherAPIKey != "key-from-secrets-file" {
		t.Errorf("WeatherAPIKey = %q, want key-from-secrets-file", cfg.WeatherAPIKey)
	}
}

func TestLoad_EnvKeyWinsOverSecretsFile(t *testing.T) {
	dir := inTempProject(t, minimalEnvYAML)
	writeSecretsFile(t, dir, "weather_api_key: from-file\n")
	t.Setenv("WEATHER_API_KEY", "from-env")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.WeatherAPIKey != "from-env" {
		t.Errorf("WeatherAPIKey = %q, want from-env", cfg.WeatherAPIKey)
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := inTempProject(t, minimalEnvYAML)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("DASHBOARD_UNIT=celsius\n"), 0644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("DASHBOARD_UNIT") })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Unit != units.Celsius {
		t.Errorf("Unit = %q, want C from .env", cfg.Unit)
	}
}

func TestLoad_FileValues(t *testing.T) {
	inTempProject(t, minimalEnvYAML)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want 8080", cfg.ServerPort)
	}
	if cfg.WeatherAPIURL != "https://api.example.com/data/2.5" {
		t.Errorf("WeatherAPIURL = %q", cfg.WeatherAPIURL)
	}
	if cfg.WeatherAPITimeout != 2*time.Second {
		t.Errorf("WeatherAPITimeout = %v, want 2s", cfg.WeatherAPITimeout)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("RequestTimeout = %v, want 5s", cfg.RequestTimeout)
	}
	if cfg.RateLimitRPS != 5 || cfg.RateLimitBurst != 10 {
		t.Errorf("rate limit = %d/%d, want 5/10", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.ShutdownTimeout)
	}
	if want := []string{"Paris", "Lima"}; !reflect.DeepEqual(cfg.Cities, want) {
		t.Errorf("Cities = %v, want %v", cfg.Cities, want)
	}
	if cfg.Unit != units.Celsius {
		t.Errorf("Unit = %q, want C", cfg.Unit)
	}
}

func TestLoad_Defaults(t *testing.T) {
	inTempProject(t, "server:\n  port: \"9090\"\n")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.WeatherAPIURL != defaultWeatherAPIURL {
		t.Errorf("WeatherAPIURL = %q, want %q", cfg.WeatherAPIURL, defaultWeatherAPIURL)
	}
	if !reflect.DeepEqual(cfg.Cities, DefaultCities) {
		t.Errorf("Cities = %v, want %v", cfg.Cities, DefaultCities)
	}
	if cfg.Unit != units.Fahrenheit {
		t.Errorf("Unit = %q, want F", cfg.Unit)
	}
	if cfg.CityMaxLength != 100 {
		t.Errorf("CityMaxLength = %d, want 100", cfg.CityMaxLength)
	}
	if cfg.DegradedWindow != time.Minute || cfg.DegradedErrorPct != 50 {
		t.Errorf("degraded = %v/%d, want 1m/50", cfg.DegradedWindow, cfg.DegradedErrorPct)
	}
	if cfg.InFlightTimeout != 10*time.Second {
		t.Errorf("InFlightTimeout = %v, want 10s", cfg.InFlightTimeout)
	}
}

func TestLoad_EmptyCityListIsKept(t *testing.T) {
	inTempProject(t, "dashboard:\n  cities: []\n")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Cities) != 0 {
		t.Errorf("Cities = %v, want empty", cfg.Cities)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	inTempProject(t, minimalEnvYAML)
	t.Setenv("PORT", "9999")
	t.Setenv("WEATHER_API_URL", "http://localhost:1234")
	t.Setenv("DASHBOARD_CITIES", "Oslo, Cairo ,")
	t.Setenv("DASHBOARD_UNIT", "f")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ServerPort != "9999" {
		t.Errorf("ServerPort = %q, want 9999", cfg.ServerPort)
	}
	if cfg.WeatherAPIURL != "http://localhost:1234" {
		t.Errorf("WeatherAPIURL = %q", cfg.WeatherAPIURL)
	}
	if want := []string{"Oslo", "Cairo"}; !reflect.DeepEqual(cfg.Cities, want) {
		t.Errorf("Cities = %v, want %v", cfg.Cities, want)
	}
	if cfg.Unit != units.Fahrenheit {
		t.Errorf("Unit = %q, want F", cfg.Unit)
	}
}

func TestLoad_RequestTimeoutRaisedAboveAPITimeout(t *testing.T) {
	inTempProject(t, "weather_api:\n  timeout: \"4s\"\nrequest:\n  timeout: \"2s\"\n")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Errorf("RequestTimeout = %v, want 5s", cfg.RequestTimeout)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		wantErr string
	}{
		{"non-positive api timeout", "weather_api:\n  timeout: \"0s\"\n", nil, "WeatherAPITimeout"},
		{"bad unit in file", "dashboard:\n  unit: \"kelvin\"\n", nil, "Unit"},
		{"bad unit in env", "", map[string]string{"DASHBOARD_UNIT": "K"}, "DASHBOARD_UNIT"},
		{"non-numeric port", "server:\n  port: \"http\"\n", nil, "ServerPort"},
		{"bad url", "weather_api:\n  url: \"not a url\"\n", nil, "WeatherAPIURL"},
		{"degraded pct above 100", "health:\n  degraded_error_pct: 150\n", nil, "DegradedErrorPct"},
		{"malformed yaml", "server: [", nil, "parse config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inTempProject(t, tt.yaml)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := Load()
			if err == nil {
				t.Fatalf("Load() error = nil, want error containing %q (cfg %+v)", tt.wantErr, cfg)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	clearEnv(t)
	origWd, _ := os.Getwd()
	dir := t.TempDir()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	defer os.Chdir(origWd)

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("Load() error = %v, want config file not found", err)
	}
}

func TestLoad_ENVNameSelectsFile(t *testing.T) {
	dir := inTempProject(t, minimalEnvYAML)
	if err := os.WriteFile(filepath.Join(dir, "config", "prod.yaml"), []byte("server:\n  port: \"7070\"\n"), 0644); err != nil {
		t.Fatalf("write prod.yaml: %v", err)
	}
	t.Setenv("ENV_NAME", "prod")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ServerPort != "7070" {
		t.Errorf("ServerPort = %q, want 7070", cfg.ServerPort)
	}
}

func TestLoad_ProjectDevConfig(t *testing.T) {
	root := findProjectRoot(t)
	clearEnv(t)
	origWd, _ := os.Getwd()
	if err := os.Chdir(root); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	defer os.Chdir(origWd)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() with config/dev.yaml error = %v", err)
	}
	if !reflect.DeepEqual(cfg.Cities, DefaultCities) {
		t.Errorf("Cities = %v, want %v", cfg.Cities, DefaultCities)
	}
}

const minimalEnvYAML = `
server:
  port: "8080"
weather_api:
  url: "https://api.example.com/data/2.5"
  timeout: "2s"
request:
  timeout: "5s"
reliability:
  rate_limit_rps: 5
  rate_limit_burst: 10
shutdown:
  timeout: "10s"
dashboard:
  cities: ["Paris", "Lima"]
  unit: "celsius"
`

func writeEnvFile(t *testing.T, dir, content string) {
	t.Helper()
	configDir := filepath.Join(dir, "config")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		t.Fatalf("mkdir config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "dev.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
}

func writeSecretsFile(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "config", "secrets.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("write secrets file: %v", err)
	}
}

func findProjectRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "config", "dev.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("config/dev.yaml not found (run tests from project root)")
		}
		dir = parent
	}
}
