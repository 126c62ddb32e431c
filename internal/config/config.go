// Package config loads dashboard configuration from the environment.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultHTTPAddr            = ":8090"
	defaultStatusPollInterval  = 3 * time.Second
	defaultAutoRefreshInterval = 5 * time.Second

	defaultAssessmentsPerPage = 15
	defaultFindingsPerPage    = 15
	defaultFindingsFetchLimit = 200
	defaultAssessmentsLimit   = 50
)

type Config struct {
	APIBaseURL          string
	HTTPAddr            string
	MetricsAddr         string
	StatusPollInterval  time.Duration
	AutoRefreshInterval time.Duration
	AssessmentsPerPage  int
	FindingsPerPage     int
	FindingsFetchLimit  int
	AssessmentsLimit    int
}

type LoadOptions struct {
	RequireAPIBaseURL bool
}

func Load() (Config, error) {
	return LoadWithOptions(LoadOptions{RequireAPIBaseURL: true})
}

func LoadWithOptions(opts LoadOptions) (Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Config{}, err
		}
	}

	cfg := Config{
		APIBaseURL:          strings.TrimRight(strings.TrimSpace(os.Getenv("API_BASE_URL")), "/"),
		HTTPAddr:            getenvDefault("HTTP_ADDR", defaultHTTPAddr),
		MetricsAddr:         os.Getenv("METRICS_ADDR"),
		StatusPollInterval:  getenvDurationDefault("STATUS_POLL_INTERVAL", defaultStatusPollInterval),
		AutoRefreshInterval: getenvDurationDefault("AUTO_REFRESH_INTERVAL", defaultAutoRefreshInterval),
		AssessmentsPerPage:  getenvIntDefault("ASSESSMENTS_PER_PAGE", defaultAssessmentsPerPage),
		FindingsPerPage:     getenvIntDefault("FINDINGS_PER_PAGE", defaultFindingsPerPage),
		FindingsFetchLimit:  getenvIntDefault("FINDINGS_FETCH_LIMIT", defaultFindingsFetchLimit),
		AssessmentsLimit:    getenvIntDefault("ASSESSMENTS_LIMIT", defaultAssessmentsLimit),
	}

	if opts.RequireAPIBaseURL && cfg.APIBaseURL == "" {
		return cfg, errors.New("API_BASE_URL is required")
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func getenvDurationDefault(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
