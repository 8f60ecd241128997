package config

import (
	"fmt"
	"github.com/spf13/viper"
	"strings"
	"time"
)

type SelectorsConfig struct {
	Container   string `mapstructure:"container"`
	Item        string `mapstructure:"item"`
	Link        string `mapstructure:"link"`
	Title       string `mapstructure:"title"`
	Description string `mapstructure:"description"`
	Image       string `mapstructure:"image"`
}

type SiteConfig struct {
	BaseURL              string          `mapstructure:"base_url"`
	Origin               string          `mapstructure:"origin"`
	HasPhoto             bool            `mapstructure:"has_photo"`
	BuildingAge          int             `mapstructure:"building_age"`
	Districts            []string        `mapstructure:"districts"`
	MaxRequestsPerSecond float32         `mapstructure:"max_requests_per_second"`
	RequestTimeout       time.Duration   `mapstructure:"request_timeout"`
	UserAgent            string          `mapstructure:"user_agent"`
	Selectors            SelectorsConfig `mapstructure:"selectors"`
}

func (config SiteConfig) validate() error {

	var missingFields []string

	if config.BaseURL == "" {
		missingFields = append(missingFields, "base_url")
	}

	if config.Origin == "" {
		missingFields = append(missingFields, "origin")
	}

	if config.Selectors.Container == "" {
		missingFields = append(missingFields, "selectors.container")
	}

	if config.Selectors.Item == "" {
		missingFields = append(missingFields, "selectors.item")
	}

	if config.Selectors.Link == "" {
		missingFields = append(missingFields, "selectors.link")
	}

	if config.Selectors.Title == "" {
		missingFields = append(missingFields, "selectors.title")
	}

	if len(missingFields) > 0 {
		return fmt.Errorf("missing required variables: %s", strings.Join(missingFields, ", "))
	}

	if config.MaxRequestsPerSecond <= 0 {
		return fmt.Errorf("max_requests_per_second must be positive")
	}

	if config.BuildingAge < 0 {
		return fmt.Errorf("building_age must not be negative")
	}

	return nil
}

func (config SiteConfig) bindEnvironmentVariables() error {
	var errs []error

	if err := viper.BindEnv("site.base_url", "SITE_BASE_URL"); err != nil {
		errs = append(errs, err)
	}

	if err := viper.BindEnv("site.max_requests_per_second", "SITE_MAX_REQUESTS_PER_SECOND"); err != nil {
		errs = append(errs, err)
	}

	if err := viper.BindEnv("site.user_agent", "SITE_USER_AGENT"); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return createMultiError(errs)
	}

	return nil
}
