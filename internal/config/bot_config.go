package config

import (
	"fmt"
	"github.com/spf13/viper"
	"strings"
	"time"
)

type BotConfig struct {
	Token          string        `mapstructure:"token"`
	MetricsAddress string        `mapstructure:"metrics_address"`
	// RequestTimeout bounds one telegram request beyond the long polling wait.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

func (config BotConfig) validate() error {

	var missingFields []string

	if config.Token == "" {
		missingFields = append(missingFields, "token")
	}

	if config.MetricsAddress == "" {
		missingFields = append(missingFields, "metrics_address")
	}

	if len(missingFields) > 0 {
		return fmt.Errorf("missing required variables: %s", strings.Join(missingFields, ", "))
	}

	if config.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", config.RequestTimeout)
	}

	return nil
}

func (config BotConfig) bindEnvironmentVariables() error {
	var errs []error

	if err := viper.BindEnv("bot.token", "TOKEN"); err != nil {
		errs = append(errs, err)
	}

	if err := viper.BindEnv("bot.metrics_address", "METRICS_ADDRESS"); err != nil {
		errs = append(errs, err)
	}

	if err := viper.BindEnv("bot.request_timeout", "BOT_REQUEST_TIMEOUT"); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return createMultiError(errs)
	}

	return nil
}
