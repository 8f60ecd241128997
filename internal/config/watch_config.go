package config

import (
	"errors"
	"fmt"
	"github.com/spf13/viper"
	"time"
)

type DedupPolicy string

const (
	// DedupPreserve carries already notified listings over when a watch is restarted.
	DedupPreserve DedupPolicy = "preserve"
	// DedupReset starts a restarted watch with an empty dedup store.
	DedupReset DedupPolicy = "reset"
)

const (
	defaultPollInterval   = 15 * time.Minute
	defaultTickTimeout    = time.Minute
	defaultRequestTimeout = 30 * time.Second

	defaultBotRequestTimeout = 30 * time.Second
)

type WatchConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	TickTimeout  time.Duration `mapstructure:"tick_timeout"`
	DedupPolicy  DedupPolicy   `mapstructure:"dedup_policy"`
	// DedupTTL of zero keeps every notified listing for the whole watch lifetime.
	DedupTTL time.Duration `mapstructure:"dedup_ttl"`
}

func (config WatchConfig) validate() error {
	var errs []error

	if config.PollInterval < time.Second {
		errs = append(errs, fmt.Errorf("poll_interval must be at least 1s, got %v", config.PollInterval))
	}

	if config.TickTimeout <= 0 {
		errs = append(errs, fmt.Errorf("tick_timeout must be positive, got %v", config.TickTimeout))
	}

	if config.DedupPolicy != DedupPreserve && config.DedupPolicy != DedupReset {
		errs = append(errs, fmt.Errorf("dedup_policy must be %q or %q, got %q",
			DedupPreserve, DedupReset, config.DedupPolicy))
	}

	if config.DedupTTL < 0 {
		errs = append(errs, fmt.Errorf("dedup_ttl must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred: %w", errors.Join(errs...))
	}

	return nil
}

func (config WatchConfig) bindEnvironmentVariables() error {

	err := viper.BindEnv("watch.poll_interval", "POLL_INTERVAL")
	if err != nil {
		return err
	}

	err = viper.BindEnv("watch.tick_timeout", "TICK_TIMEOUT")
	if err != nil {
		return err
	}

	err = viper.BindEnv("watch.dedup_ttl", "DEDUP_TTL")
	if err != nil {
		return err
	}

	return viper.BindEnv("watch.dedup_policy", "DEDUP_POLICY")
}
