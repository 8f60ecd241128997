package config

import (
	"errors"
	"fmt"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"os"
)

type Config struct {
	Logger LoggerConfig `mapstructure:"logger"`
	Bot    BotConfig    `mapstructure:"bot"`
	Watch  WatchConfig  `mapstructure:"watch"`
	Site   SiteConfig   `mapstructure:"site"`
}

var configFile = "./configs/config.yaml"

func Get() *Config {

	if value, ok := os.LookupEnv("CONFIG_PATH"); ok && value != "" {
		configFile = value
	}

	config, err := loadConfig(configFile)
	if err != nil {
		log.Fatal(err)
	}

	return config
}

func loadConfig(file string) (*Config, error) {

	viper.SetConfigFile(file)
	viper.AutomaticEnv()

	setDefaults()

	err := bindEnvironmentVariables()
	if err != nil {
		return nil, err
	}

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", file, err)
	}

	config := Config{}
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	err = config.validate()
	if err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("bot.metrics_address", ":8080")
	viper.SetDefault("bot.request_timeout", defaultBotRequestTimeout)
	viper.SetDefault("logger.log_level", string(LevelInfo))
	viper.SetDefault("logger.output_file", "./logs/errors.log")
	viper.SetDefault("watch.poll_interval", defaultPollInterval)
	viper.SetDefault("watch.tick_timeout", defaultTickTimeout)
	viper.SetDefault("watch.dedup_policy", string(DedupPreserve))
	viper.SetDefault("site.max_requests_per_second", 1)
	viper.SetDefault("site.request_timeout", defaultRequestTimeout)
}

func bindEnvironmentVariables() error {
	var errs []error

	bot, watch, site, logger := BotConfig{}, WatchConfig{}, SiteConfig{}, LoggerConfig{}

	if err := bot.bindEnvironmentVariables(); err != nil {
		errs = append(errs, fmt.Errorf("BotConfig: %w", err))
	}

	if err := watch.bindEnvironmentVariables(); err != nil {
		errs = append(errs, fmt.Errorf("WatchConfig: %w", err))
	}

	if err := site.bindEnvironmentVariables(); err != nil {
		errs = append(errs, fmt.Errorf("SiteConfig: %w", err))
	}

	if err := logger.bindEnvironmentVariables(); err != nil {
		errs = append(errs, fmt.Errorf("LoggerConfig: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred: %w", errors.Join(errs...))
	}

	return nil
}

func (config Config) validate() error {
	var errs []error

	if err := config.Bot.validate(); err != nil {
		errs = append(errs, fmt.Errorf("BotConfig: %w", err))
	}

	if err := config.Watch.validate(); err != nil {
		errs = append(errs, fmt.Errorf("WatchConfig: %w", err))
	}

	if err := config.Site.validate(); err != nil {
		errs = append(errs, fmt.Errorf("SiteConfig: %w", err))
	}

	if err := config.Logger.validate(); err != nil {
		errs = append(errs, fmt.Errorf("LoggerConfig: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred: %w", errors.Join(errs...))
	}

	return nil
}

func createMultiError(errs []error) error {
	return fmt.Errorf("multiple errors occurred: %w", errors.Join(errs...))
}
