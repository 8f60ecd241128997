package config

import (
	"errors"
	"fmt"
	"github.com/spf13/viper"
	"time"
)

type LogLevel string

const (
	LevelInfo    LogLevel = "INFO"
	LevelDebug   LogLevel = "DEBUG"
	LevelWarning LogLevel = "WARNING"
	LevelError   LogLevel = "ERROR"
	LevelFatal   LogLevel = "FATAL"
)

type LoggerConfig struct {
	LogLevel      LogLevel      `mapstructure:"log_level"`
	AppName       string        `mapstructure:"app_name"`
	OutputFile    string        `mapstructure:"output_file"`
	LokiURL       string        `mapstructure:"loki_url"`
	LokiUser      string        `mapstructure:"loki_user"`
	LokiPassword  string        `mapstructure:"loki_password"`
	LokiBatchSize int           `mapstructure:"loki_batch_size"`
	LokiBatchWait time.Duration `mapstructure:"loki_batch_wait"`
}

func (config LoggerConfig) validate() error {
	var errs []error

	switch config.LogLevel {
	case LevelInfo, LevelDebug, LevelWarning, LevelError, LevelFatal:
	case "":
		errs = append(errs, fmt.Errorf("missing variable: log_level"))
	default:
		errs = append(errs, fmt.Errorf("unknown log_level %q", config.LogLevel))
	}

	if config.OutputFile == "" {
		errs = append(errs, fmt.Errorf("missing variable: output_file"))
	}

	if config.LokiURL != "" && config.AppName == "" {
		errs = append(errs, fmt.Errorf("app_name is required when loki_url is set"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("multiple errors occurred: %w", errors.Join(errs...))
	}

	return nil
}

var loggerEnvironmentVariables = map[string]string{
	"logger.loki_url":      "LOKI_URL",
	"logger.loki_user":     "LOKI_USER",
	"logger.loki_password": "LOKI_PASSWORD",
	"logger.app_name":      "APP_NAME",
	"logger.output_file":   "LOG_OUTPUT_FILE",
	"logger.log_level":     "LOG_LEVEL",
}

func (config LoggerConfig) bindEnvironmentVariables() error {
	var errs []error
	for key, env := range loggerEnvironmentVariables {
		if err := viper.BindEnv(key, env); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return createMultiError(errs)
	}

	return nil
}
