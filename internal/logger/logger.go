package logger

import (
	"context"
	"github.com/maxaizer/divar-watcher/internal/config"
	"github.com/maxaizer/divar-watcher/pkg/loki"
	log "github.com/sirupsen/logrus"
	"io"
	"os"
	"path/filepath"
)

const ErrorTypeField = "error_type"

const (
	ErrorTypeDivarApi = "divar_api"
	ErrorTypeTgApi    = "tg_api"
	ErrorTypeParse    = "parse"
	ErrorTypeInternal = "internal"
)

var (
	logFile    *os.File
	lokiPusher *loki.Pusher
)

func Setup(ctx context.Context, cfg config.LoggerConfig) {

	if err := os.MkdirAll(filepath.Dir(cfg.OutputFile), 0755); err != nil {
		log.Fatalf("Failed to create log directory: %v", err)
	}

	var err error
	logFile, err = os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}

	log.SetOutput(io.MultiWriter(os.Stdout, logFile))
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000 -0700",
	})

	level := toLogrusLevel(cfg.LogLevel)
	log.SetLevel(level)

	addPrometheusHook()

	if cfg.LokiURL == "" {
		return
	}

	lokiCfg := loki.Config{
		Url:          cfg.LokiURL,
		Username:     cfg.LokiUser,
		Password:     cfg.LokiPassword,
		BatchMaxSize: cfg.LokiBatchSize,
		BatchMaxWait: cfg.LokiBatchWait,
		Labels:       map[string]string{"app": cfg.AppName},
	}
	if err = addLokiHook(ctx, lokiCfg, level); err != nil {
		log.WithField(ErrorTypeField, ErrorTypeInternal).Errorf("Failed to enable loki logging: %v", err)
	}
}

func Cleanup() {
	if lokiPusher != nil {
		lokiPusher.Stop()
	}
	if logFile != nil {
		_ = logFile.Close()
	}
}

func toLogrusLevel(level config.LogLevel) log.Level {
	switch level {
	case config.LevelDebug:
		return log.DebugLevel
	case config.LevelWarning:
		return log.WarnLevel
	case config.LevelError:
		return log.ErrorLevel
	case config.LevelFatal:
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}
