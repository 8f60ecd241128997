package logger

import (
	"github.com/maxaizer/divar-watcher/internal/metrics"
	log "github.com/sirupsen/logrus"
)

var knownErrorTypes = map[string]bool{
	ErrorTypeDivarApi: true,
	ErrorTypeTgApi:    true,
	ErrorTypeParse:    true,
	ErrorTypeInternal: true,
}

// prometheusHook counts warnings and errors. Unknown error types are folded into "other"
// and entries logged without one count as "untyped".
type prometheusHook struct{}

func (h *prometheusHook) Fire(entry *log.Entry) error {
	metrics.LoggedProblemsCounter.WithLabelValues(errorTypeLabel(entry), entry.Level.String()).Inc()
	return nil
}

func (h *prometheusHook) Levels() []log.Level {
	return []log.Level{
		log.WarnLevel,
		log.ErrorLevel,
		log.FatalLevel,
		log.PanicLevel,
	}
}

func errorTypeLabel(entry *log.Entry) string {
	errorType, ok := entry.Data[ErrorTypeField].(string)
	switch {
	case !ok:
		return "untyped"
	case knownErrorTypes[errorType]:
		return errorType
	default:
		return "other"
	}
}

func addPrometheusHook() {
	log.AddHook(&prometheusHook{})
}
