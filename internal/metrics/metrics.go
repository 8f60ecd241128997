package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"net/http"
)

var (
	LoggedProblemsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_logged_problems_total",
			Help: "Total number of logged warnings and errors by error type and level.",
		},
		[]string{"type", "level"},
	)
	TicksCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_watch_ticks_total",
			Help: "Total number of watch ticks by result.",
		},
		[]string{"result"},
	)
	TickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bot_watch_tick_duration_seconds",
			Help:    "Duration of each watch tick in seconds.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
		},
	)
	NotifiedListingsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_listings_notified_total",
			Help: "Total number of new listings handed to notification.",
		},
	)
	SkippedFragmentsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_fragments_skipped_total",
			Help: "Total number of page fragments that could not be extracted.",
		},
	)
	ActiveWatchesGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_active_watches",
			Help: "Number of active subscriber watches.",
		},
	)
)

func StartMetricsServer(address string) {

	prometheus.MustRegister(LoggedProblemsCounter)
	prometheus.MustRegister(TicksCounter)
	prometheus.MustRegister(TickDuration)
	prometheus.MustRegister(NotifiedListingsCounter)
	prometheus.MustRegister(SkippedFragmentsCounter)
	prometheus.MustRegister(ActiveWatchesGauge)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Fatal(http.ListenAndServe(address, mux))
	}()
	log.Infof("metrics server listening on %s", address)
}
