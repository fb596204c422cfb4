// Package metrics exposes Prometheus instruments for the monitor loop.
// Helpers are no-ops until Init has been called.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "darkauction_"

	PollPresent = "present"
	PollAbsent  = "absent"
	PollError   = "error"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	pollsTotal      *prometheus.CounterVec
	pollLatency     prometheus.Histogram
	failuresTotal   *prometheus.CounterVec
	deliveriesTotal *prometheus.CounterVec
	cyclesTotal     *prometheus.CounterVec

	currentPlayers   prometheus.Gauge
	nextWindow       prometheus.Gauge
	auctionDuration  prometheus.Gauge
	auctionAvgPlayer prometheus.Gauge
)

// Init registers all instruments with the default registry.
func Init() {
	registerOnce.Do(func() {
		pollsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "polls_total",
				Help: "Hypixel counts polls by result",
			},
			[]string{"result"},
		)
		pollLatency = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "poll_latency_seconds",
				Help:    "Hypixel counts request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
		)
		failuresTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "failures_total",
				Help: "Reported failures by kind and stage",
			},
			[]string{"kind", "stage"},
		)
		deliveriesTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "deliveries_total",
				Help: "Notification deliveries by sink and result",
			},
			[]string{"sink", "result"},
		)
		cyclesTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "cycles_total",
				Help: "Orchestrator cycles by outcome",
			},
			[]string{"outcome"},
		)
		currentPlayers = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "current_players",
			Help: "Players in the Dark Auction at the last sample",
		})
		nextWindow = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "next_window_timestamp_seconds",
			Help: "Unix time of the next predicted Dark Auction",
		})
		auctionDuration = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "last_auction_duration_seconds",
			Help: "Duration of the last completed Dark Auction",
		})
		auctionAvgPlayer = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "last_auction_avg_players",
			Help: "Average players of the last completed Dark Auction",
		})

		prometheus.MustRegister(
			pollsTotal,
			pollLatency,
			failuresTotal,
			deliveriesTotal,
			cyclesTotal,
			currentPlayers,
			nextWindow,
			auctionDuration,
			auctionAvgPlayer,
		)
	})
}

// ObservePoll records one counts request.
func ObservePoll(result string, duration time.Duration) {
	if pollsTotal != nil {
		pollsTotal.WithLabelValues(result).Inc()
	}
	if pollLatency != nil {
		pollLatency.Observe(duration.Seconds())
	}
}

// IncFailure counts a reported failure.
func IncFailure(kind, stage string) {
	if kind == "" {
		kind = "unexpected"
	}
	if failuresTotal != nil {
		failuresTotal.WithLabelValues(kind, stage).Inc()
	}
}

// ObserveDelivery counts one notification delivery attempt.
func ObserveDelivery(sink string, err error) {
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	if deliveriesTotal != nil {
		deliveriesTotal.WithLabelValues(sink, result).Inc()
	}
}

// IncCycle counts a finished orchestrator cycle.
func IncCycle(outcome string) {
	if cyclesTotal != nil {
		cyclesTotal.WithLabelValues(outcome).Inc()
	}
}

// SetPlayers sets the live player gauge.
func SetPlayers(n int) {
	if currentPlayers != nil {
		currentPlayers.Set(float64(n))
	}
}

// SetNextWindow records the next predicted window.
func SetNextWindow(t time.Time) {
	if nextWindow != nil {
		nextWindow.Set(float64(t.Unix()))
	}
}

// ObserveAuction records the outcome of a completed auction.
func ObserveAuction(duration time.Duration, avgPlayers int) {
	if auctionDuration != nil {
		auctionDuration.Set(duration.Seconds())
	}
	if auctionAvgPlayer != nil {
		auctionAvgPlayer.Set(float64(avgPlayers))
	}
	if currentPlayers != nil {
		currentPlayers.Set(0)
	}
}
