package marketplace

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "marketplace"

var (
	// metricCurrentSlot tracks the head of the rolling slot window.
	metricCurrentSlot = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "current_slot",
			Help:      "Current slot number at the head of the window",
		})

	metricBidsAccepted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "bids_accepted_total",
			Help:      "Accepted bids by auction kind",
		}, []string{"kind"})

	metricBidsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "bids_rejected_total",
			Help:      "Rejected bids by auction kind",
		}, []string{"kind"})

	metricAuctionsResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "auctions_resolved_total",
			Help:      "Resolved auctions by auction kind",
		}, []string{"kind"})

	metricActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "active_sessions",
			Help:      "Number of live sessions",
		})
)

func init() {
	prometheus.MustRegister(
		metricCurrentSlot,
		metricBidsAccepted,
		metricBidsRejected,
		metricAuctionsResolved,
		metricActiveSessions,
	)
}
