package sync

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campaign_syncs_total",
			Help: "Total number of campaign sync runs by outcome",
		},
		[]string{"outcome"},
	)

	syncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "campaign_sync_duration_seconds",
			Help:    "Duration of campaign sync runs in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	vouchersCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vouchers_created_total",
			Help: "Total number of vouchers created by sync runs",
		},
	)

	vouchersDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vouchers_deleted_total",
			Help: "Total number of unclaimed vouchers deleted by sync runs",
		},
	)

	offersArchivedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "offers_archived_total",
			Help: "Total number of offers archived by the orphan sweeper",
		},
	)

	capacitySkipsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "voucher_capacity_skips_total",
			Help: "Total number of voucher allocations skipped at the agreement-quantity ceiling",
		},
	)
)
