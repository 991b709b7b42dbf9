package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Total number of orders placed",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of rejected order placements",
	}, []string{"reason"})

	OrderTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Total number of accepted status transitions",
	}, []string{"to_status"})

	OrderTransitionsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_rejected_total",
		Help: "Total number of rejected status transitions",
	}, []string{"reason"})

	StockDeductionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_deductions_total",
		Help: "Total number of ledger deductions for orders entering processing",
	})

	StockRestorationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_restorations_total",
		Help: "Total number of ledger restorations for cancelled orders",
	})

	StockAdjustRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_adjust_rejected_total",
		Help: "Total number of ledger adjustments rejected for insufficient stock",
	}, []string{"action_type"})

	StockSyncFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_sync_failures_total",
		Help: "Total number of failed product-to-ledger stock syncs",
	})

	StockLevelGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "stock_level",
		Help: "Current stock level per category",
	}, []string{"category"})

	TransitionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_transition_latency_seconds",
		Help:    "Latency of status transitions including ledger side effects",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
