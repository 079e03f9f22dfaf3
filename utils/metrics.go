package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QuotesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fence_quotes_created_total",
		Help: "Total number of fence quotes created",
	})

	QuotesConvertedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fence_quotes_converted_total",
		Help: "Total number of quotes converted into invoices",
	})

	QuoteConversionsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fence_quote_conversions_failed_total",
		Help: "Total number of failed quote conversions",
	}, []string{"reason"})

	CheckoutSessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_sessions_total",
		Help: "Hosted checkout sessions requested, by outcome",
	}, []string{"outcome"})

	PaymentsRecordedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_recorded_total",
		Help: "Payments recorded against invoices, by method",
	}, []string{"method"})

	AuditWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "audit_write_failures_total",
		Help: "Audit log entries that could not be persisted",
	})

	JobsCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "field_jobs_completed_total",
		Help: "Total number of field jobs marked complete",
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
