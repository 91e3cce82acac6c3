package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FeedRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_runs_total",
		Help: "Total number of feed runs by result",
	}, []string{"result"})

	FeedRunsSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_runs_skipped_total",
		Help: "Total number of feed update triggers that did not start a run",
	}, []string{"reason"})

	FeedRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "feed_run_duration_seconds",
		Help:    "Duration of complete feed runs",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})

	FeedFetchErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feed_fetch_errors_total",
		Help: "Total number of failed feed downloads",
	})

	FeedBytesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feed_bytes_fetched_total",
		Help: "Total number of feed bytes downloaded",
	})

	FeedRowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_rows_total",
		Help: "Feed rows by parse outcome",
	}, []string{"outcome"})

	FeedRecordsDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_records_dropped_total",
		Help: "Parsed feed records that were not accepted",
	}, []string{"reason"})

	ProductsAcceptedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_accepted_total",
		Help: "Total number of feed records accepted as deals",
	})

	ProductsUpsertedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_upserted_total",
		Help: "Total number of products persisted",
	})

	ProductUpsertFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "product_upsert_failures_total",
		Help: "Total number of failed product upserts",
	})

	ProductUpsertLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "product_upsert_latency_seconds",
		Help:    "Latency of product upserts",
		Buckets: prometheus.DefBuckets,
	})

	AffinityBrands = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "affinity_brands",
		Help: "Number of brands in the latest affinity snapshot",
	})

	LastSuccessfulRun = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "feed_last_successful_run_timestamp_seconds",
		Help: "Unix time of the last successful feed run",
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
