package http

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "housefund_http_requests_total",
		Help: "HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	pledgesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "housefund_pledges_submitted_total",
		Help: "Pledges accepted and persisted.",
	})

	pledgeRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "housefund_pledge_rejections_total",
		Help: "Pledge submissions rejected, by reason.",
	}, []string{"reason"})

	fundTotalCents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "housefund_fund_total_cents",
		Help: "Current fund total in cents, as of the last read or write.",
	})
)
