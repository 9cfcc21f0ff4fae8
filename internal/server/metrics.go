package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "govqa_requests_total",
		Help: "QA requests by final status.",
	}, []string{"status"})

	answerConfidence = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "govqa_answer_confidence",
		Help:    "Reported confidence of resolved answers.",
		Buckets: prometheus.LinearBuckets(0, 0.1, 11),
	})
)
