package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "client")

var requestRetries = promauto.NewCounter(prometheus.CounterOpts{
	Name: "api_client_request_retries_total",
	Help: "Total number of retried API requests across all collector clients.",
})
