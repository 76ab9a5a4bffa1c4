package collector

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "collector")

var (
	rowsCollected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collector_rows_total",
		Help: "Raw rows collected, by chain and table.",
	}, []string{"chain", "table"})
	unitsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collector_units_processed_total",
		Help: "Slots or heights fetched, by chain.",
	}, []string{"chain"})
	collectionRate = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "collector_units_per_second",
		Help: "Recent collection rate, by chain.",
	}, []string{"chain"})
)
