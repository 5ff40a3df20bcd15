package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iota-uz/orgvalidity/modules/org/domain/validity"
)

var (
	orgValidityRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "org",
		Subsystem: "validity",
		Name:      "rejections_total",
		Help:      "Total number of rejected validity checks broken down by error code.",
	}, []string{"code"})

	orgValiditySplices = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "org",
		Subsystem: "validity",
		Name:      "splices_total",
		Help:      "Total number of submitted splices broken down by kind.",
	}, []string{"kind"})

	orgValidityStoreCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "org",
		Subsystem: "validity",
		Name:      "store_calls_total",
		Help:      "Total number of store calls broken down by operation and result.",
	}, []string{"op", "result"})
)

func recordRejection(code string) {
	if code == "" {
		code = "other"
	}
	orgValidityRejections.WithLabelValues(code).Inc()
}

func recordSplice[S comparable](kind string, res validity.SpliceResult[S]) {
	if res.Truncate != nil {
		kind += "_truncate"
	} else {
		kind += "_replace"
	}
	orgValiditySplices.WithLabelValues(kind).Inc()
}

func recordStoreCall(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	orgValidityStoreCalls.WithLabelValues(op, result).Inc()
}
