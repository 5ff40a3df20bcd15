package services

import "github.com/prometheus/client_golang/prometheus"

func RejectionsCounter(code string) prometheus.Counter {
	return orgValidityRejections.WithLabelValues(code)
}

func SplicesCounter(kind string) prometheus.Counter {
	return orgValiditySplices.WithLabelValues(kind)
}
