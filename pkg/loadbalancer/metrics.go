package loadbalancer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	providerRequestsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "polywallet",
		Subsystem: "loadbalancer",
		Name:      "provider_requests_total",
		Help:      "Number of requests dispatched to each provider.",
	}, []string{"network", "provider", "kind"})

	providerFailuresCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "polywallet",
		Subsystem: "loadbalancer",
		Name:      "provider_failures_total",
		Help:      "Number of failed or discarded provider responses.",
	}, []string{"network", "provider", "kind"})

	providerDemotionsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "polywallet",
		Subsystem: "loadbalancer",
		Name:      "provider_demotions_total",
		Help:      "Number of times a provider's circuit was opened.",
	}, []string{"network", "provider"})
)
