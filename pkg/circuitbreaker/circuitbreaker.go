package circuitbreaker

import (
	"time"

	"github.com/sony/gobreaker"
)

var (
	// MaxNumOfFailingRequests ...
	MaxNumOfFailingRequests = 10
	// FailingRatio ...
	FailingRatio = 0.6
	// RecoveryTimeout is how long an open circuit stays open before a
	// probe request is let through again.
	RecoveryTimeout = 30 * time.Second
)

// NewCircuitBreaker is a factory function returning a *gobreaker.CircuitBreaker
// guarding a single data provider. The circuit opens once the overall number
// of requests has reached a tweakable MaxNumOfFailingRequests cap with a
// failing ratio of at least FailingRatio, and lets a probe request through
// after RecoveryTimeout has elapsed. onOpen, if given, is invoked every time
// the circuit opens.
func NewCircuitBreaker(name string, onOpen func(name string)) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: RecoveryTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return int(counts.Requests) >= MaxNumOfFailingRequests && ratio >= FailingRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen && onOpen != nil {
				onOpen(name)
			}
		},
	})
}
