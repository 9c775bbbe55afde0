// Package crawler periodically polls a blockchain-data source for the
// addresses and transactions it is told to watch, and publishes typed
// events on a channel for the application layer to consume.
package crawler

import (
	"context"

	"github.com/polywallet/polywallet/pkg/explorer"
	"golang.org/x/time/rate"
)

// Source is the blockchain-data view polled by the crawler, typically a
// loadbalancer.Aggregator.
type Source interface {
	GetUtxos(ctx context.Context, addr string) ([]explorer.Utxo, error)
	GetHistory(ctx context.Context, addr string, page int) ([]explorer.TxRecord, error)
}

// Event are emitted through a channel during observation.
type Event interface {
	Type() EventType
}

// Observable represent object that can be observed on the blockchain.
type Observable interface {
	observe(
		source Source,
		errChan chan error,
		eventChan chan Event,
		observableStatus *observableStatus,
		rateLimiter *rate.Limiter,
	)
	key() string
}

// Service is the interface for Crawler
type Service interface {
	Start()
	Stop()
	AddObservable(observable Observable)
	RemoveObservable(observable Observable)
	GetEventChannel() chan Event
	IsObservingAddresses(addresses []string) bool
}
