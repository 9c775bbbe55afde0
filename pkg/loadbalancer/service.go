// Package loadbalancer fans a blockchain-data query out to a pool of
// independent providers and reconciles their answers into a single view.
// Single-provider queries are not trustworthy: providers go down, lag
// behind the chain tip, or paginate history inconsistently, so correct
// reconciliation rather than plain fan-out is the job of this package.
package loadbalancer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/polywallet/polywallet/pkg/circuitbreaker"
	"github.com/polywallet/polywallet/pkg/explorer"
	"github.com/polywallet/polywallet/pkg/network"
	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNullNetwork ...
	ErrNullNetwork = errors.New("network profile must not be null")
	// ErrDuplicateProvider is returned when two pool members share a name.
	// Breakers and failure causes are keyed by name, so names must be
	// unique within a pool.
	ErrDuplicateProvider = errors.New("provider names must be unique")
)

const (
	defaultRequestTimeout     = 8 * time.Second
	defaultCallDeadline       = 20 * time.Second
	defaultFeeDeviationFactor = 3.0

	kindUtxos   = "utxos"
	kindBalance = "balance"
	kindHistory = "history"
	kindFeeRate = "feerate"
)

// Aggregator owns the provider pool of a single network. Multiple networks
// get independent instances whose health tracking does not interfere.
type Aggregator struct {
	net                *network.Profile
	providers          []explorer.Provider
	breakers           map[string]*gobreaker.CircuitBreaker
	requestTimeout     time.Duration
	callDeadline       time.Duration
	feeDeviationFactor float64
}

// Opts is the struct given to NewAggregator.
type Opts struct {
	// Network is the profile served by this instance.
	Network *network.Profile
	// Providers is the pool queried on every call.
	Providers []explorer.Provider
	// RequestTimeout bounds each individual provider call. Zero falls
	// back to 8s.
	RequestTimeout time.Duration
	// CallDeadline bounds a whole aggregate call across all providers.
	// Zero falls back to 20s.
	CallDeadline time.Duration
	// FeeDeviationFactor drops fee estimates deviating from the median
	// by more than this factor in either direction. Values at or below 1
	// disable outlier rejection. Zero falls back to 3.
	FeeDeviationFactor float64
}

func (o Opts) validate() error {
	if o.Network == nil {
		return ErrNullNetwork
	}
	if len(o.Providers) == 0 {
		return ErrNoProviders
	}
	names := make(map[string]struct{}, len(o.Providers))
	for _, provider := range o.Providers {
		if _, ok := names[provider.Name()]; ok {
			return ErrDuplicateProvider
		}
		names[provider.Name()] = struct{}{}
	}
	return nil
}

// NewAggregator returns an Aggregator reconciling the given provider pool.
func NewAggregator(opts Opts) (*Aggregator, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	requestTimeout := opts.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	callDeadline := opts.CallDeadline
	if callDeadline <= 0 {
		callDeadline = defaultCallDeadline
	}
	feeDeviationFactor := opts.FeeDeviationFactor
	if feeDeviationFactor == 0 {
		feeDeviationFactor = defaultFeeDeviationFactor
	}

	netName := opts.Network.Name
	breakers := make(map[string]*gobreaker.CircuitBreaker, len(opts.Providers))
	for _, provider := range opts.Providers {
		name := provider.Name()
		breakers[name] = circuitbreaker.NewCircuitBreaker(
			name,
			func(name string) {
				providerDemotionsCounter.WithLabelValues(netName, name).Inc()
				log.WithFields(log.Fields{
					"network":  netName,
					"provider": name,
				}).Warn("provider demoted, circuit opened")
			},
		)
	}

	return &Aggregator{
		net:                opts.Network,
		providers:          opts.Providers,
		breakers:           breakers,
		requestTimeout:     requestTimeout,
		callDeadline:       callDeadline,
		feeDeviationFactor: feeDeviationFactor,
	}, nil
}

// Network returns the profile served by this instance.
func (a *Aggregator) Network() *network.Profile {
	return a.net
}

// GetUtxos returns the majority-reconciled UTXO set of an address.
func (a *Aggregator) GetUtxos(ctx context.Context, addr string) ([]explorer.Utxo, error) {
	results, err := a.fanOut(ctx, kindUtxos,
		func(ctx context.Context, provider explorer.Provider) (interface{}, error) {
			return provider.GetUtxos(ctx, addr)
		},
	)
	if err != nil {
		return nil, err
	}

	responses := make([][]explorer.Utxo, 0, len(results))
	for _, result := range results {
		responses = append(responses, result.([]explorer.Utxo))
	}
	return reconcileUtxos(responses), nil
}

// GetBalance returns the balance agreed on by a majority of providers. If no
// strict majority agrees on the exact amounts, the balance is recomputed
// from the majority-reconciled UTXO set instead.
func (a *Aggregator) GetBalance(ctx context.Context, addr string) (explorer.Balance, error) {
	results, err := a.fanOut(ctx, kindBalance,
		func(ctx context.Context, provider explorer.Provider) (interface{}, error) {
			return provider.GetBalance(ctx, addr)
		},
	)
	if err != nil {
		return explorer.Balance{}, err
	}

	balances := make([]explorer.Balance, 0, len(results))
	for _, result := range results {
		balances = append(balances, result.(explorer.Balance))
	}
	if balance, ok := reconcileBalances(balances); ok {
		return balance, nil
	}

	log.WithFields(log.Fields{
		"network": a.net.Name,
		"address": addr,
	}).Debug("no balance majority, recomputing from reconciled utxos")

	utxos, err := a.GetUtxos(ctx, addr)
	if err != nil {
		return explorer.Balance{}, err
	}
	return explorer.BalanceFromUtxos(utxos), nil
}

// GetHistory returns the union of the providers' history pages, merged by
// transaction id.
func (a *Aggregator) GetHistory(
	ctx context.Context, addr string, page int,
) ([]explorer.TxRecord, error) {
	results, err := a.fanOut(ctx, kindHistory,
		func(ctx context.Context, provider explorer.Provider) (interface{}, error) {
			return provider.GetHistory(ctx, addr, page)
		},
	)
	if err != nil {
		return nil, err
	}

	pages := make([][]explorer.TxRecord, 0, len(results))
	for _, result := range results {
		pages = append(pages, result.([]explorer.TxRecord))
	}
	return mergeHistory(pages), nil
}

// GetFeeRate returns the median of the providers' estimates, after outlier
// rejection.
func (a *Aggregator) GetFeeRate(ctx context.Context) (explorer.FeeRate, error) {
	results, err := a.fanOut(ctx, kindFeeRate,
		func(ctx context.Context, provider explorer.Provider) (interface{}, error) {
			return provider.GetFeeRate(ctx)
		},
	)
	if err != nil {
		return 0, err
	}

	rates := make([]explorer.FeeRate, 0, len(results))
	for _, result := range results {
		rates = append(rates, result.(explorer.FeeRate))
	}
	return medianFeeRate(rates, a.feeDeviationFactor), nil
}

// fanOut dispatches the call to every provider concurrently, each bounded by
// the per-provider timeout, the whole batch by the call deadline. Individual
// failures are absorbed; only when no provider yields a usable answer does
// the call fail, with an AggregateError carrying the per-provider causes.
func (a *Aggregator) fanOut(
	ctx context.Context,
	kind string,
	call func(ctx context.Context, provider explorer.Provider) (interface{}, error),
) ([]interface{}, error) {
	callCtx, cancel := context.WithTimeout(ctx, a.callDeadline)
	defer cancel()

	var mtx sync.Mutex
	results := make([]interface{}, 0, len(a.providers))
	causes := make(map[string]error, len(a.providers))

	g, gctx := errgroup.WithContext(callCtx)
	for _, provider := range a.providers {
		provider := provider
		g.Go(func() error {
			name := provider.Name()
			providerRequestsCounter.
				WithLabelValues(a.net.Name, name, kind).Inc()

			result, err := a.breakers[name].Execute(func() (interface{}, error) {
				reqCtx, cancel := context.WithTimeout(gctx, a.requestTimeout)
				defer cancel()
				return call(reqCtx, provider)
			})
			mtx.Lock()
			defer mtx.Unlock()
			if err != nil {
				providerFailuresCounter.
					WithLabelValues(a.net.Name, name, kind).Inc()
				log.WithFields(log.Fields{
					"network":  a.net.Name,
					"provider": name,
					"kind":     kind,
				}).WithError(err).Debug("provider call discarded")
				causes[name] = err
				return nil
			}
			results = append(results, result)
			return nil
		})
	}
	// The closures never return an error; Wait only joins them.
	g.Wait() // nolint: errcheck

	if len(results) == 0 {
		return nil, &AggregateError{Network: a.net.Name, Causes: causes}
	}
	return results, nil
}
