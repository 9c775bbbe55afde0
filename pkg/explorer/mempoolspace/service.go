// Package mempoolspace implements an explorer.Provider backed by the
// mempool.space API. The address, utxo and history endpoints are the
// Esplora ones served under the /api prefix; only the fee endpoint is
// specific to mempool.space.
package mempoolspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/polywallet/polywallet/pkg/explorer"
	"github.com/polywallet/polywallet/pkg/explorer/esplora"
	"github.com/polywallet/polywallet/pkg/httputil"
	"github.com/polywallet/polywallet/pkg/network"
)

// ErrNullBaseURL ...
var ErrNullBaseURL = errors.New("base url must not be null")

type recommendedFees struct {
	FastestFee  float64 `json:"fastestFee"`
	HalfHourFee float64 `json:"halfHourFee"`
	HourFee     float64 `json:"hourFee"`
	EconomyFee  float64 `json:"economyFee"`
	MinimumFee  float64 `json:"minimumFee"`
}

type mempoolspace struct {
	explorer.Provider

	name   string
	apiURL string
	client *httputil.Client
}

// Opts is the struct given to NewService.
type Opts struct {
	// Name identifies the provider in logs and error causes. Defaults to
	// "mempoolspace".
	Name string
	// BaseURL is the site root, e.g. https://mempool.space. The /api
	// prefix is appended internally.
	BaseURL string
	// Network is the profile used to classify reported scripts.
	Network *network.Profile
	// RequestTimeout bounds every single HTTP call.
	RequestTimeout time.Duration
	// RequestsPerSecond throttles the provider; zero means unlimited.
	RequestsPerSecond int
}

// NewService returns a mempool.space-backed explorer.Provider.
func NewService(opts Opts) (explorer.Provider, error) {
	if opts.BaseURL == "" {
		return nil, ErrNullBaseURL
	}

	name := opts.Name
	if name == "" {
		name = "mempoolspace"
	}
	apiURL := fmt.Sprintf("%s/api", opts.BaseURL)

	inner, err := esplora.NewService(esplora.Opts{
		Name:              name,
		BaseURL:           apiURL,
		Network:           opts.Network,
		RequestTimeout:    opts.RequestTimeout,
		RequestsPerSecond: opts.RequestsPerSecond,
	})
	if err != nil {
		return nil, err
	}

	return &mempoolspace{
		Provider: inner,
		name:     name,
		apiURL:   apiURL,
		client:   httputil.NewClient(opts.RequestTimeout, opts.RequestsPerSecond),
	}, nil
}

func (m *mempoolspace) Name() string {
	return m.name
}

// GetFeeRate reads the native recommended-fees endpoint and picks the
// half-hour target.
func (m *mempoolspace) GetFeeRate(ctx context.Context) (explorer.FeeRate, error) {
	url := fmt.Sprintf("%s/v1/fees/recommended", m.apiURL)
	status, body, err := m.client.Get(ctx, url)
	if err != nil {
		return 0, err
	}
	if err := httputil.CheckStatus(status, body); err != nil {
		return 0, err
	}

	var fees recommendedFees
	if err := json.Unmarshal(body, &fees); err != nil {
		return 0, fmt.Errorf("invalid fee response: %w", err)
	}
	return explorer.FeeRateFromFloat(fees.HalfHourFee)
}
