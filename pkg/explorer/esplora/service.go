package esplora

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/polywallet/polywallet/pkg/explorer"
	"github.com/polywallet/polywallet/pkg/httputil"
	"github.com/polywallet/polywallet/pkg/network"
)

var (
	// ErrNullBaseURL ...
	ErrNullBaseURL = errors.New("base url must not be null")
	// ErrNullNetwork ...
	ErrNullNetwork = errors.New("network profile must not be null")
	// ErrNoFeeEstimates ...
	ErrNoFeeEstimates = errors.New("explorer returned no fee estimates")
)

// feeTarget is the confirmation target (in blocks) picked from the esplora
// fee-estimates map.
const feeTarget = "6"

type esplora struct {
	name   string
	apiURL string
	net    *network.Profile
	client *httputil.Client
}

// Opts is the struct given to NewService.
type Opts struct {
	// Name identifies the provider in logs and error causes. Defaults to
	// "esplora".
	Name string
	// BaseURL is the API root, e.g. https://blockstream.info/api.
	BaseURL string
	// Network is the profile used to classify reported scripts.
	Network *network.Profile
	// RequestTimeout bounds every single HTTP call.
	RequestTimeout time.Duration
	// RequestsPerSecond throttles the provider; zero means unlimited.
	RequestsPerSecond int
}

func (o Opts) validate() error {
	if o.BaseURL == "" {
		return ErrNullBaseURL
	}
	if o.Network == nil {
		return ErrNullNetwork
	}
	return nil
}

// NewService returns an Esplora-backed explorer.Provider.
func NewService(opts Opts) (explorer.Provider, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	name := opts.Name
	if name == "" {
		name = "esplora"
	}
	return &esplora{
		name:   name,
		apiURL: opts.BaseURL,
		net:    opts.Network,
		client: httputil.NewClient(opts.RequestTimeout, opts.RequestsPerSecond),
	}, nil
}

func (e *esplora) Name() string {
	return e.name
}

func (e *esplora) GetUtxos(ctx context.Context, addr string) ([]explorer.Utxo, error) {
	tipHeight, err := e.getTipHeight(ctx)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/address/%s/utxo", e.apiURL, addr)
	status, body, err := e.client.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := httputil.CheckStatus(status, body); err != nil {
		return nil, err
	}

	var responses []utxoResponse
	if err := json.Unmarshal(body, &responses); err != nil {
		return nil, fmt.Errorf("invalid utxo response: %w", err)
	}

	utxos := make([]explorer.Utxo, 0, len(responses))
	for _, res := range responses {
		utxo, err := res.normalize(addr, tipHeight, e.net)
		if err != nil {
			return nil, err
		}
		utxos = append(utxos, utxo)
	}
	return utxos, nil
}

func (e *esplora) GetBalance(ctx context.Context, addr string) (explorer.Balance, error) {
	utxos, err := e.GetUtxos(ctx, addr)
	if err != nil {
		return explorer.Balance{}, err
	}
	return explorer.BalanceFromUtxos(utxos), nil
}

// GetHistory walks the esplora chain pagination up to the requested page.
// Page 0 is the most recent batch.
func (e *esplora) GetHistory(
	ctx context.Context, addr string, page int,
) ([]explorer.TxRecord, error) {
	tipHeight, err := e.getTipHeight(ctx)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/address/%s/txs", e.apiURL, addr)
	var lastSeen string
	for current := 0; ; current++ {
		if lastSeen != "" {
			url = fmt.Sprintf("%s/address/%s/txs/chain/%s", e.apiURL, addr, lastSeen)
		}

		status, body, err := e.client.Get(ctx, url)
		if err != nil {
			return nil, err
		}
		if err := httputil.CheckStatus(status, body); err != nil {
			return nil, err
		}

		var responses []txResponse
		if err := json.Unmarshal(body, &responses); err != nil {
			return nil, fmt.Errorf("invalid history response: %w", err)
		}

		if current == page {
			records := make([]explorer.TxRecord, 0, len(responses))
			for _, res := range responses {
				records = append(records, res.normalize(tipHeight))
			}
			return records, nil
		}
		if len(responses) == 0 {
			return nil, nil
		}
		lastSeen = responses[len(responses)-1].TxID
	}
}

func (e *esplora) GetFeeRate(ctx context.Context) (explorer.FeeRate, error) {
	url := fmt.Sprintf("%s/fee-estimates", e.apiURL)
	status, body, err := e.client.Get(ctx, url)
	if err != nil {
		return 0, err
	}
	if err := httputil.CheckStatus(status, body); err != nil {
		return 0, err
	}

	var estimates map[string]float64
	if err := json.Unmarshal(body, &estimates); err != nil {
		return 0, fmt.Errorf("invalid fee estimates: %w", err)
	}
	if len(estimates) == 0 {
		return 0, ErrNoFeeEstimates
	}

	rate, ok := estimates[feeTarget]
	if !ok {
		// Fall back to the closest available target.
		best := math.MaxInt64
		target, _ := strconv.Atoi(feeTarget)
		for key, value := range estimates {
			k, err := strconv.Atoi(key)
			if err != nil {
				continue
			}
			if diff := abs(k - target); diff < best {
				best = diff
				rate = value
			}
		}
	}
	return explorer.FeeRateFromFloat(rate)
}

func (e *esplora) getTipHeight(ctx context.Context) (int64, error) {
	url := fmt.Sprintf("%s/blocks/tip/height", e.apiURL)
	status, body, err := e.client.Get(ctx, url)
	if err != nil {
		return 0, err
	}
	if err := httputil.CheckStatus(status, body); err != nil {
		return 0, err
	}
	return strconv.ParseInt(string(body), 10, 64)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
