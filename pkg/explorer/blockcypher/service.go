package blockcypher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/polywallet/polywallet/pkg/explorer"
	"github.com/polywallet/polywallet/pkg/httputil"
	"github.com/polywallet/polywallet/pkg/network"
	"github.com/shopspring/decimal"
)

var (
	// ErrNullBaseURL ...
	ErrNullBaseURL = errors.New("base url must not be null")
	// ErrNullNetwork ...
	ErrNullNetwork = errors.New("network profile must not be null")
	// ErrUnsupportedNetwork is returned when the profile maps to no
	// BlockCypher chain path.
	ErrUnsupportedNetwork = errors.New("network is not served by blockcypher")
)

// chainPaths maps profile names to the {coin}/{chain} segment of the API.
var chainPaths = map[string]string{
	"bitcoin":         "btc/main",
	"bitcoin-testnet": "btc/test3",
	"litecoin":        "ltc/main",
	"dogecoin":        "doge/main",
	"dash":            "dash/main",
}

const historyPageSize = 50

type blockcypher struct {
	name   string
	apiURL string
	token  string
	net    *network.Profile
	client *httputil.Client
}

// Opts is the struct given to NewService.
type Opts struct {
	// Name identifies the provider in logs and error causes. Defaults to
	// "blockcypher".
	Name string
	// BaseURL is the API root, e.g. https://api.blockcypher.com/v1. The
	// coin and chain segments are appended from the network profile.
	BaseURL string
	// Token is the optional API token appended to every request.
	Token string
	// Network is the profile used to pick the chain path and to classify
	// reported scripts.
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
	if _, ok := chainPaths[o.Network.Name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedNetwork, o.Network.Name)
	}
	return nil
}

// NewService returns a BlockCypher-backed explorer.Provider.
func NewService(opts Opts) (explorer.Provider, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	name := opts.Name
	if name == "" {
		name = "blockcypher"
	}
	return &blockcypher{
		name:   name,
		apiURL: fmt.Sprintf("%s/%s", opts.BaseURL, chainPaths[opts.Network.Name]),
		token:  opts.Token,
		net:    opts.Network,
		client: httputil.NewClient(opts.RequestTimeout, opts.RequestsPerSecond),
	}, nil
}

func (b *blockcypher) Name() string {
	return b.name
}

func (b *blockcypher) GetUtxos(ctx context.Context, addr string) ([]explorer.Utxo, error) {
	url := b.withToken(fmt.Sprintf("%s/addrs/%s?unspentOnly=true", b.apiURL, addr))
	res, err := b.getAddress(ctx, url)
	if err != nil {
		return nil, err
	}

	utxos := make([]explorer.Utxo, 0, len(res.TxRefs)+len(res.UnconfirmedTxRefs))
	for _, ref := range res.TxRefs {
		if ref.Spent {
			continue
		}
		utxos = append(utxos, ref.normalizeUtxo(addr, b.net))
	}
	for _, ref := range res.UnconfirmedTxRefs {
		if ref.Spent || ref.TxOutputN < 0 {
			continue
		}
		utxos = append(utxos, ref.normalizeUtxo(addr, b.net))
	}
	return utxos, nil
}

func (b *blockcypher) GetBalance(ctx context.Context, addr string) (explorer.Balance, error) {
	url := b.withToken(fmt.Sprintf("%s/addrs/%s/balance", b.apiURL, addr))
	status, body, err := b.client.Get(ctx, url)
	if err != nil {
		return explorer.Balance{}, err
	}
	if err := httputil.CheckStatus(status, body); err != nil {
		return explorer.Balance{}, err
	}

	var res addressResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return explorer.Balance{}, fmt.Errorf("invalid balance response: %w", err)
	}
	return explorer.Balance{
		Total:     res.FinalBalance,
		Confirmed: res.Balance,
	}, nil
}

// GetHistory walks the BlockCypher height pagination up to the requested
// page. Page 0 is the most recent batch.
func (b *blockcypher) GetHistory(
	ctx context.Context, addr string, page int,
) ([]explorer.TxRecord, error) {
	url := b.withToken(fmt.Sprintf(
		"%s/addrs/%s?limit=%d", b.apiURL, addr, historyPageSize,
	))
	for current := 0; ; current++ {
		res, err := b.getAddress(ctx, url)
		if err != nil {
			return nil, err
		}

		refs := res.TxRefs
		if current == 0 {
			refs = append(res.UnconfirmedTxRefs, refs...)
		}

		if current == page {
			records := make([]explorer.TxRecord, 0, len(refs))
			seen := make(map[string]struct{}, len(refs))
			for _, ref := range refs {
				// An address can appear in several in/outputs of
				// the same transaction.
				if _, ok := seen[ref.TxHash]; ok {
					continue
				}
				seen[ref.TxHash] = struct{}{}
				records = append(records, ref.normalizeRecord())
			}
			return records, nil
		}
		if !res.HasMore || len(res.TxRefs) == 0 {
			return nil, nil
		}

		before := res.TxRefs[len(res.TxRefs)-1].BlockHeight
		url = b.withToken(fmt.Sprintf(
			"%s/addrs/%s?limit=%d&before=%d",
			b.apiURL, addr, historyPageSize, before,
		))
	}
}

func (b *blockcypher) GetFeeRate(ctx context.Context) (explorer.FeeRate, error) {
	url := b.withToken(b.apiURL)
	status, body, err := b.client.Get(ctx, url)
	if err != nil {
		return 0, err
	}
	if err := httputil.CheckStatus(status, body); err != nil {
		return 0, err
	}

	var res chainResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return 0, fmt.Errorf("invalid chain response: %w", err)
	}

	// BlockCypher reports fees per kilobyte.
	perByte := decimal.NewFromInt(res.MediumFeePerKb).
		Div(decimal.NewFromInt(1000)).
		Ceil()
	return explorer.FeeRate(perByte.IntPart()), nil
}

func (b *blockcypher) getAddress(
	ctx context.Context, url string,
) (*addressResponse, error) {
	status, body, err := b.client.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := httputil.CheckStatus(status, body); err != nil {
		return nil, err
	}

	res := &addressResponse{}
	if err := json.Unmarshal(body, res); err != nil {
		return nil, fmt.Errorf("invalid address response: %w", err)
	}
	return res, nil
}

func (b *blockcypher) withToken(url string) string {
	if b.token == "" {
		return url
	}
	separator := "?"
	if strings.Contains(url, "?") {
		separator = "&"
	}
	return fmt.Sprintf("%s%stoken=%s", url, separator, b.token)
}
