package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcd/btcutil"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/polywallet/polywallet/pkg/explorer"
	"github.com/polywallet/polywallet/pkg/explorer/blockcypher"
	"github.com/polywallet/polywallet/pkg/explorer/esplora"
	"github.com/polywallet/polywallet/pkg/explorer/mempoolspace"
	"github.com/polywallet/polywallet/pkg/network"
)

const (
	// NetworkKey is the network to use, one of the registered profiles
	// ("bitcoin", "litecoin", "dogecoin", ...)
	NetworkKey = "NETWORK"
	// DatadirKey is the local data directory to store the internal state of the daemon
	DatadirKey = "DATA_DIR_PATH"
	// LogLevelKey are the different logging levels. For reference on the values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// EsploraEndpointKey is the endpoint of the Esplora REST API
	EsploraEndpointKey = "ESPLORA_ENDPOINT"
	// BlockCypherEndpointKey is the root of the BlockCypher v1 API
	BlockCypherEndpointKey = "BLOCKCYPHER_ENDPOINT"
	// BlockCypherTokenKey is the optional BlockCypher API token
	BlockCypherTokenKey = "BLOCKCYPHER_TOKEN"
	// MempoolSpaceEndpointKey is the site root of the mempool.space API
	MempoolSpaceEndpointKey = "MEMPOOLSPACE_ENDPOINT"
	// ProviderRequestTimeoutKey are the milliseconds to wait for a single provider response
	ProviderRequestTimeoutKey = "PROVIDER_REQUEST_TIMEOUT"
	// CallDeadlineKey are the milliseconds an aggregate call may take across all providers
	CallDeadlineKey = "CALL_DEADLINE"
	// FeeDeviationFactorKey drops fee estimates deviating from the median by more than this factor
	FeeDeviationFactorKey = "FEE_DEVIATION_FACTOR"
	// CrawlIntervalKey is the interval in milliseconds between polls of a watched address
	CrawlIntervalKey = "CRAWL_INTERVAL"
	// CrawlLimitKey represents the number of requests per second that the crawler
	// makes to the providers
	CrawlLimitKey = "CRAWL_LIMIT"
	// MnemonicKey is the mnemonic of the master private key of the daemon's wallet
	MnemonicKey = "MNEMONIC"

	// DbLocation is the directory under the datadir holding the badger stores
	DbLocation = "db"
)

var vip *viper.Viper
var defaultDatadir = btcutil.AppDataDir("polywallet", false)

func init() {
	vip = viper.New()
	vip.SetEnvPrefix("POLYWALLET")
	vip.AutomaticEnv()

	vip.SetDefault(NetworkKey, "bitcoin")
	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(LogLevelKey, 4)
	vip.SetDefault(EsploraEndpointKey, "https://blockstream.info/api")
	vip.SetDefault(BlockCypherEndpointKey, "https://api.blockcypher.com/v1")
	vip.SetDefault(MempoolSpaceEndpointKey, "https://mempool.space")
	vip.SetDefault(ProviderRequestTimeoutKey, 8000)
	vip.SetDefault(CallDeadlineKey, 20000)
	vip.SetDefault(FeeDeviationFactorKey, 3.0)
	vip.SetDefault(CrawlIntervalKey, 5000)
	vip.SetDefault(CrawlLimitKey, 10)

	if err := validate(); err != nil {
		log.WithError(err).Panic("error while validating config")
	}

	if err := initDatadir(); err != nil {
		log.WithError(err).Panic("error while creating datadir")
	}

	vip.SetDefault(MnemonicKey, "")
}

//GetString ...
func GetString(key string) string {
	return vip.GetString(key)
}

//GetInt ...
func GetInt(key string) int {
	return vip.GetInt(key)
}

//GetFloat ...
func GetFloat(key string) float64 {
	return vip.GetFloat64(key)
}

//GetDuration ...
func GetDuration(key string) time.Duration {
	return vip.GetDuration(key)
}

//GetBool ...
func GetBool(key string) bool {
	return vip.GetBool(key)
}

// Set a value for the given key
func Set(key string, value interface{}) {
	vip.Set(key, value)
}

// IsSet returns whether the give key is set
func IsSet(key string) bool {
	return vip.IsSet(key)
}

//GetNetwork resolves the configured network profile.
func GetNetwork() (*network.Profile, error) {
	return network.Lookup(GetString(NetworkKey))
}

func GetDatadir() string {
	return GetString(DatadirKey)
}

func GetDbDir() string {
	return filepath.Join(GetDatadir(), DbLocation)
}

//GetProviders builds the provider pool for the configured network from the
//configured endpoints. Endpoints set to an empty string are skipped.
func GetProviders(net *network.Profile) ([]explorer.Provider, error) {
	requestTimeout := time.Duration(GetInt(ProviderRequestTimeoutKey)) * time.Millisecond
	providers := make([]explorer.Provider, 0, 3)

	if endpoint := GetString(EsploraEndpointKey); endpoint != "" {
		svc, err := esplora.NewService(esplora.Opts{
			BaseURL:        endpoint,
			Network:        net,
			RequestTimeout: requestTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("esplora provider: %w", err)
		}
		providers = append(providers, svc)
	}

	if endpoint := GetString(BlockCypherEndpointKey); endpoint != "" {
		svc, err := blockcypher.NewService(blockcypher.Opts{
			BaseURL:        endpoint,
			Token:          GetString(BlockCypherTokenKey),
			Network:        net,
			RequestTimeout: requestTimeout,
		})
		switch {
		case errors.Is(err, blockcypher.ErrUnsupportedNetwork):
			log.WithField("network", net.Name).
				Debug("skipping blockcypher, network not served")
		case err != nil:
			return nil, fmt.Errorf("blockcypher provider: %w", err)
		default:
			providers = append(providers, svc)
		}
	}

	if endpoint := GetString(MempoolSpaceEndpointKey); endpoint != "" {
		svc, err := mempoolspace.NewService(mempoolspace.Opts{
			BaseURL:        endpoint,
			Network:        net,
			RequestTimeout: requestTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("mempool.space provider: %w", err)
		}
		providers = append(providers, svc)
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("no provider endpoint is configured")
	}
	return providers, nil
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("datadir must not be null")
	}

	if _, err := network.Lookup(GetString(NetworkKey)); err != nil {
		return err
	}

	if factor := GetFloat(FeeDeviationFactorKey); factor < 0 {
		return fmt.Errorf("fee deviation factor must not be negative")
	}

	if GetInt(CrawlIntervalKey) <= 0 {
		return fmt.Errorf("crawl interval must be positive")
	}
	return nil
}

func initDatadir() error {
	datadir := GetDatadir()
	if err := makeDirectoryIfNotExists(datadir); err != nil {
		return err
	}
	return makeDirectoryIfNotExists(GetDbDir())
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}
