package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/polywallet/polywallet/config"
	"github.com/polywallet/polywallet/internal/core/application"
	dbbadger "github.com/polywallet/polywallet/internal/infrastructure/storage/db/badger"
	"github.com/polywallet/polywallet/pkg/crawler"
	"github.com/polywallet/polywallet/pkg/loadbalancer"
	"github.com/polywallet/polywallet/pkg/wallet"
)

func main() {
	log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))

	net, err := config.GetNetwork()
	if err != nil {
		log.WithError(err).Panic("error while resolving network")
	}

	providers, err := config.GetProviders(net)
	if err != nil {
		log.WithError(err).Panic("error while building provider pool")
	}

	aggregator, err := loadbalancer.NewAggregator(loadbalancer.Opts{
		Network:            net,
		Providers:          providers,
		RequestTimeout:     time.Duration(config.GetInt(config.ProviderRequestTimeoutKey)) * time.Millisecond,
		CallDeadline:       time.Duration(config.GetInt(config.CallDeadlineKey)) * time.Millisecond,
		FeeDeviationFactor: config.GetFloat(config.FeeDeviationFactorKey),
	})
	if err != nil {
		log.WithError(err).Panic("error while creating aggregator")
	}

	db, err := dbbadger.NewDbManager(config.GetDbDir(), nil)
	if err != nil {
		log.WithError(err).Panic("error while opening db")
	}
	defer db.Close()

	utxoRepository := dbbadger.NewUtxoRepositoryImpl(db)
	txRepository := dbbadger.NewTransactionRepositoryImpl(db)

	crawlerSvc := crawler.NewService(crawler.Opts{
		Source:                 aggregator,
		IntervalInMilliseconds: config.GetInt(config.CrawlIntervalKey),
		RequestsPerSecond:      rate.Limit(config.GetInt(config.CrawlLimitKey)),
		ErrorHandler: func(err error) {
			log.WithError(err).Warn("crawler error")
		},
	})
	listener := application.NewBlockchainListener(
		utxoRepository, txRepository, crawlerSvc, net,
	)

	mnemonic := config.GetString(config.MnemonicKey)
	if mnemonic == "" {
		mnemonic, err = wallet.NewMnemonic()
		if err != nil {
			log.WithError(err).Panic("error while generating mnemonic")
		}
		log.Warnf(
			"no mnemonic configured, generated a new one, back it up: %s",
			mnemonic,
		)
	}
	seed, err := wallet.SeedFromMnemonic(mnemonic, "")
	if err != nil {
		log.WithError(err).Panic("error while decoding mnemonic")
	}
	master, err := wallet.NewMasterKey(seed, net)
	if err != nil {
		log.WithError(err).Panic("error while deriving master key")
	}

	walletSvc := application.NewWalletService(application.WalletServiceOpts{
		Network:               net,
		Master:                master,
		UtxoRepository:        utxoRepository,
		TransactionRepository: txRepository,
		Listener:              listener,
		FeeSource:             aggregator,
	})
	addr, err := walletSvc.DeriveAddress()
	if err != nil {
		log.WithError(err).Panic("error while deriving address")
	}
	log.WithFields(log.Fields{
		"network": net.Name,
		"address": addr.String(),
	}).Info("watching receiving address")

	listener.ObserveBlockchain()
	defer listener.StopObserveBlockchain()

	log.Debug("daemon started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	<-sigChan

	log.Debug("exiting")
}
