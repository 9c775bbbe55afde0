package crawler

import (
	"sync"

	"golang.org/x/time/rate"
)

const (
	eventQueueMaxSize = 100
	errorQueueMaxSize = 10
)

type blockchainCrawler struct {
	interval     int
	source       Source
	errChan      chan error
	eventChan    chan Event
	observables  map[string]*observableHandler
	errorHandler func(err error)
	mutex        *sync.RWMutex
	wg           *sync.WaitGroup
	rateLimiter  *rate.Limiter
}

// Opts defines the parameters needed for creating a crawler service with NewService method
type Opts struct {
	Source                 Source
	IntervalInMilliseconds int
	// RequestsPerSecond caps the polling pressure put on the source
	// across all observables.
	RequestsPerSecond rate.Limit
	ErrorHandler      func(err error)
}

// NewService returns a blockchainCrawler that is ready to watch for
// blockchain activity. Use Start and Stop methods to manage it.
func NewService(opts Opts) Service {
	return &blockchainCrawler{
		interval:     opts.IntervalInMilliseconds,
		source:       opts.Source,
		errChan:      make(chan error, errorQueueMaxSize),
		eventChan:    make(chan Event, eventQueueMaxSize),
		observables:  map[string]*observableHandler{},
		errorHandler: opts.ErrorHandler,
		mutex:        &sync.RWMutex{},
		wg:           &sync.WaitGroup{},
		rateLimiter:  rate.NewLimiter(opts.RequestsPerSecond, 1),
	}
}

// Start starts the crawler which periodically "scans" the blockchain for
// the watched addresses and transactions.
func (bc *blockchainCrawler) Start() {
	for {
		err, more := <-bc.errChan
		if !more {
			return
		}
		go bc.errorHandler(err)
	}
}

// Stop stops the crawler.
func (bc *blockchainCrawler) Stop() {
	bc.mutex.Lock()
	defer bc.mutex.Unlock()
	for _, obsHandler := range bc.observables {
		go obsHandler.stop()
	}
	bc.wg.Wait()
	bc.eventChan <- QuitEvent{}
	close(bc.errChan)
}

// GetEventChannel returns the Event channel which can be used to "listen"
// to blockchain events.
func (bc *blockchainCrawler) GetEventChannel() chan Event {
	bc.mutex.RLock()
	defer bc.mutex.RUnlock()
	return bc.eventChan
}

// AddObservable adds a new Observable to the list of Observables to be
// "watched over" only if the same Observable is not already in the list.
func (bc *blockchainCrawler) AddObservable(observable Observable) {
	bc.mutex.Lock()
	defer bc.mutex.Unlock()

	if _, ok := bc.observables[observable.key()]; !ok {
		obsHandler := newObservableHandler(
			observable,
			bc.source,
			bc.wg,
			bc.interval,
			bc.eventChan,
			bc.errChan,
			bc.rateLimiter,
		)

		bc.observables[observable.key()] = obsHandler
		go obsHandler.start()
	}
}

// RemoveObservable stops "watching" the given Observable.
func (bc *blockchainCrawler) RemoveObservable(observable Observable) {
	bc.mutex.Lock()
	defer bc.mutex.Unlock()

	if obsHandler, ok := bc.observables[observable.key()]; ok {
		obsHandler.stop()
		delete(bc.observables, observable.key())
	}
}

// IsObservingAddresses returns whether the crawler is watching every one of
// the given addresses.
func (bc *blockchainCrawler) IsObservingAddresses(addresses []string) bool {
	if len(addresses) == 0 {
		return false
	}

	bc.mutex.RLock()
	defer bc.mutex.RUnlock()

	for _, addr := range addresses {
		if _, ok := bc.observables[addr]; !ok {
			return false
		}
	}
	return true
}
