package crawler

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	New       Status = "NEW"
	Waiting   Status = "WAITING"
	Processed Status = "PROCESSED"
)

type Status string

type observableStatus struct {
	sync.RWMutex
	status Status
}

func NewObservableStatus() *observableStatus {
	return &observableStatus{
		status: New,
	}
}

func (o *observableStatus) Get() Status {
	o.RLock()
	defer o.RUnlock()
	return o.status
}

func (o *observableStatus) Set(status Status) {
	o.Lock()
	defer o.Unlock()
	o.status = status
}

// AddressObservable polls the unspents of a single address.
type AddressObservable struct {
	Address string
}

func (a *AddressObservable) observe(
	source Source,
	errChan chan error,
	eventChan chan Event,
	observableStatus *observableStatus,
	rateLimiter *rate.Limiter,
) {
	if a == nil {
		return
	}

	observableStatus.Set(Waiting)
	if err := rateLimiter.Wait(context.Background()); err != nil {
		errChan <- err
		return
	}

	unspents, err := source.GetUtxos(context.Background(), a.Address)
	if err != nil {
		errChan <- err
		return
	}

	observableStatus.Set(Processed)

	eventChan <- AddressEvent{
		ID:        uuid.New(),
		EventType: AddressUnspents,
		Address:   a.Address,
		Utxos:     unspents,
	}
}

func (a *AddressObservable) key() string {
	return a.Address
}

// TransactionObservable polls the history of the transaction's address
// until the transaction confirms.
type TransactionObservable struct {
	TxID    string
	Address string
}

func (t *TransactionObservable) observe(
	source Source,
	errChan chan error,
	eventChan chan Event,
	observableStatus *observableStatus,
	rateLimiter *rate.Limiter,
) {
	if t == nil {
		return
	}

	observableStatus.Set(Waiting)
	if err := rateLimiter.Wait(context.Background()); err != nil {
		errChan <- err
		return
	}

	records, err := source.GetHistory(context.Background(), t.Address, 0)
	if err != nil {
		errChan <- err
		return
	}

	observableStatus.Set(Processed)

	event := TransactionEvent{
		ID:        uuid.New(),
		EventType: TransactionUnconfirmed,
		TxID:      t.TxID,
		Address:   t.Address,
	}
	for _, record := range records {
		if record.TxID != t.TxID {
			continue
		}
		if record.Confirmations > 0 {
			event.EventType = TransactionConfirmed
			event.Height = record.Height
			event.Confirmations = record.Confirmations
		}
		break
	}

	eventChan <- event
}

func (t *TransactionObservable) key() string {
	return t.TxID
}

type observableHandler struct {
	observable       Observable
	source           Source
	wg               *sync.WaitGroup
	ticker           *time.Ticker
	eventChan        chan Event
	errChan          chan error
	stopChan         chan int
	observableStatus *observableStatus
	rateLimiter      *rate.Limiter
}

func newObservableHandler(
	observable Observable,
	source Source,
	wg *sync.WaitGroup,
	interval int,
	eventChan chan Event,
	errChan chan error,
	rateLimiter *rate.Limiter,
) *observableHandler {
	ticker := time.NewTicker(time.Duration(interval) * time.Millisecond)
	stopChan := make(chan int, 1)

	return &observableHandler{
		observable,
		source,
		wg,
		ticker,
		eventChan,
		errChan,
		stopChan,
		NewObservableStatus(),
		rateLimiter,
	}
}

func (oh *observableHandler) start() {
	oh.logAction("start")
	oh.wg.Add(1)
	for {
		select {
		case <-oh.ticker.C:
			if oh.observableStatus.Get() != Waiting {
				oh.observable.observe(
					oh.source,
					oh.errChan,
					oh.eventChan,
					oh.observableStatus,
					oh.rateLimiter,
				)
			}
		case <-oh.stopChan:
			oh.ticker.Stop()
			close(oh.stopChan)
			return
		}
	}
}

func (oh *observableHandler) stop() {
	oh.logAction("stop")
	oh.stopChan <- 1
	oh.wg.Done()
}

func (oh *observableHandler) logAction(action string) {
	obs := oh.observable
	switch obs.(type) {
	case *AddressObservable:
		log.Debugf("%s observing address: %v", action, obs.key())
	case *TransactionObservable:
		log.Debugf("%s observing tx: %v", action, obs.key())
	}
}
