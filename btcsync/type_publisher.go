package btcsync

import (
	"sync"

	"github.com/tmewc-io/bridge-go/bitcoin"
)

// FundingObserved is a confirmed UTXO found at a registered deposit address.
type FundingObserved struct {
	Address       string
	Utxo          bitcoin.Utxo
	Confirmations int64
}

// PublisherService is a concurrent-safe service that
// could "Notify" channels of observers.
// Please "Register" observers via RegisterXXXObserver before Notify.
// Observer channels are never closed by the publisher.
type PublisherService struct {
	FundingObservers []chan FundingObserved
	mu               sync.Mutex

	done      chan struct{}
	closeOnce sync.Once
}

func NewPublisherService() *PublisherService {
	return &PublisherService{
		FundingObservers: make([]chan FundingObserved, 0),
		done:             make(chan struct{}),
	}
}

// RegisterFundingObserver registers a new observer for deposit funding.
func (m *PublisherService) RegisterFundingObserver(observer chan FundingObserved) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FundingObservers = append(m.FundingObservers, observer)
}

// NotifyFunding never blocks. Once the publisher is closed, it drops data.
func (m *PublisherService) NotifyFunding(data FundingObserved) {
	m.mu.Lock()
	defer m.mu.Unlock()

	select {
	case <-m.done:
		return
	default:
	}

	for _, observer := range m.FundingObservers {
		select {
		case observer <- data:
		default:
			// Handle the case where the observer's channel is full
			go func(obs chan FundingObserved) {
				select {
				case obs <- data:
				case <-m.done:
				}
			}(observer)
		}
	}
}

// Close releases the pending deliveries to full observers.
func (m *PublisherService) Close() {
	m.closeOnce.Do(func() {
		close(m.done)
	})
}
