package btcsync

/*
This file implements the FundingObserved observer.
It stores the funding outpoint into the deposit registry.
*/

import (
	"context"

	logger "github.com/sirupsen/logrus"

	"github.com/tmewc-io/bridge-go/deposit"
)

type ObserverFunding struct {
	backend deposit.Storage
	Ch      chan FundingObserved // communication channel
}

func NewObserverFunding(backend deposit.Storage, bufferSize int) *ObserverFunding {
	return &ObserverFunding{
		backend: backend,
		Ch:      make(chan FundingObserved, bufferSize),
	}
}

// GetNotifiedFunding implements the FundingObserver interface
// You should init it as a separate goroutine (with go)
// It returns once ctx is done.
func (s *ObserverFunding) GetNotifiedFunding(ctx context.Context) {
	for {
		var data FundingObserved
		select {
		case <-ctx.Done():
			return
		case data = <-s.Ch:
		}
		if err := s.backend.SetFunding(data.Address, data.Utxo); err != nil {
			logger.WithFields(logger.Fields{
				"address": data.Address,
				"txHash":  data.Utxo.TransactionHash.String(),
			}).Warnf("failed to store deposit funding: %v", err)
		}
	}
}

var _ FundingObserver = (*ObserverFunding)(nil)
