/*
Package btcsync watches the Bitcoin chain and publishes actions to observers.
*/
package btcsync

/*
The funding monitor is a type of publisher.
It scans the registered deposit addresses that are not funded yet and, once
one of them holds a confirmed UTXO, notifies all the observers.
*/

import (
	"context"
	"fmt"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/tmewc-io/bridge-go/bitcoin"
	myutils "github.com/tmewc-io/bridge-go/btcman/utils"
	"github.com/tmewc-io/bridge-go/deposit"
)

const (
	CONSIDER_FINALIZED = 1               // confirmations before a funding counts
	SCAN_INTERVAL      = 3 * time.Second // 3 seconds, then we scan again
)

type Config struct {
	Network          bitcoin.Network
	MinConfirmations int64
	MinFundingValue  int64 // satoshi
	ScanInterval     time.Duration
}

// MonitorClient is the part of bitcoin.Client the monitor needs.
type MonitorClient interface {
	FindAllUnspentTransactionOutputs(ctx context.Context, address string) ([]bitcoin.Utxo, error)
	GetTransactionConfirmations(ctx context.Context, txHash bitcoin.TxHash) (int64, error)
}

type FundingMonitor struct {
	Publisher *PublisherService

	cfg      Config
	client   MonitorClient
	storage  deposit.Storage
	notified map[string]bitcoin.TxOutpoint // address -> published funding
}

func NewFundingMonitor(cfg Config, client MonitorClient, storage deposit.Storage) *FundingMonitor {
	if cfg.MinConfirmations <= 0 {
		cfg.MinConfirmations = CONSIDER_FINALIZED
	}
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = SCAN_INTERVAL
	}
	return &FundingMonitor{
		Publisher: NewPublisherService(),
		cfg:       cfg,
		client:    client,
		storage:   storage,
		notified:  make(map[string]bitcoin.TxOutpoint),
	}
}

// Scan represents a single round of scanning.
// Each unfunded deposit of the configured network is checked for a UTXO of
// enough value and confirmations; the most recent one found is published.
func (m *FundingMonitor) Scan(ctx context.Context) error {
	records, err := m.storage.GetUnfunded()
	if err != nil {
		return fmt.Errorf("failed to load unfunded deposits: %w", err)
	}

	logger.WithField("deposits", len(records)).Debug("Scanning deposit addresses")

	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if record.Network != m.cfg.Network {
			continue
		}
		if _, ok := m.notified[record.Address]; ok {
			continue
		}

		found, err := m.findFunding(ctx, record.Address)
		if err != nil {
			logger.WithField("address", record.Address).Warnf("failed to check deposit funding: %v", err)
			continue
		}
		if found == nil {
			continue
		}

		logger.WithFields(logger.Fields{
			"address":       record.Address,
			"txHash":        found.Utxo.TransactionHash.String(),
			"outputIndex":   found.Utxo.OutputIndex,
			"value":         found.Utxo.Value,
			"confirmations": found.Confirmations,
		}).Info("Deposit Funding Found")

		m.notified[record.Address] = found.Utxo.TxOutpoint
		m.Publisher.NotifyFunding(*found)
	}
	return nil
}

func (m *FundingMonitor) findFunding(ctx context.Context, address string) (*FundingObserved, error) {
	utxos, err := m.client.FindAllUnspentTransactionOutputs(ctx, address)
	if err != nil {
		return nil, err
	}
	for _, u := range utxos {
		if !myutils.IsFundingOutput(u, m.cfg.MinFundingValue) {
			continue
		}
		confirmations, err := m.client.GetTransactionConfirmations(ctx, u.TransactionHash)
		if err != nil {
			return nil, err
		}
		if confirmations < m.cfg.MinConfirmations {
			continue
		}
		return &FundingObserved{Address: address, Utxo: u, Confirmations: confirmations}, nil
	}
	return nil, nil
}

// ScanLoop continuously scans until ctx is done.
func (m *FundingMonitor) ScanLoop(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		if err := m.Scan(ctx); err != nil && ctx.Err() == nil {
			logger.Warnf("funding ScanLoop error: %v", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
