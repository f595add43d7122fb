package deposit

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/tmewc-io/bridge-go/bitcoin"
)

// Record is a registered deposit address.
type Record struct {
	Address   string          `json:"address"`
	Receipt   Receipt         `json:"receipt"`
	Witness   bool            `json:"witness"`
	Network   bitcoin.Network `json:"-"`
	Funding   *bitcoin.Utxo   `json:"funding,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// NewRecord registers the address of script on network.
func NewRecord(script *Script, network bitcoin.Network) (*Record, error) {
	address, err := script.DeriveAddress(network)
	if err != nil {
		return nil, err
	}
	return &Record{
		Address: address,
		Receipt: script.Receipt(),
		Witness: script.Witness(),
		Network: network,
	}, nil
}

// Storage persists deposit records.
type Storage interface {
	Insert(record *Record) error
	GetByAddress(address string) (*Record, bool, error)
	GetUnfunded() ([]*Record, error)
	SetFunding(address string, utxo bitcoin.Utxo) error
	Close()
}

type sqlRecord struct {
	Address       string
	Receipt       []byte
	Witness       bool
	Network       string
	FundingTxHash sql.NullString
	FundingIdx    sql.NullInt64
	FundingValue  sql.NullInt64
	CreatedAt     time.Time
}

func (s *sqlRecord) encode(r *Record) (*sqlRecord, error) {
	receipt, err := json.Marshal(r.Receipt)
	if err != nil {
		return nil, err
	}
	s.Address = r.Address
	s.Receipt = receipt
	s.Witness = r.Witness
	s.Network = r.Network.String()
	return s, nil
}

func (s *sqlRecord) decode() (*Record, error) {
	r := &Record{
		Address:   s.Address,
		Witness:   s.Witness,
		CreatedAt: s.CreatedAt,
	}
	if err := json.Unmarshal(s.Receipt, &r.Receipt); err != nil {
		return nil, err
	}
	network, err := bitcoin.ParseNetwork(s.Network)
	if err != nil {
		return nil, err
	}
	r.Network = network

	if s.FundingTxHash.Valid {
		txHash, err := bitcoin.NewTxHashFromString(s.FundingTxHash.String)
		if err != nil {
			return nil, err
		}
		r.Funding = &bitcoin.Utxo{
			TxOutpoint: bitcoin.TxOutpoint{TransactionHash: txHash, OutputIndex: uint32(s.FundingIdx.Int64)},
			Value:      s.FundingValue.Int64,
		}
	}
	return r, nil
}
