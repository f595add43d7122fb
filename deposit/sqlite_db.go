package deposit

import (
	"database/sql"
	"errors"

	"github.com/tmewc-io/bridge-go/bitcoin"
	"github.com/tmewc-io/bridge-go/database"
)

type SQLiteStorage struct {
	stmtcache *database.StmtCache
}

func NewSQLiteStorage(db *sql.DB) (*SQLiteStorage, error) {
	if _, err := db.Exec(depositTable); err != nil {
		return nil, err
	}
	return &SQLiteStorage{stmtcache: database.NewStmtCache(db)}, nil
}

func (s *SQLiteStorage) Close() {
	s.stmtcache.Close()
}

func (s *SQLiteStorage) Insert(record *Record) error {
	var r sqlRecord
	if _, err := r.encode(record); err != nil {
		return err
	}
	_, err := s.stmtcache.Exec(queryInsertDeposit, r.Address, r.Receipt, r.Witness, r.Network)
	return err
}

func (s *SQLiteStorage) GetByAddress(address string) (*Record, bool, error) {
	row, err := s.stmtcache.QueryRow(queryGetDeposit, address)
	if err != nil {
		return nil, false, err
	}
	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return record, true, nil
}

func (s *SQLiteStorage) GetUnfunded() ([]*Record, error) {
	rows, err := s.stmtcache.Query(queryGetUnfunded)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []*Record{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *SQLiteStorage) SetFunding(address string, utxo bitcoin.Utxo) error {
	res, err := s.stmtcache.Exec(querySetFunding,
		utxo.TransactionHash.String(),
		utxo.OutputIndex,
		utxo.Value,
		address,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var r sqlRecord
	if err := row.Scan(
		&r.Address,
		&r.Receipt,
		&r.Witness,
		&r.Network,
		&r.FundingTxHash,
		&r.FundingIdx,
		&r.FundingValue,
		&r.CreatedAt,
	); err != nil {
		return nil, err
	}
	return r.decode()
}

var _ Storage = (*SQLiteStorage)(nil)
