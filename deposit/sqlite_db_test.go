package deposit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmewc-io/bridge-go/bitcoin"
	"github.com/tmewc-io/bridge-go/common"
	"github.com/tmewc-io/bridge-go/database"
)

func newSQLiteStorage(t *testing.T) (*SQLiteStorage, func()) {
	file := filepath.Join(t.TempDir(), common.RandHex(8).String()+".db")
	db, err := database.Open(file)
	require.NoError(t, err)

	st, err := NewSQLiteStorage(db)
	require.NoError(t, err)

	close := func() {
		st.Close()
		db.Close()
		os.Remove(file)
	}
	return st, close
}

func testRecord(t *testing.T, r Receipt, witness bool) *Record {
	s, err := NewScript(r, witness)
	require.NoError(t, err)
	record, err := NewRecord(s, bitcoin.NetworkTestnet)
	require.NoError(t, err)
	return record
}

func TestStorageInsertAndGet(t *testing.T) {
	st, close := newSQLiteStorage(t)
	defer close()

	record := testRecord(t, testReceiptWithExtraData(), true)
	assert.NoError(t, st.Insert(record))
	assert.Error(t, st.Insert(record))

	got, ok, err := st.GetByAddress(record.Address)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, record.Address, got.Address)
	assert.True(t, got.Witness)
	assert.Equal(t, bitcoin.NetworkTestnet, got.Network)
	assert.Nil(t, got.Funding)
	assert.False(t, got.CreatedAt.IsZero())

	s, err := NewScript(got.Receipt, got.Witness)
	require.NoError(t, err)
	assert.Equal(t, testScriptWithExtraData, s.PlainText().String())

	_, ok, err = st.GetByAddress("tb1qmissing")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestStorageFunding(t *testing.T) {
	st, close := newSQLiteStorage(t)
	defer close()

	witness := testRecord(t, testReceipt(), true)
	legacy := testRecord(t, testReceipt(), false)
	require.NoError(t, st.Insert(witness))
	require.NoError(t, st.Insert(legacy))

	unfunded, err := st.GetUnfunded()
	require.NoError(t, err)
	assert.Len(t, unfunded, 2)

	utxo := bitcoin.Utxo{
		TxOutpoint: bitcoin.TxOutpoint{TransactionHash: bitcoin.TxHash{Hex: common.RandHex(32)}, OutputIndex: 3},
		Value:      70000,
	}
	require.NoError(t, st.SetFunding(legacy.Address, utxo))
	assert.Error(t, st.SetFunding("tb1qmissing", utxo))

	unfunded, err = st.GetUnfunded()
	require.NoError(t, err)
	require.Len(t, unfunded, 1)
	assert.Equal(t, witness.Address, unfunded[0].Address)

	got, ok, err := st.GetByAddress(legacy.Address)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, got.Funding)
	assert.Equal(t, utxo.TransactionHash.String(), got.Funding.TransactionHash.String())
	assert.Equal(t, uint32(3), got.Funding.OutputIndex)
	assert.Equal(t, int64(70000), got.Funding.Value)
}
