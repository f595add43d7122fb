package reporter

import (
	"bytes"
	"encoding/json"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/btcsuite/btcd/wire"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tmewc-io/bridge-go/bitcoin"
	"github.com/tmewc-io/bridge-go/common"
	"github.com/tmewc-io/bridge-go/database"
	"github.com/tmewc-io/bridge-go/deposit"
	"github.com/tmewc-io/bridge-go/spv"
)

const receiptJSON = `{
	"depositor": "934b98637ca318a4d6e7ca6ffd1690b8e77df637",
	"blindingFactor": "f9f0c90d00039523",
	"walletPublicKeyHash": "8db50eb52063ea9d98b3eac91489a90f738986f6",
	"refundPublicKeyHash": "28e081f285138ccbe389c1eb8985716230129f89",
	"refundLocktime": "60bcea61"
}`

type testEnv struct {
	client   *bitcoin.SimulatedClient
	storage  *deposit.SQLiteStorage
	reporter *HttpReporter
	router   *gin.Engine
}

func setup(t *testing.T) *testEnv {
	gin.SetMode(gin.TestMode)

	db, err := database.Open(filepath.Join(t.TempDir(), "reporter.db"))
	require.NoError(t, err)
	st, err := deposit.NewSQLiteStorage(db)
	require.NoError(t, err)
	t.Cleanup(func() {
		st.Close()
		db.Close()
	})

	client := bitcoin.NewSimulatedClient(bitcoin.NetworkTestnet)
	r := NewHttpReporter("127.0.0.1", "0", st, client, 3)
	return &testEnv{client: client, storage: st, reporter: r, router: r.SetupRouter()}
}

func (e *testEnv) do(method, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func expectedAddress(t *testing.T, witness bool) string {
	var r deposit.Receipt
	require.NoError(t, json.Unmarshal([]byte(receiptJSON), &r))
	s, err := deposit.NewScript(r, witness)
	require.NoError(t, err)
	address, err := s.DeriveAddress(bitcoin.NetworkTestnet)
	require.NoError(t, err)
	return address
}

type recordResponse struct {
	Data deposit.Record `json:"data"`
}

func TestHello(t *testing.T) {
	e := setup(t)
	w := e.do(http.MethodGet, ROUTE_HELLO, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"world"}`, w.Body.String())
}

func TestRegisterDeposit(t *testing.T) {
	e := setup(t)
	body := []byte(`{"receipt":` + receiptJSON + `}`)

	w := e.do(http.MethodPost, ROUTE_DEPOSIT, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created recordResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, expectedAddress(t, true), created.Data.Address)
	assert.True(t, created.Data.Witness)

	// idempotent
	w = e.do(http.MethodPost, ROUTE_DEPOSIT, body)
	assert.Equal(t, http.StatusOK, w.Code)

	w = e.do(http.MethodPost, ROUTE_DEPOSIT, []byte(`{"receipt":`+receiptJSON+`,"witness":false}`))
	require.Equal(t, http.StatusCreated, w.Code)
	var legacy recordResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &legacy))
	assert.Equal(t, expectedAddress(t, false), legacy.Data.Address)
	assert.False(t, legacy.Data.Witness)

	stored, ok, err := e.storage.GetByAddress(legacy.Data.Address)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, bitcoin.NetworkTestnet, stored.Network)
}

func TestRegisterDepositInvalid(t *testing.T) {
	e := setup(t)

	w := e.do(http.MethodPost, ROUTE_DEPOSIT, []byte(`{"receipt":`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodPost, ROUTE_DEPOSIT, []byte(`{"receipt":{"depositor":"934b98637ca318a4d6e7ca6ffd1690b8e77df637"}}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "blinding factor")

	w = e.do(http.MethodPost, ROUTE_DEPOSIT, []byte(`{"receipt":{"depositor":"zz"}}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetDeposit(t *testing.T) {
	e := setup(t)
	address := expectedAddress(t, true)

	w := e.do(http.MethodGet, ROUTE_DEPOSIT, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodGet, ROUTE_DEPOSIT+"?address="+address, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	e.do(http.MethodPost, ROUTE_DEPOSIT, []byte(`{"receipt":`+receiptJSON+`}`))
	w = e.do(http.MethodGet, ROUTE_DEPOSIT+"?address="+address, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got recordResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, address, got.Data.Address)
	assert.Nil(t, got.Data.Funding)
}

func proofTarget(txHash string, confirmations int) string {
	q := url.Values{"tx_hash": {txHash}}
	if confirmations > 0 {
		q.Set("confirmations", strconv.Itoa(confirmations))
	}
	return ROUTE_PROOF + "?" + q.Encode()
}

func fund(e *testEnv) bitcoin.TxHash {
	tx := e.client.FundScript(common.MustHexFromString("00147ac2d9378a1c47e589dfb8095ca95ed2140d2726"), 5000)
	return txHash(tx)
}

func txHash(tx *wire.MsgTx) bitcoin.TxHash {
	h := tx.TxHash()
	return bitcoin.TxHashFromChainhash(&h)
}

func TestProof(t *testing.T) {
	e := setup(t)
	hash := fund(e)
	e.client.MineBlocks(4)

	w := e.do(http.MethodGet, proofTarget(hash.String(), 0), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Data spv.Proof `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3*bitcoin.HeaderSize, resp.Data.BitcoinHeaders.Len())
	assert.Equal(t, 1, resp.Data.TxIndexInBlock)
	one := bigOne()
	assert.NoError(t, spv.ValidateProof(hash, &resp.Data, 3, one, one))

	w = e.do(http.MethodGet, proofTarget(hash.String(), 4), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = e.do(http.MethodGet, proofTarget(hash.String(), 5), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestProofErrors(t *testing.T) {
	e := setup(t)

	w := e.do(http.MethodGet, proofTarget("abcd", 1), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodGet, proofTarget("0xnothex", 1), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid tx_hash")

	w = e.do(http.MethodGet, ROUTE_PROOF+"?tx_hash="+common.RandHex(32).String()+"&confirmations=x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodGet, ROUTE_PROOF+"?tx_hash="+common.RandHex(32).String()+"&confirmations=0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodGet, proofTarget(common.RandHex(32).String(), 1), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHttpReader(t *testing.T) {
	e := setup(t)
	server := httptest.NewServer(e.router)
	defer server.Close()

	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	host, port, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)
	reader := NewHttpReader(host, port)

	hello, err := reader.GetHello()
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"world"}`, hello)

	var r deposit.Receipt
	require.NoError(t, json.Unmarshal([]byte(receiptJSON), &r))
	code, _, err := reader.PostDeposit(DepositRequest{Receipt: r})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, code)

	code, body, err := reader.GetDeposit(expectedAddress(t, true))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, expectedAddress(t, true))

	hash := fund(e)
	e.client.MineBlocks(1)
	code, _, err = reader.GetProof(hash.String(), 1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, code)
}

func bigOne() *big.Int {
	return big.NewInt(1)
}
