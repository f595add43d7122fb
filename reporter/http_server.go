// This is a http type of reporter.
// It registers deposit addresses, reads them back from the deposit registry
// and serves SPV proofs assembled from the bitcoin client.

package reporter

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	logger "github.com/sirupsen/logrus"

	"github.com/tmewc-io/bridge-go/bitcoin"
	"github.com/tmewc-io/bridge-go/common"
	"github.com/tmewc-io/bridge-go/deposit"
	"github.com/tmewc-io/bridge-go/spv"
)

const (
	ROUTE_HELLO   = "/hello"
	ROUTE_DEPOSIT = "/deposit"
	ROUTE_PROOF   = "/proof"
)

// Client is the part of bitcoin.Client the reporter needs.
type Client interface {
	spv.ProofClient
	GetNetwork(ctx context.Context) (bitcoin.Network, error)
}

type HttpReporter struct {
	serverIP   string // listen ip
	serverPort string // listen port

	// upstream data sources
	depositdb             deposit.Storage // this is an interface
	client                Client
	requiredConfirmations int // default for ROUTE_PROOF
}

func NewHttpReporter(serverIP string, serverPort string, depositdb deposit.Storage, client Client, requiredConfirmations int) *HttpReporter {
	return &HttpReporter{
		serverIP:              serverIP,
		serverPort:            serverPort,
		depositdb:             depositdb,
		client:                client,
		requiredConfirmations: requiredConfirmations,
	}
}

// Hook up routes & handlers
func (h *HttpReporter) SetupRouter() *gin.Engine {
	router := gin.Default()

	// Define routes & handlers
	router.GET(ROUTE_HELLO, Hello)
	router.POST(ROUTE_DEPOSIT, h.RegisterDeposit)
	router.GET(ROUTE_DEPOSIT, h.Deposit)
	router.GET(ROUTE_PROOF, h.Proof)

	return router
}

// Hook up router & ip:port
func (h *HttpReporter) Run() error {
	router := h.SetupRouter()
	address := h.serverIP + ":" + h.serverPort
	return router.Run(address)
}

// Example route.
func Hello(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "world",
	})
}

// DepositRequest is the body of a deposit registration. Witness defaults to
// true (P2WSH).
type DepositRequest struct {
	Receipt deposit.Receipt `json:"receipt"`
	Witness *bool           `json:"witness,omitempty"`
}

// RegisterDeposit derives the deposit address of the posted receipt and
// stores it in the registry. Registering the same receipt twice returns the
// existing record.
func (h *HttpReporter) RegisterDeposit(c *gin.Context) {
	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	witness := true
	if req.Witness != nil {
		witness = *req.Witness
	}

	network, err := h.client.GetNetwork(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	script, err := deposit.NewScript(req.Receipt, witness)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	record, err := deposit.NewRecord(script, network)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	existing, ok, err := h.depositdb.GetByAddress(record.Address)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if ok {
		c.JSON(http.StatusOK, gin.H{"data": existing})
		return
	}
	if err := h.depositdb.Insert(record); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	logger.WithField("address", record.Address).Info("Deposit Registered")
	c.JSON(http.StatusCreated, gin.H{"data": record})
}

// Fetch data from depositdb
// Publish on the route
func (h *HttpReporter) Deposit(c *gin.Context) {
	address := c.Query("address")
	if address == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "address must be provided"})
		return
	}

	record, ok, err := h.depositdb.GetByAddress(address)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No deposit found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": record})
}

// Proof assembles the SPV proof of tx_hash with confirmations headers,
// defaulting to the configured required confirmations.
func (h *HttpReporter) Proof(c *gin.Context) {
	raw := c.Query("tx_hash")
	if !common.EnsureSafeHexString(raw, 64) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tx_hash"})
		return
	}
	txHash, err := bitcoin.NewTxHashFromString(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	confirmations := h.requiredConfirmations
	if s := c.Query("confirmations"); s != "" {
		confirmations, err = strconv.Atoi(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid confirmations: " + s})
			return
		}
	}

	proof, err := spv.AssembleProof(c.Request.Context(), txHash, confirmations, h.client)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"data": proof})
	case errors.Is(err, spv.ErrInvalidRequiredConfirmations):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, bitcoin.ErrTransactionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, spv.ErrInsufficientConfirmations):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.WithField("txHash", common.Shorten(txHash.String(), 8)).Warnf("failed to assemble proof: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
