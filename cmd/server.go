// Server = btc client + deposit registry + funding monitor + http reporter.
// All components are configured via envionment variables (strings!).

package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/tmewc-io/bridge-go/bitcoin"
	btcrpc "github.com/tmewc-io/bridge-go/btcman/rpc"
	"github.com/tmewc-io/bridge-go/btcsync"
	"github.com/tmewc-io/bridge-go/database"
	"github.com/tmewc-io/bridge-go/deposit"
	"github.com/tmewc-io/bridge-go/reporter"
)

// Default params for server.
// More often we don't recommend users to tweak those.
// So we list them here.
const (
	defaultRequiredConfirmations = 6
	defaultScanInterval          = 10 * time.Second

	// btc publisher-observer config
	CHANNEL_BUFFER_SIZE = 10
)

// Keep the configuration's fields as "text" as possible.
// Its easier to load it from env vars or a config file.
type BridgeServerConfig struct {
	// state side
	DbFilePath string // db file path
	// btc side
	BtcRpcServer   string          // btc rpc server info
	BtcRpcPort     string          // btc rpc server info
	BtcRpcUsername string          // btc rpc server info
	BtcRpcPwd      string          // btc rpc server info
	BtcNetwork     bitcoin.Network // mainnet or testnet, must match the node

	RequiredConfirmations   int           // headers in a served SPV proof
	FundingMinConfirmations int64         // before a deposit counts as funded
	ScanInterval            time.Duration // between funding scans

	// Http side
	HttpIp   string // eg. 0.0.0.0
	HttpPort string // eg. 8080
}

// BridgeServer holds the objects that consists of the bridge server.
type BridgeServer struct {
	BtcClient bitcoin.Client

	MyDb             *sql.DB
	MyDepositStorage *deposit.SQLiteStorage
	MyFundingMonitor *btcsync.FundingMonitor
	MyFundingObs     *btcsync.ObserverFunding
	MyReporter       *reporter.HttpReporter
}

// NewBridgeServer creates a new bridge server over client.
// ctx is used for parental context to cancel the operation of bridge server.
// wg is used to wait for all the goroutines inside the server (monitor, observer) to finish.
func NewBridgeServer(bsc *BridgeServerConfig, client bitcoin.Client, ctx context.Context, wg *sync.WaitGroup) (*BridgeServer, error) {
	network, err := client.GetNetwork(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot get btc network: %w", err)
	}
	if network != bsc.BtcNetwork {
		return nil, fmt.Errorf("btc node is on %s, configured for %s", network, bsc.BtcNetwork)
	}

	// 1) Create the <deposit storage>
	db, err := database.Open(bsc.DbFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open db file: %w", err)
	}
	depositStorage, err := deposit.NewSQLiteStorage(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot create deposit storage: %w", err)
	}

	// 2) Create the <funding monitor>
	// Can't turn on the monitor loop yet, need to register observers first.
	scanInterval := bsc.ScanInterval
	if scanInterval <= 0 {
		scanInterval = defaultScanInterval
	}
	monitor := btcsync.NewFundingMonitor(btcsync.Config{
		Network:          network,
		MinConfirmations: bsc.FundingMinConfirmations,
		ScanInterval:     scanInterval,
	}, client, depositStorage)

	// 3) Funding observer stores the found funding into the deposit storage
	fundingObserver := btcsync.NewObserverFunding(depositStorage, CHANNEL_BUFFER_SIZE)
	monitor.Publisher.RegisterFundingObserver(fundingObserver.Ch)
	wg.Add(1)
	go func() {
		defer wg.Done()
		fundingObserver.GetNotifiedFunding(ctx)
	}()

	// Turn on the monitor scan loop
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := monitor.ScanLoop(ctx); err != nil && ctx.Err() == nil {
			logger.Errorf("funding monitor stopped: %v", err)
		}
	}()

	// *** Setup a http server to report status ***
	required := bsc.RequiredConfirmations
	if required <= 0 {
		required = defaultRequiredConfirmations
	}
	httpReporter := reporter.NewHttpReporter(bsc.HttpIp, bsc.HttpPort, depositStorage, client, required)

	return &BridgeServer{
		BtcClient:        client,
		MyDb:             db,
		MyDepositStorage: depositStorage,
		MyFundingMonitor: monitor,
		MyFundingObs:     fundingObserver,
		MyReporter:       httpReporter,
	}, nil
}

// Close releases the storage. Call it once the monitor and the observer
// have stopped.
func (s *BridgeServer) Close() {
	s.MyFundingMonitor.Publisher.Close()
	s.MyDepositStorage.Close()
	s.MyDb.Close()
}

// Create, then start the bridge server and wait.
// Press Ctrl-C to kill the server.
func StartBridgeServerAndWait(bsc *BridgeServerConfig) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up a signal channel to listen for Ctrl-C (SIGINT) or SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// Launch a new goroutine to handle the signal
	go func() {
		sig := <-sigCh
		fmt.Printf("Received signal: %v, cancelling context...\n", sig)
		cancel()
	}()

	// 0) connect to btc network
	myBtcRpcClient, err := SetupBtcRpc(bsc.BtcRpcServer, bsc.BtcRpcPort, bsc.BtcRpcUsername, bsc.BtcRpcPwd)
	if err != nil {
		return fmt.Errorf("cannot connect to btc rpc server with %s:%s: %w", bsc.BtcRpcServer, bsc.BtcRpcPort, err)
	}
	defer myBtcRpcClient.Close()

	var wg sync.WaitGroup
	server, err := NewBridgeServer(bsc, myBtcRpcClient, ctx, &wg)
	if err != nil {
		return fmt.Errorf("failed to create bridge server: %w", err)
	}

	// Turn on the http server
	go func() {
		if err := server.MyReporter.Run(); err != nil {
			logger.Errorf("http reporter stopped: %v", err)
			cancel()
		}
	}()

	// wait for all routines to finish
	wg.Wait()
	server.Close()
	return nil
}

// Shared Helper function. Create a btc rpc client.
func SetupBtcRpc(server string, port string, username string, password string) (*btcrpc.RpcClient, error) {
	_config := btcrpc.RpcClientConfig{
		ServerAddr: server,
		Port:       port,
		Username:   username,
		Pwd:        password,
	}
	return btcrpc.NewRpcClient(&_config)
}
