package main

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/tmewc-io/bridge-go/bitcoin"
	"github.com/tmewc-io/bridge-go/cmd"
	"github.com/tmewc-io/bridge-go/logconfig"
)

const (
	ENV_CONFIG_FILE_PATH = "MEWC_BRIDGE_CONFIG"
)

func main() {
	// Tool to read environment variables
	viper.AutomaticEnv()

	// Accessing an environment variable of configuration file location.
	_config_file := viper.GetString(ENV_CONFIG_FILE_PATH)
	fmt.Printf("Bridge server configuration file = %s\n", _config_file)

	// See if file exists
	if !cmd.FileExists(_config_file) {
		fmt.Printf("Bridge server configuration file not found: %s\n", _config_file)
		return
	}

	// Read from config file.
	success := initializeViper(_config_file)
	if !success {
		return
	}

	if err := logconfig.ConfigLogger(viper.GetString("LOG_LEVEL")); err != nil {
		fmt.Printf("Error configuring logger: %s\n", err)
		return
	}

	// Make the configuration
	bsc, err := PrepareBridgeServerConfig()
	if err != nil {
		fmt.Printf("Error loading bridge server configuration: %s\n", err)
		return
	}

	fmt.Println("Starting bridge server... press Ctrl+C to kill the server")
	// Start server and block.
	if err := cmd.StartBridgeServerAndWait(bsc); err != nil {
		fmt.Printf("Bridge server exited: %s\n", err)
	}
}

func initializeViper(filePath string) bool {
	viper.SetConfigFile(filePath)
	if err := viper.ReadInConfig(); err != nil {
		fmt.Printf("Error reading configuration file, %s", err)
		return false
	}
	return true
}

// PrepareBridgeServerConfig reads configuration variables and returns a BridgeServerConfig.
func PrepareBridgeServerConfig() (*cmd.BridgeServerConfig, error) {
	// *** prepare objects that aren't string type ***
	network, err := bitcoin.ParseNetwork(viper.GetString("BTC_NETWORK"))
	if err != nil {
		return nil, err
	}

	return &cmd.BridgeServerConfig{
		// state side
		DbFilePath: viper.GetString("DB_FILE_PATH"),
		// btc side
		BtcRpcServer:   viper.GetString("BTC_RPC_SERVER"),
		BtcRpcPort:     viper.GetString("BTC_RPC_PORT"),
		BtcRpcUsername: viper.GetString("BTC_RPC_USERNAME"),
		BtcRpcPwd:      viper.GetString("BTC_RPC_PWD"),
		BtcNetwork:     network,

		RequiredConfirmations:   viper.GetInt("REQUIRED_CONFIRMATIONS"),
		FundingMinConfirmations: viper.GetInt64("FUNDING_MIN_CONFIRMATIONS"),
		ScanInterval:            viper.GetDuration("SCAN_INTERVAL"),
		// Http side
		HttpIp:   viper.GetString("HTTP_IP"),
		HttpPort: viper.GetString("HTTP_PORT"),
	}, nil
}
