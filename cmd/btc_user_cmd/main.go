package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/viper"

	"github.com/tmewc-io/bridge-go/btcman/utils"
	"github.com/tmewc-io/bridge-go/cmd"
	"github.com/tmewc-io/bridge-go/common"
)

const (
	ENV_CONFIG_FILE_PATH = "MEWC_DEPOSIT_CONFIG"
)

func main() {
	// Tool to read environment variables
	viper.AutomaticEnv()

	// Accessing an environment variable of configuration file location.
	_config_file := viper.GetString(ENV_CONFIG_FILE_PATH)
	fmt.Printf("BTC user configuration file = %s\n", _config_file)

	// See if file exists
	if !cmd.FileExists(_config_file) {
		fmt.Printf("BTC user configuration file not found: %s\n", _config_file)
		return
	}

	// Read from config file.
	success := initializeViper(_config_file)
	if !success {
		return
	}

	buc := PrepareBtcUserConfig()

	// Create a cancelable context and signal handler for graceful shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		_captured := <-sig
		fmt.Printf("\nReceived interrupt signal, shutting down... %v\n", _captured)
		cancel()
		os.Exit(0)
	}()

	client, err := cmd.SetupBtcRpc(buc.BtcRpcServer, buc.BtcRpcPort, buc.BtcRpcUsername, buc.BtcRpcPwd)
	if err != nil {
		fmt.Printf("Error connecting to btc rpc server: %s\n", err)
		return
	}
	defer client.Close()

	bu, err := cmd.NewBtcUser(ctx, buc, client)
	if err != nil {
		fmt.Printf("Error creating BTC user: %s\n", err)
		return
	}
	address, _ := bu.MyDeposit.Address()

	fmt.Println(strings.Repeat("=", 30))
	fmt.Println("Welcome to bridge BTC deposit command line tool.")
	fmt.Printf("Your deposit address: %s\n", address)
	fmt.Println("Keep the receipt below, it is needed to reveal or refund the deposit.")
	printJSON(bu.MyDeposit.Receipt())

	// *** user interactive program ***
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Println(strings.Repeat("-", 30))
		fmt.Println("1) Check deposit balance")
		fmt.Println("2) Prepare reveal of the latest funding")
		fmt.Println("3) Exit")
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}

		switch strings.TrimSpace(scanner.Text()) {
		case "1":
			balance, err := bu.Balance(ctx)
			if err != nil {
				fmt.Printf("Error: %s\n", err)
				continue
			}
			fmt.Printf("Balance: %d satoshi (%f BTC)\n", balance, utils.SatoshiToBtc(balance))
		case "2":
			var vault *common.Hex
			if v := viper.GetString("VAULT"); v != "" {
				h, err := common.HexFromString(v)
				if err != nil {
					fmt.Printf("Error: invalid VAULT: %s\n", err)
					continue
				}
				vault = &h
			}
			args, err := bu.MyDeposit.PrepareReveal(ctx, nil, vault)
			if err != nil {
				fmt.Printf("Error: %s\n", err)
				continue
			}
			printJSON(args)
		case "3":
			return
		default:
			fmt.Println("Unknown option")
		}
	}
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}
	fmt.Println(string(out))
}

func initializeViper(filePath string) bool {
	viper.SetConfigFile(filePath)
	if err := viper.ReadInConfig(); err != nil {
		fmt.Printf("Error reading configuration file, %s", err)
		return false
	}
	return true
}

// PrepareBtcUserConfig reads configuration variables and returns a BtcUserConfig.
func PrepareBtcUserConfig() *cmd.BtcUserConfig {
	return &cmd.BtcUserConfig{
		BtcRpcServer:           viper.GetString("BTC_RPC_SERVER"),
		BtcRpcPort:             viper.GetString("BTC_RPC_PORT"),
		BtcRpcUsername:         viper.GetString("BTC_RPC_USERNAME"),
		BtcRpcPwd:              viper.GetString("BTC_RPC_PWD"),
		DepositorEvmAddr:       viper.GetString("DEPOSITOR_EVM_ADDR"),
		WalletPublicKeyHash:    viper.GetString("WALLET_PUBLIC_KEY_HASH"),
		RefundPublicKeyHash:    viper.GetString("REFUND_PUBLIC_KEY_HASH"),
		RefundLocktimeDuration: viper.GetDuration("REFUND_LOCKTIME_DURATION"),
		ExtraDataEvmAddr:       viper.GetString("EXTRA_DATA_EVM_ADDR"),
	}
}
