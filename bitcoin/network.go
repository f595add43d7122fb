package bitcoin

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"

	"github.com/tmewc-io/bridge-go/common"
)

// Network is the chain an address or script is encoded for. It is passed
// explicitly to every conversion; no package-level default exists.
type Network int

const (
	NetworkUnknown Network = iota
	NetworkMainnet
	NetworkTestnet
)

const (
	mainnetGenesisHash = "000000000019d6689c085ae165831e934ff763ae46a2a6c172b3f1b60a8ce26f"
	testnetGenesisHash = "000000000933ea01ad0ee984209779baaec3ced90fa3f408719526f8d77f4943"
)

func (n Network) String() string {
	switch n {
	case NetworkMainnet:
		return "mainnet"
	case NetworkTestnet:
		return "testnet"
	default:
		return "unknown"
	}
}

// ParseNetwork maps a configuration string to a Network.
func ParseNetwork(s string) (Network, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mainnet":
		return NetworkMainnet, nil
	case "testnet":
		return NetworkTestnet, nil
	default:
		return NetworkUnknown, fmt.Errorf("%w: %q", ErrUnsupportedNetwork, s)
	}
}

// NetworkFromGenesisHash identifies the network by its genesis block hash
// given in explorer byte order.
func NetworkFromGenesisHash(hash common.Hex) Network {
	switch hash.String() {
	case mainnetGenesisHash:
		return NetworkMainnet
	case testnetGenesisHash:
		return NetworkTestnet
	default:
		return NetworkUnknown
	}
}

// Params returns the btcd encoding tables of the network.
func (n Network) Params() (*chaincfg.Params, error) {
	switch n {
	case NetworkMainnet:
		return &chaincfg.MainNetParams, nil
	case NetworkTestnet:
		return &chaincfg.TestNet3Params, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedNetwork, n)
	}
}
