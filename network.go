package lnscan

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
)

// NetworkType is the bitcoin network a decoded result belongs to.
type NetworkType uint8

const (
	NetworkBitcoin NetworkType = iota
	NetworkTestnet
	NetworkRegtest
	NetworkSignet
)

// String returns the lower case name of the network.
func (n NetworkType) String() string {
	switch n {
	case NetworkBitcoin:
		return "bitcoin"
	case NetworkTestnet:
		return "testnet"
	case NetworkRegtest:
		return "regtest"
	case NetworkSignet:
		return "signet"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(n))
	}
}

// ChainParams returns the btcd chain params of the network.
func (n NetworkType) ChainParams() *chaincfg.Params {
	switch n {
	case NetworkTestnet:
		return &chaincfg.TestNet3Params
	case NetworkRegtest:
		return &chaincfg.RegressionNetParams
	case NetworkSignet:
		return &chaincfg.SigNetParams
	default:
		return &chaincfg.MainNetParams
	}
}

// MarshalText implements encoding.TextMarshaler.
func (n NetworkType) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (n *NetworkType) UnmarshalText(text []byte) error {
	parsed, err := ParseNetwork(string(text))
	if err != nil {
		return err
	}
	*n = parsed

	return nil
}

// ParseNetwork parses a network name. Both the names used here and the btcd
// chain param names are accepted.
func ParseNetwork(name string) (NetworkType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "bitcoin", "mainnet":
		return NetworkBitcoin, nil
	case "testnet", "testnet3":
		return NetworkTestnet, nil
	case "regtest":
		return NetworkRegtest, nil
	case "signet":
		return NetworkSignet, nil
	default:
		return 0, fmt.Errorf("%w: unknown network %q", ErrInvalidNetwork,
			name)
	}
}

// NetworkFromParams maps btcd chain params onto a NetworkType.
func NetworkFromParams(params *chaincfg.Params) (NetworkType, error) {
	if params == nil {
		return 0, fmt.Errorf("%w: no chain params", ErrInvalidNetwork)
	}

	switch params.Name {
	case chaincfg.MainNetParams.Name:
		return NetworkBitcoin, nil
	case chaincfg.TestNet3Params.Name:
		return NetworkTestnet, nil
	case chaincfg.RegressionNetParams.Name:
		return NetworkRegtest, nil
	case chaincfg.SigNetParams.Name:
		return NetworkSignet, nil
	default:
		return 0, fmt.Errorf("%w: unsupported chain %s",
			ErrInvalidNetwork, params.Name)
	}
}
