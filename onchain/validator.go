// Package onchain validates bitcoin addresses and infers the network they
// belong to.
package onchain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
)

var (
	// ErrInvalidAddress is returned when an address can not be decoded.
	ErrInvalidAddress = errors.New("invalid bitcoin address format")

	// ErrInvalidNetwork is returned when an address decodes but does not
	// belong to the network its prefix indicates.
	ErrInvalidNetwork = errors.New("invalid network type")
)

// AddressType is the output script type an address commits to.
type AddressType uint8

const (
	// AddressTypeUnknown is used for witness versions without a dedicated
	// type.
	AddressTypeUnknown AddressType = iota

	// AddressTypeP2PKH is a legacy pay-to-pubkey-hash address.
	AddressTypeP2PKH

	// AddressTypeP2SH is a pay-to-script-hash address, usually wrapping
	// segwit.
	AddressTypeP2SH

	// AddressTypeP2WPKH is a native segwit v0 pubkey hash address.
	AddressTypeP2WPKH

	// AddressTypeP2WSH is a native segwit v0 script hash address.
	AddressTypeP2WSH

	// AddressTypeP2TR is a segwit v1 taproot address.
	AddressTypeP2TR
)

// String returns the common name of the address type.
func (t AddressType) String() string {
	switch t {
	case AddressTypeP2PKH:
		return "Legacy"
	case AddressTypeP2SH:
		return "SegWit"
	case AddressTypeP2WPKH:
		return "Native SegWit"
	case AddressTypeP2WSH:
		return "Native SegWit Script"
	case AddressTypeP2TR:
		return "Taproot"
	default:
		return "Unknown"
	}
}

// ValidationResult describes a successfully validated address.
type ValidationResult struct {
	Address string
	Network *chaincfg.Params
	Type    AddressType
}

// ChainAddressValidator validates addresses against the btcd chain params of
// the network inferred from their prefix.
type ChainAddressValidator struct{}

// NewChainAddressValidator returns a new ChainAddressValidator.
func NewChainAddressValidator() *ChainAddressValidator {
	return &ChainAddressValidator{}
}

// Validate decodes address and checks it belongs to the network implied by
// its prefix.
func (v *ChainAddressValidator) Validate(address string) (*ValidationResult,
	error) {

	params, err := InferNetwork(address)
	if err != nil {
		return nil, err
	}

	addr, err := btcutil.DecodeAddress(address, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	if !addr.IsForNet(params) {
		return nil, fmt.Errorf("%w: %s is not a %s address",
			ErrInvalidNetwork, address, params.Name)
	}

	return &ValidationResult{
		Address: address,
		Network: params,
		Type:    addressType(addr),
	}, nil
}

// InferNetwork returns the chain params an address belongs to, judged by its
// prefix alone. Regtest base58 addresses share their prefixes with testnet
// and are reported as testnet.
func InferNetwork(address string) (*chaincfg.Params, error) {
	lower := strings.ToLower(address)

	switch {
	case strings.HasPrefix(lower, chaincfg.RegressionNetParams.Bech32HRPSegwit+"1"):
		return &chaincfg.RegressionNetParams, nil

	case strings.HasPrefix(lower, chaincfg.MainNetParams.Bech32HRPSegwit+"1"),
		strings.HasPrefix(address, "1"), strings.HasPrefix(address, "3"):

		return &chaincfg.MainNetParams, nil

	case strings.HasPrefix(lower, chaincfg.TestNet3Params.Bech32HRPSegwit+"1"),
		strings.HasPrefix(address, "2"), strings.HasPrefix(address, "m"),
		strings.HasPrefix(address, "n"):

		return &chaincfg.TestNet3Params, nil

	default:
		return nil, fmt.Errorf("%w: unknown prefix", ErrInvalidAddress)
	}
}

func addressType(addr btcutil.Address) AddressType {
	switch addr.(type) {
	case *btcutil.AddressPubKeyHash:
		return AddressTypeP2PKH
	case *btcutil.AddressScriptHash:
		return AddressTypeP2SH
	case *btcutil.AddressWitnessPubKeyHash:
		return AddressTypeP2WPKH
	case *btcutil.AddressWitnessScriptHash:
		return AddressTypeP2WSH
	case *btcutil.AddressTaproot:
		return AddressTypeP2TR
	default:
		return AddressTypeUnknown
	}
}
