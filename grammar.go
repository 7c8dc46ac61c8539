package lnscan

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ellemouton/lnscan/lnurl"
	"github.com/shopspring/decimal"
)

// satsPerBTC is the decimal exponent between BTC and satoshis.
const satsPerBTC = 8

// maxAmountDigits bounds the integer BTC digits of an amount. Anything longer
// overflows a uint64 of satoshis.
const maxAmountDigits = 12

// amountRegex matches a BIP-21 amount: decimal digits with an optional
// fraction. Signs and exponents are not part of the grammar.
var amountRegex = regexp.MustCompile(`^([0-9]*)(?:\.([0-9]*))?$`)

// lnurlRegex extracts a bech32 LNURL, optionally wrapped in a fallback URL
// with a lightning query parameter or a lightning: scheme. It is applied to
// lower cased input.
var lnurlRegex = regexp.MustCompile(
	`^(?:(http.*|bitcoin:.*)[&?]lightning=|lightning:)?(lnurl1[02-9ac-hj-np-z]+)`,
)

// ParseAmountAsSatoshis converts a decimal BTC amount into satoshis,
// truncating anything below one satoshi.
func ParseAmountAsSatoshis(amount string) (uint64, error) {
	parts := amountRegex.FindStringSubmatch(amount)
	if parts == nil || parts[1]+parts[2] == "" {
		return 0, fmt.Errorf("%w: %q is not a decimal amount",
			ErrInvalidAmount, amount)
	}

	whole := strings.TrimLeft(parts[1], "0")
	if len(whole) > maxAmountDigits {
		return 0, fmt.Errorf("%w: amount %s out of range",
			ErrInvalidAmount, amount)
	}
	if whole == "" {
		whole = "0"
	}

	// Digits below one satoshi are dropped before the decimal is built.
	frac := parts[2]
	if len(frac) > satsPerBTC {
		frac = frac[:satsPerBTC]
	}
	if frac != "" {
		whole += "." + frac
	}

	btc, err := decimal.NewFromString(whole)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}

	sats := btc.Shift(satsPerBTC).BigInt()
	if !sats.IsUint64() {
		return 0, fmt.Errorf("%w: amount %s out of range",
			ErrInvalidAmount, amount)
	}

	return sats.Uint64(), nil
}

// FindLNURL returns the lower cased bech32 LNURL contained in text, if any.
func FindLNURL(text string) (string, bool) {
	matches := lnurlRegex.FindStringSubmatch(
		strings.TrimSpace(strings.ToLower(text)),
	)
	if len(matches) < 3 || matches[2] == "" {
		return "", false
	}

	return matches[2], true
}

// IsLightningAddress reports whether text has the user@domain.tld form of a
// lightning address.
func IsLightningAddress(text string) bool {
	return lnurl.IsLightningAddress(text)
}
