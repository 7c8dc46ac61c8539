package lnscan

import (
	"strings"
)

const bitcoinScheme = "bitcoin:"

// DecodeOnChain splits a bitcoin:address?query URI into its address and
// parameters. Values are kept exactly as they appear in the URI. A missing or
// malformed amount results in a zero amount.
func DecodeOnChain(uri string) *OnChain {
	rest := strings.TrimPrefix(uri, bitcoinScheme)
	address, query, _ := strings.Cut(rest, "?")

	params := make(map[string]string)
	if query != "" {
		for _, pair := range strings.Split(query, "&") {
			key, value, ok := strings.Cut(pair, "=")
			if !ok {
				continue
			}
			params[key] = value
		}
	}

	invoice := &OnChain{
		Address: address,
		Params:  params,
	}

	if amount, ok := params["amount"]; ok {
		sats, err := ParseAmountAsSatoshis(amount)
		if err != nil {
			log.Debugf("Ignoring amount of %s: %v", address, err)
		} else {
			invoice.AmountSatoshis = sats
		}
	}

	if label, ok := params["label"]; ok {
		invoice.Label = &label
	}
	if message, ok := params["message"]; ok {
		invoice.Message = &message
	}

	return invoice
}
