package lnscan

import (
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/zpay32"
)

// InvoiceParser parses and verifies BOLT11 invoices.
type InvoiceParser interface {
	// Parse decodes invoice, verifying its checksum and signature.
	Parse(invoice string) (*zpay32.Invoice, error)
}

// errUnknownInvoicePrefix is returned for invoices whose human readable part
// does not name a supported network.
var errUnknownInvoicePrefix = errors.New("unknown invoice prefix")

// invoicePrefixes maps BOLT11 prefixes onto chain params. Longer prefixes
// come first since lnbc is a prefix of lnbcrt and lntb of lntbs.
var invoicePrefixes = []struct {
	prefix string
	params *chaincfg.Params
}{
	{"lnbcrt", &chaincfg.RegressionNetParams},
	{"lnbc", &chaincfg.MainNetParams},
	{"lntbs", &chaincfg.SigNetParams},
	{"lntb", &chaincfg.TestNet3Params},
}

// Bolt11Parser is the default InvoiceParser. It picks the chain params from
// the invoice prefix and hands the invoice to zpay32.
type Bolt11Parser struct{}

// A compile-time check to ensure Bolt11Parser implements InvoiceParser.
var _ InvoiceParser = (*Bolt11Parser)(nil)

// Parse decodes a BOLT11 invoice for any of the supported networks.
func (p *Bolt11Parser) Parse(invoice string) (*zpay32.Invoice, error) {
	params, err := invoiceParams(invoice)
	if err != nil {
		return nil, err
	}

	return zpay32.Decode(invoice, params)
}

func invoiceParams(invoice string) (*chaincfg.Params, error) {
	lower := strings.ToLower(invoice)
	for _, p := range invoicePrefixes {
		if strings.HasPrefix(lower, p.prefix) {
			return p.params, nil
		}
	}

	return nil, errUnknownInvoicePrefix
}

// decodeLightning parses invoice and derives the fields of a Lightning
// result. Expiry is judged against the given clock.
func decodeLightning(parser InvoiceParser, clk clock.Clock,
	invoice string) (*Lightning, error) {

	inv, err := parser.Parse(invoice)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}

	network, err := NetworkFromParams(inv.Net)
	if err != nil {
		return nil, err
	}

	if inv.PaymentHash == nil {
		return nil, fmt.Errorf("%w: invoice has no payment hash",
			ErrInvalidFormat)
	}

	timestamp := inv.Timestamp.Unix()
	if timestamp < 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTimestamp,
			inv.Timestamp)
	}

	var amount uint64
	if inv.MilliSat != nil {
		amount = uint64(inv.MilliSat.ToSatoshis())
	}

	expiry := inv.Expiry()
	isExpired := clk.Now().After(inv.Timestamp.Add(expiry))

	var description *string
	if inv.Description != nil {
		desc := *inv.Description
		description = &desc
	}

	var payee HexBytes
	if inv.Destination != nil {
		payee = inv.Destination.SerializeCompressed()
	}

	return &Lightning{
		Invoice:          invoice,
		PaymentHash:      append(HexBytes(nil), inv.PaymentHash[:]...),
		AmountSatoshis:   amount,
		TimestampSeconds: uint64(timestamp),
		ExpirySeconds:    uint64(expiry.Seconds()),
		IsExpired:        isExpired,
		Network:          network,
		Description:      description,
		PayeeNodeID:      payee,
	}, nil
}
