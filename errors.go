package lnscan

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFormat is returned when a string does not follow the
	// grammar of the format it was recognized as.
	ErrInvalidFormat = errors.New("invalid invoice format")

	// ErrInvalidNetwork is returned when a network can not be determined
	// or does not match the expected network.
	ErrInvalidNetwork = errors.New("invalid network type")

	// ErrInvalidAmount is returned when an amount string is not a valid
	// non-negative decimal.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidTimestamp is returned for invoices with an unusable
	// creation time.
	ErrInvalidTimestamp = errors.New("invalid timestamp")

	// ErrInvalidChecksum is returned by invoice parsers that report
	// checksum failures separately. It is always accompanied by
	// ErrInvalidFormat.
	ErrInvalidChecksum = errors.New("invalid checksum")

	// ErrInvalidResponse is returned when an LNURL service answers with a
	// payload that can not be used.
	ErrInvalidResponse = errors.New("invalid response")

	// ErrUnsupportedType is returned for formats that are recognized but
	// not supported, such as onion node endpoints.
	ErrUnsupportedType = errors.New("unsupported invoice type")

	// ErrInvalidAddress is returned when the address validator rejects an
	// address.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrRequestFailed is returned when an LNURL service could not be
	// reached or rejected the request.
	ErrRequestFailed = errors.New("lnurl request failed")

	// ErrClientCreationFailed is returned when the LNURL client can not be
	// constructed.
	ErrClientCreationFailed = errors.New("client creation failed")
)

// InvalidPayAmountError is returned when an invoice is requested for an
// amount outside the bounds of an LNURL pay response. All values are in
// satoshis.
type InvalidPayAmountError struct {
	AmountSatoshis uint64
	Min            uint64
	Max            uint64
}

// Error implements the error interface.
func (e *InvalidPayAmountError) Error() string {
	return fmt.Sprintf("invalid LNURL pay amount: %d sats (must be "+
		"between %d and %d sats)", e.AmountSatoshis, e.Min, e.Max)
}

// InvoiceCreationError is returned when the invoice request to an LNURL pay
// callback fails.
type InvoiceCreationError struct {
	Message string
}

// Error implements the error interface.
func (e *InvoiceCreationError) Error() string {
	return fmt.Sprintf("invoice creation failed: %s", e.Message)
}
