package lnurl

import (
	"encoding/json"

	"github.com/lightningnetwork/lnd/lnwire"
)

// Response is the decoded first-step response of an LNURL service. It is one
// of *PayResponse, *WithdrawResponse or *ChannelResponse.
type Response interface {
	// ResponseTag returns the tag the service used to identify the
	// response.
	ResponseTag() Tag
}

type PayResponse struct {
	// Callback is the URL from LN SERVICE which will accept the pay request
	// parameters
	Callback string `json:"callback" validate:"required,url"`

	// MaxSendable is the max amount LN SERVICE is willing to receive
	MaxSendable lnwire.MilliSatoshi `json:"maxSendable" validate:"gtefield=MinSendable"`

	// MinSendable is the min amount LN SERVICE is willing to receive, can
	// not be less than 1 or more than `maxSendable`
	MinSendable lnwire.MilliSatoshi `json:"minSendable"`

	// Metadata json which must be presented as raw string here, this is
	// required to pass signature verification at a later step.
	Metadata string `json:"metadata"`

	// CommentAllowed is the max length of a comment the payer may attach
	// to the invoice request (LUD-12).
	CommentAllowed *uint32 `json:"commentAllowed,omitempty"`

	// AllowsNostr indicates the service publishes zap receipts (NIP-57).
	AllowsNostr *bool `json:"allowsNostr,omitempty"`

	// NostrPubkey is the key zap receipts are signed with, either 32 byte
	// hex or npub.
	NostrPubkey *string `json:"nostrPubkey,omitempty"`

	// Type of LNURL
	Tag Tag `json:"tag"`
}

// ResponseTag returns TagPayRequest.
func (p *PayResponse) ResponseTag() Tag { return TagPayRequest }

type WithdrawResponse struct {
	// Callback is the URL the wallet submits its invoice to.
	Callback string `json:"callback" validate:"required,url"`

	// K1 is a random string identifying the withdraw session.
	K1 string `json:"k1" validate:"required"`

	// DefaultDescription is the description the wallet should use for the
	// invoice it generates.
	DefaultDescription string `json:"defaultDescription"`

	// MinWithdrawable is optional, some services leave it out if there is
	// no lower bound.
	MinWithdrawable *lnwire.MilliSatoshi `json:"minWithdrawable,omitempty"`

	MaxWithdrawable lnwire.MilliSatoshi `json:"maxWithdrawable"`

	// Type of LNURL
	Tag Tag `json:"tag"`
}

// ResponseTag returns TagWithdrawRequest.
func (w *WithdrawResponse) ResponseTag() Tag { return TagWithdrawRequest }

type ChannelResponse struct {
	// URI is the remote node address of the form pubkey@host:port.
	URI string `json:"uri" validate:"required"`

	// Callback is the URL the wallet calls once it is connected.
	Callback string `json:"callback" validate:"required,url"`

	K1 string `json:"k1" validate:"required"`

	// Type of LNURL
	Tag Tag `json:"tag"`
}

// ResponseTag returns TagChannelRequest.
func (c *ChannelResponse) ResponseTag() Tag { return TagChannelRequest }

type InvoiceResponse struct {
	// PayRequest is a bech32-serialized lightning invoice.
	PayRequest string `json:"pr"`

	// Routes an empty array.
	Routes []json.RawMessage `json:"routes"`
}

type Tag string

const (
	TagPayRequest      Tag = "payRequest"
	TagWithdrawRequest Tag = "withdrawRequest"
	TagChannelRequest  Tag = "channelRequest"
	TagLogin           Tag = "login"
)

// String returns the tag as sent on the wire.
func (t Tag) String() string {
	return string(t)
}

// StatusError is the status value LNURL services use to report a failure.
const StatusError = "ERROR"

type Error struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}
