package lnscan

import (
	"encoding/hex"
	"time"
)

// Kind identifies the variant of a Result.
type Kind string

const (
	KindOnChain       Kind = "onChain"
	KindLightning     Kind = "lightning"
	KindPubkyAuth     Kind = "pubkyAuth"
	KindLnurlChannel  Kind = "lnurlChannel"
	KindLnurlAuth     Kind = "lnurlAuth"
	KindLnurlWithdraw Kind = "lnurlWithdraw"
	KindLnurlAddress  Kind = "lnurlAddress"
	KindLnurlPay      Kind = "lnurlPay"
	KindNodeID        Kind = "nodeId"
	KindTreasureHunt  Kind = "treasureHunt"
	KindOrangeTicket  Kind = "orangeTicket"
)

// Result is the outcome of a successful decode. The concrete type is one of
// the pointer types in this file; callers switch on it or on Kind.
type Result interface {
	// Kind returns the variant of the result.
	Kind() Kind

	isResult()
}

// HexBytes is a byte slice that renders as hex in text encodings.
type HexBytes []byte

// String returns the hex encoding of b.
func (b HexBytes) String() string {
	return hex.EncodeToString(b)
}

// MarshalText implements encoding.TextMarshaler.
func (b HexBytes) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// OnChain is a bitcoin address, optionally with BIP-21 parameters.
type OnChain struct {
	Address        string      `json:"address" yaml:"address"`
	AmountSatoshis uint64      `json:"amountSatoshis" yaml:"amountSatoshis"`
	Label          *string     `json:"label,omitempty" yaml:"label,omitempty"`
	Message        *string     `json:"message,omitempty" yaml:"message,omitempty"`
	Network        NetworkType `json:"network" yaml:"network"`

	// Params holds every query parameter of the URI as is, without percent
	// decoding.
	Params map[string]string `json:"params" yaml:"params"`
}

// Lightning is a decoded BOLT11 invoice.
type Lightning struct {
	Invoice          string      `json:"invoice" yaml:"invoice"`
	PaymentHash      HexBytes    `json:"paymentHash" yaml:"paymentHash"`
	AmountSatoshis   uint64      `json:"amountSatoshis" yaml:"amountSatoshis"`
	TimestampSeconds uint64      `json:"timestampSeconds" yaml:"timestampSeconds"`
	ExpirySeconds    uint64      `json:"expirySeconds" yaml:"expirySeconds"`
	IsExpired        bool        `json:"isExpired" yaml:"isExpired"`
	Network          NetworkType `json:"network" yaml:"network"`

	// Description is only set for invoices that carry the description
	// itself rather than its hash.
	Description *string `json:"description,omitempty" yaml:"description,omitempty"`

	// PayeeNodeID is the compressed public key of the payee.
	PayeeNodeID HexBytes `json:"payeeNodeId,omitempty" yaml:"payeeNodeId,omitempty"`
}

// Timestamp returns the creation time of the invoice.
func (l *Lightning) Timestamp() time.Time {
	return time.Unix(int64(l.TimestampSeconds), 0).UTC()
}

// Expiry returns how long after its creation the invoice expires.
func (l *Lightning) Expiry() time.Duration {
	return time.Duration(l.ExpirySeconds) * time.Second
}

// PubkyAuth is a pubkyauth: link, passed through untouched.
type PubkyAuth struct {
	Data string `json:"data" yaml:"data"`
}

// LnurlChannel is an LNURL-channel request.
type LnurlChannel struct {
	URI      string `json:"uri" yaml:"uri"`
	Callback string `json:"callback" yaml:"callback"`
	K1       string `json:"k1" yaml:"k1"`
	Tag      string `json:"tag" yaml:"tag"`

	// NodeURI is the pubkey@host:port of the node offering the channel.
	NodeURI string `json:"nodeUri" yaml:"nodeUri"`
}

// LnurlAuth is an LNURL-auth login challenge.
type LnurlAuth struct {
	URI string `json:"uri" yaml:"uri"`
	Tag string `json:"tag" yaml:"tag"`
	K1  string `json:"k1" yaml:"k1"`
}

// LnurlWithdraw is an LNURL-withdraw request. Amounts are in millisatoshis.
type LnurlWithdraw struct {
	URI                string  `json:"uri" yaml:"uri"`
	Callback           string  `json:"callback" yaml:"callback"`
	K1                 string  `json:"k1" yaml:"k1"`
	DefaultDescription string  `json:"defaultDescription" yaml:"defaultDescription"`
	MinWithdrawable    *uint64 `json:"minWithdrawable,omitempty" yaml:"minWithdrawable,omitempty"`
	MaxWithdrawable    uint64  `json:"maxWithdrawable" yaml:"maxWithdrawable"`
	Tag                string  `json:"tag" yaml:"tag"`
}

// LnurlAddress is a lightning address that has not been resolved yet.
type LnurlAddress struct {
	URI      string `json:"uri" yaml:"uri"`
	Username string `json:"username" yaml:"username"`
	Domain   string `json:"domain" yaml:"domain"`
}

// LnurlPay is an LNURL-pay request. Amounts are in millisatoshis.
type LnurlPay struct {
	URI            string   `json:"uri" yaml:"uri"`
	Callback       string   `json:"callback" yaml:"callback"`
	MinSendable    uint64   `json:"minSendable" yaml:"minSendable"`
	MaxSendable    uint64   `json:"maxSendable" yaml:"maxSendable"`
	MetadataStr    string   `json:"metadata" yaml:"metadata"`
	CommentAllowed *uint32  `json:"commentAllowed,omitempty" yaml:"commentAllowed,omitempty"`
	AllowsNostr    bool     `json:"allowsNostr" yaml:"allowsNostr"`
	NostrPubkey    HexBytes `json:"nostrPubkey,omitempty" yaml:"nostrPubkey,omitempty"`
}

// NodeID is a node connection string of the form pubkey@host:port.
type NodeID struct {
	URL     string      `json:"url" yaml:"url"`
	Network NetworkType `json:"network" yaml:"network"`
}

// TreasureHunt is a treasure hunt chest link.
type TreasureHunt struct {
	ChestID string `json:"chestId" yaml:"chestId"`
}

// OrangeTicket is an orange ticket code.
type OrangeTicket struct {
	TicketID string `json:"ticketId" yaml:"ticketId"`
}

func (*OnChain) Kind() Kind       { return KindOnChain }
func (*Lightning) Kind() Kind     { return KindLightning }
func (*PubkyAuth) Kind() Kind     { return KindPubkyAuth }
func (*LnurlChannel) Kind() Kind  { return KindLnurlChannel }
func (*LnurlAuth) Kind() Kind     { return KindLnurlAuth }
func (*LnurlWithdraw) Kind() Kind { return KindLnurlWithdraw }
func (*LnurlAddress) Kind() Kind  { return KindLnurlAddress }
func (*LnurlPay) Kind() Kind      { return KindLnurlPay }
func (*NodeID) Kind() Kind        { return KindNodeID }
func (*TreasureHunt) Kind() Kind  { return KindTreasureHunt }
func (*OrangeTicket) Kind() Kind  { return KindOrangeTicket }

func (*OnChain) isResult()       {}
func (*Lightning) isResult()     {}
func (*PubkyAuth) isResult()     {}
func (*LnurlChannel) isResult()  {}
func (*LnurlAuth) isResult()     {}
func (*LnurlWithdraw) isResult() {}
func (*LnurlAddress) isResult()  {}
func (*LnurlPay) isResult()      {}
func (*NodeID) isResult()        {}
func (*TreasureHunt) isResult()  {}
func (*OrangeTicket) isResult()  {}
