// Package lnscan classifies and decodes the payment and identity strings a
// bitcoin and lightning wallet comes across: addresses, BIP-21 URIs, BOLT11
// invoices, LNURL payloads, lightning addresses, node connection strings and
// a few wallet deep links.
package lnscan

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ellemouton/lnscan/lnurl"
	"github.com/ellemouton/lnscan/onchain"
	"github.com/lightningnetwork/lnd/clock"
)

// lightningScheme is stripped from the input before dispatching, and once
// more when decoding an invoice.
const lightningScheme = "lightning:"

const pubkyAuthScheme = "pubkyauth:"

// AddressValidator validates a bitcoin address and reports its network.
type AddressValidator interface {
	Validate(address string) (*onchain.ValidationResult, error)
}

// Config holds the collaborators of a Scanner. Nil fields are replaced by
// the default implementations.
type Config struct {
	// AddressValidator gates the on-chain rules. Defaults to
	// onchain.ChainAddressValidator.
	AddressValidator AddressValidator

	// InvoiceParser parses BOLT11 invoices. Defaults to Bolt11Parser.
	InvoiceParser InvoiceParser

	// Client talks to LNURL services. Defaults to an lnurl.HTTPClient
	// built from HTTP.
	Client lnurl.Client

	// HTTP configures the default LNURL client. Ignored if Client is set.
	HTTP *lnurl.HTTPClientConfig

	// Clock is used to judge invoice expiry.
	Clock clock.Clock

	// Network, if set, is the only network on-chain and invoice results
	// may belong to.
	Network *NetworkType
}

// Scanner decodes wallet input strings. It holds no state between calls and
// is safe for concurrent use.
type Scanner struct {
	cfg       *Config
	validator AddressValidator
	parser    InvoiceParser
	client    lnurl.Client
	clock     clock.Clock

	rules []rule
}

// errSkipRule is returned by a rule that matched but wants the remaining
// rules to be tried.
var errSkipRule = errors.New("skip rule")

// rule is one entry of the dispatch table. The first rule whose match
// function accepts the input decides the result.
type rule struct {
	name   string
	match  func(text string) bool
	decode func(ctx context.Context, text string) (Result, error)
}

// New creates a Scanner from cfg. A nil cfg uses all defaults.
func New(cfg *Config) (*Scanner, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	s := &Scanner{
		cfg:       cfg,
		validator: cfg.AddressValidator,
		parser:    cfg.InvoiceParser,
		client:    cfg.Client,
		clock:     cfg.Clock,
	}

	if s.validator == nil {
		s.validator = onchain.NewChainAddressValidator()
	}
	if s.parser == nil {
		s.parser = &Bolt11Parser{}
	}
	if s.clock == nil {
		s.clock = clock.NewDefaultClock()
	}
	if s.client == nil {
		client, err := lnurl.NewHTTPClient(cfg.HTTP)
		if err != nil {
			return nil, mapClientError(err)
		}
		s.client = client
	}

	s.rules = s.dispatchRules()

	return s, nil
}

// dispatchRules returns the rules in the order they are evaluated. The order
// is part of the contract of Decode: a string matching several grammars is
// decoded by the first. The lud-17 rule is the one addition to that order;
// it sits between the lnurl and lightning address rules, so lnurlp://,
// lnurlw://, lnurlc:// and keyauth:// urls are fetched instead of falling
// through to the raw address rule.
func (s *Scanner) dispatchRules() []rule {
	return []rule{
		{
			name:  "orange ticket",
			match: isOrangeTicket,
			decode: func(_ context.Context, text string) (Result,
				error) {

				return decodeOrangeTicket(text)
			},
		},
		{
			name:  "drone chest",
			match: isDroneLink,
			decode: func(_ context.Context, _ string) (Result, error) {
				return &TreasureHunt{ChestID: droneChestID}, nil
			},
		},
		{
			name:  "treasure hunt url",
			match: isTreasureHuntURL,
			decode: func(_ context.Context, text string) (Result,
				error) {

				id, ok := chestFromURL(text)
				if !ok {
					return nil, errSkipRule
				}

				return &TreasureHunt{ChestID: id}, nil
			},
		},
		{
			name:  "chest deep link",
			match: isChestLink,
			decode: func(_ context.Context, text string) (Result,
				error) {

				id, ok := chestFromLink(text)
				if !ok {
					return nil, errSkipRule
				}

				return &TreasureHunt{ChestID: id}, nil
			},
		},
		{
			name:  "node connection",
			match: isNodeConnection,
			decode: func(_ context.Context, text string) (Result,
				error) {

				return decodeNodeID(text)
			},
		},
		{
			name:  "lightning invoice",
			match: isLightningInvoice,
			decode: func(_ context.Context, text string) (Result,
				error) {

				return s.decodeInvoice(text)
			},
		},
		{
			name: "bitcoin uri",
			match: func(text string) bool {
				return strings.HasPrefix(text, bitcoinScheme)
			},
			decode: func(_ context.Context, text string) (Result,
				error) {

				return s.decodeBitcoinURI(text)
			},
		},
		{
			name: "pubky auth",
			match: func(text string) bool {
				return strings.HasPrefix(
					strings.ToLower(text), pubkyAuthScheme,
				)
			},
			decode: func(_ context.Context, text string) (Result,
				error) {

				return &PubkyAuth{Data: text}, nil
			},
		},
		{
			name: "lnurl",
			match: func(text string) bool {
				_, ok := FindLNURL(text)
				return ok
			},
			decode: func(ctx context.Context, text string) (Result,
				error) {

				encoded, _ := FindLNURL(text)
				return s.resolveLNURL(ctx, encoded)
			},
		},
		{
			name: "lud-17 url",
			match: func(text string) bool {
				_, _, err := lnurl.ParseLUD17(text)
				return err == nil
			},
			decode: s.resolveLUD17,
		},
		{
			name:   "lightning address",
			match:  IsLightningAddress,
			decode: s.resolveLightningAddress,
		},
		{
			name: "raw address",
			match: func(string) bool {
				return true
			},
			decode: func(_ context.Context, text string) (Result,
				error) {

				return s.decodeRawAddress(text)
			},
		},
	}
}

// Decode determines which format text is in and decodes it. Only LNURL
// payloads and lightning addresses cause network requests, at most one per
// call.
func (s *Scanner) Decode(ctx context.Context, text string) (Result, error) {
	text = normalize(text)

	// Deep links into the wallet wrap any of the other formats. The
	// prefix is only stripped once so repeated prefixes can not recurse.
	if strings.HasPrefix(text, bitkitScheme) {
		log.Debugf("Stripping %s deep link prefix", bitkitScheme)
		text = normalize(strings.TrimPrefix(text, bitkitScheme))
	}

	return s.dispatch(ctx, text)
}

func normalize(text string) string {
	text = strings.TrimSpace(text)

	return strings.TrimPrefix(text, lightningScheme)
}

// dispatch runs text through the rule table.
func (s *Scanner) dispatch(ctx context.Context, text string) (Result, error) {
	for _, r := range s.rules {
		if !r.match(text) {
			continue
		}

		log.Debugf("Input matched %s rule", r.name)

		result, err := r.decode(ctx, text)
		if errors.Is(err, errSkipRule) {
			log.Tracef("Rule %s passed on %q", r.name, text)
			continue
		}
		if err != nil {
			log.Debugf("Unable to decode %s: %v", r.name, err)
			return nil, err
		}

		return result, nil
	}

	// The raw address rule matches everything, so this is only reached if
	// it was skipped.
	return nil, ErrInvalidAddress
}

func isLightningInvoice(text string) bool {
	lower := strings.ToLower(text)

	return strings.Contains(lower, lightningScheme) ||
		strings.HasPrefix(lower, "lntb") ||
		strings.HasPrefix(lower, "lnbc")
}

// decodeInvoice strips a remaining lightning: prefix, in any case, and
// decodes the BOLT11 invoice.
func (s *Scanner) decodeInvoice(text string) (Result, error) {
	if strings.HasPrefix(strings.ToLower(text), lightningScheme) {
		text = text[len(lightningScheme):]
	}

	invoice, err := decodeLightning(s.parser, s.clock, text)
	if err != nil {
		return nil, err
	}

	if err := s.checkNetwork(invoice.Network); err != nil {
		return nil, err
	}

	return invoice, nil
}

// decodeBitcoinURI validates the address of a bitcoin: URI before decoding
// its parameters.
func (s *Scanner) decodeBitcoinURI(uri string) (Result, error) {
	address, _, _ := strings.Cut(strings.TrimPrefix(uri, bitcoinScheme), "?")

	return s.decodeValidated(address, uri)
}

// decodeRawAddress treats text as a bare address.
func (s *Scanner) decodeRawAddress(text string) (Result, error) {
	return s.decodeValidated(text, bitcoinScheme+text)
}

func (s *Scanner) decodeValidated(address, uri string) (Result, error) {
	validated, err := s.validator.Validate(address)
	if err != nil {
		return nil, mapAddressError(err)
	}

	network, err := NetworkFromParams(validated.Network)
	if err != nil {
		return nil, err
	}

	if err := s.checkNetwork(network); err != nil {
		return nil, err
	}

	invoice := DecodeOnChain(uri)
	invoice.Network = network

	return invoice, nil
}

// checkNetwork enforces the configured network, if any.
func (s *Scanner) checkNetwork(network NetworkType) error {
	if s.cfg.Network == nil || *s.cfg.Network == network {
		return nil
	}

	return fmt.Errorf("%w: expected %v, got %v", ErrInvalidNetwork,
		*s.cfg.Network, network)
}

// mapAddressError converts an error of the address validator into
// ErrInvalidAddress, keeping the validator error as cause. A mismatch with
// the expected network is reported by checkNetwork instead.
func mapAddressError(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidAddress, err)
}

// mapClientError converts an error of the LNURL client into the matching
// decoding error, keeping the original as cause.
func mapClientError(err error) error {
	var (
		svcErr *lnurl.ServiceError
		kind   error
	)

	switch {
	case errors.Is(err, lnurl.ErrClientCreation):
		kind = ErrClientCreationFailed

	case errors.Is(err, lnurl.ErrUnknownTag):
		kind = ErrInvalidFormat

	case errors.Is(err, lnurl.ErrMalformedResponse):
		kind = ErrInvalidResponse

	case errors.As(err, &svcErr):
		log.Warnf("LNURL service rejected request: %v", svcErr.Reason)
		kind = ErrRequestFailed

	default:
		kind = ErrRequestFailed
	}

	return fmt.Errorf("%w: %w", kind, err)
}
