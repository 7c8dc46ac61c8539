package lnscan

import (
	"context"
	"encoding/hex"
	"fmt"
	"math"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/ellemouton/lnscan/lnurl"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip19"
)

// resolveLNURL decodes a bech32 LNURL and resolves the URL it wraps.
func (s *Scanner) resolveLNURL(ctx context.Context, encoded string) (Result,
	error) {

	target, err := lnurl.DecodeURL(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	return s.resolveTarget(ctx, target)
}

// resolveTarget resolves an LNURL target URL. Auth challenges are answered
// from the URL itself, everything else takes one request to the service.
func (s *Scanner) resolveTarget(ctx context.Context, target string) (Result,
	error) {

	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: lnurl target %q is not a url",
			ErrInvalidFormat, target)
	}

	query := u.Query()
	if query.Get("tag") == lnurl.TagLogin.String() {
		k1 := query.Get("k1")
		if k1 == "" {
			return nil, fmt.Errorf("%w: auth challenge without k1",
				ErrInvalidFormat)
		}

		log.Debugf("Resolved LNURL-auth challenge for %s", u.Host)
		log.Tracef("LNURL-auth k1=%s", k1)

		return &LnurlAuth{
			URI: target,
			Tag: lnurl.TagLogin.String(),
			K1:  k1,
		}, nil
	}

	resp, err := s.client.Fetch(ctx, target)
	if err != nil {
		return nil, mapClientError(err)
	}

	return convertResponse(target, resp)
}

// resolveLightningAddress fetches the pay response behind a lightning
// address.
func (s *Scanner) resolveLightningAddress(ctx context.Context,
	address string) (Result, error) {

	addr, err := lnurl.ParseLightningAddress(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	target := addr.LNURL()
	resp, err := s.client.Fetch(ctx, target)
	if err != nil {
		return nil, mapClientError(err)
	}

	return convertResponse(target, resp)
}

// resolveLUD17 resolves one of the lnurlp://, lnurlw://, lnurlc:// or
// keyauth:// forms.
func (s *Scanner) resolveLUD17(ctx context.Context, text string) (Result,
	error) {

	target, tag, err := lnurl.ParseLUD17(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	// keyauth:// links carry the challenge in their query but may leave
	// out the tag.
	if tag == lnurl.TagLogin {
		u, err := url.Parse(target)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
		}

		query := u.Query()
		if query.Get("tag") == "" {
			query.Set("tag", tag.String())
			u.RawQuery = query.Encode()
			target = u.String()
		}
	}

	return s.resolveTarget(ctx, target)
}

// convertResponse maps a fetched LNURL response onto its result variant.
func convertResponse(uri string, resp lnurl.Response) (Result, error) {
	switch r := resp.(type) {
	case *lnurl.PayResponse:
		var nostrKey HexBytes
		if r.NostrPubkey != nil {
			key, err := parseNostrPubkey(*r.NostrPubkey)
			if err != nil {
				return nil, fmt.Errorf("%w: nostrPubkey: %v",
					ErrInvalidResponse, err)
			}
			nostrKey = key
		}

		return &LnurlPay{
			URI:            uri,
			Callback:       r.Callback,
			MinSendable:    uint64(r.MinSendable),
			MaxSendable:    uint64(r.MaxSendable),
			MetadataStr:    r.Metadata,
			CommentAllowed: r.CommentAllowed,
			AllowsNostr:    r.AllowsNostr != nil && *r.AllowsNostr,
			NostrPubkey:    nostrKey,
		}, nil

	case *lnurl.WithdrawResponse:
		var minWithdrawable *uint64
		if r.MinWithdrawable != nil {
			minAmt := uint64(*r.MinWithdrawable)
			minWithdrawable = &minAmt
		}

		return &LnurlWithdraw{
			URI:                uri,
			Callback:           r.Callback,
			K1:                 r.K1,
			DefaultDescription: r.DefaultDescription,
			MinWithdrawable:    minWithdrawable,
			MaxWithdrawable:    uint64(r.MaxWithdrawable),
			Tag:                r.ResponseTag().String(),
		}, nil

	case *lnurl.ChannelResponse:
		return &LnurlChannel{
			URI:      uri,
			Callback: r.Callback,
			K1:       r.K1,
			Tag:      r.ResponseTag().String(),
			NodeURI:  r.URI,
		}, nil

	default:
		return nil, fmt.Errorf("%w: unexpected lnurl response %T",
			ErrInvalidFormat, resp)
	}
}

// parseNostrPubkey accepts a 32 byte x-only key as hex or npub and returns
// its serialization.
func parseNostrPubkey(key string) ([]byte, error) {
	if strings.HasPrefix(key, "npub") {
		prefix, value, err := nip19.Decode(key)
		if err != nil {
			return nil, err
		}

		hexKey, ok := value.(string)
		if prefix != "npub" || !ok {
			return nil, fmt.Errorf("unexpected nip19 entity %s",
				prefix)
		}
		key = hexKey
	}

	if !nostr.IsValid32ByteHex(key) {
		return nil, fmt.Errorf("not a 32 byte hex key")
	}

	raw, err := hex.DecodeString(key)
	if err != nil {
		return nil, err
	}

	pubKey, err := schnorr.ParsePubKey(raw)
	if err != nil {
		return nil, err
	}

	return schnorr.SerializePubKey(pubKey), nil
}

// RequestInvoice asks the callback of an LNURL pay response for an invoice of
// amountSats. The amount must lie within the sendable bounds of the response.
// The comment is optional and only sent if the service accepts comments of
// its length.
func (s *Scanner) RequestInvoice(ctx context.Context, pay *LnurlPay,
	amountSats uint64, comment string) (string, error) {

	minSendable := lnwire.MilliSatoshi(pay.MinSendable)
	maxSendable := lnwire.MilliSatoshi(pay.MaxSendable)

	outOfRange := amountSats > math.MaxUint64/1000
	amt := lnwire.NewMSatFromSatoshis(btcutil.Amount(amountSats))
	if outOfRange || amt < minSendable || amt > maxSendable {
		return "", &InvalidPayAmountError{
			AmountSatoshis: amountSats,
			Min:            uint64(minSendable.ToSatoshis()),
			Max:            uint64(maxSendable.ToSatoshis()),
		}
	}

	if comment != "" {
		allowed := uint32(0)
		if pay.CommentAllowed != nil {
			allowed = *pay.CommentAllowed
		}

		if uint64(utf8.RuneCountInString(comment)) > uint64(allowed) {
			return "", &InvoiceCreationError{
				Message: fmt.Sprintf("comment exceeds the %d "+
					"characters allowed", allowed),
			}
		}
	}

	payResp := &lnurl.PayResponse{
		Callback:       pay.Callback,
		MinSendable:    minSendable,
		MaxSendable:    maxSendable,
		Metadata:       pay.MetadataStr,
		CommentAllowed: pay.CommentAllowed,
		Tag:            lnurl.TagPayRequest,
	}

	log.Debugf("Requesting invoice for %v from %s", amt, pay.Callback)

	invoice, err := s.client.GetInvoice(ctx, payResp, amt, comment)
	if err != nil {
		return "", &InvoiceCreationError{Message: err.Error()}
	}

	return invoice, nil
}

// LightningAddressInvoice resolves a lightning address and requests an
// invoice of amountSats from it.
func (s *Scanner) LightningAddressInvoice(ctx context.Context, address string,
	amountSats uint64) (string, error) {

	addr, err := lnurl.ParseLightningAddress(address)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	target := addr.LNURL()
	resp, err := s.client.Fetch(ctx, target)
	if err != nil {
		return "", mapClientError(err)
	}

	if _, ok := resp.(*lnurl.PayResponse); !ok {
		return "", fmt.Errorf("%w: %s is not a pay request",
			ErrInvalidResponse, resp.ResponseTag())
	}

	result, err := convertResponse(target, resp)
	if err != nil {
		return "", err
	}

	return s.RequestInvoice(ctx, result.(*LnurlPay), amountSats, "")
}
