package lnurl

import (
	"errors"
	"net/url"
	"strings"

	"github.com/lightningnetwork/lnd/tor"
)

// ErrNotLUD17 is returned by ParseLUD17 for strings that do not use one of
// the LUD-17 schemes.
var ErrNotLUD17 = errors.New("not a lud-17 url")

// lud17Schemes maps the LUD-17 schemes onto the tag the service is expected
// to answer with.
var lud17Schemes = map[string]Tag{
	"lnurlp":  TagPayRequest,
	"lnurlw":  TagWithdrawRequest,
	"lnurlc":  TagChannelRequest,
	"keyauth": TagLogin,
}

// ParseLUD17 converts a LUD-17 url such as lnurlp://example.com/pay into the
// URL it stands for. The scheme is replaced by https, or by http for onion
// hosts.
//
// https://github.com/lnurl/luds/blob/luds/17.md
func ParseLUD17(s string) (string, Tag, error) {
	u, err := url.Parse(s)
	if err != nil {
		return "", "", ErrNotLUD17
	}

	tag, ok := lud17Schemes[strings.ToLower(u.Scheme)]
	if !ok || u.Host == "" {
		return "", "", ErrNotLUD17
	}

	u.Scheme = "https"
	if tor.IsOnionHost(u.Hostname()) {
		u.Scheme = "http"
	}

	return u.String(), tag, nil
}
