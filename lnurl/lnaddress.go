package lnurl

import (
	"errors"
	"regexp"
	"strings"

	"github.com/lightningnetwork/lnd/tor"
)

// ErrInvalidLightningAddress is returned when parsing an invalid lightning address.
var ErrInvalidLightningAddress = errors.New("invalid lightning address")

// The local part is restricted to lower case as required by LUD-16, the
// domain is matched case-insensitively.
var lnAddressRegex = regexp.MustCompile(`^[a-z0-9._-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// LightningAddress is a `user@domain.tld` internet identifier which
// allows senders to request lightning invoices by contacting `domain.tld`,
// who issues invoices on  behalf of the `user`.
type LightningAddress struct {
	Username string
	Domain   string
}

// String returns the user@domain.tld format of the address.
func (a LightningAddress) String() string {
	return a.Username + "@" + a.Domain
}

// LNURL returns the URL used for LNURL payRequest, as per LUD-16. Onion
// domains are contacted over plain http.
//
// https://github.com/lnurl/luds/blob/luds/16.md
func (a LightningAddress) LNURL() string {
	scheme := "https"
	if tor.IsOnionHost(a.Domain) {
		scheme = "http"
	}

	return scheme + "://" + a.Domain + "/.well-known/lnurlp/" + a.Username
}

// IsLightningAddress reports whether s has the form of a lightning address.
func IsLightningAddress(s string) bool {
	return lnAddressRegex.MatchString(s)
}

// ParseLightningAddress parses a [LightningAddress] from a string, returning
// ErrInvalidLightningAddress if the address is not a valid identifier.
func ParseLightningAddress(lnAddress string) (LightningAddress, error) {
	if !IsLightningAddress(lnAddress) {
		return LightningAddress{}, ErrInvalidLightningAddress
	}

	i := strings.Index(lnAddress, "@")
	username, domain := lnAddress[:i], lnAddress[i+1:]

	addr := LightningAddress{
		Username: username,
		Domain:   domain,
	}

	return addr, nil
}
