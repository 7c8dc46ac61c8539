// Package lnurltest provides an in-process LNURL service. It answers pay,
// withdraw and channel requests, lightning address lookups and invoice
// callbacks, and has endpoints that misbehave in the ways real services do.
package lnurltest

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/ellemouton/lnscan/lnurl"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/lnwire"
)

const (
	PayPath         = "/pay"
	InvoicePath     = "/invoice"
	WithdrawPath    = "/withdraw"
	ChannelPath     = "/channel"
	AuthPath        = "/auth"
	ErrorPath       = "/error"
	UnknownTagPath  = "/unknown"
	MalformedPath   = "/malformed"
	WellKnownPrefix = "/.well-known/lnurlp/"
)

// ErrorReason is the reason the error endpoint reports.
const ErrorReason = "service unavailable"

// defaultMetadataTTL is how long an issued pay request can be redeemed.
const defaultMetadataTTL = 10 * time.Minute

// InvoiceFunc creates an invoice for amt committing to descHash.
type InvoiceFunc func(ctx context.Context, amt lnwire.MilliSatoshi,
	descHash [32]byte, comment string) (string, error)

// StaticInvoice returns an InvoiceFunc that always hands out invoice.
func StaticInvoice(invoice string) InvoiceFunc {
	return func(context.Context, lnwire.MilliSatoshi, [32]byte,
		string) (string, error) {

		return invoice, nil
	}
}

// Config holds the behaviour of a Service.
type Config struct {
	// MinSendable and MaxSendable bound pay requests.
	MinSendable lnwire.MilliSatoshi
	MaxSendable lnwire.MilliSatoshi

	// CommentAllowed is advertised if non-zero.
	CommentAllowed uint32

	// NostrPubkey is advertised together with allowsNostr if set.
	NostrPubkey string

	// MinWithdrawable is left out of withdraw responses if nil.
	MinWithdrawable *lnwire.MilliSatoshi
	MaxWithdrawable lnwire.MilliSatoshi

	// ChannelURI is the node the channel endpoint offers.
	ChannelURI string

	// Users are the lightning address usernames served under the
	// well-known path. Unknown users get an error response.
	Users []string

	// Invoice creates the invoice returned by the invoice callback.
	Invoice InvoiceFunc

	// MetadataTTL is how long a pay request can be redeemed. Zero means
	// ten minutes.
	MetadataTTL time.Duration

	// Clock defaults to the system clock.
	Clock clock.Clock
}

// Service is an http.Handler implementing the LNURL endpoints.
type Service struct {
	cfg *Config
	mux *http.ServeMux

	paymentMetadata map[string]*metadata
	metadataMu      sync.Mutex
}

type metadata struct {
	data      string
	createdAt time.Time
}

// NewService creates a Service for cfg.
func NewService(cfg *Config) *Service {
	if cfg.Clock == nil {
		cfg.Clock = clock.NewDefaultClock()
	}
	if cfg.MetadataTTL == 0 {
		cfg.MetadataTTL = defaultMetadataTTL
	}

	s := &Service{
		cfg:             cfg,
		mux:             http.NewServeMux(),
		paymentMetadata: make(map[string]*metadata),
	}

	s.mux.HandleFunc(PayPath, s.pay)
	s.mux.HandleFunc(WellKnownPrefix+"{username}", s.lightningAddress)
	s.mux.HandleFunc(InvoicePath, s.invoice)
	s.mux.HandleFunc(WithdrawPath, s.withdraw)
	s.mux.HandleFunc(ChannelPath, s.channel)
	s.mux.HandleFunc(AuthPath, s.auth)
	s.mux.HandleFunc(ErrorPath, s.errorResponse)
	s.mux.HandleFunc(UnknownTagPath, s.unknownTag)
	s.mux.HandleFunc(MalformedPath, s.malformed)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Pending returns the number of pay requests that have not been redeemed.
func (s *Service) Pending() int {
	s.metadataMu.Lock()
	defer s.metadataMu.Unlock()

	return len(s.paymentMetadata)
}

func (s *Service) pay(w http.ResponseWriter, r *http.Request) {
	s.payRequest(w, r, [][2]string{{"text/plain", "lnurltest payment"}})
}

func (s *Service) lightningAddress(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")

	known := false
	for _, user := range s.cfg.Users {
		known = known || user == username
	}
	if !known {
		writeError(w, fmt.Sprintf("unknown user %s", username))
		return
	}

	s.payRequest(w, r, [][2]string{
		{"text/plain", "Payment to " + username},
		{"text/identifier", username + "@" + r.Host},
	})
}

func (s *Service) payRequest(w http.ResponseWriter, r *http.Request,
	entries [][2]string) {

	var rawID [10]byte
	if _, err := rand.Read(rawID[:]); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	id := hex.EncodeToString(rawID[:])

	data, err := json.Marshal(entries)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.metadataMu.Lock()
	s.expireMetadata()
	s.paymentMetadata[id] = &metadata{
		data:      string(data),
		createdAt: s.cfg.Clock.Now(),
	}
	s.metadataMu.Unlock()

	resp := &lnurl.PayResponse{
		Callback:    baseURL(r) + InvoicePath + "?id=" + id,
		MinSendable: s.cfg.MinSendable,
		MaxSendable: s.cfg.MaxSendable,
		Metadata:    string(data),
		Tag:         lnurl.TagPayRequest,
	}
	if s.cfg.CommentAllowed != 0 {
		allowed := s.cfg.CommentAllowed
		resp.CommentAllowed = &allowed
	}
	if s.cfg.NostrPubkey != "" {
		allows, key := true, s.cfg.NostrPubkey
		resp.AllowsNostr = &allows
		resp.NostrPubkey = &key
	}

	writeJSON(w, resp)
}

// expireMetadata drops pay requests older than the TTL. The caller must hold
// metadataMu.
func (s *Service) expireMetadata() {
	now := s.cfg.Clock.Now()
	for id, meta := range s.paymentMetadata {
		if now.Sub(meta.createdAt) > s.cfg.MetadataTTL {
			delete(s.paymentMetadata, id)
		}
	}
}

func (s *Service) invoice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	id := r.Form.Get("id")
	if id == "" {
		writeError(w, "expected 'id' field")
		return
	}

	s.metadataMu.Lock()
	s.expireMetadata()
	meta, ok := s.paymentMetadata[id]
	if !ok {
		s.metadataMu.Unlock()
		writeError(w, "unknown or expired payment id")
		return
	}
	delete(s.paymentMetadata, id)
	s.metadataMu.Unlock()

	amt := r.Form.Get("amount")
	if amt == "" {
		writeError(w, "expected 'amount' field")
		return
	}

	milliSats, err := strconv.ParseUint(amt, 10, 64)
	if err != nil {
		writeError(w, "invalid 'amount' field")
		return
	}

	msat := lnwire.MilliSatoshi(milliSats)
	if msat < s.cfg.MinSendable || msat > s.cfg.MaxSendable {
		writeError(w, fmt.Sprintf("amount %v out of range", msat))
		return
	}

	comment := r.Form.Get("comment")
	if utf8.RuneCountInString(comment) > int(s.cfg.CommentAllowed) {
		writeError(w, "comment too long")
		return
	}

	if s.cfg.Invoice == nil {
		writeError(w, "no invoices available")
		return
	}

	pr, err := s.cfg.Invoice(
		ctx, msat, sha256.Sum256([]byte(meta.data)), comment,
	)
	if err != nil {
		writeError(w, "invoice error")
		return
	}

	writeJSON(w, &lnurl.InvoiceResponse{
		PayRequest: pr,
		Routes:     []json.RawMessage{},
	})
}

func (s *Service) withdraw(w http.ResponseWriter, r *http.Request) {
	k1, err := newK1()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, &lnurl.WithdrawResponse{
		Callback:           baseURL(r) + WithdrawPath + "/callback",
		K1:                 k1,
		DefaultDescription: "lnurltest withdrawal",
		MinWithdrawable:    s.cfg.MinWithdrawable,
		MaxWithdrawable:    s.cfg.MaxWithdrawable,
		Tag:                lnurl.TagWithdrawRequest,
	})
}

func (s *Service) channel(w http.ResponseWriter, r *http.Request) {
	k1, err := newK1()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, &lnurl.ChannelResponse{
		URI:      s.cfg.ChannelURI,
		Callback: baseURL(r) + ChannelPath + "/callback",
		K1:       k1,
		Tag:      lnurl.TagChannelRequest,
	})
}

// auth accepts any signed challenge. Signatures are not checked.
func (s *Service) auth(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if query.Get("k1") == "" || query.Get("sig") == "" ||
		query.Get("key") == "" {

		writeError(w, "expected 'k1', 'sig' and 'key' fields")
		return
	}

	writeJSON(w, map[string]string{"status": "OK"})
}

func (s *Service) errorResponse(w http.ResponseWriter, _ *http.Request) {
	writeError(w, ErrorReason)
}

func (s *Service) unknownTag(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"tag": "hostedChannelRequest"})
}

func (s *Service) malformed(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"tag": "payRequest", "callback": `)
}

// AuthURL returns the URL of a fresh login challenge at base.
func AuthURL(base string) (string, error) {
	k1, err := newK1()
	if err != nil {
		return "", err
	}

	return base + AuthPath + "?tag=" + lnurl.TagLogin.String() +
		"&k1=" + k1, nil
}

func newK1() (string, error) {
	var k1 [32]byte
	if _, err := rand.Read(k1[:]); err != nil {
		return "", err
	}

	return hex.EncodeToString(k1[:]), nil
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	return scheme + "://" + r.Host
}

func writeError(w http.ResponseWriter, reason string) {
	writeJSON(w, &lnurl.Error{
		Status: lnurl.StatusError,
		Reason: reason,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(b)
}
