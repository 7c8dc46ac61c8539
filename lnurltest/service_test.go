package lnurltest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/ellemouton/lnscan/lnurl"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, s http.Handler, target string) []byte {
	t.Helper()

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	return rec.Body.Bytes()
}

func TestServicePayFlow(t *testing.T) {
	t.Parallel()

	var (
		gotAmt     lnwire.MilliSatoshi
		gotHash    [32]byte
		gotComment string
	)
	s := NewService(&Config{
		MinSendable:    1000,
		MaxSendable:    2000,
		CommentAllowed: 5,
		Invoice: func(_ context.Context, amt lnwire.MilliSatoshi,
			descHash [32]byte, comment string) (string, error) {

			gotAmt, gotHash, gotComment = amt, descHash, comment

			return "lnbc1test", nil
		},
	})

	resp, err := lnurl.DecodeResponse(get(t, s, "http://example.com/pay"))
	require.NoError(t, err)

	pay, ok := resp.(*lnurl.PayResponse)
	require.True(t, ok)
	require.EqualValues(t, 1000, pay.MinSendable)
	require.NotNil(t, pay.CommentAllowed)
	require.Nil(t, pay.NostrPubkey)
	require.Equal(t, 1, s.Pending())

	callback, err := url.Parse(pay.Callback)
	require.NoError(t, err)
	require.Equal(t, "example.com", callback.Host)
	require.Equal(t, InvoicePath, callback.Path)

	body := get(t, s, pay.Callback+"&amount=1500&comment=hey")

	var invoice lnurl.InvoiceResponse
	require.NoError(t, json.Unmarshal(body, &invoice))
	require.Equal(t, "lnbc1test", invoice.PayRequest)
	require.Equal(t, lnwire.MilliSatoshi(1500), gotAmt)
	require.Equal(t, "hey", gotComment)
	require.NotEqual(t, [32]byte{}, gotHash)
	require.Zero(t, s.Pending())
}

func TestServiceInvoiceErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		query string
	}{
		{name: "below min", query: "&amount=999"},
		{name: "above max", query: "&amount=2001"},
		{name: "missing amount", query: ""},
		{name: "invalid amount", query: "&amount=1.5"},
		{name: "comment too long", query: "&amount=1000&comment=toolong"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewService(&Config{
				MinSendable:    1000,
				MaxSendable:    2000,
				CommentAllowed: 5,
				Invoice:        StaticInvoice("lnbc1test"),
			})

			resp, err := lnurl.DecodeResponse(
				get(t, s, "http://example.com/pay"),
			)
			require.NoError(t, err)
			pay := resp.(*lnurl.PayResponse)

			var lnurlErr lnurl.Error
			body := get(t, s, pay.Callback+tc.query)
			require.NoError(t, json.Unmarshal(body, &lnurlErr))
			require.Equal(t, lnurl.StatusError, lnurlErr.Status)
			require.NotEmpty(t, lnurlErr.Reason)
		})
	}
}

func TestServiceMetadataExpiry(t *testing.T) {
	t.Parallel()

	clk := clock.NewTestClock(time.Unix(1_700_000_000, 0))
	s := NewService(&Config{
		MinSendable: 1000,
		MaxSendable: 2000,
		Invoice:     StaticInvoice("lnbc1test"),
		MetadataTTL: time.Minute,
		Clock:       clk,
	})

	get(t, s, "http://example.com/pay")
	get(t, s, "http://example.com/pay")
	require.Equal(t, 2, s.Pending())

	clk.SetTime(clk.Now().Add(30 * time.Second))
	get(t, s, "http://example.com/pay")
	require.Equal(t, 3, s.Pending())

	// Issuing a new request sweeps the two that are past the TTL.
	clk.SetTime(clk.Now().Add(45 * time.Second))
	get(t, s, "http://example.com/pay")
	require.Equal(t, 2, s.Pending())
}

func TestServiceLightningAddress(t *testing.T) {
	t.Parallel()

	s := NewService(&Config{
		MinSendable: 1000,
		MaxSendable: 2000,
		Users:       []string{"alice"},
	})

	resp, err := lnurl.DecodeResponse(
		get(t, s, "https://example.com/.well-known/lnurlp/alice"),
	)
	require.NoError(t, err)
	require.Contains(t, resp.(*lnurl.PayResponse).Metadata,
		`["text/identifier","alice@example.com"]`)

	_, err = lnurl.DecodeResponse(
		get(t, s, "https://example.com/.well-known/lnurlp/bob"),
	)
	var svcErr *lnurl.ServiceError
	require.ErrorAs(t, err, &svcErr)
}

func TestServiceWithdrawAndChannel(t *testing.T) {
	t.Parallel()

	s := NewService(&Config{
		MaxWithdrawable: 5000,
		ChannelURI:      "02ab@1.2.3.4:9735",
	})

	resp, err := lnurl.DecodeResponse(get(t, s, "http://example.com/withdraw"))
	require.NoError(t, err)

	withdraw := resp.(*lnurl.WithdrawResponse)
	require.Nil(t, withdraw.MinWithdrawable)
	require.EqualValues(t, 5000, withdraw.MaxWithdrawable)
	require.Len(t, withdraw.K1, 64)

	resp, err = lnurl.DecodeResponse(get(t, s, "http://example.com/channel"))
	require.NoError(t, err)
	require.Equal(t, "02ab@1.2.3.4:9735",
		resp.(*lnurl.ChannelResponse).URI)
}

func TestServiceBrokenEndpoints(t *testing.T) {
	t.Parallel()

	s := NewService(&Config{})

	_, err := lnurl.DecodeResponse(get(t, s, "http://example.com/unknown"))
	require.ErrorIs(t, err, lnurl.ErrUnknownTag)

	_, err = lnurl.DecodeResponse(get(t, s, "http://example.com/malformed"))
	require.ErrorIs(t, err, lnurl.ErrMalformedResponse)

	_, err = lnurl.DecodeResponse(get(t, s, "http://example.com/error"))
	var svcErr *lnurl.ServiceError
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, ErrorReason, svcErr.Reason)
}

func TestAuthURL(t *testing.T) {
	t.Parallel()

	target, err := AuthURL("https://example.com")
	require.NoError(t, err)

	u, err := url.Parse(target)
	require.NoError(t, err)
	require.Equal(t, AuthPath, u.Path)
	require.Equal(t, "login", u.Query().Get("tag"))
	require.Len(t, u.Query().Get("k1"), 64)

	s := NewService(&Config{})
	body := get(t, s, target+"&sig=aa&key=bb")
	require.JSONEq(t, `{"status":"OK"}`, string(body))
}

func TestServerTransport(t *testing.T) {
	t.Parallel()

	srv := NewServer(t, &Config{
		MinSendable: 1000,
		MaxSendable: 2000,
		Users:       []string{"alice"},
	})

	client, err := lnurl.NewHTTPClient(&lnurl.HTTPClientConfig{
		Transport: srv.Transport(),
	})
	require.NoError(t, err)

	addr, err := lnurl.ParseLightningAddress("alice@wallet.example")
	require.NoError(t, err)

	resp, err := client.Fetch(context.Background(), addr.LNURL())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(
		resp.(*lnurl.PayResponse).Callback,
		"https://wallet.example/invoice?id=",
	))

	decoded, err := lnurl.DecodeURL(srv.LNURL(t, PayPath))
	require.NoError(t, err)
	require.Equal(t, srv.URL(PayPath), decoded)
}
