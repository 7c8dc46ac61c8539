package lnscan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ellemouton/lnscan/lnurl"
	"github.com/ellemouton/lnscan/onchain"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/stretchr/testify/require"
)

const (
	testAddress = "bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq"

	testTestnetAddress = "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx"

	testNodeKey = "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"

	testLNURL = "LNURL1DP68GURN8GHJ7UM9WFMXJCM99E3K7MF0V9CXJ0M385EKVCENXC6R2C35XVUKXEFCV5MKVV34X5EKZD3EV56NYD3HXQURZEPEXEJXXEPNXSCRVWFNV9NXZCN9XQ6XYEFHVGCXXCMYXYMNSERXFQ5FNS"

	testLNURLTarget = "https://service.com/api?q=3fc3645b439ce8e7f2553a69e5267081d96dcd340693afabe04be7b0ccd178df"
)

// fakeClient is an lnurl.Client that answers every request with the same
// response and records what was asked.
type fakeClient struct {
	resp lnurl.Response
	err  error

	invoice    string
	invoiceErr error

	mu       sync.Mutex
	fetched  []string
	invoices []lnwire.MilliSatoshi
	comments []string
}

func (c *fakeClient) Fetch(_ context.Context, target string) (lnurl.Response,
	error) {

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fetched = append(c.fetched, target)

	return c.resp, c.err
}

func (c *fakeClient) GetInvoice(_ context.Context, _ *lnurl.PayResponse,
	amt lnwire.MilliSatoshi, comment string) (string, error) {

	c.mu.Lock()
	defer c.mu.Unlock()

	c.invoices = append(c.invoices, amt)
	c.comments = append(c.comments, comment)

	return c.invoice, c.invoiceErr
}

func (c *fakeClient) requests() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.fetched) + len(c.invoices)
}

func testPayResponse() *lnurl.PayResponse {
	return &lnurl.PayResponse{
		Callback:    "https://service.com/cb",
		MinSendable: 1000,
		MaxSendable: 500_000,
		Metadata:    `[["text/plain","test"]]`,
		Tag:         lnurl.TagPayRequest,
	}
}

func newTestScanner(t *testing.T, cfg *Config) *Scanner {
	t.Helper()

	if cfg.Client == nil {
		cfg.Client = &fakeClient{resp: testPayResponse()}
	}

	s, err := New(cfg)
	require.NoError(t, err)

	return s
}

func TestDecodeOffline(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		input  string
		expect Result
		err    error
	}{
		{
			name:   "orange ticket",
			input:  "ticket-abc123",
			expect: &OrangeTicket{TicketID: "abc123"},
		},
		{
			name:   "orange ticket id keeps hyphens",
			input:  "ticket-a-b",
			expect: &OrangeTicket{TicketID: "a-b"},
		},
		{
			name:  "orange ticket without id",
			input: "ticket-",
			err:   ErrInvalidFormat,
		},
		{
			name:   "treasure hunt short link",
			input:  "https://cutt.ly/VwQFzhJJ",
			expect: &TreasureHunt{ChestID: "2gZxrqhc"},
		},
		{
			name:   "treasure hunt drone",
			input:  "https://bitkit.to/drone",
			expect: &TreasureHunt{ChestID: "2gZxrqhc"},
		},
		{
			name:   "drone link wins over chest param",
			input:  "https://bitkit.to/drone?chest=other",
			expect: &TreasureHunt{ChestID: "2gZxrqhc"},
		},
		{
			name:   "treasure hunt url",
			input:  "https://bitkit.to/treasure-hunt?chest=abc",
			expect: &TreasureHunt{ChestID: "abc"},
		},
		{
			name:  "treasure hunt url without chest",
			input: "https://bitkit.to/treasure-hunt",
			err:   ErrInvalidAddress,
		},
		{
			name:  "treasure hunt url without scheme",
			input: "bitkit.to/treasure-hunt?chest=abc",
			err:   ErrInvalidAddress,
		},
		{
			name:   "chest deep link",
			input:  "bitkit:chest-xyz",
			expect: &TreasureHunt{ChestID: "xyz"},
		},
		{
			name:   "chest deep link takes second segment",
			input:  "bitkit:chest-xyz-1",
			expect: &TreasureHunt{ChestID: "xyz"},
		},
		{
			name:  "chest deep link without id",
			input: "bitkit:chest",
			err:   ErrInvalidAddress,
		},
		{
			name:  "node",
			input: testNodeKey + "@1.2.3.4:9735",
			expect: &NodeID{
				URL:     testNodeKey + "@1.2.3.4:9735",
				Network: NetworkBitcoin,
			},
		},
		{
			name:  "node wins over lightning address",
			input: "alice@example.com:80",
			expect: &NodeID{
				URL:     "alice@example.com:80",
				Network: NetworkBitcoin,
			},
		},
		{
			name:  "onion node",
			input: testNodeKey + "@expyuzz4wqqyqhjn.onion:9735",
			err:   ErrUnsupportedType,
		},
		{
			name:  "node wins over lnurl",
			input: "lnurl1dp68gurn8ghj7um9@1.2.3.4:9735",
			expect: &NodeID{
				URL:     "lnurl1dp68gurn8ghj7um9@1.2.3.4:9735",
				Network: NetworkBitcoin,
			},
		},
		{
			name:  "onion node wins over lnurl",
			input: "lnurl1dp68gurn8ghj7um9@expyuzz4wqqyqhjn.onion:9735",
			err:   ErrUnsupportedType,
		},
		{
			name:  "node with too many colons",
			input: testNodeKey + "@1.2.3.4:9735:1",
			err:   ErrInvalidAddress,
		},
		{
			name:  "invalid invoice",
			input: "lnbc1invalid",
			err:   ErrInvalidFormat,
		},
		{
			name:  "invalid testnet invoice",
			input: "lntb1invalid",
			err:   ErrInvalidFormat,
		},
		{
			name:  "upper case lightning scheme is an invoice",
			input: "LIGHTNING:" + testLNURL,
			err:   ErrInvalidFormat,
		},
		{
			name:  "bip21",
			input: "bitcoin:" + testAddress + "?amount=0.00001&label=Test",
			expect: &OnChain{
				Address:        testAddress,
				AmountSatoshis: 1000,
				Label:          strPtr("Test"),
				Network:        NetworkBitcoin,
				Params: map[string]string{
					"amount": "0.00001",
					"label":  "Test",
				},
			},
		},
		{
			name:  "bip21 with lnurl fallback",
			input: "bitcoin:" + testAddress + "?lightning=" + testLNURL,
			expect: &OnChain{
				Address: testAddress,
				Network: NetworkBitcoin,
				Params: map[string]string{
					"lightning": testLNURL,
				},
			},
		},
		{
			name:  "bip21 with invalid address",
			input: "bitcoin:notanaddress?amount=1",
			err:   ErrInvalidAddress,
		},
		{
			name:  "bip21 scheme is case sensitive",
			input: "BITCOIN:" + testAddress,
			err:   ErrInvalidAddress,
		},
		{
			name:   "pubky auth",
			input:  "pubkyauth:///?caps=/pub/app/:rw&secret=abc",
			expect: &PubkyAuth{Data: "pubkyauth:///?caps=/pub/app/:rw&secret=abc"},
		},
		{
			name:   "pubky auth upper case",
			input:  "PUBKYAUTH:abc",
			expect: &PubkyAuth{Data: "PUBKYAUTH:abc"},
		},
		{
			name:  "raw address",
			input: testAddress,
			expect: &OnChain{
				Address: testAddress,
				Network: NetworkBitcoin,
				Params:  map[string]string{},
			},
		},
		{
			name:  "raw address with whitespace",
			input: "  " + testAddress + "\n",
			expect: &OnChain{
				Address: testAddress,
				Network: NetworkBitcoin,
				Params:  map[string]string{},
			},
		},
		{
			name:  "raw testnet address",
			input: testTestnetAddress,
			expect: &OnChain{
				Address: testTestnetAddress,
				Network: NetworkTestnet,
				Params:  map[string]string{},
			},
		},
		{
			name:   "deep link",
			input:  "bitkit://ticket-abc",
			expect: &OrangeTicket{TicketID: "abc"},
		},
		{
			name:  "deep link to address",
			input: "bitkit://" + testAddress,
			expect: &OnChain{
				Address: testAddress,
				Network: NetworkBitcoin,
				Params:  map[string]string{},
			},
		},
		{
			name:  "deep link is stripped once",
			input: "bitkit://bitkit://ticket-abc",
			err:   ErrInvalidAddress,
		},
		{
			name:  "garbage",
			input: "hello world",
			err:   ErrInvalidAddress,
		},
		{
			name:  "empty",
			input: "",
			err:   ErrInvalidAddress,
		},
		{
			name:  "whitespace",
			input: " \t\n",
			err:   ErrInvalidAddress,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client := &fakeClient{resp: testPayResponse()}
			s := newTestScanner(t, &Config{Client: client})

			result, err := s.Decode(context.Background(), tc.input)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				require.Nil(t, result)
			} else {
				require.NoError(t, err)
				require.Equal(t, tc.expect, result)
				require.Equal(t, tc.expect.Kind(), result.Kind())
			}

			require.Zero(t, client.requests())
		})
	}
}

func TestDecodeLightningInvoice(t *testing.T) {
	t.Parallel()

	s := newTestScanner(t, &Config{})

	for _, input := range []string{
		testInvoice,
		"lightning:" + testInvoice,
		"LIGHTNING:" + testInvoice,
		"bitkit://lightning:" + testInvoice,
		" " + testInvoice + " ",
	} {
		result, err := s.Decode(context.Background(), input)
		require.NoError(t, err, input)

		inv, ok := result.(*Lightning)
		require.True(t, ok, input)
		require.Equal(t, testInvoice, inv.Invoice)
		require.EqualValues(t, 54321, inv.AmountSatoshis)
		require.True(t, inv.IsExpired)
		require.NotEmpty(t, inv.PayeeNodeID)
		require.Equal(t, NetworkBitcoin, inv.Network)
	}
}

func TestDecodeIdempotent(t *testing.T) {
	t.Parallel()

	s := newTestScanner(t, &Config{})

	inputs := []string{
		testAddress,
		"bitcoin:" + testAddress + "?amount=0.5&message=hi",
		testInvoice,
		"ticket-abc",
		testNodeKey + "@1.2.3.4:9735",
	}

	for _, input := range inputs {
		first, err := s.Decode(context.Background(), input)
		require.NoError(t, err)

		second, err := s.Decode(context.Background(), input)
		require.NoError(t, err)
		require.Equal(t, first, second)
	}
}

func TestDecodeConcurrent(t *testing.T) {
	t.Parallel()

	s := newTestScanner(t, &Config{})

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := s.Decode(context.Background(), testAddress)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
}

func TestDecodeExpectedNetwork(t *testing.T) {
	t.Parallel()

	testnet := NetworkTestnet
	s := newTestScanner(t, &Config{Network: &testnet})

	testCases := []struct {
		input string
		err   error
	}{
		{input: testTestnetAddress},
		{input: "bitcoin:" + testTestnetAddress},
		{input: testAddress, err: ErrInvalidNetwork},
		{input: "bitcoin:" + testAddress, err: ErrInvalidNetwork},
		{input: testInvoice, err: ErrInvalidNetwork},

		// Results without a network of their own are not affected.
		{input: "ticket-abc"},
	}

	for _, tc := range testCases {
		_, err := s.Decode(context.Background(), tc.input)
		if tc.err != nil {
			require.ErrorIs(t, err, tc.err, tc.input)
			continue
		}

		require.NoError(t, err, tc.input)
	}
}

// fakeValidator rejects every address with the configured error.
type fakeValidator struct {
	err error
}

func (v *fakeValidator) Validate(string) (*onchain.ValidationResult, error) {
	return nil, v.err
}

func TestDecodeAddressErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		err  error
		kind error
	}{
		{
			name: "format",
			err:  onchain.ErrInvalidAddress,
			kind: ErrInvalidAddress,
		},
		{
			name: "network",
			err:  fmt.Errorf("%w: wrong chain", onchain.ErrInvalidNetwork),
			kind: ErrInvalidAddress,
		},
		{
			name: "other",
			err:  errors.New("validator offline"),
			kind: ErrInvalidAddress,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestScanner(t, &Config{
				AddressValidator: &fakeValidator{err: tc.err},
			})

			for _, input := range []string{
				testAddress, "bitcoin:" + testAddress,
			} {
				_, err := s.Decode(context.Background(), input)
				require.ErrorIs(t, err, tc.kind)
				require.ErrorIs(t, err, tc.err)
			}
		})
	}
}

func TestDecodeLNURL(t *testing.T) {
	t.Parallel()

	inputs := []string{
		testLNURL,
		"lightning:" + testLNURL,
		"https://service.com/?lightning=" + testLNURL,
		"bitkit://" + testLNURL,
	}

	for _, input := range inputs {
		client := &fakeClient{resp: testPayResponse()}
		s := newTestScanner(t, &Config{Client: client})

		result, err := s.Decode(context.Background(), input)
		require.NoError(t, err, input)

		pay, ok := result.(*LnurlPay)
		require.True(t, ok, input)
		require.Equal(t, &LnurlPay{
			URI:         testLNURLTarget,
			Callback:    "https://service.com/cb",
			MinSendable: 1000,
			MaxSendable: 500_000,
			MetadataStr: `[["text/plain","test"]]`,
		}, pay)

		require.Equal(t, []string{testLNURLTarget}, client.fetched)
	}
}

func TestDecodeLNURLAuth(t *testing.T) {
	t.Parallel()

	encode := func(target string) string {
		encoded, err := lnurl.EncodeURL(target)
		require.NoError(t, err)

		return encoded
	}

	client := &fakeClient{resp: testPayResponse()}
	s := newTestScanner(t, &Config{Client: client})
	ctx := context.Background()

	target := "https://auth.example.com/login?tag=login&k1=e2af6254"
	result, err := s.Decode(ctx, encode(target))
	require.NoError(t, err)
	require.Equal(t, &LnurlAuth{
		URI: target,
		Tag: "login",
		K1:  "e2af6254",
	}, result)

	result, err = s.Decode(ctx, "keyauth://auth.example.com/login?k1=e2af6254")
	require.NoError(t, err)
	require.Equal(t, &LnurlAuth{
		URI: "https://auth.example.com/login?k1=e2af6254&tag=login",
		Tag: "login",
		K1:  "e2af6254",
	}, result)

	_, err = s.Decode(ctx, encode("https://auth.example.com/login?tag=login"))
	require.ErrorIs(t, err, ErrInvalidFormat)

	_, err = s.Decode(ctx, encode("not a url"))
	require.ErrorIs(t, err, ErrInvalidFormat)

	require.Zero(t, client.requests())
}

func TestDecodeLUD17(t *testing.T) {
	t.Parallel()

	client := &fakeClient{resp: &lnurl.WithdrawResponse{
		Callback:        "https://example.com/w/cb",
		K1:              "k1",
		MaxWithdrawable: 20_000,
		Tag:             lnurl.TagWithdrawRequest,
	}}
	s := newTestScanner(t, &Config{Client: client})

	result, err := s.Decode(context.Background(), "lnurlw://example.com/w")
	require.NoError(t, err)
	require.Equal(t, &LnurlWithdraw{
		URI:             "https://example.com/w",
		Callback:        "https://example.com/w/cb",
		K1:              "k1",
		MaxWithdrawable: 20_000,
		Tag:             "withdrawRequest",
	}, result)
	require.Equal(t, []string{"https://example.com/w"}, client.fetched)
}

func TestDecodeLightningAddress(t *testing.T) {
	t.Parallel()

	client := &fakeClient{resp: testPayResponse()}
	s := newTestScanner(t, &Config{Client: client})

	result, err := s.Decode(context.Background(), "alice@example.com")
	require.NoError(t, err)

	pay, ok := result.(*LnurlPay)
	require.True(t, ok)
	require.Equal(t, "https://example.com/.well-known/lnurlp/alice", pay.URI)
	require.Equal(t, []string{pay.URI}, client.fetched)
}

func TestDecodeClientErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		err  error
		kind error
	}{
		{
			name: "unknown tag",
			err:  fmt.Errorf("%w: \"foo\"", lnurl.ErrUnknownTag),
			kind: ErrInvalidFormat,
		},
		{
			name: "malformed",
			err:  fmt.Errorf("%w: eof", lnurl.ErrMalformedResponse),
			kind: ErrInvalidResponse,
		},
		{
			name: "service error",
			err:  &lnurl.ServiceError{Reason: "nope"},
			kind: ErrRequestFailed,
		},
		{
			name: "transport",
			err:  fmt.Errorf("%w: dial tcp", lnurl.ErrRequest),
			kind: ErrRequestFailed,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestScanner(t, &Config{
				Client: &fakeClient{err: tc.err},
			})

			for _, input := range []string{
				testLNURL, "alice@example.com",
				"lnurlp://example.com/pay",
			} {
				_, err := s.Decode(context.Background(), input)
				require.ErrorIs(t, err, tc.kind, input)
				require.ErrorIs(t, err, tc.err, input)
			}
		})
	}
}

func TestDecodeInvalidNostrKey(t *testing.T) {
	t.Parallel()

	pay := testPayResponse()
	key := "not a key"
	pay.NostrPubkey = &key

	s := newTestScanner(t, &Config{Client: &fakeClient{resp: pay}})

	_, err := s.Decode(context.Background(), testLNURL)
	require.ErrorIs(t, err, ErrInvalidResponse)
}

func TestNewClientCreationFailed(t *testing.T) {
	t.Parallel()

	_, err := New(&Config{
		HTTP: &lnurl.HTTPClientConfig{TorSocks: "no port"},
	})
	require.ErrorIs(t, err, ErrClientCreationFailed)
	require.ErrorIs(t, err, lnurl.ErrClientCreation)

	s, err := New(nil)
	require.NoError(t, err)
	require.NotNil(t, s)
}

func TestLightningAddressInvoiceNotPay(t *testing.T) {
	t.Parallel()

	s := newTestScanner(t, &Config{
		Client: &fakeClient{resp: &lnurl.ChannelResponse{
			URI:      testNodeKey + "@1.2.3.4:9735",
			Callback: "https://example.com/c",
			K1:       "k1",
			Tag:      lnurl.TagChannelRequest,
		}},
	})

	_, err := s.LightningAddressInvoice(
		context.Background(), "alice@example.com", 10,
	)
	require.ErrorIs(t, err, ErrInvalidResponse)
}

func strPtr(s string) *string {
	return &s
}
