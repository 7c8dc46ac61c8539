package lnurl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lightningnetwork/lnd/tor"
)

var (
	// ErrClientCreation is returned by NewHTTPClient when the client
	// configuration can not be used.
	ErrClientCreation = errors.New("unable to create lnurl client")

	// ErrRequest is returned when an LNURL service could not be reached or
	// replied with an unexpected HTTP status.
	ErrRequest = errors.New("lnurl request failed")

	// ErrMalformedResponse is returned when a response body is not valid
	// JSON or lacks required fields.
	ErrMalformedResponse = errors.New("malformed lnurl response")

	// ErrUnknownTag is returned when a response carries a tag which is not
	// one of the supported request types.
	ErrUnknownTag = errors.New("unknown lnurl response tag")
)

// ServiceError is returned when an LNURL service answers with an ERROR
// status.
type ServiceError struct {
	Reason string
}

// Error returns the reason given by the service.
func (e *ServiceError) Error() string {
	return fmt.Sprintf("lnurl service error: %s", e.Reason)
}

// maxBodySize caps how much of a response body is read. LNURL responses are
// small JSON documents.
const maxBodySize = 1 << 20

const defaultTimeout = 30 * time.Second

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Client is the capability the scanner uses to talk to LNURL services.
type Client interface {
	// Fetch issues the first-step GET request against an LNURL target and
	// returns the decoded response.
	Fetch(ctx context.Context, target string) (Response, error)

	// GetInvoice requests an invoice for amt from the callback of a pay
	// response. The comment is only sent if it is non-empty.
	GetInvoice(ctx context.Context, pay *PayResponse,
		amt lnwire.MilliSatoshi, comment string) (string, error)
}

// HTTPClientConfig holds the settings for an HTTPClient.
type HTTPClientConfig struct {
	// Timeout bounds every request. Zero means 30 seconds.
	Timeout time.Duration

	// TorSocks is the host:port of a Tor SOCKS proxy. If set, all requests
	// are routed through Tor, which also makes onion services reachable.
	TorSocks string

	// TorStreamIsolation uses a fresh circuit for every connection.
	TorStreamIsolation bool

	// UserAgent is sent with every request if set.
	UserAgent string

	// Transport overrides the round tripper, mostly useful in tests.
	Transport http.RoundTripper
}

// HTTPClient is the default Client, backed by net/http.
type HTTPClient struct {
	cfg        *HTTPClientConfig
	httpClient *http.Client
}

// A compile-time check to ensure HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)

// NewHTTPClient constructs an HTTPClient. A nil cfg gives a client with
// default settings.
func NewHTTPClient(cfg *HTTPClientConfig) (*HTTPClient, error) {
	if cfg == nil {
		cfg = &HTTPClientConfig{}
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	if timeout < 0 {
		return nil, fmt.Errorf("%w: negative timeout %v",
			ErrClientCreation, timeout)
	}

	transport := cfg.Transport
	if cfg.TorSocks != "" {
		if transport != nil {
			return nil, fmt.Errorf("%w: a custom transport can not "+
				"be combined with a tor proxy", ErrClientCreation)
		}

		if _, _, err := net.SplitHostPort(cfg.TorSocks); err != nil {
			return nil, fmt.Errorf("%w: invalid tor socks address "+
				"%q: %v", ErrClientCreation, cfg.TorSocks, err)
		}

		socks, isolation := cfg.TorSocks, cfg.TorStreamIsolation
		transport = &http.Transport{
			// tor.Dial does not take a context, the request
			// timeout still bounds the whole exchange.
			DialContext: func(_ context.Context, _,
				addr string) (net.Conn, error) {

				return tor.Dial(
					addr, socks, isolation, false,
					tor.DefaultConnTimeout,
				)
			},
		}
	}

	return &HTTPClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}, nil
}

// Fetch issues a GET request against target and decodes the response into
// one of the supported response types.
func (c *HTTPClient) Fetch(ctx context.Context, target string) (Response,
	error) {

	body, err := c.get(ctx, target)
	if err != nil {
		return nil, err
	}

	return DecodeResponse(body)
}

// GetInvoice calls the callback of pay with the amount in millisatoshis and
// returns the bech32 invoice the service generated.
func (c *HTTPClient) GetInvoice(ctx context.Context, pay *PayResponse,
	amt lnwire.MilliSatoshi, comment string) (string, error) {

	delim := "?"
	if strings.Contains(pay.Callback, "?") {
		delim = "&"
	}

	getInvoice := fmt.Sprintf(
		"%s%samount=%d", pay.Callback, delim, uint64(amt),
	)
	if comment != "" {
		getInvoice += "&comment=" + url.QueryEscape(comment)
	}

	body, err := c.get(ctx, getInvoice)
	if err != nil {
		return "", err
	}

	var resp struct {
		Error
		InvoiceResponse
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if strings.EqualFold(resp.Status, StatusError) {
		return "", &ServiceError{Reason: resp.Reason}
	}

	if resp.PayRequest == "" {
		return "", fmt.Errorf("%w: missing pr field",
			ErrMalformedResponse)
	}

	return resp.PayRequest, nil
}

// get performs the request and returns the body of a 200 response.
func (c *HTTPClient) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequest, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	log.Debugf("GET %s", target)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", ErrRequest, target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: could not read response body: %w",
			ErrRequest, err)
	}

	log.Tracef("GET %s returned status %d: %s", target, resp.StatusCode,
		body)

	if err := checkHTTPResponse(resp.StatusCode, body); err != nil {
		return nil, err
	}

	return body, nil
}

// checkHTTPResponse turns a non-200 status into an error, preferring the
// reason of an LNURL error body if there is one.
func checkHTTPResponse(status int, body []byte) error {
	if status == http.StatusOK {
		return nil
	}

	var lnurlErr Error
	decodeErr := json.Unmarshal(body, &lnurlErr)
	if decodeErr == nil && strings.EqualFold(lnurlErr.Status, StatusError) {
		return &ServiceError{Reason: lnurlErr.Reason}
	}

	return fmt.Errorf("%w: received status %d", ErrRequest, status)
}

// DecodeResponse decodes the body of a first-step LNURL response. The tag
// field selects the response type and the payload is then validated for that
// type.
func DecodeResponse(body []byte) (Response, error) {
	var envelope struct {
		Error
		Tag Tag `json:"tag"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if strings.EqualFold(envelope.Status, StatusError) {
		return nil, &ServiceError{Reason: envelope.Reason}
	}

	var resp Response
	switch envelope.Tag {
	case TagPayRequest:
		resp = &PayResponse{}

	case TagWithdrawRequest:
		resp = &WithdrawResponse{}

	case TagChannelRequest:
		resp = &ChannelResponse{}

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTag, envelope.Tag)
	}

	if err := json.Unmarshal(body, resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if err := validate.Struct(resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return resp, nil
}
