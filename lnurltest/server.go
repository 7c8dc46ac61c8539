package lnurltest

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/ellemouton/lnscan/lnurl"
	"github.com/stretchr/testify/require"
)

// Server runs a Service on a local TLS listener.
type Server struct {
	*Service

	srv *httptest.Server
}

// NewServer starts a Server for cfg. It is closed when the test ends.
func NewServer(t testing.TB, cfg *Config) *Server {
	t.Helper()

	s := &Server{
		Service: NewService(cfg),
	}
	s.srv = httptest.NewTLSServer(s.Service)
	t.Cleanup(s.Close)

	return s
}

// URL returns the address of path on the server.
func (s *Server) URL(path string) string {
	return s.srv.URL + path
}

// LNURL returns the bech32 LNURL of path on the server.
func (s *Server) LNURL(t testing.TB, path string) string {
	t.Helper()

	encoded, err := lnurl.EncodeURL(s.URL(path))
	require.NoError(t, err)

	return encoded
}

// Transport returns a round tripper that sends every request to the server,
// whatever host it is addressed to. It lets lightning addresses and LUD-17
// links on real looking domains resolve against the test service.
func (s *Server) Transport() http.RoundTripper {
	target, _ := url.Parse(s.srv.URL)

	return &redirectTransport{
		target: target,
		next:   s.srv.Client().Transport,
	}
}

// Close shuts the server down.
func (s *Server) Close() {
	s.srv.Close()
}

type redirectTransport struct {
	target *url.URL
	next   http.RoundTripper
}

// RoundTrip rewrites the scheme and host of req. The Host header keeps the
// original host so the service builds callbacks on it.
func (t *redirectTransport) RoundTrip(req *http.Request) (*http.Response,
	error) {

	req = req.Clone(req.Context())
	req.Host = req.URL.Host
	req.URL.Scheme = t.target.Scheme
	req.URL.Host = t.target.Host

	return t.next.RoundTrip(req)
}
