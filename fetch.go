// Bounded streaming HTTP(S) fetch with transport selection.
package main

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"
)

// fetchResult is one successful response. Constructed once the request
// completes and immutable afterward; the content length never exceeds
// the configured cap because the cap is enforced during transfer.
type fetchResult struct {
	URL         string            // final URL after redirects
	Status      int
	Headers     map[string]string // last-write-wins on duplicate keys
	Content     []byte            // decompressed body
	ContentType string            // lowercased main token, parameters stripped
	Charset     string            // defaults to "utf-8"
}

// fetchOptions parameterize a single request.
type fetchOptions struct {
	Method       string
	Headers      map[string]string
	Body         []byte
	Timeout      time.Duration
	MaxSize      int64 // 0 means unlimited
	UserAgent    string
	Proxy        string
	Impersonate  bool
	BlockPrivate bool
}

// fetchURL performs one bounded, streaming HTTP(S) request. Only http
// and https schemes are accepted; the check happens before any network
// activity.
func fetchURL(ctx context.Context, rawURL string, opts fetchOptions) (*fetchResult, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("%w, got: %q", errInvalidURL, parsed.Scheme)
	}

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if len(opts.Body) > 0 {
		body = bytes.NewReader(opts.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidURL, err)
	}

	// Default headers; caller-supplied values take precedence. Setting
	// Accept-Encoding ourselves disables the transport's transparent
	// gzip, so the size cap applies to the wire bytes.
	req.Header.Set("User-Agent", opts.UserAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	client := newFetchClient(parsed.Scheme, opts)
	resp, err := client.Do(req)
	if err != nil {
		return nil, classifyFetchError(err, opts.Timeout)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &statusError{Code: resp.StatusCode, Reason: http.StatusText(resp.StatusCode)}
	}

	content, err := readCapped(resp.Body, opts.MaxSize)
	if err != nil {
		if errors.Is(err, errSizeExceeded) {
			return nil, err
		}
		return nil, classifyFetchError(err, opts.Timeout)
	}

	headers := make(map[string]string, len(resp.Header))
	for k, vs := range resp.Header {
		headers[k] = vs[len(vs)-1]
	}

	if enc := strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))); enc != "" {
		content, err = decompress(content, enc)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errNetwork, err)
		}
	}

	mainType, charset := splitContentType(resp.Header.Get("Content-Type"))

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	logger.Debug().
		Str("url", finalURL).
		Int("status", resp.StatusCode).
		Str("size", humanSize(int64(len(content)))).
		Msg("fetched")

	return &fetchResult{
		URL:         finalURL,
		Status:      resp.StatusCode,
		Headers:     headers,
		Content:     content,
		ContentType: mainType,
		Charset:     charset,
	}, nil
}

// readCapped streams r in fixed-size chunks, checking the running total
// after every chunk. The oversized payload is never materialized: the
// read aborts before appending the chunk that crosses the cap.
// A cap of 0 reads without limit.
func readCapped(r io.Reader, maxSize int64) ([]byte, error) {
	var buf bytes.Buffer
	chunk := make([]byte, fetchChunkSize)
	var total int64
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			total += int64(n)
			if maxSize > 0 && total > maxSize {
				return nil, fmt.Errorf("%w (%d bytes)", errSizeExceeded, maxSize)
			}
			buf.Write(chunk[:n])
		}
		if err == io.EOF {
			return buf.Bytes(), nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// splitContentType derives the main content-type token and charset from
// a Content-Type header value.
func splitContentType(header string) (mainType, charset string) {
	if header == "" {
		header = "application/octet-stream"
	}
	parts := strings.Split(header, ";")
	mainType = strings.ToLower(strings.TrimSpace(parts[0]))
	charset = "utf-8"
	for _, part := range parts[1:] {
		if idx := strings.Index(part, "charset="); idx >= 0 {
			charset = strings.Trim(strings.TrimSpace(part[idx+len("charset="):]), `"'`)
			break
		}
	}
	return mainType, charset
}

// newFetchClient picks the transport for one request: a proxied client
// when a proxy is configured, a browser-fingerprint client for
// impersonated HTTPS, and a plain client otherwise.
func newFetchClient(scheme string, opts fetchOptions) *http.Client {
	if opts.Proxy != "" {
		// uTLS cannot negotiate CONNECT tunnels, so proxied requests
		// use standard TLS even when impersonation is requested.
		return newProxyClient(opts.Proxy, opts.Timeout, opts.BlockPrivate)
	}
	if opts.Impersonate && scheme == "https" {
		return newBrowserClient(opts.Timeout, opts.BlockPrivate)
	}
	return newPlainClient(opts.Timeout, opts.BlockPrivate)
}

func newPlainClient(timeout time.Duration, blockPrivate bool) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:       http.ProxyFromEnvironment,
			DialContext: guardedDialContext(&net.Dialer{Timeout: timeout}, blockPrivate),
		},
	}
}

// newProxyClient creates an HTTP client that routes through the given
// proxy address using standard TLS.
func newProxyClient(proxyAddr string, timeout time.Duration, blockPrivate bool) *http.Client {
	transport := &http.Transport{
		DialContext: guardedDialContext(&net.Dialer{Timeout: timeout}, blockPrivate),
	}
	if proxyURL, err := url.Parse(proxyAddr); err == nil {
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// utlsConn wraps a utls.UConn and satisfies net.Conn + the
// ConnectionState interface that net/http2 needs.
type utlsConn struct {
	*utls.UConn
}

func (c *utlsConn) ConnectionState() tls.ConnectionState {
	cs := c.UConn.ConnectionState()
	return tls.ConnectionState{
		Version:                    cs.Version,
		HandshakeComplete:          cs.HandshakeComplete,
		CipherSuite:                cs.CipherSuite,
		NegotiatedProtocol:         cs.NegotiatedProtocol,
		NegotiatedProtocolIsMutual: cs.NegotiatedProtocolIsMutual,
		ServerName:                 cs.ServerName,
		PeerCertificates:           cs.PeerCertificates,
		VerifiedChains:             cs.VerifiedChains,
		OCSPResponse:               cs.OCSPResponse,
		TLSUnique:                  cs.TLSUnique,
	}
}

// newBrowserClient creates an HTTP client that mimics a real browser's
// TLS fingerprint using utls. Supports both HTTP/1.1 and HTTP/2.
func newBrowserClient(timeout time.Duration, blockPrivate bool) *http.Client {
	dialer := &net.Dialer{Timeout: timeout}
	rt := &impersonateTransport{
		dialer:       dialer,
		blockPrivate: blockPrivate,
		h1: &http.Transport{
			DialContext: guardedDialContext(dialer, blockPrivate),
		},
		h2:      &http2.Transport{},
		timeout: timeout,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: rt,
	}
}

// impersonateTransport dials with utls and routes to an HTTP/1.1 or
// HTTP/2 transport based on ALPN negotiation.
type impersonateTransport struct {
	dialer       *net.Dialer
	blockPrivate bool
	h1           *http.Transport
	h2           *http2.Transport
	timeout      time.Duration
}

func (it *impersonateTransport) dialUTLS(ctx context.Context, network, addr string) (net.Conn, string, error) {
	conn, err := guardedDialContext(it.dialer, it.blockPrivate)(ctx, network, addr)
	if err != nil {
		return nil, "", err
	}

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	tlsConn := utls.UClient(conn, &utls.Config{
		ServerName: host,
	}, utls.HelloFirefox_120)

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, "", err
	}

	alpn := tlsConn.ConnectionState().NegotiatedProtocol
	return &utlsConn{tlsConn}, alpn, nil
}

func (it *impersonateTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return it.h1.RoundTrip(req)
	}

	addr := req.URL.Host
	if !hasPort(addr) {
		addr = addr + ":443"
	}

	conn, alpn, err := it.dialUTLS(req.Context(), "tcp", addr)
	if err != nil {
		return nil, err
	}

	if alpn == "h2" {
		h2conn, err := it.h2.NewClientConn(conn)
		if err != nil {
			conn.Close()
			return nil, err
		}
		return h2conn.RoundTrip(req)
	}

	// For HTTP/1.1, inject the TLS conn into a one-shot transport.
	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return conn, nil
		},
	}
	return transport.RoundTrip(req)
}

func hasPort(host string) bool {
	_, _, err := net.SplitHostPort(host)
	return err == nil
}
