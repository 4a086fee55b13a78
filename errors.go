// Error taxonomy for fetch failures. The batch layer formats these
// per-URL without aborting the rest of the run.
package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"time"
)

var (
	errInvalidURL        = errors.New("only http and https URLs are supported")
	errSizeExceeded      = errors.New("response size exceeds maximum")
	errTimeout           = errors.New("request timed out")
	errTLS               = errors.New("ssl error")
	errNetwork           = errors.New("network error")
	errConnection        = errors.New("connection error")
	errInvalidSizeFormat = errors.New("invalid size format")
	errInvalidHeader     = errors.New("invalid header format")
)

// statusError is a non-2xx HTTP response.
type statusError struct {
	Code   int
	Reason string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP %d %s", e.Code, e.Reason)
}

// classifyFetchError maps a transport-level failure onto the error
// taxonomy. Typed checks run first; the message-substring checks catch
// errors the net stack reports only as text.
func classifyFetchError(err error, timeout time.Duration) error {
	msg := strings.ToLower(err.Error())

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) ||
		strings.Contains(msg, "timed out") {
		return fmt.Errorf("%w after %s", errTimeout, timeout)
	}

	var recErr tls.RecordHeaderError
	var certErr *tls.CertificateVerificationError
	var unkErr x509.UnknownAuthorityError
	if errors.As(err, &recErr) || errors.As(err, &certErr) || errors.As(err, &unkErr) ||
		strings.Contains(msg, "tls") || strings.Contains(msg, "ssl") ||
		strings.Contains(msg, "certificate") {
		return fmt.Errorf("%w: %v", errTLS, err)
	}

	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return fmt.Errorf("%w: %v", errConnection, err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return fmt.Errorf("%w: %v", errConnection, err)
	}

	return fmt.Errorf("%w: %v", errNetwork, err)
}
