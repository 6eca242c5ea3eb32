package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"syscall"

	"github.com/cockroachdb/errors"

	"github.com/sabarim/starmf/internal/errs"
)

// ErrCircuitOpen is the cause of transport errors raised while the breaker
// is short-circuiting calls.
var ErrCircuitOpen = errors.New("[transport] - circuit open")

// classify turns a failed round trip into a TransportError, marking the
// failures another attempt could fix.
func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return errs.Transport(err, false, "[transport] - request cancelled by caller")
	}
	var dnsErr *net.DNSError
	switch {
	case errors.As(err, &dnsErr):
		return errs.Transport(err, true, "[transport] - dns lookup failed")
	case errors.Is(err, syscall.ECONNREFUSED):
		return errs.Transport(err, true, "[transport] - connection refused")
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return errs.Transport(err, true, "[transport] - connection reset")
	case errors.Is(err, os.ErrDeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return errs.Transport(err, true, "[transport] - timeout")
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errs.Transport(err, true, "[transport] - timeout")
	}
	return errs.Transport(err, false, "[transport] - request failed")
}

// classifyStatus maps a non-2xx reply. Gateway and throttling statuses are
// transient; anything else means the request itself was refused.
func classifyStatus(status int, body string) error {
	switch status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return errs.Transport(nil, true, fmt.Sprintf("[transport] - remote returned %d", status))
	}
	return errs.Transport(nil, false, fmt.Sprintf("[transport] - remote returned %d: %s", status, truncate(body, 200)))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
