package client

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

var errBodyNotReplayable = errors.New("request body cannot be replayed")

// retryTransport sends a request at most attempts times while it is
// answered with a 5xx status, backing off exponentially. Bodies are replayed through Request.GetBody. Transport
// errors are returned untouched and left to the caller's own retry loop.
type retryTransport struct {
	base     http.RoundTripper
	attempts int
	backoff  time.Duration
}

func newRetryTransport(base http.RoundTripper, attempts int, backoff time.Duration) *retryTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	if backoff <= 0 {
		backoff = time.Millisecond
	}
	return &retryTransport{base: base, attempts: max(attempts, 1), backoff: backoff}
}

// newInsecureTransport clones the default transport with certificate
// verification disabled; the API is served with a legacy certificate.
func newInsecureTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	return t
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}

	var (
		resp    *http.Response
		attempt int
	)

	b := retry.WithMaxRetries(uint64(t.attempts-1), retry.NewExponential(t.backoff))
	err := retry.Do(req.Context(), b, func(ctx context.Context) error {
		r := req
		if attempt > 0 {
			r = req.Clone(ctx)
			if req.Body != nil && req.Body != http.NoBody {
				if req.GetBody == nil {
					return errBodyNotReplayable
				}
				body, err := req.GetBody()
				if err != nil {
					return err
				}
				r.Body = body
			}
		}
		attempt++

		res, err := t.base.RoundTrip(r)
		if err != nil {
			return err
		}
		if res.StatusCode >= http.StatusInternalServerError && attempt < t.attempts {
			_, _ = io.Copy(io.Discard, res.Body)
			_ = res.Body.Close()
			return retry.RetryableError(fmt.Errorf("http status %d", res.StatusCode))
		}

		resp = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
