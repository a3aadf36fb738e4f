package client

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryTransport_ReplaysBodyOn5xx(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		assert.Equal(t, "payload", string(b))
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	hc := &http.Client{Transport: newRetryTransport(nil, 3, time.Millisecond)}
	req, err := http.NewRequest(http.MethodPost, srv.URL, strings.NewReader("payload"))
	require.NoError(t, err)

	resp, err := hc.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), hits.Load())
}

func TestRetryTransport_ReturnsLast5xx(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	for _, attempts := range []int{1, 3} {
		hits.Store(0)
		hc := &http.Client{Transport: newRetryTransport(nil, attempts, time.Millisecond)}
		resp, err := hc.Get(srv.URL)
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, int32(attempts), hits.Load(), "attempts=%d", attempts)
	}
}

func TestRetryTransport_DoesNotRetry4xx(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	hc := &http.Client{Transport: newRetryTransport(nil, 3, time.Millisecond)}
	resp, err := hc.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, int32(1), hits.Load())
}

func TestNewInsecureTransport(t *testing.T) {
	tr := newInsecureTransport()
	require.NotNil(t, tr.TLSClientConfig)
	assert.True(t, tr.TLSClientConfig.InsecureSkipVerify)
}
