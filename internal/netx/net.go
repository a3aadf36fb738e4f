// Package netx contains small HTTP transfer helpers.
package netx

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"

	"github.com/dmitrijs2005/automailpro/internal/common"
)

// ChunkSize is the read granularity of CopyChunks.
const ChunkSize = 8 << 10

// StatusError is returned by Open for any status other than 200.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("download failed: %s; body: %s", e.Status, e.Body)
}

// Get issues a GET request and returns the body of a 200 response.
// The caller closes the returned reader.
func Get(ctx context.Context, client *http.Client, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return Open(client, req)
}

// Open sends req and returns the body of a 200 response; any other status
// is an error carrying the start of the body.
func Open(client *http.Client, req *http.Request) (io.ReadCloser, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(b)}
	}
	return resp.Body, nil
}

// CopyChunks copies src into dst ChunkSize bytes at a time. Between chunks
// it checks ctx and the optional stop flag and returns common.ErrStopped
// as soon as either fires.
func CopyChunks(ctx context.Context, dst io.Writer, src io.Reader, stop *atomic.Bool) (int64, error) {
	buf := make([]byte, ChunkSize)
	var written int64

	for {
		if stop != nil && stop.Load() {
			return written, common.ErrStopped
		}
		if err := ctx.Err(); err != nil {
			return written, fmt.Errorf("%w: %w", common.ErrStopped, err)
		}

		n, rerr := src.Read(buf)
		if n > 0 {
			m, werr := dst.Write(buf[:n])
			written += int64(m)
			if werr != nil {
				return written, werr
			}
			if m != n {
				return written, io.ErrShortWrite
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, rerr
		}
	}
}
