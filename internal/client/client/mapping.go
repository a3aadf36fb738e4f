package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/automailpro/internal/netx"
)

// mapError converts a download failure to the package sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var se *netx.StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrUnauthorized, err)
		default:
			return fmt.Errorf("%w: %v", ErrUnexpectedStatus, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
