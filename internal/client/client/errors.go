package client

import "errors"

var (
	ErrUnavailable      = errors.New("server unavailable")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrUnexpectedStatus = errors.New("unexpected status")
	ErrDecode           = errors.New("malformed response")
)
