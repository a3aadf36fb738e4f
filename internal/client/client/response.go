package client

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Kind classifies a failed Response.
type Kind string

const (
	KindNetwork     Kind = "network"
	KindAuthRefused Kind = "auth-refused"
	KindHTTPOther   Kind = "http-other"
	KindDecode      Kind = "decode"
)

// Response is the uniform result of Request. Exactly one of the two shapes
// is populated: {OK, Data, StatusCode} or {Err, Kind, StatusCode}.
type Response struct {
	OK         bool
	Data       json.RawMessage
	StatusCode int

	Kind Kind
	Err  error
}

func okResponse(code int, data []byte) Response {
	return Response{OK: true, StatusCode: code, Data: data}
}

func errResponse(kind Kind, code int, err error) Response {
	return Response{Kind: kind, StatusCode: code, Err: err}
}

// Error maps a failed Response to the package sentinels; nil when OK.
func (r Response) Error() error {
	if r.OK {
		return nil
	}
	switch r.Kind {
	case KindAuthRefused:
		return fmt.Errorf("%w: status %d", ErrUnauthorized, r.StatusCode)
	case KindHTTPOther:
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, r.StatusCode)
	case KindDecode:
		return fmt.Errorf("%w: %v", ErrDecode, r.Err)
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, r.Err)
	}
}

// Get looks up a gjson path inside Data.
func (r Response) Get(path string) gjson.Result {
	return gjson.GetBytes(r.Data, path)
}
