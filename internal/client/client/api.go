package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/dmitrijs2005/automailpro/internal/client/config"
	"github.com/dmitrijs2005/automailpro/internal/client/models"
	"github.com/dmitrijs2005/automailpro/internal/netx"
)

// SaveFailed is the scalar returned by save operations that did not succeed.
const SaveFailed = "error"

// Credential rejection codes passed through from the API.
const (
	CodeUnknownUser     = -1
	CodeWrongPassword   = -2
	CodeAccountDisabled = -3
	CodeSubscriptionEnd = -4
	CodeDeviceMismatch  = -5
)

// Credentials is the answer of the credential endpoint: a negative Code
// in [-5,-1] for a rejection, or Code 0 with an encrypted Payload.
type Credentials struct {
	Code    int
	Payload string
}

// Rejected reports whether the server refused the credentials.
func (c Credentials) Rejected() bool {
	return c.Code < 0
}

// ScenarioList is the result of LoadScenarios. Session is false when the
// server no longer recognises the session.
type ScenarioList struct {
	Session   bool
	Scenarios []models.Scenario
}

// scalar extracts a save-operation result: the "data" member if present,
// else the whole body.
func scalar(r Response) string {
	if !r.OK {
		return SaveFailed
	}
	v := r.Get("data")
	if !v.Exists() {
		v = gjson.ParseBytes(r.Data)
	}
	if v.Type == gjson.Null || v.String() == "" {
		return SaveFailed
	}
	return v.String()
}

func (c *HTTPClient) SaveEmail(ctx context.Context, entity, email string) string {
	return scalar(c.Request(ctx, config.EndpointSaveEmail, http.MethodPost, RequestOptions{
		Form: url.Values{"entity": {entity}, "email": {email}},
	}))
}

func (c *HTTPClient) SendStatus(ctx context.Context, entity, email, status string) string {
	return scalar(c.Request(ctx, config.EndpointSendStatus, http.MethodPost, RequestOptions{
		Form: url.Values{"entity": {entity}, "email": {email}, "status": {status}},
	}))
}

// SaveProcess uploads a compiled program.
func (c *HTTPClient) SaveProcess(ctx context.Context, entity string, program json.RawMessage) string {
	return scalar(c.Request(ctx, config.EndpointSaveProcess, http.MethodPost, RequestOptions{
		JSON: map[string]any{"entity": entity, "process": program},
	}))
}

func (c *HTTPClient) HandleSaveScenario(ctx context.Context, entity, name string, content json.RawMessage) string {
	return scalar(c.Request(ctx, config.EndpointHandleSave, http.MethodPost, RequestOptions{
		JSON: map[string]any{"entity": entity, "name": name, "content": content},
	}))
}

// LoadScenarios lists saved scenarios. Any failure yields the zero list.
func (c *HTTPClient) LoadScenarios(ctx context.Context, entity string) ScenarioList {
	r := c.Request(ctx, config.EndpointLoadScenarios, http.MethodGet, RequestOptions{
		Query: url.Values{"entity": {entity}},
	})
	if !r.OK {
		return ScenarioList{}
	}

	out := ScenarioList{Session: truthy(r.Get("session"))}
	raw := r.Get("scenarios")
	if !raw.Exists() {
		raw = r.Get("data")
	}
	if raw.IsArray() {
		if err := json.Unmarshal([]byte(raw.Raw), &out.Scenarios); err != nil {
			c.log.Warn(ctx, "bad scenario list", "error", err)
			out.Scenarios = nil
		}
	}
	return out
}

// OnScenarioChanged fetches the content of one scenario. ok is false when
// the server has nothing for id.
func (c *HTTPClient) OnScenarioChanged(ctx context.Context, entity, id string) (models.Scenario, bool) {
	r := c.Request(ctx, config.EndpointOnScenarioChanged, http.MethodGet, RequestOptions{
		Query: url.Values{"entity": {entity}, "id": {id}},
	})
	if !r.OK {
		return models.Scenario{}, false
	}

	v := r.Get("data")
	if !v.Exists() {
		v = gjson.ParseBytes(r.Data)
	}
	if v.IsArray() {
		v = v.Get("0")
	}
	if !v.IsObject() {
		return models.Scenario{}, false
	}

	var s models.Scenario
	if err := json.Unmarshal([]byte(v.Raw), &s); err != nil {
		return models.Scenario{}, false
	}
	if s.ID == "" {
		s.ID = id
	}
	return s, true
}

// CheckAPICredentials posts a login. A failed envelope is returned as error.
func (c *HTTPClient) CheckAPICredentials(ctx context.Context, username, password string) (Credentials, error) {
	r := c.Request(ctx, config.EndpointAPIAccess, http.MethodPost, RequestOptions{
		Form: url.Values{"username": {username}, "password": {password}},
	})
	if err := r.Error(); err != nil {
		return Credentials{}, err
	}

	v := r.Get("data")
	if !v.Exists() {
		v = gjson.ParseBytes(r.Data)
	}

	if v.Type == gjson.Number || (v.Type == gjson.String && isSmallInt(v.Str)) {
		if n := int(v.Int()); n >= -5 && n <= -1 {
			return Credentials{Code: n}, nil
		}
	}
	if v.Type != gjson.String || v.Str == "" {
		return Credentials{}, ErrDecode
	}
	return Credentials{Payload: v.Str}, nil
}

// ValidateSession asks the server whether (username, entity) is still
// valid: true iff the first data entry carries n == "1".
func (c *HTTPClient) ValidateSession(ctx context.Context, username, entity, version string) (bool, error) {
	r := c.Request(ctx, config.EndpointMain, http.MethodGet, RequestOptions{
		Query: url.Values{
			"username": {username},
			"entity":   {entity},
			"action":   {"check_session"},
			"version":  {version},
		},
	})
	if err := r.Error(); err != nil {
		return false, err
	}
	return r.Get("data.0.n").String() == "1", nil
}

// FetchVersions returns the raw version JSON document.
func (c *HTTPClient) FetchVersions(ctx context.Context) (json.RawMessage, error) {
	r := c.Request(ctx, config.EndpointCheckVersions, http.MethodGet, RequestOptions{})
	if err := r.Error(); err != nil {
		return nil, err
	}
	return r.Data, nil
}

// Download streams the body of endpoint. Only the transport-level retry
// applies; the caller closes the reader.
func (c *HTTPClient) Download(ctx context.Context, endpoint string) (io.ReadCloser, error) {
	return c.download(ctx, endpoint, nil)
}

// DownloadExtension streams the extension archive, authenticating with
// the configured download credentials.
func (c *HTTPClient) DownloadExtension(ctx context.Context) (io.ReadCloser, error) {
	return c.download(ctx, config.EndpointDownloadExtension, func(req *http.Request) {
		if c.cfg.ExtensionDownloadUser != "" {
			req.SetBasicAuth(c.cfg.ExtensionDownloadUser, c.cfg.ExtensionDownloadPassword)
		}
	})
}

func (c *HTTPClient) download(ctx context.Context, endpoint string, prepare func(*http.Request)) (io.ReadCloser, error) {
	target, err := c.cfg.ResolveEndpoint(endpoint)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)
	req.Header.Set("Accept", "application/octet-stream")
	if prepare != nil {
		prepare(req)
	}

	rc, err := netx.Open(c.http, req)
	if err != nil {
		return nil, mapError(err)
	}
	return rc, nil
}

func truthy(v gjson.Result) bool {
	switch v.Type {
	case gjson.True:
		return true
	case gjson.Number:
		return v.Int() != 0
	case gjson.String:
		s := strings.ToLower(strings.TrimSpace(v.Str))
		return s == "1" || s == "true"
	}
	return false
}

func isSmallInt(s string) bool {
	s = strings.TrimSpace(s)
	return len(s) == 2 && s[0] == '-' && s[1] >= '1' && s[1] <= '5'
}
