package services

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"

	"github.com/dmitrijs2005/automailpro/internal/client/client"
	"github.com/dmitrijs2005/automailpro/internal/client/models"
)

// fakeClient implements client.Client for service unit tests.
type fakeClient struct {
	mu sync.Mutex

	CredsRet   []client.Credentials
	CredsErr   []error
	CredsCalls int

	ValidateRet bool
	ValidateErr error

	SaveProcessRet string
	SendStatusRet  string
	SaveEmailRet   string

	// argument capture
	LastValidateUser    string
	LastValidateEntity  string
	LastValidateVersion string
	LastProgram         json.RawMessage
	SavedEmails         []string
	Statuses            map[string]string
}

func (f *fakeClient) Request(ctx context.Context, endpoint, method string, opts client.RequestOptions) client.Response {
	return client.Response{OK: true, Data: json.RawMessage(`{}`)}
}

func (f *fakeClient) SaveEmail(ctx context.Context, entity, email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SavedEmails = append(f.SavedEmails, email)
	return f.SaveEmailRet
}

func (f *fakeClient) SendStatus(ctx context.Context, entity, email, status string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Statuses == nil {
		f.Statuses = map[string]string{}
	}
	f.Statuses[email] = status
	return f.SendStatusRet
}

func (f *fakeClient) SaveProcess(ctx context.Context, entity string, program json.RawMessage) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LastProgram = append(json.RawMessage(nil), program...)
	return f.SaveProcessRet
}

func (f *fakeClient) HandleSaveScenario(ctx context.Context, entity, name string, content json.RawMessage) string {
	return "1"
}

func (f *fakeClient) LoadScenarios(ctx context.Context, entity string) client.ScenarioList {
	return client.ScenarioList{Session: true}
}

func (f *fakeClient) OnScenarioChanged(ctx context.Context, entity, id string) (models.Scenario, bool) {
	return models.Scenario{}, false
}

func (f *fakeClient) CheckAPICredentials(ctx context.Context, username, password string) (client.Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.CredsCalls
	f.CredsCalls++

	var (
		ret client.Credentials
		err error
	)
	if i < len(f.CredsRet) {
		ret = f.CredsRet[i]
	} else if len(f.CredsRet) > 0 {
		ret = f.CredsRet[len(f.CredsRet)-1]
	}
	if i < len(f.CredsErr) {
		err = f.CredsErr[i]
	}
	return ret, err
}

func (f *fakeClient) ValidateSession(ctx context.Context, username, entity, version string) (bool, error) {
	f.LastValidateUser = username
	f.LastValidateEntity = entity
	f.LastValidateVersion = version
	return f.ValidateRet, f.ValidateErr
}

func (f *fakeClient) FetchVersions(ctx context.Context) (json.RawMessage, error) {
	return json.RawMessage(`{}`), nil
}

func (f *fakeClient) Download(ctx context.Context, endpoint string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}

func (f *fakeClient) DownloadExtension(ctx context.Context) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}
