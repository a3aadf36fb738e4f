package client

import (
	"context"
	"encoding/json"
	"io"

	"github.com/dmitrijs2005/automailpro/internal/client/models"
)

// Client is the remote API contract used by the services.
type Client interface {
	Request(ctx context.Context, endpoint, method string, opts RequestOptions) Response

	SaveEmail(ctx context.Context, entity, email string) string
	SendStatus(ctx context.Context, entity, email, status string) string
	SaveProcess(ctx context.Context, entity string, program json.RawMessage) string
	HandleSaveScenario(ctx context.Context, entity, name string, content json.RawMessage) string
	LoadScenarios(ctx context.Context, entity string) ScenarioList
	OnScenarioChanged(ctx context.Context, entity, id string) (models.Scenario, bool)

	CheckAPICredentials(ctx context.Context, username, password string) (Credentials, error)
	ValidateSession(ctx context.Context, username, entity, version string) (bool, error)

	FetchVersions(ctx context.Context) (json.RawMessage, error)
	Download(ctx context.Context, endpoint string) (io.ReadCloser, error)
	DownloadExtension(ctx context.Context) (io.ReadCloser, error)
}

var _ Client = (*HTTPClient)(nil)
