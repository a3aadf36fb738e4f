// Package client contains client-side building blocks for AutoMailPro.
//
// # Overview
//
// The package provides:
//  1. The remote API contract (see the Client interface): credential
//     exchange, session validation, scenario storage, status reporting and
//     update artefact downloads.
//  2. A concrete HTTPS implementation (see HTTPClient) sharing one
//     *http.Client. Two retry layers apply: the transport re-sends 5xx
//     answers with exponential backoff, and Request retries network errors
//     and unexpected statuses with a constant delay. 401/403 are never
//     retried.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) wiring an
//     SQLite database and applying embedded goose migrations.
//
// # Error Handling
//
// Request never returns an error; it returns a Response whose Kind is one of
// network, auth-refused, http-other or decode. Response.Error maps those to
// sentinel errors matched with errors.Is: ErrUnavailable, ErrUnauthorized,
// ErrUnexpectedStatus, ErrDecode.
//
// Save operations collapse failures to the scalar SaveFailed ("error").
package client
