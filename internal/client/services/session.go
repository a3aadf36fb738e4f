// Package services contains application services for the AutoMailPro client.
// This file defines the session manager: the encrypted local session file,
// its two-phase validity check and the credential exchange that creates it.
package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/tidwall/gjson"

	"github.com/dmitrijs2005/automailpro/internal/client/client"
	"github.com/dmitrijs2005/automailpro/internal/common"
	"github.com/dmitrijs2005/automailpro/internal/cryptox"
	"github.com/dmitrijs2005/automailpro/internal/filex"
	"github.com/dmitrijs2005/automailpro/internal/logging"
	"github.com/dmitrijs2005/automailpro/internal/validation"
)

// Session failure reasons. They are wrapped in *SessionError.
var (
	ErrFileNotFound  = errors.New("FileNotFound")
	ErrEmptyFile     = errors.New("EmptyFile")
	ErrInvalidFormat = errors.New("InvalidFormat")
	ErrExpired       = errors.New("Expired")
	ErrAPIRejected   = errors.New("ApiRejected")
)

var (
	ErrCredentialsFormat = errors.New("username must have at least 5 characters and password at least 6")
	ErrNoSession         = errors.New("no valid session")
)

const (
	minUsernameLen = 5
	minPasswordLen = 6
)

// SessionError carries one of the session failure reasons plus the
// underlying cause, if any.
type SessionError struct {
	Reason error
	Cause  error
}

func (e *SessionError) Error() string {
	if e.Cause == nil {
		return "SessionError: " + e.Reason.Error()
	}
	return fmt.Sprintf("SessionError: %s: %v", e.Reason, e.Cause)
}

func (e *SessionError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Reason}
	}
	return []error{e.Reason, e.Cause}
}

func sessionErr(reason, cause error) *SessionError {
	return &SessionError{Reason: reason, Cause: cause}
}

// SessionStatus is the outcome of a session check. When Valid is false,
// Err holds a *SessionError.
type SessionStatus struct {
	Valid    bool
	Username string
	Entity   string
	Date     time.Time
	Token    string
	Err      error
}

func invalid(err *SessionError) SessionStatus {
	return SessionStatus{Err: err}
}

// RejectedError reports a credential rejection code from the API.
type RejectedError struct {
	Code int
}

func (e *RejectedError) Error() string {
	switch e.Code {
	case client.CodeUnknownUser:
		return "credentials rejected: unknown user"
	case client.CodeWrongPassword:
		return "credentials rejected: wrong password"
	case client.CodeAccountDisabled:
		return "credentials rejected: account disabled"
	case client.CodeSubscriptionEnd:
		return "credentials rejected: subscription expired"
	case client.CodeDeviceMismatch:
		return "credentials rejected: device not allowed"
	}
	return fmt.Sprintf("credentials rejected: code %d", e.Code)
}

// CredentialResult is the outcome of CheckAPICredentials: a rejection Code
// in [-5,-1], or the decrypted Entity plus the Encrypted server payload.
type CredentialResult struct {
	Code      int
	Entity    string
	Encrypted string
}

// ReadLocker is the read side of the update gate.
type ReadLocker interface {
	RLock()
	RUnlock()
}

type noopLocker struct{}

func (noopLocker) RLock()   {}
func (noopLocker) RUnlock() {}

// SessionOptions configure a SessionService.
type SessionOptions struct {
	Path               string
	Key                cryptox.Key
	Location           *time.Location
	Validity           time.Duration
	CredentialAttempts int
	RetryDelay         time.Duration

	// Version reports the local program version sent on validation.
	Version func() string
	// Gate, when set, is read-locked for the duration of CheckFull.
	Gate ReadLocker
}

// SessionService owns the session file. It is the single writer of that
// file; concurrent Create/Clear calls are not supported.
type SessionService struct {
	client client.Client
	opts   SessionOptions
	log    logging.Logger
	now    func() time.Time
}

func NewSessionService(c client.Client, opts SessionOptions, log logging.Logger) *SessionService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Validity <= 0 {
		opts.Validity = 48 * time.Hour
	}
	if opts.CredentialAttempts <= 0 {
		opts.CredentialAttempts = 1
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Millisecond
	}
	if opts.Version == nil {
		opts.Version = func() string { return "" }
	}
	if opts.Gate == nil {
		opts.Gate = noopLocker{}
	}
	return &SessionService{
		client: c,
		opts:   opts,
		log:    log.With("component", "session"),
		now:    time.Now,
	}
}

// CheckLocal validates the session file without contacting the server.
func (s *SessionService) CheckLocal(ctx context.Context) SessionStatus {
	data, err := os.ReadFile(s.opts.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return invalid(sessionErr(ErrFileNotFound, nil))
	}
	if err != nil {
		return invalid(sessionErr(ErrInvalidFormat, err))
	}

	blob := strings.TrimSpace(string(data))
	if blob == "" {
		return invalid(sessionErr(ErrEmptyFile, nil))
	}

	plain, err := cryptox.Decrypt(blob, s.opts.Key)
	if err != nil {
		return invalid(sessionErr(ErrInvalidFormat, err))
	}

	f, ok := validation.ValidateSessionFormat(plain)
	if !ok {
		return invalid(sessionErr(ErrInvalidFormat, nil))
	}

	date, err := f.Time(s.opts.Location)
	if err != nil {
		return invalid(sessionErr(ErrInvalidFormat, err))
	}

	if s.now().In(s.opts.Location).Sub(date) >= s.opts.Validity {
		return SessionStatus{Username: f.Username, Entity: f.Entity, Date: date, Err: sessionErr(ErrExpired, nil)}
	}

	return SessionStatus{Valid: true, Username: f.Username, Entity: f.Entity, Date: date}
}

// Create writes a fresh session for (username, entity) stamped with the
// current local time.
func (s *SessionService) Create(ctx context.Context, username, entity string) error {
	stamp := s.now().In(s.opts.Location).Format(common.DateTimeLayout)
	blob := strings.Join([]string{username, stamp, entity}, common.SessionSeparator)

	token, err := cryptox.Encrypt(blob, s.opts.Key)
	if err != nil {
		return fmt.Errorf("encrypt session: %w", err)
	}
	if err := filex.WriteFileAtomic(s.opts.Path, []byte(token), 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}

	s.log.Info(ctx, "session created", "username", username)
	return nil
}

// Clear removes the session file; a missing file is not an error.
func (s *SessionService) Clear(ctx context.Context) error {
	if err := os.Remove(s.opts.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// Logout is Clear.
func (s *SessionService) Logout(ctx context.Context) error {
	return s.Clear(ctx)
}

// ValidateWithServer confirms (username, entity) with the API.
func (s *SessionService) ValidateWithServer(ctx context.Context, username, entity string) SessionStatus {
	ok, err := s.client.ValidateSession(ctx, username, entity, s.opts.Version())
	if err != nil {
		return invalid(sessionErr(ErrAPIRejected, err))
	}
	if !ok {
		return invalid(sessionErr(ErrAPIRejected, nil))
	}
	return SessionStatus{Valid: true, Username: username, Entity: entity}
}

// CheckFull runs CheckLocal then ValidateWithServer. A valid status
// carries a signed session token for the run pipeline. It waits for an
// update in flight to finish.
func (s *SessionService) CheckFull(ctx context.Context) SessionStatus {
	s.opts.Gate.RLock()
	defer s.opts.Gate.RUnlock()

	local := s.CheckLocal(ctx)
	if !local.Valid {
		return local
	}

	remote := s.ValidateWithServer(ctx, local.Username, local.Entity)
	if !remote.Valid {
		remote.Username, remote.Entity, remote.Date = local.Username, local.Entity, local.Date
		return remote
	}

	return s.withToken(ctx, local)
}

func (s *SessionService) withToken(ctx context.Context, st SessionStatus) SessionStatus {
	ttl := s.opts.Validity - s.now().In(s.opts.Location).Sub(st.Date)
	token, err := cryptox.EncodeSessionToken(cryptox.SessionClaims{Username: st.Username, Entity: st.Entity}, s.opts.Key, ttl)
	if err != nil {
		s.log.Error(ctx, "session token", "error", err)
		return invalid(sessionErr(ErrInvalidFormat, err))
	}
	st.Token = token
	return st
}

// CheckAPICredentials exchanges credentials for an entity. Transport
// failures are retried up to CredentialAttempts times; rejection codes are
// returned as is in the result.
func (s *SessionService) CheckAPICredentials(ctx context.Context, username, password string) (CredentialResult, error) {
	username = strings.TrimSpace(username)
	if len(username) < minUsernameLen || len(password) < minPasswordLen {
		return CredentialResult{}, ErrCredentialsFormat
	}

	var (
		creds   client.Credentials
		attempt int
	)
	b := retry.WithMaxRetries(uint64(s.opts.CredentialAttempts-1), retry.NewConstant(s.opts.RetryDelay))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		var err error
		creds, err = s.client.CheckAPICredentials(ctx, username, password)
		if err == nil || errors.Is(err, client.ErrUnauthorized) {
			return err
		}
		s.log.Warn(ctx, "credential check failed", "attempt", attempt, "error", err)
		return retry.RetryableError(err)
	})
	if err != nil {
		return CredentialResult{}, err
	}

	if creds.Rejected() {
		return CredentialResult{Code: creds.Code}, nil
	}

	plain, err := cryptox.Decrypt(creds.Payload, s.opts.Key)
	if err != nil {
		return CredentialResult{}, fmt.Errorf("decrypt credentials payload: %w", err)
	}

	return CredentialResult{Entity: entityFrom(plain), Encrypted: creds.Payload}, nil
}

// entityFrom accepts either a JSON object with an "entity" member or the
// bare entity text.
func entityFrom(plain string) string {
	plain = strings.TrimSpace(plain)
	if gjson.Valid(plain) {
		if e := gjson.Get(plain, "entity"); e.Exists() {
			return e.String()
		}
	}
	return plain
}

// Login checks credentials and, on success, persists a new session.
func (s *SessionService) Login(ctx context.Context, username, password string) (SessionStatus, error) {
	res, err := s.CheckAPICredentials(ctx, username, password)
	if err != nil {
		return SessionStatus{}, err
	}
	if res.Code < 0 {
		return SessionStatus{}, &RejectedError{Code: res.Code}
	}

	username = strings.TrimSpace(username)
	if err := s.Create(ctx, username, res.Entity); err != nil {
		return SessionStatus{}, err
	}

	st := s.CheckLocal(ctx)
	if !st.Valid {
		return st, st.Err
	}
	return s.withToken(ctx, st), nil
}
