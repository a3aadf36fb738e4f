// Package models defines client-side data models used by AutoMailPro.
package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dmitrijs2005/automailpro/internal/validation"
)

var ErrInvalidAccount = errors.New("invalid account")

// Account is one mailbox the pipeline builds an extension for.
type Account struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	Host          string `json:"host"`
	Port          string `json:"port"`
	User          string `json:"user"`
	ProxyPassword string `json:"proxyPassword"`
	Recovery      string `json:"recovery"`
	NewPassword   string `json:"newPassword"`
	NewRecovery   string `json:"newRecovery"`

	// IDL correlates extension reports with server-side records.
	IDL string `json:"IDL"`
}

// Validate checks the e-mail address.
func (a Account) Validate() error {
	if !validation.IsEmail(a.Email) {
		return fmt.Errorf("%w: bad email %q", ErrInvalidAccount, a.Email)
	}
	return nil
}

// LoadAccounts decodes a JSON array of accounts and validates each one.
func LoadAccounts(r io.Reader) ([]Account, error) {
	var accounts []Account
	if err := json.NewDecoder(r).Decode(&accounts); err != nil {
		return nil, fmt.Errorf("decode accounts: %w", err)
	}
	for i := range accounts {
		accounts[i].Email = strings.TrimSpace(accounts[i].Email)
		if err := accounts[i].Validate(); err != nil {
			return nil, fmt.Errorf("account %d: %w", i, err)
		}
	}
	return accounts, nil
}

// LoadAccountsFile is LoadAccounts over a file.
func LoadAccountsFile(path string) ([]Account, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadAccounts(f)
}
