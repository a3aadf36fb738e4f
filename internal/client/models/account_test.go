package models

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadAccounts_OK(t *testing.T) {
	in := `[
	  {"email":" a@example.com ","password":"p","host":"h","port":"8080","user":"u",
	   "proxyPassword":"pp","recovery":"r@x.io","newPassword":"np","newRecovery":"nr@x.io","IDL":"42"},
	  {"email":"b@example.com"}
	]`

	accounts, err := LoadAccounts(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	require.Equal(t, Account{
		Email: "a@example.com", Password: "p", Host: "h", Port: "8080", User: "u",
		ProxyPassword: "pp", Recovery: "r@x.io", NewPassword: "np", NewRecovery: "nr@x.io", IDL: "42",
	}, accounts[0])
}

func TestLoadAccounts_InvalidEmail(t *testing.T) {
	_, err := LoadAccounts(strings.NewReader(`[{"email":"nope"}]`))
	require.ErrorIs(t, err, ErrInvalidAccount)
	require.Contains(t, err.Error(), "account 0")
}

func TestLoadAccounts_BadJSON(t *testing.T) {
	_, err := LoadAccounts(strings.NewReader(`{`))
	require.Error(t, err)
}

func TestLoadAccountsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"email":"c@example.com"}]`), 0o600))

	accounts, err := LoadAccountsFile(path)
	require.NoError(t, err)
	require.Len(t, accounts, 1)

	_, err = LoadAccountsFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
