// Package common contains constants, sentinel errors and small helpers
// shared across AutoMailPro components.
package common

const (
	// AppName names the per-user application data directory.
	AppName = "AutoMailPro"

	// SessionFileName is the encrypted session file inside the app data dir.
	SessionFileName = "session.txt"

	// SessionSeparator joins the fields of the plaintext session blob.
	SessionSeparator = "::"

	// DateTimeLayout is the timestamp layout carried in the session blob.
	DateTimeLayout = "2006-01-02 15:04:05"

	// TraitementFileName is the compiled scenario shipped inside an extension.
	TraitementFileName = "traitement.json"
)
