// Package cryptox implements the symmetric encryption used for the local
// session blob and for server payloads, and the signed session token
// handed between services.
//
// Blobs are Fernet tokens: AES-128-CBC with PKCS#7 padding, authenticated
// with HMAC-SHA256 and transported as URL-safe base64. The 32-byte Key is
// split into a signing half and an encryption half as Fernet prescribes.
package cryptox

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/fernet/fernet-go"
	"golang.org/x/crypto/pbkdf2"
)

// KeySize is the raw key length in bytes.
const KeySize = 32

// Key is the process-wide symmetric key.
type Key [KeySize]byte

type Kind string

const (
	KindEncode Kind = "encode"
	KindDecode Kind = "decode"
)

// Error is returned by every failing operation of this package.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("crypto %s error", e.Kind)
	}
	return fmt.Sprintf("crypto %s error: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsDecode reports whether err is a decode failure.
func IsDecode(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Kind == KindDecode
}

var errInvalidToken = errors.New("invalid token or wrong key")

// KeyFromHex decodes a 64-character hex literal into a Key.
func KeyFromHex(s string) (Key, error) {
	var k Key

	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return k, &Error{Kind: KindDecode, Err: fmt.Errorf("key hex: %w", err)}
	}
	if len(b) != KeySize {
		return k, &Error{Kind: KindDecode, Err: fmt.Errorf("key length %d, want %d", len(b), KeySize)}
	}

	copy(k[:], b)
	return k, nil
}

// DeriveKey stretches a passphrase with PBKDF2-HMAC-SHA256.
func DeriveKey(passphrase, salt []byte, iterations int) Key {
	var k Key
	copy(k[:], pbkdf2.Key(passphrase, salt, iterations, KeySize, sha256.New))
	return k
}

// Encrypt seals plaintext under key and returns the token text.
func Encrypt(plaintext string, key Key) (string, error) {
	fk := fernet.Key(key)

	tok, err := fernet.EncryptAndSign([]byte(plaintext), &fk)
	if err != nil {
		return "", &Error{Kind: KindEncode, Err: err}
	}
	return string(tok), nil
}

// Decrypt opens a token produced by Encrypt with the same key. Bad
// base64, a MAC mismatch or bad padding all yield a KindDecode error.
func Decrypt(token string, key Key) (string, error) {
	fk := fernet.Key(key)

	msg := fernet.VerifyAndDecrypt([]byte(strings.TrimSpace(token)), 0, []*fernet.Key{&fk})
	if msg == nil {
		return "", &Error{Kind: KindDecode, Err: errInvalidToken}
	}
	return string(msg), nil
}
