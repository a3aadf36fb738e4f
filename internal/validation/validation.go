// Package validation provides total input predicates: none of them panic,
// failures are reported as a zero value plus false.
package validation

import (
	"errors"
	"io/fs"
	"math/rand/v2"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/automailpro/internal/common"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	rangeRegex = regexp.MustCompile(`^\s*(-?\d+)\s*,\s*(-?\d+)\s*$`)
)

// IsEmail reports whether s looks like an e-mail address.
func IsEmail(s string) bool {
	return emailRegex.MatchString(strings.TrimSpace(s))
}

// ParseRandomRange turns "a,b" into a uniform integer in [min(a,b), max(a,b)].
// A single integer is returned as is; anything else yields 0. A nil rng
// draws from the package-level source.
func ParseRandomRange(s string, rng *rand.Rand) int {
	if m := rangeRegex.FindStringSubmatch(s); m != nil {
		a, errA := strconv.Atoi(m[1])
		b, errB := strconv.Atoi(m[2])
		if errA != nil || errB != nil {
			return 0
		}
		lo, hi := min(a, b), max(a, b)
		return lo + int(drawBelow(uint64(hi-lo)+1, rng))
	}

	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

// drawBelow returns a uniform value in [0, span). A span of 0 stands for
// the full 64-bit range. Wrapping arithmetic keeps lo+draw within [lo, hi].
func drawBelow(span uint64, rng *rand.Rand) uint64 {
	switch {
	case span == 0 && rng == nil:
		return rand.Uint64()
	case span == 0:
		return rng.Uint64()
	case rng == nil:
		return rand.Uint64N(span)
	default:
		return rng.Uint64N(span)
	}
}

// SessionFields are the three parts of a decrypted session blob.
type SessionFields struct {
	Username string
	Date     string
	Entity   string
}

// Time parses Date in loc. The blob must already have been validated.
func (f SessionFields) Time(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	return time.ParseInLocation(common.DateTimeLayout, f.Date, loc)
}

// ValidateSessionFormat splits "username::YYYY-MM-DD HH:MM:SS::entity".
// It requires exactly three fields, a parseable date and a non-empty
// username.
func ValidateSessionFormat(plaintext string) (SessionFields, bool) {
	parts := strings.Split(plaintext, common.SessionSeparator)
	if len(parts) != 3 {
		return SessionFields{}, false
	}

	f := SessionFields{
		Username: strings.TrimSpace(parts[0]),
		Date:     strings.Trim(strings.TrimSpace(parts[1]), `"`),
		Entity:   strings.TrimSpace(parts[2]),
	}
	if f.Username == "" {
		return SessionFields{}, false
	}
	if _, err := time.Parse(common.DateTimeLayout, f.Date); err != nil {
		return SessionFields{}, false
	}
	return f, true
}

// PathExists reports whether path can be stat'ed.
func PathExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, fs.ErrNotExist)
}
