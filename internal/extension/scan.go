package extension

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Finding is an unresolved marker left in a script.
type Finding struct {
	File   string
	Line   int
	Marker string
}

// Scan reports every account marker still present in the scripts under
// dir.
func Scan(dir string) ([]Finding, error) {
	var findings []Finding

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !IsScript(d.Name()) {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		rel, _ := filepath.Rel(dir, path)
		sc := bufio.NewScanner(f)
		sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
		for n := 1; sc.Scan(); n++ {
			line := sc.Text()
			for _, m := range Markers {
				if strings.Contains(line, m) {
					findings = append(findings, Finding{File: rel, Line: n, Marker: m})
				}
			}
		}
		return sc.Err()
	})
	return findings, err
}

// ExtensionID derives the id Chromium assigns to an unpacked extension
// loaded from path: the first 32 hex digits of SHA-256(abs path), each
// mapped onto 'a'..'p'.
func ExtensionID(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	sum := sha256.Sum256([]byte(path))
	digits := hex.EncodeToString(sum[:16])

	id := make([]byte, len(digits))
	for i := range len(digits) {
		c := digits[i]
		if c >= 'a' {
			id[i] = 'a' + 10 + (c - 'a')
		} else {
			id[i] = 'a' + (c - '0')
		}
	}
	return string(id)
}
