package update

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/dmitrijs2005/automailpro/internal/filex"
)

var ErrInvalidVersions = errors.New("invalid version descriptor")

// Accepted spellings of the remote version keys, in lookup order.
var (
	programKeys   = []string{"version_Programme", "version_programm", "version_program"}
	extensionKeys = []string{"version_extension", "version_extensions"}
)

// Versions is a (program, extension) version pair. An empty field means
// unknown.
type Versions struct {
	Program   string
	Extension string
}

// ParseRemoteVersions reads the version JSON published by the API.
func ParseRemoteVersions(data []byte) (Versions, error) {
	if !gjson.ValidBytes(data) {
		return Versions{}, fmt.Errorf("%w: not JSON", ErrInvalidVersions)
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return Versions{}, fmt.Errorf("%w: not an object", ErrInvalidVersions)
	}

	v := Versions{
		Program:   firstOf(doc, programKeys),
		Extension: firstOf(doc, extensionKeys),
	}
	if v.Program == "" && v.Extension == "" {
		return Versions{}, fmt.Errorf("%w: no version keys", ErrInvalidVersions)
	}
	return v, nil
}

func firstOf(doc gjson.Result, keys []string) string {
	for _, k := range keys {
		if r := doc.Get(k); r.Exists() && r.Type != gjson.Null {
			return strings.TrimSpace(r.String())
		}
	}
	return ""
}

// VersionStore reads and writes the two local version files.
type VersionStore struct {
	ProgramFile   string
	ExtensionFile string
}

// ReadLocal returns the trimmed content of both files. A missing or
// unreadable file yields an empty version.
func (s VersionStore) ReadLocal() Versions {
	return Versions{
		Program:   readVersion(s.ProgramFile),
		Extension: readVersion(s.ExtensionFile),
	}
}

func readVersion(path string) string {
	if path == "" {
		return ""
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

// Write stores both versions.
func (s VersionStore) Write(v Versions) error {
	return errors.Join(s.WriteProgram(v.Program), s.WriteExtension(v.Extension))
}

func (s VersionStore) WriteProgram(version string) error {
	return writeVersion(s.ProgramFile, version)
}

func (s VersionStore) WriteExtension(version string) error {
	return writeVersion(s.ExtensionFile, version)
}

// writeVersion removes the file for an empty version so that the next
// comparison sees it as stale.
func writeVersion(path, version string) error {
	version = strings.TrimSpace(version)
	if version == "" {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	}
	return filex.WriteFileAtomic(path, []byte(version+"\n"), 0o644)
}

// Stale reports which components of local differ from remote.
func Stale(local, remote Versions) (program, extension bool) {
	program = local.Program == "" || remote.Program == "" || local.Program != remote.Program
	extension = local.Extension == "" || remote.Extension == "" || local.Extension != remote.Extension
	return program, extension
}
