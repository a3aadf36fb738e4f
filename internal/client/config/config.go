package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/dmitrijs2005/automailpro/internal/common"
	"github.com/dmitrijs2005/automailpro/internal/cryptox"
	"github.com/dmitrijs2005/automailpro/internal/filex"
)

// DefaultKeyHex is the built-in 32-byte key shared with the remote API.
const DefaultKeyHex = "3f9a1c7e5b2d48f0a6c3e1d9b7f5a2c40e8d6b4a2f1c9e7d5b3a18f6c4e2d0b9"

// Endpoint keys understood by ResolveEndpoint.
const (
	EndpointAPIAccess         = "_APIACCESS_API"
	EndpointMain              = "_MAIN_API"
	EndpointSaveEmail         = "_SAVE_EMAIL_API"
	EndpointSendStatus        = "_SEND_STATUS_API"
	EndpointSaveProcess       = "_SAVE_PROCESS_API"
	EndpointLoadScenarios     = "_LOAD_SCENARIOS_API"
	EndpointHandleSave        = "_HANDLE_SAVE_API"
	EndpointOnScenarioChanged = "_ON_SCENARIO_CHANGED_API"
	EndpointCheckVersions     = "__CHECK_URL_PROGRAMM__"
	EndpointProgramZip        = "__SERVER_ZIP_URL_PROGRAM__"
	EndpointDownloadExtension = "_DOWNLOAD_EXTENSION_API"
)

var ErrUnknownEndpoint = errors.New("unknown endpoint")

// Colors are hex RGB values ("#2ecc71") used for CLI status lines.
type Colors struct {
	Success string `json:"success" env:"SUCCESS"`
	Failure string `json:"failure" env:"FAILURE"`
	Info    string `json:"info" env:"INFO"`
}

// Config holds runtime settings for AutoMailPro.
//
// Path fields left empty after all sources are applied are derived from
// AppDataDir (see resolvePaths).
type Config struct {
	AppDataDir           string `env:"DATA_DIR"`
	SessionFile          string `env:"SESSION_FILE"`
	ProgramDir           string `env:"PROGRAM_DIR"`
	ExtensionsDir        string `env:"EXTENSIONS_DIR"`
	ChromiumTemplateDir  string `env:"CHROMIUM_TEMPLATE_DIR"`
	FirefoxTemplateDir   string `env:"FIREFOX_TEMPLATE_DIR"`
	OutputDir            string `env:"OUTPUT_DIR"`
	ProfilesDir          string `env:"PROFILES_DIR"`
	TempDir              string `env:"TEMP_DIR"`
	TraitementFile       string `env:"TRAITEMENT_FILE"`
	ProgramVersionFile   string `env:"PROGRAM_VERSION_FILE"`
	ExtensionVersionFile string `env:"EXTENSION_VERSION_FILE"`
	DatabasePath         string `env:"DATABASE_PATH"`
	ResultsFile          string `env:"RESULTS_FILE"`

	APIBaseURL string `env:"API_BASE_URL"`
	Endpoints  map[string]string
	UserAgent  string `env:"USER_AGENT"`

	KeyHex          string        `env:"KEY_HEX"`
	KeyPassphrase   string        `env:"KEY_PASSPHRASE"`
	KeySalt         string        `env:"KEY_SALT"`
	SessionValidity time.Duration `env:"SESSION_VALIDITY"`
	PBKDFIterations int           `env:"PBKDF_ITERATIONS"`
	Timezone        string        `env:"TIMEZONE"`

	RequestTimeout      time.Duration `env:"REQUEST_TIMEOUT"`
	MaxAttempts         int           `env:"MAX_ATTEMPTS"`
	RetryDelay          time.Duration `env:"RETRY_DELAY"`
	TransportRetries    int           `env:"TRANSPORT_RETRIES"`
	BackoffFactor       time.Duration `env:"BACKOFF_FACTOR"`
	CredentialAttempts  int           `env:"CREDENTIAL_ATTEMPTS"`
	Workers             int           `env:"WORKERS"`
	UpdateCheckInterval time.Duration `env:"UPDATE_CHECK_INTERVAL"`

	ExtensionDownloadUser     string `env:"EXTENSION_DOWNLOAD_USER"`
	ExtensionDownloadPassword string `env:"EXTENSION_DOWNLOAD_PASSWORD"`

	// Optional S3 mirror for update archives (s3://bucket/key URLs).
	S3Region       string `env:"S3_REGION"`
	S3BaseEndpoint string `env:"S3_BASE_ENDPOINT"`
	S3AccessKey    string `env:"S3_ACCESS_KEY"`
	S3SecretKey    string `env:"S3_SECRET_KEY"`

	Colors Colors `envPrefix:"COLOR_"`

	LogLevel  string `env:"LOG_LEVEL"`
	LogFormat string `env:"LOG_FORMAT"`

	ChromiumExecutable string `env:"CHROMIUM_EXECUTABLE"`
	FirefoxExecutable  string `env:"FIREFOX_EXECUTABLE"`
	// ChromiumReferencePreferences is a Secure Preferences file with a
	// registered unpacked extension, copied into new profiles.
	ChromiumReferencePreferences string `env:"CHROMIUM_REFERENCE_PREFERENCES"`
	InstallProfiles              bool   `env:"INSTALL_PROFILES"`
}

// DefaultAppDataDir is %APPDATA%/AutoMailPro on Windows and the
// equivalent user config directory elsewhere.
func DefaultAppDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil || base == "" {
		base = os.TempDir()
	}
	return filepath.Join(base, common.AppName)
}

// DefaultEndpoints returns the endpoint table relative to APIBaseURL.
func DefaultEndpoints() map[string]string {
	return map[string]string{
		EndpointAPIAccess:         "/api/apiaccess",
		EndpointMain:              "/api/main",
		EndpointSaveEmail:         "/api/save_email",
		EndpointSendStatus:        "/api/send_status",
		EndpointSaveProcess:       "/api/save_process",
		EndpointLoadScenarios:     "/api/load_scenarios",
		EndpointHandleSave:        "/api/handle_save",
		EndpointOnScenarioChanged: "/api/on_scenario_changed",
		EndpointCheckVersions:     "/updates/version.json",
		EndpointProgramZip:        "/updates/program.zip",
		EndpointDownloadExtension: "/updates/extensions.zip",
	}
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.AppDataDir = DefaultAppDataDir()

	c.APIBaseURL = "https://api.automailpro.com"
	c.Endpoints = DefaultEndpoints()
	c.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AutoMailPro"

	c.KeyHex = DefaultKeyHex
	c.SessionValidity = 48 * time.Hour
	c.PBKDFIterations = 100_000
	c.Timezone = "Africa/Casablanca"

	c.RequestTimeout = 30 * time.Second
	c.MaxAttempts = 3
	c.RetryDelay = 2 * time.Second
	c.TransportRetries = 3
	c.BackoffFactor = 500 * time.Millisecond
	c.CredentialAttempts = 5
	c.Workers = 4
	c.UpdateCheckInterval = 30 * time.Minute

	c.Colors = Colors{Success: "#2ecc71", Failure: "#e74c3c", Info: "#3498db"}

	c.LogLevel = "info"
	c.LogFormat = "text"

	c.ChromiumExecutable = "chromium"
	c.FirefoxExecutable = "firefox"
}

// resolvePaths fills empty path fields relative to AppDataDir.
func (c *Config) resolvePaths() {
	set := func(p *string, elem ...string) {
		if *p == "" {
			*p = filepath.Join(elem...)
		}
	}

	set(&c.SessionFile, c.AppDataDir, common.SessionFileName)
	set(&c.ProgramDir, c.AppDataDir, "program")
	set(&c.ExtensionsDir, c.AppDataDir, "extensions")
	set(&c.ChromiumTemplateDir, c.ExtensionsDir, "chromium")
	set(&c.FirefoxTemplateDir, c.ExtensionsDir, "firefox")
	set(&c.OutputDir, c.AppDataDir, "output")
	set(&c.ProfilesDir, c.AppDataDir, "profiles")
	set(&c.TempDir, c.AppDataDir, "tmp")
	set(&c.TraitementFile, c.AppDataDir, common.TraitementFileName)
	set(&c.ProgramVersionFile, c.ProgramDir, "version.txt")
	set(&c.ExtensionVersionFile, c.ExtensionsDir, "version.txt")
	set(&c.DatabasePath, c.AppDataDir, "automailpro.db")
	set(&c.ResultsFile, c.AppDataDir, "results.txt")
	set(&c.ChromiumReferencePreferences, c.ExtensionsDir, "Secure Preferences")
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), the environment and command-line flags. Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	cfg.resolvePaths()
	return cfg
}

// Directories lists the directories materialised at startup.
func (c *Config) Directories() []string {
	return []string{
		c.AppDataDir,
		c.ProgramDir,
		c.ExtensionsDir,
		c.ChromiumTemplateDir,
		c.FirefoxTemplateDir,
		c.OutputDir,
		c.ProfilesDir,
		c.TempDir,
		filepath.Dir(c.SessionFile),
	}
}

// EnsureDirectories creates every directory of cfg. A path occupied by a
// regular file fails with *filex.PathConflictError.
func EnsureDirectories(cfg *Config) error {
	return filex.EnsureDirs(cfg.Directories()...)
}

// Key returns the symmetric key: derived from KeyPassphrase when set,
// decoded from KeyHex otherwise.
func (c *Config) Key() (cryptox.Key, error) {
	if c.KeyPassphrase != "" {
		salt := c.KeySalt
		if salt == "" {
			salt = common.AppName
		}
		return cryptox.DeriveKey([]byte(c.KeyPassphrase), []byte(salt), c.PBKDFIterations), nil
	}
	return cryptox.KeyFromHex(c.KeyHex)
}

// Location resolves Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ResolveEndpoint maps an underscore-prefixed key through the endpoint
// table; any other value is returned as a literal URL. Relative table
// entries are joined onto APIBaseURL.
func (c *Config) ResolveEndpoint(name string) (string, error) {
	if !strings.HasPrefix(name, "_") {
		return name, nil
	}

	v, ok := c.Endpoints[name]
	if !ok || v == "" {
		return "", fmt.Errorf("%w: %s", ErrUnknownEndpoint, name)
	}

	if u, err := url.Parse(v); err == nil && u.IsAbs() {
		return v, nil
	}
	return strings.TrimRight(c.APIBaseURL, "/") + "/" + strings.TrimLeft(v, "/"), nil
}
