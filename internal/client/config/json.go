package config

import (
	"encoding/json"
	"maps"
	"os"
	"time"

	"github.com/dmitrijs2005/automailpro/internal/flagx"
	"github.com/dmitrijs2005/automailpro/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "3s" or as integer nanoseconds. Only keys present in the
// file (non-zero after decoding) override the runtime Config.
type JsonConfig struct {
	AppDataDir          string `json:"app_data_dir"`
	ChromiumTemplateDir string `json:"chromium_template_dir"`
	FirefoxTemplateDir  string `json:"firefox_template_dir"`
	OutputDir           string `json:"output_dir"`
	ProfilesDir         string `json:"profiles_dir"`

	APIBaseURL string            `json:"api_base_url"`
	Endpoints  map[string]string `json:"endpoints"`
	UserAgent  string            `json:"user_agent"`

	KeyHex          string         `json:"key_hex"`
	KeyPassphrase   string         `json:"key_passphrase"`
	SessionValidity timex.Duration `json:"session_validity"`
	Timezone        string         `json:"timezone"`

	RequestTimeout      timex.Duration `json:"request_timeout"`
	MaxAttempts         int            `json:"max_attempts"`
	RetryDelay          timex.Duration `json:"retry_delay"`
	Workers             int            `json:"workers"`
	UpdateCheckInterval timex.Duration `json:"update_check_interval"`

	S3Region       string `json:"s3_region"`
	S3BaseEndpoint string `json:"s3_base_endpoint"`

	Colors Colors `json:"colors"`

	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`

	ChromiumExecutable string `json:"chromium_executable"`
	FirefoxExecutable  string `json:"firefox_executable"`

	ChromiumReferencePreferences string `json:"chromium_reference_preferences"`
	InstallProfiles              bool   `json:"install_profiles"`
}

// parseJson overlays Config with values loaded from a JSON file selected
// with -c or -config. No flag, no changes. Read and unmarshal errors panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigFileFlag()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	jc.apply(cfg)
}

func (jc *JsonConfig) apply(cfg *Config) {
	str := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	dur := func(dst *time.Duration, v timex.Duration) {
		if v.Duration != 0 {
			*dst = v.Duration
		}
	}
	num := func(dst *int, v int) {
		if v != 0 {
			*dst = v
		}
	}

	str(&cfg.AppDataDir, jc.AppDataDir)
	str(&cfg.ChromiumTemplateDir, jc.ChromiumTemplateDir)
	str(&cfg.FirefoxTemplateDir, jc.FirefoxTemplateDir)
	str(&cfg.OutputDir, jc.OutputDir)
	str(&cfg.ProfilesDir, jc.ProfilesDir)

	str(&cfg.APIBaseURL, jc.APIBaseURL)
	if len(jc.Endpoints) > 0 {
		if cfg.Endpoints == nil {
			cfg.Endpoints = map[string]string{}
		}
		maps.Copy(cfg.Endpoints, jc.Endpoints)
	}
	str(&cfg.UserAgent, jc.UserAgent)

	str(&cfg.KeyHex, jc.KeyHex)
	str(&cfg.KeyPassphrase, jc.KeyPassphrase)
	dur(&cfg.SessionValidity, jc.SessionValidity)
	str(&cfg.Timezone, jc.Timezone)

	dur(&cfg.RequestTimeout, jc.RequestTimeout)
	num(&cfg.MaxAttempts, jc.MaxAttempts)
	dur(&cfg.RetryDelay, jc.RetryDelay)
	num(&cfg.Workers, jc.Workers)
	dur(&cfg.UpdateCheckInterval, jc.UpdateCheckInterval)

	str(&cfg.S3Region, jc.S3Region)
	str(&cfg.S3BaseEndpoint, jc.S3BaseEndpoint)

	str(&cfg.Colors.Success, jc.Colors.Success)
	str(&cfg.Colors.Failure, jc.Colors.Failure)
	str(&cfg.Colors.Info, jc.Colors.Info)

	str(&cfg.LogLevel, jc.LogLevel)
	str(&cfg.LogFormat, jc.LogFormat)

	str(&cfg.ChromiumExecutable, jc.ChromiumExecutable)
	str(&cfg.FirefoxExecutable, jc.FirefoxExecutable)
	str(&cfg.ChromiumReferencePreferences, jc.ChromiumReferencePreferences)
	if jc.InstallProfiles {
		cfg.InstallProfiles = true
	}
}
