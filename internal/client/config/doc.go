// Package config loads runtime configuration for AutoMailPro.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Environment: an optional dotenv file (-env <path> or ./.env), then
//     AUTOMAILPRO_* variables (see parseEnv).
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Path fields still empty afterwards are derived from AppDataDir.
//
// Supported flags
//
//	-a string   API base URL
//	-d string   application data directory
//	-w int      extension builder workers
//	-l string   log level
//
// # JSON schema
//
// Intervals use timex.Duration, so values can be either strings like "3s"
// or integer nanoseconds:
//
//	{
//	  "api_base_url": "https://api.example.com",
//	  "retry_delay": "2s",
//	  "workers": 8,
//	  "colors": {"success": "#00ff00"}
//	}
//
// # Environment
//
//	AUTOMAILPRO_API_BASE_URL=https://api.example.com
//	AUTOMAILPRO_WORKERS=8
//	AUTOMAILPRO_COLOR_SUCCESS=#00ff00
//
// Startup must call EnsureDirectories; a path conflict there is fatal.
package config
