package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/automailpro/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   API base URL
//	-d string   application data directory
//	-w int      extension builder workers
//	-l string   log level (debug|info|warn|error)
//
// os.Args is filtered through flagx.FilterArgs first so flags owned by
// other layers (-c, -env) do not interfere.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-w", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "API base URL")
	fs.StringVar(&cfg.AppDataDir, "d", cfg.AppDataDir, "application data directory")
	fs.IntVar(&cfg.Workers, "w", cfg.Workers, "extension builder workers")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
