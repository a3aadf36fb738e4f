// Package flagx parses the handful of flags that several loaders need
// without fighting over the global flag.CommandLine.
package flagx

import (
	"flag"
	"io"
	"os"
	"strings"
)

// FilterArgs keeps only the flags named in allowedFlags together with their
// values. Both "-c conf.json" and "--config=conf.json" forms are recognised;
// a token starting with "-" is never taken as a value.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name, _, _ := strings.Cut(arg, "=")
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; !ok {
			continue
		}
		filtered = append(filtered, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

// StringFlag returns the value of the last occurrence of any of names
// (given without the leading dash) in args. Unknown flags are ignored and
// parse errors yield an empty string.
func StringFlag(args []string, names ...string) string {
	dashed := make([]string, 0, len(names)*2)
	for _, n := range names {
		dashed = append(dashed, "-"+n, "--"+n)
	}

	var value string
	fs := flag.NewFlagSet("lookup", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	for _, n := range names {
		fs.StringVar(&value, n, "", n)
	}
	if err := fs.Parse(FilterArgs(args, dashed)); err != nil {
		return ""
	}
	return value
}

// ConfigFileFlag returns the JSON config path passed with -c or -config.
func ConfigFileFlag() string {
	return StringFlag(os.Args[1:], "c", "config")
}

// EnvFileFlag returns the dotenv path passed with -env, if any.
func EnvFileFlag() string {
	return StringFlag(os.Args[1:], "env")
}
