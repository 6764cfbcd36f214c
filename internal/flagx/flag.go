// Package flagx lets several config loaders share one command line: each
// loader picks out only the flags it owns before calling flag.Parse.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// FilterArgs returns the subset of args that belong to the named flags,
// together with their values. Names are given without dashes; "-name",
// "--name", "-name=v" and "--name=v" all match.
//
// A separate value is taken only when the next token does not start with
// "-". Flags listed in boolFlags never consume a following token.
func FilterArgs(args []string, names []string, boolFlags ...string) []string {
	owned := make(map[string]bool, len(names))
	for _, n := range names {
		owned[n] = false
	}
	for _, n := range boolFlags {
		owned[n] = true
	}

	filtered := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}
		name, hasValue := flagName(arg)
		isBool, ok := owned[name]
		if name == "" || !ok {
			continue
		}
		filtered = append(filtered, arg)
		if hasValue || isBool {
			continue
		}
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}
	return filtered
}

// flagName extracts the flag name from arg and reports whether the value
// is attached with "=". Non-flags yield "".
func flagName(arg string) (string, bool) {
	if len(arg) < 2 || arg[0] != '-' {
		return "", false
	}
	name := strings.TrimPrefix(arg[1:], "-")
	name, _, hasValue := strings.Cut(name, "=")
	return name, hasValue
}

// JsonConfigFlags returns the JSON config path given by -c or -config in
// os.Args, or "" when neither is present.
func JsonConfigFlags() string {
	return JsonConfigFrom(os.Args[1:])
}

// JsonConfigFrom is JsonConfigFlags over an explicit argument list.
// When both flags appear the last one wins.
func JsonConfigFrom(args []string) string {
	var config string

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&config, "config", "", "Path to config file")
	fs.StringVar(&config, "c", "", "Path to config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"c", "config"}))

	return config
}
