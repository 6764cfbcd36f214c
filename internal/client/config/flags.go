package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/flogger/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-p string           storage provider: dropbox, s3 or memory
//	-a string           host:port for the OAuth callback listener
//	-s string           SQLite session DSN (empty keeps the session in memory)
//	-t string           template directory (default: embedded templates)
//	-log-level string   debug, info, warn or error
//	-log-format string  text or json
//	-timeout duration   per-request timeout
//
// os.Args is filtered with flagx.FilterArgs first, so flags owned by other
// loaders do not trip this FlagSet.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"p", "a", "s", "t", "log-level", "log-format", "timeout"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.Provider, "p", cfg.Provider, "storage provider (dropbox, s3, memory)")
	fs.StringVar(&cfg.CallbackAddr, "a", cfg.CallbackAddr, "address and port of the OAuth callback listener")
	fs.StringVar(&cfg.SessionDSN, "s", cfg.SessionDSN, "SQLite session database")
	fs.StringVar(&cfg.TemplateDir, "t", cfg.TemplateDir, "template directory")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (text, json)")
	fs.DurationVar(&cfg.RequestTimeout, "timeout", cfg.RequestTimeout, "per-request timeout")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
