package config

import (
	"flag"
	"io"
	"time"

	"github.com/dmitrijs2005/diarykeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
// Only -a, -k, -i and -n are considered; everything else in args belongs to
// the command being run.
func parseFlags(cfg *Config, args []string) {
	args = flagx.FilterArgs(args, []string{"-a", "-k", "-i", "-n"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the diary API")
	fs.StringVar(&cfg.Token, "k", cfg.Token, "bearer token")
	timeout := fs.Int("i", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.IntVar(&cfg.UploadConcurrency, "n", cfg.UploadConcurrency, "concurrent uploads")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
}
