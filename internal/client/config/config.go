package config

import (
	"os"
	"time"

	"github.com/dmitrijs2005/diarykeeper/internal/flagx"
)

// GlobalFlags are the flags read by this package. They must precede the
// command name on the command line.
var GlobalFlags = []string{"-a", "-k", "-i", "-n", "-c", "-config", "--config"}

// Config holds runtime settings for the diary CLI.
//
// Fields:
//   - ServerURL: base URL of the diary REST API.
//   - Token: bearer token presented on API calls (never sent to object storage).
//   - RequestTimeout: per-request timeout for API calls and uploads.
//   - UploadConcurrency: how many attachments are uploaded at once (0 = all).
type Config struct {
	ServerURL         string        `env:"DIARY_SERVER_URL"`
	Token             string        `env:"DIARY_TOKEN"`
	RequestTimeout    time.Duration `env:"DIARY_REQUEST_TIMEOUT"`
	UploadConcurrency int           `env:"DIARY_UPLOAD_CONCURRENCY"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.RequestTimeout = 30 * time.Second
	c.UploadConcurrency = 4
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), the environment and command-line flags. Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	args := os.Args[1:]
	args = args[:len(args)-len(flagx.CommandArgs(args, GlobalFlags))]

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg, args)
	parseEnv(cfg)
	parseFlags(cfg, args)
	return cfg
}
