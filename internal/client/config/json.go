package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/diarykeeper/internal/flagx"
	"github.com/dmitrijs2005/diarykeeper/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Absent keys
// leave the current values alone.
type JsonConfig struct {
	ServerURL         *string         `json:"server_url"`
	Token             *string         `json:"token"`
	RequestTimeout    *timex.Duration `json:"request_timeout"`
	UploadConcurrency *int            `json:"upload_concurrency"`
}

// parseJson overlays cfg with values loaded from the file given by -c or
// -config. Read or unmarshal errors panic.
func parseJson(cfg *Config, args []string) {
	path := flagx.ConfigFilePath(args)
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerURL != nil {
		cfg.ServerURL = *jc.ServerURL
	}
	if jc.Token != nil {
		cfg.Token = *jc.Token
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.UploadConcurrency != nil {
		cfg.UploadConcurrency = *jc.UploadConcurrency
	}
}
