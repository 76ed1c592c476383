// Package config loads runtime configuration for the diary CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Environment variables DIARY_SERVER_URL, DIARY_TOKEN,
//     DIARY_REQUEST_TIMEOUT and DIARY_UPLOAD_CONCURRENCY.
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the diary API
//	-k string   bearer token
//	-i int      request timeout (seconds)
//	-n int      concurrent uploads
//
// # JSON schema
//
// The JSON loader uses timex.Duration for the timeout, so values can be
// either strings like "30s" or integer nanoseconds:
//
//	{
//	  "server_url": "https://diary.example.com",
//	  "token": "eyJ...",
//	  "request_timeout": "30s",
//	  "upload_concurrency": 4
//	}
package config
