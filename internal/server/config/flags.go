package config

import (
	"flag"
	"strings"
	"time"

	"github.com/dmitrijs2005/diarykeeper/internal/flagx"
)

var knownFlags = []string{
	"-a", "-g", "-l", "-m", "-d", "-q", "-t", "-o",
	"-u", "-p", "-b", "-r", "-e", "-s", "-x", "-w",
}

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-g string   gRPC health bind address
//	-l string   log level
//	-m string   metadata backend (postgres|sqlite|dynamodb|memory)
//	-d string   PostgreSQL DSN
//	-q string   SQLite database path
//	-t string   DynamoDB table
//	-o string   object store backend (s3|minio|memory)
//	-u string   S3 access key
//	-p string   S3 secret key
//	-b string   S3 bucket name
//	-r string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-s string   JWT HMAC secret key
//	-x string   allowed user email
//	-w int      upload URL validity, seconds
//
// Flags not in the list above are ignored so other packages may define their own.
func parseFlags(config *Config, args []string) {
	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "HTTP address and port")
	fs.StringVar(&config.GRPCHealthAddr, "g", config.GRPCHealthAddr, "gRPC health address and port")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.MetadataBackend, "m", config.MetadataBackend, "metadata backend")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SQLitePath, "q", config.SQLitePath, "SQLite database path")
	fs.StringVar(&config.DynamoTable, "t", config.DynamoTable, "DynamoDB table")
	fs.StringVar(&config.ObjectStoreBackend, "o", config.ObjectStoreBackend, "object store backend")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 access key")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 secret key")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "r", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "JWT secret key")
	fs.StringVar(&config.AllowedEmail, "x", config.AllowedEmail, "allowed user email")

	uploadTTL := fs.Int("w", int(config.UploadURLTTL.Seconds()), "upload URL validity (in seconds)")

	if err := fs.Parse(flagx.FilterArgs(args, knownFlags)); err != nil {
		panic(err)
	}

	config.UploadURLTTL = time.Duration(*uploadTTL) * time.Second
	config.MetadataBackend = strings.ToLower(config.MetadataBackend)
	config.ObjectStoreBackend = strings.ToLower(config.ObjectStoreBackend)
}
