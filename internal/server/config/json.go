package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/diarykeeper/internal/flagx"
	"github.com/dmitrijs2005/diarykeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Pointer fields
// distinguish "absent" from "zero" so a partial file only overrides what it
// names. Durations accept "5m"-style strings or integer nanoseconds.
type JsonConfig struct {
	HTTPAddr       *string `json:"http_addr"`
	GRPCHealthAddr *string `json:"grpc_health_addr"`
	LogLevel       *string `json:"log_level"`

	MetadataBackend      *string `json:"metadata_backend"`
	DatabaseDSN          *string `json:"database_dsn"`
	SQLitePath           *string `json:"sqlite_path"`
	DynamoTable          *string `json:"dynamodb_table"`
	DynamoOwnerDateIndex *string `json:"dynamodb_owner_date_index"`
	DynamoEndpoint       *string `json:"dynamodb_endpoint"`
	DynamoAccessKey      *string `json:"dynamodb_access_key"`
	DynamoSecretKey      *string `json:"dynamodb_secret_key"`

	ObjectStoreBackend *string `json:"object_store"`
	S3RootUser         *string `json:"s3_root_user"`
	S3RootPassword     *string `json:"s3_root_password"`
	S3Bucket           *string `json:"s3_bucket"`
	S3Region           *string `json:"s3_region"`
	S3BaseEndpoint     *string `json:"s3_base_endpoint"`
	S3UsePathStyle     *bool   `json:"s3_use_path_style"`

	UploadURLTTL *timex.Duration `json:"upload_url_ttl"`
	AccessURLTTL *timex.Duration `json:"access_url_ttl"`

	AuthMode     *string `json:"auth_mode"`
	SecretKey    *string `json:"secret_key"`
	OIDCIssuer   *string `json:"oidc_issuer"`
	OIDCClientID *string `json:"oidc_client_id"`
	AllowedEmail *string `json:"allowed_email"`

	CORSOrigins         []string        `json:"cors_origins"`
	EnablePprof         *bool           `json:"enable_pprof"`
	HealthProbeInterval *timex.Duration `json:"health_probe_interval"`
}

// parseJson loads the file named by -c/-config (if any) and overlays the
// keys it contains onto config. Unreadable or invalid files panic.
func parseJson(config *Config, args []string) {
	path := flagx.ConfigFilePath(args)
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.GRPCHealthAddr, c.GRPCHealthAddr)
	setString(&config.LogLevel, c.LogLevel)

	setString(&config.MetadataBackend, c.MetadataBackend)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SQLitePath, c.SQLitePath)
	setString(&config.DynamoTable, c.DynamoTable)
	setString(&config.DynamoOwnerDateIndex, c.DynamoOwnerDateIndex)
	setString(&config.DynamoEndpoint, c.DynamoEndpoint)
	setString(&config.DynamoAccessKey, c.DynamoAccessKey)
	setString(&config.DynamoSecretKey, c.DynamoSecretKey)

	setString(&config.ObjectStoreBackend, c.ObjectStoreBackend)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	if c.S3UsePathStyle != nil {
		config.S3UsePathStyle = *c.S3UsePathStyle
	}

	if c.UploadURLTTL != nil {
		config.UploadURLTTL = c.UploadURLTTL.Duration
	}
	if c.AccessURLTTL != nil {
		config.AccessURLTTL = c.AccessURLTTL.Duration
	}

	setString(&config.AuthMode, c.AuthMode)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.OIDCIssuer, c.OIDCIssuer)
	setString(&config.OIDCClientID, c.OIDCClientID)
	setString(&config.AllowedEmail, c.AllowedEmail)

	if c.CORSOrigins != nil {
		config.CORSOrigins = c.CORSOrigins
	}
	if c.EnablePprof != nil {
		config.EnablePprof = *c.EnablePprof
	}
	if c.HealthProbeInterval != nil {
		config.HealthProbeInterval = c.HealthProbeInterval.Duration
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
