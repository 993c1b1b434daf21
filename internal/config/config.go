// Package config loads bucketry CLI settings from flags and the environment.
package config

import (
	"github.com/spf13/viper"
	"github.com/zoobzio/bucketry"
)

// Setting keys. Each is read from BUCKETRY_<KEY> unless bound to a flag.
const (
	KeyPublicDir   = "public_dir"
	KeyLogLevel    = "log_level"
	KeyLogFormat   = "log_format"
	KeyGCSEndpoint = "gcs_endpoint"
)

// Config holds CLI settings.
type Config struct {
	PublicDir   string
	LogLevel    string
	LogFormat   string
	GCSEndpoint string
}

// New returns a viper instance reading BUCKETRY_* variables and LOCAL_GCS.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("bucketry")
	v.AutomaticEnv()
	// LOCAL_GCS is shared with other tooling and carries no prefix.
	_ = v.BindEnv(bucketry.LocalDiskEnv, bucketry.LocalDiskEnv)

	v.SetDefault(KeyPublicDir, bucketry.LocalPublicDir)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	return v
}

// Load reads the current settings from v.
func Load(v *viper.Viper) Config {
	return Config{
		PublicDir:   v.GetString(KeyPublicDir),
		LogLevel:    v.GetString(KeyLogLevel),
		LogFormat:   v.GetString(KeyLogFormat),
		GCSEndpoint: v.GetString(KeyGCSEndpoint),
	}
}
