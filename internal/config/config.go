// Package config loads the inspector's runtime configuration via Viper:
// a mapstructure-tagged struct, a handful of search paths, sane defaults,
// and an environment-variable prefix.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// NtfsConfig holds the inspector's tunable runtime settings.
type NtfsConfig struct {
	// FileRecordSizeOverride is a file-record size setting; 0 means "don't
	// override". It is loaded but not read anywhere: the volume layer always
	// uses the live $MFT record's allocated size (§4.8).
	FileRecordSizeOverride uint32 `mapstructure:"file_record_size_override"`

	// IndexRecordSizeOverride is the equivalent setting for $INDEX_ALLOCATION
	// records; 0 means "don't override". It is loaded but not read anywhere:
	// index trees always use the $INDEX_ROOT-advertised size (§4.7).
	IndexRecordSizeOverride uint32 `mapstructure:"index_record_size_override"`

	// CacheEnabled is a cache on/off setting. It is loaded but not read
	// anywhere; the volume layer keeps no configurable cache.
	CacheEnabled bool `mapstructure:"cache_enabled"`

	// CacheSize is a decoded-FILE-record cache size setting. It is loaded
	// but not read anywhere; decoded records are not cached.
	CacheSize int `mapstructure:"cache_size"`

	// ImageSearchPaths are the directories `list` scans for image files.
	// `open` and the other commands take --image as given and do not
	// search these paths.
	ImageSearchPaths []string `mapstructure:"image_search_paths"`

	// UsnTailDefault is a default record count for `usnjrnl tail`. It is
	// loaded but not read anywhere; the command's -n flag has its own
	// default of 20.
	UsnTailDefault int `mapstructure:"usn_tail_default"`
}

// LoadNtfsConfig loads configuration from ntfsinspect-config.{yaml,...},
// searched for in the working directory, ./config, the user's home
// directory under .ntfsinspect, and /etc/ntfsinspect, then overlaid with
// NTFSINSPECT_-prefixed environment variables.
func LoadNtfsConfig() (*NtfsConfig, error) {
	viper.SetConfigName("ntfsinspect-config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("$HOME/.ntfsinspect")
	viper.AddConfigPath("/etc/ntfsinspect")

	viper.SetDefault("file_record_size_override", 0)
	viper.SetDefault("index_record_size_override", 0)
	viper.SetDefault("cache_enabled", true)
	viper.SetDefault("cache_size", 256)
	viper.SetDefault("image_search_paths", []string{".", "./images"})
	viper.SetDefault("usn_tail_default", 20)

	viper.SetEnvPrefix("NTFSINSPECT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: reading config file: %w", err)
		}
	}

	var cfg NtfsConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshaling: %w", err)
	}
	return &cfg, nil
}
