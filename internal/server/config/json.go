package config

import (
	"encoding/json"
	"os"

	"github.com/vaultkeep/vaultkeep/internal/flagx"
	"github.com/vaultkeep/vaultkeep/internal/timex"
)

// JsonConfig is the DTO for the optional JSON configuration file. It uses
// timex.Duration for interval fields, which parses both string values such
// as "30m" and integer nanoseconds. Pointer fields distinguish keys absent
// from the file, so a partial file only overrides what it names.
type JsonConfig struct {
	AppName *string `json:"app_name"`
	Debug   *bool   `json:"debug"`

	DatabaseDSN *string `json:"database_dsn"`

	SecretKey           *string         `json:"secret_key"`
	AccessTokenValidity *timex.Duration `json:"access_token_validity"`
	SessionTTL          *timex.Duration `json:"session_ttl"`

	PasswordMinLength        *int  `json:"password_min_length"`
	PasswordRequireUppercase *bool `json:"password_require_uppercase"`
	PasswordRequireNumbers   *bool `json:"password_require_numbers"`
	PasswordRequireSpecial   *bool `json:"password_require_special_chars"`

	HashTime    *uint32 `json:"hash_time"`
	HashMemoryK *uint32 `json:"hash_memory_kib"`
	HashThreads *uint8  `json:"hash_threads"`

	LogLevel  *string `json:"log_level"`
	LogFormat *string `json:"log_format"`

	RateLimitEnabled *bool           `json:"rate_limit_enabled"`
	RateLimitMax     *int            `json:"rate_limit_requests"`
	RateLimitPeriod  *timex.Duration `json:"rate_limit_period"`

	SweepInterval *timex.Duration `json:"session_sweep_interval"`
}

// parseJson loads configuration values from a JSON file into config.
//
// The file path comes from the -c or -config command-line flags; when
// neither is set, no JSON file is loaded. An unreadable or invalid file
// panics: a broken config file should stop startup, not be skipped.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.AppName != nil {
		config.AppName = *c.AppName
	}
	if c.Debug != nil {
		config.Debug = *c.Debug
	}
	if c.DatabaseDSN != nil {
		config.DatabaseDSN = *c.DatabaseDSN
	}
	if c.SecretKey != nil {
		config.SecretKey = *c.SecretKey
	}
	if c.AccessTokenValidity != nil {
		config.AccessTokenValidity = c.AccessTokenValidity.Duration
	}
	if c.SessionTTL != nil {
		config.SessionTTL = c.SessionTTL.Duration
	}
	if c.PasswordMinLength != nil {
		config.PasswordMinLength = *c.PasswordMinLength
	}
	if c.PasswordRequireUppercase != nil {
		config.PasswordRequireUppercase = *c.PasswordRequireUppercase
	}
	if c.PasswordRequireNumbers != nil {
		config.PasswordRequireNumbers = *c.PasswordRequireNumbers
	}
	if c.PasswordRequireSpecial != nil {
		config.PasswordRequireSpecial = *c.PasswordRequireSpecial
	}
	if c.HashTime != nil {
		config.HashTime = *c.HashTime
	}
	if c.HashMemoryK != nil {
		config.HashMemoryK = *c.HashMemoryK
	}
	if c.HashThreads != nil {
		config.HashThreads = *c.HashThreads
	}
	if c.LogLevel != nil {
		config.LogLevel = *c.LogLevel
	}
	if c.LogFormat != nil {
		config.LogFormat = *c.LogFormat
	}
	if c.RateLimitEnabled != nil {
		config.RateLimitEnabled = *c.RateLimitEnabled
	}
	if c.RateLimitMax != nil {
		config.RateLimitMax = *c.RateLimitMax
	}
	if c.RateLimitPeriod != nil {
		config.RateLimitPeriod = c.RateLimitPeriod.Duration
	}
	if c.SweepInterval != nil {
		config.SweepInterval = c.SweepInterval.Duration
	}
}
