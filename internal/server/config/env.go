package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// envValues mirrors the environment variable set the service is deployed
// with. Pointer fields distinguish "unset" from a zero value, so only
// variables actually present in the environment override earlier layers.
type envValues struct {
	AppName *string `envconfig:"APP_NAME"`
	Debug   *bool   `envconfig:"DEBUG"`

	DatabaseDSN *string `envconfig:"DATABASE_URL"`

	SecretKey           *string        `envconfig:"SECRET_KEY"`
	AccessTokenValidity *time.Duration `envconfig:"ACCESS_TOKEN_VALIDITY"`
	SessionTTL          *time.Duration `envconfig:"SESSION_TTL"`

	PasswordMinLength        *int  `envconfig:"PASSWORD_MIN_LENGTH"`
	PasswordRequireUppercase *bool `envconfig:"PASSWORD_REQUIRE_UPPERCASE"`
	PasswordRequireNumbers   *bool `envconfig:"PASSWORD_REQUIRE_NUMBERS"`
	PasswordRequireSpecial   *bool `envconfig:"PASSWORD_REQUIRE_SPECIAL_CHARS"`

	HashTime    *uint32 `envconfig:"HASH_TIME"`
	HashMemoryK *uint32 `envconfig:"HASH_MEMORY_KIB"`
	HashThreads *uint8  `envconfig:"HASH_THREADS"`

	LogLevel  *string `envconfig:"LOG_LEVEL"`
	LogFormat *string `envconfig:"LOG_FORMAT"`

	RateLimitEnabled *bool          `envconfig:"RATE_LIMIT_ENABLED"`
	RateLimitMax     *int           `envconfig:"RATE_LIMIT_REQUESTS"`
	RateLimitPeriod  *time.Duration `envconfig:"RATE_LIMIT_PERIOD"`

	SweepInterval *time.Duration `envconfig:"SESSION_SWEEP_INTERVAL"`
}

// parseEnv overlays values from the process environment onto config.
func parseEnv(config *Config) {
	var v envValues
	if err := envconfig.Process("", &v); err != nil {
		panic(err)
	}

	if v.AppName != nil {
		config.AppName = *v.AppName
	}
	if v.Debug != nil {
		config.Debug = *v.Debug
	}
	if v.DatabaseDSN != nil {
		config.DatabaseDSN = *v.DatabaseDSN
	}
	if v.SecretKey != nil {
		config.SecretKey = *v.SecretKey
	}
	if v.AccessTokenValidity != nil {
		config.AccessTokenValidity = *v.AccessTokenValidity
	}
	if v.SessionTTL != nil {
		config.SessionTTL = *v.SessionTTL
	}
	if v.PasswordMinLength != nil {
		config.PasswordMinLength = *v.PasswordMinLength
	}
	if v.PasswordRequireUppercase != nil {
		config.PasswordRequireUppercase = *v.PasswordRequireUppercase
	}
	if v.PasswordRequireNumbers != nil {
		config.PasswordRequireNumbers = *v.PasswordRequireNumbers
	}
	if v.PasswordRequireSpecial != nil {
		config.PasswordRequireSpecial = *v.PasswordRequireSpecial
	}
	if v.HashTime != nil {
		config.HashTime = *v.HashTime
	}
	if v.HashMemoryK != nil {
		config.HashMemoryK = *v.HashMemoryK
	}
	if v.HashThreads != nil {
		config.HashThreads = *v.HashThreads
	}
	if v.LogLevel != nil {
		config.LogLevel = *v.LogLevel
	}
	if v.LogFormat != nil {
		config.LogFormat = *v.LogFormat
	}
	if v.RateLimitEnabled != nil {
		config.RateLimitEnabled = *v.RateLimitEnabled
	}
	if v.RateLimitMax != nil {
		config.RateLimitMax = *v.RateLimitMax
	}
	if v.RateLimitPeriod != nil {
		config.RateLimitPeriod = *v.RateLimitPeriod
	}
	if v.SweepInterval != nil {
		config.SweepInterval = *v.SweepInterval
	}
}
