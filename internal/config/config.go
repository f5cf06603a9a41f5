package config

import (
	"fmt"
	"strconv"

	"github.com/jrsteele09/go-relay-server/internal/errors"
)

type Config interface {
	EnvConfig
	SecretConfig
	CorsConfig
	RelayConfig
	StoreConfig
	SecurityConfig
	Validate() error
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetStaticFolder() string
	GetDashboardPath() string
	GetTraceOutput() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Secrets
	Cors
	Relay
	Store
	Security
}

func New() Config {
	return mainConfig{}
}

// Validate reports missing or malformed secret material. The server must not start without it.
func (c mainConfig) Validate() error {
	if c.GetMasterBotToken() == "" {
		return errors.Wrapf(errors.ErrMissingSecret, "%s is not set", masterBotTokenVar)
	}
	raw := GetEnv(adminChatIDVar, "")
	if raw == "" {
		return errors.Wrapf(errors.ErrMissingSecret, "%s is not set", adminChatIDVar)
	}
	if _, err := strconv.ParseInt(raw, 10, 64); err != nil {
		return fmt.Errorf("%s must be a numeric chat id: %w", adminChatIDVar, err)
	}
	return nil
}
