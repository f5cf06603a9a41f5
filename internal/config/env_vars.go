package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	portEnvVar      = "PORT"
	appNameVar      = "APP_NAME"
	logLevelVar     = "LOG_LEVEL"
	staticFolderVar = "STATIC_FOLDER"
	dashboardVar    = "DASHBOARD_PATH"
	traceOutputVar  = "TRACE_OUTPUT"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Bot Relay")
}

func (EnvVars) GetEnv() string {
	return GetEnv("ENV", "DEV")
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

// GetStaticFolder is the folder the dashboard pages are served from.
func (EnvVars) GetStaticFolder() string {
	return GetEnv(staticFolderVar, "./public")
}

// GetDashboardPath is where a verified login is redirected to.
func (EnvVars) GetDashboardPath() string {
	return GetEnv(dashboardVar, "/dashboard.html")
}

// GetTraceOutput selects the span exporter target: "" disables tracing, "stdout" or a file path enables it.
func (EnvVars) GetTraceOutput() string {
	return GetEnv(traceOutputVar, "")
}

// GetEnv resolves a setting from the process environment first, then the loaded config file, then the default.
func GetEnv(envVar, defaultValue string) string {
	if value := os.Getenv(envVar); value != "" {
		return value
	}
	if value, ok := fileValue(envVar); ok && value != "" {
		return value
	}
	return defaultValue
}

func getDuration(envVar string, defaultValue time.Duration) time.Duration {
	raw := GetEnv(envVar, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return defaultValue
	}
	return d
}

func getBool(envVar string, defaultValue bool) bool {
	raw := GetEnv(envVar, "")
	if raw == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return defaultValue
	}
	return b
}

func getInt(envVar string, defaultValue int) int {
	raw := GetEnv(envVar, "")
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return n
}
