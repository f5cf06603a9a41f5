package config

import "time"

type RelayConfig interface {
	GetCompletionBaseURL() string
	GetCompletionModel() string
	GetCompletionTimeout() time.Duration
	GetBotPollTimeout() time.Duration
	GetSessionStopTimeout() time.Duration
}

type Relay struct{}

var _ RelayConfig = Relay{}

func (Relay) GetCompletionBaseURL() string {
	return GetEnv("COMPLETION_BASE_URL", "https://api.deepseek.com")
}

func (Relay) GetCompletionModel() string {
	return GetEnv("COMPLETION_MODEL", "deepseek-chat")
}

func (Relay) GetCompletionTimeout() time.Duration {
	return getDuration("COMPLETION_TIMEOUT", 60*time.Second)
}

// GetBotPollTimeout is the long-poll window used when receiving bot updates.
func (Relay) GetBotPollTimeout() time.Duration {
	return getDuration("BOT_POLL_TIMEOUT", 30*time.Second)
}

func (Relay) GetSessionStopTimeout() time.Duration {
	return getDuration("SESSION_STOP_TIMEOUT", 5*time.Second)
}
