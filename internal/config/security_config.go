package config

import "time"

type SecurityConfig interface {
	GetRequireApproval() bool
	GetMaxLoginAge() time.Duration
	GetSessionTokenExpiry() time.Duration
}

type Security struct{}

var _ SecurityConfig = Security{}

// GetRequireApproval gates /start-bot on an approved access request.
func (Security) GetRequireApproval() bool {
	return getBool("REQUIRE_APPROVAL", false)
}

// GetMaxLoginAge bounds how old a login assertion's auth_date may be. Zero disables the check.
func (Security) GetMaxLoginAge() time.Duration {
	return getDuration("MAX_LOGIN_AGE", 0)
}

func (Security) GetSessionTokenExpiry() time.Duration {
	return getDuration("SESSION_TOKEN_EXPIRY", 24*time.Hour)
}
