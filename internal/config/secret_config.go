package config

import "strconv"

const (
	masterBotTokenVar = "MASTER_BOT_TOKEN"
	adminChatIDVar    = "ADMIN_CHAT_ID"
)

type SecretConfig interface {
	GetMasterBotToken() string
	GetAdminChatID() int64
}

type Secrets struct{}

var _ SecretConfig = Secrets{}

// GetMasterBotToken is the admin bot credential. It also derives the login signing key.
func (Secrets) GetMasterBotToken() string {
	return GetEnv(masterBotTokenVar, "")
}

// GetAdminChatID returns 0 when the value is missing or malformed; Validate reports that case.
func (Secrets) GetAdminChatID() int64 {
	id, err := strconv.ParseInt(GetEnv(adminChatIDVar, ""), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
