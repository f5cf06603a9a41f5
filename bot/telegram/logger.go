package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

type botLogger struct {
	log zerolog.Logger
}

func (l botLogger) Println(v ...interface{}) {
	l.log.Warn().Msg(strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

func (l botLogger) Printf(format string, v ...interface{}) {
	l.log.Warn().Msgf(format, v...)
}

// UseLogger routes the SDK's internal logging (poll retries and the like) through l.
func UseLogger(l zerolog.Logger) error {
	return tgbotapi.SetLogger(botLogger{log: l.With().Str("component", "telegram").Logger()})
}
