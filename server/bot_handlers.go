package server

import (
	"net/http"
	"strings"

	"github.com/jrsteele09/go-relay-server/access"
	relayerrors "github.com/jrsteele09/go-relay-server/internal/errors"
	"github.com/pkg/errors"
)

const (
	msgBotActive       = "✅ Bot is active! Go test it."
	msgBotFailed       = "❌ Failed. Check your tokens."
	msgMissingUser     = "⚠️ Please log in first."
	msgMissingCreds    = "⚠️ Bot token and API key are required."
	msgNotApproved     = "⛔ Access has not been approved."
	msgBotStopped      = "🛑 Bot stopped."
	msgNoBotRunning    = "No active bot."
	msgBotNotFound     = "no active bot"
	msgInternalFailure = "Internal Server Error"
	msgBadRequest      = "⚠️ Invalid request."
)

type startBotBody struct {
	UserID           flexibleID `json:"userId"`
	TelegramID       flexibleID `json:"telegramId"`
	BotToken         string     `json:"botToken"`
	CompletionAPIKey string     `json:"completionApiKey"`
	APIKey           string     `json:"apiKey"`
}

type stopBotBody struct {
	UserID     flexibleID `json:"userId"`
	TelegramID flexibleID `json:"telegramId"`
}

// StartBotHandler starts (or replaces) the caller's relay session.
// Missing input is answered with 200 and a message the dashboard shows verbatim.
func (s *Server) StartBotHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body startBotBody
		if err := decodeJSONBody(w, r, &body); err != nil {
			writeJSONMessage(w, http.StatusBadRequest, msgBadRequest)
			return
		}

		userID := firstID(body.UserID, body.TelegramID)
		if userID == "" {
			writeJSONMessage(w, http.StatusOK, msgMissingUser)
			return
		}

		if s.config.GetRequireApproval() {
			status, err := s.deps.Access.CheckStatus(r.Context(), userID)
			if err != nil {
				s.logError(r.Method, r.URL.Path, err.Error())
				writeJSONMessage(w, http.StatusInternalServerError, msgInternalFailure)
				return
			}
			if status != access.StatusApproved {
				writeJSONMessage(w, http.StatusForbidden, msgNotApproved)
				return
			}
		}

		err := s.deps.Sessions.Start(r.Context(), userID, body.BotToken, firstString(body.CompletionAPIKey, body.APIKey))
		switch {
		case errors.Is(err, relayerrors.ErrInvalidCredentials):
			writeJSONMessage(w, http.StatusOK, msgMissingCreds)
			return
		case errors.Is(err, relayerrors.ErrInvalidRequest):
			writeJSONMessage(w, http.StatusOK, msgMissingUser)
			return
		case err != nil:
			s.logError(r.Method, r.URL.Path, err.Error())
			writeJSONMessage(w, http.StatusInternalServerError, msgBotFailed)
			return
		}
		writeJSONMessage(w, http.StatusOK, msgBotActive)
	}
}

func (s *Server) StopBotHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body stopBotBody
		if err := decodeJSONBody(w, r, &body); err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		userID := firstID(body.UserID, body.TelegramID)
		if userID == "" {
			writeJSONError(w, http.StatusBadRequest, "userId is required")
			return
		}
		if s.deps.Sessions.Stop(userID) {
			writeJSONMessage(w, http.StatusOK, msgBotStopped)
			return
		}
		writeJSONMessage(w, http.StatusOK, msgNoBotRunning)
	}
}

func (s *Server) BotStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, ok := s.deps.Sessions.Get(strings.TrimSpace(r.PathValue("userId")))
		if !ok {
			writeJSONError(w, http.StatusNotFound, msgBotNotFound)
			return
		}
		writeJSON(w, http.StatusOK, info)
	}
}
