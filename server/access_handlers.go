package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jrsteele09/go-relay-server/access"
	relayerrors "github.com/jrsteele09/go-relay-server/internal/errors"
	"github.com/pkg/errors"
)

type requestAccessBody struct {
	UserID      flexibleID `json:"userId"`
	TelegramID  flexibleID `json:"telegramId"`
	DisplayName string     `json:"displayName"`
	Username    string     `json:"username"`
}

type statusResponse struct {
	UserID string        `json:"userId,omitempty"`
	Status access.Status `json:"status"`
}

// RequestAccessHandler asks the administrator to approve the user. Approved users are answered at once.
func (s *Server) RequestAccessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body requestAccessBody
		if err := decodeJSONBody(w, r, &body); err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}

		userID := firstID(body.UserID, body.TelegramID)
		displayName := firstString(body.DisplayName, body.Username)
		if userID == "" {
			// A logged in dashboard may omit the body fields.
			if identity, err := s.deps.Tokens.Parse(sessionToken(r)); err == nil {
				userID = identity.UserID
				displayName = firstString(displayName, identity.Name)
			}
		}
		if userID == "" {
			writeJSONError(w, http.StatusBadRequest, "userId is required")
			return
		}

		status, err := s.deps.Access.RequestAccess(r.Context(), userID, displayName)
		switch {
		case errors.Is(err, relayerrors.ErrNotificationDeliveryFailed):
			writeJSONError(w, http.StatusInternalServerError, "Failed to notify admin")
			return
		case errors.Is(err, relayerrors.ErrInvalidRequest):
			writeJSONError(w, http.StatusBadRequest, "userId is required")
			return
		case err != nil:
			s.logError(r.Method, r.URL.Path, err.Error())
			writeJSONError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		writeJSON(w, http.StatusOK, statusResponse{Status: status})
	}
}

// CheckStatusHandler reports the user's access status; unknown users are "none".
func (s *Server) CheckStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.PathValue("userId"))
		status, err := s.deps.Access.CheckStatus(r.Context(), userID)
		if err != nil {
			s.logError(r.Method, r.URL.Path, err.Error())
			writeJSONError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		writeJSON(w, http.StatusOK, statusResponse{Status: status})
	}
}

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

// StatusStreamHandler upgrades to a websocket that sends the current status, then every change.
func (s *Server) StatusStreamHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.PathValue("userId"))
		if userID == "" {
			writeJSONError(w, http.StatusBadRequest, "userId is required")
			return
		}

		conn, err := s.upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already written the error response.
			s.log.Debug().Err(err).Msg("websocket upgrade failed")
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		changes, err := s.deps.Status.SubscribeStatus(ctx, userID)
		if err != nil {
			s.log.Error().Err(err).Msg("status subscription failed")
			return
		}

		// Reader: handles pongs and notices the client going away.
		go func() {
			defer cancel()
			conn.SetReadLimit(512)
			_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
			conn.SetPongHandler(func(string) error {
				return conn.SetReadDeadline(time.Now().Add(wsPongWait))
			})
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		status, err := s.deps.Access.CheckStatus(ctx, userID)
		if err != nil {
			s.log.Error().Err(err).Msg("status lookup failed")
			return
		}
		if err := writeWS(conn, statusResponse{UserID: userID, Status: status}); err != nil {
			return
		}

		ping := time.NewTicker(wsPingPeriod)
		defer ping.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case change, ok := <-changes:
				if !ok {
					return
				}
				if err := writeWS(conn, statusResponse{UserID: change.UserID, Status: change.Status}); err != nil {
					return
				}
			case <-ping.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
					return
				}
			}
		}
	}
}

func writeWS(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(v)
}
