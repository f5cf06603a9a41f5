// Package server is the HTTP transport over the login verifier, the access registry and the session manager.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/jrsteele09/go-relay-server/access"
	"github.com/jrsteele09/go-relay-server/auth"
	"github.com/jrsteele09/go-relay-server/internal/config"
	"github.com/jrsteele09/go-relay-server/sessions"
	"github.com/jrsteele09/go-relay-server/token"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// AccessService is the part of access.Registry the HTTP layer uses.
type AccessService interface {
	RequestAccess(ctx context.Context, userID, displayName string) (access.Status, error)
	CheckStatus(ctx context.Context, userID string) (access.Status, error)
}

// SessionService is the part of sessions.Manager the HTTP layer uses.
type SessionService interface {
	Start(ctx context.Context, ownerID, botToken, apiKey string) error
	Stop(ownerID string) bool
	Get(ownerID string) (sessions.Info, bool)
}

// StatusSubscriber streams access status changes for one user.
type StatusSubscriber interface {
	SubscribeStatus(ctx context.Context, userID string) (<-chan access.StatusChange, error)
}

// Deps are the services the server routes to. Status is optional; without it the websocket route is not served.
type Deps struct {
	Verifier *auth.Verifier
	Access   AccessService
	Sessions SessionService
	Tokens   *token.Issuer
	Status   StatusSubscriber
}

type Server struct {
	env        string // Environment (e.g., "DEV", "PROD")
	mux        *http.ServeMux
	routes     []string
	fileServer http.Handler
	config     config.Config
	deps       Deps
	upgrader   websocket.Upgrader
	log        zerolog.Logger
}

func New(config config.Config, deps Deps) (*Server, error) {
	switch {
	case deps.Verifier == nil:
		return nil, errors.New("[Server New] verifier is required")
	case deps.Access == nil:
		return nil, errors.New("[Server New] access service is required")
	case deps.Sessions == nil:
		return nil, errors.New("[Server New] session service is required")
	case deps.Tokens == nil:
		return nil, errors.New("[Server New] token issuer is required")
	}

	s := &Server{
		env:        config.GetEnv(),
		mux:        http.NewServeMux(),
		config:     config,
		deps:       deps,
		fileServer: FileServerHandler(config.GetStaticFolder()),
		log:        log.Logger.With().Str("component", "server").Logger(),
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkWebsocketOrigin}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			s.logRoute(parts[0], parts[1])
		} else {
			s.logRoute("", parts[0])
		}
	}
}

func (s *Server) logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	s.log.Info().Msgf("[%-19s] %s", displayMethod, path)
}

func (s *Server) logError(method, path, error string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	s.log.Error().Msgf("[%-19s] %s %s", displayMethod, path, Red+error+ResetColor)
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
