// Package sessions owns the set of live per-owner bot relay sessions.
package sessions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-relay-server/bot"
	"github.com/jrsteele09/go-relay-server/completion"
	relayerrors "github.com/jrsteele09/go-relay-server/internal/errors"
	"github.com/jrsteele09/go-relay-server/internal/keylock"
	"github.com/jrsteele09/go-relay-server/internal/utils"
	"github.com/jrsteele09/go-relay-server/relay"
	"github.com/jrsteele09/go-relay-server/tracing"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	defaultStopTimeout       = 5 * time.Second
	defaultCompletionTimeout = 60 * time.Second
)

// Manager starts, replaces and stops sessions. Calls for one owner are strictly sequenced; owners never
// contend with each other.
type Manager struct {
	ctx               context.Context
	repo              Repo
	dialer            bot.Dialer
	completions       completion.Factory
	locks             *keylock.Locker
	stopTimeout       time.Duration
	completionTimeout time.Duration
	nowTime           func() time.Time
	log               zerolog.Logger
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

func WithStopTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.stopTimeout = d
		}
	}
}

func WithCompletionTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.completionTimeout = d
		}
	}
}

func WithLogger(l zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.log = l
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

// NewManager creates a manager whose sessions live as long as ctx (the process context), independent of
// the request that started them.
func NewManager(ctx context.Context, repo Repo, dialer bot.Dialer, completions completion.Factory, options ...ManagerOption) *Manager {
	m := &Manager{
		ctx:               ctx,
		repo:              repo,
		dialer:            dialer,
		completions:       completions,
		locks:             keylock.New(),
		stopTimeout:       defaultStopTimeout,
		completionTimeout: defaultCompletionTimeout,
		nowTime:           time.Now,
		log:               log.Logger.With().Str("component", "sessions").Logger(),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Start replaces whatever session ownerID has with one relaying botToken's messages to a completer
// built from apiKey.
//
// Empty credentials fail with ErrInvalidCredentials before anything is touched. Dial or completer
// failures return ErrStartupFailed and leave the owner with no session.
func (m *Manager) Start(ctx context.Context, ownerID, botToken, apiKey string) (err error) {
	ownerID = strings.TrimSpace(ownerID)
	botToken = strings.TrimSpace(botToken)
	apiKey = strings.TrimSpace(apiKey)
	if ownerID == "" {
		return errors.Wrap(relayerrors.ErrInvalidRequest, "[Start] ownerID is required")
	}
	if botToken == "" || apiKey == "" {
		return errors.Wrap(relayerrors.ErrInvalidCredentials, "[Start]")
	}

	unlock := m.locks.Lock(ownerID)
	defer unlock()

	ctx, span := tracing.StartSpan(ctx, "session.start")
	span.WithAttributes(map[string]string{"owner_id": ownerID, "token": utils.Fingerprint(botToken)})
	defer func() { tracing.EndSpan(span, err) }()

	l := m.log.With().Str("owner_id", ownerID).Str("token", utils.Fingerprint(botToken)).Logger()

	if existing, ok := m.repo.Delete(ownerID); ok {
		l.Info().Str("session_id", existing.ID).Msg("stopping previous session")
		existing.Stop()
	}

	if err := m.ctx.Err(); err != nil {
		return fmt.Errorf("[Start] %w: %w", relayerrors.ErrStartupFailed, err)
	}

	client, err := m.dialer.Dial(ctx, botToken)
	if err != nil {
		l.Warn().Err(err).Msg("bot dial failed")
		return fmt.Errorf("[Start] %w: %w", relayerrors.ErrStartupFailed, err)
	}

	completer, err := m.completions.New(apiKey)
	if err != nil {
		_ = client.Close()
		l.Warn().Err(err).Msg("completer setup failed")
		return fmt.Errorf("[Start] %w: %w", relayerrors.ErrStartupFailed, err)
	}

	sessionCtx, cancel := context.WithCancel(m.ctx)
	s := &Session{
		ID:               uuid.NewString(),
		OwnerID:          ownerID,
		TokenFingerprint: utils.Fingerprint(botToken),
		CreatedAt:        m.nowTime(),
		client:           client,
		cancel:           cancel,
		done:             make(chan struct{}),
		stopTimeout:      m.stopTimeout,
	}
	s.log = l.With().Str("session_id", s.ID).Logger()

	r := relay.New(client, completer,
		relay.WithCompletionTimeout(m.completionTimeout),
		relay.WithLogger(s.log),
	)
	s.start(sessionCtx, r, func() { m.ended(s) })

	if previous := m.repo.Swap(ownerID, s); previous != nil && previous != s {
		previous.Stop()
	}
	if !s.Running() {
		m.repo.CompareAndDelete(ownerID, s)
		l.Warn().Msg("update stream ended during startup")
		return fmt.Errorf("[Start] %w: update stream ended", relayerrors.ErrStartupFailed)
	}

	s.log.Info().Msg("session started")
	return nil
}

// ended runs when a session's loop returns, whether it was stopped or its update stream ended.
func (m *Manager) ended(s *Session) {
	if m.repo.CompareAndDelete(s.OwnerID, s) {
		s.log.Warn().Msg("session ended on its own, deregistered")
	}
	s.Stop()
}

// Stop releases ownerID's session. It reports whether there was one; a missing session is not an error.
func (m *Manager) Stop(ownerID string) bool {
	unlock := m.locks.Lock(ownerID)
	defer unlock()

	s, ok := m.repo.Delete(ownerID)
	if !ok {
		return false
	}
	s.Stop()
	return true
}

// StopAll stops every session. Used on process shutdown.
func (m *Manager) StopAll() {
	for _, s := range m.repo.List() {
		m.Stop(s.OwnerID)
	}
}

func (m *Manager) Get(ownerID string) (Info, bool) {
	s, ok := m.repo.Get(ownerID)
	if !ok {
		return Info{}, false
	}
	return s.Info(), true
}

func (m *Manager) List() []Info {
	list := m.repo.List()
	out := make([]Info, 0, len(list))
	for _, s := range list {
		out = append(out, s.Info())
	}
	return out
}
