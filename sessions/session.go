package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-relay-server/bot"
	"github.com/jrsteele09/go-relay-server/relay"
	"github.com/rs/zerolog"
)

// Session is one owner's live relay: a bot connection plus the goroutine draining its updates.
type Session struct {
	ID               string
	OwnerID          string
	TokenFingerprint string // never the token itself
	CreatedAt        time.Time

	client      bot.Client
	cancel      context.CancelFunc
	done        chan struct{}
	stopOnce    sync.Once
	stopTimeout time.Duration
	log         zerolog.Logger
}

// Info is the read-only view of a session exposed to callers.
type Info struct {
	ID               string    `json:"id"`
	OwnerID          string    `json:"ownerId"`
	TokenFingerprint string    `json:"tokenFingerprint"`
	CreatedAt        time.Time `json:"createdAt"`
	Running          bool      `json:"running"`
}

func (s *Session) Info() Info {
	return Info{
		ID:               s.ID,
		OwnerID:          s.OwnerID,
		TokenFingerprint: s.TokenFingerprint,
		CreatedAt:        s.CreatedAt,
		Running:          s.Running(),
	}
}

// Running reports whether the receive loop is still active.
func (s *Session) Running() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// Done closes once the receive loop has returned.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// start launches the receive loop. onExit runs after the loop returns.
func (s *Session) start(ctx context.Context, r *relay.Relay, onExit func()) {
	go func() {
		defer func() {
			close(s.done)
			onExit()
		}()
		r.Run(ctx)
	}()
}

// Stop cancels the loop, releases the connection, and waits up to the stop timeout for the loop to exit.
// Safe to call more than once.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		if err := s.client.Close(); err != nil {
			s.log.Warn().Err(err).Msg("closing bot connection")
		}
		select {
		case <-s.done:
		case <-time.After(s.stopTimeout):
			s.log.Warn().Dur("timeout", s.stopTimeout).Msg("session loop did not exit in time")
		}
		s.log.Info().Msg("session stopped")
	})
}
