package access

import (
	"context"
	"fmt"
	"strings"
	"time"

	relayerrors "github.com/jrsteele09/go-relay-server/internal/errors"
	"github.com/jrsteele09/go-relay-server/internal/keylock"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Notifier delivers an access request to the administrator.
type Notifier interface {
	NotifyAccessRequest(ctx context.Context, req Request) error
}

// StatusPublisher receives every status change. Publishing is advisory; failures are only logged.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, change StatusChange) error
}

// Registry owns the approval state machine: none -> pending -> approved | declined.
// Decisions are not terminal; a later Resolve overwrites an earlier one.
type Registry struct {
	repo      Repo
	notifier  Notifier
	publisher StatusPublisher
	locks     *keylock.Locker
	nowTime   func() time.Time
	log       zerolog.Logger
}

// RegistryOption defines a function type to modify the Registry instance.
type RegistryOption func(*Registry)

func WithPublisher(p StatusPublisher) RegistryOption {
	return func(r *Registry) {
		r.publisher = p
	}
}

func WithLogger(l zerolog.Logger) RegistryOption {
	return func(r *Registry) {
		r.log = l
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) RegistryOption {
	return func(r *Registry) {
		r.nowTime = nowFunc
	}
}

func NewRegistry(repo Repo, notifier Notifier, options ...RegistryOption) (*Registry, error) {
	if repo == nil {
		return nil, errors.New("[NewRegistry] repo is required")
	}
	if notifier == nil {
		return nil, errors.New("[NewRegistry] notifier is required")
	}

	r := &Registry{
		repo:     repo,
		notifier: notifier,
		locks:    keylock.New(),
		nowTime:  time.Now,
		log:      log.Logger.With().Str("component", "access").Logger(),
	}
	for _, opt := range options {
		opt(r)
	}
	return r, nil
}

// RequestAccess moves the user to pending and prompts the administrator.
//
// An approved user gets StatusApproved back and no prompt. A pending user whose prompt was
// already delivered gets StatusPending back and no new prompt. Everyone else (new, declined,
// or pending after a failed delivery) is prompted again. A delivery failure keeps the user
// pending and wraps ErrNotificationDeliveryFailed.
func (r *Registry) RequestAccess(ctx context.Context, userID, displayName string) (Status, error) {
	if strings.TrimSpace(userID) == "" {
		return StatusNone, errors.Wrap(relayerrors.ErrInvalidRequest, "[RequestAccess] userID is required")
	}

	unlock := r.locks.Lock(userID)
	defer unlock()

	current, err := r.load(ctx, userID)
	if err != nil {
		return StatusNone, errors.Wrap(err, "[RequestAccess] load")
	}

	switch {
	case current.Status == StatusApproved:
		return StatusApproved, nil
	case current.Status == StatusPending && current.Notified:
		return StatusPending, nil
	}

	now := r.nowTime()
	record := &Record{
		UserID:      userID,
		DisplayName: displayName,
		Status:      StatusPending,
		RequestedAt: now,
		UpdatedAt:   now,
	}
	if err := r.repo.Upsert(ctx, record); err != nil {
		return current.Status, errors.Wrap(err, "[RequestAccess] store pending")
	}
	r.publish(ctx, userID, current.Status, StatusPending, now)

	if err := r.notifier.NotifyAccessRequest(ctx, Request{UserID: userID, DisplayName: displayName}); err != nil {
		r.log.Error().Err(err).Str("user_id", userID).Msg("access request notification failed")
		return StatusPending, fmt.Errorf("[RequestAccess] %w: %w", relayerrors.ErrNotificationDeliveryFailed, err)
	}

	record.Notified = true
	if err := r.repo.Upsert(ctx, record); err != nil {
		// The user stays pending without the delivered flag, so a re-request prompts again.
		r.log.Warn().Err(err).Str("user_id", userID).Msg("failed to record notification delivery")
	}
	return StatusPending, nil
}

// CheckStatus returns StatusNone for users that never requested access.
func (r *Registry) CheckStatus(ctx context.Context, userID string) (Status, error) {
	record, err := r.load(ctx, userID)
	if err != nil {
		return StatusNone, errors.Wrap(err, "[CheckStatus] load")
	}
	return record.Status, nil
}

// Resolve overwrites the user's status with the administrator's decision and returns the previous
// status. Replaying the same decision leaves the same end state.
func (r *Registry) Resolve(ctx context.Context, userID string, decision Status) (Status, error) {
	if !decision.IsDecision() {
		return StatusNone, errors.Wrapf(relayerrors.ErrInvalidDecision, "[Resolve] %q", decision)
	}
	if strings.TrimSpace(userID) == "" {
		return StatusNone, errors.Wrap(relayerrors.ErrInvalidRequest, "[Resolve] userID is required")
	}

	unlock := r.locks.Lock(userID)
	defer unlock()

	current, err := r.load(ctx, userID)
	if err != nil {
		return StatusNone, errors.Wrap(err, "[Resolve] load")
	}

	previous := current.Status
	now := r.nowTime()
	record := *current
	record.Status = decision
	record.UpdatedAt = now
	if err := r.repo.Upsert(ctx, &record); err != nil {
		return previous, errors.Wrap(err, "[Resolve] store decision")
	}

	r.log.Info().Str("user_id", userID).Str("previous", string(previous)).Str("status", string(decision)).Msg("access resolved")
	r.publish(ctx, userID, previous, decision, now)
	return previous, nil
}

func (r *Registry) load(ctx context.Context, userID string) (*Record, error) {
	record, err := r.repo.Get(ctx, userID)
	if errors.Is(err, relayerrors.ErrNotFound) {
		return &Record{UserID: userID, Status: StatusNone}, nil
	}
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *Registry) publish(ctx context.Context, userID string, previous, status Status, at time.Time) {
	if r.publisher == nil || previous == status {
		return
	}
	change := StatusChange{UserID: userID, Previous: previous, Status: status, At: at}
	if err := r.publisher.PublishStatus(ctx, change); err != nil {
		r.log.Warn().Err(err).Str("user_id", userID).Msg("status change not published")
	}
}
