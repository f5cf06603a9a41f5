package access

import "context"

// Repo stores access records. Implementations must be safe for concurrent use and must
// return errors.ErrNotFound for unknown user ids.
type Repo interface {
	Get(ctx context.Context, userID string) (*Record, error)
	Upsert(ctx context.Context, record *Record) error
}
