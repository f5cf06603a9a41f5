package sessions

// Repo holds at most one live session per owner. Implementations must be safe for concurrent use and
// every mutation must be atomic for readers.
type Repo interface {
	// Swap registers s for its owner and returns the session it displaced, if any.
	Swap(ownerID string, s *Session) (previous *Session)

	// Get returns the owner's session.
	Get(ownerID string) (*Session, bool)

	// Delete unregisters and returns the owner's session.
	Delete(ownerID string) (*Session, bool)

	// CompareAndDelete unregisters s only if it is still the owner's current session.
	CompareAndDelete(ownerID string, s *Session) bool

	// List returns every registered session.
	List() []*Session
}
