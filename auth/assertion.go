package auth

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jrsteele09/go-relay-server/internal/errors"
)

const hashField = "hash"

// Assertion is the signed set of identity fields returned by the login widget redirect.
type Assertion struct {
	Fields map[string]string // every field except the hash
	Hash   string
}

// AssertionFromQuery splits a login redirect query into its signed fields and hash.
// Only the first value of a repeated key is kept.
func AssertionFromQuery(q url.Values) Assertion {
	a := Assertion{Fields: make(map[string]string, len(q))}
	for k, v := range q {
		if len(v) == 0 {
			continue
		}
		if k == hashField {
			a.Hash = v[0]
			continue
		}
		a.Fields[k] = v[0]
	}
	return a
}

// UserID is the platform user id carried in the "id" field.
func (a Assertion) UserID() string {
	return a.Fields["id"]
}

// DisplayName prefers the username and falls back to the first and last names.
func (a Assertion) DisplayName() string {
	if u := a.Fields["username"]; u != "" {
		return u
	}
	return strings.TrimSpace(a.Fields["first_name"] + " " + a.Fields["last_name"])
}

// AuthDate is the unix time the identity provider issued the assertion.
func (a Assertion) AuthDate() (time.Time, bool) {
	raw, ok := a.Fields["auth_date"]
	if !ok {
		return time.Time{}, false
	}
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(secs, 0), true
}

// maxClockSkew is how far ahead of our clock an auth_date may be when freshness is checked.
const maxClockSkew = time.Minute

// Verifier checks login assertions against the bot credential.
type Verifier struct {
	secret  []byte
	maxAge  time.Duration
	nowTime func() time.Time
}

// VerifierOption defines a function type to modify the Verifier instance.
type VerifierOption func(*Verifier)

// WithMaxAge rejects assertions whose auth_date is older than maxAge. Zero disables the check.
func WithMaxAge(maxAge time.Duration) VerifierOption {
	return func(v *Verifier) {
		v.maxAge = maxAge
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) VerifierOption {
	return func(v *Verifier) {
		v.nowTime = nowFunc
	}
}

func NewVerifier(secret []byte, options ...VerifierOption) *Verifier {
	v := &Verifier{
		secret:  secret,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(v)
	}
	return v
}

// VerifyAssertion returns nil for a genuine assertion. Every failure wraps errors.ErrVerificationFailed
// except a missing hash, which is reported as MissingHashErr so callers can answer with a client error.
func (v *Verifier) VerifyAssertion(a Assertion) error {
	if a.Hash == "" {
		return MissingHashErr
	}
	if !Verify(a.Fields, a.Hash, v.secret) {
		return errors.ErrVerificationFailed
	}
	if v.maxAge <= 0 {
		return nil
	}
	issued, ok := a.AuthDate()
	now := v.nowTime()
	if !ok || now.Sub(issued) > v.maxAge {
		return fmt.Errorf("%w: %w", errors.ErrVerificationFailed, StaleAssertionErr)
	}
	if issued.After(now.Add(maxClockSkew)) {
		return fmt.Errorf("%w: %w", errors.ErrVerificationFailed, FutureAssertionErr)
	}
	return nil
}
