// Package token issues and checks the dashboard session token set after a verified login.
package token

import (
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrRevoked      = errors.New("session token revoked")
)

// Identity is what a valid session token asserts.
type Identity struct {
	UserID    string    `json:"userId"`
	Name      string    `json:"name,omitempty"`
	TokenID   string    `json:"-"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Issuer creates and verifies HS256 session tokens.
type Issuer struct {
	signer  Signer
	expiry  time.Duration
	logouts LogoutList
	nowTime func() time.Time
}

type IssuerOption func(*Issuer)

func WithLogoutList(l LogoutList) IssuerOption {
	return func(i *Issuer) {
		i.logouts = l
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.nowTime = nowFunc
	}
}

func NewIssuer(signer Signer, expiry time.Duration, opts ...IssuerOption) *Issuer {
	i := &Issuer{
		signer:  signer,
		expiry:  expiry,
		logouts: NewMemoryLogoutList(),
		nowTime: time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Issue signs a token for userID. The returned time is the token's expiry.
func (i *Issuer) Issue(userID, name string) (string, time.Time, error) {
	if strings.TrimSpace(userID) == "" {
		return "", time.Time{}, errors.New("[Issue] userID is required")
	}
	now := i.nowTime()
	exp := now.Add(i.expiry)
	claims := jwtlib.MapClaims{
		"sub":  userID,
		"name": name,
		"iat":  now.Unix(),
		"exp":  exp.Unix(),
		"jti":  uuid.New().String(),
	}
	signed, err := i.signer.Sign(claims)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "[Issue]")
	}
	return signed, exp, nil
}

// Parse verifies raw and returns its identity. Expired, tampered, and revoked tokens are rejected.
func (i *Issuer) Parse(raw string) (*Identity, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrInvalidToken
	}

	parser := jwtlib.NewParser(
		jwtlib.WithValidMethods([]string{i.signer.GetSigningMethod().Alg()}),
		jwtlib.WithTimeFunc(i.nowTime),
		jwtlib.WithExpirationRequired(),
	)
	tok, err := parser.ParseWithClaims(raw, jwtlib.MapClaims{}, i.signer.GetVerificationKey)
	if err != nil || !tok.Valid {
		return nil, errors.Wrapf(ErrInvalidToken, "%v", err)
	}

	claims, ok := tok.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, errors.Wrap(ErrInvalidToken, "missing subject")
	}
	jti, _ := claims["jti"].(string)
	if jti != "" && i.logouts.Contains(jti, i.nowTime()) {
		return nil, ErrRevoked
	}

	identity := &Identity{UserID: sub, TokenID: jti}
	identity.Name, _ = claims["name"].(string)
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		identity.IssuedAt = iat.Time
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		identity.ExpiresAt = exp.Time
	}
	return identity, nil
}

// Revoke invalidates raw until it expires. Invalid tokens are ignored.
func (i *Issuer) Revoke(raw string) error {
	identity, err := i.Parse(raw)
	if err != nil {
		return nil
	}
	return i.logouts.Add(identity.TokenID, identity.ExpiresAt)
}
