package engine

import (
	stderrors "errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/mediaflow/errors"
)

const tokenIssuer = "mediaflow"

// ErrStaleToken is returned by Parse, together with the claims, for a
// correctly signed token whose deadline and grace period have passed.
var ErrStaleToken = stderrors.New("callback token expired")

// Claims identify one attempt of one node. The registered ID claim holds
// the attempt token stored in the node state.
type Claims struct {
	ExecutionID string `json:"exec"`
	NodeID      string `json:"node"`
	Attempt     int    `json:"attempt"`
	gojwt.RegisteredClaims
}

// TokenIssuer signs and verifies callback tokens.
type TokenIssuer struct {
	secret []byte
	grace  time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates an HS256 issuer.
func NewTokenIssuer(secret string, grace time.Duration, now func() time.Time) *TokenIssuer {
	if now == nil {
		now = time.Now
	}
	return &TokenIssuer{secret: []byte(secret), grace: grace, now: now}
}

// Issue signs a token for the attempt, valid until deadline plus the grace period.
func (t *TokenIssuer) Issue(executionID, nodeID string, attempt int, attemptToken string, deadline time.Time) (string, error) {
	claims := Claims{
		ExecutionID: executionID,
		NodeID:      nodeID,
		Attempt:     attempt,
		RegisteredClaims: gojwt.RegisteredClaims{
			ID:        attemptToken,
			Issuer:    tokenIssuer,
			Subject:   executionID + "/" + nodeID,
			IssuedAt:  gojwt.NewNumericDate(t.now()),
			ExpiresAt: gojwt.NewNumericDate(deadline.Add(t.grace)),
		},
	}
	signed, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", errors.Internal(fmt.Errorf("signing callback token: %w", err))
	}
	return signed, nil
}

// Parse verifies token and returns its claims. Expired tokens with a valid
// signature yield the claims and ErrStaleToken; anything else that fails
// verification is an INVALID_TOKEN error.
func (t *TokenIssuer) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := gojwt.ParseWithClaims(token, claims, t.key,
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithIssuer(tokenIssuer),
		gojwt.WithExpirationRequired(),
		gojwt.WithTimeFunc(t.now),
	)
	if err != nil {
		if stderrors.Is(err, gojwt.ErrTokenExpired) {
			if expired, ok := t.expired(token); ok {
				return expired, ErrStaleToken
			}
		}
		return nil, errors.InvalidToken(err)
	}
	if !claims.namesAttempt() {
		return nil, errors.InvalidToken(fmt.Errorf("token does not name an attempt"))
	}
	return claims, nil
}

func (t *TokenIssuer) key(*gojwt.Token) (any, error) { return t.secret, nil }

// expired checks the signature and issuer of a token already known to be
// past its expiry.
func (t *TokenIssuer) expired(token string) (*Claims, bool) {
	claims := &Claims{}
	_, err := gojwt.ParseWithClaims(token, claims, t.key,
		gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}),
		gojwt.WithoutClaimsValidation(),
	)
	if err != nil || claims.Issuer != tokenIssuer || !claims.namesAttempt() {
		return nil, false
	}
	return claims, true
}

func (c *Claims) namesAttempt() bool {
	return c.ExecutionID != "" && c.NodeID != "" && c.ID != ""
}
