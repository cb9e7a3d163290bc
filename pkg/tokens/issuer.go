package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrTokenInvalid = errors.New("token invalid")

// IssuedClaims is the payload written by [Issuer]. `role` and `exp` are the
// two fields [Decode] reads back on the client side.
type IssuedClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs HS256 credentials. It stands in for the remote backend in
// development servers and tests; the admin console itself never holds a key.
type Issuer struct {
	signingKey   []byte
	issuerDomain string
}

func NewIssuer(signingKey []byte, issuerDomain string) *Issuer {
	return &Issuer{
		signingKey:   signingKey,
		issuerDomain: issuerDomain,
	}
}

func (issuer *Issuer) Issue(
	subject string,
	role string,
	lifetime time.Duration,
) (string, time.Time, error) {

	now := time.Now()
	exp := now.Add(lifetime)
	claims := IssuedClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer.issuerDomain,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	encoded, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(issuer.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign credential: %v", err)
	}
	return encoded, exp, nil
}

// Verify is the server side check: signature, issuer and expiry.
func (issuer *Issuer) Verify(credential string) (*IssuedClaims, error) {
	claims := &IssuedClaims{}
	_, err := jwt.ParseWithClaims(
		credential,
		claims,
		func(*jwt.Token) (any, error) { return issuer.signingKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer.issuerDomain),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	return claims, nil
}
