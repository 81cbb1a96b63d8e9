package sep10

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"anchorgate/pkg/seperror"
)

// claims adds the SEP-10 specific claims to the registered set.
type claims struct {
	HomeDomain   string `json:"home_domain,omitempty"`
	ClientDomain string `json:"client_domain,omitempty"`
	jwt.RegisteredClaims
}

// Verifier validates anchor-issued SEP-10 JWTs.
type Verifier struct {
	signingKey []byte
	issuer     string
}

// NewVerifier builds a Verifier for HS256 tokens signed with signingKey.
// issuer is enforced when non-empty.
func NewVerifier(signingKey, issuer string) *Verifier {
	return &Verifier{signingKey: []byte(signingKey), issuer: issuer}
}

// Verify parses and validates a bearer token string and extracts the
// caller's Stellar identity.
func (v *Verifier) Verify(tokenString string) (*Token, error) {
	var c claims
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	_, err := jwt.ParseWithClaims(tokenString, &c, func(t *jwt.Token) (any, error) {
		return v.signingKey, nil
	}, opts...)
	if err != nil {
		return nil, seperror.NotAuthorized(fmt.Sprintf("invalid token: %v", err))
	}

	token, err := tokenFromSubject(c.Subject)
	if err != nil {
		return nil, err
	}
	token.HomeDomain = c.HomeDomain
	token.ClientDomain = c.ClientDomain
	return token, nil
}
