package utils // package utils provides identity token issuing and verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating and parsing signed tokens

	"github.com/iliyamo/support-tickets/internal/model"
)

// ErrInvalidToken wraps every verification failure.  The wrapped cause is
// meant for server logs only.
var ErrInvalidToken = errors.New("invalid identity token")

// IdentityClaims are the claims carried by an identity token: the standard
// registered claims plus the caller's email.
type IdentityClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// AccessToken represents a signed identity token along with its expiry.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// TokenOptions controls the optional claims of an issued token.
type TokenOptions struct {
	Issuer   string
	Audience string
	TTL      time.Duration
}

// NewAccessToken builds and signs an HS256 JWT for a subject.  The token
// carries sub, email, exp and iat, plus iss and aud when set.
func NewAccessToken(secret string, id model.Identity, opts TokenOptions) (AccessToken, error) {
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	now := time.Now().UTC()
	exp := now.Add(opts.TTL)
	claims := IdentityClaims{
		Email: id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.SubjectID,
			Issuer:    opts.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	if opts.Audience != "" {
		claims.Audience = jwt.ClaimStrings{opts.Audience}
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// JWTVerifier validates HS256 identity tokens signed with a shared secret.
// It is safe for concurrent use.
type JWTVerifier struct {
	secret  []byte
	options []jwt.ParserOption
}

// NewJWTVerifier returns a verifier for the given secret.  Issuer and
// audience are enforced only when non-empty.
func NewJWTVerifier(secret, issuer, audience string) *JWTVerifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	return &JWTVerifier{secret: []byte(secret), options: opts}
}

// VerifyToken checks the signature and claims of raw and returns the
// identity it asserts.  Expired, malformed, wrongly signed and subject-less
// tokens all fail with an error wrapping ErrInvalidToken.
func (v *JWTVerifier) VerifyToken(_ context.Context, raw string) (model.Identity, error) {
	claims := &IdentityClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, v.options...)
	if err != nil {
		return model.Identity{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !tok.Valid {
		return model.Identity{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return model.Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return model.Identity{SubjectID: claims.Subject, Email: claims.Email}, nil
}
