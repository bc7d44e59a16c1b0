package utils

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/support-tickets/internal/model"
)

const testSecret = "test-secret"

var carol = model.Identity{SubjectID: "u-carol", Email: "carol@example.com"}

func TestVerifyToken_RoundTrip(t *testing.T) {
	tok, err := NewAccessToken(testSecret, carol, TokenOptions{Issuer: "idp", Audience: "tickets", TTL: time.Minute})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), tok.Exp, 5*time.Second)

	v := NewJWTVerifier(testSecret, "idp", "tickets")
	got, err := v.VerifyToken(context.Background(), tok.Token)
	require.NoError(t, err)
	assert.Equal(t, carol, got)
}

func TestVerifyToken_Rejects(t *testing.T) {
	sign := func(claims jwt.Claims, method jwt.SigningMethod, key any) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	now := time.Now()
	valid := func() IdentityClaims {
		return IdentityClaims{
			Email: carol.Email,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   carol.SubjectID,
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		}
	}

	expired := valid()
	expired.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute))
	noExp := valid()
	noExp.ExpiresAt = nil
	noSub := valid()
	noSub.Subject = ""
	wrongIssuer := valid()
	wrongIssuer.Issuer = "someone-else"

	tests := []struct {
		name     string
		token    string
		verifier *JWTVerifier
	}{
		{"malformed", "not.a.jwt", NewJWTVerifier(testSecret, "", "")},
		{"wrong secret", sign(valid(), jwt.SigningMethodHS256, []byte("other")), NewJWTVerifier(testSecret, "", "")},
		{"expired", sign(expired, jwt.SigningMethodHS256, []byte(testSecret)), NewJWTVerifier(testSecret, "", "")},
		{"no expiry", sign(noExp, jwt.SigningMethodHS256, []byte(testSecret)), NewJWTVerifier(testSecret, "", "")},
		{"no subject", sign(noSub, jwt.SigningMethodHS256, []byte(testSecret)), NewJWTVerifier(testSecret, "", "")},
		{"wrong algorithm", sign(valid(), jwt.SigningMethodHS512, []byte(testSecret)), NewJWTVerifier(testSecret, "", "")},
		{"unsigned", sign(valid(), jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType), NewJWTVerifier(testSecret, "", "")},
		{"wrong issuer", sign(wrongIssuer, jwt.SigningMethodHS256, []byte(testSecret)), NewJWTVerifier(testSecret, "idp", "")},
		{"missing audience", sign(valid(), jwt.SigningMethodHS256, []byte(testSecret)), NewJWTVerifier(testSecret, "", "tickets")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.verifier.VerifyToken(context.Background(), tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestNewAccessToken_DefaultTTL(t *testing.T) {
	tok, err := NewAccessToken(testSecret, carol, TokenOptions{})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), tok.Exp, 5*time.Second)
}
