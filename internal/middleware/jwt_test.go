package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/support-tickets/internal/model"
)

// stubVerifier accepts exactly one token.
type stubVerifier struct {
	token string
	id    model.Identity
	calls int
}

func (s *stubVerifier) VerifyToken(_ context.Context, token string) (model.Identity, error) {
	s.calls++
	if token != s.token {
		return model.Identity{}, errors.New("signature is invalid: secret detail")
	}
	return s.id, nil
}

func serve(t *testing.T, v Verifier, header string) (*httptest.ResponseRecorder, *model.Identity) {
	t.Helper()
	e := echo.New()
	var seen *model.Identity
	e.GET("/protected", func(c echo.Context) error {
		id, ok := IdentityFrom(c.Request().Context())
		require.True(t, ok)
		assert.Equal(t, id.SubjectID, c.Get("user_id"))
		assert.Equal(t, id.Email, c.Get("email"))
		seen = &id
		return c.NoContent(http.StatusNoContent)
	}, Auth(v, nil))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec, seen
}

func TestAuth_MissingOrMalformedHeader(t *testing.T) {
	for _, header := range []string{"", "Basic dXNlcjpwYXNz", "Bearer", "Bearer ", "bearer good", "Token good"} {
		t.Run(header, func(t *testing.T) {
			v := &stubVerifier{token: "good", id: model.Identity{SubjectID: "u1"}}
			rec, seen := serve(t, v, header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"error":"Unauthorized: No token provided"}`, rec.Body.String())
			assert.Nil(t, seen)
			assert.Zero(t, v.calls, "verifier must not be called")
		})
	}
}

func TestAuth_InvalidToken(t *testing.T) {
	v := &stubVerifier{token: "good", id: model.Identity{SubjectID: "u1"}}
	rec, seen := serve(t, v, "Bearer bad")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Unauthorized: Invalid token"}`, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "secret detail")
	assert.Nil(t, seen)
	assert.Equal(t, 1, v.calls)
}

func TestAuth_EmptySubjectRejected(t *testing.T) {
	v := &stubVerifier{token: "good", id: model.Identity{Email: "x@example.com"}}
	rec, _ := serve(t, v, "Bearer good")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuth_BindsIdentity(t *testing.T) {
	want := model.Identity{SubjectID: "u1", Email: "u1@example.com"}
	v := &stubVerifier{token: "good", id: want}
	rec, seen := serve(t, v, "Bearer good")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, want, *seen)
}

func TestIdentityFrom_Unbound(t *testing.T) {
	_, ok := IdentityFrom(context.Background())
	assert.False(t, ok)
}
