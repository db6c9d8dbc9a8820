package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func serveAuthenticated(header string) (*httptest.ResponseRecorder, int) {
	seenUserID := 0
	handler := Authenticate(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := GetUserIDFromContext(r.Context())
		if err == nil {
			seenUserID = id
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/tournaments", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, seenUserID
}

func TestAuthenticate(t *testing.T) {
	valid := signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{
		"user_id": 42,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	expired := signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{
		"user_id": 42,
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})
	wrongKey := signToken(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"user_id": 42})
	noUser := signToken(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{"sub": "42"})
	unsigned := signToken(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, jwt.MapClaims{"user_id": 42})

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantUserID int
	}{
		{"valid", "Bearer " + valid, http.StatusNoContent, 42},
		{"lowercase scheme", "bearer " + valid, http.StatusNoContent, 42},
		{"missing header", "", http.StatusUnauthorized, 0},
		{"wrong scheme", "Basic " + valid, http.StatusUnauthorized, 0},
		{"expired", "Bearer " + expired, http.StatusUnauthorized, 0},
		{"wrong key", "Bearer " + wrongKey, http.StatusUnauthorized, 0},
		{"no user claim", "Bearer " + noUser, http.StatusUnauthorized, 0},
		{"alg none", "Bearer " + unsigned, http.StatusUnauthorized, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, userID := serveAuthenticated(tt.header)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantUserID, userID)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Contains(t, rec.Body.String(), `"error"`)
			}
		})
	}
}

func TestGetUserIDFromContext(t *testing.T) {
	_, err := GetUserIDFromContext(context.Background())
	assert.ErrorIs(t, err, ErrNoUserInContext)

	id, err := GetUserIDFromContext(WithUserID(context.Background(), 7))
	require.NoError(t, err)
	assert.Equal(t, 7, id)

	cases := map[string]jwt.MapClaims{
		"fractional": {"user_id": 1.5},
		"zero":       {"user_id": float64(0)},
		"bad string": {"user_id": "abc"},
		"bool":       {"user_id": true},
	}
	for name, claims := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := userIDFromClaims(claims)
			assert.Error(t, err)
		})
	}

	id, err = userIDFromClaims(jwt.MapClaims{"user_id": "15"})
	require.NoError(t, err)
	assert.Equal(t, 15, id)
}
