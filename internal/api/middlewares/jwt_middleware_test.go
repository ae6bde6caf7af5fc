package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/core"
)

const secret = "test-secret"

func serve(t *testing.T, header string) (*httptest.ResponseRecorder, core.Principal) {
	t.Helper()
	var got core.Principal
	h := JWTMiddleware(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = core.PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, got
}

func TestJWTMiddlewareAcceptsIssuedToken(t *testing.T) {
	token, err := IssueToken(secret, core.Principal{UserID: "u1", OrganizationID: "o1"}, time.Hour)
	require.NoError(t, err)

	rec, p := serve(t, "Bearer "+token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, core.Principal{UserID: "u1", OrganizationID: "o1"}, p)
}

func TestJWTMiddlewareAcceptsLegacyUserIDClaim(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "u2",
		"org_id":  "o2",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	rec, p := serve(t, "Bearer "+token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "u2", p.UserID)
}

func TestJWTMiddlewareRejects(t *testing.T) {
	expired, err := IssueToken(secret, core.Principal{UserID: "u", OrganizationID: "o"}, -time.Minute)
	require.NoError(t, err)
	wrongKey, err := IssueToken("other", core.Principal{UserID: "u", OrganizationID: "o"}, time.Hour)
	require.NoError(t, err)
	noOrg, err := IssueToken(secret, core.Principal{UserID: "u"}, time.Hour)
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing":    "",
		"not bearer": "Basic abc",
		"garbage":    "Bearer not-a-token",
		"expired":    "Bearer " + expired,
		"wrong key":  "Bearer " + wrongKey,
		"no org":     "Bearer " + noOrg,
	} {
		t.Run(name, func(t *testing.T) {
			rec, _ := serve(t, header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}
