package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/core"
)

// Claims carried by a bearer token. The subject is the user id; org_id names
// the organization billed for the user's requests.
type Claims struct {
	OrgID  string `json:"org_id"`
	UserID string `json:"user_id,omitempty"`
	jwt.RegisteredClaims
}

// JWTMiddleware validates the Authorization header and attaches the caller's
// principal to the request context.
func JWTMiddleware(secret string) func(http.Handler) http.Handler {
	key := []byte(secret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				unauthorized(w, "missing or invalid token")
				return
			}

			tokenStr := strings.TrimPrefix(auth, "Bearer ")
			claims := &Claims{}
			token, err := parser.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
				return key, nil
			})
			if err != nil || !token.Valid {
				unauthorized(w, "invalid token")
				return
			}

			p, err := principalFrom(claims)
			if err != nil {
				unauthorized(w, err.Error())
				return
			}

			next.ServeHTTP(w, r.WithContext(core.WithPrincipal(r.Context(), p)))
		})
	}
}

func principalFrom(c *Claims) (core.Principal, error) {
	userID := c.Subject
	if userID == "" {
		userID = c.UserID
	}
	if userID == "" || c.OrgID == "" {
		return core.Principal{}, errors.New("invalid token claims")
	}
	return core.Principal{UserID: userID, OrganizationID: c.OrgID}, nil
}

// IssueToken creates a signed HS256 token for p that expires after ttl.
func IssueToken(secret string, p core.Principal, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		OrgID: p.OrganizationID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
