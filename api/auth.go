/*
auth.go - Admin authentication for the back-office endpoints

PURPOSE:
  The public booking surface is anonymous by design: possession of a
  capability token is the only authorization on the self-service path.
  The admin surface is different - it is guarded by a shared password
  exchanged for a short-lived HMAC-signed JWT.

FLOW:
  1. POST /api/admin/login with the shared password
  2. Receive a bearer token
  3. Send "Authorization: Bearer <token>" on every admin request

SEE ALSO:
  - server.go: Mounts AdminJWT on the /api/admin subtree
*/
package api

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Login exchanges the shared admin password for a signed bearer token.
// POST /api/admin/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if h.cfg.AdminPassword == "" || h.cfg.AdminJWTSecret == "" {
		writeError(w, http.StatusServiceUnavailable, "Admin access is not configured", nil)
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.cfg.AdminPassword)) != 1 {
		writeError(w, http.StatusUnauthorized, "Invalid credentials", nil)
		return
	}

	expiresAt := time.Now().Add(h.cfg.AdminTokenTTL)
	claims := jwt.RegisteredClaims{
		Subject:   "admin",
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(h.cfg.AdminJWTSecret))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to sign token", err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:     signed,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	})
}

// AdminJWT enforces a simple HMAC-signed JWT for admin endpoints.
func AdminJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				writeError(w, http.StatusUnauthorized, "Admin auth disabled", nil)
				return
			}
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "Missing authorization header", nil)
				return
			}
			tokenString := strings.TrimPrefix(auth, "Bearer ")
			claims := jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				writeError(w, http.StatusUnauthorized, "Invalid token", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
