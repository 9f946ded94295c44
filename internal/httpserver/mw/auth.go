package mw

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/markitapp/markit/internal/domain"
	"github.com/markitapp/markit/internal/logger"
)

type contextKey string

const userContextKey contextKey = "user"

// TokenClaims is the payload of the HS256 session token issued by the
// auth frontend. Only access tokens are accepted here.
type TokenClaims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

// Auth returns a middleware that requires a valid Bearer token and
// puts the authenticated user into the request context.
func Auth(secret []byte, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				// Browsers cannot set headers on websocket upgrades, so
				// the stream endpoint passes the token as a query param.
				if t := r.URL.Query().Get("token"); t != "" {
					authHeader = "Bearer " + t
				}
			}
			if authHeader == "" {
				unauthorized(w, "missing authorization header")
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				unauthorized(w, "invalid authorization header format")
				return
			}

			claims := &TokenClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return secret, nil
			})
			if err != nil || !token.Valid {
				log.Debug("rejected token", logger.Error(err))
				unauthorized(w, "invalid token")
				return
			}

			if claims.Type != "access" {
				unauthorized(w, "invalid token type")
				return
			}
			if claims.UserID == "" {
				unauthorized(w, "token missing user id")
				return
			}

			user := domain.User{
				ID:    claims.UserID,
				Email: claims.Email,
				Name:  claims.Name,
			}
			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFrom returns the authenticated user stored by Auth.
func UserFrom(ctx context.Context) (domain.User, bool) {
	user, ok := ctx.Value(userContextKey).(domain.User)
	return user, ok
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = fmt.Fprintf(w, `{"error":%q}`+"\n", msg)
}
