package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"fundraiser/internal/domain"
)

type callerKey struct{}

// SignToken issues an HS256 bearer token whose subject is the caller identity.
func SignToken(secret, issuer string, subject domain.Identity, ttl time.Duration, now time.Time) (string, error) {
	if subject.IsZero() {
		return "", domain.ErrZeroIdentity
	}
	claims := jwt.RegisteredClaims{
		Subject:   subject.String(),
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken checks signature, issuer and expiry and returns the canonical subject.
func VerifyToken(secret, issuer, token string) (domain.Identity, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", err
	}
	caller, err := domain.ParseIdentity(claims.Subject)
	if err != nil {
		return "", fmt.Errorf("token subject: %w", err)
	}
	return caller, nil
}

// AuthJWT rejects requests without a valid bearer token and stores the
// token subject as the request caller.
func AuthJWT(secret, issuer string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, "missing authorization")
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				unauthorized(w, "invalid authorization")
				return
			}
			caller, err := VerifyToken(secret, issuer, strings.TrimSpace(parts[1]))
			if err != nil {
				if errors.Is(err, jwt.ErrTokenExpired) {
					unauthorized(w, "token expired")
					return
				}
				unauthorized(w, "invalid token")
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithCaller(r.Context(), caller)))
		})
	}
}

// CallerFromContext returns the authenticated caller or the zero identity.
func CallerFromContext(ctx context.Context) domain.Identity {
	if v, ok := ctx.Value(callerKey{}).(domain.Identity); ok {
		return v
	}
	return ""
}

func ContextWithCaller(ctx context.Context, caller domain.Identity) context.Context {
	if caller.IsZero() {
		return ctx
	}
	return context.WithValue(ctx, callerKey{}, caller)
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="fundraiser"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": "unauthorized", "message": msg},
	})
}
