package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

type contextKey string

const walletContextKey contextKey = "wallet_address"

// claims carries the authenticated wallet in the JWT.
type claims struct {
	WalletAddress string `json:"wallet_address"`
	jwt.RegisteredClaims
}

func generateJWT(secret []byte, walletAddress string) (string, error) {
	c := &claims{
		WalletAddress: walletAddress,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "chainfund-devserver",
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(secret)
}

func validateJWT(secret []byte, tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return "", err
	}
	if c, ok := token.Claims.(*claims); ok && token.Valid {
		return c.WalletAddress, nil
	}
	return "", fmt.Errorf("invalid token")
}

// authMiddleware requires a valid bearer token and stashes the wallet in the
// request context.
func authMiddleware(secret []byte) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wallet, ok := walletFromRequest(secret, r)
			if !ok {
				jsonError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid authorization")
				return
			}
			ctx := context.WithValue(r.Context(), walletContextKey, wallet)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// walletFromRequest extracts and validates the bearer token, if any.
func walletFromRequest(secret []byte, r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	wallet, err := validateJWT(secret, strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		return "", false
	}
	return wallet, true
}

func authedWallet(ctx context.Context) string {
	wallet, _ := ctx.Value(walletContextKey).(string)
	return wallet
}

// loggingMiddleware emits one structured event per request.
func loggingMiddleware(log zerolog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// metricsMiddleware counts requests per templated route.
func metricsMiddleware(requests *prometheus.CounterVec) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := r.URL.Path
			if current := mux.CurrentRoute(r); current != nil {
				if tmpl, err := current.GetPathTemplate(); err == nil {
					route = tmpl
				}
			}
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			requests.WithLabelValues(r.Method, route, fmt.Sprintf("%d", rec.status)).Inc()
		})
	}
}

// rateLimitMiddleware applies one global limiter; enough for a dev fixture.
func rateLimitMiddleware(limiter *rate.Limiter) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				jsonError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// jsonError writes the backend's {message, code} error body.
func jsonError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": message, "code": code})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
