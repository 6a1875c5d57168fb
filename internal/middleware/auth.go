package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

type contextKey string

const (
	CustomerKey contextKey = "customer"
	APIKeyKey   contextKey = "api_key"
)

func bearer(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	// both "Bearer <key>" and a bare key are accepted
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
}

// APIKeyAuth resolves the Authorization header to a customer. validKeys maps
// customer id to its API key.
func APIKeyAuth(validKeys map[string]string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				http.Error(w, "missing Authorization header", http.StatusUnauthorized)
				return
			}
			apiKey := bearer(r)
			if apiKey == "" {
				http.Error(w, "invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			var customer string
			for id, key := range validKeys {
				if subtle.ConstantTimeCompare([]byte(apiKey), []byte(key)) == 1 {
					customer = id
					break
				}
			}
			if customer == "" {
				http.Error(w, "invalid API key", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), CustomerKey, customer)
			ctx = context.WithValue(ctx, APIKeyKey, apiKey)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SystemAuth guards scheduler endpoints with a shared bearer secret. An empty
// secret rejects every request.
func SystemAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := bearer(r)
			if secret == "" || got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
				http.Error(w, "invalid system credentials", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetCustomerFromContext returns the authenticated customer id
func GetCustomerFromContext(ctx context.Context) string {
	if c, ok := ctx.Value(CustomerKey).(string); ok {
		return c
	}
	return ""
}

// RequireCustomer ensures the {customerID} URL parameter is well formed and
// belongs to the authenticated key.
func RequireCustomer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		urlCustomer := chi.URLParam(r, "customerID")
		if err := ValidateCustomerID(urlCustomer); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if urlCustomer != GetCustomerFromContext(r.Context()) {
			http.Error(w, "api key does not belong to this customer", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
