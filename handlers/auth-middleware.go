package handlers

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"activities-service/models"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const requesterKey contextKey = "requester"

// Claims carried by the platform's access tokens.
type Claims struct {
	PhoneNumber  string   `json:"phoneNumber"`
	DisplayName  string   `json:"displayName"`
	PhotoURL     string   `json:"photoURL"`
	Support      bool     `json:"support"`
	AdminOffices []string `json:"adminOffices"`
	jwt.RegisteredClaims
}

// AuthMiddleware validates the bearer token and puts the resolved
// requester on the request context.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Missing Authorization header", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(os.Getenv("JWT_SECRET")), nil
		})
		if err != nil || !token.Valid {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}
		if claims.PhoneNumber == "" {
			http.Error(w, "Missing phone number in token", http.StatusUnauthorized)
			return
		}

		requester := models.Requester{
			PhoneNumber:  claims.PhoneNumber,
			UID:          claims.Subject,
			DisplayName:  claims.DisplayName,
			PhotoURL:     claims.PhotoURL,
			IsSupport:    claims.Support,
			AdminOffices: claims.AdminOffices,
		}

		ctx := context.WithValue(r.Context(), requesterKey, requester)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequesterFromContext returns the authenticated requester.
func RequesterFromContext(ctx context.Context) (models.Requester, bool) {
	requester, ok := ctx.Value(requesterKey).(models.Requester)
	return requester, ok
}
