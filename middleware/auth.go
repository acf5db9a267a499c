package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	fbauth "firebase.google.com/go/v4/auth"
	clerkjwt "github.com/clerk/clerk-sdk-go/v2/jwt"
	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const UserIDKey contextKey = "userID"

// Identity is the normalized result of verifying a bearer token. The
// aggregation core only consumes UID; email and display name ride along for
// profile provisioning.
type Identity struct {
	UID         string
	Email       string
	DisplayName string
}

// TokenVerifier abstracts the auth provider. The service runs against
// Firebase Auth (what the mobile client signs in with) or Clerk, selected at
// startup.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// FirebaseVerifier validates Firebase ID tokens.
type FirebaseVerifier struct {
	Client *fbauth.Client
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	decoded, err := v.Client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("firebase token verification failed: %w", err)
	}

	id := &Identity{UID: decoded.UID}
	if email, ok := decoded.Claims["email"].(string); ok {
		id.Email = email
	}
	if name, ok := decoded.Claims["name"].(string); ok {
		id.DisplayName = name
	}
	return id, nil
}

// ClerkVerifier validates Clerk session JWTs via the globally configured
// Clerk key.
type ClerkVerifier struct{}

func (v *ClerkVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	claims, err := clerkjwt.Verify(ctx, &clerkjwt.VerifyParams{Token: token})
	if err != nil {
		return nil, fmt.Errorf("clerk token verification failed: %w", err)
	}
	return &Identity{UID: claims.Subject}, nil
}

// LocalVerifier validates HS256 JWTs signed with a shared secret. Meant for
// development and CI, where standing up a real auth provider is not worth it.
type LocalVerifier struct {
	Secret string
}

func (v *LocalVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(v.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	if err != nil {
		return nil, fmt.Errorf("local token verification failed: %w", err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("local token verification failed: bad claims")
	}

	subject, _ := claims["sub"].(string)
	if subject == "" {
		return nil, fmt.Errorf("local token verification failed: missing sub")
	}

	id := &Identity{UID: subject}
	if email, ok := claims["email"].(string); ok {
		id.Email = email
	}
	if name, ok := claims["name"].(string); ok {
		id.DisplayName = name
	}
	return id, nil
}

// AuthMiddleware verifies the Authorization bearer token and puts the
// caller's identity in the request context.
func AuthMiddleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondWithError(w, http.StatusUnauthorized, "Authorization header required")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			if token == authHeader {
				respondWithError(w, http.StatusUnauthorized, "Invalid authorization format. Use 'Bearer <token>'")
				return
			}

			identity, err := verifier.Verify(r.Context(), token)
			if err != nil {
				log.Printf("Token verification failed: %v", err)
				respondWithError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetIdentity extracts the verified identity from the request context.
func GetIdentity(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(UserIDKey).(*Identity)
	return id, ok
}

// GetUID extracts just the partition key the metrics engine needs.
func GetUID(ctx context.Context) (string, bool) {
	id, ok := GetIdentity(ctx)
	if !ok {
		return "", false
	}
	return id.UID, true
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write([]byte(fmt.Sprintf(`{"error": "%s"}`, message)))
}
