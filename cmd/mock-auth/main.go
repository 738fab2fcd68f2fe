// Command mock-auth runs a minimal GoTrue-compatible auth provider for
// local development. It issues RS256-signed JWTs against a keypair
// generated at startup and publishes the public key as a JWKS document,
// so both the "remote" and "jwt" authenticators can be exercised without
// a real provider.
//
// Configuration:
//
//	MOCK_AUTH_PORT  - Listen port (default: 9091)
//	MOCK_AUTH_USERS - Accepted credentials as "email:password" pairs,
//	                  comma separated (default: "demo@example.com:demo")
//
// Endpoints:
//
//	POST /auth/v1/token?grant_type=password
//	GET  /auth/v1/user
//	POST /auth/v1/logout
//	GET  /auth/v1/.well-known/jwks.json
package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

const issuer = "mock-auth"

func main() {
	if err := run(); err != nil {
		slog.Error("mock auth provider failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	port := os.Getenv("MOCK_AUTH_PORT")
	if port == "" {
		port = "9091"
	}

	users, err := parseUsers(os.Getenv("MOCK_AUTH_USERS"))
	if err != nil {
		return err
	}

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return fmt.Errorf("generating signing key: %w", err)
	}

	p := &provider{
		key:     key,
		kid:     "mock-auth-1",
		users:   users,
		revoked: make(map[string]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/v1/token", p.handleToken)
	mux.HandleFunc("GET /auth/v1/user", p.handleUser)
	mux.HandleFunc("POST /auth/v1/logout", p.handleLogout)
	mux.HandleFunc("GET /auth/v1/.well-known/jwks.json", p.handleJWKS)

	srv := &http.Server{Addr: ":" + port, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock auth provider starting", "port", port, "users", len(users))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock auth provider failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock auth provider shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// parseUsers expands the MOCK_AUTH_USERS value into a credentials map.
func parseUsers(raw string) (map[string]string, error) {
	if raw == "" {
		raw = "demo@example.com:demo"
	}
	users := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		email, password, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || email == "" || password == "" {
			return nil, fmt.Errorf("invalid MOCK_AUTH_USERS entry %q", pair)
		}
		users[email] = password
	}
	return users, nil
}

type provider struct {
	key   *rsa.PrivateKey
	kid   string
	users map[string]string

	mu      sync.Mutex
	revoked map[string]bool
}

type userInfo struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// userID derives a stable identifier from the email.
func userID(email string) string {
	sum := sha256.Sum256([]byte(email))
	return "user_" + base64.RawURLEncoding.EncodeToString(sum[:12])
}

func (p *provider) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("grant_type") != "password" {
		writeProviderError(w, http.StatusBadRequest, "unsupported grant type")
		return
	}

	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeProviderError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	want, ok := p.users[creds.Email]
	if !ok || want != creds.Password {
		writeProviderError(w, http.StatusBadRequest, "Invalid login credentials")
		return
	}

	const lifetime = time.Hour
	now := time.Now()
	claims := jwtlib.MapClaims{
		"iss":   issuer,
		"sub":   userID(creds.Email),
		"email": creds.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(lifetime).Unix(),
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, claims)
	token.Header["kid"] = p.kid

	signed, err := token.SignedString(p.key)
	if err != nil {
		writeProviderError(w, http.StatusInternalServerError, "signing token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": signed,
		"token_type":   "bearer",
		"expires_in":   int(lifetime.Seconds()),
		"user":         userInfo{ID: userID(creds.Email), Email: creds.Email},
	})
}

func (p *provider) handleUser(w http.ResponseWriter, r *http.Request) {
	user, ok := p.verify(bearerToken(r))
	if !ok {
		writeProviderError(w, http.StatusUnauthorized, "invalid JWT")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (p *provider) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeProviderError(w, http.StatusUnauthorized, "missing token")
		return
	}

	p.mu.Lock()
	p.revoked[token] = true
	p.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

func (p *provider) handleJWKS(w http.ResponseWriter, r *http.Request) {
	pub := &p.key.PublicKey
	writeJSON(w, http.StatusOK, map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"kid": p.kid,
			"use": "sig",
			"alg": "RS256",
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	})
}

// verify parses and validates a token, honoring revocation.
func (p *provider) verify(token string) (userInfo, bool) {
	if token == "" {
		return userInfo{}, false
	}

	p.mu.Lock()
	revoked := p.revoked[token]
	p.mu.Unlock()
	if revoked {
		return userInfo{}, false
	}

	parsed, err := jwtlib.Parse(token, func(t *jwtlib.Token) (any, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return &p.key.PublicKey, nil
	}, jwtlib.WithIssuer(issuer), jwtlib.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return userInfo{}, false
	}

	claims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return userInfo{}, false
	}
	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	if sub == "" {
		return userInfo{}, false
	}
	return userInfo{ID: sub, Email: email}, true
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return header[len(prefix):]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeProviderError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"msg": msg})
}
