// Package main provides authentication for the MemDB TCP server.
package main

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nickyhof/MemDB/core"
	"github.com/nickyhof/MemDB/logging"
)

var (
	errAuthRequired = errors.New("authentication required: send AUTH JWT <token>")
	errAuthExpired  = errors.New("authentication expired: send AUTH JWT <token>")
)

// AuthConfig configures server authentication.
type AuthConfig struct {
	// JWTSecret is the shared secret for HS256 JWT validation.
	JWTSecret string

	// Issuer is the expected "iss" claim in JWTs (optional).
	Issuer string

	// Audience is the expected "aud" claim in JWTs (optional).
	Audience string

	// NameClaim is the JWT claim for user's name (default: "name").
	NameClaim string

	// EmailClaim is the JWT claim for user's email (default: "email").
	EmailClaim string
}

// ConnectionState tracks per-connection authentication state.
type ConnectionState struct {
	session       string
	identity      core.Identity
	authenticated bool
	tokenExpiry   time.Time
}

// IsAuthenticated reports whether the connection holds an unexpired token.
func (cs *ConnectionState) IsAuthenticated(now time.Time) bool {
	if !cs.authenticated {
		return false
	}
	return cs.tokenExpiry.IsZero() || now.Before(cs.tokenExpiry)
}

// Identity returns the identity checkpoints of this connection are authored by.
func (cs *ConnectionState) Identity() core.Identity {
	return cs.identity
}

// authorize fails when authentication is enabled and the connection has not
// presented a valid token.
func (s *Server) authorize(state *ConnectionState) error {
	if s.authConfig == nil || state.IsAuthenticated(time.Now()) {
		return nil
	}
	if state.authenticated {
		return errAuthExpired
	}
	return errAuthRequired
}

// authResult represents the result of an authentication attempt.
type authResult struct {
	identity  core.Identity
	expiresAt time.Time
	err       error
}

// validateJWT validates a JWT token and extracts identity claims.
func (s *Server) validateJWT(tokenString string) authResult {
	if s.authConfig == nil {
		return authResult{err: errors.New("authentication not configured")}
	}

	nameClaim := s.authConfig.NameClaim
	if nameClaim == "" {
		nameClaim = "name"
	}
	emailClaim := s.authConfig.EmailClaim
	if emailClaim == "" {
		emailClaim = "email"
	}

	options := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if s.authConfig.Issuer != "" {
		options = append(options, jwt.WithIssuer(s.authConfig.Issuer))
	}
	if s.authConfig.Audience != "" {
		options = append(options, jwt.WithAudience(s.authConfig.Audience))
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.authConfig.JWTSecret), nil
	}, options...)
	if err != nil {
		return authResult{err: fmt.Errorf("invalid token: %w", err)}
	}
	if !token.Valid {
		return authResult{err: errors.New("invalid token")}
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return authResult{err: errors.New("invalid token claims")}
	}

	name, _ := claims[nameClaim].(string)
	email, _ := claims[emailClaim].(string)
	if name == "" && email == "" {
		return authResult{err: fmt.Errorf("token missing identity claims (%s or %s)", nameClaim, emailClaim)}
	}

	var expiresAt time.Time
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		expiresAt = exp.Time
	}

	return authResult{
		identity:  core.Identity{Name: name, Email: email},
		expiresAt: expiresAt,
	}
}

// isAuthCommand reports whether line starts with the AUTH keyword.
func isAuthCommand(line string) bool {
	fields := strings.Fields(line)
	return len(fields) > 0 && strings.EqualFold(fields[0], "AUTH")
}

// parseAuthCommand parses an AUTH command and returns the auth type and token.
// Supported formats:
//   - AUTH JWT <token>
func parseAuthCommand(line string) (authType, token string, err error) {
	if !isAuthCommand(line) {
		return "", "", errors.New("not an AUTH command")
	}

	parts := strings.Fields(line)
	if len(parts) < 3 {
		return "", "", errors.New("invalid AUTH command: expected AUTH <type> <credentials>")
	}

	authType = strings.ToUpper(parts[1])
	if !slices.Contains([]string{"JWT"}, authType) {
		return "", "", fmt.Errorf("unsupported auth type: %s", authType)
	}
	return authType, parts[2], nil
}

// handleAuth processes an AUTH command and returns the response.
func (s *Server) handleAuth(line string, state *ConnectionState) Response {
	_, token, err := parseAuthCommand(line)
	if err != nil {
		return errorResponse("auth", err)
	}

	result := s.validateJWT(token)
	if result.err != nil {
		return errorResponse("auth", result.err)
	}

	state.identity = result.identity
	state.authenticated = true
	state.tokenExpiry = result.expiresAt
	logging.WithSession(state.session).Info("client authenticated", "identity", formatIdentity(result.identity))

	ar := AuthResponse{
		Authenticated: true,
		Identity:      formatIdentity(result.identity),
		Session:       state.session,
	}
	if !result.expiresAt.IsZero() {
		ar.ExpiresIn = int(time.Until(result.expiresAt).Seconds())
	}
	return resultResponse("auth", ar)
}

func formatIdentity(identity core.Identity) string {
	return fmt.Sprintf("%s <%s>", identity.Name, identity.Email)
}
