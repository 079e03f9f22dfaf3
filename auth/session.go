// Package auth issues and verifies the signed session token carried in the
// session cookie.
//
// The payload is a closed, versioned schema: {ver, sub, role, email, iat, exp}.
// Tokens with a missing or unknown claim, another signing method, a bad
// signature or a past expiry are treated as "no session".
package auth

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"fencing-backend/models"

	"github.com/golang-jwt/jwt/v4"
)

const sessionVersion = 1

var sessionClaims = []string{"ver", "sub", "role", "email", "iat", "exp"}

// Session is the verified content of a session token.
type Session struct {
	UserID    string      `json:"userId"`
	Role      models.Role `json:"role"`
	Email     string      `json:"email"`
	IssuedAt  time.Time   `json:"issuedAt"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

// HasRole reports whether the session role is one of roles.
func (s Session) HasRole(roles ...models.Role) bool {
	for _, r := range roles {
		if s.Role == r {
			return true
		}
	}
	return false
}

type SessionManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionManager returns a manager signing HS256 tokens valid for ttl.
func NewSessionManager(secret string, ttl time.Duration) (*SessionManager, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("session secret not configured (set SESSION_SECRET)")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionManager{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// TTL is the lifetime of issued tokens.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a new session token for the user.
func (m *SessionManager) Issue(userID string, role models.Role, email string) (string, error) {
	now := m.now()
	claims := jwt.MapClaims{
		"ver":   sessionVersion,
		"sub":   userID,
		"role":  string(role),
		"email": email,
		"iat":   now.Unix(),
		"exp":   now.Add(m.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify decodes a token. It never returns an error: anything that is not a
// valid, unexpired, well-formed session yields ok == false.
func (m *SessionManager) Verify(raw string) (s Session, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Session{}, false
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithJSONNumber(),
		jwt.WithoutClaimsValidation(),
	)
	claims := jwt.MapClaims{}
	token, err := parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return Session{}, false
	}

	if len(claims) != len(sessionClaims) {
		return Session{}, false
	}
	for _, name := range sessionClaims {
		if _, present := claims[name]; !present {
			return Session{}, false
		}
	}

	ver, ok := numberClaim(claims, "ver")
	if !ok || ver != sessionVersion {
		return Session{}, false
	}
	iat, ok := numberClaim(claims, "iat")
	if !ok {
		return Session{}, false
	}
	exp, ok := numberClaim(claims, "exp")
	if !ok || exp < iat {
		return Session{}, false
	}
	sub, ok1 := stringClaim(claims, "sub")
	role, ok2 := stringClaim(claims, "role")
	email, ok3 := stringClaim(claims, "email")
	if !ok1 || !ok2 || !ok3 || !models.Role(role).Valid() {
		return Session{}, false
	}

	expiresAt := time.Unix(exp, 0)
	if !m.now().Before(expiresAt) {
		return Session{}, false
	}

	return Session{
		UserID:    sub,
		Role:      models.Role(role),
		Email:     email,
		IssuedAt:  time.Unix(iat, 0),
		ExpiresAt: expiresAt,
	}, true
}

func numberClaim(claims jwt.MapClaims, name string) (int64, bool) {
	n, ok := claims[name].(json.Number)
	if !ok {
		return 0, false
	}
	v, err := n.Int64()
	return v, err == nil
}

func stringClaim(claims jwt.MapClaims, name string) (string, bool) {
	s, ok := claims[name].(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}
