// Package session implements server-side login sessions. The browser cookie
// carries a signed token naming an opaque session id; the account binding
// itself lives in redis, so revocation is immediate and the cookie holds no
// account data.
package session

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mpelkone/timeclock/internal/domain"
)

const keyPrefix = "session:"

// Store is the key/value backend holding session bindings.
type Store interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, key string) error
}

// Manager issues, resolves and destroys login sessions.
type Manager struct {
	store  Store
	secret []byte
	ttl    time.Duration
}

// NewManager creates a Manager signing cookies with secret and expiring
// sessions after ttl.
func NewManager(store Store, secret string, ttl time.Duration) *Manager {
	return &Manager{store: store, secret: []byte(secret), ttl: ttl}
}

// TTL returns the session lifetime, used for the cookie max age.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue creates a session bound to accountID and returns the signed cookie
// value.
func (m *Manager) Issue(ctx context.Context, accountID int64) (string, error) {
	sid := uuid.NewString()
	if err := m.store.Set(ctx, keyPrefix+sid, strconv.FormatInt(accountID, 10), m.ttl); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sid": sid,
		"iat": now.Unix(),
		"exp": now.Add(m.ttl).Unix(),
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Resolve maps a cookie value back to the bound account id. Tampered,
// expired and revoked sessions all come back as ErrUnauthorized.
func (m *Manager) Resolve(ctx context.Context, cookieValue string) (int64, error) {
	sid, err := m.parseSID(cookieValue)
	if err != nil {
		return 0, domain.ErrUnauthorized
	}

	value, err := m.store.Get(ctx, keyPrefix+sid)
	if err != nil {
		return 0, domain.ErrUnauthorized
	}

	accountID, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, domain.ErrUnauthorized
	}
	return accountID, nil
}

// Destroy revokes the session named by cookieValue. Unknown and malformed
// values are ignored so logout stays idempotent.
func (m *Manager) Destroy(ctx context.Context, cookieValue string) error {
	sid, err := m.parseSID(cookieValue)
	if err != nil {
		return nil
	}
	if err := m.store.Del(ctx, keyPrefix+sid); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (m *Manager) parseSID(cookieValue string) (string, error) {
	token, err := jwt.Parse(cookieValue, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("parse session token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", domain.ErrUnauthorized
	}

	sid, _ := claims["sid"].(string)
	if sid == "" {
		return "", domain.ErrUnauthorized
	}
	return sid, nil
}
