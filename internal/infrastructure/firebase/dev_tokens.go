package firebase

import (
	"context"
	"strings"
	"sync"

	"courtside/internal/usecase"
	"courtside/pkg/errors"
)

const devTokenPrefix = "dev:"

// DevAuth accepts unsigned tokens of the form "dev:<uid>[:<display name>]".
// It stands in for Firebase Auth with the memory store driver in
// development and must never be wired in production.
type DevAuth struct {
	mu      sync.Mutex
	revoked map[string]struct{}
}

func NewDevAuth() *DevAuth {
	return &DevAuth{revoked: make(map[string]struct{})}
}

// GenerateDevToken returns a dev token for uid.
func GenerateDevToken(uid, displayName string) string {
	if displayName == "" {
		return devTokenPrefix + uid
	}
	return devTokenPrefix + uid + ":" + displayName
}

func (d *DevAuth) VerifyToken(ctx context.Context, token string) (usecase.Identity, error) {
	if !strings.HasPrefix(token, devTokenPrefix) {
		return usecase.Identity{}, errors.Unauthorized("Invalid token", nil)
	}
	parts := strings.SplitN(strings.TrimPrefix(token, devTokenPrefix), ":", 2)
	if parts[0] == "" {
		return usecase.Identity{}, errors.Unauthorized("Invalid token", nil)
	}

	d.mu.Lock()
	_, revoked := d.revoked[parts[0]]
	d.mu.Unlock()
	if revoked {
		return usecase.Identity{}, errors.Unauthorized("Token has been revoked", nil)
	}

	id := usecase.Identity{UserID: parts[0], Email: parts[0] + "@dev.local"}
	if len(parts) == 2 {
		id.DisplayName = parts[1]
	}
	return id, nil
}

// RevokeRefreshTokens rejects the user's dev tokens until Restore is called.
func (d *DevAuth) RevokeRefreshTokens(ctx context.Context, uid string) error {
	d.mu.Lock()
	d.revoked[uid] = struct{}{}
	d.mu.Unlock()
	return nil
}

// Restore lets a revoked user sign in again.
func (d *DevAuth) Restore(uid string) {
	d.mu.Lock()
	delete(d.revoked, uid)
	d.mu.Unlock()
}
