package firebase

import (
	"context"

	"firebase.google.com/go/v4/auth"

	"courtside/internal/usecase"
	"courtside/pkg/errors"
)

type FirebaseAuthClient struct {
	client *auth.Client
}

func NewFirebaseAuthClient(client *auth.Client) *FirebaseAuthClient {
	return &FirebaseAuthClient{
		client: client,
	}
}

// VerifyToken checks an ID token, including revocation, and returns the
// identity it carries.
func (f *FirebaseAuthClient) VerifyToken(ctx context.Context, token string) (usecase.Identity, error) {
	result, err := f.client.VerifyIDTokenAndCheckRevoked(ctx, token)
	if err != nil {
		if auth.IsIDTokenRevoked(err) {
			return usecase.Identity{}, errors.Unauthorized("Token has been revoked", err)
		}
		return usecase.Identity{}, errors.Unauthorized("Invalid token", err)
	}

	return identityFromClaims(result.UID, result.Claims), nil
}

func (f *FirebaseAuthClient) RevokeRefreshTokens(ctx context.Context, uid string) error {
	return f.client.RevokeRefreshTokens(ctx, uid)
}

// LookupIdentity reads the account record, for callers that only have a uid.
func (f *FirebaseAuthClient) LookupIdentity(ctx context.Context, uid string) (usecase.Identity, error) {
	record, err := f.client.GetUser(ctx, uid)
	if err != nil {
		if auth.IsUserNotFound(err) {
			return usecase.Identity{}, errors.NotFound("User", err)
		}
		return usecase.Identity{}, errors.Internal("Failed to look up user", err)
	}
	return usecase.Identity{UserID: record.UID, Email: record.Email, DisplayName: record.DisplayName}, nil
}

func identityFromClaims(uid string, claims map[string]interface{}) usecase.Identity {
	id := usecase.Identity{UserID: uid}
	if email, ok := claims["email"].(string); ok {
		id.Email = email
	}
	if name, ok := claims["name"].(string); ok {
		id.DisplayName = name
	}
	return id
}
