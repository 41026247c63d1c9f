// Package auth registers users, verifies their credentials and issues the
// bearer tokens that identify callers of the settlement API.
package auth

import (
	"context"

	"github.com/mmynk/settlewise/internal/models"
)

// Authenticator abstracts how users prove who they are. Password login is
// the only implementation today.
type Authenticator interface {
	// Register creates a new user account with the given email and credential.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate verifies the credential and returns the matching user.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential checks that a credential is acceptable before it is stored.
	ValidateCredential(credential string) error
}
