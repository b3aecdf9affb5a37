package iam

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/auth"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/db/bunx"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/db/models"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/repository"
)

// TestModeAuthenticator supplies a synthetic development identity when
// AUTH_TEST_MODE is enabled and no real credentials are present.
//
// It always runs LAST in the authenticator chain, so a request carrying a
// valid cookie or bearer token authenticates normally and never reaches this
// fallback. Invalid credentials also never reach it: the chain stops at the
// first authenticator that returns an error.
//
// The test identity is JIT-provisioned as a real users row (flagged is_test
// so it is identifiable and excludable). Its role grants exist only in
// memory: every role in the fixed set, never persisted to role_grants.
type TestModeAuthenticator struct {
	users     repository.UserRepository
	testEmail string
}

// NewTestModeAuthenticator creates the test-mode fallback authenticator.
func NewTestModeAuthenticator(users repository.UserRepository, testEmail string) *TestModeAuthenticator {
	return &TestModeAuthenticator{
		users:     users,
		testEmail: testEmail,
	}
}

// Authenticate returns the synthetic test principal.
//
// Never returns (nil, nil): when this authenticator is registered, every
// otherwise-unauthenticated request becomes the test identity.
func (a *TestModeAuthenticator) Authenticate(ctx context.Context, req AuthRequest) (*auth.AuthenticatedPrincipal, error) {
	user, err := a.users.GetByEmail(ctx, a.testEmail)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("lookup test user: %w", err)
		}

		// JIT provision on first use
		user = &models.User{
			ID:     bunx.NewUUIDv7(),
			Email:  a.testEmail,
			Name:   "Test User",
			IsTest: true,
		}
		if err := a.users.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("provision test user: %w", err)
		}
		log.Printf("test mode: provisioned test user %s (%s)", user.ID, user.Email)
	}

	if user.Disabled() {
		return nil, fmt.Errorf("test user is disabled")
	}

	// All roles, in memory only
	roles := auth.AllRoles()
	auth.SortRoles(roles)

	subject := user.PrincipalSubject()
	return &auth.AuthenticatedPrincipal{
		Subject:     subject,
		PrincipalID: auth.UserID(subject),
		InternalID:  user.ID,
		Email:       user.Email,
		Name:        user.Name,
		Roles:       roles,
		TestMode:    true,
	}, nil
}
