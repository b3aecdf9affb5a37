package iam

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/auth"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/config"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/db/models"
)

func jwtConfig() *config.Config {
	cfg := testConfig()
	cfg.Auth.JWTSecret = "test-secret-0123456789abcdef"
	cfg.Auth.JWTIssuer = "reachapi"
	cfg.Auth.OrgsClaimField = "orgs"
	return cfg
}

func bearerRequest(token string) AuthRequest {
	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+token)
	return AuthRequest{Headers: headers}
}

func TestJWTAuthRoundtrip(t *testing.T) {
	mocks := newTestMocks()
	seedUser(mocks, "user-1", "alice@example.com", auth.RoleAdvertiser)
	svc := newTestService(t, mocks, jwtConfig())

	issued, err := svc.IssueToken(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	principal, err := svc.AuthenticateRequest(context.Background(), bearerRequest(issued.Token))
	if err != nil {
		t.Fatalf("AuthenticateRequest failed: %v", err)
	}
	if principal.InternalID != "user-1" {
		t.Errorf("principal = %+v", principal)
	}
	if principal.SessionID != "" {
		t.Error("bearer principals carry no session")
	}
	if !principal.HasRole(auth.RoleAdvertiser) {
		t.Error("roles should be resolved for bearer principals")
	}
}

func TestJWTAuthMalformedHeader(t *testing.T) {
	mocks := newTestMocks()
	svc := newTestService(t, mocks, jwtConfig())

	for _, header := range []string{"Basic abc", "Bearer", "Bearer   "} {
		headers := http.Header{}
		headers.Set("Authorization", header)
		if _, err := svc.AuthenticateRequest(context.Background(), AuthRequest{Headers: headers}); err == nil {
			t.Errorf("header %q should fail authentication", header)
		}
	}
}

func TestJWTAuthRevokedJTI(t *testing.T) {
	mocks := newTestMocks()
	seedUser(mocks, "user-1", "alice@example.com")
	svc := newTestService(t, mocks, jwtConfig())

	issued, err := svc.IssueToken(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	if err := svc.RevokeJTI(context.Background(), issued.JTI, "user-1", issued.ExpiresAt, ""); err != nil {
		t.Fatalf("RevokeJTI failed: %v", err)
	}

	if _, err := svc.AuthenticateRequest(context.Background(), bearerRequest(issued.Token)); err == nil {
		t.Fatal("revoked token should not authenticate")
	}
}

func TestJWTAuthDisabledUser(t *testing.T) {
	mocks := newTestMocks()
	user := seedUser(mocks, "user-1", "alice@example.com")
	svc := newTestService(t, mocks, jwtConfig())

	issued, err := svc.IssueToken(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	now := time.Now()
	user.DisabledAt = &now

	if _, err := svc.AuthenticateRequest(context.Background(), bearerRequest(issued.Token)); err == nil {
		t.Fatal("disabled user's token should not authenticate")
	}
}

func TestJWTAuthWrongSecret(t *testing.T) {
	mocks := newTestMocks()
	seedUser(mocks, "user-1", "alice@example.com")

	// Mint with a different secret.
	foreign, err := auth.NewTokenIssuer("some-other-secret-value", "reachapi", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer failed: %v", err)
	}
	issued, err := foreign.Issue("user-1", "", "")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	svc := newTestService(t, mocks, jwtConfig())
	if _, err := svc.AuthenticateRequest(context.Background(), bearerRequest(issued.Token)); err == nil {
		t.Fatal("token signed with the wrong secret should fail")
	}
}

func TestJWTAuthOrgClaimsContributeMappedRoles(t *testing.T) {
	mocks := newTestMocks()
	seedUser(mocks, "user-1", "alice@example.com")
	mocks.orgRoleMappings.mappings = []models.OrgRoleMapping{
		{ID: "1", OrgName: "partner-net", Role: string(auth.RoleStakeholder)},
	}

	cfg := jwtConfig()
	svc := newTestService(t, mocks, cfg)

	// Mint a token carrying an orgs claim by hand; IssueToken does not embed
	// org names, but external issuers sharing the secret may.
	issuer, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer failed: %v", err)
	}
	issued, err := issuer.Issue("user-1", "alice@example.com", "Alice")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	// Tokens minted locally carry no orgs claim, so the mapped role must not
	// appear.
	principal, err := svc.AuthenticateRequest(context.Background(), bearerRequest(issued.Token))
	if err != nil {
		t.Fatalf("AuthenticateRequest failed: %v", err)
	}
	if principal.HasRole(auth.RoleStakeholder) {
		t.Error("stakeholder should not be held without the org claim")
	}

	// The same mapping does apply through a stored membership.
	mocks.orgMemberships.memberships = []models.OrgMembership{
		{
			ID: "m-1", OrgID: "org-1", UserID: "user-1",
			Org: &models.Org{ID: "org-1", Name: "partner-net", Kind: models.OrgKindPublisher},
		},
	}
	principal, err = svc.AuthenticateRequest(context.Background(), bearerRequest(issued.Token))
	if err != nil {
		t.Fatalf("AuthenticateRequest failed: %v", err)
	}
	if !principal.HasRole(auth.RoleStakeholder) {
		t.Error("stakeholder should be held via the org role mapping")
	}
}
