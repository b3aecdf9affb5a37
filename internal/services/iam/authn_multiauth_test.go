package iam

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/auth"
)

// The authenticator chain tries cookie auth, then bearer auth, then the
// test-mode fallback. These tests pin the ordering semantics.

func TestMultiAuthCookieWinsOverBearer(t *testing.T) {
	mocks := newTestMocks()
	seedUser(mocks, "cookie-user", "alice@example.com")
	seedUser(mocks, "bearer-user", "bob@example.com")
	token := seedSession(t, mocks, "sess-1", "cookie-user", "", time.Now().Add(time.Hour))
	svc := newTestService(t, mocks, jwtConfig())

	issued, err := svc.IssueToken(context.Background(), "bearer-user")
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	req := bearerRequest(issued.Token)
	req.Cookies = []*http.Cookie{{Name: auth.SessionCookieName, Value: token}}

	principal, err := svc.AuthenticateRequest(context.Background(), req)
	if err != nil {
		t.Fatalf("AuthenticateRequest failed: %v", err)
	}
	if principal.InternalID != "cookie-user" {
		t.Errorf("principal = %s, want the cookie identity", principal.InternalID)
	}
}

func TestMultiAuthInvalidCookieStopsChain(t *testing.T) {
	// A present-but-invalid cookie fails the request outright; the chain never
	// falls through to a valid bearer token.
	mocks := newTestMocks()
	seedUser(mocks, "bearer-user", "bob@example.com")
	svc := newTestService(t, mocks, jwtConfig())

	issued, err := svc.IssueToken(context.Background(), "bearer-user")
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	req := bearerRequest(issued.Token)
	req.Cookies = []*http.Cookie{{Name: auth.SessionCookieName, Value: "garbage"}}

	if _, err := svc.AuthenticateRequest(context.Background(), req); err == nil {
		t.Fatal("invalid cookie should stop the chain with an error")
	}
}

func TestMultiAuthNoCredentials(t *testing.T) {
	mocks := newTestMocks()
	svc := newTestService(t, mocks, jwtConfig())

	principal, err := svc.AuthenticateRequest(context.Background(), AuthRequest{Headers: http.Header{}})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if principal != nil {
		t.Errorf("principal = %+v, want nil for an unauthenticated request", principal)
	}
}

func TestMultiAuthBearerWithoutSecretIgnored(t *testing.T) {
	// No JWT secret configured means no JWT authenticator is registered, so a
	// bearer header is simply not a recognized credential.
	mocks := newTestMocks()
	svc := newTestService(t, mocks, nil)

	headers := http.Header{}
	headers.Set("Authorization", "Bearer some-token")
	principal, err := svc.AuthenticateRequest(context.Background(), AuthRequest{Headers: headers})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if principal != nil {
		t.Errorf("principal = %+v, want nil", principal)
	}
}
