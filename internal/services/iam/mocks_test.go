package iam

import (
	"context"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/auth"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/config"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/db/models"
	"github.com/ProofOfReach/ProofOfReachApp-sub001/internal/repository"
)

// Hand-written repository fakes shared by the package tests. Each one keeps
// its rows in maps or slices and honors the repository error contract
// (ErrNotFound for missing rows).

type mockUserRepository struct {
	users map[string]*models.User // keyed by ID
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[string]*models.User)}
}

func (m *mockUserRepository) Create(_ context.Context, user *models.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return user, nil
}

func (m *mockUserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserRepository) List(_ context.Context) ([]models.User, error) {
	out := make([]models.User, 0, len(m.users))
	for _, user := range m.users {
		out = append(out, *user)
	}
	return out, nil
}

func (m *mockUserRepository) UpdateLastLogin(_ context.Context, id string) error {
	user, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	now := time.Now()
	user.LastLoginAt = &now
	return nil
}

func (m *mockUserRepository) UpdateProfile(_ context.Context, id, name string) error {
	user, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.Name = name
	return nil
}

func (m *mockUserRepository) Disable(_ context.Context, id string) error {
	user, ok := m.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	now := time.Now()
	user.DisabledAt = &now
	return nil
}

type mockSessionRepository struct {
	sessions map[string]*models.Session // keyed by session ID

	// prefs mirrors the transactional coupling of SwitchActiveRole; wired up
	// by newTestMocks.
	prefs *mockRolePreferenceRepository

	updateActiveRoleCalls int
	switchActiveRoleCalls int
	switchErr             error
	lastUsedUpdates       chan string
}

func newMockSessionRepository() *mockSessionRepository {
	return &mockSessionRepository{
		sessions:        make(map[string]*models.Session),
		lastUsedUpdates: make(chan string, 16),
	}
}

func (m *mockSessionRepository) Create(_ context.Context, session *models.Session) error {
	m.sessions[session.ID] = session
	return nil
}

func (m *mockSessionRepository) GetByID(_ context.Context, id string) (*models.Session, error) {
	session, ok := m.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return session, nil
}

func (m *mockSessionRepository) GetByTokenHash(_ context.Context, tokenHash string) (*models.Session, error) {
	for _, session := range m.sessions {
		if session.TokenHash == tokenHash {
			return session, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockSessionRepository) GetByUserID(_ context.Context, userID string) ([]models.Session, error) {
	var out []models.Session
	for _, session := range m.sessions {
		if session.UserID == userID {
			out = append(out, *session)
		}
	}
	return out, nil
}

func (m *mockSessionRepository) UpdateLastUsed(_ context.Context, id string) error {
	if session, ok := m.sessions[id]; ok {
		session.LastUsedAt = time.Now()
	}
	select {
	case m.lastUsedUpdates <- id:
	default:
	}
	return nil
}

func (m *mockSessionRepository) UpdateActiveRole(_ context.Context, id string, role string) error {
	session, ok := m.sessions[id]
	if !ok {
		return repository.ErrNotFound
	}
	session.ActiveRole = role
	m.updateActiveRoleCalls++
	return nil
}

func (m *mockSessionRepository) SwitchActiveRole(_ context.Context, id string, userID string, role string) error {
	if m.switchErr != nil {
		return m.switchErr
	}
	session, ok := m.sessions[id]
	if !ok || session.Revoked {
		return repository.ErrNotFound
	}
	session.ActiveRole = role
	m.switchActiveRoleCalls++
	if m.prefs != nil {
		m.prefs.prefs[userID] = &models.RolePreference{
			UserID:        userID,
			PreferredRole: role,
			UpdatedAt:     time.Now(),
		}
	}
	return nil
}

func (m *mockSessionRepository) Revoke(_ context.Context, id string) error {
	session, ok := m.sessions[id]
	if !ok {
		return repository.ErrNotFound
	}
	session.Revoked = true
	return nil
}

func (m *mockSessionRepository) RevokeAllForUser(_ context.Context, userID string) error {
	for _, session := range m.sessions {
		if session.UserID == userID {
			session.Revoked = true
		}
	}
	return nil
}

func (m *mockSessionRepository) DeleteExpired(_ context.Context, _ time.Duration) error {
	return nil
}

type mockRoleGrantRepository struct {
	grants []models.RoleGrant
}

func (m *mockRoleGrantRepository) Create(_ context.Context, grant *models.RoleGrant) error {
	m.grants = append(m.grants, *grant)
	return nil
}

func (m *mockRoleGrantRepository) Delete(_ context.Context, userID string, role string) error {
	kept := m.grants[:0]
	for _, grant := range m.grants {
		if grant.UserID == userID && grant.Role == role {
			continue
		}
		kept = append(kept, grant)
	}
	m.grants = kept
	return nil
}

func (m *mockRoleGrantRepository) GetByUserID(_ context.Context, userID string) ([]models.RoleGrant, error) {
	var out []models.RoleGrant
	for _, grant := range m.grants {
		if grant.UserID == userID {
			out = append(out, grant)
		}
	}
	return out, nil
}

func (m *mockRoleGrantRepository) Exists(_ context.Context, userID string, role string) (bool, error) {
	for _, grant := range m.grants {
		if grant.UserID == userID && grant.Role == role {
			return true, nil
		}
	}
	return false, nil
}

type mockRolePreferenceRepository struct {
	prefs map[string]*models.RolePreference
}

func newMockRolePreferenceRepository() *mockRolePreferenceRepository {
	return &mockRolePreferenceRepository{prefs: make(map[string]*models.RolePreference)}
}

func (m *mockRolePreferenceRepository) Get(_ context.Context, userID string) (*models.RolePreference, error) {
	pref, ok := m.prefs[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return pref, nil
}

func (m *mockRolePreferenceRepository) Upsert(_ context.Context, userID string, role string) error {
	m.prefs[userID] = &models.RolePreference{
		UserID:        userID,
		PreferredRole: role,
		UpdatedAt:     time.Now(),
	}
	return nil
}

func (m *mockRolePreferenceRepository) Delete(_ context.Context, userID string) error {
	delete(m.prefs, userID)
	return nil
}

type mockOrgRepository struct {
	orgs map[string]*models.Org // keyed by ID
}

func newMockOrgRepository() *mockOrgRepository {
	return &mockOrgRepository{orgs: make(map[string]*models.Org)}
}

func (m *mockOrgRepository) Create(_ context.Context, org *models.Org) error {
	m.orgs[org.ID] = org
	return nil
}

func (m *mockOrgRepository) GetByID(_ context.Context, id string) (*models.Org, error) {
	org, ok := m.orgs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return org, nil
}

func (m *mockOrgRepository) GetByName(_ context.Context, name string) (*models.Org, error) {
	for _, org := range m.orgs {
		if org.Name == name {
			return org, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockOrgRepository) List(_ context.Context) ([]models.Org, error) {
	out := make([]models.Org, 0, len(m.orgs))
	for _, org := range m.orgs {
		out = append(out, *org)
	}
	return out, nil
}

type mockOrgMembershipRepository struct {
	memberships []models.OrgMembership
}

func (m *mockOrgMembershipRepository) Add(_ context.Context, membership *models.OrgMembership) error {
	m.memberships = append(m.memberships, *membership)
	return nil
}

func (m *mockOrgMembershipRepository) Remove(_ context.Context, orgID, userID string) error {
	kept := m.memberships[:0]
	for _, membership := range m.memberships {
		if membership.OrgID == orgID && membership.UserID == userID {
			continue
		}
		kept = append(kept, membership)
	}
	m.memberships = kept
	return nil
}

func (m *mockOrgMembershipRepository) ListByUser(_ context.Context, userID string) ([]models.OrgMembership, error) {
	var out []models.OrgMembership
	for _, membership := range m.memberships {
		if membership.UserID == userID {
			out = append(out, membership)
		}
	}
	return out, nil
}

func (m *mockOrgMembershipRepository) ListByOrg(_ context.Context, orgID string) ([]models.OrgMembership, error) {
	var out []models.OrgMembership
	for _, membership := range m.memberships {
		if membership.OrgID == orgID {
			out = append(out, membership)
		}
	}
	return out, nil
}

type mockOrgRoleMappingRepository struct {
	mappings []models.OrgRoleMapping
	listErr  error
}

func (m *mockOrgRoleMappingRepository) Create(_ context.Context, mapping *models.OrgRoleMapping) error {
	m.mappings = append(m.mappings, *mapping)
	return nil
}

func (m *mockOrgRoleMappingRepository) Delete(_ context.Context, orgName string, role string) error {
	kept := m.mappings[:0]
	for _, mapping := range m.mappings {
		if mapping.OrgName == orgName && mapping.Role == role {
			continue
		}
		kept = append(kept, mapping)
	}
	m.mappings = kept
	return nil
}

func (m *mockOrgRoleMappingRepository) List(_ context.Context) ([]models.OrgRoleMapping, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.mappings, nil
}

type mockRevokedJTIRepository struct {
	revoked map[string]bool
}

func newMockRevokedJTIRepository() *mockRevokedJTIRepository {
	return &mockRevokedJTIRepository{revoked: make(map[string]bool)}
}

func (m *mockRevokedJTIRepository) Create(_ context.Context, revokedJTI *models.RevokedJTI) error {
	m.revoked[revokedJTI.JTI] = true
	return nil
}

func (m *mockRevokedJTIRepository) IsRevoked(_ context.Context, jti string) (bool, error) {
	return m.revoked[jti], nil
}

func (m *mockRevokedJTIRepository) DeleteExpired(_ context.Context, _ time.Duration) error {
	return nil
}

// testMocks bundles every fake so tests can seed state before and inspect it
// after exercising the service.
type testMocks struct {
	users           *mockUserRepository
	sessions        *mockSessionRepository
	roleGrants      *mockRoleGrantRepository
	rolePreferences *mockRolePreferenceRepository
	orgs            *mockOrgRepository
	orgMemberships  *mockOrgMembershipRepository
	orgRoleMappings *mockOrgRoleMappingRepository
	revokedJTIs     *mockRevokedJTIRepository
}

func newTestMocks() *testMocks {
	m := &testMocks{
		users:           newMockUserRepository(),
		sessions:        newMockSessionRepository(),
		roleGrants:      &mockRoleGrantRepository{},
		rolePreferences: newMockRolePreferenceRepository(),
		orgs:            newMockOrgRepository(),
		orgMemberships:  &mockOrgMembershipRepository{},
		orgRoleMappings: &mockOrgRoleMappingRepository{},
		revokedJTIs:     newMockRevokedJTIRepository(),
	}
	m.sessions.prefs = m.rolePreferences
	return m
}

func (m *testMocks) dependencies() Dependencies {
	return Dependencies{
		Users:           m.users,
		Sessions:        m.sessions,
		RoleGrants:      m.roleGrants,
		RolePreferences: m.rolePreferences,
		Orgs:            m.orgs,
		OrgMemberships:  m.orgMemberships,
		OrgRoleMappings: m.orgRoleMappings,
		RevokedJTIs:     m.revokedJTIs,
	}
}

func testConfig() *config.Config {
	return &config.Config{
		ServerURL: "http://localhost:8080",
		Auth: config.AuthConfig{
			SessionTTL: time.Hour,
			JWTTTL:     time.Hour,
		},
	}
}

// newTestService builds the service on the fakes. Pass a nil cfg for the
// defaults (cookie auth only, no JWT secret, no test mode).
func newTestService(t *testing.T, mocks *testMocks, cfg *config.Config) Service {
	t.Helper()

	if cfg == nil {
		cfg = testConfig()
	}
	svc, err := NewIAMService(mocks.dependencies(), cfg)
	if err != nil {
		t.Fatalf("NewIAMService failed: %v", err)
	}
	return svc
}

// seedUser inserts a user holding the given explicit grants.
func seedUser(m *testMocks, id, email string, roles ...auth.Role) *models.User {
	user := &models.User{
		ID:    id,
		Email: email,
		Name:  "Test " + id,
	}
	m.users.users[id] = user
	for _, role := range roles {
		m.roleGrants.grants = append(m.roleGrants.grants, models.RoleGrant{
			ID:        "grant-" + id + "-" + string(role),
			UserID:    id,
			Role:      string(role),
			GrantedBy: auth.SystemUserID,
		})
	}
	return user
}

// seedSession inserts a session row and returns the raw token for cookies.
func seedSession(t *testing.T, m *testMocks, id, userID string, activeRole auth.Role, expiresAt time.Time) string {
	t.Helper()

	token, tokenHash, err := auth.GenerateSessionToken()
	if err != nil {
		t.Fatalf("GenerateSessionToken failed: %v", err)
	}
	m.sessions.sessions[id] = &models.Session{
		ID:         id,
		UserID:     userID,
		TokenHash:  tokenHash,
		ActiveRole: string(activeRole),
		ExpiresAt:  expiresAt,
		CreatedAt:  time.Now(),
		LastUsedAt: time.Now(),
	}
	return token
}

// setPassword bcrypt-hashes the password onto the user row.
func setPassword(t *testing.T, user *models.User, password string) {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt failed: %v", err)
	}
	hashStr := string(hashed)
	user.PasswordHash = &hashStr
}
