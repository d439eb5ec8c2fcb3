package onboarding_test

import (
	"context"
	"database/sql"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"

	onboarding "github.com/goliatone/go-onboarding"
)

func notFoundErr() error {
	return goerrors.New("record not found", goerrors.CategoryNotFound).
		WithCode(goerrors.CodeNotFound)
}

// MockCredentialStore implements onboarding.CredentialStore
type MockCredentialStore struct {
	mock.Mock
}

func (m *MockCredentialStore) GetByEmail(ctx context.Context, email string) (*onboarding.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*onboarding.Account), args.Error(1)
}

func (m *MockCredentialStore) TrackSuccessfulLogin(ctx context.Context, account *onboarding.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

// MockTokenStore implements onboarding.TokenStore
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) GetByEmail(ctx context.Context, email string) (*onboarding.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*onboarding.Account), args.Error(1)
}

func (m *MockTokenStore) SetAuthToken(ctx context.Context, id uuid.UUID, kind onboarding.TokenKind, token string, expiresAt time.Time) error {
	args := m.Called(ctx, id, kind, token, expiresAt)
	return args.Error(0)
}

func (m *MockTokenStore) ClearAuthToken(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockSessionStore implements onboarding.SessionStore
type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) GetWithRoles(ctx context.Context, id uuid.UUID) (*onboarding.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*onboarding.Account), args.Error(1)
}

func (m *MockSessionStore) SetRefreshToken(ctx context.Context, id uuid.UUID, token string) error {
	args := m.Called(ctx, id, token)
	return args.Error(0)
}

// MockStatusStore implements onboarding.StatusStore
type MockStatusStore struct {
	mock.Mock
}

func (m *MockStatusStore) UpdateStatus(ctx context.Context, id uuid.UUID, status onboarding.AccountStatus) (*onboarding.Account, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*onboarding.Account), args.Error(1)
}

// MockStager implements onboarding.AssetStager
type MockStager struct {
	mock.Mock
}

func (m *MockStager) Stage(ctx context.Context, content []byte, meta onboarding.AssetMeta) (onboarding.AssetRef, error) {
	args := m.Called(ctx, content, meta)
	return args.Get(0).(onboarding.AssetRef), args.Error(1)
}

func (m *MockStager) Unstage(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// MockNotifier implements onboarding.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendVerification(ctx context.Context, email, token string) error {
	args := m.Called(ctx, email, token)
	return args.Error(0)
}

func (m *MockNotifier) SendMagicLink(ctx context.Context, email, token string) error {
	args := m.Called(ctx, email, token)
	return args.Error(0)
}

func (m *MockNotifier) SendPasswordReset(ctx context.Context, email, token string) error {
	args := m.Called(ctx, email, token)
	return args.Error(0)
}

func (m *MockNotifier) SendApplicationReceived(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

// MockAccounts mocks the methods the flows under test use. The
// embedded interface covers the rest; calling an unmocked method
// panics, which is what we want in a test.
type MockAccounts struct {
	mock.Mock
	onboarding.Accounts
}

func (m *MockAccounts) GetByEmail(ctx context.Context, email string) (*onboarding.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*onboarding.Account), args.Error(1)
}

func (m *MockAccounts) GetWithRoles(ctx context.Context, id uuid.UUID) (*onboarding.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*onboarding.Account), args.Error(1)
}

// Create echoes the record back when configured with Return(nil, nil),
// mirroring how the real repository returns the inserted row.
func (m *MockAccounts) Create(ctx context.Context, record *onboarding.Account, criteria ...repository.InsertCriteria) (*onboarding.Account, error) {
	args := m.Called(ctx, record)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	if args.Get(0) == nil {
		return record, nil
	}
	return args.Get(0).(*onboarding.Account), nil
}

func (m *MockAccounts) HardDelete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAccounts) SetAuthToken(ctx context.Context, id uuid.UUID, kind onboarding.TokenKind, token string, expiresAt time.Time) error {
	args := m.Called(ctx, id, kind, token, expiresAt)
	return args.Error(0)
}

func (m *MockAccounts) ClearAuthToken(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAccounts) SetRefreshToken(ctx context.Context, id uuid.UUID, token string) error {
	args := m.Called(ctx, id, token)
	return args.Error(0)
}

func (m *MockAccounts) SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *MockAccounts) MarkVerified(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAccounts) UpdateStatus(ctx context.Context, id uuid.UUID, status onboarding.AccountStatus) (*onboarding.Account, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*onboarding.Account), args.Error(1)
}

func (m *MockAccounts) TrackSuccessfulLogin(ctx context.Context, account *onboarding.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

// MockProfiles mocks onboarding.Profiles
type MockProfiles struct {
	mock.Mock
	onboarding.Profiles

	NgoRepo repository.Repository[*onboarding.NgoProfile]
}

func (m *MockProfiles) Ngos() repository.Repository[*onboarding.NgoProfile] {
	return m.NgoRepo
}

func (m *MockProfiles) CreateCandidate(ctx context.Context, record *onboarding.CandidateProfile) (*onboarding.CandidateProfile, error) {
	args := m.Called(ctx, record)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	if args.Get(0) == nil {
		return record, nil
	}
	return args.Get(0).(*onboarding.CandidateProfile), nil
}

func (m *MockProfiles) CreateCompany(ctx context.Context, record *onboarding.CompanyProfile) (*onboarding.CompanyProfile, error) {
	args := m.Called(ctx, record)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	if args.Get(0) == nil {
		return record, nil
	}
	return args.Get(0).(*onboarding.CompanyProfile), nil
}

func (m *MockProfiles) CreateNgo(ctx context.Context, record *onboarding.NgoProfile) (*onboarding.NgoProfile, error) {
	args := m.Called(ctx, record)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	if args.Get(0) == nil {
		return record, nil
	}
	return args.Get(0).(*onboarding.NgoProfile), nil
}

func (m *MockProfiles) UpdateCompletion(ctx context.Context, kind onboarding.ProfileKind, accountID uuid.UUID, pct int) error {
	args := m.Called(ctx, kind, accountID, pct)
	return args.Error(0)
}

func (m *MockProfiles) GetOrganizationOwner(ctx context.Context, orgID uuid.UUID) (uuid.UUID, onboarding.ProfileKind, error) {
	args := m.Called(ctx, orgID)
	return args.Get(0).(uuid.UUID), args.Get(1).(onboarding.ProfileKind), args.Error(2)
}

// MockAssets mocks onboarding.Assets
type MockAssets struct {
	mock.Mock
	onboarding.Assets
}

func (m *MockAssets) CreateAsset(ctx context.Context, record *onboarding.Asset) (*onboarding.Asset, error) {
	args := m.Called(ctx, record)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	if args.Get(0) == nil {
		return record, nil
	}
	return args.Get(0).(*onboarding.Asset), nil
}

func (m *MockAssets) AddProvenance(ctx context.Context, assetID, ngoID uuid.UUID) error {
	args := m.Called(ctx, assetID, ngoID)
	return args.Error(0)
}

// MockRoles mocks onboarding.Roles
type MockRoles struct {
	mock.Mock
	onboarding.Roles
}

func (m *MockRoles) GetOrCreate(ctx context.Context, name string) (*onboarding.Role, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*onboarding.Role), args.Error(1)
}

func (m *MockRoles) Attach(ctx context.Context, accountID, roleID uuid.UUID) error {
	args := m.Called(ctx, accountID, roleID)
	return args.Error(0)
}

// mockNgoRepo mocks the lookup side of the NGO profile repository.
type mockNgoRepo struct {
	mock.Mock
	repository.Repository[*onboarding.NgoProfile]
}

func (m *mockNgoRepo) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*onboarding.NgoProfile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*onboarding.NgoProfile), args.Error(1)
}

// mockRepoManager bundles the mocks behind onboarding.RepositoryManager
type mockRepoManager struct {
	accounts *MockAccounts
	profiles *MockProfiles
	assets   *MockAssets
	roles    *MockRoles
}

func newMockRepoManager() *mockRepoManager {
	return &mockRepoManager{
		accounts: &MockAccounts{},
		profiles: &MockProfiles{},
		assets:   &MockAssets{},
		roles:    &MockRoles{},
	}
}

func (m *mockRepoManager) Validate() error { return nil }
func (m *mockRepoManager) MustValidate()   {}

func (m *mockRepoManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

func (m *mockRepoManager) Accounts() onboarding.Accounts { return m.accounts }
func (m *mockRepoManager) Profiles() onboarding.Profiles { return m.profiles }
func (m *mockRepoManager) Assets() onboarding.Assets     { return m.assets }
func (m *mockRepoManager) Roles() onboarding.Roles       { return m.roles }

func (m *mockRepoManager) assertExpectations(t interface {
	mock.TestingT
}) {
	m.accounts.AssertExpectations(t)
	m.profiles.AssertExpectations(t)
	m.assets.AssertExpectations(t)
	m.roles.AssertExpectations(t)
}

// captureSink records activity events for assertions.
type captureSink struct {
	mu     sync.Mutex
	events []onboarding.ActivityEvent
}

func (s *captureSink) Record(_ context.Context, event onboarding.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *captureSink) byType(t onboarding.ActivityEventType) []onboarding.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []onboarding.ActivityEvent
	for _, e := range s.events {
		if e.EventType == t {
			out = append(out, e)
		}
	}
	return out
}
