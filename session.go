package onboarding

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// DefaultAccessTokenTTL is the access token lifetime when none is
// configured.
const DefaultAccessTokenTTL = time.Hour

// SessionStore is the account access the issuer needs. The refresh
// token is stored verbatim server-side, one active value per account.
type SessionStore interface {
	GetWithRoles(ctx context.Context, id uuid.UUID) (*Account, error)
	SetRefreshToken(ctx context.Context, id uuid.UUID, token string) error
}

// Session is an issued access/refresh token pair.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// SessionOption tweaks the claims of one issuance.
type SessionOption func(*SessionClaims)

// WithResourceRole scopes a role snapshot to a resource, e.g. an
// organization context.
func WithResourceRole(resource, role string) SessionOption {
	return func(c *SessionClaims) {
		if c.Resources == nil {
			c.Resources = map[string]string{}
		}
		c.Resources[resource] = role
	}
}

// SessionIssuer mints and rotates access/refresh token pairs. Access
// tokens are stateless JWTs carrying a role snapshot; refresh tokens
// are opaque values persisted on the account and rotated on every
// refresh.
type SessionIssuer struct {
	store      SessionStore
	signingKey []byte
	accessTTL  time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	logger     Logger
	now        func() time.Time
}

// NewSessionIssuer creates an issuer with the default access TTL.
func NewSessionIssuer(store SessionStore, signingKey []byte) *SessionIssuer {
	return &SessionIssuer{
		store:      store,
		signingKey: signingKey,
		accessTTL:  DefaultAccessTokenTTL,
		logger:     defLogger{},
		now:        time.Now,
	}
}

// WithAccessTTL overrides the access token lifetime.
func (s *SessionIssuer) WithAccessTTL(ttl time.Duration) *SessionIssuer {
	if ttl > 0 {
		s.accessTTL = ttl
	}
	return s
}

// WithIssuer sets the iss claim.
func (s *SessionIssuer) WithIssuer(issuer string) *SessionIssuer {
	s.issuer = issuer
	return s
}

// WithAudience sets the aud claim.
func (s *SessionIssuer) WithAudience(audience ...string) *SessionIssuer {
	s.audience = append(jwt.ClaimStrings{}, audience...)
	return s
}

// WithLogger overrides the logger.
func (s *SessionIssuer) WithLogger(logger Logger) *SessionIssuer {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithClock overrides the time source, used by tests.
func (s *SessionIssuer) WithClock(now func() time.Time) *SessionIssuer {
	if now != nil {
		s.now = now
	}
	return s
}

// Issue mints a pair for the account and persists the refresh token,
// replacing whatever was active.
func (s *SessionIssuer) Issue(ctx context.Context, account *Account, opts ...SessionOption) (*Session, error) {
	if account == nil || account.ID == uuid.Nil {
		return nil, goerrors.New("account is required to issue a session", goerrors.CategoryBadInput)
	}

	claims := s.newClaims(account)
	for _, opt := range opts {
		if opt != nil {
			opt(claims)
		}
	}

	access, err := s.sign(claims)
	if err != nil {
		return nil, err
	}

	refresh := newOpaqueToken()
	if err := s.store.SetRefreshToken(ctx, account.ID, refresh); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist refresh token")
	}

	return &Session{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    claims.Expires(),
	}, nil
}

// Refresh rotates the pair. The presented refresh token must match
// the stored value byte for byte. A mismatch is rejected without
// revoking the stored token, so a stale client retry cannot lock out
// the legitimate holder of the current token.
func (s *SessionIssuer) Refresh(ctx context.Context, accountID uuid.UUID, presented string, opts ...SessionOption) (*Session, error) {
	account, err := s.store.GetWithRoles(ctx, accountID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account during refresh")
	}

	if account.RefreshToken == "" || presented == "" ||
		subtle.ConstantTimeCompare([]byte(account.RefreshToken), []byte(presented)) != 1 {
		return nil, ErrInvalidCredentials
	}

	account.EnsureStatus()
	if !account.IsActive || account.Status != AccountStatusActive {
		return nil, ErrAccountInactive
	}

	return s.Issue(ctx, account, opts...)
}

// Revoke clears the account's refresh token. Outstanding access
// tokens stay valid until they expire.
func (s *SessionIssuer) Revoke(ctx context.Context, accountID uuid.UUID) error {
	if err := s.store.SetRefreshToken(ctx, accountID, ""); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to revoke refresh token")
	}
	return nil
}

// Validate parses and validates an access token string.
func (s *SessionIssuer) Validate(tokenString string) (*SessionClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if s.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(s.issuer))
	}
	if len(s.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(s.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidCredentials
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidCredentials
	}

	return claims, nil
}

func (s *SessionIssuer) newClaims(account *Account) *SessionClaims {
	now := s.now()

	var aud jwt.ClaimStrings
	if len(s.audience) > 0 {
		aud = make(jwt.ClaimStrings, len(s.audience))
		copy(aud, s.audience)
	}

	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   account.ID.String(),
			Audience:  aud,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
		UID:      account.ID.String(),
		UserRole: account.PrimaryRole(),
		Roles:    account.RoleNames(),
	}

	ensureTokenID(&claims.RegisteredClaims)

	return claims
}

func (s *SessionIssuer) sign(claims *SessionClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign access token")
	}

	return signed, nil
}
