package onboarding_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	onboarding "github.com/goliatone/go-onboarding"
)

type recordingRegistrar struct {
	routes []string
}

func (r *recordingRegistrar) Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo {
	r.routes = append(r.routes, "GET "+path)
	return nil
}

func (r *recordingRegistrar) Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo {
	r.routes = append(r.routes, "POST "+path)
	return nil
}

func (r *recordingRegistrar) Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo {
	r.routes = append(r.routes, "DELETE "+path)
	return nil
}

func TestHTTPControllerRegisterRoutes(t *testing.T) {
	controller := onboarding.NewHTTPController(
		onboarding.NewOnboarder(newMockRepoManager(), sessionSigningKey),
		onboarding.HTTPConfig{},
	)

	group := &recordingRegistrar{}
	controller.RegisterRoutes(group)

	assert.Equal(t, []string{
		"POST /login",
		"POST /register",
		"POST /register/candidate",
		"POST /register/company",
		"POST /register/ngo",
		"POST /magic-link",
		"POST /magic-link/verify",
		"POST /password/forgot",
		"POST /password/reset",
		"POST /email/verify",
		"POST /refresh",
		"DELETE /session",
	}, group.routes)
}

func TestHTTPControllerLogin(t *testing.T) {
	t.Run("valid credentials return the session", func(t *testing.T) {
		repo := newMockRepoManager()
		onboarder := onboarding.NewOnboarder(repo, sessionSigningKey)
		controller := onboarding.NewHTTPController(onboarder, onboarding.HTTPConfig{})

		account := facadeAccount(t)
		repo.accounts.On("GetByEmail", mock.Anything, "user@example.com").
			Return(account, nil).Once()
		repo.accounts.On("TrackSuccessfulLogin", mock.Anything, mock.Anything).Return(nil).Once()
		repo.accounts.On("SetRefreshToken", mock.Anything, account.ID, mock.Anything).
			Return(nil).Once()

		ctx := router.NewMockContext()
		ctx.On("Context").Return(context.Background())
		ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
			payload := args.Get(0).(*onboarding.LoginPayload)
			payload.Email = "user@example.com"
			payload.Password = "Sup3r-secret!"
		}).Return(nil)

		var result *onboarding.AuthResult
		ctx.On("JSON", router.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
			result = args.Get(1).(*onboarding.AuthResult)
		}).Return(nil)

		require.NoError(t, controller.Login(ctx))
		require.NotNil(t, result)
		assert.NotEmpty(t, result.AccessToken)
		assert.Empty(t, result.Account.PasswordHash)

		ctx.AssertExpectations(t)
		repo.assertExpectations(t)
	})

	t.Run("malformed email is a bad request", func(t *testing.T) {
		controller := onboarding.NewHTTPController(
			onboarding.NewOnboarder(newMockRepoManager(), sessionSigningKey),
			onboarding.HTTPConfig{},
		)

		ctx := router.NewMockContext()
		ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
			payload := args.Get(0).(*onboarding.LoginPayload)
			payload.Email = "not-an-email"
			payload.Password = "whatever"
		}).Return(nil)

		var body map[string]any
		ctx.On("JSON", router.StatusBadRequest, mock.Anything).Run(func(args mock.Arguments) {
			body = args.Get(1).(map[string]any)
		}).Return(nil)

		require.NoError(t, controller.Login(ctx))
		assert.Contains(t, body["error"], "email")
	})

	t.Run("bind failure is a bad request", func(t *testing.T) {
		controller := onboarding.NewHTTPController(
			onboarding.NewOnboarder(newMockRepoManager(), sessionSigningKey),
			onboarding.HTTPConfig{},
		)

		ctx := router.NewMockContext()
		ctx.On("Bind", mock.Anything).Return(assert.AnError)
		ctx.On("JSON", router.StatusBadRequest, mock.Anything).Return(nil)

		require.NoError(t, controller.Login(ctx))
		ctx.AssertExpectations(t)
	})

	t.Run("wrong password maps to unauthorized", func(t *testing.T) {
		repo := newMockRepoManager()
		onboarder := onboarding.NewOnboarder(repo, sessionSigningKey)
		controller := onboarding.NewHTTPController(onboarder, onboarding.HTTPConfig{})

		repo.accounts.On("GetByEmail", mock.Anything, "user@example.com").
			Return(facadeAccount(t), nil).Once()

		ctx := router.NewMockContext()
		ctx.On("Context").Return(context.Background())
		ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
			payload := args.Get(0).(*onboarding.LoginPayload)
			payload.Email = "user@example.com"
			payload.Password = "wrong-password"
		}).Return(nil)

		var body map[string]any
		ctx.On("JSON", router.StatusUnauthorized, mock.Anything).Run(func(args mock.Arguments) {
			body = args.Get(1).(map[string]any)
		}).Return(nil)

		require.NoError(t, controller.Login(ctx))
		assert.Equal(t, onboarding.TextCodeInvalidCredentials, body["code"])
	})
}

func TestHTTPControllerRegisterUser(t *testing.T) {
	t.Run("provisioned account is returned with 201", func(t *testing.T) {
		repo := newMockRepoManager()
		notifier := &MockNotifier{}
		onboarder := onboarding.NewOnboarder(repo, sessionSigningKey).WithNotifier(notifier)
		controller := onboarding.NewHTTPController(onboarder, onboarding.HTTPConfig{})

		role := &onboarding.Role{ID: uuid.New(), Name: onboarding.RoleDefault}

		repo.accounts.On("GetByEmail", mock.Anything, "new@example.com").
			Return(nil, notFoundErr()).Once()
		expectCreateAccount(repo.accounts)
		repo.roles.On("GetOrCreate", mock.Anything, onboarding.RoleDefault).Return(role, nil).Once()
		repo.roles.On("Attach", mock.Anything, mock.Anything, role.ID).Return(nil).Once()
		repo.accounts.On("SetAuthToken", mock.Anything, mock.Anything,
			onboarding.TokenKindVerification, mock.AnythingOfType("string"), mock.Anything).
			Return(nil).Once()
		notifier.On("SendVerification", mock.Anything, "new@example.com", mock.AnythingOfType("string")).
			Return(nil).Once()

		ctx := router.NewMockContext()
		ctx.On("Context").Return(context.Background())
		ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
			payload := args.Get(0).(*onboarding.RegisterUserMessage)
			payload.Email = "new@example.com"
			payload.Password = "Sup3r-secret!"
		}).Return(nil)

		var result *onboarding.ProvisionedResult
		ctx.On("JSON", router.StatusCreated, mock.Anything).Run(func(args mock.Arguments) {
			result = args.Get(1).(*onboarding.ProvisionedResult)
		}).Return(nil)

		require.NoError(t, controller.RegisterUser(ctx))
		require.NotNil(t, result)
		assert.Equal(t, onboarding.MessageVerificationEmailSent, result.Message)

		repo.assertExpectations(t)
		notifier.AssertExpectations(t)
	})

	t.Run("duplicate email maps to conflict", func(t *testing.T) {
		repo := newMockRepoManager()
		onboarder := onboarding.NewOnboarder(repo, sessionSigningKey)
		controller := onboarding.NewHTTPController(onboarder, onboarding.HTTPConfig{})

		existing := &onboarding.Account{ID: uuid.New(), Email: "new@example.com"}
		repo.accounts.On("GetByEmail", mock.Anything, "new@example.com").
			Return(existing, nil).Once()

		ctx := router.NewMockContext()
		ctx.On("Context").Return(context.Background())
		ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
			payload := args.Get(0).(*onboarding.RegisterUserMessage)
			payload.Email = "new@example.com"
			payload.Password = "Sup3r-secret!"
		}).Return(nil)

		var body map[string]any
		ctx.On("JSON", router.StatusConflict, mock.Anything).Run(func(args mock.Arguments) {
			body = args.Get(1).(map[string]any)
		}).Return(nil)

		require.NoError(t, controller.RegisterUser(ctx))
		assert.Equal(t, onboarding.TextCodeEmailTaken, body["code"])
	})

	t.Run("invalid payload maps to bad request", func(t *testing.T) {
		controller := onboarding.NewHTTPController(
			onboarding.NewOnboarder(newMockRepoManager(), sessionSigningKey),
			onboarding.HTTPConfig{},
		)

		ctx := router.NewMockContext()
		ctx.On("Context").Return(context.Background())
		ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
			payload := args.Get(0).(*onboarding.RegisterUserMessage)
			payload.Email = "not-an-email"
			payload.Password = "Sup3r-secret!"
		}).Return(nil)
		ctx.On("JSON", router.StatusBadRequest, mock.Anything).Return(nil)

		require.NoError(t, controller.RegisterUser(ctx))
		ctx.AssertExpectations(t)
	})
}

func TestHTTPControllerRequestMagicLink(t *testing.T) {
	t.Run("registered email gets a sign-in link", func(t *testing.T) {
		repo := newMockRepoManager()
		notifier := &MockNotifier{}
		onboarder := onboarding.NewOnboarder(repo, sessionSigningKey).WithNotifier(notifier)
		controller := onboarding.NewHTTPController(onboarder, onboarding.HTTPConfig{})

		account := facadeAccount(t)
		repo.accounts.On("GetByEmail", mock.Anything, "user@example.com").
			Return(account, nil).Once()
		repo.accounts.On("SetAuthToken", mock.Anything, account.ID,
			onboarding.TokenKindMagicLink, mock.AnythingOfType("string"), mock.Anything).
			Return(nil).Once()
		notifier.On("SendMagicLink", mock.Anything, "user@example.com", mock.AnythingOfType("string")).
			Return(nil).Once()

		ctx := router.NewMockContext()
		ctx.On("Context").Return(context.Background())
		ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
			payload := args.Get(0).(*onboarding.EmailPayload)
			payload.Email = "user@example.com"
		}).Return(nil)

		var body map[string]string
		ctx.On("JSON", router.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
			body = args.Get(1).(map[string]string)
		}).Return(nil)

		require.NoError(t, controller.RequestMagicLink(ctx))
		assert.Equal(t, onboarding.MessageMagicLinkSent, body["message"])

		repo.assertExpectations(t)
		notifier.AssertExpectations(t)
	})
}

func TestHTTPControllerResetPassword(t *testing.T) {
	t.Run("password confirmation mismatch is a bad request", func(t *testing.T) {
		controller := onboarding.NewHTTPController(
			onboarding.NewOnboarder(newMockRepoManager(), sessionSigningKey),
			onboarding.HTTPConfig{},
		)

		ctx := router.NewMockContext()
		ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
			payload := args.Get(0).(*onboarding.ResetPasswordPayload)
			payload.Email = "user@example.com"
			payload.Token = "the-token"
			payload.Password = "Sup3r-secret!"
			payload.ConfirmPassword = "Different-secret!"
		}).Return(nil)

		var body map[string]any
		ctx.On("JSON", router.StatusBadRequest, mock.Anything).Run(func(args mock.Arguments) {
			body = args.Get(1).(map[string]any)
		}).Return(nil)

		require.NoError(t, controller.ResetPassword(ctx))
		assert.Contains(t, body["error"], "confirm_password")
	})
}

func TestHTTPControllerRefresh(t *testing.T) {
	t.Run("rotates the session pair", func(t *testing.T) {
		repo := newMockRepoManager()
		onboarder := onboarding.NewOnboarder(repo, sessionSigningKey)
		controller := onboarding.NewHTTPController(onboarder, onboarding.HTTPConfig{})

		account := facadeAccount(t)
		account.RefreshToken = "current-refresh-token"

		repo.accounts.On("GetWithRoles", mock.Anything, account.ID).
			Return(account, nil).Once()
		repo.accounts.On("SetRefreshToken", mock.Anything, account.ID, mock.AnythingOfType("string")).
			Return(nil).Once()

		ctx := router.NewMockContext()
		ctx.On("Context").Return(context.Background())
		ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
			payload := args.Get(0).(*onboarding.RefreshPayload)
			payload.AccountID = account.ID.String()
			payload.RefreshToken = "current-refresh-token"
		}).Return(nil)

		var result *onboarding.AuthResult
		ctx.On("JSON", router.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
			result = args.Get(1).(*onboarding.AuthResult)
		}).Return(nil)

		require.NoError(t, controller.Refresh(ctx))
		require.NotNil(t, result)
		assert.NotEqual(t, "current-refresh-token", result.RefreshToken)

		repo.assertExpectations(t)
	})

	t.Run("malformed account id is a bad request", func(t *testing.T) {
		controller := onboarding.NewHTTPController(
			onboarding.NewOnboarder(newMockRepoManager(), sessionSigningKey),
			onboarding.HTTPConfig{},
		)

		ctx := router.NewMockContext()
		ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
			payload := args.Get(0).(*onboarding.RefreshPayload)
			payload.AccountID = "not-a-uuid"
			payload.RefreshToken = "whatever"
		}).Return(nil)
		ctx.On("JSON", router.StatusBadRequest, mock.Anything).Return(nil)

		require.NoError(t, controller.Refresh(ctx))
		ctx.AssertExpectations(t)
	})
}

func TestHTTPControllerLogout(t *testing.T) {
	t.Run("revokes the refresh token", func(t *testing.T) {
		repo := newMockRepoManager()
		onboarder := onboarding.NewOnboarder(repo, sessionSigningKey)
		controller := onboarding.NewHTTPController(onboarder, onboarding.HTTPConfig{})

		id := uuid.New()
		repo.accounts.On("SetRefreshToken", mock.Anything, id, "").Return(nil).Once()

		ctx := router.NewMockContext()
		ctx.On("Context").Return(context.Background())
		ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
			payload := args.Get(0).(*onboarding.LogoutPayload)
			payload.AccountID = id.String()
		}).Return(nil)

		var body map[string]string
		ctx.On("JSON", router.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
			body = args.Get(1).(map[string]string)
		}).Return(nil)

		require.NoError(t, controller.Logout(ctx))
		assert.Equal(t, "logged out", body["message"])

		repo.assertExpectations(t)
	})
}

func TestHTTPControllerErrorHandler(t *testing.T) {
	t.Run("custom handler intercepts facade failures", func(t *testing.T) {
		repo := newMockRepoManager()
		onboarder := onboarding.NewOnboarder(repo, sessionSigningKey)

		var handled error
		controller := onboarding.NewHTTPController(onboarder, onboarding.HTTPConfig{
			ErrorHandler: func(ctx router.Context, err error) error {
				handled = err
				return nil
			},
		})

		repo.accounts.On("GetByEmail", mock.Anything, "user@example.com").
			Return(nil, notFoundErr()).Once()

		ctx := router.NewMockContext()
		ctx.On("Context").Return(context.Background())
		ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
			payload := args.Get(0).(*onboarding.LoginPayload)
			payload.Email = "user@example.com"
			payload.Password = "Sup3r-secret!"
		}).Return(nil)

		require.NoError(t, controller.Login(ctx))
		assert.ErrorIs(t, handled, onboarding.ErrInvalidCredentials)
	})
}
