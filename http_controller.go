package onboarding

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// HTTPController exposes the onboarding surface as JSON endpoints.
type HTTPController struct {
	onboarder *Onboarder
	config    HTTPConfig
}

// HTTPConfig configures the HTTP controller.
type HTTPConfig struct {
	// PathPrefix for routes (default: "/auth")
	PathPrefix string

	// Debug dumps bound payloads to stdout
	Debug bool

	// ErrorHandler handles errors (optional)
	ErrorHandler func(ctx router.Context, err error) error
}

// NewHTTPController creates the controller with config defaults.
func NewHTTPController(onboarder *Onboarder, cfg HTTPConfig) *HTTPController {
	if cfg.PathPrefix == "" {
		cfg.PathPrefix = "/auth"
	}

	c := &HTTPController{
		onboarder: onboarder,
		config:    cfg,
	}

	if c.config.ErrorHandler == nil {
		c.config.ErrorHandler = c.respondError
	}

	return c
}

// RegisterRoutes registers the onboarding routes on the group.
func (c *HTTPController) RegisterRoutes(group RouteRegistrar) {
	group.Post("/login", c.Login)
	group.Post("/register", c.RegisterUser)
	group.Post("/register/candidate", c.RegisterCandidate)
	group.Post("/register/company", c.RegisterCompany)
	group.Post("/register/ngo", c.RegisterNgo)
	group.Post("/magic-link", c.RequestMagicLink)
	group.Post("/magic-link/verify", c.VerifyMagicLink)
	group.Post("/password/forgot", c.ForgotPassword)
	group.Post("/password/reset", c.ResetPassword)
	group.Post("/email/verify", c.VerifyEmail)
	group.Post("/refresh", c.Refresh)
	group.Delete("/session", c.Logout)
}

// LoginPayload is the credential pair, optionally scoped to an
// organization the account owns.
type LoginPayload struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	OrganizationID string `json:"organization_id"`
}

func (r LoginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
		validation.Field(&r.OrganizationID, is.UUIDv4),
	)
}

// Login authenticates a credential pair and returns a session.
func (c *HTTPController) Login(ctx router.Context) error {
	payload := &LoginPayload{}
	if err := ctx.Bind(payload); err != nil {
		return c.badRequest(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return c.badRequest(ctx, err)
	}

	if c.config.Debug {
		fmt.Println(print.MaybePrettyJSON(payload))
	}

	var (
		result *AuthResult
		err    error
	)

	if payload.OrganizationID != "" {
		orgID, parseErr := uuid.Parse(payload.OrganizationID)
		if parseErr != nil {
			return c.badRequest(ctx, parseErr)
		}
		result, err = c.onboarder.LoginWithOrganizationContext(ctx.Context(), payload.Email, payload.Password, orgID)
	} else {
		result, err = c.onboarder.Login(ctx.Context(), payload.Email, payload.Password)
	}

	if err != nil {
		return c.config.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, result)
}

// RegisterUser provisions a plain account.
func (c *HTTPController) RegisterUser(ctx router.Context) error {
	payload := &RegisterUserMessage{}
	if err := ctx.Bind(payload); err != nil {
		return c.badRequest(ctx, err)
	}

	result, err := c.onboarder.RegisterUser(ctx.Context(), *payload)
	if err != nil {
		return c.config.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, result)
}

// RegisterCandidate provisions a job-seeker account. Attachments come
// in as base64 content fields on the JSON payload.
func (c *HTTPController) RegisterCandidate(ctx router.Context) error {
	payload := &RegisterCandidateMessage{}
	if err := ctx.Bind(payload); err != nil {
		return c.badRequest(ctx, err)
	}

	result, err := c.onboarder.RegisterCandidate(ctx.Context(), *payload)
	if err != nil {
		return c.config.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, result)
}

// RegisterCompany provisions an employer organization account.
func (c *HTTPController) RegisterCompany(ctx router.Context) error {
	payload := &RegisterCompanyMessage{}
	if err := ctx.Bind(payload); err != nil {
		return c.badRequest(ctx, err)
	}

	result, err := c.onboarder.RegisterCompany(ctx.Context(), *payload)
	if err != nil {
		return c.config.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, result)
}

// RegisterNgo provisions a support organization account.
func (c *HTTPController) RegisterNgo(ctx router.Context) error {
	payload := &RegisterNgoMessage{}
	if err := ctx.Bind(payload); err != nil {
		return c.badRequest(ctx, err)
	}

	result, err := c.onboarder.RegisterNgo(ctx.Context(), *payload)
	if err != nil {
		return c.config.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusCreated, result)
}

// EmailPayload carries a bare email address.
type EmailPayload struct {
	Email string `json:"email"`
}

func (r EmailPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

// RequestMagicLink requests a passwordless sign-in link.
func (c *HTTPController) RequestMagicLink(ctx router.Context) error {
	payload := &EmailPayload{}
	if err := ctx.Bind(payload); err != nil {
		return c.badRequest(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return c.badRequest(ctx, err)
	}

	message, err := c.onboarder.RequestMagicLink(ctx.Context(), payload.Email)
	if err != nil {
		return c.config.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]string{
		"message": message,
	})
}

// TokenPayload carries an email and the single-use token sent to it.
type TokenPayload struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

func (r TokenPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Token, validation.Required),
	)
}

// VerifyMagicLink redeems a sign-in link and returns a session.
func (c *HTTPController) VerifyMagicLink(ctx router.Context) error {
	payload := &TokenPayload{}
	if err := ctx.Bind(payload); err != nil {
		return c.badRequest(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return c.badRequest(ctx, err)
	}

	result, err := c.onboarder.VerifyMagicLink(ctx.Context(), payload.Email, payload.Token)
	if err != nil {
		return c.config.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, result)
}

// ForgotPassword requests a password reset link.
func (c *HTTPController) ForgotPassword(ctx router.Context) error {
	payload := &EmailPayload{}
	if err := ctx.Bind(payload); err != nil {
		return c.badRequest(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return c.badRequest(ctx, err)
	}

	message, err := c.onboarder.ForgotPassword(ctx.Context(), payload.Email)
	if err != nil {
		return c.config.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]string{
		"message": message,
	})
}

// ResetPasswordPayload finalizes a password reset.
type ResetPasswordPayload struct {
	Email           string `json:"email"`
	Token           string `json:"token"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (r ResetPasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.Password, validation.Required, validation.Length(MinPasswordLength, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(func(value any) error {
				s, _ := value.(string)
				if s != r.Password {
					return fmt.Errorf("passwords do not match")
				}
				return nil
			}),
		),
	)
}

// ResetPassword redeems a reset token and stores the new credential.
func (c *HTTPController) ResetPassword(ctx router.Context) error {
	payload := &ResetPasswordPayload{}
	if err := ctx.Bind(payload); err != nil {
		return c.badRequest(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return c.badRequest(ctx, err)
	}

	if err := c.onboarder.ResetPassword(ctx.Context(), payload.Email, payload.Token, payload.Password); err != nil {
		return c.config.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]string{
		"message": "password updated",
	})
}

// VerifyEmail redeems a verification token.
func (c *HTTPController) VerifyEmail(ctx router.Context) error {
	payload := &TokenPayload{}
	if err := ctx.Bind(payload); err != nil {
		return c.badRequest(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return c.badRequest(ctx, err)
	}

	if err := c.onboarder.VerifyEmail(ctx.Context(), payload.Email, payload.Token); err != nil {
		return c.config.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]string{
		"message": "email verified",
	})
}

// RefreshPayload rotates a session.
type RefreshPayload struct {
	AccountID    string `json:"account_id"`
	RefreshToken string `json:"refresh_token"`
}

func (r RefreshPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.AccountID, validation.Required, is.UUIDv4),
		validation.Field(&r.RefreshToken, validation.Required),
	)
}

// Refresh rotates an access/refresh pair.
func (c *HTTPController) Refresh(ctx router.Context) error {
	payload := &RefreshPayload{}
	if err := ctx.Bind(payload); err != nil {
		return c.badRequest(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return c.badRequest(ctx, err)
	}

	accountID, err := uuid.Parse(payload.AccountID)
	if err != nil {
		return c.badRequest(ctx, err)
	}

	result, err := c.onboarder.RefreshSession(ctx.Context(), accountID, payload.RefreshToken)
	if err != nil {
		return c.config.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, result)
}

// LogoutPayload revokes a session.
type LogoutPayload struct {
	AccountID string `json:"account_id"`
}

// Logout revokes the account's refresh token.
func (c *HTTPController) Logout(ctx router.Context) error {
	payload := &LogoutPayload{}
	if err := ctx.Bind(payload); err != nil {
		return c.badRequest(ctx, err)
	}

	accountID, err := uuid.Parse(payload.AccountID)
	if err != nil {
		return c.badRequest(ctx, err)
	}

	if err := c.onboarder.Logout(ctx.Context(), accountID); err != nil {
		return c.config.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, map[string]string{
		"message": "logged out",
	})
}

func (c *HTTPController) badRequest(ctx router.Context, err error) error {
	return ctx.JSON(router.StatusBadRequest, map[string]any{
		"error": err.Error(),
	})
}

// respondError maps error categories to HTTP statuses. Lockout
// rejections carry their retry hint through to the body.
func (c *HTTPController) respondError(ctx router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "an unexpected error occurred")
	}

	status := router.StatusInternalServerError
	switch richErr.Category {
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		status = router.StatusUnauthorized
		if richErr.Code == goerrors.CodeForbidden {
			status = router.StatusForbidden
		}
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		status = router.StatusBadRequest
	case goerrors.CategoryConflict:
		status = router.StatusConflict
	case goerrors.CategoryRateLimit:
		status = router.StatusTooManyRequests
	case goerrors.CategoryNotFound:
		status = router.StatusNotFound
	}

	body := map[string]any{
		"error": richErr.Message,
	}
	if richErr.TextCode != "" {
		body["code"] = richErr.TextCode
	}
	if len(richErr.Metadata) > 0 {
		body["metadata"] = richErr.Metadata
	}

	return ctx.JSON(status, body)
}
