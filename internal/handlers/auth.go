package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	iauth "github.com/chirp-social/chirp/internal/auth"
	"github.com/chirp-social/chirp/internal/middleware"
	"github.com/chirp-social/chirp/pkg/crypto"
	"github.com/chirp-social/chirp/pkg/errors"
	"github.com/chirp-social/chirp/pkg/response"
)

// AuthHandler exposes the registration, login, federation and token
// lifecycle endpoints.
type AuthHandler struct {
	svc       *iauth.Service
	google    *iauth.GoogleProvider
	clientURL string
}

// NewAuthHandler builds the handler. google may be nil when federated login
// is not configured; clientURL is where the OAuth callback redirects with
// its tokens.
func NewAuthHandler(svc *iauth.Service, google *iauth.GoogleProvider, clientURL string) *AuthHandler {
	return &AuthHandler{
		svc:       svc,
		google:    google,
		clientURL: strings.TrimRight(clientURL, "/"),
	}
}

type registerRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6,max=50"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
	Name            string `json:"name" validate:"required,min=1,max=100"`
	DateOfBirth     string `json:"date_of_birth" validate:"omitempty"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type verifyEmailRequest struct {
	EmailVerifyToken string `json:"email_verify_token" validate:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type verifyForgotPasswordRequest struct {
	ForgotPasswordToken string `json:"forgot_password_token" validate:"required"`
}

type resetPasswordRequest struct {
	ForgotPasswordToken string `json:"forgot_password_token" validate:"required"`
	Password            string `json:"password" validate:"required,min=6,max=50"`
	ConfirmPassword     string `json:"confirm_password" validate:"required,eqfield=Password"`
}

type changePasswordRequest struct {
	OldPassword     string `json:"old_password" validate:"required"`
	Password        string `json:"password" validate:"required,min=6,max=50,nefield=OldPassword"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

// POST /api/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindAndValidate(c, &req) {
		return
	}

	dob, err := parseDateOfBirth(req.DateOfBirth)
	if err != nil {
		response.Error(c, errors.NewBadRequest("date of birth must be an ISO 8601 date"))
		return
	}

	user, pair, err := h.svc.Register(requestContext(c), iauth.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		Name:        req.Name,
		DateOfBirth: dob,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusCreated, "Register success", gin.H{
		"user":   user,
		"tokens": pair,
	})
}

// POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindAndValidate(c, &req) {
		return
	}

	user, pair, err := h.svc.Login(requestContext(c), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Login success", gin.H{
		"user":   user,
		"tokens": pair,
	})
}

// GET /api/auth/oauth/google
//
// The callback completes the provider flow, then hands the tokens to the web
// client through redirect query parameters. new_user lets the client route
// first-time accounts to onboarding; verify is the status snapshot baked
// into the tokens.
func (h *AuthHandler) OAuthGoogle(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		// Without a code this is the start of the flow: send the browser to
		// the provider's consent page when one is configured.
		if h.google != nil {
			state, err := crypto.GenerateToken(16)
			if err != nil {
				response.Error(c, errors.ErrInternalServer.WithInternal(err))
				return
			}
			c.Redirect(http.StatusFound, h.google.AuthCodeURL(state))
			return
		}
		response.Error(c, errors.NewBadRequest("code is required"))
		return
	}

	result, err := h.svc.OAuthGoogle(requestContext(c), code)
	if err != nil {
		response.Error(c, err)
		return
	}

	params := url.Values{}
	params.Set("access_token", result.Pair.AccessToken)
	params.Set("refresh_token", result.Pair.RefreshToken)
	params.Set("new_user", boolParam(result.NewUser))
	params.Set("verify", fmt.Sprintf("%d", result.Verify))

	c.Redirect(http.StatusFound, h.clientURL+"/login/oauth?"+params.Encode())
}

// POST /api/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindAndValidate(c, &req) {
		return
	}

	pair, err := h.svc.Refresh(requestContext(c), req.RefreshToken)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Refresh token success", pair)
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.svc.Logout(requestContext(c), req.RefreshToken); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Logout success", nil)
}

// POST /api/auth/verify-email
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req verifyEmailRequest
	if !bindAndValidate(c, &req) {
		return
	}

	pair, err := h.svc.VerifyEmailToken(requestContext(c), req.EmailVerifyToken)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Email verify success", pair)
}

// POST /api/auth/resend-verify-email (authenticated)
func (h *AuthHandler) ResendVerifyEmail(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	if err := h.svc.ResendVerifyEmail(requestContext(c), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Resend verify email success", nil)
}

// POST /api/auth/forgot-password
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.svc.ForgotPassword(requestContext(c), req.Email); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Check email to reset password", nil)
}

// POST /api/auth/verify-forgot-password
func (h *AuthHandler) VerifyForgotPassword(c *gin.Context) {
	var req verifyForgotPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if _, err := h.svc.VerifyForgotPasswordToken(requestContext(c), req.ForgotPasswordToken); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Verify forgot password token success", nil)
}

// POST /api/auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.svc.ResetPassword(requestContext(c), req.ForgotPasswordToken, req.Password); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Reset password success", nil)
}

// POST /api/auth/change-password (authenticated)
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	var req changePasswordRequest
	if !bindAndValidate(c, &req) {
		return
	}

	if err := h.svc.ChangePassword(requestContext(c), claims.UserID, req.OldPassword, req.Password); err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithMessage(c, http.StatusOK, "Change password success", nil)
}

func parseDateOfBirth(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if dob, err := time.Parse("2006-01-02", value); err == nil {
		return dob, nil
	}
	return time.Parse(time.RFC3339, value)
}

func boolParam(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
