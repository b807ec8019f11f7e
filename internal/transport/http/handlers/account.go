package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Sampath5633/Medica-Backend/internal/transport/http/middleware"
	"github.com/Sampath5633/Medica-Backend/internal/usecase"
)

// AccountHandler exposes registration, two-step login and password reset.
type AccountHandler struct {
	accounts *usecase.AccountService
}

func NewAccountHandler(accounts *usecase.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

var registerErrors = []ErrorCase{
	{Err: usecase.ErrWeakPassword, Status: http.StatusBadRequest, Message: "Password does not meet requirements"},
	{Err: usecase.ErrInvalidInput, Status: http.StatusBadRequest, Message: "Missing email or password"},
	{Err: usecase.ErrAccountExists, Status: http.StatusBadRequest, Message: "User already exists"},
}

var loginStep1Errors = []ErrorCase{
	{Err: usecase.ErrInvalidInput, Status: http.StatusBadRequest, Message: "Email and password are required"},
	{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "User not found"},
	{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "Invalid password"},
	{Err: usecase.ErrDeliveryFailure, Status: http.StatusInternalServerError, Message: "Failed to send verification email"},
}

var loginStep2Errors = []ErrorCase{
	{Err: usecase.ErrInvalidInput, Status: http.StatusBadRequest, Message: "Email and code are required"},
	{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "User not found"},
	{Err: usecase.ErrCodeExpired, Status: http.StatusUnauthorized, Message: "Verification code expired"},
	{Err: usecase.ErrCodeInvalid, Status: http.StatusUnauthorized, Message: "Invalid verification code"},
}

var verificationCodeErrors = []ErrorCase{
	{Err: usecase.ErrInvalidInput, Status: http.StatusBadRequest, Message: "Email is required"},
	{Err: usecase.ErrDeliveryFailure, Status: http.StatusInternalServerError, Message: "Failed to send verification email"},
}

var resetCodeErrors = []ErrorCase{
	{Err: usecase.ErrInvalidInput, Status: http.StatusBadRequest, Message: "Email is required"},
	{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "Email not found"},
	{Err: usecase.ErrDeliveryFailure, Status: http.StatusInternalServerError, Message: "Failed to send reset email"},
}

var resetPasswordErrors = []ErrorCase{
	{Err: usecase.ErrWeakPassword, Status: http.StatusBadRequest, Message: "Password does not meet requirements"},
	{Err: usecase.ErrInvalidInput, Status: http.StatusBadRequest, Message: "Email, code and new password are required"},
	{Err: usecase.ErrAccountNotFound, Status: http.StatusNotFound, Message: "User not found"},
	{Err: usecase.ErrCodeExpired, Status: http.StatusUnauthorized, Message: "Reset code expired"},
	{Err: usecase.ErrCodeInvalid, Status: http.StatusUnauthorized, Message: "Invalid reset code"},
}

// Register godoc
// @Summary Register an account
// @Tags Account
// @Accept json
// @Produce json
// @Param request body CredentialsRequest true "Email and password"
// @Success 201 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/register [post]
func (h *AccountHandler) Register(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "Missing email or password"))
		return
	}

	err := h.accounts.Register(c.Request.Context(), usecase.RegisterInput{Email: req.Email, Password: req.Password})
	if err != nil {
		RespondWithMappedError(c, err, registerErrors, http.StatusInternalServerError, "Registration failed")
		return
	}

	c.JSON(http.StatusCreated, MessageResponse{Message: "Registration successful"})
}

// LoginStep1 godoc
// @Summary Check credentials
// @Description Verified accounts receive a session token; others receive a verification code by email.
// @Tags Account
// @Accept json
// @Produce json
// @Param request body CredentialsRequest true "Email and password"
// @Success 200 {object} LoginResponse
// @Failure 400,401,404,500 {object} ErrorResponse
// @Router /api/login-step1 [post]
func (h *AccountHandler) LoginStep1(c *gin.Context) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "Email and password are required"))
		return
	}

	res, err := h.accounts.LoginStep1(c.Request.Context(), usecase.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		RespondWithMappedError(c, err, loginStep1Errors, http.StatusInternalServerError, "Login step 1 failed")
		return
	}

	if res.Session != nil {
		c.JSON(http.StatusOK, LoginResponse{Token: res.Session.Token, ExpiresAt: &res.Session.ExpiresAt})
		return
	}
	c.JSON(http.StatusOK, LoginResponse{Step: 2, Message: "Verification code sent"})
}

// LoginStep2 godoc
// @Summary Verify the emailed code
// @Tags Account
// @Accept json
// @Produce json
// @Param request body CodeRequest true "Email and code"
// @Success 200 {object} LoginResponse
// @Failure 400,401,404 {object} ErrorResponse
// @Router /api/login-step2 [post]
func (h *AccountHandler) LoginStep2(c *gin.Context) {
	var req CodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "Email and code are required"))
		return
	}

	res, err := h.accounts.LoginStep2(c.Request.Context(), usecase.VerifyCodeInput{Email: req.Email, Code: req.Code})
	if err != nil {
		RespondWithMappedError(c, err, loginStep2Errors, http.StatusInternalServerError, "Login step 2 failed")
		return
	}

	message := "Login successful"
	if res.AlreadyVerified {
		message = "Already verified"
	}
	c.JSON(http.StatusOK, LoginResponse{Message: message, Token: res.Session.Token, ExpiresAt: &res.Session.ExpiresAt})
}

// SendVerificationCode godoc
// @Summary Email a verification code
// @Tags Account
// @Accept json
// @Produce json
// @Param request body EmailRequest true "Email"
// @Success 200 {object} MessageResponse
// @Failure 400,500 {object} ErrorResponse
// @Router /api/send-verification-code [post]
func (h *AccountHandler) SendVerificationCode(c *gin.Context) {
	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "Email is required"))
		return
	}

	if err := h.accounts.SendVerificationCode(c.Request.Context(), req.Email); err != nil {
		RespondWithMappedError(c, err, verificationCodeErrors, http.StatusInternalServerError, "Failed to send verification code")
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Verification code sent"})
}

// SendResetCode godoc
// @Summary Email a password reset code
// @Tags Account
// @Accept json
// @Produce json
// @Param request body EmailRequest true "Email"
// @Success 200 {object} MessageResponse
// @Failure 400,404,500 {object} ErrorResponse
// @Router /api/send-reset-code [post]
func (h *AccountHandler) SendResetCode(c *gin.Context) {
	var req EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "Email is required"))
		return
	}

	if err := h.accounts.SendResetCode(c.Request.Context(), req.Email); err != nil {
		RespondWithMappedError(c, err, resetCodeErrors, http.StatusInternalServerError, "Failed to send reset code")
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Reset code sent"})
}

// ResetPassword godoc
// @Summary Complete a password reset
// @Tags Account
// @Accept json
// @Produce json
// @Param request body ResetPasswordRequest true "Email, code and new password"
// @Success 200 {object} MessageResponse
// @Failure 400,401,404 {object} ErrorResponse
// @Router /api/reset-password [post]
func (h *AccountHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "Email, code and new password are required"))
		return
	}

	err := h.accounts.ResetPassword(c.Request.Context(), usecase.ResetPasswordInput{
		Email:       req.Email,
		Code:        req.Code,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		RespondWithMappedError(c, err, resetPasswordErrors, http.StatusInternalServerError, "Failed to reset password")
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Password reset successful"})
}

// Session godoc
// @Summary Introspect the bearer session token
// @Tags Account
// @Produce json
// @Security BearerAuth
// @Success 200 {object} SessionResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/session [get]
func (h *AccountHandler) Session(c *gin.Context) {
	claims, ok := middleware.GetSessionClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}
	c.JSON(http.StatusOK, SessionResponse{
		Email:     claims.Email,
		IssuedAt:  claims.IssuedAt,
		ExpiresAt: claims.ExpiresAt,
	})
}
