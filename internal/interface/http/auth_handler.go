package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ledgerpay/user-service/internal/application"
	"github.com/ledgerpay/user-service/internal/domain/entity"
	"github.com/ledgerpay/user-service/internal/domain/identity"
	"github.com/ledgerpay/user-service/internal/domain/repository"
	"github.com/ledgerpay/user-service/pkg/response"
	"github.com/ledgerpay/user-service/pkg/validation"
)

// AuthHandler is a thin adapter over the identity provider: it owns no
// credential logic itself.
type AuthHandler struct {
	Repo     repository.UserRepository
	Provider identity.Provider
	Users    *application.UserService
	Logger   *logrus.Logger
}

func NewAuthHandler(repo repository.UserRepository, provider identity.Provider, users *application.UserService, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{Repo: repo, Provider: provider, Users: users, Logger: logger}
}

type signUpRequest struct {
	Name           string `json:"name" binding:"required"`
	Email          string `json:"email" binding:"required,email"`
	Password       string `json:"password" binding:"required,pwd"`
	Address        string `json:"address"`
	BankingDetails *struct {
		Agency        string `json:"agency" binding:"required"`
		AccountNumber string `json:"accountNumber" binding:"required"`
	} `json:"bankingDetails"`
}

type signInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type confirmRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,len=6"`
}

type resendCodeRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// SignUp POST /api/auth/signup
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	if existing, err := h.Repo.FindByEmail(c.Request.Context(), req.Email); err == nil && existing != nil {
		response.Error[any](c, http.StatusConflict, "email already registered", nil)
		return
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		h.Logger.WithError(err).Error("email lookup failed")
		response.Error[any](c, http.StatusInternalServerError, "signup failed", nil)
		return
	}

	u := &entity.User{
		Name:    req.Name,
		Email:   req.Email,
		Address: req.Address,
	}
	if req.BankingDetails != nil {
		u.BankingDetails = &entity.BankingDetails{
			Agency:        req.BankingDetails.Agency,
			AccountNumber: req.BankingDetails.AccountNumber,
		}
	}
	if err := h.Repo.Create(c.Request.Context(), u); err != nil {
		h.Logger.WithError(err).Error("user create failed")
		response.Error[any](c, http.StatusInternalServerError, "signup failed", nil)
		return
	}

	if err := h.Provider.SignUp(c.Request.Context(), u.ID, req.Email, req.Password); err != nil {
		h.Logger.WithError(err).WithField("user_id", u.ID).Error("identity signup failed")
		response.Error[any](c, http.StatusInternalServerError, "signup failed", nil)
		return
	}

	h.Users.IndexUser(c.Request.Context(), u)
	response.Success(c, http.StatusCreated, userJSON(u), "account created, confirmation code sent", nil)
}

// SignIn POST /api/auth/signin
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	tokens, err := h.Provider.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrNotConfirmed):
			response.Error[any](c, http.StatusForbidden, "account not confirmed", nil)
		case errors.Is(err, identity.ErrInvalidCredentials):
			response.Error[any](c, http.StatusUnauthorized, "invalid credentials", nil)
		default:
			h.Logger.WithError(err).Error("signin failed")
			response.Error[any](c, http.StatusInternalServerError, "signin failed", nil)
		}
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"accessToken":  tokens.AccessToken,
		"refreshToken": tokens.RefreshToken,
	}, "signed in", map[string]any{
		"access_expires_at":  tokens.AccessTokenExpiry,
		"refresh_expires_at": tokens.RefreshTokenExpiry,
	})
}

// Confirm POST /api/auth/confirm
func (h *AuthHandler) Confirm(c *gin.Context) {
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Provider.ConfirmSignUp(c.Request.Context(), req.Email, req.Code); err != nil {
		if errors.Is(err, identity.ErrCodeMismatch) {
			response.Error[any](c, http.StatusBadRequest, "invalid or expired code", nil)
			return
		}
		h.Logger.WithError(err).Error("confirm failed")
		response.Error[any](c, http.StatusInternalServerError, "confirm failed", nil)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"confirmed": true}, "account confirmed", nil)
}

// ResendCode POST /api/auth/resend-code
func (h *AuthHandler) ResendCode(c *gin.Context) {
	var req resendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	// Always report success so account existence cannot be probed.
	if err := h.Provider.ResendCode(c.Request.Context(), req.Email); err != nil && !errors.Is(err, identity.ErrInvalidCredentials) {
		h.Logger.WithError(err).Error("resend code failed")
		response.Error[any](c, http.StatusInternalServerError, "resend failed", nil)
		return
	}
	response.Success[any](c, http.StatusOK, gin.H{"sent": true}, "code sent if the account exists", nil)
}
