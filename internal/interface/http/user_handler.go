package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ledgerpay/user-service/internal/application"
	"github.com/ledgerpay/user-service/internal/domain/entity"
	"github.com/ledgerpay/user-service/internal/domain/repository"
	"github.com/ledgerpay/user-service/pkg/response"
	"github.com/ledgerpay/user-service/pkg/validation"
)

const maxProfilePictureBytes = 5 << 20

type UserHandler struct {
	Svc    *application.UserService
	Logger *logrus.Logger
}

func NewUserHandler(svc *application.UserService, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger}
}

type bankingDetailsRequest struct {
	Agency        *string  `json:"agency"`
	AccountNumber *string  `json:"accountNumber"`
	Balance       *float64 `json:"balance"`
}

type updateUserRequest struct {
	Name           *string                `json:"name"`
	Email          *string                `json:"email" binding:"omitempty,email"`
	Address        *string                `json:"address"`
	BankingDetails *bankingDetailsRequest `json:"bankingDetails"`
}

func userJSON(u *entity.User) gin.H {
	out := gin.H{
		"id":                u.ID,
		"name":              u.Name,
		"email":             u.Email,
		"address":           u.Address,
		"profilePictureUrl": u.ProfilePictureURL,
		"createdAt":         u.CreatedAt,
		"updatedAt":         u.UpdatedAt,
	}
	if u.BankingDetails != nil {
		out["bankingDetails"] = gin.H{
			"agency":        u.BankingDetails.Agency,
			"accountNumber": u.BankingDetails.AccountNumber,
			"balance":       u.BankingDetails.Balance,
		}
	}
	return out
}

// GetUser GET /api/users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	u, err := h.Svc.FindUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Error[any](c, http.StatusNotFound, "user not found", nil)
			return
		}
		h.Logger.WithError(err).Error("find user failed")
		response.Error[any](c, http.StatusInternalServerError, "lookup failed", nil)
		return
	}
	response.Success(c, http.StatusOK, userJSON(u), "user", nil)
}

// ListUsers GET /api/users?limit=
func (h *UserHandler) ListUsers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	users, err := h.Svc.ListUsers(c.Request.Context(), limit)
	if err != nil {
		h.Logger.WithError(err).Error("list users failed")
		response.Error[any](c, http.StatusInternalServerError, "list failed", nil)
		return
	}
	out := make([]gin.H, 0, len(users))
	for _, u := range users {
		out = append(out, userJSON(u))
	}
	response.Success(c, http.StatusOK, out, "users", map[string]any{"count": len(out)})
}

// UpdateUser PATCH /api/users/:id
func (h *UserHandler) UpdateUser(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	in := application.UpdateUserInput{
		Name:    req.Name,
		Email:   req.Email,
		Address: req.Address,
	}
	if req.BankingDetails != nil {
		in.Agency = req.BankingDetails.Agency
		in.AccountNumber = req.BankingDetails.AccountNumber
		in.Balance = req.BankingDetails.Balance
	}

	u, err := h.Svc.UpdateUser(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrBalanceNotUpdatable):
			response.Error[any](c, http.StatusUnprocessableEntity, "balance cannot be updated directly", nil)
		case errors.Is(err, repository.ErrNotFound):
			response.Error[any](c, http.StatusNotFound, "user not found", nil)
		case errors.Is(err, application.ErrInvalidEmail):
			response.Error[any](c, http.StatusBadRequest, "invalid email", nil)
		default:
			h.Logger.WithError(err).Error("update user failed")
			response.Error[any](c, http.StatusInternalServerError, "update failed", nil)
		}
		return
	}
	response.Success(c, http.StatusOK, userJSON(u), "user updated", nil)
}

// UploadProfilePicture PUT /api/users/:id/profile-picture (multipart field "picture")
func (h *UserHandler) UploadProfilePicture(c *gin.Context) {
	file, err := c.FormFile("picture")
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "picture file is required", nil)
		return
	}
	if file.Size > maxProfilePictureBytes {
		response.Error[any](c, http.StatusRequestEntityTooLarge, "picture too large", nil)
		return
	}
	src, err := file.Open()
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "cannot read picture", nil)
		return
	}
	defer func() { _ = src.Close() }()

	u, err := h.Svc.UploadProfilePicture(c.Request.Context(), c.Param("id"), src, file.Filename, file.Header.Get("Content-Type"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Error[any](c, http.StatusNotFound, "user not found", nil)
			return
		}
		h.Logger.WithError(err).Error("profile picture upload failed")
		response.Error[any](c, http.StatusInternalServerError, "upload failed", nil)
		return
	}
	response.Success(c, http.StatusOK, userJSON(u), "profile picture updated", nil)
}

// Search GET /api/users/search?q=&size=
func (h *UserHandler) Search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		response.Error[any](c, http.StatusBadRequest, "q is required", nil)
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	hits, err := h.Svc.SearchUsers(c.Request.Context(), q, size)
	if err != nil {
		h.Logger.WithError(err).Error("user search failed")
		response.Error[any](c, http.StatusInternalServerError, "search failed", nil)
		return
	}
	response.Success(c, http.StatusOK, hits, "search results", map[string]any{"count": len(hits)})
}
