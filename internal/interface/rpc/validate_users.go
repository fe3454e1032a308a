package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ledgerpay/user-service/internal/application"
	"github.com/ledgerpay/user-service/internal/domain/repository"
	"github.com/ledgerpay/user-service/internal/infrastructure/rabbitmq"
)

// Queue names the ledger service addresses.
const (
	ValidateUsersQueue   = "validate-users"
	CheckBalanceQueue    = "check-balance"
	NewTransactionsQueue = "new-transactions"
)

type validateUsersRequest struct {
	UserIDs []string `json:"userIds"`
}

type userValidationResult struct {
	UserID string `json:"userId"`
	Valid  bool   `json:"valid"`
}

type validateUsersResponse struct {
	AllValid   bool                   `json:"allValid"`
	Results    []userValidationResult `json:"results"`
	TotalUsers int                    `json:"totalUsers"`
	ValidUsers int                    `json:"validUsers"`
}

// ValidateUsersHandler answers batch existence checks. Every id is always
// evaluated; a lookup miss marks the id invalid instead of failing the batch.
type ValidateUsersHandler struct {
	Lookup *application.LookupService
	Logger *logrus.Logger
}

func NewValidateUsersHandler(lookup *application.LookupService, logger *logrus.Logger) *ValidateUsersHandler {
	return &ValidateUsersHandler{Lookup: lookup, Logger: logger}
}

func (h *ValidateUsersHandler) Handle(ctx context.Context, payload []byte) (any, error) {
	var req validateUsersRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", rabbitmq.ErrReject, err)
	}
	if len(req.UserIDs) == 0 {
		return nil, fmt.Errorf("%w: userIds is required", rabbitmq.ErrReject)
	}

	resp := validateUsersResponse{
		AllValid:   true,
		Results:    make([]userValidationResult, 0, len(req.UserIDs)),
		TotalUsers: len(req.UserIDs),
	}
	for _, id := range req.UserIDs {
		valid := true
		if _, err := h.Lookup.FindUser(ctx, id); err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				return nil, err
			}
			valid = false
		}
		if valid {
			resp.ValidUsers++
		} else {
			resp.AllValid = false
		}
		resp.Results = append(resp.Results, userValidationResult{UserID: id, Valid: valid})
	}

	h.Logger.WithFields(logrus.Fields{
		"total": resp.TotalUsers,
		"valid": resp.ValidUsers,
	}).Info("user validation answered")
	return resp, nil
}
