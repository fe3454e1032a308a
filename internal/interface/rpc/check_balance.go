package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ledgerpay/user-service/internal/application"
	"github.com/ledgerpay/user-service/internal/infrastructure/rabbitmq"
)

type checkBalanceRequest struct {
	SenderUserID string  `json:"senderUserId"`
	Amount       float64 `json:"amount"`
}

type checkBalanceResponse struct {
	HasSufficientBalance bool    `json:"hasSufficientBalance"`
	CurrentBalance       float64 `json:"currentBalance"`
	RequiredAmount       float64 `json:"requiredAmount"`
	SenderUserID         string  `json:"senderUserId"`
	UserExists           bool    `json:"userExists"`
	ErrorMessage         *string `json:"errorMessage"`
}

// CheckBalanceHandler answers whether a sender can cover a pending transfer.
// A nonexistent user is a structured userExists:false reply, not a failure.
type CheckBalanceHandler struct {
	Balance *application.BalanceService
	Logger  *logrus.Logger
}

func NewCheckBalanceHandler(balance *application.BalanceService, logger *logrus.Logger) *CheckBalanceHandler {
	return &CheckBalanceHandler{Balance: balance, Logger: logger}
}

func (h *CheckBalanceHandler) Handle(ctx context.Context, payload []byte) (any, error) {
	var req checkBalanceRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", rabbitmq.ErrReject, err)
	}
	if req.SenderUserID == "" || req.Amount <= 0 {
		return nil, fmt.Errorf("%w: senderUserId and amount are required", rabbitmq.ErrReject)
	}

	check, err := h.Balance.CheckBalance(ctx, req.SenderUserID, req.Amount)
	if err != nil {
		return nil, err
	}

	resp := checkBalanceResponse{
		HasSufficientBalance: check.HasSufficientBalance,
		CurrentBalance:       check.CurrentBalance,
		RequiredAmount:       check.RequiredAmount,
		SenderUserID:         check.UserID,
		UserExists:           check.UserExists,
	}
	if check.ErrorMessage != "" {
		msg := check.ErrorMessage
		resp.ErrorMessage = &msg
	}

	h.Logger.WithFields(logrus.Fields{
		"sender_user_id": req.SenderUserID,
		"sufficient":     resp.HasSufficientBalance,
		"user_exists":    resp.UserExists,
	}).Info("balance check answered")
	return resp, nil
}
