package rpc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ledgerpay/user-service/internal/application"
	"github.com/ledgerpay/user-service/internal/infrastructure/rabbitmq"
)

type newTransactionRequest struct {
	SenderID   string  `json:"senderid"`
	ReceiverID string  `json:"receiverid"`
	Amount     float64 `json:"amount"`
}

// NewTransactionsHandler applies a confirmed transfer: debit sender, credit
// receiver, as one store-level transaction. Fire-and-forget; the ledger
// service learns the outcome only through ack/reject.
type NewTransactionsHandler struct {
	Balance *application.BalanceService
	Logger  *logrus.Logger
}

func NewNewTransactionsHandler(balance *application.BalanceService, logger *logrus.Logger) *NewTransactionsHandler {
	return &NewTransactionsHandler{Balance: balance, Logger: logger}
}

func (h *NewTransactionsHandler) Handle(ctx context.Context, payload []byte) (any, error) {
	var req newTransactionRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", rabbitmq.ErrReject, err)
	}
	if req.SenderID == "" || req.ReceiverID == "" || req.Amount <= 0 {
		return nil, fmt.Errorf("%w: senderid, receiverid and amount are required", rabbitmq.ErrReject)
	}

	if err := h.Balance.Transfer(ctx, req.SenderID, req.ReceiverID, req.Amount); err != nil {
		return nil, err
	}

	h.Logger.WithFields(logrus.Fields{
		"sender_id":   req.SenderID,
		"receiver_id": req.ReceiverID,
		"amount":      req.Amount,
	}).Info("transfer applied")
	return nil, nil
}
