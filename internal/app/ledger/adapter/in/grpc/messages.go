package grpc

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateAccountRequest struct {
	AccountID string           `json:"account_id"`
	Balance   *decimal.Decimal `json:"balance"`
}

type GetAccountRequest struct {
	AccountID string `json:"account_id"`
}

// AccountResponse CreateAccount 與 GetAccount 共用
type AccountResponse struct {
	AccountID string          `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
}

type TransferRequest struct {
	FromAccountID string           `json:"from_account_id"`
	ToAccountID   string           `json:"to_account_id"`
	Amount        *decimal.Decimal `json:"amount"`
}

// TransferResponse 兩邊的餘額都是轉帳後的值
type TransferResponse struct {
	TransferID  string          `json:"transfer_id"`
	From        AccountResponse `json:"from"`
	To          AccountResponse `json:"to"`
	Amount      decimal.Decimal `json:"amount"`
	CompletedAt time.Time       `json:"completed_at"`
}
