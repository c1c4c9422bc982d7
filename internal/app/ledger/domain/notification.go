package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Notification 轉帳完成後送給單一帳戶的通知
type Notification struct {
	TransferID uuid.UUID `json:"transfer_id"`
	Account    Account   `json:"account"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

// DebitMessage 轉出方通知內容
func DebitMessage(amount decimal.Decimal, toID string, balance decimal.Decimal) string {
	return fmt.Sprintf("%s has been transferred to %s, current balance is %s", amount, toID, balance)
}

// CreditMessage 轉入方通知內容
func CreditMessage(amount decimal.Decimal, fromID string, balance decimal.Decimal) string {
	return fmt.Sprintf("%s has been transferred from %s, current balance is %s", amount, fromID, balance)
}
