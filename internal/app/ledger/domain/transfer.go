package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transfer 轉帳請求，只存在於單次呼叫中
type Transfer struct {
	From   string
	To     string
	Amount decimal.Decimal
}

// LockIDs 回傳轉帳需要鎖定的帳號 ID
func (t Transfer) LockIDs() []string {
	return LockIDs(t.From, t.To)
}

// LockIDs 將帳號 ID 排序並去重，所有人都依同一順序上鎖才不會死鎖
func LockIDs(ids ...string) []string {
	// 預先配置，轉帳只會有 1~2 個 ID
	sorted := make([]string, 0, len(ids))
	sorted = append(sorted, ids...)
	slices.Sort(sorted)
	return slices.Compact(sorted)
}

// TransferResult 已提交的轉帳結果，餘額為轉帳後的值
type TransferResult struct {
	TransferID uuid.UUID       `json:"transfer_id"`
	From       Account         `json:"from"`
	To         Account         `json:"to"`
	Amount     decimal.Decimal `json:"amount"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Notifications 產生轉出方與轉入方各一則通知
func (r TransferResult) Notifications() []Notification {
	return []Notification{
		{
			TransferID: r.TransferID,
			Account:    r.From,
			Message:    DebitMessage(r.Amount, r.To.ID, r.From.Balance),
			CreatedAt:  r.CreatedAt,
		},
		{
			TransferID: r.TransferID,
			Account:    r.To,
			Message:    CreditMessage(r.Amount, r.From.ID, r.To.Balance),
			CreatedAt:  r.CreatedAt,
		},
	}
}
