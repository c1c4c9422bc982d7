package notify

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/mem-transfer-ledger/internal/app/ledger/domain"
)

// Record 通知對外的 JSON 格式 (NATS payload、journal 一行)
type Record struct {
	TransferID string          `json:"transfer_id"`
	AccountID  string          `json:"account_id"`
	Balance    decimal.Decimal `json:"balance"`
	Message    string          `json:"message"`
	CreatedAt  time.Time       `json:"created_at"`
}

// NewRecord 將 domain.Notification 轉成 Record
func NewRecord(n domain.Notification) Record {
	return Record{
		TransferID: n.TransferID.String(),
		AccountID:  n.Account.ID,
		Balance:    n.Account.Balance,
		Message:    n.Message,
		CreatedAt:  n.CreatedAt,
	}
}
