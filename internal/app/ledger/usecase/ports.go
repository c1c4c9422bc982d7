package usecase

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/mem-transfer-ledger/internal/app/ledger/domain"
)

// AccountStore 帳戶儲存，是帳戶唯一的擁有者
type AccountStore interface {
	// CreateAccount 新增帳戶，ID 重複時回傳 *domain.DuplicateAccountError 且不修改任何狀態
	CreateAccount(ctx context.Context, account domain.Account) error
	// GetAccount 取得帳戶快照，找不到時 ok 為 false
	GetAccount(ctx context.Context, id string) (account domain.Account, ok bool)
	// Mutate 鎖定 ids 對應的所有帳戶後執行 fn
	// fn 拿到的是工作副本 (順序與 ids 相同)，只有 fn 回傳 nil 時才會寫回
	Mutate(ctx context.Context, ids []string, fn func(accounts []*domain.Account) error) error
	// Accounts 取得所有帳戶的一致快照
	Accounts(ctx context.Context) []domain.Account
	// TotalBalance 所有帳戶餘額總和
	TotalBalance(ctx context.Context) decimal.Decimal
	// Clear 清空帳戶 (測試用)
	Clear()
}

// NotificationSink 接收轉帳完成通知
// 實作可以是 log、檔案、NATS 或資料庫，錯誤不會影響轉帳結果
type NotificationSink interface {
	Notify(ctx context.Context, notification domain.Notification) error
}

// Notifier 在轉帳提交後接手通知
// Dispatch 不可在持有帳戶鎖時呼叫
type Notifier interface {
	Dispatch(ctx context.Context, notifications ...domain.Notification)
}
