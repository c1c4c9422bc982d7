package notify

import (
	"context"
	"fmt"

	"github.com/JoeShih716/mem-transfer-ledger/internal/app/ledger/domain"
	"github.com/JoeShih716/mem-transfer-ledger/internal/app/ledger/usecase"
	"github.com/JoeShih716/mem-transfer-ledger/pkg/mysql"
)

// sqlNotification 對應資料庫的 notifications 表
type sqlNotification struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	TransferID string `gorm:"column:transfer_id;type:char(36);index"`
	AccountID  string `gorm:"column:account_id;type:varchar(64);index"`
	Balance    string `gorm:"column:balance;type:varchar(64)"`
	Message    string `gorm:"column:message;type:varchar(512)"`
	CreatedAt  int64  `gorm:"autoCreateTime:milli"` // 自動寫入時間
}

func (*sqlNotification) TableName() string {
	return "notifications"
}

// MySQLSink 把通知寫入 MySQL notifications 表
type MySQLSink struct {
	client *mysql.Client
}

func NewMySQLSink(client *mysql.Client) *MySQLSink {
	return &MySQLSink{
		client: client,
	}
}

// Migrate 建立 notifications 表
func (s *MySQLSink) Migrate(ctx context.Context) error {
	return s.client.DB().WithContext(ctx).AutoMigrate(&sqlNotification{})
}

func (s *MySQLSink) Notify(ctx context.Context, n domain.Notification) error {
	row := sqlNotification{
		TransferID: n.TransferID.String(),
		AccountID:  n.Account.ID,
		Balance:    n.Account.Balance.String(),
		Message:    n.Message,
	}
	if err := s.client.DB().WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

var _ usecase.NotificationSink = (*MySQLSink)(nil)
