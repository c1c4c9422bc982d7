package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JoeShih716/mem-transfer-ledger/internal/app/ledger/domain"
	"github.com/JoeShih716/mem-transfer-ledger/internal/app/ledger/usecase"
	"github.com/JoeShih716/mem-transfer-ledger/pkg/journal"
)

// LogSink 把通知寫到 log
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Notify(ctx context.Context, n domain.Notification) error {
	s.logger.Info(n.Message,
		zap.Stringer("transfer_id", n.TransferID),
		zap.String("account_id", n.Account.ID),
		zap.Stringer("balance", n.Account.Balance),
	)
	return nil
}

// JournalSink 把通知附加到 JSON Lines 檔案
type JournalSink struct {
	journal *journal.Journal
}

func NewJournalSink(j *journal.Journal) *JournalSink {
	return &JournalSink{journal: j}
}

func (s *JournalSink) Notify(ctx context.Context, n domain.Notification) error {
	if err := s.journal.Append(NewRecord(n)); err != nil {
		return fmt.Errorf("failed to append notification to journal: %w", err)
	}
	return nil
}

// MultiSink 依序呼叫每個 sink，某個失敗不會影響其他 sink
type MultiSink []usecase.NotificationSink

func (m MultiSink) Notify(ctx context.Context, n domain.Notification) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ usecase.NotificationSink = (*LogSink)(nil)
	_ usecase.NotificationSink = (*JournalSink)(nil)
	_ usecase.NotificationSink = MultiSink(nil)
)
