package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JoeShih716/mem-transfer-ledger/internal/app/ledger/domain"
	"github.com/JoeShih716/mem-transfer-ledger/internal/app/ledger/telemetry"
)

// TransferService 是核心業務邏輯層，負責建立帳戶與轉帳
type TransferService struct {
	store    AccountStore
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewTransferService 建立 TransferService
//
// 參數:
//
//	store: 帳戶儲存
//	notifier: 轉帳完成後的通知派送，nil 表示不通知
//	logger: nil 時不輸出 log
func NewTransferService(store AccountStore, notifier Notifier, logger *zap.Logger) *TransferService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransferService{
		store:    store,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateAccount 建立帳戶
func (s *TransferService) CreateAccount(ctx context.Context, id string, balance decimal.Decimal) (domain.Account, error) {
	account := domain.NewAccount(id, balance)
	if err := s.store.CreateAccount(ctx, account); err != nil {
		return domain.Account{}, err
	}
	telemetry.AccountCount.Inc()
	s.logger.Info("account created",
		zap.String("account_id", id),
		zap.Stringer("balance", balance),
	)
	return account, nil
}

// GetAccount 取得帳戶快照，找不到時回傳 *domain.AccountNotFoundError
func (s *TransferService) GetAccount(ctx context.Context, id string) (domain.Account, error) {
	account, ok := s.store.GetAccount(ctx, id)
	if !ok {
		return domain.Account{}, &domain.AccountNotFoundError{AccountID: id}
	}
	return account, nil
}

// Accounts 取得所有帳戶
func (s *TransferService) Accounts(ctx context.Context) []domain.Account {
	return s.store.Accounts(ctx)
}

// TotalBalance 所有帳戶餘額總和
func (s *TransferService) TotalBalance(ctx context.Context) decimal.Decimal {
	return s.store.TotalBalance(ctx)
}

// Reset 清空帳本，只給測試與壓測使用
func (s *TransferService) Reset() {
	s.store.Clear()
	telemetry.AccountCount.Set(0)
	s.logger.Warn("ledger reset")
}

// Transfer 從 fromID 轉 amount 到 toID
//
// 檢查順序:
//
//	1. fromID 存在，否則 *domain.AccountNotFoundError(fromID)
//	2. toID 存在，否則 *domain.AccountNotFoundError(toID)
//	3. 0 < amount < 轉出帳戶餘額，否則 domain.ErrInsufficientBalance
//
// 扣款與入帳在兩個帳戶的鎖內一次完成，通知在鎖釋放後才交給 Notifier，
// 通知失敗不會影響回傳結果。
func (s *TransferService) Transfer(ctx context.Context, fromID, toID string, amount decimal.Decimal) (result domain.TransferResult, err error) {
	start := time.Now()
	ctx, span := telemetry.Tracer().Start(ctx, "TransferService.Transfer",
		trace.WithAttributes(
			attribute.String("from_account", fromID),
			attribute.String("to_account", toID),
			attribute.String("amount", amount.String()),
		),
	)
	defer func() {
		telemetry.TransferDuration.Observe(time.Since(start).Seconds())
		telemetry.TransfersTotal.WithLabelValues(transferStatus(err)).Inc()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	// 1. Validating
	if !s.exists(ctx, fromID) {
		return result, &domain.AccountNotFoundError{AccountID: fromID}
	}
	if !s.exists(ctx, toID) {
		return result, &domain.AccountNotFoundError{AccountID: toID}
	}
	if !amount.IsPositive() {
		return result, fmt.Errorf("%w: amount %s must be positive", domain.ErrInsufficientBalance, amount)
	}

	// 2. Debiting -> Crediting (同一把鎖內)
	transfer := domain.Transfer{From: fromID, To: toID, Amount: amount}
	err = s.store.Mutate(ctx, []string{transfer.From, transfer.To}, func(accounts []*domain.Account) error {
		from, to := accounts[0], accounts[1]
		if err := from.Debit(transfer.Amount); err != nil {
			return fmt.Errorf("%w: cannot move %s out of %s", err, transfer.Amount, from.ID)
		}
		to.Credit(transfer.Amount)
		// from 與 to 可能是同一個帳戶，兩個快照都在入帳後才取
		result.From = *from
		result.To = *to
		return nil
	})
	if err != nil {
		s.logger.Info("transfer rejected",
			zap.String("from_account", fromID),
			zap.String("to_account", toID),
			zap.Stringer("amount", amount),
			zap.Error(err),
		)
		return domain.TransferResult{}, err
	}

	result.TransferID = uuid.Must(uuid.NewV7())
	result.Amount = amount
	result.CreatedAt = s.now()

	// 3. Notifying (鎖已釋放)
	s.notifier.Dispatch(ctx, result.Notifications()...)

	s.logger.Debug("transfer completed",
		zap.Stringer("transfer_id", result.TransferID),
		zap.String("from_account", fromID),
		zap.String("to_account", toID),
		zap.Stringer("amount", amount),
	)
	if span.IsRecording() {
		span.SetAttributes(attribute.String("transfer_id", result.TransferID.String()))
	}
	return result, nil
}

func (s *TransferService) exists(ctx context.Context, id string) bool {
	if id == "" {
		return false
	}
	_, ok := s.store.GetAccount(ctx, id)
	return ok
}

func transferStatus(err error) string {
	switch {
	case err == nil:
		return telemetry.StatusSuccess
	case errors.Is(err, domain.ErrInsufficientBalance):
		return telemetry.StatusInsufficientBalance
	case errors.Is(err, domain.ErrAccountNotFound):
		return telemetry.StatusAccountNotFound
	default:
		return telemetry.StatusFailed
	}
}

type nopNotifier struct{}

func (nopNotifier) Dispatch(context.Context, ...domain.Notification) {}
