package usecase_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/JoeShih716/mem-transfer-ledger/internal/app/ledger/adapter/out/memory"
	"github.com/JoeShih716/mem-transfer-ledger/internal/app/ledger/adapter/out/notify"
	"github.com/JoeShih716/mem-transfer-ledger/internal/app/ledger/domain"
	"github.com/JoeShih716/mem-transfer-ledger/internal/app/ledger/usecase"
)

type recordingNotifier struct {
	mu            sync.Mutex
	notifications []domain.Notification
}

func (n *recordingNotifier) Dispatch(_ context.Context, notifications ...domain.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notifications = append(n.notifications, notifications...)
}

func (n *recordingNotifier) all() []domain.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.Notification(nil), n.notifications...)
}

func setup(t *testing.T) (*usecase.TransferService, *recordingNotifier) {
	t.Helper()
	store, err := memory.NewAccountStore()
	require.NoError(t, err)
	notifier := &recordingNotifier{}
	return usecase.NewTransferService(store, notifier, zaptest.NewLogger(t)), notifier
}

func mustCreate(t *testing.T, svc *usecase.TransferService, id string, balance string) {
	t.Helper()
	_, err := svc.CreateAccount(context.Background(), id, decimal.RequireFromString(balance))
	require.NoError(t, err)
}

func balanceOf(t *testing.T, svc *usecase.TransferService, id string) string {
	t.Helper()
	account, err := svc.GetAccount(context.Background(), id)
	require.NoError(t, err)
	return account.Balance.String()
}

func TestTransferService_CreateAccount(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)

	account, err := svc.CreateAccount(ctx, "Id-123", decimal.NewFromInt(1000))
	require.NoError(t, err)
	assert.Equal(t, "Id-123", account.ID)
	assert.Equal(t, "1000", balanceOf(t, svc, "Id-123"))

	_, err = svc.CreateAccount(ctx, "Id-123", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, domain.ErrDuplicateAccount)
	assert.Equal(t, "account id Id-123 already exists", err.Error())
	assert.Equal(t, "1000", balanceOf(t, svc, "Id-123"))

	_, err = svc.CreateAccount(ctx, "neg", decimal.NewFromInt(-5))
	assert.ErrorIs(t, err, domain.ErrInvalidAccount)
}

func TestTransferService_GetAccountNotFound(t *testing.T) {
	svc, _ := setup(t)

	_, err := svc.GetAccount(context.Background(), "nonexistent")
	var notFound *domain.AccountNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "nonexistent", notFound.AccountID)
}

func TestTransferService_Transfer(t *testing.T) {
	tests := []struct {
		name     string
		from     string
		to       string
		amount   string
		wantErr  error
		wantFrom string
		wantTo   string
	}{
		{name: "success", from: "A", to: "B", amount: "100", wantFrom: "900", wantTo: "1100"},
		{name: "insufficient balance", from: "A", to: "B", amount: "3000", wantErr: domain.ErrInsufficientBalance, wantFrom: "1000", wantTo: "1000"},
		{name: "exact balance", from: "A", to: "B", amount: "1000", wantErr: domain.ErrInsufficientBalance, wantFrom: "1000", wantTo: "1000"},
		{name: "just below balance", from: "A", to: "B", amount: "999.99", wantFrom: "0.01", wantTo: "1999.99"},
		{name: "negative amount", from: "A", to: "B", amount: "-1", wantErr: domain.ErrInsufficientBalance, wantFrom: "1000", wantTo: "1000"},
		{name: "zero amount", from: "A", to: "B", amount: "0", wantErr: domain.ErrInsufficientBalance, wantFrom: "1000", wantTo: "1000"},
		{name: "unknown sender", from: "nonexistent", to: "B", amount: "100", wantErr: domain.ErrAccountNotFound, wantFrom: "", wantTo: "1000"},
		{name: "unknown receiver", from: "A", to: "nonexistent", amount: "100", wantErr: domain.ErrAccountNotFound, wantFrom: "1000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, notifier := setup(t)
			mustCreate(t, svc, "A", "1000")
			mustCreate(t, svc, "B", "1000")

			result, err := svc.Transfer(context.Background(), tt.from, tt.to, decimal.RequireFromString(tt.amount))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, notifier.all())
				assert.Equal(t, "1000", balanceOf(t, svc, "A"))
				assert.Equal(t, "1000", balanceOf(t, svc, "B"))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantFrom, result.From.Balance.String())
			assert.Equal(t, tt.wantTo, result.To.Balance.String())
			assert.Equal(t, tt.wantFrom, balanceOf(t, svc, tt.from))
			assert.Equal(t, tt.wantTo, balanceOf(t, svc, tt.to))
			assert.Len(t, notifier.all(), 2)
		})
	}
}

func TestTransferService_TransferNotFoundNamesAccount(t *testing.T) {
	svc, _ := setup(t)
	mustCreate(t, svc, "A", "1000")

	_, err := svc.Transfer(context.Background(), "A", "nonexistent", decimal.NewFromInt(1))
	assert.EqualError(t, err, "account id nonexistent is not found")

	// 轉出方先檢查
	_, err = svc.Transfer(context.Background(), "ghost", "nonexistent", decimal.NewFromInt(1))
	assert.EqualError(t, err, "account id ghost is not found")

	_, err = svc.Transfer(context.Background(), "", "A", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestTransferService_Notifications(t *testing.T) {
	svc, notifier := setup(t)
	mustCreate(t, svc, "A", "1000")
	mustCreate(t, svc, "B", "1000")

	result, err := svc.Transfer(context.Background(), "A", "B", decimal.NewFromInt(100))
	require.NoError(t, err)

	notifications := notifier.all()
	require.Len(t, notifications, 2)
	assert.Equal(t, "A", notifications[0].Account.ID)
	assert.Equal(t, "100 has been transferred to B, current balance is 900", notifications[0].Message)
	assert.Equal(t, "B", notifications[1].Account.ID)
	assert.Equal(t, "100 has been transferred from A, current balance is 1100", notifications[1].Message)
	for _, n := range notifications {
		assert.Equal(t, result.TransferID, n.TransferID)
	}
}

func TestTransferService_SelfTransfer(t *testing.T) {
	svc, notifier := setup(t)
	mustCreate(t, svc, "A", "1000")

	result, err := svc.Transfer(context.Background(), "A", "A", decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.Equal(t, "1000", result.From.Balance.String())
	assert.Equal(t, "1000", balanceOf(t, svc, "A"))
	assert.Len(t, notifier.all(), 2)

	// 餘額檢查仍然看扣款前的值
	_, err = svc.Transfer(context.Background(), "A", "A", decimal.NewFromInt(1000))
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
}

func TestTransferService_NilNotifier(t *testing.T) {
	store, err := memory.NewAccountStore()
	require.NoError(t, err)
	svc := usecase.NewTransferService(store, nil, nil)

	mustCreate(t, svc, "A", "10")
	mustCreate(t, svc, "B", "0")
	_, err = svc.Transfer(context.Background(), "A", "B", decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Equal(t, "1", balanceOf(t, svc, "B"))
}

func TestTransferService_Reset(t *testing.T) {
	svc, _ := setup(t)
	mustCreate(t, svc, "A", "10")

	svc.Reset()
	assert.Empty(t, svc.Accounts(context.Background()))
	assert.True(t, svc.TotalBalance(context.Background()).IsZero())
	mustCreate(t, svc, "A", "10")
}

// 同一個轉出帳戶同時多筆轉帳，成功筆數必須剛好是 ceil(B/a)-1
func TestTransferService_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	svc, notifier := setup(t)
	mustCreate(t, svc, "A", "1000")
	mustCreate(t, svc, "B", "0")

	const workers = 100
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int64
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Transfer(context.Background(), "A", "B", decimal.NewFromInt(30))
			if err == nil {
				succeeded.Add(1)
				return
			}
			assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
		}()
	}
	wg.Wait()

	// ceil(1000/30) - 1 = 33
	assert.Equal(t, int64(33), succeeded.Load())
	assert.Equal(t, "10", balanceOf(t, svc, "A"))
	assert.Equal(t, "990", balanceOf(t, svc, "B"))
	assert.Len(t, notifier.all(), 66)
}

func TestTransferService_ConcurrentTransfersConserveTotal(t *testing.T) {
	svc, _ := setup(t)
	ids := []string{"A", "B", "C", "D"}
	for _, id := range ids {
		mustCreate(t, svc, id, "1000")
	}

	var wg sync.WaitGroup
	for i := range 400 {
		from := ids[i%len(ids)]
		to := ids[(i*7+1)%len(ids)]
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Transfer(context.Background(), from, to, decimal.RequireFromString("12.5"))
			if err != nil {
				assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
			}
		}()
	}
	wg.Wait()

	ctx := context.Background()
	assert.Equal(t, "4000", svc.TotalBalance(ctx).String())
	for _, account := range svc.Accounts(ctx) {
		assert.False(t, account.Balance.IsNegative(), account.ID)
	}
}

// 一組 N 筆、總額小於餘額的轉帳，不論交錯順序都會全部成功
func TestTransferService_ConcurrentTransfersWithinBalanceAllSucceed(t *testing.T) {
	svc, _ := setup(t)
	mustCreate(t, svc, "A", "1000")
	mustCreate(t, svc, "B", "1000")

	var wg sync.WaitGroup
	for range 99 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Transfer(context.Background(), "A", "B", decimal.NewFromInt(10))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, "10", balanceOf(t, svc, "A"))
	assert.Equal(t, "1990", balanceOf(t, svc, "B"))
}

// stuckSink 模擬掛住的下游 (NATS / MySQL)
type stuckSink struct {
	release chan struct{}
}

func (s stuckSink) Notify(ctx context.Context, _ domain.Notification) error {
	select {
	case <-s.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestTransferService_StuckSinkDoesNotDelayTransfers(t *testing.T) {
	sink := stuckSink{release: make(chan struct{})}
	dispatcher, err := notify.NewDispatcher(sink, notify.DispatcherConfig{
		Workers:   1,
		QueueSize: 2,
		Timeout:   5 * time.Second,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	dispatcher.Start()
	t.Cleanup(func() {
		close(sink.release)
		dispatcher.Stop()
	})

	store, err := memory.NewAccountStore()
	require.NoError(t, err)
	svc := usecase.NewTransferService(store, dispatcher, zaptest.NewLogger(t))
	for _, id := range []string{"A", "B", "C", "D"} {
		mustCreate(t, svc, id, "1000")
	}

	// 塞滿輸送帶
	for range 3 {
		_, err := svc.Transfer(context.Background(), "A", "B", decimal.NewFromInt(1))
		require.NoError(t, err)
	}

	start := time.Now()
	_, err = svc.Transfer(context.Background(), "C", "D", decimal.NewFromInt(1))
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 200*time.Millisecond)
	assert.Equal(t, "999", balanceOf(t, svc, "C"))
}
