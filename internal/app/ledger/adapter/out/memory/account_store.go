package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/JoeShih716/mem-transfer-ledger/internal/app/ledger/domain"
	"github.com/JoeShih716/mem-transfer-ledger/internal/app/ledger/usecase"
)

// entry 單一帳戶與它自己的鎖
type entry struct {
	mu      sync.Mutex
	account domain.Account
}

// AccountStore 記憶體帳戶儲存 (per-account lock)
//
// 結構:
//
//	mu: 只保護 entries 這個 map 本身，轉帳期間不會持有
//	entries: 帳戶 ID 對應的 entry，每個 entry 有自己的 Mutex
//
// 需要同時鎖多個帳戶時一律依 domain.LockIDs 的順序上鎖，避免 A->B 與 B->A 互相等待。
type AccountStore struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewAccountStore 建立 AccountStore 並放入初始帳戶
//
// 參數:
//
//	accounts: 初始帳戶，ID 重複或資料不合法時回傳錯誤
//
// 回傳:
//
//	*AccountStore: AccountStore 實例
//	error: 初始化錯誤
func NewAccountStore(accounts ...domain.Account) (*AccountStore, error) {
	store := &AccountStore{
		entries: make(map[string]*entry, len(accounts)),
	}
	for _, account := range accounts {
		if err := store.CreateAccount(context.Background(), account); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// CreateAccount 新增帳戶
//
// 回傳:
//
//	error: 資料不合法 (domain.ErrInvalidAccount) 或 ID 重複 (*domain.DuplicateAccountError)
func (s *AccountStore) CreateAccount(ctx context.Context, account domain.Account) error {
	if err := account.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[account.ID]; ok {
		return &domain.DuplicateAccountError{AccountID: account.ID}
	}
	s.entries[account.ID] = &entry{account: account}
	return nil
}

// GetAccount 取得帳戶快照
// 只鎖該帳戶，不會讀到轉帳做到一半的值
func (s *AccountStore) GetAccount(ctx context.Context, id string) (domain.Account, bool) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return domain.Account{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.account, true
}

// Mutate 在持有 ids 所有帳戶鎖的情況下執行 fn
//
// 參數:
//
//	ids: 帳戶 ID，可重複 (重複的 ID 會拿到同一個副本)
//	fn: 收到與 ids 同順序的工作副本，回傳 nil 才寫回
//
// 回傳:
//
//	error: 找不到帳戶 (*domain.AccountNotFoundError)、fn 的錯誤，或寫回會造成負餘額
func (s *AccountStore) Mutate(ctx context.Context, ids []string, fn func(accounts []*domain.Account) error) error {
	// 1. 取得 entry (依呼叫者給的順序，找不到時回報第一個缺少的 ID)
	byID := make(map[string]*entry, len(ids))
	s.mu.RLock()
	for _, id := range ids {
		e, ok := s.entries[id]
		if !ok {
			s.mu.RUnlock()
			return &domain.AccountNotFoundError{AccountID: id}
		}
		byID[id] = e
	}
	s.mu.RUnlock()

	// 2. 依固定順序上鎖
	lockIDs := domain.LockIDs(ids...)
	for _, id := range lockIDs {
		byID[id].mu.Lock()
	}
	defer func() {
		for _, id := range slices.Backward(lockIDs) {
			byID[id].mu.Unlock()
		}
	}()

	// 3. 在副本上執行
	working := make(map[string]*domain.Account, len(lockIDs))
	for _, id := range lockIDs {
		account := byID[id].account
		working[id] = &account
	}
	accounts := make([]*domain.Account, len(ids))
	for i, id := range ids {
		accounts[i] = working[id]
	}
	if err := fn(accounts); err != nil {
		return err
	}

	// 4. 寫回 (只寫餘額，ID 不可變)
	for _, id := range lockIDs {
		if working[id].Balance.IsNegative() {
			return fmt.Errorf("%w: account %s would become %s", domain.ErrInsufficientBalance, id, working[id].Balance)
		}
	}
	for _, id := range lockIDs {
		byID[id].account.Balance = working[id].Balance
	}
	return nil
}

// Accounts 取得所有帳戶的一致快照 (依 ID 排序)
func (s *AccountStore) Accounts(ctx context.Context) []domain.Account {
	s.mu.RLock()
	ids := make([]string, 0, len(s.entries))
	entries := make(map[string]*entry, len(s.entries))
	for id, e := range s.entries {
		ids = append(ids, id)
		entries[id] = e
	}
	s.mu.RUnlock()

	slices.Sort(ids)
	for _, id := range ids {
		entries[id].mu.Lock()
	}
	accounts := make([]domain.Account, 0, len(ids))
	for _, id := range ids {
		accounts = append(accounts, entries[id].account)
	}
	for _, id := range slices.Backward(ids) {
		entries[id].mu.Unlock()
	}
	return accounts
}

// TotalBalance 所有帳戶餘額總和
func (s *AccountStore) TotalBalance(ctx context.Context) decimal.Decimal {
	total := decimal.Zero
	for _, account := range s.Accounts(ctx) {
		total = total.Add(account.Balance)
	}
	return total
}

// Clear 清空所有帳戶 (測試用)
func (s *AccountStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*entry)
}

var _ usecase.AccountStore = (*AccountStore)(nil)
