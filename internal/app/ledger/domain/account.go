package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Account 帳戶
//
// 帳本外部拿到的 Account 一律是值拷貝 (快照)，
// 修改它不會影響帳本內的狀態，餘額只能透過 AccountStore.Mutate 變更。
type Account struct {
	ID      string          `json:"account_id"`
	Balance decimal.Decimal `json:"balance"`
}

// NewAccount 建立帳戶快照
func NewAccount(id string, balance decimal.Decimal) Account {
	return Account{
		ID:      id,
		Balance: balance,
	}
}

// Validate 檢查帳戶是否可以建立
func (a Account) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("%w: empty account id", ErrInvalidAccount)
	}
	if a.Balance.IsNegative() {
		return fmt.Errorf("%w: negative balance %s", ErrInvalidAccount, a.Balance)
	}
	return nil
}

// Debit 扣款
//
// 金額必須大於 0 且嚴格小於目前餘額，否則回傳 ErrInsufficientBalance，餘額不變。
func (a *Account) Debit(amount decimal.Decimal) error {
	if !CanDebit(a.Balance, amount) {
		return ErrInsufficientBalance
	}
	a.Balance = a.Balance.Sub(amount)
	return nil
}

// Credit 入帳，沒有拒絕條件
func (a *Account) Credit(amount decimal.Decimal) {
	a.Balance = a.Balance.Add(amount)
}

// CanDebit 判斷 balance 是否足以扣除 amount (0 < amount < balance)
func CanDebit(balance, amount decimal.Decimal) bool {
	return amount.IsPositive() && amount.LessThan(balance)
}
