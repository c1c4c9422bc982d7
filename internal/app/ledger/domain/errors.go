package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientBalance 餘額不足 (或金額不是正數)
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrAccountNotFound 找不到帳戶
	ErrAccountNotFound = errors.New("account not found")

	// ErrDuplicateAccount 帳戶已存在
	ErrDuplicateAccount = errors.New("account already exists")

	// ErrInvalidAccount 帳戶資料不合法 (空 ID 或負餘額)
	ErrInvalidAccount = errors.New("invalid account")
)

// AccountNotFoundError 帶有帳戶 ID 的 ErrAccountNotFound
type AccountNotFoundError struct {
	AccountID string
}

func (e *AccountNotFoundError) Error() string {
	return fmt.Sprintf("account id %s is not found", e.AccountID)
}

func (e *AccountNotFoundError) Unwrap() error {
	return ErrAccountNotFound
}

// DuplicateAccountError 帶有帳戶 ID 的 ErrDuplicateAccount
type DuplicateAccountError struct {
	AccountID string
}

func (e *DuplicateAccountError) Error() string {
	return fmt.Sprintf("account id %s already exists", e.AccountID)
}

func (e *DuplicateAccountError) Unwrap() error {
	return ErrDuplicateAccount
}
