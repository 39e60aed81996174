package repository

import "errors"

var (
	ErrWalletNotFound = errors.New("wallet not found")
	// ErrConflict marks a transient write conflict; the same operation may succeed on retry.
	ErrConflict = errors.New("concurrent update conflict")
)
