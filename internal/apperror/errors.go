package apperror

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies an error returned by the wallet engine.
type Kind int

const (
	KindUnclassified Kind = iota
	KindWalletNotFound
	KindInvalidRequest
	KindInsufficientFunds
	KindOverloaded
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindWalletNotFound:
		return "WalletNotFound"
	case KindInvalidRequest:
		return "InvalidRequest"
	case KindInsufficientFunds:
		return "InsufficientFunds"
	case KindOverloaded:
		return "Overloaded"
	case KindTimeout:
		return "Timeout"
	default:
		return "Unclassified"
	}
}

// Retryable reports whether an identical request may succeed later.
func (k Kind) Retryable() bool {
	return k == KindOverloaded || k == KindTimeout
}

// Error carries a Kind, a message safe to show to clients and the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func New(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func WalletNotFound(walletID fmt.Stringer, cause error) *Error {
	return New(KindWalletNotFound, "Wallet not found with id: "+walletID.String(), cause)
}

func InvalidRequest(cause error) *Error {
	msg := "invalid request"
	if cause != nil {
		msg = "Invalid JSON: " + cause.Error()
	}
	return New(KindInvalidRequest, msg, cause)
}

func InsufficientFunds() *Error {
	return New(KindInsufficientFunds, "Not enough funds for this transaction", nil)
}

func Overloaded(cause error) *Error {
	return New(KindOverloaded, "too many requests, try again later", cause)
}

func Timeout(cause error) *Error {
	return New(KindTimeout, "operation timed out, try again later", cause)
}

func Unclassified(cause error) *Error {
	return New(KindUnclassified, "internal server error", cause)
}

// KindOf extracts the Kind of err. Bare context deadline errors count as timeouts.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnclassified
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindUnclassified
}

func IsRetryable(err error) bool {
	return err != nil && KindOf(err).Retryable()
}
