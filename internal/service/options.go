package service

import (
	"context"
	"time"

	"wallets/internal/metrics"
)

// Admitter gates work before it runs; *admission.Controller implements it.
type Admitter interface {
	Do(ctx context.Context, task func(context.Context) error) error
}

type Option func(*WalletService)

func WithAdmission(a Admitter) Option {
	return func(s *WalletService) { s.admission = a }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *WalletService) { s.metrics = m }
}

// WithOperationTimeout bounds every individual store call.
func WithOperationTimeout(d time.Duration) Option {
	return func(s *WalletService) {
		if d > 0 {
			s.opTimeout = d
		}
	}
}

// WithLockTimeout bounds the wait for a wallet's lock.
func WithLockTimeout(d time.Duration) Option {
	return func(s *WalletService) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// WithMaxRetries sets how many times a lost conditional update is re-read and retried.
func WithMaxRetries(n int) Option {
	return func(s *WalletService) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}
