package voucher

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/loyalty-service/internal/domain"
)

// SuffixSequence hands out voucher suffixes. Implementations must be
// atomic: the value returned is greater than every suffix persisted in the
// store and every suffix previously returned.
type SuffixSequence interface {
	NextVoucherSuffix(ctx context.Context) (int64, error)
}

// Allocator produces globally unique, strictly increasing voucher codes.
type Allocator struct {
	mu      sync.Mutex
	seq     SuffixSequence
	prefix  string
	logger  *zap.Logger
	onIssue func()
}

// NewAllocator builds an allocator. onIssue, when non-nil, is called after
// every successful allocation.
func NewAllocator(seq SuffixSequence, prefix string, logger *zap.Logger, onIssue func()) *Allocator {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = domain.DefaultVoucherPrefix
	}
	return &Allocator{seq: seq, prefix: prefix, logger: logger.Named("voucher-allocator"), onIssue: onIssue}
}

// Allocate returns the next voucher code.
func (a *Allocator) Allocate(ctx context.Context) (domain.VoucherCode, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	suffix, err := a.seq.NextVoucherSuffix(ctx)
	if err != nil {
		return "", fmt.Errorf("allocate voucher suffix: %w", err)
	}

	code := domain.NewVoucherCode(a.prefix, suffix)
	a.logger.Debug("voucher allocated", zap.String("voucher_code", code.String()))
	if a.onIssue != nil {
		a.onIssue()
	}
	return code, nil
}

// Prefix returns the configured code prefix.
func (a *Allocator) Prefix() string {
	return a.prefix
}
