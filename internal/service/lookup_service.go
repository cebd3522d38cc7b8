package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spec-kit/loyalty-service/internal/auth"
	"github.com/spec-kit/loyalty-service/internal/domain"
	"github.com/spec-kit/loyalty-service/internal/repository"
	apperrors "github.com/spec-kit/loyalty-service/pkg/util"
)

// VoucherHolder is what staff see when redeeming a voucher.
type VoucherHolder struct {
	Name        string             `json:"name"`
	BirthDay    int                `json:"birth_day"`
	BirthMonth  int                `json:"birth_month"`
	VoucherCode domain.VoucherCode `json:"voucher_code"`
}

// LookupService authenticates staff and resolves voucher codes to customers.
type LookupService struct {
	customers    repository.CustomerRepository
	tokenMgr     *auth.TokenManager
	passwordHash string
}

// NewLookupService builds the service. An empty password hash disables staff login.
func NewLookupService(customers repository.CustomerRepository, tokenMgr *auth.TokenManager, passwordHash string) *LookupService {
	return &LookupService{customers: customers, tokenMgr: tokenMgr, passwordHash: passwordHash}
}

// LoginStaff checks the shared staff password and issues a token.
func (s *LookupService) LoginStaff(_ context.Context, password string) (string, time.Time, error) {
	if s.passwordHash == "" {
		return "", time.Time{}, apperrors.NewForbidden("staff login disabled")
	}
	if err := auth.ComparePassword(s.passwordHash, password); err != nil {
		return "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	return s.tokenMgr.GenerateToken("staff", auth.SubjectStaff)
}

// Lookup returns the holder of code.
func (s *LookupService) Lookup(ctx context.Context, code string) (*VoucherHolder, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperrors.NewValidationError("voucher code required", nil)
	}

	customer, err := s.customers.GetByVoucherCode(ctx, domain.VoucherCode(code))
	if errors.Is(err, domain.ErrCustomerNotFound) {
		return nil, apperrors.NewNotFound("voucher", map[string]any{"voucher_code": code})
	}
	if err != nil {
		return nil, &PersistenceError{Op: "find customer by voucher", Err: err}
	}

	return &VoucherHolder{
		Name:        customer.Name,
		BirthDay:    customer.BirthDay,
		BirthMonth:  int(customer.BirthMonth),
		VoucherCode: customer.VoucherCode,
	}, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *LookupService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}
