package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/loyalty-service/internal/domain"
)

// MemoryCustomerRepository is an in-process store used when no database is
// configured and in tests.
type MemoryCustomerRepository struct {
	mu        sync.RWMutex
	customers []*domain.Customer
	highWater int64
	now       func() time.Time
}

// NewMemoryCustomerRepository returns an empty store.
func NewMemoryCustomerRepository() *MemoryCustomerRepository {
	return &MemoryCustomerRepository{highWater: domain.InitialVoucherSuffix, now: time.Now}
}

func (r *MemoryCustomerRepository) ListAll(_ context.Context) ([]domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Customer, 0, len(r.customers))
	for _, c := range r.customers {
		out = append(out, clone(c))
	}
	return out, nil
}

func (r *MemoryCustomerRepository) GetByEmail(_ context.Context, email string) (*domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.customers {
		if strings.EqualFold(c.Email, email) {
			cp := clone(c)
			return &cp, nil
		}
	}
	return nil, domain.ErrCustomerNotFound
}

func (r *MemoryCustomerRepository) GetByVoucherCode(_ context.Context, code domain.VoucherCode) (*domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.customers {
		if c.VoucherCode == code {
			cp := clone(c)
			return &cp, nil
		}
	}
	return nil, domain.ErrCustomerNotFound
}

func (r *MemoryCustomerRepository) Create(_ context.Context, customer *domain.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.customers {
		if strings.EqualFold(c.Email, customer.Email) {
			return domain.ErrDuplicateCustomer
		}
	}

	now := r.now()
	customer.ID = uuid.NewString()
	customer.CreatedAt = now
	customer.UpdatedAt = now
	stored := clone(customer)
	r.customers = append(r.customers, &stored)
	return nil
}

func (r *MemoryCustomerRepository) UpdateVoucherCode(_ context.Context, id string, code domain.VoucherCode) error {
	return r.update(id, func(c *domain.Customer) { c.VoucherCode = code })
}

func (r *MemoryCustomerRepository) UpdateSentFlags(_ context.Context, id string, emailSent, smsSent bool) error {
	return r.update(id, func(c *domain.Customer) {
		c.EmailSent = emailSent
		c.SMSSent = smsSent
	})
}

func (r *MemoryCustomerRepository) RecordDailyOutcome(_ context.Context, o DailyOutcome) error {
	return r.update(o.CustomerID, func(c *domain.Customer) {
		if o.VoucherCode != nil {
			c.VoucherCode = *o.VoucherCode
		}
		if o.EmailSent != nil {
			c.EmailSent = *o.EmailSent
		}
		if o.SMSSent != nil {
			c.SMSSent = *o.SMSSent
		}
		processed := domain.DateOf(o.ProcessedOn)
		c.LastProcessedOn = &processed
	})
}

// NextVoucherSuffix scans persisted codes under the write lock and never
// returns a value at or below one it returned before.
func (r *MemoryCustomerRepository) NextVoucherSuffix(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.customers {
		if n, ok := c.VoucherCode.Suffix(); ok && n > r.highWater {
			r.highWater = n
		}
	}
	r.highWater++
	return r.highWater, nil
}

func (r *MemoryCustomerRepository) update(id string, fn func(*domain.Customer)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.customers {
		if c.ID == id {
			fn(c)
			c.UpdatedAt = r.now()
			return nil
		}
	}
	return domain.ErrCustomerNotFound
}

func clone(c *domain.Customer) domain.Customer {
	cp := *c
	if c.LastProcessedOn != nil {
		t := *c.LastProcessedOn
		cp.LastProcessedOn = &t
	}
	return cp
}
