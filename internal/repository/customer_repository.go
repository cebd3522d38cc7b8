package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/loyalty-service/internal/domain"
)

const uniqueViolation = "23505"

// DailyOutcome is the single write the daily run performs per acted-on customer.
type DailyOutcome struct {
	CustomerID  string
	VoucherCode *domain.VoucherCode
	EmailSent   *bool
	SMSSent     *bool
	ProcessedOn time.Time
}

// CustomerRepository defines persistence access for loyalty customers.
type CustomerRepository interface {
	ListAll(ctx context.Context) ([]domain.Customer, error)
	GetByEmail(ctx context.Context, email string) (*domain.Customer, error)
	GetByVoucherCode(ctx context.Context, code domain.VoucherCode) (*domain.Customer, error)
	Create(ctx context.Context, customer *domain.Customer) error
	UpdateVoucherCode(ctx context.Context, id string, code domain.VoucherCode) error
	UpdateSentFlags(ctx context.Context, id string, emailSent, smsSent bool) error
	RecordDailyOutcome(ctx context.Context, outcome DailyOutcome) error
	NextVoucherSuffix(ctx context.Context) (int64, error)
}

type customerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository returns a Postgres-backed implementation.
func NewCustomerRepository(pool *pgxpool.Pool) CustomerRepository {
	return &customerRepository{pool: pool}
}

const customerColumns = `id, name, email, phone_number, birth_day, birth_month, signup_date,
        voucher_code, email_sent, sms_sent, last_processed_date, created_at, updated_at`

func scanCustomer(row pgx.Row) (*domain.Customer, error) {
	var (
		c     domain.Customer
		month int
		code  string
	)
	if err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Email,
		&c.PhoneNumber,
		&c.BirthDay,
		&month,
		&c.SignupDate,
		&code,
		&c.EmailSent,
		&c.SMSSent,
		&c.LastProcessedOn,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	c.BirthMonth = time.Month(month)
	c.VoucherCode = domain.VoucherCode(code)
	return &c, nil
}

func (r *customerRepository) ListAll(ctx context.Context) ([]domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var customers []domain.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, *c)
	}
	return customers, rows.Err()
}

func (r *customerRepository) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE lower(email)=lower($1)`
	return r.getOne(ctx, query, email)
}

func (r *customerRepository) GetByVoucherCode(ctx context.Context, code domain.VoucherCode) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE voucher_code=$1`
	return r.getOne(ctx, query, string(code))
}

func (r *customerRepository) getOne(ctx context.Context, query string, arg any) (*domain.Customer, error) {
	c, err := scanCustomer(r.pool.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCustomerNotFound
	}
	return c, err
}

func (r *customerRepository) Create(ctx context.Context, c *domain.Customer) error {
	const query = `
        INSERT INTO customers (name, email, phone_number, birth_day, birth_month, signup_date,
                               voucher_code, email_sent, sms_sent)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		c.Name,
		c.Email,
		c.PhoneNumber,
		c.BirthDay,
		int(c.BirthMonth),
		c.SignupDate,
		string(c.VoucherCode),
		c.EmailSent,
		c.SMSSent,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == "customers_email_key" {
		return domain.ErrDuplicateCustomer
	}
	return err
}

func (r *customerRepository) UpdateVoucherCode(ctx context.Context, id string, code domain.VoucherCode) error {
	const query = `UPDATE customers SET voucher_code=$1, updated_at=NOW() WHERE id=$2`
	return r.exec(ctx, query, string(code), id)
}

func (r *customerRepository) UpdateSentFlags(ctx context.Context, id string, emailSent, smsSent bool) error {
	const query = `UPDATE customers SET email_sent=$1, sms_sent=$2, updated_at=NOW() WHERE id=$3`
	return r.exec(ctx, query, emailSent, smsSent, id)
}

func (r *customerRepository) RecordDailyOutcome(ctx context.Context, o DailyOutcome) error {
	const query = `
        UPDATE customers SET
            voucher_code = COALESCE($1, voucher_code),
            email_sent = COALESCE($2, email_sent),
            sms_sent = COALESCE($3, sms_sent),
            last_processed_date = $4,
            updated_at = NOW()
        WHERE id=$5`

	var code *string
	if o.VoucherCode != nil {
		s := string(*o.VoucherCode)
		code = &s
	}
	return r.exec(ctx, query, code, o.EmailSent, o.SMSSent, o.ProcessedOn, o.CustomerID)
}

// NextVoucherSuffix bumps the single-row counter past every persisted code.
// The row lock taken by the upsert serializes concurrent allocators.
func (r *customerRepository) NextVoucherSuffix(ctx context.Context) (int64, error) {
	const query = `
        WITH persisted AS (
            SELECT COALESCE(MAX(CAST(substring(voucher_code FROM '([0-9]+)$') AS BIGINT)), $1) AS max_suffix
            FROM customers
        )
        INSERT INTO voucher_counter (id, last_value)
        SELECT 1, max_suffix + 1 FROM persisted
        ON CONFLICT (id) DO UPDATE
            SET last_value = GREATEST(voucher_counter.last_value, EXCLUDED.last_value - 1) + 1
        RETURNING last_value`

	var next int64
	if err := r.pool.QueryRow(ctx, query, domain.InitialVoucherSuffix).Scan(&next); err != nil {
		return 0, err
	}
	return next, nil
}

func (r *customerRepository) exec(ctx context.Context, query string, args ...any) error {
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrCustomerNotFound
	}
	return nil
}
