package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/polkiloo/refundstatus/internal/domain/errors"
	"github.com/polkiloo/refundstatus/internal/domain/model"
	"github.com/polkiloo/refundstatus/internal/domain/repository"
)

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

var newPgxPool = func(ctx context.Context, cfg *pgxpool.Config) (pgxPool, error) {
	return pgxpool.NewWithConfig(ctx, cfg)
}

var _ repository.Factory = (*Storage)(nil)

// Storage acts as repository facade backed by PostgreSQL.
type Storage struct {
	pool   pgxPool
	logger *slog.Logger
}

type userRepository struct {
	storage *Storage
}

type refundRepository struct {
	storage *Storage
}

type auditRepository struct {
	storage *Storage
}

// New creates storage with schema initialization.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := newPgxPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	storage := &Storage{pool: pool, logger: logger}
	if err := storage.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return storage, nil
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Factory methods for domain repositories.
func (s *Storage) Users() repository.UserRepository {
	return &userRepository{storage: s}
}

func (s *Storage) Refunds() repository.RefundRepository {
	return &refundRepository{storage: s}
}

func (s *Storage) Audits() repository.AuditRepository {
	return &auditRepository{storage: s}
}

func (s *Storage) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id SERIAL PRIMARY KEY,
            login TEXT UNIQUE NOT NULL,
            password_hash TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS refund_records (
            id SERIAL PRIMARY KEY,
            user_id BIGINT NOT NULL REFERENCES users(id),
            tax_year INTEGER NOT NULL,
            status TEXT NOT NULL,
            expected_amount DOUBLE PRECISION,
            irs_tracking_id TEXT,
            available_at_estimated TIMESTAMPTZ,
            estimated_at TIMESTAMPTZ,
            last_updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            UNIQUE (user_id, tax_year)
        )`,
		`CREATE TABLE IF NOT EXISTS refund_access_audit (
            id SERIAL PRIMARY KEY,
            user_id BIGINT NOT NULL,
            action TEXT NOT NULL,
            tax_year INTEGER NOT NULL,
            status TEXT NOT NULL,
            request_id TEXT NOT NULL DEFAULT '',
            occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE INDEX IF NOT EXISTS ix_refund_records_estimate ON refund_records(status, estimated_at)`,
		`CREATE INDEX IF NOT EXISTS ix_refund_audit_user_time ON refund_access_audit(user_id, occurred_at DESC)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

// --- UserRepository implementation ---

func (r *userRepository) Create(ctx context.Context, login, passwordHash string) (*model.User, error) {
	const query = `INSERT INTO users (login, password_hash) VALUES ($1, $2) RETURNING id, created_at`
	var u model.User
	err := r.storage.pool.QueryRow(ctx, query, login, passwordHash).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domainErrors.ErrAlreadyExists
		}
		return nil, err
	}
	u.Login = login
	u.PasswordHash = passwordHash
	return &u, nil
}

func (r *userRepository) GetByLogin(ctx context.Context, login string) (*model.User, error) {
	const query = `SELECT id, login, password_hash, created_at FROM users WHERE login=$1`
	var u model.User
	err := r.storage.pool.QueryRow(ctx, query, login).Scan(&u.ID, &u.Login, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	const query = `SELECT id, login, password_hash, created_at FROM users WHERE id=$1`
	var u model.User
	err := r.storage.pool.QueryRow(ctx, query, id).Scan(&u.ID, &u.Login, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// --- RefundRepository implementation ---

const refundColumns = `id, user_id, tax_year, status, expected_amount, irs_tracking_id, available_at_estimated, last_updated_at`

func scanRefund(row pgx.Row, r *model.RefundRecord) error {
	return row.Scan(&r.ID, &r.UserID, &r.TaxYear, &r.Status, &r.ExpectedAmount, &r.TrackingID, &r.AvailableAtEstimated, &r.LastUpdatedAt)
}

func (r *refundRepository) GetByUserAndYear(ctx context.Context, userID int64, taxYear int) (*model.RefundRecord, error) {
	const query = `SELECT ` + refundColumns + ` FROM refund_records WHERE user_id=$1 AND tax_year=$2`
	var record model.RefundRecord
	if err := scanRefund(r.storage.pool.QueryRow(ctx, query, userID, taxYear), &record); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

func (r *refundRepository) Save(ctx context.Context, record *model.RefundRecord) error {
	const query = `INSERT INTO refund_records
                       (user_id, tax_year, status, expected_amount, irs_tracking_id, available_at_estimated, estimated_at, last_updated_at)
                   VALUES ($1, $2, $3, $4, $5, $6, NOW(), $7)
                   ON CONFLICT (user_id, tax_year) DO UPDATE SET
                       status = EXCLUDED.status,
                       expected_amount = EXCLUDED.expected_amount,
                       irs_tracking_id = EXCLUDED.irs_tracking_id,
                       available_at_estimated = EXCLUDED.available_at_estimated,
                       estimated_at = EXCLUDED.estimated_at,
                       last_updated_at = EXCLUDED.last_updated_at
                   RETURNING id`
	return r.storage.pool.QueryRow(ctx, query,
		record.UserID, record.TaxYear, record.Status, record.ExpectedAmount,
		record.TrackingID, record.AvailableAtEstimated, record.LastUpdatedAt,
	).Scan(&record.ID)
}

func (r *refundRepository) ClaimStaleEstimates(ctx context.Context, staleBefore time.Time, limit int) ([]model.RefundRecord, error) {
	const selectQuery = `SELECT ` + refundColumns + `
                         FROM refund_records
                         WHERE status NOT IN ('AVAILABLE', 'REJECTED')
                           AND (estimated_at IS NULL OR estimated_at < $1)
                         ORDER BY estimated_at NULLS FIRST
                         LIMIT $2
                         FOR UPDATE SKIP LOCKED`

	var records []model.RefundRecord
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, selectQuery, staleBefore, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var rec model.RefundRecord
			if err := scanRefund(rows, &rec); err != nil {
				return err
			}
			records = append(records, rec)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		for _, rec := range records {
			if _, err := tx.Exec(ctx, `UPDATE refund_records SET estimated_at=NOW() WHERE id=$1`, rec.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *refundRepository) UpdateEstimate(ctx context.Context, recordID int64, availableAt *time.Time) error {
	const query = `UPDATE refund_records SET available_at_estimated=$1, estimated_at=NOW() WHERE id=$2`
	tag, err := r.storage.pool.Exec(ctx, query, availableAt, recordID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

// --- AuditRepository implementation ---

func (r *auditRepository) Record(ctx context.Context, entry model.AccessAudit) error {
	const query = `INSERT INTO refund_access_audit (user_id, action, tax_year, status, request_id)
                   VALUES ($1, $2, $3, $4, $5)`
	_, err := r.storage.pool.Exec(ctx, query, entry.UserID, entry.Action, entry.TaxYear, entry.Status, entry.RequestID)
	return err
}

func (r *auditRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]model.AccessAudit, error) {
	const query = `SELECT id, user_id, action, tax_year, status, request_id, occurred_at
                   FROM refund_access_audit WHERE user_id=$1 ORDER BY occurred_at DESC LIMIT $2`
	rows, err := r.storage.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.AccessAudit
	for rows.Next() {
		var a model.AccessAudit
		if err := rows.Scan(&a.ID, &a.UserID, &a.Action, &a.TaxYear, &a.Status, &a.RequestID, &a.OccurredAt); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// WithinTransaction executes function inside transaction boundary.
func (s *Storage) WithinTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(tx)
	return err
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Logger returns storage logger.
func (s *Storage) Logger() *slog.Logger {
	return s.logger
}
