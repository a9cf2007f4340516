package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dltrh/devision-job-platform/internal/domain"
	"github.com/dltrh/devision-job-platform/internal/repository"
	"github.com/dltrh/devision-job-platform/pkg/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AttemptRepository реализует репозиторий попыток покупки в PostgreSQL
type AttemptRepository struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// NewAttemptRepository создает новый PostgreSQL репозиторий попыток покупки
func NewAttemptRepository(pool *pgxpool.Pool, log *logger.Logger) *AttemptRepository {
	return &AttemptRepository{
		pool: pool,
		log:  log,
	}
}

// Create сохраняет новую попытку покупки
func (r *AttemptRepository) Create(ctx context.Context, attempt *domain.PurchaseAttempt) error {
	now := time.Now()
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = now
	}
	attempt.UpdatedAt = now

	query := `
		INSERT INTO purchase_attempts (
			id, session_id, payer_id, plan_id, amount, currency,
			intent_id, status, transaction_id, error_code, activation_pending,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.pool.Exec(ctx, query,
		attempt.ID,
		attempt.SessionID,
		attempt.PayerID,
		attempt.PlanID,
		attempt.Amount,
		attempt.Currency,
		attempt.IntentID,
		attempt.Status,
		attempt.TransactionID,
		attempt.ErrorCode,
		attempt.ActivationPending,
		attempt.CreatedAt,
		attempt.UpdatedAt,
	)
	if err != nil {
		r.log.Errorw("Failed to create purchase attempt", "error", err, "attemptID", attempt.ID)
		return fmt.Errorf("failed to create purchase attempt: %w", err)
	}

	return nil
}

// Update обновляет терминальный исход попытки покупки
func (r *AttemptRepository) Update(ctx context.Context, attempt *domain.PurchaseAttempt) error {
	attempt.UpdatedAt = time.Now()

	query := `
		UPDATE purchase_attempts
		SET status = $2, transaction_id = $3, error_code = $4,
		    activation_pending = $5, updated_at = $6
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		attempt.ID,
		attempt.Status,
		attempt.TransactionID,
		attempt.ErrorCode,
		attempt.ActivationPending,
		attempt.UpdatedAt,
	)
	if err != nil {
		r.log.Errorw("Failed to update purchase attempt", "error", err, "attemptID", attempt.ID)
		return fmt.Errorf("failed to update purchase attempt: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// GetByID возвращает попытку покупки по ID
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.PurchaseAttempt, error) {
	query := `
		SELECT id, session_id, payer_id, plan_id, amount, currency,
		       intent_id, status, transaction_id, error_code, activation_pending,
		       created_at, updated_at
		FROM purchase_attempts
		WHERE id = $1
	`

	var attempt domain.PurchaseAttempt
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&attempt.ID,
		&attempt.SessionID,
		&attempt.PayerID,
		&attempt.PlanID,
		&attempt.Amount,
		&attempt.Currency,
		&attempt.IntentID,
		&attempt.Status,
		&attempt.TransactionID,
		&attempt.ErrorCode,
		&attempt.ActivationPending,
		&attempt.CreatedAt,
		&attempt.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PurchaseAttempt{}, repository.ErrNotFound
		}
		r.log.Errorw("Failed to get purchase attempt", "error", err, "attemptID", id)
		return domain.PurchaseAttempt{}, fmt.Errorf("failed to get purchase attempt: %w", err)
	}

	return attempt, nil
}

// GetBySessionID возвращает попытки покупки для сессии в порядке создания
func (r *AttemptRepository) GetBySessionID(ctx context.Context, sessionID string) ([]domain.PurchaseAttempt, error) {
	query := `
		SELECT id, session_id, payer_id, plan_id, amount, currency,
		       intent_id, status, transaction_id, error_code, activation_pending,
		       created_at, updated_at
		FROM purchase_attempts
		WHERE session_id = $1
		ORDER BY created_at
	`

	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		r.log.Errorw("Failed to query purchase attempts", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("failed to query purchase attempts: %w", err)
	}
	defer rows.Close()

	var attempts []domain.PurchaseAttempt
	for rows.Next() {
		var attempt domain.PurchaseAttempt
		if err := rows.Scan(
			&attempt.ID,
			&attempt.SessionID,
			&attempt.PayerID,
			&attempt.PlanID,
			&attempt.Amount,
			&attempt.Currency,
			&attempt.IntentID,
			&attempt.Status,
			&attempt.TransactionID,
			&attempt.ErrorCode,
			&attempt.ActivationPending,
			&attempt.CreatedAt,
			&attempt.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan purchase attempt: %w", err)
		}
		attempts = append(attempts, attempt)
	}

	return attempts, rows.Err()
}
