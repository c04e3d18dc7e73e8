package completion

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/pkg/dbmetrics"
	"github.com/m04kA/SMC-AppointmentService/pkg/psqlbuilder"
)

// DBExecutor интерфейс выполнения запросов (см. pkg/dbmetrics)
type DBExecutor = dbmetrics.DBExecutor

var termColumns = []string{
	"id",
	"service_request_id",
	"service_appointment_id",
	"provider_id",
	"client_id",
	"status",
	"accepted_with_method",
	"pin_hash",
	"pin_expires_at_utc",
	"pin_failed_attempts",
	"accepted_at_utc",
	"accepted_signature_name",
	"contested_at_utc",
	"contest_reason",
	"escalated_at_utc",
	"summary",
	"created_at",
	"updated_at",
}

// Repository репозиторий completion term-ов
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория completion term-ов
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create создает новый completion term
func (r *Repository) Create(ctx context.Context, t *domain.CompletionTerm) (*domain.CompletionTerm, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("completion_terms").
		Columns(
			"service_request_id",
			"service_appointment_id",
			"provider_id",
			"client_id",
			"status",
			"pin_hash",
			"pin_expires_at_utc",
			"pin_failed_attempts",
			"summary",
		).
		Values(
			t.ServiceRequestID,
			t.ServiceAppointmentID,
			t.ProviderID,
			t.ClientID,
			t.Status,
			t.PinHash,
			t.PinExpiresAtUTC,
			t.PinFailedAttempts,
			t.Summary,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	var createdAt, updatedAt sql.NullTime
	err = executor.QueryRowContext(ctx, query, args...).Scan(&t.ID, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: Create - execute insert: %v", ErrExecQuery, err)
	}

	t.CreatedAt = createdAt.Time
	t.UpdatedAt = updatedAt.Time

	return t, nil
}

// GetByAppointmentID получает последний completion term визита
// Внутри транзакции блокирует строку FOR UPDATE (подбор PIN конкурентными запросами)
func (r *Repository) GetByAppointmentID(ctx context.Context, appointmentID int64) (*domain.CompletionTerm, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(termColumns...).
		From("completion_terms").
		Where(squirrel.Eq{"service_appointment_id": appointmentID}).
		OrderBy("created_at DESC, id DESC").
		Limit(1)

	if dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByAppointmentID - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetByAppointmentID - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	terms, err := scanTerms(rows)
	if err != nil {
		return nil, err
	}
	if len(terms) == 0 {
		return nil, ErrTermNotFound
	}

	return terms[0], nil
}

// RefreshPin обновляет PIN существующего pending term-а
// Сбрасывает счетчик неудачных попыток
func (r *Repository) RefreshPin(ctx context.Context, id int64, pinHash string, expiresAt time.Time) error {
	return r.execUpdate(ctx, "RefreshPin", psqlbuilder.Update("completion_terms").
		Set("pin_hash", pinHash).
		Set("pin_expires_at_utc", expiresAt).
		Set("pin_failed_attempts", 0).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}))
}

// IncrementFailedAttempts увеличивает счетчик неудачных попыток ввода PIN
func (r *Repository) IncrementFailedAttempts(ctx context.Context, id int64) error {
	return r.execUpdate(ctx, "IncrementFailedAttempts", psqlbuilder.Update("completion_terms").
		Set("pin_failed_attempts", squirrel.Expr("pin_failed_attempts + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}))
}

// Accept фиксирует принятие работ клиентом; term становится терминальным
func (r *Repository) Accept(ctx context.Context, id int64, method domain.AcceptanceMethod, signatureName *string, acceptedAt time.Time) error {
	return r.execUpdate(ctx, "Accept", psqlbuilder.Update("completion_terms").
		Set("status", domain.CompletionAccepted).
		Set("accepted_with_method", method).
		Set("accepted_signature_name", signatureName).
		Set("accepted_at_utc", acceptedAt).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}))
}

// Contest фиксирует оспаривание работ клиентом
func (r *Repository) Contest(ctx context.Context, id int64, reason string, contestedAt time.Time) error {
	return r.execUpdate(ctx, "Contest", psqlbuilder.Update("completion_terms").
		Set("status", domain.CompletionContested).
		Set("contest_reason", reason).
		Set("contested_at_utc", contestedAt).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}))
}

// Escalate переводит оспоренный term в эскалацию; term становится терминальным
func (r *Repository) Escalate(ctx context.Context, id int64, escalatedAt time.Time) error {
	return r.execUpdate(ctx, "Escalate", psqlbuilder.Update("completion_terms").
		Set("status", domain.CompletionEscalated).
		Set("escalated_at_utc", escalatedAt).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}))
}

func (r *Repository) execUpdate(ctx context.Context, op string, builder squirrel.UpdateBuilder) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("%w: %s - build update query: %v", ErrBuildQuery, op, err)
	}

	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: %s - execute update: %v", ErrExecQuery, op, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %s - get rows affected: %v", ErrExecQuery, op, err)
	}
	if rowsAffected == 0 {
		return ErrTermNotFound
	}

	return nil
}

// scanTerms сканирует результаты запроса в слайс completion term-ов
func scanTerms(rows *sql.Rows) ([]*domain.CompletionTerm, error) {
	terms := make([]*domain.CompletionTerm, 0)

	for rows.Next() {
		var t domain.CompletionTerm
		var (
			method               sql.NullString
			createdAt, updatedAt sql.NullTime
		)

		err := rows.Scan(
			&t.ID,
			&t.ServiceRequestID,
			&t.ServiceAppointmentID,
			&t.ProviderID,
			&t.ClientID,
			&t.Status,
			&method,
			&t.PinHash,
			&t.PinExpiresAtUTC,
			&t.PinFailedAttempts,
			&t.AcceptedAtUTC,
			&t.AcceptedSignatureName,
			&t.ContestedAtUTC,
			&t.ContestReason,
			&t.EscalatedAtUTC,
			&t.Summary,
			&createdAt,
			&updatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: scanTerms - scan row: %v", ErrScanRow, err)
		}

		if method.Valid {
			m := domain.AcceptanceMethod(method.String)
			t.AcceptedWithMethod = &m
		}
		t.CreatedAt = createdAt.Time
		t.UpdatedAt = updatedAt.Time

		terms = append(terms, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: scanTerms - rows error: %v", ErrScanRow, err)
	}

	return terms, nil
}
