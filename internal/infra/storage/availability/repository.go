package availability

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

// Repository репозиторий расписания провайдера: еженедельные правила
// и одноразовые исключения. Читается резолвером доступности
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория расписания
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// ListRulesByProvider получает все еженедельные правила провайдера
func (r *Repository) ListRulesByProvider(ctx context.Context, providerID int64) ([]*domain.ProviderAvailabilityRule, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(
		"id",
		"provider_id",
		"day_of_week",
		"start_time",
		"end_time",
		"created_at",
		"updated_at",
	).
		From("provider_availability_rules").
		Where(squirrel.Eq{"provider_id": providerID}).
		OrderBy("day_of_week ASC, start_time ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListRulesByProvider - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListRulesByProvider - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	rules := make([]*domain.ProviderAvailabilityRule, 0)
	for rows.Next() {
		var rule domain.ProviderAvailabilityRule
		var dayOfWeek int
		var createdAt, updatedAt sql.NullTime

		err := rows.Scan(
			&rule.ID,
			&rule.ProviderID,
			&dayOfWeek,
			&rule.StartTime,
			&rule.EndTime,
			&createdAt,
			&updatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: ListRulesByProvider - scan row: %v", ErrScanRow, err)
		}

		rule.DayOfWeek = time.Weekday(dayOfWeek)
		rule.CreatedAt = createdAt.Time
		rule.UpdatedAt = updatedAt.Time
		rules = append(rules, &rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: ListRulesByProvider - rows error: %v", ErrScanRow, err)
	}

	return rules, nil
}

// ListExceptionsByProviderWindow получает исключения провайдера,
// пересекающиеся с [windowStart, windowEnd)
func (r *Repository) ListExceptionsByProviderWindow(ctx context.Context, providerID int64, windowStart, windowEnd time.Time) ([]*domain.ProviderAvailabilityException, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(
		"id",
		"provider_id",
		"kind",
		"window_start_utc",
		"window_end_utc",
		"reason",
		"created_at",
	).
		From("provider_availability_exceptions").
		Where(squirrel.Eq{"provider_id": providerID}).
		Where(squirrel.Lt{"window_start_utc": windowEnd}).
		Where(squirrel.Gt{"window_end_utc": windowStart}).
		OrderBy("window_start_utc ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListExceptionsByProviderWindow - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListExceptionsByProviderWindow - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	exceptions := make([]*domain.ProviderAvailabilityException, 0)
	for rows.Next() {
		var exc domain.ProviderAvailabilityException
		var createdAt sql.NullTime

		err := rows.Scan(
			&exc.ID,
			&exc.ProviderID,
			&exc.Kind,
			&exc.WindowStartUTC,
			&exc.WindowEndUTC,
			&exc.Reason,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: ListExceptionsByProviderWindow - scan row: %v", ErrScanRow, err)
		}

		exc.CreatedAt = createdAt.Time
		exceptions = append(exceptions, &exc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: ListExceptionsByProviderWindow - rows error: %v", ErrScanRow, err)
	}

	return exceptions, nil
}
