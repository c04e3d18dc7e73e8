package noshowqueue

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

var itemColumns = []string{
	"id",
	"service_appointment_id",
	"risk_level",
	"score",
	"reasons_csv",
	"city",
	"category",
	"status",
	"first_detected_at_utc",
	"last_detected_at_utc",
	"resolved_at_utc",
	"resolution_note",
	"created_at",
	"updated_at",
}

// Repository репозиторий триажной очереди no-show риска
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория очереди
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// GetOpenByAppointmentID возвращает открытый (open/in_progress) элемент
// очереди для визита, если он существует
func (r *Repository) GetOpenByAppointmentID(ctx context.Context, appointmentID int64) (*domain.NoShowQueueItem, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(itemColumns...).
		From("no_show_queue_items").
		Where(squirrel.Eq{"service_appointment_id": appointmentID}).
		Where(squirrel.Eq{"status": []string{
			string(domain.QueueItemOpen),
			string(domain.QueueItemInProgress),
		}}).
		Limit(1)

	if dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetOpenByAppointmentID - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetOpenByAppointmentID - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	items, err := scanItems(rows)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrItemNotFound
	}

	return items[0], nil
}

// GetByID получает элемент очереди по ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.NoShowQueueItem, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(itemColumns...).
		From("no_show_queue_items").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	items, err := scanItems(rows)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrItemNotFound
	}

	return items[0], nil
}

// Insert создает новый элемент очереди
func (r *Repository) Insert(ctx context.Context, item *domain.NoShowQueueItem) (*domain.NoShowQueueItem, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("no_show_queue_items").
		Columns(
			"service_appointment_id",
			"risk_level",
			"score",
			"reasons_csv",
			"city",
			"category",
			"status",
			"first_detected_at_utc",
			"last_detected_at_utc",
		).
		Values(
			item.ServiceAppointmentID,
			item.RiskLevel,
			item.Score,
			item.ReasonsCsv,
			item.City,
			item.Category,
			item.Status,
			item.FirstDetectedAtUTC,
			item.LastDetectedAtUTC,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: Insert - build insert query: %v", ErrBuildQuery, err)
	}

	var createdAt, updatedAt sql.NullTime
	err = executor.QueryRowContext(ctx, query, args...).Scan(&item.ID, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: Insert - execute insert: %v", ErrExecQuery, err)
	}

	item.CreatedAt = createdAt.Time
	item.UpdatedAt = updatedAt.Time

	return item, nil
}

// Refresh обновляет score/reasons/last_detected_at открытого элемента
// Статус и first_detected_at не трогаем
func (r *Repository) Refresh(ctx context.Context, id int64, level domain.RiskLevel, score int, reasonsCsv string, detectedAt time.Time) error {
	return r.execUpdate(ctx, "Refresh", psqlbuilder.Update("no_show_queue_items").
		Set("risk_level", level).
		Set("score", score).
		Set("reasons_csv", reasonsCsv).
		Set("last_detected_at_utc", detectedAt).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}))
}

// UpdateStatus переводит элемент очереди в новый статус
// При переходе в resolved фиксирует время и заметку оператора
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status domain.NoShowQueueItemStatus, resolutionNote *string, resolvedAt *time.Time) error {
	return r.execUpdate(ctx, "UpdateStatus", psqlbuilder.Update("no_show_queue_items").
		Set("status", status).
		Set("resolution_note", resolutionNote).
		Set("resolved_at_utc", resolvedAt).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}))
}

// ResolveOpenByAppointmentID закрывает открытый элемент очереди визита,
// если он есть. Идемпотентно: отсутствие открытого элемента - не ошибка
// Вызывается при терминальных переходах визита
func (r *Repository) ResolveOpenByAppointmentID(ctx context.Context, appointmentID int64, note string, resolvedAt time.Time) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Update("no_show_queue_items").
		Set("status", domain.QueueItemResolved).
		Set("resolution_note", note).
		Set("resolved_at_utc", resolvedAt).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"service_appointment_id": appointmentID}).
		Where(squirrel.Eq{"status": []string{
			string(domain.QueueItemOpen),
			string(domain.QueueItemInProgress),
		}}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: ResolveOpenByAppointmentID - build update query: %v", ErrBuildQuery, err)
	}

	if _, err := executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: ResolveOpenByAppointmentID - execute update: %v", ErrExecQuery, err)
	}

	return nil
}

// ListWithFilter триажная выборка элементов очереди с пагинацией
// Индексный скан по (status, risk_level, last_detected_at_utc), без full scan
func (r *Repository) ListWithFilter(ctx context.Context, filter domain.NoShowQueueFilter) ([]*domain.NoShowQueueItem, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(itemColumns...).
		From("no_show_queue_items")

	if filter.Status != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.RiskLevel != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"risk_level": *filter.RiskLevel})
	}
	if filter.City != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"city": *filter.City})
	}
	if filter.Category != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"category": *filter.Category})
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = domain.DefaultQueuePageSize
	}
	if limit > domain.MaxQueuePageSize {
		limit = domain.MaxQueuePageSize
	}

	selectBuilder = selectBuilder.
		OrderBy("last_detected_at_utc DESC").
		Limit(uint64(limit)).
		Offset(uint64(filter.Offset))

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListWithFilter - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListWithFilter - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanItems(rows)
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
		return ErrItemNotFound
	}

	return nil
}

// scanItems сканирует результаты запроса в слайс элементов очереди
func scanItems(rows *sql.Rows) ([]*domain.NoShowQueueItem, error) {
	items := make([]*domain.NoShowQueueItem, 0)

	for rows.Next() {
		var item domain.NoShowQueueItem
		var createdAt, updatedAt sql.NullTime

		err := rows.Scan(
			&item.ID,
			&item.ServiceAppointmentID,
			&item.RiskLevel,
			&item.Score,
			&item.ReasonsCsv,
			&item.City,
			&item.Category,
			&item.Status,
			&item.FirstDetectedAtUTC,
			&item.LastDetectedAtUTC,
			&item.ResolvedAtUTC,
			&item.ResolutionNote,
			&createdAt,
			&updatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: scanItems - scan row: %v", ErrScanRow, err)
		}

		item.CreatedAt = createdAt.Time
		item.UpdatedAt = updatedAt.Time
		items = append(items, &item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: scanItems - rows error: %v", ErrScanRow, err)
	}

	return items, nil
}
