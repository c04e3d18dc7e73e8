package appointment

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

// appointmentColumns полный список колонок таблицы appointments
var appointmentColumns = []string{
	"id",
	"service_request_id",
	"client_id",
	"provider_id",
	"window_start_utc",
	"window_end_utc",
	"status",
	"expires_at_utc",
	"reason",
	"proposed_window_start_utc",
	"proposed_window_end_utc",
	"reschedule_requested_by_role",
	"reschedule_request_reason",
	"arrived_at_utc",
	"arrived_latitude",
	"arrived_longitude",
	"arrived_accuracy_meters",
	"arrived_manual_reason",
	"started_at_utc",
	"operational_status",
	"operational_status_updated_at_utc",
	"operational_status_reason",
	"no_show_risk_level",
	"no_show_risk_score",
	"no_show_risk_reasons_csv",
	"no_show_risk_calculated_at_utc",
	"cancellation_reason",
	"cancelled_at_utc",
	"created_at",
	"updated_at",
}

// Repository репозиторий для работы с визитами
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория визитов
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// Create создает новый визит
// Если в контексте передана активная транзакция, использует её
func (r *Repository) Create(ctx context.Context, a *domain.Appointment) (*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Insert("appointments").
		Columns(
			"service_request_id",
			"client_id",
			"provider_id",
			"window_start_utc",
			"window_end_utc",
			"status",
			"expires_at_utc",
			"reason",
			"no_show_risk_score",
		).
		Values(
			a.ServiceRequestID,
			a.ClientID,
			a.ProviderID,
			a.WindowStartUTC,
			a.WindowEndUTC,
			a.Status,
			a.ExpiresAtUTC,
			a.Reason,
			a.NoShowRiskScore,
		).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: Create - build insert query: %v", ErrBuildQuery, err)
	}

	var createdAt, updatedAt sql.NullTime
	err = executor.QueryRowContext(ctx, query, args...).Scan(
		&a.ID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: Create - execute insert: %v", ErrExecQuery, err)
	}

	a.CreatedAt = createdAt.Time
	a.UpdatedAt = updatedAt.Time

	return a, nil
}

// GetByID получает визит по ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(appointmentColumns...).
		From("appointments").
		Where(squirrel.Eq{"id": id})

	// Внутри транзакции блокируем строку - все переходы статусов идут через неё
	if dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - build select query: %v", ErrBuildQuery, err)
	}

	row := executor.QueryRowContext(ctx, query, args...)
	a, err := scanAppointmentRow(row)
	if err == sql.ErrNoRows {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetByID - scan appointment: %v", ErrScanRow, err)
	}

	return a, nil
}

// GetActiveByRequestAndProvider возвращает нетерминальный визит пары
// (service_request_id, provider_id), если он существует
func (r *Repository) GetActiveByRequestAndProvider(ctx context.Context, requestID, providerID int64) (*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select(appointmentColumns...).
		From("appointments").
		Where(squirrel.Eq{"service_request_id": requestID, "provider_id": providerID}).
		Where(squirrel.NotEq{"status": statusStrings(domain.TerminalStatuses)}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetActiveByRequestAndProvider - build select query: %v", ErrBuildQuery, err)
	}

	row := executor.QueryRowContext(ctx, query, args...)
	a, err := scanAppointmentRow(row)
	if err == sql.ErrNoRows {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: GetActiveByRequestAndProvider - scan appointment: %v", ErrScanRow, err)
	}

	return a, nil
}

// ListBlockingByProviderWindow получает визиты провайдера, занимающие календарь
// и пересекающиеся с [windowStart, windowEnd)
// Внутри транзакции добавляет FOR UPDATE - это точка разрешения гонки
// двух конкурентных бронирований на пересекающиеся окна
func (r *Repository) ListBlockingByProviderWindow(ctx context.Context, providerID int64, windowStart, windowEnd time.Time) ([]*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(appointmentColumns...).
		From("appointments").
		Where(squirrel.Eq{"provider_id": providerID}).
		Where(squirrel.NotEq{"status": statusStrings(domain.TerminalStatuses)}).
		// Полуинтервальное пересечение: startA < endB AND startB < endA
		Where(squirrel.Lt{"window_start_utc": windowEnd}).
		Where(squirrel.Gt{"window_end_utc": windowStart}).
		OrderBy("window_start_utc ASC")

	if dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListBlockingByProviderWindow - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListBlockingByProviderWindow - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanAppointments(rows)
}

// ListWithFilter получает визиты с гибкой фильтрацией (клиент/провайдер/период/статус)
func (r *Repository) ListWithFilter(ctx context.Context, filter domain.AppointmentListFilter) ([]*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(appointmentColumns...).
		From("appointments")

	if filter.ClientID != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"client_id": *filter.ClientID})
	}
	if filter.ProviderID != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"provider_id": *filter.ProviderID})
	}
	if filter.StartFromUTC != nil {
		selectBuilder = selectBuilder.Where(squirrel.GtOrEq{"window_start_utc": *filter.StartFromUTC})
	}
	if filter.StartToUTC != nil {
		selectBuilder = selectBuilder.Where(squirrel.Lt{"window_start_utc": *filter.StartToUTC})
	}
	if filter.Status != nil {
		selectBuilder = selectBuilder.Where(squirrel.Eq{"status": *filter.Status})
	} else if !filter.IncludeTerminal {
		selectBuilder = selectBuilder.Where(squirrel.NotEq{"status": statusStrings(domain.TerminalStatuses)})
	}

	selectBuilder = selectBuilder.OrderBy("window_start_utc DESC")

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListWithFilter - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListWithFilter - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanAppointments(rows)
}

// ListExpiredPending возвращает страницу pending визитов с истекшим дедлайном
// подтверждения. Используется batch job-ом Expire; блокирует строки FOR UPDATE
func (r *Repository) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(appointmentColumns...).
		From("appointments").
		Where(squirrel.Eq{"status": domain.StatusPendingProviderConfirmation}).
		Where(squirrel.Lt{"expires_at_utc": now}).
		OrderBy("expires_at_utc ASC").
		Limit(uint64(limit))

	if dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE SKIP LOCKED")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListExpiredPending - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListExpiredPending - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanAppointments(rows)
}

// ListUpcomingForRiskSweep возвращает страницу незавершенных визитов, окно
// которых начинается в [from, to). Используется фоновым пересчетом риска
// no-show; блокирует строки FOR UPDATE SKIP LOCKED
func (r *Repository) ListUpcomingForRiskSweep(ctx context.Context, from, to time.Time, limit int) ([]*domain.Appointment, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	selectBuilder := psqlbuilder.Select(appointmentColumns...).
		From("appointments").
		Where(squirrel.NotEq{"status": statusStrings(domain.TerminalStatuses)}).
		Where(squirrel.GtOrEq{"window_start_utc": from}).
		Where(squirrel.Lt{"window_start_utc": to}).
		OrderBy("window_start_utc ASC").
		Limit(uint64(limit))

	if dbmetrics.IsInTransaction(ctx) {
		selectBuilder = selectBuilder.Suffix("FOR UPDATE SKIP LOCKED")
	}

	query, args, err := selectBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListUpcomingForRiskSweep - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListUpcomingForRiskSweep - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanAppointments(rows)
}

// CountPriorIncidents подсчитывает прошлые отмены/no-show пары (client, provider)
// Используется как опциональный сигнал risk scorer-а
func (r *Repository) CountPriorIncidents(ctx context.Context, clientID, providerID int64) (int, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := psqlbuilder.Select("COUNT(*)").
		From("appointments").
		Where(squirrel.Eq{"client_id": clientID, "provider_id": providerID}).
		Where(squirrel.Eq{"status": []string{
			string(domain.StatusCancelledByClient),
			string(domain.StatusCancelledByProvider),
		}}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("%w: CountPriorIncidents - build select query: %v", ErrBuildQuery, err)
	}

	var count int
	if err := executor.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: CountPriorIncidents - scan count: %v", ErrScanRow, err)
	}

	return count, nil
}

// UpdateStatus обновляет статус визита
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status domain.AppointmentStatus) error {
	return r.execUpdate(ctx, "UpdateStatus", psqlbuilder.Update("appointments").
		Set("status", status).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}))
}

// Cancel отменяет визит с указанием причины
func (r *Repository) Cancel(ctx context.Context, id int64, status domain.AppointmentStatus, reason string) error {
	return r.execUpdate(ctx, "Cancel", psqlbuilder.Update("appointments").
		Set("status", status).
		Set("cancellation_reason", reason).
		Set("cancelled_at_utc", squirrel.Expr("NOW()")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}))
}

// SetRescheduleProposal сохраняет предложенное окно и переводит визит
// в статус переговоров о переносе
func (r *Repository) SetRescheduleProposal(
	ctx context.Context,
	id int64,
	status domain.AppointmentStatus,
	proposedStart, proposedEnd time.Time,
	requestedBy domain.ActorRole,
	reason *string,
) error {
	return r.execUpdate(ctx, "SetRescheduleProposal", psqlbuilder.Update("appointments").
		Set("status", status).
		Set("proposed_window_start_utc", proposedStart).
		Set("proposed_window_end_utc", proposedEnd).
		Set("reschedule_requested_by_role", requestedBy).
		Set("reschedule_request_reason", reason).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}))
}

// CommitReschedule фиксирует принятый перенос: предложенное окно становится
// основным, поля переговоров очищаются
func (r *Repository) CommitReschedule(ctx context.Context, id int64, newStart, newEnd time.Time) error {
	return r.execUpdate(ctx, "CommitReschedule", psqlbuilder.Update("appointments").
		Set("status", domain.StatusRescheduleConfirmed).
		Set("window_start_utc", newStart).
		Set("window_end_utc", newEnd).
		Set("proposed_window_start_utc", nil).
		Set("proposed_window_end_utc", nil).
		Set("reschedule_requested_by_role", nil).
		Set("reschedule_request_reason", nil).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}))
}

// ClearRescheduleProposal откатывает переговоры: возвращает визит в статус
// до запроса переноса и очищает поля переговоров
func (r *Repository) ClearRescheduleProposal(ctx context.Context, id int64, restoredStatus domain.AppointmentStatus) error {
	return r.execUpdate(ctx, "ClearRescheduleProposal", psqlbuilder.Update("appointments").
		Set("status", restoredStatus).
		Set("proposed_window_start_utc", nil).
		Set("proposed_window_end_utc", nil).
		Set("reschedule_requested_by_role", nil).
		Set("reschedule_request_reason", nil).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}))
}

// MarkArrived фиксирует прибытие провайдера (геолокация или manual reason)
func (r *Repository) MarkArrived(
	ctx context.Context,
	id int64,
	arrivedAt time.Time,
	latitude, longitude, accuracyMeters *float64,
	manualReason *string,
) error {
	return r.execUpdate(ctx, "MarkArrived", psqlbuilder.Update("appointments").
		Set("status", domain.StatusArrived).
		Set("arrived_at_utc", arrivedAt).
		Set("arrived_latitude", latitude).
		Set("arrived_longitude", longitude).
		Set("arrived_accuracy_meters", accuracyMeters).
		Set("arrived_manual_reason", manualReason).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}))
}

// StartExecution фиксирует начало работ
func (r *Repository) StartExecution(ctx context.Context, id int64, startedAt time.Time) error {
	return r.execUpdate(ctx, "StartExecution", psqlbuilder.Update("appointments").
		Set("status", domain.StatusInProgress).
		Set("started_at_utc", startedAt).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}))
}

// UpdateOperationalStatus обновляет операционный статус визита
// Статус бронирования не меняется
func (r *Repository) UpdateOperationalStatus(ctx context.Context, id int64, status string, reason *string, updatedAt time.Time) error {
	return r.execUpdate(ctx, "UpdateOperationalStatus", psqlbuilder.Update("appointments").
		Set("operational_status", status).
		Set("operational_status_updated_at_utc", updatedAt).
		Set("operational_status_reason", reason).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}))
}

// UpdateRisk сохраняет результат пересчета риска no-show
func (r *Repository) UpdateRisk(ctx context.Context, id int64, level domain.RiskLevel, score int, reasonsCsv string, calculatedAt time.Time) error {
	return r.execUpdate(ctx, "UpdateRisk", psqlbuilder.Update("appointments").
		Set("no_show_risk_level", level).
		Set("no_show_risk_score", score).
		Set("no_show_risk_reasons_csv", reasonsCsv).
		Set("no_show_risk_calculated_at_utc", calculatedAt).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}))
}

// execUpdate выполняет UPDATE с проверкой rows affected
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
		return ErrAppointmentNotFound
	}

	return nil
}

// statusStrings конвертирует список статусов в строки для squirrel
func statusStrings(statuses []domain.AppointmentStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// rowScanner общий интерфейс *sql.Row и *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanAppointmentRow сканирует одну строку в доменную модель
func scanAppointmentRow(row rowScanner) (*domain.Appointment, error) {
	var a domain.Appointment
	var (
		createdAt, updatedAt sql.NullTime
		role                 sql.NullString
		riskLevel            sql.NullString
	)

	err := row.Scan(
		&a.ID,
		&a.ServiceRequestID,
		&a.ClientID,
		&a.ProviderID,
		&a.WindowStartUTC,
		&a.WindowEndUTC,
		&a.Status,
		&a.ExpiresAtUTC,
		&a.Reason,
		&a.ProposedWindowStartUTC,
		&a.ProposedWindowEndUTC,
		&role,
		&a.RescheduleRequestReason,
		&a.ArrivedAtUTC,
		&a.ArrivedLatitude,
		&a.ArrivedLongitude,
		&a.ArrivedAccuracyMeters,
		&a.ArrivedManualReason,
		&a.StartedAtUTC,
		&a.OperationalStatus,
		&a.OperationalStatusUpdatedAtUTC,
		&a.OperationalStatusReason,
		&riskLevel,
		&a.NoShowRiskScore,
		&a.NoShowRiskReasonsCsv,
		&a.NoShowRiskCalculatedAtUTC,
		&a.CancellationReason,
		&a.CancelledAtUTC,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if role.Valid {
		r := domain.ActorRole(role.String)
		a.RescheduleRequestedByRole = &r
	}
	if riskLevel.Valid {
		l := domain.RiskLevel(riskLevel.String)
		a.NoShowRiskLevel = &l
	}
	a.CreatedAt = createdAt.Time
	a.UpdatedAt = updatedAt.Time

	return &a, nil
}

// scanAppointments сканирует результаты запроса в слайс визитов
func scanAppointments(rows *sql.Rows) ([]*domain.Appointment, error) {
	appointments := make([]*domain.Appointment, 0)

	for rows.Next() {
		a, err := scanAppointmentRow(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanAppointments - scan row: %v", ErrScanRow, err)
		}
		appointments = append(appointments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: scanAppointments - rows error: %v", ErrScanRow, err)
	}

	return appointments, nil
}
