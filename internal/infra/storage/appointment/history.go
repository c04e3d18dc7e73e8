package appointment

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	"github.com/m04kA/SMC-AppointmentService/pkg/dbmetrics"
	"github.com/m04kA/SMC-AppointmentService/pkg/psqlbuilder"
)

// AppendHistory вставляет строку аудита перехода
// Таблица append-only, строки никогда не изменяются
func (r *Repository) AppendHistory(ctx context.Context, h *domain.AppointmentHistory) error {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	metadata, err := h.Metadata.MarshalJSONB()
	if err != nil {
		return fmt.Errorf("%w: AppendHistory - marshal metadata: %v", ErrBuildQuery, err)
	}

	query, args, err := psqlbuilder.Insert("appointment_history").
		Columns(
			"appointment_id",
			"previous_status",
			"new_status",
			"actor_user_id",
			"actor_role",
			"reason",
			"previous_operational_status",
			"new_operational_status",
			"metadata",
			"occurred_at_utc",
		).
		Values(
			h.AppointmentID,
			h.PreviousStatus,
			h.NewStatus,
			h.ActorUserID,
			h.ActorRole,
			h.Reason,
			h.PreviousOperationalStatus,
			h.NewOperationalStatus,
			metadata,
			h.OccurredAtUTC,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: AppendHistory - build insert query: %v", ErrBuildQuery, err)
	}

	if err := executor.QueryRowContext(ctx, query, args...).Scan(&h.ID); err != nil {
		return fmt.Errorf("%w: AppendHistory - execute insert: %v", ErrExecQuery, err)
	}

	return nil
}

// ListHistory возвращает полный аудит визита в хронологическом порядке
func (r *Repository) ListHistory(ctx context.Context, appointmentID int64) ([]*domain.AppointmentHistory, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := historySelect().
		Where(squirrel.Eq{"appointment_id": appointmentID}).
		OrderBy("occurred_at_utc ASC, id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListHistory - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListHistory - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanHistory(rows)
}

// GetLastTransitionInto возвращает последнюю строку аудита с переходом
// в указанный статус. Используется для восстановления статуса до
// переговоров о переносе при отклонении предложения
func (r *Repository) GetLastTransitionInto(ctx context.Context, appointmentID int64, status domain.AppointmentStatus) (*domain.AppointmentHistory, error) {
	executor := dbmetrics.GetExecutor(ctx, r.db)

	query, args, err := historySelect().
		Where(squirrel.Eq{"appointment_id": appointmentID, "new_status": status}).
		OrderBy("occurred_at_utc DESC, id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: GetLastTransitionInto - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: GetLastTransitionInto - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	items, err := scanHistory(rows)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrAppointmentNotFound
	}

	return items[0], nil
}

func historySelect() squirrel.SelectBuilder {
	return psqlbuilder.Select(
		"id",
		"appointment_id",
		"previous_status",
		"new_status",
		"actor_user_id",
		"actor_role",
		"reason",
		"previous_operational_status",
		"new_operational_status",
		"metadata",
		"occurred_at_utc",
	).From("appointment_history")
}

// scanHistory сканирует результаты запроса в слайс строк аудита
func scanHistory(rows *sql.Rows) ([]*domain.AppointmentHistory, error) {
	items := make([]*domain.AppointmentHistory, 0)

	for rows.Next() {
		var h domain.AppointmentHistory
		var (
			prevStatus sql.NullString
			rawMeta    []byte
		)

		err := rows.Scan(
			&h.ID,
			&h.AppointmentID,
			&prevStatus,
			&h.NewStatus,
			&h.ActorUserID,
			&h.ActorRole,
			&h.Reason,
			&h.PreviousOperationalStatus,
			&h.NewOperationalStatus,
			&rawMeta,
			&h.OccurredAtUTC,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: scanHistory - scan row: %v", ErrScanRow, err)
		}

		if prevStatus.Valid {
			s := domain.AppointmentStatus(prevStatus.String)
			h.PreviousStatus = &s
		}

		meta, err := domain.UnmarshalHistoryMetadata(rawMeta)
		if err != nil {
			return nil, fmt.Errorf("%w: scanHistory - unmarshal metadata: %v", ErrScanRow, err)
		}
		h.Metadata = meta

		items = append(items, &h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: scanHistory - rows error: %v", ErrScanRow, err)
	}

	return items, nil
}
