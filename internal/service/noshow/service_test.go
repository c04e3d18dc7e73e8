package noshow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/internal/domain"
	queueRepo "github.com/m04kA/SMC-AppointmentService/internal/infra/storage/noshowqueue"
	"github.com/m04kA/SMC-AppointmentService/internal/integrations/requestservice"
)

type nopLogger struct{}

func (nopLogger) Info(format string, v ...interface{})  {}
func (nopLogger) Warn(format string, v ...interface{})  {}
func (nopLogger) Error(format string, v ...interface{}) {}

type apptRepoStub struct {
	priorCount  int
	riskUpdates int
	lastLevel   domain.RiskLevel
	lastScore   int
	lastReasons string
}

func (s *apptRepoStub) UpdateRisk(_ context.Context, _ int64, level domain.RiskLevel, score int, reasonsCsv string, _ time.Time) error {
	s.riskUpdates++
	s.lastLevel = level
	s.lastScore = score
	s.lastReasons = reasonsCsv
	return nil
}

func (s *apptRepoStub) CountPriorIncidents(_ context.Context, _, _ int64) (int, error) {
	return s.priorCount, nil
}

type requestClientStub struct {
	request *requestservice.ServiceRequest
	err     error
}

func (s *requestClientStub) GetServiceRequest(_ context.Context, _ int64) (*requestservice.ServiceRequest, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.request, nil
}

func defaultRequestClient() *requestClientStub {
	return &requestClientStub{request: &requestservice.ServiceRequest{
		ID:       7,
		ClientID: 100,
		Status:   "in_progress",
		City:     "Москва",
		Category: "plumbing",
	}}
}

// queueRepoFake хранит элементы в памяти, эмулируя уникальность
// открытого элемента на визит
type queueRepoFake struct {
	nextID int64
	items  map[int64]*domain.NoShowQueueItem
}

func newQueueRepoFake() *queueRepoFake {
	return &queueRepoFake{nextID: 1, items: map[int64]*domain.NoShowQueueItem{}}
}

func (f *queueRepoFake) GetOpenByAppointmentID(_ context.Context, appointmentID int64) (*domain.NoShowQueueItem, error) {
	for _, item := range f.items {
		if item.ServiceAppointmentID == appointmentID && item.IsOpen() {
			clone := *item
			return &clone, nil
		}
	}
	return nil, queueRepo.ErrItemNotFound
}

func (f *queueRepoFake) GetByID(_ context.Context, id int64) (*domain.NoShowQueueItem, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, queueRepo.ErrItemNotFound
	}
	clone := *item
	return &clone, nil
}

func (f *queueRepoFake) Insert(_ context.Context, item *domain.NoShowQueueItem) (*domain.NoShowQueueItem, error) {
	item.ID = f.nextID
	f.nextID++
	stored := *item
	f.items[item.ID] = &stored
	return item, nil
}

func (f *queueRepoFake) Refresh(_ context.Context, id int64, level domain.RiskLevel, score int, reasonsCsv string, detectedAt time.Time) error {
	item, ok := f.items[id]
	if !ok {
		return queueRepo.ErrItemNotFound
	}
	item.RiskLevel = level
	item.Score = score
	item.ReasonsCsv = reasonsCsv
	item.LastDetectedAtUTC = detectedAt
	return nil
}

func (f *queueRepoFake) UpdateStatus(_ context.Context, id int64, status domain.NoShowQueueItemStatus, resolutionNote *string, resolvedAt *time.Time) error {
	item, ok := f.items[id]
	if !ok {
		return queueRepo.ErrItemNotFound
	}
	item.Status = status
	item.ResolutionNote = resolutionNote
	item.ResolvedAtUTC = resolvedAt
	return nil
}

func (f *queueRepoFake) ResolveOpenByAppointmentID(_ context.Context, appointmentID int64, note string, resolvedAt time.Time) error {
	for _, item := range f.items {
		if item.ServiceAppointmentID == appointmentID && item.IsOpen() {
			item.Status = domain.QueueItemResolved
			item.ResolutionNote = &note
			item.ResolvedAtUTC = &resolvedAt
		}
	}
	return nil
}

func (f *queueRepoFake) ListWithFilter(_ context.Context, filter domain.NoShowQueueFilter) ([]*domain.NoShowQueueItem, error) {
	out := make([]*domain.NoShowQueueItem, 0)
	for _, item := range f.items {
		if filter.Status != nil && item.Status != *filter.Status {
			continue
		}
		if filter.RiskLevel != nil && item.RiskLevel != *filter.RiskLevel {
			continue
		}
		if filter.City != nil && item.City != *filter.City {
			continue
		}
		if filter.Category != nil && item.Category != *filter.Category {
			continue
		}
		clone := *item
		out = append(out, &clone)
	}
	return out, nil
}

func (f *queueRepoFake) openCount(appointmentID int64) int {
	count := 0
	for _, item := range f.items {
		if item.ServiceAppointmentID == appointmentID && item.IsOpen() {
			count++
		}
	}
	return count
}

func riskyAppointment(windowStart time.Time) *domain.Appointment {
	return &domain.Appointment{
		ID:               42,
		ServiceRequestID: 7,
		ClientID:         100,
		ProviderID:       200,
		WindowStartUTC:   windowStart,
		WindowEndUTC:     windowStart.Add(time.Hour),
		Status:           domain.StatusPendingProviderConfirmation,
	}
}

func TestRecalculate_MediumRiskOpensQueueItem(t *testing.T) {
	apptRepo := &apptRepoStub{}
	queue := newQueueRepoFake()
	svc := NewService(apptRepo, queue, defaultRequestClient(), defaultRiskConfig(), nopLogger{})

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	// pending за час до окна: провайдер не подтвержден, окно в пределах 2ч
	result, err := svc.Recalculate(context.Background(), riskyAppointment(now.Add(time.Hour)), now)
	require.NoError(t, err)

	assert.Equal(t, domain.RiskMedium, result.Level)
	assert.Equal(t, 55, result.Score)
	assert.Equal(t, 1, apptRepo.riskUpdates)
	assert.Equal(t, 1, queue.openCount(42))
}

func TestRecalculate_LowRiskDoesNotTouchQueue(t *testing.T) {
	apptRepo := &apptRepoStub{}
	queue := newQueueRepoFake()
	svc := NewService(apptRepo, queue, defaultRequestClient(), defaultRiskConfig(), nopLogger{})

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	appt := riskyAppointment(now.Add(48 * time.Hour))
	appt.Status = domain.StatusConfirmed

	result, err := svc.Recalculate(context.Background(), appt, now)
	require.NoError(t, err)

	assert.Equal(t, domain.RiskLow, result.Level)
	assert.Equal(t, 1, apptRepo.riskUpdates)
	assert.Equal(t, 0, queue.openCount(42))
}

func TestRecalculate_RepeatedRunsRefreshSingleItem(t *testing.T) {
	apptRepo := &apptRepoStub{}
	queue := newQueueRepoFake()
	svc := NewService(apptRepo, queue, defaultRequestClient(), defaultRiskConfig(), nopLogger{})

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	appt := riskyAppointment(now.Add(time.Hour))

	_, err := svc.Recalculate(context.Background(), appt, now)
	require.NoError(t, err)
	later := now.Add(30 * time.Minute)
	_, err = svc.Recalculate(context.Background(), appt, later)
	require.NoError(t, err)

	require.Equal(t, 1, queue.openCount(42), "повторный пересчет не должен плодить элементы")

	item, err := queue.GetOpenByAppointmentID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, later, item.LastDetectedAtUTC)
}

func TestRecalculate_DenormalizesRequestAttributes(t *testing.T) {
	apptRepo := &apptRepoStub{}
	queue := newQueueRepoFake()
	svc := NewService(apptRepo, queue, defaultRequestClient(), defaultRiskConfig(), nopLogger{})

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	_, err := svc.Recalculate(context.Background(), riskyAppointment(now.Add(time.Hour)), now)
	require.NoError(t, err)

	item, err := queue.GetOpenByAppointmentID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "Москва", item.City)
	assert.Equal(t, "plumbing", item.Category)
}

func TestRecalculate_RequestClientFailureLeavesAttributesEmpty(t *testing.T) {
	apptRepo := &apptRepoStub{}
	queue := newQueueRepoFake()
	client := &requestClientStub{err: requestservice.ErrRequestNotFound}
	svc := NewService(apptRepo, queue, client, defaultRiskConfig(), nopLogger{})

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	// Недоступность RequestService не блокирует постановку в очередь
	_, err := svc.Recalculate(context.Background(), riskyAppointment(now.Add(time.Hour)), now)
	require.NoError(t, err)

	item, err := queue.GetOpenByAppointmentID(context.Background(), 42)
	require.NoError(t, err)
	assert.Empty(t, item.City)
	assert.Empty(t, item.Category)
}

func TestListQueue_FiltersByCityAndCategory(t *testing.T) {
	queue := newQueueRepoFake()
	svc := NewService(&apptRepoStub{}, queue, defaultRequestClient(), defaultRiskConfig(), nopLogger{})

	seed := []*domain.NoShowQueueItem{
		{ServiceAppointmentID: 1, RiskLevel: domain.RiskHigh, Status: domain.QueueItemOpen, City: "Москва", Category: "plumbing"},
		{ServiceAppointmentID: 2, RiskLevel: domain.RiskMedium, Status: domain.QueueItemOpen, City: "Казань", Category: "plumbing"},
		{ServiceAppointmentID: 3, RiskLevel: domain.RiskMedium, Status: domain.QueueItemOpen, City: "Москва", Category: "electrics"},
	}
	for _, item := range seed {
		_, err := queue.Insert(context.Background(), item)
		require.NoError(t, err)
	}

	city := "Москва"
	items, err := svc.ListQueue(context.Background(), domain.NoShowQueueFilter{City: &city})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	category := "plumbing"
	items, err = svc.ListQueue(context.Background(), domain.NoShowQueueFilter{City: &city, Category: &category})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(1), items[0].ServiceAppointmentID)
}

func TestResolveForAppointment_ClosesOpenItem(t *testing.T) {
	apptRepo := &apptRepoStub{}
	queue := newQueueRepoFake()
	svc := NewService(apptRepo, queue, defaultRequestClient(), defaultRiskConfig(), nopLogger{})

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	_, err := svc.Recalculate(context.Background(), riskyAppointment(now.Add(time.Hour)), now)
	require.NoError(t, err)

	err = svc.ResolveForAppointment(context.Background(), 42, "appointment cancelled", now)
	require.NoError(t, err)
	assert.Equal(t, 0, queue.openCount(42))

	// Повторное закрытие - no-op
	err = svc.ResolveForAppointment(context.Background(), 42, "appointment cancelled", now)
	require.NoError(t, err)
}

func TestStartWorking_TransitionsAndGuards(t *testing.T) {
	apptRepo := &apptRepoStub{}
	queue := newQueueRepoFake()
	svc := NewService(apptRepo, queue, defaultRequestClient(), defaultRiskConfig(), nopLogger{})

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	_, err := svc.Recalculate(context.Background(), riskyAppointment(now.Add(time.Hour)), now)
	require.NoError(t, err)

	open, err := queue.GetOpenByAppointmentID(context.Background(), 42)
	require.NoError(t, err)

	item, err := svc.StartWorking(context.Background(), open.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueItemInProgress, item.Status)

	resolved, err := svc.Resolve(context.Background(), open.ID, "client reached by phone", now)
	require.NoError(t, err)
	assert.Equal(t, domain.QueueItemResolved, resolved.Status)
	require.NotNil(t, resolved.ResolutionNote)
	assert.Equal(t, "client reached by phone", *resolved.ResolutionNote)

	_, err = svc.StartWorking(context.Background(), open.ID)
	require.ErrorIs(t, err, ErrItemResolved)

	_, err = svc.Resolve(context.Background(), open.ID, "again", now)
	require.ErrorIs(t, err, ErrItemResolved)
}

func TestGetQueueItem_NotFound(t *testing.T) {
	svc := NewService(&apptRepoStub{}, newQueueRepoFake(), defaultRequestClient(), defaultRiskConfig(), nopLogger{})

	_, err := svc.GetQueueItem(context.Background(), 999)
	require.ErrorIs(t, err, ErrItemNotFound)
}
