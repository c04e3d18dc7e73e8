package list_noshow_queue

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-AppointmentService/internal/api/middleware"
	"github.com/m04kA/SMC-AppointmentService/internal/domain"
)

type nopLogger struct{}

func (nopLogger) Info(format string, v ...interface{})  {}
func (nopLogger) Warn(format string, v ...interface{})  {}
func (nopLogger) Error(format string, v ...interface{}) {}

type noShowServiceStub struct {
	gotFilter domain.NoShowQueueFilter
	items     []*domain.NoShowQueueItem
}

func (s *noShowServiceStub) ListQueue(_ context.Context, filter domain.NoShowQueueFilter) ([]*domain.NoShowQueueItem, error) {
	s.gotFilter = filter
	return s.items, nil
}

func doRequest(t *testing.T, svc *noShowServiceStub, url, role string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, url, nil)
	req.Header.Set("X-User-ID", "55")
	req.Header.Set("X-User-Role", role)

	rec := httptest.NewRecorder()
	handler := NewHandler(svc, nopLogger{})
	middleware.Auth(http.HandlerFunc(handler.Handle)).ServeHTTP(rec, req)
	return rec
}

func TestHandle_ParsesFullFilter(t *testing.T) {
	svc := &noShowServiceStub{}

	rec := doRequest(t, svc,
		"/api/v1/noshow-queue?status=open&riskLevel=high&city=%D0%9C%D0%BE%D1%81%D0%BA%D0%B2%D0%B0&category=plumbing&limit=10&offset=20",
		"operator")

	require.Equal(t, http.StatusOK, rec.Code)

	require.NotNil(t, svc.gotFilter.Status)
	assert.Equal(t, domain.QueueItemOpen, *svc.gotFilter.Status)
	require.NotNil(t, svc.gotFilter.RiskLevel)
	assert.Equal(t, domain.RiskHigh, *svc.gotFilter.RiskLevel)
	require.NotNil(t, svc.gotFilter.City)
	assert.Equal(t, "Москва", *svc.gotFilter.City)
	require.NotNil(t, svc.gotFilter.Category)
	assert.Equal(t, "plumbing", *svc.gotFilter.Category)
	assert.Equal(t, 10, svc.gotFilter.Limit)
	assert.Equal(t, 20, svc.gotFilter.Offset)
}

func TestHandle_EmptyFilterPassesNilFields(t *testing.T) {
	svc := &noShowServiceStub{items: []*domain.NoShowQueueItem{{
		ID:                   1,
		ServiceAppointmentID: 42,
		RiskLevel:            domain.RiskMedium,
		Status:               domain.QueueItemOpen,
		City:                 "Казань",
		Category:             "electrics",
		FirstDetectedAtUTC:   time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
		LastDetectedAtUTC:    time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}}}

	rec := doRequest(t, svc, "/api/v1/noshow-queue", "operator")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, svc.gotFilter.Status)
	assert.Nil(t, svc.gotFilter.RiskLevel)
	assert.Nil(t, svc.gotFilter.City)
	assert.Nil(t, svc.gotFilter.Category)
	assert.Contains(t, rec.Body.String(), `"city":"Казань"`)
	assert.Contains(t, rec.Body.String(), `"category":"electrics"`)
}

func TestHandle_ClientRoleForbidden(t *testing.T) {
	svc := &noShowServiceStub{}

	rec := doRequest(t, svc, "/api/v1/noshow-queue", "client")

	require.Equal(t, http.StatusForbidden, rec.Code)
}
