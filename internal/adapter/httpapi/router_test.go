package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildingops/internal/maintenance"
	"buildingops/internal/shared"
)

type stubService struct {
	createFn func(ctx context.Context, tenant string, in maintenance.CreateInput) (*maintenance.Schedule, error)
	updateFn func(ctx context.Context, tenant string, id uuid.UUID, in maintenance.UpdateInput) (*maintenance.Schedule, error)
	getFn    func(ctx context.Context, tenant string, id uuid.UUID) (*maintenance.Schedule, error)
	searchFn func(ctx context.Context, tenant string, f maintenance.ScheduleFilter) ([]*maintenance.Schedule, error)
	deleteFn func(ctx context.Context, tenant string, id uuid.UUID) error
	histFn   func(ctx context.Context, tenant string, id uuid.UUID) ([]*maintenance.History, error)
}

func (s *stubService) CreateSchedule(ctx context.Context, tenant string, in maintenance.CreateInput) (*maintenance.Schedule, error) {
	return s.createFn(ctx, tenant, in)
}

func (s *stubService) UpdateSchedule(ctx context.Context, tenant string, id uuid.UUID, in maintenance.UpdateInput) (*maintenance.Schedule, error) {
	return s.updateFn(ctx, tenant, id, in)
}

func (s *stubService) GetSchedule(ctx context.Context, tenant string, id uuid.UUID) (*maintenance.Schedule, error) {
	return s.getFn(ctx, tenant, id)
}

func (s *stubService) SearchSchedules(ctx context.Context, tenant string, f maintenance.ScheduleFilter) ([]*maintenance.Schedule, error) {
	return s.searchFn(ctx, tenant, f)
}

func (s *stubService) DeleteSchedule(ctx context.Context, tenant string, id uuid.UUID) error {
	return s.deleteFn(ctx, tenant, id)
}

func (s *stubService) HistoriesBySchedule(ctx context.Context, tenant string, id uuid.UUID) ([]*maintenance.History, error) {
	return s.histFn(ctx, tenant, id)
}

func (s *stubService) HistoriesByAsset(ctx context.Context, tenant string, id uuid.UUID) ([]*maintenance.History, error) {
	return s.histFn(ctx, tenant, id)
}

func newTestRouter(svc MaintenanceService) *gin.Engine {
	return NewRouter(Config{
		Service: svc,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func tenantHeaders() map[string]string {
	return map[string]string{"X-Building-Schema": "tenant_a"}
}

func sampleSchedule() *maintenance.Schedule {
	return &maintenance.Schedule{
		ID:      uuid.New(),
		AssetID: uuid.New(),
		Window: maintenance.Window{
			StartDate: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2026, 3, 18, 0, 0, 0, 0, time.UTC),
		},
		Status:       maintenance.StatusScheduled,
		ReminderDays: 3,
		CreatedAt:    time.Now().UTC(),
	}
}

func TestHealthz(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		r := NewRouter(Config{
			Service: &stubService{},
			Health:  func(context.Context) error { return nil },
			Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		})
		w := doJSON(t, r, http.MethodGet, "/healthz", nil, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("down", func(t *testing.T) {
		r := NewRouter(Config{
			Service: &stubService{},
			Health:  func(context.Context) error { return errors.New("db gone") },
			Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		})
		w := doJSON(t, r, http.MethodGet, "/healthz", nil, nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestTenantHeaderRequired(t *testing.T) {
	r := newTestRouter(&stubService{})

	tests := []struct {
		name    string
		headers map[string]string
	}{
		{name: "missing", headers: nil},
		{name: "uppercase", headers: map[string]string{"X-Building-Schema": "Tenant_A"}},
		{name: "injection", headers: map[string]string{"X-Building-Schema": "a; drop table"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodGet, "/api/v1/schedules", nil, tt.headers)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestInvalidActorHeader(t *testing.T) {
	r := newTestRouter(&stubService{})
	headers := tenantHeaders()
	headers["X-Actor-ID"] = "not-a-uuid"
	w := doJSON(t, r, http.MethodGet, "/api/v1/schedules", nil, headers)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateSchedule(t *testing.T) {
	actor := uuid.New()
	sched := sampleSchedule()

	var gotTenant string
	var gotInput maintenance.CreateInput
	svc := &stubService{
		createFn: func(_ context.Context, tenant string, in maintenance.CreateInput) (*maintenance.Schedule, error) {
			gotTenant = tenant
			gotInput = in
			return sched, nil
		},
	}
	r := newTestRouter(svc)

	headers := tenantHeaders()
	headers["X-Actor-ID"] = actor.String()
	body := map[string]any{
		"assetId":        sched.AssetID.String(),
		"startDate":      "2026-03-15",
		"endDate":        "2026-03-18",
		"startTime":      "09:00",
		"endTime":        "12:00",
		"description":    "Quarterly service",
		"recurrenceType": "MONTHLY",
	}
	w := doJSON(t, r, http.MethodPost, "/api/v1/schedules", body, headers)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "tenant_a", gotTenant)
	assert.Equal(t, sched.AssetID, gotInput.AssetID)
	assert.True(t, gotInput.StartDate.Equal(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)))
	require.NotNil(t, gotInput.StartTime)
	assert.Equal(t, 9, gotInput.StartTime.Hour)
	require.NotNil(t, gotInput.CreatedBy)
	assert.Equal(t, actor, *gotInput.CreatedBy)

	var resp scheduleResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, sched.ID.String(), resp.ID)
	assert.Equal(t, "2026-03-15", resp.StartDate)
}

func TestCreateScheduleValidation(t *testing.T) {
	r := newTestRouter(&stubService{
		createFn: func(context.Context, string, maintenance.CreateInput) (*maintenance.Schedule, error) {
			t.Fatal("service must not be reached")
			return nil, nil
		},
	})

	tests := []struct {
		name string
		body map[string]any
	}{
		{name: "missing asset", body: map[string]any{"startDate": "2026-03-15", "endDate": "2026-03-18"}},
		{name: "bad date", body: map[string]any{"assetId": uuid.NewString(), "startDate": "15/03/2026", "endDate": "2026-03-18"}},
		{name: "bad recurrence", body: map[string]any{"assetId": uuid.NewString(), "startDate": "2026-03-15", "endDate": "2026-03-18", "recurrenceType": "FORTNIGHTLY"}},
		{name: "bad time", body: map[string]any{"assetId": uuid.NewString(), "startDate": "2026-03-15", "endDate": "2026-03-18", "startTime": "25:00"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/api/v1/schedules", tt.body, tenantHeaders())
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "not found", err: shared.MarkKind(errors.New("no such schedule"), shared.KindNotFound), want: http.StatusNotFound},
		{name: "conflict", err: &maintenance.ConflictError{}, want: http.StatusConflict},
		{name: "validation", err: shared.MarkKind(errors.New("bad window"), shared.KindValidation), want: http.StatusBadRequest},
		{name: "internal masked", err: errors.New("pq: connection reset"), want: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(&stubService{
				getFn: func(context.Context, string, uuid.UUID) (*maintenance.Schedule, error) {
					return nil, tt.err
				},
			})
			w := doJSON(t, r, http.MethodGet, "/api/v1/schedules/"+uuid.NewString(), nil, tenantHeaders())
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusInternalServerError {
				assert.NotContains(t, w.Body.String(), "connection reset")
			}
		})
	}
}

func TestUpdateSchedule(t *testing.T) {
	sched := sampleSchedule()
	sched.Status = maintenance.StatusDone

	var gotInput maintenance.UpdateInput
	r := newTestRouter(&stubService{
		updateFn: func(_ context.Context, _ string, id uuid.UUID, in maintenance.UpdateInput) (*maintenance.Schedule, error) {
			require.Equal(t, sched.ID, id)
			gotInput = in
			return sched, nil
		},
	})

	body := map[string]any{
		"status":          "DONE",
		"actualEnd":       "2026-03-18T11:30:00Z",
		"completionNotes": "replaced filter",
	}
	w := doJSON(t, r, http.MethodPatch, "/api/v1/schedules/"+sched.ID.String(), body, tenantHeaders())

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotNil(t, gotInput.Status)
	assert.Equal(t, maintenance.StatusDone, *gotInput.Status)
	require.NotNil(t, gotInput.ActualEnd)
	assert.True(t, gotInput.ActualEnd.Equal(time.Date(2026, 3, 18, 11, 30, 0, 0, time.UTC)))
	assert.Equal(t, "replaced filter", gotInput.CompletionNotes)
}

func TestUpdateScheduleBadStatus(t *testing.T) {
	r := newTestRouter(&stubService{
		updateFn: func(context.Context, string, uuid.UUID, maintenance.UpdateInput) (*maintenance.Schedule, error) {
			t.Fatal("service must not be reached")
			return nil, nil
		},
	})
	body := map[string]any{"status": "PAUSED"}
	w := doJSON(t, r, http.MethodPatch, "/api/v1/schedules/"+uuid.NewString(), body, tenantHeaders())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSearchSchedules(t *testing.T) {
	assetID := uuid.New()
	var gotFilter maintenance.ScheduleFilter
	r := newTestRouter(&stubService{
		searchFn: func(_ context.Context, _ string, f maintenance.ScheduleFilter) ([]*maintenance.Schedule, error) {
			gotFilter = f
			return []*maintenance.Schedule{sampleSchedule()}, nil
		},
	})

	path := "/api/v1/schedules?q=pool&assetId=" + assetID.String() + "&status=scheduled&from=2026-03-01&to=2026-03-31"
	w := doJSON(t, r, http.MethodGet, path, nil, tenantHeaders())

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "pool", gotFilter.Term)
	require.NotNil(t, gotFilter.AssetID)
	assert.Equal(t, assetID, *gotFilter.AssetID)
	assert.Equal(t, maintenance.StatusScheduled, gotFilter.Status)
	require.NotNil(t, gotFilter.StartDateFrom)
	assert.True(t, gotFilter.StartDateFrom.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
}

func TestDeleteSchedule(t *testing.T) {
	id := uuid.New()
	var gotID uuid.UUID
	r := newTestRouter(&stubService{
		deleteFn: func(_ context.Context, _ string, id uuid.UUID) error {
			gotID = id
			return nil
		},
	})
	w := doJSON(t, r, http.MethodDelete, "/api/v1/schedules/"+id.String(), nil, tenantHeaders())
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, id, gotID)
}

func TestHistoryEndpoints(t *testing.T) {
	rec := &maintenance.History{
		ID:               uuid.New(),
		AssetID:          uuid.New(),
		ScheduleID:       uuid.New(),
		ActionDate:       time.Now().UTC(),
		Action:           "Completed maintenance: Rooftop Pool",
		CompletionStatus: maintenance.CompletionOnTime,
	}
	r := newTestRouter(&stubService{
		histFn: func(context.Context, string, uuid.UUID) ([]*maintenance.History, error) {
			return []*maintenance.History{rec}, nil
		},
	})

	for _, path := range []string{
		"/api/v1/schedules/" + rec.ScheduleID.String() + "/history",
		"/api/v1/assets/" + rec.AssetID.String() + "/history",
	} {
		w := doJSON(t, r, http.MethodGet, path, nil, tenantHeaders())
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Contains(t, w.Body.String(), rec.ID.String())
		assert.Contains(t, w.Body.String(), "ON_TIME")
	}
}

func TestMalformedPathID(t *testing.T) {
	r := newTestRouter(&stubService{})
	w := doJSON(t, r, http.MethodGet, "/api/v1/schedules/xyz", nil, tenantHeaders())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
