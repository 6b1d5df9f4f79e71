package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zapisnik/internal/database"
	"zapisnik/internal/model"
)

const testToken = "secret"

func newTestServer(t *testing.T) (*httptest.Server, *database.DB) {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.EnsureDefaults(context.Background(), 100))

	srv := httptest.NewServer(NewServer(db, testToken, zerolog.Nop()).Handler())
	t.Cleanup(func() {
		srv.Close()
		db.Close()
	})
	return srv, db
}

func do(t *testing.T, method, url string, body any, token string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/api/services", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/api/services", nil, "wrong")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/api/services", nil, testToken)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServicesCRUD(t *testing.T) {
	srv, db := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/api/services", map[string]any{
		"name":             "Дизайн ногтей",
		"duration_minutes": 30,
		"price":            800,
	}, testToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created model.Service
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.True(t, created.Active)
	require.NotZero(t, created.ID)

	resp = do(t, http.MethodPut, srv.URL+"/api/services/"+itoa(created.ID), map[string]any{
		"name":             "Дизайн ногтей",
		"duration_minutes": 45,
		"price":            900,
	}, testToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	svc, err := db.GetService(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, 45, svc.DurationMinutes)

	resp = do(t, http.MethodDelete, srv.URL+"/api/services/"+itoa(created.ID), nil, testToken)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	svc, err = db.GetService(context.Background(), created.ID)
	require.NoError(t, err)
	assert.False(t, svc.Active, "delete deactivates instead of removing")
}

func TestServiceValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/api/services", map[string]any{
		"name":             "",
		"duration_minutes": 30,
	}, testToken)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, http.MethodPost, srv.URL+"/api/services", map[string]any{
		"name":             "Тест",
		"duration_minutes": 0,
	}, testToken)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestScheduleUpdateValidation(t *testing.T) {
	srv, db := newTestServer(t)

	resp := do(t, http.MethodPut, srv.URL+"/api/schedule", map[string]any{
		"weekday":    5,
		"start_time": "10:00",
		"end_time":   "16:00",
		"is_working": true,
	}, testToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	day, err := db.GetWorkDay(context.Background(), 5)
	require.NoError(t, err)
	assert.True(t, day.IsWorking)
	assert.Equal(t, "10:00", day.StartTime)

	for _, bad := range []map[string]any{
		{"weekday": 7, "start_time": "10:00", "end_time": "16:00", "is_working": true},
		{"weekday": 1, "start_time": "25:00", "end_time": "16:00", "is_working": true},
		{"weekday": 1, "start_time": "16:00", "end_time": "10:00", "is_working": true},
	} {
		resp := do(t, http.MethodPut, srv.URL+"/api/schedule", bad, testToken)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	}
}

func TestHolidays(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/api/holidays", map[string]any{
		"date":   "2026-03-08",
		"reason": "праздник",
	}, testToken)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Duplicate date is rejected by the unique index.
	resp = do(t, http.MethodPost, srv.URL+"/api/holidays", map[string]any{
		"date": "2026-03-08",
	}, testToken)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/api/holidays", nil, testToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var holidays []model.Holiday
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&holidays))
	require.Len(t, holidays, 1)

	resp = do(t, http.MethodDelete, srv.URL+"/api/holidays/"+itoa(holidays[0].ID), nil, testToken)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestSettingsRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodPut, srv.URL+"/api/settings", map[string]any{
		"planning_horizon_days": 14,
		"timezone":              "Europe/Moscow",
	}, testToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodGet, srv.URL+"/api/settings", nil, testToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var settings model.Settings
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&settings))
	assert.Equal(t, 14, settings.PlanningHorizonDays)

	resp = do(t, http.MethodPut, srv.URL+"/api/settings", map[string]any{
		"planning_horizon_days": 500,
		"timezone":              "Europe/Moscow",
	}, testToken)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExportContentType(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodGet, srv.URL+"/api/export", nil, testToken)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		resp.Header.Get("Content-Type"))
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
