package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhan0505/student-management-system/internal/analysis"
	"github.com/mhan0505/student-management-system/internal/repository"
	"github.com/mhan0505/student-management-system/internal/session"
	"github.com/mhan0505/student-management-system/internal/student"
)

func f64(v float64) *float64 { return &v }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx := context.Background()
	repo, err := repository.Open(ctx, "sqlite", ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	require.NoError(t, repo.Migrate(ctx))

	dob := time.Date(2004, 5, 1, 0, 0, 0, 0, time.UTC)
	_, err = repo.InsertMany(ctx, []*student.Student{
		{ID: "S1", FullName: "An", DOB: &dob, Gender: "M", Major: "CS", GPA: f64(3.6), Credits: f64(90), HeightCM: f64(170), WeightKG: f64(65)},
		{ID: "S2", FullName: "Binh", Gender: "F", Major: "CS", GPA: f64(3.1), Credits: f64(85), HeightCM: f64(160), WeightKG: f64(52)},
		{ID: "S3", FullName: "Chi", Gender: "F", Major: "CS", GPA: f64(2.8), Credits: f64(80), HeightCM: f64(162), WeightKG: f64(54)},
		{ID: "S4", FullName: "Dung", Gender: "M", Major: "Math", GPA: f64(3.3), Credits: f64(70), HeightCM: f64(175), WeightKG: f64(140)},
		{ID: "S5", FullName: "Em", Gender: "M", Major: "Math", GPA: f64(2.5), Credits: f64(60), HeightCM: f64(168), WeightKG: f64(60)},
	})
	require.NoError(t, err)

	sess := session.New(repo, 2, nil)
	srv := httptest.NewServer(New(sess, analysis.DefaultOptions(), nil).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		var raw any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
		if m, ok := raw.(map[string]any); ok {
			body = m
		} else {
			body = map[string]any{"items": raw}
		}
	}
	return resp, body
}

func TestHealthAndStudents(t *testing.T) {
	srv := newTestServer(t)

	resp, body := do(t, http.MethodGet, srv.URL+"/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])

	resp, body = do(t, http.MethodGet, srv.URL+"/api/students")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	rows, ok := body["rows"].([]any)
	require.True(t, ok, "dataset rows: %v", body)
	assert.Len(t, rows, 5)
}

func TestReport(t *testing.T) {
	srv := newTestServer(t)

	resp, body := do(t, http.MethodGet, srv.URL+"/api/report?top_k=1&multiplier=1.5")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 5, body["input_rows"])
	top := body["top_k"].(map[string]any)["rows"].([]any)
	require.Len(t, top, 2, "one student per major")
	assert.Equal(t, "S1", top[0].(map[string]any)["student_id"])

	resp, body = do(t, http.MethodGet, srv.URL+"/api/report?treatment=remove")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	enriched := body["enriched"].(map[string]any)["rows"].([]any)
	assert.Len(t, enriched, 4, "the heavy student is removed")

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/report?format=markdown")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain"))

	for _, q := range []string{"multiplier=-1", "multiplier=abc", "top_k=0", "treatment=drop"} {
		resp, body = do(t, http.MethodGet, srv.URL+"/api/report?"+q)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
		assert.NotEmpty(t, body["error"], q)
	}
}

func TestOutliers(t *testing.T) {
	srv := newTestServer(t)

	resp, body := do(t, http.MethodGet, srv.URL+"/api/outliers/bmi")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{float64(3)}, body["indexes"])

	resp, body = do(t, http.MethodGet, srv.URL+"/api/outliers/shoe_size")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "shoe_size", body["column"])
	assert.Equal(t, "outliers", body["op"])
}

func TestDeleteAndUndo(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := do(t, http.MethodDelete, srv.URL+"/api/students/S2")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = do(t, http.MethodDelete, srv.URL+"/api/students/S2")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body := do(t, http.MethodGet, srv.URL+"/api/undo")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["items"], 1)

	resp, body = do(t, http.MethodPost, srv.URL+"/api/undo/S2")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Binh", body["student"].(map[string]any)["full_name"])

	resp, _ = do(t, http.MethodPost, srv.URL+"/api/undo/S2")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = do(t, http.MethodGet, srv.URL+"/api/students")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["rows"], 5)
}

func TestMetrics(t *testing.T) {
	srv := newTestServer(t)
	do(t, http.MethodGet, srv.URL+"/api/report")
	do(t, http.MethodGet, srv.URL+"/api/report?top_k=0")

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := string(b)
	assert.Contains(t, body, `sms_pipeline_runs_total{outcome="ok"} 1`)
	assert.Contains(t, body, `sms_outliers_flagged{column="bmi"} 1`)
	assert.Contains(t, body, `sms_http_requests_total{code="400",route="/api/report"} 1`)
}
