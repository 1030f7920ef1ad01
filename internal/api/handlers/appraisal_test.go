package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/kantei/internal/appraisal"
	"github.com/wonny/kantei/internal/coefficients"
	"github.com/wonny/kantei/pkg/database"
	"github.com/wonny/kantei/pkg/logger"
	"github.com/wonny/kantei/pkg/notify"
	"github.com/wonny/kantei/pkg/redis"
)

type fakeStore struct {
	saved  []appraisal.Item
	runID  uuid.UUID
	stored map[string]*appraisal.StoredAppraisal
	err    error
}

func (f *fakeStore) SaveAppraisals(_ context.Context, runID uuid.UUID, items []appraisal.Item) error {
	if f.err != nil {
		return f.err
	}
	f.runID = runID
	f.saved = append(f.saved, items...)
	return nil
}

func (f *fakeStore) GetAppraisal(_ context.Context, listingID, _ string) (*appraisal.StoredAppraisal, error) {
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.stored[listingID]
	if !ok {
		return nil, fmt.Errorf("get appraisal: %w", pgx.ErrNoRows)
	}
	return s, nil
}

type fakeHealth struct{ err error }

func (f fakeHealth) HealthCheck(context.Context) (*database.HealthStatus, error) {
	if f.err != nil {
		return &database.HealthStatus{Error: f.err.Error()}, f.err
	}
	return &database.HealthStatus{Healthy: true, Stats: database.PoolStats{MaxConns: 10}}, nil
}

type countingPublisher struct{ n int }

func (c *countingPublisher) PublishAppraisal(context.Context, notify.AppraisalEvent) error {
	c.n++
	return nil
}

func newTestHandler(t *testing.T, store AppraisalStore, pub appraisal.EventPublisher) *AppraisalHandler {
	t.Helper()
	tables, err := coefficients.Load(coefficients.Options{DataDir: "../../../config/coefficients"}, zerolog.Nop())
	require.NoError(t, err)
	p, err := appraisal.NewPipeline(tables, 2026, zerolog.Nop())
	require.NoError(t, err)
	cp := appraisal.NewCachedPipeline(p, redis.NewCache(redis.Disabled(), "test"), 0, zerolog.Nop())
	return NewAppraisalHandler(cp, store, nil, pub, 3, 2, logger.Nop())
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		health     HealthChecker
		wantCode   int
		wantStatus string
		wantDB     bool
	}{
		{"no database", nil, http.StatusOK, "ok", false},
		{"database healthy", fakeHealth{}, http.StatusOK, "ok", true},
		{"database down", fakeHealth{err: errors.New("connection refused")}, http.StatusServiceUnavailable, "degraded", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, nil, nil)
			h.health = tt.health

			rec := httptest.NewRecorder()
			h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tt.wantCode, rec.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus, body["status"])
			_, hasDB := body["database"]
			assert.Equal(t, tt.wantDB, hasDB)
		})
	}
}

const referenceJSON = `{"listing_id":"ref-001","price":85000000,"address":"東京都港区芝浦4丁目","walk_minutes":5,"area_sqm":70.5,"year_built":2018,"management_fee":15000,"repair_reserve":12000,"total_units":400,"floor_number":20}`

func TestAppraise(t *testing.T) {
	h := newTestHandler(t, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/appraisals?detail=true&simulate=true", strings.NewReader(referenceJSON))
	rec := httptest.NewRecorder()
	h.Appraise(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp struct {
		Result     map[string]any            `json:"result"`
		Cached     bool                      `json:"cached"`
		Features   map[string]any            `json:"features"`
		Steps      []map[string]any          `json:"steps"`
		Simulation map[string]map[string]any `json:"simulation"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, float64(79_751_902), resp.Result["current_estimated_value"])
	assert.Equal(t, "S", resp.Result["grade"])
	assert.Equal(t, "high", resp.Result["profit_bucket"])
	assert.Equal(t, "ref-001", resp.Result["listing_id"])
	assert.False(t, resp.Cached)
	assert.Equal(t, "港区", resp.Features["ward"])
	assert.NotEmpty(t, resp.Steps)
	assert.Len(t, resp.Simulation, 3)
}

func TestAppraise_BadBody(t *testing.T) {
	h := newTestHandler(t, nil, nil)

	for _, body := range []string{"", "{", "[1,2]", "null", `{"a":1} {"b":2}`} {
		rec := httptest.NewRecorder()
		h.Appraise(rec, httptest.NewRequest(http.MethodPost, "/api/appraisals", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
	}
}

func TestAppraise_SentinelRecord(t *testing.T) {
	h := newTestHandler(t, nil, nil)

	rec := httptest.NewRecorder()
	h.Appraise(rec, httptest.NewRequest(http.MethodPost, "/api/appraisals", strings.NewReader(`{"price":0}`)))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"current_estimated_value":0`)
	assert.Contains(t, rec.Body.String(), `"grade":"C"`)
}

func batchBody(t *testing.T, n int, save, publish bool) *bytes.Reader {
	t.Helper()
	var ref map[string]any
	require.NoError(t, json.Unmarshal([]byte(referenceJSON), &ref))

	records := make([]map[string]any, n)
	for i := range records {
		r := make(map[string]any, len(ref))
		for k, v := range ref {
			r[k] = v
		}
		r["listing_id"] = fmt.Sprintf("L-%d", i)
		records[i] = r
	}
	data, err := json.Marshal(BatchRequest{Records: records, Save: save, Publish: publish})
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func TestAppraiseBatch(t *testing.T) {
	store := &fakeStore{}
	pub := &countingPublisher{}
	h := newTestHandler(t, store, pub)

	rec := httptest.NewRecorder()
	h.AppraiseBatch(rec, httptest.NewRequest(http.MethodPost, "/api/appraisals/batch", batchBody(t, 3, true, true)))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp BatchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 3)
	for i, r := range resp.Results {
		assert.Equal(t, fmt.Sprintf("L-%d", i), r["listing_id"])
	}
	assert.True(t, resp.Saved)
	assert.Equal(t, 3, resp.Published)
	assert.Equal(t, 3, pub.n)
	assert.Len(t, store.saved, 3)
	assert.Equal(t, resp.RunID, store.runID.String())
}

func TestAppraiseBatch_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		store AppraisalStore
		body  func(t *testing.T) *bytes.Reader
		want  int
	}{
		{"empty", &fakeStore{}, func(t *testing.T) *bytes.Reader { return bytes.NewReader([]byte(`{"records":[]}`)) }, http.StatusBadRequest},
		{"over limit", &fakeStore{}, func(t *testing.T) *bytes.Reader { return batchBody(t, 4, false, false) }, http.StatusRequestEntityTooLarge},
		{"save without store", nil, func(t *testing.T) *bytes.Reader { return batchBody(t, 1, true, false) }, http.StatusServiceUnavailable},
		{"store failure", &fakeStore{err: errors.New("db down")}, func(t *testing.T) *bytes.Reader { return batchBody(t, 1, true, false) }, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(t, tt.store, nil)
			rec := httptest.NewRecorder()
			h.AppraiseBatch(rec, httptest.NewRequest(http.MethodPost, "/api/appraisals/batch", tt.body(t)))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestGetAppraisal(t *testing.T) {
	store := &fakeStore{stored: map[string]*appraisal.StoredAppraisal{
		"ref-001": {ListingID: "ref-001", Grade: "S", CurrentValue: 79_751_902},
	}}
	h := newTestHandler(t, store, nil)

	get := func(id string) *httptest.ResponseRecorder {
		req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/api/appraisals/"+id, nil), map[string]string{"listingID": id})
		rec := httptest.NewRecorder()
		h.GetAppraisal(rec, req)
		return rec
	}

	rec := get("ref-001")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"grade":"S"`)

	assert.Equal(t, http.StatusNotFound, get("missing").Code)

	noStore := newTestHandler(t, nil, nil)
	rec = httptest.NewRecorder()
	noStore.GetAppraisal(rec, httptest.NewRequest(http.MethodGet, "/api/appraisals/x", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestScenariosAndConfig(t *testing.T) {
	h := newTestHandler(t, nil, nil)

	rec := httptest.NewRecorder()
	h.Scenarios(rec, httptest.NewRequest(http.MethodGet, "/api/scenarios", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var scen struct {
		Scenarios []struct {
			Name string `json:"name"`
		} `json:"scenarios"`
		GradeScenario string `json:"grade_scenario"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &scen))
	require.Len(t, scen.Scenarios, 3)
	assert.Equal(t, "optimistic", scen.Scenarios[0].Name)
	assert.Equal(t, "neutral", scen.GradeScenario)

	rec = httptest.NewRecorder()
	h.Config(rec, httptest.NewRequest(http.MethodGet, "/api/config", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var cfg struct {
		Snapshot struct {
			ConfigHash    string `json:"config_hash"`
			UsingDefaults bool   `json:"using_defaults"`
			LoanProfile   string `json:"loan_profile"`
		} `json:"snapshot"`
		Warnings []any `json:"warnings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cfg))
	assert.Equal(t, h.pipeline.ConfigHash(), cfg.Snapshot.ConfigHash)
	assert.True(t, cfg.Snapshot.UsingDefaults)
	assert.Equal(t, "standard", cfg.Snapshot.LoanProfile)
	assert.NotNil(t, cfg.Warnings)

	rec = httptest.NewRecorder()
	h.Wards(rec, httptest.NewRequest(http.MethodGet, "/api/wards", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "港区")
}
