package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5"

	"github.com/wonny/kantei/internal/appraisal"
	"github.com/wonny/kantei/internal/contracts"
	"github.com/wonny/kantei/internal/engineconfig"
	"github.com/wonny/kantei/internal/simulation"
	"github.com/wonny/kantei/internal/valuation"
	"github.com/wonny/kantei/pkg/database"
	"github.com/wonny/kantei/pkg/logger"
)

// healthTimeout /health 의 DB 확인 상한
const healthTimeout = 2 * time.Second

// AppraisalStore appraisal.Repository 가 구현
type AppraisalStore interface {
	SaveAppraisals(ctx context.Context, runID uuid.UUID, items []appraisal.Item) error
	GetAppraisal(ctx context.Context, listingID, configHash string) (*appraisal.StoredAppraisal, error)
}

// HealthChecker database.DB 가 구현
type HealthChecker interface {
	HealthCheck(ctx context.Context) (*database.HealthStatus, error)
}

// AppraisalHandler handles appraisal API endpoints
// ⭐ SSOT: 평가 API 핸들러는 이 구조체에서만
type AppraisalHandler struct {
	pipeline  *appraisal.CachedPipeline
	store     AppraisalStore           // nil = 영속화 비활성
	health    HealthChecker            // nil = DB 미설정
	publisher appraisal.EventPublisher // nil = 알림 비활성
	maxBatch  int
	workers   int
	logger    *logger.Logger
}

// NewAppraisalHandler creates a new appraisal handler
func NewAppraisalHandler(
	pipeline *appraisal.CachedPipeline,
	store AppraisalStore,
	health HealthChecker,
	publisher appraisal.EventPublisher,
	maxBatch int,
	workers int,
	log *logger.Logger,
) *AppraisalHandler {
	return &AppraisalHandler{
		pipeline:  pipeline,
		store:     store,
		health:    health,
		publisher: publisher,
		maxBatch:  maxBatch,
		workers:   workers,
		logger:    log,
	}
}

// AppraisalResponse 단건 평가 응답
type AppraisalResponse struct {
	Result     map[string]any              `json:"result"`
	Cached     bool                        `json:"cached"`
	Features   *contracts.PropertyFeatures `json:"features,omitempty"`
	Steps      []valuation.Step            `json:"steps,omitempty"`
	Simulation map[string]simulation.Path  `json:"simulation,omitempty"`
}

// Health returns server health status. DB 가 설정되어 있고 응답하지 않으면 503
// GET /health
func (h *AppraisalHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"status":      "ok",
		"service":     "kantei-api",
		"config_hash": h.pipeline.ConfigHash(),
		"persistence": h.store != nil,
	}
	code := http.StatusOK

	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		status, err := h.health.HealthCheck(ctx)
		if status != nil {
			resp["database"] = status
		}
		if err != nil {
			h.logger.WithError(err).Warn("Database health check failed")
			resp["status"] = "degraded"
			code = http.StatusServiceUnavailable
		}
	}

	respondJSON(w, code, resp)
}

// Appraise appraises one record and returns it merged with the result
// POST /api/appraisals?detail=true&simulate=true
func (h *AppraisalHandler) Appraise(w http.ResponseWriter, r *http.Request) {
	var record map[string]any
	if err := decodeJSON(w, r, &record); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if record == nil {
		respondError(w, http.StatusBadRequest, "record must be a JSON object")
		return
	}

	a, cached := h.pipeline.AppraiseCached(r.Context(), record)

	resp := AppraisalResponse{
		Result: appraisal.Merge(record, a),
		Cached: cached,
	}
	q := r.URL.Query()
	if q.Get("detail") == "true" {
		resp.Features = &a.Features
		resp.Steps = h.pipeline.Steps(a)
	}
	if q.Get("simulate") == "true" {
		resp.Simulation = h.pipeline.Simulate(a)
	}

	respondJSON(w, http.StatusOK, resp)
}

// BatchRequest 배치 평가 요청
type BatchRequest struct {
	Records []map[string]any `json:"records"`
	Save    bool             `json:"save"`
	Publish bool             `json:"publish"`
}

// BatchResponse 배치 평가 응답 (입력 순서)
type BatchResponse struct {
	RunID      string           `json:"run_id"`
	ConfigHash string           `json:"config_hash"`
	Results    []map[string]any `json:"results"`
	Sentinels  int              `json:"sentinels"`
	Saved      bool             `json:"saved"`
	Published  int              `json:"published"`
	DurationMS int64            `json:"duration_ms"`
}

// AppraiseBatch appraises many records on the worker pool
// POST /api/appraisals/batch
func (h *AppraisalHandler) AppraiseBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Records) == 0 {
		respondError(w, http.StatusBadRequest, "records is required")
		return
	}
	if h.maxBatch > 0 && len(req.Records) > h.maxBatch {
		respondError(w, http.StatusRequestEntityTooLarge, "too many records")
		return
	}
	if req.Save && h.store == nil {
		respondError(w, http.StatusServiceUnavailable, "persistence is not configured")
		return
	}

	ctx := r.Context()
	batch, err := h.pipeline.AppraiseBatch(ctx, req.Records, h.workers)
	if err != nil {
		h.logger.WithError(err).Warn("Batch appraisal aborted")
		respondError(w, http.StatusServiceUnavailable, "batch aborted")
		return
	}

	resp := BatchResponse{
		RunID:      batch.RunID.String(),
		ConfigHash: batch.ConfigHash,
		Results:    make([]map[string]any, len(batch.Items)),
		Sentinels:  batch.Sentinels,
		DurationMS: batch.Duration.Milliseconds(),
	}
	for i, it := range batch.Items {
		resp.Results[i] = appraisal.Merge(it.Record, it.Appraisal)
	}

	if req.Save {
		if err := h.store.SaveAppraisals(ctx, batch.RunID, batch.Items); err != nil {
			h.logger.WithError(err).WithField("run_id", resp.RunID).Error("Failed to save appraisals")
			respondError(w, http.StatusInternalServerError, "failed to save appraisals")
			return
		}
		resp.Saved = true
	}
	if req.Publish && h.publisher != nil {
		resp.Published = appraisal.PublishBatch(ctx, h.publisher, batch, h.logger.Zerolog())
	}

	respondJSON(w, http.StatusOK, resp)
}

// GetAppraisal returns the stored appraisal for a listing under the active config
// GET /api/appraisals/{listingID}
func (h *AppraisalHandler) GetAppraisal(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		respondError(w, http.StatusServiceUnavailable, "persistence is not configured")
		return
	}

	listingID := mux.Vars(r)["listingID"]
	stored, err := h.store.GetAppraisal(r.Context(), listingID, h.pipeline.ConfigHash())
	if errors.Is(err, pgx.ErrNoRows) {
		respondError(w, http.StatusNotFound, "appraisal not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("listing_id", listingID).Error("Failed to get appraisal")
		respondError(w, http.StatusInternalServerError, "failed to get appraisal")
		return
	}

	respondJSON(w, http.StatusOK, stored)
}

// Scenarios lists the loaded macro scenarios in file order
// GET /api/scenarios
func (h *AppraisalHandler) Scenarios(w http.ResponseWriter, r *http.Request) {
	tables := h.pipeline.Tables()
	names := tables.ScenarioNames()

	out := make([]contracts.MacroScenario, 0, len(names))
	for _, name := range names {
		if s, ok := tables.Scenario(name); ok {
			out = append(out, s)
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"scenarios":      out,
		"grade_scenario": h.pipeline.Config().Scenario.GradeScenario,
	})
}

// Wards lists the ward coefficient table
// GET /api/wards
func (h *AppraisalHandler) Wards(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"wards": h.pipeline.Tables().Wards(),
	})
}

// Config returns the active engine configuration, its hash and advisory warnings
// GET /api/config
func (h *AppraisalHandler) Config(w http.ResponseWriter, r *http.Request) {
	tables := h.pipeline.Tables()
	cfg := h.pipeline.Config()

	snap, err := engineconfig.NewSnapshot(cfg, tables.CalibrationYAML(), tables.UsingDefaults())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to snapshot config")
		return
	}

	warnings := engineconfig.Warn(&cfg)
	if warnings == nil {
		warnings = []engineconfig.Warning{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"snapshot":  snap,
		"config":    cfg,
		"warnings":  warnings,
		"served_at": time.Now().UTC(),
	})
}
