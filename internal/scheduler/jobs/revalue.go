package jobs

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/wonny/kantei/internal/appraisal"
	"github.com/wonny/kantei/pkg/logger"
)

// ListingStore appraisal.Repository 가 구현
type ListingStore interface {
	PendingListings(ctx context.Context, limit int) ([]appraisal.Listing, error)
	SaveAppraisals(ctx context.Context, runID uuid.UUID, items []appraisal.Item) error
	MarkAppraised(ctx context.Context, ids []string) error
}

// RevalueJob re-appraises pending listings
// ⭐ SSOT: 정기 재평가는 이 Job에서만
type RevalueJob struct {
	store     ListingStore
	pipeline  *appraisal.Pipeline
	publisher appraisal.EventPublisher // nil = 알림 없음
	schedule  string
	limit     int
	workers   int
	logger    *logger.Logger
}

// NewRevalueJob creates a new revaluation job
func NewRevalueJob(store ListingStore, pipeline *appraisal.Pipeline, publisher appraisal.EventPublisher, schedule string, limit, workers int, log *logger.Logger) *RevalueJob {
	return &RevalueJob{
		store:     store,
		pipeline:  pipeline,
		publisher: publisher,
		schedule:  schedule,
		limit:     limit,
		workers:   workers,
		logger:    log,
	}
}

// Name returns the job name
func (j *RevalueJob) Name() string {
	return "revalue_pending"
}

// Schedule returns the cron schedule (기본 매일 05:00)
func (j *RevalueJob) Schedule() string {
	return j.schedule
}

// Run appraises up to limit pending listings, saves the results and marks them appraised
func (j *RevalueJob) Run(ctx context.Context) error {
	listings, err := j.store.PendingListings(ctx, j.limit)
	if err != nil {
		return fmt.Errorf("load pending: %w", err)
	}
	if len(listings) == 0 {
		j.logger.Info("No pending listings")
		return nil
	}

	records := make([]map[string]any, len(listings))
	ids := make([]string, len(listings))
	for i, l := range listings {
		records[i] = l.Record
		ids[i] = l.ID
	}

	batch, err := j.pipeline.AppraiseBatch(ctx, records, j.workers)
	if err != nil {
		return err
	}
	// 저장 키는 DB 매물 ID
	for i := range batch.Items {
		batch.Items[i].ListingID = ids[i]
	}

	if err := j.store.SaveAppraisals(ctx, batch.RunID, batch.Items); err != nil {
		return fmt.Errorf("save results: %w", err)
	}
	if err := j.store.MarkAppraised(ctx, ids); err != nil {
		return fmt.Errorf("mark appraised: %w", err)
	}

	published := 0
	if j.publisher != nil {
		published = appraisal.PublishBatch(ctx, j.publisher, batch, j.logger.Zerolog())
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":    batch.RunID.String(),
		"listings":  len(listings),
		"sentinels": batch.Sentinels,
		"published": published,
	}).Info("Pending listings revalued")

	return nil
}
