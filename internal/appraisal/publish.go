package appraisal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wonny/kantei/pkg/notify"
)

// EventPublisher notify.Publisher 가 구현
type EventPublisher interface {
	PublishAppraisal(ctx context.Context, ev notify.AppraisalEvent) error
}

// Event builds the notification payload for one batch item
func Event(runID uuid.UUID, it Item, at time.Time) notify.AppraisalEvent {
	a := it.Appraisal
	forecast := make(map[string]int64, len(a.Forecasts))
	for name, fc := range a.Forecasts {
		forecast[name] = fc.Price
	}
	return notify.AppraisalEvent{
		RunID:            runID.String(),
		ListingID:        it.ListingID,
		ConfigHash:       a.ConfigHash,
		CurrentValue:     a.Valuation.CurrentValue,
		Grade:            string(a.Grade.Grade),
		ProfitBucket:     string(a.Grade.ProfitBucket),
		ImpliedGainRatio: a.Grade.ImpliedGainRatio,
		Forecast:         forecast,
		AppraisedAt:      at,
	}
}

// PublishBatch publishes every non-sentinel item. 발행 실패는 로그만 남기고 건너뜀
// Returns the number of events published.
func PublishBatch(ctx context.Context, pub EventPublisher, b Batch, log zerolog.Logger) int {
	at := b.StartedAt.Add(b.Duration)
	sent := 0
	for _, it := range b.Items {
		if it.Appraisal.Sentinel() {
			continue
		}
		if err := pub.PublishAppraisal(ctx, Event(b.RunID, it, at)); err != nil {
			log.Warn().Err(err).Str("listing_id", it.ListingID).Msg("publish appraisal failed")
			continue
		}
		sent++
	}
	return sent
}
