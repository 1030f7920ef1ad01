package appraisal

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/kantei/internal/coefficients"
	"github.com/wonny/kantei/pkg/notify"
)

type recordingPublisher struct {
	events []notify.AppraisalEvent
	failOn string
}

func (r *recordingPublisher) PublishAppraisal(_ context.Context, ev notify.AppraisalEvent) error {
	if ev.ListingID == r.failOn {
		return errors.New("broker unavailable")
	}
	r.events = append(r.events, ev)
	return nil
}

func TestPublishBatch(t *testing.T) {
	p := newTestPipeline(t, coefficients.Options{})

	second := referenceRecord()
	second["listing_id"] = "ref-002"
	records := []map[string]any{
		referenceRecord(),
		{"listing_id": "zero", "price": 0},
		second,
	}
	b, err := p.AppraiseBatch(context.Background(), records, 2)
	require.NoError(t, err)

	pub := &recordingPublisher{failOn: "ref-002"}
	sent := PublishBatch(context.Background(), pub, b, zerolog.Nop())

	assert.Equal(t, 1, sent, "sentinel skipped, failure logged")
	require.Len(t, pub.events, 1)

	ev := pub.events[0]
	assert.Equal(t, b.RunID.String(), ev.RunID)
	assert.Equal(t, "ref-001", ev.ListingID)
	assert.Equal(t, int64(79_751_902), ev.CurrentValue)
	assert.Equal(t, "S", ev.Grade)
	assert.Len(t, ev.Forecast, 3)
	assert.Equal(t, p.ConfigHash(), ev.ConfigHash)
}
