package notify

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/kantei/pkg/config"
)

func sampleEvent() AppraisalEvent {
	return AppraisalEvent{
		RunID:            "run-1",
		ListingID:        "L-100",
		ConfigHash:       "abc",
		CurrentValue:     79_751_902,
		Grade:            "S",
		ProfitBucket:     "high",
		ImpliedGainRatio: 0.5067,
		Forecast:         map[string]int64{"neutral": 99_608_097},
		AppraisedAt:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestPublisher_DisabledIsNoop(t *testing.T) {
	p, err := NewPublisher(&config.Config{NATS: config.NATSConfig{Subject: "kantei.test"}}, zerolog.Nop())
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.Equal(t, "kantei.test", p.Subject())
	assert.NoError(t, p.PublishAppraisal(context.Background(), sampleEvent()))
	assert.NoError(t, p.Flush(context.Background()))
	p.Close()
}

func TestEncode(t *testing.T) {
	msg, err := encode("kantei.appraisal.completed", sampleEvent())
	require.NoError(t, err)

	assert.Equal(t, "kantei.appraisal.completed", msg.Subject)
	assert.Equal(t, "run-1:L-100:abc", msg.Header.Get(nats.MsgIdHdr))

	var got AppraisalEvent
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, sampleEvent(), got)
}

func TestPublisher_Integration(t *testing.T) {
	url := os.Getenv("NATS_URL")
	if testing.Short() || url == "" {
		t.Skip("NATS_URL not set, skipping integration test")
	}

	cfg := &config.Config{NATS: config.NATSConfig{URL: url, Subject: "kantei.test.appraisal"}}
	p, err := NewPublisher(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer p.Close()

	sub, err := nats.Connect(url)
	require.NoError(t, err)
	defer sub.Close()

	ch := make(chan *nats.Msg, 1)
	s, err := sub.ChanSubscribe(cfg.NATS.Subject, ch)
	require.NoError(t, err)
	defer func() { _ = s.Unsubscribe() }()
	require.NoError(t, sub.Flush())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, p.PublishAppraisal(ctx, sampleEvent()))
	require.NoError(t, p.Flush(ctx))

	select {
	case msg := <-ch:
		assert.Equal(t, "run-1:L-100:abc", msg.Header.Get(nats.MsgIdHdr))
	case <-ctx.Done():
		t.Fatal("no message received")
	}
}
