package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/wonny/kantei/pkg/config"
)

// AppraisalEvent 평가 완료 알림 페이로드 (리포트/채팅 소비자용)
type AppraisalEvent struct {
	RunID            string           `json:"run_id"`
	ListingID        string           `json:"listing_id,omitempty"`
	ConfigHash       string           `json:"config_hash"`
	CurrentValue     int64            `json:"current_estimated_value"`
	Grade            string           `json:"grade"`
	ProfitBucket     string           `json:"profit_bucket"`
	ImpliedGainRatio float64          `json:"implied_gain_ratio"`
	Forecast         map[string]int64 `json:"forecast_10y"`
	AppraisedAt      time.Time        `json:"appraised_at"`
}

// MsgID 중복 제거용 메시지 ID
func (e AppraisalEvent) MsgID() string {
	return fmt.Sprintf("%s:%s:%s", e.RunID, e.ListingID, e.ConfigHash)
}

// Publisher publishes appraisal events to NATS
// ⭐ SSOT: 외부 알림 발행은 여기서만
// NATS_URL 미설정 시 no-op
type Publisher struct {
	nc      *nats.Conn
	subject string
	log     zerolog.Logger
}

// NewPublisher connects to NATS when configured
func NewPublisher(cfg *config.Config, log zerolog.Logger) (*Publisher, error) {
	p := &Publisher{
		subject: cfg.NATS.Subject,
		log:     log.With().Str("component", "notify.publisher").Logger(),
	}
	if !cfg.NATS.Enabled() {
		return p, nil
	}

	nc, err := nats.Connect(cfg.NATS.URL,
		nats.Name("kantei"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(3),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	p.nc = nc
	return p, nil
}

// Enabled reports whether events are actually sent
func (p *Publisher) Enabled() bool {
	return p.nc != nil
}

// Subject returns the configured subject
func (p *Publisher) Subject() string {
	return p.subject
}

// PublishAppraisal publishes one event
func (p *Publisher) PublishAppraisal(ctx context.Context, ev AppraisalEvent) error {
	if !p.Enabled() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := encode(p.subject, ev)
	if err != nil {
		return err
	}
	if err := p.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish appraisal: %w", err)
	}

	p.log.Debug().
		Str("run_id", ev.RunID).
		Str("listing_id", ev.ListingID).
		Str("grade", ev.Grade).
		Msg("appraisal published")
	return nil
}

// Flush waits until buffered events reach the server
func (p *Publisher) Flush(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}
	return p.nc.FlushWithContext(ctx)
}

// Close drains and closes the connection
func (p *Publisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
	}
}

func encode(subject string, ev AppraisalEvent) (*nats.Msg, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal appraisal event: %w", err)
	}
	msg := nats.NewMsg(subject)
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, ev.MsgID())
	msg.Header.Set("Content-Type", "application/json")
	return msg, nil
}
