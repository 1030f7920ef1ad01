package appraisal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Listing 평가 대기 매물
type Listing struct {
	ID        string
	Record    map[string]any
	Source    string
	UpdatedAt time.Time
}

// Listing status
const (
	StatusPending   = "pending"
	StatusAppraised = "appraised"
)

// Repository 매물 / 평가 결과 저장소
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository 새 저장소 생성
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// UpsertListings 매물 레코드 저장. 기존 매물은 pending 으로 되돌림
func (r *Repository) UpsertListings(ctx context.Context, listings []Listing) error {
	if len(listings) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO kantei.listings (listing_id, record, source, status)
		VALUES ($1, $2, $3, 'pending')
		ON CONFLICT (listing_id) DO UPDATE SET
			record = EXCLUDED.record,
			source = EXCLUDED.source,
			status = 'pending',
			updated_at = NOW()`

	for _, l := range listings {
		batch.Queue(query, l.ID, l.Record, l.Source)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range listings {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert listings: %w", err)
		}
	}
	return nil
}

// SaveAppraisals 평가 결과 일괄 저장 (listing_id + config_hash 단위 upsert)
func (r *Repository) SaveAppraisals(ctx context.Context, runID uuid.UUID, items []Item) error {
	if len(items) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `
		INSERT INTO kantei.appraisals
			(listing_id, config_hash, run_id, current_estimated_value, grade, profit_bucket,
			 implied_gain_amount, implied_gain_ratio, forecast_10y, risk_factors, positive_factors, features)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (listing_id, config_hash) DO UPDATE SET
			run_id = EXCLUDED.run_id,
			current_estimated_value = EXCLUDED.current_estimated_value,
			grade = EXCLUDED.grade,
			profit_bucket = EXCLUDED.profit_bucket,
			implied_gain_amount = EXCLUDED.implied_gain_amount,
			implied_gain_ratio = EXCLUDED.implied_gain_ratio,
			forecast_10y = EXCLUDED.forecast_10y,
			risk_factors = EXCLUDED.risk_factors,
			positive_factors = EXCLUDED.positive_factors,
			features = EXCLUDED.features,
			appraised_at = NOW()`

	for _, it := range items {
		a := it.Appraisal
		forecast, err := json.Marshal(a.Forecasts)
		if err != nil {
			return fmt.Errorf("save appraisals: %w", err)
		}
		feats, err := json.Marshal(a.Features)
		if err != nil {
			return fmt.Errorf("save appraisals: %w", err)
		}
		batch.Queue(query, it.ListingID, a.ConfigHash, runID.String(),
			a.Valuation.CurrentValue, string(a.Grade.Grade), string(a.Grade.ProfitBucket),
			a.Grade.ImpliedGainAmount, a.Grade.ImpliedGainRatio,
			forecast, nonNil(a.Valuation.RiskFactors), nonNil(a.Valuation.PositiveFactors), feats)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range items {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("save appraisals: %w", err)
		}
	}
	return nil
}

// PendingListings 오래된 순으로 pending 매물 조회
func (r *Repository) PendingListings(ctx context.Context, limit int) ([]Listing, error) {
	query := `
		SELECT listing_id, record, COALESCE(source, ''), updated_at
		FROM kantei.listings
		WHERE status = $1
		ORDER BY updated_at, listing_id
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, StatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("pending listings: %w", err)
	}
	defer rows.Close()

	var listings []Listing
	for rows.Next() {
		var l Listing
		if err := rows.Scan(&l.ID, &l.Record, &l.Source, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("pending listings: %w", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pending listings: %w", err)
	}
	return listings, nil
}

// MarkAppraised 평가 완료 표시
func (r *Repository) MarkAppraised(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query := `
		UPDATE kantei.listings
		SET status = $1, appraised_at = NOW(), updated_at = NOW()
		WHERE listing_id = ANY($2)`

	if _, err := r.pool.Exec(ctx, query, StatusAppraised, ids); err != nil {
		return fmt.Errorf("mark appraised: %w", err)
	}
	return nil
}

// GetAppraisal 최신 설정 해시 기준 저장된 결과 조회
func (r *Repository) GetAppraisal(ctx context.Context, listingID, configHash string) (*StoredAppraisal, error) {
	query := `
		SELECT listing_id, config_hash, run_id::text, current_estimated_value, grade, profit_bucket,
			   implied_gain_amount, implied_gain_ratio, forecast_10y, appraised_at
		FROM kantei.appraisals
		WHERE listing_id = $1 AND config_hash = $2`

	var s StoredAppraisal
	err := r.pool.QueryRow(ctx, query, listingID, configHash).Scan(
		&s.ListingID, &s.ConfigHash, &s.RunID, &s.CurrentValue, &s.Grade, &s.ProfitBucket,
		&s.ImpliedGainAmount, &s.ImpliedGainRatio, &s.Forecast, &s.AppraisedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("get appraisal: %w", err)
	}
	return &s, nil
}

// StoredAppraisal 저장된 평가 결과 행
type StoredAppraisal struct {
	ListingID         string                    `json:"listing_id"`
	ConfigHash        string                    `json:"config_hash"`
	RunID             string                    `json:"run_id"`
	CurrentValue      int64                     `json:"current_estimated_value"`
	Grade             string                    `json:"grade"`
	ProfitBucket      string                    `json:"profit_bucket"`
	ImpliedGainAmount int64                     `json:"implied_gain_amount"`
	ImpliedGainRatio  float64                   `json:"implied_gain_ratio"`
	Forecast          map[string]map[string]any `json:"forecast_10y"`
	AppraisedAt       time.Time                 `json:"appraised_at"`
}
