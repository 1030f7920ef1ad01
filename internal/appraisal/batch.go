package appraisal

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wonny/kantei/internal/contracts"
)

// DefaultWorkers 워커 수 미지정 시
const DefaultWorkers = 4

// listingIDKeys 매물 ID 로 인정하는 키 (우선순위 순)
var listingIDKeys = []string{"listing_id", "property_id", "id", "url"}

// Item 배치 입력 한 건의 결과
type Item struct {
	Index     int                 `json:"index"`
	ListingID string              `json:"listing_id"`
	Record    map[string]any      `json:"-"`
	Appraisal contracts.Appraisal `json:"appraisal"`
}

// Batch 배치 실행 결과 (입력 순서 유지)
type Batch struct {
	RunID      uuid.UUID     `json:"run_id"`
	Items      []Item        `json:"items"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Sentinels  int           `json:"sentinels"`
	ConfigHash string        `json:"config_hash"`
}

// AppraiseBatch appraises records on a bounded worker pool.
// 결과는 입력 순서. ctx 취소 시 에러 반환
func (p *Pipeline) AppraiseBatch(ctx context.Context, records []map[string]any, workers int) (Batch, error) {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	batch := Batch{
		RunID:      uuid.New(),
		Items:      make([]Item, len(records)),
		StartedAt:  time.Now(),
		ConfigHash: p.configHash,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, record := range records {
		i, record := i, record // per-iteration copy (pre-Go 1.22 loopvar semantics)
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			batch.Items[i] = Item{
				Index:     i,
				ListingID: ListingID(record),
				Record:    record,
				Appraisal: p.Appraise(record),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Batch{}, fmt.Errorf("appraise batch: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Batch{}, fmt.Errorf("appraise batch: %w", err)
	}

	for _, it := range batch.Items {
		if it.Appraisal.Sentinel() {
			batch.Sentinels++
		}
	}
	batch.Duration = time.Since(batch.StartedAt)

	p.log.Info().
		Str("run_id", batch.RunID.String()).
		Int("records", len(records)).
		Int("workers", workers).
		Int("sentinels", batch.Sentinels).
		Dur("duration", batch.Duration).
		Msg("batch appraised")

	return batch, nil
}

// ListingID returns the record's identifier, or a content hash when it has none
func ListingID(record map[string]any) string {
	for _, k := range listingIDKeys {
		switch v := record[k].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64, int, int64, json.Number:
			return fmt.Sprint(v)
		}
	}
	h, err := RecordHash(record)
	if err != nil {
		return ""
	}
	return "sha256:" + h[:16]
}

// RecordHash sha256 of the canonical JSON (맵 키 정렬) of record
func RecordHash(record map[string]any) (string, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("hash record: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
