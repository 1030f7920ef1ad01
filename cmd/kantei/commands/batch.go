package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/kantei/internal/appraisal"
)

var (
	batchInput   string
	batchOutput  string
	batchWorkers int
	batchSave    bool
	batchPublish bool
	batchEnqueue bool
)

// batchCmd appraises a JSONL file
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "JSONL 일괄 평가",
	Long: `JSONL (1행 1레코드) 을 워커 풀로 평가해 입력 순서대로 JSONL 로 출력합니다.

--save    결과를 PostgreSQL 에 저장 (DATABASE_URL 필요)
--publish 평가 완료 이벤트를 NATS 로 발행 (NATS_URL 필요)
--enqueue 평가하지 않고 pending 매물로 저장, revalue_pending 작업이 처리 (DATABASE_URL 필요)

Example:
  go run ./cmd/kantei batch -i listings.jsonl -o appraised.jsonl --workers 8
  go run ./cmd/kantei batch -i listings.jsonl --save --publish
  go run ./cmd/kantei batch -i listings.jsonl --enqueue`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVarP(&batchInput, "input", "i", "", "JSONL 파일 (기본 stdin)")
	batchCmd.Flags().StringVarP(&batchOutput, "output", "o", "", "출력 파일 (기본 stdout)")
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 0, "워커 수 (기본 BATCH_WORKERS)")
	batchCmd.Flags().BoolVar(&batchSave, "save", false, "PostgreSQL 저장")
	batchCmd.Flags().BoolVar(&batchPublish, "publish", false, "NATS 발행")
	batchCmd.Flags().BoolVar(&batchEnqueue, "enqueue", false, "pending 매물로만 저장")
}

func runBatch(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	in, closeIn, err := openInput(batchInput)
	if err != nil {
		return err
	}
	defer closeIn()

	records, err := readJSONL(in)
	if err != nil {
		return err
	}

	if batchEnqueue {
		return enqueueListings(ctx, a, records)
	}

	workers := batchWorkers
	if workers <= 0 {
		workers = a.cfg.BatchWorkers
	}

	batch, err := a.pipeline.AppraiseBatch(ctx, records, workers)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if batchOutput != "" {
		f, err := os.Create(batchOutput)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}
	w := bufio.NewWriter(out)
	for _, it := range batch.Items {
		if err := writeJSON(w, appraisal.Merge(it.Record, it.Appraisal), false); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	if batchSave {
		repo, closeDB, err := a.openRepository(ctx)
		if err != nil {
			return err
		}
		defer closeDB()
		if repo == nil {
			return fmt.Errorf("--save requires DATABASE_URL")
		}
		if err := repo.SaveAppraisals(ctx, batch.RunID, batch.Items); err != nil {
			return err
		}
	}

	published := 0
	if batchPublish {
		pub, err := a.openPublisher()
		if err != nil {
			return err
		}
		defer pub.Close()
		if !pub.Enabled() {
			return fmt.Errorf("--publish requires NATS_URL")
		}
		published = appraisal.PublishBatch(ctx, pub, batch, a.log.Zerolog())
		if err := pub.Flush(ctx); err != nil {
			a.log.WithError(err).Warn("NATS flush failed")
		}
	}

	a.log.WithFields(map[string]interface{}{
		"run_id":    batch.RunID.String(),
		"records":   len(batch.Items),
		"sentinels": batch.Sentinels,
		"saved":     batchSave,
		"published": published,
	}).Info("Batch completed")

	return nil
}

// enqueueListings 레코드를 pending 매물로 upsert
func enqueueListings(ctx context.Context, a *app, records []map[string]any) error {
	repo, closeDB, err := a.openRepository(ctx)
	if err != nil {
		return err
	}
	defer closeDB()
	if repo == nil {
		return fmt.Errorf("--enqueue requires DATABASE_URL")
	}

	listings := make([]appraisal.Listing, len(records))
	for i, rec := range records {
		listings[i] = appraisal.Listing{ID: appraisal.ListingID(rec), Record: rec, Source: sourceName(batchInput)}
	}
	if err := repo.UpsertListings(ctx, listings); err != nil {
		return err
	}

	a.log.WithField("listings", len(listings)).Info("Listings enqueued")
	return nil
}

func sourceName(input string) string {
	if input == "" || input == "-" {
		return "stdin"
	}
	return filepath.Base(input)
}

// readJSONL 빈 줄 / # 주석 줄은 건너뜀
func readJSONL(r io.Reader) ([]map[string]any, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16<<20)

	var records []map[string]any
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(text))
		dec.UseNumber()
		var record map[string]any
		if err := dec.Decode(&record); err != nil || record == nil {
			return nil, fmt.Errorf("line %d: invalid JSON object", line)
		}
		records = append(records, record)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return records, nil
}
