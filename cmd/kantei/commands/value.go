package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/wonny/kantei/internal/appraisal"
)

var (
	valueInput    string
	valueSimulate bool
	valueSteps    bool
)

// valueCmd appraises one JSON record
var valueCmd = &cobra.Command{
	Use:   "value",
	Short: "레코드 1건 평가",
	Long: `JSON 레코드 1건을 읽어 평가 결과를 병합한 JSON 을 출력합니다.

입력은 --input 파일 또는 stdin.

Example:
  echo '{"price_man":8500,"address":"東京都港区芝浦","walk":5}' | go run ./cmd/kantei value
  go run ./cmd/kantei value -i listing.json --simulate`,
	RunE: runValue,
}

func init() {
	rootCmd.AddCommand(valueCmd)

	valueCmd.Flags().StringVarP(&valueInput, "input", "i", "", "JSON 파일 (기본 stdin)")
	valueCmd.Flags().BoolVar(&valueSimulate, "simulate", false, "연도별 에쿼티 시뮬레이션 포함")
	valueCmd.Flags().BoolVar(&valueSteps, "steps", false, "보정 단계 포함")
}

func runValue(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}

	in, closeIn, err := openInput(valueInput)
	if err != nil {
		return err
	}
	defer closeIn()

	record, err := decodeRecord(in)
	if err != nil {
		return err
	}

	result := a.pipeline.Appraise(record)
	out := appraisal.Merge(record, result)
	if valueSteps {
		out["valuation_steps"] = a.pipeline.Steps(result)
	}
	if valueSimulate {
		out["equity_simulation"] = a.pipeline.Simulate(result)
	}

	return writeJSON(cmd.OutOrStdout(), out, true)
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func decodeRecord(r io.Reader) (map[string]any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var record map[string]any
	if err := dec.Decode(&record); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("decode record: not a JSON object")
	}
	return record, nil
}

func writeJSON(w io.Writer, v any, indent bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
