package commands

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/kantei/pkg/config"
)

func TestReadJSONL(t *testing.T) {
	in := strings.NewReader(`
# comment
{"listing_id":"a","price":85000000}

{"listing_id":"b","price_man":4200}
`)
	records, err := readJSONL(in)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0]["listing_id"])
	assert.Equal(t, json.Number("4200"), records[1]["price_man"])

	_, err = readJSONL(strings.NewReader("{\"a\":1}\n[1,2]\n"))
	assert.ErrorContains(t, err, "line 2")

	_, err = readJSONL(strings.NewReader("null\n"))
	assert.ErrorContains(t, err, "line 1")
}

func TestDecodeRecord(t *testing.T) {
	rec, err := decodeRecord(strings.NewReader(`{"price":1}`))
	require.NoError(t, err)
	assert.Contains(t, rec, "price")

	_, err = decodeRecord(strings.NewReader(`null`))
	assert.Error(t, err)
	_, err = decodeRecord(strings.NewReader(`{`))
	assert.Error(t, err)
}

func TestApplyFlagOverrides(t *testing.T) {
	defer func() {
		coefficientDir, calibrationPath, loanProfile, gradeScheme, asOfYear = "", "", "", "", 0
	}()

	cfg := &config.Config{Engine: config.EngineConfig{CoefficientDir: "env-dir", LoanProfile: "standard"}}
	applyFlagOverrides(cfg)
	assert.Equal(t, "env-dir", cfg.Engine.CoefficientDir, "empty flags keep env values")

	coefficientDir, loanProfile, asOfYear = "flag-dir", "conservative", 2030
	applyFlagOverrides(cfg)
	assert.Equal(t, "flag-dir", cfg.Engine.CoefficientDir)
	assert.Equal(t, "conservative", cfg.Engine.LoanProfile)
	assert.Equal(t, 2030, cfg.Engine.AsOfYear)
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"value", "batch", "api", "scheduler", "tables"} {
		assert.True(t, names[want], want)
	}
}

func TestSourceName(t *testing.T) {
	assert.Equal(t, "stdin", sourceName(""))
	assert.Equal(t, "stdin", sourceName("-"))
	assert.Equal(t, "suumo_2026-10.jsonl", sourceName("data/scraped/suumo_2026-10.jsonl"))
}

func TestBatchFlags(t *testing.T) {
	for _, name := range []string{"input", "output", "workers", "save", "publish", "enqueue"} {
		assert.NotNil(t, batchCmd.Flags().Lookup(name), name)
	}
}
