package appraisal

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/kantei/internal/coefficients"
	"github.com/wonny/kantei/pkg/redis"
)

func TestCacheEntry_RestoresHiddenFields(t *testing.T) {
	p := newTestPipeline(t, coefficients.Options{})

	for _, rec := range []map[string]any{referenceRecord(), {"price": 0}} {
		want := p.Appraise(rec)

		data, err := json.Marshal(newCacheEntry(want))
		require.NoError(t, err)
		var entry cacheEntry
		require.NoError(t, json.Unmarshal(data, &entry))

		if diff := cmp.Diff(want, entry.restore()); diff != "" {
			t.Errorf("cache roundtrip mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestCachedPipeline_DisabledCacheComputes(t *testing.T) {
	p := newTestPipeline(t, coefficients.Options{})
	cp := NewCachedPipeline(p, redis.NewCache(redis.Disabled(), "test"), 0, zerolog.Nop())

	a, hit := cp.AppraiseCached(context.Background(), referenceRecord())
	assert.False(t, hit)
	assert.Equal(t, p.Appraise(referenceRecord()), a)
	assert.Equal(t, redis.TTLDaily, cp.ttl)
}
