package reports

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/offcuttrack/offcut-service/internal/core/domain"
)

type mockStore struct {
	summary      []MaterialSummary
	summaryCalls int
	inventory    []InventoryLine
	history      []domain.OffcutUsageHistory
}

func (m *mockStore) MaterialSummary(ctx context.Context) ([]MaterialSummary, error) {
	m.summaryCalls++
	return m.summary, nil
}

func (m *mockStore) OffcutInventory(ctx context.Context) ([]InventoryLine, error) {
	return m.inventory, nil
}

func (m *mockStore) ReuseHistory(ctx context.Context, offcutID uint) ([]domain.OffcutUsageHistory, error) {
	return m.history, nil
}

type mapCache struct {
	entries map[string]string
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]string)}
}

func (c *mapCache) Get(ctx context.Context, key string) (string, error) {
	return c.entries[key], nil
}

func (c *mapCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	switch v := value.(type) {
	case []byte:
		c.entries[key] = string(v)
	case string:
		c.entries[key] = v
	default:
		payload, err := json.Marshal(v)
		if err != nil {
			return err
		}
		c.entries[key] = string(payload)
	}
	return nil
}

func (c *mapCache) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(c.entries, key)
	}
	return nil
}

func TestService_Summary_CachesResult(t *testing.T) {
	store := &mockStore{summary: []MaterialSummary{
		{ItemDescription: "45x45 Box", ItemCode: "ALU-201", TotalInputLength: 6000, AvgEfficiency: 90},
	}}
	cache := newMapCache()
	svc := NewService(store, cache, nil)
	ctx := context.Background()

	first, err := svc.Summary(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, store.summaryCalls)

	second, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.summaryCalls, "second call should be served from cache")
}

func TestService_InvalidateSummary(t *testing.T) {
	store := &mockStore{summary: []MaterialSummary{{ItemDescription: "45x45 Box"}}}
	cache := newMapCache()
	svc := NewService(store, cache, nil)
	ctx := context.Background()

	_, err := svc.Summary(ctx)
	require.NoError(t, err)

	svc.InvalidateSummary(ctx)

	_, err = svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, store.summaryCalls)
}

func TestService_Summary_NoCache(t *testing.T) {
	store := &mockStore{summary: []MaterialSummary{{ItemDescription: "45x45 Box"}}}
	svc := NewService(store, nil, nil)

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.Len(t, summary, 1)

	// must not panic without a cache
	svc.InvalidateSummary(context.Background())
}

func TestService_Inventory(t *testing.T) {
	store := &mockStore{inventory: []InventoryLine{
		{MaterialProfile: "45x45 Box", LengthMM: 1500, Quantity: 2},
	}}
	svc := NewService(store, nil, nil)

	lines, err := svc.Inventory(context.Background())
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, int64(2), lines[0].Quantity)
}

func TestService_SuccessRate(t *testing.T) {
	tests := []struct {
		name    string
		history []domain.OffcutUsageHistory
		want    float64
	}{
		{"no history defaults to full confidence", nil, 1.0},
		{"all successes", []domain.OffcutUsageHistory{
			{ReuseSuccess: true}, {ReuseSuccess: true},
		}, 1.0},
		{"mixed", []domain.OffcutUsageHistory{
			{ReuseSuccess: true}, {ReuseSuccess: false}, {ReuseSuccess: true}, {ReuseSuccess: false},
		}, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(&mockStore{history: tt.history}, nil, nil)

			rate, err := svc.SuccessRate(context.Background(), 1)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, rate, 0.001)
		})
	}
}
