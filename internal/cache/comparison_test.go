package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/receiptradar/internal/entity"
	"github.com/joseph-ayodele/receiptradar/internal/metrics"
)

type stubComparer struct {
	calls []string
	stats []entity.StorePriceStats
	err   error
}

func (s *stubComparer) CompareStores(_ context.Context, itemName string) ([]entity.StorePriceStats, error) {
	s.calls = append(s.calls, itemName)
	return s.stats, s.err
}

func sampleStats() []entity.StorePriceStats {
	return []entity.StorePriceStats{{
		StoreID:     uuid.MustParse("33333333-3333-3333-3333-333333333333"),
		StoreName:   "FreshMart",
		MinPrice:    decimal.RequireFromString("3.20"),
		MaxPrice:    decimal.RequireFromString("3.60"),
		AvgPrice:    decimal.RequireFromString("3.40"),
		PricePoints: 3,
	}}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "receiptradar:compare:milk", Key("MILK 2L"))
	assert.Equal(t, Key("Whole Milk"), Key("whole   milk"))
}

func TestCompareStores(t *testing.T) {
	payload, err := json.Marshal(sampleStats())
	require.NoError(t, err)
	const key = "receiptradar:compare:bread white"

	tests := []struct {
		name        string
		setup       func(mock redismock.ClientMock)
		nextErr     error
		wantCalls   int
		wantErr     bool
		wantOutcome string
	}{
		{
			name: "hit skips the store",
			setup: func(mock redismock.ClientMock) {
				mock.ExpectGet(key).SetVal(string(payload))
			},
			wantCalls:   0,
			wantOutcome: metrics.OutcomeHit,
		},
		{
			name: "miss reads through and fills",
			setup: func(mock redismock.ClientMock) {
				mock.ExpectGet(key).RedisNil()
				mock.ExpectSet(key, string(payload), 10*time.Minute).SetVal("OK")
			},
			wantCalls:   1,
			wantOutcome: metrics.OutcomeMiss,
		},
		{
			name: "redis down degrades to the store",
			setup: func(mock redismock.ClientMock) {
				mock.ExpectGet(key).SetErr(errors.New("dial tcp: connection refused"))
				mock.ExpectSet(key, string(payload), 10*time.Minute).SetErr(errors.New("dial tcp: connection refused"))
			},
			wantCalls:   1,
			wantOutcome: metrics.OutcomeError,
		},
		{
			name: "store error is returned and nothing is cached",
			setup: func(mock redismock.ClientMock) {
				mock.ExpectGet(key).RedisNil()
			},
			nextErr:     errors.New("query failed"),
			wantCalls:   1,
			wantErr:     true,
			wantOutcome: metrics.OutcomeMiss,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, mock := redismock.NewClientMock()
			next := &stubComparer{stats: sampleStats(), err: tt.nextErr}
			m := metrics.New(prometheus.NewRegistry())
			c := NewComparisonCache(client, next, 10*time.Minute, nil, m)
			tt.setup(mock)

			stats, err := c.CompareStores(context.Background(), "The Bread White")
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				require.Len(t, stats, 1)
				assert.Equal(t, "FreshMart", stats[0].StoreName)
				assert.True(t, stats[0].AvgPrice.Equal(decimal.RequireFromString("3.40")))
			}
			assert.Len(t, next.calls, tt.wantCalls)
			for _, call := range next.calls {
				assert.Equal(t, "bread white", call)
			}
			assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookupCounter(tt.wantOutcome)))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCompareStores_EmptyNameBypassesCache(t *testing.T) {
	client, mock := redismock.NewClientMock()
	next := &stubComparer{stats: []entity.StorePriceStats{}}
	c := NewComparisonCache(client, next, 0, nil, nil)

	_, err := c.CompareStores(context.Background(), "of 2L")
	require.NoError(t, err)
	assert.Len(t, next.calls, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInvalidate(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewComparisonCache(client, &stubComparer{}, 0, nil, nil)
	mock.ExpectDel("receiptradar:compare:milk", "receiptradar:compare:bread").SetVal(2)

	require.NoError(t, c.Invalidate(context.Background(), "MILK 2L", "BREAD", "xy"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
