//go:build integration

package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/joseph-ayodele/receiptradar/internal/entity"
	"github.com/joseph-ayodele/receiptradar/internal/pricing"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
			Env: map[string]string{
				"POSTGRES_DB":       "radar",
				"POSTGRES_USER":     "radar",
				"POSTGRES_PASSWORD": "radar",
			},
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)
	return fmt.Sprintf("postgres://radar:radar@%s:%s/radar?sslmode=disable", host, port.Port())
}

func TestPriceHistoryRoundTrip_Integration(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	mg, err := NewMigrator(dsn, nil)
	require.NoError(t, err)
	require.NoError(t, mg.Up())
	require.NoError(t, mg.Up(), "second up is a no-op")
	require.NoError(t, mg.Close())

	pool, err := Open(ctx, Config{DSN: dsn, DialTimeout: 10 * time.Second}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { Close(pool, nil) })
	require.NoError(t, HealthCheck(ctx, pool, 5*time.Second, nil))

	stores := NewStoreRepository(pool, nil)
	users := NewUserRepository(pool, nil)
	history := NewPriceHistoryRepository(pool, nil)

	fresh, err := stores.Create(ctx, entity.Store{Name: "FreshMart", Active: true})
	require.NoError(t, err)
	other, err := stores.Create(ctx, entity.Store{Name: "Countdown", Active: true})
	require.NoError(t, err)

	userID := uuid.New()
	anon, err := users.Register(ctx, userID)
	require.NoError(t, err)
	again, err := users.Register(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, anon, again)

	today := entity.Day(time.Now())
	milk := func(store uuid.UUID, price string) entity.ReceiptData {
		rec := entity.NewReceiptData()
		rec.Date = &today
		rec.Items = []entity.ReceiptItem{{Name: "Milk 2L", Price: decimal.RequireFromString(price), Quantity: 1, Confidence: 0.8}}
		return rec
	}

	recorder := pricing.NewRecorder(history, nil, nil)
	require.True(t, recorder.StoreReceiptPrices(ctx, milk(fresh.ID, "5.00"), fresh.ID, userID))
	require.True(t, recorder.StoreReceiptPrices(ctx, milk(fresh.ID, "4.20"), fresh.ID, userID), "same day upserts")
	require.True(t, recorder.StoreReceiptPrices(ctx, milk(other.ID, "5.00"), other.ID, userID))
	assert.False(t, recorder.StoreReceiptPrices(ctx, milk(fresh.ID, "4.00"), fresh.ID, uuid.New()), "unknown user")

	points, err := history.PriceHistory(ctx, pricing.NormalizeItemName("MILK"), &fresh.ID, 30)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.True(t, points[0].Price.Equal(decimal.RequireFromString("4.20")))

	stats, err := history.CompareStores(ctx, "milk")
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, fresh.ID, stats[0].StoreID)

	counts, err := CountRows(ctx, pool)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts.Stores)
	assert.Equal(t, int64(2), counts.PricePoints)
	assert.Equal(t, int64(3), counts.Snapshots)

	analyzer := pricing.NewAnalyzer(history, nil)
	analysis := analyzer.AnalyzeBasket(ctx, []entity.ReceiptItem{
		{Name: "MILK 2L", Price: decimal.RequireFromString("5.00"), Quantity: 1},
	}, other.ID)
	assert.True(t, analysis.TotalSavings.Equal(decimal.RequireFromString("0.80")))
}
