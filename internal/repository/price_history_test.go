package repository

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/receiptradar/internal/common"
	"github.com/joseph-ayodele/receiptradar/internal/entity"
)

var fixedNow = time.Date(2024, 12, 20, 15, 0, 0, 0, time.UTC)

func newMockHistory(t *testing.T) (pgxmock.PgxPoolIface, *priceHistoryRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return mock, historyOver(t, mock)
}

func historyOver(t *testing.T, mock pgxmock.PgxPoolIface) *priceHistoryRepository {
	t.Helper()
	t.Cleanup(mock.Close)
	repo := NewPriceHistoryRepository(mock, nil).(*priceHistoryRepository)
	repo.now = func() time.Time { return fixedNow }
	return repo
}

func sampleBatch() entity.PriceBatch {
	storeID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	day := time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC)
	return entity.PriceBatch{
		UserID:  uuid.MustParse("22222222-2222-2222-2222-222222222222"),
		StoreID: storeID,
		Points: []entity.PricePoint{
			{StoreID: storeID, ItemName: "milk", Price: decimal.RequireFromString("4.50"), Date: day, Source: "receipt", ConfidenceScore: 0.8},
			{StoreID: storeID, ItemName: "bread white", Price: decimal.RequireFromString("3.99"), Date: day, Source: "receipt", ConfidenceScore: 0.65},
		},
		Snapshot: entity.BasketSnapshot{
			StoreID:     storeID,
			TotalAmount: decimal.RequireFromString("8.49"),
			ItemCount:   2,
			Date:        day,
			Items: []entity.SnapshotItem{
				{Name: "milk", Price: decimal.RequireFromString("4.50"), PriceRange: "0-5"},
				{Name: "bread white", Price: decimal.RequireFromString("3.99"), PriceRange: "0-5"},
			},
		},
	}
}

func TestRecordReceipt(t *testing.T) {
	dialErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}

	tests := []struct {
		name       string
		setup      func(mock pgxmock.PgxPoolIface, b entity.PriceBatch)
		wantErr    bool
		wantTarget error
	}{
		{
			name: "commits points and snapshot",
			setup: func(mock pgxmock.PgxPoolIface, b entity.PriceBatch) {
				mock.ExpectBegin()
				mock.ExpectQuery("SELECT anonymized_id FROM users").
					WithArgs(b.UserID).
					WillReturnRows(pgxmock.NewRows([]string{"anonymized_id"}).AddRow("anon-7f3"))
				for _, p := range b.Points {
					mock.ExpectExec("INSERT INTO price_history").
						WithArgs(b.StoreID, p.ItemName, pgxmock.AnyArg(), pgxmock.AnyArg(), "receipt", p.ConfidenceScore, p.Volume, p.ImageURL).
						WillReturnResult(pgxmock.NewResult("INSERT", 1))
				}
				mock.ExpectExec("INSERT INTO basket_snapshots").
					WithArgs(pgxmock.AnyArg(), "anon-7f3", b.StoreID, pgxmock.AnyArg(), 2, pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "unknown user rolls back",
			setup: func(mock pgxmock.PgxPoolIface, b entity.PriceBatch) {
				mock.ExpectBegin()
				mock.ExpectQuery("SELECT anonymized_id FROM users").
					WithArgs(b.UserID).
					WillReturnRows(pgxmock.NewRows([]string{"anonymized_id"}))
				mock.ExpectRollback()
			},
			wantErr:    true,
			wantTarget: common.ErrNotFound,
		},
		{
			name: "failed upsert rolls back everything",
			setup: func(mock pgxmock.PgxPoolIface, b entity.PriceBatch) {
				mock.ExpectBegin()
				mock.ExpectQuery("SELECT anonymized_id FROM users").
					WithArgs(b.UserID).
					WillReturnRows(pgxmock.NewRows([]string{"anonymized_id"}).AddRow("anon-7f3"))
				mock.ExpectExec("INSERT INTO price_history").
					WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
						pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
				mock.ExpectExec("INSERT INTO price_history").
					WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
						pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnError(errors.New("check constraint violated"))
				mock.ExpectRollback()
			},
			wantErr: true,
		},
		{
			name: "begin failure is unavailable",
			setup: func(mock pgxmock.PgxPoolIface, b entity.PriceBatch) {
				mock.ExpectBegin().WillReturnError(dialErr)
			},
			wantErr:    true,
			wantTarget: common.ErrUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, repo := newMockHistory(t)
			batch := sampleBatch()
			tt.setup(mock, batch)

			err := repo.RecordReceipt(context.Background(), batch)
			if tt.wantErr {
				require.Error(t, err)
				if tt.wantTarget != nil {
					assert.ErrorIs(t, err, tt.wantTarget)
				}
			} else {
				require.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPriceHistory(t *testing.T) {
	mock, repo := newMockHistory(t)
	storeID := uuid.New()
	volume := "2L"
	d1 := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("FROM price_history ph").
		WithArgs("milk", entity.Day(fixedNow).AddDate(0, 0, -90), (*uuid.UUID)(nil)).
		WillReturnRows(pgxmock.NewRows([]string{
			"store_id", "name", "is_active", "item_name", "price", "date", "source", "confidence_score", "volume", "image_url",
		}).
			AddRow(storeID, "FreshMart", true, "milk", decimal.RequireFromString("4.20"), d1, "receipt", 0.9, &volume, nil).
			AddRow(storeID, "FreshMart", true, "milk whole", decimal.RequireFromString("4.40"), d2, "receipt", 0.8, nil, nil))

	points, err := repo.PriceHistory(context.Background(), "milk", nil, 0)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "FreshMart", points[0].StoreName)
	assert.True(t, points[0].StoreActive)
	assert.True(t, points[0].Price.Equal(decimal.RequireFromString("4.20")))
	require.NotNil(t, points[0].Volume)
	assert.Equal(t, "2L", *points[0].Volume)
	assert.Nil(t, points[1].Volume)
	assert.True(t, points[0].Date.Before(points[1].Date))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPriceHistory_QueryFailureIsUnavailable(t *testing.T) {
	mock, repo := newMockHistory(t)
	mock.ExpectQuery("FROM price_history ph").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&net.OpError{Op: "read", Net: "tcp", Err: errors.New("connection reset by peer")})

	_, err := repo.PriceHistory(context.Background(), "milk", nil, 30)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompareStores(t *testing.T) {
	mock, repo := newMockHistory(t)
	cheap, dear := uuid.New(), uuid.New()

	mock.ExpectQuery("GROUP BY s.id, s.name").
		WithArgs("bread", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "min", "max", "avg", "count"}).
			AddRow(cheap, "FreshMart", decimal.RequireFromString("3.20"), decimal.RequireFromString("3.60"), decimal.RequireFromString("3.40"), 3).
			AddRow(dear, "Countdown", decimal.RequireFromString("3.90"), decimal.RequireFromString("4.10"), decimal.RequireFromString("4.00"), 2))

	stats, err := repo.CompareStores(context.Background(), "bread")
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, cheap, stats[0].StoreID)
	assert.Equal(t, 3, stats[0].PricePoints)
	assert.True(t, stats[0].AvgPrice.LessThan(stats[1].AvgPrice))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActiveCashbackOffers(t *testing.T) {
	mock, repo := newMockHistory(t)
	storeID := uuid.New()
	offerID := uuid.New()
	amount := decimal.RequireFromString("0.50")
	from := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	day := time.Date(2024, 12, 20, 18, 30, 0, 0, time.UTC)

	mock.ExpectQuery("FROM cashback_offers").
		WithArgs(storeID, "milk", entity.Day(day)).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "store_id", "item_name", "discount_amount", "discount_percentage",
			"valid_from", "valid_until", "is_active", "description",
		}).AddRow(offerID, storeID, nil, &amount, nil, from, until, true, "50c off anything"))

	offers, err := repo.ActiveCashbackOffers(context.Background(), storeID, "milk", day)
	require.NoError(t, err)
	require.Len(t, offers, 1)
	assert.Nil(t, offers[0].ItemName)
	require.NotNil(t, offers[0].DiscountAmount)
	assert.True(t, offers[0].Value(decimal.RequireFromString("4.00")).Equal(amount))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	repo := historyOver(t, mock)
	mock.ExpectPing().WillReturnError(errors.New("no route to host"))

	err = repo.Ping(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}
