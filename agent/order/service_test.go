package order

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contractx "github.com/tanpawarit/vehicle-order-agent/agent/contract"
	statex "github.com/tanpawarit/vehicle-order-agent/agent/state"
	fipex "github.com/tanpawarit/vehicle-order-agent/pkg/fipe"
	metricsx "github.com/tanpawarit/vehicle-order-agent/pkg/metrics"
)

type failingStore struct {
	err error
}

func (f failingStore) Insert(context.Context, *statex.OrderRecord) (int64, error) {
	return 0, f.err
}

func (f failingStore) ScanAll(context.Context) ([]statex.OrderRecord, error) {
	return nil, nil
}

func newSQLiteStore(t *testing.T) *statex.BunStore {
	t.Helper()

	store, err := statex.Open(context.Background(), statex.Config{
		Driver: statex.DriverSQLite,
		DSN:    "file:" + filepath.Join(t.TempDir(), "orders.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func aliceRequest() Request {
	return Request{
		CustomerName: "Alice",
		VehicleType:  fipex.Cars,
		BrandCode:    "21",
		ModelCode:    "4828",
		YearCode:     "2020-3",
	}
}

func TestPlaceOrderScenario(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	fixedNow := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	svc, err := NewService(newSQLiteStore(t),
		WithClock(func() time.Time { return fixedNow }),
		WithRandom(func(n int) int { return 3 }),
	)
	require.NoError(t, err)

	rec, err := svc.PlaceOrder(ctx, aliceRequest())
	require.NoError(t, err)

	assert.Equal(t, int64(1), rec.ID)
	assert.Equal(t, "Alice", rec.CustomerName)
	assert.Equal(t, "cars", rec.VehicleType)
	assert.Equal(t, "21", rec.BrandCode)
	assert.Equal(t, "4828", rec.ModelCode)
	assert.Equal(t, "2020-3", rec.YearCode)
	assert.True(t, rec.OrderDate.Equal(fixedNow))
	assert.True(t, rec.DeliveryDate.Equal(fixedNow.AddDate(0, 0, 8)))

	orders, err := svc.ListOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, rec, orders[0])
}

func TestPlaceOrderDeliveryWindowAndIDs(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, err := NewService(newSQLiteStore(t))
	require.NoError(t, err)

	var lastID int64
	for i := 0; i < 25; i++ {
		rec, err := svc.PlaceOrder(ctx, aliceRequest())
		require.NoError(t, err)

		earliest := rec.OrderDate.AddDate(0, 0, MinDeliveryDays)
		latest := rec.OrderDate.AddDate(0, 0, MaxDeliveryDays)
		assert.False(t, rec.DeliveryDate.Before(earliest), "delivery %s before %s", rec.DeliveryDate, earliest)
		assert.False(t, rec.DeliveryDate.After(latest), "delivery %s after %s", rec.DeliveryDate, latest)
		assert.True(t, rec.DeliveryDate.After(rec.OrderDate))

		assert.Greater(t, rec.ID, lastID)
		lastID = rec.ID
	}
}

func TestPlaceOrderRandomBounds(t *testing.T) {
	t.Parallel()

	var gotN int
	fixedNow := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, pick := range []int{0, 9} {
		svc, err := NewService(newSQLiteStore(t),
			WithClock(func() time.Time { return fixedNow }),
			WithRandom(func(n int) int { gotN = n; return pick }),
		)
		require.NoError(t, err)

		rec, err := svc.PlaceOrder(context.Background(), aliceRequest())
		require.NoError(t, err)
		assert.True(t, rec.DeliveryDate.Equal(fixedNow.AddDate(0, 0, MinDeliveryDays+pick)))
	}
	assert.Equal(t, 10, gotN)
}

func TestPlaceOrderValidation(t *testing.T) {
	t.Parallel()

	svc, err := NewService(failingStore{err: errors.New("must not be called")})
	require.NoError(t, err)

	req := aliceRequest()
	req.CustomerName = "   "
	req.YearCode = ""
	_, err = svc.PlaceOrder(context.Background(), req)
	require.ErrorIs(t, err, contractx.ErrMalformedArgument)
	assert.Contains(t, err.Error(), "customer_name")
	assert.Contains(t, err.Error(), "year_code")
}

func TestPlaceOrderPersistenceError(t *testing.T) {
	t.Parallel()

	dbErr := errors.New("disk full")
	svc, err := NewService(failingStore{err: dbErr})
	require.NoError(t, err)

	_, err = svc.PlaceOrder(context.Background(), aliceRequest())
	require.ErrorIs(t, err, contractx.ErrOrderPersistence)
	require.ErrorIs(t, err, dbErr)
}

func TestPlaceOrderCountsCommittedOrders(t *testing.T) {
	t.Parallel()

	svc, err := NewService(newSQLiteStore(t))
	require.NoError(t, err)

	before := testutil.ToFloat64(metricsx.OrdersPlacedTotal)
	_, err = svc.PlaceOrder(context.Background(), aliceRequest())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, testutil.ToFloat64(metricsx.OrdersPlacedTotal), before+1)
}

func TestListOrdersIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, err := NewService(newSQLiteStore(t))
	require.NoError(t, err)

	for _, name := range []string{"Alice", "Bob"} {
		req := aliceRequest()
		req.CustomerName = name
		_, err := svc.PlaceOrder(ctx, req)
		require.NoError(t, err)
	}

	first, err := svc.ListOrders(ctx)
	require.NoError(t, err)
	second, err := svc.ListOrders(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, "Alice", first[0].CustomerName)
	assert.Equal(t, "Bob", first[1].CustomerName)
}

func TestNewServiceRequiresStore(t *testing.T) {
	t.Parallel()

	_, err := NewService(nil)
	require.Error(t, err)
}
