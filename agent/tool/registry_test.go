package tool

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contractx "github.com/tanpawarit/vehicle-order-agent/agent/contract"
	orderx "github.com/tanpawarit/vehicle-order-agent/agent/order"
	statex "github.com/tanpawarit/vehicle-order-agent/agent/state"
	fipex "github.com/tanpawarit/vehicle-order-agent/pkg/fipe"
	metricsx "github.com/tanpawarit/vehicle-order-agent/pkg/metrics"
)

type fakeOrderBook struct {
	placed  []orderx.Request
	records []statex.OrderRecord
	err     error
}

func (f *fakeOrderBook) PlaceOrder(_ context.Context, req orderx.Request) (statex.OrderRecord, error) {
	f.placed = append(f.placed, req)
	if f.err != nil {
		return statex.OrderRecord{}, f.err
	}
	return statex.OrderRecord{ID: int64(len(f.placed)), CustomerName: req.CustomerName}, nil
}

func (f *fakeOrderBook) ListOrders(context.Context) ([]statex.OrderRecord, error) {
	return f.records, f.err
}

func newCatalogServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/carros/marcas", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `[{"nome":"Acura","codigo":"1"},{"nome":"Agrale","codigo":"2"},{"nome":"Alfa Romeo","codigo":"3"},{"nome":"AM Gen","codigo":"4"},{"nome":"Asia Motors","codigo":"5"}]`)
	})
	mux.HandleFunc("/motos/marcas", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `[]`)
	})
	mux.HandleFunc("/carros/marcas/21/modelos", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `{"modelos":[{"nome":"147 C/ CL","codigo":437},{"nome":"Argo 1.0","codigo":4828},{"nome":"Uno","codigo":999}],"anos":[]}`)
	})
	mux.HandleFunc("/carros/marcas/21/modelos/437/anos", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `[{"nome":"1986 Gasolina","codigo":"1986-1"}]`)
	})
	mux.HandleFunc("/carros/marcas/21/modelos/4828/anos", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `[{"nome":"2020 Flex","codigo":"2020-3"},{"nome":"2019 Flex","codigo":"2019-3"},{"nome":"2018 Flex","codigo":"2018-3"}]`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newCatalog(t *testing.T, baseURL string) *fipex.Client {
	t.Helper()

	client, err := fipex.NewClient(fipex.Config{BaseURL: baseURL, Timeout: 2 * time.Second},
		fipex.WithSleep(func(context.Context, time.Duration) error { return nil }),
	)
	require.NoError(t, err)
	return client
}

func newOrderService(t *testing.T) *orderx.Service {
	t.Helper()

	store, err := statex.Open(context.Background(), statex.Config{
		Driver: statex.DriverSQLite,
		DSN:    "file:" + filepath.Join(t.TempDir(), "orders.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	svc, err := orderx.NewService(store)
	require.NoError(t, err)
	return svc
}

func TestNewRegistersFourTools(t *testing.T) {
	t.Parallel()

	reg, err := New(newCatalog(t, "http://127.0.0.1:1"), &fakeOrderBook{})
	require.NoError(t, err)

	infos := reg.Infos()
	require.Len(t, infos, 4)
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name)
		assert.NotEmpty(t, info.Desc)
	}
	assert.Equal(t, []string{ToolGetBrands, ToolGetModelsAndYears, ToolOrderVehicle, ToolViewOrders}, names)

	specs := reg.Specs()
	assert.Equal(t, "vehicle_type=<vehicle_type>;limit=<limit, default 20>", specs[0].Schema())
	assert.Equal(t,
		"customer_name=<customer_name>;vehicle_type=<vehicle_type>;brand_code=<brand_code>;model_code=<model_code>;year_code=<year_code>",
		specs[2].Schema())
}

func TestNewRegistryRejectsInvalidSpecs(t *testing.T) {
	t.Parallel()

	noop := func(context.Context, Args) (any, error) { return "ok", nil }

	_, err := NewRegistry(ToolSpec{Name: "a", Handler: noop}, ToolSpec{Name: "a", Handler: noop})
	require.Error(t, err)

	_, err = NewRegistry(ToolSpec{Name: "a"})
	require.Error(t, err)

	_, err = NewRegistry(ToolSpec{Handler: noop})
	require.Error(t, err)
}

func TestGetBrandsLimit(t *testing.T) {
	t.Parallel()

	srv := newCatalogServer(t)
	reg, err := New(newCatalog(t, srv.URL), &fakeOrderBook{})
	require.NoError(t, err)

	res := reg.Invoke(context.Background(), ToolGetBrands, "vehicle_type=cars;limit=3")
	require.False(t, res.Failed(), res.Error)

	brands, ok := res.Result.([]fipex.Brand)
	require.True(t, ok, "unexpected result type %T", res.Result)
	assert.Equal(t, []fipex.Brand{
		{Name: "Acura", Code: "1"},
		{Name: "Agrale", Code: "2"},
		{Name: "Alfa Romeo", Code: "3"},
	}, brands)
}

func TestGetBrandsDefaultLimitAndJSONInput(t *testing.T) {
	t.Parallel()

	srv := newCatalogServer(t)
	reg, err := New(newCatalog(t, srv.URL), &fakeOrderBook{})
	require.NoError(t, err)

	res := reg.Invoke(context.Background(), ToolGetBrands, `{"input":"vehicle_type=carros"}`)
	require.False(t, res.Failed(), res.Error)
	assert.Len(t, res.Result, 5)

	res = reg.Invoke(context.Background(), ToolGetBrands, `{"vehicle_type":"cars","limit":2}`)
	require.False(t, res.Failed(), res.Error)
	assert.Len(t, res.Result, 2)
}

func TestGetBrandsEmptyIsNotFound(t *testing.T) {
	t.Parallel()

	srv := newCatalogServer(t)
	reg, err := New(newCatalog(t, srv.URL), &fakeOrderBook{})
	require.NoError(t, err)

	res := reg.Invoke(context.Background(), ToolGetBrands, "vehicle_type=motorcycles")
	require.True(t, res.Failed())
	assert.Contains(t, res.Error, contractx.ErrNotFound.Error())
}

func TestGetModelsAndYears(t *testing.T) {
	t.Parallel()

	srv := newCatalogServer(t)
	reg, err := New(newCatalog(t, srv.URL), &fakeOrderBook{})
	require.NoError(t, err)

	res := reg.Invoke(context.Background(), ToolGetModelsAndYears, "vehicle_type=cars;brand_code=21")
	require.False(t, res.Failed(), res.Error)

	models, ok := res.Result.([]fipex.ModelYears)
	require.True(t, ok, "unexpected result type %T", res.Result)
	require.Len(t, models, 2)
	assert.Equal(t, "437", models[0].ModelCode)
	assert.Equal(t, "4828", models[1].ModelCode)
	assert.Equal(t, []fipex.Year{{Name: "2020 Flex", Code: "2020-3"}, {Name: "2019 Flex", Code: "2019-3"}}, models[1].Years)

	content := res.Content()
	assert.Contains(t, content, "Argo 1.0")
	assert.Contains(t, content, "2020-3")
}

func TestMalformedArgumentsBecomeErrorPayload(t *testing.T) {
	t.Parallel()

	orders := &fakeOrderBook{}
	reg, err := New(newCatalog(t, "http://127.0.0.1:1"), orders)
	require.NoError(t, err)

	for _, tc := range []struct {
		tool string
		raw  string
	}{
		{ToolGetBrands, ""},
		{ToolGetBrands, "vehicle_type=boats"},
		{ToolGetBrands, "vehicle_type=cars;limit=zero"},
		{ToolGetModelsAndYears, "vehicle_type=cars"},
		{ToolOrderVehicle, "customer_name=Alice;vehicle_type=cars"},
		{ToolOrderVehicle, "garbage"},
	} {
		res := reg.Invoke(context.Background(), tc.tool, tc.raw)
		assert.True(t, res.Failed(), "%s(%q) should fail", tc.tool, tc.raw)
		assert.Contains(t, res.Error, contractx.ErrMalformedArgument.Error())
		assert.Nil(t, res.Result)
	}
	assert.Empty(t, orders.placed)
}

func TestCatalogFailureLeavesStoreUntouched(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	svc := newOrderService(t)
	reg, err := New(newCatalog(t, srv.URL), svc)
	require.NoError(t, err)

	res := reg.Invoke(context.Background(), ToolGetBrands, "vehicle_type=cars")
	require.True(t, res.Failed())
	assert.Contains(t, res.Error, contractx.ErrUpstreamUnavailable.Error())
	assert.True(t, len(res.Content()) > 0)
	assert.Equal(t, int32(1), hits.Load())

	view := reg.Invoke(context.Background(), ToolViewOrders, "")
	require.False(t, view.Failed(), view.Error)
	assert.Equal(t, NoOrdersMessage, view.Result)
}

func TestUnreachableCatalogIsErrorPayload(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	reg, err := New(newCatalog(t, baseURL), &fakeOrderBook{})
	require.NoError(t, err)

	res := reg.Invoke(context.Background(), ToolGetModelsAndYears, "vehicle_type=cars;brand_code=21")
	require.True(t, res.Failed())
	assert.Contains(t, res.Error, contractx.ErrUpstreamUnavailable.Error())
}

func TestOrderVehicleScenario(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	reg, err := New(newCatalog(t, "http://127.0.0.1:1"), newOrderService(t))
	require.NoError(t, err)

	res := reg.Invoke(ctx, ToolOrderVehicle, "customer_name=Alice;vehicle_type=cars;brand_code=21;model_code=4828;year_code=2020-3")
	require.False(t, res.Failed(), res.Error)

	confirmation, ok := res.Result.(OrderConfirmation)
	require.True(t, ok, "unexpected result type %T", res.Result)
	assert.Equal(t, int64(1), confirmation.Order.ID)
	assert.Equal(t, "Alice", confirmation.Order.CustomerName)
	assert.Equal(t, "cars", confirmation.Order.VehicleType)
	assert.Equal(t, "21", confirmation.Order.BrandCode)
	assert.Equal(t, "4828", confirmation.Order.ModelCode)
	assert.Equal(t, "2020-3", confirmation.Order.YearCode)
	assert.Contains(t, confirmation.Message, "Order #1 placed for Alice")
	assert.Contains(t, confirmation.Message, confirmation.Order.DeliveryDate)

	view := reg.Invoke(ctx, ToolViewOrders, "customer_name=Bob")
	require.False(t, view.Failed(), view.Error)
	orders, ok := view.Result.([]OrderView)
	require.True(t, ok, "unexpected result type %T", view.Result)
	require.Len(t, orders, 1)
	assert.Equal(t, confirmation.Order, orders[0])
}

func TestOrderPersistenceErrorPayload(t *testing.T) {
	t.Parallel()

	orders := &fakeOrderBook{err: fmt.Errorf("%w: disk full", contractx.ErrOrderPersistence)}
	reg, err := New(newCatalog(t, "http://127.0.0.1:1"), orders)
	require.NoError(t, err)

	res := reg.Invoke(context.Background(), ToolOrderVehicle, "customer_name=Alice;vehicle_type=cars;brand_code=21;model_code=4828;year_code=2020-3")
	require.True(t, res.Failed())
	assert.Contains(t, res.Error, "disk full")
	assert.Equal(t, "error: "+res.Error, res.Content())
}

func TestInvokeUnknownTool(t *testing.T) {
	t.Parallel()

	reg, err := New(newCatalog(t, "http://127.0.0.1:1"), &fakeOrderBook{})
	require.NoError(t, err)

	unknown := metricsx.ToolCallsTotal.WithLabelValues("unknown", "error")
	before := testutil.ToFloat64(unknown)

	res := reg.Invoke(context.Background(), "get_weather", "lat=1")
	require.True(t, res.Failed())
	assert.GreaterOrEqual(t, testutil.ToFloat64(unknown), before+1)
	assert.Equal(t, "get_weather", res.Tool)
	assert.Contains(t, res.Error, ToolGetBrands)
}

func TestInvokeRecoversPanics(t *testing.T) {
	t.Parallel()

	reg, err := NewRegistry(ToolSpec{
		Name: "explode",
		Handler: func(context.Context, Args) (any, error) {
			panic("boom")
		},
	})
	require.NoError(t, err)

	res := reg.Invoke(context.Background(), "explode", "")
	require.True(t, res.Failed())
	assert.Contains(t, res.Error, "boom")
}

func TestExecuteKeepsOrderAndCallIDs(t *testing.T) {
	t.Parallel()

	var calls []string
	echo := func(name string) Handler {
		return func(_ context.Context, args Args) (any, error) {
			calls = append(calls, name)
			if args["fail"] == "yes" {
				return nil, errors.New("requested failure")
			}
			return name, nil
		}
	}
	reg, err := NewRegistry(
		ToolSpec{Name: "first", Handler: echo("first")},
		ToolSpec{Name: "second", Handler: echo("second")},
	)
	require.NoError(t, err)

	results := reg.Execute(context.Background(), []contractx.ToolRequest{
		{CallID: "c1", Tool: "second", Input: ""},
		{CallID: "c2", Tool: "first", Input: `{"input":"fail=yes"}`},
	})
	require.Len(t, results, 2)
	assert.Equal(t, []string{"second", "first"}, calls)

	assert.Equal(t, "c1", results[0].CallID)
	assert.Equal(t, "second", results[0].Result)
	assert.Equal(t, "c2", results[1].CallID)
	assert.Equal(t, "requested failure", results[1].Error)
}
