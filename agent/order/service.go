package order

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/vehicle-order-agent/agent/contract"
	statex "github.com/tanpawarit/vehicle-order-agent/agent/state"
	fipex "github.com/tanpawarit/vehicle-order-agent/pkg/fipe"
	metricsx "github.com/tanpawarit/vehicle-order-agent/pkg/metrics"
)

const (
	MinDeliveryDays = 5
	MaxDeliveryDays = 14
)

// Request is a complete, typed order request.
type Request struct {
	CustomerName string
	VehicleType  fipex.VehicleType
	BrandCode    string
	ModelCode    string
	YearCode     string
}

func (r Request) normalized() (Request, error) {
	out := Request{
		CustomerName: strings.TrimSpace(r.CustomerName),
		VehicleType:  fipex.VehicleType(strings.TrimSpace(string(r.VehicleType))),
		BrandCode:    strings.TrimSpace(r.BrandCode),
		ModelCode:    strings.TrimSpace(r.ModelCode),
		YearCode:     strings.TrimSpace(r.YearCode),
	}

	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"customer_name", out.CustomerName},
		{"vehicle_type", string(out.VehicleType)},
		{"brand_code", out.BrandCode},
		{"model_code", out.ModelCode},
		{"year_code", out.YearCode},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return Request{}, fmt.Errorf("%w: empty field(s): %s", contractx.ErrMalformedArgument, strings.Join(missing, ", "))
	}
	return out, nil
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRandom replaces the source of intn(n) in [0, n).
func WithRandom(intn func(n int) int) Option {
	return func(s *Service) {
		if intn != nil {
			s.intn = intn
		}
	}
}

// Service places and lists orders. PlaceOrder is the only mutating operation.
type Service struct {
	store statex.Store
	now   func() time.Time
	intn  func(n int) int
}

func NewService(store statex.Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("order store is required")
	}

	s := &Service{
		store: store,
		now:   time.Now,
		intn:  rand.IntN,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// PlaceOrder stamps the order with the current time, draws a delivery
// estimate of 5 to 14 days and commits it.
func (s *Service) PlaceOrder(ctx context.Context, req Request) (statex.OrderRecord, error) {
	req, err := req.normalized()
	if err != nil {
		return statex.OrderRecord{}, err
	}

	orderDate := s.now()
	deliveryDays := MinDeliveryDays + s.intn(MaxDeliveryDays-MinDeliveryDays+1)

	rec := &statex.OrderRecord{
		CustomerName: req.CustomerName,
		VehicleType:  string(req.VehicleType),
		BrandCode:    req.BrandCode,
		ModelCode:    req.ModelCode,
		YearCode:     req.YearCode,
		OrderDate:    orderDate,
		DeliveryDate: orderDate.AddDate(0, 0, deliveryDays),
	}

	if _, err := s.store.Insert(ctx, rec); err != nil {
		return statex.OrderRecord{}, fmt.Errorf("%w: %w", contractx.ErrOrderPersistence, err)
	}
	metricsx.OrdersPlacedTotal.Inc()

	log.Info().
		Int64("order_id", rec.ID).
		Str("vehicle_type", rec.VehicleType).
		Str("brand_code", rec.BrandCode).
		Str("model_code", rec.ModelCode).
		Int("delivery_days", deliveryDays).
		Msg("order placed")

	return *rec, nil
}

func (s *Service) ListOrders(ctx context.Context) ([]statex.OrderRecord, error) {
	return s.store.ScanAll(ctx)
}
