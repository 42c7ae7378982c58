package tool

import (
	"context"
	"errors"
	"fmt"

	orderx "github.com/tanpawarit/vehicle-order-agent/agent/order"
	statex "github.com/tanpawarit/vehicle-order-agent/agent/state"
)

const (
	ToolOrderVehicle = "order_vehicle"
	ToolViewOrders   = "view_orders"

	argCustomerName = "customer_name"
	argModelCode    = "model_code"
	argYearCode     = "year_code"

	NoOrdersMessage = "No orders found."

	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

// OrderBook places and lists orders.
type OrderBook interface {
	PlaceOrder(ctx context.Context, req orderx.Request) (statex.OrderRecord, error)
	ListOrders(ctx context.Context) ([]statex.OrderRecord, error)
}

// OrderView is the presentation of an order given back to the model.
type OrderView struct {
	ID           int64  `json:"id"`
	CustomerName string `json:"customer_name"`
	VehicleType  string `json:"vehicle_type"`
	BrandCode    string `json:"brand_code"`
	ModelCode    string `json:"model_code"`
	YearCode     string `json:"year_code"`
	OrderDate    string `json:"order_date"`
	DeliveryDate string `json:"delivery_date"`
}

func NewOrderView(rec statex.OrderRecord) OrderView {
	return OrderView{
		ID:           rec.ID,
		CustomerName: rec.CustomerName,
		VehicleType:  rec.VehicleType,
		BrandCode:    rec.BrandCode,
		ModelCode:    rec.ModelCode,
		YearCode:     rec.YearCode,
		OrderDate:    rec.OrderDate.Format(dateTimeLayout),
		DeliveryDate: rec.DeliveryDate.Format(dateLayout),
	}
}

type OrderConfirmation struct {
	Message string    `json:"message"`
	Order   OrderView `json:"order"`
}

func decodeOrderRequest(args Args) (orderx.Request, error) {
	vt, err := args.VehicleType(argVehicleType)
	if err != nil {
		return orderx.Request{}, err
	}
	return orderx.Request{
		CustomerName: args[argCustomerName],
		VehicleType:  vt,
		BrandCode:    args[argBrandCode],
		ModelCode:    args[argModelCode],
		YearCode:     args[argYearCode],
	}, nil
}

func OrderVehicleTool(orders OrderBook) ToolSpec {
	return ToolSpec{
		Name:        ToolOrderVehicle,
		Description: "Place a vehicle order. Requires customer_name, vehicle_type, brand_code, model_code and year_code. An order exists only when this tool confirms it.",
		Required:    []string{argCustomerName, argVehicleType, argBrandCode, argModelCode, argYearCode},
		Handler: func(ctx context.Context, args Args) (any, error) {
			req, err := decodeOrderRequest(args)
			if err != nil {
				return nil, err
			}

			rec, err := orders.PlaceOrder(ctx, req)
			if err != nil {
				return nil, err
			}
			return OrderConfirmation{
				Message: fmt.Sprintf("Order #%d placed for %s. Estimated delivery: %s.",
					rec.ID, rec.CustomerName, rec.DeliveryDate.Format(dateLayout)),
				Order: NewOrderView(rec),
			}, nil
		},
	}
}

// ViewOrdersTool lists every placed order. customer_name is accepted for
// compatibility but does not filter.
func ViewOrdersTool(orders OrderBook) ToolSpec {
	return ToolSpec{
		Name:        ToolViewOrders,
		Description: "Get all placed orders with their estimated delivery dates.",
		Optional:    []OptionalArg{{Name: argCustomerName}},
		Handler: func(ctx context.Context, _ Args) (any, error) {
			records, err := orders.ListOrders(ctx)
			if err != nil {
				return nil, err
			}
			if len(records) == 0 {
				return NoOrdersMessage, nil
			}

			views := make([]OrderView, 0, len(records))
			for _, rec := range records {
				views = append(views, NewOrderView(rec))
			}
			return views, nil
		},
	}
}

// New registers the lookup and ordering tools.
func New(catalog Catalog, orders OrderBook) (*Registry, error) {
	if catalog == nil {
		return nil, errors.New("catalog is required")
	}
	if orders == nil {
		return nil, errors.New("order book is required")
	}
	return NewRegistry(
		BrandsTool(catalog),
		ModelsAndYearsTool(catalog),
		OrderVehicleTool(orders),
		ViewOrdersTool(orders),
	)
}
