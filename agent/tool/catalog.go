package tool

import (
	"context"
	"fmt"
	"strconv"

	contractx "github.com/tanpawarit/vehicle-order-agent/agent/contract"
	fipex "github.com/tanpawarit/vehicle-order-agent/pkg/fipe"
)

const (
	ToolGetBrands          = "get_brands"
	ToolGetModelsAndYears  = "get_models_and_years"
	argVehicleType         = "vehicle_type"
	argBrandCode           = "brand_code"
	argLimit               = "limit"
	vehicleTypeOptionsHint = "cars, motorcycles, trucks"
)

// Catalog is the read-only vehicle reference data used by the lookup tools.
type Catalog interface {
	ListBrands(ctx context.Context, vt fipex.VehicleType, limit int) ([]fipex.Brand, error)
	ListModelsWithYears(ctx context.Context, vt fipex.VehicleType, brandCode string, limit int) ([]fipex.ModelYears, error)
}

type brandsArgs struct {
	VehicleType fipex.VehicleType
	Limit       int
}

func decodeBrandsArgs(args Args) (brandsArgs, error) {
	vt, err := args.VehicleType(argVehicleType)
	if err != nil {
		return brandsArgs{}, err
	}
	limit, err := args.Limit(argLimit, fipex.DefaultBrandLimit)
	if err != nil {
		return brandsArgs{}, err
	}
	return brandsArgs{VehicleType: vt, Limit: limit}, nil
}

func BrandsTool(catalog Catalog) ToolSpec {
	return ToolSpec{
		Name:        ToolGetBrands,
		Description: fmt.Sprintf("Get the brands available for a type of vehicle, with their brand codes. vehicle_type options: %s.", vehicleTypeOptionsHint),
		Required:    []string{argVehicleType},
		Optional:    []OptionalArg{{Name: argLimit, Default: strconv.Itoa(fipex.DefaultBrandLimit)}},
		Handler: func(ctx context.Context, raw Args) (any, error) {
			args, err := decodeBrandsArgs(raw)
			if err != nil {
				return nil, err
			}

			brands, err := catalog.ListBrands(ctx, args.VehicleType, args.Limit)
			if err != nil {
				return nil, err
			}
			if len(brands) == 0 {
				return nil, fmt.Errorf("%w: no brands for vehicle_type %s", contractx.ErrNotFound, args.VehicleType)
			}
			return brands, nil
		},
	}
}

type modelsArgs struct {
	VehicleType fipex.VehicleType
	BrandCode   string
	Limit       int
}

func decodeModelsArgs(args Args) (modelsArgs, error) {
	vt, err := args.VehicleType(argVehicleType)
	if err != nil {
		return modelsArgs{}, err
	}
	limit, err := args.Limit(argLimit, fipex.DefaultModelLimit)
	if err != nil {
		return modelsArgs{}, err
	}
	return modelsArgs{VehicleType: vt, BrandCode: args[argBrandCode], Limit: limit}, nil
}

func ModelsAndYearsTool(catalog Catalog) ToolSpec {
	return ToolSpec{
		Name:        ToolGetModelsAndYears,
		Description: "Get vehicle models of a brand and the years available for each model, with model and year codes. Requires brand_code from get_brands.",
		Required:    []string{argVehicleType, argBrandCode},
		Optional:    []OptionalArg{{Name: argLimit, Default: strconv.Itoa(fipex.DefaultModelLimit)}},
		Handler: func(ctx context.Context, raw Args) (any, error) {
			args, err := decodeModelsArgs(raw)
			if err != nil {
				return nil, err
			}

			models, err := catalog.ListModelsWithYears(ctx, args.VehicleType, args.BrandCode, args.Limit)
			if err != nil {
				return nil, err
			}
			if len(models) == 0 {
				return nil, fmt.Errorf("%w: no models for brand_code %s", contractx.ErrNotFound, args.BrandCode)
			}
			return models, nil
		},
	}
}
