package fipe

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// VehicleType is the canonical vehicle category accepted by the catalog.
type VehicleType string

const (
	Cars        VehicleType = "cars"
	Motorcycles VehicleType = "motorcycles"
	Trucks      VehicleType = "trucks"
)

var vehicleTypeAliases = map[string]VehicleType{
	"cars":        Cars,
	"carros":      Cars,
	"motorcycles": Motorcycles,
	"motos":       Motorcycles,
	"trucks":      Trucks,
	"caminhoes":   Trucks,
}

// ParseVehicleType accepts canonical names and the upstream path segments.
func ParseVehicleType(raw string) (VehicleType, error) {
	vt, ok := vehicleTypeAliases[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", fmt.Errorf("unknown vehicle_type %q (options: cars, motorcycles, trucks)", raw)
	}
	return vt, nil
}

// Segment is the upstream URL path element for the vehicle type.
func (v VehicleType) Segment() string {
	switch v {
	case Cars:
		return "carros"
	case Motorcycles:
		return "motos"
	case Trucks:
		return "caminhoes"
	default:
		return string(v)
	}
}

// Code is an opaque catalog identifier. Upstream sends it either as a JSON
// string or as a number.
type Code string

func (c *Code) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Code(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("code must be string or number: %w", err)
	}
	*c = Code(n.String())
	return nil
}

// Entry is the {nome, codigo} pair used by every catalog listing.
type Entry struct {
	Name string `json:"nome"`
	Code Code   `json:"codigo"`
}

type Brand struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type Year struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type ModelYears struct {
	ModelName string `json:"model_name"`
	ModelCode string `json:"model_code"`
	Years     []Year `json:"years"`
}

type modelsResponse struct {
	Models []Entry `json:"modelos"`
}
