package tool

import (
	"fmt"
	"strconv"
	"strings"

	contractx "github.com/tanpawarit/vehicle-order-agent/agent/contract"
	fipex "github.com/tanpawarit/vehicle-order-agent/pkg/fipe"
)

const (
	pairSeparator  = ";"
	valueSeparator = "="
)

// Args is a decoded key=value argument list. Keys are case-sensitive and
// values are always strings.
type Args map[string]string

// ParseArgs decodes raw in the form "k1=v1;k2=v2". Segments split on the
// first "=". Values cannot contain ";" since no escaping is defined.
func ParseArgs(raw string, required ...string) (Args, error) {
	raw = unquote(strings.TrimSpace(raw))
	if raw == "" {
		if len(required) > 0 {
			return nil, fmt.Errorf("%w: empty input, expected %s", contractx.ErrMalformedArgument, strings.Join(required, ", "))
		}
		return Args{}, nil
	}

	args := Args{}
	for _, segment := range strings.Split(raw, pairSeparator) {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}

		key, value, ok := strings.Cut(segment, valueSeparator)
		if !ok {
			return nil, fmt.Errorf("%w: segment %q has no %q", contractx.ErrMalformedArgument, segment, valueSeparator)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("%w: segment %q has an empty key", contractx.ErrMalformedArgument, segment)
		}
		if _, dup := args[key]; dup {
			return nil, fmt.Errorf("%w: duplicate key %q", contractx.ErrMalformedArgument, key)
		}
		args[key] = strings.TrimSpace(value)
	}

	var missing []string
	for _, key := range required {
		if args[key] == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing required field(s): %s", contractx.ErrMalformedArgument, strings.Join(missing, ", "))
	}
	return args, nil
}

func (a Args) String(key, fallback string) string {
	if v, ok := a[key]; ok && v != "" {
		return v
	}
	return fallback
}

// Limit decodes a positive integer, returning fallback when key is absent.
func (a Args) Limit(key string, fallback int) (int, error) {
	v, ok := a[key]
	if !ok || v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer, got %q", contractx.ErrMalformedArgument, key, v)
	}
	return n, nil
}

func (a Args) VehicleType(key string) (fipex.VehicleType, error) {
	vt, err := fipex.ParseVehicleType(a[key])
	if err != nil {
		return "", fmt.Errorf("%w: %w", contractx.ErrMalformedArgument, err)
	}
	return vt, nil
}

func unquote(s string) string {
	if len(s) < 2 {
		return s
	}
	first, last := s[0], s[len(s)-1]
	if first == last && (first == '"' || first == '\'' || first == '`') {
		return strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}
