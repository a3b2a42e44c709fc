package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Decode maps a loosely typed section onto T through a JSON round-trip, so
// struct fields are matched with `json` tags.
func Decode[T any](m map[string]any) (T, error) {
	var zero T
	b, err := json.Marshal(m)
	if err != nil {
		return zero, err
	}
	if err := json.Unmarshal(b, &zero); err != nil {
		return zero, err
	}
	return zero, nil
}

// Section returns v as a section map. TOML and JSON produce
// map[string]any; YAML may too, but nested nodes can come back as
// map[any]any in older documents.
func Section(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, vv := range m {
			out[fmt.Sprint(k)] = vv
		}
		return out, true
	case nil:
		return map[string]any{}, true
	default:
		return nil, false
	}
}

// Duration accepts "300ms"/"5s" strings or a number of seconds.
type Duration struct{ time.Duration }

func (d *Duration) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		if secs, err := strconv.ParseFloat(v, 64); err == nil {
			d.Duration = time.Duration(secs * float64(time.Second))
			return nil
		}
		dd, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		d.Duration = dd
	case float64:
		d.Duration = time.Duration(v * float64(time.Second))
	case nil:
		d.Duration = 0
	default:
		return fmt.Errorf("invalid duration %v", raw)
	}
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration.String())
}
