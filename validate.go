package tracer

import (
	"fmt"
	"strconv"
	"strings"
)

// Validate checks a requested write against the parameter's rules and
// returns the raw register value to send. Enum parameters take a label
// or a code, numeric parameters a number within range. Critical
// parameters additionally insist on confirm so protection thresholds
// cannot change by accident.
func (p *Param) Validate(value any, confirm bool) (uint32, error) {
	if !p.Writable {
		return 0, NotWritableErr(p.Name)
	}

	var raw int64
	if p.Enum != nil {
		code, err := p.enumCode(value)
		if err != nil {
			return 0, err
		}
		raw = int64(code)
	} else {
		v, err := numeric(value)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", p.Name, err)
		}
		if v < p.Range.Min || v > p.Range.Max {
			return 0, RangeErr{p.Name, v, p.Range.Min, p.Range.Max}
		}
		raw = p.Scale.raw(v)
	}

	if p.Kind == S16 {
		raw = int64(uint16(int16(raw))) // two's complement on the wire
	}

	if p.Critical && !confirm {
		return 0, ConfirmErr(p.Name)
	}
	return uint32(raw), nil
}

func (p *Param) enumCode(value any) (uint16, error) {
	switch v := value.(type) {
	case string:
		for _, e := range p.Enum {
			if strings.EqualFold(e.Name, v) {
				return e.Code, nil
			}
		}
		if n, err := strconv.ParseUint(v, 0, 16); err == nil {
			return p.enumCode(uint16(n))
		}
	default:
		n, err := numeric(value)
		if err == nil && n == float64(uint16(n)) {
			for _, e := range p.Enum {
				if e.Code == uint16(n) {
					return e.Code, nil
				}
			}
		}
	}
	return 0, EnumErr{p.Name, fmt.Sprint(value)}
}

func numeric(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", v)
		}
		return f, nil
	}
	return 0, fmt.Errorf("unsupported value type %T", value)
}

// Voltage thresholds the controller enforces in a fixed order. A write
// that passes its own range check can still leave the set inconsistent,
// so callers can vet the whole ladder before committing changes.
var voltageOrder = []string{
	"high_voltage_disconnect",
	"charging_limit_voltage",
	"equalization_voltage",
	"boost_voltage",
	"float_voltage",
	"boost_reconnect_voltage",
	"low_voltage_reconnect",
	"low_voltage_disconnect",
	"discharging_limit_voltage",
}

// CheckVoltageOrder reports every adjacent pair of the threshold ladder
// that the given settings put out of order. Missing entries are
// skipped. An empty result means the set is consistent.
func CheckVoltageOrder(settings map[string]float64) []string {
	var warnings []string
	prev := ""
	for _, name := range voltageOrder {
		v, ok := settings[name]
		if !ok {
			continue
		}
		if prev != "" && settings[prev] < v {
			warnings = append(warnings,
				fmt.Sprintf("%s (%.2f V) should not exceed %s (%.2f V)",
					name, v, prev, settings[prev]))
		}
		prev = name
	}
	return warnings
}
