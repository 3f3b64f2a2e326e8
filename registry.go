package tracer

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// The Tracer3210AN register map. Input registers are the 0x3000 rated
// block, the 0x3100 real-time block, the 0x3200 status words and the
// 0x3300 statistics block; holding registers are the 0x9000
// configuration space. Split 32-bit values are always low word first.
var registry = []Param{
	// rated (nameplate values, constant per unit)
	{Name: "rated_input_voltage", Addr: 0x3000, FC: Input, Kind: U16, Scale: centi, Unit: "V", Category: "rated"},
	{Name: "rated_input_current", Addr: 0x3001, FC: Input, Kind: U16, Scale: centi, Unit: "A", Category: "rated"},
	{Name: "rated_input_power", Addr: 0x3002, FC: Input, Kind: U32, Scale: centi, Unit: "W", Category: "rated"},
	{Name: "rated_charging_voltage", Addr: 0x3004, FC: Input, Kind: U16, Scale: centi, Unit: "V", Category: "rated"},
	{Name: "rated_charging_current", Addr: 0x3005, FC: Input, Kind: U16, Scale: centi, Unit: "A", Category: "rated"},
	{Name: "rated_charging_power", Addr: 0x3006, FC: Input, Kind: U32, Scale: centi, Unit: "W", Category: "rated"},
	{Name: "charging_mode", Addr: 0x3008, FC: Input, Kind: U16, Scale: whole, Category: "rated",
		Enum: []EnumVal{{0, "Connect/Disconnect"}, {1, "PWM"}, {2, "MPPT"}}},
	{Name: "rated_load_current", Addr: 0x300E, FC: Input, Kind: U16, Scale: centi, Unit: "A", Category: "rated"},

	// pv
	{Name: "pv_voltage", Addr: 0x3100, FC: Input, Kind: U16, Scale: centi, Unit: "V", Category: "pv"},
	{Name: "pv_current", Addr: 0x3101, FC: Input, Kind: U16, Scale: centi, Unit: "A", Category: "pv"},
	{Name: "pv_power", Addr: 0x3102, FC: Input, Kind: U32, Scale: centi, Unit: "W", Category: "pv"},

	// battery
	{Name: "battery_voltage", Addr: 0x3104, FC: Input, Kind: U16, Scale: centi, Unit: "V", Category: "battery"},
	{Name: "battery_current", Addr: 0x3105, FC: Input, Kind: U16, Scale: centi, Unit: "A", Category: "battery"},
	{Name: "battery_power", Addr: 0x3106, FC: Input, Kind: U32, Scale: centi, Unit: "W", Category: "battery"},
	{Name: "battery_temp", Addr: 0x3110, FC: Input, Kind: S16, Scale: centi, Unit: "°C", Category: "battery"},
	{Name: "battery_soc", Addr: 0x311A, FC: Input, Kind: U16, Scale: whole, Unit: "%", Category: "battery"},
	{Name: "remote_battery_temp", Addr: 0x311B, FC: Input, Kind: S16, Scale: centi, Unit: "°C", Category: "battery"},

	// load
	{Name: "load_power", Addr: 0x310A, FC: Input, Kind: U32, Scale: centi, Unit: "W", Category: "load"},
	{Name: "load_voltage", Addr: 0x310C, FC: Input, Kind: U16, Scale: centi, Unit: "V", Category: "load"},
	{Name: "load_current", Addr: 0x310D, FC: Input, Kind: U16, Scale: centi, Unit: "A", Category: "load"},

	// system
	{Name: "device_temp", Addr: 0x3111, FC: Input, Kind: S16, Scale: centi, Unit: "°C", Category: "system"},
	{Name: "heat_sink_temp", Addr: 0x3113, FC: Input, Kind: S16, Scale: centi, Unit: "°C", Category: "system"},
	{Name: "battery_rated_voltage", Addr: 0x311D, FC: Input, Kind: U16, Scale: centi, Unit: "V", Category: "system"},

	// status
	{Name: "battery_status", Addr: 0x3200, FC: Input, Kind: Bitfield, Scale: whole, Category: "status",
		Bits: []BitFlag{
			{1, "Over Temperature"},
			{2, "Low Temperature"},
			{3, "Over Voltage"},
			{4, "Under Voltage"},
			{5, "Over Current"},
			{6, "Over Discharge"},
			{7, "Battery Inner Resistance Abnormal"},
			{8, "Wrong Identification for Rated Voltage"},
		}},
	{Name: "charging_status", Addr: 0x3201, FC: Input, Kind: Bitfield, Scale: whole, Category: "status",
		Bits: []BitFlag{
			{0, "Charging Deactivated"},
			{1, "Charging Activated"},
			{2, "MPPT Charging Mode"},
			{3, "Equalizing Charging Mode"},
			{4, "Boost Charging Mode"},
			{5, "Floating Charging Mode"},
			{6, "Current Limiting"},
		}},
	{Name: "load_status", Addr: 0x3202, FC: Input, Kind: Bitfield, Scale: whole, Category: "status",
		Bits: []BitFlag{
			{0, "Load Disconnected"},
			{1, "Load Connected"},
			{2, "Output Over Voltage"},
			{3, "Boost Over Voltage"},
			{4, "High Voltage Side Short Circuit"},
			{5, "Input Over Voltage"},
			{6, "Output Over Current"},
			{7, "Input Over Current"},
		}},

	// statistics
	{Name: "max_pv_voltage_today", Addr: 0x3300, FC: Input, Kind: U16, Scale: centi, Unit: "V", Category: "statistics"},
	{Name: "min_pv_voltage_today", Addr: 0x3301, FC: Input, Kind: U16, Scale: centi, Unit: "V", Category: "statistics"},
	{Name: "max_battery_voltage_today", Addr: 0x3302, FC: Input, Kind: U16, Scale: centi, Unit: "V", Category: "statistics"},
	{Name: "min_battery_voltage_today", Addr: 0x3303, FC: Input, Kind: U16, Scale: centi, Unit: "V", Category: "statistics"},
	{Name: "energy_consumed_today", Addr: 0x3304, FC: Input, Kind: U32, Scale: centi, Unit: "kWh", Category: "statistics"},
	{Name: "energy_generated_today", Addr: 0x3306, FC: Input, Kind: U32, Scale: centi, Unit: "kWh", Category: "statistics"},
	{Name: "energy_generated_total", Addr: 0x3308, FC: Input, Kind: U32, Scale: centi, Unit: "kWh", Category: "statistics"},
	{Name: "operating_days", Addr: 0x330A, FC: Input, Kind: U16, Scale: whole, Unit: "days", Category: "statistics"},
	{Name: "battery_over_discharges", Addr: 0x330B, FC: Input, Kind: U16, Scale: whole, Unit: "cycles", Category: "statistics"},
	{Name: "battery_full_charges", Addr: 0x330C, FC: Input, Kind: U16, Scale: whole, Unit: "cycles", Category: "statistics"},
	{Name: "carbon_dioxide_reduction", Addr: 0x3310, FC: Input, Kind: U32, Scale: centi, Unit: "t", Category: "statistics"},
	{Name: "net_battery_current", Addr: 0x331B, FC: Input, Kind: U32, Scale: centi, Unit: "A", Category: "statistics"},

	// config
	{Name: "battery_type", Addr: 0x9000, FC: Holding, Kind: U16, Scale: whole, Category: "config",
		Writable: true,
		Enum: []EnumVal{
			{0, "User Defined"},
			{1, "Sealed"},
			{2, "GEL"},
			{3, "Flooded"},
			{4, "LiFePO4"},
		}},
	{Name: "battery_capacity", Addr: 0x9001, FC: Holding, Kind: U16, Scale: whole, Unit: "Ah", Category: "config",
		Writable: true, Range: &Range{1, 999}},
	{Name: "temp_comp_coefficient", Addr: 0x9002, FC: Holding, Kind: U16, Scale: centi, Unit: "mV/°C/2V", Category: "config",
		Writable: true, Range: &Range{0, 9}},
	{Name: "high_voltage_disconnect", Addr: 0x9003, FC: Holding, Kind: U16, Scale: centi, Unit: "V", Category: "config",
		Writable: true, Critical: true, Range: &Range{12, 17}},
	{Name: "charging_limit_voltage", Addr: 0x9004, FC: Holding, Kind: U16, Scale: centi, Unit: "V", Category: "config",
		Writable: true, Range: &Range{9, 17}},
	{Name: "over_voltage_reconnect", Addr: 0x9005, FC: Holding, Kind: U16, Scale: centi, Unit: "V", Category: "config",
		Writable: true, Critical: true, Range: &Range{12, 17}},
	{Name: "equalization_voltage", Addr: 0x9006, FC: Holding, Kind: U16, Scale: centi, Unit: "V", Category: "config",
		Writable: true, Range: &Range{9, 17}},
	{Name: "boost_voltage", Addr: 0x9007, FC: Holding, Kind: U16, Scale: centi, Unit: "V", Category: "config",
		Writable: true, Range: &Range{9, 17}},
	{Name: "float_voltage", Addr: 0x9008, FC: Holding, Kind: U16, Scale: centi, Unit: "V", Category: "config",
		Writable: true, Range: &Range{9, 17}},
	{Name: "boost_reconnect_voltage", Addr: 0x9009, FC: Holding, Kind: U16, Scale: centi, Unit: "V", Category: "config",
		Writable: true, Range: &Range{9, 17}},
	{Name: "low_voltage_reconnect", Addr: 0x900A, FC: Holding, Kind: U16, Scale: centi, Unit: "V", Category: "config",
		Writable: true, Critical: true, Range: &Range{9, 17}},
	{Name: "under_voltage_recover", Addr: 0x900B, FC: Holding, Kind: U16, Scale: centi, Unit: "V", Category: "config",
		Writable: true, Range: &Range{9, 17}},
	{Name: "under_voltage_warning", Addr: 0x900C, FC: Holding, Kind: U16, Scale: centi, Unit: "V", Category: "config",
		Writable: true, Range: &Range{9, 17}},
	{Name: "low_voltage_disconnect", Addr: 0x900D, FC: Holding, Kind: U16, Scale: centi, Unit: "V", Category: "config",
		Writable: true, Critical: true, Range: &Range{9, 17}},
	{Name: "discharging_limit_voltage", Addr: 0x900E, FC: Holding, Kind: U16, Scale: centi, Unit: "V", Category: "config",
		Writable: true, Range: &Range{9, 17}},
	{Name: "rtc_sec_min", Addr: 0x9013, FC: Holding, Kind: U16, Scale: whole, Category: "config"},
	{Name: "rtc_hour_day", Addr: 0x9014, FC: Holding, Kind: U16, Scale: whole, Category: "config"},
	{Name: "rtc_month_year", Addr: 0x9015, FC: Holding, Kind: U16, Scale: whole, Category: "config"},
	{Name: "equalization_charging_cycle", Addr: 0x9016, FC: Holding, Kind: U16, Scale: whole, Unit: "days", Category: "config",
		Writable: true, Range: &Range{0, 255}},
	{Name: "battery_temp_upper_limit", Addr: 0x9017, FC: Holding, Kind: S16, Scale: centi, Unit: "°C", Category: "config",
		Writable: true, Range: &Range{20, 85}},
	{Name: "battery_temp_lower_limit", Addr: 0x9018, FC: Holding, Kind: S16, Scale: centi, Unit: "°C", Category: "config",
		Writable: true, Range: &Range{-40, 30}},
	{Name: "controller_temp_upper_limit", Addr: 0x9019, FC: Holding, Kind: S16, Scale: centi, Unit: "°C", Category: "config",
		Writable: true, Range: &Range{20, 85}},
	{Name: "controller_temp_lower_limit", Addr: 0x901A, FC: Holding, Kind: S16, Scale: centi, Unit: "°C", Category: "config",
		Writable: true, Range: &Range{-40, 30}},
	{Name: "load_control_mode", Addr: 0x903D, FC: Holding, Kind: U16, Scale: whole, Category: "config",
		Writable: true,
		Enum: []EnumVal{
			{0, "Manual"},
			{1, "Light On/Off"},
			{2, "Light On + Timer"},
			{3, "Time Control"},
		}},
	{Name: "default_load_state", Addr: 0x906A, FC: Holding, Kind: U16, Scale: whole, Category: "config",
		Writable: true, Enum: []EnumVal{{0, "Off"}, {1, "On"}}},
	{Name: "equalization_duration", Addr: 0x906B, FC: Holding, Kind: U16, Scale: whole, Unit: "min", Category: "config",
		Writable: true, Range: &Range{0, 180}},
	{Name: "boost_duration", Addr: 0x906C, FC: Holding, Kind: U16, Scale: whole, Unit: "min", Category: "config",
		Writable: true, Range: &Range{10, 180}},
}

var (
	byName     map[string]*Param
	categories []string
)

func init() {
	byName = make(map[string]*Param, len(registry))
	seen := make(map[string]bool)
	for i := range registry {
		p := &registry[i]
		if byName[p.Name] != nil {
			panic("duplicate parameter name: " + p.Name)
		}
		if p.Writable {
			if p.FC != Holding {
				panic(p.Name + ": writable parameter outside holding space")
			}
			if (p.Range == nil) == (p.Enum == nil) {
				panic(p.Name + ": writable parameter needs exactly one of range or enum")
			}
		}
		byName[p.Name] = p
		if !seen[p.Category] {
			seen[p.Category] = true
			categories = append(categories, p.Category)
		}
	}
}

// Lookup resolves a parameter by name or by "0xNNNN" address literal.
func Lookup(name string) (*Param, error) {
	if p := byName[name]; p != nil {
		return p, nil
	}
	if strings.HasPrefix(name, "0x") || strings.HasPrefix(name, "0X") {
		if addr, err := strconv.ParseUint(name[2:], 16, 16); err == nil {
			for i := range registry {
				if registry[i].Addr == uint16(addr) {
					return &registry[i], nil
				}
			}
		}
	}
	return nil, NotFoundErr(name)
}

// Params lists the registry, optionally filtered by category, ordered by
// function code then address.
func Params(category string) []*Param {
	var out []*Param
	for i := range registry {
		if category == "" || registry[i].Category == category {
			out = append(out, &registry[i])
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FC != out[j].FC {
			return out[i].FC > out[j].FC // input space before holding
		}
		return out[i].Addr < out[j].Addr
	})
	return out
}

// Categories lists the category tags in registry order.
func Categories() []string {
	return append([]string(nil), categories...)
}

// addrName renders an address the way the registry and logs spell it.
func addrName(addr uint16) string {
	return fmt.Sprintf("0x%04X", addr)
}
