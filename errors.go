package tracer

import (
	"errors"
	"fmt"
)

// ErrTimeout is returned when no complete response frame arrives within
// the controller timeout.
var ErrTimeout = errors.New("timeout")

// BadRxErr is a response frame that failed CRC or echo validation.
type BadRxErr []byte

func (e BadRxErr) Error() string {
	return fmt.Sprintf("invalid response: [% X]", []byte(e))
}

// ModbusErr is an exception code reported by the device itself.
type ModbusErr byte

func (e ModbusErr) Error() string {
	switch e {
	case 1:
		return "Illegal Function"
	case 2:
		return "Illegal Data Address"
	case 3:
		return "Illegal Data Value"
	case 4:
		return "Slave Device Failure"
	case 5:
		return "Acknowledge"
	case 6:
		return "Slave Device Busy"
	case 8:
		return "Memory Parity Error"
	default:
		return fmt.Sprintf("Unknown Error (%d)", byte(e))
	}
}

// NotFoundErr names a parameter that is not in the registry.
type NotFoundErr string

func (e NotFoundErr) Error() string {
	return "unknown parameter: " + string(e)
}

// NotWritableErr names a parameter that exists but cannot be written.
type NotWritableErr string

func (e NotWritableErr) Error() string {
	return "parameter not writable: " + string(e)
}

// RangeErr is a write value outside the parameter's declared range.
type RangeErr struct {
	Param    string
	Value    float64
	Min, Max float64
}

func (e RangeErr) Error() string {
	return fmt.Sprintf("%s: value %g outside range %g..%g",
		e.Param, e.Value, e.Min, e.Max)
}

// EnumErr is a write value that matches none of the parameter's
// enumerated codes or names.
type EnumErr struct {
	Param string
	Value string
}

func (e EnumErr) Error() string {
	return fmt.Sprintf("%s: %q is not a valid choice", e.Param, e.Value)
}

// ConfirmErr is returned when a critical threshold write arrives without
// the explicit confirm flag. It is never a silent no-op.
type ConfirmErr string

func (e ConfirmErr) Error() string {
	return "confirmation required to write " + string(e)
}

// VerifyErr is a write that the device acknowledged but whose readback
// differs from what was written.
type VerifyErr struct {
	Param     string
	Want, Got uint32
}

func (e VerifyErr) Error() string {
	return fmt.Sprintf("%s: wrote %d but device reads back %d",
		e.Param, e.Want, e.Got)
}
