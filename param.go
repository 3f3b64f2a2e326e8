package tracer

import (
	"fmt"
	"strconv"
	"strings"
)

// FC selects the register space a parameter lives in.
type FC byte

const (
	Holding FC = 3 // read/write configuration (0x03)
	Input   FC = 4 // read-only telemetry (0x04)
)

func (fc FC) String() string {
	switch fc {
	case Holding:
		return "holding"
	case Input:
		return "input"
	default:
		return fmt.Sprintf("FC%d", byte(fc))
	}
}

// Kind is how raw register words map to a value.
type Kind byte

const (
	U16      Kind = iota // one unsigned word
	S16                  // one signed word
	U32                  // two words combined (high << 16) | low
	Bitfield             // one word of named flags
)

// Scale is the exact rational multiplier from raw register units to
// engineering units. It is declared once, in the registry, and applied
// once; all intermediate arithmetic stays integral.
type Scale struct {
	Num, Den int64
}

var (
	whole = Scale{1, 1}
	centi = Scale{1, 100}
)

func (s Scale) apply(raw int64) float64 {
	return float64(raw) * float64(s.Num) / float64(s.Den)
}

// format renders raw*Num/Den as exact decimal text when Den is a power
// of ten, which every registry scale is.
func (s Scale) format(raw int64) string {
	n := raw * s.Num
	if s.Den == 1 {
		return strconv.FormatInt(n, 10)
	}
	digits := 0
	for d := s.Den; d > 1; d /= 10 {
		digits++
	}
	neg := n < 0
	if neg {
		n = -n
	}
	whole, frac := n/s.Den, n%s.Den
	text := fmt.Sprintf("%d.%0*d", whole, digits, frac)
	if neg {
		text = "-" + text
	}
	return text
}

// raw converts an engineering-unit value back to raw register units,
// rounding to the nearest step.
func (s Scale) raw(v float64) int64 {
	x := v * float64(s.Den) / float64(s.Num)
	if x < 0 {
		return int64(x - 0.5)
	}
	return int64(x + 0.5)
}

// Range is a closed [Min,Max] bound in engineering units.
type Range struct {
	Min, Max float64
}

// EnumVal is one named code of an enumerated parameter.
type EnumVal struct {
	Code uint16
	Name string
}

// BitFlag names one bit of a status register.
type BitFlag struct {
	Bit  uint8
	Name string
}

// Param is one named device register (or adjacent pair). Writable
// parameters declare exactly one of Range or Enum; Critical ones are the
// disconnect/reconnect thresholds that can damage a battery if misapplied
// and require an explicit confirm flag on write.
type Param struct {
	Name     string
	Addr     uint16
	FC       FC
	Kind     Kind
	Scale    Scale
	Unit     string
	Category string

	// HighFirst flips the word order of a U32 pair. The Tracer sends
	// every pair low word first, so it stays false across the registry.
	HighFirst bool

	Writable bool
	Critical bool
	Range    *Range
	Enum     []EnumVal
	Bits     []BitFlag
}

// Span is the number of registers the parameter occupies.
func (p *Param) Span() uint16 {
	if p.Kind == U32 {
		return 2
	}
	return 1
}

// End is the last register address the parameter occupies.
func (p *Param) End() uint16 {
	return p.Addr + p.Span() - 1
}

func (p *Param) enumName(code uint16) (string, bool) {
	for _, e := range p.Enum {
		if e.Code == code {
			return e.Name, true
		}
	}
	return "", false
}

// Value is one decoded parameter reading. Raw holds the reconstructed
// register value; scaling happens at the Float/String boundary so no
// precision is lost in between.
type Value struct {
	Param *Param
	Raw   uint32
}

// Signed is the raw value with the parameter's signedness applied.
func (v Value) Signed() int64 {
	if v.Param.Kind == S16 {
		return int64(int16(uint16(v.Raw)))
	}
	return int64(v.Raw)
}

// Float is the reading in engineering units.
func (v Value) Float() float64 {
	return v.Param.Scale.apply(v.Signed())
}

// Flags lists the set bits of a Bitfield reading by name.
func (v Value) Flags() []string {
	var flags []string
	for _, b := range v.Param.Bits {
		if v.Raw&(1<<b.Bit) != 0 {
			flags = append(flags, b.Name)
		}
	}
	return flags
}

func (v Value) String() string {
	p := v.Param
	switch {
	case p.Kind == Bitfield:
		if flags := v.Flags(); len(flags) > 0 {
			return strings.Join(flags, ", ")
		}
		return "Normal"
	case len(p.Enum) > 0:
		if name, ok := p.enumName(uint16(v.Raw)); ok {
			return name
		}
		return fmt.Sprintf("Unknown (%d)", v.Raw)
	default:
		text := p.Scale.format(v.Signed())
		if p.Unit != "" {
			text += " " + p.Unit
		}
		return text
	}
}
