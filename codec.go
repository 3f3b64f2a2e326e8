package tracer

// DecodeWindow picks each parameter's registers out of a window read
// and assembles its raw value. Split 32-bit values combine low word
// first unless the parameter says otherwise. words must hold exactly
// w.Count entries.
func DecodeWindow(w Window, words []uint16) []Value {
	if len(words) != int(w.Count) {
		panic("window decode with wrong word count")
	}
	out := make([]Value, len(w.Params))
	for i, p := range w.Params {
		off := p.Addr - w.Addr
		raw := uint32(words[off])
		if p.Kind == U32 {
			lo, hi := uint32(words[off]), uint32(words[off+1])
			if p.HighFirst {
				lo, hi = hi, lo
			}
			raw = lo | hi<<16
		}
		out[i] = Value{Param: p, Raw: raw}
	}
	return out
}

// Words encodes a raw value as the register words a write needs, the
// inverse of DecodeWindow's assembly.
func (p *Param) Words(raw uint32) []uint16 {
	if p.Kind != U32 {
		return []uint16{uint16(raw)}
	}
	lo, hi := uint16(raw), uint16(raw>>16)
	if p.HighFirst {
		return []uint16{hi, lo}
	}
	return []uint16{lo, hi}
}
