package tracer

import "sort"

const (
	// Window limits the Tracer3210AN accepts per read. Input reads of
	// more than 16 words and holding reads of more than 8 words come
	// back as exception 2 even when every register in range exists.
	MaxInputWindow   = 16
	MaxHoldingWindow = 8

	// DefaultGap is how many unnamed filler words a window may span to
	// merge two nearby parameters into a single read.
	DefaultGap = 4
)

// Window is one contiguous register read covering Params in address
// order. Addr..Addr+Count-1 spans every register of every parameter in
// it, fillers included.
type Window struct {
	FC     FC
	Addr   uint16
	Count  uint16
	Params []*Param
}

// Plan groups parameters into the fewest reads that respect the device
// window limits. Parameters are partitioned by register space, sorted
// by address and coalesced while the filler run between neighbors stays
// within gap. A negative gap disables coalescing entirely so every
// parameter gets its own window. Duplicate and overlapping spans fold
// into the window that already covers them.
func Plan(params []*Param, gap int) []Window {
	var out []Window
	for _, fc := range []FC{Input, Holding} {
		var ps []*Param
		for _, p := range params {
			if p.FC == fc {
				ps = append(ps, p)
			}
		}
		out = append(out, planSpace(fc, ps, gap)...)
	}
	return out
}

func planSpace(fc FC, ps []*Param, gap int) []Window {
	if len(ps) == 0 {
		return nil
	}
	limit := uint16(MaxInputWindow)
	if fc == Holding {
		limit = MaxHoldingWindow
	}

	sort.Slice(ps, func(i, j int) bool { return ps[i].Addr < ps[j].Addr })

	var out []Window
	w := Window{FC: fc, Addr: ps[0].Addr, Count: ps[0].Span(), Params: []*Param{ps[0]}}
	for _, p := range ps[1:] {
		end := w.Addr + w.Count
		count := w.Count
		if p.End() >= end {
			count = p.End() + 1 - w.Addr
		}
		if gap >= 0 && p.Addr <= end+uint16(gap) && count <= limit {
			w.Count = count
			w.Params = append(w.Params, p)
			continue
		}
		out = append(out, w)
		w = Window{FC: fc, Addr: p.Addr, Count: p.Span(), Params: []*Param{p}}
	}
	return append(out, w)
}
