package tracer

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// Device is one charge controller behind a Controller link. All access
// goes through a single mutex since RTU allows only one transaction in
// flight on the bus.
type Device struct {
	Con     *Controller
	DevAddr byte
	Gap     int // filler words a read may span, 0 means DefaultGap

	mu sync.Mutex
}

// Reading is one parameter's outcome from a batched read. A window
// that fails leaves its parameters with Err set and everything else
// intact.
type Reading struct {
	Value Value
	Err   error
}

// Snapshot is the result of one full sweep over some set of
// parameters.
type Snapshot struct {
	At     time.Time
	Values []Value
	Errs   map[string]error
}

func sortValues(vs []Value) {
	sort.Slice(vs, func(i, j int) bool {
		a, b := vs[i].Param, vs[j].Param
		if a.FC != b.FC {
			return a.FC > b.FC
		}
		return a.Addr < b.Addr
	})
}

func (d *Device) gap() int {
	if d.Gap == 0 {
		return DefaultGap
	}
	return d.Gap
}

// Read fetches the named parameters in as few bus transactions as the
// device window limits allow. Names resolve per Lookup, so address
// literals work too. Every requested name appears in the result.
func (d *Device) Read(names ...string) map[string]Reading {
	out := make(map[string]Reading, len(names))
	var ps []*Param
	for _, name := range names {
		p, err := Lookup(name)
		if err != nil {
			out[name] = Reading{Err: err}
			continue
		}
		ps = append(ps, p)
	}

	values, errs := d.readWindows(Plan(ps, d.gap()))
	for _, v := range values {
		out[v.Param.Name] = Reading{Value: v}
	}
	for name, err := range errs {
		out[name] = Reading{Err: err}
	}
	return out
}

// ReadAll sweeps a whole category, or the entire registry when
// category is empty.
func (d *Device) ReadAll(category string) Snapshot {
	values, errs := d.readWindows(Plan(Params(category), d.gap()))
	sortValues(values)
	return Snapshot{At: ctime.Now(), Values: values, Errs: errs}
}

func (d *Device) readWindows(ws []Window) ([]Value, map[string]error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var values []Value
	errs := make(map[string]error)
	for _, w := range ws {
		regs, err := d.readRegs(w.FC, w.Addr, w.Count)
		if err == nil {
			values = append(values, DecodeWindow(w, regs)...)
			continue
		}

		// A device exception for a merged window usually means one of
		// its registers is unsupported by this firmware. Retry each
		// parameter on its own so the rest still report.
		var me ModbusErr
		if errors.As(err, &me) && len(w.Params) > 1 {
			debugLog("splitting %s window %s: %v", w.FC, addrName(w.Addr), err)
			for _, p := range w.Params {
				pw := Window{FC: p.FC, Addr: p.Addr, Count: p.Span(), Params: []*Param{p}}
				regs, err := d.readRegs(pw.FC, pw.Addr, pw.Count)
				if err != nil {
					errs[p.Name] = err
					continue
				}
				values = append(values, DecodeWindow(pw, regs)...)
			}
			continue
		}

		for _, p := range w.Params {
			errs[p.Name] = err
		}
	}
	return values, errs
}

func (d *Device) readRegs(fc FC, addr, count uint16) ([]uint16, error) {
	switch fc {
	case Input:
		c := NewReadIRegsCmd(d.DevAddr, addr, count)
		if err := d.Con.Send(c); err != nil {
			return nil, err
		}
		return c.Regs(), nil
	case Holding:
		c := NewReadHRegsCmd(d.DevAddr, addr, count)
		if err := d.Con.Send(c); err != nil {
			return nil, err
		}
		return c.Regs(), nil
	}
	panic("unsupported function code")
}

// ListParams lists the registry, optionally filtered by category.
func (d *Device) ListParams(category string) []*Param {
	return Params(category)
}

// CheckWrite validates a write without touching the bus and returns
// the register words it would send.
func (d *Device) CheckWrite(name string, value any, confirm bool) ([]uint16, error) {
	p, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	raw, err := p.Validate(value, confirm)
	if err != nil {
		return nil, err
	}
	return p.Words(raw), nil
}

// Write validates, sends and verifies one configuration write. The
// device acknowledges writes it then clamps internally, so the value
// is read back and a mismatch comes back as VerifyErr.
func (d *Device) Write(name string, value any, confirm bool) error {
	p, err := Lookup(name)
	if err != nil {
		return err
	}
	raw, err := p.Validate(value, confirm)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	words := p.Words(raw)
	if len(words) == 1 {
		err = d.Con.Send(NewWriteRegCmd(d.DevAddr, p.Addr, words[0]))
	} else {
		err = d.Con.Send(NewWriteRegsCmd(d.DevAddr, p.Addr, words))
	}
	if err != nil {
		return err
	}

	regs, err := d.readRegs(p.FC, p.Addr, p.Span())
	if err != nil {
		return err
	}
	got := DecodeWindow(Window{FC: p.FC, Addr: p.Addr, Count: p.Span(), Params: []*Param{p}}, regs)[0].Raw
	if got != raw {
		return VerifyErr{p.Name, raw, got}
	}
	log("wrote %s = %s", p.Name, Value{Param: p, Raw: raw})
	return nil
}
