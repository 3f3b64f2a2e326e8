package tracer

import (
	"context"
	"time"
)

const INTERVAL = 10 * time.Second

// Monitor polls a fixed parameter set on an interval and delivers a
// Snapshot per sweep. Names takes precedence over Category when both
// are set; with neither the whole registry is polled.
type Monitor struct {
	Dev      *Device
	Names    []string
	Category string
	Interval time.Duration // 0 means INTERVAL
	Count    int           // sweeps to run, 0 means until ctx ends
}

// Run polls until ctx is canceled or Count sweeps are done. The first
// sweep happens immediately. A sweep where some windows fail still
// goes out with the surviving values, so one dead register block never
// blanks the rest of the feed.
func (m *Monitor) Run(ctx context.Context, out chan<- Snapshot) error {
	params := m.Names
	if len(params) == 0 {
		for _, p := range Params(m.Category) {
			params = append(params, p.Name)
		}
	}
	interval := m.Interval
	if interval == 0 {
		interval = INTERVAL
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for n := 0; ; {
		readings := m.Dev.Read(params...)
		s := Snapshot{At: ctime.Now(), Errs: make(map[string]error)}
		for name, r := range readings {
			if r.Err != nil {
				s.Errs[name] = r.Err
				debugLog("poll %s: %v", name, r.Err)
				continue
			}
			s.Values = append(s.Values, r.Value)
		}
		sortValues(s.Values)

		select {
		case out <- s:
		case <-ctx.Done():
			return ctx.Err()
		}

		if n++; m.Count > 0 && n >= m.Count {
			return nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
