package tracer_test

import (
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	. "github.com/ottago/tracer"
)

var _ = Describe("Device", func() {
	newDevice := func(rwc *MockRwc, opens int) (*Device, *MockPort) {
		port := &MockPort{}
		for i := 0; i < opens; i++ {
			port.Opens = append(port.Opens, OpenScript{rwc, 0, nil})
		}
		return &Device{
			Con:     &Controller{Port: port},
			DevAddr: 1,
		}, port
	}

	Describe("Read", func() {
		It("merges neighbors into one transaction", func() {
			rwc := &MockRwc{
				Writes: []WriteScript{{8, nil}},
				Reads: []ReadScript{
					{frame(1, 4, 6, 0x05, 0xDC, 0, 0, 0x05, 0x1E), nil},
				},
			}
			d, _ := newDevice(rwc, 1)

			rs := d.Read("battery_voltage", "pv_power")
			Expect(rs).To(HaveLen(2))
			Expect(rs["pv_power"].Err).To(Succeed())
			Expect(rs["pv_power"].Value.String()).To(Equal("15.00 W"))
			Expect(rs["battery_voltage"].Value.String()).To(Equal("13.10 V"))
			Expect(rwc.Calls).To(Equal([]string{
				fmt.Sprintf("WRITE [% X]", frame(1, 4, 0x31, 2, 0, 3)),
				"READ",
			}))
		})

		It("reports unknown names without touching the bus", func() {
			d, port := newDevice(&MockRwc{}, 0)
			rs := d.Read("flux_capacitor")
			Expect(rs["flux_capacitor"].Err).To(
				MatchError("unknown parameter: flux_capacitor"))
			Expect(port.Calls).To(BeEmpty())
		})

		It("degrades only the refused register of a merged window", func() {
			rwc := &MockRwc{
				Writes: []WriteScript{{8, nil}, {8, nil}, {8, nil}},
				Reads: []ReadScript{
					{frame(1, 0x84, 2), nil},
					{frame(1, 4, 2, 0x05, 0x1E), nil},
					{frame(1, 0x84, 2), nil},
				},
			}
			d, _ := newDevice(rwc, 1)

			rs := d.Read("battery_voltage", "battery_current")
			Expect(rs["battery_voltage"].Err).To(Succeed())
			Expect(rs["battery_voltage"].Value.String()).To(Equal("13.10 V"))
			Expect(rs["battery_current"].Err).To(
				MatchError("Illegal Data Address"))
			Expect(rwc.Calls).To(Equal([]string{
				fmt.Sprintf("WRITE [% X]", frame(1, 4, 0x31, 4, 0, 2)),
				"READ",
				fmt.Sprintf("WRITE [% X]", frame(1, 4, 0x31, 4, 0, 1)),
				"READ",
				fmt.Sprintf("WRITE [% X]", frame(1, 4, 0x31, 5, 0, 1)),
				"READ",
			}))
		})

		It("fails a whole single-parameter window", func() {
			rwc := &MockRwc{
				Writes: []WriteScript{{8, nil}},
				Reads: []ReadScript{
					{frame(1, 0x84, 2), nil},
				},
			}
			d, _ := newDevice(rwc, 1)

			rs := d.Read("battery_voltage")
			Expect(rs["battery_voltage"].Err).To(
				MatchError("Illegal Data Address"))
			Expect(rwc.Calls).To(HaveLen(2))
		})
	})

	Describe("ReadAll", func() {
		It("sweeps a category in address order", func() {
			rwc := &MockRwc{
				Writes: []WriteScript{{8, nil}},
				Reads: []ReadScript{
					{frame(1, 4, 8,
						0x1F, 0x40, 0, 150, 0x0B, 0xB8, 0, 0), nil},
				},
			}
			d, _ := newDevice(rwc, 1)

			s := d.ReadAll("pv")
			Expect(s.At).NotTo(BeZero())
			Expect(s.Errs).To(BeEmpty())
			Expect(s.Values).To(HaveLen(3))
			Expect(s.Values[0].Param.Name).To(Equal("pv_voltage"))
			Expect(s.Values[0].String()).To(Equal("80.00 V"))
			Expect(s.Values[1].String()).To(Equal("1.50 A"))
			Expect(s.Values[2].String()).To(Equal("30.00 W"))
		})
	})

	Describe("CheckWrite", func() {
		d := &Device{DevAddr: 1}

		It("returns the words a write would send", func() {
			Expect(d.CheckWrite("battery_type", "GEL", false)).
				To(Equal([]uint16{2}))
			Expect(d.CheckWrite("float_voltage", 13.8, false)).
				To(Equal([]uint16{1380}))
		})
		It("still validates", func() {
			_, err := d.CheckWrite("battery_capacity", 1000, false)
			Expect(err).To(BeAssignableToTypeOf(RangeErr{}))
			_, err = d.CheckWrite("high_voltage_disconnect", 16.0, false)
			Expect(err).To(
				MatchError("confirmation required to write high_voltage_disconnect"))
		})
	})

	Describe("Write", func() {
		It("writes and verifies the readback", func() {
			rwc := &MockRwc{
				Writes: []WriteScript{{8, nil}, {8, nil}},
				Reads: []ReadScript{
					{frame(1, 6, 0x90, 1, 0, 200), nil},
					{frame(1, 3, 2, 0, 200), nil},
				},
			}
			d, _ := newDevice(rwc, 1)

			log := NewLog()
			Expect(d.Write("battery_capacity", 200, false)).To(Succeed())
			Expect(rwc.Calls).To(Equal([]string{
				fmt.Sprintf("WRITE [% X]", frame(1, 6, 0x90, 1, 0, 200)),
				"READ",
				fmt.Sprintf("WRITE [% X]", frame(1, 3, 0x90, 1, 0, 1)),
				"READ",
			}))
			Expect(log.Msgs).To(
				ContainElement("I:wrote battery_capacity = 200 Ah"))
		})

		It("reports a clamped readback", func() {
			rwc := &MockRwc{
				Writes: []WriteScript{{8, nil}, {8, nil}},
				Reads: []ReadScript{
					{frame(1, 6, 0x90, 1, 0, 200), nil},
					{frame(1, 3, 2, 0, 150), nil},
				},
			}
			d, _ := newDevice(rwc, 1)

			Expect(d.Write("battery_capacity", 200, false)).To(
				MatchError("battery_capacity: wrote 200 but device reads back 150"))
		})

		It("refuses critical writes without confirm", func() {
			d, port := newDevice(&MockRwc{}, 0)
			err := d.Write("high_voltage_disconnect", 16.0, false)
			Expect(err).To(BeAssignableToTypeOf(ConfirmErr("")))
			Expect(port.Calls).To(BeEmpty())
		})

		It("writes critical parameters with confirm", func() {
			rwc := &MockRwc{
				Writes: []WriteScript{{8, nil}, {8, nil}},
				Reads: []ReadScript{
					{frame(1, 6, 0x90, 3, 0x06, 0x40), nil},
					{frame(1, 3, 2, 0x06, 0x40), nil},
				},
			}
			d, _ := newDevice(rwc, 1)

			Expect(d.Write("high_voltage_disconnect", 16.0, true)).
				To(Succeed())
		})

		It("passes device exceptions through", func() {
			rwc := &MockRwc{
				Writes: []WriteScript{{8, nil}},
				Reads: []ReadScript{
					{frame(1, 0x86, 3), nil},
				},
			}
			d, _ := newDevice(rwc, 1)

			Expect(d.Write("battery_capacity", 200, false)).To(
				MatchError("Illegal Data Value"))
		})
	})
})
