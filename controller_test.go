package tracer_test

import (
	"errors"
	"fmt"
	"io"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/bangzek/clock"
	. "github.com/ottago/tracer"
)

var _ = Describe("Controller", func() {
	const dsn = clock.DefaultScriptNow
	Context("single send", func() {
		It("runs just fine", func() {
			cmd := NewReadIRegsCmd(1, 0x3104, 1)
			tx := frame(1, 4, 0x31, 4, 0, 1)
			rx := frame(1, 4, 2, 0x05, 0x1E)
			rwc := &MockRwc{
				Writes: []WriteScript{
					{8, nil},
				},
				Reads: []ReadScript{
					{rx, nil},
				},
			}
			port := &MockPort{
				Opens: []OpenScript{
					{rwc, SERIAL_WAIT, nil},
				},
			}
			con := &Controller{
				Port: port,
			}
			log := NewLog()
			Expect(con.Send(cmd)).To(Succeed())
			Expect(cmd.Reg(0)).To(Equal(uint16(1310)))
			con.Close()
			Expect(port.Calls).To(Equal([]bool{false}))
			Expect(rwc.Calls).To(Equal([]string{
				fmt.Sprintf("WRITE [% X]", tx),
				"READ",
				"CLOSE",
			}))
			Expect(log.Msgs).To(Equal([]string{
				fmt.Sprintf("D:tx: % X", tx),
				"D:TX: 1<-RIR 12548:1",
				fmt.Sprintf("D:rx: % X", rx),
				"D:RX: 1->RIR 1[1310]",
			}))
		})
	})

	Context("error on open", func() {
		It("returns that err", func() {
			cmd1 := NewReadIRegsCmd(1, 0x3104, 1)
			err1 := errors.New("one")
			cmd2 := NewReadHRegsCmd(1, 0x9000, 1)
			err2 := errors.New("two")
			port := &MockPort{
				Opens: []OpenScript{
					{nil, SERIAL_WAIT, err1},
					{nil, SERIAL_WAIT, err2},
				},
			}
			con := &Controller{
				Port:    port,
				Retries: -1,
			}
			log := NewLog()
			Expect(con.Send(cmd1)).To(MatchError(err1))
			Expect(con.Send(cmd2)).To(MatchError(err2))
			Expect(port.Calls).To(Equal([]bool{false, true}))
			Expect(log.Msgs).To(BeEmpty())
		})
	})

	Context("error on tx", func() {
		It("returns that err", func() {
			cmd1 := NewReadIRegsCmd(1, 0x3104, 1)
			err1 := errors.New("one")
			cmd2 := NewReadHRegsCmd(1, 0x9000, 1)
			rwc1 := &MockRwc{Writes: []WriteScript{{8, err1}}}
			rwc2 := &MockRwc{Writes: []WriteScript{{5, nil}}}
			port := &MockPort{
				Opens: []OpenScript{
					{rwc1, SERIAL_WAIT, nil},
					{rwc2, SERIAL_WAIT, nil},
				},
			}
			con := &Controller{
				Port:    port,
				Retries: -1,
			}
			Expect(con.Send(cmd1)).To(MatchError(err1))
			Expect(con.Send(cmd2)).To(MatchError(io.ErrShortWrite))
			Expect(port.Calls).To(Equal([]bool{false, false}))
			Expect(rwc1.Calls).To(Equal([]string{
				fmt.Sprintf("WRITE [% X]", cmd1.TxBytes()),
				"CLOSE",
			}))
			Expect(rwc2.Calls).To(Equal([]string{
				fmt.Sprintf("WRITE [% X]", cmd2.TxBytes()),
				"CLOSE",
			}))
		})
	})

	Context("exception", func() {
		It("returns ModbusErr without retrying", func() {
			cmd := NewReadIRegsCmd(1, 0x4000, 1)
			rwc := &MockRwc{
				Writes: []WriteScript{
					{8, nil},
				},
				Reads: []ReadScript{
					{frame(1, 0x84, 2), nil},
				},
			}
			port := &MockPort{
				Opens: []OpenScript{
					{rwc, SERIAL_WAIT, nil},
				},
			}
			con := &Controller{
				Port: port,
			}
			Expect(con.Send(cmd)).To(MatchError(ModbusErr(2)))
			Expect(port.Calls).To(Equal([]bool{false}))
			Expect(rwc.Calls).To(Equal([]string{
				fmt.Sprintf("WRITE [% X]", cmd.TxBytes()),
				"READ",
			}))
		})
	})

	Context("bad rx", func() {
		It("retries and then returns BadRxErr", func() {
			cmd := NewReadIRegsCmd(1, 0x3104, 1)
			bad := frame(1, 4, 2, 0x05, 0x1E)
			bad[4]++ // corrupt the CRC
			good := frame(1, 4, 2, 0x05, 0x1E)
			rwc := &MockRwc{
				Writes: []WriteScript{
					{8, nil},
					{8, nil},
				},
				Reads: []ReadScript{
					{bad, nil},
					{good, nil},
				},
			}
			port := &MockPort{
				Opens: []OpenScript{
					{rwc, SERIAL_WAIT, nil},
					{rwc, SERIAL_WAIT, nil},
				},
			}
			con := &Controller{
				Port: port,
			}
			log := NewLog()
			Expect(con.Send(cmd)).To(Succeed())
			Expect(cmd.Reg(0)).To(Equal(uint16(1310)))
			Expect(port.Calls).To(Equal([]bool{false, false}))
			Expect(rwc.Calls).To(Equal([]string{
				fmt.Sprintf("WRITE [% X]", cmd.TxBytes()),
				"READ",
				"CLOSE",
				fmt.Sprintf("WRITE [% X]", cmd.TxBytes()),
				"READ",
			}))
			Expect(log.Msgs).To(ContainElement("D:retry 1: 1<-RIR 12548:1"))
		})

		It("returns BadRxErr when retries are disabled", func() {
			cmd := NewReadIRegsCmd(1, 0x3104, 1)
			bad := frame(1, 4, 2, 0x05, 0x1E)
			bad[4]++
			rwc := &MockRwc{
				Writes: []WriteScript{
					{8, nil},
				},
				Reads: []ReadScript{
					{bad, nil},
				},
			}
			port := &MockPort{
				Opens: []OpenScript{
					{rwc, SERIAL_WAIT, nil},
				},
			}
			con := &Controller{
				Port:    port,
				Retries: -1,
			}
			Expect(con.Send(cmd)).To(
				MatchError(fmt.Sprintf("invalid response: [% X]", bad)))
			Expect(rwc.Calls).To(Equal([]string{
				fmt.Sprintf("WRITE [% X]", cmd.TxBytes()),
				"READ",
				"CLOSE",
			}))
		})
	})

	Context("timeout", func() {
		It("retries each attempt and returns ErrTimeout", func() {
			t := time.Date(2026, time.August, 29, 10, 11, 12, 0, time.UTC)
			mc := new(clock.Mock)
			mc.NowScripts = []time.Duration{
				0, TIMEOUT,
				0, TIMEOUT,
				0, TIMEOUT,
			}
			SetClock(mc)
			mc.Start(t)
			cmd := NewReadIRegsCmd(1, 0x3104, 1)
			rwc := &MockRwc{
				Writes: []WriteScript{
					{8, nil},
					{8, nil},
					{8, nil},
				},
			}
			port := &MockPort{
				Opens: []OpenScript{
					{rwc, SERIAL_WAIT, nil},
					{rwc, SERIAL_WAIT, nil},
					{rwc, SERIAL_WAIT, nil},
				},
			}
			con := &Controller{
				Port: port,
			}
			Expect(con.Send(cmd)).To(MatchError(ErrTimeout))
			Expect(port.Calls).To(Equal([]bool{false, false, false}))
			Expect(rwc.Calls).To(Equal([]string{
				fmt.Sprintf("WRITE [% X]", cmd.TxBytes()),
				"READ",
				"CLOSE",
				fmt.Sprintf("WRITE [% X]", cmd.TxBytes()),
				"READ",
				"CLOSE",
				fmt.Sprintf("WRITE [% X]", cmd.TxBytes()),
				"READ",
				"CLOSE",
			}))
			mc.Stop()
			SetClock(clock.New())
		})
	})
})

type MockPort struct {
	Opens []OpenScript

	Calls []bool
	i     int
}

type OpenScript struct {
	Rwc  io.ReadWriteCloser
	Wait time.Duration
	Err  error
}

func (m *MockPort) Open(
	repeat bool,
) (rwc io.ReadWriteCloser, wait time.Duration, err error) {
	if m.i < len(m.Opens) {
		rwc = m.Opens[m.i].Rwc
		wait = m.Opens[m.i].Wait
		err = m.Opens[m.i].Err
	}
	m.i++
	m.Calls = append(m.Calls, repeat)
	return
}

type MockRwc struct {
	Writes []WriteScript
	Reads  []ReadScript

	Calls []string

	iWrite int
	iRead  int
}

type WriteScript struct {
	N   int
	Err error
}

type ReadScript struct {
	Bytes []byte
	Err   error
}

func (m *MockRwc) Write(b []byte) (n int, err error) {
	if m.iWrite < len(m.Writes) {
		n = m.Writes[m.iWrite].N
		err = m.Writes[m.iWrite].Err
	}
	m.Calls = append(m.Calls, fmt.Sprintf("WRITE [% X]", b))
	m.iWrite++
	return
}

func (m *MockRwc) Read(b []byte) (n int, err error) {
	if m.iRead < len(m.Reads) {
		s := m.Reads[m.iRead]
		if len(b) < len(s.Bytes) {
			panic(fmt.Sprintf("Invalid MockRwc.ReadScript[%d].Bytes %d>%d",
				m.iRead, len(s.Bytes), len(b)))
		}
		if len(s.Bytes) > 0 {
			copy(b, s.Bytes)
			n = len(s.Bytes)
		}
		err = s.Err
	}
	m.Calls = append(m.Calls, "READ")
	m.iRead++
	return
}

func (m *MockRwc) Close() error {
	m.Calls = append(m.Calls, "CLOSE")
	return nil
}
