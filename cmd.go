package tracer

import (
	"bytes"
	"fmt"
)

// Cmd is one Modbus RTU request/response pair. TxBytes is the complete
// request frame including CRC; RxBytes is the buffer the Controller fills
// with the response. Zero capacity means no response is expected
// (broadcast). Tx and Rx render the frames for the debug log.
type Cmd interface {
	TxBytes() []byte
	DevAddr() byte
	Addr() uint16
	Tx() string

	RxBytes() *[]byte
	IsValidRx() bool
	Rx() string
	Err() error
}

type cmd struct {
	tx []byte
	rx []byte
}

func (c *cmd) TxBytes() []byte {
	return c.tx
}

func (c *cmd) DevAddr() byte {
	return c.tx[0]
}

func (c *cmd) Addr() uint16 {
	return (uint16(c.tx[2]) << 8) | uint16(c.tx[3])
}

func (c *cmd) RxBytes() *[]byte {
	return &c.rx
}

func (c *cmd) Err() error {
	if len(c.rx) == 5 {
		return ModbusErr(c.rx[2])
	} else {
		return nil
	}
}

// isValidErr recognizes an exception frame: echoed function code with the
// high bit set, one code byte, valid CRC.
func (c *cmd) isValidErr() bool {
	return len(c.rx) == 5 && checksum(c.rx) &&
		c.rx[0] == c.tx[0] && c.rx[1] == c.tx[1]|0x80
}

//----------------------------------------------------------------------

// readRegsCmd is the shared shape of the 0x03 and 0x04 register reads.
type readRegsCmd struct {
	cmd
}

func newReadRegsCmd(fc, devAddr byte, addr, count uint16) readRegsCmd {
	if devAddr == 0 {
		panic("could not broadcast register read")
	}
	if count == 0 {
		panic("zero count")
	}
	if count > 125 {
		panic(fmt.Sprintf("count too many: %d", count))
	}
	if addr+count-1 < addr {
		panic(fmt.Sprintf("address overflow: %d, %d", addr, count))
	}

	tx := make([]byte, 8)
	tx[0] = devAddr
	tx[1] = fc
	tx[2] = byte(addr >> 8)
	tx[3] = byte(addr)
	// tx[4] always 0
	tx[5] = byte(count)
	SetChecksum(tx)

	return readRegsCmd{cmd{
		tx: tx,
		rx: make([]byte, 0, count*2+5),
	}}
}

func (c *readRegsCmd) Count() int {
	return int(c.tx[5])
}

func (c *readRegsCmd) Reg(i int) uint16 {
	if i < 0 || i >= c.Count() {
		panic(fmt.Sprintf("invalid i: %d", i))
	}
	return (uint16(c.rx[3+i*2]) << 8) | uint16(c.rx[3+i*2+1])
}

// Regs copies all response words out of the frame.
func (c *readRegsCmd) Regs() []uint16 {
	regs := make([]uint16, c.Count())
	for i := range regs {
		regs[i] = c.Reg(i)
	}
	return regs
}

func (c *readRegsCmd) IsValidRx() bool {
	return c.isValidErr() ||
		(len(c.rx) >= 7 && checksum(c.rx) &&
			c.rx[0] == c.tx[0] &&
			c.rx[1] == c.tx[1] &&
			c.rx[2] == c.tx[5]*2 &&
			len(c.rx) == int(c.rx[2])+5)
}

func (c *readRegsCmd) txString(tag string) string {
	return fmt.Sprintf("%d<-%s %d:%d", c.DevAddr(), tag, c.Addr(), c.Count())
}

func (c *readRegsCmd) rxString(tag string) string {
	if err := c.Err(); err != nil {
		return fmt.Sprintf("%d->%s %s", c.rx[0], tag, err)
	}
	return fmt.Sprintf("%d->%s %d%v", c.rx[0], tag, c.Count(), c.Regs())
}

//----------------------------------------------------------------------

// ReadIRegsCmd reads input registers (function code 0x04): the Tracer's
// read-only telemetry, status and statistics space.
type ReadIRegsCmd struct {
	readRegsCmd
}

func NewReadIRegsCmd(devAddr byte, addr, count uint16) *ReadIRegsCmd {
	return &ReadIRegsCmd{newReadRegsCmd(4, devAddr, addr, count)}
}

func (c *ReadIRegsCmd) Tx() string {
	return c.txString("RIR")
}

func (c *ReadIRegsCmd) Rx() string {
	return c.rxString("RIR")
}

func (c *ReadIRegsCmd) String() string {
	if cap(c.rx) > 0 && len(c.rx) > 0 && c.IsValidRx() {
		return c.Tx() + "\n" + c.Rx()
	}
	return c.Tx()
}

//----------------------------------------------------------------------

// ReadHRegsCmd reads holding registers (function code 0x03): the Tracer's
// configuration space.
type ReadHRegsCmd struct {
	readRegsCmd
}

func NewReadHRegsCmd(devAddr byte, addr, count uint16) *ReadHRegsCmd {
	return &ReadHRegsCmd{newReadRegsCmd(3, devAddr, addr, count)}
}

func (c *ReadHRegsCmd) Tx() string {
	return c.txString("RHR")
}

func (c *ReadHRegsCmd) Rx() string {
	return c.rxString("RHR")
}

func (c *ReadHRegsCmd) String() string {
	if cap(c.rx) > 0 && len(c.rx) > 0 && c.IsValidRx() {
		return c.Tx() + "\n" + c.Rx()
	}
	return c.Tx()
}

//----------------------------------------------------------------------

// WriteRegCmd writes one holding register (function code 0x06).
type WriteRegCmd struct {
	cmd
}

func NewWriteRegCmd(devAddr byte, addr, val uint16) *WriteRegCmd {
	tx := make([]byte, 8)
	tx[0] = devAddr
	tx[1] = 6
	tx[2] = byte(addr >> 8)
	tx[3] = byte(addr)
	tx[4] = byte(val >> 8)
	tx[5] = byte(val)
	SetChecksum(tx)

	var rx []byte
	if devAddr > 0 {
		rx = make([]byte, 0, len(tx))
	}

	return &WriteRegCmd{cmd{
		tx: tx,
		rx: rx,
	}}
}

func (c *WriteRegCmd) Reg() uint16 {
	return (uint16(c.tx[4]) << 8) | uint16(c.tx[5])
}

func (c *WriteRegCmd) IsValidRx() bool {
	return c.isValidErr() || (len(c.rx) == 8 && bytes.Equal(c.rx, c.tx))
}

func (c *WriteRegCmd) Tx() string {
	return fmt.Sprintf("%d<-W1R %d %d", c.DevAddr(), c.Addr(), c.Reg())
}

func (c *WriteRegCmd) Rx() string {
	if err := c.Err(); err != nil {
		return fmt.Sprintf("%d->W1R %s", c.rx[0], err)
	}
	addr := (uint16(c.rx[2]) << 8) | uint16(c.rx[3])
	val := (uint16(c.rx[4]) << 8) | uint16(c.rx[5])
	return fmt.Sprintf("%d->W1R %d %d", c.rx[0], addr, val)
}

func (c *WriteRegCmd) String() string {
	if cap(c.rx) > 0 && len(c.rx) > 0 && c.IsValidRx() {
		return c.Tx() + "\n" + c.Rx()
	}
	return c.Tx()
}

//----------------------------------------------------------------------

// WriteRegsCmd writes multiple holding registers (function code 0x10),
// used for the two-word split values and multi-register restores.
type WriteRegsCmd struct {
	cmd
}

func NewWriteRegsCmd(devAddr byte, addr uint16, values []uint16) *WriteRegsCmd {
	if len(values) == 0 {
		panic("empty values")
	}
	if len(values) > 123 {
		panic(fmt.Sprintf("values too many: %d", len(values)))
	}
	count := uint16(len(values))
	if addr+count-1 < addr {
		panic(fmt.Sprintf("address overflow: %d, %d", addr, count))
	}

	l := count * 2
	tx := make([]byte, l+9)
	tx[0] = devAddr
	tx[1] = 16
	tx[2] = byte(addr >> 8)
	tx[3] = byte(addr)
	// tx[4] always 0
	tx[5] = byte(count)
	tx[6] = byte(l)
	for i, v := range values {
		tx[7+i*2] = byte(v >> 8)
		tx[8+i*2] = byte(v)
	}
	SetChecksum(tx)

	var rx []byte
	if devAddr > 0 {
		rx = make([]byte, 0, 8)
	}

	return &WriteRegsCmd{cmd{
		tx: tx,
		rx: rx,
	}}
}

func (c *WriteRegsCmd) Count() int {
	return int(c.tx[5])
}

func (c *WriteRegsCmd) Reg(i int) uint16 {
	if i < 0 || i >= c.Count() {
		panic(fmt.Sprintf("invalid i: %d", i))
	}
	return (uint16(c.tx[7+i*2]) << 8) | uint16(c.tx[7+i*2+1])
}

func (c *WriteRegsCmd) Regs() []uint16 {
	regs := make([]uint16, c.Count())
	for i := range regs {
		regs[i] = c.Reg(i)
	}
	return regs
}

func (c *WriteRegsCmd) IsValidRx() bool {
	return c.isValidErr() ||
		(len(c.rx) == 8 && checksum(c.rx) &&
			bytes.Equal(c.rx[:6], c.tx[:6]))
}

func (c *WriteRegsCmd) Tx() string {
	return fmt.Sprintf("%d<-WR %d:%d%v",
		c.DevAddr(), c.Addr(), c.Count(), c.Regs())
}

func (c *WriteRegsCmd) Rx() string {
	if err := c.Err(); err != nil {
		return fmt.Sprintf("%d->WR %s", c.rx[0], err)
	}
	addr := (uint16(c.rx[2]) << 8) | uint16(c.rx[3])
	count := (int(c.rx[4]) << 8) | int(c.rx[5])
	return fmt.Sprintf("%d->WR %d:%d", c.rx[0], addr, count)
}

func (c *WriteRegsCmd) String() string {
	if cap(c.rx) > 0 && len(c.rx) > 0 && c.IsValidRx() {
		return c.Tx() + "\n" + c.Rx()
	}
	return c.Tx()
}
