/*
tc2-charge-controller - Battery charging policy for the TC2 power controller
Copyright (C) 2024, The Cacophony Project

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package smbus implements SMBus word transactions on top of a periph.io I2C bus.
package smbus

import (
	"errors"
	"fmt"

	"github.com/sigurn/crc8"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// ErrPEC is returned (wrapped in a BusError) when a read fails its packet error check.
var ErrPEC = errors.New("PEC mismatch")

var pecTable = crc8.MakeTable(crc8.Params{
	Poly:   0x07, // x^8 + x^2 + x + 1
	Init:   0x00,
	RefIn:  false,
	RefOut: false,
	XorOut: 0x00,
})

// BusError is a failed read or write on the bus.
type BusError struct {
	Op   string
	Addr uint8
	Cmd  uint8
	Err  error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("smbus %s addr 0x%02X cmd 0x%02X: %v", e.Op, e.Addr, e.Cmd, e.Err)
}

func (e *BusError) Unwrap() error {
	return e.Err
}

// Bus issues SMBus read-word and write-word transactions.
type Bus struct {
	bus i2c.Bus
	pec bool
}

// New wraps an I2C bus. With pec set every transaction carries a packet error code.
func New(bus i2c.Bus, pec bool) *Bus {
	return &Bus{bus: bus, pec: pec}
}

// Open initialises the host drivers and opens the named I2C bus, "" being the first one.
func Open(name string, pec bool) (*Bus, i2c.BusCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, err
	}
	bc, err := i2creg.Open(name)
	if err != nil {
		return nil, nil, err
	}
	return New(bc, pec), bc, nil
}

// ReadWord reads the 16 bit little endian word at the command code.
func (b *Bus) ReadWord(addr, cmd uint8) (uint16, error) {
	n := 2
	if b.pec {
		n++
	}
	read := make([]byte, n)
	if err := b.bus.Tx(uint16(addr), []byte{cmd}, read); err != nil {
		return 0, &BusError{Op: "read", Addr: addr, Cmd: cmd, Err: err}
	}
	if b.pec {
		want := pec([]byte{addr << 1, cmd, addr<<1 | 1, read[0], read[1]})
		if read[2] != want {
			return 0, &BusError{Op: "read", Addr: addr, Cmd: cmd,
				Err: fmt.Errorf("%w: received 0x%02X, calculated 0x%02X", ErrPEC, read[2], want)}
		}
	}
	return uint16(read[0]) | uint16(read[1])<<8, nil
}

// WriteWord writes a 16 bit word, low byte first, to the command code.
func (b *Bus) WriteWord(addr, cmd uint8, val uint16) error {
	write := []byte{cmd, byte(val), byte(val >> 8)}
	if b.pec {
		write = append(write, pec(append([]byte{addr << 1}, write...)))
	}
	if err := b.bus.Tx(uint16(addr), write, nil); err != nil {
		return &BusError{Op: "write", Addr: addr, Cmd: cmd, Err: err}
	}
	return nil
}

// Probe checks that a device acknowledges its address.
func (b *Bus) Probe(addr uint8) error {
	if err := b.bus.Tx(uint16(addr), nil, nil); err != nil {
		return &BusError{Op: "probe", Addr: addr, Err: err}
	}
	return nil
}

func pec(data []byte) byte {
	return crc8.Checksum(data, pecTable)
}
