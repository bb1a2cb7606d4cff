package charger

import (
	"errors"
)

var errFakeBus = errors.New("fake bus error")

type writeOp struct {
	addr uint8
	cmd  uint8
	val  uint16
}

// fakeBus is a register map with per register failure injection.
type fakeBus struct {
	regs       map[uint16]uint16
	failReads  map[uint16]bool
	failWrites map[uint16]bool
	reads      int
	writes     []writeOp
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		regs:       map[uint16]uint16{},
		failReads:  map[uint16]bool{},
		failWrites: map[uint16]bool{},
	}
}

func regKey(addr, cmd uint8) uint16 {
	return uint16(addr)<<8 | uint16(cmd)
}

func (b *fakeBus) ReadWord(addr, cmd uint8) (uint16, error) {
	b.reads++
	if b.failReads[regKey(addr, cmd)] {
		return 0xFFFF, errFakeBus
	}
	return b.regs[regKey(addr, cmd)], nil
}

func (b *fakeBus) WriteWord(addr, cmd uint8, val uint16) error {
	b.writes = append(b.writes, writeOp{addr, cmd, val})
	if b.failWrites[regKey(addr, cmd)] {
		return errFakeBus
	}
	b.regs[regKey(addr, cmd)] = val
	return nil
}

func (b *fakeBus) setBattery(cmd uint8, val uint16) {
	b.regs[regKey(defaultBatteryAddress, cmd)] = val
}
