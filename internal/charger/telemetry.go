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

package charger

import (
	"fmt"
	"io"
)

// WordBus reads and writes 16 bit registers at a device address and command code.
type WordBus interface {
	ReadWord(addr, cmd uint8) (uint16, error)
	WriteWord(addr, cmd uint8, val uint16) error
}

// Telemetry is the last polled set of battery measurements.
// A field whose read failed holds 0.
type Telemetry struct {
	Temperature       uint16 // 0.1 K
	Voltage           uint16 // mV
	Current           uint16 // mA, two's complement
	Charge            uint16 // relative state of charge, %
	RemainingCapacity uint16
	FullCapacity      uint16
	Status            uint16
	DesignCapacity    uint16
	DesignVoltage     uint16 // mV
}

type telemetryField struct {
	name  string
	cmd   uint8
	field func(*Telemetry) *uint16
}

var telemetryFields = []telemetryField{
	{"temperature", batteryTemperatureCmd, func(t *Telemetry) *uint16 { return &t.Temperature }},
	{"voltage", batteryVoltageCmd, func(t *Telemetry) *uint16 { return &t.Voltage }},
	{"current", batteryCurrentCmd, func(t *Telemetry) *uint16 { return &t.Current }},
	{"charge", batteryRelativeChargeCmd, func(t *Telemetry) *uint16 { return &t.Charge }},
	{"remaining-capacity", batteryRemainingCapacityCmd, func(t *Telemetry) *uint16 { return &t.RemainingCapacity }},
	{"full-capacity", batteryFullCapacityCmd, func(t *Telemetry) *uint16 { return &t.FullCapacity }},
	{"status", batteryStatusCmd, func(t *Telemetry) *uint16 { return &t.Status }},
	{"design-capacity", batteryDesignCapacityCmd, func(t *Telemetry) *uint16 { return &t.DesignCapacity }},
	{"design-voltage", batteryDesignVoltageCmd, func(t *Telemetry) *uint16 { return &t.DesignVoltage }},
}

// Refresh reads every field from the battery. Reads are independent, a failed
// read sets only that field to 0.
func (t *Telemetry) Refresh(bus WordBus, addr uint8) {
	for _, f := range telemetryFields {
		val, err := bus.ReadWord(addr, f.cmd)
		if err != nil {
			log.Debugf("Failed to read battery %s: %v", f.name, err)
			val = 0
		}
		*f.field(t) = val
	}
}

// Map returns the fields keyed by name.
func (t Telemetry) Map() map[string]uint16 {
	m := make(map[string]uint16, len(telemetryFields))
	for _, f := range telemetryFields {
		m[f.name] = *f.field(&t)
	}
	return m
}

type debugRegister struct {
	name    string
	charger bool
	cmd     uint8
}

var debugRegisters = []debugRegister{
	{"Temperature", false, batteryTemperatureCmd},
	{"Voltage", false, batteryVoltageCmd},
	{"Current", false, batteryCurrentCmd},
	{"Charge", false, batteryRelativeChargeCmd},
	{"Status", false, batteryStatusCmd},
	{"ChargeOption0", true, chargeOption0Cmd},
	{"ChargeOption1", true, chargeOption1Cmd},
	{"ChargeOption2", true, chargeOption2Cmd},
	{"ChargeOption3", true, chargeOption3Cmd},
	{"ChargeCurrent", true, chargeCurrentCmd},
	{"ChargeVoltage", true, chargeVoltageCmd},
	{"DischargeCurrent", true, dischargeCurrentCmd},
	{"InputCurrent", true, inputCurrentCmd},
	{"ProchotOption0", true, prochotOption0Cmd},
	{"ProchotOption1", true, prochotOption1Cmd},
	{"ProchotStatus", true, prochotStatusCmd},
}

// dumpRegisters writes a human readable dump of the battery and charger
// status registers. Read errors are printed, not returned.
func dumpRegisters(w io.Writer, bus WordBus, batteryAddr, chargerAddr uint8) {
	fmt.Fprintln(w, "Battery:")
	inCharger := false
	for _, r := range debugRegisters {
		addr := batteryAddr
		if r.charger {
			addr = chargerAddr
			if !inCharger {
				fmt.Fprintln(w, "Charger:")
				inCharger = true
			}
		}
		val, err := bus.ReadWord(addr, r.cmd)
		if err != nil {
			fmt.Fprintf(w, "  %s: ERROR %v\n", r.name, err)
		} else {
			fmt.Fprintf(w, "  %s: %04X\n", r.name, val)
		}
	}
}
