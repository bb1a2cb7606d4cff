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

import "fmt"

// Limits are the board's charge current (mA), charge voltage (mV) and input current (mA).
type Limits struct {
	ChargeCurrent uint16 `mapstructure:"charge-current"`
	ChargeVoltage uint16 `mapstructure:"charge-voltage"`
	InputCurrent  uint16 `mapstructure:"input-current"`
}

// Programmer writes the charge/no charge state into the charger registers.
// Enabled mirrors what was last successfully written, it is not read back.
type Programmer struct {
	bus     WordBus
	addr    uint8
	limits  Limits
	Enabled bool
}

func NewProgrammer(bus WordBus, addr uint8, limits Limits, enabled bool) *Programmer {
	return &Programmer{
		bus:     bus,
		addr:    addr,
		limits:  limits,
		Enabled: enabled,
	}
}

// Disable zeroes the charge current, charge voltage and input current with the
// 175s watchdog armed, so the charger falls back to a safe state by itself if
// it stops being managed. Does nothing if already disabled.
// A failed write stops the sequence, leaving later registers as they were.
func (p *Programmer) Disable() error {
	if !p.Enabled {
		return nil
	}

	if err := p.bus.WriteWord(p.addr, chargeOption0Cmd, optionsWatchdogArmed); err != nil {
		log.Warnf("Failed to arm charger watchdog: %v", err)
	}
	if err := p.bus.WriteWord(p.addr, chargeCurrentCmd, 0); err != nil {
		return fmt.Errorf("failed to disable charge current: %w", err)
	}
	if err := p.bus.WriteWord(p.addr, chargeVoltageCmd, 0); err != nil {
		return fmt.Errorf("failed to disable charge voltage: %w", err)
	}
	if err := p.bus.WriteWord(p.addr, inputCurrentCmd, 0); err != nil {
		return fmt.Errorf("failed to disable input current: %w", err)
	}

	log.Info("Charger disabled")
	p.Enabled = false
	return nil
}

// Enable programs the board limits and then disables the watchdog, as the
// settings are refreshed every tick while charging. Does nothing if already enabled.
func (p *Programmer) Enable() error {
	if p.Enabled {
		return nil
	}

	if err := p.Disable(); err != nil {
		return err
	}
	if err := p.bus.WriteWord(p.addr, chargeCurrentCmd, p.limits.ChargeCurrent); err != nil {
		return fmt.Errorf("failed to set charge current: %w", err)
	}
	if err := p.bus.WriteWord(p.addr, chargeVoltageCmd, p.limits.ChargeVoltage); err != nil {
		return fmt.Errorf("failed to set charge voltage: %w", err)
	}
	if err := p.bus.WriteWord(p.addr, inputCurrentCmd, p.limits.InputCurrent); err != nil {
		return fmt.Errorf("failed to set input current: %w", err)
	}
	if err := p.bus.WriteWord(p.addr, chargeOption0Cmd, optionsWatchdogDisabled); err != nil {
		// The watchdog stays armed, the charger reverts to safe after it expires.
		log.Warnf("Failed to disable charger watchdog: %v", err)
	}

	log.Info("Charger enabled")
	p.Enabled = true
	return nil
}

// Apply enables the charger for Charge and disables it otherwise.
func (p *Programmer) Apply(cmd ChargeCommand) error {
	if cmd == Charge {
		return p.Enable()
	}
	return p.Disable()
}
