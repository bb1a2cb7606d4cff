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

// ChargeCommand is the outcome of a policy evaluation.
type ChargeCommand int

const (
	NoCharge ChargeCommand = iota
	Charge
)

func (c ChargeCommand) String() string {
	switch c {
	case Charge:
		return "Charge"
	case NoCharge:
		return "No Charge"
	default:
		return "Unknown"
	}
}

// Policy decides whether the battery should be charging from its relative
// charge and the start/stop thresholds.
//
// Between the start and stop thresholds no rule applies and the previous
// decision is kept, so once charging starts it continues until the stop
// threshold and once stopped it stays stopped until the charge falls back to
// the start threshold.
type Policy struct {
	// ShouldCharge is the decision from the last evaluation. It starts true.
	ShouldCharge bool
}

func NewPolicy() *Policy {
	return &Policy{ShouldCharge: true}
}

// Evaluate applies the rules in order, the first match wins.
func (p *Policy) Evaluate(charge uint16, start, stop int) ChargeCommand {
	percent := int(charge)
	switch {
	case stop == stopThresholdDisabled:
		// Always charge.
		p.ShouldCharge = true
	case percent >= stop:
		p.ShouldCharge = false
	case start == startThresholdDisabled:
		// Always charge up to the stop threshold.
		p.ShouldCharge = true
	case percent <= start:
		p.ShouldCharge = true
	}
	if p.ShouldCharge {
		return Charge
	}
	return NoCharge
}
