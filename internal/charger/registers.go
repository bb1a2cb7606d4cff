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

// SMBus addresses of the smart battery and the charger.
const (
	defaultBatteryAddress = 0x0B
	defaultChargerAddress = 0x09
)

// Smart battery command codes.
const (
	batteryTemperatureCmd       = 0x08
	batteryVoltageCmd           = 0x09
	batteryCurrentCmd           = 0x0A
	batteryRelativeChargeCmd    = 0x0D
	batteryRemainingCapacityCmd = 0x0F
	batteryFullCapacityCmd      = 0x10
	batteryStatusCmd            = 0x16
	batteryDesignCapacityCmd    = 0x18
	batteryDesignVoltageCmd     = 0x19
)

// Charger command codes.
const (
	chargeOption0Cmd    = 0x12
	chargeCurrentCmd    = 0x14
	chargeVoltageCmd    = 0x15
	chargeOption3Cmd    = 0x37
	chargeOption2Cmd    = 0x38
	dischargeCurrentCmd = 0x39
	prochotStatusCmd    = 0x3A
	chargeOption1Cmd    = 0x3B
	prochotOption0Cmd   = 0x3C
	prochotOption1Cmd   = 0x3D
	inputCurrentCmd     = 0x3F
)

// ChargeOption0 flags.
const (
	optLowPowerMode  uint16 = 1 << 15    // Low power mode enable
	optWatchdog175s  uint16 = 0b11 << 13 // Watchdog timer adjust
	optPWMFreq800kHz uint16 = 0b01 << 8  // Switching frequency
	optIDCHGGain     uint16 = 1 << 3     // IDCHG amplifier gain

	optionsWatchdogArmed    = optLowPowerMode | optWatchdog175s | optPWMFreq800kHz | optIDCHGGain
	optionsWatchdogDisabled = optLowPowerMode | optPWMFreq800kHz | optIDCHGGain
)
