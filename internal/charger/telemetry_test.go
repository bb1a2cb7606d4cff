package charger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func fullBattery() *fakeBus {
	bus := newFakeBus()
	bus.setBattery(batteryTemperatureCmd, 2982)
	bus.setBattery(batteryVoltageCmd, 12400)
	bus.setBattery(batteryCurrentCmd, 500)
	bus.setBattery(batteryRelativeChargeCmd, 64)
	bus.setBattery(batteryRemainingCapacityCmd, 3200)
	bus.setBattery(batteryFullCapacityCmd, 5000)
	bus.setBattery(batteryStatusCmd, 0x00C0)
	bus.setBattery(batteryDesignCapacityCmd, 5200)
	bus.setBattery(batteryDesignVoltageCmd, 11400)
	return bus
}

func TestRefresh(t *testing.T) {
	bus := fullBattery()
	var tel Telemetry
	tel.Refresh(bus, defaultBatteryAddress)

	assert.Equal(t, Telemetry{
		Temperature:       2982,
		Voltage:           12400,
		Current:           500,
		Charge:            64,
		RemainingCapacity: 3200,
		FullCapacity:      5000,
		Status:            0x00C0,
		DesignCapacity:    5200,
		DesignVoltage:     11400,
	}, tel)
	assert.Equal(t, 9, bus.reads)
}

func TestRefreshFailedReadIsZero(t *testing.T) {
	bus := fullBattery()
	var tel Telemetry
	tel.Refresh(bus, defaultBatteryAddress)

	bus.failReads[regKey(defaultBatteryAddress, batteryVoltageCmd)] = true
	bus.setBattery(batteryRelativeChargeCmd, 65)
	tel.Refresh(bus, defaultBatteryAddress)

	assert.Equal(t, uint16(0), tel.Voltage)
	assert.Equal(t, uint16(65), tel.Charge)
	assert.Equal(t, uint16(2982), tel.Temperature)
	assert.Equal(t, uint16(11400), tel.DesignVoltage)
	assert.Equal(t, 18, bus.reads, "a failed read must not stop the other reads")
}

func TestRefreshAllFailed(t *testing.T) {
	bus := fullBattery()
	tel := Telemetry{Charge: 50, Voltage: 12000}
	for _, f := range telemetryFields {
		bus.failReads[regKey(defaultBatteryAddress, f.cmd)] = true
	}
	tel.Refresh(bus, defaultBatteryAddress)
	assert.Equal(t, Telemetry{}, tel)
}

func TestTelemetryMap(t *testing.T) {
	var tel Telemetry
	tel.Refresh(fullBattery(), defaultBatteryAddress)

	m := tel.Map()
	assert.Len(t, m, 9)
	assert.Equal(t, uint16(64), m["charge"])
	assert.Equal(t, uint16(12400), m["voltage"])
	assert.Equal(t, uint16(5200), m["design-capacity"])
}

func TestDumpRegisters(t *testing.T) {
	bus := fullBattery()
	bus.regs[regKey(defaultChargerAddress, chargeOption0Cmd)] = 0xE108
	bus.failReads[regKey(defaultChargerAddress, prochotStatusCmd)] = true

	var buf bytes.Buffer
	dumpRegisters(&buf, bus, defaultBatteryAddress, defaultChargerAddress)
	out := buf.String()

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 18)
	assert.Equal(t, "Battery:", lines[0])
	assert.Equal(t, "  Temperature: 0BA6", lines[1])
	assert.Equal(t, "  Charge: 0040", lines[4])
	assert.Equal(t, "Charger:", lines[6])
	assert.Equal(t, "  ChargeOption0: E108", lines[7])
	assert.Equal(t, "  ProchotStatus: ERROR "+errFakeBus.Error(), lines[17])
	assert.Equal(t, 16, bus.reads)
	assert.Empty(t, bus.writes)
}
