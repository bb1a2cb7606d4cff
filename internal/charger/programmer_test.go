package charger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLimits = Limits{
	ChargeCurrent: 1536,
	ChargeVoltage: 12600,
	InputCurrent:  3200,
}

func disableWrites() []writeOp {
	return []writeOp{
		{defaultChargerAddress, chargeOption0Cmd, 0xE108},
		{defaultChargerAddress, chargeCurrentCmd, 0},
		{defaultChargerAddress, chargeVoltageCmd, 0},
		{defaultChargerAddress, inputCurrentCmd, 0},
	}
}

func TestOptionFlags(t *testing.T) {
	assert.Equal(t, uint16(0xE108), optionsWatchdogArmed)
	assert.Equal(t, uint16(0x8108), optionsWatchdogDisabled)
}

func TestDisableOnlyWritesOnce(t *testing.T) {
	bus := newFakeBus()
	p := NewProgrammer(bus, defaultChargerAddress, testLimits, true)

	require.NoError(t, p.Disable())
	assert.Equal(t, disableWrites(), bus.writes)
	assert.False(t, p.Enabled)

	require.NoError(t, p.Disable())
	assert.Len(t, bus.writes, 4)
}

func TestDisableWhenDisabledDoesNothing(t *testing.T) {
	bus := newFakeBus()
	p := NewProgrammer(bus, defaultChargerAddress, testLimits, false)

	require.NoError(t, p.Disable())
	assert.Empty(t, bus.writes)
}

func TestEnable(t *testing.T) {
	bus := newFakeBus()
	p := NewProgrammer(bus, defaultChargerAddress, testLimits, false)

	require.NoError(t, p.Enable())
	assert.Equal(t, []writeOp{
		{defaultChargerAddress, chargeCurrentCmd, 1536},
		{defaultChargerAddress, chargeVoltageCmd, 12600},
		{defaultChargerAddress, inputCurrentCmd, 3200},
		{defaultChargerAddress, chargeOption0Cmd, 0x8108},
	}, bus.writes)
	assert.True(t, p.Enabled)

	require.NoError(t, p.Enable())
	assert.Len(t, bus.writes, 4)
}

func TestEnableWhenEnabledDoesNothing(t *testing.T) {
	bus := newFakeBus()
	p := NewProgrammer(bus, defaultChargerAddress, testLimits, true)

	require.NoError(t, p.Enable())
	assert.Empty(t, bus.writes)
	assert.True(t, p.Enabled)
}

func TestDisableStopsOnFirstFailedWrite(t *testing.T) {
	bus := newFakeBus()
	bus.failWrites[regKey(defaultChargerAddress, chargeVoltageCmd)] = true
	p := NewProgrammer(bus, defaultChargerAddress, testLimits, true)

	err := p.Disable()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errFakeBus))
	assert.Equal(t, disableWrites()[:3], bus.writes, "input current must not be written")
	assert.True(t, p.Enabled)
}

func TestDisableIgnoresFailedOptionWrite(t *testing.T) {
	bus := newFakeBus()
	bus.failWrites[regKey(defaultChargerAddress, chargeOption0Cmd)] = true
	p := NewProgrammer(bus, defaultChargerAddress, testLimits, true)

	require.NoError(t, p.Disable())
	assert.Equal(t, disableWrites(), bus.writes)
	assert.False(t, p.Enabled)
}

func TestEnableStopsOnFirstFailedWrite(t *testing.T) {
	bus := newFakeBus()
	bus.failWrites[regKey(defaultChargerAddress, chargeCurrentCmd)] = true
	p := NewProgrammer(bus, defaultChargerAddress, testLimits, false)

	err := p.Enable()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errFakeBus))
	assert.Len(t, bus.writes, 1)
	assert.False(t, p.Enabled)
}

func TestEnableIgnoresFailedOptionWrite(t *testing.T) {
	bus := newFakeBus()
	bus.failWrites[regKey(defaultChargerAddress, chargeOption0Cmd)] = true
	p := NewProgrammer(bus, defaultChargerAddress, testLimits, false)

	require.NoError(t, p.Enable())
	assert.Len(t, bus.writes, 4)
	assert.True(t, p.Enabled)
}

func TestApply(t *testing.T) {
	bus := newFakeBus()
	p := NewProgrammer(bus, defaultChargerAddress, testLimits, false)

	require.NoError(t, p.Apply(Charge))
	assert.True(t, p.Enabled)
	require.NoError(t, p.Apply(NoCharge))
	assert.False(t, p.Enabled)
	assert.Len(t, bus.writes, 8)
	assert.Equal(t, disableWrites(), bus.writes[4:])
}
