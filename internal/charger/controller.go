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
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/TheCacophonyProject/event-reporter/v3/eventclient"
	"github.com/TheCacophonyProject/tc2-charge-controller/internal/settings"
)

// Controller owns all charging state. One tick or threshold change runs at a time.
type Controller struct {
	mu sync.Mutex

	bus         WordBus
	batteryAddr uint8
	thresholds  *Thresholds
	telemetry   Telemetry
	policy      *Policy
	programmer  *Programmer

	// Replaced in tests.
	addEvent      func(eventclient.Event) error
	errorReported bool

	// Only touched by the Run goroutine.
	tickFailing bool
}

func NewController(bus WordBus, conf *Config, thresholds *Thresholds) *Controller {
	return &Controller{
		bus:         bus,
		batteryAddr: conf.BatteryAddress,
		thresholds:  thresholds,
		policy:      NewPolicy(),
		programmer:  NewProgrammer(bus, conf.ChargerAddress, conf.Limits, conf.AssumeChargerEnabled),
		addEvent:    eventclient.AddEvent,
	}
}

// Tick polls the battery, evaluates the policy and programs the charger.
func (c *Controller) Tick() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tick()
}

func (c *Controller) tick() error {
	c.telemetry.Refresh(c.bus, c.batteryAddr)
	start, stop := c.thresholds.Start(), c.thresholds.Stop()
	cmd := c.policy.Evaluate(c.telemetry.Charge, start, stop)
	log.Debugf("Charge %d%%, start %d%%, stop %d%%: %s", c.telemetry.Charge, start, stop, cmd)

	wasEnabled := c.programmer.Enabled
	err := c.programmer.Apply(cmd)
	if c.programmer.Enabled != wasEnabled {
		eventType := "chargerDisabled"
		if c.programmer.Enabled {
			eventType = "chargerEnabled"
		}
		c.reportEvent(eventType, map[string]interface{}{
			"charge":         c.telemetry.Charge,
			"startThreshold": start,
			"stopThreshold":  stop,
		})
	}

	if err != nil {
		if !c.errorReported {
			c.reportEvent("chargerError", map[string]interface{}{
				"command": cmd.String(),
				"error":   err.Error(),
			})
			c.errorReported = true
		}
		return err
	}
	c.errorReported = false
	return nil
}

func (c *Controller) reportEvent(eventType string, details map[string]interface{}) {
	err := c.addEvent(eventclient.Event{
		Timestamp: time.Now(),
		Type:      eventType,
		Details:   details,
	})
	if err != nil {
		log.Errorf("Error adding event '%s': %v", eventType, err)
	}
}

// Run ticks every interval until ctx is done. The next tick retries after
// an error.
func (c *Controller) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		c.runTick()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// runTick logs the first error of a failing streak at error level and the
// repeats at debug.
func (c *Controller) runTick() {
	err := c.Tick()
	switch {
	case err == nil:
		if c.tickFailing {
			log.Info("Charger programming recovered")
		}
		c.tickFailing = false
	case c.tickFailing:
		log.Debug(err)
	default:
		log.Error(err)
		c.tickFailing = true
	}
}

func (c *Controller) StartThreshold() int {
	return c.thresholds.Start()
}

func (c *Controller) StopThreshold() int {
	return c.thresholds.Stop()
}

// SetStartThreshold stores the threshold and re-evaluates straight away.
func (c *Controller) SetStartThreshold(v int) error {
	return c.setThreshold(c.thresholds.SetStart, v)
}

// SetStopThreshold stores the threshold and re-evaluates straight away.
func (c *Controller) SetStopThreshold(v int) error {
	return c.setThreshold(c.thresholds.SetStop, v)
}

func (c *Controller) setThreshold(set func(int) error, v int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := set(v); err != nil {
		return err
	}
	if err := c.tick(); err != nil {
		log.Errorf("Failed to apply new threshold: %v", err)
	}
	return nil
}

// Settings returns every registered setting, the thresholds included.
func (c *Controller) Settings() []*settings.Setting {
	return c.thresholds.store.Settings()
}

func (c *Controller) Setting(id string) (*settings.Setting, bool) {
	return c.thresholds.store.Lookup(id)
}

func (c *Controller) Telemetry() Telemetry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.telemetry
}

// IsCharging returns the last state written to the charger.
func (c *Controller) IsCharging() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.programmer.Enabled
}

// ShouldCharge returns the policy's current decision.
func (c *Controller) ShouldCharge() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.policy.ShouldCharge
}

func isValidationError(err error) bool {
	var verr *settings.ValidationError
	return errors.As(err, &verr)
}

func thresholdError(name string, err error) error {
	return fmt.Errorf("failed to set %s threshold: %w", name, err)
}
