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
	"github.com/TheCacophonyProject/tc2-charge-controller/internal/settings"
)

const (
	startThresholdID = "BCTL"
	stopThresholdID  = "BCTH"

	// A start threshold of 0 turns off start threshold control.
	startThresholdDisabled = 0
	// A stop threshold of 100 turns off stop threshold control.
	stopThresholdDisabled = 100
)

// Thresholds are the relative charge percentages at which charging starts and stops.
type Thresholds struct {
	store *settings.Store
	start *settings.Setting
	stop  *settings.Setting
}

func NewThresholds(store *settings.Store) (*Thresholds, error) {
	start, err := store.Register(
		startThresholdID,
		"Battery Charging Start Threshold",
		"Relative capacity at which the battery will start charging",
		0, 99, startThresholdDisabled,
	)
	if err != nil {
		return nil, err
	}
	stop, err := store.Register(
		stopThresholdID,
		"Battery Charging Stop Threshold",
		"Relative capacity at which the battery will stop charging",
		1, 100, stopThresholdDisabled,
	)
	if err != nil {
		return nil, err
	}
	return &Thresholds{store: store, start: start, stop: stop}, nil
}

func (t *Thresholds) Start() int {
	return t.start.Value()
}

func (t *Thresholds) Stop() int {
	return t.stop.Value()
}

// SetStart returns a *settings.ValidationError if v is outside [0, 99].
func (t *Thresholds) SetStart(v int) error {
	return t.start.Set(v)
}

// SetStop returns a *settings.ValidationError if v is outside [1, 100].
func (t *Thresholds) SetStop(v int) error {
	return t.stop.Set(v)
}
