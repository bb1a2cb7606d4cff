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

// Package chargerclient talks to the charger service over D-Bus.
package chargerclient

import (
	"github.com/godbus/dbus"
)

const (
	dbusName = "org.cacophony.charger"
	dbusPath = "/org/cacophony/charger"
)

func call(method string, result interface{}, args ...interface{}) error {
	conn, err := dbus.SystemBus()
	if err != nil {
		return err
	}
	obj := conn.Object(dbusName, dbusPath)
	return obj.Call(dbusName+"."+method, 0, args...).Store(result)
}

// Setting is a bounded charger setting as reported by the service.
type Setting struct {
	ID    string
	Short string
	Desc  string
	Min   int32
	Max   int32
	Value int32
}

// GetSettings returns every setting the service has registered.
func GetSettings() ([]Setting, error) {
	var list []Setting
	err := call("GetSettings", &list)
	return list, err
}

// GetSetting returns the value of the setting with the given four character id.
func GetSetting(id string) (int, error) {
	var v int32
	err := call("GetSetting", &v, id)
	return int(v), err
}

// SetStartThreshold returns false if the service rejected the value as out of range.
func SetStartThreshold(v int) (bool, error) {
	var ok bool
	err := call("SetStartThreshold", &ok, int32(v))
	return ok, err
}

// SetStopThreshold returns false if the service rejected the value as out of range.
func SetStopThreshold(v int) (bool, error) {
	var ok bool
	err := call("SetStopThreshold", &ok, int32(v))
	return ok, err
}

func GetTelemetry() (map[string]uint16, error) {
	var telemetry map[string]uint16
	err := call("GetTelemetry", &telemetry)
	return telemetry, err
}

func IsCharging() (bool, error) {
	var charging bool
	err := call("IsCharging", &charging)
	return charging, err
}
