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
	"errors"
	"fmt"

	"github.com/TheCacophonyProject/tc2-charge-controller/chargerclient"
	"github.com/godbus/dbus"
	"github.com/godbus/dbus/introspect"
)

const (
	dbusName = "org.cacophony.charger"
	dbusPath = "/org/cacophony/charger"
)

type service struct {
	controller *Controller
}

func startService(c *Controller) error {
	log.Info("Starting charger service")
	conn, err := dbus.SystemBus()
	if err != nil {
		return err
	}
	reply, err := conn.RequestName(dbusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return err
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return errors.New("name already taken")
	}

	s := &service{
		controller: c,
	}
	conn.Export(s, dbusPath, dbusName)
	conn.Export(genIntrospectable(s), dbusPath, "org.freedesktop.DBus.Introspectable")
	return nil
}

func genIntrospectable(v interface{}) introspect.Introspectable {
	node := &introspect.Node{
		Interfaces: []introspect.Interface{{
			Name:    dbusName,
			Methods: introspect.Methods(v),
		}},
	}
	return introspect.NewIntrospectable(node)
}

/*
dbus-send --system --print-reply --dest=org.cacophony.charger /org/cacophony/charger \
org.cacophony.charger.SetStopThreshold int32:80
*/

func (s *service) GetStartThreshold() (int32, *dbus.Error) {
	return int32(s.controller.StartThreshold()), nil
}

func (s *service) GetStopThreshold() (int32, *dbus.Error) {
	return int32(s.controller.StopThreshold()), nil
}

// SetStartThreshold returns false if the value is out of range.
func (s *service) SetStartThreshold(v int32) (bool, *dbus.Error) {
	log.Infof("Setting start threshold to %d", v)
	return s.setResult("start", s.controller.SetStartThreshold(int(v)))
}

// SetStopThreshold returns false if the value is out of range.
func (s *service) SetStopThreshold(v int32) (bool, *dbus.Error) {
	log.Infof("Setting stop threshold to %d", v)
	return s.setResult("stop", s.controller.SetStopThreshold(int(v)))
}

func (s *service) setResult(name string, err error) (bool, *dbus.Error) {
	if err == nil {
		return true, nil
	}
	log.Warn(thresholdError(name, err))
	if isValidationError(err) {
		return false, nil
	}
	return false, makeDbusError(".SetThresholdError", err)
}

// GetSettings lists the registered settings with their names, ranges and values.
func (s *service) GetSettings() ([]chargerclient.Setting, *dbus.Error) {
	list := []chargerclient.Setting{}
	for _, st := range s.controller.Settings() {
		list = append(list, chargerclient.Setting{
			ID:    st.ID,
			Short: st.Short,
			Desc:  st.Desc,
			Min:   int32(st.Min),
			Max:   int32(st.Max),
			Value: int32(st.Value()),
		})
	}
	return list, nil
}

func (s *service) GetSetting(id string) (int32, *dbus.Error) {
	st, ok := s.controller.Setting(id)
	if !ok {
		return 0, makeDbusError(".UnknownSetting", fmt.Errorf("no setting with id '%s'", id))
	}
	return int32(st.Value()), nil
}

func (s *service) GetTelemetry() (map[string]uint16, *dbus.Error) {
	return s.controller.Telemetry().Map(), nil
}

// IsCharging returns whether the charger was last programmed to charge.
func (s *service) IsCharging() (bool, *dbus.Error) {
	return s.controller.IsCharging(), nil
}

func (s *service) ShouldCharge() (bool, *dbus.Error) {
	return s.controller.ShouldCharge(), nil
}

func makeDbusError(name string, err error) *dbus.Error {
	return &dbus.Error{
		Name: dbusName + name,
		Body: []interface{}{err.Error()},
	}
}
