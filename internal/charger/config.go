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
	"os"
	"path/filepath"
	"time"

	goconfig "github.com/TheCacophonyProject/go-config"
)

const (
	configKey          = "charger"
	thresholdsFileName = "charge-thresholds.yaml"
)

// Config is the [charger] section of the device config file.
type Config struct {
	Limits         `mapstructure:",squash"`
	BatteryAddress uint8         `mapstructure:"battery-address"`
	ChargerAddress uint8         `mapstructure:"charger-address"`
	PollInterval   time.Duration `mapstructure:"poll-interval"`
	I2CBus         string        `mapstructure:"i2c-bus"`
	PEC            bool          `mapstructure:"pec"`

	// AssumeChargerEnabled is the charger state assumed at startup, before
	// anything has been written to it. The charger's own power on default may
	// be enabled, in which case the first disable would otherwise be skipped.
	AssumeChargerEnabled bool `mapstructure:"assume-charger-enabled"`
}

func DefaultConfig() Config {
	return Config{
		Limits: Limits{
			ChargeCurrent: 1536,
			ChargeVoltage: 12600,
			InputCurrent:  3200,
		},
		BatteryAddress: defaultBatteryAddress,
		ChargerAddress: defaultChargerAddress,
		PollInterval:   time.Second,
	}
}

// ParseConfig reads the charger section from the config file in configDir.
// A missing file or section gives the defaults.
func ParseConfig(configDir string) (*Config, error) {
	c := DefaultConfig()
	configFilePath := filepath.Join(configDir, goconfig.ConfigFileName)
	if _, err := os.Stat(configFilePath); os.IsNotExist(err) {
		return &c, nil
	}

	conf, err := goconfig.New(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config '%s': %w", configFilePath, err)
	}
	if err := conf.Unmarshal(configKey, &c); err != nil {
		return nil, fmt.Errorf("failed to parse %s config: %w", configKey, err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll-interval must be positive, got %s", c.PollInterval)
	}
	if c.BatteryAddress > 0x7F {
		return fmt.Errorf("battery-address 0x%X is not a 7 bit address", c.BatteryAddress)
	}
	if c.ChargerAddress > 0x7F {
		return fmt.Errorf("charger-address 0x%X is not a 7 bit address", c.ChargerAddress)
	}
	return nil
}

func thresholdsFilePath(configDir string) string {
	return filepath.Join(configDir, thresholdsFileName)
}
