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
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	goconfig "github.com/TheCacophonyProject/go-config"
	"github.com/TheCacophonyProject/tc2-charge-controller/chargerclient"
	"github.com/TheCacophonyProject/tc2-charge-controller/internal/logging"
	"github.com/TheCacophonyProject/tc2-charge-controller/internal/settings"
	"github.com/TheCacophonyProject/tc2-charge-controller/smbus"
	"github.com/alexflint/go-arg"
	"github.com/google/go-cmp/cmp"
	"github.com/rjeczalik/notify"
)

var (
	version = "<not set>"
	log     = logging.NewLogger("info")
)

type Args struct {
	Service    *subcommand     `arg:"subcommand:service"    help:"Run the charging policy loop and dbus service."`
	Debug      *subcommand     `arg:"subcommand:debug"      help:"Print the battery and charger registers."`
	Thresholds *ThresholdsArgs `arg:"subcommand:thresholds" help:"Show or set the charging thresholds of the running service."`
	ConfigDir  string          `arg:"-c,--config" help:"configuration folder"`
	logging.LogArgs
}

type subcommand struct {
}

type ThresholdsArgs struct {
	Start *int `arg:"--start" help:"Relative charge to start charging at, 0 to disable."`
	Stop  *int `arg:"--stop"  help:"Relative charge to stop charging at, 100 to disable."`
}

var defaultArgs = Args{
	ConfigDir: goconfig.DefaultConfigDir,
}

func procArgs(input []string) (Args, error) {
	args := defaultArgs

	parser, err := arg.NewParser(arg.Config{}, &args)
	if err != nil {
		return Args{}, err
	}
	err = parser.Parse(input)
	if errors.Is(err, arg.ErrHelp) {
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	}
	if errors.Is(err, arg.ErrVersion) {
		fmt.Println(version)
		os.Exit(0)
	}
	return args, err
}

func Run(inputArgs []string, ver string) error {
	version = ver
	args, err := procArgs(inputArgs)
	if err != nil {
		return fmt.Errorf("failed to parse args: %v", err)
	}
	log = logging.NewLogger(args.LogLevel)

	log.Infof("Running version: %s", version)

	if args.Thresholds != nil {
		return thresholds(args.Thresholds)
	}

	conf, err := ParseConfig(args.ConfigDir)
	if err != nil {
		return err
	}
	bus, closer, err := smbus.Open(conf.I2CBus, conf.PEC)
	if err != nil {
		return err
	}
	defer closer.Close()

	if args.Debug != nil {
		dumpRegisters(os.Stdout, bus, conf.BatteryAddress, conf.ChargerAddress)
		return nil
	}
	if args.Service != nil {
		return runService(args.ConfigDir, conf, bus)
	}
	return errors.New("no subcommand given")
}

func runService(configDir string, conf *Config, bus WordBus) error {
	store, err := settings.NewStore(thresholdsFilePath(configDir), log)
	if err != nil {
		return err
	}
	thresholds, err := NewThresholds(store)
	if err != nil {
		return err
	}
	log.Infof("Start threshold %d%%, stop threshold %d%%", thresholds.Start(), thresholds.Stop())
	log.Debugf("Charger limits: %+v", conf.Limits)
	if conf.AssumeChargerEnabled {
		log.Info("Assuming charger is enabled at startup")
	}

	controller := NewController(bus, conf, thresholds)
	if err := startService(controller); err != nil {
		return err
	}

	go func() {
		if err := checkConfigChanges(conf, configDir); err != nil {
			log.Errorf("Stopped watching config: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	controller.Run(ctx, conf.PollInterval)
	log.Info("Stopping charger service")
	return nil
}

// checkConfigChanges compares the charger config from when first loaded to a
// new config each time the config file is modified. If there is a difference
// the program exits and systemd restarts the service with the new config.
func checkConfigChanges(conf *Config, configDir string) error {
	configFilePath := filepath.Join(configDir, goconfig.ConfigFileName)
	fsEvents := make(chan notify.EventInfo, 1)
	if err := notify.Watch(configFilePath, fsEvents, notify.InCloseWrite, notify.InMovedTo); err != nil {
		return err
	}
	defer notify.Stop(fsEvents)

	for {
		<-fsEvents
		newConfig, err := ParseConfig(configDir)
		if err != nil {
			log.Error("Error reloading config: ", err)
			continue
		}
		diff := cmp.Diff(conf, newConfig)
		log.Debug("Config diff: ", diff)
		if diff != "" {
			log.Info("Config changed. Exiting to allow systemctl to restart service.")
			os.Exit(0)
		}
		log.Info("No relevant changes detected in config file.")
	}
}

func thresholds(args *ThresholdsArgs) error {
	if args.Start != nil {
		ok, err := chargerclient.SetStartThreshold(*args.Start)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("start threshold %d rejected, valid range is [0, 99]", *args.Start)
		}
	}
	if args.Stop != nil {
		ok, err := chargerclient.SetStopThreshold(*args.Stop)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("stop threshold %d rejected, valid range is [1, 100]", *args.Stop)
		}
	}

	list, err := chargerclient.GetSettings()
	if err != nil {
		return err
	}
	charging, err := chargerclient.IsCharging()
	if err != nil {
		return err
	}
	telemetry, err := chargerclient.GetTelemetry()
	if err != nil {
		return err
	}
	printStatus(os.Stdout, list, charging, telemetry)
	return nil
}

func printStatus(w io.Writer, list []chargerclient.Setting, charging bool, telemetry map[string]uint16) {
	for _, st := range list {
		fmt.Fprintf(w, "%s (%s): %d%%, range [%d, %d]\n", st.Short, st.ID, st.Value, st.Min, st.Max)
		fmt.Fprintf(w, "  %s\n", st.Desc)
	}
	fmt.Fprintf(w, "Charging: %t\n", charging)
	names := make([]string, 0, len(telemetry))
	for name := range telemetry {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %d\n", name, telemetry[name])
	}
}
