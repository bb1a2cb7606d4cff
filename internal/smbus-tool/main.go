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

package smbustool

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/TheCacophonyProject/tc2-charge-controller/internal/logging"
	"github.com/TheCacophonyProject/tc2-charge-controller/smbus"
	"github.com/alexflint/go-arg"
)

var version = "<not set>"
var log = logging.NewLogger("info")

type Args struct {
	Write *Write `arg:"subcommand:write" help:"Write a word to a register."`
	Read  *Read  `arg:"subcommand:read"  help:"Read a word from a register."`
	Find  *Find  `arg:"subcommand:find"  help:"Find SMBus devices."`
	Bus   string `arg:"--bus" help:"I2C bus name, defaults to the first bus"`
	PEC   bool   `arg:"--pec" help:"Use SMBus packet error checking"`
	logging.LogArgs
}

type Find struct {
	Address string `arg:"required" help:"The address of the device you want to find, in hex (0xnn)"`
}

type Write struct {
	Address string `arg:"required" help:"The address you want to write to, in hex (0xnn)"`
	Cmd     string `arg:"required" help:"The command code you want to write to, in hex (0xnn)"`
	Val     string `arg:"required" help:"The word you want to write, in hex (0xnnnn)"`
}

type Read struct {
	Address string `arg:"required" help:"The address you want to read from, in hex (0xnn)"`
	Cmd     string `arg:"required" help:"The command code you want to read from, in hex (0xnn)"`
}

var defaultArgs = Args{}

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

	if args.Write == nil && args.Read == nil && args.Find == nil {
		return errors.New("no subcommand given")
	}

	bus, closer, err := smbus.Open(args.Bus, args.PEC)
	if err != nil {
		return err
	}
	defer closer.Close()

	if args.Write != nil {
		return write(bus, args.Write)
	}
	if args.Read != nil {
		return read(bus, args.Read)
	}
	return find(bus, args.Find)
}

func find(bus *smbus.Bus, find *Find) error {
	address, err := parseHexByte(find.Address)
	if err != nil {
		return err
	}

	log.Printf("Finding address 0x%X", address)
	if err := bus.Probe(address); err != nil {
		log.Debug(err)
		log.Printf("Did not find device at address 0x%X", address)
	} else {
		log.Printf("Found device at address 0x%X", address)
	}
	return nil
}

func read(bus *smbus.Bus, read *Read) error {
	address, err := parseHexByte(read.Address)
	if err != nil {
		return err
	}
	cmd, err := parseHexByte(read.Cmd)
	if err != nil {
		return err
	}

	log.Printf("Reading command 0x%02X from 0x%02X", cmd, address)
	val, err := bus.ReadWord(address, cmd)
	if err != nil {
		return err
	}
	fmt.Printf("0x%04X (%d)\n", val, val)
	return nil
}

func write(bus *smbus.Bus, args *Write) error {
	address, err := parseHexByte(args.Address)
	if err != nil {
		return err
	}
	cmd, err := parseHexByte(args.Cmd)
	if err != nil {
		return err
	}
	val, err := parseHexWord(args.Val)
	if err != nil {
		return err
	}

	log.Printf("Writing 0x%04X to command 0x%02X of 0x%02X", val, cmd, address)
	return bus.WriteWord(address, cmd, val)
}

func parseHexByte(hexStr string) (uint8, error) {
	v, err := parseHex(hexStr, 8)
	return uint8(v), err
}

func parseHexWord(hexStr string) (uint16, error) {
	v, err := parseHex(hexStr, 16)
	return uint16(v), err
}

func parseHex(hexStr string, bitSize int) (uint64, error) {
	if !strings.HasPrefix(hexStr, "0x") {
		return 0, fmt.Errorf("invalid hex string prefix, should be '0x': %s", hexStr)
	}
	digits := hexStr[2:]
	if len(digits) == 0 || len(digits) > bitSize/4 {
		return 0, fmt.Errorf("invalid hex string length: %d", len(hexStr))
	}
	return strconv.ParseUint(digits, 16, bitSize)
}
