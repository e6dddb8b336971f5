package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"

	"github.com/umbrela/go-stm32dfu/internal/config"
	"github.com/umbrela/go-stm32dfu/internal/logging"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("stm32dfu", flag.ContinueOnError)
	fs.Usage = func() { printUsage(fs) }

	cfgPath := fs.String("config", "", "YAML configuration file")
	vid := fs.String("vid", "", "USB vendor ID (default 0x0483)")
	pid := fs.String("pid", "", "USB product ID (default 0xDF11)")
	alt := fs.Int("alt", -1, "DFU alternate setting (-1 = internal flash)")
	noErase := fs.Bool("no-erase", false, "Skip the mass erase before programming")
	poll := fs.Int("poll", 0, "Minimum sleep between status polls, in ms")
	level := fs.String("log-level", "", "Log level: debug, info, warn, error")
	noColor := fs.Bool("no-color", false, "Disable colored output")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() < 1 {
		printUsage(fs)
		return 2
	}

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
			return 1
		}
	}

	// Flags given on the command line override the file.
	var flagErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "vid":
			flagErr = errors.Join(flagErr, setID(&cfg.Device.VendorID, *vid))
		case "pid":
			flagErr = errors.Join(flagErr, setID(&cfg.Device.ProductID, *pid))
		case "alt":
			cfg.Device.AltSetting = *alt
		case "no-erase":
			cfg.Transfer.MassErase = !*noErase
		case "poll":
			cfg.Transfer.PollIntervalMs = *poll
		case "log-level":
			cfg.Log.Level = *level
		case "no-color":
			cfg.Log.NoColor = *noColor
		}
	})
	if flagErr != nil {
		fmt.Fprintf(os.Stderr, "invalid flag: %v\n", flagErr)
		return 2
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "config validation failed: %v\n", err)
		return 1
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.NoColor)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	path := cfg.Firmware.Path
	if len(rest) > 0 {
		path = rest[0]
	}

	switch cmd {
	case "info":
		err = runInfo(ctx, log, cfg, path)
	case "erase":
		err = runErase(ctx, log, cfg)
	case "program":
		err = runProgram(ctx, log, cfg, path)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		printUsage(fs)
		return 2
	}

	if err != nil {
		log.Error().Err(err).Msgf("%s failed", cmd)
		return 1
	}
	return 0
}

func setID(dst *config.HexID, s string) error {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return fmt.Errorf("USB ID %q: %w", s, err)
	}
	*dst = config.HexID(v)
	return nil
}

func printUsage(fs *flag.FlagSet) {
	out := fs.Output()
	fmt.Fprintln(out, "Usage: stm32dfu [flags] <command> [file.dfu | directory]")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  info     Show the firmware file and, if connected, the device")
	fmt.Fprintln(out, "  erase    Mass erase the device flash")
	fmt.Fprintln(out, "  program  Erase, write the firmware and start it")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Without a path, the first .dfu file in ~/Download is used.")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Flags:")
	fs.PrintDefaults()
}
