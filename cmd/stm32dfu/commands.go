package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/umbrela/go-stm32dfu/bootloader"
	"github.com/umbrela/go-stm32dfu/dfuse"
	"github.com/umbrela/go-stm32dfu/internal/config"
	"github.com/umbrela/go-stm32dfu/internal/logging"
	"github.com/umbrela/go-stm32dfu/internal/source"
	"github.com/umbrela/go-stm32dfu/protocol"
	"github.com/umbrela/go-stm32dfu/usbdfu"
)

func loadImage(log zerolog.Logger, cfg *config.Config, path string) (*dfuse.Image, error) {
	file, err := source.Resolve(path, cfg.Firmware.Extension)
	if err != nil {
		return nil, err
	}
	img, err := dfuse.ParseFile(file)
	if err != nil {
		return nil, err
	}
	log.Info().
		Str("path", img.Path).
		Int("size", img.Size()).
		Str("address", fmt.Sprintf("0x%08X", img.StartAddress)).
		Uint32("length", img.Length).
		Msg("firmware loaded")
	return img, nil
}

func openDevice(log zerolog.Logger, cfg *config.Config) (*usbdfu.Device, error) {
	dev, err := usbdfu.Open(uint16(cfg.Device.VendorID), uint16(cfg.Device.ProductID),
		usbdfu.WithAltSetting(cfg.Device.AltSetting))
	if err != nil {
		return nil, err
	}
	log.Info().
		Stringer("device", dev.Identity()).
		Int("alt", dev.AltSetting()).
		Str("target", dev.AltSettingName()).
		Msg("device opened")
	return dev, nil
}

func newProgrammer(log zerolog.Logger, cfg *config.Config, dev *usbdfu.Device, progress bootloader.ProgressCallback) *bootloader.Programmer {
	return bootloader.New(dev, dev.Identity(),
		bootloader.WithLogger(logging.Adapt(log)),
		bootloader.WithInterface(dev.InterfaceNumber()),
		bootloader.WithPollInterval(cfg.Transfer.PollInterval()),
		bootloader.WithStatusTimeout(cfg.Transfer.StatusTimeout()),
		bootloader.WithCommandTimeout(cfg.Transfer.CommandTimeout()),
		bootloader.WithProgressCallback(progress),
	)
}

func runInfo(_ context.Context, log zerolog.Logger, cfg *config.Config, path string) error {
	img, err := loadImage(log, cfg, path)
	if err != nil {
		return err
	}
	describeImage(os.Stdout, img)

	dev, err := openDevice(log, cfg)
	if errors.Is(err, usbdfu.ErrDeviceNotFound) {
		log.Warn().Err(err).Msg("device not checked")
		return nil
	}
	if err != nil {
		return err
	}
	defer dev.Close()

	describeNegotiation(os.Stdout, img, dev.Identity())
	return nil
}

func runErase(ctx context.Context, log zerolog.Logger, cfg *config.Config) error {
	dev, err := openDevice(log, cfg)
	if err != nil {
		return err
	}
	defer dev.Close()

	elapsed, err := newProgrammer(log, cfg, dev, nil).MassErase(ctx)
	if err != nil {
		return fmt.Errorf("mass erase: %w", err)
	}
	fmt.Printf("Mass erase completed in %s\n", elapsed.Round(time.Millisecond))
	return nil
}

func runProgram(ctx context.Context, log zerolog.Logger, cfg *config.Config, path string) error {
	img, err := loadImage(log, cfg, path)
	if err != nil {
		return err
	}

	dev, err := openDevice(log, cfg)
	if err != nil {
		return err
	}
	defer dev.Close()

	prog := newProgrammer(log, cfg, dev, progressLogger(log))

	// Refuse before erasing when the file cannot go to this device.
	if _, err := bootloader.Negotiate(img, prog.Device()); err != nil {
		return err
	}

	if cfg.Transfer.MassErase {
		if _, err := prog.MassErase(ctx); err != nil {
			return fmt.Errorf("mass erase: %w", err)
		}
	}
	return prog.Program(ctx, img)
}

// progressLogger logs every tenth of the programming phase.
func progressLogger(log zerolog.Logger) bootloader.ProgressCallback {
	next := 0.0
	return func(p bootloader.Progress) {
		if p.Phase != bootloader.PhaseProgramming {
			return
		}
		if p.Percentage < next && p.CurrentBlock != p.TotalBlocks {
			return
		}
		next = p.Percentage + 10
		log.Info().
			Int("block", p.CurrentBlock).
			Int("blocks", p.TotalBlocks).
			Str("elapsed", p.ElapsedTime.Round(time.Millisecond).String()).
			Msgf("programming %.0f%%", p.Percentage)
	}
}

func describeImage(w io.Writer, img *dfuse.Image) {
	fmt.Fprintf(w, "File:          %s\n", img.Path)
	fmt.Fprintf(w, "File size:     %d bytes\n", img.Size())
	if img.TargetName != "" {
		fmt.Fprintf(w, "Target:        %s (alt %d)\n", img.TargetName, img.AlternateSetting)
	}
	fmt.Fprintf(w, "Start address: 0x%08X\n", img.StartAddress)
	fmt.Fprintf(w, "Image size:    %d bytes\n", img.Length)
	fmt.Fprintf(w, "Built for:     %04X:%04X version 0x%04X\n", img.VendorID, img.ProductID, img.FileVersion)
}

func describeNegotiation(w io.Writer, img *dfuse.Image, id protocol.DeviceIdentity) {
	fmt.Fprintf(w, "Device:        %s\n", id)

	n, err := bootloader.Negotiate(img, id)
	if err != nil {
		fmt.Fprintf(w, "Compatible:    no (%v)\n", err)
		return
	}
	fmt.Fprintf(w, "Compatible:    yes, %d-byte blocks\n", n.Image.MaxWriteBlockSize)
	if n.VersionWarning != nil {
		fmt.Fprintf(w, "Warning:       %v\n", n.VersionWarning)
	}
}
