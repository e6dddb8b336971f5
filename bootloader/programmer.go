package bootloader

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/umbrela/go-stm32dfu/dfuse"
	"github.com/umbrela/go-stm32dfu/protocol"
)

// Programmer orchestrates firmware transfers to an STM32 DfuSe bootloader.
// It drives the device through its DFU state machine by polling status
// after every command; the device, not the Programmer, owns the state.
//
// Programmer assumes exclusive use of its transport and is not safe for
// concurrent use.
type Programmer struct {
	driver *protocol.Driver
	device protocol.DeviceIdentity
	config Config
}

// New creates a new Programmer for the device behind transport.
// The identity is normally read from the USB descriptor by the transport.
//
// Example:
//
//	dev, _ := usbdfu.Open(0x0483, 0xDF11)
//	defer dev.Close()
//	prog := bootloader.New(dev, dev.Identity(),
//	    bootloader.WithProgressCallback(progressFunc),
//	    bootloader.WithInterface(dev.InterfaceNumber()),
//	)
func New(transport protocol.Transport, device protocol.DeviceIdentity, opts ...Option) *Programmer {
	if transport == nil {
		panic("transport cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Programmer{
		driver: protocol.NewDriver(transport,
			protocol.WithInterface(cfg.Interface),
			protocol.WithStatusTimeout(cfg.StatusTimeout),
			protocol.WithCommandTimeout(cfg.CommandTimeout),
		),
		device: device,
		config: cfg,
	}
}

// Device returns the identity the Programmer negotiates against.
func (p *Programmer) Device() protocol.DeviceIdentity {
	return p.device
}

// Program performs the complete programming sequence:
//  1. Negotiate the image against the device and select the block size
//  2. Write the image payload block by block
//  3. Detach, making the device jump to the image start address
//
// Program does not erase; call MassErase first when the target flash is
// not blank. The operation can be cancelled via context between transfers.
//
// Example:
//
//	img, _ := dfuse.ParseFile("firmware.dfu")
//	if _, err := prog.MassErase(ctx); err != nil {
//	    return err
//	}
//	err := prog.Program(ctx, img)
func (p *Programmer) Program(ctx context.Context, img *dfuse.Image) error {
	if img == nil {
		return fmt.Errorf("image cannot be nil")
	}

	startTime := time.Now()

	n, err := Negotiate(img, p.device)
	if err != nil {
		return fmt.Errorf("negotiate: %w", err)
	}
	if n.VersionWarning != nil {
		p.logWarn("version mismatch",
			"file_version", fmt.Sprintf("0x%04X", n.VersionWarning.FileVersion),
			"device_version", fmt.Sprintf("0x%04X", n.VersionWarning.DeviceVersion),
		)
	}

	img = n.Image
	p.logInfo("programming image",
		"path", img.Path,
		"file_size", img.Size(),
		"address", fmt.Sprintf("0x%08X", img.StartAddress),
		"length", img.Length,
		"block_size", img.MaxWriteBlockSize,
		"device", p.device.String(),
	)

	written, err := p.writeImage(ctx, img, startTime)
	if err != nil {
		return fmt.Errorf("write image: %w", err)
	}

	blocks := blockCount(img)
	p.reportProgress(Progress{
		Phase:        PhaseDetaching,
		CurrentBlock: blocks,
		TotalBlocks:  blocks,
		Percentage:   99,
		BytesWritten: written,
		ElapsedTime:  time.Since(startTime),
	})

	if err := p.Detach(ctx, img.StartAddress); err != nil {
		return fmt.Errorf("detach: %w", err)
	}

	p.reportProgress(Progress{
		Phase:        PhaseComplete,
		CurrentBlock: blocks,
		TotalBlocks:  blocks,
		Percentage:   100,
		BytesWritten: written,
		ElapsedTime:  time.Since(startTime),
	})

	p.logInfo("programming complete",
		"blocks", blocks,
		"bytes", written,
		"elapsed", time.Since(startTime).String(),
	)

	return nil
}

// MassErase erases the whole flash and returns how long it took.
// The bootloader starts erasing on the GETSTATUS that follows the command;
// MassErase sleeps for the reported poll timeout once and then waits for
// the device to return to dfuIDLE.
func (p *Programmer) MassErase(ctx context.Context) (time.Duration, error) {
	startTime := time.Now()
	p.reportProgress(Progress{Phase: PhaseErasing})

	if err := p.waitIdle(ctx); err != nil {
		return 0, err
	}
	if err := p.driver.MassErase(ctx); err != nil {
		return 0, err
	}

	st, err := p.driver.GetStatus(ctx)
	if err != nil {
		return 0, err
	}
	p.logDebug("mass erase started", "poll_timeout_ms", st.PollTimeout, "state", st.State.String())

	if err := sleep(ctx, st.PollDelay()); err != nil {
		return 0, err
	}
	if err := p.waitIdle(ctx); err != nil {
		return 0, err
	}

	elapsed := time.Since(startTime)
	p.reportProgress(Progress{Phase: PhaseErasing, Percentage: 100, ElapsedTime: elapsed})
	p.logInfo("mass erase complete", "elapsed", elapsed.String())

	return elapsed, nil
}

// WriteBlock writes one block. The address pointer is set to addr only for
// block 0; the bootloader advances by block number from there.
func (p *Programmer) WriteBlock(ctx context.Context, addr uint32, data []byte, block uint16) error {
	if block == 0 {
		if err := p.driver.SetAddressPointer(ctx, addr); err != nil {
			return err
		}
	}
	if err := p.waitIdle(ctx); err != nil {
		return err
	}
	if err := p.driver.Download(ctx, data, protocol.DataBlockNumber(block)); err != nil {
		return err
	}
	return p.waitIdle(ctx)
}

// WriteImage writes the image payload in blocks of img.MaxWriteBlockSize.
// A partial final block is padded with 0xFF. It does not negotiate; use
// Program, or pass an image returned by Negotiate.
func (p *Programmer) WriteImage(ctx context.Context, img *dfuse.Image) error {
	if img == nil {
		return fmt.Errorf("image cannot be nil")
	}
	_, err := p.writeImage(ctx, img, time.Now())
	return err
}

func (p *Programmer) writeImage(ctx context.Context, img *dfuse.Image, startTime time.Time) (int, error) {
	if n := blockCount(img); n > maxBlocks {
		return 0, fmt.Errorf("%w: %d blocks of %d bytes, limit %d", ErrTooManyBlocks, n, blockSize(img), maxBlocks)
	}

	blocks := splitBlocks(img.Payload(), blockSize(img))
	bytesWritten := 0

	for i, block := range blocks {
		if err := ctx.Err(); err != nil {
			return bytesWritten, fmt.Errorf("cancelled: %w", err)
		}

		if err := p.WriteBlock(ctx, img.StartAddress, block, uint16(i)); err != nil {
			return bytesWritten, fmt.Errorf("block %d: %w", i, err)
		}
		bytesWritten += len(block)

		p.reportProgress(Progress{
			Phase:        PhaseProgramming,
			CurrentBlock: i + 1,
			TotalBlocks:  len(blocks),
			Percentage:   float64(i+1) / float64(len(blocks)) * 98,
			BytesWritten: bytesWritten,
			ElapsedTime:  time.Since(startTime),
		})
	}

	return bytesWritten, nil
}

// Detach sets the jump address and asks the bootloader to leave DFU mode.
// The device resets after leave, so failures of the trailing status
// requests are logged and ignored.
func (p *Programmer) Detach(ctx context.Context, entry uint32) error {
	if err := p.waitIdle(ctx); err != nil {
		return err
	}
	if err := p.driver.SetAddressPointer(ctx, entry); err != nil {
		return err
	}
	if err := p.waitIdle(ctx); err != nil {
		return err
	}
	if err := p.driver.Leave(ctx); err != nil {
		return err
	}

	if _, err := p.driver.GetStatus(ctx); err != nil {
		p.logDebug("status after leave failed", "error", err)
	}
	if err := p.driver.ClearStatus(ctx); err != nil {
		p.logDebug("clear status after leave failed", "error", err)
	}
	if _, err := p.driver.GetStatus(ctx); err != nil {
		p.logDebug("status after leave failed", "error", err)
	}

	p.logInfo("device detached", "entry", fmt.Sprintf("0x%08X", entry))
	return nil
}

// waitIdle polls until the device reports dfuIDLE. The first request is
// always GETSTATUS, which executes a pending DNLOAD; CLRSTATUS is sent only
// after the device has reported a state other than dfuIDLE.
func (p *Programmer) waitIdle(ctx context.Context) error {
	st, err := p.driver.GetStatus(ctx)
	if err != nil {
		return err
	}

	for st.State != protocol.StateDFUIdle {
		if st.State == protocol.StateError {
			p.logDebug("clearing error state", "status", st.Code.String())
		}
		if err := sleep(ctx, p.config.PollInterval); err != nil {
			return err
		}

		if err := p.driver.ClearStatus(ctx); err != nil {
			return err
		}
		if st, err = p.driver.GetStatus(ctx); err != nil {
			return err
		}
	}
	return nil
}

// maxBlocks is the number of data blocks whose wValue fits in 16 bits.
const maxBlocks = math.MaxUint16 - protocol.DataBlockOffset + 1

// splitBlocks cuts payload into blocks of size bytes. The last block is
// always size bytes long, padded with 0xFF.
func splitBlocks(payload []byte, size int) [][]byte {
	var blocks [][]byte
	for len(payload) >= size {
		blocks = append(blocks, payload[:size:size])
		payload = payload[size:]
	}
	if len(payload) > 0 {
		last := make([]byte, size)
		n := copy(last, payload)
		for i := n; i < size; i++ {
			last[i] = 0xFF
		}
		blocks = append(blocks, last)
	}
	return blocks
}

func blockSize(img *dfuse.Image) int {
	if img.MaxWriteBlockSize == 0 {
		return dfuse.DefaultMaxWriteBlockSize
	}
	return int(img.MaxWriteBlockSize)
}

func blockCount(img *dfuse.Image) int {
	size := blockSize(img)
	return (int(img.Length) + size - 1) / size
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// reportProgress calls the progress callback if configured.
func (p *Programmer) reportProgress(progress Progress) {
	if p.config.ProgressCallback != nil {
		p.config.ProgressCallback(progress)
	}
}

// logDebug logs a debug message if a logger is configured.
func (p *Programmer) logDebug(msg string, keysAndValues ...interface{}) {
	if p.config.Logger != nil {
		p.config.Logger.Debug(msg, keysAndValues...)
	}
}

// logInfo logs an info message if a logger is configured.
func (p *Programmer) logInfo(msg string, keysAndValues ...interface{}) {
	if p.config.Logger != nil {
		p.config.Logger.Info(msg, keysAndValues...)
	}
}

// logWarn logs a warning if a logger is configured.
func (p *Programmer) logWarn(msg string, keysAndValues ...interface{}) {
	if p.config.Logger != nil {
		p.config.Logger.Warn(msg, keysAndValues...)
	}
}
