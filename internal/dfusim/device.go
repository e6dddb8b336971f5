// Package dfusim simulates an STM32 DfuSe bootloader behind the
// protocol.Transport interface, for tests and examples.
package dfusim

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/umbrela/go-stm32dfu/protocol"
)

// ErrDisconnected is returned for every transfer after the simulated device
// has left DFU mode.
var ErrDisconnected = errors.New("dfusim: device disconnected")

// Call records one control transfer seen by the device.
type Call struct {
	Data        []byte
	Request     protocol.Request
	RequestType uint8
	Value       uint16
	Index       uint16
}

// Device is a simulated DfuSe bootloader. It is not safe for concurrent use,
// matching the single-owner contract of protocol.Transport.
type Device struct {
	// Identity is what a real transport would read from the descriptor
	Identity protocol.DeviceIdentity

	// Calls logs every transfer in order
	Calls []Call

	// Flash holds written blocks keyed by their absolute address
	Flash map[uint32][]byte

	// EraseTimeout is the bwPollTimeout reported while a mass erase runs
	EraseTimeout uint32

	// WriteTimeout is the bwPollTimeout reported while a block is written
	WriteTimeout uint32

	// Erased counts completed mass erase commands
	Erased int

	// Pointer is the current address pointer
	Pointer uint32

	// JumpAddress is the address pointer at the time the device left DFU mode
	JumpAddress uint32

	state    protocol.State
	code     protocol.StatusCode
	pending  *Call
	queued   []protocol.State
	failures map[protocol.Request]error
	short    map[protocol.Request]int
	detached bool
}

// New returns a device in dfuIDLE with the given identity.
func New(identity protocol.DeviceIdentity) *Device {
	return &Device{
		Identity:     identity,
		Flash:        make(map[uint32][]byte),
		EraseTimeout: 25,
		WriteTimeout: 5,
		state:        protocol.StateDFUIdle,
		failures:     make(map[protocol.Request]error),
		short:        make(map[protocol.Request]int),
	}
}

// State returns the device's current state.
func (d *Device) State() protocol.State {
	return d.state
}

// Detached reports whether the device has left DFU mode.
func (d *Device) Detached() bool {
	return d.detached
}

// QueueStates makes the next GETSTATUS requests report the given states,
// one per request, before normal behaviour resumes. Reporting
// protocol.StateError also puts the device in dfuERROR.
func (d *Device) QueueStates(states ...protocol.State) {
	d.queued = append(d.queued, states...)
}

// FailNext makes the next transfer with the given request fail with err.
func (d *Device) FailNext(req protocol.Request, err error) {
	d.failures[req] = err
}

// ShortNext makes the next transfer with the given request move n bytes
// fewer than asked.
func (d *Device) ShortNext(req protocol.Request, n int) {
	d.short[req] = n
}

// Count returns how many transfers with the given request were made.
func (d *Device) Count(req protocol.Request) int {
	n := 0
	for _, c := range d.Calls {
		if c.Request == req {
			n++
		}
	}
	return n
}

// DataBlocks returns the data DNLOADs (wValue >= 2) in the order received.
func (d *Device) DataBlocks() []Call {
	var blocks []Call
	for _, c := range d.Calls {
		if c.Request == protocol.ReqDnload && c.Value >= protocol.DataBlockOffset {
			blocks = append(blocks, c)
		}
	}
	return blocks
}

// Image returns the flash contents from address base as one contiguous
// buffer of n bytes. Unwritten bytes read as 0xFF.
func (d *Device) Image(base uint32, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = 0xFF
	}

	addrs := make([]uint32, 0, len(d.Flash))
	for a := range d.Flash {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	for _, a := range addrs {
		if a < base {
			continue
		}
		off := int(a - base)
		if off >= n {
			continue
		}
		copy(out[off:], d.Flash[a])
	}
	return out
}

// ControlTransfer implements protocol.Transport.
func (d *Device) ControlTransfer(requestType, request uint8, value, index uint16, data []byte, _ time.Duration) (int, error) {
	req := protocol.Request(request)
	d.Calls = append(d.Calls, Call{
		RequestType: requestType,
		Request:     req,
		Value:       value,
		Index:       index,
		Data:        append([]byte(nil), data...),
	})

	if d.detached {
		return -1, ErrDisconnected
	}
	if err, ok := d.failures[req]; ok {
		delete(d.failures, req)
		return -1, err
	}

	var n int
	var err error
	switch req {
	case protocol.ReqGetStatus:
		n, err = d.getStatus(data)
	case protocol.ReqClrStatus:
		n, err = d.clearStatus()
	case protocol.ReqDnload:
		n, err = d.download(value, data)
	default:
		d.stall()
		return -1, fmt.Errorf("dfusim: unsupported request %s", req)
	}
	if err != nil {
		return n, err
	}

	if s, ok := d.short[req]; ok {
		delete(d.short, req)
		n -= s
	}
	return n, nil
}

func (d *Device) getStatus(buf []byte) (int, error) {
	if len(buf) < protocol.StatusSize {
		return 0, fmt.Errorf("dfusim: status buffer of %d bytes", len(buf))
	}

	var timeout uint32
	switch {
	case len(d.queued) > 0:
		d.state = d.queued[0]
		d.queued = d.queued[1:]
		if d.state == protocol.StateError {
			d.code = protocol.StatusErrUnknown
		}
	case d.state == protocol.StateDnloadSync:
		timeout = d.execute()
	case d.state == protocol.StateDnloadBusy:
		d.state = protocol.StateDnloadIdle
	case d.state == protocol.StateManifestSync:
		// The bootloader reports manifestation, then resets off the bus.
		d.state = protocol.StateManifest
		d.JumpAddress = d.Pointer
		d.detached = true
	}

	buf[0] = byte(d.code)
	buf[1] = byte(timeout)
	buf[2] = byte(timeout >> 8)
	buf[3] = byte(timeout >> 16)
	buf[4] = byte(d.state)
	buf[5] = 0
	return protocol.StatusSize, nil
}

// clearStatus leaves dfuERROR for dfuIDLE. In any other state the request
// is refused and the device enters dfuERROR, dropping a pending DNLOAD.
func (d *Device) clearStatus() (int, error) {
	if d.state == protocol.StateError {
		d.state = protocol.StateDFUIdle
		d.code = protocol.StatusOK
		return 0, nil
	}

	d.pending = nil
	d.state = protocol.StateError
	d.code = protocol.StatusErrUnknown
	return 0, nil
}

func (d *Device) download(value uint16, data []byte) (int, error) {
	if d.state != protocol.StateDFUIdle && d.state != protocol.StateDnloadIdle {
		d.stall()
		return -1, fmt.Errorf("dfusim: DNLOAD in state %s", d.state)
	}

	if len(data) == 0 {
		if value != protocol.CommandBlock {
			d.stall()
			return -1, fmt.Errorf("dfusim: empty DNLOAD with block %d", value)
		}
		d.state = protocol.StateManifestSync
		return 0, nil
	}

	d.pending = &Call{Request: protocol.ReqDnload, Value: value, Data: append([]byte(nil), data...)}
	d.state = protocol.StateDnloadSync
	return len(data), nil
}

// execute runs the pending DNLOAD and returns the poll timeout to report.
func (d *Device) execute() uint32 {
	p := d.pending
	d.pending = nil
	d.state = protocol.StateDnloadBusy

	if p.Value == protocol.CommandBlock {
		switch {
		case len(p.Data) == 1 && p.Data[0] == protocol.CmdErase:
			d.Flash = make(map[uint32][]byte)
			d.Erased++
			return d.EraseTimeout
		case len(p.Data) == protocol.SetAddressPointerCmdSize && p.Data[0] == protocol.CmdSetAddressPointer:
			d.Pointer = binary.LittleEndian.Uint32(p.Data[1:])
			return 0
		}
		d.state = protocol.StateError
		d.code = protocol.StatusErrTarget
		return 0
	}

	if p.Value < protocol.DataBlockOffset {
		d.state = protocol.StateError
		d.code = protocol.StatusErrTarget
		return 0
	}

	addr := d.Pointer + uint32(p.Value-protocol.DataBlockOffset)*uint32(len(p.Data))
	d.Flash[addr] = p.Data
	return d.WriteTimeout
}

func (d *Device) stall() {
	d.state = protocol.StateError
	d.code = protocol.StatusErrStalledPkt
}
