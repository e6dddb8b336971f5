package protocol

import (
	"context"
	"time"
)

// Transport performs USB control transfers on a claimed DFU interface.
// It returns the number of bytes moved. Implementations must treat a zero
// timeout as "no timeout".
//
// The driver assumes exclusive access to the transport; it performs no
// locking of its own.
type Transport interface {
	ControlTransfer(requestType, request uint8, value, index uint16, data []byte, timeout time.Duration) (int, error)
}

// Default transfer timeouts.
const (
	// DefaultStatusTimeout bounds a GETSTATUS request
	DefaultStatusTimeout = 500 * time.Millisecond

	// DefaultCommandTimeout bounds DNLOAD and CLRSTATUS requests
	DefaultCommandTimeout = 5 * time.Second
)

// Driver issues single DFU requests. It keeps no device state and never
// retries; the caller decides how to react to the state a status reports.
type Driver struct {
	transport      Transport
	iface          uint16
	statusTimeout  time.Duration
	commandTimeout time.Duration
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithInterface sets the interface number sent in wIndex. Default is 0.
func WithInterface(iface uint16) DriverOption {
	return func(d *Driver) {
		d.iface = iface
	}
}

// WithStatusTimeout sets the GETSTATUS timeout.
func WithStatusTimeout(timeout time.Duration) DriverOption {
	return func(d *Driver) {
		if timeout >= 0 {
			d.statusTimeout = timeout
		}
	}
}

// WithCommandTimeout sets the timeout for DNLOAD and CLRSTATUS.
func WithCommandTimeout(timeout time.Duration) DriverOption {
	return func(d *Driver) {
		if timeout >= 0 {
			d.commandTimeout = timeout
		}
	}
}

// NewDriver creates a Driver on top of t.
func NewDriver(t Transport, opts ...DriverOption) *Driver {
	if t == nil {
		panic("transport cannot be nil")
	}

	d := &Driver{
		transport:      t,
		statusTimeout:  DefaultStatusTimeout,
		commandTimeout: DefaultCommandTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// GetStatus issues DFU_GETSTATUS and decodes the 6-byte response.
func (d *Driver) GetStatus(ctx context.Context) (Status, error) {
	buf := make([]byte, StatusSize)
	if err := d.in(ctx, "getStatus", ReqGetStatus, 0, buf, d.statusTimeout); err != nil {
		return Status{}, err
	}
	return ParseStatus(buf)
}

// ClearStatus issues DFU_CLRSTATUS, which moves a device out of dfuERROR.
func (d *Driver) ClearStatus(ctx context.Context) error {
	return d.out(ctx, "clearStatus", ReqClrStatus, 0, nil)
}

// Download issues DFU_DNLOAD with data as payload and block as wValue.
// An empty payload asks the bootloader to leave DFU mode.
func (d *Driver) Download(ctx context.Context, data []byte, block uint16) error {
	return d.out(ctx, "download", ReqDnload, block, data)
}

// MassErase sends the DfuSe erase command without an address.
// The erase starts on the following GETSTATUS.
func (d *Driver) MassErase(ctx context.Context) error {
	return d.out(ctx, "massErase", ReqDnload, CommandBlock, BuildMassEraseCmd())
}

// SetAddressPointer sends the DfuSe set address pointer command.
func (d *Driver) SetAddressPointer(ctx context.Context, address uint32) error {
	return d.out(ctx, "setAddressPointer", ReqDnload, CommandBlock, BuildSetAddressPointerCmd(address))
}

// Leave sends a zero-length DNLOAD, which makes the bootloader manifest and
// jump to the address pointer.
func (d *Driver) Leave(ctx context.Context) error {
	return d.out(ctx, "leave", ReqDnload, CommandBlock, nil)
}

func (d *Driver) in(ctx context.Context, op string, req Request, value uint16, buf []byte, timeout time.Duration) error {
	return d.transfer(ctx, op, RequestTypeClass|DirIn, req, value, buf, timeout)
}

func (d *Driver) out(ctx context.Context, op string, req Request, value uint16, data []byte) error {
	return d.transfer(ctx, op, RequestTypeClass|DirOut, req, value, data, d.commandTimeout)
}

func (d *Driver) transfer(ctx context.Context, op string, requestType uint8, req Request, value uint16, data []byte, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	n, err := d.transport.ControlTransfer(requestType, uint8(req), value, d.iface, data, timeout)
	if err != nil {
		return &TransportError{Op: op, Err: err, Got: n, Want: len(data)}
	}
	if n < len(data) {
		return &TransportError{Op: op, Err: ErrShortTransfer, Got: n, Want: len(data)}
	}
	return nil
}
