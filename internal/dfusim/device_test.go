package dfusim

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umbrela/go-stm32dfu/protocol"
)

func newTestDevice() *Device {
	return New(protocol.DeviceIdentity{VendorID: 0x0483, ProductID: 0xDF11, BootloaderVersion: 0x2200})
}

func TestDownloadStateSequence(t *testing.T) {
	t.Parallel()

	dev := newTestDevice()
	d := protocol.NewDriver(dev)
	ctx := context.Background()

	require.NoError(t, d.SetAddressPointer(ctx, 0x08000000))
	assert.Equal(t, protocol.StateDnloadSync, dev.State())

	st, err := d.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, protocol.StateDnloadBusy, st.State)
	assert.Equal(t, uint32(0x08000000), dev.Pointer)

	st, err = d.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, protocol.StateDnloadIdle, st.State)

	// CLRSTATUS outside dfuERROR is refused; the second one recovers.
	require.NoError(t, d.ClearStatus(ctx))
	assert.Equal(t, protocol.StateError, dev.State())
	require.NoError(t, d.ClearStatus(ctx))
	assert.Equal(t, protocol.StateDFUIdle, dev.State())
}

func TestClearStatusDropsPendingDownload(t *testing.T) {
	t.Parallel()

	dev := newTestDevice()
	d := protocol.NewDriver(dev)
	ctx := context.Background()

	require.NoError(t, d.SetAddressPointer(ctx, 0x08004000))
	require.NoError(t, d.ClearStatus(ctx))

	st, err := d.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, protocol.StateError, st.State)
	assert.Equal(t, protocol.StatusErrUnknown, st.Code)
	assert.Zero(t, dev.Pointer, "pending command was discarded")

	assert.Error(t, d.Download(ctx, []byte{1}, protocol.DataBlockNumber(0)), "DNLOAD stalls until cleared")
}

func TestDataBlockAddressing(t *testing.T) {
	t.Parallel()

	dev := newTestDevice()
	dev.Pointer = 0x08000000
	d := protocol.NewDriver(dev)
	ctx := context.Background()

	require.NoError(t, d.Download(ctx, []byte{1, 2, 3, 4}, protocol.DataBlockNumber(1)))
	st, err := d.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, dev.WriteTimeout, st.PollTimeout)

	assert.Equal(t, []byte{1, 2, 3, 4}, dev.Flash[0x08000004])
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0xFF, 1, 2, 3, 4}, dev.Image(0x08000000, 8))
	assert.Len(t, dev.DataBlocks(), 1)
}

func TestMassErase(t *testing.T) {
	t.Parallel()

	dev := newTestDevice()
	dev.Flash[0x08000000] = []byte{0}
	d := protocol.NewDriver(dev)
	ctx := context.Background()

	require.NoError(t, d.MassErase(ctx))
	st, err := d.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, dev.EraseTimeout, st.PollTimeout)
	assert.Equal(t, 1, dev.Erased)
	assert.Empty(t, dev.Flash)
}

func TestLeaveDisconnects(t *testing.T) {
	t.Parallel()

	dev := newTestDevice()
	dev.Pointer = 0x08004000
	d := protocol.NewDriver(dev)
	ctx := context.Background()

	require.NoError(t, d.Leave(ctx))
	st, err := d.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, protocol.StateManifest, st.State)
	assert.True(t, dev.Detached())
	assert.Equal(t, uint32(0x08004000), dev.JumpAddress)

	err = d.ClearStatus(ctx)
	assert.ErrorIs(t, err, ErrDisconnected)
}

func TestQueuedErrorState(t *testing.T) {
	t.Parallel()

	dev := newTestDevice()
	dev.QueueStates(protocol.StateError)
	d := protocol.NewDriver(dev)
	ctx := context.Background()

	st, err := d.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, protocol.StateError, st.State)
	assert.Equal(t, protocol.StatusErrUnknown, st.Code)

	require.NoError(t, d.ClearStatus(ctx))
	st, err = d.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, protocol.StateDFUIdle, st.State)
	assert.Equal(t, protocol.StatusOK, st.Code)
}

func TestInjectedFailures(t *testing.T) {
	t.Parallel()

	dev := newTestDevice()
	d := protocol.NewDriver(dev)
	ctx := context.Background()

	boom := errors.New("boom")
	dev.FailNext(protocol.ReqClrStatus, boom)
	assert.ErrorIs(t, d.ClearStatus(ctx), boom)
	require.NoError(t, d.ClearStatus(ctx), "failure is one-shot")

	dev.ShortNext(protocol.ReqGetStatus, 2)
	_, err := d.GetStatus(ctx)
	assert.ErrorIs(t, err, protocol.ErrShortTransfer)

	assert.Equal(t, 2, dev.Count(protocol.ReqClrStatus))
	assert.Equal(t, 1, dev.Count(protocol.ReqGetStatus))
}

func TestDownloadWhileBusyStalls(t *testing.T) {
	t.Parallel()

	dev := newTestDevice()
	d := protocol.NewDriver(dev)
	ctx := context.Background()

	require.NoError(t, d.MassErase(ctx))
	err := d.Download(ctx, []byte{1}, protocol.DataBlockNumber(0))
	require.Error(t, err)
	assert.Equal(t, protocol.StateError, dev.State())
}
