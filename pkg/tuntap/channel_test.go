package tuntap

import (
	"fmt"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"io"
	"testing"
	"time"
)

func openFake(t *testing.T, name string, p Platform, opts ...Option) (*Channel, *fakeSystem) {
	t.Helper()
	sys := newFakeSystem()
	opts = append(opts, WithPlatform(p), withSystem(sys))
	c, err := Open(name, opts...)
	require.NoError(t, err)
	return c, sys
}

func TestRecvStripsTunHeader(t *testing.T) {
	c, sys := openFake(t, "tun0", PlatformLinux)
	payload := wrapIPv4(t, Raw("0123456789"))
	n := len(payload)
	sys.dev.frames = [][]byte{NewTunPacket(payload).Bytes()}

	before := time.Now()
	pt, data, ts, err := c.Recv(n)
	require.NoError(t, err)
	assert.Equal(t, []int{n + 4}, sys.dev.readSizes, "expected one read of payload size plus header")
	assert.Equal(t, PayloadIPv4, pt)
	assert.Equal(t, []byte(payload), data)
	assert.False(t, ts.Before(before), "timestamp taken before the read")
}

func TestRecvDefaultSize(t *testing.T) {
	c, sys := openFake(t, "tun0", PlatformLinux, WithReadSize(1500))
	sys.dev.frames = [][]byte{TunHeader{EtherType: EtherTypeRaw}.Marshal()}
	pt, data, _, err := c.Recv(0)
	require.NoError(t, err)
	assert.Equal(t, 1504, sys.dev.readSizes[0])
	assert.Equal(t, PayloadIPv46, pt)
	assert.Empty(t, data)
}

func TestRecvUnstripped(t *testing.T) {
	c, sys := openFake(t, "utun2", PlatformDarwin, WithStripPacketInfo(false))
	frame := NewUtunPacket(IPv6{0x60, 0, 0, 0}).Bytes()
	sys.dev.frames = [][]byte{frame}
	pt, data, _, err := c.Recv(100)
	require.NoError(t, err)
	assert.Equal(t, PayloadUtunInfo, pt)
	assert.Equal(t, frame, data, "header was not left in place")
}

func TestRecvUtun(t *testing.T) {
	c, sys := openFake(t, "utun2", PlatformDarwin)
	sys.dev.frames = [][]byte{
		append(UtunHeader{AddrFamily: DarwinAFInet}.Marshal(), 0x45, 0),
		append(UtunHeader{AddrFamily: 7}.Marshal(), 1, 2, 3),
		{0, 0},
	}
	pt, data, _, err := c.Recv(64)
	require.NoError(t, err)
	assert.Equal(t, PayloadIPv4, pt)
	assert.Len(t, data, 2)

	_, _, _, err = c.Recv(64)
	assert.ErrorIs(t, err, ErrUnsupportedAddressFamily)
	_, _, _, err = c.Recv(64)
	assert.ErrorIs(t, err, ErrShortFrame)
	_, _, _, err = c.Recv(64)
	assert.ErrorIs(t, err, io.EOF)
}

func TestRecvNoOverhead(t *testing.T) {
	c, sys := openFake(t, "tap0", PlatformLinux, WithStripPacketInfo(false))
	assert.True(t, c.StripPacketInfo(), "stripping was not forced on a Linux tap")
	frame := NewEthernet(Raw("hi"))
	sys.dev.frames = [][]byte{frame}
	pt, data, _, err := c.Recv(10)
	require.NoError(t, err)
	assert.Equal(t, 10, sys.dev.readSizes[0])
	assert.Equal(t, PayloadEthernet, pt)
	assert.Equal(t, []byte(frame[:10]), data)
}

func TestSendWrapsIPv4(t *testing.T) {
	c, sys := openFake(t, "tun0", PlatformBSD)
	require.Equal(t, PayloadIPv46, c.KernelType())
	require.Equal(t, 0, c.Overhead())

	n, err := c.Send(Raw("bare payload"))
	require.NoError(t, err)
	w := sys.dev.written[0]
	assert.Len(t, w, 20+len("bare payload"))
	assert.Equal(t, len(w), n)
	assert.Equal(t, byte(0x45), w[0], "expected an IPv4 header")

	v6 := IPv6{0x60, 0, 0, 0, 0, 0}
	_, err = c.Send(v6)
	require.NoError(t, err)
	assert.Equal(t, []byte(v6), sys.dev.written[1], "IPv6 packet was modified")
}

func TestSendTooLarge(t *testing.T) {
	hook := test.NewGlobal()
	c, sys := openFake(t, "tun0", PlatformBSD)
	_, err := c.Send(Raw(make([]byte, 65520)))
	assert.ErrorIs(t, err, ErrFrameTooLarge)
	assert.Empty(t, sys.dev.written)
	assert.Nil(t, hook.LastEntry(), "rejected frame should not be logged as a write error")

	_, err = c.Send(Raw("fits"))
	assert.NoError(t, err)
}

func TestSendAddsHeaders(t *testing.T) {
	c, sys := openFake(t, "tun0", PlatformLinux)
	v4 := wrapIPv4(t, Raw("x"))
	_, err := c.Send(v4)
	require.NoError(t, err)
	w := sys.dev.written[0]
	require.Len(t, w, len(v4)+4)
	assert.Equal(t, []byte{0x08, 0x00}, w[2:4], "wrong tun header type")

	custom := TunPacket{Header: TunHeader{EtherType: 0x1234}, Payload: Raw("y")}
	_, err = c.Send(custom)
	require.NoError(t, err)
	assert.Equal(t, custom.Bytes(), sys.dev.written[1], "existing tun header was not kept")

	tc, tsys := openFake(t, "tap0", PlatformLinux)
	_, err = tc.Send(v4)
	require.NoError(t, err)
	assert.Len(t, tsys.dev.written[0], 14+len(v4), "ethernet header not added")
}

func TestSendBarePayloadHeaders(t *testing.T) {
	for _, payload := range []Raw{Raw("abc"), {0x45, 0, 0, 0}, {0x60, 1, 2}} {
		c, sys := openFake(t, "tun0", PlatformLinux)
		_, err := c.Send(payload)
		require.NoError(t, err)
		assert.Equal(t, []byte{0, 0, 0x90, 0}, sys.dev.written[0][:4], "tun header for %x", []byte(payload))

		uc, usys := openFake(t, "utun1", PlatformDarwin)
		_, err = uc.Send(payload)
		require.NoError(t, err)
		assert.Equal(t, []byte{0, 0, 0, 2}, usys.dev.written[0][:4], "utun header for %x", []byte(payload))
	}
}

func TestSendWriteError(t *testing.T) {
	hook := test.NewGlobal()
	c, sys := openFake(t, "tun0", PlatformLinux)
	writeErr := fmt.Errorf("no buffer space available")
	sys.dev.writeErr = writeErr
	_, err := c.Send(Raw("x"))
	var twe *TransportWriteError
	assert.ErrorAs(t, err, &twe)
	assert.ErrorIs(t, err, writeErr)
	e := hook.LastEntry()
	require.NotNil(t, e, "write error was not logged")
	assert.Equal(t, logrus.ErrorLevel, e.Level)

	sys.dev.writeErr = nil
	_, err = c.Send(Raw("x"))
	assert.NoError(t, err, "channel unusable after write error")
}

func TestClosedChannel(t *testing.T) {
	c, sys := openFake(t, "tun0", PlatformLinux)
	require.NoError(t, c.Close())
	for i := 0; i < 3; i++ {
		_, _, _, err := c.Recv(10)
		assert.ErrorIs(t, err, ErrClosedChannel)
		_, err = c.Send(Raw("x"))
		assert.ErrorIs(t, err, ErrClosedChannel)
		assert.ErrorIs(t, c.Close(), ErrClosedChannel)
	}
	assert.Equal(t, 1, sys.dev.closes)
	assert.Empty(t, sys.dev.readSizes, "device read after close")
	assert.Empty(t, sys.dev.written, "device written after close")
}

type pipeDevice struct {
	*io.PipeReader
	w *io.PipeWriter
}

func (p pipeDevice) Write(b []byte) (int, error) {
	return p.w.Write(b)
}

func (p pipeDevice) Ioctl(uintptr, []byte) error {
	return nil
}

type pipeSystem struct {
	dev pipeDevice
}

func (s pipeSystem) OpenDevice(string) (device, error) {
	return s.dev, nil
}

func (s pipeSystem) OpenControlSocket() (ctlDevice, error) {
	return nil, ErrNotImplemented
}

func TestCloseUnblocksRecv(t *testing.T) {
	defer goleak.VerifyNone(t)
	r, w := io.Pipe()
	c, err := Open("tap0", WithPlatform(PlatformBSD), withSystem(pipeSystem{dev: pipeDevice{PipeReader: r, w: w}}))
	require.NoError(t, err)
	errCh := make(chan error)
	go func() {
		_, _, _, rerr := c.Recv(0)
		errCh <- rerr
	}()
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, c.Close())
	select {
	case err = <-errCh:
		assert.ErrorIs(t, err, ErrClosedChannel)
	case <-time.After(time.Second):
		t.Fatal("recv was not unblocked by close")
	}
	_ = w.Close()
}

func TestOpenLinkSetup(t *testing.T) {
	sys := newFakeSystem()
	var gotName string
	var gotOpts LinkOptions
	configure := func(name string, opts ...func(*LinkOptions)) error {
		gotName = name
		for _, o := range opts {
			o(&gotOpts)
		}
		return nil
	}
	c, err := Open("", WithDefaultName("tap5"), WithPlatform(PlatformLinux), withSystem(sys),
		withLinkConfigurer(configure), WithLinkSetup(WithMTU(1400), WithLinkUp()))
	require.NoError(t, err)
	assert.Equal(t, "tap5", gotName)
	assert.Equal(t, LinkOptions{mtu: 1400, up: true}, gotOpts)
	assert.Equal(t, "tap5", c.Name())
	assert.Equal(t, ModeTap, c.Mode())
	assert.Equal(t, PlatformLinux, c.Platform())
	assert.Equal(t, DefaultReadSize, c.ReadSize())

	sys = newFakeSystem()
	_, err = Open("tun0", WithPlatform(PlatformLinux), withSystem(sys),
		withLinkConfigurer(func(string, ...func(*LinkOptions)) error { return ErrNotImplemented }),
		WithLinkSetup(WithLinkUp()))
	assert.ErrorIs(t, err, ErrNotImplemented)
	assert.Equal(t, 1, sys.dev.closes, "device left open after failed link setup")
}

func TestOpenResolveErrors(t *testing.T) {
	sys := newFakeSystem()
	_, err := Open("eth0", WithPlatform(PlatformLinux), withSystem(sys))
	assert.ErrorIs(t, err, ErrAmbiguousMode)
	_, err = Open("eth0", WithMode(ModeTap), WithPlatform(PlatformDarwin), withSystem(sys))
	assert.ErrorIs(t, err, ErrInvalidName)
	assert.Empty(t, sys.paths, "device opened despite resolve failure")
}
