package tuntap

import (
	"fmt"
	log "github.com/sirupsen/logrus"
	"io"
	"sync/atomic"
	"time"
)

// DefaultReadSize is the number of payload bytes requested by Recv when no size is given
const DefaultReadSize = 65535

type channelOpts struct {
	mode        Mode
	defaultName string
	readSize    int
	strip       bool
	platform    Platform
	sys         system
	setupLink   bool
	linkOpts    []func(*LinkOptions)
	configure   func(string, ...func(*LinkOptions)) error
}

// Option configures Open
type Option func(*channelOpts)

// WithMode sets the interface mode instead of inferring it from the name
func WithMode(mode Mode) Option {
	return func(o *channelOpts) {
		o.mode = mode
	}
}

// WithDefaultName sets the interface name used when Open is given an empty name
func WithDefaultName(name string) Option {
	return func(o *channelOpts) {
		o.defaultName = name
	}
}

// WithReadSize sets the default payload size requested by Recv
func WithReadSize(size int) Option {
	return func(o *channelOpts) {
		if size > 0 {
			o.readSize = size
		}
	}
}

// WithStripPacketInfo controls whether Recv removes the packet info header.  Stripping is on by default, and
// cannot be turned off for Linux tap interfaces.
func WithStripPacketInfo(strip bool) Option {
	return func(o *channelOpts) {
		o.strip = strip
	}
}

// WithPlatform overrides the detected platform
func WithPlatform(p Platform) Option {
	return func(o *channelOpts) {
		o.platform = p
	}
}

// WithLinkSetup configures the interface after it is opened.  See ConfigureLink.
func WithLinkSetup(opts ...func(*LinkOptions)) Option {
	return func(o *channelOpts) {
		o.setupLink = true
		o.linkOpts = append(o.linkOpts, opts...)
	}
}

func withSystem(sys system) Option {
	return func(o *channelOpts) {
		o.sys = sys
	}
}

func withLinkConfigurer(configure func(string, ...func(*LinkOptions)) error) Option {
	return func(o *channelOpts) {
		o.configure = configure
	}
}

// Channel is the host's peer of a tun or tap interface.  Recv and Send must not be called concurrently.  Close
// may be called at any time, and unblocks a pending Recv where the platform allows it.
type Channel struct {
	spec       InterfaceSpec
	name       string
	dev        io.ReadWriteCloser
	kernelType PayloadType
	overhead   int
	strip      bool
	readSize   int
	closed     atomic.Bool
}

// Open resolves and opens an interface.  On error, nothing is left open.
func Open(name string, opts ...Option) (*Channel, error) {
	o := channelOpts{
		readSize:  DefaultReadSize,
		strip:     true,
		platform:  CurrentPlatform(),
		sys:       hostSystem,
		configure: ConfigureLink,
	}
	for _, opt := range opts {
		opt(&o)
	}
	spec, err := Resolve(name, o.defaultName, o.mode, o.platform)
	if err != nil {
		return nil, err
	}
	var strategy Strategy
	strategy, err = strategyFor(spec.Platform, o.sys)
	if err != nil {
		return nil, err
	}
	var h *Handle
	h, err = strategy.Open(spec)
	if err != nil {
		return nil, err
	}
	if o.setupLink {
		err = o.configure(h.Name, o.linkOpts...)
		if err != nil {
			_ = h.Device.Close()
			return nil, fmt.Errorf("error configuring %s: %w", h.Name, err)
		}
	}
	c := &Channel{
		spec:       spec,
		name:       h.Name,
		dev:        h.Device,
		kernelType: h.KernelType,
		overhead:   h.Overhead,
		strip:      o.strip || h.ForceStrip,
		readSize:   o.readSize,
	}
	log.Debugf("opened %s interface %s: kernel type %s, overhead %d", spec.Mode, c.name, c.kernelType, c.overhead)
	return c, nil
}

// Recv reads a single frame of up to size payload bytes, or the default read size if size is not positive.
// It returns the payload type, the data and the time the read completed.  When stripping is enabled and the
// platform adds packet info, the header is removed and the type is taken from it.  Otherwise the type is the
// channel's KernelType and the data is returned as read.
func (c *Channel) Recv(size int) (PayloadType, []byte, time.Time, error) {
	if c.closed.Load() {
		return PayloadRaw, nil, time.Time{}, ErrClosedChannel
	}
	if size <= 0 {
		size = c.readSize
	}
	buf := make([]byte, size+c.overhead)
	n, err := c.dev.Read(buf)
	ts := time.Now()
	if err != nil && n == 0 {
		if c.closed.Load() {
			return PayloadRaw, nil, ts, ErrClosedChannel
		}
		return PayloadRaw, nil, ts, err
	}
	data := buf[:n]
	if c.overhead == 0 || !c.strip {
		return c.kernelType, data, ts, nil
	}
	if n < c.overhead {
		return PayloadRaw, nil, ts, fmt.Errorf("%w: read %d bytes from %s", ErrShortFrame, n, c.name)
	}
	var pt PayloadType
	pt, err = ClassifyHeader(c.kernelType, data[:c.overhead])
	if err != nil {
		return PayloadRaw, nil, ts, err
	}
	return pt, data[c.overhead:], ts, nil
}

// frameForKernel adds whatever header the kernel expects to a frame that does not already have it
func (c *Channel) frameForKernel(frame Frame) (Frame, error) {
	switch c.kernelType {
	case PayloadIPv46:
		switch frame.(type) {
		case IPv4, IPv6:
			return frame, nil
		}
		ip, err := WrapIPv4(frame)
		if err != nil {
			return nil, err
		}
		return ip, nil
	case PayloadTunInfo:
		if frame.PayloadType() == PayloadTunInfo {
			return frame, nil
		}
		return NewTunPacket(frame), nil
	case PayloadUtunInfo:
		if frame.PayloadType() == PayloadUtunInfo {
			return frame, nil
		}
		return NewUtunPacket(frame), nil
	case PayloadEthernet:
		if frame.PayloadType() == PayloadEthernet {
			return frame, nil
		}
		return NewEthernet(frame), nil
	default:
		return frame, nil
	}
}

type flusher interface {
	Flush() error
}

// Send writes a single frame, adding the header the kernel expects if the frame does not have it.  It returns
// the number of bytes accepted by the device.  Write errors are logged and returned as *TransportWriteError.
// A frame that cannot be wrapped is rejected with ErrFrameTooLarge before anything is written.
func (c *Channel) Send(frame Frame) (int, error) {
	if c.closed.Load() {
		return 0, ErrClosedChannel
	}
	if frame == nil {
		frame = Raw(nil)
	}
	kframe, err := c.frameForKernel(frame)
	if err != nil {
		return 0, err
	}
	var n int
	n, err = c.dev.Write(kframe.Bytes())
	if err == nil {
		if f, ok := c.dev.(flusher); ok {
			err = f.Flush()
		}
	}
	if err != nil {
		if c.closed.Load() {
			return n, ErrClosedChannel
		}
		log.Errorf("%s send: %s", c.name, err)
		return n, &TransportWriteError{Name: c.name, Err: err}
	}
	return n, nil
}

// Close releases the device.  Only the first call has any effect; later calls return ErrClosedChannel.
func (c *Channel) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClosedChannel
	}
	return c.dev.Close()
}

// Name returns the interface name, as assigned by the kernel
func (c *Channel) Name() string {
	return c.name
}

func (c *Channel) Mode() Mode {
	return c.spec.Mode
}

func (c *Channel) Platform() Platform {
	return c.spec.Platform
}

// Overhead returns the length of the packet info header the kernel adds to each frame
func (c *Channel) Overhead() int {
	return c.overhead
}

// KernelType returns the type of the frames exchanged with the kernel, before any stripping
func (c *Channel) KernelType() PayloadType {
	return c.kernelType
}

func (c *Channel) StripPacketInfo() bool {
	return c.strip
}

func (c *Channel) ReadSize() int {
	return c.readSize
}
