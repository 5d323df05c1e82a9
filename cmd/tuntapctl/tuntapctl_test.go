package main

import (
	"bytes"
	"fmt"
	"github.com/ghjm/tuntap/pkg/tuntap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"syscall"
	"testing"
	"time"
)

type recvResult struct {
	data []byte
	err  error
}

type scriptedReceiver struct {
	results []recvResult
	calls   int
}

func (r *scriptedReceiver) Recv(int) (tuntap.PayloadType, []byte, time.Time, error) {
	r.calls++
	if len(r.results) == 0 {
		return tuntap.PayloadRaw, nil, time.Now(), tuntap.ErrClosedChannel
	}
	res := r.results[0]
	r.results = r.results[1:]
	return tuntap.PayloadIPv4, res.data, time.Now(), res.err
}

func TestCaptureSkipsBadFrames(t *testing.T) {
	r := &scriptedReceiver{results: []recvResult{
		{err: fmt.Errorf("frame 1: %w", tuntap.ErrShortFrame)},
		{data: []byte{0x45, 0, 0}},
		{err: fmt.Errorf("frame 3: %w", tuntap.ErrUnsupportedAddressFamily)},
		{data: []byte{0x45}},
	}}
	var out bytes.Buffer
	require.NoError(t, capture(r, 0, 0, false, &out))
	assert.Equal(t, 2, bytes.Count(out.Bytes(), []byte("ipv4")))
	assert.Contains(t, out.String(), " 3 bytes\n")
	assert.Equal(t, 5, r.calls, "capture should run until the channel is closed")
}

func TestCaptureStopsOnDeviceError(t *testing.T) {
	r := &scriptedReceiver{results: []recvResult{
		{data: []byte{1, 2}},
		{err: syscall.EIO},
		{data: []byte{3, 4}},
	}}
	var out bytes.Buffer
	err := capture(r, 0, 0, false, &out)
	assert.ErrorIs(t, err, syscall.EIO)
	assert.Equal(t, 2, r.calls, "capture retried after a device error")
}

func TestCaptureCount(t *testing.T) {
	r := &scriptedReceiver{results: []recvResult{{data: []byte{1}}, {data: []byte{2}}, {data: []byte{3}}}}
	var out bytes.Buffer
	require.NoError(t, capture(r, 2, 0, true, &out))
	assert.Equal(t, 2, r.calls)
	assert.Contains(t, out.String(), "00000000  01")
}
