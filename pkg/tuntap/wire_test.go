package tuntap

import (
	"bytes"
	"encoding/binary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestIfReqLayout(t *testing.T) {
	b, err := IfReq{Name: "tap3", Flags: LinuxIFF_TAP | LinuxIFF_NO_PI}.Marshal()
	require.NoError(t, err)
	require.Len(t, b, IfReqSize)
	assert.Equal(t, 18, IfReqSize)
	assert.Equal(t, []byte("tap3"), b[:4])
	assert.Equal(t, make([]byte, 12), b[4:16], "name must be zero padded")
	assert.Equal(t, uint16(0x1002), binary.NativeEndian.Uint16(b[16:18]))

	r, err := UnmarshalIfReq(b)
	require.NoError(t, err)
	assert.Equal(t, IfReq{Name: "tap3", Flags: 0x1002}, r)
}

func TestIfReqLimits(t *testing.T) {
	_, err := IfReq{Name: "abcdefghijklmnopq"}.Marshal()
	assert.ErrorIs(t, err, ErrInvalidName)

	b, err := IfReq{Name: "abcdefghijklmnop", Flags: LinuxIFF_TUN}.Marshal()
	require.NoError(t, err)
	assert.Equal(t, []byte("abcdefghijklmnop"), b[:16])

	buf, err := IfReq{Name: "tun0", Flags: LinuxIFF_TUN}.ioctlBuffer()
	require.NoError(t, err)
	assert.Len(t, buf, linuxIfReqBufSize)
	assert.True(t, bytes.Equal(buf[IfReqSize:], make([]byte, linuxIfReqBufSize-IfReqSize)))

	_, err = UnmarshalIfReq(b[:10])
	assert.Error(t, err)
}

func TestCtlInfoLayout(t *testing.T) {
	b, err := CtlInfo{ID: 0x01020304, Name: DarwinUtunControlName}.Marshal()
	require.NoError(t, err)
	require.Len(t, b, 100)
	assert.Equal(t, uint32(0x01020304), binary.NativeEndian.Uint32(b[:4]))
	assert.Equal(t, []byte(DarwinUtunControlName), b[4:4+len(DarwinUtunControlName)])
	assert.Equal(t, make([]byte, DarwinMaxKctlName-len(DarwinUtunControlName)), b[4+len(DarwinUtunControlName):])

	c, err := UnmarshalCtlInfo(b)
	require.NoError(t, err)
	assert.Equal(t, CtlInfo{ID: 0x01020304, Name: DarwinUtunControlName}, c)

	_, err = CtlInfo{Name: string(make([]byte, DarwinMaxKctlName))}.Marshal()
	assert.Error(t, err)
}
