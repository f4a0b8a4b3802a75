package evdev

import (
	"fmt"
	"unsafe"

	"github.com/okian/balanceboard/internal/domain/model"
	"golang.org/x/sys/unix"
)

// Linux input event types and codes used by the balance board.
const (
	evSyn = 0x00
	evAbs = 0x03

	synReport  = 0x00
	synDropped = 0x03

	absHat0X = 0x10
	absHat0Y = 0x11
	absHat1X = 0x12
	absHat1Y = 0x13
)

// input_event sizes for 32-bit and 64-bit timeval layouts.
const (
	EventSize16 = 16
	EventSize24 = 24
)

// NativeEventSize is the input_event size of the running kernel ABI.
var NativeEventSize = int(unsafe.Sizeof(unix.Timeval{})) + 8 //nolint:gochecknoglobals // derived from the platform ABI

// CornerMap maps each logical corner to the ABS code that reports it.
type CornerMap [model.NumCorners]uint16

// DefaultCornerMap is the layout used by the hid-wiimote driver.
var DefaultCornerMap = CornerMap{ //nolint:gochecknoglobals // read-only table
	model.FrontLeft:  absHat1X,
	model.FrontRight: absHat0X,
	model.BackLeft:   absHat1Y,
	model.BackRight:  absHat0Y,
}

// Lookup returns the corner reported by code.
func (m CornerMap) Lookup(code uint16) (model.Corner, bool) {
	for i, c := range m {
		if c == code {
			return model.Corner(i), true
		}
	}
	return 0, false
}

// Validate checks that every corner has a distinct code.
func (m CornerMap) Validate() error {
	seen := make(map[uint16]bool, len(m))
	for i, c := range m {
		if seen[c] {
			return fmt.Errorf("corner %s: duplicate code 0x%02x", model.Corner(i), c)
		}
		seen[c] = true
	}
	return nil
}

// ioctl request encoding (Linux _IOC macro).
const (
	iocNRBits   = 8
	iocTypeBits = 8
	iocSizeBits = 14

	iocNRShift   = 0
	iocTypeShift = iocNRShift + iocNRBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits

	iocRead = 2
)

func ioc(dir, typ, nr, size uint32) uintptr {
	return uintptr((dir << iocDirShift) | (typ << iocTypeShift) | (nr << iocNRShift) | (size << iocSizeShift))
}

// absInfo mirrors struct input_absinfo.
type absInfo struct {
	Value      int32
	Min        int32
	Max        int32
	Fuzz       int32
	Flat       int32
	Resolution int32
}

func evioCGName(size int) uintptr {
	return ioc(iocRead, uint32('E'), 0x06, uint32(size))
}

func evioCGAbs(code uint16) uintptr {
	return ioc(iocRead, uint32('E'), uint32(0x40+code), uint32(unsafe.Sizeof(absInfo{})))
}

func deviceName(fd int) (string, error) {
	buf := make([]byte, 256)
	n, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), evioCGName(len(buf)), uintptr(unsafe.Pointer(&buf[0])))
	if errno != 0 {
		return "", errno
	}
	if n > 0 && buf[n-1] == 0 {
		n--
	}
	return string(buf[:n]), nil
}

func absValue(fd int, code uint16) (int, error) {
	var info absInfo
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), evioCGAbs(code), uintptr(unsafe.Pointer(&info)))
	if errno != 0 {
		return 0, errno
	}
	return int(info.Value), nil
}
