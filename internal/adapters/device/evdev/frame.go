package evdev

import (
	"encoding/binary"
	"fmt"

	"github.com/okian/balanceboard/internal/domain/model"
)

// Assembler turns a raw input_event byte stream into corner frames. The
// kernel only reports axes whose value changed, so the assembler keeps a
// running frame and emits it on every SYN_REPORT once each corner has been
// seen.
type Assembler struct {
	size    int
	corners CornerMap

	buf      []byte
	values   [model.NumCorners]int
	seen     [model.NumCorners]bool
	dropping bool
}

// NewAssembler creates an assembler for input_event records of size bytes.
func NewAssembler(size int, corners CornerMap) (*Assembler, error) {
	if size != EventSize16 && size != EventSize24 {
		return nil, fmt.Errorf("%w: %d", ErrEventSize, size)
	}
	if err := corners.Validate(); err != nil {
		return nil, err
	}
	return &Assembler{size: size, corners: corners}, nil
}

// Feed appends raw bytes read from the device.
func (a *Assembler) Feed(chunk []byte) {
	a.buf = append(a.buf, chunk...)
}

// Buffered reports whether at least one whole event is waiting.
func (a *Assembler) Buffered() bool {
	return len(a.buf) >= a.size
}

// Set overwrites a corner value, e.g. after a resync from the kernel state.
func (a *Assembler) Set(c model.Corner, v int) {
	if v < 0 {
		v = 0
	}
	a.values[c] = v
	a.seen[c] = true
}

// Next consumes buffered events up to the next complete frame. ok is false
// when the buffer ran out first. After SYN_DROPPED the events up to the next
// SYN_REPORT are discarded and ErrEventsDropped is returned.
func (a *Assembler) Next() (model.RawSample, bool, error) {
	for len(a.buf) >= a.size {
		etype, code, value := a.decode(a.buf[:a.size])
		a.buf = a.buf[a.size:]

		switch etype {
		case evSyn:
			switch code {
			case synDropped:
				a.dropping = true
			case synReport:
				if a.dropping {
					a.dropping = false
					a.compact()
					return model.RawSample{}, false, ErrEventsDropped
				}
				if a.complete() {
					a.compact()
					return model.NewRawSample(a.values), true, nil
				}
			}
		case evAbs:
			if a.dropping {
				continue
			}
			if c, ok := a.corners.Lookup(code); ok {
				if value < 0 {
					value = 0
				}
				a.values[c] = int(value)
				a.seen[c] = true
			}
		}
	}
	a.compact()
	return model.RawSample{}, false, nil
}

func (a *Assembler) decode(ev []byte) (uint16, uint16, int32) {
	if a.size == EventSize24 {
		return binary.LittleEndian.Uint16(ev[16:18]),
			binary.LittleEndian.Uint16(ev[18:20]),
			int32(binary.LittleEndian.Uint32(ev[20:24]))
	}
	return binary.LittleEndian.Uint16(ev[8:10]),
		binary.LittleEndian.Uint16(ev[10:12]),
		int32(binary.LittleEndian.Uint32(ev[12:16]))
}

func (a *Assembler) complete() bool {
	for _, s := range a.seen {
		if !s {
			return false
		}
	}
	return true
}

// compact releases the consumed prefix once the buffer is drained.
func (a *Assembler) compact() {
	if len(a.buf) == 0 {
		a.buf = a.buf[:0:0]
	}
}
