// Package wire implements the W3GS_* wire framing described in spec.md §6:
// a 4-byte header {magic, opcode, length_lo, length_hi} followed by a
// little-endian payload. The same header shape is reused by the reconnect
// sidechannel (internal/reconnect) with the same magic byte.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Magic is the leading byte of every W3GS packet header.
const Magic = 0xF7

const headerSize = 4

// WritePacket writes one framed packet: {Magic, opcode, len_lo, len_hi, payload...}.
func WritePacket(w io.Writer, opcode byte, payload []byte) error {
	total := headerSize + len(payload)
	if total > 0xFFFF {
		return fmt.Errorf("writing packet 0x%02x: payload too large (%d bytes)", opcode, len(payload))
	}

	buf := make([]byte, total)
	buf[0] = Magic
	buf[1] = opcode
	binary.LittleEndian.PutUint16(buf[2:4], uint16(total))
	copy(buf[headerSize:], payload)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("writing packet 0x%02x: %w", opcode, err)
	}
	return nil
}

// FramePacket returns one framed packet as a standalone byte slice, for
// callers that need the bytes themselves rather than a stream to write to
// (e.g. the GProxy resume buffer, which replays raw framed packets back
// onto a reconnected socket verbatim).
func FramePacket(opcode byte, payload []byte) []byte {
	total := headerSize + len(payload)
	buf := make([]byte, total)
	buf[0] = Magic
	buf[1] = opcode
	binary.LittleEndian.PutUint16(buf[2:4], uint16(total))
	copy(buf[headerSize:], payload)
	return buf
}

// ReadPacket reads one framed packet from r and returns its opcode and payload.
func ReadPacket(r io.Reader) (opcode byte, payload []byte, err error) {
	var header [headerSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, nil, fmt.Errorf("reading packet header: %w", err)
	}
	if header[0] != Magic {
		return 0, nil, fmt.Errorf("reading packet header: bad magic 0x%02x", header[0])
	}

	total := int(binary.LittleEndian.Uint16(header[2:4]))
	if total < headerSize {
		return 0, nil, fmt.Errorf("reading packet header: invalid length %d", total)
	}

	payload = make([]byte, total-headerSize)
	if len(payload) > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return 0, nil, fmt.Errorf("reading packet payload (opcode 0x%02x): %w", header[1], err)
		}
	}
	return header[1], payload, nil
}

// Encoder accumulates a little-endian payload for one outgoing packet.
// Mirrors the teacher's buf-and-offset packet writers, but grows instead
// of requiring a precomputed capacity.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an Encoder with a small pre-allocated backing array.
func NewEncoder() *Encoder {
	return &Encoder{buf: make([]byte, 0, 64)}
}

func (e *Encoder) Byte(b byte) *Encoder { e.buf = append(e.buf, b); return e }

func (e *Encoder) Bytes(b []byte) *Encoder { e.buf = append(e.buf, b...); return e }

func (e *Encoder) Uint16(v uint16) *Encoder {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	return e.Bytes(tmp[:])
}

func (e *Encoder) Uint32(v uint32) *Encoder {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return e.Bytes(tmp[:])
}

// String writes a NUL-terminated ASCII string, as W3GS does for names/paths.
func (e *Encoder) String(s string) *Encoder {
	e.buf = append(e.buf, []byte(s)...)
	e.buf = append(e.buf, 0)
	return e
}

func (e *Encoder) Bool(v bool) *Encoder {
	if v {
		return e.Byte(1)
	}
	return e.Byte(0)
}

// Payload returns the accumulated payload.
func (e *Encoder) Payload() []byte { return e.buf }

// Decoder reads a little-endian payload sequentially, tracking the first
// error so callers can chain reads and check err once at the end.
type Decoder struct {
	buf []byte
	off int
	err error
}

func NewDecoder(payload []byte) *Decoder { return &Decoder{buf: payload} }

func (d *Decoder) need(n int) bool {
	if d.err != nil {
		return false
	}
	if d.off+n > len(d.buf) {
		d.err = fmt.Errorf("decoding wire payload: need %d bytes at offset %d, have %d", n, d.off, len(d.buf))
		return false
	}
	return true
}

func (d *Decoder) Byte() byte {
	if !d.need(1) {
		return 0
	}
	b := d.buf[d.off]
	d.off++
	return b
}

func (d *Decoder) Uint16() uint16 {
	if !d.need(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(d.buf[d.off:])
	d.off += 2
	return v
}

func (d *Decoder) Uint32() uint32 {
	if !d.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(d.buf[d.off:])
	d.off += 4
	return v
}

func (d *Decoder) Bytes(n int) []byte {
	if !d.need(n) {
		return nil
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b
}

// String reads a NUL-terminated ASCII string.
func (d *Decoder) String() string {
	if d.err != nil {
		return ""
	}
	start := d.off
	for d.off < len(d.buf) && d.buf[d.off] != 0 {
		d.off++
	}
	if d.off >= len(d.buf) {
		d.err = fmt.Errorf("decoding wire payload: unterminated string at offset %d", start)
		return ""
	}
	s := string(d.buf[start:d.off])
	d.off++ // skip NUL
	return s
}

func (d *Decoder) Err() error { return d.err }
