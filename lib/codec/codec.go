// Package codec encodes and decodes the wire packets exchanged with the
// CXOF accelerator. Three framings are supported, selected once at
// channel-open time and dispatched on a Framing tag.
//
// Compact framing (device default):
//
//	+----------+----------+----------+------------+------------+
//	| labelLen | msgLen   | outLen   | label      | message    |
//	| 1 byte   | 1 byte   | 1 byte   | labelLen B | msgLen B   |
//	+----------+----------+----------+------------+------------+
//
// The device replies with exactly outLen raw bytes, no framing.
//
// Extended framing (big-endian, for payloads past 255 bytes):
//
//	+-------+-----------+---------+------------+---------+----------+
//	| ASCN  | msgLen    | message | labelLen   | label   | outBits  |
//	| 4 B   | 2 B (BE)  | N bytes | 2 B (BE)   | M bytes | 2 B (BE) |
//	+-------+-----------+---------+------------+---------+----------+
//
// Text framing: newline-terminated ASCII commands (MSG, LABEL, OUTBITS,
// optional ROUNDS, optional GO); the device replies with one hex line.
//
// The wire layout is authoritative: label bytes always precede message
// bytes in the compact payload, regardless of how callers order their
// arguments. Encode takes the label first to pin that down.
package codec

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/samber/oops"

	"github.com/ascon-fpga/cxof-harness/lib/hexfmt"
)

// Framing identifies the wire layout used for a device exchange.
type Framing int

const (
	// Compact is the 3-byte-header binary framing, fields capped at 255.
	Compact Framing = iota
	// Extended is the magic-prefixed binary framing with 16-bit lengths.
	Extended
	// TextLines is the newline-terminated ASCII command framing.
	TextLines
)

// Magic is the synchronization marker prefixing every Extended packet.
const Magic = "ASCN"

// CompactHeaderLen is the fixed header size of the compact framing.
const CompactHeaderLen = 3

const (
	compactMaxField  = 255
	extendedMaxField = 65535
)

func (f Framing) String() string {
	switch f {
	case Compact:
		return "compact"
	case Extended:
		return "extended"
	case TextLines:
		return "lines"
	default:
		return fmt.Sprintf("framing(%d)", int(f))
	}
}

// ParseFraming maps a configuration string to a Framing tag.
func ParseFraming(s string) (Framing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "compact", "minimal", "binary":
		return Compact, nil
	case "extended", "magic":
		return Extended, nil
	case "lines", "text":
		return TextLines, nil
	default:
		return 0, oops.Errorf("unknown framing %q", s)
	}
}

// MaxField returns the largest label/message byte length the framing can
// carry in its length fields.
func (f Framing) MaxField() int {
	if f == Compact {
		return compactMaxField
	}
	return extendedMaxField
}

// ErrTruncated is returned by the decoders when the input ends before the
// lengths declared in its own header.
var ErrTruncated = oops.Errorf("truncated packet")

// ErrFieldTooLarge is returned by the encoders when a field does not fit
// the framing's declared width. The wrapping error names the field.
var ErrFieldTooLarge = oops.Errorf("field exceeds framing width")

// ErrBadMagic is returned when an Extended packet does not start with Magic.
var ErrBadMagic = oops.Errorf("bad synchronization marker")

// EncodeCompact builds a compact-framing packet. Label and message may be
// empty; each field must fit in one byte.
func EncodeCompact(label, message []byte, outLen int) ([]byte, error) {
	if len(label) > compactMaxField {
		return nil, oops.Errorf("%w: label is %d bytes (max %d)", ErrFieldTooLarge, len(label), compactMaxField)
	}
	if len(message) > compactMaxField {
		return nil, oops.Errorf("%w: message is %d bytes (max %d)", ErrFieldTooLarge, len(message), compactMaxField)
	}
	if outLen < 0 || outLen > compactMaxField {
		return nil, oops.Errorf("%w: output length %d (max %d)", ErrFieldTooLarge, outLen, compactMaxField)
	}
	packet := make([]byte, 0, CompactHeaderLen+len(label)+len(message))
	packet = append(packet, byte(len(label)), byte(len(message)), byte(outLen))
	packet = append(packet, label...)
	packet = append(packet, message...)
	return packet, nil
}

// DecodeCompact is the structural inverse of EncodeCompact.
func DecodeCompact(packet []byte) (label, message []byte, outLen int, err error) {
	if len(packet) < CompactHeaderLen {
		return nil, nil, 0, oops.Errorf("%w: %d header bytes of %d", ErrTruncated, len(packet), CompactHeaderLen)
	}
	labelLen := int(packet[0])
	msgLen := int(packet[1])
	outLen = int(packet[2])
	want := CompactHeaderLen + labelLen + msgLen
	if len(packet) < want {
		return nil, nil, 0, oops.Errorf("%w: %d bytes of %d", ErrTruncated, len(packet), want)
	}
	label = append([]byte{}, packet[CompactHeaderLen:CompactHeaderLen+labelLen]...)
	message = append([]byte{}, packet[CompactHeaderLen+labelLen:want]...)
	return label, message, outLen, nil
}

// EncodeExtended builds a magic-prefixed packet with 16-bit big-endian
// length fields. outBits is the requested digest length in bits.
func EncodeExtended(label, message []byte, outBits int) ([]byte, error) {
	if len(message) > extendedMaxField {
		return nil, oops.Errorf("%w: message is %d bytes (max %d)", ErrFieldTooLarge, len(message), extendedMaxField)
	}
	if len(label) > extendedMaxField {
		return nil, oops.Errorf("%w: label is %d bytes (max %d)", ErrFieldTooLarge, len(label), extendedMaxField)
	}
	if outBits < 0 || outBits > extendedMaxField {
		return nil, oops.Errorf("%w: output bits %d (max %d)", ErrFieldTooLarge, outBits, extendedMaxField)
	}
	packet := make([]byte, 0, len(Magic)+6+len(message)+len(label))
	packet = append(packet, Magic...)
	packet = binary.BigEndian.AppendUint16(packet, uint16(len(message)))
	packet = append(packet, message...)
	packet = binary.BigEndian.AppendUint16(packet, uint16(len(label)))
	packet = append(packet, label...)
	packet = binary.BigEndian.AppendUint16(packet, uint16(outBits))
	return packet, nil
}

// DecodeExtended is the structural inverse of EncodeExtended.
func DecodeExtended(packet []byte) (label, message []byte, outBits int, err error) {
	if len(packet) < len(Magic)+2 {
		return nil, nil, 0, oops.Errorf("%w: %d bytes", ErrTruncated, len(packet))
	}
	if string(packet[:len(Magic)]) != Magic {
		return nil, nil, 0, oops.Errorf("%w: got %q", ErrBadMagic, packet[:len(Magic)])
	}
	off := len(Magic)
	msgLen := int(binary.BigEndian.Uint16(packet[off:]))
	off += 2
	if len(packet) < off+msgLen+2 {
		return nil, nil, 0, oops.Errorf("%w: message field", ErrTruncated)
	}
	message = append([]byte{}, packet[off:off+msgLen]...)
	off += msgLen
	labelLen := int(binary.BigEndian.Uint16(packet[off:]))
	off += 2
	if len(packet) < off+labelLen+2 {
		return nil, nil, 0, oops.Errorf("%w: label field", ErrTruncated)
	}
	label = append([]byte{}, packet[off:off+labelLen]...)
	off += labelLen
	outBits = int(binary.BigEndian.Uint16(packet[off:]))
	return label, message, outBits, nil
}

// EncodeTextLines renders the command sequence for the text framing, one
// newline-terminated line per element. ROUNDS is emitted only when rounds
// is positive; the GO terminator only when sendGo is set (the minimal
// firmware starts processing after OUTBITS).
func EncodeTextLines(label, message []byte, outBits, rounds int, sendGo bool) [][]byte {
	lines := [][]byte{
		[]byte(fmt.Sprintf("MSG %s\n", hexfmt.EncodeToString(message))),
		[]byte(fmt.Sprintf("LABEL %s\n", hexfmt.EncodeToString(label))),
		[]byte(fmt.Sprintf("OUTBITS %d\n", outBits)),
	}
	if rounds > 0 {
		lines = append(lines, []byte(fmt.Sprintf("ROUNDS %d\n", rounds)))
	}
	if sendGo {
		lines = append(lines, []byte("GO\n"))
	}
	return lines
}
