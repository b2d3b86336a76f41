// Package slcan drives LAWICEL/SLCAN serial CAN adapters (CANable,
// CANUSB, USBtin and friends). The wire protocol is line oriented ASCII:
// one frame or command per CR-terminated token.
package slcan

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/openvehicletools/can-tracer/internal/can"
	"github.com/openvehicletools/can-tracer/internal/metrics"
)

// Codec encodes/decodes SLCAN ASCII lines. Stateless and safe for
// concurrent use.
type Codec struct{}

const (
	cr   = '\r'
	bell = '\a' // adapter NAK

	// Longest valid line: 'T' + 8 id digits + dlc + 16 data digits + CR.
	maxLine = 27

	// A stream with no CR for this long is garbage (binary noise or a
	// non-SLCAN device); drop it instead of buffering forever.
	maxPending = 256
)

const hexUpper = "0123456789ABCDEF"

func appendHex(dst []byte, v uint32, digits int) []byte {
	for i := digits - 1; i >= 0; i-- {
		dst = append(dst, hexUpper[(v>>(uint(i)*4))&0xF])
	}
	return dst
}

// Encode renders one frame as a transmit command:
//
//	t<iii><l><dd..>\r  standard ID
//	T<iiiiiiii><l><dd..>\r  extended ID
func (Codec) Encode(f can.Frame) []byte {
	buf := make([]byte, 0, maxLine)
	if f.Extended {
		buf = append(buf, 'T')
		buf = appendHex(buf, f.ID&can.EFFMask, 8)
	} else {
		buf = append(buf, 't')
		buf = appendHex(buf, f.ID&can.SFFMask, 3)
	}
	buf = append(buf, '0'+f.Len)
	for _, b := range f.Data[:f.Len] {
		buf = appendHex(buf, uint32(b), 2)
	}
	return append(buf, cr)
}

// DecodeStream consumes complete tokens from in and emits decoded frames
// via out. Partial tokens stay buffered for the next call. Transmit acks
// (z/Z) and adapter NAKs are swallowed; anything else that does not parse
// as a frame counts as malformed and is skipped, never fatal.
func (Codec) DecodeStream(in *bytes.Buffer, out func(can.Frame)) error {
	for {
		compactBuffer(in)
		data := in.Bytes()
		i := bytes.IndexAny(data, "\r\a")
		if i < 0 {
			if in.Len() > maxPending {
				metrics.IncMalformed()
				in.Reset()
			}
			return nil
		}
		tok := data[:i]
		term := data[i]
		if term == bell {
			if len(tok) > 0 {
				metrics.IncMalformed()
			}
			in.Next(i + 1)
			continue
		}
		in.Next(i + 1)
		if len(tok) == 0 {
			continue
		}
		switch tok[0] {
		case 't', 'T', 'r', 'R':
			f, err := parseFrame(tok)
			if err != nil {
				metrics.IncMalformed()
				continue
			}
			out(f)
		case 'z', 'Z': // transmit ack
		default:
			metrics.IncMalformed()
		}
	}
}

// parseFrame decodes one t/T/r/R token. Remote frames carry a DLC but no
// data bytes; they come back with a zeroed payload since the frame model
// does not track the RTR bit.
func parseFrame(tok []byte) (can.Frame, error) {
	var f can.Frame
	idDigits := 3
	switch tok[0] {
	case 'T', 'R':
		f.Extended = true
		idDigits = 8
	}
	remote := tok[0] == 'r' || tok[0] == 'R'
	if len(tok) < 1+idDigits+1 {
		return f, fmt.Errorf("slcan: short line %q", tok)
	}
	id, err := strconv.ParseUint(string(tok[1:1+idDigits]), 16, 32)
	if err != nil {
		return f, fmt.Errorf("slcan: bad id in %q: %w", tok, err)
	}
	f.ID = uint32(id)
	dlc := tok[1+idDigits] - '0'
	if dlc > can.MaxDataLen {
		return f, fmt.Errorf("slcan: bad dlc in %q", tok)
	}
	f.Len = dlc
	want := 1 + idDigits + 1
	if !remote {
		want += 2 * int(dlc)
	}
	if len(tok) != want {
		return f, fmt.Errorf("slcan: length mismatch in %q", tok)
	}
	if !remote && dlc > 0 {
		if _, err := hex.Decode(f.Data[:dlc], tok[1+idDigits+1:]); err != nil {
			return f, fmt.Errorf("slcan: bad data in %q: %w", tok, err)
		}
	}
	if err := f.Validate(); err != nil {
		return f, fmt.Errorf("slcan: %q: %w", tok, err)
	}
	return f, nil
}

// bitrateCode maps a CAN bitrate to the LAWICEL Sn setup digit. Only the
// classic table is available; other supported bitrates cannot be expressed
// on this transport.
func bitrateCode(baud uint32) (byte, bool) {
	switch baud {
	case 10000:
		return '0', true
	case 20000:
		return '1', true
	case 50000:
		return '2', true
	case 100000:
		return '3', true
	case 125000:
		return '4', true
	case 250000:
		return '5', true
	case 500000:
		return '6', true
	case 1000000:
		return '8', true
	}
	return 0, false
}

// compactBuffer reclaims consumed prefix capacity once the buffer has
// grown past 1KB with mostly-read contents. Returns true if compaction
// occurred.
func compactBuffer(b *bytes.Buffer) bool {
	data := b.Bytes()
	if len(data) < 1024 {
		return false
	}
	if cap(data) > 0 && len(data)*4 < cap(data) {
		clone := make([]byte, len(data))
		copy(clone, data)
		b.Reset()
		_, _ = b.Write(clone)
		return true
	}
	return false
}
