// Package leb128 decodes LEB128 variable-length integers as described in
// the DWARF standard (section 7.6, "Variable Length Data").
package leb128

import "errors"

// ErrOverlong is returned when an encoding runs past the maximum number of
// bytes a 64-bit value can occupy (10 bytes at 7 bits per byte) without
// terminating.
var ErrOverlong = errors.New("leb128: overlong encoding")

const maxBytes = 10

// DecodeULEB128 decodes an unsigned LEB128 value from the front of encoded.
// It returns the decoded value and the number of bytes consumed.
//
// Algorithm from page 218 of the "DWARF4 Standard", figure 46.
func DecodeULEB128(encoded []uint8) (uint64, int) {
	v, n, _ := decodeULEB128(encoded)
	return v, n
}

// DecodeULEB128Checked is DecodeULEB128 but reports ErrOverlong instead of
// silently truncating an encoding that never terminates within maxBytes.
func DecodeULEB128Checked(encoded []uint8) (uint64, int, error) {
	return decodeULEB128(encoded)
}

func decodeULEB128(encoded []uint8) (uint64, int, error) {
	var result uint64
	var shift uint64

	var n int
	for _, v := range encoded {
		n++
		if n > maxBytes {
			return 0, n, ErrOverlong
		}
		if shift < 64 {
			result |= uint64(v&0x7f) << shift
		}
		if v&0x80 == 0x00 {
			return result, n, nil
		}
		shift += 7
	}

	return result, n, errors.New("leb128: truncated")
}

// DecodeSLEB128 decodes a signed LEB128 value from the front of encoded. It
// returns the decoded value and the number of bytes consumed.
//
// Algorithm from page 218 of the "DWARF4 Standard", figure 47.
func DecodeSLEB128(encoded []uint8) (int64, int) {
	v, n, _ := decodeSLEB128(encoded)
	return v, n
}

// DecodeSLEB128Checked is DecodeSLEB128 but reports ErrOverlong.
func DecodeSLEB128Checked(encoded []uint8) (int64, int, error) {
	return decodeSLEB128(encoded)
}

func decodeSLEB128(encoded []uint8) (int64, int, error) {
	const size = 64

	var result int64
	var shift uint64

	var v uint8
	var n int
	for _, v = range encoded {
		n++
		if n > maxBytes {
			return 0, n, ErrOverlong
		}
		if shift < size {
			result |= int64(v&0x7f) << shift
		}
		shift += 7
		if v&0x80 == 0x00 {
			break
		}
	}
	if n == 0 {
		return 0, n, errors.New("leb128: truncated")
	}
	if v&0x80 != 0 {
		return 0, n, errors.New("leb128: truncated")
	}

	// sign extend last byte from the encoded slice
	if shift < size && v&0x40 > 0 {
		result |= -(1 << shift)
	}

	return result, n, nil
}

// EncodeULEB128 appends the ULEB128 encoding of v to buf and returns the
// extended slice. It exists chiefly to support the round-trip property
// tests for DecodeULEB128.
func EncodeULEB128(buf []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			buf = append(buf, b|0x80)
		} else {
			buf = append(buf, b)
			return buf
		}
	}
}

// EncodeSLEB128 appends the SLEB128 encoding of v to buf and returns the
// extended slice.
func EncodeSLEB128(buf []byte, v int64) []byte {
	more := true
	for more {
		b := byte(v & 0x7f)
		v >>= 7
		signBitSet := b&0x40 != 0
		if (v == 0 && !signBitSet) || (v == -1 && signBitSet) {
			more = false
		} else {
			b |= 0x80
		}
		buf = append(buf, b)
	}
	return buf
}
