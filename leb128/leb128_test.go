package leb128_test

import (
	"testing"

	"github.com/brisklabs/dwarfview/leb128"
)

func TestDecodeULEB128(t *testing.T) {
	cases := []struct {
		encoded []byte
		value   uint64
		n       int
	}{
		{[]byte{0x02}, 2, 1},
		{[]byte{0x7f}, 127, 1},
		{[]byte{0x80, 0x01}, 128, 2},
		{[]byte{0x81, 0x01}, 129, 2},
		{[]byte{0x82, 0x01}, 130, 2},
		{[]byte{0xb9, 0x64}, 12857, 2},
	}
	for _, c := range cases {
		v, n := leb128.DecodeULEB128(c.encoded)
		if v != c.value || n != c.n {
			t.Errorf("DecodeULEB128(% x) = %d, %d; want %d, %d", c.encoded, v, n, c.value, c.n)
		}
	}
}

func TestDecodeSLEB128(t *testing.T) {
	cases := []struct {
		encoded []byte
		value   int64
		n       int
	}{
		{[]byte{0x02}, 2, 1},
		{[]byte{0x7e}, -2, 1},
		{[]byte{0xff, 0x00}, 127, 2},
		{[]byte{0x81, 0x7f}, -127, 2},
		{[]byte{0x80, 0x01}, 128, 2},
		{[]byte{0x80, 0x7f}, -128, 2},
	}
	for _, c := range cases {
		v, n := leb128.DecodeSLEB128(c.encoded)
		if v != c.value || n != c.n {
			t.Errorf("DecodeSLEB128(% x) = %d, %d; want %d, %d", c.encoded, v, n, c.value, c.n)
		}
	}
}

func TestRoundTripULEB128(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 129, 1 << 20, 1<<63 - 1, 1 << 63, ^uint64(0)}
	for _, v := range values {
		enc := leb128.EncodeULEB128(nil, v)
		got, n := leb128.DecodeULEB128(enc)
		if got != v || n != len(enc) {
			t.Errorf("round trip %d: got %d (consumed %d of %d bytes)", v, got, n, len(enc))
		}
	}
}

func TestRoundTripSLEB128(t *testing.T) {
	values := []int64{0, 1, -1, 63, -64, 64, -65, 1 << 40, -(1 << 40)}
	for _, v := range values {
		enc := leb128.EncodeSLEB128(nil, v)
		got, n := leb128.DecodeSLEB128(enc)
		if got != v || n != len(enc) {
			t.Errorf("round trip %d: got %d (consumed %d of %d bytes)", v, got, n, len(enc))
		}
	}
}

func TestOverlongULEB128(t *testing.T) {
	encoded := make([]byte, 11)
	for i := range encoded {
		encoded[i] = 0x80
	}
	encoded[len(encoded)-1] = 0x01
	if _, _, err := leb128.DecodeULEB128Checked(encoded); err != leb128.ErrOverlong {
		t.Errorf("expected ErrOverlong, got %v", err)
	}
}

func TestTruncatedULEB128(t *testing.T) {
	if _, _, err := leb128.DecodeULEB128Checked([]byte{0x80, 0x80}); err == nil {
		t.Errorf("expected truncation error")
	}
}
