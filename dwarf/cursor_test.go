package dwarf

import (
	"encoding/binary"
	"testing"
)

func TestCursorReadsAdvanceOnlyOnSuccess(t *testing.T) {
	c := newCursor([]byte{0x01, 0x02, 0x03, 0x04}, binary.LittleEndian)
	if _, err := c.readU32(); err != nil {
		t.Fatalf("readU32: %v", err)
	}
	if c.remaining() != 0 {
		t.Fatalf("remaining() = %d, want 0", c.remaining())
	}
	if _, err := c.readU8(); err == nil {
		t.Fatalf("expected error reading past the end")
	}
	if c.tell() != 4 {
		t.Fatalf("tell() = %d, want 4 (failed read must not advance)", c.tell())
	}
}

func TestReadCStringUnterminated(t *testing.T) {
	c := newCursor([]byte{'a', 'b', 'c'}, binary.LittleEndian)
	if _, err := c.readCString(); err == nil {
		t.Fatalf("expected an error for an unterminated string")
	}
}

func TestReadCStringTerminated(t *testing.T) {
	c := newCursor([]byte{'h', 'i', 0x00, 'x'}, binary.LittleEndian)
	s, err := c.readCString()
	if err != nil {
		t.Fatalf("readCString: %v", err)
	}
	if s != "hi" {
		t.Fatalf("readCString() = %q, want %q", s, "hi")
	}
	if c.tell() != 3 {
		t.Fatalf("tell() = %d, want 3", c.tell())
	}
}

func TestReadInitialLength32Bit(t *testing.T) {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, 0x100)
	c := newCursor(buf, binary.LittleEndian)
	il, err := c.readInitialLength()
	if err != nil {
		t.Fatalf("readInitialLength: %v", err)
	}
	if il.offsetSize != 4 || il.length != 0x100 {
		t.Fatalf("got %+v, want offsetSize=4 length=0x100", il)
	}
}

func TestReadInitialLength64Bit(t *testing.T) {
	buf := make([]byte, 12)
	binary.LittleEndian.PutUint32(buf[0:4], 0xffffffff)
	binary.LittleEndian.PutUint64(buf[4:12], 0x123456789)
	c := newCursor(buf, binary.LittleEndian)
	il, err := c.readInitialLength()
	if err != nil {
		t.Fatalf("readInitialLength: %v", err)
	}
	if il.offsetSize != 8 || il.length != 0x123456789 {
		t.Fatalf("got %+v, want offsetSize=8 length=0x123456789", il)
	}
}

func TestReadInitialLengthReservedValueRejected(t *testing.T) {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, 0xfffffff0)
	c := newCursor(buf, binary.LittleEndian)
	if _, err := c.readInitialLength(); err == nil {
		t.Fatalf("expected an error for a reserved initial-length value")
	}
}

func TestReadULEBAndSLEB(t *testing.T) {
	// 624485 ULEB128 per the DWARF spec's worked example: 0xe5 0x8e 0x26
	c := newCursor([]byte{0xe5, 0x8e, 0x26}, binary.LittleEndian)
	v, err := c.readULEB()
	if err != nil {
		t.Fatalf("readULEB: %v", err)
	}
	if v != 624485 {
		t.Fatalf("readULEB() = %d, want 624485", v)
	}

	// -624485 SLEB128: 0x9b 0xf1 0x59
	c2 := newCursor([]byte{0x9b, 0xf1, 0x59}, binary.LittleEndian)
	sv, err := c2.readSLEB()
	if err != nil {
		t.Fatalf("readSLEB: %v", err)
	}
	if sv != -624485 {
		t.Fatalf("readSLEB() = %d, want -624485", sv)
	}
}
