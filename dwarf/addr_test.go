package dwarf

import (
	"encoding/binary"
	"testing"
)

func TestAddrTableResolvesIndex(t *testing.T) {
	order := binary.LittleEndian
	var data []byte
	b := make([]byte, 8)
	order.PutUint64(b, 0x401000)
	data = append(data, b...)
	order.PutUint64(b, 0x402000)
	data = append(data, b...)

	table := NewAddrTable(data, 8, order, 0, true)
	addr, available, err := table.AddrAt(1)
	if err != nil {
		t.Fatalf("AddrAt: %v", err)
	}
	if !available {
		t.Fatalf("available = false, want true")
	}
	if addr != 0x402000 {
		t.Fatalf("addr = %#x, want 0x402000", addr)
	}
}

func TestAddrTableMissingBase(t *testing.T) {
	table := NewAddrTable(nil, 8, binary.LittleEndian, 0, false)
	addr, available, err := table.AddrAt(7)
	if err != nil {
		t.Fatalf("AddrAt should soft-fail, not error, with hasBase=false: %v", err)
	}
	if available {
		t.Fatalf("available = true, want false with hasBase=false")
	}
	if addr != 7 {
		t.Fatalf("addr = %d, want the raw index (7) echoed back unresolved", addr)
	}
}

func TestAddrTableOutOfRange(t *testing.T) {
	table := NewAddrTable(make([]byte, 8), 8, binary.LittleEndian, 0, true)
	if _, _, err := table.AddrAt(5); err == nil {
		t.Fatalf("expected an out-of-range error")
	}
}

func TestStrOffsetsTableResolvesIndex(t *testing.T) {
	order := binary.LittleEndian
	debugStr := append([]byte("abc\x00hello\x00"))

	var offsets []byte
	b := make([]byte, 4)
	order.PutUint32(b, 0) // index 0 -> "abc"
	offsets = append(offsets, b...)
	order.PutUint32(b, 4) // index 1 -> "hello"
	offsets = append(offsets, b...)

	table := NewStrOffsetsTable(offsets, debugStr, 4, order, 0, true)
	s, available, err := table.StrAt(1)
	if err != nil {
		t.Fatalf("StrAt: %v", err)
	}
	if !available {
		t.Fatalf("available = false, want true")
	}
	if s != "hello" {
		t.Fatalf("s = %q, want hello", s)
	}
}

func TestStrOffsetsTableMissingBase(t *testing.T) {
	table := NewStrOffsetsTable(nil, nil, 4, binary.LittleEndian, 0, false)
	s, available, err := table.StrAt(3)
	if err != nil {
		t.Fatalf("StrAt should soft-fail, not error, with hasBase=false: %v", err)
	}
	if available {
		t.Fatalf("available = true, want false with hasBase=false")
	}
	if s != "" {
		t.Fatalf("s = %q, want empty string when unavailable", s)
	}
}

func TestStrOffsetsTableFallbackHeuristic(t *testing.T) {
	order := binary.LittleEndian
	debugStr := []byte("x\x00")

	var data []byte
	lenBuf := make([]byte, 4)
	order.PutUint32(lenBuf, 8) // unit_length = len(data)-4 after header
	data = append(data, lenBuf...)
	verBuf := make([]byte, 2)
	order.PutUint16(verBuf, 5)
	data = append(data, verBuf...)
	data = append(data, 0, 0) // padding
	offBuf := make([]byte, 4)
	order.PutUint32(offBuf, 0)
	data = append(data, offBuf...)

	table := NewStrOffsetsTable(data, debugStr, 4, order, 0, false)
	if !table.hasBase {
		t.Fatalf("hasBase = false, want the DWARF5-header heuristic to kick in")
	}
	s, available, err := table.StrAt(0)
	if err != nil {
		t.Fatalf("StrAt: %v", err)
	}
	if !available {
		t.Fatalf("available = false, want true")
	}
	if s != "x" {
		t.Fatalf("s = %q, want x", s)
	}
}
