package dwarf

import (
	"encoding/binary"
	"testing"
)

func TestParseRanges2to4(t *testing.T) {
	order := binary.LittleEndian
	var data []byte
	put32 := func(v uint32) {
		b := make([]byte, 4)
		order.PutUint32(b, v)
		data = append(data, b...)
	}

	put32(0xffffffff) // base-address-selection
	put32(0x4000)
	put32(0x10)
	put32(0x20)
	put32(0)
	put32(0)

	entries, err := ParseRanges2to4(data, 0, order, 4, 0)
	if err != nil {
		t.Fatalf("ParseRanges2to4: %v", err)
	}
	if len(entries) != 1 || entries[0].Start != 0x4010 || entries[0].End != 0x4020 {
		t.Fatalf("entries = %+v, want one [0x4010,0x4020)", entries)
	}
}

func TestParseRnglist5OffsetPairAndStartLength(t *testing.T) {
	var data []byte
	data = append(data, rleOffsetPair)
	data = appendULEB(data, 0x10)
	data = appendULEB(data, 0x20)

	data = append(data, rleStartLength)
	startBuf := make([]byte, 8)
	binary.LittleEndian.PutUint64(startBuf, 0x5000)
	data = append(data, startBuf...)
	data = appendULEB(data, 0x100)

	data = append(data, rleEndOfList)

	entries, err := ParseRnglist5(data, 0, binary.LittleEndian, 8, 0x1000, nil)
	if err != nil {
		t.Fatalf("ParseRnglist5: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}
	if entries[0].Start != 0x1010 || entries[0].End != 0x1020 {
		t.Fatalf("entries[0] = %+v, want start=0x1010 end=0x1020", entries[0])
	}
	if entries[1].Start != 0x5000 || entries[1].End != 0x5100 {
		t.Fatalf("entries[1] = %+v, want start=0x5000 end=0x5100", entries[1])
	}
}
