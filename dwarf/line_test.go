package dwarf

import (
	"encoding/binary"
	"testing"
)

// buildLineProgram hand-builds a minimal DWARF4 .debug_line program: no
// include directories, one file ("test.c"), and a body that sets the
// address, advances the line by 4 via a special opcode, then ends the
// sequence.
func buildLineProgram(t *testing.T) []byte {
	t.Helper()
	order := binary.LittleEndian

	var header []byte
	header = append(header, 1)             // minimum_instruction_length
	header = append(header, 1)              // maximum_operations_per_instruction (v4+)
	header = append(header, 1)              // default_is_stmt
	header = append(header, 0xfb)           // line_base = -5
	header = append(header, 14)             // line_range
	header = append(header, 13)             // opcode_base
	header = append(header, 0, 1, 1, 1, 1, 0, 0, 0, 1, 0, 0, 1) // standard_opcode_lengths[12]
	header = append(header, 0)              // include_directories terminator (none)
	header = append(header, []byte("test.c\x00")...)
	header = appendULEB(header, 0) // dir index
	header = appendULEB(header, 0) // mtime
	header = appendULEB(header, 0) // size
	header = append(header, 0)     // file_names terminator

	var program []byte
	// DW_LNE_set_address 0x2000 (pre-DWARF5 headers carry no
	// address_size field, so the program body defaults to an 8-byte
	// address per addressSizeOrDefault).
	program = append(program, 0x00, 9, 0x02)
	addrBuf := make([]byte, 8)
	order.PutUint64(addrBuf, 0x2000)
	program = append(program, addrBuf...)
	// special opcode: advance line by 4, address by 0.
	// adjusted = opcode - opcode_base; line_advance = line_base +
	// (adjusted % line_range); choose adjusted=9 -> line_advance = -5+9=4,
	// op_advance = 9/14 = 0.
	program = append(program, byte(13+9))
	// DW_LNE_end_sequence
	program = append(program, 0x00, 1, 0x01)

	headerLenBuf := make([]byte, 4)
	order.PutUint32(headerLenBuf, uint32(len(header)))

	var afterVersion []byte
	afterVersion = append(afterVersion, headerLenBuf...)
	afterVersion = append(afterVersion, header...)
	afterVersion = append(afterVersion, program...)

	var unit []byte
	verBuf := make([]byte, 2)
	order.PutUint16(verBuf, 4)
	unit = append(unit, verBuf...)
	unit = append(unit, afterVersion...)

	lengthBuf := make([]byte, 4)
	order.PutUint32(lengthBuf, uint32(len(unit)))

	return append(lengthBuf, unit...)
}

func TestParseLineProgramHeaderAndRun(t *testing.T) {
	data := buildLineProgram(t)
	h, unitEnd, err := parseLineProgramHeader(data, 0, binary.LittleEndian, nil)
	if err != nil {
		t.Fatalf("parseLineProgramHeader: %v", err)
	}
	if h.version != 4 {
		t.Fatalf("version = %d, want 4", h.version)
	}
	if len(h.files) != 2 {
		t.Fatalf("len(files) = %d, want 2 (placeholder + test.c)", len(h.files))
	}
	if h.files[1].Name != "test.c" {
		t.Fatalf("files[1].Name = %q, want test.c", h.files[1].Name)
	}

	rows, err := runLineProgram(data, h, unitEnd, binary.LittleEndian)
	if err != nil {
		t.Fatalf("runLineProgram: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	if rows[0].Address != 0x2000 || rows[0].Line != 5 {
		t.Fatalf("rows[0] = %+v, want address=0x2000 line=5", rows[0])
	}
	if !rows[1].EndSequence {
		t.Fatalf("rows[1].EndSequence = false, want true")
	}
}

func TestParseAndRunLineProgram(t *testing.T) {
	data := buildLineProgram(t)
	lp, err := parseAndRunLineProgram(data, 0, binary.LittleEndian, nil)
	if err != nil {
		t.Fatalf("parseAndRunLineProgram: %v", err)
	}
	if len(lp.Files) != 2 || lp.Files[1].Name != "test.c" {
		t.Fatalf("Files = %+v, want [_, test.c]", lp.Files)
	}
	if len(lp.Rows) != 2 || lp.Rows[0].Address != 0x2000 || !lp.Rows[1].EndSequence {
		t.Fatalf("Rows = %+v, want [addr=0x2000, end_sequence]", lp.Rows)
	}
}

func TestParseLineProgramHeaderTwoLevelMagic(t *testing.T) {
	data := buildLineProgram(t)
	// Overwrite the version field (immediately after the 4-byte unit
	// length) with the experimental two-level magic.
	binary.LittleEndian.PutUint16(data[4:6], experimentalTwoLevelMagic)
	h, _, err := parseLineProgramHeader(data, 0, binary.LittleEndian, nil)
	if err != nil {
		t.Fatalf("parseLineProgramHeader: %v", err)
	}
	if !h.experimental {
		t.Fatalf("experimental = false, want true")
	}
	if h.version != 4 {
		t.Fatalf("version = %d, want 4 (decoded as DWARF4 shape)", h.version)
	}
}
