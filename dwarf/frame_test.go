package dwarf

import (
	"encoding/binary"
	"testing"
)

// buildFrameSection hand-builds a minimal .debug_frame section: one CIE
// (version 3, no augmentation, code_align=1, data_align=-4,
// return_reg=14, no initial instructions) followed by one FDE covering
// [0x1000, 0x1100) that advances the location by 4 and records an offset
// rule for register 4 (factored offset 2, i.e. -8).
func buildFrameSection() []byte {
	var data []byte

	// CIE
	cieBody := []byte{
		0xff, 0xff, 0xff, 0xff, // CIE_id
		0x03,       // version
		0x00,       // augmentation ""
		0x01,       // code_alignment_factor (ULEB) = 1
		0x7c,       // data_alignment_factor (SLEB) = -4
		0x0e,       // return_address_register (ULEB) = 14
	}
	cie := make([]byte, 4)
	binary.LittleEndian.PutUint32(cie, uint32(len(cieBody)))
	cie = append(cie, cieBody...)
	data = append(data, cie...)

	// FDE
	fdeBody := []byte{
		0x00, 0x00, 0x00, 0x00, // CIE_pointer -> offset 0
		0x00, 0x10, 0x00, 0x00, // initial_location = 0x1000
		0x00, 0x01, 0x00, 0x00, // address_range = 0x100
		0x02, 0x04, // DW_CFA_advance_loc1, delta=4
		0x84, 0x02, // DW_CFA_offset(reg=4), offset(ULEB)=2
	}
	fde := make([]byte, 4)
	binary.LittleEndian.PutUint32(fde, uint32(len(fdeBody)))
	fde = append(fde, fdeBody...)
	data = append(data, fde...)

	return data
}

func TestParseFrameSectionAndRowForPC(t *testing.T) {
	data := buildFrameSection()
	fs, err := ParseFrameSection(data, binary.LittleEndian, 4)
	if err != nil {
		t.Fatalf("ParseFrameSection: %v", err)
	}

	fde, ok := fs.FDEForPC(0x1004)
	if !ok {
		t.Fatalf("FDEForPC(0x1004): not found")
	}
	if fde.StartAddress != 0x1000 || fde.Range != 0x100 {
		t.Fatalf("fde = %+v, want start=0x1000 range=0x100", fde)
	}

	row, err := fs.RowForPC(0x1004)
	if err != nil {
		t.Fatalf("RowForPC: %v", err)
	}
	if row.Location != 0x1004 {
		t.Fatalf("row.Location = %#x, want 0x1004", row.Location)
	}
	rule, ok := row.Registers[4]
	if !ok {
		t.Fatalf("no rule recorded for register 4")
	}
	if rule.Kind != RuleOffset || rule.Value != -8 {
		t.Fatalf("rule = %+v, want offset(-8)", rule)
	}
}

// buildAugmentedFrameSection builds a .debug_frame whose CIE carries an
// eh_frame-style "zR" augmentation string with one byte of augmentation
// data (an encoding byte this reader never interprets), to check that the
// mandatory alignment/return-register fields are still parsed after it.
func buildAugmentedFrameSection() []byte {
	var data []byte

	cieBody := []byte{
		0xff, 0xff, 0xff, 0xff, // CIE_id
		0x03,             // version
		'z', 'R', 0x00,   // augmentation "zR"
		0x01,             // code_alignment_factor (ULEB) = 1
		0x7c,             // data_alignment_factor (SLEB) = -4
		0x0e,             // return_address_register (ULEB) = 14
		0x01,             // augmentation_data_length (ULEB) = 1
		0x1b,             // augmentation data (DW_EH_PE encoding byte, ignored)
	}
	cie := make([]byte, 4)
	binary.LittleEndian.PutUint32(cie, uint32(len(cieBody)))
	cie = append(cie, cieBody...)
	data = append(data, cie...)

	fdeBody := []byte{
		0x00, 0x00, 0x00, 0x00, // CIE_pointer -> offset 0
		0x00, 0x20, 0x00, 0x00, // initial_location = 0x2000
		0x00, 0x01, 0x00, 0x00, // address_range = 0x100
		0x02, 0x04, // DW_CFA_advance_loc1, delta=4
		0x85, 0x03, // DW_CFA_offset(reg=5), offset(ULEB)=3
	}
	fde := make([]byte, 4)
	binary.LittleEndian.PutUint32(fde, uint32(len(fdeBody)))
	fde = append(fde, fdeBody...)
	data = append(data, fde...)

	return data
}

func TestParseFrameSectionAugmentedCIE(t *testing.T) {
	data := buildAugmentedFrameSection()
	fs, err := ParseFrameSection(data, binary.LittleEndian, 4)
	if err != nil {
		t.Fatalf("ParseFrameSection: %v", err)
	}

	cie, ok := fs.cies[Offset(0)]
	if !ok {
		t.Fatalf("no CIE recorded at offset 0")
	}
	if cie.CodeAlignment != 1 || cie.DataAlignment != -4 || cie.ReturnAddressReg != 14 {
		t.Fatalf("cie = %+v, want code=1 data=-4 retreg=14", cie)
	}

	row, err := fs.RowForPC(0x2004)
	if err != nil {
		t.Fatalf("RowForPC: %v", err)
	}
	rule, ok := row.Registers[5]
	if !ok {
		t.Fatalf("no rule recorded for register 5")
	}
	if rule.Kind != RuleOffset || rule.Value != 3*-4 {
		t.Fatalf("rule = %+v, want offset(-12)", rule)
	}
}

func TestFDEForPCOutOfRange(t *testing.T) {
	data := buildFrameSection()
	fs, err := ParseFrameSection(data, binary.LittleEndian, 4)
	if err != nil {
		t.Fatalf("ParseFrameSection: %v", err)
	}
	if _, ok := fs.FDEForPC(0x5000); ok {
		t.Fatalf("FDEForPC(0x5000) should not match any FDE")
	}
}
