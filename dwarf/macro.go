package dwarf

import "encoding/binary"

// MacroEntry is one structural entry from a .debug_macro or
// .debug_macinfo unit (supplemented feature, SPEC_FULL.md section 7:
// "minimal structural .debug_macro/.debug_macinfo iteration") — decoded
// down to opcode, numeric operands and any inline string without interpreting
// define/undef/include semantics, which is sufficient for a reader to
// skip or display macro units without needing a full preprocessor model.
type MacroEntry struct {
	Opcode   uint8
	Operands []uint64
	Str      string
}

// Legacy DW_MACINFO_* opcodes (.debug_macinfo, pre-DWARF5).
const (
	macinfoDefine    = 0x01
	macinfoUndef     = 0x02
	macinfoStartFile = 0x03
	macinfoEndFile   = 0x04
	macinfoVendorExt = 0xff
)

// ParseMacinfo decodes a .debug_macinfo unit starting at byte offset off,
// terminated by a zero opcode.
func ParseMacinfo(data []byte, off int) ([]MacroEntry, error) {
	c := newCursorAt(data, off, binary.LittleEndian)
	var entries []MacroEntry
	for {
		op, err := c.readU8()
		if err != nil {
			return nil, err
		}
		if op == 0 {
			break
		}
		var e MacroEntry
		e.Opcode = op
		switch op {
		case macinfoDefine, macinfoUndef:
			line, err := c.readULEB()
			if err != nil {
				return nil, err
			}
			s, err := c.readCString()
			if err != nil {
				return nil, err
			}
			e.Operands = []uint64{line}
			e.Str = s
		case macinfoStartFile:
			line, err := c.readULEB()
			if err != nil {
				return nil, err
			}
			fileIdx, err := c.readULEB()
			if err != nil {
				return nil, err
			}
			e.Operands = []uint64{line, fileIdx}
		case macinfoEndFile:
			// no operands
		case macinfoVendorExt:
			code, err := c.readULEB()
			if err != nil {
				return nil, err
			}
			s, err := c.readCString()
			if err != nil {
				return nil, err
			}
			e.Operands = []uint64{code}
			e.Str = s
		default:
			// Unknown vendor opcode with no declared length: stop here
			// rather than misreading the remainder of the unit.
			entries = append(entries, e)
			return entries, nil
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// DWARF5 .debug_macro header flags and DW_MACRO_* opcodes.
const (
	macroFlagOffsetSize64 = 0x01
	macroFlagDebugLineOff = 0x02
	macroFlagOpcodeTable  = 0x04
)

// ParseMacro5 decodes a DWARF5 .debug_macro unit header and its entries
// up to (but not interpreting) DW_MACRO_import, returning raw opcode and
// operand data the same way ParseMacinfo does for the legacy format.
func ParseMacro5(data []byte, off int, order binary.ByteOrder) ([]MacroEntry, error) {
	c := newCursorAt(data, off, order)

	version, err := c.readU16()
	if err != nil {
		return nil, err
	}
	_ = version

	flags, err := c.readU8()
	if err != nil {
		return nil, err
	}
	offsetSize := 4
	if flags&macroFlagOffsetSize64 != 0 {
		offsetSize = 8
	}
	if flags&macroFlagDebugLineOff != 0 {
		if _, err := c.readOffset(offsetSize); err != nil {
			return nil, err
		}
	}
	if flags&macroFlagOpcodeTable != 0 {
		count, err := c.readU8()
		if err != nil {
			return nil, err
		}
		for i := 0; i < int(count); i++ {
			if _, err := c.readULEB(); err != nil { // opcode number
				return nil, err
			}
			formCount, err := c.readULEB()
			if err != nil {
				return nil, err
			}
			for j := 0; j < int(formCount); j++ {
				if _, err := c.readULEB(); err != nil { // form
					return nil, err
				}
			}
		}
	}

	var entries []MacroEntry
	for {
		op, err := c.readU8()
		if err != nil {
			return nil, err
		}
		if op == 0 {
			break
		}
		e := MacroEntry{Opcode: op}
		switch op {
		case 0x01, 0x02: // DW_MACRO_define, DW_MACRO_undef (inline string)
			line, err := c.readULEB()
			if err != nil {
				return nil, err
			}
			s, err := c.readCString()
			if err != nil {
				return nil, err
			}
			e.Operands = []uint64{line}
			e.Str = s
		case 0x03, 0x04: // DW_MACRO_define_strp, DW_MACRO_undef_strp (.debug_str offset)
			line, err := c.readULEB()
			if err != nil {
				return nil, err
			}
			strOff, err := c.readOffset(offsetSize)
			if err != nil {
				return nil, err
			}
			e.Operands = []uint64{line, strOff}
		case 0x05: // DW_MACRO_start_file
			line, err := c.readULEB()
			if err != nil {
				return nil, err
			}
			fileIdx, err := c.readULEB()
			if err != nil {
				return nil, err
			}
			e.Operands = []uint64{line, fileIdx}
		case 0x06: // DW_MACRO_end_file
		case 0x07: // DW_MACRO_import
			target, err := c.readOffset(offsetSize)
			if err != nil {
				return nil, err
			}
			e.Operands = []uint64{target}
		case 0x08, 0x09: // DW_MACRO_define_sup, DW_MACRO_undef_sup
			line, err := c.readULEB()
			if err != nil {
				return nil, err
			}
			strOff, err := c.readOffset(offsetSize)
			if err != nil {
				return nil, err
			}
			e.Operands = []uint64{line, strOff}
		case 0x0a: // DW_MACRO_import_sup
			target, err := c.readOffset(offsetSize)
			if err != nil {
				return nil, err
			}
			e.Operands = []uint64{target}
		case 0x0b, 0x0c: // DW_MACRO_define_strx, DW_MACRO_undef_strx
			line, err := c.readULEB()
			if err != nil {
				return nil, err
			}
			idx, err := c.readULEB()
			if err != nil {
				return nil, err
			}
			e.Operands = []uint64{line, idx}
		default:
			entries = append(entries, e)
			return entries, nil
		}
		entries = append(entries, e)
	}
	return entries, nil
}
