package dwarf

import (
	"encoding/binary"

	"github.com/brisklabs/dwarfview/errs"
)

// LineFile is one entry from a line number program's file table (v2-4's
// flat array, or v5's directory-relative entry_format-described table).
type LineFile struct {
	Name         string
	DirIndex     uint64
	Mtime        uint64
	Size         uint64
	MD5          [16]byte
	HasMD5       bool
}

// LineRow is one row a line number program's state machine matrix
// produces, corresponding to one output from the line-number state
// machine's "append a row" action (DWARF5 section 6.2.5.1).
type LineRow struct {
	Address       uint64
	OpIndex       uint64
	File          int
	Line          int
	Column        int
	IsStmt        bool
	BasicBlock    bool
	EndSequence   bool
	PrologueEnd   bool
	EpilogueBegin bool
	ISA           uint64
	Discriminator uint64

	// Experimental is set for rows produced while decoding the
	// non-standard two-level line table extension some producers mark
	// with the 0xf006 magic (SPEC_FULL.md section 7); the ordinary
	// per-row fields are still populated on a best-effort basis.
	Experimental bool
}

// lineProgramHeader holds the decoded header of one .debug_line program,
// spanning both the pre-DWARF5 (flat include_directories/file_names
// arrays) and DWARF5 (entry-format-described directory/file tables)
// shapes.
type lineProgramHeader struct {
	unitLength        uint64
	offsetSize        int
	version           uint16
	addressSize       int // v5 only; 0 for earlier versions (unit's addr size is used)
	segSelectorSize   int
	headerLength      uint64
	minInstrLen       uint8
	maxOpsPerInstr    uint8
	defaultIsStmt     bool
	lineBase          int8
	lineRange         uint8
	opcodeBase        uint8
	stdOpcodeLengths  []uint8
	includeDirs       []string
	files             []LineFile
	programStart      int
	experimental      bool
}

// lineStringResolver resolves a file-table name value that decoded as an
// offset form (DW_FORM_strp/DW_FORM_line_strp) against the string
// section it points into. line.go has no section access of its own (it
// only ever sees the raw .debug_line bytes it was handed); the session
// layer, which does hold .debug_str/.debug_line_str, supplies this. nil
// leaves offset-form names unresolved, which is what a caller decoding a
// header in isolation (as this package's own tests do) gets.
type lineStringResolver func(form Form, val Value) (string, error)

// parseLineProgramHeader decodes the header starting at byte offset off
// within the .debug_line section.
func parseLineProgramHeader(debugLine []byte, off int, order binary.ByteOrder, resolveStr lineStringResolver) (*lineProgramHeader, int, error) {
	c := newCursorAt(debugLine, off, order)

	il, err := c.readInitialLength()
	if err != nil {
		return nil, 0, err
	}
	h := &lineProgramHeader{unitLength: il.length, offsetSize: il.offsetSize}
	unitEnd := c.tell() + int(il.length)
	if unitEnd > len(debugLine) {
		return nil, 0, errs.New(errs.SectionSizeOrOffsetLarge, "dwarf: line program at %#x claims length beyond section end", off)
	}

	version, err := c.readU16()
	if err != nil {
		return nil, 0, err
	}
	h.version = version
	if version == experimentalTwoLevelMagic {
		h.experimental = true
		h.version = 4 // decode the remainder using the DWARF4 header shape
	}

	if h.version >= 5 {
		addrSize, err := c.readU8()
		if err != nil {
			return nil, 0, err
		}
		segSize, err := c.readU8()
		if err != nil {
			return nil, 0, err
		}
		h.addressSize = int(addrSize)
		h.segSelectorSize = int(segSize)
	}

	headerLength, err := c.readOffset(h.offsetSize)
	if err != nil {
		return nil, 0, err
	}
	h.headerLength = headerLength
	programStart := c.tell() + int(headerLength)

	minInstrLen, err := c.readU8()
	if err != nil {
		return nil, 0, err
	}
	h.minInstrLen = minInstrLen

	if h.version >= 4 {
		maxOps, err := c.readU8()
		if err != nil {
			return nil, 0, err
		}
		h.maxOpsPerInstr = maxOps
	} else {
		h.maxOpsPerInstr = 1
	}

	defaultIsStmt, err := c.readU8()
	if err != nil {
		return nil, 0, err
	}
	h.defaultIsStmt = defaultIsStmt != 0

	lineBase, err := c.readU8()
	if err != nil {
		return nil, 0, err
	}
	h.lineBase = int8(lineBase)

	lineRange, err := c.readU8()
	if err != nil {
		return nil, 0, err
	}
	h.lineRange = lineRange

	opcodeBase, err := c.readU8()
	if err != nil {
		return nil, 0, err
	}
	h.opcodeBase = opcodeBase

	h.stdOpcodeLengths = make([]uint8, opcodeBase-1)
	for i := range h.stdOpcodeLengths {
		v, err := c.readU8()
		if err != nil {
			return nil, 0, err
		}
		h.stdOpcodeLengths[i] = v
	}

	if h.version >= 5 {
		if err := parseV5DirsAndFiles(c, h, resolveStr); err != nil {
			return nil, 0, err
		}
	} else {
		if err := parseLegacyDirsAndFilesInto(c, h); err != nil {
			return nil, 0, err
		}
	}

	h.programStart = programStart
	return h, unitEnd, nil
}

// parseV5DirsAndFiles decodes DWARF5's entry_format-described directory
// and file_name tables (DWARF5 section 6.2.4 items 14-17).
func parseV5DirsAndFiles(c *cursor, h *lineProgramHeader, resolveStr lineStringResolver) error {
	dirs, err := readEntryFormatTable(c, h, resolveStr)
	if err != nil {
		return err
	}
	for _, e := range dirs {
		h.includeDirs = append(h.includeDirs, e.Name)
	}

	files, err := readEntryFormatTable(c, h, resolveStr)
	if err != nil {
		return err
	}
	h.files = files
	return nil
}

// readEntryFormatTable decodes one DWARF5 "format description + entries"
// table: a count of (content-type-code, form) pairs, then a ULEB128 entry
// count, then that many entries each carrying one value per described
// field.
func readEntryFormatTable(c *cursor, h *lineProgramHeader, resolveStr lineStringResolver) ([]LineFile, error) {
	formatCount, err := c.readU8()
	if err != nil {
		return nil, err
	}
	type fieldDesc struct {
		contentType uint64
		form        Form
	}
	fields := make([]fieldDesc, formatCount)
	for i := range fields {
		ct, err := c.readULEB()
		if err != nil {
			return nil, err
		}
		fv, err := c.readULEB()
		if err != nil {
			return nil, err
		}
		fields[i] = fieldDesc{contentType: ct, form: Form(fv)}
	}

	count, err := c.readULEB()
	if err != nil {
		return nil, err
	}

	entries := make([]LineFile, count)
	for i := range entries {
		var e LineFile
		for _, f := range fields {
			val, err := decodeForm(c, 0, f.form, h.offsetSize, h.addressSize, 0)
			if err != nil {
				return nil, err
			}
			switch f.contentType {
			case 0x1: // DW_LNCT_path
				name, err := resolveLineFileName(f.form, val, resolveStr)
				if err != nil {
					return nil, err
				}
				e.Name = name
			case 0x2: // DW_LNCT_directory_index
				e.DirIndex = val.U
			case 0x3: // DW_LNCT_timestamp
				e.Mtime = val.U
			case 0x4: // DW_LNCT_size
				e.Size = val.U
			case 0x5: // DW_LNCT_MD5
				if len(val.Bytes) == 16 {
					copy(e.MD5[:], val.Bytes)
					e.HasMD5 = true
				}
			}
		}
		entries[i] = e
	}
	return entries, nil
}

// resolveLineFileName extracts a file-table name from a decoded Value:
// DW_FORM_string decodes inline (v.Str is already the name), and any
// offset form (DW_FORM_strp/line_strp/strx variants) is handed to
// resolveStr, which knows which section the form points into.
func resolveLineFileName(form Form, v Value, resolveStr lineStringResolver) (string, error) {
	if v.Class == ClassString && v.Str != "" {
		return v.Str, nil
	}
	if resolveStr == nil {
		return "", nil
	}
	return resolveStr(form, v)
}

// parseLegacyDirsAndFilesInto decodes the pre-DWARF5 flat
// include_directories / file_names arrays (DWARF2-4 section 6.2.4 items
// 11-12): each is a sequence of NUL-terminated strings (directories) or
// (name, dir-index, mtime, size) tuples (files), terminated by an empty
// string.
func parseLegacyDirsAndFilesInto(c *cursor, h *lineProgramHeader) error {
	for {
		s, err := c.readCString()
		if err != nil {
			return err
		}
		if s == "" {
			break
		}
		h.includeDirs = append(h.includeDirs, s)
	}
	// File index 0 is reserved/unused pre-DWARF5; insert a placeholder so
	// that 1-based indices used by the program body line up with
	// h.files[index].
	h.files = append(h.files, LineFile{Name: "<unknown>"})
	for {
		s, err := c.readCString()
		if err != nil {
			return err
		}
		if s == "" {
			break
		}
		dirIdx, err := c.readULEB()
		if err != nil {
			return err
		}
		mtime, err := c.readULEB()
		if err != nil {
			return err
		}
		size, err := c.readULEB()
		if err != nil {
			return err
		}
		h.files = append(h.files, LineFile{Name: s, DirIndex: dirIdx, Mtime: mtime, Size: size})
	}
	return nil
}

// lineStateMachine runs the line-number program's opcode interpreter
// (DWARF5 section 6.2.5) and returns the resulting row matrix.
type lineStateMachine struct {
	h     *lineProgramHeader
	order binary.ByteOrder

	address       uint64
	opIndex       uint64
	file          int
	line          int
	column        int
	isStmt        bool
	basicBlock    bool
	endSequence   bool
	prologueEnd   bool
	epilogueBegin bool
	isa           uint64
	discriminator uint64
}

func newLineStateMachine(h *lineProgramHeader, order binary.ByteOrder) *lineStateMachine {
	sm := &lineStateMachine{h: h, order: order}
	sm.reset()
	return sm
}

func (sm *lineStateMachine) reset() {
	sm.address = 0
	sm.opIndex = 0
	sm.file = 1
	sm.line = 1
	sm.column = 0
	sm.isStmt = sm.h.defaultIsStmt
	sm.basicBlock = false
	sm.endSequence = false
	sm.prologueEnd = false
	sm.epilogueBegin = false
	sm.isa = 0
	sm.discriminator = 0
}

func (sm *lineStateMachine) row() LineRow {
	return LineRow{
		Address: sm.address, OpIndex: sm.opIndex, File: sm.file, Line: sm.line, Column: sm.column,
		IsStmt: sm.isStmt, BasicBlock: sm.basicBlock, EndSequence: sm.endSequence,
		PrologueEnd: sm.prologueEnd, EpilogueBegin: sm.epilogueBegin, ISA: sm.isa,
		Discriminator: sm.discriminator, Experimental: sm.h.experimental,
	}
}

// advancePC implements the VLIW-aware address/op_index advance DWARF4+
// specifies (section 6.2.5.1): operations may pack multiple "operations"
// per instruction on VLIW architectures, tracked via max_ops_per_instr.
func (sm *lineStateMachine) advancePC(opAdvance uint64) {
	maxOps := uint64(sm.h.maxOpsPerInstr)
	if maxOps == 0 {
		maxOps = 1
	}
	sm.address += uint64(sm.h.minInstrLen) * ((sm.opIndex + opAdvance) / maxOps)
	sm.opIndex = (sm.opIndex + opAdvance) % maxOps
}

// Standard opcodes (DW_LNS_*).
const (
	lnsCopy           = 0x01
	lnsAdvancePC      = 0x02
	lnsAdvanceLine    = 0x03
	lnsSetFile        = 0x04
	lnsSetColumn      = 0x05
	lnsNegateStmt     = 0x06
	lnsSetBasicBlock  = 0x07
	lnsConstAddPC     = 0x08
	lnsFixedAdvancePC = 0x09
	lnsSetPrologueEnd = 0x0a
	lnsSetEpilogueBeg = 0x0b
	lnsSetISA         = 0x0c
)

// Extended opcodes (DW_LNE_*).
const (
	lneEndSequence      = 0x01
	lneSetAddress       = 0x02
	lneDefineFile       = 0x03 // DWARF<=4 only
	lneSetDiscriminator = 0x04
)

// runLineProgram decodes the byte-code body of a line number program
// (from h.programStart to unitEnd), appending one LineRow per DW_LNS_copy,
// special opcode, or DW_LNE_end_sequence.
func runLineProgram(data []byte, h *lineProgramHeader, unitEnd int, order binary.ByteOrder) ([]LineRow, error) {
	c := newCursorAt(data, h.programStart, order)
	sm := newLineStateMachine(h, order)
	var rows []LineRow

	for c.tell() < unitEnd {
		opcode, err := c.readU8()
		if err != nil {
			return nil, err
		}

		switch {
		case opcode == 0:
			// Extended opcode: ULEB128 length, then the sub-opcode byte
			// and its operands within that length.
			length, err := c.readULEB()
			if err != nil {
				return nil, err
			}
			if length == 0 {
				continue
			}
			instrEnd := c.tell() + int(length)
			subOpcode, err := c.readU8()
			if err != nil {
				return nil, err
			}
			switch subOpcode {
			case lneEndSequence:
				sm.endSequence = true
				rows = append(rows, sm.row())
				sm.reset()
			case lneSetAddress:
				addr, err := c.readAddr(addressSizeOrDefault(h))
				if err != nil {
					return nil, err
				}
				sm.address = addr
				sm.opIndex = 0
			case lneDefineFile:
				name, err := c.readCString()
				if err != nil {
					return nil, err
				}
				dirIdx, err := c.readULEB()
				if err != nil {
					return nil, err
				}
				mtime, err := c.readULEB()
				if err != nil {
					return nil, err
				}
				size, err := c.readULEB()
				if err != nil {
					return nil, err
				}
				h.files = append(h.files, LineFile{Name: name, DirIndex: dirIdx, Mtime: mtime, Size: size})
			case lneSetDiscriminator:
				disc, err := c.readULEB()
				if err != nil {
					return nil, err
				}
				sm.discriminator = disc
			default:
				// Unknown vendor extension: skip to instrEnd per the
				// length prefix rather than failing the whole program.
			}
			c.seek(instrEnd)

		case opcode < h.opcodeBase:
			switch opcode {
			case lnsCopy:
				rows = append(rows, sm.row())
				sm.basicBlock = false
				sm.prologueEnd = false
				sm.epilogueBegin = false
				sm.discriminator = 0
			case lnsAdvancePC:
				adv, err := c.readULEB()
				if err != nil {
					return nil, err
				}
				sm.advancePC(adv)
			case lnsAdvanceLine:
				delta, err := c.readSLEB()
				if err != nil {
					return nil, err
				}
				sm.line += int(delta)
			case lnsSetFile:
				f, err := c.readULEB()
				if err != nil {
					return nil, err
				}
				sm.file = int(f)
			case lnsSetColumn:
				col, err := c.readULEB()
				if err != nil {
					return nil, err
				}
				sm.column = int(col)
			case lnsNegateStmt:
				sm.isStmt = !sm.isStmt
			case lnsSetBasicBlock:
				sm.basicBlock = true
			case lnsConstAddPC:
				adjusted := 255 - uint64(h.opcodeBase)
				sm.advancePC(adjusted / uint64(h.lineRange))
			case lnsFixedAdvancePC:
				adv, err := c.readU16()
				if err != nil {
					return nil, err
				}
				sm.address += uint64(adv)
				sm.opIndex = 0
			case lnsSetPrologueEnd:
				sm.prologueEnd = true
			case lnsSetEpilogueBeg:
				sm.epilogueBegin = true
			case lnsSetISA:
				isa, err := c.readULEB()
				if err != nil {
					return nil, err
				}
				sm.isa = isa
			default:
				// Standard opcode beyond what this decoder recognizes by
				// name: consume operands per the header's declared
				// operand count so the stream stays in sync.
				n := int(h.stdOpcodeLengths[opcode-1])
				for i := 0; i < n; i++ {
					if _, err := c.readULEB(); err != nil {
						return nil, err
					}
				}
			}

		default:
			// Special opcode (DWARF5 section 6.2.5.1).
			adjusted := uint64(opcode) - uint64(h.opcodeBase)
			opAdvance := adjusted / uint64(h.lineRange)
			lineAdvance := int(h.lineBase) + int(adjusted%uint64(h.lineRange))
			sm.advancePC(opAdvance)
			sm.line += lineAdvance
			rows = append(rows, sm.row())
			sm.basicBlock = false
			sm.prologueEnd = false
			sm.epilogueBegin = false
			sm.discriminator = 0
		}
	}

	return rows, nil
}

// LineProgram is the decoded file table and row matrix of one compile
// unit's line number program, the public handle Session.LineProgram
// returns after driving this file's header parser and state machine.
type LineProgram struct {
	Files []LineFile
	Rows  []LineRow
}

// parseAndRunLineProgram decodes the line number program at byte offset
// off within debugLine and replays its full instruction stream,
// resolving any offset-form file names via resolveStr (nil leaves them
// unresolved). This is line.go's single entry point, called by
// Session.LineProgram; everything above is this function's machinery.
func parseAndRunLineProgram(debugLine []byte, off int, order binary.ByteOrder, resolveStr lineStringResolver) (*LineProgram, error) {
	h, unitEnd, err := parseLineProgramHeader(debugLine, off, order, resolveStr)
	if err != nil {
		return nil, err
	}
	rows, err := runLineProgram(debugLine, h, unitEnd, order)
	if err != nil {
		return nil, err
	}
	return &LineProgram{Files: h.files, Rows: rows}, nil
}

func addressSizeOrDefault(h *lineProgramHeader) int {
	if h.addressSize != 0 {
		return h.addressSize
	}
	return 8
}
