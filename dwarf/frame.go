package dwarf

import (
	"encoding/binary"

	"github.com/brisklabs/dwarfview/errs"
	"github.com/brisklabs/dwarfview/leb128"
)

// CIE is a Common Information Entry from .debug_frame: the alignment
// factors and initial register rules shared by every FDE that cites it,
// per DWARF5 section 6.4.1. Unlike the teacher's ARM-coprocessor-bound
// frameSectionCIE (which hardcodes a 15-register array and reads live
// values from a running coprocessor), this CIE is architecture-neutral:
// it produces RegisterRules that the caller resolves against whatever
// register file it has, rather than a fixed array.
type CIE struct {
	Offset           Offset
	Version          uint8
	Augmentation     string
	CodeAlignment    uint64
	DataAlignment    int64
	ReturnAddressReg uint64
	Instructions     []byte
}

// FDE is a Frame Description Entry: the address range it covers and the
// byte-code that, replayed from the owning CIE's initial instructions,
// produces the call frame table for that range.
type FDE struct {
	CIE          *CIE
	StartAddress uint64
	Range        uint64
	Instructions []byte
}

func (f *FDE) Contains(pc uint64) bool {
	return pc >= f.StartAddress && pc < f.StartAddress+f.Range
}

// FrameSection holds every CIE and FDE parsed from one .debug_frame
// section, grounded on the teacher's dwarf_frame.go newFrameSection but
// generalized to 32- and 64-bit DWARF format and to an address size that
// isn't hardcoded to uint32.
type FrameSection struct {
	cies        map[Offset]*CIE
	fdes        []*FDE
	order       binary.ByteOrder
	addressSize int
}

// ParseFrameSection decodes a .debug_frame section. addressSize is the
// target's address width (4 or 8), used to size FDE initial-location and
// range fields.
func ParseFrameSection(data []byte, order binary.ByteOrder, addressSize int) (*FrameSection, error) {
	fs := &FrameSection{cies: make(map[Offset]*CIE), order: order, addressSize: addressSize}

	off := 0
	for off < len(data) {
		entryOffset := off
		c := newCursorAt(data, off, order)

		il, err := c.readInitialLength()
		if err != nil {
			return nil, err
		}
		blockEnd := c.tell() + int(il.length)
		if blockEnd > len(data) {
			return nil, errs.New(errs.SectionSizeOrOffsetLarge, "dwarf: frame entry at %#x exceeds section bound", entryOffset)
		}

		cieIDOff := c.tell()
		cieID, err := c.readOffset(il.offsetSize)
		if err != nil {
			return nil, err
		}
		isCIE := (il.offsetSize == 4 && cieID == 0xffffffff) || (il.offsetSize == 8 && cieID == 0xffffffffffffffff)

		if isCIE {
			cie := &CIE{Offset: Offset(entryOffset)}
			version, err := c.readU8()
			if err != nil {
				return nil, err
			}
			cie.Version = version

			aug, err := c.readCString()
			if err != nil {
				return nil, err
			}
			cie.Augmentation = aug

			if version >= 4 {
				if _, err := c.readU8(); err != nil { // address_size
					return nil, err
				}
				if _, err := c.readU8(); err != nil { // segment_selector_size
					return nil, err
				}
			}

			codeAlign, err := c.readULEB()
			if err != nil {
				return nil, err
			}
			dataAlign, err := c.readSLEB()
			if err != nil {
				return nil, err
			}
			retReg, err := c.readULEB()
			if err != nil {
				return nil, err
			}
			cie.CodeAlignment = codeAlign
			cie.DataAlignment = dataAlign
			cie.ReturnAddressReg = retReg

			if len(aug) > 0 && aug[0] == 'z' {
				// "z*"-style augmentation (eh_frame's zR/zPLR/...) prefixes an
				// augmentation data length; skip that many bytes rather than
				// interpret the augmentation-specific payload.
				augLen, err := c.readULEB()
				if err != nil {
					return nil, err
				}
				if _, err := c.readBytes(int(augLen)); err != nil {
					return nil, err
				}
			}

			if c.tell() < blockEnd {
				instr, err := c.readBytes(blockEnd - c.tell())
				if err != nil {
					return nil, err
				}
				cie.Instructions = instr
			}

			fs.cies[cie.Offset] = cie
		} else {
			fde := &FDE{}
			var cieOffset Offset
			if il.offsetSize == 4 {
				cieOffset = Offset(cieID)
			} else {
				cieOffset = Offset(cieID)
			}
			cie, ok := fs.cies[cieOffset]
			if !ok {
				return nil, errs.New(errs.InvalidHandle, "dwarf: FDE at %#x refers to missing CIE at %#x", entryOffset, cieOffset)
			}
			fde.CIE = cie

			start, err := c.readAddr(addressSize)
			if err != nil {
				return nil, err
			}
			rangeLen, err := c.readAddr(addressSize)
			if err != nil {
				return nil, err
			}
			fde.StartAddress = start
			fde.Range = rangeLen

			if c.tell() < blockEnd {
				instr, err := c.readBytes(blockEnd - c.tell())
				if err != nil {
					return nil, err
				}
				fde.Instructions = instr
			}
			fs.fdes = append(fs.fdes, fde)
		}

		_ = cieIDOff
		off = blockEnd
	}

	return fs, nil
}

// FDEForPC returns the FDE covering pc, or false if no FDE covers it —
// the condition the teacher's framebaseForAddr treats as the noFDE
// sentinel error.
func (fs *FrameSection) FDEForPC(pc uint64) (*FDE, bool) {
	for _, f := range fs.fdes {
		if f.Contains(pc) {
			return f, true
		}
	}
	return nil, false
}

// RowForPC replays an FDE's CIE initial instructions followed by the
// FDE's own instructions up to pc, returning the resulting call frame
// table row — the generalized form of the teacher's framebaseForAddr,
// which stopped at the same point but then immediately read a live ARM
// coprocessor register; here the caller does that final step with
// whatever register file it has.
func (fs *FrameSection) RowForPC(pc uint64) (Row, error) {
	fde, ok := fs.FDEForPC(pc)
	if !ok {
		return Row{}, errs.New(errs.InvalidHandle, "dwarf: no FDE covers pc %#x", pc)
	}

	interp := newFrameInterpreter(fde.CIE, fs.order)
	if err := interp.run(fde.CIE.Instructions, ^uint64(0)); err != nil {
		return Row{}, err
	}
	interp.current.Location = fde.StartAddress
	interp.commitInitial()

	if err := interp.run(fde.Instructions, pc); err != nil {
		return Row{}, err
	}
	return interp.current, nil
}

// leb128Checked wraps the package-level leb128 helpers for call frame
// instructions that need raw (non-cursor) byte-slice decoding, matching
// how the teacher's decodeFrameInstruction indexes directly into the
// instruction byte slice rather than using a cursor.
func leb128Checked(b []byte) (uint64, int) {
	v, n := leb128.DecodeULEB128(b)
	return v, n
}
