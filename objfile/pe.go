package objfile

import (
	"encoding/binary"

	"github.com/brisklabs/dwarfview/errs"
)

const (
	peDosMagic   = 0x5a4d // "MZ"
	peSignature  = 0x00004550 // "PE\x00\x00"
	imageFileMachineI386  = 0x14c
	imageFileMachineAMD64 = 0x8664
	imageFileMachineARM64 = 0xaa64
	imageScnMemDiscardable = 0x02000000
)

// peObject implements ObjectReader over a parsed PE/COFF file. PE always
// stores multi-byte fields little-endian.
type peObject struct {
	data        []byte
	addressSize int
	machine     Machine

	infos   []SectionInfo
	offsets []uint32
	sizes   []uint32
	symbols []Symbol

	decompressor Decompressor
}

func (o *peObject) Size() int64                  { return int64(len(o.data)) }
func (o *peObject) ByteOrder() binary.ByteOrder   { return binary.LittleEndian }
func (o *peObject) AddressSize() int              { return o.addressSize }
func (o *peObject) Machine() Machine              { return o.machine }
func (o *peObject) SectionCount() int             { return len(o.infos) }
func (o *peObject) SectionInfo(i int) SectionInfo { return o.infos[i] }
func (o *peObject) Symbols() []Symbol             { return o.symbols }

// RelocationsFor: PE object files (.obj, COFF) carry relocations, but PE
// images intended to carry DWARF (MinGW-produced executables) are almost
// always ET_EXEC-equivalent (not relocatable) by the time DWARF is read
// from them; base relocations (.reloc) retarget absolute addresses for
// ASLR, not DWARF section contents, so they are not applied here.
func (o *peObject) RelocationsFor(i int) ([]Relocation, error) { return nil, nil }

func detectPE(data []byte) bool {
	if len(data) < 0x40 {
		return false
	}
	if binary.LittleEndian.Uint16(data[0:2]) != peDosMagic {
		return false
	}
	peOff := binary.LittleEndian.Uint32(data[0x3c:0x40])
	if uint64(peOff)+4 > uint64(len(data)) {
		return false
	}
	return binary.LittleEndian.Uint32(data[peOff:peOff+4]) == peSignature
}

func parsePE(data []byte, decompressor Decompressor) (*peObject, error) {
	if !detectPE(data) {
		return nil, errs.New(errs.BadMagic, "pe: not a PE/COFF file")
	}
	peOff := binary.LittleEndian.Uint32(data[0x3c:0x40])
	coffOff := peOff + 4
	if uint64(coffOff)+20 > uint64(len(data)) {
		return nil, errs.New(errs.TruncatedHeader, "pe: COFF header truncated")
	}

	o := &peObject{data: data, decompressor: decompressor}
	if decompressor == nil {
		o.decompressor = zlibDecompressor{}
	}

	machine := binary.LittleEndian.Uint16(data[coffOff : coffOff+2])
	o.machine = peMachine(machine)
	switch machine {
	case imageFileMachineAMD64, imageFileMachineARM64:
		o.addressSize = 8
	default:
		o.addressSize = 4
	}

	nsections := binary.LittleEndian.Uint16(data[coffOff+2 : coffOff+4])
	symTabOff := binary.LittleEndian.Uint32(data[coffOff+8 : coffOff+12])
	numSyms := binary.LittleEndian.Uint32(data[coffOff+12 : coffOff+16])
	optHeaderSize := binary.LittleEndian.Uint16(data[coffOff+16 : coffOff+18])

	sectionTableOff := coffOff + 20 + uint32(optHeaderSize)
	const sectionHeaderSize = 40

	// COFF string table follows the symbol table; used to resolve
	// section and symbol names longer than 8 bytes ("/offset" form).
	var strtab []byte
	if numSyms > 0 {
		strOff := symTabOff + numSyms*18
		if uint64(strOff)+4 <= uint64(len(data)) {
			strSize := binary.LittleEndian.Uint32(data[strOff : strOff+4])
			if uint64(strOff)+uint64(strSize) <= uint64(len(data)) {
				strtab = data[strOff : strOff+strSize]
			}
		}
	}

	for i := uint16(0); i < nsections; i++ {
		off := sectionTableOff + uint32(i)*sectionHeaderSize
		if uint64(off)+sectionHeaderSize > uint64(len(data)) {
			break
		}
		b := data[off:]
		name := peSectionName(b[0:8], strtab)
		size := binary.LittleEndian.Uint32(b[8:12])
		rawAddr := binary.LittleEndian.Uint32(b[12:16])
		rawSize := binary.LittleEndian.Uint32(b[16:20])
		rawDataPtr := binary.LittleEndian.Uint32(b[20:24])
		flags := binary.LittleEndian.Uint32(b[36:40])

		secSize := rawSize
		if size != 0 && size < secSize {
			secSize = size
		}

		o.infos = append(o.infos, SectionInfo{Name: name, Size: uint64(secSize), Addr: uint64(rawAddr), Flags: uint64(flags)})
		o.offsets = append(o.offsets, rawDataPtr)
		o.sizes = append(o.sizes, secSize)
	}

	if numSyms > 0 && strtab != nil {
		o.symbols = parseCOFFSymbols(data, symTabOff, numSyms, strtab)
	}

	assignGroups(o.infos, nil)
	return o, nil
}

func peMachine(m uint16) Machine {
	switch m {
	case imageFileMachineI386:
		return MachineX86
	case imageFileMachineAMD64:
		return MachineX86_64
	case imageFileMachineARM64:
		return MachineARM64
	default:
		return MachineUnknown
	}
}

func peSectionName(raw []byte, strtab []byte) string {
	if raw[0] == '/' {
		// long name: "/<decimal offset into string table>"
		var off uint32
		for _, c := range raw[1:] {
			if c < '0' || c > '9' {
				break
			}
			off = off*10 + uint32(c-'0')
		}
		name, err := cString(strtab, off)
		if err == nil {
			return name
		}
	}
	return cStringFixed(raw)
}

func parseCOFFSymbols(data []byte, symTabOff uint32, numSyms uint32, strtab []byte) []Symbol {
	const entsize = 18
	var out []Symbol
	for i := uint32(0); i < numSyms; i++ {
		off := symTabOff + i*entsize
		if uint64(off)+entsize > uint64(len(data)) {
			break
		}
		b := data[off:]
		var name string
		if binary.LittleEndian.Uint32(b[0:4]) == 0 {
			strOff := binary.LittleEndian.Uint32(b[4:8])
			name, _ = cString(strtab, strOff)
		} else {
			name = cStringFixed(b[0:8])
		}
		value := binary.LittleEndian.Uint32(b[8:12])
		numAux := b[17]

		out = append(out, Symbol{Name: name, Value: uint64(value)})
		i += uint32(numAux)
	}
	return out
}

// LoadSection returns section i's bytes. PE object files carry no
// dedicated compressed-section convention of their own; MinGW/Clang
// targeting PE instead emit the GNU ".zdebug_*"/SHF_COMPRESSED-style
// convention borrowed from ELF when compression is requested, so the same
// "ZLIB" magic check applies.
func (o *peObject) LoadSection(i int) ([]byte, error) {
	if i < 0 || i >= len(o.infos) {
		return nil, errs.New(errs.InvalidHandle, "pe: section index %d out of range", i)
	}
	offset := o.offsets[i]
	size := o.sizes[i]
	if uint64(offset)+uint64(size) > uint64(len(o.data)) {
		return nil, errs.New(errs.SectionSizeOrOffsetLarge, "pe: section data runs past end of file")
	}
	raw := o.data[offset : uint64(offset)+uint64(size)]
	if len(raw) >= 12 && string(raw[:4]) == "ZLIB" {
		return decompressGNU(raw, o.decompressor)
	}
	return raw, nil
}
