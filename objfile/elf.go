package objfile

import (
	"encoding/binary"

	"github.com/brisklabs/dwarfview/errs"
)

// ELF identification bytes (e_ident), per the generic ABI.
const (
	elfMag0    = 0x7f
	elfMag1    = 'E'
	elfMag2    = 'L'
	elfMag3    = 'F'
	elfClass32 = 1
	elfClass64 = 2
	elfData2LSB = 1
	elfData2MSB = 2
)

const (
	shtNull     = 0
	shtSymtab   = 2
	shtStrtab   = 3
	shtRel      = 9
	shtGroup    = 17
	shtRela     = 4
	shtDynsym   = 11
)

const (
	shfCompressed = 0x800
	shfGroup      = 0x200
)

const grpComdat = 0x1

// elf machine constants (e_machine), the subset spec.md names explicitly
// plus the common ones needed to pick an address width sensibly.
const (
	emNone    = 0
	em386     = 3
	emMIPS    = 8
	emSPARC32 = 2
	emPPC     = 20
	emPPC64   = 21
	emARM     = 40
	emSPARCV9 = 43
	emX8664   = 62
	emAARCH64 = 183
	emRISCV   = 243
)

func elfMachine(e uint16, is64 bool) Machine {
	switch e {
	case em386:
		return MachineX86
	case emX8664:
		return MachineX86_64
	case emARM:
		return MachineARM
	case emAARCH64:
		return MachineARM64
	case emMIPS:
		if is64 {
			return MachineMIPS64
		}
		return MachineMIPS
	case emPPC:
		return MachinePPC
	case emPPC64:
		return MachinePPC64
	case emSPARC32:
		return MachineSPARC
	case emSPARCV9:
		return MachineSPARC64
	case emRISCV:
		return MachineRISCV64
	default:
		return MachineUnknown
	}
}

// elfSectionHeader is a format-neutral view of Elf{32,64}_Shdr.
type elfSectionHeader struct {
	name      uint32
	typ       uint32
	flags     uint64
	addr      uint64
	offset    uint64
	size      uint64
	link      uint32
	info      uint32
	addralign uint64
	entsize   uint64
}

// elfObject implements ObjectReader over a parsed ELF file's in-memory
// byte slice.
type elfObject struct {
	data        []byte
	order       binary.ByteOrder
	is64        bool
	addressSize int
	machine     Machine
	relocatable bool

	shdrs   []elfSectionHeader
	infos   []SectionInfo
	symbols []Symbol

	decompressor Decompressor
}

func (o *elfObject) Size() int64            { return int64(len(o.data)) }
func (o *elfObject) ByteOrder() binary.ByteOrder { return o.order }
func (o *elfObject) AddressSize() int       { return o.addressSize }
func (o *elfObject) Machine() Machine       { return o.machine }
func (o *elfObject) SectionCount() int      { return len(o.infos) }
func (o *elfObject) SectionInfo(i int) SectionInfo { return o.infos[i] }
func (o *elfObject) Symbols() []Symbol      { return o.symbols }

// detectELF reports whether data begins with the ELF magic.
func detectELF(data []byte) bool {
	return len(data) >= 4 && data[0] == elfMag0 && data[1] == elfMag1 && data[2] == elfMag2 && data[3] == elfMag3
}

// parseELF parses an ELF object from data, returning an ObjectReader.
// Grounded on the generic ABI's Elf{32,64}_Ehdr/Shdr/Sym/Rel(a) layouts;
// struct field knowledge cross-checked against other_examples'
// xyproto-flapc elf_complete.go (a producer, but one that documents the
// same field layouts a reader needs) and DataDog-datadog-agent's
// pkg-dyninst object-elf.go (a consumer built the way spec.md's component
// 4.2 wants the primitive layer to look, minus its use of debug/dwarf).
func parseELF(data []byte, decompressor Decompressor) (*elfObject, error) {
	if len(data) < 20 {
		return nil, errs.New(errs.TruncatedHeader, "elf: header truncated")
	}

	var class, dataEnc byte = data[4], data[5]
	var order binary.ByteOrder
	switch dataEnc {
	case elfData2LSB:
		order = binary.LittleEndian
	case elfData2MSB:
		order = binary.BigEndian
	default:
		return nil, errs.New(errs.BadMagic, "elf: unrecognised data encoding %d", dataEnc)
	}

	is64 := class == elfClass64
	if !is64 && class != elfClass32 {
		return nil, errs.New(errs.BadMagic, "elf: unrecognised class %d", class)
	}

	o := &elfObject{data: data, order: order, is64: is64, decompressor: decompressor}
	if decompressor == nil {
		o.decompressor = zlibDecompressor{}
	}
	if is64 {
		o.addressSize = 8
	} else {
		o.addressSize = 4
	}

	var etype, machine uint16
	var shoff uint64
	var shentsize, shnum, shstrndx uint16

	if is64 {
		if len(data) < 64 {
			return nil, errs.New(errs.TruncatedHeader, "elf64: header truncated")
		}
		etype = order.Uint16(data[16:18])
		machine = order.Uint16(data[18:20])
		shoff = order.Uint64(data[40:48])
		shentsize = order.Uint16(data[58:60])
		shnum = order.Uint16(data[60:62])
		shstrndx = order.Uint16(data[62:64])
	} else {
		if len(data) < 52 {
			return nil, errs.New(errs.TruncatedHeader, "elf32: header truncated")
		}
		etype = order.Uint16(data[16:18])
		machine = order.Uint16(data[18:20])
		shoff = uint64(order.Uint32(data[32:36]))
		shentsize = order.Uint16(data[46:48])
		shnum = order.Uint16(data[48:50])
		shstrndx = order.Uint16(data[50:52])
	}

	o.machine = elfMachine(machine, is64)
	if o.machine == MachineMIPS64 && order == binary.LittleEndian {
		o.machine = MachineMIPS64LE
	}
	o.relocatable = etype == 1 // ET_REL

	if shoff == 0 || shnum == 0 {
		// No section table: nothing further to discover. Not itself a
		// fatal error (e.g. a stripped, statically linked binary).
		return o, nil
	}
	if shoff+uint64(shentsize)*uint64(shnum) > uint64(len(data)) {
		return nil, errs.New(errs.SectionSizeOrOffsetLarge, "elf: section table runs past end of file")
	}

	shdrs := make([]elfSectionHeader, shnum)
	for i := 0; i < int(shnum); i++ {
		b := data[shoff+uint64(i)*uint64(shentsize):]
		shdrs[i] = parseELFShdr(b, is64, order)
	}

	if int(shstrndx) >= len(shdrs) {
		return nil, errs.New(errs.SectionStringOffsetBad, "elf: invalid section header string table index")
	}
	strtab, err := sectionBytes(data, shdrs[shstrndx])
	if err != nil {
		return nil, err
	}

	o.shdrs = shdrs
	o.infos = make([]SectionInfo, len(shdrs))
	for i, sh := range shdrs {
		name, err := cString(strtab, sh.name)
		if err != nil {
			name = ""
		}
		o.infos[i] = SectionInfo{
			Name:    name,
			Size:    sh.size,
			Addr:    sh.addr,
			Link:    sh.link,
			Flags:   sh.flags,
			EntSize: sh.entsize,
		}
	}

	// Section grouping: look for SHT_GROUP records.
	comdat := make(map[int]int)
	nextGroup := GroupDWO + 1
	for _, sh := range shdrs {
		if sh.typ != shtGroup {
			continue
		}
		raw, err := sectionBytes(data, sh)
		if err != nil || len(raw) < 4 {
			continue
		}
		// Dual-endian heuristic: read the record in the declared byte order,
		// else in whichever order makes every member an in-range section
		// index; skip the record if no order does.
		var grpOrder binary.ByteOrder
		for _, ord := range []binary.ByteOrder{order, binary.LittleEndian, binary.BigEndian} {
			ok := len(raw) >= 8
			for m := raw[4:]; ok && len(m) >= 4; m = m[4:] {
				idx := int(ord.Uint32(m[:4]))
				ok = idx > 0 && idx < len(o.infos)
			}
			if ok {
				grpOrder = ord
				break
			}
		}
		if grpOrder == nil {
			continue
		}
		flags := grpOrder.Uint32(raw[0:4])
		if flags&grpComdat == 0 {
			continue
		}
		members := raw[4:]
		groupNum := nextGroup
		nextGroup++
		for len(members) >= 4 {
			idx := int(grpOrder.Uint32(members[:4]))
			members = members[4:]
			if idx >= 0 && idx < len(o.infos) {
				comdat[idx] = groupNum
			}
		}
	}
	assignGroups(o.infos, comdat)

	// Symbol table (prefer .symtab, fall back to .dynsym).
	symIdx := findSection(o.infos, ".symtab")
	if symIdx < 0 {
		symIdx = findSection(o.infos, ".dynsym")
	}
	if symIdx >= 0 {
		symSh := shdrs[symIdx]
		symData, err := sectionBytes(data, symSh)
		if err == nil && int(symSh.link) < len(shdrs) {
			strData, err := sectionBytes(data, shdrs[symSh.link])
			if err == nil {
				o.symbols = parseELFSymbols(symData, strData, is64, order)
			}
		}
	}

	return o, nil
}

func parseELFShdr(b []byte, is64 bool, order binary.ByteOrder) elfSectionHeader {
	var sh elfSectionHeader
	if is64 {
		sh.name = order.Uint32(b[0:4])
		sh.typ = order.Uint32(b[4:8])
		sh.flags = order.Uint64(b[8:16])
		sh.addr = order.Uint64(b[16:24])
		sh.offset = order.Uint64(b[24:32])
		sh.size = order.Uint64(b[32:40])
		sh.link = order.Uint32(b[40:44])
		sh.info = order.Uint32(b[44:48])
		sh.addralign = order.Uint64(b[48:56])
		sh.entsize = order.Uint64(b[56:64])
	} else {
		sh.name = order.Uint32(b[0:4])
		sh.typ = order.Uint32(b[4:8])
		sh.flags = uint64(order.Uint32(b[8:12]))
		sh.addr = uint64(order.Uint32(b[12:16]))
		sh.offset = uint64(order.Uint32(b[16:20]))
		sh.size = uint64(order.Uint32(b[20:24]))
		sh.link = order.Uint32(b[24:28])
		sh.info = order.Uint32(b[28:32])
		sh.addralign = uint64(order.Uint32(b[32:36]))
		sh.entsize = uint64(order.Uint32(b[36:40]))
	}
	return sh
}

func sectionBytes(data []byte, sh elfSectionHeader) ([]byte, error) {
	if sh.typ == 8 { // SHT_NOBITS
		return nil, nil
	}
	if sh.offset+sh.size > uint64(len(data)) {
		return nil, errs.New(errs.SectionSizeOrOffsetLarge, "elf: section data runs past end of file")
	}
	return data[sh.offset : sh.offset+sh.size], nil
}

func cString(data []byte, off uint32) (string, error) {
	if uint64(off) >= uint64(len(data)) {
		return "", errs.New(errs.SectionStringOffsetBad, "elf: string offset out of range")
	}
	end := off
	for end < uint32(len(data)) && data[end] != 0 {
		end++
	}
	return string(data[off:end]), nil
}

func findSection(infos []SectionInfo, name string) int {
	for i, s := range infos {
		if s.Name == name {
			return i
		}
	}
	return -1
}

func parseELFSymbols(symData, strData []byte, is64 bool, order binary.ByteOrder) []Symbol {
	entsize := 16
	if is64 {
		entsize = 24
	}
	var out []Symbol
	for off := 0; off+entsize <= len(symData); off += entsize {
		b := symData[off:]
		var name uint32
		var value, size uint64
		if is64 {
			name = order.Uint32(b[0:4])
			value = order.Uint64(b[8:16])
			size = order.Uint64(b[16:24])
		} else {
			name = order.Uint32(b[0:4])
			value = uint64(order.Uint32(b[4:8]))
			size = uint64(order.Uint32(b[8:12]))
		}
		n, err := cString(strData, name)
		if err != nil {
			continue
		}
		out = append(out, Symbol{Name: n, Value: value, Size: size})
	}
	return out
}

// LoadSection returns section i's bytes, decompressing SHF_COMPRESSED or
// GNU ".zdebug_*"-style sections transparently.
func (o *elfObject) LoadSection(i int) ([]byte, error) {
	if i < 0 || i >= len(o.shdrs) {
		return nil, errs.New(errs.InvalidHandle, "elf: section index %d out of range", i)
	}
	sh := o.shdrs[i]
	raw, err := sectionBytes(o.data, sh)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	if sh.flags&shfCompressed != 0 {
		out, ct, err := decompressELF(raw, o.is64, o.order, o.decompressor)
		if err != nil {
			return nil, err
		}
		if ct != compressionZlib {
			// zstd or unknown: not decompressed, and not handed to the
			// Decompressor either.
			return nil, errs.New(errs.IoError, "elf: unsupported SHF_COMPRESSED type %d", ct)
		}
		return out, nil
	}
	if len(o.infos[i].Name) > 7 && o.infos[i].Name[:7] == ".zdebug" {
		return decompressGNU(raw, o.decompressor)
	}
	return raw, nil
}

// RelocationsFor returns the relocations (REL or RELA) targeting section
// i, applying the MIPS64LE/SPARCv9 type-splitting spec.md component 4.2
// calls out explicitly.
func (o *elfObject) RelocationsFor(i int) ([]Relocation, error) {
	if !o.relocatable {
		return nil, nil
	}
	var out []Relocation
	for _, sh := range o.shdrs {
		if (sh.typ != shtRel && sh.typ != shtRela) || int(sh.info) != i {
			continue
		}
		raw, err := sectionBytes(o.data, sh)
		if err != nil {
			continue
		}
		isRela := sh.typ == shtRela
		out = append(out, o.parseRelocs(raw, isRela)...)
	}
	return out, nil
}

func (o *elfObject) parseRelocs(raw []byte, isRela bool) []Relocation {
	var out []Relocation
	entsize := 8
	if o.is64 {
		entsize = 16
	}
	if isRela {
		entsize += o.addressSize
	}
	for off := 0; off+entsize <= len(raw); off += entsize {
		b := raw[off:]
		var r_offset uint64
		var info uint64
		var addend int64
		if o.is64 {
			r_offset = o.order.Uint64(b[0:8])
			info = o.order.Uint64(b[8:16])
			if isRela {
				addend = int64(o.order.Uint64(b[16:24]))
			}
		} else {
			r_offset = uint64(o.order.Uint32(b[0:4]))
			info = uint64(o.order.Uint32(b[4:8]))
			if isRela {
				addend = int64(int32(o.order.Uint32(b[8:12])))
			}
		}

		var symbol uint32
		var typ uint32
		if o.is64 {
			symbol = uint32(info >> 32)
			typ = uint32(info)
		} else {
			symbol = uint32(info >> 8)
			typ = uint32(info & 0xff)
		}

		switch o.machine {
		case MachineMIPS64LE:
			out = append(out, splitMIPS64LERelocation(r_offset, symbol, info)...)
		case MachineSPARC64:
			out = append(out, splitSPARCv9Relocation(r_offset, symbol, typ, addend))
		default:
			out = append(out, Relocation{Offset: r_offset, Type: typ, Symbol: symbol, Addend: addend})
		}
	}
	return out
}
