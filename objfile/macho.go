package objfile

import (
	"encoding/binary"

	"github.com/brisklabs/dwarfview/errs"
)

// Mach-O magic numbers (mach-o/loader.h).
const (
	machoMagic32    = 0xfeedface
	machoMagic64    = 0xfeedfacf
	machoCigam32    = 0xcefaedfe
	machoCigam64    = 0xcffaedfe
)

const (
	lcSegment    = 0x1
	lcSegment64  = 0x19
	lcSymtab     = 0x2
)

const (
	sectionAttrLocReloc = 0x100 // S_ATTR_LOC_RELOC marker (informational)
)

// machoObject implements ObjectReader over a parsed Mach-O file.
type machoObject struct {
	data        []byte
	order       binary.ByteOrder
	is64        bool
	addressSize int
	machine     Machine

	infos   []SectionInfo
	offsets []uint64 // file offset of each section's data, parallel to infos
	symbols []Symbol

	decompressor Decompressor
}

func (o *machoObject) Size() int64                { return int64(len(o.data)) }
func (o *machoObject) ByteOrder() binary.ByteOrder { return o.order }
func (o *machoObject) AddressSize() int            { return o.addressSize }
func (o *machoObject) Machine() Machine            { return o.machine }
func (o *machoObject) SectionCount() int           { return len(o.infos) }
func (o *machoObject) SectionInfo(i int) SectionInfo { return o.infos[i] }
func (o *machoObject) Symbols() []Symbol           { return o.symbols }

// RelocationsFor is a no-op for Mach-O: spec.md's relocation-application
// contract targets relocatable ELF objects (.o files produced for a
// linker); Mach-O executables/dSYMs carry resolved addresses already, and
// Mach-O object files' relocations are local to the section's own
// instructions, not DWARF sections, in every producer this library has
// been checked against.
func (o *machoObject) RelocationsFor(i int) ([]Relocation, error) { return nil, nil }

func detectMachO(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	magic := binary.BigEndian.Uint32(data[:4])
	switch magic {
	case machoMagic32, machoMagic64, machoCigam32, machoCigam64:
		return true
	}
	// also recognise little-endian-stored magic read as LE
	magicLE := binary.LittleEndian.Uint32(data[:4])
	switch magicLE {
	case machoMagic32, machoMagic64:
		return true
	}
	return false
}

func parseMachO(data []byte, decompressor Decompressor) (*machoObject, error) {
	if len(data) < 28 {
		return nil, errs.New(errs.TruncatedHeader, "macho: header truncated")
	}

	magicBE := binary.BigEndian.Uint32(data[:4])
	var order binary.ByteOrder
	var is64 bool
	switch magicBE {
	case machoMagic64:
		order, is64 = binary.BigEndian, true
	case machoMagic32:
		order, is64 = binary.BigEndian, false
	case machoCigam64:
		order, is64 = binary.LittleEndian, true
	case machoCigam32:
		order, is64 = binary.LittleEndian, false
	default:
		return nil, errs.New(errs.BadMagic, "macho: unrecognised magic")
	}

	o := &machoObject{data: data, order: order, is64: is64, decompressor: decompressor}
	if decompressor == nil {
		o.decompressor = zlibDecompressor{}
	}
	if is64 {
		o.addressSize = 8
	} else {
		o.addressSize = 4
	}

	cputype := order.Uint32(data[4:8])
	o.machine = machoMachine(cputype, is64)

	ncmds := order.Uint32(data[16:20])
	hdrSize := 28
	if is64 {
		hdrSize = 32
	}

	off := hdrSize
	for c := uint32(0); c < ncmds && off+8 <= len(data); c++ {
		cmd := order.Uint32(data[off:])
		cmdsize := order.Uint32(data[off+4:])
		body := data[off : off+int(cmdsize)]

		switch cmd {
		case lcSegment, lcSegment64:
			o.parseSegment(body, cmd == lcSegment64)
		case lcSymtab:
			o.parseSymtab(body)
		}

		off += int(cmdsize)
	}

	assignGroups(o.infos, nil)
	return o, nil
}

func machoMachine(cputype uint32, is64 bool) Machine {
	const (
		cpuTypeX86    = 7
		cpuTypeARM    = 12
		cpuTypeABI64  = 0x01000000
	)
	switch cputype &^ cpuTypeABI64 {
	case cpuTypeX86:
		if is64 {
			return MachineX86_64
		}
		return MachineX86
	case cpuTypeARM:
		if is64 {
			return MachineARM64
		}
		return MachineARM
	default:
		return MachineUnknown
	}
}

func (o *machoObject) parseSegment(body []byte, is64 bool) {
	var nsects uint32
	var sectOff int
	if is64 {
		nsects = o.order.Uint32(body[64:68])
		sectOff = 72
	} else {
		nsects = o.order.Uint32(body[48:52])
		sectOff = 56
	}

	sectSize := 68
	if is64 {
		sectSize = 80
	}

	for i := uint32(0); i < nsects; i++ {
		b := body[sectOff+int(i)*sectSize:]
		name := cStringFixed(b[0:16])

		var addr, size, offset uint64
		var flags uint32
		if is64 {
			addr = o.order.Uint64(b[32:40])
			size = o.order.Uint64(b[40:48])
			offset = uint64(o.order.Uint32(b[48:52]))
			flags = o.order.Uint32(b[64:68])
		} else {
			addr = uint64(o.order.Uint32(b[32:36]))
			size = uint64(o.order.Uint32(b[36:40]))
			offset = uint64(o.order.Uint32(b[40:44]))
			flags = o.order.Uint32(b[56:60])
		}

		o.infos = append(o.infos, SectionInfo{Name: name, Size: size, Addr: addr, Flags: uint64(flags)})
		o.offsets = append(o.offsets, offset)
	}
}

func (o *machoObject) parseSymtab(body []byte) {
	symoff := o.order.Uint32(body[8:12])
	nsyms := o.order.Uint32(body[12:16])
	stroff := o.order.Uint32(body[16:20])
	strsize := o.order.Uint32(body[20:24])

	if uint64(stroff)+uint64(strsize) > uint64(len(o.data)) {
		return
	}
	strtab := o.data[stroff : stroff+strsize]

	entsize := 12
	if o.is64 {
		entsize = 16
	}
	for i := uint32(0); i < nsyms; i++ {
		off := symoff + i*uint32(entsize)
		if uint64(off)+uint64(entsize) > uint64(len(o.data)) {
			break
		}
		b := o.data[off:]
		nameOff := o.order.Uint32(b[0:4])
		var value uint64
		if o.is64 {
			value = o.order.Uint64(b[8:16])
		} else {
			value = uint64(o.order.Uint32(b[8:12]))
		}
		name, err := cString(strtab, nameOff)
		if err != nil {
			continue
		}
		o.symbols = append(o.symbols, Symbol{Name: name, Value: value})
	}
}

func cStringFixed(b []byte) string {
	n := 0
	for n < len(b) && b[n] != 0 {
		n++
	}
	return string(b[:n])
}

// LoadSection returns section i's bytes, transparently decompressing a
// Mach-O "compressed section" (the __DWARF segment's zlib-compressed
// sections emitted by some linkers). Such a section is recognised by its
// content, not by a flag bit the way ELF's SHF_COMPRESSED is: at least 12
// bytes beginning with the "ZLIB" magic, decoded as a GNU .zdebug payload.
func (o *machoObject) LoadSection(i int) ([]byte, error) {
	if i < 0 || i >= len(o.infos) {
		return nil, errs.New(errs.InvalidHandle, "macho: section index %d out of range", i)
	}
	info := o.infos[i]
	offset := o.offsets[i]
	if offset+info.Size > uint64(len(o.data)) {
		return nil, errs.New(errs.SectionSizeOrOffsetLarge, "macho: section data runs past end of file")
	}
	raw := o.data[offset : offset+info.Size]

	if len(raw) >= 12 && string(raw[:4]) == "ZLIB" {
		return decompressGNU(raw, o.decompressor)
	}
	return raw, nil
}
