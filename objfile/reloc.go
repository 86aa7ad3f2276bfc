package objfile

import "encoding/binary"

// applyRelocation applies one relocation record to data at reloc.Offset,
// following spec.md component 4.2's "Relocation application" contract:
// resolve symbol to an address (in a relocatable object, a DWARF-section
// relocation typically names another DWARF section's base, at address 0,
// plus the section's own load address once applied by the linker — for an
// unlinked .o this is simply the addend) then apply S + A.
//
// width is the size in bytes of the field being patched (4 or 8,
// determined by the relocation type and the object's address size).
// order is the object's declared byte order.
//
// MIPS64 little-endian and SPARCv9 split their relocation "type" field
// across multiple logical relocations packed into one r_info word; the
// object-format-specific callers (elf.go) already split those out into
// individual Relocation records before calling applyRelocation, so this
// function itself only ever sees one (offset, type, symbol, addend) at a
// time and does not need architecture-specific branches beyond picking S.
func applyRelocation(data []byte, reloc Relocation, symbolAddr uint64, width int, order binary.ByteOrder) {
	off := reloc.Offset
	if off+uint64(width) > uint64(len(data)) {
		return
	}

	var addend int64
	if reloc.Addend != 0 {
		addend = reloc.Addend
	} else {
		// REL-style relocation: the addend lives in the bytes being
		// patched themselves.
		switch width {
		case 4:
			addend = int64(int32(order.Uint32(data[off : off+4])))
		case 8:
			addend = int64(order.Uint64(data[off : off+8]))
		}
	}

	value := int64(symbolAddr) + addend

	switch width {
	case 4:
		order.PutUint32(data[off:off+4], uint32(value))
	case 8:
		order.PutUint64(data[off:off+8], uint64(value))
	}
}

// splitMIPS64LERelocation decodes the MIPS64 little-endian r_info word,
// which packs up to three relocation types into a single Elf64_Rel entry
// (a quirk of the psABI that big-endian MIPS64 objects don't share) into
// up to three logical Relocation values sharing the same offset and
// symbol, each carrying one of the packed type bytes.
func splitMIPS64LERelocation(offset uint64, symbol uint32, info uint64) []Relocation {
	// r_info layout (little-endian MIPS64): bits [63:56] ssym, [55:40]
	// unused, [39:32] type3, [31:24] type2, [23:16] type1, [15:0] symbol
	// (already extracted by the caller into `symbol`).
	type1 := uint32(info>>16) & 0xff
	type2 := uint32(info>>24) & 0xff
	type3 := uint32(info>>32) & 0xff

	var out []Relocation
	for _, t := range []uint32{type1, type2, type3} {
		if t == 0 {
			continue
		}
		out = append(out, Relocation{Offset: offset, Type: t, Symbol: symbol})
	}
	if len(out) == 0 {
		out = append(out, Relocation{Offset: offset, Type: 0, Symbol: symbol})
	}
	return out
}

// splitSPARCv9Relocation decodes an Elf64_Rela r_info word on SPARCv9,
// which (per the SPARC v9 psABI) splits the type field across two ranges
// (a "type2" field in some producers' non-conforming output lives in bits
// normally reserved) and otherwise behaves like a standard Elf64_Rela.
func splitSPARCv9Relocation(offset uint64, symbol uint32, typ uint32, addend int64) Relocation {
	return Relocation{Offset: offset, Type: typ & 0xff, Symbol: symbol, Addend: addend}
}
