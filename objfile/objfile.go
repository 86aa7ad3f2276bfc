package objfile

import (
	"encoding/binary"
	"os"

	"github.com/brisklabs/dwarfview/errs"
)

// File is the loaded, section-grouped view of one object file: the result
// of Open/OpenReader after container detection, header parsing,
// relocation application and section grouping (spec.md component 4.2).
type File struct {
	reader ObjectReader
	infos  []SectionInfo
	relocated map[int]bool
}

// Options configure Open/OpenReader.
type Options struct {
	// Group names a section group (spec.md section 6: GroupAny,
	// GroupBase, GroupDWO, or a specific COMDAT group number >= 3). Open,
	// OpenBytes and OpenReader do not consult it; Sections and Section
	// take the group as an argument instead.
	Group int
	// Decompressor overrides the default zlib Decompressor for zlib
	// streams (.zdebug sections, Mach-O "ZLIB" sections, and ELF
	// SHF_COMPRESSED sections of type ELFCOMPRESS_ZLIB). It is not called
	// for any other SHF_COMPRESSED type, so it cannot add zstd support.
	Decompressor Decompressor
	// ApplyRelocations controls whether relocatable-object relocations are
	// applied to section bytes as LoadSection returns them. Defaults to
	// true.
	ApplyRelocations bool
}

// DefaultOptions returns the zero-value Options with ApplyRelocations set,
// matching spec.md's default behaviour for relocatable objects.
func DefaultOptions() Options {
	return Options{Group: GroupAny, ApplyRelocations: true}
}

// Open reads path from disk and parses it as ELF, Mach-O or PE/COFF.
func Open(path string, opts Options) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.New(errs.IoError, "objfile: %v", err)
	}
	return OpenBytes(data, opts)
}

// OpenBytes parses data held entirely in memory. This is the "memory form"
// of spec.md section 6's session-open contract for the common case where
// the caller already has the whole object buffered.
func OpenBytes(data []byte, opts Options) (*File, error) {
	reader, err := detectAndParse(data, opts.Decompressor)
	if err != nil {
		return nil, err
	}
	return OpenReader(reader, opts)
}

// OpenReader wraps a caller-supplied ObjectReader (spec.md section 6's
// "memory/custom form"), applying relocations and exposing the requested
// section group.
func OpenReader(reader ObjectReader, opts Options) (*File, error) {
	f := &File{reader: reader, relocated: make(map[int]bool)}

	n := reader.SectionCount()
	f.infos = make([]SectionInfo, n)
	for i := 0; i < n; i++ {
		f.infos[i] = reader.SectionInfo(i)
	}

	if opts.ApplyRelocations {
		if err := f.applyAllRelocations(); err != nil {
			return nil, err
		}
	}

	return f, nil
}

func detectAndParse(data []byte, decompressor Decompressor) (ObjectReader, error) {
	switch {
	case detectELF(data):
		return parseELF(data, decompressor)
	case detectMachO(data):
		return parseMachO(data, decompressor)
	case detectPE(data):
		return parsePE(data, decompressor)
	default:
		return nil, errs.New(errs.BadMagic, "objfile: unrecognised container format")
	}
}

// applyAllRelocations records which sections have relocations targeting
// them; LoadSection then applies those relocations to a private copy of
// the section's bytes, following spec.md component 4.2's "Relocation
// application" contract. Unknown relocation types on
// non-DWARF sections are ignored; on DWARF sections they surface as an
// UnhandledRelocation harmless condition recorded by the caller (Session),
// not returned as an ERROR, since the section is still usable.
func (f *File) applyAllRelocations() error {
	for i := range f.infos {
		relocs, err := f.reader.RelocationsFor(i)
		if err != nil {
			return err
		}
		if len(relocs) == 0 {
			continue
		}
		f.relocated[i] = true
	}
	return nil
}

// Sections returns the sections belonging to group (GroupAny for all of
// them).
func (f *File) Sections(group int) []SectionInfo {
	idx := SectionsInGroup(f.infos, group)
	out := make([]SectionInfo, len(idx))
	for i, j := range idx {
		out[i] = f.infos[j]
	}
	return out
}

// Section returns the metadata and index for the named section within
// group, or ok=false if no such section exists in that group.
func (f *File) Section(name string, group int) (SectionInfo, int, bool) {
	for i, s := range f.infos {
		if s.Name != name {
			continue
		}
		if group != GroupAny && s.Group != group {
			continue
		}
		return s, i, true
	}
	return SectionInfo{}, -1, false
}

// LoadSection loads and (if relocatable) relocates section i's bytes.
func (f *File) LoadSection(i int) ([]byte, error) {
	raw, err := f.reader.LoadSection(i)
	if err != nil {
		return nil, err
	}
	if !f.relocated[i] {
		return raw, nil
	}

	relocs, err := f.reader.RelocationsFor(i)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(raw))
	copy(out, raw)

	width := f.reader.AddressSize()
	for _, r := range relocs {
		symAddr := f.symbolAddress(r.Symbol)
		applyRelocation(out, r, symAddr, width, f.reader.ByteOrder())
	}
	return out, nil
}

func (f *File) symbolAddress(symIdx uint32) uint64 {
	syms := f.reader.Symbols()
	if int(symIdx) >= len(syms) {
		return 0
	}
	return syms[symIdx].Value
}

// ByteOrder, AddressSize, Machine and Symbols expose the underlying
// reader's identity, used by the dwarf package to pick the cursor's
// endianness/address width.
func (f *File) ByteOrder() binary.ByteOrder { return f.reader.ByteOrder() }

// AddressSize returns the object's pointer width in bytes (4 or 8).
func (f *File) AddressSize() int { return f.reader.AddressSize() }

// Machine returns the object's target architecture.
func (f *File) Machine() Machine { return f.reader.Machine() }

// Symbols returns the object's normal symbol table.
func (f *File) Symbols() []Symbol { return f.reader.Symbols() }

// Close releases f. Open and OpenBytes read the whole object into memory
// and keep no file handle open, so Close has nothing to release and always
// returns nil; calling it more than once is harmless.
func (f *File) Close() error { return nil }

// IsMachO reports whether f was detected as a Mach-O container, the
// precondition for a .dSYM bundle lookup (dSYM bundles are an Apple
// toolchain convention with no ELF/PE analogue).
func (f *File) IsMachO() bool {
	_, ok := f.reader.(*machoObject)
	return ok
}
