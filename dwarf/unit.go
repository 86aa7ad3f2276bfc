package dwarf

import (
	"encoding/binary"

	"github.com/brisklabs/dwarfview/errs"
)

// unitType distinguishes the DWARF5 unit_type byte (DW_UT_*); units before
// DWARF5 carry no such byte and are treated as unitTypeCompile, or as
// unitTypeType when read from .debug_types.
type unitType uint8

const (
	unitTypeCompile      unitType = 0x01
	unitTypeType         unitType = 0x02
	unitTypePartial      unitType = 0x03
	unitTypeSkeleton     unitType = 0x04
	unitTypeSplitCompile unitType = 0x05
	unitTypeSplitType    unitType = 0x06
)

// unit is one compile/type/skeleton unit header plus the byte range of its
// DIE tree, per spec.md component 4.5.
type unit struct {
	offset     Offset // offset of the unit header itself within .debug_info
	length     uint64 // length of the unit, not counting the initial-length field
	headerEnd  int    // byte offset where the DIE tree begins
	nextUnit   int    // byte offset of the following unit header (or section end)
	version    uint16
	unitType   unitType
	offsetSize int
	addrSize   int
	abbrevOff  int

	// Type-unit only (unitType == unitTypeType/unitTypeSplitType).
	typeSignature uint64
	typeOffset    uint64

	// Skeleton/split-compile only.
	dwoID uint64

	data  []byte // the section this unit lives in (.debug_info or .debug_types)
	order binary.ByteOrder

	abbrev *abbrevTable

	// Root-DIE indirection bases (DWARF5 section 7.5.1.1/3.1.3), captured
	// once by captureUnitBases right after a unit's root entry becomes
	// decodable. Indexed forms (DW_FORM_addrx*/strx*/loclistx/rnglistx) on
	// any DIE in this unit resolve against these, not a fixed offset.
	strOffsetsBase    int
	hasStrOffsetsBase bool
	addrBase          int
	hasAddrBase       bool
	loclistsBase      int
	hasLoclistsBase   bool
	rnglistsBase      int
	hasRnglistsBase   bool
}

// parseUnitHeader parses one unit header starting at byte offset off
// within data, dispatching on version to the pre-DWARF5 and DWARF5+ header
// shapes (spec.md: "version, unit_type for v5, offset_size, address_size,
// type-unit signature/offset, DWO id ... Compute next-unit offset").
func parseUnitHeader(data []byte, off int, order binary.ByteOrder, isTypeUnit bool) (*unit, error) {
	c := newCursorAt(data, off, order)

	il, err := c.readInitialLength()
	if err != nil {
		return nil, err
	}
	u := &unit{
		offset:     Offset(off),
		length:     il.length,
		offsetSize: il.offsetSize,
		data:       data,
		order:      order,
	}
	u.nextUnit = c.tell() + int(il.length)
	if u.nextUnit > len(data) {
		return nil, errs.New(errs.SectionSizeOrOffsetLarge, "dwarf: unit at %#x claims length %d beyond section end", off, il.length)
	}

	version, err := c.readU16()
	if err != nil {
		return nil, err
	}
	u.version = version

	switch {
	case version >= 2 && version <= 4:
		abbrevOff, err := c.readOffset(u.offsetSize)
		if err != nil {
			return nil, err
		}
		addrSize, err := c.readU8()
		if err != nil {
			return nil, err
		}
		u.abbrevOff = int(abbrevOff)
		u.addrSize = int(addrSize)
		if isTypeUnit {
			u.unitType = unitTypeType
			sig, err := c.readU64()
			if err != nil {
				return nil, err
			}
			typeOff, err := c.readOffset(u.offsetSize)
			if err != nil {
				return nil, err
			}
			u.typeSignature = sig
			u.typeOffset = typeOff
		} else {
			u.unitType = unitTypeCompile
		}

	case version == 5:
		ut, err := c.readU8()
		if err != nil {
			return nil, err
		}
		u.unitType = unitType(ut)

		addrSize, err := c.readU8()
		if err != nil {
			return nil, err
		}
		u.addrSize = int(addrSize)

		abbrevOff, err := c.readOffset(u.offsetSize)
		if err != nil {
			return nil, err
		}
		u.abbrevOff = int(abbrevOff)

		switch u.unitType {
		case unitTypeSkeleton, unitTypeSplitCompile:
			dwoID, err := c.readU64()
			if err != nil {
				return nil, err
			}
			u.dwoID = dwoID
		case unitTypeType, unitTypeSplitType:
			sig, err := c.readU64()
			if err != nil {
				return nil, err
			}
			typeOff, err := c.readOffset(u.offsetSize)
			if err != nil {
				return nil, err
			}
			u.typeSignature = sig
			u.typeOffset = typeOff
		}

	default:
		return nil, errs.New(errs.VersionUnsupported, "dwarf: unsupported unit version %d at offset %#x", version, off)
	}

	u.headerEnd = c.tell()
	return u, nil
}

// captureUnitBases decodes u's root DIE (its abbreviation table must
// already be assigned) and records any DW_AT_str_offsets_base/
// DW_AT_addr_base/DW_AT_loclists_base/DW_AT_rnglists_base it carries
// (falling back to the GNU Fission equivalents where the standard
// attribute is absent), so that indexed-form resolution elsewhere in the
// package has something to resolve against. A unit with no root DIE
// attributes of this kind (most pre-DWARF5 units, and DWARF5 units that
// use no indexed forms) simply leaves every hasXBase flag false.
func captureUnitBases(u *unit) error {
	p := &dieParser{u: u, abbrev: u.abbrev}
	root, _, err := p.readEntryAt(u.headerEnd)
	if err != nil {
		return err
	}
	if root == nil {
		return nil
	}
	if v, ok := root.Val(AttrStrOffsetsBase); ok {
		u.strOffsetsBase, u.hasStrOffsetsBase = int(v.U), true
	}
	if v, ok := root.Val(AttrAddrBase); ok {
		u.addrBase, u.hasAddrBase = int(v.U), true
	} else if v, ok := root.Val(AttrGNUAddrBase); ok {
		u.addrBase, u.hasAddrBase = int(v.U), true
	}
	if v, ok := root.Val(AttrLoclistsBase); ok {
		u.loclistsBase, u.hasLoclistsBase = int(v.U), true
	}
	if v, ok := root.Val(AttrRnglistsBase); ok {
		u.rnglistsBase, u.hasRnglistsBase = int(v.U), true
	} else if v, ok := root.Val(AttrGNURanges_base); ok {
		u.rnglistsBase, u.hasRnglistsBase = int(v.U), true
	}
	return nil
}

// experimentalTwoLevelMagic is the value DWARF producers using the
// (non-standard, experimental) two-level line table scheme write in place
// of a normal DW_LNCT version field, per spec.md's explicit call-out of
// "0xf006 two-level line tables".
const experimentalTwoLevelMagic = 0xf006

// walkUnits iterates every unit header in data (.debug_info or
// .debug_types), invoking fn with each parsed unit. It stops at the first
// parse error, returning it to the caller, so that a single malformed unit
// does not silently truncate iteration without the caller knowing why.
func walkUnits(data []byte, order binary.ByteOrder, isTypeUnit bool, fn func(*unit) error) error {
	off := 0
	for off < len(data) {
		u, err := parseUnitHeader(data, off, order, isTypeUnit)
		if err != nil {
			return err
		}
		if err := fn(u); err != nil {
			return err
		}
		if u.nextUnit <= off {
			return errs.New(errs.SectionSizeOrOffsetLarge, "dwarf: unit at %#x did not advance (next=%#x)", off, u.nextUnit)
		}
		off = u.nextUnit
	}
	return nil
}
