package dwarf

import "encoding/binary"

// ArangesEntry maps one address range to the compile unit that covers it,
// decoded from a .debug_aranges accelerator table (supplemented feature,
// SPEC_FULL.md section 7: "'.debug_aranges'/pubnames/pubtypes accelerator
// iterators").
type ArangesEntry struct {
	Start     uint64
	Length    uint64
	UnitOffset Offset
}

// ParseAranges decodes every set in a .debug_aranges section (DWARF5
// section 6.1.2): a header per compile unit followed by (address,
// length) tuples, terminated by a zero tuple, with the header padded so
// tuples start on a boundary equal to twice the address size.
func ParseAranges(data []byte, order binary.ByteOrder) ([]ArangesEntry, error) {
	var entries []ArangesEntry
	off := 0
	for off < len(data) {
		c := newCursorAt(data, off, order)

		il, err := c.readInitialLength()
		if err != nil {
			return nil, err
		}
		setEnd := c.tell() + int(il.length)

		if _, err := c.readU16(); err != nil { // version
			return nil, err
		}
		unitOffset, err := c.readOffset(il.offsetSize)
		if err != nil {
			return nil, err
		}
		addrSize, err := c.readU8()
		if err != nil {
			return nil, err
		}
		if _, err := c.readU8(); err != nil { // segment_selector_size
			return nil, err
		}

		tupleSize := 2 * int(addrSize)
		// Pad to a tupleSize boundary measured from the start of the
		// section-relative set (DWARF5 section 6.1.2: "padding, odd if
		// necessary, to make set...begin at an offset that is a multiple
		// of the size of a single tuple").
		if pad := (c.tell() - off) % tupleSize; pad != 0 && tupleSize != 0 {
			c.seek(c.tell() + (tupleSize - pad))
		}

		for c.tell() < setEnd {
			addr, err := c.readAddr(int(addrSize))
			if err != nil {
				return nil, err
			}
			length, err := c.readAddr(int(addrSize))
			if err != nil {
				return nil, err
			}
			if addr == 0 && length == 0 {
				break
			}
			entries = append(entries, ArangesEntry{Start: addr, Length: length, UnitOffset: Offset(unitOffset)})
		}

		off = setEnd
	}
	return entries, nil
}

// PubEntry is one name-to-DIE-offset mapping from a .debug_pubnames or
// .debug_pubtypes accelerator table.
type PubEntry struct {
	DIEOffset  Offset
	Name       string
	UnitOffset Offset
}

// ParsePubTable decodes a .debug_pubnames- or .debug_pubtypes-shaped
// section (DWARF5 section 6.1.1: identical layout for both), which the
// GNU toolchain still emits even though DWARF5 formally deprecated it in
// favor of .debug_names; SPEC_FULL.md's supplement reads whichever of the
// two sections .debug_aranges's accelerator role also covers, producer
// permitting.
func ParsePubTable(data []byte, order binary.ByteOrder) ([]PubEntry, error) {
	var entries []PubEntry
	off := 0
	for off < len(data) {
		c := newCursorAt(data, off, order)

		il, err := c.readInitialLength()
		if err != nil {
			return nil, err
		}
		setEnd := c.tell() + int(il.length)

		if _, err := c.readU16(); err != nil { // version
			return nil, err
		}
		unitOffset, err := c.readOffset(il.offsetSize)
		if err != nil {
			return nil, err
		}
		if _, err := c.readOffset(il.offsetSize); err != nil { // debug_info_length
			return nil, err
		}

		for c.tell() < setEnd {
			dieOff, err := c.readOffset(il.offsetSize)
			if err != nil {
				return nil, err
			}
			if dieOff == 0 {
				break
			}
			name, err := c.readCString()
			if err != nil {
				return nil, err
			}
			entries = append(entries, PubEntry{DIEOffset: Offset(dieOff), Name: name, UnitOffset: Offset(unitOffset)})
		}

		off = setEnd
	}
	return entries, nil
}
