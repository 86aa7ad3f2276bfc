package dwarf

import (
	"encoding/binary"
	"testing"
)

// buildMinimalUnit constructs a DWARF4, 32-bit-format compile unit with
// one child DIE, returning the .debug_info and .debug_abbrev bytes.
func buildMinimalUnit(t *testing.T) (debugInfo, debugAbbrev []byte) {
	t.Helper()
	order := binary.LittleEndian

	// Abbrev table at offset 0:
	//  code 1: DW_TAG_compile_unit, has children, DW_AT_name(strp)
	//  code 2: DW_TAG_subprogram, no children, DW_AT_name(string)
	abbrev := []byte{}
	abbrev = appendULEB(abbrev, 1)                     // code
	abbrev = appendULEB(abbrev, uint64(TagCompileUnit)) // tag
	abbrev = append(abbrev, 1)                          // has_children
	abbrev = appendULEB(abbrev, uint64(AttrName))
	abbrev = appendULEB(abbrev, uint64(FormStrp))
	abbrev = appendULEB(abbrev, 0)
	abbrev = appendULEB(abbrev, 0)

	abbrev = appendULEB(abbrev, 2)
	abbrev = appendULEB(abbrev, uint64(TagSubprogram))
	abbrev = append(abbrev, 0)
	abbrev = appendULEB(abbrev, uint64(AttrName))
	abbrev = appendULEB(abbrev, uint64(FormString))
	abbrev = appendULEB(abbrev, 0)
	abbrev = appendULEB(abbrev, 0)

	abbrev = appendULEB(abbrev, 0) // table terminator

	// DIE tree: root cites code 1 (DW_AT_name = strp offset 0), one
	// child citing code 2 (DW_AT_name = "main"), then a null terminator.
	var body []byte
	body = appendULEB(body, 1)
	body = append(body, 0, 0, 0, 0) // strp offset (4-byte offset size)
	body = appendULEB(body, 2)
	body = append(body, []byte("main\x00")...)
	body = append(body, 0) // null: end of root's children

	header := make([]byte, 0, 16)
	header = append(header, 0, 0, 0, 0) // placeholder for unit_length
	verBuf := make([]byte, 2)
	order.PutUint16(verBuf, 4)
	header = append(header, verBuf...)
	header = append(header, 0, 0, 0, 0) // debug_abbrev_offset = 0
	header = append(header, 8)          // address_size

	payload := append(header[4:], body...)
	order.PutUint32(header[0:4], uint32(len(payload)))
	full := append(header[:4:4], payload...)

	return full, abbrev
}

func appendULEB(b []byte, v uint64) []byte {
	for {
		by := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			by |= 0x80
		}
		b = append(b, by)
		if v == 0 {
			break
		}
	}
	return b
}

func TestParseUnitHeaderAndWalkTree(t *testing.T) {
	debugInfo, debugAbbrev := buildMinimalUnit(t)

	ctx, err := NewContext(binary.LittleEndian, debugInfo, debugAbbrev, nil)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	if len(ctx.Units()) != 1 {
		t.Fatalf("Units() = %d, want 1", len(ctx.Units()))
	}

	u := ctx.Units()[0]
	if u.version != 4 {
		t.Fatalf("version = %d, want 4", u.version)
	}

	var tags []Tag
	var names []string
	err = ctx.WalkCompileUnit(u, func(e *Entry, depth int) error {
		tags = append(tags, e.Tag)
		if v, ok := e.Val(AttrName); ok && v.Class == ClassString && v.Str != "" {
			names = append(names, v.Str)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WalkCompileUnit: %v", err)
	}
	if len(tags) != 2 || tags[0] != TagCompileUnit || tags[1] != TagSubprogram {
		t.Fatalf("tags = %v, want [compile_unit subprogram]", tags)
	}
	if len(names) != 1 || names[0] != "main" {
		t.Fatalf("names = %v, want [main]", names)
	}
}

// buildUnitWithSibling constructs a DWARF4 unit whose root has one child
// (a lexical_block carrying DW_AT_sibling, ref4, CU-relative) which in
// turn has its own child (a subprogram named "inner"); the lexical
// block's sibling attribute points past its own subtree at a second
// root-level child (a subprogram named "after").
func buildUnitWithSibling(t *testing.T) (debugInfo, debugAbbrev []byte) {
	t.Helper()
	order := binary.LittleEndian

	abbrev := []byte{}
	abbrev = appendULEB(abbrev, 1) // compile_unit, children, no attrs
	abbrev = appendULEB(abbrev, uint64(TagCompileUnit))
	abbrev = append(abbrev, 1)
	abbrev = appendULEB(abbrev, 0)
	abbrev = appendULEB(abbrev, 0)

	abbrev = appendULEB(abbrev, 2) // lexical_block, children, DW_AT_sibling(ref4)
	abbrev = appendULEB(abbrev, uint64(TagLexDwarfBlock))
	abbrev = append(abbrev, 1)
	abbrev = appendULEB(abbrev, uint64(AttrSibling))
	abbrev = appendULEB(abbrev, uint64(FormRef4))
	abbrev = appendULEB(abbrev, 0)
	abbrev = appendULEB(abbrev, 0)

	abbrev = appendULEB(abbrev, 3) // subprogram, no children, DW_AT_name(string)
	abbrev = appendULEB(abbrev, uint64(TagSubprogram))
	abbrev = append(abbrev, 0)
	abbrev = appendULEB(abbrev, uint64(AttrName))
	abbrev = appendULEB(abbrev, uint64(FormString))
	abbrev = appendULEB(abbrev, 0)
	abbrev = appendULEB(abbrev, 0)

	abbrev = appendULEB(abbrev, 0)

	header := make([]byte, 0, 11)
	header = append(header, 0, 0, 0, 0)
	verBuf := make([]byte, 2)
	order.PutUint16(verBuf, 4)
	header = append(header, verBuf...)
	header = append(header, 0, 0, 0, 0)
	header = append(header, 8)
	headerLen := len(header)

	// Byte offsets below are relative to the start of the unit (header
	// included), matching DW_AT_sibling's CU-relative ref4 form.
	lexBlockOff := headerLen + 1 // after the root compile_unit's one-byte abbrev code
	lexBlockBody := appendULEB(nil, 2)
	siblingPlaceholderPos := len(lexBlockBody)
	lexBlockBody = append(lexBlockBody, 0, 0, 0, 0) // DW_AT_sibling placeholder

	innerBody := appendULEB(nil, 3)
	innerBody = append(innerBody, []byte("inner\x00")...)

	lexBlockChildren := append(append([]byte{}, innerBody...), 0) // null: end lexical_block's children

	afterOff := lexBlockOff + len(lexBlockBody) + len(lexBlockChildren)
	afterBody := appendULEB(nil, 3)
	afterBody = append(afterBody, []byte("after\x00")...)

	order.PutUint32(lexBlockBody[siblingPlaceholderPos:], uint32(afterOff))

	var body []byte
	body = appendULEB(body, 1) // root compile_unit
	body = append(body, lexBlockBody...)
	body = append(body, lexBlockChildren...)
	body = append(body, afterBody...)
	body = append(body, 0) // null: end root's children

	payload := append(header[4:], body...)
	order.PutUint32(header[0:4], uint32(len(payload)))
	full := append(header[:4:4], payload...)

	return full, abbrev
}

func TestWalkCompileUnitDescendsPastSibling(t *testing.T) {
	debugInfo, debugAbbrev := buildUnitWithSibling(t)

	ctx, err := NewContext(binary.LittleEndian, debugInfo, debugAbbrev, nil)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	u := ctx.Units()[0]

	var names []string
	err = ctx.WalkCompileUnit(u, func(e *Entry, depth int) error {
		if v, ok := e.Val(AttrName); ok && v.Str != "" {
			names = append(names, v.Str)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WalkCompileUnit: %v", err)
	}
	// A full tree walk must still visit "inner", even though the lexical
	// block enclosing it carries a DW_AT_sibling that jumps straight to
	// "after".
	if len(names) != 2 || names[0] != "inner" || names[1] != "after" {
		t.Fatalf("names = %v, want [inner after]", names)
	}
}

func TestChildrenUsesSiblingShortcut(t *testing.T) {
	debugInfo, debugAbbrev := buildUnitWithSibling(t)

	ctx, err := NewContext(binary.LittleEndian, debugInfo, debugAbbrev, nil)
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}
	u := ctx.Units()[0]
	root, err := ctx.EntryAt(Offset(u.headerEnd))
	if err != nil {
		t.Fatalf("EntryAt(root): %v", err)
	}

	var tags []Tag
	err = ctx.Children(u, root, func(e *Entry) error {
		tags = append(tags, e.Tag)
		return nil
	})
	if err != nil {
		t.Fatalf("Children: %v", err)
	}
	// Children only enumerates the root's direct children: the lexical
	// block and (reached via its sibling shortcut) "after" — never
	// "inner", which is the lexical block's own child.
	if len(tags) != 2 || tags[0] != TagLexDwarfBlock || tags[1] != TagSubprogram {
		t.Fatalf("tags = %v, want [lexical_block subprogram]", tags)
	}
}

func TestAbbrevMissingCode(t *testing.T) {
	_, debugAbbrev := buildMinimalUnit(t)
	table, err := parseAbbrevTable(debugAbbrev, 0)
	if err != nil {
		t.Fatalf("parseAbbrevTable: %v", err)
	}
	if _, err := table.lookup(99); err == nil {
		t.Fatalf("expected an error looking up an undeclared abbreviation code")
	}
}
