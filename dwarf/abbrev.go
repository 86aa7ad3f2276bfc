package dwarf

import (
	"encoding/binary"

	"github.com/brisklabs/dwarfview/errs"
)

// abbrevAttr is one (attribute, form) pair within an abbreviation
// declaration, plus the implicit-const value DWARF5 attaches directly to
// the declaration for DW_FORM_implicit_const.
type abbrevAttr struct {
	attr          Attr
	form          Form
	implicitConst int64
}

// abbrevDecl is a single abbreviation table entry: the tag and
// has-children flag shared by every DIE that cites this code, and the
// ordered list of attributes those DIEs carry.
type abbrevDecl struct {
	tag         Tag
	hasChildren bool
	attrs       []abbrevAttr
}

// abbrevTable is the code -> declaration mapping for one unit's abbrev
// offset (spec.md component 4.4). NewContext parses it for every unit as
// the unit is discovered, caching it per abbrev offset in abbrevCache and
// storing it on the unit; parsing is not deferred to a first lookup.
type abbrevTable struct {
	decls map[uint64]abbrevDecl
}

// parseAbbrevTable parses the abbreviation table at byte offset off within
// the .debug_abbrev section, stopping at the terminating zero code or the
// end of the section, whichever comes first — the table has no explicit
// length, so a missing terminator simply means "read to EOF".
func parseAbbrevTable(debugAbbrev []byte, off int) (*abbrevTable, error) {
	if off < 0 || off > len(debugAbbrev) {
		return nil, errs.New(errs.SectionSizeOrOffsetLarge, "dwarf: abbrev offset %#x beyond section of size %#x", off, len(debugAbbrev))
	}
	c := newCursorAt(debugAbbrev, off, binary.LittleEndian) // byte order irrelevant for ULEB/U8 reads
	t := &abbrevTable{decls: make(map[uint64]abbrevDecl)}

	for {
		code, err := c.readULEB()
		if err != nil {
			// EOF with nothing read yet is a truncated table; but if we've
			// already parsed at least one declaration, treat running off
			// the end of the section as an implicit terminator rather than
			// failing the whole unit.
			if len(t.decls) > 0 {
				break
			}
			return nil, err
		}
		if code == 0 {
			break
		}
		if _, dup := t.decls[code]; dup {
			return nil, errs.New(errs.AbbrevMissing, "dwarf: duplicate abbreviation code %d at offset %#x", code, off)
		}

		tagVal, err := c.readULEB()
		if err != nil {
			return nil, err
		}
		childFlag, err := c.readU8()
		if err != nil {
			return nil, err
		}

		decl := abbrevDecl{tag: Tag(tagVal), hasChildren: childFlag != 0}

		for {
			attrVal, err := c.readULEB()
			if err != nil {
				return nil, err
			}
			formVal, err := c.readULEB()
			if err != nil {
				return nil, err
			}
			if attrVal == 0 && formVal == 0 {
				break
			}
			var implicitConst int64
			if Form(formVal) == FormImplicitConst {
				implicitConst, err = c.readSLEB()
				if err != nil {
					return nil, err
				}
			}
			decl.attrs = append(decl.attrs, abbrevAttr{attr: Attr(attrVal), form: Form(formVal), implicitConst: implicitConst})
		}

		t.decls[code] = decl
	}

	return t, nil
}

// lookup returns the declaration for code, or AbbrevMissing if the unit's
// abbreviation table has no such entry — the condition spec.md's
// "dangling abbreviation code" edge case names explicitly.
func (t *abbrevTable) lookup(code uint64) (abbrevDecl, error) {
	d, ok := t.decls[code]
	if !ok {
		return abbrevDecl{}, errs.New(errs.AbbrevMissing, "dwarf: abbreviation code %d not present in table", code)
	}
	return d, nil
}

// abbrevCache memoizes parsed tables by their byte offset within
// .debug_abbrev, since multiple compile units commonly share one
// abbreviation table (most often all of them share offset 0).
type abbrevCache struct {
	debugAbbrev []byte
	tables      map[int]*abbrevTable
}

func newAbbrevCache(debugAbbrev []byte) *abbrevCache {
	return &abbrevCache{debugAbbrev: debugAbbrev, tables: make(map[int]*abbrevTable)}
}

func (a *abbrevCache) get(off int) (*abbrevTable, error) {
	if t, ok := a.tables[off]; ok {
		return t, nil
	}
	t, err := parseAbbrevTable(a.debugAbbrev, off)
	if err != nil {
		return nil, err
	}
	a.tables[off] = t
	return t, nil
}
