package dwarf

import "github.com/brisklabs/dwarfview/errs"

// Field is one decoded attribute of an Entry.
type Field struct {
	Attr  Attr
	Form  Form
	Class Class
	Val   Value
}

// Entry is one decoded DIE: its tag, whether it has children, and its
// attribute list in declaration order (matching the teacher's own
// decision, via debug/dwarf.Entry, to preserve declaration order rather
// than sort attributes by number).
type Entry struct {
	Offset   Offset
	Tag      Tag
	Children bool
	Fields   []Field
}

// Val returns the decoded value for attr and true, or the zero Value and
// false if the entry carries no such attribute.
func (e *Entry) Val(attr Attr) (Value, bool) {
	for _, f := range e.Fields {
		if f.Attr == attr {
			return f.Val, true
		}
	}
	return Value{}, false
}

// PCRange resolves DW_AT_low_pc/DW_AT_high_pc per DWARF4's clarified
// high_pc class rule (supplemented feature, SPEC_FULL.md section 7): if
// high_pc decoded as a constant class rather than an address class, its
// value is an offset from low_pc rather than an absolute address.
func (e *Entry) PCRange() (low, high uint64, ok bool) {
	lowVal, hasLow := e.Val(AttrLowpc)
	highVal, hasHigh := e.Val(AttrHighpc)
	if !hasLow || !hasHigh {
		return 0, 0, false
	}
	low = lowVal.Addr
	switch highVal.Class {
	case ClassAddress:
		high = highVal.Addr
	case ClassConstant:
		high = low + highVal.U
	default:
		return 0, 0, false
	}
	return low, high, true
}

// dieParser decodes the DIE tree for one unit, given its abbreviation
// table. It is used by captureUnitBases and by Context's entry lookups
// and tree walks (EntryAt, EntryBySignature, Children, WalkCompileUnit).
type dieParser struct {
	u      *unit
	abbrev *abbrevTable
}

// readEntryAt decodes exactly one DIE at byte offset off within the
// unit's data, returning the entry and the offset immediately following
// it (where the next sibling, or the first child, begins).
func (p *dieParser) readEntryAt(off int) (*Entry, int, error) {
	c := newCursorAt(p.u.data, off, p.u.order)

	code, err := c.readULEB()
	if err != nil {
		return nil, 0, err
	}
	if code == 0 {
		// Null entry: terminates a sibling chain. Callers check for this
		// via the returned nil Entry.
		return nil, c.tell(), nil
	}

	decl, err := p.abbrev.lookup(code)
	if err != nil {
		return nil, 0, err
	}

	e := &Entry{Offset: Offset(off), Tag: decl.tag, Children: decl.hasChildren}
	for _, a := range decl.attrs {
		val, err := decodeForm(c, a.attr, a.form, p.u.offsetSize, p.u.addrSize, a.implicitConst)
		if err != nil {
			return nil, 0, errs.New(errs.BadTypeSize, "dwarf: decoding %v in DIE at offset %#x: %v", a.attr, off, err)
		}
		e.Fields = append(e.Fields, Field{Attr: a.attr, Form: a.form, Class: val.Class, Val: val})
	}

	return e, c.tell(), nil
}

// walkTree performs a depth-first walk of a null-terminated sibling
// chain starting at byte offset off, invoking visit(entry, depth) for
// every non-null entry. Returning an error from visit aborts the walk
// and propagates. depth is the caller's own bookkeeping value, passed
// through unchanged to visit and incremented by one for recursive child
// calls; walkTree itself does not care what depth means.
//
// This mirrors the traversal spec.md requires for "child_of" and
// "sibling_of": a DIE with Children==true is followed immediately by its
// child subtree, terminated by a null entry; siblings are reached by
// skipping past a fully-parsed child subtree (or, when allowSiblingSkip
// is true, by following a DW_AT_sibling shortcut instead of descending).
// allowSiblingSkip must be false for any walk that needs to visit every
// DIE in the subtree (a full tree walk); it is safe only for callers that
// discard everything below the immediate children anyway, per DWARF5
// section 4.5's tie-break rule, a taken sibling offset is only honored
// when it falls within the current unit.
func (p *dieParser) walkTree(off int, depth int, allowSiblingSkip bool, visit func(e *Entry, depth int) error) (int, error) {
	for {
		e, next, err := p.readEntryAt(off)
		if err != nil {
			return 0, err
		}
		if e == nil {
			return next, nil // null entry: end of this sibling chain
		}
		if err := visit(e, depth); err != nil {
			return 0, err
		}
		off = next
		if e.Children {
			if allowSiblingSkip {
				// DW_AT_sibling's reference forms (ref1/2/4/8/udata, the ones
				// producers actually emit for it) are CU-relative, per
				// ResolveReference's own handling of those forms.
				if sib, ok := e.Val(AttrSibling); ok {
					if target := int(p.u.offset) + int(sib.U); target > off && target < p.u.nextUnit {
						off = target
						continue
					}
				}
			}
			off, err = p.walkTree(off, depth+1, allowSiblingSkip, visit)
			if err != nil {
				return 0, err
			}
		}
	}
}

// walkRootLevel walks the top-level sequence of one unit's DIE tree,
// from byte offset off (the unit's headerEnd) up to unitEnd. Unlike
// walkTree's null-terminated sibling chains, the top-level sequence in
// .debug_info carries no null terminator of its own — only the unit's
// declared length bounds it (DWARF5 section 7.5.1) — so root DIEs (and
// any further top-level siblings, which the format permits even though
// producers emit exactly one compile_unit/partial_unit/type_unit/
// skeleton_unit root in practice) are read until that byte boundary.
//
// This is a full-tree walk (it is WalkCompileUnit's entry point), so it
// never takes the DW_AT_sibling shortcut: every DIE must be visited
// exactly once, and a DIE that happens to carry DW_AT_sibling (compilers
// emit it routinely on subprograms and lexical blocks) must still have
// its subtree descended into.
func (p *dieParser) walkRootLevel(off, unitEnd int, visit func(e *Entry, depth int) error) error {
	for off < unitEnd {
		e, next, err := p.readEntryAt(off)
		if err != nil {
			return err
		}
		if e == nil {
			off = next
			continue
		}
		if err := visit(e, 0); err != nil {
			return err
		}
		off = next
		if e.Children {
			off, err = p.walkTree(off, 1, false, visit)
			if err != nil {
				return err
			}
		}
	}
	return nil
}
