package dwarf

import "github.com/brisklabs/dwarfview/errs"

// DWOName returns the split-DWARF companion file name a skeleton unit's
// root DIE names via DW_AT_dwo_name (DWARF5) or DW_AT_GNU_dwo_name (the
// GNU DebugFission predecessor), and the unit's DW_AT_GNU_dwo_id /
// dwo_id for matching against the split unit it should tie to.
func (ctx *Context) DWOName(root *Entry) (name string, dwoID uint64, ok bool) {
	if v, present := root.Val(AttrDwoName); present {
		name = v.Str
	} else if v, present := root.Val(AttrGNUDwoName); present {
		name = v.Str
	} else {
		return "", 0, false
	}

	for _, u := range ctx.units {
		if Offset(u.headerEnd) == root.Offset {
			dwoID = u.dwoID
			break
		}
	}
	return name, dwoID, true
}

// VerifyTied checks that an attached tied session's skeleton/split
// compile units agree on DW_AT_(GNU_)dwo_id, the consistency check
// split-DWARF consumers are expected to perform before trusting a
// skeleton unit's references into the split unit (DWARF5 section
// 3.1.3).
func (s *Session) VerifyTied() error {
	if s.tied == nil {
		return errs.New(errs.InvalidHandle, "dwarf: no tied session attached")
	}
	for _, skel := range s.ctx.units {
		if skel.unitType != unitTypeSkeleton {
			continue
		}
		matched := false
		for _, split := range s.tied.ctx.units {
			if split.unitType == unitTypeSplitCompile && split.dwoID == skel.dwoID {
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		return errs.New(errs.InvalidHandle, "dwarf: skeleton unit at %#x has no matching split unit with dwo_id %#x", skel.offset, skel.dwoID)
	}
	return nil
}
