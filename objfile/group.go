package objfile

import "strings"

// Group selection constants (spec.md section 6, "Group selection").
const (
	GroupAny  = 0
	GroupBase = 1
	GroupDWO  = 2
)

// assignGroups partitions sections into disjoint groups following spec.md
// component 4.2's "Section grouping contract": every section belongs to
// exactly one group, groups are numbered from GroupBase (1); a section
// whose name ends in ".dwo" is assigned GroupDWO; a section listed by a
// SHT_GROUP record with GRP_COMDAT is assigned that record's group number
// (>= 3, assigned in the order the group records are encountered);
// everything else is GroupBase.
//
// comdatMembers maps a section index to the (1-based, >=3) group number it
// was found in via a GRP_COMDAT SHT_GROUP record, as discovered by the
// ELF-specific section-group-table parse (elf.go). It is nil for object
// formats with no group-record concept (Mach-O, PE).
func assignGroups(sections []SectionInfo, comdatMembers map[int]int) {
	for i := range sections {
		switch {
		case comdatMembers != nil && comdatMembers[i] != 0:
			sections[i].Group = comdatMembers[i]
		case strings.HasSuffix(sections[i].Name, ".dwo"):
			sections[i].Group = GroupDWO
		default:
			sections[i].Group = GroupBase
		}
	}
}

// SectionsInGroup returns the indices of the sections belonging to group,
// interpreting GroupAny as "every section regardless of group".
func SectionsInGroup(sections []SectionInfo, group int) []int {
	var out []int
	for i, s := range sections {
		if group == GroupAny || s.Group == group {
			out = append(out, i)
		}
	}
	return out
}
