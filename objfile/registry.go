package objfile

import "strings"

// canonicalSections lists the alternate section-name spellings the registry
// folds together, per spec.md component 4.3: the plain DWARF name, the GNU
// compressed-section name, and the split-DWARF companion name.
var canonicalSections = []string{
	"debug_abbrev",
	"debug_addr",
	"debug_aranges",
	"debug_frame",
	"debug_info",
	"debug_line",
	"debug_line_str",
	"debug_loc",
	"debug_loclists",
	"debug_macinfo",
	"debug_macro",
	"debug_pubnames",
	"debug_pubtypes",
	"debug_ranges",
	"debug_rnglists",
	"debug_str",
	"debug_str_offsets",
	"debug_types",
	"gnu_debuglink",
	"note.gnu.build-id",
}

// Registry maps a canonical DWARF section name to the loaded bytes for it,
// resolved across a file's naming variants (".debug_info",
// ".debug_info.dwo", ".zdebug_info") and scoped to one section group.
type Registry struct {
	file  *File
	group int

	bytesByName map[string][]byte
	indexByName map[string]int
}

// NewRegistry loads every canonical section belonging to group from f.
func NewRegistry(f *File, group int) (*Registry, error) {
	r := &Registry{file: f, group: group, bytesByName: make(map[string][]byte), indexByName: make(map[string]int)}

	for _, canon := range canonicalSections {
		idx, ok := r.findIndex(canon)
		if !ok {
			continue
		}
		data, err := f.LoadSection(idx)
		if err != nil {
			return nil, err
		}
		r.bytesByName[canon] = data
		r.indexByName[canon] = idx
	}
	return r, nil
}

// findIndex resolves canon ("debug_info") against the object's sections,
// trying, in order, ".<canon>", ".<canon>.dwo", ".z<canon>" (the GNU
// compressed spelling, which prefixes canon unchanged: "debug_info" ->
// ".zdebug_info").
func (r *Registry) findIndex(canon string) (int, bool) {
	candidates := []string{
		"." + canon,
		"." + canon + ".dwo",
		".z" + canon,
	}
	for _, name := range candidates {
		if info, idx, ok := r.file.Section(name, r.group); ok {
			_ = info
			return idx, true
		}
	}
	return 0, false
}

// Section returns the loaded bytes for canonical section name (e.g.
// "debug_info"), and whether it was present.
func (r *Registry) Section(canon string) ([]byte, bool) {
	b, ok := r.bytesByName[canon]
	return b, ok
}

// HasDebugInfo reports whether the registry found any flavour of
// ".debug_info" — used by the session-open path to decide whether a
// debuglink/build-id/dSYM search is warranted.
func (r *Registry) HasDebugInfo() bool {
	_, ok := r.bytesByName["debug_info"]
	return ok
}

// IsDWOName reports whether name (as found in the object) is a
// split-DWARF section name, independent of the Registry's own group
// scoping — used by callers constructing their own group assignment
// before a Registry exists.
func IsDWOName(name string) bool {
	return strings.HasSuffix(name, ".dwo")
}
