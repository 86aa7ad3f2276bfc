package dwarf

import (
	"encoding/binary"

	"github.com/brisklabs/dwarfview/internal/ringlog"
	"github.com/brisklabs/dwarfview/objfile"
)

// Session is the reader's top-level handle: an open object file plus its
// resolved DWARF sections, the shared abbreviation/unit Context, and a
// bounded ring of harmless parse errors encountered along the way
// (spec.md component 4.10, and section 7's "harmless error ring").
//
// Modeled on the shape of the teacher's Source (source.go), which is
// similarly "created from available DWARF data... found in relation to
// an ELF file", but decodes DWARF itself rather than delegating to
// debug/dwarf, and is not bound to any one coprocessor architecture.
type Session struct {
	file     *objfile.File
	registry *objfile.Registry
	ctx      *Context
	order    binary.ByteOrder

	frame *FrameSection

	// Resolved section bytes the session-level queries in resolve.go
	// drive the rest of the package's section-local decoders over
	// (spec.md component 4.10: "wire each section registered by the
	// object-front-end registry to the engine that actually knows its
	// wire format"). Any of these may be nil/empty when the object
	// carries no such section; the resolve.go methods report that as an
	// error rather than a panic (InvalidHandle for the section-level
	// queries; ResolveAddr and ResolveString report the failed lookup,
	// such as MissingBase).
	debugLine       []byte
	debugLineStr    []byte
	debugStr        []byte
	debugStrOffsets []byte
	debugAddr       []byte
	debugLoc        []byte
	debugLoclists   []byte
	debugRanges     []byte
	debugRnglists   []byte
	debugAranges    []byte
	debugPubnames   []byte
	debugPubtypes   []byte
	debugMacinfo    []byte
	debugMacro      []byte

	DebugPathSource objfile.PathSource
	DebugPath       string

	errs *ringlog.Logger

	tied *Session // attached split-DWARF (.dwo) session, if any
}

// Options configures session construction, following the functional-
// option shape the ambient-stack conventions (SPEC_FULL.md section 3)
// call for.
type Options struct {
	ErrorRingCapacity int
	DebugSearchPaths  []string
	Group             int
}

// DefaultOptions returns the Options a bare Open call uses.
func DefaultOptions() Options {
	return Options{ErrorRingCapacity: 64, Group: objfile.GroupBase}
}

type Option func(*Options)

func WithErrorRingCapacity(n int) Option {
	return func(o *Options) { o.ErrorRingCapacity = n }
}

func WithDebugSearchPaths(paths ...string) Option {
	return func(o *Options) { o.DebugSearchPaths = paths }
}

// Open opens the object file at path and resolves its DWARF sections,
// following a GNU debuglink, build-id, or dSYM bundle to a companion
// debug file when the primary object carries no .debug_info itself.
func Open(path string, opts ...Option) (*Session, error) {
	options := DefaultOptions()
	for _, o := range opts {
		o(&options)
	}

	f, err := objfile.Open(path, objfile.DefaultOptions())
	if err != nil {
		return nil, err
	}

	sess, err := newSessionFromFile(f, options)
	if err != nil {
		f.Close()
		return nil, err
	}

	if !sess.registry.HasDebugInfo() {
		if resolved, resolvedData, source, ok := resolveCompanionDebugFile(f, path, options); ok {
			companionFile, err := objfile.OpenBytes(resolvedData, objfile.DefaultOptions())
			if err == nil {
				companionSess, err := newSessionFromFile(companionFile, options)
				if err == nil && companionSess.registry.HasDebugInfo() {
					companionSess.DebugPath = resolved
					companionSess.DebugPathSource = source
					sess.Close()
					return companionSess, nil
				}
				companionFile.Close()
			}
		}
	}

	return sess, nil
}

// OpenReader builds a Session directly from in-memory object bytes,
// bypassing any filesystem debuglink/dSYM search (the caller is expected
// to have already assembled whatever companion debug file it needs).
func OpenReader(data []byte, opts ...Option) (*Session, error) {
	options := DefaultOptions()
	for _, o := range opts {
		o(&options)
	}
	f, err := objfile.OpenBytes(data, objfile.DefaultOptions())
	if err != nil {
		return nil, err
	}
	sess, err := newSessionFromFile(f, options)
	if err != nil {
		f.Close()
		return nil, err
	}
	return sess, nil
}

func newSessionFromFile(f *objfile.File, options Options) (*Session, error) {
	group := options.Group
	registry, err := objfile.NewRegistry(f, group)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		file:     f,
		registry: registry,
		order:    f.ByteOrder(),
		errs:     ringlog.NewLogger(options.ErrorRingCapacity),
	}

	debugInfo, _ := registry.Section("debug_info")
	debugAbbrev, _ := registry.Section("debug_abbrev")
	debugTypes, _ := registry.Section("debug_types")

	ctx, err := NewContext(f.ByteOrder(), debugInfo, debugAbbrev, debugTypes)
	if err != nil {
		return nil, err
	}
	sess.ctx = ctx

	if debugFrame, ok := registry.Section("debug_frame"); ok && len(debugFrame) > 0 {
		fs, err := ParseFrameSection(debugFrame, f.ByteOrder(), f.AddressSize())
		if err != nil {
			sess.errs.Logf(ringlog.Allow, "debug_frame", "%v", err)
		} else {
			sess.frame = fs
		}
	}

	sess.debugLine, _ = registry.Section("debug_line")
	sess.debugLineStr, _ = registry.Section("debug_line_str")
	sess.debugStr, _ = registry.Section("debug_str")
	sess.debugStrOffsets, _ = registry.Section("debug_str_offsets")
	sess.debugAddr, _ = registry.Section("debug_addr")
	sess.debugLoc, _ = registry.Section("debug_loc")
	sess.debugLoclists, _ = registry.Section("debug_loclists")
	sess.debugRanges, _ = registry.Section("debug_ranges")
	sess.debugRnglists, _ = registry.Section("debug_rnglists")
	sess.debugAranges, _ = registry.Section("debug_aranges")
	sess.debugPubnames, _ = registry.Section("debug_pubnames")
	sess.debugPubtypes, _ = registry.Section("debug_pubtypes")
	sess.debugMacinfo, _ = registry.Section("debug_macinfo")
	sess.debugMacro, _ = registry.Section("debug_macro")

	return sess, nil
}

// resolveCompanionDebugFile tries, in order: GNU debuglink, build-id
// note, and (for Mach-O objects, keyed off objectPath since a .dSYM
// bundle is located relative to the original binary's own path rather
// than found by section content) a sibling .dSYM bundle.
func resolveCompanionDebugFile(f *objfile.File, objectPath string, options Options) (path string, data []byte, source objfile.PathSource, ok bool) {
	searchPaths := options.DebugSearchPaths
	if len(searchPaths) == 0 {
		searchPaths = objfile.DefaultDebugPaths(".")
	}

	if _, idx, ok := f.Section(".gnu_debuglink", options.Group); ok {
		if data, err := f.LoadSection(idx); err == nil {
			if path, data, ok := objfile.ResolveDebugLink(data, searchPaths); ok {
				return path, data, objfile.PathDebuglink, true
			}
		}
	}

	if idx, ok := findBuildIDSection(f, options.Group); ok {
		// The note holds namesz, descsz and type words, the 4-byte-padded
		// name, then the build-id bytes themselves as its descriptor.
		if data, err := f.LoadSection(idx); err == nil && len(data) >= 12 {
			namesz := int(f.ByteOrder().Uint32(data[0:4]))
			descsz := int(f.ByteOrder().Uint32(data[4:8]))
			descOff := 12 + (namesz+3)&^3
			if descOff >= 12 && descsz > 0 && descOff+descsz <= len(data) {
				if path, resolved, ok := objfile.ResolveBuildID(data[descOff:descOff+descsz], searchPaths); ok {
					return path, resolved, objfile.PathDebuglink, true
				}
			}
		}
	}

	if f.IsMachO() && objectPath != "" {
		if path, data, ok := objfile.ResolveDSYM(objectPath); ok {
			return path, data, objfile.PathDSYM, true
		}
	}

	return "", nil, objfile.PathOriginal, false
}

func findBuildIDSection(f *objfile.File, group int) (int, bool) {
	for _, name := range []string{".note.gnu.build-id", ".note.build-id"} {
		if _, idx, ok := f.Section(name, group); ok {
			return idx, true
		}
	}
	return -1, false
}

// AttachTied attaches a split-DWARF (.dwo) companion Session, opened
// separately via Open or OpenReader, so that skeleton-unit references
// (DW_AT_GNU_dwo_name / DW_AT_dwo_name) can be followed to their split
// compile units.
func (s *Session) AttachTied(tied *Session) {
	s.tied = tied
	s.ctx.AttachSupplementary(tied.ctx)
}

// Tied returns the attached split-DWARF session, if any.
func (s *Session) Tied() *Session { return s.tied }

// Context returns the session's unit/DIE context.
func (s *Session) Context() *Context { return s.ctx }

// Frame returns the session's parsed .debug_frame section, or nil if the
// object carries none.
func (s *Session) Frame() *FrameSection { return s.frame }

// Errors returns the session's harmless-error ring, which accumulates
// non-fatal section-level problems encountered while opening the session,
// without aborting the whole session. At present the only problem logged
// there is a .debug_frame that fails to parse.
func (s *Session) Errors() *ringlog.Logger { return s.errs }

// Close releases the underlying object file and closes any attached tied
// session.
func (s *Session) Close() error {
	if s.tied != nil {
		s.tied.Close()
	}
	return s.file.Close()
}
