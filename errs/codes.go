package errs

// Code categorises a curated error the way the session's "harmless error"
// ring and callers' ERROR-status returns need to distinguish failure kinds
// without string matching.
type Code int

// Error categories, grouped the way spec.md section 7 groups them.
const (
	// Malformed input.
	Truncated Code = iota
	MalformedLeb
	BadMagic
	TruncatedHeader
	SectionSizeOrOffsetLarge
	SectionStringOffsetBad
	BadTypeSize
	AbbrevMissing
	UnknownForm
	UnknownOpcode
	VersionUnsupported

	// Policy.
	UnhandledRelocation
	MissingBase
	AddrIndexOutOfRange

	// Resource.
	AllocFail
	IoError

	// Misuse.
	InvalidHandle
	OffsetSize
)

var codeNames = map[Code]string{
	Truncated:                "truncated",
	MalformedLeb:             "malformed leb128",
	BadMagic:                 "bad magic",
	TruncatedHeader:          "truncated header",
	SectionSizeOrOffsetLarge: "section size or offset too large",
	SectionStringOffsetBad:   "bad section string offset",
	BadTypeSize:              "bad type size",
	AbbrevMissing:            "abbreviation code not found",
	UnknownForm:              "unknown form",
	UnknownOpcode:            "unknown opcode",
	VersionUnsupported:       "unsupported version",
	UnhandledRelocation:      "unhandled relocation",
	MissingBase:              "missing base offset",
	AddrIndexOutOfRange:      "address index out of range",
	AllocFail:                "allocation failed",
	IoError:                  "i/o error",
	InvalidHandle:            "invalid handle",
	OffsetSize:               "invalid offset size",
}

// String returns the human-readable name of the code, used as the leading
// part of a curated error's message when no more specific message is given.
func (c Code) String() string {
	if s, ok := codeNames[c]; ok {
		return s
	}
	return "unknown error code"
}
