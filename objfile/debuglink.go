package objfile

import (
	"bytes"
	"hash/crc32"
	"os"
	"path/filepath"

	"github.com/brisklabs/dwarfview/errs"
)

// PathSource identifies where the debug information that ended up being
// read actually came from, per spec.md section 6's session-open outputs.
type PathSource int

const (
	PathOriginal PathSource = iota
	PathDebuglink
	PathDSYM
)

func (p PathSource) String() string {
	switch p {
	case PathDebuglink:
		return "debuglink"
	case PathDSYM:
		return "dsym"
	default:
		return "original"
	}
}

// DefaultDebugPaths is the default search list consulted when resolving a
// GNU debuglink, matching spec.md component 4.3.
func DefaultDebugPaths(objectDir string) []string {
	return []string{
		objectDir,
		"/usr/lib/debug",
		filepath.Join("/usr/lib/debug", objectDir),
	}
}

// ResolveDebugLink follows a GNU ".gnu_debuglink" section: its payload is
// a NUL-terminated filename followed by zero-padding to a 4-byte boundary
// and a trailing 4-byte little-endian CRC32 of the companion file's
// contents. It searches searchPaths in order and returns the first
// candidate whose CRC matches.
func ResolveDebugLink(debuglink []byte, searchPaths []string) (path string, data []byte, ok bool) {
	nul := bytes.IndexByte(debuglink, 0)
	if nul < 0 {
		return "", nil, false
	}
	name := string(debuglink[:nul])

	crcOff := (nul + 4) &^ 3
	if crcOff+4 > len(debuglink) {
		return "", nil, false
	}
	wantCRC := uint32(debuglink[crcOff]) | uint32(debuglink[crcOff+1])<<8 |
		uint32(debuglink[crcOff+2])<<16 | uint32(debuglink[crcOff+3])<<24

	for _, dir := range searchPaths {
		candidate := filepath.Join(dir, name)
		b, err := os.ReadFile(candidate)
		if err != nil {
			continue
		}
		if crc32.ChecksumIEEE(b) == wantCRC {
			return candidate, b, true
		}
	}
	return "", nil, false
}

// ResolveBuildID searches searchPaths for a companion debug file named
// after a build-id note, following the ".build-id/xx/yyyy...debug"
// convention: the first byte of the (big-endian-printed) build-id hex
// string is a subdirectory, the rest is the filename.
func ResolveBuildID(buildID []byte, searchPaths []string) (path string, data []byte, ok bool) {
	if len(buildID) < 2 {
		return "", nil, false
	}
	hexID := hexString(buildID)
	rel := filepath.Join(".build-id", hexID[:2], hexID[2:]+".debug")

	for _, dir := range searchPaths {
		candidate := filepath.Join(dir, rel)
		b, err := os.ReadFile(candidate)
		if err == nil {
			return candidate, b, true
		}
	}
	return "", nil, false
}

// ResolveDSYM searches for a sibling ".dSYM" bundle for a Mach-O object at
// objectPath, per the conventional
// "<name>.dSYM/Contents/Resources/DWARF/<name>" layout.
func ResolveDSYM(objectPath string) (path string, data []byte, ok bool) {
	base := filepath.Base(objectPath)
	bundle := objectPath + ".dSYM"
	candidate := filepath.Join(bundle, "Contents", "Resources", "DWARF", base)
	b, err := os.ReadFile(candidate)
	if err != nil {
		return "", nil, false
	}
	return candidate, b, true
}

func hexString(b []byte) string {
	const digits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = digits[c>>4]
		out[i*2+1] = digits[c&0xf]
	}
	return string(out)
}

// errBadDebugLink is returned by callers that need to distinguish "no
// companion file was found" (not an error; the caller proceeds with
// whatever sections the primary object has) from a malformed
// .gnu_debuglink payload.
var errBadDebugLink = errs.New(errs.SectionStringOffsetBad, "objfile: malformed .gnu_debuglink section")
