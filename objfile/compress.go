package objfile

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"

	"github.com/brisklabs/dwarfview/errs"
)

// Section compression flavours recognised by the object front end
// (spec.md component 4.2).
const (
	compressNone = iota
	compressZlibELF     // SHF_COMPRESSED, Elf{32,64}_Chdr prefix
	compressZlibGNU     // ".zdebug_*" section name, "ZLIB" + 8-byte size prefix
	compressZlibMachO   // Mach-O "compressed section" header (S_ATTR_... style)
)

// zlibDecompressor is the built-in Decompressor used unless the caller
// overrides it; grounded on the zlib.NewReader wrapping shape of
// other_examples' ianlewis-go-dictzip reader, generalized from gzip to
// zlib framing (the format spec.md's component 4.2 actually names).
type zlibDecompressor struct{}

func (zlibDecompressor) Decompress(compressed []byte, decompressedSize uint64) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, errs.New(errs.IoError, "zlib: %v", err)
	}
	defer zr.Close()

	out := make([]byte, 0, decompressedSize)
	buf := bytes.NewBuffer(out)
	if _, err := io.Copy(buf, zr); err != nil {
		return nil, errs.New(errs.IoError, "zlib: %v", err)
	}
	return buf.Bytes(), nil
}

// decompressGNU handles the GNU ".zdebug_*" convention: the section's raw
// bytes begin with the 4-byte magic "ZLIB" followed by an 8-byte
// big-endian decompressed size, followed by a raw zlib stream.
func decompressGNU(raw []byte, d Decompressor) ([]byte, error) {
	if len(raw) < 12 || string(raw[:4]) != "ZLIB" {
		return nil, errs.New(errs.BadMagic, "not a .zdebug section (missing ZLIB magic)")
	}
	size := binary.BigEndian.Uint64(raw[4:12])
	return d.Decompress(raw[12:], size)
}

// decompressELF handles SHF_COMPRESSED sections: an Elf32_Chdr/Elf64_Chdr
// header (type, reserved, size, addralign in the 64-bit form; type, size,
// addralign in the 32-bit form) precedes the compressed stream. Only
// ELFCOMPRESS_ZLIB (value 1) is decompressed; for any other type it
// returns nil bytes, that type and a nil error, and the caller
// (elfObject.LoadSection) turns that into an IoError.
func decompressELF(raw []byte, is64 bool, order binary.ByteOrder, d Decompressor) ([]byte, compressionType, error) {
	var chType uint32
	var size uint64
	var hdrLen int

	if is64 {
		if len(raw) < 24 {
			return nil, 0, errs.New(errs.Truncated, "truncated Elf64_Chdr")
		}
		chType = order.Uint32(raw[0:4])
		size = order.Uint64(raw[8:16])
		hdrLen = 24
	} else {
		if len(raw) < 12 {
			return nil, 0, errs.New(errs.Truncated, "truncated Elf32_Chdr")
		}
		chType = order.Uint32(raw[0:4])
		size = uint64(order.Uint32(raw[4:8]))
		hdrLen = 12
	}

	ct := compressionType(chType)
	if ct != compressionZlib {
		return nil, ct, nil
	}

	out, err := d.Decompress(raw[hdrLen:], size)
	return out, ct, err
}

type compressionType uint32

const (
	compressionZlib compressionType = 1
	compressionZstd compressionType = 2
)
