package objfile

import (
	"encoding/binary"
	"testing"
)

// buildELF64WithSections is buildMinimalELF64 generalized to an arbitrary
// ordered list of named sections, to exercise Registry's canonical-name
// resolution across several sections at once.
func buildELF64WithSections(sections []struct {
	name    string
	payload []byte
}) []byte {
	const (
		ehdrSize = 64
		shdrSize = 64
	)
	order := binary.LittleEndian

	shstrtab := []byte{0x00}
	nameOffs := make([]uint32, len(sections))
	for i, s := range sections {
		nameOffs[i] = uint32(len(shstrtab))
		shstrtab = append(shstrtab, []byte(s.name+"\x00")...)
	}
	shstrtabNameOff := uint32(len(shstrtab))
	shstrtab = append(shstrtab, []byte(".shstrtab\x00")...)

	dataOffs := make([]int, len(sections))
	off := ehdrSize
	for i, s := range sections {
		dataOffs[i] = off
		off += len(s.payload)
	}
	shstrtabOff := off
	off += len(shstrtab)
	shoff := off

	numSections := len(sections) + 2
	buf := make([]byte, shoff+numSections*shdrSize)

	buf[0], buf[1], buf[2], buf[3] = 0x7f, 'E', 'L', 'F'
	buf[4] = elfClass64
	buf[5] = elfData2LSB
	buf[6] = 1

	order.PutUint16(buf[16:18], 1)
	order.PutUint16(buf[18:20], 62)
	order.PutUint64(buf[40:48], uint64(shoff))
	order.PutUint16(buf[58:60], shdrSize)
	order.PutUint16(buf[60:62], uint16(numSections))
	order.PutUint16(buf[62:64], uint16(numSections-1))

	for i, s := range sections {
		copy(buf[dataOffs[i]:], s.payload)
	}
	copy(buf[shstrtabOff:], shstrtab)

	writeShdr := func(i int, name uint32, typ uint32, offset, size uint64) {
		b := buf[shoff+i*shdrSize:]
		order.PutUint32(b[0:4], name)
		order.PutUint32(b[4:8], typ)
		order.PutUint64(b[24:32], offset)
		order.PutUint64(b[32:40], size)
	}
	writeShdr(0, 0, shtNull, 0, 0)
	for i, s := range sections {
		writeShdr(i+1, nameOffs[i], 1, uint64(dataOffs[i]), uint64(len(s.payload)))
	}
	writeShdr(numSections-1, shstrtabNameOff, shtStrtab, uint64(shstrtabOff), uint64(len(shstrtab)))

	return buf
}

func TestRegistryResolvesPlainName(t *testing.T) {
	buf := buildELF64WithSections([]struct {
		name    string
		payload []byte
	}{
		{".debug_info", []byte{0x01, 0x02}},
	})

	f, err := OpenBytes(buf, DefaultOptions())
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}
	reg, err := NewRegistry(f, GroupAny)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	data, ok := reg.Section("debug_info")
	if !ok {
		t.Fatalf("Section(debug_info): not found")
	}
	if string(data) != "\x01\x02" {
		t.Errorf("Section(debug_info) = % x", data)
	}
	if !reg.HasDebugInfo() {
		t.Errorf("HasDebugInfo() = false, want true")
	}
}

func TestRegistryResolvesDWOVariant(t *testing.T) {
	buf := buildELF64WithSections([]struct {
		name    string
		payload []byte
	}{
		{".debug_info.dwo", []byte{0xaa}},
	})

	f, err := OpenBytes(buf, DefaultOptions())
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}
	reg, err := NewRegistry(f, GroupAny)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	data, ok := reg.Section("debug_info")
	if !ok {
		t.Fatalf("Section(debug_info): not found via .dwo variant")
	}
	if string(data) != "\xaa" {
		t.Errorf("Section(debug_info) = % x", data)
	}
}

func TestRegistryResolvesCompressedZVariant(t *testing.T) {
	buf := buildELF64WithSections([]struct {
		name    string
		payload []byte
	}{
		// GNU .zdebug payload: "ZLIB", big-endian uncompressed size 2, then
		// a zlib stream holding one stored block of {0xbb, 0xcc}.
		{".zdebug_info", []byte{
			'Z', 'L', 'I', 'B', 0, 0, 0, 0, 0, 0, 0, 2,
			0x78, 0x01, 0x01, 0x02, 0x00, 0xfd, 0xff, 0xbb, 0xcc, 0x02, 0x44, 0x01, 0x88,
		}},
	})

	f, err := OpenBytes(buf, DefaultOptions())
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}
	reg, err := NewRegistry(f, GroupAny)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if _, ok := reg.Section("debug_info"); !ok {
		t.Fatalf("Section(debug_info): not found via .zdebug variant")
	}
}

func TestRegistryHasDebugInfoFalseWhenAbsent(t *testing.T) {
	buf := buildELF64WithSections([]struct {
		name    string
		payload []byte
	}{
		{".text", []byte{0x90}},
	})

	f, err := OpenBytes(buf, DefaultOptions())
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}
	reg, err := NewRegistry(f, GroupAny)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if reg.HasDebugInfo() {
		t.Errorf("HasDebugInfo() = true, want false")
	}
	if _, ok := reg.Section("debug_info"); ok {
		t.Errorf("Section(debug_info) found unexpectedly")
	}
}

func TestIsDWOName(t *testing.T) {
	if !IsDWOName(".debug_info.dwo") {
		t.Errorf("IsDWOName(.debug_info.dwo) = false, want true")
	}
	if IsDWOName(".debug_info") {
		t.Errorf("IsDWOName(.debug_info) = true, want false")
	}
}
