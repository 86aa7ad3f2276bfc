package dwarf

import (
	"encoding/binary"
	"testing"
)

// buildMinimalELF64WithSections constructs a tiny little-endian ELF64
// relocatable object whose sections carry the given name->payload pairs,
// in the order given, following the same minimal layout as objfile's own
// buildMinimalELF64 test fixture (section header string table last).
func buildMinimalELF64WithSections(t *testing.T, sections []struct {
	name    string
	payload []byte
}) []byte {
	t.Helper()
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

	numSections := len(sections) + 2 // null + sections + shstrtab
	buf := make([]byte, shoff+numSections*shdrSize)

	buf[0], buf[1], buf[2], buf[3] = 0x7f, 'E', 'L', 'F'
	buf[4] = 2 // ELFCLASS64
	buf[5] = 1 // ELFDATA2LSB
	buf[6] = 1 // EV_CURRENT

	order.PutUint16(buf[16:18], 1)  // e_type = ET_REL
	order.PutUint16(buf[18:20], 62) // e_machine = EM_X86_64
	order.PutUint64(buf[40:48], uint64(shoff))
	order.PutUint16(buf[58:60], shdrSize)
	order.PutUint16(buf[60:62], uint16(numSections))
	order.PutUint16(buf[62:64], uint16(numSections-1)) // shstrndx

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
	writeShdr(0, 0, 0 /* SHT_NULL */, 0, 0)
	for i, s := range sections {
		writeShdr(i+1, nameOffs[i], 1 /* SHT_PROGBITS */, uint64(dataOffs[i]), uint64(len(s.payload)))
	}
	writeShdr(numSections-1, shstrtabNameOff, 3 /* SHT_STRTAB */, uint64(shstrtabOff), uint64(len(shstrtab)))

	return buf
}

func TestOpenReaderParsesDebugInfo(t *testing.T) {
	debugInfo, debugAbbrev := buildMinimalUnit(t)

	buf := buildMinimalELF64WithSections(t, []struct {
		name    string
		payload []byte
	}{
		{".debug_info", debugInfo},
		{".debug_abbrev", debugAbbrev},
	})

	sess, err := OpenReader(buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer sess.Close()

	if len(sess.Context().Units()) != 1 {
		t.Fatalf("Units() = %d, want 1", len(sess.Context().Units()))
	}
	if sess.Frame() != nil {
		t.Fatalf("Frame() should be nil: object carries no .debug_frame")
	}
	if sess.Errors() == nil {
		t.Fatalf("Errors() should return a non-nil ring even with nothing logged")
	}
}

func TestOpenReaderNoDebugInfoStillOpens(t *testing.T) {
	buf := buildMinimalELF64WithSections(t, []struct {
		name    string
		payload []byte
	}{
		{".text", []byte{0x90, 0x90}},
	})

	sess, err := OpenReader(buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer sess.Close()

	if len(sess.Context().Units()) != 0 {
		t.Fatalf("Units() = %d, want 0", len(sess.Context().Units()))
	}
}
