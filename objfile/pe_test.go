package objfile

import (
	"encoding/binary"
	"testing"
)

// buildMinimalPE builds a minimal PE/COFF object: a DOS stub pointing
// directly at the PE signature, a COFF header with no optional header,
// and one ".debug_info" section.
func buildMinimalPE(payload []byte) []byte {
	order := binary.LittleEndian

	const (
		dosHdrSize = 0x40
		coffSize   = 20
		sectSize   = 40
	)
	peOff := uint32(dosHdrSize)
	coffOff := peOff + 4
	sectionTableOff := coffOff + coffSize
	dataOff := int(sectionTableOff) + sectSize

	buf := make([]byte, dataOff+len(payload))

	order.PutUint16(buf[0:2], peDosMagic)
	order.PutUint32(buf[0x3c:0x40], peOff)
	order.PutUint32(buf[peOff:peOff+4], peSignature)

	coff := buf[coffOff:]
	order.PutUint16(coff[0:2], imageFileMachineAMD64)
	order.PutUint16(coff[2:4], 1) // NumberOfSections
	order.PutUint32(coff[4:8], 0) // TimeDateStamp
	order.PutUint32(coff[8:12], 0) // PointerToSymbolTable
	order.PutUint32(coff[12:16], 0) // NumberOfSymbols
	order.PutUint16(coff[16:18], 0) // SizeOfOptionalHeader
	order.PutUint16(coff[18:20], 0) // Characteristics

	sect := buf[sectionTableOff:]
	copy(sect[0:8], ".debug_info")
	order.PutUint32(sect[8:12], 0)                    // VirtualSize
	order.PutUint32(sect[12:16], 0)                    // VirtualAddress
	order.PutUint32(sect[16:20], uint32(len(payload))) // SizeOfRawData
	order.PutUint32(sect[20:24], uint32(dataOff))      // PointerToRawData

	copy(buf[dataOff:], payload)

	return buf
}

func TestParsePEMinimal(t *testing.T) {
	payload := []byte{0xaa, 0xbb, 0xcc, 0xdd}
	buf := buildMinimalPE(payload)

	obj, err := parsePE(buf, nil)
	if err != nil {
		t.Fatalf("parsePE: %v", err)
	}
	if obj.AddressSize() != 8 {
		t.Errorf("AddressSize() = %d, want 8", obj.AddressSize())
	}
	if obj.Machine() != MachineX86_64 {
		t.Errorf("Machine() = %v, want x86-64", obj.Machine())
	}
	if obj.SectionCount() != 1 {
		t.Fatalf("SectionCount() = %d, want 1", obj.SectionCount())
	}
	// Section names are 8 bytes fixed-width in the header; ".debug_i" is
	// all that fits without a string-table long-name entry.
	if obj.SectionInfo(0).Name != ".debug_i" {
		t.Fatalf("SectionInfo(0).Name = %q, want .debug_i", obj.SectionInfo(0).Name)
	}
	got, err := obj.LoadSection(0)
	if err != nil {
		t.Fatalf("LoadSection: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("LoadSection() = % x, want % x", got, payload)
	}
}

func TestDetectPE(t *testing.T) {
	buf := buildMinimalPE(nil)
	if !detectPE(buf) {
		t.Errorf("expected PE signature to be detected")
	}
	if detectPE([]byte{0, 0, 0, 0}) {
		t.Errorf("did not expect non-PE bytes to be detected")
	}
}

func TestParsePENotAPEFile(t *testing.T) {
	if _, err := parsePE(make([]byte, 0x40), nil); err == nil {
		t.Fatalf("expected an error for data with no PE signature")
	}
}
