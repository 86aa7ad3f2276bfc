package objfile

import (
	"encoding/binary"
	"testing"
)

// buildMinimalMachO64 builds a big-endian-magic (machoMagic64) Mach-O
// object with one LC_SEGMENT_64 command carrying a single
// "__debug_info" section, following the mach_header_64/segment_command_64/
// section_64 layouts parseMachO expects.
func buildMinimalMachO64(payload []byte) []byte {
	order := binary.BigEndian

	const (
		hdrSize  = 32
		segSize  = 72
		sectSize = 80
	)
	cmdsize := uint32(segSize + sectSize)
	dataOff := hdrSize + int(cmdsize)

	buf := make([]byte, dataOff+len(payload))

	order.PutUint32(buf[0:4], machoMagic64)
	order.PutUint32(buf[4:8], 0x01000007) // CPU_TYPE_X86 | CPU_ARCH_ABI64
	order.PutUint32(buf[8:12], 0)         // cpusubtype
	order.PutUint32(buf[12:16], 0x1)      // filetype (MH_OBJECT)
	order.PutUint32(buf[16:20], 1)        // ncmds
	order.PutUint32(buf[20:24], cmdsize)  // sizeofcmds
	order.PutUint32(buf[24:28], 0)        // flags
	order.PutUint32(buf[28:32], 0)        // reserved

	cmd := buf[hdrSize:]
	order.PutUint32(cmd[0:4], lcSegment64)
	order.PutUint32(cmd[4:8], cmdsize)
	copy(cmd[8:24], "__DWARF")
	// vmaddr(8) vmsize(8) fileoff(8) filesize(8) at [24:56]
	order.PutUint64(cmd[40:48], uint64(len(payload))) // filesize
	// maxprot(4) initprot(4) at [56:64]
	order.PutUint32(cmd[64:68], 1) // nsects

	sect := cmd[segSize:]
	copy(sect[0:16], "__debug_info")
	copy(sect[16:32], "__DWARF")
	order.PutUint64(sect[32:40], 0)                  // addr
	order.PutUint64(sect[40:48], uint64(len(payload))) // size
	order.PutUint32(sect[48:52], uint32(dataOff))      // offset

	copy(buf[dataOff:], payload)

	return buf
}

func TestParseMachOMinimal(t *testing.T) {
	payload := []byte{0x01, 0x02, 0x03, 0x04}
	buf := buildMinimalMachO64(payload)

	obj, err := parseMachO(buf, nil)
	if err != nil {
		t.Fatalf("parseMachO: %v", err)
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
	if obj.SectionInfo(0).Name != "__debug_info" {
		t.Fatalf("SectionInfo(0).Name = %q, want __debug_info", obj.SectionInfo(0).Name)
	}
	got, err := obj.LoadSection(0)
	if err != nil {
		t.Fatalf("LoadSection: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("LoadSection() = % x, want % x", got, payload)
	}
}

func TestDetectMachO(t *testing.T) {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, machoMagic64)
	if !detectMachO(buf) {
		t.Errorf("expected Mach-O 64 magic to be detected")
	}
	if detectMachO([]byte{0, 0, 0, 0}) {
		t.Errorf("did not expect non-Mach-O bytes to be detected")
	}
}

func TestTruncatedMachOHeader(t *testing.T) {
	if _, err := parseMachO([]byte{0xfe, 0xed, 0xfa}, nil); err == nil {
		t.Fatalf("expected an error for a truncated header")
	}
}
