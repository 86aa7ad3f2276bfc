package dwarf

import (
	"encoding/binary"
	"testing"
)

func TestDisassembleExprLiteralAndPlusUconst(t *testing.T) {
	// DW_OP_lit4, DW_OP_plus_uconst 10, DW_OP_stack_value
	expr := []byte{byte(OpLit0 + 4), byte(OpPlusUconst), 10, byte(OpStackValue)}
	ops, err := DisassembleExpr(expr, binary.LittleEndian, 8)
	if err != nil {
		t.Fatalf("DisassembleExpr: %v", err)
	}
	if len(ops) != 3 {
		t.Fatalf("len(ops) = %d, want 3", len(ops))
	}
	if ops[0].Code != OpLit0+4 {
		t.Fatalf("ops[0].Code = %v, want lit4", ops[0].Code)
	}
	if ops[1].Code != OpPlusUconst || ops[1].Operands[0] != 10 {
		t.Fatalf("ops[1] = %+v, want plus_uconst(10)", ops[1])
	}
	if ops[2].Code != OpStackValue {
		t.Fatalf("ops[2].Code = %v, want stack_value", ops[2].Code)
	}
}

func TestDisassembleExprBreg(t *testing.T) {
	// DW_OP_breg3 with SLEB128 offset -16 (0x70 encoded as 0x70)
	expr := []byte{byte(OpBreg0 + 3), 0x70}
	ops, err := DisassembleExpr(expr, binary.LittleEndian, 8)
	if err != nil {
		t.Fatalf("DisassembleExpr: %v", err)
	}
	if len(ops) != 1 || ops[0].Operands[0] != 3 || ops[0].Operands[1] != -16 {
		t.Fatalf("ops = %+v, want breg3(-16)", ops)
	}
}

func TestOpcodeStringNaming(t *testing.T) {
	if OpLit0.String() != "DW_OP_lit0" {
		t.Errorf("OpLit0.String() = %q", OpLit0.String())
	}
	if (OpReg0 + 5).String() != "DW_OP_reg5" {
		t.Errorf("(OpReg0+5).String() = %q", (OpReg0 + 5).String())
	}
	if OpFbreg.String() != "DW_OP_fbreg" {
		t.Errorf("OpFbreg.String() = %q", OpFbreg.String())
	}
}

func TestDisassembleExprUnknownOpcode(t *testing.T) {
	if _, err := DisassembleExpr([]byte{0xff}, binary.LittleEndian, 8); err == nil {
		t.Fatalf("expected an error for an unknown opcode")
	}
}
