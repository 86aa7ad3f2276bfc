package dwarf

import (
	"encoding/binary"
	"fmt"

	"github.com/brisklabs/dwarfview/errs"
)

// Opcode identifies a DWARF expression operator (DW_OP_*). The full
// table is drawn from DWARF5 section 7.7.1, cross-checked against
// other_examples/ConradIrwin-go-dwarf's own opcode table and against the
// teacher's dwarf_loclist_operations.go, which implements the same
// opcodes as an evaluator rather than a disassembler.
type Opcode uint8

const (
	OpAddr    Opcode = 0x03
	OpDeref   Opcode = 0x06
	OpConst1u Opcode = 0x08
	OpConst1s Opcode = 0x09
	OpConst2u Opcode = 0x0a
	OpConst2s Opcode = 0x0b
	OpConst4u Opcode = 0x0c
	OpConst4s Opcode = 0x0d
	OpConst8u Opcode = 0x0e
	OpConst8s Opcode = 0x0f
	OpConstu  Opcode = 0x10
	OpConsts  Opcode = 0x11
	OpDup     Opcode = 0x12
	OpDrop    Opcode = 0x13
	OpOver    Opcode = 0x14
	OpPick    Opcode = 0x15
	OpSwap    Opcode = 0x16
	OpRot     Opcode = 0x17
	OpXderef  Opcode = 0x18
	OpAbs     Opcode = 0x19
	OpAnd     Opcode = 0x1a
	OpDiv     Opcode = 0x1b
	OpMinus   Opcode = 0x1c
	OpMod     Opcode = 0x1d
	OpMul     Opcode = 0x1e
	OpNeg     Opcode = 0x1f
	OpNot     Opcode = 0x20
	OpOr      Opcode = 0x21
	OpPlus    Opcode = 0x22
	OpPlusUconst Opcode = 0x23
	OpShl     Opcode = 0x24
	OpShr     Opcode = 0x25
	OpShra    Opcode = 0x26
	OpXor     Opcode = 0x27
	OpBra     Opcode = 0x28
	OpEq      Opcode = 0x29
	OpGe      Opcode = 0x2a
	OpGt      Opcode = 0x2b
	OpLe      Opcode = 0x2c
	OpLt      Opcode = 0x2d
	OpNe      Opcode = 0x2e
	OpSkip    Opcode = 0x2f
	OpLit0    Opcode = 0x30 // lit0..lit31 = 0x30..0x4f
	OpReg0    Opcode = 0x50 // reg0..reg31 = 0x50..0x6f
	OpBreg0   Opcode = 0x70 // breg0..breg31 = 0x70..0x8f
	OpRegx    Opcode = 0x90
	OpFbreg   Opcode = 0x91
	OpBregx   Opcode = 0x92
	OpPiece   Opcode = 0x93
	OpDerefSize Opcode = 0x94
	OpXderefSize Opcode = 0x95
	OpNop     Opcode = 0x96
	OpPushObjectAddress Opcode = 0x97
	OpCall2   Opcode = 0x98
	OpCall4   Opcode = 0x99
	OpCallRef Opcode = 0x9a
	OpFormTlsAddress Opcode = 0x9b
	OpCallFrameCFA Opcode = 0x9c
	OpBitPiece Opcode = 0x9d
	OpImplicitValue Opcode = 0x9e
	OpStackValue Opcode = 0x9f
	OpImplicitPointer Opcode = 0xa0
	OpAddrx   Opcode = 0xa1
	OpConstx  Opcode = 0xa2
	OpEntryValue Opcode = 0xa3
	OpConstTypeOp Opcode = 0xa4
	OpRegvalType Opcode = 0xa5
	OpDerefType Opcode = 0xa6
	OpXderefType Opcode = 0xa7
	OpConvert Opcode = 0xa8
	OpReinterpret Opcode = 0xa9

	OpGNUPushTLSAddress Opcode = 0xe0
	OpGNUEntryValue     Opcode = 0xf3
)

// Op is one disassembled expression operator plus its decoded operands,
// in encounter order.
type Op struct {
	Code     Opcode
	Operands []int64
}

// DisassembleExpr decodes a DWARF expression (DW_AT_location,
// DW_AT_frame_base, a loclist/CFA expression operand, ...) into its
// constituent operators without evaluating them — this reader exposes
// structure, leaving evaluation against a concrete register file and
// memory image to the caller, same division of labor as RowForPC's
// RegisterRule values.
func DisassembleExpr(expr []byte, order binary.ByteOrder, addressSize int) ([]Op, error) {
	c := newCursor(expr, order)
	var ops []Op

	for c.remaining() > 0 {
		opByte, err := c.readU8()
		if err != nil {
			return nil, err
		}
		code := Opcode(opByte)
		op := Op{Code: code}

		switch {
		case code >= OpLit0 && code < OpLit0+32:
			// literal encoded in the opcode itself; no operand to read

		case code >= OpReg0 && code < OpReg0+32:
			// register number encoded in the opcode itself

		case code >= OpBreg0 && code < OpBreg0+32:
			v, err := c.readSLEB()
			if err != nil {
				return nil, err
			}
			op.Operands = []int64{int64(code - OpBreg0), v}

		default:
			switch code {
			case OpAddr:
				v, err := c.readAddr(addressSize)
				if err != nil {
					return nil, err
				}
				op.Operands = []int64{int64(v)}
			case OpConst1u:
				v, err := c.readU8()
				op.Operands, err = single(int64(v), err)
				if err != nil {
					return nil, err
				}
			case OpConst1s:
				v, err := c.readU8()
				op.Operands, err = single(int64(int8(v)), err)
				if err != nil {
					return nil, err
				}
			case OpConst2u:
				v, err := c.readU16()
				op.Operands, err = single(int64(v), err)
				if err != nil {
					return nil, err
				}
			case OpConst2s:
				v, err := c.readU16()
				op.Operands, err = single(int64(int16(v)), err)
				if err != nil {
					return nil, err
				}
			case OpConst4u:
				v, err := c.readU32()
				op.Operands, err = single(int64(v), err)
				if err != nil {
					return nil, err
				}
			case OpConst4s:
				v, err := c.readU32()
				op.Operands, err = single(int64(int32(v)), err)
				if err != nil {
					return nil, err
				}
			case OpConst8u, OpConst8s:
				v, err := c.readU64()
				op.Operands, err = single(int64(v), err)
				if err != nil {
					return nil, err
				}
			case OpConstu:
				v, err := c.readULEB()
				op.Operands, err = single(int64(v), err)
				if err != nil {
					return nil, err
				}
			case OpConsts:
				v, err := c.readSLEB()
				op.Operands, err = single(v, err)
				if err != nil {
					return nil, err
				}
			case OpPick, OpDerefSize, OpXderefSize:
				v, err := c.readU8()
				op.Operands, err = single(int64(v), err)
				if err != nil {
					return nil, err
				}
			case OpPlusUconst:
				v, err := c.readULEB()
				op.Operands, err = single(int64(v), err)
				if err != nil {
					return nil, err
				}
			case OpSkip, OpBra:
				v, err := c.readU16()
				op.Operands, err = single(int64(int16(v)), err)
				if err != nil {
					return nil, err
				}
			case OpRegx, OpConstx, OpAddrx:
				v, err := c.readULEB()
				op.Operands, err = single(int64(v), err)
				if err != nil {
					return nil, err
				}
			case OpFbreg:
				v, err := c.readSLEB()
				op.Operands, err = single(v, err)
				if err != nil {
					return nil, err
				}
			case OpBregx:
				reg, err := c.readULEB()
				if err != nil {
					return nil, err
				}
				off, err := c.readSLEB()
				if err != nil {
					return nil, err
				}
				op.Operands = []int64{int64(reg), off}
			case OpPiece:
				v, err := c.readULEB()
				op.Operands, err = single(int64(v), err)
				if err != nil {
					return nil, err
				}
			case OpBitPiece:
				size, err := c.readULEB()
				if err != nil {
					return nil, err
				}
				offset, err := c.readULEB()
				if err != nil {
					return nil, err
				}
				op.Operands = []int64{int64(size), int64(offset)}
			case OpImplicitValue:
				n, err := c.readULEB()
				if err != nil {
					return nil, err
				}
				if _, err := c.readBytes(int(n)); err != nil {
					return nil, err
				}
				op.Operands = []int64{int64(n)}
			case OpCall2:
				v, err := c.readU16()
				op.Operands, err = single(int64(v), err)
				if err != nil {
					return nil, err
				}
			case OpCall4:
				v, err := c.readU32()
				op.Operands, err = single(int64(v), err)
				if err != nil {
					return nil, err
				}
			case OpCallRef:
				v, err := c.readU32() // 4-byte offset_size assumed absent unit context
				op.Operands, err = single(int64(v), err)
				if err != nil {
					return nil, err
				}
			case OpEntryValue, OpGNUEntryValue:
				n, err := c.readULEB()
				if err != nil {
					return nil, err
				}
				if _, err := c.readBytes(int(n)); err != nil {
					return nil, err
				}
				op.Operands = []int64{int64(n)}
			case OpConvert, OpReinterpret:
				v, err := c.readULEB()
				op.Operands, err = single(int64(v), err)
				if err != nil {
					return nil, err
				}
			case OpDerefType, OpXderefType:
				size, err := c.readU8()
				if err != nil {
					return nil, err
				}
				dieOff, err := c.readULEB()
				if err != nil {
					return nil, err
				}
				op.Operands = []int64{int64(size), int64(dieOff)}
			case OpRegvalType:
				reg, err := c.readULEB()
				if err != nil {
					return nil, err
				}
				dieOff, err := c.readULEB()
				if err != nil {
					return nil, err
				}
				op.Operands = []int64{int64(reg), int64(dieOff)}
			case OpConstTypeOp:
				dieOff, err := c.readULEB()
				if err != nil {
					return nil, err
				}
				size, err := c.readU8()
				if err != nil {
					return nil, err
				}
				if _, err := c.readBytes(int(size)); err != nil {
					return nil, err
				}
				op.Operands = []int64{int64(dieOff), int64(size)}
			case OpImplicitPointer:
				dieOff, err := c.readU32()
				if err != nil {
					return nil, err
				}
				offset, err := c.readSLEB()
				if err != nil {
					return nil, err
				}
				op.Operands = []int64{int64(dieOff), offset}
			case OpDup, OpDrop, OpOver, OpSwap, OpRot, OpXderef, OpAbs, OpAnd, OpDiv, OpMinus,
				OpMod, OpMul, OpNeg, OpNot, OpOr, OpPlus, OpShl, OpShr, OpShra, OpXor,
				OpEq, OpGe, OpGt, OpLe, OpLt, OpNe, OpNop, OpPushObjectAddress, OpFormTlsAddress,
				OpCallFrameCFA, OpStackValue, OpGNUPushTLSAddress, OpDeref:
				// no operands

			default:
				return nil, errs.New(errs.UnknownOpcode, "dwarf: unknown expression opcode %#x", opByte)
			}
		}

		ops = append(ops, op)
	}

	return ops, nil
}

func single(v int64, err error) ([]int64, error) {
	if err != nil {
		return nil, err
	}
	return []int64{v}, nil
}

func (o Opcode) String() string {
	if o >= OpLit0 && o < OpLit0+32 {
		return fmt.Sprintf("DW_OP_lit%d", o-OpLit0)
	}
	if o >= OpReg0 && o < OpReg0+32 {
		return fmt.Sprintf("DW_OP_reg%d", o-OpReg0)
	}
	if o >= OpBreg0 && o < OpBreg0+32 {
		return fmt.Sprintf("DW_OP_breg%d", o-OpBreg0)
	}
	if s, ok := opNames[o]; ok {
		return "DW_OP_" + s
	}
	return fmt.Sprintf("DW_OP_unknown(%#x)", uint8(o))
}

var opNames = map[Opcode]string{
	OpAddr: "addr", OpDeref: "deref", OpConst1u: "const1u", OpConst1s: "const1s",
	OpConst2u: "const2u", OpConst2s: "const2s", OpConst4u: "const4u", OpConst4s: "const4s",
	OpConst8u: "const8u", OpConst8s: "const8s", OpConstu: "constu", OpConsts: "consts",
	OpDup: "dup", OpDrop: "drop", OpOver: "over", OpPick: "pick", OpSwap: "swap", OpRot: "rot",
	OpXderef: "xderef", OpAbs: "abs", OpAnd: "and", OpDiv: "div", OpMinus: "minus", OpMod: "mod",
	OpMul: "mul", OpNeg: "neg", OpNot: "not", OpOr: "or", OpPlus: "plus", OpPlusUconst: "plus_uconst",
	OpShl: "shl", OpShr: "shr", OpShra: "shra", OpXor: "xor", OpBra: "bra", OpEq: "eq", OpGe: "ge",
	OpGt: "gt", OpLe: "le", OpLt: "lt", OpNe: "ne", OpSkip: "skip", OpRegx: "regx", OpFbreg: "fbreg",
	OpBregx: "bregx", OpPiece: "piece", OpDerefSize: "deref_size", OpXderefSize: "xderef_size",
	OpNop: "nop", OpPushObjectAddress: "push_object_address", OpCall2: "call2", OpCall4: "call4",
	OpCallRef: "call_ref", OpFormTlsAddress: "form_tls_address", OpCallFrameCFA: "call_frame_cfa",
	OpBitPiece: "bit_piece", OpImplicitValue: "implicit_value", OpStackValue: "stack_value",
	OpImplicitPointer: "implicit_pointer", OpAddrx: "addrx", OpConstx: "constx",
	OpEntryValue: "entry_value", OpConstTypeOp: "const_type", OpRegvalType: "regval_type",
	OpDerefType: "deref_type", OpXderefType: "xderef_type", OpConvert: "convert",
	OpReinterpret: "reinterpret", OpGNUPushTLSAddress: "GNU_push_tls_address",
	OpGNUEntryValue: "GNU_entry_value",
}
