package dwarf

import (
	"encoding/binary"

	"github.com/brisklabs/dwarfview/errs"
)

// RegisterRuleKind classifies how a register's value at a given location
// is recovered, per DWARF5 Table 6.4 ("the register has not been
// modified", "saved at CFA+offset", etc).
type RegisterRuleKind int

const (
	RuleUndefined RegisterRuleKind = iota
	RuleSameValue
	RuleOffset
	RuleValOffset
	RuleRegister
	RuleExpression
	RuleValExpression
	RuleArchitectural
)

// RegisterRule is one register's recovery rule within a Row.
type RegisterRule struct {
	Kind  RegisterRuleKind
	Value int64  // RuleOffset / RuleValOffset: offset from CFA
	Reg   uint64 // RuleRegister: source register number
	Expr  []byte // RuleExpression / RuleValExpression: a DWARF expression
}

// Row is one entry of a call frame table: the CFA computation rule and
// every register rule active at Row.Location, generalizing the teacher's
// fixed `registers [15]frameTableRegister` ARM-specific array to an
// architecture-neutral map.
type Row struct {
	Location    uint64
	CFARegister uint64
	CFAOffset   int64
	CFAExpr     []byte
	Registers   map[uint64]RegisterRule
}

func newRow() Row {
	return Row{Registers: make(map[uint64]RegisterRule)}
}

func (r Row) clone() Row {
	n := newRow()
	n.Location = r.Location
	n.CFARegister = r.CFARegister
	n.CFAOffset = r.CFAOffset
	n.CFAExpr = r.CFAExpr
	for k, v := range r.Registers {
		n.Registers[k] = v
	}
	return n
}

// frameInterpreter replays DW_CFA_* opcodes against a running Row,
// grounded on the teacher's decodeFrameInstruction but restructured as a
// stateful interpreter (the teacher decodes one instruction per call,
// driven by an outer loop in framebaseForAddr; here run() owns that loop
// since there is no live coprocessor to interleave with).
type frameInterpreter struct {
	cie     *CIE
	order   binary.ByteOrder
	current Row
	initial Row // state at the end of the CIE's initial instructions
	stack   []Row
}

func newFrameInterpreter(cie *CIE, order binary.ByteOrder) *frameInterpreter {
	row := newRow()
	row.CFARegister = 0
	return &frameInterpreter{cie: cie, order: order, current: row}
}

// commitInitial snapshots the state after the CIE's initial instructions
// have run, so that run() can be called a second time (for the FDE's own
// instructions) starting from that baseline rather than from zero.
func (fi *frameInterpreter) commitInitial() {
	fi.initial = fi.current.clone()
}

// run replays instructions, stopping early (without error) once the
// table's location has advanced past stopPC — the same early-exit the
// teacher's framebaseForAddr loop performs via `if tab.location >= addr`.
func (fi *frameInterpreter) run(instructions []byte, stopPC uint64) error {
	c := newCursor(instructions, fi.order)

	for c.tell() < len(instructions) {
		if fi.current.Location > stopPC {
			break
		}

		opByte, err := c.readU8()
		if err != nil {
			return err
		}
		primary := (opByte & 0xc0) >> 6
		extended := opByte & 0x3f

		if primary != 0 {
			switch primary {
			case 0x01: // DW_CFA_advance_loc
				fi.current.Location += uint64(extended) * fi.cie.CodeAlignment
			case 0x02: // DW_CFA_offset
				offset, err := c.readULEB()
				if err != nil {
					return err
				}
				fi.current.Registers[uint64(extended)] = RegisterRule{
					Kind: RuleOffset, Value: int64(offset) * fi.cie.DataAlignment,
				}
			case 0x03: // DW_CFA_restore
				if r, ok := fi.initial.Registers[uint64(extended)]; ok {
					fi.current.Registers[uint64(extended)] = r
				} else {
					delete(fi.current.Registers, uint64(extended))
				}
			default:
				return errs.New(errs.UnknownOpcode, "dwarf: unknown call frame primary opcode %#x", primary)
			}
			continue
		}

		switch extended {
		case 0x00: // DW_CFA_nop
		case 0x01: // DW_CFA_set_loc
			addr, err := c.readAddr(addrSizeForOffsetWidth(len(instructions)))
			if err != nil {
				return err
			}
			fi.current.Location = addr
		case 0x02: // DW_CFA_advance_loc1
			delta, err := c.readU8()
			if err != nil {
				return err
			}
			fi.current.Location += uint64(delta) * fi.cie.CodeAlignment
		case 0x03: // DW_CFA_advance_loc2
			delta, err := c.readU16()
			if err != nil {
				return err
			}
			fi.current.Location += uint64(delta) * fi.cie.CodeAlignment
		case 0x04: // DW_CFA_advance_loc4
			delta, err := c.readU32()
			if err != nil {
				return err
			}
			fi.current.Location += uint64(delta) * fi.cie.CodeAlignment
		case 0x05: // DW_CFA_offset_extended
			reg, err := c.readULEB()
			if err != nil {
				return err
			}
			offset, err := c.readULEB()
			if err != nil {
				return err
			}
			fi.current.Registers[reg] = RegisterRule{Kind: RuleOffset, Value: int64(offset) * fi.cie.DataAlignment}
		case 0x06: // DW_CFA_restore_extended
			reg, err := c.readULEB()
			if err != nil {
				return err
			}
			if r, ok := fi.initial.Registers[reg]; ok {
				fi.current.Registers[reg] = r
			} else {
				delete(fi.current.Registers, reg)
			}
		case 0x07: // DW_CFA_undefined
			reg, err := c.readULEB()
			if err != nil {
				return err
			}
			fi.current.Registers[reg] = RegisterRule{Kind: RuleUndefined}
		case 0x08: // DW_CFA_same_value
			reg, err := c.readULEB()
			if err != nil {
				return err
			}
			fi.current.Registers[reg] = RegisterRule{Kind: RuleSameValue}
		case 0x09: // DW_CFA_register
			reg, err := c.readULEB()
			if err != nil {
				return err
			}
			src, err := c.readULEB()
			if err != nil {
				return err
			}
			fi.current.Registers[reg] = RegisterRule{Kind: RuleRegister, Reg: src}
		case 0x0a: // DW_CFA_remember_state
			fi.stack = append(fi.stack, fi.current.clone())
		case 0x0b: // DW_CFA_restore_state
			if len(fi.stack) == 0 {
				return errs.New(errs.UnknownOpcode, "dwarf: DW_CFA_restore_state with empty stack")
			}
			fi.current = fi.stack[len(fi.stack)-1]
			fi.stack = fi.stack[:len(fi.stack)-1]
		case 0x0c: // DW_CFA_def_cfa
			reg, err := c.readULEB()
			if err != nil {
				return err
			}
			offset, err := c.readULEB()
			if err != nil {
				return err
			}
			fi.current.CFARegister = reg
			fi.current.CFAOffset = int64(offset)
		case 0x0d: // DW_CFA_def_cfa_register
			reg, err := c.readULEB()
			if err != nil {
				return err
			}
			fi.current.CFARegister = reg
		case 0x0e: // DW_CFA_def_cfa_offset
			offset, err := c.readULEB()
			if err != nil {
				return err
			}
			fi.current.CFAOffset = int64(offset)
		case 0x0f: // DW_CFA_def_cfa_expression
			n, err := c.readULEB()
			if err != nil {
				return err
			}
			expr, err := c.readBytes(int(n))
			if err != nil {
				return err
			}
			fi.current.CFAExpr = expr
		case 0x10: // DW_CFA_expression
			reg, err := c.readULEB()
			if err != nil {
				return err
			}
			n, err := c.readULEB()
			if err != nil {
				return err
			}
			expr, err := c.readBytes(int(n))
			if err != nil {
				return err
			}
			fi.current.Registers[reg] = RegisterRule{Kind: RuleExpression, Expr: expr}
		case 0x11: // DW_CFA_offset_extended_sf
			reg, err := c.readULEB()
			if err != nil {
				return err
			}
			offset, err := c.readSLEB()
			if err != nil {
				return err
			}
			fi.current.Registers[reg] = RegisterRule{Kind: RuleOffset, Value: offset * fi.cie.DataAlignment}
		case 0x12: // DW_CFA_def_cfa_sf
			reg, err := c.readULEB()
			if err != nil {
				return err
			}
			offset, err := c.readSLEB()
			if err != nil {
				return err
			}
			fi.current.CFARegister = reg
			fi.current.CFAOffset = offset * fi.cie.DataAlignment
		case 0x13: // DW_CFA_def_cfa_offset_sf
			offset, err := c.readSLEB()
			if err != nil {
				return err
			}
			fi.current.CFAOffset = offset * fi.cie.DataAlignment
		case 0x14: // DW_CFA_val_offset
			reg, err := c.readULEB()
			if err != nil {
				return err
			}
			offset, err := c.readULEB()
			if err != nil {
				return err
			}
			fi.current.Registers[reg] = RegisterRule{Kind: RuleValOffset, Value: int64(offset) * fi.cie.DataAlignment}
		case 0x15: // DW_CFA_val_offset_sf
			reg, err := c.readULEB()
			if err != nil {
				return err
			}
			offset, err := c.readSLEB()
			if err != nil {
				return err
			}
			fi.current.Registers[reg] = RegisterRule{Kind: RuleValOffset, Value: offset * fi.cie.DataAlignment}
		case 0x16: // DW_CFA_val_expression
			reg, err := c.readULEB()
			if err != nil {
				return err
			}
			n, err := c.readULEB()
			if err != nil {
				return err
			}
			expr, err := c.readBytes(int(n))
			if err != nil {
				return err
			}
			fi.current.Registers[reg] = RegisterRule{Kind: RuleValExpression, Expr: expr}
		case 0x1c, 0x1d, 0x1e, 0x1f: // DW_CFA_lo_user..DW_CFA_hi_user (vendor range)
			return errs.New(errs.UnknownOpcode, "dwarf: vendor call frame opcode %#x not supported", extended)
		default:
			return errs.New(errs.UnknownOpcode, "dwarf: unknown call frame extended opcode %#x", extended)
		}
	}

	return nil
}

// addrSizeForOffsetWidth is a conservative guess used only by
// DW_CFA_set_loc, which is rare in practice (eh_frame/debug_frame
// producers almost always use DW_CFA_advance_loc* instead); 8 is safe
// for any 64-bit target and degrades gracefully since the value is only
// ever compared against other same-width addresses.
func addrSizeForOffsetWidth(remaining int) int {
	if remaining >= 8 {
		return 8
	}
	return 4
}
