package dwarf

import "github.com/brisklabs/dwarfview/errs"

// Form identifies how an attribute's value is encoded (DW_FORM_*).
type Form uint32

const (
	FormAddr           Form = 0x01
	FormBlock2         Form = 0x03
	FormBlock4         Form = 0x04
	FormData2          Form = 0x05
	FormData4          Form = 0x06
	FormData8          Form = 0x07
	FormString         Form = 0x08
	FormBlock          Form = 0x09
	FormBlock1         Form = 0x0a
	FormData1          Form = 0x0b
	FormFlag           Form = 0x0c
	FormSdata          Form = 0x0d
	FormStrp           Form = 0x0e
	FormUdata          Form = 0x0f
	FormRefAddr        Form = 0x10
	FormRef1           Form = 0x11
	FormRef2           Form = 0x12
	FormRef4           Form = 0x13
	FormRef8           Form = 0x14
	FormRefUdata       Form = 0x15
	FormIndirect       Form = 0x16
	FormSecOffset      Form = 0x17
	FormExprloc        Form = 0x18
	FormFlagPresent    Form = 0x19
	FormStrx           Form = 0x1a
	FormAddrx          Form = 0x1b
	FormRefSup4        Form = 0x1c
	FormStrpSup        Form = 0x1d
	FormData16         Form = 0x1e
	FormLineStrp       Form = 0x1f
	FormRefSig8        Form = 0x20
	FormImplicitConst  Form = 0x21
	FormLoclistx       Form = 0x22
	FormRnglistx       Form = 0x23
	FormRefSup8        Form = 0x24
	FormStrx1          Form = 0x25
	FormStrx2          Form = 0x26
	FormStrx3          Form = 0x27
	FormStrx4          Form = 0x28
	FormAddrx1         Form = 0x29
	FormAddrx2         Form = 0x2a
	FormAddrx3         Form = 0x2b
	FormAddrx4         Form = 0x2c

	// GNU DebugFission predecessors to the standardized DWARF5 indexed forms.
	FormGNUAddrIndex Form = 0x1f01
	FormGNUStrIndex  Form = 0x1f02
	FormGNURefAlt    Form = 0x1f20
	FormGNUStrpAlt   Form = 0x1f21
)

// Class groups forms by the shape of value they ultimately produce, per
// DWARF5 section 7.5.5's "Classes of Attribute Value" table. Decoders key
// off Class rather than Form so that callers don't need to special-case
// every one of the ~35 forms.
type Class int

const (
	ClassUnknown Class = iota
	ClassAddress
	ClassBlock
	ClassConstant
	ClassExprLoc
	ClassFlag
	ClassLinePtr
	ClassLocList
	ClassLocListPtr
	ClassMacPtr
	ClassRngList
	ClassRngListPtr
	ClassReference
	ClassString
	ClassStrOffsetsPtr
	ClassAddrPtr
)

// classOf reports the attribute value class a form belongs to. Several
// forms are ambiguous between two classes in the abstract DWARF grammar
// (loclistptr vs rnglistptr, for instance, both use sec_offset); the
// abbreviation consumer disambiguates using attr, per DWARF5 Table 7.5.
func classOf(attr Attr, form Form) Class {
	switch form {
	case FormAddr, FormAddrx, FormAddrx1, FormAddrx2, FormAddrx3, FormAddrx4, FormGNUAddrIndex:
		return ClassAddress
	case FormBlock, FormBlock1, FormBlock2, FormBlock4:
		return ClassBlock
	case FormExprloc:
		return ClassExprLoc
	case FormData1, FormData2, FormData4, FormData8, FormData16, FormSdata, FormUdata, FormImplicitConst:
		return ClassConstant
	case FormFlag, FormFlagPresent:
		return ClassFlag
	case FormRefAddr, FormRef1, FormRef2, FormRef4, FormRef8, FormRefUdata, FormRefSig8,
		FormRefSup4, FormRefSup8, FormGNURefAlt:
		return ClassReference
	case FormString, FormStrp, FormLineStrp, FormStrx, FormStrx1, FormStrx2, FormStrx3, FormStrx4,
		FormStrpSup, FormGNUStrIndex, FormGNUStrpAlt:
		return ClassString
	case FormSecOffset:
		switch attr {
		case AttrStmtList:
			return ClassLinePtr
		case AttrLocation, AttrFrameBase, AttrDataMemberLocation, AttrVtableElemLocation, AttrStringLength:
			return ClassLocListPtr
		case AttrRanges:
			return ClassRngListPtr
		case AttrStrOffsetsBase:
			return ClassStrOffsetsPtr
		case AttrAddrBase, AttrGNUAddrBase:
			return ClassAddrPtr
		case AttrMacros, AttrMacroInfo:
			return ClassMacPtr
		default:
			return ClassLocListPtr
		}
	case FormLoclistx:
		return ClassLocList
	case FormRnglistx:
		return ClassRngList
	case FormIndirect:
		return ClassUnknown
	default:
		return ClassUnknown
	}
}

// Value is a decoded attribute value. Exactly one of the typed fields is
// meaningful, selected by Class.
type Value struct {
	Class Class

	U     uint64
	I     int64
	Bytes []byte
	Str   string
	Flag  bool

	// Addr is set when Class == ClassAddress and the form was a direct
	// (non-indexed) address; indexed forms leave U as the index and require
	// the addr-table base to resolve (see dwarf/addr.go's AddrAt).
	Addr    uint64
	Indexed bool
}

// decodeForm reads one attribute value from c according to form,
// consuming exactly the bytes that form's encoding specifies.
// offsetSize/addressSize come from the owning unit header; implicitConst
// is the value attached to the abbreviation declaration for
// FormImplicitConst (which consumes zero bytes from the DIE stream).
func decodeForm(c *cursor, attr Attr, form Form, offsetSize, addressSize int, implicitConst int64) (Value, error) {
	class := classOf(attr, form)

	switch form {
	case FormAddr:
		v, err := c.readAddr(addressSize)
		if err != nil {
			return Value{}, err
		}
		return Value{Class: class, Addr: v}, nil

	case FormBlock1:
		n, err := c.readU8()
		if err != nil {
			return Value{}, err
		}
		b, err := c.readBytes(int(n))
		return Value{Class: class, Bytes: b}, err

	case FormBlock2:
		n, err := c.readU16()
		if err != nil {
			return Value{}, err
		}
		b, err := c.readBytes(int(n))
		return Value{Class: class, Bytes: b}, err

	case FormBlock4:
		n, err := c.readU32()
		if err != nil {
			return Value{}, err
		}
		b, err := c.readBytes(int(n))
		return Value{Class: class, Bytes: b}, err

	case FormBlock, FormExprloc:
		n, err := c.readULEB()
		if err != nil {
			return Value{}, err
		}
		b, err := c.readBytes(int(n))
		return Value{Class: class, Bytes: b}, err

	case FormData1:
		v, err := c.readU8()
		return Value{Class: class, U: uint64(v)}, err
	case FormData2:
		v, err := c.readU16()
		return Value{Class: class, U: uint64(v)}, err
	case FormData4:
		v, err := c.readU32()
		return Value{Class: class, U: uint64(v)}, err
	case FormData8:
		v, err := c.readU64()
		return Value{Class: class, U: v}, err
	case FormData16:
		b, err := c.readBytes(16)
		return Value{Class: ClassBlock, Bytes: b}, err

	case FormString:
		s, err := c.readCString()
		return Value{Class: class, Str: s}, err

	case FormStrp, FormLineStrp, FormStrpSup, FormGNUStrpAlt:
		off, err := c.readOffset(offsetSize)
		return Value{Class: class, U: off}, err

	case FormSdata:
		v, err := c.readSLEB()
		return Value{Class: class, I: v}, err

	case FormUdata:
		v, err := c.readULEB()
		return Value{Class: class, U: v}, err

	case FormRefAddr:
		off, err := c.readOffset(offsetSize)
		return Value{Class: class, U: off}, err
	case FormRef1:
		v, err := c.readU8()
		return Value{Class: class, U: uint64(v)}, err
	case FormRef2:
		v, err := c.readU16()
		return Value{Class: class, U: uint64(v)}, err
	case FormRef4:
		v, err := c.readU32()
		return Value{Class: class, U: uint64(v)}, err
	case FormRef8, FormRefSig8:
		v, err := c.readU64()
		return Value{Class: class, U: v}, err
	case FormRefUdata:
		v, err := c.readULEB()
		return Value{Class: class, U: v}, err
	case FormRefSup4:
		v, err := c.readU32()
		return Value{Class: class, U: uint64(v)}, err
	case FormRefSup8:
		v, err := c.readU64()
		return Value{Class: class, U: v}, err
	case FormGNURefAlt:
		off, err := c.readOffset(offsetSize)
		return Value{Class: class, U: off}, err

	case FormIndirect:
		actualForm, err := c.readULEB()
		if err != nil {
			return Value{}, err
		}
		return decodeForm(c, attr, Form(actualForm), offsetSize, addressSize, implicitConst)

	case FormSecOffset:
		off, err := c.readOffset(offsetSize)
		return Value{Class: class, U: off}, err

	case FormFlag:
		v, err := c.readU8()
		return Value{Class: class, Flag: v != 0}, err
	case FormFlagPresent:
		return Value{Class: class, Flag: true}, nil

	case FormStrx, FormGNUStrIndex:
		v, err := c.readULEB()
		return Value{Class: class, U: v, Indexed: true}, err
	case FormStrx1:
		v, err := c.readU8()
		return Value{Class: class, U: uint64(v), Indexed: true}, err
	case FormStrx2:
		v, err := c.readU16()
		return Value{Class: class, U: uint64(v), Indexed: true}, err
	case FormStrx3:
		b, err := c.readBytes(3)
		if err != nil {
			return Value{}, err
		}
		v := uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16
		return Value{Class: class, U: v, Indexed: true}, nil
	case FormStrx4:
		v, err := c.readU32()
		return Value{Class: class, U: uint64(v), Indexed: true}, err

	case FormAddrx, FormGNUAddrIndex:
		v, err := c.readULEB()
		return Value{Class: class, U: v, Indexed: true}, err
	case FormAddrx1:
		v, err := c.readU8()
		return Value{Class: class, U: uint64(v), Indexed: true}, err
	case FormAddrx2:
		v, err := c.readU16()
		return Value{Class: class, U: uint64(v), Indexed: true}, err
	case FormAddrx3:
		b, err := c.readBytes(3)
		if err != nil {
			return Value{}, err
		}
		v := uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16
		return Value{Class: class, U: v, Indexed: true}, nil
	case FormAddrx4:
		v, err := c.readU32()
		return Value{Class: class, U: uint64(v), Indexed: true}, err

	case FormImplicitConst:
		return Value{Class: class, I: implicitConst}, nil

	case FormLoclistx, FormRnglistx:
		v, err := c.readULEB()
		return Value{Class: class, U: v}, err

	default:
		return Value{}, errs.New(errs.UnknownForm, "dwarf: unsupported form %#x for attribute %v", uint32(form), attr)
	}
}
