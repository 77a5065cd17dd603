package classfile

import "fmt"

// InsnKind is the operand shape of an instruction.
type InsnKind uint8

const (
	KindInsn           InsnKind = iota // no operand
	KindInt                            // bipush, sipush, newarray
	KindVar                            // local variable slot
	KindType                           // internal name or array descriptor
	KindField                          // owner, name, descriptor
	KindMethod                         // owner, name, descriptor, interface flag
	KindInvokeDynamic                  // name, descriptor, bootstrap
	KindJump                           // branch to a label
	KindLabel                          // pseudo: jump target
	KindLdc                            // constant pool literal
	KindIinc                           // slot and increment
	KindTableSwitch                    // min, max, default, labels
	KindLookupSwitch                   // keys, default, labels
	KindMultiANewArray                 // descriptor and dimensions
	KindLineNumber                     // pseudo: source line marker
)

var insnKindNames = [...]string{
	KindInsn:           "insn",
	KindInt:            "int",
	KindVar:            "var",
	KindType:           "type",
	KindField:          "field",
	KindMethod:         "method",
	KindInvokeDynamic:  "indy",
	KindJump:           "jump",
	KindLabel:          "label",
	KindLdc:            "ldc",
	KindIinc:           "iinc",
	KindTableSwitch:    "tableswitch",
	KindLookupSwitch:   "lookupswitch",
	KindMultiANewArray: "multianewarray",
	KindLineNumber:     "line",
}

// String returns a short name for the kind.
func (k InsnKind) String() string {
	if int(k) < len(insnKindNames) {
		return insnKindNames[k]
	}
	return fmt.Sprintf("InsnKind(%d)", k)
}

// Label identifies a position in a method's instruction list. Labels are
// materialized as KindLabel pseudo-instructions; branches, switches,
// exception ranges and local-variable ranges refer to them by ID.
type Label int32

// NoLabel is the zero label, never assigned by a builder.
const NoLabel Label = 0

// Instruction is one entry of a decoded instruction list. Which fields are
// meaningful depends on Kind.
type Instruction struct {
	Kind InsnKind `cbor:"1,keyasint"`
	Op   Opcode   `cbor:"2,keyasint"`

	// Operand holds the immediate for KindInt, the slot for KindVar and
	// KindIinc, and the dimension count for KindMultiANewArray.
	Operand int32 `cbor:"3,keyasint,omitempty"`
	// Incr is the iinc increment.
	Incr int32 `cbor:"4,keyasint,omitempty"`

	// Owner is the declaring class for field and method instructions and
	// the operand type for KindType / KindMultiANewArray.
	Owner     string `cbor:"5,keyasint,omitempty"`
	Name      string `cbor:"6,keyasint,omitempty"`
	Desc      string `cbor:"7,keyasint,omitempty"`
	Interface bool   `cbor:"8,keyasint,omitempty"`

	// Label is the branch target (KindJump), the label itself (KindLabel),
	// the start label (KindLineNumber) or the switch default.
	Label  Label   `cbor:"9,keyasint,omitempty"`
	Line   int     `cbor:"10,keyasint,omitempty"`
	Labels []Label `cbor:"11,keyasint,omitempty"`
	Keys   []int32 `cbor:"12,keyasint,omitempty"`
	Min    int32   `cbor:"13,keyasint,omitempty"`
	Max    int32   `cbor:"14,keyasint,omitempty"`

	Const         *LdcConstant  `cbor:"15,keyasint,omitempty"`
	Bootstrap     *Handle       `cbor:"16,keyasint,omitempty"`
	BootstrapArgs []LdcConstant `cbor:"17,keyasint,omitempty"`
}

// IsPseudo reports whether the instruction is a label or line-number marker.
func (in *Instruction) IsPseudo() bool {
	return in.Kind == KindLabel || in.Kind == KindLineNumber
}

// IsLabel reports whether the instruction is a label.
func (in *Instruction) IsLabel() bool {
	return in.Kind == KindLabel
}

// Targets returns every label the instruction can transfer control to.
func (in *Instruction) Targets() []Label {
	switch in.Kind {
	case KindJump:
		return []Label{in.Label}
	case KindTableSwitch, KindLookupSwitch:
		out := make([]Label, 0, len(in.Labels)+1)
		out = append(out, in.Label)
		return append(out, in.Labels...)
	}
	return nil
}

// Matches reports whether in is a method instruction calling owner.name desc.
func (in *Instruction) Matches(op Opcode, owner, name, desc string) bool {
	return in.Kind == KindMethod && in.Op == op && in.Owner == owner && in.Name == name && in.Desc == desc
}

// clone returns a copy that shares no slices with in.
func (in Instruction) clone() Instruction {
	if in.Labels != nil {
		in.Labels = append([]Label(nil), in.Labels...)
	}
	if in.Keys != nil {
		in.Keys = append([]int32(nil), in.Keys...)
	}
	if in.Const != nil {
		c := in.Const.clone()
		in.Const = &c
	}
	if in.Bootstrap != nil {
		h := *in.Bootstrap
		in.Bootstrap = &h
	}
	if in.BootstrapArgs != nil {
		args := make([]LdcConstant, len(in.BootstrapArgs))
		for i, a := range in.BootstrapArgs {
			args[i] = a.clone()
		}
		in.BootstrapArgs = args
	}
	return in
}

// LdcKind identifies the payload of an ldc instruction.
type LdcKind uint8

const (
	LdcInt LdcKind = iota + 1
	LdcLong
	LdcFloat
	LdcDouble
	LdcString
	LdcType       // field descriptor, e.g. Ljava/lang/String;
	LdcMethodType // method descriptor
	LdcHandle
	LdcDynamic
)

var ldcKindNames = map[LdcKind]string{
	LdcInt:        "int",
	LdcLong:       "long",
	LdcFloat:      "float",
	LdcDouble:     "double",
	LdcString:     "String",
	LdcType:       "Type",
	LdcMethodType: "MethodType",
	LdcHandle:     "Handle",
	LdcDynamic:    "ConstantDynamic",
}

// String returns the kind name.
func (k LdcKind) String() string {
	if s, ok := ldcKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("LdcKind(%d)", k)
}

// LdcConstant is a loadable constant.
type LdcConstant struct {
	Kind    LdcKind  `cbor:"1,keyasint"`
	Int     int64    `cbor:"2,keyasint,omitempty"` // int and long
	Float   float64  `cbor:"3,keyasint,omitempty"` // float and double
	Str     string   `cbor:"4,keyasint,omitempty"` // string, type and method type
	Handle  *Handle  `cbor:"5,keyasint,omitempty"`
	Dynamic *Dynamic `cbor:"6,keyasint,omitempty"`
}

func (c LdcConstant) clone() LdcConstant {
	if c.Handle != nil {
		h := *c.Handle
		c.Handle = &h
	}
	if c.Dynamic != nil {
		d := *c.Dynamic
		d.Args = make([]LdcConstant, len(c.Dynamic.Args))
		for i, a := range c.Dynamic.Args {
			d.Args[i] = a.clone()
		}
		c.Dynamic = &d
	}
	return c
}

// String renders the constant the way a disassembler prints it.
func (c LdcConstant) String() string {
	switch c.Kind {
	case LdcInt:
		return fmt.Sprintf("%d", int32(c.Int))
	case LdcLong:
		return fmt.Sprintf("%dL", c.Int)
	case LdcFloat:
		return fmt.Sprintf("%vf", float32(c.Float))
	case LdcDouble:
		return fmt.Sprintf("%vd", c.Float)
	case LdcString:
		return fmt.Sprintf("%q", c.Str)
	case LdcType:
		return c.Str + ".class"
	case LdcMethodType:
		return "MethodType " + c.Str
	case LdcHandle:
		if c.Handle != nil {
			return c.Handle.String()
		}
	case LdcDynamic:
		if c.Dynamic != nil {
			return fmt.Sprintf("ConstantDynamic %s:%s", c.Dynamic.Name, c.Dynamic.Desc)
		}
	}
	return c.Kind.String()
}

// Method handle reference kinds.
const (
	RefGetField         = 1
	RefGetStatic        = 2
	RefPutField         = 3
	RefPutStatic        = 4
	RefInvokeVirtual    = 5
	RefInvokeStatic     = 6
	RefInvokeSpecial    = 7
	RefNewInvokeSpecial = 8
	RefInvokeInterface  = 9
)

// Handle is a method handle constant.
type Handle struct {
	Tag       int    `cbor:"1,keyasint"`
	Owner     string `cbor:"2,keyasint"`
	Name      string `cbor:"3,keyasint"`
	Desc      string `cbor:"4,keyasint"`
	Interface bool   `cbor:"5,keyasint,omitempty"`
}

// String renders the handle as tag owner.name desc.
func (h Handle) String() string {
	return fmt.Sprintf("MethodHandle[%d] %s.%s%s", h.Tag, h.Owner, h.Name, h.Desc)
}

// Dynamic is a dynamically-computed constant.
type Dynamic struct {
	Name      string        `cbor:"1,keyasint"`
	Desc      string        `cbor:"2,keyasint"`
	Bootstrap Handle        `cbor:"3,keyasint"`
	Args      []LdcConstant `cbor:"4,keyasint,omitempty"`
}
