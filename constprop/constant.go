package constprop

import (
	"fmt"
	"math"
	"strconv"

	"github.com/chazu/linkopt/classfile"
)

// ConstKind names the concrete kind of a Constant.
type ConstKind uint8

const (
	KindInt ConstKind = iota + 1
	KindLong
	KindFloat
	KindDouble
	KindString
	KindClassDesc
	KindMethodType
	KindMethodHandle
	KindDynamic
	KindNull
)

var constKindNames = map[ConstKind]string{
	KindInt:          "Integer",
	KindLong:         "Long",
	KindFloat:        "Float",
	KindDouble:       "Double",
	KindString:       "String",
	KindClassDesc:    "ClassDesc",
	KindMethodType:   "MethodTypeDesc",
	KindMethodHandle: "MethodHandleDesc",
	KindDynamic:      "DynamicConstantDesc",
	KindNull:         "Null",
}

// String returns the kind name.
func (k ConstKind) String() string {
	if s, ok := constKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ConstKind(%d)", k)
}

// Constant is a concrete value known at analysis time. The set of
// implementations is closed.
type Constant interface {
	Kind() ConstKind
	String() string
	constant()
}

type (
	// Int is a 32-bit int (also boolean, byte, char and short).
	Int int32
	// Long is a 64-bit long.
	Long int64
	// Float is an IEEE-754 single.
	Float float32
	// Double is an IEEE-754 double.
	Double float64
	// String is a java.lang.String literal.
	String string
	// ClassDesc is a class referenced by field descriptor, e.g. "Lcom/example/MySpi;".
	ClassDesc string
	// MethodTypeDesc is a method descriptor literal.
	MethodTypeDesc string
	// MethodHandleDesc is a method handle literal.
	MethodHandleDesc classfile.Handle
	// Null is the null reference.
	Null struct{}
)

// DynamicConstantDesc is a dynamically-computed constant literal.
type DynamicConstantDesc struct {
	Name      string
	Desc      string
	Bootstrap classfile.Handle
	Args      []Constant
}

func (Int) Kind() ConstKind                  { return KindInt }
func (Long) Kind() ConstKind                 { return KindLong }
func (Float) Kind() ConstKind                { return KindFloat }
func (Double) Kind() ConstKind               { return KindDouble }
func (String) Kind() ConstKind               { return KindString }
func (ClassDesc) Kind() ConstKind            { return KindClassDesc }
func (MethodTypeDesc) Kind() ConstKind       { return KindMethodType }
func (MethodHandleDesc) Kind() ConstKind     { return KindMethodHandle }
func (*DynamicConstantDesc) Kind() ConstKind { return KindDynamic }
func (Null) Kind() ConstKind                 { return KindNull }

func (Int) constant()                  {}
func (Long) constant()                 {}
func (Float) constant()                {}
func (Double) constant()               {}
func (String) constant()               {}
func (ClassDesc) constant()            {}
func (MethodTypeDesc) constant()       {}
func (MethodHandleDesc) constant()     {}
func (*DynamicConstantDesc) constant() {}
func (Null) constant()                 {}

func (c Int) String() string    { return strconv.FormatInt(int64(c), 10) }
func (c Long) String() string   { return strconv.FormatInt(int64(c), 10) }
func (c Float) String() string  { return formatFloat(float64(c), 32) }
func (c Double) String() string { return formatFloat(float64(c), 64) }
func (c String) String() string { return string(c) }
func (c ClassDesc) String() string {
	return "ClassDesc[" + DisplayName(string(c)) + "]"
}
func (c MethodTypeDesc) String() string   { return "MethodTypeDesc[" + string(c) + "]" }
func (c MethodHandleDesc) String() string { return classfile.Handle(c).String() }
func (c *DynamicConstantDesc) String() string {
	return fmt.Sprintf("DynamicConstantDesc[%s:%s]", c.Name, c.Desc)
}
func (Null) String() string { return "null" }

func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(f, 'g', -1, bits)
}

// Equal compares constants by kind and value. Floating-point values are
// compared bit for bit, so NaN equals NaN and 0.0 differs from -0.0.
func Equal(a, b Constant) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case Float:
		return math.Float32bits(float32(x)) == math.Float32bits(float32(b.(Float)))
	case Double:
		return math.Float64bits(float64(x)) == math.Float64bits(float64(b.(Double)))
	case *DynamicConstantDesc:
		y := b.(*DynamicConstantDesc)
		if x.Name != y.Name || x.Desc != y.Desc || x.Bootstrap != y.Bootstrap || len(x.Args) != len(y.Args) {
			return false
		}
		for i := range x.Args {
			if !Equal(x.Args[i], y.Args[i]) {
				return false
			}
		}
		return true
	}
	return a == b
}

// FromLdc converts an ldc payload into a Constant.
func FromLdc(c *classfile.LdcConstant) (Constant, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: ldc without payload", ErrUnsupported)
	}
	switch c.Kind {
	case classfile.LdcInt:
		return Int(int32(c.Int)), nil
	case classfile.LdcLong:
		return Long(c.Int), nil
	case classfile.LdcFloat:
		return Float(float32(c.Float)), nil
	case classfile.LdcDouble:
		return Double(c.Float), nil
	case classfile.LdcString:
		return String(c.Str), nil
	case classfile.LdcType:
		if c.Str == "" {
			return nil, fmt.Errorf("%w: empty type literal", ErrUnsupported)
		}
		if c.Str[0] == '(' {
			return MethodTypeDesc(c.Str), nil
		}
		return ClassDesc(c.Str), nil
	case classfile.LdcMethodType:
		return MethodTypeDesc(c.Str), nil
	case classfile.LdcHandle:
		if c.Handle == nil {
			return nil, fmt.Errorf("%w: method handle literal without handle", ErrUnsupported)
		}
		return MethodHandleDesc(*c.Handle), nil
	case classfile.LdcDynamic:
		if c.Dynamic == nil {
			return nil, fmt.Errorf("%w: dynamic constant without payload", ErrUnsupported)
		}
		d := &DynamicConstantDesc{Name: c.Dynamic.Name, Desc: c.Dynamic.Desc, Bootstrap: c.Dynamic.Bootstrap}
		for i := range c.Dynamic.Args {
			arg, err := FromLdc(&c.Dynamic.Args[i])
			if err != nil {
				return nil, err
			}
			d.Args = append(d.Args, arg)
		}
		return d, nil
	}
	return nil, fmt.Errorf("%w: ldc payload kind %s", ErrUnsupported, c.Kind)
}

// DisplayName renders a field descriptor the way Class.getName does:
// "Ljava/lang/String;" -> "java.lang.String", "[I" -> "[I", "I" -> "int".
func DisplayName(desc string) string {
	if desc == "" {
		return ""
	}
	switch desc[0] {
	case '[':
		return classfile.BinaryName(desc)
	case 'L':
		if n := classfile.ClassOf(desc); n != "" {
			return classfile.BinaryName(n)
		}
	}
	if name, ok := primitiveNames[desc]; ok {
		return name
	}
	return desc
}

var primitiveNames = map[string]string{
	"Z": "boolean",
	"B": "byte",
	"C": "char",
	"S": "short",
	"I": "int",
	"J": "long",
	"F": "float",
	"D": "double",
	"V": "void",
}
