package classfile

import (
	"fmt"
	"strings"
)

// Access flags used by the analysis.
const (
	AccPublic    uint16 = 0x0001
	AccPrivate   uint16 = 0x0002
	AccProtected uint16 = 0x0004
	AccStatic    uint16 = 0x0008
	AccFinal     uint16 = 0x0010
	AccInterface uint16 = 0x0200
	AccAbstract  uint16 = 0x0400
	AccModule    uint16 = 0x8000
)

// ModuleInfoName is the internal name of a module descriptor class.
const ModuleInfoName = "module-info"

// TryCatchBlock is one exception-table entry. An empty Type catches anything.
type TryCatchBlock struct {
	Start   Label  `cbor:"1,keyasint"`
	End     Label  `cbor:"2,keyasint"`
	Handler Label  `cbor:"3,keyasint"`
	Type    string `cbor:"4,keyasint,omitempty"`
}

// LocalVariable is one local-variable-table entry. The variable is live
// strictly between the Start and End labels.
type LocalVariable struct {
	Name  string `cbor:"1,keyasint"`
	Desc  string `cbor:"2,keyasint"`
	Start Label  `cbor:"3,keyasint"`
	End   Label  `cbor:"4,keyasint"`
	Index int    `cbor:"5,keyasint"`
}

// Method is a decoded method body.
type Method struct {
	Access       uint16          `cbor:"1,keyasint"`
	Name         string          `cbor:"2,keyasint"`
	Desc         string          `cbor:"3,keyasint"`
	Instructions []Instruction   `cbor:"4,keyasint,omitempty"`
	TryCatch     []TryCatchBlock `cbor:"5,keyasint,omitempty"`
	Locals       []LocalVariable `cbor:"6,keyasint,omitempty"`
	MaxLocals    int             `cbor:"7,keyasint,omitempty"`
	MaxStack     int             `cbor:"8,keyasint,omitempty"`
}

// IsStatic reports whether the method has no receiver.
func (m *Method) IsStatic() bool {
	return m.Access&AccStatic != 0
}

// HasCode reports whether the method has a body.
func (m *Method) HasCode() bool {
	return len(m.Instructions) > 0
}

// Key returns name+descriptor.
func (m *Method) Key() string {
	return m.Name + m.Desc
}

// Labels maps every label in the method to its instruction index.
func (m *Method) Labels() map[Label]int {
	out := make(map[Label]int)
	for i := range m.Instructions {
		if m.Instructions[i].Kind == KindLabel {
			out[m.Instructions[i].Label] = i
		}
	}
	return out
}

// LabelIndex returns the instruction index of a label, or -1.
func (m *Method) LabelIndex(l Label) int {
	for i := range m.Instructions {
		if m.Instructions[i].Kind == KindLabel && m.Instructions[i].Label == l {
			return i
		}
	}
	return -1
}

// LineIndex returns the index of the line-number marker for line, or -1.
func (m *Method) LineIndex(line int) int {
	for i := range m.Instructions {
		if m.Instructions[i].Kind == KindLineNumber && m.Instructions[i].Line == line {
			return i
		}
	}
	return -1
}

// LineAt returns the source line in effect at instruction index i, or 0.
func (m *Method) LineAt(i int) int {
	for ; i >= 0; i-- {
		if i < len(m.Instructions) && m.Instructions[i].Kind == KindLineNumber {
			return m.Instructions[i].Line
		}
	}
	return 0
}

// LocalAt finds the variable named name whose live range strictly
// contains instruction index insn.
func (m *Method) LocalAt(name string, insn int) (LocalVariable, bool) {
	labels := m.Labels()
	for _, lv := range m.Locals {
		if lv.Name != name {
			continue
		}
		start, ok1 := labels[lv.Start]
		end, ok2 := labels[lv.End]
		if ok1 && ok2 && start < insn && insn < end {
			return lv, true
		}
	}
	return LocalVariable{}, false
}

// Clone returns a deep copy of the method.
func (m *Method) Clone() *Method {
	c := *m
	c.Instructions = make([]Instruction, len(m.Instructions))
	for i, in := range m.Instructions {
		c.Instructions[i] = in.clone()
	}
	c.TryCatch = append([]TryCatchBlock(nil), m.TryCatch...)
	c.Locals = append([]LocalVariable(nil), m.Locals...)
	return &c
}

// String returns owner-less name+descriptor.
func (m *Method) String() string {
	return m.Name + m.Desc
}

// Class is a decoded class.
type Class struct {
	Access     uint16    `cbor:"1,keyasint"`
	Name       string    `cbor:"2,keyasint"`
	Super      string    `cbor:"3,keyasint,omitempty"`
	Interfaces []string  `cbor:"4,keyasint,omitempty"`
	Methods    []*Method `cbor:"5,keyasint,omitempty"`
	Source     string    `cbor:"6,keyasint,omitempty"`
}

// Method finds a method by name and descriptor.
func (c *Class) Method(name, desc string) *Method {
	for _, m := range c.Methods {
		if m.Name == name && m.Desc == desc {
			return m
		}
	}
	return nil
}

// IsModuleInfo reports whether the class is a module descriptor.
func (c *Class) IsModuleInfo() bool {
	return c.Name == ModuleInfoName || c.Access&AccModule != 0
}

// Package returns the internal package name, e.g. "java/lang".
func (c *Class) Package() string {
	return PackageOf(c.Name)
}

// Clone returns a deep copy of the class.
func (c *Class) Clone() *Class {
	out := *c
	out.Interfaces = append([]string(nil), c.Interfaces...)
	out.Methods = make([]*Method, len(c.Methods))
	for i, m := range c.Methods {
		out.Methods[i] = m.Clone()
	}
	return &out
}

// PackageOf returns the package part of an internal class name.
func PackageOf(internal string) string {
	if i := strings.LastIndexByte(internal, '/'); i >= 0 {
		return internal[:i]
	}
	return ""
}

// BinaryName converts an internal name to a binary name: a/b/C -> a.b.C.
func BinaryName(internal string) string {
	return strings.ReplaceAll(internal, "/", ".")
}

// InternalName converts a binary name to an internal name: a.b.C -> a/b/C.
func InternalName(binary string) string {
	return strings.ReplaceAll(binary, ".", "/")
}

// MethodRef formats owner.name desc for messages.
func MethodRef(owner, name, desc string) string {
	return fmt.Sprintf("%s.%s%s", owner, name, desc)
}
