package classfile

// NewInsn creates a no-operand instruction.
func NewInsn(op Opcode) Instruction {
	return Instruction{Kind: KindInsn, Op: op}
}

// NewMethodInsn creates a method invocation instruction.
func NewMethodInsn(op Opcode, owner, name, desc string, itf bool) Instruction {
	return Instruction{Kind: KindMethod, Op: op, Owner: owner, Name: name, Desc: desc, Interface: itf}
}

// NewLdcInsn creates an ldc instruction.
func NewLdcInsn(c LdcConstant) Instruction {
	return Instruction{Kind: KindLdc, Op: OpLdc, Const: &c}
}

// NewLabelInsn creates a label pseudo-instruction.
func NewLabelInsn(l Label) Instruction {
	return Instruction{Kind: KindLabel, Op: OpPseudo, Label: l}
}

// MethodBuilder assembles a Method instruction by instruction.
// All emit methods return the builder so calls can be chained.
type MethodBuilder struct {
	m    *Method
	next Label
}

// NewMethodBuilder starts a method with the given access flags, name and descriptor.
func NewMethodBuilder(access uint16, name, desc string) *MethodBuilder {
	return &MethodBuilder{m: &Method{Access: access, Name: name, Desc: desc}}
}

// NewLabel allocates a fresh label without placing it.
func (b *MethodBuilder) NewLabel() Label {
	b.next++
	return b.next
}

// Mark places a label at the current position.
func (b *MethodBuilder) Mark(l Label) *MethodBuilder {
	return b.emit(NewLabelInsn(l))
}

// Line places a fresh label followed by a line-number marker for line.
func (b *MethodBuilder) Line(line int) *MethodBuilder {
	l := b.NewLabel()
	b.Mark(l)
	return b.emit(Instruction{Kind: KindLineNumber, Op: OpPseudo, Line: line, Label: l})
}

// Op emits a no-operand instruction.
func (b *MethodBuilder) Op(op Opcode) *MethodBuilder {
	return b.emit(NewInsn(op))
}

// Int emits bipush, sipush or newarray.
func (b *MethodBuilder) Int(op Opcode, v int32) *MethodBuilder {
	return b.emit(Instruction{Kind: KindInt, Op: op, Operand: v})
}

// Var emits a load, store or ret on a local slot.
func (b *MethodBuilder) Var(op Opcode, slot int) *MethodBuilder {
	return b.emit(Instruction{Kind: KindVar, Op: op, Operand: int32(slot)})
}

// Iinc emits iinc slot incr.
func (b *MethodBuilder) Iinc(slot int, incr int32) *MethodBuilder {
	return b.emit(Instruction{Kind: KindIinc, Op: OpIinc, Operand: int32(slot), Incr: incr})
}

// Type emits new, anewarray, checkcast or instanceof.
func (b *MethodBuilder) Type(op Opcode, internal string) *MethodBuilder {
	return b.emit(Instruction{Kind: KindType, Op: op, Owner: internal})
}

// Field emits a field access.
func (b *MethodBuilder) Field(op Opcode, owner, name, desc string) *MethodBuilder {
	return b.emit(Instruction{Kind: KindField, Op: op, Owner: owner, Name: name, Desc: desc})
}

// Invoke emits a method invocation.
func (b *MethodBuilder) Invoke(op Opcode, owner, name, desc string) *MethodBuilder {
	return b.emit(NewMethodInsn(op, owner, name, desc, op == OpInvokeinterface))
}

// InvokeDynamic emits invokedynamic.
func (b *MethodBuilder) InvokeDynamic(name, desc string, bsm Handle, args ...LdcConstant) *MethodBuilder {
	return b.emit(Instruction{Kind: KindInvokeDynamic, Op: OpInvokedynamic, Name: name, Desc: desc, Bootstrap: &bsm, BootstrapArgs: args})
}

// Jump emits a branch to l.
func (b *MethodBuilder) Jump(op Opcode, l Label) *MethodBuilder {
	return b.emit(Instruction{Kind: KindJump, Op: op, Label: l})
}

// Ldc emits an ldc of c.
func (b *MethodBuilder) Ldc(c LdcConstant) *MethodBuilder {
	return b.emit(NewLdcInsn(c))
}

// LdcInt emits ldc of an int.
func (b *MethodBuilder) LdcInt(v int32) *MethodBuilder {
	return b.Ldc(LdcConstant{Kind: LdcInt, Int: int64(v)})
}

// LdcLong emits ldc2_w of a long.
func (b *MethodBuilder) LdcLong(v int64) *MethodBuilder {
	return b.Ldc(LdcConstant{Kind: LdcLong, Int: v})
}

// LdcFloat emits ldc of a float.
func (b *MethodBuilder) LdcFloat(v float32) *MethodBuilder {
	return b.Ldc(LdcConstant{Kind: LdcFloat, Float: float64(v)})
}

// LdcDouble emits ldc2_w of a double.
func (b *MethodBuilder) LdcDouble(v float64) *MethodBuilder {
	return b.Ldc(LdcConstant{Kind: LdcDouble, Float: v})
}

// LdcString emits ldc of a string.
func (b *MethodBuilder) LdcString(s string) *MethodBuilder {
	return b.Ldc(LdcConstant{Kind: LdcString, Str: s})
}

// LdcType emits ldc of a class literal given as a field descriptor.
func (b *MethodBuilder) LdcType(desc string) *MethodBuilder {
	return b.Ldc(LdcConstant{Kind: LdcType, Str: desc})
}

// TableSwitch emits a tableswitch over [min, min+len(labels)).
func (b *MethodBuilder) TableSwitch(min int32, dflt Label, labels ...Label) *MethodBuilder {
	return b.emit(Instruction{
		Kind:   KindTableSwitch,
		Op:     OpTableswitch,
		Min:    min,
		Max:    min + int32(len(labels)) - 1,
		Label:  dflt,
		Labels: labels,
	})
}

// LookupSwitch emits a lookupswitch. keys and labels must have equal length.
func (b *MethodBuilder) LookupSwitch(dflt Label, keys []int32, labels []Label) *MethodBuilder {
	return b.emit(Instruction{Kind: KindLookupSwitch, Op: OpLookupswitch, Label: dflt, Keys: keys, Labels: labels})
}

// MultiANewArray emits multianewarray desc dims.
func (b *MethodBuilder) MultiANewArray(desc string, dims int) *MethodBuilder {
	return b.emit(Instruction{Kind: KindMultiANewArray, Op: OpMultianewarray, Owner: desc, Operand: int32(dims)})
}

// TryCatch adds an exception-table entry. An empty typ catches anything.
func (b *MethodBuilder) TryCatch(start, end, handler Label, typ string) *MethodBuilder {
	b.m.TryCatch = append(b.m.TryCatch, TryCatchBlock{Start: start, End: end, Handler: handler, Type: typ})
	return b
}

// Local adds a local-variable-table entry.
func (b *MethodBuilder) Local(name, desc string, start, end Label, slot int) *MethodBuilder {
	b.m.Locals = append(b.m.Locals, LocalVariable{Name: name, Desc: desc, Start: start, End: end, Index: slot})
	return b
}

// Len returns the index the next instruction will get.
func (b *MethodBuilder) Len() int {
	return len(b.m.Instructions)
}

// Build finishes the method and computes MaxLocals.
func (b *MethodBuilder) Build() *Method {
	m := b.m
	n, _ := ArgumentSlots(m.Desc)
	if !m.IsStatic() {
		n++
	}
	for _, in := range m.Instructions {
		if in.Kind != KindVar && in.Kind != KindIinc {
			continue
		}
		w := 1
		switch op, _ := in.Op.Canonical(); op {
		case OpLload, OpDload, OpLstore, OpDstore:
			w = 2
		}
		if end := int(in.Operand) + w; end > n {
			n = end
		}
	}
	for _, lv := range m.Locals {
		if end := lv.Index + TypeSize(lv.Desc); end > n {
			n = end
		}
	}
	m.MaxLocals = n
	return m
}

func (b *MethodBuilder) emit(in Instruction) *MethodBuilder {
	b.m.Instructions = append(b.m.Instructions, in)
	return b
}

// NewClass creates a class extending java/lang/Object.
func NewClass(access uint16, name string, methods ...*Method) *Class {
	return &Class{Access: access, Name: name, Super: "java/lang/Object", Methods: methods}
}
