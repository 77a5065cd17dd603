package classfile

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of a method.
func (m *Method) Disassemble() string {
	return m.DisassembleWithOwner("")
}

// DisassembleWithOwner returns a listing with an owner.name desc header.
func (m *Method) DisassembleWithOwner(owner string) string {
	var sb strings.Builder

	// Header
	if owner != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", MethodRef(owner, m.Name, m.Desc)))
	} else {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", m.String()))
	}
	sb.WriteString(fmt.Sprintf("; Access: 0x%04X", m.Access))
	if m.IsStatic() {
		sb.WriteString(" [STATIC]")
	}
	sb.WriteString("\n")
	if m.MaxLocals > 0 {
		sb.WriteString(fmt.Sprintf("; Locals: %d slots\n", m.MaxLocals))
	}
	sb.WriteString("\n")

	// Code section
	sb.WriteString("; Code:\n")
	for i := range m.Instructions {
		sb.WriteString(fmt.Sprintf("%4d  %s\n", i, FormatInstruction(&m.Instructions[i])))
	}

	// Exception table
	if len(m.TryCatch) > 0 {
		sb.WriteString("\n; Exception table:\n")
		for _, tc := range m.TryCatch {
			typ := tc.Type
			if typ == "" {
				typ = "any"
			}
			sb.WriteString(fmt.Sprintf(";   %s %s -> %s %s\n",
				labelName(tc.Start), labelName(tc.End), labelName(tc.Handler), typ))
		}
	}

	// Local variable table
	if len(m.Locals) > 0 {
		sb.WriteString("\n; Local variables:\n")
		for _, lv := range m.Locals {
			sb.WriteString(fmt.Sprintf(";   [%3d] %s %s (%s..%s)\n",
				lv.Index, lv.Name, lv.Desc, labelName(lv.Start), labelName(lv.End)))
		}
	}

	return sb.String()
}

// DisassembleClass lists every method of a class.
func DisassembleClass(c *Class) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("; class %s extends %s\n\n", c.Name, c.Super))
	for i, m := range c.Methods {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(m.DisassembleWithOwner(c.Name))
	}
	return sb.String()
}

// FormatInstruction renders a single instruction.
func FormatInstruction(in *Instruction) string {
	name := in.Op.String()
	switch in.Kind {
	case KindLabel:
		return labelName(in.Label) + ":"
	case KindLineNumber:
		return fmt.Sprintf("  ; line %d", in.Line)
	case KindInt:
		return fmt.Sprintf("%s %d", name, in.Operand)
	case KindVar:
		return fmt.Sprintf("%s %d", name, in.Operand)
	case KindIinc:
		return fmt.Sprintf("%s %d %d", name, in.Operand, in.Incr)
	case KindType:
		return fmt.Sprintf("%s %s", name, in.Owner)
	case KindField, KindMethod:
		return fmt.Sprintf("%s %s", name, MethodRef(in.Owner, in.Name, fieldSep(in)))
	case KindInvokeDynamic:
		bsm := ""
		if in.Bootstrap != nil {
			bsm = " ; " + in.Bootstrap.String()
		}
		return fmt.Sprintf("%s %s%s%s", name, in.Name, in.Desc, bsm)
	case KindJump:
		return fmt.Sprintf("%s %s", name, labelName(in.Label))
	case KindLdc:
		if in.Const == nil {
			return name + " <nil>"
		}
		return fmt.Sprintf("%s %s", name, in.Const.String())
	case KindTableSwitch:
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("%s %d..%d", name, in.Min, in.Max))
		for i, l := range in.Labels {
			sb.WriteString(fmt.Sprintf(" %d:%s", in.Min+int32(i), labelName(l)))
		}
		sb.WriteString(" default:" + labelName(in.Label))
		return sb.String()
	case KindLookupSwitch:
		var sb strings.Builder
		sb.WriteString(name)
		for i, l := range in.Labels {
			if i < len(in.Keys) {
				sb.WriteString(fmt.Sprintf(" %d:%s", in.Keys[i], labelName(l)))
			}
		}
		sb.WriteString(" default:" + labelName(in.Label))
		return sb.String()
	case KindMultiANewArray:
		return fmt.Sprintf("%s %s %d", name, in.Owner, in.Operand)
	}
	return name
}

func fieldSep(in *Instruction) string {
	if in.Kind == KindField {
		return ":" + in.Desc
	}
	return in.Desc
}

func labelName(l Label) string {
	return fmt.Sprintf("L%d", l)
}
