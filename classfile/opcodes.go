package classfile

import "fmt"

// Opcode is a JVM instruction opcode.
type Opcode byte

const (
	// ========================================================================
	// Constants (0x00-0x14)
	// ========================================================================

	OpNop        Opcode = 0x00
	OpAconstNull Opcode = 0x01
	OpIconstM1   Opcode = 0x02
	OpIconst0    Opcode = 0x03
	OpIconst1    Opcode = 0x04
	OpIconst2    Opcode = 0x05
	OpIconst3    Opcode = 0x06
	OpIconst4    Opcode = 0x07
	OpIconst5    Opcode = 0x08
	OpLconst0    Opcode = 0x09
	OpLconst1    Opcode = 0x0A
	OpFconst0    Opcode = 0x0B
	OpFconst1    Opcode = 0x0C
	OpFconst2    Opcode = 0x0D
	OpDconst0    Opcode = 0x0E
	OpDconst1    Opcode = 0x0F
	OpBipush     Opcode = 0x10 // bipush <byte>
	OpSipush     Opcode = 0x11 // sipush <short>
	OpLdc        Opcode = 0x12 // ldc <constant>
	OpLdcW       Opcode = 0x13
	OpLdc2W      Opcode = 0x14

	// ========================================================================
	// Loads (0x15-0x35)
	// ========================================================================

	OpIload  Opcode = 0x15 // iload <slot>
	OpLload  Opcode = 0x16
	OpFload  Opcode = 0x17
	OpDload  Opcode = 0x18
	OpAload  Opcode = 0x19
	OpIload0 Opcode = 0x1A
	OpIload1 Opcode = 0x1B
	OpIload2 Opcode = 0x1C
	OpIload3 Opcode = 0x1D
	OpLload0 Opcode = 0x1E
	OpLload1 Opcode = 0x1F
	OpLload2 Opcode = 0x20
	OpLload3 Opcode = 0x21
	OpFload0 Opcode = 0x22
	OpFload1 Opcode = 0x23
	OpFload2 Opcode = 0x24
	OpFload3 Opcode = 0x25
	OpDload0 Opcode = 0x26
	OpDload1 Opcode = 0x27
	OpDload2 Opcode = 0x28
	OpDload3 Opcode = 0x29
	OpAload0 Opcode = 0x2A
	OpAload1 Opcode = 0x2B
	OpAload2 Opcode = 0x2C
	OpAload3 Opcode = 0x2D
	OpIaload Opcode = 0x2E
	OpLaload Opcode = 0x2F
	OpFaload Opcode = 0x30
	OpDaload Opcode = 0x31
	OpAaload Opcode = 0x32
	OpBaload Opcode = 0x33
	OpCaload Opcode = 0x34
	OpSaload Opcode = 0x35

	// ========================================================================
	// Stores (0x36-0x56)
	// ========================================================================

	OpIstore  Opcode = 0x36 // istore <slot>
	OpLstore  Opcode = 0x37
	OpFstore  Opcode = 0x38
	OpDstore  Opcode = 0x39
	OpAstore  Opcode = 0x3A
	OpIstore0 Opcode = 0x3B
	OpIstore1 Opcode = 0x3C
	OpIstore2 Opcode = 0x3D
	OpIstore3 Opcode = 0x3E
	OpLstore0 Opcode = 0x3F
	OpLstore1 Opcode = 0x40
	OpLstore2 Opcode = 0x41
	OpLstore3 Opcode = 0x42
	OpFstore0 Opcode = 0x43
	OpFstore1 Opcode = 0x44
	OpFstore2 Opcode = 0x45
	OpFstore3 Opcode = 0x46
	OpDstore0 Opcode = 0x47
	OpDstore1 Opcode = 0x48
	OpDstore2 Opcode = 0x49
	OpDstore3 Opcode = 0x4A
	OpAstore0 Opcode = 0x4B
	OpAstore1 Opcode = 0x4C
	OpAstore2 Opcode = 0x4D
	OpAstore3 Opcode = 0x4E
	OpIastore Opcode = 0x4F
	OpLastore Opcode = 0x50
	OpFastore Opcode = 0x51
	OpDastore Opcode = 0x52
	OpAastore Opcode = 0x53
	OpBastore Opcode = 0x54
	OpCastore Opcode = 0x55
	OpSastore Opcode = 0x56

	// ========================================================================
	// Stack (0x57-0x5F)
	// ========================================================================

	OpPop    Opcode = 0x57
	OpPop2   Opcode = 0x58
	OpDup    Opcode = 0x59
	OpDupX1  Opcode = 0x5A
	OpDupX2  Opcode = 0x5B
	OpDup2   Opcode = 0x5C
	OpDup2X1 Opcode = 0x5D
	OpDup2X2 Opcode = 0x5E
	OpSwap   Opcode = 0x5F

	// ========================================================================
	// Arithmetic (0x60-0x84)
	// ========================================================================

	OpIadd  Opcode = 0x60
	OpLadd  Opcode = 0x61
	OpFadd  Opcode = 0x62
	OpDadd  Opcode = 0x63
	OpIsub  Opcode = 0x64
	OpLsub  Opcode = 0x65
	OpFsub  Opcode = 0x66
	OpDsub  Opcode = 0x67
	OpImul  Opcode = 0x68
	OpLmul  Opcode = 0x69
	OpFmul  Opcode = 0x6A
	OpDmul  Opcode = 0x6B
	OpIdiv  Opcode = 0x6C
	OpLdiv  Opcode = 0x6D
	OpFdiv  Opcode = 0x6E
	OpDdiv  Opcode = 0x6F
	OpIrem  Opcode = 0x70
	OpLrem  Opcode = 0x71
	OpFrem  Opcode = 0x72
	OpDrem  Opcode = 0x73
	OpIneg  Opcode = 0x74
	OpLneg  Opcode = 0x75
	OpFneg  Opcode = 0x76
	OpDneg  Opcode = 0x77
	OpIshl  Opcode = 0x78
	OpLshl  Opcode = 0x79
	OpIshr  Opcode = 0x7A
	OpLshr  Opcode = 0x7B
	OpIushr Opcode = 0x7C
	OpLushr Opcode = 0x7D
	OpIand  Opcode = 0x7E
	OpLand  Opcode = 0x7F
	OpIor   Opcode = 0x80
	OpLor   Opcode = 0x81
	OpIxor  Opcode = 0x82
	OpLxor  Opcode = 0x83
	OpIinc  Opcode = 0x84 // iinc <slot> <increment>

	// ========================================================================
	// Conversions and comparisons (0x85-0x98)
	// ========================================================================

	OpI2l   Opcode = 0x85
	OpI2f   Opcode = 0x86
	OpI2d   Opcode = 0x87
	OpL2i   Opcode = 0x88
	OpL2f   Opcode = 0x89
	OpL2d   Opcode = 0x8A
	OpF2i   Opcode = 0x8B
	OpF2l   Opcode = 0x8C
	OpF2d   Opcode = 0x8D
	OpD2i   Opcode = 0x8E
	OpD2l   Opcode = 0x8F
	OpD2f   Opcode = 0x90
	OpI2b   Opcode = 0x91
	OpI2c   Opcode = 0x92
	OpI2s   Opcode = 0x93
	OpLcmp  Opcode = 0x94
	OpFcmpl Opcode = 0x95
	OpFcmpg Opcode = 0x96
	OpDcmpl Opcode = 0x97
	OpDcmpg Opcode = 0x98

	// ========================================================================
	// Control flow (0x99-0xB1)
	// ========================================================================

	OpIfeq         Opcode = 0x99 // ifeq <label>
	OpIfne         Opcode = 0x9A
	OpIflt         Opcode = 0x9B
	OpIfge         Opcode = 0x9C
	OpIfgt         Opcode = 0x9D
	OpIfle         Opcode = 0x9E
	OpIfIcmpeq     Opcode = 0x9F
	OpIfIcmpne     Opcode = 0xA0
	OpIfIcmplt     Opcode = 0xA1
	OpIfIcmpge     Opcode = 0xA2
	OpIfIcmpgt     Opcode = 0xA3
	OpIfIcmple     Opcode = 0xA4
	OpIfAcmpeq     Opcode = 0xA5
	OpIfAcmpne     Opcode = 0xA6
	OpGoto         Opcode = 0xA7
	OpJsr          Opcode = 0xA8
	OpRet          Opcode = 0xA9
	OpTableswitch  Opcode = 0xAA
	OpLookupswitch Opcode = 0xAB
	OpIreturn      Opcode = 0xAC
	OpLreturn      Opcode = 0xAD
	OpFreturn      Opcode = 0xAE
	OpDreturn      Opcode = 0xAF
	OpAreturn      Opcode = 0xB0
	OpReturn       Opcode = 0xB1

	// ========================================================================
	// References (0xB2-0xC9)
	// ========================================================================

	OpGetstatic       Opcode = 0xB2 // getstatic <owner.name:desc>
	OpPutstatic       Opcode = 0xB3
	OpGetfield        Opcode = 0xB4
	OpPutfield        Opcode = 0xB5
	OpInvokevirtual   Opcode = 0xB6 // invokevirtual <owner.name desc>
	OpInvokespecial   Opcode = 0xB7
	OpInvokestatic    Opcode = 0xB8
	OpInvokeinterface Opcode = 0xB9
	OpInvokedynamic   Opcode = 0xBA
	OpNew             Opcode = 0xBB // new <type>
	OpNewarray        Opcode = 0xBC // newarray <atype>
	OpAnewarray       Opcode = 0xBD
	OpArraylength     Opcode = 0xBE
	OpAthrow          Opcode = 0xBF
	OpCheckcast       Opcode = 0xC0
	OpInstanceof      Opcode = 0xC1
	OpMonitorenter    Opcode = 0xC2
	OpMonitorexit     Opcode = 0xC3
	OpWide            Opcode = 0xC4
	OpMultianewarray  Opcode = 0xC5 // multianewarray <type> <dims>
	OpIfnull          Opcode = 0xC6
	OpIfnonnull       Opcode = 0xC7
	OpGotoW           Opcode = 0xC8
	OpJsrW            Opcode = 0xC9

	// OpPseudo marks label and line-number entries in an instruction list.
	OpPseudo Opcode = 0xFF
)

// OpcodeInfo provides metadata about each opcode for disassembly and validation.
type OpcodeInfo struct {
	Name string   // Mnemonic as printed by javap
	Kind InsnKind // Operand shape of the instruction
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	// Constants
	OpNop:        {"nop", KindInsn},
	OpAconstNull: {"aconst_null", KindInsn},
	OpIconstM1:   {"iconst_m1", KindInsn},
	OpIconst0:    {"iconst_0", KindInsn},
	OpIconst1:    {"iconst_1", KindInsn},
	OpIconst2:    {"iconst_2", KindInsn},
	OpIconst3:    {"iconst_3", KindInsn},
	OpIconst4:    {"iconst_4", KindInsn},
	OpIconst5:    {"iconst_5", KindInsn},
	OpLconst0:    {"lconst_0", KindInsn},
	OpLconst1:    {"lconst_1", KindInsn},
	OpFconst0:    {"fconst_0", KindInsn},
	OpFconst1:    {"fconst_1", KindInsn},
	OpFconst2:    {"fconst_2", KindInsn},
	OpDconst0:    {"dconst_0", KindInsn},
	OpDconst1:    {"dconst_1", KindInsn},
	OpBipush:     {"bipush", KindInt},
	OpSipush:     {"sipush", KindInt},
	OpLdc:        {"ldc", KindLdc},
	OpLdcW:       {"ldc_w", KindLdc},
	OpLdc2W:      {"ldc2_w", KindLdc},

	// Loads
	OpIload:  {"iload", KindVar},
	OpLload:  {"lload", KindVar},
	OpFload:  {"fload", KindVar},
	OpDload:  {"dload", KindVar},
	OpAload:  {"aload", KindVar},
	OpIload0: {"iload_0", KindInsn},
	OpIload1: {"iload_1", KindInsn},
	OpIload2: {"iload_2", KindInsn},
	OpIload3: {"iload_3", KindInsn},
	OpLload0: {"lload_0", KindInsn},
	OpLload1: {"lload_1", KindInsn},
	OpLload2: {"lload_2", KindInsn},
	OpLload3: {"lload_3", KindInsn},
	OpFload0: {"fload_0", KindInsn},
	OpFload1: {"fload_1", KindInsn},
	OpFload2: {"fload_2", KindInsn},
	OpFload3: {"fload_3", KindInsn},
	OpDload0: {"dload_0", KindInsn},
	OpDload1: {"dload_1", KindInsn},
	OpDload2: {"dload_2", KindInsn},
	OpDload3: {"dload_3", KindInsn},
	OpAload0: {"aload_0", KindInsn},
	OpAload1: {"aload_1", KindInsn},
	OpAload2: {"aload_2", KindInsn},
	OpAload3: {"aload_3", KindInsn},
	OpIaload: {"iaload", KindInsn},
	OpLaload: {"laload", KindInsn},
	OpFaload: {"faload", KindInsn},
	OpDaload: {"daload", KindInsn},
	OpAaload: {"aaload", KindInsn},
	OpBaload: {"baload", KindInsn},
	OpCaload: {"caload", KindInsn},
	OpSaload: {"saload", KindInsn},

	// Stores
	OpIstore:  {"istore", KindVar},
	OpLstore:  {"lstore", KindVar},
	OpFstore:  {"fstore", KindVar},
	OpDstore:  {"dstore", KindVar},
	OpAstore:  {"astore", KindVar},
	OpIstore0: {"istore_0", KindInsn},
	OpIstore1: {"istore_1", KindInsn},
	OpIstore2: {"istore_2", KindInsn},
	OpIstore3: {"istore_3", KindInsn},
	OpLstore0: {"lstore_0", KindInsn},
	OpLstore1: {"lstore_1", KindInsn},
	OpLstore2: {"lstore_2", KindInsn},
	OpLstore3: {"lstore_3", KindInsn},
	OpFstore0: {"fstore_0", KindInsn},
	OpFstore1: {"fstore_1", KindInsn},
	OpFstore2: {"fstore_2", KindInsn},
	OpFstore3: {"fstore_3", KindInsn},
	OpDstore0: {"dstore_0", KindInsn},
	OpDstore1: {"dstore_1", KindInsn},
	OpDstore2: {"dstore_2", KindInsn},
	OpDstore3: {"dstore_3", KindInsn},
	OpAstore0: {"astore_0", KindInsn},
	OpAstore1: {"astore_1", KindInsn},
	OpAstore2: {"astore_2", KindInsn},
	OpAstore3: {"astore_3", KindInsn},
	OpIastore: {"iastore", KindInsn},
	OpLastore: {"lastore", KindInsn},
	OpFastore: {"fastore", KindInsn},
	OpDastore: {"dastore", KindInsn},
	OpAastore: {"aastore", KindInsn},
	OpBastore: {"bastore", KindInsn},
	OpCastore: {"castore", KindInsn},
	OpSastore: {"sastore", KindInsn},

	// Stack
	OpPop:    {"pop", KindInsn},
	OpPop2:   {"pop2", KindInsn},
	OpDup:    {"dup", KindInsn},
	OpDupX1:  {"dup_x1", KindInsn},
	OpDupX2:  {"dup_x2", KindInsn},
	OpDup2:   {"dup2", KindInsn},
	OpDup2X1: {"dup2_x1", KindInsn},
	OpDup2X2: {"dup2_x2", KindInsn},
	OpSwap:   {"swap", KindInsn},

	// Arithmetic
	OpIadd:  {"iadd", KindInsn},
	OpLadd:  {"ladd", KindInsn},
	OpFadd:  {"fadd", KindInsn},
	OpDadd:  {"dadd", KindInsn},
	OpIsub:  {"isub", KindInsn},
	OpLsub:  {"lsub", KindInsn},
	OpFsub:  {"fsub", KindInsn},
	OpDsub:  {"dsub", KindInsn},
	OpImul:  {"imul", KindInsn},
	OpLmul:  {"lmul", KindInsn},
	OpFmul:  {"fmul", KindInsn},
	OpDmul:  {"dmul", KindInsn},
	OpIdiv:  {"idiv", KindInsn},
	OpLdiv:  {"ldiv", KindInsn},
	OpFdiv:  {"fdiv", KindInsn},
	OpDdiv:  {"ddiv", KindInsn},
	OpIrem:  {"irem", KindInsn},
	OpLrem:  {"lrem", KindInsn},
	OpFrem:  {"frem", KindInsn},
	OpDrem:  {"drem", KindInsn},
	OpIneg:  {"ineg", KindInsn},
	OpLneg:  {"lneg", KindInsn},
	OpFneg:  {"fneg", KindInsn},
	OpDneg:  {"dneg", KindInsn},
	OpIshl:  {"ishl", KindInsn},
	OpLshl:  {"lshl", KindInsn},
	OpIshr:  {"ishr", KindInsn},
	OpLshr:  {"lshr", KindInsn},
	OpIushr: {"iushr", KindInsn},
	OpLushr: {"lushr", KindInsn},
	OpIand:  {"iand", KindInsn},
	OpLand:  {"land", KindInsn},
	OpIor:   {"ior", KindInsn},
	OpLor:   {"lor", KindInsn},
	OpIxor:  {"ixor", KindInsn},
	OpLxor:  {"lxor", KindInsn},
	OpIinc:  {"iinc", KindIinc},

	// Conversions and comparisons
	OpI2l:   {"i2l", KindInsn},
	OpI2f:   {"i2f", KindInsn},
	OpI2d:   {"i2d", KindInsn},
	OpL2i:   {"l2i", KindInsn},
	OpL2f:   {"l2f", KindInsn},
	OpL2d:   {"l2d", KindInsn},
	OpF2i:   {"f2i", KindInsn},
	OpF2l:   {"f2l", KindInsn},
	OpF2d:   {"f2d", KindInsn},
	OpD2i:   {"d2i", KindInsn},
	OpD2l:   {"d2l", KindInsn},
	OpD2f:   {"d2f", KindInsn},
	OpI2b:   {"i2b", KindInsn},
	OpI2c:   {"i2c", KindInsn},
	OpI2s:   {"i2s", KindInsn},
	OpLcmp:  {"lcmp", KindInsn},
	OpFcmpl: {"fcmpl", KindInsn},
	OpFcmpg: {"fcmpg", KindInsn},
	OpDcmpl: {"dcmpl", KindInsn},
	OpDcmpg: {"dcmpg", KindInsn},

	// Control flow
	OpIfeq:         {"ifeq", KindJump},
	OpIfne:         {"ifne", KindJump},
	OpIflt:         {"iflt", KindJump},
	OpIfge:         {"ifge", KindJump},
	OpIfgt:         {"ifgt", KindJump},
	OpIfle:         {"ifle", KindJump},
	OpIfIcmpeq:     {"if_icmpeq", KindJump},
	OpIfIcmpne:     {"if_icmpne", KindJump},
	OpIfIcmplt:     {"if_icmplt", KindJump},
	OpIfIcmpge:     {"if_icmpge", KindJump},
	OpIfIcmpgt:     {"if_icmpgt", KindJump},
	OpIfIcmple:     {"if_icmple", KindJump},
	OpIfAcmpeq:     {"if_acmpeq", KindJump},
	OpIfAcmpne:     {"if_acmpne", KindJump},
	OpGoto:         {"goto", KindJump},
	OpJsr:          {"jsr", KindJump},
	OpRet:          {"ret", KindVar},
	OpTableswitch:  {"tableswitch", KindTableSwitch},
	OpLookupswitch: {"lookupswitch", KindLookupSwitch},
	OpIreturn:      {"ireturn", KindInsn},
	OpLreturn:      {"lreturn", KindInsn},
	OpFreturn:      {"freturn", KindInsn},
	OpDreturn:      {"dreturn", KindInsn},
	OpAreturn:      {"areturn", KindInsn},
	OpReturn:       {"return", KindInsn},

	// References
	OpGetstatic:       {"getstatic", KindField},
	OpPutstatic:       {"putstatic", KindField},
	OpGetfield:        {"getfield", KindField},
	OpPutfield:        {"putfield", KindField},
	OpInvokevirtual:   {"invokevirtual", KindMethod},
	OpInvokespecial:   {"invokespecial", KindMethod},
	OpInvokestatic:    {"invokestatic", KindMethod},
	OpInvokeinterface: {"invokeinterface", KindMethod},
	OpInvokedynamic:   {"invokedynamic", KindInvokeDynamic},
	OpNew:             {"new", KindType},
	OpNewarray:        {"newarray", KindInt},
	OpAnewarray:       {"anewarray", KindType},
	OpArraylength:     {"arraylength", KindInsn},
	OpAthrow:          {"athrow", KindInsn},
	OpCheckcast:       {"checkcast", KindType},
	OpInstanceof:      {"instanceof", KindType},
	OpMonitorenter:    {"monitorenter", KindInsn},
	OpMonitorexit:     {"monitorexit", KindInsn},
	OpWide:            {"wide", KindInsn},
	OpMultianewarray:  {"multianewarray", KindMultiANewArray},
	OpIfnull:          {"ifnull", KindJump},
	OpIfnonnull:       {"ifnonnull", KindJump},
	OpGotoW:           {"goto_w", KindJump},
	OpJsrW:            {"jsr_w", KindJump},

	OpPseudo: {"-", KindLabel},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns an OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op)), Kind: KindInsn}
}

// String returns the mnemonic of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// Known reports whether the opcode is defined by the instruction set.
func (op Opcode) Known() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// IsJump returns true for conditional and unconditional branches.
func (op Opcode) IsJump() bool {
	return (op >= OpIfeq && op <= OpJsr) || op == OpIfnull || op == OpIfnonnull || op == OpGotoW || op == OpJsrW
}

// IsConditionalJump returns true for branches that may fall through.
func (op Opcode) IsConditionalJump() bool {
	return (op >= OpIfeq && op <= OpIfAcmpne) || op == OpIfnull || op == OpIfnonnull
}

// IsReturn returns true if this opcode returns from the method.
func (op Opcode) IsReturn() bool {
	return op >= OpIreturn && op <= OpReturn
}

// IsInvoke returns true for the four non-dynamic invocation opcodes.
func (op Opcode) IsInvoke() bool {
	return op >= OpInvokevirtual && op <= OpInvokeinterface
}

// IsSwitch returns true for tableswitch and lookupswitch.
func (op Opcode) IsSwitch() bool {
	return op == OpTableswitch || op == OpLookupswitch
}

// EndsBlock returns true if control never falls through to the next instruction.
func (op Opcode) EndsBlock() bool {
	switch op {
	case OpGoto, OpGotoW, OpAthrow, OpRet, OpTableswitch, OpLookupswitch:
		return true
	}
	return op.IsReturn()
}

// Canonical maps the short forms that a decoder may leave in place onto
// their general opcode. For xload_n / xstore_n the implied slot is
// returned; for every other opcode the slot is -1.
func (op Opcode) Canonical() (Opcode, int) {
	switch {
	case op >= OpIload0 && op <= OpAload3:
		n := int(op - OpIload0)
		return OpIload + Opcode(n/4), n % 4
	case op >= OpIstore0 && op <= OpAstore3:
		n := int(op - OpIstore0)
		return OpIstore + Opcode(n/4), n % 4
	case op == OpLdcW || op == OpLdc2W:
		return OpLdc, -1
	case op == OpGotoW:
		return OpGoto, -1
	case op == OpJsrW:
		return OpJsr, -1
	}
	return op, -1
}

// AllOpcodes returns a slice of all defined opcodes, pseudo marker excluded.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		if op != OpPseudo {
			opcodes = append(opcodes, op)
		}
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable) - 1
}
