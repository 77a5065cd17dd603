package constprop

import (
	"fmt"

	"github.com/chazu/linkopt/classfile"
)

// interpreter applies per-instruction transfer functions to a frame.
type interpreter struct {
	emulations *EmulationTable
}

// execute runs in against f, leaving the post-execution state in f.
func (it *interpreter) execute(f *Frame, in *classfile.Instruction) error {
	if in.IsPseudo() {
		return nil
	}
	op, implied := in.Op.Canonical()
	slot := int(in.Operand)
	if implied >= 0 {
		slot = implied
	}

	if fn, ok := binaryOps[op]; ok {
		args, err := f.popN(2)
		if err != nil {
			return err
		}
		f.push(Derived(binaryWidth(op), fn, args...))
		return nil
	}
	if fn, ok := unaryOps[op]; ok {
		v, err := f.pop()
		if err != nil {
			return err
		}
		f.push(Derived(unaryWidth(op), fn, v))
		return nil
	}

	switch op {
	// ============ Constants ============

	case classfile.OpNop, classfile.OpWide:
	case classfile.OpAconstNull:
		f.push(Known(Null{}))
	case classfile.OpIconstM1, classfile.OpIconst0, classfile.OpIconst1, classfile.OpIconst2,
		classfile.OpIconst3, classfile.OpIconst4, classfile.OpIconst5:
		f.push(Known(Int(int32(op) - int32(classfile.OpIconst0))))
	case classfile.OpLconst0, classfile.OpLconst1:
		f.push(Known(Long(op - classfile.OpLconst0)))
	case classfile.OpFconst0, classfile.OpFconst1, classfile.OpFconst2:
		f.push(Known(Float(op - classfile.OpFconst0)))
	case classfile.OpDconst0, classfile.OpDconst1:
		f.push(Known(Double(op - classfile.OpDconst0)))
	case classfile.OpBipush, classfile.OpSipush:
		f.push(Known(Int(in.Operand)))
	case classfile.OpLdc:
		c, err := FromLdc(in.Const)
		if err != nil {
			return err
		}
		f.push(Known(c))

	// ============ Locals ============

	case classfile.OpIload, classfile.OpLload, classfile.OpFload, classfile.OpDload, classfile.OpAload:
		v, err := f.Local(slot)
		if err != nil {
			return err
		}
		f.push(v)
	case classfile.OpIstore, classfile.OpLstore, classfile.OpFstore, classfile.OpDstore, classfile.OpAstore:
		v, err := f.pop()
		if err != nil {
			return err
		}
		return f.setLocal(slot, v)
	case classfile.OpIinc:
		v, err := f.Local(slot)
		if err != nil {
			return err
		}
		incr := in.Incr
		return f.setLocal(slot, Derived(1, fromInt(func(x int32) Constant { return Int(x + incr) }), v))

	// ============ Arrays ============

	case classfile.OpIaload, classfile.OpFaload, classfile.OpAaload, classfile.OpBaload,
		classfile.OpCaload, classfile.OpSaload:
		return it.replaceTop(f, 2, 1)
	case classfile.OpLaload, classfile.OpDaload:
		return it.replaceTop(f, 2, 2)
	case classfile.OpIastore, classfile.OpLastore, classfile.OpFastore, classfile.OpDastore,
		classfile.OpAastore, classfile.OpBastore, classfile.OpCastore, classfile.OpSastore:
		_, err := f.popN(3)
		return err
	case classfile.OpArraylength, classfile.OpNewarray, classfile.OpAnewarray:
		return it.replaceTop(f, 1, 1)
	case classfile.OpMultianewarray:
		return it.replaceTop(f, int(in.Operand), 1)

	// ============ Stack ============

	case classfile.OpPop:
		_, err := f.pop()
		return err
	case classfile.OpPop2:
		v, err := f.pop()
		if err != nil {
			return err
		}
		if v.width == 1 {
			_, err = f.pop()
		}
		return err
	case classfile.OpDup, classfile.OpDupX1, classfile.OpDupX2,
		classfile.OpDup2, classfile.OpDup2X1, classfile.OpDup2X2, classfile.OpSwap:
		return stackOp(f, op)

	// ============ Control flow ============

	case classfile.OpIfeq, classfile.OpIfne, classfile.OpIflt, classfile.OpIfge, classfile.OpIfgt,
		classfile.OpIfle, classfile.OpIfnull, classfile.OpIfnonnull,
		classfile.OpTableswitch, classfile.OpLookupswitch,
		classfile.OpIreturn, classfile.OpLreturn, classfile.OpFreturn, classfile.OpDreturn,
		classfile.OpAreturn, classfile.OpAthrow, classfile.OpMonitorenter, classfile.OpMonitorexit,
		classfile.OpPutstatic:
		_, err := f.pop()
		return err
	case classfile.OpIfIcmpeq, classfile.OpIfIcmpne, classfile.OpIfIcmplt, classfile.OpIfIcmpge,
		classfile.OpIfIcmpgt, classfile.OpIfIcmple, classfile.OpIfAcmpeq, classfile.OpIfAcmpne,
		classfile.OpPutfield:
		_, err := f.popN(2)
		return err
	case classfile.OpGoto, classfile.OpReturn:
	case classfile.OpJsr, classfile.OpRet:
		return fmt.Errorf("%w: subroutine instruction %s", ErrUnsupported, in.Op)

	// ============ References ============

	case classfile.OpGetstatic:
		f.push(Unknown(classfile.TypeSize(in.Desc)))
	case classfile.OpGetfield:
		return it.replaceTop(f, 1, classfile.TypeSize(in.Desc))
	case classfile.OpNew:
		f.push(Unknown(1))
	case classfile.OpCheckcast, classfile.OpInstanceof:
		return it.replaceTop(f, 1, 1)
	case classfile.OpInvokevirtual, classfile.OpInvokespecial, classfile.OpInvokestatic, classfile.OpInvokeinterface:
		return it.invoke(f, in)
	case classfile.OpInvokedynamic:
		args, err := classfile.ArgumentTypes(in.Desc)
		if err != nil {
			return err
		}
		if _, err := f.popN(len(args)); err != nil {
			return err
		}
		if w := classfile.TypeSize(classfile.ReturnType(in.Desc)); w > 0 {
			f.push(Unknown(w))
		}

	default:
		return fmt.Errorf("%w: opcode %s", ErrUnsupported, in.Op)
	}
	return nil
}

// replaceTop pops n values and pushes one unknown value of width w.
func (it *interpreter) replaceTop(f *Frame, n, w int) error {
	if _, err := f.popN(n); err != nil {
		return err
	}
	f.push(Unknown(w))
	return nil
}

// invoke models the four non-dynamic call instructions. Emulated calls
// yield a derived value over the receiver (argument 0) and arguments;
// constructors substitute the initialized object for every copy of the
// uninitialized receiver.
func (it *interpreter) invoke(f *Frame, in *classfile.Instruction) error {
	argTypes, err := classfile.ArgumentTypes(in.Desc)
	if err != nil {
		return err
	}
	args, err := f.popN(len(argTypes))
	if err != nil {
		return err
	}
	var recv *Value
	if in.Op != classfile.OpInvokestatic {
		if recv, err = f.pop(); err != nil {
			return err
		}
	}
	ctor := in.Op == classfile.OpInvokespecial && in.Name == "<init>"
	width := classfile.TypeSize(classfile.ReturnType(in.Desc))
	if ctor {
		width = 1
	}

	var result *Value
	if fn, ok := it.emulations.Lookup(in.Owner, in.Name, in.Desc); ok {
		withRecv := recv != nil && !ctor
		sources := args
		if withRecv {
			sources = append([]*Value{recv}, args...)
		}
		result = Derived(width, emulate(fn, withRecv), sources...)
	}

	if ctor {
		if result == nil {
			result = Unknown(1)
		}
		f.replace(recv, result)
		return nil
	}
	if width == 0 {
		return nil
	}
	if result == nil {
		result = Unknown(width)
	}
	f.push(result)
	return nil
}

func emulate(fn Emulation, withRecv bool) Combinator {
	return func(args []Constant) (Constant, bool) {
		if withRecv {
			return fn(args[0], args[1:])
		}
		return fn(nil, args)
	}
}

// stackOp implements the dup family and swap on value widths.
func stackOp(f *Frame, op classfile.Opcode) error {
	var err error
	pop := func() *Value {
		v, e := f.pop()
		if e != nil {
			if err == nil {
				err = e
			}
			return Uninitialized()
		}
		return v
	}
	push := func(vs ...*Value) {
		for _, v := range vs {
			f.push(v)
		}
	}

	switch op {
	case classfile.OpDup:
		v1 := pop()
		push(v1, v1)
	case classfile.OpDupX1:
		v1, v2 := pop(), pop()
		push(v1, v2, v1)
	case classfile.OpDupX2:
		v1, v2 := pop(), pop()
		if v2.width == 2 {
			push(v1, v2, v1)
		} else {
			v3 := pop()
			push(v1, v3, v2, v1)
		}
	case classfile.OpDup2:
		v1 := pop()
		if v1.width == 2 {
			push(v1, v1)
		} else {
			v2 := pop()
			push(v2, v1, v2, v1)
		}
	case classfile.OpDup2X1:
		v1 := pop()
		if v1.width == 2 {
			v2 := pop()
			push(v1, v2, v1)
		} else {
			v2, v3 := pop(), pop()
			push(v2, v1, v3, v2, v1)
		}
	case classfile.OpDup2X2:
		v1 := pop()
		if v1.width == 2 {
			v2 := pop()
			if v2.width == 2 {
				push(v1, v2, v1)
			} else {
				v3 := pop()
				push(v1, v3, v2, v1)
			}
		} else {
			v2, v3 := pop(), pop()
			if v3.width == 2 {
				push(v2, v1, v3, v2, v1)
			} else {
				v4 := pop()
				push(v2, v1, v4, v3, v2, v1)
			}
		}
	case classfile.OpSwap:
		v1, v2 := pop(), pop()
		push(v1, v2)
	}
	return err
}

func binaryWidth(op classfile.Opcode) int {
	switch op {
	case classfile.OpLadd, classfile.OpLsub, classfile.OpLmul, classfile.OpLdiv, classfile.OpLrem,
		classfile.OpLand, classfile.OpLor, classfile.OpLxor, classfile.OpLshl, classfile.OpLshr, classfile.OpLushr,
		classfile.OpDadd, classfile.OpDsub, classfile.OpDmul, classfile.OpDdiv, classfile.OpDrem:
		return 2
	}
	return 1
}

func unaryWidth(op classfile.Opcode) int {
	switch op {
	case classfile.OpLneg, classfile.OpDneg, classfile.OpI2l, classfile.OpI2d,
		classfile.OpF2l, classfile.OpF2d, classfile.OpL2d, classfile.OpD2l:
		return 2
	}
	return 1
}
