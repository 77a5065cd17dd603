package constprop

import (
	"math"

	"github.com/chazu/linkopt/classfile"
)

// ============================================================================
// Typed combinator adapters
// ============================================================================

func intBinary(f func(x, y int32) (int32, bool)) Combinator {
	return func(args []Constant) (Constant, bool) {
		x, ok1 := args[0].(Int)
		y, ok2 := args[1].(Int)
		if !ok1 || !ok2 {
			return nil, false
		}
		r, ok := f(int32(x), int32(y))
		if !ok {
			return nil, false
		}
		return Int(r), true
	}
}

func longBinary(f func(x, y int64) (int64, bool)) Combinator {
	return func(args []Constant) (Constant, bool) {
		x, ok1 := args[0].(Long)
		y, ok2 := args[1].(Long)
		if !ok1 || !ok2 {
			return nil, false
		}
		r, ok := f(int64(x), int64(y))
		if !ok {
			return nil, false
		}
		return Long(r), true
	}
}

// longShift takes a long and an int shift count.
func longShift(f func(x int64, n uint) int64) Combinator {
	return func(args []Constant) (Constant, bool) {
		x, ok1 := args[0].(Long)
		n, ok2 := args[1].(Int)
		if !ok1 || !ok2 {
			return nil, false
		}
		return Long(f(int64(x), uint(n)&0x3f)), true
	}
}

func floatBinary(f func(x, y float32) float32) Combinator {
	return func(args []Constant) (Constant, bool) {
		x, ok1 := args[0].(Float)
		y, ok2 := args[1].(Float)
		if !ok1 || !ok2 {
			return nil, false
		}
		return Float(f(float32(x), float32(y))), true
	}
}

func doubleBinary(f func(x, y float64) float64) Combinator {
	return func(args []Constant) (Constant, bool) {
		x, ok1 := args[0].(Double)
		y, ok2 := args[1].(Double)
		if !ok1 || !ok2 {
			return nil, false
		}
		return Double(f(float64(x), float64(y))), true
	}
}

func fromInt(f func(x int32) Constant) Combinator {
	return func(args []Constant) (Constant, bool) {
		x, ok := args[0].(Int)
		if !ok {
			return nil, false
		}
		return f(int32(x)), true
	}
}

func fromLong(f func(x int64) Constant) Combinator {
	return func(args []Constant) (Constant, bool) {
		x, ok := args[0].(Long)
		if !ok {
			return nil, false
		}
		return f(int64(x)), true
	}
}

func fromFloat(f func(x float32) Constant) Combinator {
	return func(args []Constant) (Constant, bool) {
		x, ok := args[0].(Float)
		if !ok {
			return nil, false
		}
		return f(float32(x)), true
	}
}

func fromDouble(f func(x float64) Constant) Combinator {
	return func(args []Constant) (Constant, bool) {
		x, ok := args[0].(Double)
		if !ok {
			return nil, false
		}
		return f(float64(x)), true
	}
}

func total32(f func(x, y int32) int32) func(x, y int32) (int32, bool) {
	return func(x, y int32) (int32, bool) { return f(x, y), true }
}

func total64(f func(x, y int64) int64) func(x, y int64) (int64, bool) {
	return func(x, y int64) (int64, bool) { return f(x, y), true }
}

// ============================================================================
// Opcode tables
// ============================================================================

// binaryOps maps two-operand arithmetic opcodes to their combinators.
// Division and remainder by zero trap, which leaves the value unresolved.
var binaryOps = map[classfile.Opcode]Combinator{
	classfile.OpIadd: intBinary(total32(func(x, y int32) int32 { return x + y })),
	classfile.OpIsub: intBinary(total32(func(x, y int32) int32 { return x - y })),
	classfile.OpImul: intBinary(total32(func(x, y int32) int32 { return x * y })),
	classfile.OpIdiv: intBinary(func(x, y int32) (int32, bool) {
		if y == 0 {
			return 0, false
		}
		return x / y, true
	}),
	classfile.OpIrem: intBinary(func(x, y int32) (int32, bool) {
		if y == 0 {
			return 0, false
		}
		return x % y, true
	}),
	classfile.OpIshl:  intBinary(total32(func(x, y int32) int32 { return x << (uint32(y) & 0x1f) })),
	classfile.OpIshr:  intBinary(total32(func(x, y int32) int32 { return x >> (uint32(y) & 0x1f) })),
	classfile.OpIushr: intBinary(total32(func(x, y int32) int32 { return int32(uint32(x) >> (uint32(y) & 0x1f)) })),
	classfile.OpIand:  intBinary(total32(func(x, y int32) int32 { return x & y })),
	classfile.OpIor:   intBinary(total32(func(x, y int32) int32 { return x | y })),
	classfile.OpIxor:  intBinary(total32(func(x, y int32) int32 { return x ^ y })),

	classfile.OpLadd: longBinary(total64(func(x, y int64) int64 { return x + y })),
	classfile.OpLsub: longBinary(total64(func(x, y int64) int64 { return x - y })),
	classfile.OpLmul: longBinary(total64(func(x, y int64) int64 { return x * y })),
	classfile.OpLdiv: longBinary(func(x, y int64) (int64, bool) {
		if y == 0 {
			return 0, false
		}
		return x / y, true
	}),
	classfile.OpLrem: longBinary(func(x, y int64) (int64, bool) {
		if y == 0 {
			return 0, false
		}
		return x % y, true
	}),
	classfile.OpLand:  longBinary(total64(func(x, y int64) int64 { return x & y })),
	classfile.OpLor:   longBinary(total64(func(x, y int64) int64 { return x | y })),
	classfile.OpLxor:  longBinary(total64(func(x, y int64) int64 { return x ^ y })),
	classfile.OpLshl:  longShift(func(x int64, n uint) int64 { return x << n }),
	classfile.OpLshr:  longShift(func(x int64, n uint) int64 { return x >> n }),
	classfile.OpLushr: longShift(func(x int64, n uint) int64 { return int64(uint64(x) >> n) }),

	classfile.OpFadd: floatBinary(func(x, y float32) float32 { return x + y }),
	classfile.OpFsub: floatBinary(func(x, y float32) float32 { return x - y }),
	classfile.OpFmul: floatBinary(func(x, y float32) float32 { return x * y }),
	classfile.OpFdiv: floatBinary(func(x, y float32) float32 { return x / y }),
	classfile.OpFrem: floatBinary(func(x, y float32) float32 { return float32(math.Mod(float64(x), float64(y))) }),

	classfile.OpDadd: doubleBinary(func(x, y float64) float64 { return x + y }),
	classfile.OpDsub: doubleBinary(func(x, y float64) float64 { return x - y }),
	classfile.OpDmul: doubleBinary(func(x, y float64) float64 { return x * y }),
	classfile.OpDdiv: doubleBinary(func(x, y float64) float64 { return x / y }),
	classfile.OpDrem: doubleBinary(math.Mod),

	classfile.OpLcmp: func(args []Constant) (Constant, bool) {
		x, ok1 := args[0].(Long)
		y, ok2 := args[1].(Long)
		if !ok1 || !ok2 {
			return nil, false
		}
		return Int(compare(x < y, x > y)), true
	},
	classfile.OpFcmpl: floatCompare(-1),
	classfile.OpFcmpg: floatCompare(1),
	classfile.OpDcmpl: doubleCompare(-1),
	classfile.OpDcmpg: doubleCompare(1),
}

func compare(less, greater bool) int32 {
	switch {
	case less:
		return -1
	case greater:
		return 1
	}
	return 0
}

// floatCompare implements fcmpl / fcmpg: nan is the result for unordered operands.
func floatCompare(nan int32) Combinator {
	return func(args []Constant) (Constant, bool) {
		x, ok1 := args[0].(Float)
		y, ok2 := args[1].(Float)
		if !ok1 || !ok2 {
			return nil, false
		}
		if math.IsNaN(float64(x)) || math.IsNaN(float64(y)) {
			return Int(nan), true
		}
		return Int(compare(x < y, x > y)), true
	}
}

func doubleCompare(nan int32) Combinator {
	return func(args []Constant) (Constant, bool) {
		x, ok1 := args[0].(Double)
		y, ok2 := args[1].(Double)
		if !ok1 || !ok2 {
			return nil, false
		}
		if math.IsNaN(float64(x)) || math.IsNaN(float64(y)) {
			return Int(nan), true
		}
		return Int(compare(x < y, x > y)), true
	}
}

// unaryOps maps negations and primitive conversions to their combinators.
var unaryOps = map[classfile.Opcode]Combinator{
	classfile.OpIneg: fromInt(func(x int32) Constant { return Int(-x) }),
	classfile.OpLneg: fromLong(func(x int64) Constant { return Long(-x) }),
	classfile.OpFneg: fromFloat(func(x float32) Constant { return Float(-x) }),
	classfile.OpDneg: fromDouble(func(x float64) Constant { return Double(-x) }),

	classfile.OpI2l: fromInt(func(x int32) Constant { return Long(x) }),
	classfile.OpI2f: fromInt(func(x int32) Constant { return Float(x) }),
	classfile.OpI2d: fromInt(func(x int32) Constant { return Double(x) }),
	classfile.OpI2b: fromInt(func(x int32) Constant { return Int(int8(x)) }),
	classfile.OpI2c: fromInt(func(x int32) Constant { return Int(uint16(x)) }),
	classfile.OpI2s: fromInt(func(x int32) Constant { return Int(int16(x)) }),

	classfile.OpL2i: fromLong(func(x int64) Constant { return Int(int32(x)) }),
	classfile.OpL2f: fromLong(func(x int64) Constant { return Float(float32(x)) }),
	classfile.OpL2d: fromLong(func(x int64) Constant { return Double(float64(x)) }),

	classfile.OpF2i: fromFloat(func(x float32) Constant { return Int(toInt32(float64(x))) }),
	classfile.OpF2l: fromFloat(func(x float32) Constant { return Long(toInt64(float64(x))) }),
	classfile.OpF2d: fromFloat(func(x float32) Constant { return Double(float64(x)) }),

	classfile.OpD2i: fromDouble(func(x float64) Constant { return Int(toInt32(x)) }),
	classfile.OpD2l: fromDouble(func(x float64) Constant { return Long(toInt64(x)) }),
	classfile.OpD2f: fromDouble(func(x float64) Constant { return Float(float32(x)) }),
}

// toInt32 converts with JVM saturation: NaN becomes 0 and out-of-range
// values clamp to the int bounds.
func toInt32(x float64) int32 {
	switch {
	case math.IsNaN(x):
		return 0
	case x >= math.MaxInt32:
		return math.MaxInt32
	case x <= math.MinInt32:
		return math.MinInt32
	}
	return int32(x)
}

func toInt64(x float64) int64 {
	switch {
	case math.IsNaN(x):
		return 0
	case x >= math.MaxInt64:
		return math.MaxInt64
	case x <= math.MinInt64:
		return math.MinInt64
	}
	return int64(x)
}
