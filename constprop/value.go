package constprop

import (
	"sort"
	"strings"

	"github.com/chazu/linkopt/classfile"
)

// Combinator computes a derived constant from resolved source constants.
// It reports false when the operation traps or the inputs are unusable.
type Combinator func(args []Constant) (Constant, bool)

type valueKind uint8

const (
	valueKnown valueKind = iota
	valueDerived
	valueUnknown
)

// Value is an abstract value in a frame: a known constant, a constant
// derived lazily from other values, or unknown. Values are immutable after
// construction; the only state that changes is the memoized result of
// Describe, which is filled once.
type Value struct {
	kind    valueKind
	width   int
	known   Constant
	sources []*Value
	combine Combinator

	// param is slot+1 for a method parameter, 0 otherwise.
	param int
	uninit bool

	evaluated bool
	cached    Constant

	deps     []int
	depsDone bool
}

// Known creates a resolved value.
func Known(c Constant) *Value {
	return &Value{kind: valueKnown, width: widthOf(c), known: c}
}

// KnownWidth creates a resolved value with an explicit width.
func KnownWidth(width int, c Constant) *Value {
	return &Value{kind: valueKnown, width: width, known: c}
}

// Derived creates a value computed from sources by combine.
func Derived(width int, combine Combinator, sources ...*Value) *Value {
	return &Value{kind: valueDerived, width: width, combine: combine, sources: sources}
}

// Unknown creates an unresolved value.
func Unknown(width int) *Value {
	return &Value{kind: valueUnknown, width: width}
}

// Parameter creates the unresolved value of the parameter in slot.
func Parameter(width, slot int) *Value {
	return &Value{kind: valueUnknown, width: width, param: slot + 1}
}

// Uninitialized creates the value of a local slot that holds nothing usable.
func Uninitialized() *Value {
	return &Value{kind: valueUnknown, width: 1, uninit: true}
}

func widthOf(c Constant) int {
	switch x := c.(type) {
	case Long, Double:
		return 2
	case *DynamicConstantDesc:
		if classfile.TypeSize(x.Desc) == 2 {
			return 2
		}
	}
	return 1
}

// Width returns the slot width, 1 or 2.
func (v *Value) Width() int {
	return v.width
}

// IsUninitialized reports whether v stands for an unset or invalidated slot.
func (v *Value) IsUninitialized() bool {
	return v.uninit
}

// Param returns the parameter slot v stands for.
func (v *Value) Param() (int, bool) {
	return v.param - 1, v.param > 0
}

// Describe returns the constant v evaluates to. Derived values resolve
// their sources first and memoize the outcome.
func (v *Value) Describe() (Constant, bool) {
	switch v.kind {
	case valueKnown:
		return v.known, true
	case valueUnknown:
		return nil, false
	}
	if !v.evaluated {
		v.evaluated = true
		v.cached = v.evaluate()
	}
	return v.cached, v.cached != nil
}

func (v *Value) evaluate() Constant {
	args := make([]Constant, len(v.sources))
	for i, s := range v.sources {
		c, ok := s.Describe()
		if !ok {
			return nil
		}
		args[i] = c
	}
	c, ok := v.combine(args)
	if !ok {
		return nil
	}
	return c
}

// Resolved reports whether Describe yields a constant.
func (v *Value) Resolved() bool {
	_, ok := v.Describe()
	return ok
}

// Parameters returns the sorted parameter slots v was computed from.
func (v *Value) Parameters() []int {
	if !v.depsDone {
		v.depsDone = true
		seen := make(map[int]bool)
		if v.param > 0 {
			seen[v.param-1] = true
		}
		for _, s := range v.sources {
			for _, p := range s.Parameters() {
				seen[p] = true
			}
		}
		for p := range seen {
			v.deps = append(v.deps, p)
		}
		sort.Ints(v.deps)
	}
	return v.deps
}

// DependsOnParameter reports whether v is unresolved because of a parameter.
func (v *Value) DependsOnParameter() bool {
	return !v.Resolved() && len(v.Parameters()) > 0
}

// String renders the value for logs.
func (v *Value) String() string {
	if c, ok := v.Describe(); ok {
		return c.String()
	}
	var sb strings.Builder
	sb.WriteString("UNRESOLVED")
	if ps := v.Parameters(); len(ps) > 0 {
		sb.WriteString(" (param")
		for _, p := range ps {
			sb.WriteString(" ")
			sb.WriteString(Int(p).String())
		}
		sb.WriteString(")")
	}
	return sb.String()
}

// Join merges two values flowing into the same program point. It returns
// the merged value and whether it differs from old. Equal constants keep
// old; anything else degrades to an unknown value of the same width whose
// sources are the inputs, so parameter dependence is still traceable.
func Join(old, v *Value) (*Value, bool) {
	if old == v {
		return old, false
	}
	if old.width != v.width {
		if old.uninit {
			return old, false
		}
		return Uninitialized(), true
	}
	if old.uninit {
		return old, false
	}
	if v.uninit {
		return Uninitialized(), true
	}
	if old.kind == valueUnknown && old.param == 0 {
		if subset(v.Parameters(), old.Parameters()) {
			return old, false
		}
		return &Value{kind: valueUnknown, width: old.width, sources: []*Value{old, v}}, true
	}
	a, okA := old.Describe()
	b, okB := v.Describe()
	if okA && okB && Equal(a, b) {
		return old, false
	}
	return &Value{kind: valueUnknown, width: old.width, sources: []*Value{old, v}}, true
}

func subset(a, b []int) bool {
	j := 0
	for _, x := range a {
		for j < len(b) && b[j] < x {
			j++
		}
		if j == len(b) || b[j] != x {
			return false
		}
	}
	return true
}
