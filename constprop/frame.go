package constprop

import (
	"fmt"
	"strings"
)

// Frame is the abstract machine state before one instruction executes.
type Frame struct {
	locals []*Value
	stack  []*Value
}

func newFrame(nLocals int) *Frame {
	f := &Frame{locals: make([]*Value, nLocals)}
	for i := range f.locals {
		f.locals[i] = Uninitialized()
	}
	return f
}

// Clone returns a copy sharing the values but not the slot arrays.
func (f *Frame) Clone() *Frame {
	return &Frame{
		locals: append([]*Value(nil), f.locals...),
		stack:  append([]*Value(nil), f.stack...),
	}
}

// Locals returns the number of local slots.
func (f *Frame) Locals() int {
	return len(f.locals)
}

// Local returns the value in local slot i.
func (f *Frame) Local(i int) (*Value, error) {
	if i < 0 || i >= len(f.locals) {
		return nil, fmt.Errorf("local slot %d out of range (max %d)", i, len(f.locals))
	}
	return f.locals[i], nil
}

// StackSize returns the number of values on the operand stack.
func (f *Frame) StackSize() int {
	return len(f.stack)
}

// StackFromTop returns the value i positions below the top (0 = top).
func (f *Frame) StackFromTop(i int) (*Value, error) {
	if i < 0 || i >= len(f.stack) {
		return nil, fmt.Errorf("stack slot %d out of range (size %d)", i, len(f.stack))
	}
	return f.stack[len(f.stack)-1-i], nil
}

func (f *Frame) setLocal(i int, v *Value) error {
	if i < 0 || i+v.width > len(f.locals) {
		return fmt.Errorf("local slot %d out of range (max %d)", i, len(f.locals))
	}
	f.locals[i] = v
	if v.width == 2 {
		f.locals[i+1] = Uninitialized()
	}
	if i > 0 && f.locals[i-1].width == 2 {
		f.locals[i-1] = Uninitialized()
	}
	return nil
}

func (f *Frame) push(v *Value) {
	f.stack = append(f.stack, v)
}

func (f *Frame) pop() (*Value, error) {
	if len(f.stack) == 0 {
		return nil, fmt.Errorf("pop from empty stack")
	}
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v, nil
}

// popN pops n values and returns them bottom first.
func (f *Frame) popN(n int) ([]*Value, error) {
	if n > len(f.stack) {
		return nil, fmt.Errorf("pop %d from stack of %d", n, len(f.stack))
	}
	out := append([]*Value(nil), f.stack[len(f.stack)-n:]...)
	f.stack = f.stack[:len(f.stack)-n]
	return out, nil
}

func (f *Frame) clearStack() {
	f.stack = f.stack[:0]
}

// replace substitutes every occurrence of old in the frame.
func (f *Frame) replace(old, v *Value) {
	for i := range f.locals {
		if f.locals[i] == old {
			f.locals[i] = v
		}
	}
	for i := range f.stack {
		if f.stack[i] == old {
			f.stack[i] = v
		}
	}
}

// merge joins other into f and reports whether f changed.
func (f *Frame) merge(other *Frame) (bool, error) {
	if len(f.stack) != len(other.stack) {
		return false, fmt.Errorf("incompatible stack heights %d and %d", len(f.stack), len(other.stack))
	}
	changed := false
	for i := range f.locals {
		v, c := Join(f.locals[i], other.locals[i])
		f.locals[i] = v
		changed = changed || c
	}
	for i := range f.stack {
		v, c := Join(f.stack[i], other.stack[i])
		f.stack[i] = v
		changed = changed || c
	}
	return changed, nil
}

// String renders locals and stack for debugging.
func (f *Frame) String() string {
	var sb strings.Builder
	sb.WriteString("locals[")
	for i, v := range f.locals {
		if i > 0 {
			sb.WriteString(", ")
		}
		if v.uninit {
			sb.WriteString(".")
		} else {
			sb.WriteString(v.String())
		}
	}
	sb.WriteString("] stack[")
	for i, v := range f.stack {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(v.String())
	}
	sb.WriteString("]")
	return sb.String()
}

// Frames holds one frame per instruction index; nil marks an instruction
// the analysis never reached.
type Frames []*Frame

// At returns the frame at instruction i, or nil.
func (fs Frames) At(i int) *Frame {
	if i < 0 || i >= len(fs) {
		return nil
	}
	return fs[i]
}

// NearestAt walks backward from i to the closest populated frame.
func (fs Frames) NearestAt(i int) (*Frame, int) {
	if i >= len(fs) {
		i = len(fs) - 1
	}
	for ; i >= 0; i-- {
		if fs[i] != nil {
			return fs[i], i
		}
	}
	return nil, -1
}

// Reachable reports whether instruction i has a frame.
func (fs Frames) Reachable(i int) bool {
	return fs.At(i) != nil
}
