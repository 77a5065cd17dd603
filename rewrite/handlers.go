package rewrite

import (
	"github.com/chazu/linkopt/classfile"
)

// ClassNotFound is the exception type whose handlers the pass may remove.
const ClassNotFound = "java/lang/ClassNotFoundException"

// handlerState tracks the Class.forName calls attributed to one
// exception-table entry. Untouched handlers have neither flag set.
type handlerState struct {
	transformed   bool
	untransformed bool
}

// removable reports whether every attributed call was rewritten.
func (s handlerState) removable() bool {
	return s.transformed && !s.untransformed
}

// handlerTable holds the state of every ClassNotFoundException entry of
// one method, indexed like Method.TryCatch.
type handlerTable struct {
	method *classfile.Method
	labels map[classfile.Label]int
	states []handlerState
}

func newHandlerTable(m *classfile.Method) *handlerTable {
	return &handlerTable{
		method: m,
		labels: m.Labels(),
		states: make([]handlerState, len(m.TryCatch)),
	}
}

// tightest returns the ClassNotFoundException entry with the smallest
// range covering instruction insn, or -1.
func (h *handlerTable) tightest(insn int) int {
	best, bestLen := -1, 0
	for i, tc := range h.method.TryCatch {
		if tc.Type != ClassNotFound {
			continue
		}
		start, ok1 := h.labels[tc.Start]
		end, ok2 := h.labels[tc.End]
		if !ok1 || !ok2 || insn < start || insn >= end {
			continue
		}
		if best < 0 || end-start < bestLen {
			best, bestLen = i, end-start
		}
	}
	return best
}

// mark attributes the call at insn to its tightest handler.
func (h *handlerTable) mark(insn int, transformed bool) {
	i := h.tightest(insn)
	if i < 0 {
		return
	}
	if transformed {
		h.states[i].transformed = true
	} else {
		h.states[i].untransformed = true
	}
}

// removable returns the indexes of entries whose calls were all rewritten.
func (h *handlerTable) removable() []int {
	var out []int
	for i, s := range h.states {
		if s.removable() {
			out = append(out, i)
		}
	}
	return out
}

// HandlerRegion returns the catch body of exception-table entry tc as the
// half-open instruction range starting at the handler label and ending at
// the next label that some branch, switch or other handler refers to.
func HandlerRegion(m *classfile.Method, tc classfile.TryCatchBlock) (start, end int) {
	start = m.LabelIndex(tc.Handler)
	if start < 0 {
		return -1, -1
	}
	targets := make(map[classfile.Label]bool)
	for i := range m.Instructions {
		for _, l := range m.Instructions[i].Targets() {
			targets[l] = true
		}
	}
	for _, other := range m.TryCatch {
		if other.Handler != tc.Handler {
			targets[other.Handler] = true
		}
	}
	for i := start + 1; i < len(m.Instructions); i++ {
		in := &m.Instructions[i]
		if in.IsLabel() && targets[in.Label] {
			return start, i
		}
	}
	return start, len(m.Instructions)
}
