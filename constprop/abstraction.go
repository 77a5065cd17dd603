package constprop

import (
	"fmt"
	"sort"

	"github.com/chazu/linkopt/classfile"
)

// Output is the value captured for one target.
type Output struct {
	Target Target
	Value  *Value
}

// MethodAbstraction is the result of analyzing one method: its parameter
// values and the value of every target in scope.
type MethodAbstraction struct {
	Owner      string
	Name       string
	Desc       string
	Parameters map[int]*Value
	Outputs    []Output
	Frames     Frames
}

// Resolved reports whether every output has a constant. A method without
// outputs is trivially resolved.
func (a *MethodAbstraction) Resolved() bool {
	for _, o := range a.Outputs {
		if !o.Value.Resolved() {
			return false
		}
	}
	return true
}

// Unresolved returns the outputs without a constant.
func (a *MethodAbstraction) Unresolved() []Output {
	var out []Output
	for _, o := range a.Outputs {
		if !o.Value.Resolved() {
			out = append(out, o)
		}
	}
	return out
}

// DependsOnParameter reports whether any unresolved output traces back to
// a parameter.
func (a *MethodAbstraction) DependsOnParameter() bool {
	return len(a.pendingParameters()) > 0
}

// pendingParameters returns the parameter slots that unresolved outputs
// depend on, in ascending order.
func (a *MethodAbstraction) pendingParameters() []int {
	seen := make(map[int]bool)
	for _, o := range a.Unresolved() {
		for _, p := range o.Value.Parameters() {
			seen[p] = true
		}
	}
	out := make([]int, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

// Output returns the value captured for the target of the given kind,
// instruction and slot.
func (a *MethodAbstraction) Output(kind TargetKind, insn, slot int) (*Value, bool) {
	for _, o := range a.Outputs {
		if o.Target.Kind == kind && o.Target.Insn == insn && o.Target.Slot == slot {
			return o.Value, true
		}
	}
	return nil, false
}

// Lookup finds the output of a local declared by source name.
func (a *MethodAbstraction) Lookup(name string) (*Value, bool) {
	for _, o := range a.Outputs {
		if o.Target.Name == name {
			return o.Value, true
		}
	}
	return nil, false
}

// abstract analyzes m and captures the targets from reg.
func abstract(owner string, m *classfile.Method, reg *Registry, facts Facts, emulations *EmulationTable) (*MethodAbstraction, error) {
	frames, err := Analyze(owner, m, facts, emulations)
	if err != nil {
		return nil, err
	}
	a := &MethodAbstraction{
		Owner:      owner,
		Name:       m.Name,
		Desc:       m.Desc,
		Parameters: make(map[int]*Value),
		Frames:     frames,
	}
	if len(frames) > 0 && frames[0] != nil {
		entry := frames[0]
		slot := 0
		if !m.IsStatic() {
			a.Parameters[0] = entry.locals[0]
			slot = 1
		}
		args, _ := classfile.ArgumentTypes(m.Desc)
		for _, t := range args {
			a.Parameters[slot] = entry.locals[slot]
			slot += classfile.TypeSize(t)
		}
	}

	for _, t := range reg.Targets(owner, m) {
		v, err := capture(frames, t)
		if err != nil {
			return nil, &AnalyzerError{Owner: owner, Method: m.Key(), Insn: t.Insn, Err: err}
		}
		a.Outputs = append(a.Outputs, Output{Target: t, Value: v})
	}
	return a, nil
}

func capture(frames Frames, t Target) (*Value, error) {
	f, _ := frames.NearestAt(t.Insn)
	if f == nil {
		return nil, fmt.Errorf("no reachable frame at or before instruction %d", t.Insn)
	}
	if t.Kind == StackTarget {
		return f.StackFromTop(t.Slot)
	}
	return f.Local(t.Slot)
}
