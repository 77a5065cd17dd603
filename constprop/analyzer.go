package constprop

import (
	"fmt"

	"github.com/chazu/linkopt/classfile"
)

// Facts pins method parameters to known constants, keyed by local slot.
type Facts map[int]Constant

// maxSteps bounds the work-list loop of a single analysis.
const maxSteps = 1 << 22

type handlerRange struct {
	handler int
	typ     string
}

// Analyze computes the frame before every instruction of m by forward
// dataflow to a fixed point. Entries for unreachable instructions are nil.
// facts replaces the unknown entry values of the given parameter slots.
func Analyze(owner string, m *classfile.Method, facts Facts, emulations *EmulationTable) (Frames, error) {
	a := &analyzer{
		owner:  owner,
		method: m,
		interp: &interpreter{emulations: emulations},
	}
	return a.run(facts)
}

type analyzer struct {
	owner  string
	method *classfile.Method
	interp *interpreter

	frames   Frames
	queued   []bool
	queue    []int
	handlers [][]handlerRange
}

func (a *analyzer) fail(insn int, err error) error {
	return &AnalyzerError{Owner: a.owner, Method: a.method.Key(), Insn: insn, Err: err}
}

func (a *analyzer) run(facts Facts) (Frames, error) {
	insns := a.method.Instructions
	n := len(insns)
	a.frames = make(Frames, n)
	if n == 0 {
		return a.frames, nil
	}
	a.queued = make([]bool, n)

	if err := a.buildHandlers(); err != nil {
		return nil, err
	}
	entry, err := a.entryFrame(facts)
	if err != nil {
		return nil, err
	}
	labels := a.method.Labels()
	a.frames[0] = entry
	a.enqueue(0)

	for steps := 0; len(a.queue) > 0; steps++ {
		if steps > maxSteps {
			return nil, a.fail(-1, fmt.Errorf("no fixed point after %d steps", maxSteps))
		}
		i := a.queue[0]
		a.queue = a.queue[1:]
		a.queued[i] = false

		f := a.frames[i]
		in := &insns[i]

		for _, h := range a.handlers[i] {
			hf := f.Clone()
			hf.clearStack()
			hf.push(Unknown(1))
			if err := a.mergeInto(i, h.handler, hf); err != nil {
				return nil, err
			}
		}

		next := f.Clone()
		if err := a.interp.execute(next, in); err != nil {
			return nil, a.fail(i, err)
		}

		for _, l := range in.Targets() {
			j, ok := labels[l]
			if !ok {
				return nil, a.fail(i, fmt.Errorf("branch to unknown label L%d", l))
			}
			if err := a.mergeInto(i, j, next); err != nil {
				return nil, err
			}
		}
		if in.IsPseudo() || !in.Op.EndsBlock() {
			if err := a.mergeInto(i, i+1, next); err != nil {
				return nil, err
			}
		}
	}
	return a.frames, nil
}

// entryFrame builds the frame at instruction 0: receiver, then parameters
// with two slots for long and double.
func (a *analyzer) entryFrame(facts Facts) (*Frame, error) {
	args, err := classfile.ArgumentTypes(a.method.Desc)
	if err != nil {
		return nil, a.fail(-1, err)
	}
	need := 0
	if !a.method.IsStatic() {
		need++
	}
	for _, t := range args {
		need += classfile.TypeSize(t)
	}
	nLocals := a.method.MaxLocals
	if nLocals < need {
		nLocals = need
	}
	f := newFrame(nLocals)

	slot := 0
	if !a.method.IsStatic() {
		f.locals[0] = a.param(facts, 0, 1)
		slot = 1
	}
	for _, t := range args {
		w := classfile.TypeSize(t)
		if err := f.setLocal(slot, a.param(facts, slot, w)); err != nil {
			return nil, a.fail(-1, err)
		}
		slot += w
	}
	return f, nil
}

func (a *analyzer) param(facts Facts, slot, width int) *Value {
	if c, ok := facts[slot]; ok && c != nil {
		return KnownWidth(width, c)
	}
	return Parameter(width, slot)
}

func (a *analyzer) buildHandlers() error {
	a.handlers = make([][]handlerRange, len(a.method.Instructions))
	labels := a.method.Labels()
	for _, tc := range a.method.TryCatch {
		start, ok1 := labels[tc.Start]
		end, ok2 := labels[tc.End]
		h, ok3 := labels[tc.Handler]
		if !ok1 || !ok2 || !ok3 {
			return a.fail(-1, fmt.Errorf("exception table entry refers to a missing label"))
		}
		for i := start; i < end; i++ {
			a.handlers[i] = append(a.handlers[i], handlerRange{handler: h, typ: tc.Type})
		}
	}
	return nil
}

func (a *analyzer) mergeInto(from, j int, f *Frame) error {
	if j >= len(a.frames) {
		return a.fail(from, fmt.Errorf("execution falls off the end of the code"))
	}
	if a.frames[j] == nil {
		a.frames[j] = f.Clone()
		a.enqueue(j)
		return nil
	}
	changed, err := a.frames[j].merge(f)
	if err != nil {
		return a.fail(j, err)
	}
	if changed {
		a.enqueue(j)
	}
	return nil
}

func (a *analyzer) enqueue(i int) {
	if !a.queued[i] {
		a.queued[i] = true
		a.queue = append(a.queue, i)
	}
}
