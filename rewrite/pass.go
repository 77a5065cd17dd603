package rewrite

import (
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/tliron/commonlog"

	"github.com/chazu/linkopt/classfile"
	"github.com/chazu/linkopt/constprop"
	"github.com/chazu/linkopt/modgraph"
)

var log = commonlog.GetLogger("linkopt.rewrite")

const (
	classOwner  = "java/lang/Class"
	forName     = "forName"
	forNameDesc = "(Ljava/lang/String;)Ljava/lang/Class;"

	handlesOwner = "java/lang/invoke/MethodHandles"
	lookupOwner  = "java/lang/invoke/MethodHandles$Lookup"
	lookupDesc   = "()Ljava/lang/invoke/MethodHandles$Lookup;"
	ensureDesc   = "(Ljava/lang/Class;)Ljava/lang/Class;"
)

// Outcome is what the pass did with one Class.forName call site.
type Outcome uint8

const (
	Rewritten Outcome = iota
	Unresolved
	InvalidName
	NotFound
	Inaccessible
	Unreachable
)

var outcomeNames = [...]string{
	Rewritten:    "rewritten",
	Unresolved:   "unresolved",
	InvalidName:  "invalid-name",
	NotFound:     "not-found",
	Inaccessible: "inaccessible",
	Unreachable:  "unreachable",
}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return fmt.Sprintf("Outcome(%d)", o)
}

// ParseOutcome is the inverse of Outcome.String.
func ParseOutcome(s string) (Outcome, error) {
	for o, name := range outcomeNames {
		if name == s {
			return Outcome(o), nil
		}
	}
	return 0, fmt.Errorf("unknown outcome %q", s)
}

// Decision records one call site. Insn and Line refer to the method as it
// was before rewriting.
type Decision struct {
	Module  string
	Class   string
	Method  string // name + descriptor
	Insn    int
	Line    int
	Target  string // binary name, empty when unresolved
	Outcome Outcome
	Reason  string
}

// RemovedHandler is a ClassNotFoundException entry dropped from an
// exception table. BodyStart and BodyEnd delimit the catch body in the
// original method.
type RemovedHandler struct {
	Module    string
	Class     string
	Method    string
	Type      string
	BodyStart int
	BodyEnd   int
}

// Result is the outcome of a pass over a pool.
type Result struct {
	Pool         *classfile.Pool
	Decisions    []Decision
	Handlers     []RemovedHandler
	RemovedInsns int
}

// Count returns the number of decisions with outcome o.
func (r *Result) Count(o Outcome) int {
	n := 0
	for _, d := range r.Decisions {
		if d.Outcome == o {
			n++
		}
	}
	return n
}

// Pass replaces Class.forName calls on constant names with a lookup
// that initializes the class directly, then removes the handlers and code
// that became dead. A nil Engine or Graph is built from the pool.
type Pass struct {
	Mode   Mode
	Engine *constprop.Engine
	Graph  *modgraph.Graph
}

// Run transforms every class of pool except module descriptors. The input
// pool is not modified. A class that fails is left as it was and its
// error is part of the returned error; the result is usable either way.
func (p *Pass) Run(pool *classfile.Pool) (*Result, error) {
	t := &transformer{mode: p.Mode, pool: pool, engine: p.Engine, graph: p.Graph}
	if t.engine == nil {
		t.engine = constprop.NewEngine(pool)
	}
	if t.graph == nil {
		t.graph = modgraph.FromPool(pool)
	}

	res := &Result{}
	out := pool
	var errs *multierror.Error
	for _, e := range pool.Entries() {
		if e.Class.IsModuleInfo() {
			continue
		}
		cr, err := t.class(e)
		if err != nil {
			log.Errorf("%s: %v", e.Class.Name, err)
			errs = multierror.Append(errs, err)
			continue
		}
		res.Decisions = append(res.Decisions, cr.decisions...)
		if !cr.modified {
			continue
		}
		next, err := out.Replace(e.Module, cr.class)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		out = next
		res.Handlers = append(res.Handlers, cr.handlers...)
		res.RemovedInsns += cr.removed
	}
	res.Pool = out
	log.Infof("%s mode: %d of %d call site(s) rewritten, %d handler(s) and %d instruction(s) removed",
		p.Mode, res.Count(Rewritten), len(res.Decisions), len(res.Handlers), res.RemovedInsns)
	return res, errs.ErrorOrNil()
}

type transformer struct {
	mode   Mode
	pool   *classfile.Pool
	engine *constprop.Engine
	graph  *modgraph.Graph
}

type classResult struct {
	class     *classfile.Class
	modified  bool
	decisions []Decision
	handlers  []RemovedHandler
	removed   int
}

type methodResult struct {
	method    *classfile.Method // nil when nothing was rewritten
	decisions []Decision
	handlers  []RemovedHandler
}

func (t *transformer) class(e classfile.Entry) (*classResult, error) {
	src := e.Class
	cr := &classResult{class: src.Clone()}
	for i, m := range src.Methods {
		calls := forNameCalls(m)
		if len(calls) == 0 {
			continue
		}
		mr, err := t.method(e.Module, src, m, calls)
		if err != nil {
			return nil, fmt.Errorf("class %s: %w", src.Name, err)
		}
		cr.decisions = append(cr.decisions, mr.decisions...)
		cr.handlers = append(cr.handlers, mr.handlers...)
		if mr.method != nil {
			cr.class.Methods[i] = mr.method
			cr.modified = true
		}
	}
	if !cr.modified {
		return cr, nil
	}
	for _, m := range cr.class.Methods {
		n, err := sweep(src.Name, m, t.engine.Emulations())
		if err != nil {
			log.Warningf("%s: dead code kept: %v", classfile.MethodRef(src.Name, m.Name, m.Desc), err)
			continue
		}
		cr.removed += n
	}
	return cr, nil
}

func forNameCalls(m *classfile.Method) []int {
	var out []int
	for i := range m.Instructions {
		if m.Instructions[i].Matches(classfile.OpInvokestatic, classOwner, forName, forNameDesc) {
			out = append(out, i)
		}
	}
	return out
}

// method decides every call site of m against the pristine method and
// returns a rewritten copy when at least one site qualifies. Only private
// methods take constants from their callers; any other method can be
// called from outside the pool, so its parameters stay unresolved.
func (t *transformer) method(module string, c *classfile.Class, m *classfile.Method, calls []int) (*methodResult, error) {
	reg := constprop.NewRegistry()
	for _, idx := range calls {
		reg.DeclareStackValue(c.Name, m.Name, m.Desc, idx, 0)
	}
	var (
		a   *constprop.MethodAbstraction
		err error
	)
	if m.Access&classfile.AccPrivate != 0 {
		a, err = t.engine.ResolveWith(reg, c.Name, m.Name, m.Desc)
	} else {
		a, err = t.engine.AnalyzeWith(reg, c.Name, m.Name, m.Desc, nil)
	}
	if err != nil {
		return nil, err
	}

	res := &methodResult{}
	handlers := newHandlerTable(m)
	edits := make(map[int]string)
	for _, idx := range calls {
		d := Decision{Module: module, Class: c.Name, Method: m.Key(), Insn: idx, Line: m.LineAt(idx)}
		if !a.Frames.Reachable(idx) {
			d.Outcome, d.Reason = Unreachable, "call is never executed"
		} else {
			v, _ := a.Output(constprop.StackTarget, idx, 0)
			d.Outcome, d.Target, d.Reason = t.decide(module, c, v)
			handlers.mark(idx, d.Outcome == Rewritten)
			if d.Outcome == Rewritten {
				edits[idx] = classfile.InternalName(d.Target)
			}
		}
		log.Debugf("%s @%d: %s %s (%s)", classfile.MethodRef(c.Name, m.Name, m.Desc), idx, d.Outcome, d.Target, d.Reason)
		res.decisions = append(res.decisions, d)
	}
	if len(edits) == 0 {
		return res, nil
	}

	out := m.Clone()
	drop := handlers.removable()
	for _, i := range drop {
		tc := m.TryCatch[i]
		start, end := HandlerRegion(m, tc)
		res.handlers = append(res.handlers, RemovedHandler{
			Module: module, Class: c.Name, Method: m.Key(), Type: tc.Type,
			BodyStart: start, BodyEnd: end,
		})
	}
	out.TryCatch = dropEntries(out.TryCatch, drop)
	out.Instructions = applyEdits(m.Instructions, edits)
	res.method = out
	return res, nil
}

// decide classifies the class name flowing into one call.
func (t *transformer) decide(module string, c *classfile.Class, v *constprop.Value) (Outcome, string, string) {
	var cst constprop.Constant
	if v != nil {
		cst, _ = v.Describe()
	}
	s, ok := cst.(constprop.String)
	if !ok {
		return Unresolved, "", "class name is not a constant string"
	}
	name := string(s)
	if !constprop.ValidBinaryName(name) {
		return InvalidName, name, "not a binary class name"
	}
	if t.mode == ModeGlobal {
		return Rewritten, name, "global mode"
	}

	internal := classfile.InternalName(name)
	if target := t.pool.FindInModule(module, internal); target != nil {
		switch {
		case target.Access&classfile.AccPrivate != 0:
			return Inaccessible, name, "private class"
		case target.Access&classfile.AccPublic == 0 && target.Package() != c.Package():
			return Inaccessible, name, "package-private class in another package"
		}
		return Rewritten, name, "same module"
	}
	other, ok := t.pool.ModuleOf(internal)
	if !ok {
		return NotFound, name, "class not in pool"
	}
	if !t.graph.IsAccessible(internal, module, other) {
		return Inaccessible, name, fmt.Sprintf("module %s cannot access %s", module, other)
	}
	return Rewritten, name, "exported by module " + other
}

// applyEdits replaces each call at an index of edits with the lookup
// sequence for the mapped internal name.
func applyEdits(insns []classfile.Instruction, edits map[int]string) []classfile.Instruction {
	out := make([]classfile.Instruction, 0, len(insns)+2*len(edits))
	for i := range insns {
		internal, ok := edits[i]
		if !ok {
			out = append(out, insns[i])
			continue
		}
		if n := len(out); i > 0 && n > 0 && isStringLdc(&insns[i-1]) {
			out = out[:n-1]
		} else {
			out = append(out, classfile.NewInsn(classfile.OpPop))
		}
		out = append(out,
			classfile.NewMethodInsn(classfile.OpInvokestatic, handlesOwner, "lookup", lookupDesc, false),
			classfile.NewLdcInsn(classfile.LdcConstant{Kind: classfile.LdcType, Str: classfile.ObjectType(internal)}),
			classfile.NewMethodInsn(classfile.OpInvokevirtual, lookupOwner, "ensureInitialized", ensureDesc, false),
		)
	}
	return out
}

func isStringLdc(in *classfile.Instruction) bool {
	return in.Kind == classfile.KindLdc && in.Const != nil && in.Const.Kind == classfile.LdcString
}

func dropEntries(tcs []classfile.TryCatchBlock, drop []int) []classfile.TryCatchBlock {
	if len(drop) == 0 {
		return tcs
	}
	sort.Ints(drop)
	out := make([]classfile.TryCatchBlock, 0, len(tcs)-len(drop))
	for i, tc := range tcs {
		if j := sort.SearchInts(drop, i); j < len(drop) && drop[j] == i {
			continue
		}
		out = append(out, tc)
	}
	return out
}
