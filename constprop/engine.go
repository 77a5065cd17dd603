package constprop

import (
	"errors"
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/chazu/linkopt/classfile"
)

// DefaultMaxDepth bounds the caller chain followed by Resolve.
const DefaultMaxDepth = 8

var log = commonlog.GetLogger("linkopt.constprop")

// CallSite is one invocation of a method somewhere in the pool.
type CallSite struct {
	Module string
	Owner  string // caller class
	Name   string // caller method name
	Desc   string // caller method descriptor
	Insn   int
	Op     classfile.Opcode
}

func (s CallSite) String() string {
	return fmt.Sprintf("%s@%d", classfile.MethodRef(s.Owner, s.Name, s.Desc), s.Insn)
}

// Engine runs method abstractions over a pool and, when outputs depend on
// parameters, propagates argument constants from call sites.
type Engine struct {
	pool            *classfile.Pool
	emulations      *EmulationTable
	registry        *Registry
	maxDepth        int
	interprocedural bool

	callSites map[string][]CallSite
}

// Option configures an Engine.
type Option func(*Engine)

// WithEmulations replaces the built-in emulation table.
func WithEmulations(t *EmulationTable) Option {
	return func(e *Engine) { e.emulations = t }
}

// WithRegistry sets the registry used by AnalyzeMethod and Resolve.
func WithRegistry(r *Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// WithMaxDepth bounds the caller chain followed during propagation.
func WithMaxDepth(n int) Option {
	return func(e *Engine) { e.maxDepth = n }
}

// WithInterprocedural enables or disables call-site propagation.
func WithInterprocedural(on bool) Option {
	return func(e *Engine) { e.interprocedural = on }
}

// NewEngine creates an engine over a read-only pool.
func NewEngine(pool *classfile.Pool, opts ...Option) *Engine {
	e := &Engine{
		pool:            pool,
		maxDepth:        DefaultMaxDepth,
		interprocedural: true,
		callSites:       make(map[string][]CallSite),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.emulations == nil {
		e.emulations = NewEmulationTable()
	}
	if e.registry == nil {
		e.registry = NewRegistry()
	}
	return e
}

// Registry returns the engine's own registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Emulations returns the emulation table.
func (e *Engine) Emulations() *EmulationTable {
	return e.emulations
}

// Pool returns the pool being analyzed.
func (e *Engine) Pool() *classfile.Pool {
	return e.pool
}

func (e *Engine) method(owner, name, desc string) (*classfile.Method, error) {
	c, _, ok := e.pool.Find(owner)
	if !ok {
		return nil, fmt.Errorf("class %s: %w", owner, ErrNotFound)
	}
	m := c.Method(name, desc)
	if m == nil {
		return nil, fmt.Errorf("method %s: %w", classfile.MethodRef(owner, name, desc), ErrNotFound)
	}
	return m, nil
}

// AnalyzeMethod runs one intraprocedural abstraction of owner.name desc
// against the engine's registry.
func (e *Engine) AnalyzeMethod(owner, name, desc string, facts Facts) (*MethodAbstraction, error) {
	return e.AnalyzeWith(e.registry, owner, name, desc, facts)
}

// AnalyzeWith is AnalyzeMethod against an explicit registry.
func (e *Engine) AnalyzeWith(reg *Registry, owner, name, desc string, facts Facts) (*MethodAbstraction, error) {
	m, err := e.method(owner, name, desc)
	if err != nil {
		return nil, err
	}
	a, err := abstract(owner, m, reg, facts, e.emulations)
	if err != nil {
		return nil, err
	}
	for _, o := range a.Outputs {
		log.Debugf("%s = %s", o.Target, o.Value)
	}
	return a, nil
}

// Resolve abstracts owner.name desc with the engine's registry and, if
// unresolved outputs depend on parameters, feeds back argument constants
// that every call site agrees on.
func (e *Engine) Resolve(owner, name, desc string) (*MethodAbstraction, error) {
	return e.ResolveWith(e.registry, owner, name, desc)
}

// ResolveWith is Resolve against an explicit registry.
func (e *Engine) ResolveWith(reg *Registry, owner, name, desc string) (*MethodAbstraction, error) {
	return e.resolve(reg, owner, name, desc, make(map[string]bool), 0)
}

func (e *Engine) resolve(reg *Registry, owner, name, desc string, active map[string]bool, depth int) (*MethodAbstraction, error) {
	a, err := e.AnalyzeWith(reg, owner, name, desc, nil)
	if err != nil {
		return nil, err
	}
	if !e.interprocedural || a.Resolved() {
		return a, nil
	}
	params := a.pendingParameters()
	if len(params) == 0 {
		return a, nil
	}

	key := methodKey(owner, name, desc)
	if active[key] {
		log.Debugf("%s: already on the call path, not following callers", key)
		return a, nil
	}
	if depth >= e.maxDepth {
		log.Debugf("%s: call depth %d reached", key, depth)
		return a, nil
	}
	active[key] = true
	defer delete(active, key)

	m, err := e.method(owner, name, desc)
	if err != nil {
		return nil, err
	}
	facts, err := e.collectFacts(m, owner, params, active, depth+1)
	if err != nil {
		return nil, err
	}
	if len(facts) == 0 {
		return a, nil
	}
	log.Debugf("%s: re-analyzing with %d parameter fact(s)", key, len(facts))
	return e.AnalyzeWith(reg, owner, name, desc, facts)
}

// paramPositions maps a parameter slot to its distance from the stack top
// at a call site. The receiver sits below the first argument.
func paramPositions(m *classfile.Method) (map[int]int, error) {
	args, err := classfile.ArgumentTypes(m.Desc)
	if err != nil {
		return nil, err
	}
	n := len(args)
	pos := make(map[int]int, n+1)
	slot := 0
	if !m.IsStatic() {
		pos[0] = n
		slot = 1
	}
	for j, t := range args {
		pos[slot] = n - 1 - j
		slot += classfile.TypeSize(t)
	}
	return pos, nil
}

// collectFacts resolves the argument for every pending parameter at every
// call site of m and keeps the slots on which all sites agree.
func (e *Engine) collectFacts(m *classfile.Method, owner string, params []int, active map[string]bool, depth int) (Facts, error) {
	sites := e.CallSites(owner, m.Name, m.Desc)
	if len(sites) == 0 {
		return nil, nil
	}
	pos, err := paramPositions(m)
	if err != nil {
		return nil, err
	}

	agreed := make(Facts)
	conflict := make(map[int]bool)
	for _, site := range sites {
		reg := NewRegistry()
		for _, p := range params {
			if d, ok := pos[p]; ok {
				reg.DeclareStackValue(site.Owner, site.Name, site.Desc, site.Insn, d)
			}
		}
		caller, err := e.resolve(reg, site.Owner, site.Name, site.Desc, active, depth)
		if err != nil {
			var aerr *AnalyzerError
			if !errors.As(err, &aerr) {
				return nil, err
			}
			log.Warningf("call site %s: %v", site, err)
		}
		for _, p := range params {
			d, ok := pos[p]
			if !ok || conflict[p] {
				continue
			}
			var c Constant
			if caller != nil {
				if v, found := caller.Output(StackTarget, site.Insn, d); found {
					c, _ = v.Describe()
				}
			}
			switch prev, seen := agreed[p]; {
			case c == nil:
				conflict[p] = true
			case seen && !Equal(prev, c):
				conflict[p] = true
			default:
				agreed[p] = c
			}
		}
	}
	for p := range conflict {
		delete(agreed, p)
	}
	return agreed, nil
}

// CallSites returns every invocation of owner.name desc in the pool. The
// scan is cached per method.
func (e *Engine) CallSites(owner, name, desc string) []CallSite {
	key := methodKey(owner, name, desc)
	if sites, ok := e.callSites[key]; ok {
		return sites
	}
	var sites []CallSite
	for _, entry := range e.pool.Entries() {
		c := entry.Class
		if c.IsModuleInfo() {
			continue
		}
		for _, m := range c.Methods {
			for i := range m.Instructions {
				in := &m.Instructions[i]
				if in.Kind == classfile.KindMethod && in.Op.IsInvoke() &&
					in.Owner == owner && in.Name == name && in.Desc == desc {
					sites = append(sites, CallSite{
						Module: entry.Module,
						Owner:  c.Name,
						Name:   m.Name,
						Desc:   m.Desc,
						Insn:   i,
						Op:     in.Op,
					})
				}
			}
		}
	}
	e.callSites[key] = sites
	return sites
}
